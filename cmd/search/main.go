// Command search sweeps the hyperparameter grid on CIFAR-10 and
// reports the configuration with the best validation accuracy. Each
// finished configuration's network and metric curves are written under
// a filename derived from its fields.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"runtime"
	"strconv"
	"strings"

	"github.com/FlavioCFOliveira/GridNet/internal/activations"
	"github.com/FlavioCFOliveira/GridNet/internal/data"
	"github.com/FlavioCFOliveira/GridNet/internal/search"
	"github.com/FlavioCFOliveira/GridNet/internal/train"
)

type config struct {
	dataDir     string
	outDir      string
	lrs         string
	hiddens     string
	regs        string
	activations string
	epochs      int
	batchSize   int
	decay       float64
	patience    int
	valSize     int
	workers     int
	seed        int64
}

var cfg config

func main() {
	log.SetFlags(log.LstdFlags | log.Lshortfile)

	flag.StringVar(&cfg.dataDir, "data", "", "Directory with CIFAR-10 binary batches")
	flag.StringVar(&cfg.outDir, "out", "results", "Output directory for networks and curves")
	flag.StringVar(&cfg.lrs, "lrs", "1e-3,5e-4", "Comma-separated learning rates")
	flag.StringVar(&cfg.hiddens, "hiddens", "100x100,200x100", "Comma-separated hidden size pairs, HxH")
	flag.StringVar(&cfg.regs, "regs", "0,1e-4", "Comma-separated regularization strengths")
	flag.StringVar(&cfg.activations, "acts", "relu,prelu,leaky_relu,tanh", "Comma-separated activation kinds")
	flag.IntVar(&cfg.epochs, "epochs", 30, "Epoch budget per configuration")
	flag.IntVar(&cfg.batchSize, "batch", 64, "Mini-batch size")
	flag.Float64Var(&cfg.decay, "decay", 0.95, "Learning rate decay per epoch")
	flag.IntVar(&cfg.patience, "patience", 20, "Early stopping patience in epochs")
	flag.IntVar(&cfg.valSize, "val", 1000, "Validation split size")
	flag.IntVar(&cfg.workers, "workers", runtime.NumCPU(), "Concurrent configurations")
	flag.Int64Var(&cfg.seed, "seed", 0, "Base initialization seed")
	flag.Parse()

	log.Printf("%+v", cfg)

	if err := run(); err != nil {
		log.Fatal(err)
	}
}

func run() error {
	axes, err := parseAxes()
	if err != nil {
		return err
	}
	if err := os.MkdirAll(cfg.outDir, 0o755); err != nil {
		return err
	}

	full, _, err := data.LoadCIFAR10(cfg.dataDir)
	if err != nil {
		return err
	}
	trainSet, valSet, err := data.SplitTrainVal(full, cfg.valSize)
	if err != nil {
		return err
	}
	data.Normalize(trainSet, valSet)
	log.Printf("training on %d samples, validating on %d", trainSet.Len(), valSet.Len())

	grid := &search.Grid{
		Axes: axes,
		Train: train.Config{
			Epochs:    cfg.epochs,
			BatchSize: cfg.batchSize,
			Decay:     cfg.decay,
			Patience:  cfg.patience,
		},
		Inputs:   data.NumPixels,
		Classes:  data.NumClasses,
		Seed:     cfg.seed,
		Workers:  cfg.workers,
		Verbose:  true,
		OnResult: saveResult,
	}

	report, err := grid.Run(context.Background(), trainSet, valSet)
	if err != nil {
		return err
	}

	best, _ := report.Best()
	log.Printf("best configuration: %s with val acc %.4f", best.Config, best.ValAcc)
	return nil
}

// saveResult persists one finished configuration: the trained network
// as gob, its metric curves as CSV and a summary line. The search loop
// releases the network right after this callback returns.
func saveResult(res search.Result) {
	stem := filepath.Join(cfg.outDir, res.Config.FileName())

	if err := res.Network.Save(stem + ".gob"); err != nil {
		log.Printf("saving network for %s: %v", res.Config, err)
	}

	logger, err := train.NewCSVLogger(stem + ".csv")
	if err != nil {
		log.Printf("saving curves for %s: %v", res.Config, err)
		return
	}
	defer logger.Close()
	for epoch := range res.History.ValAcc {
		logger.OnEpochEnd(epoch, train.Metrics{
			TrainLoss: res.History.TrainLoss[epoch],
			ValLoss:   res.History.ValLoss[epoch],
			ValAcc:    res.History.ValAcc[epoch],
		})
	}

	summary := fmt.Sprintf("%s val_acc=%.4f status=%s epochs=%d\n",
		res.Config, res.ValAcc, res.History.Status, len(res.History.ValAcc))
	if err := os.WriteFile(stem+".txt", []byte(summary), 0o644); err != nil {
		log.Printf("saving summary for %s: %v", res.Config, err)
	}
}

func parseAxes() (search.Axes, error) {
	var axes search.Axes

	for _, s := range strings.Split(cfg.lrs, ",") {
		v, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
		if err != nil {
			return axes, fmt.Errorf("bad learning rate %q: %w", s, err)
		}
		axes.LearningRates = append(axes.LearningRates, v)
	}

	for _, s := range strings.Split(cfg.hiddens, ",") {
		h1, h2, ok := strings.Cut(strings.TrimSpace(s), "x")
		if !ok {
			return axes, fmt.Errorf("bad hidden size pair %q, want HxH", s)
		}
		a, err := strconv.Atoi(h1)
		if err != nil {
			return axes, fmt.Errorf("bad hidden size pair %q: %w", s, err)
		}
		b, err := strconv.Atoi(h2)
		if err != nil {
			return axes, fmt.Errorf("bad hidden size pair %q: %w", s, err)
		}
		axes.HiddenSizes = append(axes.HiddenSizes, [2]int{a, b})
	}

	for _, s := range strings.Split(cfg.regs, ",") {
		v, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
		if err != nil {
			return axes, fmt.Errorf("bad regularization %q: %w", s, err)
		}
		axes.Regs = append(axes.Regs, v)
	}

	for _, s := range strings.Split(cfg.activations, ",") {
		k, err := activations.ParseKind(strings.TrimSpace(s))
		if err != nil {
			return axes, err
		}
		axes.Activations = append(axes.Activations, k)
	}

	return axes, nil
}
