// Command train fits a single configuration of the three layer
// classifier on CIFAR-10 and saves the best-validation network.
package main

import (
	"flag"
	"log"

	"github.com/FlavioCFOliveira/GridNet/internal/activations"
	"github.com/FlavioCFOliveira/GridNet/internal/data"
	"github.com/FlavioCFOliveira/GridNet/internal/net"
	"github.com/FlavioCFOliveira/GridNet/internal/train"
)

type config struct {
	dataDir    string
	netPath    string
	csvPath    string
	hidden1    int
	hidden2    int
	activation string
	lr         float64
	reg        float64
	epochs     int
	batchSize  int
	decay      float64
	patience   int
	valSize    int
	seed       int64
}

var cfg config

func main() {
	log.SetFlags(log.LstdFlags | log.Lshortfile)

	flag.StringVar(&cfg.dataDir, "data", "", "Directory with CIFAR-10 binary batches")
	flag.StringVar(&cfg.netPath, "net", "network.gob", "Output path for the trained network")
	flag.StringVar(&cfg.csvPath, "csv", "", "Optional CSV path for per-epoch curves")
	flag.IntVar(&cfg.hidden1, "h1", 100, "First hidden layer size")
	flag.IntVar(&cfg.hidden2, "h2", 100, "Second hidden layer size")
	flag.StringVar(&cfg.activation, "act", "relu", "Activation kind: relu, prelu, leaky_relu, tanh")
	flag.Float64Var(&cfg.lr, "lr", 1e-3, "Learning rate")
	flag.Float64Var(&cfg.reg, "reg", 0, "L2 regularization strength")
	flag.IntVar(&cfg.epochs, "epochs", 30, "Epoch budget")
	flag.IntVar(&cfg.batchSize, "batch", 64, "Mini-batch size")
	flag.Float64Var(&cfg.decay, "decay", 0.95, "Learning rate decay per epoch")
	flag.IntVar(&cfg.patience, "patience", 20, "Early stopping patience in epochs")
	flag.IntVar(&cfg.valSize, "val", 1000, "Validation split size")
	flag.Int64Var(&cfg.seed, "seed", 0, "Initialization seed")
	flag.Parse()

	log.Printf("%+v", cfg)

	if err := run(); err != nil {
		log.Fatal(err)
	}
}

func run() error {
	kind, err := activations.ParseKind(cfg.activation)
	if err != nil {
		return err
	}

	full, test, err := data.LoadCIFAR10(cfg.dataDir)
	if err != nil {
		return err
	}
	log.Printf("loaded %d train, %d test samples", full.Len(), test.Len())

	trainSet, valSet, err := data.SplitTrainVal(full, cfg.valSize)
	if err != nil {
		return err
	}
	data.Normalize(trainSet, valSet, test)

	network, err := net.New(data.NumPixels, cfg.hidden1, cfg.hidden2, data.NumClasses, kind, cfg.seed)
	if err != nil {
		return err
	}

	trainCfg := train.Config{
		LearningRate: cfg.lr,
		Reg:          cfg.reg,
		Epochs:       cfg.epochs,
		BatchSize:    cfg.batchSize,
		Decay:        cfg.decay,
		Patience:     cfg.patience,
		Verbose:      true,
	}
	if cfg.csvPath != "" {
		logger, err := train.NewCSVLogger(cfg.csvPath)
		if err != nil {
			return err
		}
		defer logger.Close()
		trainCfg.Callbacks = append(trainCfg.Callbacks, logger)
	}

	hist, err := train.Run(network, trainSet, valSet, trainCfg)
	if err != nil {
		return err
	}
	log.Printf("training %s: best val acc %.4f at epoch %d", hist.Status, hist.BestValAcc, hist.BestEpoch)

	testScores, _, err := network.Forward(test.X)
	if err != nil {
		return err
	}
	log.Printf("test accuracy %.4f", net.Accuracy(testScores, test.Y))

	if err := network.Save(cfg.netPath); err != nil {
		return err
	}
	log.Printf("stored network %s", cfg.netPath)
	return nil
}
