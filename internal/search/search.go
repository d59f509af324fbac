// Package search iterates a hyperparameter grid, training one fresh
// network per combination and ranking configurations by validation
// accuracy.
package search

import (
	"context"
	"fmt"
	"log"
	"sync"

	"github.com/FlavioCFOliveira/GridNet/internal/activations"
	"github.com/FlavioCFOliveira/GridNet/internal/data"
	"github.com/FlavioCFOliveira/GridNet/internal/net"
	"github.com/FlavioCFOliveira/GridNet/internal/train"
	"golang.org/x/sync/errgroup"
)

// Config is one point of the hyperparameter grid. It is comparable, so
// it can key a map of recorded results.
type Config struct {
	LearningRate float64
	Hidden       [2]int
	Reg          float64
	Activation   activations.Kind
}

func (c Config) String() string {
	return fmt.Sprintf("lr=%g hidden=%dx%d reg=%g act=%s",
		c.LearningRate, c.Hidden[0], c.Hidden[1], c.Reg, c.Activation)
}

// FileName derives a stable file stem from the configuration fields,
// for persisting networks and metric curves.
func (c Config) FileName() string {
	return fmt.Sprintf("net_lr%g_h%dx%d_reg%g_%s",
		c.LearningRate, c.Hidden[0], c.Hidden[1], c.Reg, c.Activation)
}

// Axes are the four independent grid axes.
type Axes struct {
	LearningRates []float64
	HiddenSizes   [][2]int
	Regs          []float64
	Activations   []activations.Kind
}

// Combinations enumerates the Cartesian product in deterministic nested
// order: learning rate, hidden sizes, regularization, activation.
func (a Axes) Combinations() []Config {
	combos := make([]Config, 0, len(a.LearningRates)*len(a.HiddenSizes)*len(a.Regs)*len(a.Activations))
	for _, lr := range a.LearningRates {
		for _, h := range a.HiddenSizes {
			for _, reg := range a.Regs {
				for _, act := range a.Activations {
					combos = append(combos, Config{
						LearningRate: lr,
						Hidden:       h,
						Reg:          reg,
						Activation:   act,
					})
				}
			}
		}
	}
	return combos
}

// Result records one configuration's completed run: the held-out
// accuracy of its best parameters and the full metric trajectories.
// Read-only after creation.
type Result struct {
	Config  Config
	ValAcc  float64
	History *train.History

	// Network holds the trained network with its best parameters. It
	// is set only for the OnResult call, so persistence callbacks can
	// serialize the weights; the copy retained in the report drops it,
	// keeping peak memory bounded over a long grid.
	Network *net.Network
}

// Grid runs the training loop once per axis combination. Combinations
// are independent, so Workers > 1 trains them concurrently; any
// training error aborts the whole search.
type Grid struct {
	Axes    Axes
	Train   train.Config
	Inputs  int
	Classes int
	Seed    int64
	Workers int // <= 1 runs sequentially

	// OnResult, when set, receives each finished configuration: in
	// iteration order when sequential, completion order when parallel.
	// Calls are never concurrent.
	OnResult func(Result)

	// Verbose logs one line per finished configuration.
	Verbose bool
}

// Report holds every result in iteration order.
type Report struct {
	Results []Result
}

// Run trains every combination and collects the results. Each
// configuration's network and caches become unreachable before the next
// one starts, bounding peak memory over a long grid.
func (g *Grid) Run(ctx context.Context, trainSet, valSet data.Set) (*Report, error) {
	combos := g.Axes.Combinations()
	if len(combos) == 0 {
		return nil, fmt.Errorf("search: empty grid")
	}

	results := make([]Result, len(combos))

	if g.Workers <= 1 {
		for i, c := range combos {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
			res, err := g.runOne(i, c, trainSet, valSet)
			if err != nil {
				return nil, err
			}
			g.emit(res)
			res.Network = nil
			results[i] = res
		}
		return &Report{Results: results}, nil
	}

	eg, ctx := errgroup.WithContext(ctx)
	eg.SetLimit(g.Workers)
	var mu sync.Mutex
	for i, c := range combos {
		i, c := i, c
		eg.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			res, err := g.runOne(i, c, trainSet, valSet)
			if err != nil {
				return err
			}
			mu.Lock()
			g.emit(res)
			mu.Unlock()
			// One writer per slot; only the callback needs the lock.
			res.Network = nil
			results[i] = res
			return nil
		})
	}
	if err := eg.Wait(); err != nil {
		return nil, err
	}
	return &Report{Results: results}, nil
}

func (g *Grid) emit(res Result) {
	if g.Verbose {
		log.Printf("search: %s: val acc %.4f (%s after %d epochs)",
			res.Config, res.ValAcc, res.History.Status, len(res.History.ValAcc))
	}
	if g.OnResult != nil {
		g.OnResult(res)
	}
}

// runOne trains a fresh network for one combination and scores its best
// parameters on the held-out split. The seed is offset by the
// combination index so initialization does not depend on execution
// order.
func (g *Grid) runOne(i int, c Config, trainSet, valSet data.Set) (Result, error) {
	network, err := net.New(g.Inputs, c.Hidden[0], c.Hidden[1], g.Classes, c.Activation, g.Seed+int64(i))
	if err != nil {
		return Result{}, fmt.Errorf("search: %s: %w", c, err)
	}

	cfg := g.Train
	cfg.LearningRate = c.LearningRate
	cfg.Reg = c.Reg
	hist, err := train.Run(network, trainSet, valSet, cfg)
	if err != nil {
		return Result{}, fmt.Errorf("search: %s: %w", c, err)
	}

	// The loop restored the best snapshot; score those parameters.
	scores, _, err := network.Forward(valSet.X)
	if err != nil {
		return Result{}, fmt.Errorf("search: %s: %w", c, err)
	}
	acc := net.Accuracy(scores, valSet.Y)

	return Result{Config: c, ValAcc: acc, History: hist, Network: network}, nil
}

// Best returns the configuration with the maximum recorded validation
// accuracy. Ties resolve to the first one in iteration order. ok is
// false for an empty report.
func (r *Report) Best() (Result, bool) {
	if len(r.Results) == 0 {
		return Result{}, false
	}
	best := r.Results[0]
	for _, res := range r.Results[1:] {
		if res.ValAcc > best.ValAcc {
			best = res
		}
	}
	return best, true
}

// Accuracies returns the configuration to accuracy association.
func (r *Report) Accuracies() map[Config]float64 {
	acc := make(map[Config]float64, len(r.Results))
	for _, res := range r.Results {
		acc[res.Config] = res.ValAcc
	}
	return acc
}
