// Package train drives one network through mini-batch epochs against a
// fixed train/validation split, with learning-rate decay, early
// stopping and best-snapshot tracking.
package train

import (
	"fmt"
	"log"
	"math"

	"github.com/FlavioCFOliveira/GridNet/internal/data"
	"github.com/FlavioCFOliveira/GridNet/internal/net"
)

// Status is the terminal state of a training run.
type Status int

const (
	// Running is the in-progress state; a returned History never
	// carries it.
	Running Status = iota

	// EarlyStopped means validation accuracy failed to improve for a
	// full patience window.
	EarlyStopped

	// Completed means the epoch budget was exhausted.
	Completed
)

func (s Status) String() string {
	switch s {
	case Running:
		return "running"
	case EarlyStopped:
		return "early_stopped"
	case Completed:
		return "completed"
	}
	return fmt.Sprintf("Status(%d)", int(s))
}

// Config holds the training-loop knobs. Zero values fall back to the
// defaults documented per field.
type Config struct {
	LearningRate float64
	Reg          float64
	Epochs       int
	BatchSize    int     // default 64
	Decay        float64 // default 0.95, multiplied in every DecayEvery epochs after the first
	DecayEvery   int     // default 1
	Patience     int     // default 20 epochs without improvement
	Verbose      bool
	Callbacks    []Callback
}

func (c Config) withDefaults() Config {
	if c.BatchSize == 0 {
		c.BatchSize = 64
	}
	if c.Decay == 0 {
		c.Decay = 0.95
	}
	if c.DecayEvery == 0 {
		c.DecayEvery = 1
	}
	if c.Patience == 0 {
		c.Patience = 20
	}
	return c
}

func (c Config) validate(trainLen int) error {
	if c.Epochs <= 0 {
		return fmt.Errorf("train: epochs must be positive, got %d", c.Epochs)
	}
	if c.BatchSize <= 0 {
		return fmt.Errorf("train: batch size must be positive, got %d", c.BatchSize)
	}
	if c.BatchSize > trainLen {
		// Floor division would otherwise run zero batches per epoch.
		return fmt.Errorf("train: batch size %d exceeds training set size %d", c.BatchSize, trainLen)
	}
	if c.Decay <= 0 || c.Decay > 1 {
		return fmt.Errorf("train: decay must be in (0, 1], got %v", c.Decay)
	}
	if c.Patience <= 0 {
		return fmt.Errorf("train: patience must be positive, got %d", c.Patience)
	}
	return nil
}

// History records the per-epoch metric sequences of one run. The
// sequences are shorter than the epoch budget when the run stopped
// early.
type History struct {
	TrainLoss []float64
	ValLoss   []float64
	ValAcc    []float64

	Status     Status
	BestValAcc float64
	BestEpoch  int
}

// Run trains network on trainSet, validating against valSet once per
// epoch. Training data is partitioned into consecutive batches, the
// final partial batch dropped. On return the network's live parameters
// hold the best-validation-accuracy snapshot, not the final epoch's
// values.
func Run(network *net.Network, trainSet, valSet data.Set, cfg Config) (*History, error) {
	cfg = cfg.withDefaults()
	if err := cfg.validate(trainSet.Len()); err != nil {
		return nil, err
	}

	lr := cfg.LearningRate
	numBatches := trainSet.Len() / cfg.BatchSize
	tracker := newPlateau(cfg.Patience)
	hist := &History{Status: Running, BestEpoch: -1}

	var best *net.Params

	for epoch := 0; epoch < cfg.Epochs; epoch++ {
		if epoch > 0 && epoch%cfg.DecayEvery == 0 {
			lr *= cfg.Decay
		}

		var epochLoss float64
		for b := 0; b < numBatches; b++ {
			batch := trainSet.Slice(b*cfg.BatchSize, (b+1)*cfg.BatchSize)
			scores, cache, err := network.Forward(batch.X)
			if err != nil {
				return nil, err
			}
			loss, err := network.Loss(scores, batch.Y, cfg.Reg)
			if err != nil {
				return nil, err
			}
			epochLoss += loss
			grads, err := network.Backward(cache, batch.Y, cfg.Reg)
			if err != nil {
				return nil, err
			}
			network.Update(grads, lr)
		}

		valScores, _, err := network.Forward(valSet.X)
		if err != nil {
			return nil, err
		}
		valLoss, err := network.Loss(valScores, valSet.Y, cfg.Reg)
		if err != nil {
			return nil, err
		}
		valAcc := net.Accuracy(valScores, valSet.Y)
		trainLoss := epochLoss / float64(numBatches)

		hist.TrainLoss = append(hist.TrainLoss, trainLoss)
		hist.ValLoss = append(hist.ValLoss, valLoss)
		hist.ValAcc = append(hist.ValAcc, valAcc)

		m := Metrics{TrainLoss: trainLoss, ValLoss: valLoss, ValAcc: valAcc, LearningRate: lr}
		for _, cb := range cfg.Callbacks {
			cb.OnEpochEnd(epoch, m)
		}
		if cfg.Verbose {
			log.Printf("epoch %d: train loss %.6f, val loss %.6f, val acc %.4f", epoch, trainLoss, valLoss, valAcc)
		}

		improved, stop := tracker.observe(valAcc)
		if improved {
			best = network.Snapshot()
			hist.BestEpoch = epoch
		}
		if stop {
			hist.Status = EarlyStopped
			break
		}
	}

	if hist.Status == Running {
		hist.Status = Completed
	}
	if best != nil {
		network.Restore(best)
		hist.BestValAcc = tracker.best
	}
	return hist, nil
}

// plateau tracks the no-improvement run length against a patience
// window. Only strict improvement resets the counter.
type plateau struct {
	patience int
	best     float64
	bad      int
}

func newPlateau(patience int) *plateau {
	return &plateau{patience: patience, best: math.Inf(-1)}
}

// observe reports whether acc strictly improves on the best value seen
// and whether the run should stop now.
func (p *plateau) observe(acc float64) (improved, stop bool) {
	if acc > p.best {
		p.best = acc
		p.bad = 0
		return true, false
	}
	p.bad++
	return false, p.bad >= p.patience
}
