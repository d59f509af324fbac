package net

import (
	"math"
	"math/rand"

	"gonum.org/v1/gonum/mat"
)

// Initialization constants. Hidden weights use He scaling, the final
// linear layer a small fixed standard deviation, and the parametric
// rectifier slopes start at the usual PReLU default.
const (
	finalLayerStd = 1e-4
	initialSlope  = 0.25
)

// Params holds every learnable tensor of the classifier. Shapes are
// fixed at construction; only values mutate afterwards.
type Params struct {
	W1, W2, W3 *mat.Dense // input×hidden1, hidden1×hidden2, hidden2×classes
	B1, B2, B3 []float64

	// Per-unit negative slopes, set only for the parametric rectifier.
	Alpha1, Alpha2 []float64
}

// Grads mirrors Params field for field. Alpha gradients are nil unless
// the network uses the parametric rectifier.
type Grads struct {
	W1, W2, W3 *mat.Dense
	B1, B2, B3 []float64

	Alpha1, Alpha2 []float64
}

func newParams(rnd *rand.Rand, inputs, hidden1, hidden2, classes int, prelu bool) *Params {
	p := &Params{
		W1: heDense(rnd, inputs, hidden1),
		W2: heDense(rnd, hidden1, hidden2),
		W3: normalDense(rnd, hidden2, classes, finalLayerStd),
		B1: make([]float64, hidden1),
		B2: make([]float64, hidden2),
		B3: make([]float64, classes),
	}
	if prelu {
		p.Alpha1 = constSlice(hidden1, initialSlope)
		p.Alpha2 = constSlice(hidden2, initialSlope)
	}
	return p
}

// heDense draws rows×cols weights from N(0, sqrt(2/rows)), the He
// scaling for rectifier-family activations.
func heDense(rnd *rand.Rand, rows, cols int) *mat.Dense {
	return normalDense(rnd, rows, cols, math.Sqrt(2/float64(rows)))
}

func normalDense(rnd *rand.Rand, rows, cols int, std float64) *mat.Dense {
	data := make([]float64, rows*cols)
	for i := range data {
		data[i] = rnd.NormFloat64() * std
	}
	return mat.NewDense(rows, cols, data)
}

func constSlice(n int, v float64) []float64 {
	s := make([]float64, n)
	for i := range s {
		s[i] = v
	}
	return s
}

// Clone returns a fully independent deep copy. Mutating the live
// parameters afterwards must never alter the copy, so every backing
// slice is reallocated.
func (p *Params) Clone() *Params {
	return &Params{
		W1:     mat.DenseCopyOf(p.W1),
		W2:     mat.DenseCopyOf(p.W2),
		W3:     mat.DenseCopyOf(p.W3),
		B1:     cloneSlice(p.B1),
		B2:     cloneSlice(p.B2),
		B3:     cloneSlice(p.B3),
		Alpha1: cloneSlice(p.Alpha1),
		Alpha2: cloneSlice(p.Alpha2),
	}
}

// CopyFrom writes src's values into p's existing storage. Restoring a
// snapshot goes through here so that anything aliasing the backing
// slices, like the PReLU slope vectors, keeps observing the values.
func (p *Params) CopyFrom(src *Params) {
	p.W1.Copy(src.W1)
	p.W2.Copy(src.W2)
	p.W3.Copy(src.W3)
	copy(p.B1, src.B1)
	copy(p.B2, src.B2)
	copy(p.B3, src.B3)
	copy(p.Alpha1, src.Alpha1)
	copy(p.Alpha2, src.Alpha2)
}

func cloneSlice(s []float64) []float64 {
	if s == nil {
		return nil
	}
	out := make([]float64, len(s))
	copy(out, s)
	return out
}
