// Package activations provides the hidden-layer activation functions
// and their derivatives with respect to the pre-activation input.
package activations

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/mat"
)

// Kind identifies an activation variant. It is used as a grid-search
// axis and for reporting, so values must be stable.
type Kind int

const (
	// ReLUKind is the fixed rectifier max(0, x).
	ReLUKind Kind = iota

	// PReLUKind is the parametric rectifier with learnable per-unit
	// negative slopes.
	PReLUKind

	// LeakyReLUKind is the rectifier with a small constant leak.
	LeakyReLUKind

	// TanhKind is the hyperbolic tangent.
	TanhKind
)

// Kinds lists every variant in a stable order.
var Kinds = []Kind{ReLUKind, PReLUKind, LeakyReLUKind, TanhKind}

func (k Kind) String() string {
	switch k {
	case ReLUKind:
		return "relu"
	case PReLUKind:
		return "prelu"
	case LeakyReLUKind:
		return "leaky_relu"
	case TanhKind:
		return "tanh"
	}
	return fmt.Sprintf("Kind(%d)", int(k))
}

// ParseKind converts a name as printed by String back into a Kind.
func ParseKind(s string) (Kind, error) {
	for _, k := range Kinds {
		if k.String() == s {
			return k, nil
		}
	}
	return 0, fmt.Errorf("activations: unknown kind %q", s)
}

// Activation computes f(z) and f'(z) elementwise over a batch matrix
// whose rows are samples and whose columns are units.
type Activation interface {
	// Activate returns f(z).
	Activate(z *mat.Dense) (*mat.Dense, error)

	// Derivative returns f'(z).
	Derivative(z *mat.Dense) (*mat.Dense, error)
}

// ReLU activation function.
type ReLU struct{}

// Activate computes max(0, x)
func (ReLU) Activate(z *mat.Dense) (*mat.Dense, error) {
	return apply(z, func(x float64) float64 {
		if x > 0 {
			return x
		}
		return 0
	}), nil
}

// Derivative returns 1 if x > 0, else 0
func (ReLU) Derivative(z *mat.Dense) (*mat.Dense, error) {
	return apply(z, func(x float64) float64 {
		if x > 0 {
			return 1
		}
		return 0
	}), nil
}

// LeakyReLU activation function to prevent dying neurons.
type LeakyReLU struct {
	Alpha float64 // Constant slope for x < 0
}

// NewLeakyReLU creates a LeakyReLU with the default slope of 0.01.
func NewLeakyReLU() LeakyReLU {
	return LeakyReLU{Alpha: 0.01}
}

// Activate computes max(alpha*x, x)
func (l LeakyReLU) Activate(z *mat.Dense) (*mat.Dense, error) {
	return apply(z, func(x float64) float64 {
		if x >= 0 {
			return x
		}
		return l.Alpha * x
	}), nil
}

// Derivative returns 1 if x >= 0, else alpha
func (l LeakyReLU) Derivative(z *mat.Dense) (*mat.Dense, error) {
	return apply(z, func(x float64) float64 {
		if x >= 0 {
			return 1
		}
		return l.Alpha
	}), nil
}

// Tanh activation function.
type Tanh struct{}

// Activate computes tanh(x)
func (Tanh) Activate(z *mat.Dense) (*mat.Dense, error) {
	return apply(z, math.Tanh), nil
}

// Derivative computes 1 - tanh(x)^2
func (Tanh) Derivative(z *mat.Dense) (*mat.Dense, error) {
	return apply(z, func(x float64) float64 {
		t := math.Tanh(x)
		return 1 - t*t
	}), nil
}

// PReLU (Parametric ReLU) activation function. Unlike LeakyReLU the
// negative slopes are learnable, one per unit. A single PReLU value
// serves every hidden layer: the slope vector is selected by matching
// the column count of the input, first match wins. The slices alias
// the network's slope parameters, so SGD updates are visible here
// without rebinding.
type PReLU struct {
	slopes [][]float64
}

// NewPReLU creates a PReLU over the given slope vectors.
func NewPReLU(slopes ...[]float64) *PReLU {
	return &PReLU{slopes: slopes}
}

// SlopesFor returns the slope vector whose length matches width.
func (p *PReLU) SlopesFor(width int) ([]float64, error) {
	for _, s := range p.slopes {
		if len(s) == width {
			return s, nil
		}
	}
	return nil, fmt.Errorf("activations: prelu has no slope vector of length %d", width)
}

// Activate computes max(0, x) + alpha*min(0, x) with alpha broadcast
// over the feature axis.
func (p *PReLU) Activate(z *mat.Dense) (*mat.Dense, error) {
	_, cols := z.Dims()
	alpha, err := p.SlopesFor(cols)
	if err != nil {
		return nil, err
	}
	return applyCol(z, func(j int, x float64) float64 {
		if x >= 0 {
			return x
		}
		return alpha[j] * x
	}), nil
}

// Derivative returns 1 where x >= 0, else the unit's slope.
func (p *PReLU) Derivative(z *mat.Dense) (*mat.Dense, error) {
	_, cols := z.Dims()
	alpha, err := p.SlopesFor(cols)
	if err != nil {
		return nil, err
	}
	return applyCol(z, func(j int, x float64) float64 {
		if x >= 0 {
			return 1
		}
		return alpha[j]
	}), nil
}

func apply(z *mat.Dense, f func(float64) float64) *mat.Dense {
	var out mat.Dense
	out.Apply(func(_, _ int, v float64) float64 { return f(v) }, z)
	return &out
}

func applyCol(z *mat.Dense, f func(int, float64) float64) *mat.Dense {
	var out mat.Dense
	out.Apply(func(_, j int, v float64) float64 { return f(j, v) }, z)
	return &out
}
