// Package net implements a three weight layer fully connected
// classifier: forward pass, softmax cross-entropy loss with L2 weight
// regularization, manual backward pass, and in-place SGD updates.
package net

import (
	"fmt"
	"math"
	"math/rand"

	"github.com/FlavioCFOliveira/GridNet/internal/activations"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
)

// Network owns the parameters of the fixed three layer topology
// inputs -> hidden1 -> hidden2 -> classes. The two hidden layers share
// one activation; the final layer is linear and emits raw class scores.
type Network struct {
	inputs  int
	hidden1 int
	hidden2 int
	classes int

	kind   activations.Kind
	act    activations.Activation
	params *Params
}

// Cache holds the intermediate tensors of one forward pass that the
// matching backward pass needs. It is owned by the caller of Forward
// and is not reused across batches.
type Cache struct {
	X      *mat.Dense
	Z1, A1 *mat.Dense
	Z2, A2 *mat.Dense
	Scores *mat.Dense
}

// New creates a network with randomized initial parameters. Hidden
// weights use He initialization, the final layer a small fixed standard
// deviation, biases start at zero. The seed makes initialization
// reproducible.
func New(inputs, hidden1, hidden2, classes int, kind activations.Kind, seed int64) (*Network, error) {
	for _, d := range [...]struct {
		name string
		v    int
	}{{"inputs", inputs}, {"hidden1", hidden1}, {"hidden2", hidden2}, {"classes", classes}} {
		if d.v <= 0 {
			return nil, fmt.Errorf("net: %s must be positive, got %d", d.name, d.v)
		}
	}

	rnd := rand.New(rand.NewSource(seed))
	prelu := kind == activations.PReLUKind
	params := newParams(rnd, inputs, hidden1, hidden2, classes, prelu)

	var act activations.Activation
	switch kind {
	case activations.ReLUKind:
		act = activations.ReLU{}
	case activations.PReLUKind:
		// The activation aliases the slope parameter slices; updates
		// applied by SGD are visible without rebinding.
		act = activations.NewPReLU(params.Alpha1, params.Alpha2)
	case activations.LeakyReLUKind:
		act = activations.NewLeakyReLU()
	case activations.TanhKind:
		act = activations.Tanh{}
	default:
		return nil, fmt.Errorf("net: unsupported activation kind %v", kind)
	}

	return &Network{
		inputs:  inputs,
		hidden1: hidden1,
		hidden2: hidden2,
		classes: classes,
		kind:    kind,
		act:     act,
		params:  params,
	}, nil
}

// Kind reports the activation variant the hidden layers use.
func (n *Network) Kind() activations.Kind { return n.kind }

// Classes reports the number of output classes.
func (n *Network) Classes() int { return n.classes }

// Params exposes the live parameter aggregate.
func (n *Network) Params() *Params { return n.params }

// Snapshot returns a deep copy of the current parameters. The copy is
// fully independent of the live parameters.
func (n *Network) Snapshot() *Params { return n.params.Clone() }

// Restore overwrites the live parameters with the snapshot's values.
func (n *Network) Restore(snap *Params) { n.params.CopyFrom(snap) }

// Forward computes class scores for a batch whose rows are samples.
// It returns the scores together with the cache consumed by Backward.
func (n *Network) Forward(x *mat.Dense) (*mat.Dense, *Cache, error) {
	rows, cols := x.Dims()
	if cols != n.inputs {
		return nil, nil, fmt.Errorf("net: forward: input has %d features, want %d", cols, n.inputs)
	}
	if rows == 0 {
		return nil, nil, fmt.Errorf("net: forward: empty batch")
	}

	z1 := affine(x, n.params.W1, n.params.B1)
	a1, err := n.act.Activate(z1)
	if err != nil {
		return nil, nil, fmt.Errorf("net: forward layer 1: %w", err)
	}
	z2 := affine(a1, n.params.W2, n.params.B2)
	a2, err := n.act.Activate(z2)
	if err != nil {
		return nil, nil, fmt.Errorf("net: forward layer 2: %w", err)
	}
	scores := affine(a2, n.params.W3, n.params.B3)

	return scores, &Cache{X: x, Z1: z1, A1: a1, Z2: z2, A2: a2, Scores: scores}, nil
}

// Loss computes the mean softmax cross-entropy of scores against the
// integer labels plus 0.5*reg*sum(||Wi||^2) over the three weight
// matrices. Biases and slopes are not regularized. The row maximum is
// subtracted before exponentiation; NaN or Inf scores propagate.
func (n *Network) Loss(scores *mat.Dense, labels []int, reg float64) (float64, error) {
	rows, cols := scores.Dims()
	if err := n.checkLabels(labels, rows, cols); err != nil {
		return 0, fmt.Errorf("net: loss: %w", err)
	}

	var total float64
	for i := 0; i < rows; i++ {
		row := scores.RawRowView(i)
		max := floats.Max(row)
		var sumExp float64
		for _, v := range row {
			sumExp += math.Exp(v - max)
		}
		total += math.Log(sumExp) - (row[labels[i]] - max)
	}
	loss := total / float64(rows)

	loss += 0.5 * reg * (sumSquares(n.params.W1) + sumSquares(n.params.W2) + sumSquares(n.params.W3))
	return loss, nil
}

// Backward computes analytic gradients for every parameter from one
// forward pass's cache. The regularization gradient reg*W is folded
// into each weight gradient.
func (n *Network) Backward(cache *Cache, labels []int, reg float64) (*Grads, error) {
	rows, cols := cache.Scores.Dims()
	if err := n.checkLabels(labels, rows, cols); err != nil {
		return nil, fmt.Errorf("net: backward: %w", err)
	}

	// dscores = softmax(scores); dscores[i, y_i] -= 1; dscores /= N.
	dscores := softmax(cache.Scores)
	for i := 0; i < rows; i++ {
		dscores.Set(i, labels[i], dscores.At(i, labels[i])-1)
	}
	dscores.Scale(1/float64(rows), dscores)

	g := &Grads{}

	g.W3 = mulT(cache.A2, dscores)
	addScaled(g.W3, reg, n.params.W3)
	g.B3 = colSum(dscores)

	var da2 mat.Dense
	da2.Mul(dscores, n.params.W3.T())
	deriv2, err := n.act.Derivative(cache.Z2)
	if err != nil {
		return nil, fmt.Errorf("net: backward layer 2: %w", err)
	}
	var dz2 mat.Dense
	dz2.MulElem(&da2, deriv2)

	g.W2 = mulT(cache.A1, &dz2)
	addScaled(g.W2, reg, n.params.W2)
	g.B2 = colSum(&dz2)

	var da1 mat.Dense
	da1.Mul(&dz2, n.params.W2.T())
	deriv1, err := n.act.Derivative(cache.Z1)
	if err != nil {
		return nil, fmt.Errorf("net: backward layer 1: %w", err)
	}
	var dz1 mat.Dense
	dz1.MulElem(&da1, deriv1)

	g.W1 = mulT(cache.X, &dz1)
	addScaled(g.W1, reg, n.params.W1)
	g.B1 = colSum(&dz1)

	if n.kind == activations.PReLUKind {
		// d/dalpha of max(0,z)+alpha*min(0,z) is min(0,z).
		g.Alpha1 = slopeGrad(&da1, cache.Z1)
		g.Alpha2 = slopeGrad(&da2, cache.Z2)
	}

	return g, nil
}

// Update applies one SGD step in place: param -= lr * grad for every
// tensor present in both aggregates.
func (n *Network) Update(g *Grads, lr float64) {
	p := n.params
	floats.AddScaled(p.W1.RawMatrix().Data, -lr, g.W1.RawMatrix().Data)
	floats.AddScaled(p.W2.RawMatrix().Data, -lr, g.W2.RawMatrix().Data)
	floats.AddScaled(p.W3.RawMatrix().Data, -lr, g.W3.RawMatrix().Data)
	floats.AddScaled(p.B1, -lr, g.B1)
	floats.AddScaled(p.B2, -lr, g.B2)
	floats.AddScaled(p.B3, -lr, g.B3)
	if p.Alpha1 != nil && g.Alpha1 != nil {
		floats.AddScaled(p.Alpha1, -lr, g.Alpha1)
		floats.AddScaled(p.Alpha2, -lr, g.Alpha2)
	}
}

// Accuracy is the fraction of rows whose argmax score matches the label.
func Accuracy(scores *mat.Dense, labels []int) float64 {
	rows, _ := scores.Dims()
	if rows == 0 || rows != len(labels) {
		return 0
	}
	var hits int
	for i := 0; i < rows; i++ {
		if floats.MaxIdx(scores.RawRowView(i)) == labels[i] {
			hits++
		}
	}
	return float64(hits) / float64(rows)
}

func (n *Network) checkLabels(labels []int, rows, cols int) error {
	if cols != n.classes {
		return fmt.Errorf("scores have %d columns, want %d classes", cols, n.classes)
	}
	if len(labels) != rows {
		return fmt.Errorf("got %d labels for %d samples", len(labels), rows)
	}
	for i, y := range labels {
		if y < 0 || y >= n.classes {
			return fmt.Errorf("label %d at row %d outside [0, %d)", y, i, n.classes)
		}
	}
	return nil
}

// affine computes x·w + b with b broadcast over rows.
func affine(x, w *mat.Dense, b []float64) *mat.Dense {
	var z mat.Dense
	z.Mul(x, w)
	z.Apply(func(_, j int, v float64) float64 { return v + b[j] }, &z)
	return &z
}

// softmax returns row-wise normalized exponentials with the row maximum
// subtracted first.
func softmax(scores *mat.Dense) *mat.Dense {
	rows, cols := scores.Dims()
	out := mat.NewDense(rows, cols, nil)
	for i := 0; i < rows; i++ {
		src := scores.RawRowView(i)
		dst := out.RawRowView(i)
		max := floats.Max(src)
		var sum float64
		for j, v := range src {
			e := math.Exp(v - max)
			dst[j] = e
			sum += e
		}
		floats.Scale(1/sum, dst)
	}
	return out
}

// mulT computes aᵗ·b.
func mulT(a, b *mat.Dense) *mat.Dense {
	var out mat.Dense
	out.Mul(a.T(), b)
	return &out
}

// addScaled adds s*m into dst elementwise.
func addScaled(dst *mat.Dense, s float64, m *mat.Dense) {
	if s == 0 {
		return
	}
	floats.AddScaled(dst.RawMatrix().Data, s, m.RawMatrix().Data)
}

func colSum(m *mat.Dense) []float64 {
	rows, cols := m.Dims()
	sum := make([]float64, cols)
	for i := 0; i < rows; i++ {
		floats.Add(sum, m.RawRowView(i))
	}
	return sum
}

// slopeGrad computes colsum(da ⊙ min(0, z)).
func slopeGrad(da, z *mat.Dense) []float64 {
	rows, cols := z.Dims()
	grad := make([]float64, cols)
	for i := 0; i < rows; i++ {
		zRow := z.RawRowView(i)
		daRow := da.RawRowView(i)
		for j, v := range zRow {
			if v < 0 {
				grad[j] += daRow[j] * v
			}
		}
	}
	return grad
}

func sumSquares(m *mat.Dense) float64 {
	data := m.RawMatrix().Data
	return floats.Dot(data, data)
}
