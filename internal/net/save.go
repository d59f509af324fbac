package net

import (
	"encoding/gob"
	"fmt"
	"io"
	"os"

	"github.com/FlavioCFOliveira/GridNet/internal/activations"
	"gonum.org/v1/gonum/mat"
)

// netFile is the gob image of a trained network: topology, activation
// kind and flattened parameters.
type netFile struct {
	Inputs, Hidden1, Hidden2, Classes int
	Kind                              string
	W1, W2, W3                        []float64
	B1, B2, B3                        []float64
	Alpha1, Alpha2                    []float64
}

// Save writes the network to a file using gob encoding.
func (n *Network) Save(filename string) error {
	file, err := os.Create(filename)
	if err != nil {
		return fmt.Errorf("failed to create file: %w", err)
	}
	defer file.Close()

	return n.Encode(file)
}

// Encode writes the network to an io.Writer using gob encoding.
func (n *Network) Encode(w io.Writer) error {
	p := n.params
	img := netFile{
		Inputs:  n.inputs,
		Hidden1: n.hidden1,
		Hidden2: n.hidden2,
		Classes: n.classes,
		Kind:    n.kind.String(),
		W1:      cloneSlice(p.W1.RawMatrix().Data),
		W2:      cloneSlice(p.W2.RawMatrix().Data),
		W3:      cloneSlice(p.W3.RawMatrix().Data),
		B1:      cloneSlice(p.B1),
		B2:      cloneSlice(p.B2),
		B3:      cloneSlice(p.B3),
		Alpha1:  cloneSlice(p.Alpha1),
		Alpha2:  cloneSlice(p.Alpha2),
	}
	if err := gob.NewEncoder(w).Encode(&img); err != nil {
		return fmt.Errorf("failed to encode network: %w", err)
	}
	return nil
}

// Load reads a network previously written by Save.
func Load(filename string) (*Network, error) {
	file, err := os.Open(filename)
	if err != nil {
		return nil, fmt.Errorf("failed to open file: %w", err)
	}
	defer file.Close()

	return Decode(file)
}

// Decode reads a network from an io.Reader.
func Decode(r io.Reader) (*Network, error) {
	var img netFile
	if err := gob.NewDecoder(r).Decode(&img); err != nil {
		return nil, fmt.Errorf("failed to decode network: %w", err)
	}

	kind, err := activations.ParseKind(img.Kind)
	if err != nil {
		return nil, err
	}
	n, err := New(img.Inputs, img.Hidden1, img.Hidden2, img.Classes, kind, 0)
	if err != nil {
		return nil, err
	}

	want := []struct {
		name string
		got  int
		need int
	}{
		{"W1", len(img.W1), img.Inputs * img.Hidden1},
		{"W2", len(img.W2), img.Hidden1 * img.Hidden2},
		{"W3", len(img.W3), img.Hidden2 * img.Classes},
		{"B1", len(img.B1), img.Hidden1},
		{"B2", len(img.B2), img.Hidden2},
		{"B3", len(img.B3), img.Classes},
	}
	for _, w := range want {
		if w.got != w.need {
			return nil, fmt.Errorf("failed to decode network: %s has %d values, want %d", w.name, w.got, w.need)
		}
	}

	restored := &Params{
		W1: mat.NewDense(img.Inputs, img.Hidden1, img.W1),
		W2: mat.NewDense(img.Hidden1, img.Hidden2, img.W2),
		W3: mat.NewDense(img.Hidden2, img.Classes, img.W3),
		B1: img.B1,
		B2: img.B2,
		B3: img.B3,
	}
	if kind == activations.PReLUKind {
		if len(img.Alpha1) != img.Hidden1 || len(img.Alpha2) != img.Hidden2 {
			return nil, fmt.Errorf("failed to decode network: slope vectors do not match hidden sizes")
		}
		restored.Alpha1 = img.Alpha1
		restored.Alpha2 = img.Alpha2
	}
	n.Restore(restored)
	return n, nil
}
