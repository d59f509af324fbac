// Package data provides the dataset container consumed by the trainer,
// the CIFAR-10 binary loader and per-feature normalization.
package data

import (
	"fmt"
	"io"
	"math"
	"os"
	"path/filepath"

	"gonum.org/v1/gonum/mat"
)

// CIFAR-10 binary layout: 1 label byte followed by 3072 pixel bytes
// (32x32 pixels, 3 channels) per record.
const (
	ImageSize  = 32
	Channels   = 3
	NumClasses = 10
	NumPixels  = ImageSize * ImageSize * Channels
	recordSize = 1 + NumPixels
)

// Set pairs a feature matrix, one sample per row, with integer labels.
type Set struct {
	X *mat.Dense
	Y []int
}

// Len reports the number of samples.
func (s Set) Len() int {
	if s.X == nil {
		return 0
	}
	rows, _ := s.X.Dims()
	return rows
}

// Slice returns the half-open row range [i, j) as a view; the returned
// set shares storage with s.
func (s Set) Slice(i, j int) Set {
	return Set{
		X: s.X.Slice(i, j, 0, s.X.RawMatrix().Cols).(*mat.Dense),
		Y: s.Y[i:j],
	}
}

// LoadCIFAR10 reads the five training batches and the test batch from
// dir and widens the pixel bytes to float64 features in [0, 255].
func LoadCIFAR10(dir string) (train, test Set, err error) {
	var trainX []float64
	var trainY []int
	for i := 1; i <= 5; i++ {
		name := filepath.Join(dir, fmt.Sprintf("data_batch_%d.bin", i))
		trainX, trainY, err = loadBatch(name, trainX, trainY)
		if err != nil {
			return Set{}, Set{}, err
		}
	}

	testX, testY, err := loadBatch(filepath.Join(dir, "test_batch.bin"), nil, nil)
	if err != nil {
		return Set{}, Set{}, err
	}

	train = Set{X: mat.NewDense(len(trainY), NumPixels, trainX), Y: trainY}
	test = Set{X: mat.NewDense(len(testY), NumPixels, testX), Y: testY}
	return train, test, nil
}

func loadBatch(filename string, xs []float64, ys []int) ([]float64, []int, error) {
	file, err := os.Open(filename)
	if err != nil {
		return nil, nil, fmt.Errorf("data: %w", err)
	}
	defer file.Close()

	buf := make([]byte, recordSize)
	for {
		_, err := io.ReadFull(file, buf)
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, nil, fmt.Errorf("data: reading %s: %w", filename, err)
		}
		ys = append(ys, int(buf[0]))
		for _, b := range buf[1:] {
			xs = append(xs, float64(b))
		}
	}
	return xs, ys, nil
}

// SplitTrainVal carves the first n rows off s as the validation split
// and returns the remainder as training data. Both are views of s.
func SplitTrainVal(s Set, n int) (train, val Set, err error) {
	if n <= 0 || n >= s.Len() {
		return Set{}, Set{}, fmt.Errorf("data: validation size %d outside (0, %d)", n, s.Len())
	}
	return s.Slice(n, s.Len()), s.Slice(0, n), nil
}

// Normalize shifts and scales every feature to zero mean and unit
// variance. The statistics are fitted on train and applied to train and
// every set in others, in place. Zero-variance features are left
// centered but unscaled.
func Normalize(train Set, others ...Set) {
	rows, cols := train.X.Dims()

	mean := make([]float64, cols)
	for i := 0; i < rows; i++ {
		for j, v := range train.X.RawRowView(i) {
			mean[j] += v
		}
	}
	for j := range mean {
		mean[j] /= float64(rows)
	}

	std := make([]float64, cols)
	for i := 0; i < rows; i++ {
		for j, v := range train.X.RawRowView(i) {
			d := v - mean[j]
			std[j] += d * d
		}
	}
	for j := range std {
		std[j] = math.Sqrt(std[j] / float64(rows))
		if std[j] == 0 {
			std[j] = 1
		}
	}

	apply := func(s Set) {
		n := s.Len()
		for i := 0; i < n; i++ {
			row := s.X.RawRowView(i)
			for j := range row {
				row[j] = (row[j] - mean[j]) / std[j]
			}
		}
	}
	apply(train)
	for _, s := range others {
		apply(s)
	}
}
