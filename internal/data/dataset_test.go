package data

import (
	"fmt"
	"math"
	"os"
	"path/filepath"
	"testing"

	"gonum.org/v1/gonum/mat"
)

func TestSetLenAndSlice(t *testing.T) {
	s := Set{
		X: mat.NewDense(4, 2, []float64{1, 2, 3, 4, 5, 6, 7, 8}),
		Y: []int{0, 1, 2, 3},
	}
	if s.Len() != 4 {
		t.Fatalf("Len = %d, want 4", s.Len())
	}
	if (Set{}).Len() != 0 {
		t.Error("empty set should have length 0")
	}

	mid := s.Slice(1, 3)
	if mid.Len() != 2 {
		t.Fatalf("slice Len = %d, want 2", mid.Len())
	}
	if got := mid.X.At(0, 0); got != 3 {
		t.Errorf("slice X[0,0] = %v, want 3", got)
	}
	if mid.Y[0] != 1 || mid.Y[1] != 2 {
		t.Errorf("slice Y = %v, want [1 2]", mid.Y)
	}

	// Slices are views; writes show through to the parent.
	mid.X.Set(0, 0, 99)
	if s.X.At(1, 0) != 99 {
		t.Error("slice did not share storage with the parent set")
	}
}

func TestSplitTrainVal(t *testing.T) {
	s := Set{
		X: mat.NewDense(5, 1, []float64{0, 1, 2, 3, 4}),
		Y: []int{0, 1, 2, 3, 4},
	}

	train, val, err := SplitTrainVal(s, 2)
	if err != nil {
		t.Fatal(err)
	}
	if val.Len() != 2 || train.Len() != 3 {
		t.Fatalf("split sizes = %d/%d, want 3/2", train.Len(), val.Len())
	}
	if val.X.At(0, 0) != 0 || val.Y[1] != 1 {
		t.Error("validation split should be the first rows")
	}
	if train.X.At(0, 0) != 2 || train.Y[0] != 2 {
		t.Error("training split should start after the validation rows")
	}

	for _, n := range []int{0, -1, 5, 6} {
		if _, _, err := SplitTrainVal(s, n); err == nil {
			t.Errorf("SplitTrainVal(n=%d) should be an error", n)
		}
	}
}

func TestNormalize(t *testing.T) {
	train := Set{
		X: mat.NewDense(4, 3, []float64{
			1, 10, 7,
			2, 20, 7,
			3, 30, 7,
			4, 40, 7, // third feature has zero variance
		}),
		Y: []int{0, 1, 0, 1},
	}
	val := Set{
		X: mat.NewDense(2, 3, []float64{2, 25, 7, 5, 15, 8}),
		Y: []int{0, 1},
	}

	Normalize(train, val)

	rows, cols := train.X.Dims()
	for j := 0; j < cols; j++ {
		var mean float64
		for i := 0; i < rows; i++ {
			mean += train.X.At(i, j)
		}
		mean /= float64(rows)
		if math.Abs(mean) > 1e-12 {
			t.Errorf("feature %d mean = %v after normalization, want 0", j, mean)
		}
	}
	for j := 0; j < 2; j++ { // skip the zero-variance feature
		var ss float64
		for i := 0; i < rows; i++ {
			ss += train.X.At(i, j) * train.X.At(i, j)
		}
		if std := math.Sqrt(ss / float64(rows)); math.Abs(std-1) > 1e-12 {
			t.Errorf("feature %d std = %v after normalization, want 1", j, std)
		}
	}

	// Zero-variance feature: centered, not scaled.
	for i := 0; i < rows; i++ {
		if got := train.X.At(i, 2); got != 0 {
			t.Errorf("constant feature row %d = %v, want 0", i, got)
		}
	}
	if got := val.X.At(1, 2); got != 1 {
		t.Errorf("constant feature applied to val = %v, want 1", got)
	}

	// Validation uses the training statistics: (2 - 2.5) / std([1..4]).
	wantStd := math.Sqrt(1.25)
	if got, want := val.X.At(0, 0), (2-2.5)/wantStd; math.Abs(got-want) > 1e-12 {
		t.Errorf("val[0,0] = %v, want %v", got, want)
	}
}

// writeBatch writes CIFAR-10 style records: one label byte then 3072
// pixel bytes per sample, with the pixel values derived from the label
// so the loader's row alignment is checkable.
func writeBatch(t *testing.T, path string, labels []byte) {
	t.Helper()
	buf := make([]byte, 0, len(labels)*(1+NumPixels))
	for _, label := range labels {
		buf = append(buf, label)
		for p := 0; p < NumPixels; p++ {
			buf = append(buf, label*10+byte(p%7))
		}
	}
	if err := os.WriteFile(path, buf, 0o644); err != nil {
		t.Fatal(err)
	}
}

func TestLoadCIFAR10(t *testing.T) {
	dir := t.TempDir()
	for i := 1; i <= 5; i++ {
		writeBatch(t, filepath.Join(dir, fmt.Sprintf("data_batch_%d.bin", i)), []byte{byte(i), byte(i + 1)})
	}
	writeBatch(t, filepath.Join(dir, "test_batch.bin"), []byte{9})

	train, test, err := LoadCIFAR10(dir)
	if err != nil {
		t.Fatal(err)
	}

	if train.Len() != 10 {
		t.Fatalf("train Len = %d, want 10", train.Len())
	}
	if test.Len() != 1 {
		t.Fatalf("test Len = %d, want 1", test.Len())
	}
	if _, cols := train.X.Dims(); cols != NumPixels {
		t.Fatalf("train has %d features, want %d", cols, NumPixels)
	}

	// First record of batch 1 has label 1 and pixels 10 + p%7.
	if train.Y[0] != 1 {
		t.Errorf("train.Y[0] = %d, want 1", train.Y[0])
	}
	if got := train.X.At(0, 8); got != float64(10+8%7) {
		t.Errorf("train.X[0,8] = %v, want %v", got, float64(10+8%7))
	}
	// Batches concatenate in order; batch 3's second record is row 5.
	if train.Y[5] != 4 {
		t.Errorf("train.Y[5] = %d, want 4", train.Y[5])
	}
	if test.Y[0] != 9 {
		t.Errorf("test.Y[0] = %d, want 9", test.Y[0])
	}
}

func TestLoadCIFAR10MissingFile(t *testing.T) {
	if _, _, err := LoadCIFAR10(t.TempDir()); err == nil {
		t.Error("loading an empty directory should be an error")
	}
}
