package train

import (
	"encoding/csv"
	"os"
	"path/filepath"
	"testing"
)

func TestCSVLogger(t *testing.T) {
	path := filepath.Join(t.TempDir(), "metrics.csv")

	logger, err := NewCSVLogger(path)
	if err != nil {
		t.Fatal(err)
	}
	logger.OnEpochEnd(0, Metrics{TrainLoss: 1.5, ValLoss: 1.6, ValAcc: 0.25})
	logger.OnEpochEnd(1, Metrics{TrainLoss: 1.2, ValLoss: 1.3, ValAcc: 0.5})
	if err := logger.Close(); err != nil {
		t.Fatal(err)
	}

	file, err := os.Open(path)
	if err != nil {
		t.Fatal(err)
	}
	defer file.Close()

	records, err := csv.NewReader(file).ReadAll()
	if err != nil {
		t.Fatal(err)
	}
	if len(records) != 3 {
		t.Fatalf("got %d rows, want header plus 2", len(records))
	}
	if got, want := records[0][0], "epoch"; got != want {
		t.Errorf("header starts with %q, want %q", got, want)
	}
	if records[1][0] != "0" || records[1][1] != "1.500000" || records[1][3] != "0.2500" {
		t.Errorf("unexpected first data row %v", records[1])
	}
	if records[2][0] != "1" || records[2][2] != "1.300000" {
		t.Errorf("unexpected second data row %v", records[2])
	}

	// Close is idempotent and later calls are ignored.
	if err := logger.Close(); err != nil {
		t.Error(err)
	}
	logger.OnEpochEnd(2, Metrics{})
}
