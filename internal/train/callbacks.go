package train

import (
	"encoding/csv"
	"fmt"
	"log"
	"os"
	"strconv"
)

// Metrics is the per-epoch measurement handed to callbacks.
type Metrics struct {
	TrainLoss    float64
	ValLoss      float64
	ValAcc       float64
	LearningRate float64
}

// Callback observes training progress. Callbacks must not mutate the
// network; the loop owns it.
type Callback interface {
	OnEpochEnd(epoch int, m Metrics)
}

// ConsoleLogger logs every Interval epochs.
type ConsoleLogger struct {
	Interval int
}

func (c ConsoleLogger) OnEpochEnd(epoch int, m Metrics) {
	if c.Interval > 0 && epoch%c.Interval == 0 {
		log.Printf("epoch %d: train loss %.6f, val loss %.6f, val acc %.4f, lr %.6g",
			epoch, m.TrainLoss, m.ValLoss, m.ValAcc, m.LearningRate)
	}
}

// CSVLogger writes the per-epoch metric sequences to a CSV file for
// external plotting.
type CSVLogger struct {
	file   *os.File
	writer *csv.Writer
}

// NewCSVLogger creates the file, truncating any previous content, and
// writes the header row.
func NewCSVLogger(filename string) (*CSVLogger, error) {
	file, err := os.Create(filename)
	if err != nil {
		return nil, fmt.Errorf("csv logger: %w", err)
	}
	writer := csv.NewWriter(file)
	if err := writer.Write([]string{"epoch", "train_loss", "val_loss", "val_acc"}); err != nil {
		file.Close()
		return nil, fmt.Errorf("csv logger: %w", err)
	}
	writer.Flush()
	return &CSVLogger{file: file, writer: writer}, nil
}

func (c *CSVLogger) OnEpochEnd(epoch int, m Metrics) {
	if c.writer == nil {
		return
	}
	record := []string{
		strconv.Itoa(epoch),
		fmt.Sprintf("%.6f", m.TrainLoss),
		fmt.Sprintf("%.6f", m.ValLoss),
		fmt.Sprintf("%.4f", m.ValAcc),
	}
	if err := c.writer.Write(record); err != nil {
		log.Printf("csv logger: failed to write record: %v", err)
	}
	c.writer.Flush()
}

// Close flushes and closes the underlying file.
func (c *CSVLogger) Close() error {
	if c.file == nil {
		return nil
	}
	c.writer.Flush()
	err := c.file.Close()
	c.file = nil
	c.writer = nil
	return err
}
