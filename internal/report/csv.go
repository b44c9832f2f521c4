package report

import (
	"context"
	"encoding/csv"
	"fmt"
	"os"
	"strconv"
	"time"
)

var csvHeader = []string{
	"Time", "Archive", "Mode", "Workers", "Status", "Password",
	"Attempts", "ElapsedSec", "PasswordsPerSecond", "Error",
}

// CSVFile appends one row per run. The header is written when the file is
// new or empty.
type CSVFile struct {
	Path string
}

func NewCSVFile(path string) *CSVFile {
	return &CSVFile{Path: path}
}

func (c *CSVFile) Close() error { return nil }

func (c *CSVFile) Record(_ context.Context, r Result) error {
	file, err := os.OpenFile(c.Path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o640)
	if err != nil {
		return fmt.Errorf("open report %s: %w", c.Path, err)
	}
	defer file.Close()

	info, err := file.Stat()
	if err != nil {
		return fmt.Errorf("stat report %s: %w", c.Path, err)
	}

	w := csv.NewWriter(file)
	if info.Size() == 0 {
		if err := w.Write(csvHeader); err != nil {
			return fmt.Errorf("write report header: %w", err)
		}
	}
	row := []string{
		r.At.Format(time.RFC3339),
		r.Archive,
		r.Mode,
		strconv.Itoa(r.Workers),
		r.Status,
		r.Password,
		strconv.FormatInt(r.Attempts, 10),
		fmt.Sprintf("%.4f", r.Elapsed.Seconds()),
		fmt.Sprintf("%.2f", r.Speed()),
		r.Error,
	}
	if err := w.Write(row); err != nil {
		return fmt.Errorf("write report row: %w", err)
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return fmt.Errorf("flush report: %w", err)
	}
	return file.Close()
}
