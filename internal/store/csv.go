// Package store persists sample history and delivered readings.
package store

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"

	"github.com/mcpherrinm/potwatch/internal/buffer"
)

// LoadCSV reads ts,value records, oldest first. Lines that do not hold
// exactly two fields are skipped.
func LoadCSV(r io.Reader) ([]buffer.Entry[float64], error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	cr.TrimLeadingSpace = true

	var out []buffer.Entry[float64]
	for {
		rec, err := cr.Read()
		if errors.Is(err, io.EOF) {
			return out, nil
		}
		if err != nil {
			return out, fmt.Errorf("read csv: %w", err)
		}
		if len(rec) != 2 {
			continue
		}

		line, _ := cr.FieldPos(0)
		ts, err := strconv.ParseFloat(rec[0], 64)
		if err != nil {
			return out, fmt.Errorf("line %d: timestamp: %w", line, err)
		}
		value, err := strconv.ParseFloat(rec[1], 64)
		if err != nil {
			return out, fmt.Errorf("line %d: value: %w", line, err)
		}
		out = append(out, buffer.Entry[float64]{TS: ts, Value: value})
	}
}

// LoadCSVFile is LoadCSV on the named file.
func LoadCSVFile(path string) ([]buffer.Entry[float64], error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return LoadCSV(f)
}

// SaveCSV writes entries as ts,value records in the order given.
func SaveCSV(w io.Writer, entries []buffer.Entry[float64]) error {
	cw := csv.NewWriter(w)
	for _, e := range entries {
		rec := []string{
			strconv.FormatFloat(e.TS, 'f', -1, 64),
			strconv.FormatFloat(e.Value, 'f', -1, 64),
		}
		if err := cw.Write(rec); err != nil {
			return fmt.Errorf("write csv: %w", err)
		}
	}
	cw.Flush()
	return cw.Error()
}

// SaveCSVFile writes the live contents of b, oldest first, to the named file.
func SaveCSVFile(path string, b *buffer.RingBuffer[float64]) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := SaveCSV(f, b.Entries()); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}
