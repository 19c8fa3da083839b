// Package source reads weight samples from a line-oriented stream.
package source

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strconv"
	"time"

	"github.com/mcpherrinm/potwatch/internal/buffer"
)

// Reader yields ts,value samples from a stream such as a load-cell bridge's
// stdout or a recorded CSV file.
type Reader struct {
	cr       *csv.Reader
	realtime bool
	prevTS   float64
	started  bool
	skipped  int
}

// NewReader reads samples from r. With realtime set, Next waits between
// samples for the gap between their timestamps.
func NewReader(r io.Reader, realtime bool) *Reader {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	cr.TrimLeadingSpace = true
	cr.ReuseRecord = true
	return &Reader{cr: cr, realtime: realtime}
}

// Next returns the next sample. It returns io.EOF at the end of the stream
// and ctx.Err() if ctx is done while waiting. Malformed lines are skipped.
func (r *Reader) Next(ctx context.Context) (buffer.Entry[float64], error) {
	for {
		rec, err := r.cr.Read()
		if errors.Is(err, io.EOF) {
			return buffer.Entry[float64]{}, io.EOF
		}
		var perr *csv.ParseError
		if errors.As(err, &perr) {
			r.skipped++
			continue
		}
		if err != nil {
			return buffer.Entry[float64]{}, fmt.Errorf("read sample: %w", err)
		}

		e, ok := parse(rec)
		if !ok {
			r.skipped++
			continue
		}
		if err := r.pace(ctx, e.TS); err != nil {
			return buffer.Entry[float64]{}, err
		}
		return e, nil
	}
}

// Skipped returns the number of malformed lines skipped so far.
func (r *Reader) Skipped() int {
	return r.skipped
}

func (r *Reader) pace(ctx context.Context, ts float64) error {
	defer func() {
		r.prevTS = ts
		r.started = true
	}()
	if !r.realtime || !r.started || ts <= r.prevTS {
		return ctx.Err()
	}

	t := time.NewTimer(time.Duration((ts - r.prevTS) * float64(time.Second)))
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

func parse(rec []string) (buffer.Entry[float64], bool) {
	if len(rec) != 2 {
		return buffer.Entry[float64]{}, false
	}
	ts, err := strconv.ParseFloat(rec[0], 64)
	if err != nil {
		return buffer.Entry[float64]{}, false
	}
	value, err := strconv.ParseFloat(rec[1], 64)
	if err != nil {
		return buffer.Entry[float64]{}, false
	}
	return buffer.Entry[float64]{TS: ts, Value: value}, true
}
