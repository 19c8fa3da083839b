// Package stats computes backward-looking, duration-bounded statistics over a
// sample history.
//
// Every query starts at an index offset (0 = latest sample) and walks towards
// older samples, collecting those whose timestamp is no earlier than the
// starting sample's timestamp minus the requested duration. The first sample
// older than that bound ends the walk and its offset is reported as
// Result.NextOffset, so a second query can pick up exactly where the first
// one stopped.
package stats

import (
	"errors"
	"math"
	"sort"

	"gonum.org/v1/gonum/stat"

	"github.com/mcpherrinm/potwatch/internal/buffer"
)

// MinMedianSamples is the fewest samples a median window will accept.
const MinMedianSamples = 3

var (
	// ErrUnavailable is returned when a walk runs off the end of the stored
	// history (capacity exhausted or an unwritten slot) before reaching the
	// window bound.
	ErrUnavailable = errors.New("stats: window unavailable")

	// ErrInsufficientSamples is returned by Median when the window holds
	// fewer than MinMedianSamples samples.
	ErrInsufficientSamples = errors.New("stats: insufficient samples")
)

// Series is the sample history queried by this package.
type Series = buffer.RingBuffer[float64]

// Result is the outcome of a successful window query.
type Result struct {
	Value float64
	// NextOffset is the offset of the first sample older than the window.
	NextOffset int
	// Duration is the observed span between newest and oldest sample used,
	// which may be shorter than requested.
	Duration float64
	Count    int
}

// TimeToOffset returns the offset of the newest sample whose timestamp is at
// or before latest.TS - timeOffset.
func TimeToOffset(s *Series, timeOffset float64) (int, error) {
	latest, err := s.Get(0)
	if err != nil {
		return 0, ErrUnavailable
	}
	limit := latest.TS - timeOffset

	offset := 0
	sample := latest
	for sample.TS > limit {
		offset++
		if offset >= s.Cap() {
			return 0, ErrUnavailable
		}
		if sample, err = s.Get(offset); err != nil {
			return 0, ErrUnavailable
		}
	}
	return offset, nil
}

// collect walks the window starting at offset. When truncate is set, running
// out of history ends the window instead of failing the query.
func collect(s *Series, offset int, duration float64, truncate bool) ([]float64, Result, error) {
	first, err := s.Get(offset)
	if err != nil {
		return nil, Result{}, err
	}

	values := []float64{first.Value}
	limit := first.TS - duration
	oldest := first.TS
	next := offset
	for {
		next++
		e, err := s.Get(next)
		if err != nil {
			if truncate {
				break
			}
			return nil, Result{}, ErrUnavailable
		}
		if e.TS < limit {
			break
		}
		values = append(values, e.Value)
		oldest = e.TS
	}

	return values, Result{
		NextOffset: next,
		Duration:   first.TS - oldest,
		Count:      len(values),
	}, nil
}

// Mean returns the arithmetic mean of the window of duration seconds ending
// at offset.
func Mean(s *Series, offset int, duration float64) (Result, error) {
	values, res, err := collect(s, offset, duration, false)
	if err != nil {
		return Result{}, err
	}
	res.Value = stat.Mean(values, nil)
	return res, nil
}

// Median returns the median of the window of duration seconds ending at
// offset. A window that reaches the start of the recorded history is cut
// short there rather than failing; the MinMedianSamples floor still applies.
func Median(s *Series, offset int, duration float64) (Result, error) {
	values, res, err := collect(s, offset, duration, true)
	if err != nil {
		return Result{}, err
	}
	if len(values) < MinMedianSamples {
		return Result{}, ErrInsufficientSamples
	}
	res.Value = median(values)
	return res, nil
}

// Deviation returns the population standard deviation of the window around
// center, which is usually a mean or median the caller already computed.
func Deviation(s *Series, offset int, duration, center float64) (Result, error) {
	values, res, err := collect(s, offset, duration, false)
	if err != nil {
		return Result{}, err
	}
	res.Value = math.Sqrt(stat.MomentAbout(2, values, center, nil))
	return res, nil
}

// MeanAt is Mean with the window ending timeOffset seconds before the latest
// sample.
func MeanAt(s *Series, timeOffset, duration float64) (Result, error) {
	offset, err := TimeToOffset(s, timeOffset)
	if err != nil {
		return Result{}, err
	}
	return Mean(s, offset, duration)
}

// MedianAt is Median with the window ending timeOffset seconds before the
// latest sample.
func MedianAt(s *Series, timeOffset, duration float64) (Result, error) {
	offset, err := TimeToOffset(s, timeOffset)
	if err != nil {
		return Result{}, err
	}
	return Median(s, offset, duration)
}

// DeviationAt is Deviation with the window ending timeOffset seconds before
// the latest sample.
func DeviationAt(s *Series, timeOffset, duration, center float64) (Result, error) {
	offset, err := TimeToOffset(s, timeOffset)
	if err != nil {
		return Result{}, err
	}
	return Deviation(s, offset, duration, center)
}

func median(values []float64) float64 {
	sorted := make([]float64, len(values))
	copy(sorted, values)
	sort.Float64s(sorted)

	mid := len(sorted) / 2
	if len(sorted)%2 == 1 {
		return sorted[mid]
	}
	return (sorted[mid-1] + sorted[mid]) / 2
}
