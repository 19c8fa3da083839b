// Package events recognises pot events from the windowed statistics of the
// weight history.
package events

import (
	"fmt"
	"math"

	"github.com/mcpherrinm/potwatch/internal/buffer"
	"github.com/mcpherrinm/potwatch/internal/stats"
)

// Kind identifies a detected event.
type Kind int

const (
	// KindNew is a full pot placed where there was none.
	KindNew Kind = iota + 1
	// KindRemoved is the pot being taken off the scale.
	KindRemoved
)

func (k Kind) String() string {
	switch k {
	case KindNew:
		return "NEW"
	case KindRemoved:
		return "REMOVED"
	default:
		return fmt.Sprintf("Kind(%d)", int(k))
	}
}

// Code returns the event code used in outbound feed messages.
func (k Kind) Code() string {
	switch k {
	case KindNew:
		return "COFFEE_NEW"
	case KindRemoved:
		return "COFFEE_REMOVED"
	default:
		return "COFFEE_UNKNOWN"
	}
}

// Event is a fired event. Value is the raw sample that triggered it.
type Event struct {
	TS    float64 `json:"ts"`
	Kind  Kind    `json:"kind"`
	Value float64 `json:"value"`
}

// Thresholds configures the window predicates. Weights are in grams and
// windows in seconds.
type Thresholds struct {
	FullWeight    float64
	FullTolerance float64
	FullWindow    float64

	RemovedTolerance float64
	RemovedWindow    float64

	StableDeviation float64
	StableWindow    float64

	// Debounce is the minimum gap between two events of the same kind.
	Debounce float64
}

// DefaultThresholds returns the calibration for a standard 3.4kg full pot.
func DefaultThresholds() Thresholds {
	return Thresholds{
		FullWeight:       3400,
		FullTolerance:    400,
		FullWindow:       1,
		RemovedTolerance: 100,
		RemovedWindow:    3,
		StableDeviation:  30,
		StableWindow:     1,
		Debounce:         600,
	}
}

// Reading is the current settled weight as seen by a display.
type Reading struct {
	Median    float64
	Deviation float64
	Stable    bool
}

// Detector evaluates event patterns over a sample history. Apart from its
// bounded event log it keeps no state between evaluations.
type Detector struct {
	samples *stats.Series
	log     *buffer.RingBuffer[Kind]
	th      Thresholds
}

// NewDetector creates a Detector over samples remembering the last logSize
// events.
func NewDetector(samples *stats.Series, logSize int, th Thresholds) *Detector {
	return &Detector{
		samples: samples,
		log:     buffer.New[Kind](logSize),
		th:      th,
	}
}

// Full reports whether the window ending at offset holds a full pot, and
// the offset of the window before it.
func (d *Detector) Full(offset int) (bool, int, error) {
	res, err := stats.Median(d.samples, offset, d.th.FullWindow)
	if err != nil {
		return false, 0, err
	}
	return math.Abs(res.Value-d.th.FullWeight) < d.th.FullTolerance, res.NextOffset, nil
}

// Removed reports whether the window ending at offset shows an empty scale,
// and the offset of the window before it.
func (d *Detector) Removed(offset int) (bool, int, error) {
	res, err := stats.Median(d.samples, offset, d.th.RemovedWindow)
	if err != nil {
		return false, 0, err
	}
	return math.Abs(res.Value) < d.th.RemovedTolerance, res.NextOffset, nil
}

// Reading returns the latest median weight and whether it has settled.
func (d *Detector) Reading() (Reading, error) {
	med, err := stats.Median(d.samples, 0, d.th.StableWindow)
	if err != nil {
		return Reading{}, err
	}
	r := Reading{Median: med.Value}
	dev, err := stats.Deviation(d.samples, 0, d.th.StableWindow, med.Value)
	if err != nil {
		return r, nil
	}
	r.Deviation = dev.Value
	r.Stable = dev.Value < d.th.StableDeviation
	return r, nil
}

// Evaluate checks the event patterns in priority order against the current
// history. The first pattern that matches and is not debounced fires; the
// event is appended to the log and returned.
func (d *Detector) Evaluate(ts, value float64) (Event, bool) {
	tests := []struct {
		kind Kind
		test func() bool
	}{
		{KindNew, d.newPot},
		{KindRemoved, d.removedPot},
	}

	for _, tc := range tests {
		if !tc.test() || d.debounced(tc.kind, ts) {
			continue
		}
		d.log.Put(ts, tc.kind)
		return Event{TS: ts, Kind: tc.kind, Value: value}, true
	}
	return Event{}, false
}

// newPot matches a full window directly after a removed one.
func (d *Detector) newPot() bool {
	full, prev, err := d.Full(0)
	if err != nil || !full {
		return false
	}
	removed, _, err := d.Removed(prev)
	return err == nil && removed
}

// removedPot matches a removed window directly after one that was not.
// An unknown earlier window does not count as "not removed", so on a fresh
// or sparse buffer an empty scale fires nothing until the earlier window
// can be evaluated.
func (d *Detector) removedPot() bool {
	now, prev, err := d.Removed(0)
	if err != nil || !now {
		return false
	}
	before, _, err := d.Removed(prev)
	return err == nil && !before
}

// debounced reports whether an event of kind was logged within the debounce
// interval before ts.
func (d *Detector) debounced(kind Kind, ts float64) bool {
	last, ok := d.Last(kind)
	return ok && ts-last <= d.th.Debounce
}

// Last returns the timestamp of the most recent logged event of kind.
func (d *Detector) Last(kind Kind) (float64, bool) {
	for offset := 0; ; offset++ {
		e, err := d.log.Get(offset)
		if err != nil {
			return 0, false
		}
		if e.Value == kind {
			return e.TS, true
		}
	}
}

// Log returns the retained events, oldest first.
func (d *Detector) Log() []buffer.Entry[Kind] {
	return d.log.Entries()
}
