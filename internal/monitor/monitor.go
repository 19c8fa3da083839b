// Package monitor drives the per-sample pipeline: store the sample, refresh
// the statistics cache, detect events and hand them to a Notifier.
//
// A Monitor is not safe for concurrent use. All calls are expected to come
// from the single goroutine that receives samples.
package monitor

import (
	"context"
	"math"

	"github.com/sirupsen/logrus"

	"github.com/mcpherrinm/potwatch/internal/buffer"
	"github.com/mcpherrinm/potwatch/internal/events"
	"github.com/mcpherrinm/potwatch/internal/stats"
)

// Notifier delivers fired events and periodic weight readings.
type Notifier interface {
	Event(ctx context.Context, e events.Event) error
	Weight(ctx context.Context, ts, grams float64) error
}

// Config sizes the buffers and tunes detection.
type Config struct {
	BufferSize   int
	EventLogSize int
	StatsSize    int
	// StatsDuration is the window length in seconds of each stats record.
	StatsDuration float64

	Thresholds events.Thresholds

	// WeightInterval is the sample time in seconds between weight reports,
	// each the median over WeightWindow seconds. Zero disables reports.
	WeightInterval float64
	WeightWindow   float64
}

// DefaultConfig returns the settings used on the scale.
func DefaultConfig() Config {
	return Config{
		BufferSize:     1000,
		EventLogSize:   5,
		StatsSize:      100,
		StatsDuration:  1,
		Thresholds:     events.DefaultThresholds(),
		WeightInterval: 30,
		WeightWindow:   2,
	}
}

// Snapshot is a read-only view of the current state for displays.
type Snapshot struct {
	Latest     buffer.Entry[float64]
	HaveLatest bool

	Reading     events.Reading
	HaveReading bool

	Stats     buffer.Entry[stats.Record]
	HaveStats bool

	LastNew     float64
	HaveLastNew bool
}

// Monitor owns the sample history, the stats cache and the event detector.
type Monitor struct {
	cfg      Config
	samples  *stats.Series
	cache    *stats.Cache
	detector *events.Detector
	notifier Notifier
	log      logrus.FieldLogger
	metrics  *Metrics

	weightStart   float64
	weightStarted bool
	quiet         bool
}

// New creates a Monitor. A nil notifier drops deliveries, a nil log uses the
// logrus standard logger and nil metrics are created unregistered.
func New(cfg Config, notifier Notifier, log logrus.FieldLogger, metrics *Metrics) *Monitor {
	if metrics == nil {
		metrics = NewMetrics(nil)
	}
	if log == nil {
		log = logrus.StandardLogger()
	}
	samples := buffer.New[float64](cfg.BufferSize)
	return &Monitor{
		cfg:      cfg,
		samples:  samples,
		cache:    stats.NewCache(samples, cfg.StatsSize, cfg.StatsDuration),
		detector: events.NewDetector(samples, cfg.EventLogSize, cfg.Thresholds),
		notifier: notifier,
		log:      log,
		metrics:  metrics,
	}
}

// Process runs one sample through the pipeline and returns the event it
// fired, if any. Statistics that cannot yet be computed are not errors; the
// next sample simply tries again.
func (m *Monitor) Process(ctx context.Context, ts, value float64) (events.Event, bool) {
	m.samples.Put(ts, value)
	m.metrics.samples.Inc()
	m.metrics.rawWeight.Set(value)
	m.log.WithFields(logrus.Fields{"ts": ts, "value": value}).Trace("sample")

	if rec, ok := m.cache.Update(); ok {
		m.metrics.records.Inc()
		m.metrics.median.Set(rec.Value.Median)
		m.metrics.deviation.Set(rec.Value.Deviation)
		m.metrics.windowSamples.Set(float64(rec.Value.Count))
		m.log.WithFields(logrus.Fields{
			"ts":        rec.TS,
			"median":    rec.Value.Median,
			"deviation": rec.Value.Deviation,
			"duration":  rec.Value.Duration,
			"samples":   rec.Value.Count,
		}).Debug("stats record")
	}

	e, fired := m.detector.Evaluate(ts, value)
	if fired {
		m.metrics.events.WithLabelValues(e.Kind.String()).Inc()
		m.log.WithFields(logrus.Fields{"ts": e.TS, "kind": e.Kind.String(), "weight": e.Value}).Info("event detected")
		if !m.quiet && m.notifier != nil {
			if err := m.notifier.Event(ctx, e); err != nil {
				m.metrics.notifyErrors.Inc()
				m.log.WithError(err).WithField("kind", e.Kind.String()).Warn("event delivery failed")
			}
		}
	}

	m.reportWeight(ctx, ts)
	return e, fired
}

func (m *Monitor) reportWeight(ctx context.Context, ts float64) {
	if m.cfg.WeightInterval <= 0 {
		return
	}
	if !m.weightStarted {
		m.weightStart = ts
		m.weightStarted = true
	}
	if ts-m.weightStart <= m.cfg.WeightInterval {
		return
	}

	res, err := stats.Median(m.samples, 0, m.cfg.WeightWindow)
	if err != nil {
		m.log.WithError(err).WithField("ts", ts).Debug("weight report deferred")
		return
	}
	m.weightStart = ts
	if m.quiet || m.notifier == nil {
		return
	}

	grams := math.Floor(res.Value + 0.5)
	m.metrics.weightReports.Inc()
	m.log.WithFields(logrus.Fields{"ts": ts, "grams": grams}).Debug("weight report")
	if err := m.notifier.Weight(ctx, ts, grams); err != nil {
		m.metrics.notifyErrors.Inc()
		m.log.WithError(err).Warn("weight delivery failed")
	}
}

// Restore replays saved samples, oldest first, rebuilding the stats cache
// and event log exactly as live operation would. Nothing is delivered to
// the notifier. It returns the events the replay fired.
func (m *Monitor) Restore(ctx context.Context, entries []buffer.Entry[float64]) []events.Event {
	m.quiet = true
	defer func() { m.quiet = false }()

	var fired []events.Event
	for _, e := range entries {
		if ev, ok := m.Process(ctx, e.TS, e.Value); ok {
			fired = append(fired, ev)
		}
	}
	m.log.WithFields(logrus.Fields{"samples": len(entries), "events": len(fired)}).Info("history restored")
	return fired
}

// Snapshot returns the current display state.
func (m *Monitor) Snapshot() Snapshot {
	var s Snapshot
	s.Latest, s.HaveLatest = m.samples.Latest()
	if r, err := m.detector.Reading(); err == nil {
		s.Reading, s.HaveReading = r, true
	}
	s.Stats, s.HaveStats = m.cache.Latest()
	s.LastNew, s.HaveLastNew = m.detector.Last(events.KindNew)
	return s
}

// Samples returns the sample history.
func (m *Monitor) Samples() *stats.Series {
	return m.samples
}

// Records returns the retained stats records, oldest first.
func (m *Monitor) Records() []buffer.Entry[stats.Record] {
	return m.cache.Records()
}

// Events returns the event log, oldest first.
func (m *Monitor) Events() []buffer.Entry[events.Kind] {
	return m.detector.Log()
}

// Thresholds returns the detection thresholds in use.
func (m *Monitor) Thresholds() events.Thresholds {
	return m.cfg.Thresholds
}
