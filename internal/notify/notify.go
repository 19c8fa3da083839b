package notify

import (
	"context"
	"errors"

	"github.com/sirupsen/logrus"

	"github.com/mcpherrinm/potwatch/internal/events"
	"github.com/mcpherrinm/potwatch/internal/monitor"
)

// Multi fans deliveries out to every notifier, joining their errors.
type Multi []monitor.Notifier

func (m Multi) Event(ctx context.Context, e events.Event) error {
	var errs []error
	for _, n := range m {
		if err := n.Event(ctx, e); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func (m Multi) Weight(ctx context.Context, ts, grams float64) error {
	var errs []error
	for _, n := range m {
		if err := n.Weight(ctx, ts, grams); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Log writes deliveries to a logger instead of sending them anywhere.
type Log struct {
	Logger logrus.FieldLogger
}

func (l Log) Event(_ context.Context, e events.Event) error {
	l.Logger.WithFields(logrus.Fields{
		"ts":     e.TS,
		"event":  e.Kind.Code(),
		"weight": e.Value,
	}).Info("event")
	return nil
}

func (l Log) Weight(_ context.Context, ts, grams float64) error {
	l.Logger.WithFields(logrus.Fields{"ts": ts, "grams": grams}).Info("weight")
	return nil
}
