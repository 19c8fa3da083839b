// Package notify delivers events and weight readings to external consumers.
package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/mcpherrinm/potwatch/internal/events"
)

const (
	msgTypeEvent  = "coffee_pot_event"
	msgTypeWeight = "coffee_pot_weight"
)

// HTTPConfig configures an HTTP feed target.
type HTTPConfig struct {
	URL         string
	HeaderKey   string
	HeaderValue string
	SensorID    string
	SensorType  string
	Version     string
	Timeout     time.Duration
}

// HTTP posts JSON feed messages to a single endpoint.
type HTTP struct {
	cfg    HTTPConfig
	client *http.Client
}

type feedMessage struct {
	MsgType     string       `json:"msg_type"`
	RequestData []feedRecord `json:"request_data"`
}

type feedRecord struct {
	ID        string  `json:"acp_id"`
	Type      string  `json:"acp_type"`
	TS        float64 `json:"acp_ts"`
	Version   string  `json:"version"`
	Units     string  `json:"acp_units,omitempty"`
	EventCode string  `json:"event_code,omitempty"`
	Weight    float64 `json:"weight"`
}

// NewHTTP creates an HTTP notifier. A zero Timeout defaults to 10 seconds.
func NewHTTP(cfg HTTPConfig) *HTTP {
	if cfg.Timeout == 0 {
		cfg.Timeout = 10 * time.Second
	}
	return &HTTP{
		cfg:    cfg,
		client: &http.Client{Timeout: cfg.Timeout},
	}
}

// Event posts a coffee_pot_event message.
func (h *HTTP) Event(ctx context.Context, e events.Event) error {
	rec := h.record(e.TS)
	rec.EventCode = e.Kind.Code()
	rec.Weight = e.Value
	return h.post(ctx, msgTypeEvent, rec)
}

// Weight posts a coffee_pot_weight message.
func (h *HTTP) Weight(ctx context.Context, ts, grams float64) error {
	rec := h.record(ts)
	rec.Units = "GRAMS"
	rec.Weight = grams
	return h.post(ctx, msgTypeWeight, rec)
}

func (h *HTTP) record(ts float64) feedRecord {
	return feedRecord{
		ID:      h.cfg.SensorID,
		Type:    h.cfg.SensorType,
		TS:      ts,
		Version: h.cfg.Version,
	}
}

func (h *HTTP) post(ctx context.Context, msgType string, rec feedRecord) error {
	body, err := json.Marshal(feedMessage{MsgType: msgType, RequestData: []feedRecord{rec}})
	if err != nil {
		return fmt.Errorf("marshal %s: %w", msgType, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, h.cfg.URL, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if h.cfg.HeaderKey != "" {
		req.Header.Set(h.cfg.HeaderKey, h.cfg.HeaderValue)
	}

	resp, err := h.client.Do(req)
	if err != nil {
		return fmt.Errorf("post %s: %w", msgType, err)
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body)

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return fmt.Errorf("post %s: unexpected status %s", msgType, resp.Status)
	}
	return nil
}
