package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/mcpherrinm/potwatch/internal/events"
)

const (
	keyEventLatest  = "potwatch:event:latest"
	keyEventRecent  = "potwatch:events"
	keyWeightLatest = "potwatch:weight:latest"
	keyWeightRecent = "potwatch:weights"

	recentLimit = 1000
	latestTTL   = 24 * time.Hour
)

// EventRecord is the stored form of a delivered event.
type EventRecord struct {
	SensorID string  `json:"acp_id"`
	TS       float64 `json:"acp_ts"`
	Code     string  `json:"event_code"`
	Weight   float64 `json:"weight"`
}

// WeightRecord is the stored form of a weight report.
type WeightRecord struct {
	SensorID string  `json:"acp_id"`
	TS       float64 `json:"acp_ts"`
	Grams    float64 `json:"weight"`
}

// RedisSink keeps the latest and most recent events and weight reports in
// Redis.
type RedisSink struct {
	client   *redis.Client
	sensorID string
}

// NewRedisSink connects lazily to the Redis server at addr.
func NewRedisSink(addr, password string, db int, sensorID string) *RedisSink {
	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})
	return &RedisSink{client: client, sensorID: sensorID}
}

// Check pings the server.
func (s *RedisSink) Check(ctx context.Context) error {
	return s.client.Ping(ctx).Err()
}

// Close releases the connection pool.
func (s *RedisSink) Close() error {
	return s.client.Close()
}

// Event stores e as the latest event and prepends it to the recent list.
func (s *RedisSink) Event(ctx context.Context, e events.Event) error {
	return s.save(ctx, keyEventLatest, keyEventRecent, EventRecord{
		SensorID: s.sensorID,
		TS:       e.TS,
		Code:     e.Kind.Code(),
		Weight:   e.Value,
	})
}

// Weight stores a weight report as the latest and prepends it to the recent
// list.
func (s *RedisSink) Weight(ctx context.Context, ts, grams float64) error {
	return s.save(ctx, keyWeightLatest, keyWeightRecent, WeightRecord{
		SensorID: s.sensorID,
		TS:       ts,
		Grams:    grams,
	})
}

func (s *RedisSink) save(ctx context.Context, latestKey, recentKey string, v any) error {
	payload, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("marshal record: %w", err)
	}

	pipe := s.client.Pipeline()
	pipe.Set(ctx, latestKey, payload, latestTTL)
	pipe.LPush(ctx, recentKey, payload)
	pipe.LTrim(ctx, recentKey, 0, recentLimit-1)

	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("redis exec: %w", err)
	}
	return nil
}

// LatestEvent returns the most recently stored event, or nil if there is
// none.
func (s *RedisSink) LatestEvent(ctx context.Context) (*EventRecord, error) {
	data, err := s.client.Get(ctx, keyEventLatest).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, nil
		}
		return nil, fmt.Errorf("redis get: %w", err)
	}

	var rec EventRecord
	if err := json.Unmarshal(data, &rec); err != nil {
		return nil, fmt.Errorf("unmarshal event: %w", err)
	}
	return &rec, nil
}

// RecentEvents returns up to n stored events, newest first.
func (s *RedisSink) RecentEvents(ctx context.Context, n int64) ([]EventRecord, error) {
	raw, err := s.client.LRange(ctx, keyEventRecent, 0, n-1).Result()
	if err != nil {
		return nil, fmt.Errorf("redis lrange: %w", err)
	}

	out := make([]EventRecord, 0, len(raw))
	for _, r := range raw {
		var rec EventRecord
		if err := json.Unmarshal([]byte(r), &rec); err != nil {
			return nil, fmt.Errorf("unmarshal event: %w", err)
		}
		out = append(out, rec)
	}
	return out, nil
}
