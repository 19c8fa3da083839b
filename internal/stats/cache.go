package stats

import "github.com/mcpherrinm/potwatch/internal/buffer"

// Record summarises one window of the source series.
type Record struct {
	Median    float64 `json:"median"`
	Deviation float64 `json:"deviation"`
	// Duration is the observed span of the window in seconds.
	Duration float64 `json:"duration"`
	Count    int     `json:"sample_count"`
}

// Cache holds precomputed Records for consecutive windows of a source series
// so that repeated readers do not rescan the source.
//
// At most one Record is produced per duration seconds of sample time, however
// often Update is called.
type Cache struct {
	source   *Series
	records  *buffer.RingBuffer[Record]
	duration float64

	windowStart float64
	started     bool
}

// NewCache creates a Cache keeping up to size Records of duration-second
// windows over source.
func NewCache(source *Series, size int, duration float64) *Cache {
	return &Cache{
		source:   source,
		records:  buffer.New[Record](size),
		duration: duration,
	}
}

// Update offers the latest source sample to the cache. It returns the new
// Record and true when a window closed and its statistics could be computed.
// A window whose statistics are unavailable is skipped, not retried.
func (c *Cache) Update() (buffer.Entry[Record], bool) {
	latest, ok := c.source.Latest()
	if !ok {
		return buffer.Entry[Record]{}, false
	}

	if !c.started {
		c.windowStart = latest.TS
		c.started = true
		return buffer.Entry[Record]{}, false
	}
	if latest.TS-c.windowStart <= c.duration {
		return buffer.Entry[Record]{}, false
	}
	c.windowStart = latest.TS

	med, err := Median(c.source, 0, c.duration)
	if err != nil {
		return buffer.Entry[Record]{}, false
	}
	dev, err := Deviation(c.source, 0, c.duration, med.Value)
	if err != nil {
		return buffer.Entry[Record]{}, false
	}

	rec := Record{
		Median:    med.Value,
		Deviation: dev.Value,
		Duration:  dev.Duration,
		Count:     dev.Count,
	}
	c.records.Put(latest.TS, rec)
	return buffer.Entry[Record]{TS: latest.TS, Value: rec}, true
}

// Latest returns the most recent Record.
func (c *Cache) Latest() (buffer.Entry[Record], bool) {
	return c.records.Latest()
}

// Get returns the Record offset positions before the most recent one.
func (c *Cache) Get(offset int) (buffer.Entry[Record], error) {
	return c.records.Get(offset)
}

// Records returns the retained Records, oldest first.
func (c *Cache) Records() []buffer.Entry[Record] {
	return c.records.Entries()
}

// Duration returns the configured window length in seconds.
func (c *Cache) Duration() float64 {
	return c.duration
}
