package stats

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mcpherrinm/potwatch/internal/buffer"
)

// linear returns a series of the given capacity holding samples (i, i) for
// i in [0, n).
func linear(capacity, n int) *Series {
	s := buffer.New[float64](capacity)
	for i := 0; i < n; i++ {
		s.Put(float64(i), float64(i))
	}
	return s
}

func TestTimeToOffset(t *testing.T) {
	tests := []struct {
		name       string
		series     *Series
		timeOffset float64
		want       int
		wantErr    error
	}{
		{"latest", linear(20, 10), 0, 0, nil},
		{"between_samples", linear(20, 10), 2.5, 3, nil},
		{"exact_sample", linear(20, 10), 3, 3, nil},
		{"runs_into_empty_slot", linear(20, 10), 20, 0, ErrUnavailable},
		{"exhausts_capacity", linear(5, 10), 10, 0, ErrUnavailable},
		{"empty_series", linear(5, 0), 0, 0, ErrUnavailable},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got, err := TimeToOffset(tc.series, tc.timeOffset)
			if tc.wantErr != nil {
				require.ErrorIs(t, err, tc.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tc.want, got)
		})
	}
}

func TestMean(t *testing.T) {
	s := linear(20, 10)

	res, err := Mean(s, 0, 3)
	require.NoError(t, err)
	assert.InDelta(t, 7.5, res.Value, 1e-9)
	assert.Equal(t, 4, res.NextOffset)
	assert.InDelta(t, 3, res.Duration, 1e-9)
	assert.Equal(t, 4, res.Count)

	// chaining from NextOffset covers the window immediately before
	prev, err := Mean(s, res.NextOffset, 1)
	require.NoError(t, err)
	assert.InDelta(t, 4.5, prev.Value, 1e-9)
	assert.Equal(t, 6, prev.NextOffset)
	assert.Equal(t, 2, prev.Count)
}

func TestMean_Failures(t *testing.T) {
	s := linear(20, 10)

	_, err := Mean(s, 0, 100)
	assert.ErrorIs(t, err, ErrUnavailable, "window reaching unwritten slots")

	_, err = Mean(s, 20, 1)
	assert.ErrorIs(t, err, buffer.ErrNoData, "offset beyond capacity")

	_, err = Mean(linear(5, 10), 0, 100)
	assert.ErrorIs(t, err, ErrUnavailable, "window exhausting capacity")
}

func TestMedian_Floor(t *testing.T) {
	s := buffer.New[float64](10)
	s.Put(0, 1)
	s.Put(1, 2)

	for _, d := range []float64{0, 0.5, 1, 2, 100} {
		_, err := Median(s, 0, d)
		assert.ErrorIs(t, err, ErrInsufficientSamples, "duration %v", d)
	}
}

func TestMedian(t *testing.T) {
	tests := []struct {
		name      string
		values    []float64
		duration  float64
		want      float64
		wantCount int
	}{
		{"odd_count", []float64{5, 1, 3}, 100, 3, 3},
		{"even_count", []float64{1, 10, 2, 3}, 100, 2.5, 4},
		{"outlier_rejected", []float64{0, 0, 3400, 0, 0}, 100, 0, 5},
		{"window_bound", []float64{9, 9, 9, 1, 2, 3}, 2, 2, 3},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			s := buffer.New[float64](20)
			for i, v := range tc.values {
				s.Put(float64(i), v)
			}

			res, err := Median(s, 0, tc.duration)
			require.NoError(t, err)
			assert.InDelta(t, tc.want, res.Value, 1e-9)
			assert.Equal(t, tc.wantCount, res.Count)
		})
	}
}

func TestMedian_TruncatesAtStartOfHistory(t *testing.T) {
	s := linear(20, 3)

	res, err := Median(s, 0, 100)
	require.NoError(t, err)
	assert.InDelta(t, 1, res.Value, 1e-9)
	assert.Equal(t, 3, res.NextOffset)
	assert.InDelta(t, 2, res.Duration, 1e-9)

	// nothing lies before the truncated window
	_, err = Median(s, res.NextOffset, 1)
	assert.ErrorIs(t, err, buffer.ErrNoData)
}

func TestDeviation_ConstantSeries(t *testing.T) {
	tests := []struct {
		name     string
		capacity int
		n        int
		duration float64
	}{
		{"partial_buffer", 10, 6, 3},
		{"wrapped_buffer", 4, 10, 2},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			s := buffer.New[float64](tc.capacity)
			for i := 0; i < tc.n; i++ {
				s.Put(float64(i), 7)
			}

			res, err := Deviation(s, 0, tc.duration, 7)
			require.NoError(t, err)
			assert.Equal(t, 0.0, res.Value)
		})
	}
}

func TestDeviation(t *testing.T) {
	s := buffer.New[float64](20)
	s.Put(-1, 100)
	for i, v := range []float64{2, 4, 4, 4, 5, 5, 7, 9} {
		s.Put(float64(i), v)
	}

	res, err := Deviation(s, 0, 7, 5)
	require.NoError(t, err)
	assert.InDelta(t, 2, res.Value, 1e-9)
	assert.Equal(t, 8, res.Count)
	assert.Equal(t, 8, res.NextOffset)
	assert.InDelta(t, 7, res.Duration, 1e-9)
}

func TestDeviation_SingleSample(t *testing.T) {
	s := buffer.New[float64](10)
	s.Put(0, 1)
	s.Put(10, 4)

	res, err := Deviation(s, 0, 1, 1)
	require.NoError(t, err)
	assert.InDelta(t, 3, res.Value, 1e-9)
	assert.Equal(t, 1, res.Count)
	assert.Equal(t, 0.0, res.Duration)
}

func TestDeviation_Unavailable(t *testing.T) {
	s := linear(20, 3)

	_, err := Deviation(s, 0, 100, 1)
	assert.ErrorIs(t, err, ErrUnavailable)
}

func TestTimeOffsetQueries(t *testing.T) {
	s := linear(20, 10)

	med, err := MedianAt(s, 3, 2)
	require.NoError(t, err)
	assert.InDelta(t, 5, med.Value, 1e-9)
	assert.Equal(t, 6, med.NextOffset)

	mean, err := MeanAt(s, 3, 2)
	require.NoError(t, err)
	assert.InDelta(t, 5, mean.Value, 1e-9)

	dev, err := DeviationAt(s, 3, 2, 5)
	require.NoError(t, err)
	assert.InDelta(t, 0.816496580927726, dev.Value, 1e-9)

	_, err = MedianAt(s, 50, 1)
	assert.ErrorIs(t, err, ErrUnavailable)
}
