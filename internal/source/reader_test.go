package source

import (
	"context"
	"errors"
	"io"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mcpherrinm/potwatch/internal/buffer"
)

func readAll(t *testing.T, r *Reader) []buffer.Entry[float64] {
	t.Helper()
	var out []buffer.Entry[float64]
	for {
		e, err := r.Next(context.Background())
		if errors.Is(err, io.EOF) {
			return out
		}
		require.NoError(t, err)
		out = append(out, e)
	}
}

func TestReader_ParsesAndSkips(t *testing.T) {
	r := NewReader(strings.NewReader("0,1\nnoise\n0.5,x\n1, 2.5\n1.5,2\"x\n\n2,3,4\n3,4\n"), false)

	got := readAll(t, r)
	assert.Equal(t, []buffer.Entry[float64]{{TS: 0, Value: 1}, {TS: 1, Value: 2.5}, {TS: 3, Value: 4}}, got)
	assert.Equal(t, 4, r.Skipped())
}

func TestReader_Realtime(t *testing.T) {
	r := NewReader(strings.NewReader("10,1\n10.05,2\n10.1,3\n"), true)

	start := time.Now()
	got := readAll(t, r)
	elapsed := time.Since(start)

	assert.Len(t, got, 3)
	assert.GreaterOrEqual(t, elapsed, 90*time.Millisecond)
}

func TestReader_RealtimeCancelled(t *testing.T) {
	r := NewReader(strings.NewReader("0,1\n3600,2\n"), true)
	ctx, cancel := context.WithCancel(context.Background())

	_, err := r.Next(ctx)
	require.NoError(t, err)

	time.AfterFunc(10*time.Millisecond, cancel)
	_, err = r.Next(ctx)
	assert.ErrorIs(t, err, context.Canceled)
}
