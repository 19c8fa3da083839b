package notify

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	logtest "github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mcpherrinm/potwatch/internal/events"
)

type captured struct {
	header http.Header
	msg    feedMessage
}

func newFeedServer(t *testing.T, status int, got *[]captured) *httptest.Server {
	t.Helper()
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var msg feedMessage
		if err := json.NewDecoder(r.Body).Decode(&msg); err != nil {
			t.Errorf("decode body: %v", err)
		}
		*got = append(*got, captured{header: r.Header.Clone(), msg: msg})
		w.WriteHeader(status)
	}))
	t.Cleanup(server.Close)
	return server
}

func testConfig(url string) HTTPConfig {
	return HTTPConfig{
		URL:         url,
		HeaderKey:   "X-Auth-Token",
		HeaderValue: "secret",
		SensorID:    "csn-coffee-pot",
		SensorType:  "coffee_pot",
		Version:     "test",
	}
}

func TestHTTP_Event(t *testing.T) {
	var got []captured
	server := newFeedServer(t, http.StatusOK, &got)

	h := NewHTTP(testConfig(server.URL))
	err := h.Event(context.Background(), events.Event{TS: 1700000000.5, Kind: events.KindNew, Value: 3390})
	require.NoError(t, err)

	require.Len(t, got, 1)
	assert.Equal(t, "secret", got[0].header.Get("X-Auth-Token"))
	assert.Equal(t, "coffee_pot_event", got[0].msg.MsgType)
	require.Len(t, got[0].msg.RequestData, 1)
	assert.Equal(t, feedRecord{
		ID:        "csn-coffee-pot",
		Type:      "coffee_pot",
		TS:        1700000000.5,
		Version:   "test",
		EventCode: "COFFEE_NEW",
		Weight:    3390,
	}, got[0].msg.RequestData[0])
}

func TestHTTP_Weight(t *testing.T) {
	var got []captured
	server := newFeedServer(t, http.StatusAccepted, &got)

	h := NewHTTP(testConfig(server.URL))
	require.NoError(t, h.Weight(context.Background(), 42, 1234))

	require.Len(t, got, 1)
	assert.Equal(t, "coffee_pot_weight", got[0].msg.MsgType)
	rec := got[0].msg.RequestData[0]
	assert.Equal(t, "GRAMS", rec.Units)
	assert.Equal(t, 1234.0, rec.Weight)
	assert.Empty(t, rec.EventCode)
}

func TestHTTP_ErrorStatus(t *testing.T) {
	var got []captured
	server := newFeedServer(t, http.StatusInternalServerError, &got)

	h := NewHTTP(testConfig(server.URL))
	err := h.Weight(context.Background(), 42, 1234)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "500")
}

func TestHTTP_Unreachable(t *testing.T) {
	server := httptest.NewServer(http.NotFoundHandler())
	url := server.URL
	server.Close()

	h := NewHTTP(testConfig(url))
	assert.Error(t, h.Event(context.Background(), events.Event{Kind: events.KindRemoved}))
}

type failing struct{ err error }

func (f failing) Event(context.Context, events.Event) error     { return f.err }
func (f failing) Weight(context.Context, float64, float64) error { return f.err }

func TestMulti_JoinsErrors(t *testing.T) {
	log, hook := logtest.NewNullLogger()
	errA := errors.New("a down")
	errB := errors.New("b down")

	m := Multi{failing{errA}, Log{Logger: log}, failing{errB}}
	err := m.Event(context.Background(), events.Event{TS: 1, Kind: events.KindNew, Value: 3400})
	assert.ErrorIs(t, err, errA)
	assert.ErrorIs(t, err, errB)

	require.Len(t, hook.Entries, 1)
	assert.Equal(t, "COFFEE_NEW", hook.LastEntry().Data["event"])

	assert.NoError(t, Multi{Log{Logger: log}}.Weight(context.Background(), 2, 100))
	assert.Len(t, hook.Entries, 2)
}
