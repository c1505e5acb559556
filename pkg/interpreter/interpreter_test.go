package interpreter

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/NotCoffee418/p1_telemetry/pkg/pipeline"
	"github.com/NotCoffee418/p1_telemetry/pkg/types"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest"
)

func reading(sec int, watt float64) types.MeterReading {
	b := types.NewReadingBuilder()
	b.SetTimestamp(time.Date(2021, 2, 14, 18, 54, sec, 0, time.UTC))
	b.SetWatt(watt)
	return b.Build()
}

func newTestServer(t *testing.T) (*Hub, *httptest.Server) {
	// Handlers may outlive the test on hijacked connections
	hub := NewHub(pipeline.NewStats(), zap.NewNop())
	srv := httptest.NewServer(hub.Handler())
	t.Cleanup(srv.Close)
	return hub, srv
}

func getJSON(t *testing.T, url string) (int, map[string]any) {
	t.Helper()
	resp, err := http.Get(url)
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, "application/json", resp.Header.Get("Content-Type"))
	var body map[string]any
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	return resp.StatusCode, body
}

func TestHTTPEndpoints(t *testing.T) {
	hub, srv := newTestServer(t)

	status, body := getJSON(t, srv.URL+"/")
	assert.Equal(t, http.StatusOK, status)
	assert.Equal(t, "running", body["status"])

	status, _ = getJSON(t, srv.URL+"/latest")
	assert.Equal(t, http.StatusNotFound, status)

	hub.Broadcast(reading(40, 234))
	status, body = getJSON(t, srv.URL+"/latest")
	assert.Equal(t, http.StatusOK, status)
	assert.Equal(t, 234.0, body["watt"])
	_, hasGas := body["gas_m3"]
	assert.False(t, hasGas)

	status, body = getJSON(t, srv.URL+"/stats")
	assert.Equal(t, http.StatusOK, status)
	assert.Contains(t, body, "readings")
	assert.Contains(t, body, "checksum_errors")

	status, _ = getJSON(t, srv.URL+"/nope")
	assert.Equal(t, http.StatusNotFound, status)
}

func wsURL(srv *httptest.Server) string {
	return "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws"
}

func readReading(t *testing.T, conn *websocket.Conn) types.MeterReading {
	t.Helper()
	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, msg, err := conn.ReadMessage()
	require.NoError(t, err)
	r := types.MeterReadingFromJsonBytes(msg)
	require.NotNil(t, r)
	return *r
}

func TestWebsocketReceivesLatestThenBroadcasts(t *testing.T) {
	hub, srv := newTestServer(t)
	hub.Broadcast(reading(40, 234))

	conn, _, err := websocket.DefaultDialer.Dial(wsURL(srv), nil)
	require.NoError(t, err)
	defer conn.Close()

	first := readReading(t, conn)
	w, _ := first.Watt()
	assert.Equal(t, 234.0, w)

	require.Eventually(t, func() bool { return hub.ClientCount() == 1 }, time.Second, time.Millisecond)
	hub.Broadcast(reading(41, 240))
	second := readReading(t, conn)
	w, _ = second.Watt()
	assert.Equal(t, 240.0, w)

	conn.Close()
	assert.Eventually(t, func() bool { return hub.ClientCount() == 0 }, time.Second, time.Millisecond)
}

func testOptions() ListenerOptions {
	opts := DefaultListenerOptions()
	opts.MaxRetries = 3
	opts.BaseRetryDelay = time.Millisecond
	opts.MaxRetryDelay = 5 * time.Millisecond
	return opts
}

func TestListenerReceivesReadings(t *testing.T) {
	hub, srv := newTestServer(t)
	host := strings.TrimPrefix(srv.URL, "http://")

	received := make(chan types.MeterReading, 4)
	ctx, cancel := context.WithCancel(context.Background())
	result := make(chan error, 1)
	go func() {
		result <- StartListener(ctx, host, false, testOptions(), func(r types.MeterReading) {
			received <- r
		}, zaptest.NewLogger(t))
	}()

	require.Eventually(t, func() bool { return hub.ClientCount() == 1 }, 2*time.Second, time.Millisecond)
	hub.Broadcast(reading(40, 234))

	select {
	case r := <-received:
		ts, ok := r.Timestamp()
		require.True(t, ok)
		assert.Equal(t, 40, ts.Second())
	case <-time.After(2 * time.Second):
		t.Fatal("no reading received")
	}

	cancel()
	select {
	case err := <-result:
		assert.NoError(t, err)
	case <-time.After(3 * time.Second):
		t.Fatal("listener did not stop")
	}
}

func TestListenerGivesUp(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	host := strings.TrimPrefix(srv.URL, "http://")
	srv.Close()

	err := StartListener(context.Background(), host, false, testOptions(), func(types.MeterReading) {}, nil)
	assert.True(t, errors.Is(err, ErrMaxRetries))
}

func TestBackoff(t *testing.T) {
	base, maxDelay := 2*time.Second, 60*time.Second
	assert.Equal(t, 2*time.Second, backoff(0, base, maxDelay))
	assert.Equal(t, 4*time.Second, backoff(1, base, maxDelay))
	assert.Equal(t, 32*time.Second, backoff(4, base, maxDelay))
	assert.Equal(t, maxDelay, backoff(5, base, maxDelay))
	assert.Equal(t, maxDelay, backoff(63, base, maxDelay))
}

func TestFeedURL(t *testing.T) {
	u := feedURL("meter.local:9039", false)
	assert.Equal(t, "ws://meter.local:9039/ws", u.String())
	u = feedURL("meter.local:9039", true)
	assert.Equal(t, "wss://meter.local:9039/ws", u.String())
}
