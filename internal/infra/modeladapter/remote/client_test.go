package remote

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/yanqian/rockwatch/internal/domain/risk"
	"github.com/yanqian/rockwatch/pkg/circuit"
)

func TestClientScore(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/v1/score", r.URL.Path)
		var req scoreRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		require.Equal(t, "jh-01", req.SiteID)
		require.Equal(t, 8.2, req.Readings["vibration"])
		_, _ = w.Write([]byte(`{"score":0.91}`))
	}))
	defer server.Close()

	client := NewClient(Config{URL: server.URL + "/"})
	verdict, err := client.Score(context.Background(), "jh-01", risk.Readings{risk.SensorVibration: 8.2})
	require.NoError(t, err)
	require.True(t, verdict.Succeeded)
	require.Equal(t, 0.91, verdict.Score)
	require.Equal(t, ModelName, verdict.ModelName)
}

func TestClientReportsModelFailure(t *testing.T) {
	cases := map[string]string{
		"explicit error": `{"error":"model not loaded"}`,
		"missing score":  `{}`,
		"malformed":      `{"score":`,
	}
	for name, body := range cases {
		t.Run(name, func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
				_, _ = w.Write([]byte(body))
			}))
			defer server.Close()
			_, err := NewClient(Config{URL: server.URL}).Score(context.Background(), "s", risk.Readings{"vibration": 1})
			require.Error(t, err)
		})
	}

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{"score":0.5,"succeeded":false}`))
	}))
	defer server.Close()
	verdict, err := NewClient(Config{URL: server.URL}).Score(context.Background(), "s", risk.Readings{"vibration": 1})
	require.NoError(t, err)
	require.False(t, verdict.Succeeded)
}

func TestClientTimesOut(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-r.Context().Done():
		case <-time.After(time.Second):
		}
	}))
	defer server.Close()

	start := time.Now()
	_, err := NewClient(Config{URL: server.URL, Timeout: 50 * time.Millisecond}).Score(context.Background(), "s", risk.Readings{"vibration": 1})
	require.Error(t, err)
	require.Less(t, time.Since(start), 500*time.Millisecond)
}

func TestClientBreakerOpensAfterFailures(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer server.Close()

	client := NewClient(Config{URL: server.URL, MaxFailures: 2, OpenTimeout: time.Minute})
	for i := 0; i < 2; i++ {
		_, err := client.Score(context.Background(), "s", risk.Readings{"vibration": 1})
		require.Error(t, err)
	}
	_, err := client.Score(context.Background(), "s", risk.Readings{"vibration": 1})
	require.ErrorIs(t, err, circuit.ErrCircuitOpen)
	require.Equal(t, int32(2), calls.Load())
}
