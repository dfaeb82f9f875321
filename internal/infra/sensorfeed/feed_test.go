package sensorfeed

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/yanqian/rockwatch/internal/domain/risk"
	"github.com/yanqian/rockwatch/internal/domain/site"
)

func TestGatewayClientLatest(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/sites/jh-01/readings/latest", r.URL.Path)
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"siteId":"jh-01","timestamp":"2026-03-01T12:00:00Z",
			"metrics":{"Vibration":3.1,"acoustic":72,"device":"gw-7","slope_stability":0.12}}`))
	}))
	defer srv.Close()

	client, err := NewGatewayClient(srv.URL+"/", time.Second)
	require.NoError(t, err)
	readings, err := client.Latest(context.Background(), site.Site{ID: "jh-01"})
	require.NoError(t, err)
	require.Equal(t, risk.Readings{"vibration": 3.1, "acoustic": 72, "slope_stability": 0.12}, readings)
}

func TestGatewayClientErrors(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/sites/down/readings/latest":
			http.Error(w, "gateway offline", http.StatusServiceUnavailable)
		case "/sites/other/readings/latest":
			_, _ = w.Write([]byte(`{"siteId":"someone-else","metrics":{}}`))
		default:
			_, _ = w.Write([]byte(`not json`))
		}
	}))
	defer srv.Close()

	client, err := NewGatewayClient(srv.URL, time.Second)
	require.NoError(t, err)
	for _, id := range []string{"down", "other", "garbled"} {
		_, err := client.Latest(context.Background(), site.Site{ID: id})
		require.Error(t, err, id)
	}

	_, err = NewGatewayClient("  ", time.Second)
	require.Error(t, err)
}

func TestSimulatedIsDeterministicPerSite(t *testing.T) {
	a, b := NewSimulated(42), NewSimulated(42)
	s := site.Site{ID: "od-02"}
	for i := 0; i < 5; i++ {
		ra, err := a.Latest(context.Background(), s)
		require.NoError(t, err)
		rb, err := b.Latest(context.Background(), s)
		require.NoError(t, err)
		require.Equal(t, ra, rb)
		require.Len(t, ra, len(profiles))
		require.GreaterOrEqual(t, ra[risk.SensorVibration], 0.0)
	}

	other, err := NewSimulated(42).Latest(context.Background(), site.Site{ID: "jh-01"})
	require.NoError(t, err)
	first, err := NewSimulated(42).Latest(context.Background(), s)
	require.NoError(t, err)
	require.NotEqual(t, first, other)
}

func TestSimulatedHonoursCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := NewSimulated(1).Latest(ctx, site.Site{ID: "x"})
	require.ErrorIs(t, err, context.Canceled)
}
