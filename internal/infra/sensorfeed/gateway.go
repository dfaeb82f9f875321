package sensorfeed

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/yanqian/rockwatch/internal/domain/monitor"
	"github.com/yanqian/rockwatch/internal/domain/risk"
	"github.com/yanqian/rockwatch/internal/domain/site"
)

// GatewayClient fetches the latest readings from the IoT gateway.
type GatewayClient struct {
	baseURL    string
	httpClient *http.Client
}

// NewGatewayClient builds a client for baseURL.
func NewGatewayClient(baseURL string, timeout time.Duration) (*GatewayClient, error) {
	base := strings.TrimRight(strings.TrimSpace(baseURL), "/")
	if base == "" {
		return nil, fmt.Errorf("sensor feed: empty gateway url")
	}
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &GatewayClient{
		baseURL:    base,
		httpClient: &http.Client{Timeout: timeout},
	}, nil
}

// Latest calls GET {base}/sites/{id}/readings/latest.
func (c *GatewayClient) Latest(ctx context.Context, s site.Site) (risk.Readings, error) {
	endpoint := fmt.Sprintf("%s/sites/%s/readings/latest", c.baseURL, url.PathEscape(s.ID))
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("build readings request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("readings request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		payload, _ := io.ReadAll(io.LimitReader(resp.Body, 4<<10))
		return nil, fmt.Errorf("readings request error: status=%d body=%s", resp.StatusCode, string(payload))
	}

	var raw gatewayResponse
	if err := json.NewDecoder(io.LimitReader(resp.Body, 1<<20)).Decode(&raw); err != nil {
		return nil, fmt.Errorf("decode readings response: %w", err)
	}
	if raw.SiteID != "" && raw.SiteID != s.ID {
		return nil, fmt.Errorf("readings response for site %q, want %q", raw.SiteID, s.ID)
	}
	return normalizeMetrics(raw.Metrics), nil
}

type gatewayResponse struct {
	SiteID    string         `json:"siteId"`
	Timestamp string         `json:"timestamp"`
	Metrics   map[string]any `json:"metrics"`
}

// normalizeMetrics keeps numeric values and lower-cases sensor names. The
// gateway forwards device payloads as-is, so non-numeric fields are dropped.
func normalizeMetrics(metrics map[string]any) risk.Readings {
	out := make(risk.Readings, len(metrics))
	for name, value := range metrics {
		key := strings.ToLower(strings.TrimSpace(name))
		if key == "" {
			continue
		}
		switch v := value.(type) {
		case float64:
			out[key] = v
		case json.Number:
			if f, err := v.Float64(); err == nil {
				out[key] = f
			}
		}
	}
	return out
}

var _ monitor.Feed = (*GatewayClient)(nil)
