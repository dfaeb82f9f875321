package remote

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/yanqian/rockwatch/internal/domain/risk"
	"github.com/yanqian/rockwatch/pkg/circuit"
	"github.com/yanqian/rockwatch/pkg/metrics"
)

// ModelName identifies verdicts from the remote model.
const ModelName = "gradient_boosted"

// Config configures the remote model client.
type Config struct {
	URL         string
	Timeout     time.Duration
	MaxFailures int
	OpenTimeout time.Duration
}

// Client scores readings with the remote gradient-boosted model service.
type Client struct {
	endpoint   string
	timeout    time.Duration
	httpClient *http.Client
	breaker    *circuit.Breaker
}

// NewClient builds the adapter. Calls are bounded by cfg.Timeout and guarded
// by a circuit breaker so an unreachable service costs nothing while open.
func NewClient(cfg Config) *Client {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 2 * time.Second
	}
	return &Client{
		endpoint:   strings.TrimRight(strings.TrimSpace(cfg.URL), "/") + "/v1/score",
		timeout:    timeout,
		httpClient: &http.Client{},
		breaker: circuit.NewBreaker(circuit.Config{
			Name:        ModelName,
			MaxFailures: cfg.MaxFailures,
			OpenTimeout: cfg.OpenTimeout,
			OnStateChange: func(name string, _, to circuit.State) {
				metrics.SetBreakerOpen(name, to == circuit.StateOpen)
			},
		}),
	}
}

func (c *Client) Name() string {
	return ModelName
}

type scoreRequest struct {
	SiteID   string             `json:"siteId"`
	Readings map[string]float64 `json:"readings"`
}

type scoreResponse struct {
	Score     *float64 `json:"score"`
	Succeeded *bool    `json:"succeeded"`
	Model     string   `json:"model"`
	Error     string   `json:"error"`
}

// Score posts the readings and returns the model verdict.
func (c *Client) Score(ctx context.Context, siteID string, readings risk.Readings) (risk.ModelVerdict, error) {
	var verdict risk.ModelVerdict
	err := c.breaker.Execute(ctx, func(ctx context.Context) error {
		ctx, cancel := context.WithTimeout(ctx, c.timeout)
		defer cancel()
		v, err := c.call(ctx, siteID, readings)
		if err != nil {
			return err
		}
		verdict = v
		return nil
	})
	if err != nil {
		return risk.ModelVerdict{ModelName: ModelName}, err
	}
	return verdict, nil
}

func (c *Client) call(ctx context.Context, siteID string, readings risk.Readings) (risk.ModelVerdict, error) {
	payload, err := json.Marshal(scoreRequest{SiteID: siteID, Readings: readings})
	if err != nil {
		return risk.ModelVerdict{}, fmt.Errorf("encode score request: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(payload))
	if err != nil {
		return risk.ModelVerdict{}, fmt.Errorf("build score request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return risk.ModelVerdict{}, fmt.Errorf("score request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4<<10))
		return risk.ModelVerdict{}, fmt.Errorf("score request error: status=%d body=%s", resp.StatusCode, string(body))
	}

	var raw scoreResponse
	if err := json.NewDecoder(io.LimitReader(resp.Body, 1<<20)).Decode(&raw); err != nil {
		return risk.ModelVerdict{}, fmt.Errorf("decode score response: %w", err)
	}
	if raw.Error != "" {
		return risk.ModelVerdict{}, fmt.Errorf("model error: %s", raw.Error)
	}
	if raw.Score == nil {
		return risk.ModelVerdict{}, fmt.Errorf("score response missing score")
	}
	succeeded := raw.Succeeded == nil || *raw.Succeeded
	return risk.ModelVerdict{Score: *raw.Score, Succeeded: succeeded, ModelName: ModelName}, nil
}

var _ risk.ModelAdapter = (*Client)(nil)
