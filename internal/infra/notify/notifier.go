package notify

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/yanqian/rockwatch/internal/domain/evaluation"
	"github.com/yanqian/rockwatch/internal/domain/routing"
	"github.com/yanqian/rockwatch/pkg/metrics"
	"github.com/yanqian/rockwatch/pkg/util"
)

// ReportURLResolver provides a report link for a delivery when available.
type ReportURLResolver func(delivery evaluation.Delivery) string

// Notifier fans a delivery out to the channels its routing names.
type Notifier struct {
	channels       map[string]Channel
	template       *Template
	cooldown       time.Duration
	requestTimeout time.Duration
	reportURL      ReportURLResolver
	clock          util.Clock
	logger         *slog.Logger

	mu   sync.Mutex
	sent map[string]time.Time
}

// Option configures the notifier.
type Option func(*Notifier)

// WithChannel registers a channel under name. Nil channels are ignored.
func WithChannel(name string, channel Channel) Option {
	return func(n *Notifier) {
		if channel != nil {
			n.channels[name] = channel
		}
	}
}

// WithCooldown suppresses repeat push alerts for the same site and level.
func WithCooldown(interval time.Duration) Option {
	return func(n *Notifier) {
		if interval > 0 {
			n.cooldown = interval
		}
	}
}

// WithRequestTimeout bounds each channel send.
func WithRequestTimeout(timeout time.Duration) Option {
	return func(n *Notifier) {
		if timeout > 0 {
			n.requestTimeout = timeout
		}
	}
}

// WithReportURLResolver injects a report link resolver.
func WithReportURLResolver(resolver ReportURLResolver) Option {
	return func(n *Notifier) {
		if resolver != nil {
			n.reportURL = resolver
		}
	}
}

// WithClock overrides the default clock.
func WithClock(clock util.Clock) Option {
	return func(n *Notifier) {
		if clock != nil {
			n.clock = clock
		}
	}
}

// NewNotifier constructs the notifier. A nil template uses DefaultTemplate.
func NewNotifier(template *Template, logger *slog.Logger, opts ...Option) (*Notifier, error) {
	if template == nil {
		defaultTemplate, err := NewTemplate("")
		if err != nil {
			return nil, err
		}
		template = defaultTemplate
	}
	n := &Notifier{
		channels:       make(map[string]Channel),
		template:       template,
		requestTimeout: 10 * time.Second,
		clock:          util.NowUTC,
		logger:         logger.With("component", "notify.notifier"),
		sent:           make(map[string]time.Time),
	}
	for _, opt := range opts {
		opt(n)
	}
	return n, nil
}

// Handle sends delivery on each routed channel. A failing channel does not
// stop the others. The live stream is never subject to the cooldown.
func (n *Notifier) Handle(ctx context.Context, delivery evaluation.Delivery) {
	content, err := n.template.Render(buildTemplateData(delivery, n.resolveReport(delivery)))
	if err != nil {
		n.logger.Error("render alert failed", "bundle_id", delivery.BundleID, "error", err)
		return
	}
	release, reserved := n.reserve(delivery)
	suppressPush := !reserved
	delivered := false
	for _, name := range delivery.Channels {
		channel, ok := n.channels[name]
		if !ok {
			continue
		}
		if suppressPush && name != routing.ChannelWebsocket {
			n.logger.Debug("alert suppressed by cooldown", "site_id", delivery.SiteID, "level", delivery.Level, "channel", name)
			continue
		}
		if err := n.send(ctx, channel, delivery, content); err != nil {
			metrics.IncDelivery(name, metrics.ResultFailure)
			n.logger.Warn("alert delivery failed", "channel", name, "bundle_id", delivery.BundleID, "error", err)
			continue
		}
		metrics.IncDelivery(name, metrics.ResultSuccess)
		if name != routing.ChannelWebsocket {
			delivered = true
		}
	}
	if reserved && !delivered {
		release()
	}
}

func (n *Notifier) send(ctx context.Context, channel Channel, delivery evaluation.Delivery, content string) error {
	ctx, cancel := context.WithTimeout(ctx, n.requestTimeout)
	defer cancel()
	return channel.Send(ctx, delivery, content)
}

func (n *Notifier) resolveReport(delivery evaluation.Delivery) string {
	if n.reportURL == nil {
		return ""
	}
	return n.reportURL(delivery)
}

// reserve claims the cooldown slot of delivery's site and level in one step.
// It reports false while an earlier push is still cooling down. release
// restores the previous slot and is used when no push channel succeeded.
func (n *Notifier) reserve(delivery evaluation.Delivery) (release func(), ok bool) {
	if n.cooldown <= 0 {
		return func() {}, true
	}
	key := cooldownKey(delivery)
	now := n.clock()

	n.mu.Lock()
	defer n.mu.Unlock()
	prev, hadPrev := n.sent[key]
	if hadPrev && now.Sub(prev) < n.cooldown {
		return nil, false
	}
	for k, at := range n.sent {
		if now.Sub(at) >= n.cooldown {
			delete(n.sent, k)
		}
	}
	n.sent[key] = now
	return func() {
		n.mu.Lock()
		defer n.mu.Unlock()
		if at, ok := n.sent[key]; !ok || !at.Equal(now) {
			return
		}
		if hadPrev {
			n.sent[key] = prev
			return
		}
		delete(n.sent, key)
	}, true
}

func cooldownKey(d evaluation.Delivery) string {
	return d.SiteID + "|" + string(d.Level)
}
