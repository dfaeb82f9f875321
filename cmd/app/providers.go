package main

import (
	"context"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/valkey-io/valkey-go"

	"github.com/yanqian/rockwatch/internal/domain/auth"
	"github.com/yanqian/rockwatch/internal/domain/evaluation"
	"github.com/yanqian/rockwatch/internal/domain/history"
	"github.com/yanqian/rockwatch/internal/domain/localization"
	"github.com/yanqian/rockwatch/internal/domain/monitor"
	"github.com/yanqian/rockwatch/internal/domain/risk"
	"github.com/yanqian/rockwatch/internal/domain/routing"
	"github.com/yanqian/rockwatch/internal/domain/site"
	"github.com/yanqian/rockwatch/internal/infra/archive"
	"github.com/yanqian/rockwatch/internal/infra/config"
	"github.com/yanqian/rockwatch/internal/infra/dispatch"
	"github.com/yanqian/rockwatch/internal/infra/historyrepo"
	"github.com/yanqian/rockwatch/internal/infra/latestcache"
	"github.com/yanqian/rockwatch/internal/infra/modeladapter/logistic"
	"github.com/yanqian/rockwatch/internal/infra/modeladapter/remote"
	"github.com/yanqian/rockwatch/internal/infra/notify"
	"github.com/yanqian/rockwatch/internal/infra/sensorfeed"
	"github.com/yanqian/rockwatch/internal/infra/siteregistry"
	"github.com/yanqian/rockwatch/internal/infra/thresholdfile"
	httpiface "github.com/yanqian/rockwatch/internal/interface/http"
)

func provideThresholdTable(cfg *config.Config) (*risk.Table, error) {
	return thresholdfile.Load(cfg.Risk.ThresholdsPath)
}

func provideCatalog(cfg *config.Config, logger *slog.Logger) (*localization.Catalog, error) {
	dir := strings.TrimSpace(cfg.Localization.CatalogDir)
	if dir == "" {
		return localization.BuiltinCatalog()
	}
	logger.Info("loading translation catalog", "dir", dir)
	return localization.LoadCatalog(os.DirFS(dir))
}

func provideRoutingTable(cfg *config.Config) (*routing.Router, error) {
	table := routing.DefaultTable()
	for raw, groups := range cfg.Routing.Groups {
		level, err := risk.ParseLevel(raw)
		if err != nil {
			return nil, risk.ConfigurationError("routing.groups: %v", err)
		}
		table.Groups[level] = nil
		for _, g := range groups {
			table.Groups[level] = append(table.Groups[level], routing.RecipientGroup(strings.ToLower(g)))
		}
	}
	for raw, channels := range cfg.Routing.Channels {
		level, err := risk.ParseLevel(raw)
		if err != nil {
			return nil, risk.ConfigurationError("routing.channels: %v", err)
		}
		table.Channels[level] = channels
	}
	return routing.NewRouter(table)
}

// provideModelAdapters orders the chain remote, then logistic. The rule-based
// model is always appended by the orchestrator.
func provideModelAdapters(cfg *config.Config, logger *slog.Logger) []risk.ModelAdapter {
	var adapters []risk.ModelAdapter
	if url := strings.TrimSpace(cfg.Models.Primary.URL); url != "" {
		adapters = append(adapters, remote.NewClient(remote.Config{
			URL:         url,
			Timeout:     cfg.Models.Primary.Timeout,
			MaxFailures: cfg.Models.Primary.Breaker.MaxFailures,
			OpenTimeout: cfg.Models.Primary.Breaker.OpenTimeout,
		}))
		logger.Info("remote model enabled", "url", url)
	} else {
		logger.Info("primary model url not set, skipping remote model")
	}
	if cfg.Models.Secondary.Enabled && len(cfg.Models.Secondary.Coefficients) > 0 {
		adapters = append(adapters, logistic.NewModel(logistic.Config{
			Intercept:    cfg.Models.Secondary.Intercept,
			Coefficients: cfg.Models.Secondary.Coefficients,
		}))
	}
	return adapters
}

func provideOrchestrator(cfg *config.Config, table *risk.Table, adapters []risk.ModelAdapter, logger *slog.Logger) (*risk.Orchestrator, error) {
	classifier := risk.ClassifierConfig{
		HighThreshold:   cfg.Risk.HighThreshold,
		MediumThreshold: cfg.Risk.MediumThreshold,
	}
	estimator := risk.NewEstimator(risk.ConfidenceConfig{
		CoveragePerSensor: cfg.Risk.Confidence.CoveragePerSensor,
		CoverageWeight:    cfg.Risk.Confidence.CoverageWeight,
		AgreementWeight:   cfg.Risk.Confidence.AgreementWeight,
		FallbackCeiling:   cfg.Risk.Confidence.FallbackCeiling,
	})
	return risk.NewOrchestrator(table, adapters, classifier, estimator, logger)
}

func provideSiteRegistry(cfg *config.Config) (site.Registry, error) {
	sites := make([]site.Site, 0, len(cfg.Sites))
	for _, s := range cfg.Sites {
		sites = append(sites, site.Site{
			ID:        s.ID,
			Name:      s.Name,
			Region:    s.Region,
			Languages: s.Languages,
			Latitude:  s.Latitude,
			Longitude: s.Longitude,
		})
	}
	return siteregistry.NewStatic(sites)
}

func provideHistoryConfig(cfg *config.Config) history.Config {
	return history.Config{Retention: cfg.History.Retention}
}

func provideHistoryRepository(cfg *config.Config, logger *slog.Logger) (history.Repository, func()) {
	fallback := historyrepo.NewMemoryRepository(cfg.History.MaxPerSite)
	dsn := strings.TrimSpace(cfg.Postgres.DSN)
	if dsn == "" {
		logger.Info("postgres dsn not set, using memory history repository")
		return fallback, func() {}
	}
	poolConfig, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		logger.Error("invalid postgres dsn, using memory history repository", "error", err)
		return fallback, func() {}
	}
	if cfg.Postgres.MaxConns > 0 {
		poolConfig.MaxConns = cfg.Postgres.MaxConns
	}
	if cfg.Postgres.MinConns > 0 {
		poolConfig.MinConns = cfg.Postgres.MinConns
	}
	pool, err := pgxpool.NewWithConfig(context.Background(), poolConfig)
	if err != nil {
		logger.Error("failed to initialize postgres pool, using memory history repository", "error", err)
		return fallback, func() {}
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := pool.Ping(ctx); err != nil {
		logger.Error("postgres ping failed, using memory history repository", "error", err)
		pool.Close()
		return fallback, func() {}
	}
	logger.Info("postgres history repository enabled")
	return historyrepo.NewPostgresRepository(pool), pool.Close
}

// provideValkeyClient returns nil when Valkey is disabled or unreachable.
func provideValkeyClient(cfg *config.Config, logger *slog.Logger) (valkey.Client, func()) {
	if !cfg.Valkey.Enabled {
		return nil, func() {}
	}
	opt, err := buildValkeyOptions(cfg)
	if err != nil {
		logger.Error("invalid valkey configuration, falling back to memory", "error", err)
		return nil, func() {}
	}
	client, err := valkey.NewClient(opt)
	if err != nil {
		logger.Error("failed to create valkey client, falling back to memory", "error", err)
		return nil, func() {}
	}
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := client.Do(ctx, client.B().Ping().Build()).Error(); err != nil {
		logger.Error("valkey ping failed, falling back to memory", "error", err)
		client.Close()
		return nil, func() {}
	}
	logger.Info("valkey enabled", "addr", cfg.Valkey.Addr)
	return client, client.Close
}

func buildValkeyOptions(cfg *config.Config) (valkey.ClientOption, error) {
	var (
		opt valkey.ClientOption
		err error
	)
	if strings.Contains(cfg.Valkey.Addr, "://") {
		opt, err = valkey.ParseURL(cfg.Valkey.Addr)
	} else {
		opt = valkey.ClientOption{InitAddress: []string{cfg.Valkey.Addr}}
	}
	if err != nil {
		return valkey.ClientOption{}, err
	}
	if cfg.Valkey.Password != "" {
		opt.Password = cfg.Valkey.Password
	}
	return opt, nil
}

func provideLatestStore(cfg *config.Config, client valkey.Client) evaluation.LatestStore {
	if client == nil {
		return latestcache.NewMemoryStore()
	}
	return latestcache.NewValkeyStore(client, "rockwatch", cfg.Valkey.LatestTTL)
}

func provideObjectStorage(cfg *config.Config, logger *slog.Logger) archive.ObjectStorage {
	if strings.TrimSpace(cfg.Storage.Endpoint) == "" {
		logger.Info("storage endpoint not set, using memory archive")
		return archive.NewMemoryStorage()
	}
	storage, err := archive.NewS3Storage(archive.S3Config{
		Endpoint:  cfg.Storage.Endpoint,
		AccessKey: cfg.Storage.AccessKey,
		SecretKey: cfg.Storage.SecretKey,
		Bucket:    cfg.Storage.Bucket,
		Region:    cfg.Storage.Region,
		UseSSL:    cfg.Storage.UseSSL,
	}, logger)
	if err != nil {
		logger.Error("failed to init archive storage, using memory archive", "error", err)
		return archive.NewMemoryStorage()
	}
	logger.Info("s3 archive enabled", "bucket", cfg.Storage.Bucket)
	return storage
}

func provideHub(cfg *config.Config, logger *slog.Logger) *notify.Hub {
	return notify.NewHub(cfg.HTTP.AllowedOrigins, logger)
}

func provideNotifier(cfg *config.Config, hub *notify.Hub, logger *slog.Logger) (*notify.Notifier, func(), error) {
	tpl, err := notify.NewTemplate(cfg.Notify.Template)
	if err != nil {
		return nil, nil, risk.ConfigurationError("notify.template: %v", err)
	}
	opts := []notify.Option{
		notify.WithChannel(routing.ChannelWebsocket, hub),
		notify.WithCooldown(cfg.Notify.Cooldown),
	}
	cleanup := func() {}

	if url := strings.TrimSpace(cfg.Notify.WebhookURL); url != "" {
		webhook, err := notify.NewWebhookChannel(url)
		if err != nil {
			return nil, nil, risk.ConfigurationError("notify.webhookUrl: %v", err)
		}
		opts = append(opts, notify.WithChannel(routing.ChannelWebhook, webhook))
	} else {
		logger.Info("alert webhook url not set, webhook channel disabled")
	}

	if url := strings.TrimSpace(cfg.NATS.URL); url != "" {
		channel, err := notify.NewNATSChannel(notify.NATSConfig{
			URL:     url,
			Subject: cfg.NATS.Subject,
			Name:    cfg.App.Name,
		})
		if err != nil {
			logger.Error("nats connect failed, nats channel disabled", "error", err)
		} else {
			logger.Info("nats channel enabled", "subject", cfg.NATS.Subject)
			opts = append(opts, notify.WithChannel(routing.ChannelNATS, channel))
			cleanup = channel.Close
		}
	}

	if base := strings.TrimRight(strings.TrimSpace(cfg.App.PublicURL), "/"); base != "" {
		opts = append(opts, notify.WithReportURLResolver(func(d evaluation.Delivery) string {
			return base + "/api/v1/assessments/" + d.BundleID + "/report"
		}))
	}

	notifier, err := notify.NewNotifier(tpl, logger, opts...)
	if err != nil {
		cleanup()
		return nil, nil, err
	}
	return notifier, cleanup, nil
}

func provideDispatchQueue(cfg *config.Config, client valkey.Client, notifier *notify.Notifier, logger *slog.Logger) (dispatch.Queue, func()) {
	var queue dispatch.Queue
	if client != nil {
		queue = dispatch.NewValkeyQueue(client, cfg.Valkey.QueueKey, logger)
	} else {
		queue = dispatch.NewImmediateQueue(nil)
	}
	queue.SetHandler(notifier.Handle)
	return queue, queue.Close
}

func provideEvaluationConfig(cfg *config.Config) evaluation.Config {
	level, err := risk.ParseLevel(cfg.Storage.ArchiveMinLevel)
	if err != nil {
		level = risk.LevelMedium
	}
	return evaluation.Config{
		Concurrency:     cfg.Monitor.Concurrency,
		ArchiveMinLevel: level,
	}
}

func provideAuditStore(svc history.Service) evaluation.AuditStore {
	return svc
}

func provideArchiver(a *archive.Archiver) evaluation.Archiver {
	return a
}

func provideDispatcher(q dispatch.Queue) evaluation.Dispatcher {
	return q
}

func provideFeed(cfg *config.Config, logger *slog.Logger) monitor.Feed {
	if url := strings.TrimSpace(cfg.Monitor.FeedURL); url != "" {
		client, err := sensorfeed.NewGatewayClient(url, cfg.Monitor.FeedTimeout)
		if err == nil {
			logger.Info("sensor gateway feed enabled", "url", url)
			return client
		}
		logger.Error("invalid sensor feed url, using simulated feed", "error", err)
	} else {
		logger.Info("sensor feed url not set, using simulated feed", "seed", cfg.Monitor.SimulatedSeed)
	}
	return sensorfeed.NewSimulated(cfg.Monitor.SimulatedSeed)
}

func provideMonitorConfig(cfg *config.Config) monitor.Config {
	return monitor.Config{Interval: cfg.Monitor.Interval, FeedTimeout: cfg.Monitor.FeedTimeout}
}

func providePurger(svc history.Service) monitor.Purger {
	return svc
}

func provideAuthConfig(cfg *config.Config) auth.Config {
	return auth.Config{
		Secret:   cfg.Auth.Secret,
		Issuer:   cfg.Auth.Issuer,
		TokenTTL: cfg.Auth.TokenTTL,
	}
}

func provideReportSource(a *archive.Archiver) httpiface.ReportSource {
	return a
}

func provideAlertStream(hub *notify.Hub) httpiface.AlertStream {
	return hub
}
