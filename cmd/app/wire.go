//go:build wireinject
// +build wireinject

package main

import (
	"github.com/google/wire"

	"github.com/yanqian/rockwatch/internal/bootstrap"
	"github.com/yanqian/rockwatch/internal/domain/auth"
	"github.com/yanqian/rockwatch/internal/domain/evaluation"
	"github.com/yanqian/rockwatch/internal/domain/history"
	"github.com/yanqian/rockwatch/internal/domain/localization"
	"github.com/yanqian/rockwatch/internal/domain/monitor"
	"github.com/yanqian/rockwatch/internal/domain/risk"
	"github.com/yanqian/rockwatch/internal/infra/archive"
	"github.com/yanqian/rockwatch/internal/infra/config"
	httpiface "github.com/yanqian/rockwatch/internal/interface/http"
	"github.com/yanqian/rockwatch/pkg/logger"
)

func initializeApp() (*bootstrap.App, func(), error) {
	wire.Build(
		config.Load,
		logger.New,
		provideThresholdTable,
		provideCatalog,
		provideRoutingTable,
		provideModelAdapters,
		provideOrchestrator,
		provideSiteRegistry,
		provideHistoryConfig,
		provideHistoryRepository,
		provideValkeyClient,
		provideLatestStore,
		provideObjectStorage,
		provideHub,
		provideNotifier,
		provideDispatchQueue,
		provideEvaluationConfig,
		provideAuditStore,
		provideArchiver,
		provideDispatcher,
		provideFeed,
		provideMonitorConfig,
		providePurger,
		provideAuthConfig,
		provideReportSource,
		provideAlertStream,
		risk.NewAssembler,
		localization.NewRenderer,
		archive.NewArchiver,
		history.NewService,
		evaluation.NewPipeline,
		evaluation.NewService,
		monitor.NewRunner,
		auth.NewService,
		httpiface.NewHandler,
		httpiface.NewRouter,
		bootstrap.NewApp,
	)
	return nil, nil, nil
}
