package di

import (
	"context"
	"os"

	"go.uber.org/dig"
	"go.uber.org/zap"

	"github.com/mikey/mailbox-auditor/internal/adapters/report"
	"github.com/mikey/mailbox-auditor/internal/cluster"
	"github.com/mikey/mailbox-auditor/internal/config"
	"github.com/mikey/mailbox-auditor/internal/core"
	"github.com/mikey/mailbox-auditor/internal/factory"
	"github.com/mikey/mailbox-auditor/internal/intent"
	"github.com/mikey/mailbox-auditor/internal/logging"
	"github.com/mikey/mailbox-auditor/internal/ports"
	"github.com/mikey/mailbox-auditor/internal/utils"
	"github.com/mikey/mailbox-auditor/internal/whitelist"
)

// BuildContainer creates and configures a dependency injection container.
// The context is registered so that providers performing I/O, such as the
// Gmail OAuth flow, honor cancellation.
func BuildContainer(ctx context.Context) (*dig.Container, error) {
	container := dig.New()

	// Register run context
	if err := container.Provide(func() context.Context { return ctx }); err != nil {
		return nil, err
	}

	// Register configuration
	if err := container.Provide(config.New); err != nil {
		return nil, err
	}

	// Register logger
	if err := container.Provide(logging.InitLogger); err != nil {
		return nil, err
	}

	// Register factories
	if err := container.Provide(factory.NewTextProcessorFactory); err != nil {
		return nil, err
	}
	if err := container.Provide(factory.NewSourceFactory); err != nil {
		return nil, err
	}
	if err := container.Provide(factory.NewCacheFactory); err != nil {
		return nil, err
	}
	if err := container.Provide(factory.NewAnnotatorFactory); err != nil {
		return nil, err
	}

	// Register text processor
	if err := container.Provide(func(f *factory.TextProcessorFactory) *utils.TextProcessor {
		return f.CreateTextProcessor()
	}); err != nil {
		return nil, err
	}

	// Register message source
	if err := container.Provide(func(ctx context.Context, f *factory.SourceFactory) (core.MessageSource, error) {
		return f.CreateSource(ctx)
	}); err != nil {
		return nil, err
	}

	// Register metadata cache
	if err := container.Provide(func(f *factory.CacheFactory) (core.MetadataCache, error) {
		return f.CreateCache()
	}); err != nil {
		return nil, err
	}

	// Register collector
	if err := container.Provide(func(cfg *config.Config, source core.MessageSource, logger *zap.Logger) *core.Collector {
		collectorCfg := cfg.GetCollector()
		return core.NewCollector(
			source,
			collectorCfg.Workers,
			collectorCfg.MaxAttempts,
			collectorCfg.InitialBackoff,
			collectorCfg.MaxBackoff,
			logger,
		)
	}); err != nil {
		return nil, err
	}

	// Register audit service
	if err := container.Provide(func(
		cfg *config.Config,
		source core.MessageSource,
		cache core.MetadataCache,
		collector *core.Collector,
		logger *zap.Logger,
	) *core.AuditService {
		auditCfg := cfg.GetAudit()
		return core.NewAuditService(
			source,
			cache,
			collector,
			logger,
			int64(auditCfg.MaxMessages),
			auditCfg.RefreshUnread,
		)
	}); err != nil {
		return nil, err
	}

	// Register intent classifier
	if err := container.Provide(func(text *utils.TextProcessor, logger *zap.Logger) core.IntentClassifier {
		return intent.NewClassifier(text, logger)
	}); err != nil {
		return nil, err
	}

	// Register metrics engine
	if err := container.Provide(func(cfg *config.Config, classifier core.IntentClassifier, text *utils.TextProcessor, logger *zap.Logger) *core.MetricsEngine {
		metricsCfg := cfg.GetMetrics()
		reportCfg := cfg.GetReport()
		return core.NewMetricsEngine(
			classifier,
			text,
			logger,
			metricsCfg.VolumeCap,
			metricsCfg.UnreadWeight,
			metricsCfg.VolumeWeight,
			metricsCfg.DistinctOpenSignal,
			reportCfg.MinCleanupVolume,
		)
	}); err != nil {
		return nil, err
	}

	// Register protected domain checker
	if err := container.Provide(func(cfg *config.Config, logger *zap.Logger) core.ProtectedChecker {
		return whitelist.NewChecker(cfg.GetReport().ProtectedDomains, logger)
	}); err != nil {
		return nil, err
	}

	// Register cluster engine
	if err := container.Provide(func(cfg *config.Config, logger *zap.Logger) *cluster.Engine {
		clusterCfg := cfg.GetCluster()
		metricsCfg := cfg.GetMetrics()
		return cluster.NewEngine(logger, metricsCfg.VolumeCap, clusterCfg.MaxIterations, clusterCfg.Seed)
	}); err != nil {
		return nil, err
	}

	// Register subject annotator
	if err := container.Provide(func(ctx context.Context, f *factory.AnnotatorFactory) (core.SubjectAnnotator, error) {
		return f.CreateAnnotator(ctx)
	}); err != nil {
		return nil, err
	}

	// Register report renderer
	if err := container.Provide(func() ports.ReportRenderer {
		return report.NewConsoleRenderer(os.Stdout)
	}); err != nil {
		return nil, err
	}

	// Register dataset writer
	if err := container.Provide(func(logger *zap.Logger) ports.DatasetWriter {
		return report.NewCSVWriter(logger)
	}); err != nil {
		return nil, err
	}

	return container, nil
}
