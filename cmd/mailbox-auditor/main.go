package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/mikey/mailbox-auditor/internal/cluster"
	"github.com/mikey/mailbox-auditor/internal/config"
	"github.com/mikey/mailbox-auditor/internal/core"
	"github.com/mikey/mailbox-auditor/internal/di"
	"github.com/mikey/mailbox-auditor/internal/ports"
	"go.uber.org/zap"
)

// Number of top ignored senders annotated when a model provider is enabled.
const annotateTopSenders = 3

func main() {
	// Cancel the run on SIGINT or SIGTERM
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Build the dependency injection container
	container, err := di.BuildContainer(ctx)
	if err != nil {
		fmt.Printf("Failed to build dependency container: %v\n", err)
		os.Exit(1)
	}

	// Run the application
	if err := container.Invoke(run); err != nil {
		fmt.Printf("Application error: %v\n", err)
		os.Exit(1)
	}
}

// run is the main application function that gets all dependencies injected
func run(
	ctx context.Context,
	cfg *config.Config,
	logger *zap.Logger,
	service *core.AuditService,
	cache core.MetadataCache,
	engine *core.MetricsEngine,
	clusterEngine *cluster.Engine,
	protected core.ProtectedChecker,
	annotator core.SubjectAnnotator,
	renderer ports.ReportRenderer,
	writer ports.DatasetWriter,
) error {
	defer logger.Sync()

	result, err := service.Run(ctx)
	if err != nil {
		return err
	}

	if len(result.Dataset) == 0 {
		logger.Info("Mailbox matched no messages, nothing to analyze")
		return renderer.RenderRun(result)
	}

	senders, err := engine.AggregateSenders(result.Dataset)
	if err != nil {
		return err
	}
	metrics, err := engine.MailboxSummary(senders)
	if err != nil {
		return err
	}

	reportCfg := cfg.GetReport()

	if err := renderer.RenderRun(result); err != nil {
		return err
	}
	if err := renderer.RenderMetrics(metrics); err != nil {
		return err
	}
	if err := renderer.RenderSenders(senders, reportCfg.TopSenders); err != nil {
		return err
	}
	if err := renderer.RenderCategories(engine.CategoryBreakdown(result.Dataset)); err != nil {
		return err
	}

	clusters, err := clusterEngine.Cluster(senders, cfg.GetCluster().Count)
	switch {
	case core.IsInsufficientData(err):
		logger.Warn("Skipping clustering, not enough senders", zap.Error(err))
	case err != nil:
		return err
	default:
		if err := renderer.RenderClusters(clusters); err != nil {
			return err
		}
	}

	if err := renderer.RenderCleanupPlan(engine.BuildCleanupPlan(senders, protected)); err != nil {
		return err
	}

	if reportCfg.BaselineEnabled {
		baselineCfg := cfg.GetBaseline()
		baseline := &core.MailboxMetrics{
			TotalMessages:      baselineCfg.TotalMessages,
			UnreadRate:         baselineCfg.UnreadRate,
			AvgOpenRate:        baselineCfg.AvgOpenRate,
			NeverOpenedSenders: baselineCfg.NeverOpenedSenders,
			TopSenderVolume:    baselineCfg.TopSenderVolume,
		}
		if err := renderer.RenderDelta(engine.CompareMetrics(metrics, baseline)); err != nil {
			return err
		}
	}

	if annotator != nil {
		insights := annotateSenders(ctx, annotator, senders, logger)
		if err := renderer.RenderInsights(insights); err != nil {
			return err
		}
	}

	if err := writer.WriteSenderReport(reportCfg.CSVPath, senders); err != nil {
		return err
	}
	if reportCfg.DatasetPath != "" {
		if err := writer.WriteDataset(reportCfg.DatasetPath, result.Dataset); err != nil {
			return err
		}
	}

	// Close any resources that need closing
	if closer, ok := annotator.(interface{ Close() error }); ok {
		if err := closer.Close(); err != nil {
			logger.Error("Failed to close annotator", zap.Error(err))
		}
	}
	if closer, ok := cache.(interface{ Close() error }); ok {
		if err := closer.Close(); err != nil {
			logger.Error("Failed to close cache", zap.Error(err))
		}
	}

	logger.Info("Audit complete",
		zap.String("run_id", result.RunID),
		zap.Int("senders", len(senders)))
	return nil
}

// annotateSenders generates subject insights for the most ignored senders.
// Annotation failures are logged and skipped so one provider error does not
// lose the rest of the report.
func annotateSenders(ctx context.Context, annotator core.SubjectAnnotator, senders []core.SenderStats, logger *zap.Logger) []core.SubjectInsight {
	limit := annotateTopSenders
	if limit > len(senders) {
		limit = len(senders)
	}

	insights := make([]core.SubjectInsight, 0, limit)
	for _, s := range senders[:limit] {
		insight, err := annotator.AnnotateSubjects(ctx, s.Address, s.Subjects)
		if err != nil {
			logger.Error("Failed to annotate sender",
				zap.String("sender", s.Address),
				zap.Error(err))
			continue
		}
		insights = append(insights, *insight)
	}
	return insights
}
