package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"sort"
	"strings"
	"syscall"

	"github.com/mikey/mailbox-auditor/internal/cluster"
	"github.com/mikey/mailbox-auditor/internal/config"
	"github.com/mikey/mailbox-auditor/internal/core"
	"github.com/mikey/mailbox-auditor/internal/di"
	"github.com/mikey/mailbox-auditor/internal/ports"
	"go.uber.org/zap"
)

// Number of top ignored senders annotated when no address is given.
const annotateTopSenders = 3

// Number of tokens shown per sender in the subject patterns report.
const patternTokenLimit = 8

var tierNames = map[string]core.EngagementTier{
	"zero":   core.TierZero,
	"low":    core.TierLow,
	"medium": core.TierMedium,
	"high":   core.TierHigh,
}

func main() {
	flags := di.ParseFlags()

	// Cancel the run on SIGINT or SIGTERM
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Build the dependency injection container
	container, err := di.BuildCLIContainer(ctx, flags)
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

// run analyzes the persisted cache and renders the requested reports. It
// never talks to the mailbox provider.
func run(
	ctx context.Context,
	flags *di.CLIFlags,
	cfg *config.Config,
	logger *zap.Logger,
	cache core.MetadataCache,
	engine *core.MetricsEngine,
	clusterEngine *cluster.Engine,
	protected core.ProtectedChecker,
	annotator core.SubjectAnnotator,
	renderer ports.ReportRenderer,
	writer ports.DatasetWriter,
) error {
	defer logger.Sync()

	if err := validateFlags(flags); err != nil {
		return err
	}

	snapshot, err := cache.Load(ctx)
	if err != nil {
		return err
	}
	if len(snapshot) == 0 {
		logger.Warn("Cache is empty, run the auditor first",
			zap.String("path", cfg.GetCache().Path))
		return nil
	}
	records := snapshotRecords(snapshot)
	logger.Info("Loaded cached metadata", zap.Int("messages", len(records)))

	senders, err := engine.AggregateSenders(records)
	if err != nil {
		return err
	}

	show := func(name string) bool {
		return flags.Report == name || flags.Report == "full"
	}

	if show("summary") {
		metrics, err := engine.MailboxSummary(senders)
		if err != nil {
			return err
		}
		if err := renderer.RenderMetrics(metrics); err != nil {
			return err
		}
	}

	if show("senders") {
		view := senders
		if flags.Tier != "" {
			view = filterByTier(senders, tierNames[flags.Tier])
		}
		if err := renderer.RenderSenders(view, flags.Top); err != nil {
			return err
		}
	}

	if show("categories") {
		if err := renderer.RenderCategories(engine.CategoryBreakdown(records)); err != nil {
			return err
		}
	}

	if show("subjects") {
		patterns := engine.SubjectPatterns(senders, flags.Top, patternTokenLimit)
		if err := renderer.RenderSubjectPatterns(patterns); err != nil {
			return err
		}
	}

	if show("clusters") {
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
	}

	if show("cleanup") {
		if err := renderer.RenderCleanupPlan(engine.BuildCleanupPlan(senders, protected)); err != nil {
			return err
		}
	}

	if annotator != nil {
		insights, err := annotateSenders(ctx, annotator, senders, flags.Address, logger)
		if err != nil {
			return err
		}
		if err := renderer.RenderInsights(insights); err != nil {
			return err
		}
	}

	if flags.CSVPath != "" {
		if err := writer.WriteSenderReport(cfg.GetReport().CSVPath, senders); err != nil {
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

	return nil
}

// validateFlags rejects unknown report and tier names before any work
func validateFlags(flags *di.CLIFlags) error {
	switch flags.Report {
	case "summary", "senders", "categories", "subjects", "clusters", "cleanup", "full":
	default:
		return fmt.Errorf("unknown report: %s", flags.Report)
	}

	if flags.Tier != "" {
		flags.Tier = strings.ToLower(flags.Tier)
		if _, ok := tierNames[flags.Tier]; !ok {
			return fmt.Errorf("unknown tier: %s", flags.Tier)
		}
	}
	return nil
}

// snapshotRecords flattens the snapshot into a deterministic record order,
// oldest first with the id as tie break
func snapshotRecords(snapshot core.CacheSnapshot) []core.MessageRecord {
	records := make([]core.MessageRecord, 0, len(snapshot))
	for _, record := range snapshot {
		records = append(records, record)
	}
	sort.Slice(records, func(i, j int) bool {
		if !records[i].ReceivedAt.Equal(records[j].ReceivedAt) {
			return records[i].ReceivedAt.Before(records[j].ReceivedAt)
		}
		return records[i].ID < records[j].ID
	})
	return records
}

func filterByTier(senders []core.SenderStats, tier core.EngagementTier) []core.SenderStats {
	filtered := make([]core.SenderStats, 0, len(senders))
	for _, s := range senders {
		if s.Tier == tier {
			filtered = append(filtered, s)
		}
	}
	return filtered
}

// annotateSenders generates subject insights for one named sender, or for
// the most ignored senders when no address is given. Per-sender annotation
// failures are logged and skipped.
func annotateSenders(
	ctx context.Context,
	annotator core.SubjectAnnotator,
	senders []core.SenderStats,
	address string,
	logger *zap.Logger,
) ([]core.SubjectInsight, error) {
	targets := senders
	if address != "" {
		address = strings.ToLower(strings.TrimSpace(address))
		found := false
		for _, s := range senders {
			if s.Address == address {
				targets = []core.SenderStats{s}
				found = true
				break
			}
		}
		if !found {
			return nil, fmt.Errorf("sender not found in cache: %s", address)
		}
	} else if len(targets) > annotateTopSenders {
		targets = targets[:annotateTopSenders]
	}

	insights := make([]core.SubjectInsight, 0, len(targets))
	for _, s := range targets {
		insight, err := annotator.AnnotateSubjects(ctx, s.Address, s.Subjects)
		if err != nil {
			logger.Error("Failed to annotate sender",
				zap.String("sender", s.Address),
				zap.Error(err))
			continue
		}
		insights = append(insights, *insight)
	}
	return insights, nil
}
