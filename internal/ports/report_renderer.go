package ports

import (
	"github.com/mikey/mailbox-auditor/internal/core"
)

// ReportRenderer defines the interface for rendering audit reports
type ReportRenderer interface {
	// RenderRun renders the collection counts of a finished audit run
	RenderRun(result *core.AuditResult) error

	// RenderMetrics renders the mailbox-wide metrics
	RenderMetrics(metrics *core.MailboxMetrics) error

	// RenderSenders renders the top senders ranked by ignorance score
	RenderSenders(senders []core.SenderStats, top int) error

	// RenderCategories renders the per-category breakdown
	RenderCategories(categories []core.CategoryStats) error

	// RenderSubjectPatterns renders the recurring subject tokens of the
	// top senders
	RenderSubjectPatterns(patterns []core.SenderSubjectPatterns) error

	// RenderClusters renders sender clusters in priority order
	RenderClusters(clusters []core.SenderCluster) error

	// RenderCleanupPlan renders the advisory cleanup plan
	RenderCleanupPlan(plan *core.CleanupPlan) error

	// RenderDelta renders the comparison against a recorded baseline
	RenderDelta(delta *core.MetricsDelta) error

	// RenderInsights renders annotator-generated subject insights
	RenderInsights(insights []core.SubjectInsight) error
}
