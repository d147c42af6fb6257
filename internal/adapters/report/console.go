package report

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/mikey/mailbox-auditor/internal/core"
)

const (
	// Number of member addresses shown per cluster before eliding the rest.
	clusterMemberPreview = 5

	// Durations in the summary are rounded to this unit.
	timeRounding = 10 * time.Millisecond
)

// ConsoleRenderer renders audit reports as sectioned plain text
type ConsoleRenderer struct {
	out io.Writer
}

// NewConsoleRenderer creates a new ConsoleRenderer writing to out
func NewConsoleRenderer(out io.Writer) *ConsoleRenderer {
	return &ConsoleRenderer{
		out: out,
	}
}

// RenderRun renders the collection counts of a finished audit run
func (r *ConsoleRenderer) RenderRun(result *core.AuditResult) error {
	fmt.Fprintf(r.out, "\n=== Audit Summary ===\n")
	fmt.Fprintf(r.out, "Run ID: %s\n", result.RunID)
	fmt.Fprintf(r.out, "Started: %s\n", result.StartedAt.Format("2006-01-02 15:04:05"))
	fmt.Fprintf(r.out, "Duration: %v\n", result.FinishedAt.Sub(result.StartedAt).Round(timeRounding))
	fmt.Fprintf(r.out, "Messages listed: %d\n", result.ListedCount)
	fmt.Fprintf(r.out, "Fetched this run: %d\n", result.FetchedCount)
	fmt.Fprintf(r.out, "Served from cache: %d\n", result.CachedHits)
	fmt.Fprintf(r.out, "Pruned from cache: %d\n", result.PrunedCount)
	if len(result.Unresolved) > 0 {
		fmt.Fprintf(r.out, "Unresolved messages: %d\n", len(result.Unresolved))
		for i, u := range result.Unresolved {
			if i >= clusterMemberPreview {
				fmt.Fprintf(r.out, "  ... and %d more\n", len(result.Unresolved)-i)
				break
			}
			fmt.Fprintf(r.out, "  %s (after %d attempts)\n", u.ID, u.Attempts)
		}
	}
	return nil
}

// RenderMetrics renders the mailbox-wide metrics
func (r *ConsoleRenderer) RenderMetrics(metrics *core.MailboxMetrics) error {
	fmt.Fprintf(r.out, "\n=== Mailbox Metrics ===\n")
	fmt.Fprintf(r.out, "Total messages: %d\n", metrics.TotalMessages)
	fmt.Fprintf(r.out, "Total unread: %d (%.1f%%)\n", metrics.TotalUnread, metrics.UnreadRate*100)
	fmt.Fprintf(r.out, "Average open rate: %.1f%%\n", metrics.AvgOpenRate*100)
	fmt.Fprintf(r.out, "Distinct senders: %d\n", metrics.SenderCount)
	fmt.Fprintf(r.out, "Never-opened senders: %d\n", metrics.NeverOpenedSenders)
	fmt.Fprintf(r.out, "Top sender volume: %d\n", metrics.TopSenderVolume)
	fmt.Fprintf(r.out, "Noise score: %.3f\n", metrics.NoiseScore)
	fmt.Fprintf(r.out, "Health score: %.1f / 100\n", metrics.HealthScore)
	return nil
}

// RenderSenders renders the top senders ranked by ignorance score
func (r *ConsoleRenderer) RenderSenders(senders []core.SenderStats, top int) error {
	if top <= 0 || top > len(senders) {
		top = len(senders)
	}

	fmt.Fprintf(r.out, "\n=== Top Senders ===\n")
	if len(senders) == 0 {
		fmt.Fprintf(r.out, "No senders to report\n")
		return nil
	}

	fmt.Fprintf(r.out, "%-4s %-42s %6s %7s %8s %7s %10s %-7s %s\n",
		"#", "Sender", "Msgs", "Unread", "Unread%", "Open%", "Ignorance", "Tier", "Intent")

	clamped := false
	for i, s := range senders[:top] {
		marker := ""
		if s.Clamped {
			marker = " *"
			clamped = true
		}
		fmt.Fprintf(r.out, "%-4d %-42.42s %6d %7d %7.1f%% %6.1f%% %10.3f %-7s %s (%.2f)%s\n",
			i+1, s.Address, s.MessageCount, s.UnreadCount,
			s.UnreadRate*100, s.OpenRate*100, s.IgnoranceScore,
			s.Tier, s.Intent, s.IntentConfidence, marker)
	}
	if clamped {
		fmt.Fprintf(r.out, "* counters were clamped to the sender's message total\n")
	}
	return nil
}

// RenderCategories renders the per-category breakdown
func (r *ConsoleRenderer) RenderCategories(categories []core.CategoryStats) error {
	fmt.Fprintf(r.out, "\n=== Categories ===\n")
	if len(categories) == 0 {
		fmt.Fprintf(r.out, "No category data\n")
		return nil
	}

	fmt.Fprintf(r.out, "%-16s %8s %8s %8s\n", "Category", "Msgs", "Unread", "Unread%")
	for _, c := range categories {
		fmt.Fprintf(r.out, "%-16s %8d %8d %7.1f%%\n",
			c.Category, c.MessageCount, c.UnreadCount, c.UnreadRate*100)
	}
	return nil
}

// RenderSubjectPatterns renders the recurring subject tokens of the top
// senders
func (r *ConsoleRenderer) RenderSubjectPatterns(patterns []core.SenderSubjectPatterns) error {
	fmt.Fprintf(r.out, "\n=== Subject Patterns ===\n")
	if len(patterns) == 0 {
		fmt.Fprintf(r.out, "No subject data\n")
		return nil
	}

	for _, p := range patterns {
		tokens := make([]string, len(p.Tokens))
		for i, tc := range p.Tokens {
			tokens[i] = fmt.Sprintf("%s (%d)", tc.Token, tc.Count)
		}
		fmt.Fprintf(r.out, "%s (%d messages): %s\n",
			p.Address, p.MessageCount, strings.Join(tokens, ", "))
	}
	return nil
}

// RenderClusters renders sender clusters in priority order
func (r *ConsoleRenderer) RenderClusters(clusters []core.SenderCluster) error {
	fmt.Fprintf(r.out, "\n=== Sender Clusters ===\n")
	if len(clusters) == 0 {
		fmt.Fprintf(r.out, "No clusters to report\n")
		return nil
	}

	for _, c := range clusters {
		fmt.Fprintf(r.out, "\nCluster %d (%d senders, priority %.3f)\n", c.Label, c.Size, c.PriorityScore)
		fmt.Fprintf(r.out, "  Mean ignorance: %.3f\n", c.MeanIgnorance)
		fmt.Fprintf(r.out, "  Mean open rate: %.1f%%\n", c.MeanOpenRate*100)
		fmt.Fprintf(r.out, "  Mean volume: %.1f\n", c.MeanVolume)

		preview := c.Members
		if len(preview) > clusterMemberPreview {
			preview = preview[:clusterMemberPreview]
		}
		fmt.Fprintf(r.out, "  Members: %s", strings.Join(preview, ", "))
		if len(c.Members) > clusterMemberPreview {
			fmt.Fprintf(r.out, " ... and %d more", len(c.Members)-clusterMemberPreview)
		}
		fmt.Fprintf(r.out, "\n")
	}
	return nil
}

// RenderCleanupPlan renders the advisory cleanup plan
func (r *ConsoleRenderer) RenderCleanupPlan(plan *core.CleanupPlan) error {
	fmt.Fprintf(r.out, "\n=== Cleanup Plan ===\n")
	fmt.Fprintf(r.out, "No action is taken on your mailbox. The plan below is advisory only.\n")

	r.renderPlanSection("Unsubscribe candidates", plan.Unsubscribe)
	r.renderPlanSection("Worth reviewing", plan.Review)
	r.renderPlanSection("Protected senders", plan.Protected)
	return nil
}

func (r *ConsoleRenderer) renderPlanSection(title string, senders []core.SenderStats) {
	fmt.Fprintf(r.out, "\n%s (%d):\n", title, len(senders))
	if len(senders) == 0 {
		fmt.Fprintf(r.out, "  none\n")
		return
	}
	for _, s := range senders {
		fmt.Fprintf(r.out, "  %s (%d messages, %.1f%% unread)\n",
			s.Address, s.MessageCount, s.UnreadRate*100)
	}
}

// RenderDelta renders the comparison against a recorded baseline
func (r *ConsoleRenderer) RenderDelta(delta *core.MetricsDelta) error {
	fmt.Fprintf(r.out, "\n=== Change Since Baseline ===\n")
	fmt.Fprintf(r.out, "Total messages: %+d\n", delta.TotalMessages)
	fmt.Fprintf(r.out, "Unread rate: %+.1fpp\n", delta.UnreadRate*100)
	fmt.Fprintf(r.out, "Average open rate: %+.1fpp\n", delta.AvgOpenRate*100)
	fmt.Fprintf(r.out, "Never-opened senders: %+d\n", delta.NeverOpenedSenders)
	fmt.Fprintf(r.out, "Top sender volume: %+d\n", delta.TopSenderVolume)
	return nil
}

// RenderInsights renders annotator-generated subject insights
func (r *ConsoleRenderer) RenderInsights(insights []core.SubjectInsight) error {
	fmt.Fprintf(r.out, "\n=== Subject Insights ===\n")
	if len(insights) == 0 {
		fmt.Fprintf(r.out, "No insights generated\n")
		return nil
	}

	for _, in := range insights {
		fmt.Fprintf(r.out, "\nSender: %s\n", in.Sender)
		if len(in.Themes) > 0 {
			fmt.Fprintf(r.out, "Themes: %s\n", strings.Join(in.Themes, ", "))
		}
		fmt.Fprintf(r.out, "Summary: %s\n", in.Summary)
		fmt.Fprintf(r.out, "Model used: %s\n", in.ModelUsed)
	}
	return nil
}
