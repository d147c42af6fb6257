package report

import (
	"bytes"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/mikey/mailbox-auditor/internal/core"
)

func render(t *testing.T, fn func(r *ConsoleRenderer) error) string {
	t.Helper()
	var buf bytes.Buffer
	if err := fn(NewConsoleRenderer(&buf)); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	return buf.String()
}

func TestRenderRun(t *testing.T) {
	started := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	result := &core.AuditResult{
		RunID:        "run-1",
		ListedCount:  120,
		FetchedCount: 30,
		CachedHits:   90,
		PrunedCount:  4,
		StartedAt:    started,
		FinishedAt:   started.Add(3 * time.Second),
	}

	out := render(t, func(r *ConsoleRenderer) error { return r.RenderRun(result) })

	for _, want := range []string{
		"=== Audit Summary ===",
		"Run ID: run-1",
		"Messages listed: 120",
		"Fetched this run: 30",
		"Served from cache: 90",
		"Pruned from cache: 4",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q:\n%s", want, out)
		}
	}
	if strings.Contains(out, "Unresolved") {
		t.Errorf("unresolved section rendered with nothing unresolved:\n%s", out)
	}
}

func TestRenderRunElidesUnresolved(t *testing.T) {
	result := &core.AuditResult{RunID: "run-2"}
	for i := 0; i < 8; i++ {
		result.Unresolved = append(result.Unresolved, core.UnresolvedID{
			ID:       "m" + string(rune('0'+i)),
			Attempts: 3,
			Err:      errors.New("throttled"),
		})
	}

	out := render(t, func(r *ConsoleRenderer) error { return r.RenderRun(result) })

	if !strings.Contains(out, "Unresolved messages: 8") {
		t.Errorf("output missing the unresolved count:\n%s", out)
	}
	if !strings.Contains(out, "m0 (after 3 attempts)") {
		t.Errorf("output missing the first unresolved id:\n%s", out)
	}
	if !strings.Contains(out, "... and 3 more") {
		t.Errorf("output missing the elision line:\n%s", out)
	}
}

func TestRenderMetrics(t *testing.T) {
	metrics := &core.MailboxMetrics{
		TotalMessages:      1200,
		TotalUnread:        480,
		UnreadRate:         0.4,
		AvgOpenRate:        0.55,
		SenderCount:        85,
		NeverOpenedSenders: 12,
		TopSenderVolume:    96,
		NoiseScore:         0.271,
		HealthScore:        59.3,
	}

	out := render(t, func(r *ConsoleRenderer) error { return r.RenderMetrics(metrics) })

	for _, want := range []string{
		"=== Mailbox Metrics ===",
		"Total messages: 1200",
		"Total unread: 480 (40.0%)",
		"Average open rate: 55.0%",
		"Never-opened senders: 12",
		"Noise score: 0.271",
		"Health score: 59.3 / 100",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q:\n%s", want, out)
		}
	}
}

func TestRenderSenders(t *testing.T) {
	senders := []core.SenderStats{
		{
			Address: "noise@list.com", MessageCount: 40, UnreadCount: 38,
			UnreadRate: 0.95, OpenRate: 0.05, IgnoranceScore: 0.785,
			Tier: core.TierLow, Intent: core.IntentPromotional, IntentConfidence: 0.9,
		},
		{
			Address: "friend@gmail.com", MessageCount: 6, UnreadCount: 0,
			OpenRate: 1.0, IgnoranceScore: 0.018,
			Tier: core.TierHigh, Intent: core.IntentOther,
		},
	}

	out := render(t, func(r *ConsoleRenderer) error { return r.RenderSenders(senders, 0) })

	if !strings.Contains(out, "=== Top Senders ===") {
		t.Errorf("output missing the section header:\n%s", out)
	}
	if !strings.Contains(out, "noise@list.com") || !strings.Contains(out, "friend@gmail.com") {
		t.Errorf("output missing sender rows:\n%s", out)
	}
	if strings.Contains(out, "clamped") {
		t.Errorf("clamp footnote rendered with no clamped sender:\n%s", out)
	}
}

func TestRenderSendersTopLimit(t *testing.T) {
	senders := []core.SenderStats{
		{Address: "first@a.com", MessageCount: 9},
		{Address: "second@b.com", MessageCount: 3},
	}

	out := render(t, func(r *ConsoleRenderer) error { return r.RenderSenders(senders, 1) })

	if !strings.Contains(out, "first@a.com") {
		t.Errorf("output missing the top sender:\n%s", out)
	}
	if strings.Contains(out, "second@b.com") {
		t.Errorf("output shows a sender beyond the limit:\n%s", out)
	}
}

func TestRenderSendersClampFootnote(t *testing.T) {
	senders := []core.SenderStats{
		{Address: "odd@list.com", MessageCount: 10, Clamped: true},
	}

	out := render(t, func(r *ConsoleRenderer) error { return r.RenderSenders(senders, 0) })

	if !strings.Contains(out, "* counters were clamped") {
		t.Errorf("output missing the clamp footnote:\n%s", out)
	}
}

func TestRenderSendersEmpty(t *testing.T) {
	out := render(t, func(r *ConsoleRenderer) error { return r.RenderSenders(nil, 10) })
	if !strings.Contains(out, "No senders to report") {
		t.Errorf("output missing the empty notice:\n%s", out)
	}
}

func TestRenderCategories(t *testing.T) {
	categories := []core.CategoryStats{
		{Category: core.CategoryPromotions, MessageCount: 300, UnreadCount: 270, UnreadRate: 0.9},
		{Category: core.CategoryPersonal, MessageCount: 40, UnreadCount: 2, UnreadRate: 0.05},
	}

	out := render(t, func(r *ConsoleRenderer) error { return r.RenderCategories(categories) })

	if !strings.Contains(out, "=== Categories ===") {
		t.Errorf("output missing the section header:\n%s", out)
	}
	if !strings.Contains(out, "promotions") || !strings.Contains(out, "personal") {
		t.Errorf("output missing category rows:\n%s", out)
	}
}

func TestRenderSubjectPatterns(t *testing.T) {
	patterns := []core.SenderSubjectPatterns{
		{
			Address:      "deals@shop.com",
			MessageCount: 37,
			Tokens: []core.TokenCount{
				{Token: "sale", Count: 21},
				{Token: "weekend", Count: 14},
			},
		},
	}

	out := render(t, func(r *ConsoleRenderer) error { return r.RenderSubjectPatterns(patterns) })

	if !strings.Contains(out, "=== Subject Patterns ===") {
		t.Errorf("output missing the section header:\n%s", out)
	}
	if !strings.Contains(out, "deals@shop.com (37 messages): sale (21), weekend (14)") {
		t.Errorf("output missing the pattern line:\n%s", out)
	}
}

func TestRenderSubjectPatternsEmpty(t *testing.T) {
	out := render(t, func(r *ConsoleRenderer) error { return r.RenderSubjectPatterns(nil) })

	if !strings.Contains(out, "No subject data") {
		t.Errorf("output missing the empty notice:\n%s", out)
	}
}

func TestRenderClusters(t *testing.T) {
	clusters := []core.SenderCluster{
		{
			Label: 2, Size: 7, PriorityScore: 1.871,
			MeanIgnorance: 0.9, MeanOpenRate: 0.02, MeanVolume: 35,
			Members: []string{"a@l.com", "b@l.com", "c@l.com", "d@l.com", "e@l.com", "f@l.com", "g@l.com"},
		},
	}

	out := render(t, func(r *ConsoleRenderer) error { return r.RenderClusters(clusters) })

	for _, want := range []string{
		"=== Sender Clusters ===",
		"Cluster 2 (7 senders, priority 1.871)",
		"Mean ignorance: 0.900",
		"a@l.com, b@l.com, c@l.com, d@l.com, e@l.com",
		"... and 2 more",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q:\n%s", want, out)
		}
	}
	if strings.Contains(out, "f@l.com") {
		t.Errorf("output shows a member beyond the preview:\n%s", out)
	}
}

func TestRenderCleanupPlan(t *testing.T) {
	plan := &core.CleanupPlan{
		Unsubscribe: []core.SenderStats{
			{Address: "blast@spam.com", MessageCount: 40, UnreadRate: 1.0},
		},
		Protected: []core.SenderStats{
			{Address: "news@corp.com", MessageCount: 12, UnreadRate: 0.8},
		},
	}

	out := render(t, func(r *ConsoleRenderer) error { return r.RenderCleanupPlan(plan) })

	for _, want := range []string{
		"=== Cleanup Plan ===",
		"advisory only",
		"Unsubscribe candidates (1):",
		"blast@spam.com (40 messages, 100.0% unread)",
		"Worth reviewing (0):",
		"  none",
		"Protected senders (1):",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q:\n%s", want, out)
		}
	}
}

func TestRenderDelta(t *testing.T) {
	delta := &core.MetricsDelta{
		TotalMessages:      25,
		UnreadRate:         -0.03,
		AvgOpenRate:        0.012,
		NeverOpenedSenders: -2,
		TopSenderVolume:    0,
	}

	out := render(t, func(r *ConsoleRenderer) error { return r.RenderDelta(delta) })

	for _, want := range []string{
		"=== Change Since Baseline ===",
		"Total messages: +25",
		"Unread rate: -3.0pp",
		"Average open rate: +1.2pp",
		"Never-opened senders: -2",
		"Top sender volume: +0",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q:\n%s", want, out)
		}
	}
}

func TestRenderInsights(t *testing.T) {
	insights := []core.SubjectInsight{
		{
			Sender:    "deals@shop.com",
			Themes:    []string{"discounts", "urgency"},
			Summary:   "Weekly promotions with countdown framing.",
			ModelUsed: "gpt-4",
		},
	}

	out := render(t, func(r *ConsoleRenderer) error { return r.RenderInsights(insights) })

	for _, want := range []string{
		"=== Subject Insights ===",
		"Sender: deals@shop.com",
		"Themes: discounts, urgency",
		"Summary: Weekly promotions with countdown framing.",
		"Model used: gpt-4",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q:\n%s", want, out)
		}
	}
}
