package core

import (
	"math"
	"reflect"
	"strings"
	"testing"
	"time"

	"go.uber.org/zap"
)

type stubIntentClassifier struct {
	labels map[string]IntentLabel
}

func (s *stubIntentClassifier) Classify(address string, subjects []string) (IntentLabel, float64) {
	if label, ok := s.labels[address]; ok {
		return label, 0.8
	}
	return IntentOther, 0
}

// stubTokenizer lowercases, splits on whitespace and keeps words longer
// than three characters.
type stubTokenizer struct{}

func (stubTokenizer) Tokenize(subject string) []string {
	var tokens []string
	for _, field := range strings.Fields(strings.ToLower(subject)) {
		if len(field) > 3 {
			tokens = append(tokens, field)
		}
	}
	return tokens
}

type stubChecker map[string]bool

func (s stubChecker) IsProtected(address string) bool { return s[address] }

func newTestEngine(t *testing.T) *MetricsEngine {
	t.Helper()
	classifier := &stubIntentClassifier{labels: map[string]IntentLabel{
		"a@x.com": IntentPromotional,
		"b@y.com": IntentTransactional,
	}}
	return NewMetricsEngine(classifier, stubTokenizer{}, zap.NewNop(), 100, 0.7, 0.3, false, 5)
}

func approx(t *testing.T, name string, got, want float64) {
	t.Helper()
	if math.Abs(got-want) > 1e-9 {
		t.Errorf("%s = %v, want %v", name, got, want)
	}
}

func TestTier(t *testing.T) {
	tests := []struct {
		name     string
		openRate float64
		count    int
		want     EngagementTier
	}{
		{"no opens at all is zero, not low", 0, 10, TierZero},
		{"barely opened is low", 0.01, 10, TierLow},
		{"just under the low ceiling", 0.2499, 10, TierLow},
		{"low ceiling starts medium", 0.25, 10, TierMedium},
		{"just under the medium ceiling", 0.5999, 10, TierMedium},
		{"medium ceiling starts high", 0.60, 10, TierHigh},
		{"fully read", 1.0, 10, TierHigh},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Tier(tt.openRate, tt.count); got != tt.want {
				t.Errorf("Tier(%v, %d) = %v, want %v", tt.openRate, tt.count, got, tt.want)
			}
		})
	}
}

func TestIgnorance(t *testing.T) {
	engine := newTestEngine(t)

	tests := []struct {
		name       string
		unreadRate float64
		count      int
		want       float64
	}{
		{"all unread at the volume cap", 1.0, 100, 1.0},
		{"all read low volume", 0, 50, 0.15},
		{"volume saturates at the cap", 1.0, 1000, 1.0},
		{"mixed", 0.5, 10, 0.5*0.7 + 0.1*0.3},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			approx(t, "ignorance", engine.Ignorance(tt.unreadRate, tt.count), tt.want)
		})
	}
}

func TestIgnoranceMonotonicInUnread(t *testing.T) {
	engine := newTestEngine(t)
	prev := -1.0
	for _, unreadRate := range []float64{0, 0.25, 0.5, 0.75, 1.0} {
		score := engine.Ignorance(unreadRate, 10)
		if score <= prev {
			t.Fatalf("ignorance(%v) = %v, want > %v", unreadRate, score, prev)
		}
		prev = score
	}
}

func TestAggregateSenders(t *testing.T) {
	engine := newTestEngine(t)
	base := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)

	records := []MessageRecord{
		{ID: "m1", Sender: "a@x.com", Subject: "Huge sale this weekend", IsUnread: true, ReceivedAt: base},
		{ID: "m2", Sender: " A@X.com ", Subject: "Last chance", IsUnread: true, ReceivedAt: base.Add(time.Hour)},
		{ID: "m3", Sender: "a@x.com", Subject: "", IsUnread: false, IsOpened: true, ReceivedAt: base.Add(2 * time.Hour)},
		{ID: "m4", Sender: "b@y.com", Subject: "Receipt #123", IsUnread: false, IsOpened: true, ReceivedAt: base},
		{ID: "m5", Sender: "b@y.com", Subject: "Receipt #456", IsUnread: false, IsOpened: true, ReceivedAt: base.Add(time.Minute)},
	}

	senders, err := engine.AggregateSenders(records)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(senders) != 2 {
		t.Fatalf("senders = %d, want 2", len(senders))
	}

	// Highest ignorance first.
	a := senders[0]
	if a.Address != "a@x.com" {
		t.Fatalf("first sender = %s, want a@x.com", a.Address)
	}
	if a.MessageCount != 3 || a.UnreadCount != 2 || a.OpenedCount != 1 {
		t.Errorf("counts = %d/%d/%d, want 3/2/1", a.MessageCount, a.UnreadCount, a.OpenedCount)
	}
	approx(t, "unread rate", a.UnreadRate, 2.0/3.0)
	approx(t, "open rate", a.OpenRate, 1.0/3.0)
	approx(t, "ignorance", a.IgnoranceScore, (2.0/3.0)*0.7+0.03*0.3)
	if a.Tier != TierMedium {
		t.Errorf("tier = %v, want %v", a.Tier, TierMedium)
	}
	if a.Intent != IntentPromotional {
		t.Errorf("intent = %v, want %v", a.Intent, IntentPromotional)
	}
	if !a.LastReceived.Equal(base.Add(2 * time.Hour)) {
		t.Errorf("last received = %v, want %v", a.LastReceived, base.Add(2*time.Hour))
	}
	// The empty subject contributes nothing.
	if len(a.Subjects) != 2 {
		t.Errorf("subjects = %v, want 2 entries", a.Subjects)
	}

	b := senders[1]
	if b.Address != "b@y.com" {
		t.Fatalf("second sender = %s, want b@y.com", b.Address)
	}
	if b.Tier != TierHigh {
		t.Errorf("tier = %v, want %v", b.Tier, TierHigh)
	}
	if b.Intent != IntentTransactional {
		t.Errorf("intent = %v, want %v", b.Intent, IntentTransactional)
	}
	approx(t, "open rate", b.OpenRate, 1.0)
}

func TestAggregateSendersEmpty(t *testing.T) {
	engine := newTestEngine(t)
	_, err := engine.AggregateSenders(nil)
	if !IsInsufficientData(err) {
		t.Errorf("err = %v, want insufficient data", err)
	}
}

// Without a distinct open signal the unread flag drives the opened count.
// With one, the opened flags are trusted as-is.
func TestAggregateSendersOpenSignal(t *testing.T) {
	records := []MessageRecord{
		{ID: "m1", Sender: "a@x.com", IsUnread: false, IsOpened: false},
		{ID: "m2", Sender: "a@x.com", IsUnread: false, IsOpened: false},
	}

	classifier := &stubIntentClassifier{}
	proxy := NewMetricsEngine(classifier, stubTokenizer{}, zap.NewNop(), 100, 0.7, 0.3, false, 5)
	distinct := NewMetricsEngine(classifier, stubTokenizer{}, zap.NewNop(), 100, 0.7, 0.3, true, 5)

	fromProxy, err := proxy.AggregateSenders(records)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if fromProxy[0].OpenedCount != 2 || fromProxy[0].Tier != TierHigh {
		t.Errorf("proxy opened = %d tier = %v, want 2 high", fromProxy[0].OpenedCount, fromProxy[0].Tier)
	}

	fromFlags, err := distinct.AggregateSenders(records)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if fromFlags[0].OpenedCount != 0 || fromFlags[0].Tier != TierZero {
		t.Errorf("distinct opened = %d tier = %v, want 0 zero", fromFlags[0].OpenedCount, fromFlags[0].Tier)
	}
}

func TestAggregateSendersTieBreaks(t *testing.T) {
	// Zero weights force every ignorance score to zero so the
	// secondary ordering decides.
	engine := NewMetricsEngine(&stubIntentClassifier{}, stubTokenizer{}, zap.NewNop(), 100, 0, 0, false, 5)

	records := []MessageRecord{
		{ID: "m1", Sender: "c@z.com"},
		{ID: "m2", Sender: "b@y.com"},
		{ID: "m3", Sender: "b@y.com"},
		{ID: "m4", Sender: "a@x.com"},
	}

	senders, err := engine.AggregateSenders(records)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	// b has the most messages; a and c tie and fall back to address order.
	want := []string{"b@y.com", "a@x.com", "c@z.com"}
	for i, addr := range want {
		if senders[i].Address != addr {
			t.Errorf("senders[%d] = %s, want %s", i, senders[i].Address, addr)
		}
	}
}

func TestMailboxSummary(t *testing.T) {
	engine := newTestEngine(t)

	senders := []SenderStats{
		{Address: "a@x.com", MessageCount: 3, UnreadCount: 2, OpenedCount: 1, OpenRate: 1.0 / 3.0, IgnoranceScore: 0.5},
		{Address: "b@y.com", MessageCount: 2, UnreadCount: 0, OpenedCount: 2, OpenRate: 1.0, IgnoranceScore: 0.1},
		{Address: "c@z.com", MessageCount: 1, UnreadCount: 1, OpenedCount: 0, OpenRate: 0, IgnoranceScore: 0.9},
	}

	metrics, err := engine.MailboxSummary(senders)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if metrics.TotalMessages != 6 || metrics.TotalUnread != 3 {
		t.Errorf("totals = %d/%d, want 6/3", metrics.TotalMessages, metrics.TotalUnread)
	}
	if metrics.SenderCount != 3 {
		t.Errorf("sender count = %d, want 3", metrics.SenderCount)
	}
	if metrics.NeverOpenedSenders != 1 {
		t.Errorf("never opened = %d, want 1", metrics.NeverOpenedSenders)
	}
	if metrics.TopSenderVolume != 3 {
		t.Errorf("top volume = %d, want 3", metrics.TopSenderVolume)
	}
	approx(t, "unread rate", metrics.UnreadRate, 0.5)
	approx(t, "avg open rate", metrics.AvgOpenRate, (1.0/3.0+1.0+0)/3.0)
	approx(t, "noise", metrics.NoiseScore, (2*0.5+0*0.1+1*0.9)/6.0)

	wantHealth := 100 * (0.5*((1.0/3.0+1.0+0)/3.0) + 0.3*0.5 + 0.2*0.5)
	approx(t, "health", metrics.HealthScore, wantHealth)
}

func TestMailboxSummaryEmpty(t *testing.T) {
	engine := newTestEngine(t)
	_, err := engine.MailboxSummary(nil)
	if !IsInsufficientData(err) {
		t.Errorf("err = %v, want insufficient data", err)
	}
}

func TestCategoryBreakdown(t *testing.T) {
	engine := newTestEngine(t)

	records := []MessageRecord{
		{ID: "m1", Category: CategoryPromotions, IsUnread: true},
		{ID: "m2", Category: CategoryPromotions},
		{ID: "m3", Category: CategoryUpdates, IsUnread: true},
		{ID: "m4", Category: CategoryUpdates, IsUnread: true},
		{ID: "m5", Category: ""},
	}

	breakdown := engine.CategoryBreakdown(records)
	if len(breakdown) != 3 {
		t.Fatalf("categories = %d, want 3", len(breakdown))
	}

	// Volume descending, name ascending on ties.
	want := []string{CategoryPromotions, CategoryUpdates, CategoryUncategorized}
	for i, category := range want {
		if breakdown[i].Category != category {
			t.Errorf("breakdown[%d] = %s, want %s", i, breakdown[i].Category, category)
		}
	}
	approx(t, "promotions unread rate", breakdown[0].UnreadRate, 0.5)
	approx(t, "updates unread rate", breakdown[1].UnreadRate, 1.0)
}

func TestSubjectPatterns(t *testing.T) {
	engine := newTestEngine(t)

	senders := []SenderStats{
		{
			Address:      "deals@shop.com",
			MessageCount: 3,
			Subjects:     []string{"Weekend sale starts", "Weekend sale ends", "Final sale"},
		},
		{
			Address:      "tied@z.com",
			MessageCount: 2,
			Subjects:     []string{"alpha beta", "beta alpha"},
		},
		{
			Address:      "quiet@x.com",
			MessageCount: 1,
			Subjects:     []string{"hi"},
		},
		{
			Address:      "extra@w.com",
			MessageCount: 1,
			Subjects:     []string{"Something else entirely"},
		},
	}

	patterns := engine.SubjectPatterns(senders, 3, 2)

	// quiet yields no tokens and extra is beyond the top limit.
	if len(patterns) != 2 {
		t.Fatalf("patterns = %d, want 2", len(patterns))
	}

	deals := patterns[0]
	if deals.Address != "deals@shop.com" || deals.MessageCount != 3 {
		t.Errorf("pattern = %s/%d, want deals@shop.com/3", deals.Address, deals.MessageCount)
	}
	wantTokens := []TokenCount{{Token: "sale", Count: 3}, {Token: "weekend", Count: 2}}
	if !reflect.DeepEqual(deals.Tokens, wantTokens) {
		t.Errorf("tokens = %v, want %v", deals.Tokens, wantTokens)
	}

	// Equal counts fall back to alphabetical order.
	wantTied := []TokenCount{{Token: "alpha", Count: 2}, {Token: "beta", Count: 2}}
	if !reflect.DeepEqual(patterns[1].Tokens, wantTied) {
		t.Errorf("tokens = %v, want %v", patterns[1].Tokens, wantTied)
	}
}

func TestBuildCleanupPlan(t *testing.T) {
	engine := newTestEngine(t)
	protected := stubChecker{"news@corp.com": true, "boss@corp.com": true}

	senders := []SenderStats{
		{Address: "blast@spam.com", MessageCount: 10, Tier: TierZero},
		{Address: "rare@spam.com", MessageCount: 2, Tier: TierZero},
		{Address: "meh@list.com", MessageCount: 50, Tier: TierLow},
		{Address: "ok@friend.com", MessageCount: 5, Tier: TierMedium},
		{Address: "news@corp.com", MessageCount: 30, Tier: TierZero},
		{Address: "boss@corp.com", MessageCount: 4, Tier: TierHigh},
	}

	plan := engine.BuildCleanupPlan(senders, protected)

	if len(plan.Unsubscribe) != 1 || plan.Unsubscribe[0].Address != "blast@spam.com" {
		t.Errorf("unsubscribe = %v, want [blast@spam.com]", planAddresses(plan.Unsubscribe))
	}
	wantReview := []string{"rare@spam.com", "meh@list.com"}
	if got := planAddresses(plan.Review); len(got) != 2 || got[0] != wantReview[0] || got[1] != wantReview[1] {
		t.Errorf("review = %v, want %v", got, wantReview)
	}
	// The protected zero-tier sender is surfaced, the engaged one is not.
	if len(plan.Protected) != 1 || plan.Protected[0].Address != "news@corp.com" {
		t.Errorf("protected = %v, want [news@corp.com]", planAddresses(plan.Protected))
	}
}

func planAddresses(senders []SenderStats) []string {
	addrs := make([]string, 0, len(senders))
	for _, s := range senders {
		addrs = append(addrs, s.Address)
	}
	return addrs
}

func TestCompareMetrics(t *testing.T) {
	engine := newTestEngine(t)

	current := &MailboxMetrics{TotalMessages: 120, UnreadRate: 0.4, AvgOpenRate: 0.5, NeverOpenedSenders: 3, TopSenderVolume: 40}
	baseline := &MailboxMetrics{TotalMessages: 100, UnreadRate: 0.5, AvgOpenRate: 0.45, NeverOpenedSenders: 5, TopSenderVolume: 42}

	delta := engine.CompareMetrics(current, baseline)

	if delta.TotalMessages != 20 {
		t.Errorf("total delta = %d, want 20", delta.TotalMessages)
	}
	approx(t, "unread delta", delta.UnreadRate, -0.1)
	approx(t, "open delta", delta.AvgOpenRate, 0.05)
	if delta.NeverOpenedSenders != -2 {
		t.Errorf("never opened delta = %d, want -2", delta.NeverOpenedSenders)
	}
	if delta.TopSenderVolume != -2 {
		t.Errorf("top volume delta = %d, want -2", delta.TopSenderVolume)
	}
}
