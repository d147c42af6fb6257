package core

import (
	"fmt"
	"sort"
	"strings"

	"github.com/montanaflynn/stats"
	"go.uber.org/zap"
)

// Engagement tier thresholds. These are the tunable policy surface of
// the whole tool, so they live here as named constants rather than
// inline literals.
const (
	tierLowCeiling    = 0.25
	tierMediumCeiling = 0.60
)

// Health score weights. Health blends aggregate open rate, inverse
// unread rate, and sender diversity into a 0-100 number surfaced to
// the user.
const (
	healthOpenWeight      = 0.5
	healthUnreadWeight    = 0.3
	healthDiversityWeight = 0.2
)

const defaultVolumeCap = 100

// Tier classifies a sender's engagement from its open rate. The message
// count is part of the contract so the policy can later take volume into
// account without changing call sites.
func Tier(openRate float64, messageCount int) EngagementTier {
	switch {
	case openRate == 0:
		return TierZero
	case openRate < tierLowCeiling:
		return TierLow
	case openRate < tierMediumCeiling:
		return TierMedium
	default:
		return TierHigh
	}
}

// MetricsEngine derives per-sender and mailbox-level engagement metrics
// from an audit dataset. All computation is synchronous and operates on
// the immutable snapshot the orchestrator produced.
type MetricsEngine struct {
	classifier         IntentClassifier
	tokenizer          SubjectTokenizer
	logger             *zap.Logger
	volumeCap          int
	unreadWeight       float64
	volumeWeight       float64
	distinctOpenSignal bool
	minCleanupVolume   int
}

// NewMetricsEngine creates a new metrics engine
func NewMetricsEngine(
	classifier IntentClassifier,
	tokenizer SubjectTokenizer,
	logger *zap.Logger,
	volumeCap int,
	unreadWeight float64,
	volumeWeight float64,
	distinctOpenSignal bool,
	minCleanupVolume int,
) *MetricsEngine {
	if volumeCap <= 0 {
		volumeCap = defaultVolumeCap
	}
	return &MetricsEngine{
		classifier:         classifier,
		tokenizer:          tokenizer,
		logger:             logger,
		volumeCap:          volumeCap,
		unreadWeight:       unreadWeight,
		volumeWeight:       volumeWeight,
		distinctOpenSignal: distinctOpenSignal,
		minCleanupVolume:   minCleanupVolume,
	}
}

// Ignorance computes the ignorance score for one sender: a weighted
// combination of unread rate and volume, with volume normalized against
// the cap so a single extreme sender cannot dominate the scale.
func (e *MetricsEngine) Ignorance(unreadRate float64, messageCount int) float64 {
	volume := float64(messageCount) / float64(e.volumeCap)
	if volume > 1 {
		volume = 1
	}
	return unreadRate*e.unreadWeight + volume*e.volumeWeight
}

type senderAccum struct {
	count    int
	unread   int
	opened   int
	subjects []string
}

// AggregateSenders groups the dataset by sender address and computes
// the per-sender statistics, sorted by ignorance score descending.
func (e *MetricsEngine) AggregateSenders(records []MessageRecord) ([]SenderStats, error) {
	if len(records) == 0 {
		return nil, NewInsufficientDataError("aggregate senders", 1, 0)
	}

	accum := make(map[string]*senderAccum)
	lastSeen := make(map[string]MessageRecord)
	for _, record := range records {
		address := strings.ToLower(strings.TrimSpace(record.Sender))
		a, ok := accum[address]
		if !ok {
			a = &senderAccum{}
			accum[address] = a
		}
		a.count++
		if record.IsUnread {
			a.unread++
		}
		if record.IsOpened {
			a.opened++
		}
		if last, ok := lastSeen[address]; !ok || record.ReceivedAt.After(last.ReceivedAt) {
			lastSeen[address] = record
		}
		if strings.TrimSpace(record.Subject) != "" {
			a.subjects = append(a.subjects, record.Subject)
		}
	}

	senders := make([]SenderStats, 0, len(accum))
	for address, a := range accum {
		opened := a.opened
		if !e.distinctOpenSignal {
			// Without a distinct open signal, read is the best
			// available proxy for opened.
			opened = a.count - a.unread
		}

		clamped := false
		if opened > a.count {
			integrity := &DataIntegrityError{
				Sender: address,
				Field:  "opened_count",
				Value:  opened,
				Limit:  a.count,
			}
			e.logger.Warn("Clamping sender stats", zap.Error(integrity))
			opened = a.count
			clamped = true
		}

		unreadRate := float64(a.unread) / float64(a.count)
		openRate := float64(opened) / float64(a.count)
		intent, confidence := e.classifier.Classify(address, a.subjects)

		senders = append(senders, SenderStats{
			Address:          address,
			MessageCount:     a.count,
			UnreadCount:      a.unread,
			OpenedCount:      opened,
			UnreadRate:       unreadRate,
			OpenRate:         openRate,
			IgnoranceScore:   e.Ignorance(unreadRate, a.count),
			Tier:             Tier(openRate, a.count),
			Intent:           intent,
			IntentConfidence: confidence,
			LastReceived:     lastSeen[address].ReceivedAt,
			Subjects:         a.subjects,
			Clamped:          clamped,
		})
	}

	sort.Slice(senders, func(i, j int) bool {
		if senders[i].IgnoranceScore != senders[j].IgnoranceScore {
			return senders[i].IgnoranceScore > senders[j].IgnoranceScore
		}
		if senders[i].MessageCount != senders[j].MessageCount {
			return senders[i].MessageCount > senders[j].MessageCount
		}
		return senders[i].Address < senders[j].Address
	})

	return senders, nil
}

// MailboxSummary computes the report-level metrics across all senders.
// NoiseScore is total unread weighted by sender ignorance, normalized to
// the mailbox size.
func (e *MetricsEngine) MailboxSummary(senders []SenderStats) (*MailboxMetrics, error) {
	if len(senders) == 0 {
		return nil, NewInsufficientDataError("mailbox summary", 1, 0)
	}

	var (
		totalMessages int
		totalUnread   int
		neverOpened   int
		topVolume     int
		noise         float64
	)
	openRates := make([]float64, len(senders))
	for i, s := range senders {
		totalMessages += s.MessageCount
		totalUnread += s.UnreadCount
		if s.OpenedCount == 0 {
			neverOpened++
		}
		if s.MessageCount > topVolume {
			topVolume = s.MessageCount
		}
		noise += float64(s.UnreadCount) * s.IgnoranceScore
		openRates[i] = s.OpenRate
	}

	avgOpenRate, err := stats.Mean(openRates)
	if err != nil {
		return nil, fmt.Errorf("failed to compute mean open rate: %w", err)
	}

	unreadRate := float64(totalUnread) / float64(totalMessages)
	diversity := float64(len(senders)) / float64(totalMessages)
	health := 100 * (healthOpenWeight*avgOpenRate +
		healthUnreadWeight*(1-unreadRate) +
		healthDiversityWeight*diversity)

	return &MailboxMetrics{
		TotalMessages:      totalMessages,
		TotalUnread:        totalUnread,
		UnreadRate:         unreadRate,
		AvgOpenRate:        avgOpenRate,
		SenderCount:        len(senders),
		NeverOpenedSenders: neverOpened,
		TopSenderVolume:    topVolume,
		NoiseScore:         noise / float64(totalMessages),
		HealthScore:        health,
	}, nil
}

// CategoryBreakdown summarizes the dataset per provider category,
// sorted by volume descending.
func (e *MetricsEngine) CategoryBreakdown(records []MessageRecord) []CategoryStats {
	counts := make(map[string]*CategoryStats)
	for _, record := range records {
		category := record.Category
		if category == "" {
			category = CategoryUncategorized
		}
		c, ok := counts[category]
		if !ok {
			c = &CategoryStats{Category: category}
			counts[category] = c
		}
		c.MessageCount++
		if record.IsUnread {
			c.UnreadCount++
		}
	}

	breakdown := make([]CategoryStats, 0, len(counts))
	for _, c := range counts {
		c.UnreadRate = float64(c.UnreadCount) / float64(c.MessageCount)
		breakdown = append(breakdown, *c)
	}
	sort.Slice(breakdown, func(i, j int) bool {
		if breakdown[i].MessageCount != breakdown[j].MessageCount {
			return breakdown[i].MessageCount > breakdown[j].MessageCount
		}
		return breakdown[i].Category < breakdown[j].Category
	})
	return breakdown
}

// SubjectPatterns returns the most common subject tokens for the top
// senders, in the order the senders were given. Senders whose subjects
// yield no tokens are skipped.
func (e *MetricsEngine) SubjectPatterns(senders []SenderStats, topSenders, tokensPerSender int) []SenderSubjectPatterns {
	if topSenders > 0 && len(senders) > topSenders {
		senders = senders[:topSenders]
	}

	patterns := make([]SenderSubjectPatterns, 0, len(senders))
	for _, s := range senders {
		counts := make(map[string]int)
		for _, subject := range s.Subjects {
			for _, token := range e.tokenizer.Tokenize(subject) {
				counts[token]++
			}
		}
		if len(counts) == 0 {
			continue
		}

		tokens := make([]TokenCount, 0, len(counts))
		for token, count := range counts {
			tokens = append(tokens, TokenCount{Token: token, Count: count})
		}
		sort.Slice(tokens, func(i, j int) bool {
			if tokens[i].Count != tokens[j].Count {
				return tokens[i].Count > tokens[j].Count
			}
			return tokens[i].Token < tokens[j].Token
		})
		if tokensPerSender > 0 && len(tokens) > tokensPerSender {
			tokens = tokens[:tokensPerSender]
		}

		patterns = append(patterns, SenderSubjectPatterns{
			Address:      s.Address,
			MessageCount: s.MessageCount,
			Tokens:       tokens,
		})
	}
	return patterns
}

// BuildCleanupPlan buckets senders into advisory cleanup actions.
// Protected domains are never recommended for removal regardless of
// their metrics. The plan is advisory only; the tool never mutates the
// mailbox.
func (e *MetricsEngine) BuildCleanupPlan(senders []SenderStats, protected ProtectedChecker) *CleanupPlan {
	plan := &CleanupPlan{}
	for _, s := range senders {
		if protected != nil && protected.IsProtected(s.Address) {
			if s.Tier == TierZero || s.Tier == TierLow {
				plan.Protected = append(plan.Protected, s)
			}
			continue
		}
		switch {
		case s.Tier == TierZero && s.MessageCount >= e.minCleanupVolume:
			plan.Unsubscribe = append(plan.Unsubscribe, s)
		case s.Tier == TierZero || s.Tier == TierLow:
			plan.Review = append(plan.Review, s)
		}
	}
	return plan
}

// CompareMetrics diffs a current summary against a baseline, positive
// deltas meaning the metric grew since the baseline run.
func (e *MetricsEngine) CompareMetrics(current, baseline *MailboxMetrics) *MetricsDelta {
	return &MetricsDelta{
		TotalMessages:      current.TotalMessages - baseline.TotalMessages,
		UnreadRate:         current.UnreadRate - baseline.UnreadRate,
		AvgOpenRate:        current.AvgOpenRate - baseline.AvgOpenRate,
		NeverOpenedSenders: current.NeverOpenedSenders - baseline.NeverOpenedSenders,
		TopSenderVolume:    current.TopSenderVolume - baseline.TopSenderVolume,
	}
}
