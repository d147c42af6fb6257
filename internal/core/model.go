package core

import (
	"sort"
	"time"
)

// MessageRecord is the fixed metadata schema for one mailbox message. The
// provider adapter normalizes into this shape at the ingestion boundary;
// downstream stages never see provider-specific payloads.
type MessageRecord struct {
	ID         string    `json:"id"`
	Sender     string    `json:"sender"`
	Subject    string    `json:"subject"`
	ReceivedAt time.Time `json:"received_at"`
	IsUnread   bool      `json:"is_unread"`
	IsOpened   bool      `json:"is_opened"`
	Category   string    `json:"category,omitempty"`
	Labels     []string  `json:"labels,omitempty"`
}

// Provider-assigned message categories
const (
	CategoryPromotions    = "promotions"
	CategorySocial        = "social"
	CategoryUpdates       = "updates"
	CategoryForums        = "forums"
	CategoryPersonal      = "personal"
	CategoryUncategorized = "uncategorized"
)

// CacheSnapshot is the in-memory form of the metadata cache: message id to
// record. It is a plain value passed through Merge and Prune so cache logic
// stays testable without I/O.
type CacheSnapshot map[string]MessageRecord

// Merge returns a snapshot containing every record of the receiver plus the
// given records, fetched records winning on id collision. Merging the same
// batch twice yields the same snapshot.
func (s CacheSnapshot) Merge(records []MessageRecord) CacheSnapshot {
	merged := make(CacheSnapshot, len(s)+len(records))
	for id, rec := range s {
		merged[id] = rec
	}
	for _, rec := range records {
		if rec.ID == "" {
			continue
		}
		merged[rec.ID] = rec
	}
	return merged
}

// Prune returns a snapshot restricted to ids present in the given complete
// listing. Ids absent from the listing were deleted or moved outside this
// tool and are dropped.
func (s CacheSnapshot) Prune(listing []string) CacheSnapshot {
	keep := make(map[string]struct{}, len(listing))
	for _, id := range listing {
		keep[id] = struct{}{}
	}
	pruned := make(CacheSnapshot, len(listing))
	for id, rec := range s {
		if _, ok := keep[id]; ok {
			pruned[id] = rec
		}
	}
	return pruned
}

// IDs returns the snapshot's message ids in sorted order.
func (s CacheSnapshot) IDs() []string {
	ids := make([]string, 0, len(s))
	for id := range s {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// EngagementTier buckets a sender by open behavior
type EngagementTier string

const (
	TierHigh   EngagementTier = "high"
	TierMedium EngagementTier = "medium"
	TierLow    EngagementTier = "low"
	TierZero   EngagementTier = "zero"
)

// IntentLabel is the coarse content category assigned to a sender's messages
type IntentLabel string

const (
	IntentPromotional   IntentLabel = "promotional"
	IntentTransactional IntentLabel = "transactional"
	IntentInformational IntentLabel = "informational"
	IntentSocial        IntentLabel = "social"
	IntentOther         IntentLabel = "other"
)

// SenderStats is the per-sender aggregate derived from one audit dataset.
// It is recomputed each run and never persisted.
type SenderStats struct {
	Address          string
	MessageCount     int
	UnreadCount      int
	OpenedCount      int
	UnreadRate       float64
	OpenRate         float64
	IgnoranceScore   float64
	Tier             EngagementTier
	Intent           IntentLabel
	IntentConfidence float64
	LastReceived     time.Time
	Subjects         []string
	Clamped          bool
}

// MailboxMetrics is the report-level summary across all senders
type MailboxMetrics struct {
	TotalMessages      int
	TotalUnread        int
	UnreadRate         float64
	AvgOpenRate        float64
	SenderCount        int
	NeverOpenedSenders int
	TopSenderVolume    int
	NoiseScore         float64
	HealthScore        float64
}

// MetricsDelta is the difference between a current and a baseline summary
type MetricsDelta struct {
	TotalMessages      int
	UnreadRate         float64
	AvgOpenRate        float64
	NeverOpenedSenders int
	TopSenderVolume    int
}

// CategoryStats summarizes one provider category across the dataset
type CategoryStats struct {
	Category     string
	MessageCount int
	UnreadCount  int
	UnreadRate   float64
}

// SenderCluster is one group of senders produced by the clustering engine.
// Numeric labels carry no meaning across runs; consumers should key off the
// centroid statistics.
type SenderCluster struct {
	Label         int
	Members       []string
	Size          int
	Centroid      []float64
	MeanIgnorance float64
	MeanOpenRate  float64
	MeanVolume    float64
	PriorityScore float64
}

// CleanupPlan lists advisory cleanup recommendations derived from sender
// stats. The tool never acts on them.
type CleanupPlan struct {
	Unsubscribe []SenderStats
	Review      []SenderStats
	Protected   []SenderStats
}

// TokenCount is one normalized subject token and how often it occurs
// across a sender's messages
type TokenCount struct {
	Token string
	Count int
}

// SenderSubjectPatterns lists the recurring subject tokens of one sender
type SenderSubjectPatterns struct {
	Address      string
	MessageCount int
	Tokens       []TokenCount
}

// SubjectInsight is the optional annotator's summary of a sender's subjects
type SubjectInsight struct {
	Sender      string
	Themes      []string
	Summary     string
	ModelUsed   string
	GeneratedAt time.Time
}

// UnresolvedID records a message id the collector could not fetch this run
type UnresolvedID struct {
	ID       string
	Attempts int
	Err      error
}

// CollectResult is the outcome of one collector run: fully-validated records
// plus the ids left unresolved for diagnostics.
type CollectResult struct {
	Records    []MessageRecord
	Unresolved []UnresolvedID
}

// AuditResult is the outcome of one end-to-end audit run
type AuditResult struct {
	RunID        string
	Dataset      []MessageRecord
	ListedCount  int
	FetchedCount int
	CachedHits   int
	PrunedCount  int
	Unresolved   []UnresolvedID
	StartedAt    time.Time
	FinishedAt   time.Time
}
