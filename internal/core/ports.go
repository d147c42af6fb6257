package core

import (
	"context"
)

// MessageSource defines the interface to the remote mail provider
type MessageSource interface {
	// ListMessageIDs returns up to max message ids, newest first
	ListMessageIDs(ctx context.Context, max int64) ([]string, error)

	// FetchMessage fetches one message's metadata by id. Failures carry the
	// transient/permanent/auth distinction via the error taxonomy.
	FetchMessage(ctx context.Context, id string) (*MessageRecord, error)
}

// MetadataCache defines the interface for the persisted metadata cache
type MetadataCache interface {
	// Load reads the full cache document. A missing document yields an
	// empty snapshot, not an error.
	Load(ctx context.Context) (CacheSnapshot, error)

	// Replace atomically replaces the entire cache document
	Replace(ctx context.Context, snapshot CacheSnapshot) error
}

// IntentClassifier assigns a content-intent label to one sender from its
// subject lines
type IntentClassifier interface {
	// Classify returns exactly one label plus a confidence indicator.
	// Empty or whitespace-only subjects contribute no signal.
	Classify(address string, subjects []string) (IntentLabel, float64)
}

// SubjectTokenizer splits one subject line into normalized analysis tokens
type SubjectTokenizer interface {
	Tokenize(subject string) []string
}

// SubjectAnnotator is the optional richer analysis mode over a sender's
// subjects. Its absence or failure degrades to the rule-first results.
type SubjectAnnotator interface {
	// AnnotateSubjects summarizes the recurring themes in a sender's
	// subject lines
	AnnotateSubjects(ctx context.Context, sender string, subjects []string) (*SubjectInsight, error)
}

// ProtectedChecker reports whether a sender must be excluded from
// cleanup recommendations
type ProtectedChecker interface {
	IsProtected(address string) bool
}
