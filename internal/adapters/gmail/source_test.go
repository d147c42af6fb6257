package gmail

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/sony/gobreaker"
	"go.uber.org/zap"
	gmailapi "google.golang.org/api/gmail/v1"
	"google.golang.org/api/googleapi"

	"github.com/mikey/mailbox-auditor/internal/core"
	"github.com/mikey/mailbox-auditor/internal/utils"
)

func apiError(code int, reasons ...string) error {
	apiErr := &googleapi.Error{Code: code}
	for _, reason := range reasons {
		apiErr.Errors = append(apiErr.Errors, googleapi.ErrorItem{Reason: reason})
	}
	return apiErr
}

func TestClassify(t *testing.T) {
	tests := []struct {
		name  string
		err   error
		check func(error) bool
	}{
		{"401 aborts the run", apiError(401), core.IsAuthError},
		{"403 quota trouble retries", apiError(403, "rateLimitExceeded"), core.IsTransient},
		{"403 user quota retries", apiError(403, "userRateLimitExceeded"), core.IsTransient},
		{"403 without a quota reason aborts", apiError(403), core.IsAuthError},
		{"429 retries", apiError(429), core.IsTransient},
		{"500 retries", apiError(500), core.IsTransient},
		{"503 retries", apiError(503), core.IsTransient},
		{"404 skips", apiError(404), core.IsPermanent},
		{"410 skips", apiError(410), core.IsPermanent},
		{"unexpected 4xx skips", apiError(400), core.IsPermanent},
		{"open breaker retries", gobreaker.ErrOpenState, core.IsTransient},
		{"half-open overflow retries", gobreaker.ErrTooManyRequests, core.IsTransient},
		{"network trouble retries", errors.New("connection reset"), core.IsTransient},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := classify("m1", tt.err); !tt.check(got) {
				t.Errorf("classify(%v) = %v, wrong class", tt.err, got)
			}
		})
	}
}

// Cancellation passes through untouched so the collector can tell an
// aborted run apart from a failing API.
func TestClassifyContextErrors(t *testing.T) {
	for _, err := range []error{context.Canceled, context.DeadlineExceeded} {
		if got := classify("m1", err); !errors.Is(got, err) {
			t.Errorf("classify(%v) = %v, want the error unchanged", err, got)
		}
	}
}

func newTestSource() *Source {
	return &Source{
		text:   utils.NewTextProcessor(zap.NewNop()),
		logger: zap.NewNop(),
	}
}

func TestToRecord(t *testing.T) {
	s := newTestSource()

	msg := &gmailapi.Message{
		Id:           "m1",
		LabelIds:     []string{"INBOX", "UNREAD", "CATEGORY_PROMOTIONS"},
		InternalDate: 1740000000000,
		Payload: &gmailapi.MessagePart{
			Headers: []*gmailapi.MessagePartHeader{
				{Name: "From", Value: "Deals <Deals@Shop.example.COM>"},
				{Name: "Subject", Value: "50% off everything"},
			},
		},
	}

	record := s.toRecord(msg)

	if record.ID != "m1" {
		t.Errorf("id = %s, want m1", record.ID)
	}
	if !record.IsUnread || record.IsOpened {
		t.Errorf("flags = unread %v opened %v, want true false", record.IsUnread, record.IsOpened)
	}
	if record.Category != core.CategoryPromotions {
		t.Errorf("category = %s, want %s", record.Category, core.CategoryPromotions)
	}
	if record.Sender != "deals@shop.example.com" {
		t.Errorf("sender = %s, want deals@shop.example.com", record.Sender)
	}
	if record.Subject != "50% off everything" {
		t.Errorf("subject = %s", record.Subject)
	}
	if !record.ReceivedAt.Equal(time.UnixMilli(1740000000000)) {
		t.Errorf("received at = %v, want the internal date", record.ReceivedAt)
	}
	if len(record.Labels) != 3 {
		t.Errorf("labels = %v, want all three kept", record.Labels)
	}
}

func TestToRecordReadMessage(t *testing.T) {
	s := newTestSource()

	record := s.toRecord(&gmailapi.Message{
		Id:       "m2",
		LabelIds: []string{"INBOX"},
		Payload: &gmailapi.MessagePart{
			Headers: []*gmailapi.MessagePartHeader{
				{Name: "From", Value: "friend@gmail.com"},
			},
		},
	})

	if record.IsUnread || !record.IsOpened {
		t.Errorf("flags = unread %v opened %v, want false true", record.IsUnread, record.IsOpened)
	}
	if record.Category != "" {
		t.Errorf("category = %s, want empty", record.Category)
	}
}

func TestToRecordDateHeaderFallback(t *testing.T) {
	s := newTestSource()

	record := s.toRecord(&gmailapi.Message{
		Id: "m3",
		Payload: &gmailapi.MessagePart{
			Headers: []*gmailapi.MessagePartHeader{
				{Name: "Date", Value: "Tue, 03 Mar 2026 10:00:00 +0000"},
			},
		},
	})

	want := time.Date(2026, 3, 3, 10, 0, 0, 0, time.UTC)
	if record.ReceivedAt.Unix() != want.Unix() {
		t.Errorf("received at = %v, want %v", record.ReceivedAt, want)
	}
}

func TestToRecordMissingSender(t *testing.T) {
	s := newTestSource()

	record := s.toRecord(&gmailapi.Message{Id: "m4"})
	if record.Sender != "unknown" {
		t.Errorf("sender = %s, want unknown", record.Sender)
	}
}

func TestParseSender(t *testing.T) {
	tests := []struct {
		name  string
		value string
		want  string
	}{
		{"display name form", "Alice Smith <Alice@Example.COM>", "alice@example.com"},
		{"bare address", "BOB@example.com", "bob@example.com"},
		{"unparseable falls back to the raw value", "mailer daemon", "mailer daemon"},
		{"whitespace trimmed", "  odd thing  ", "odd thing"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := parseSender(tt.value); got != tt.want {
				t.Errorf("parseSender(%q) = %q, want %q", tt.value, got, tt.want)
			}
		})
	}
}
