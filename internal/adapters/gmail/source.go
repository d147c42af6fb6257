package gmail

import (
	"context"
	"errors"
	"fmt"
	"net/mail"
	"strings"
	"time"

	"github.com/sony/gobreaker"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
	gmailapi "google.golang.org/api/gmail/v1"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"

	"github.com/mikey/mailbox-auditor/internal/core"
	"github.com/mikey/mailbox-auditor/internal/utils"
)

const gmailUser = "me"

// metadataHeaders are the only headers the audit needs; the message
// body is never requested
var metadataHeaders = []string{"From", "Subject", "Date"}

var categoryLabels = map[string]string{
	"CATEGORY_PERSONAL":   core.CategoryPersonal,
	"CATEGORY_SOCIAL":     core.CategorySocial,
	"CATEGORY_PROMOTIONS": core.CategoryPromotions,
	"CATEGORY_UPDATES":    core.CategoryUpdates,
	"CATEGORY_FORUMS":     core.CategoryForums,
}

// Options configures the Gmail source
type Options struct {
	CredentialsPath  string
	TokenPath        string
	Query            string
	PageSize         int64
	RateLimit        float64
	RateBurst        int
	BreakerThreshold uint32
	BreakerTimeout   time.Duration
}

// Source implements core.MessageSource against the Gmail API. All
// calls pass through a client-side rate limiter and a circuit breaker
// so a degraded API cannot be hammered by the worker pool.
type Source struct {
	service  *gmailapi.Service
	query    string
	pageSize int64
	limiter  *rate.Limiter
	breaker  *gobreaker.CircuitBreaker
	text     *utils.TextProcessor
	logger   *zap.Logger
}

// NewSource creates a new Gmail message source
func NewSource(ctx context.Context, opts Options, text *utils.TextProcessor, logger *zap.Logger) (*Source, error) {
	httpClient, err := newHTTPClient(ctx, opts.CredentialsPath, opts.TokenPath, logger)
	if err != nil {
		return nil, err
	}

	service, err := gmailapi.NewService(ctx, option.WithHTTPClient(httpClient))
	if err != nil {
		return nil, fmt.Errorf("failed to create Gmail service: %w", err)
	}

	threshold := opts.BreakerThreshold
	if threshold == 0 {
		threshold = 5
	}
	breaker := gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:     "gmail-api",
		Interval: 60 * time.Second,
		Timeout:  opts.BreakerTimeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= threshold
		},
		// Client-side mistakes must not open the breaker; it guards
		// against a degraded API, not against bad requests.
		IsSuccessful: func(err error) bool {
			if err == nil {
				return true
			}
			var apiErr *googleapi.Error
			if errors.As(err, &apiErr) {
				return apiErr.Code < 500 && apiErr.Code != 429
			}
			return false
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logger.Warn("Circuit breaker state changed",
				zap.String("name", name),
				zap.String("from", from.String()),
				zap.String("to", to.String()))
		},
	})

	return &Source{
		service:  service,
		query:    opts.Query,
		pageSize: opts.PageSize,
		limiter:  rate.NewLimiter(rate.Limit(opts.RateLimit), opts.RateBurst),
		breaker:  breaker,
		text:     text,
		logger:   logger,
	}, nil
}

// ListMessageIDs pages through the mailbox and returns up to max ids
// matching the configured query, newest first
func (s *Source) ListMessageIDs(ctx context.Context, max int64) ([]string, error) {
	if max <= 0 {
		return nil, nil
	}

	ids := make([]string, 0, max)
	pageToken := ""
	for {
		remaining := max - int64(len(ids))
		if remaining <= 0 {
			break
		}
		pageSize := s.pageSize
		if pageSize <= 0 || pageSize > remaining {
			pageSize = remaining
		}

		result, err := s.execute(ctx, func() (interface{}, error) {
			call := s.service.Users.Messages.List(gmailUser).
				Q(s.query).
				MaxResults(pageSize)
			if pageToken != "" {
				call = call.PageToken(pageToken)
			}
			return call.Context(ctx).Do()
		})
		if err != nil {
			return nil, classify("", err)
		}

		resp := result.(*gmailapi.ListMessagesResponse)
		for _, m := range resp.Messages {
			ids = append(ids, m.Id)
		}
		if resp.NextPageToken == "" {
			break
		}
		pageToken = resp.NextPageToken
	}

	s.logger.Info("Listed messages",
		zap.Int("count", len(ids)),
		zap.String("query", s.query))

	return ids, nil
}

// FetchMessage fetches one message's metadata and normalizes it into
// the fixed record schema. Downstream stages never see Gmail shapes.
func (s *Source) FetchMessage(ctx context.Context, id string) (*core.MessageRecord, error) {
	result, err := s.execute(ctx, func() (interface{}, error) {
		return s.service.Users.Messages.Get(gmailUser, id).
			Format("metadata").
			MetadataHeaders(metadataHeaders...).
			Context(ctx).Do()
	})
	if err != nil {
		return nil, classify(id, err)
	}
	return s.toRecord(result.(*gmailapi.Message)), nil
}

// execute runs one API call behind the rate limiter and the breaker
func (s *Source) execute(ctx context.Context, call func() (interface{}, error)) (interface{}, error) {
	if err := s.limiter.Wait(ctx); err != nil {
		return nil, err
	}
	return s.breaker.Execute(call)
}

// toRecord maps a Gmail message to the audit record schema. Gmail has
// no distinct "opened" signal, so read state doubles as the open
// signal here; the metrics engine decides how to interpret it.
func (s *Source) toRecord(msg *gmailapi.Message) *core.MessageRecord {
	record := &core.MessageRecord{
		ID:     msg.Id,
		Labels: msg.LabelIds,
	}

	for _, label := range msg.LabelIds {
		if label == "UNREAD" {
			record.IsUnread = true
		}
		if category, ok := categoryLabels[label]; ok {
			record.Category = category
		}
	}
	record.IsOpened = !record.IsUnread

	if msg.InternalDate > 0 {
		record.ReceivedAt = time.UnixMilli(msg.InternalDate)
	}

	if msg.Payload != nil {
		for _, header := range msg.Payload.Headers {
			switch header.Name {
			case "From":
				record.Sender = parseSender(header.Value)
			case "Subject":
				record.Subject = s.text.SanitizeUTF8(header.Value)
			case "Date":
				if record.ReceivedAt.IsZero() {
					if parsed, err := mail.ParseDate(header.Value); err == nil {
						record.ReceivedAt = parsed
					}
				}
			}
		}
	}

	if record.Sender == "" {
		record.Sender = "unknown"
	}

	return record
}

// parseSender extracts the bare address from a From header
func parseSender(value string) string {
	if addr, err := mail.ParseAddress(value); err == nil {
		return strings.ToLower(addr.Address)
	}
	return strings.ToLower(strings.TrimSpace(value))
}

// classify converts a Gmail API failure into the collector's error
// taxonomy. Rate limiting and server trouble are worth retrying; a
// missing message is not; credential problems abort the whole run.
func classify(id string, err error) error {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return err
	}
	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		return core.NewTransientFetchError(id, err)
	}

	var apiErr *googleapi.Error
	if errors.As(err, &apiErr) {
		switch {
		case apiErr.Code == 401:
			return core.NewAuthError(err)
		case apiErr.Code == 403 && isRateLimited(apiErr):
			return core.NewTransientFetchError(id, err)
		case apiErr.Code == 403:
			return core.NewAuthError(err)
		case apiErr.Code == 429 || apiErr.Code >= 500:
			return core.NewTransientFetchError(id, err)
		case apiErr.Code == 404 || apiErr.Code == 410:
			return core.NewPermanentFetchError(id, err)
		default:
			return core.NewPermanentFetchError(id, err)
		}
	}

	// Anything else is network-level trouble and worth a retry.
	return core.NewTransientFetchError(id, err)
}

func isRateLimited(apiErr *googleapi.Error) bool {
	for _, item := range apiErr.Errors {
		switch item.Reason {
		case "rateLimitExceeded", "userRateLimitExceeded", "dailyLimitExceeded", "quotaExceeded":
			return true
		}
	}
	return false
}
