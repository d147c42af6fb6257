package intent

import (
	"regexp"
	"strings"

	"go.uber.org/zap"

	"github.com/mikey/mailbox-auditor/internal/core"
	"github.com/mikey/mailbox-auditor/internal/utils"
)

// Confidence floor for a rule backed by at least one matching subject.
// Below this the fraction of matching subjects is too noisy to report
// as-is but the label itself is still deterministic.
const minRuleConfidence = 0.3

// rule is one entry in the ordered intent table. Rules are evaluated
// top-down and the first match wins, so the order is part of the
// policy: transactional outranks promotional because a receipt with a
// discount footer is still a receipt.
type rule struct {
	label    core.IntentLabel
	domains  []string       // sender domain suffixes, checked against the address
	keywords []string       // lowercase; any occurrence in a normalized subject matches
	pattern  *regexp.Regexp // for shapes keywords cannot express
	source   string
}

var rules = []rule{
	{
		label: core.IntentSocial,
		domains: []string{
			"facebookmail.com",
			"linkedin.com",
			"twitter.com",
			"x.com",
			"instagram.com",
			"pinterest.com",
			"reddit.com",
			"redditmail.com",
			"tiktok.com",
			"nextdoor.com",
			"discord.com",
		},
		source: "social_platform_domain",
	},
	{
		label: core.IntentTransactional,
		keywords: []string{
			"receipt",
			"invoice",
			"order confirmation",
			"payment",
			"shipped",
			"shipping confirmation",
			"out for delivery",
			"tracking number",
			"booking",
			"reservation",
			"statement",
			"subscription renewal",
			"password reset",
			"verification code",
		},
		pattern: regexp.MustCompile(`order\s*#\s*\w+`),
		source:  "transactional_keywords",
	},
	{
		label: core.IntentPromotional,
		keywords: []string{
			"% off",
			"sale",
			"discount",
			"deal",
			"coupon",
			"promo",
			"free shipping",
			"limited time",
			"last chance",
			"clearance",
			"exclusive offer",
			"unsubscribe",
			"don't miss",
			"flash",
		},
		pattern: regexp.MustCompile(`\d+\s*%\s*off`),
		source:  "promotional_keywords",
	},
	{
		label: core.IntentSocial,
		keywords: []string{
			"tagged you",
			"commented on",
			"mentioned you",
			"friend request",
			"new follower",
			"liked your",
			"sent you a message",
			"wants to connect",
		},
		source: "social_subject_keywords",
	},
	{
		label: core.IntentInformational,
		keywords: []string{
			"newsletter",
			"digest",
			"weekly update",
			"monthly update",
			"announcement",
			"release notes",
			"alert",
			"notification",
			"reminder",
			"report",
			"summary",
		},
		source: "informational_keywords",
	},
}

func (r *rule) matches(subject string) bool {
	for _, keyword := range r.keywords {
		if strings.Contains(subject, keyword) {
			return true
		}
	}
	if r.pattern != nil && r.pattern.MatchString(subject) {
		return true
	}
	return false
}

// Classifier assigns an intent label to a sender from its aggregated
// subject lines using the ordered rule table above. The rule path is
// fully deterministic: identical inputs always yield identical labels.
type Classifier struct {
	text   *utils.TextProcessor
	logger *zap.Logger
}

// NewClassifier creates a new rule-based intent classifier
func NewClassifier(text *utils.TextProcessor, logger *zap.Logger) *Classifier {
	return &Classifier{
		text:   text,
		logger: logger,
	}
}

// Classify returns exactly one label plus a confidence indicator.
// Domain rules match the sender address alone and carry full
// confidence; subject rules report the fraction of subjects that
// matched, floored at minRuleConfidence. Empty or whitespace-only
// subjects contribute no signal. With nothing to match the sender
// falls through to IntentOther.
func (c *Classifier) Classify(address string, subjects []string) (core.IntentLabel, float64) {
	domain := addressDomain(address)

	normalized := make([]string, 0, len(subjects))
	for _, subject := range subjects {
		if strings.TrimSpace(subject) == "" {
			continue
		}
		normalized = append(normalized, c.text.NormalizeSubject(subject))
	}

	for i := range rules {
		r := &rules[i]

		if len(r.domains) > 0 {
			if matchesDomain(domain, r.domains) {
				c.logger.Debug("Intent rule matched",
					zap.String("address", address),
					zap.String("label", string(r.label)),
					zap.String("rule", r.source))
				return r.label, 1.0
			}
			continue
		}

		if len(normalized) == 0 {
			continue
		}
		matched := 0
		for _, subject := range normalized {
			if r.matches(subject) {
				matched++
			}
		}
		if matched == 0 {
			continue
		}

		confidence := float64(matched) / float64(len(normalized))
		if confidence < minRuleConfidence {
			confidence = minRuleConfidence
		}
		c.logger.Debug("Intent rule matched",
			zap.String("address", address),
			zap.String("label", string(r.label)),
			zap.String("rule", r.source),
			zap.Int("matched_subjects", matched),
			zap.Int("total_subjects", len(normalized)))
		return r.label, confidence
	}

	return core.IntentOther, 0
}

func addressDomain(address string) string {
	parts := strings.Split(address, "@")
	if len(parts) != 2 {
		return ""
	}
	return strings.ToLower(parts[1])
}

func matchesDomain(domain string, suffixes []string) bool {
	if domain == "" {
		return false
	}
	for _, suffix := range suffixes {
		if domain == suffix || strings.HasSuffix(domain, "."+suffix) {
			return true
		}
	}
	return false
}
