package utils

import (
	"strings"
	"unicode"
	"unicode/utf8"

	"go.uber.org/zap"
	"golang.org/x/text/cases"
	"golang.org/x/text/unicode/norm"
)

// minTokenLength filters out short filler words during tokenization
const minTokenLength = 4

// stopwords are common subject-line words that carry no signal for
// pattern analysis
var stopwords = map[string]struct{}{
	"your": {}, "from": {}, "with": {}, "this": {}, "that": {},
	"have": {}, "will": {}, "been": {}, "were": {}, "they": {},
	"them": {}, "than": {}, "then": {}, "when": {}, "what": {},
	"here": {}, "just": {}, "more": {}, "most": {}, "some": {},
	"only": {}, "over": {}, "into": {}, "about": {}, "after": {},
	"before": {}, "their": {}, "there": {}, "these": {}, "those": {},
	"would": {}, "could": {}, "should": {}, "email": {}, "please": {},
	"hello": {}, "thanks": {}, "thank": {}, "regards": {}, "dear": {},
}

// TextProcessor provides utilities for processing subject text
type TextProcessor struct {
	logger *zap.Logger
	folder cases.Caser
}

// NewTextProcessor creates a new TextProcessor
func NewTextProcessor(logger *zap.Logger) *TextProcessor {
	return &TextProcessor{
		logger: logger,
		folder: cases.Fold(),
	}
}

// NormalizeSubject produces the canonical form of a subject line used by
// the intent rules and token analysis: NFKC normalization, case folding,
// and whitespace collapsing. Marketing subjects often carry full-width or
// decorated Unicode that would otherwise dodge keyword matches.
func (tp *TextProcessor) NormalizeSubject(subject string) string {
	s := tp.SanitizeUTF8(subject)
	s = norm.NFKC.String(s)
	s = tp.folder.String(s)
	return strings.Join(strings.Fields(s), " ")
}

// Tokenize splits a normalized subject into analysis tokens, dropping
// stopwords and short filler words
func (tp *TextProcessor) Tokenize(subject string) []string {
	normalized := tp.NormalizeSubject(subject)
	fields := strings.FieldsFunc(normalized, func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsNumber(r)
	})

	tokens := make([]string, 0, len(fields))
	for _, f := range fields {
		if utf8.RuneCountInString(f) < minTokenLength {
			continue
		}
		if _, skip := stopwords[f]; skip {
			continue
		}
		tokens = append(tokens, f)
	}
	return tokens
}

// TruncateText safely truncates text to the specified maximum size
// and ensures the result is valid UTF-8
func (tp *TextProcessor) TruncateText(text string, maxSize int) string {
	// If no limit or text is already within limits, return as is
	if maxSize <= 0 || len(text) <= maxSize {
		return text
	}

	// First truncate to the byte limit
	truncated := text[:maxSize]

	// Ensure the truncated text ends with a valid UTF-8 sequence
	for !utf8.ValidString(truncated) && len(truncated) > 0 {
		// Remove bytes until we have valid UTF-8
		truncated = truncated[:len(truncated)-1]
	}

	tp.logger.Debug("Text truncated",
		zap.Int("original_size", len(text)),
		zap.Int("truncated_size", len(truncated)),
		zap.Int("max_size", maxSize))

	return truncated + "\n[... Content truncated due to size limits ...]"
}

// SanitizeUTF8 ensures the string contains only valid UTF-8 characters
func (tp *TextProcessor) SanitizeUTF8(text string) string {
	if utf8.ValidString(text) {
		return text
	}

	// Replace invalid UTF-8 sequences with the Unicode replacement character
	result := make([]rune, 0, len(text))
	for i, r := range text {
		if r == utf8.RuneError {
			_, size := utf8.DecodeRuneInString(text[i:])
			if size == 1 {
				// Skip invalid UTF-8 sequences
				continue
			}
		}
		result = append(result, r)
	}

	tp.logger.Debug("Text sanitized",
		zap.Int("original_size", len(text)),
		zap.Int("sanitized_size", len(string(result))))

	return string(result)
}

// ProcessText truncates and sanitizes text in one operation
func (tp *TextProcessor) ProcessText(text string, maxSize int) string {
	// First truncate
	truncated := tp.TruncateText(text, maxSize)

	// Then sanitize
	sanitized := tp.SanitizeUTF8(truncated)

	return sanitized
}
