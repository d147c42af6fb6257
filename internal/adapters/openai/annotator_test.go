package openai

import (
	"strings"
	"testing"

	"go.uber.org/zap"

	"github.com/mikey/mailbox-auditor/internal/utils"
)

func TestParseAnalysisResponse(t *testing.T) {
	tests := []struct {
		name        string
		response    string
		wantThemes  []string
		wantSummary string
		wantErr     bool
	}{
		{
			name:        "clean json",
			response:    `{"themes": ["discounts", "urgency"], "summary": "Weekly promotions."}`,
			wantThemes:  []string{"discounts", "urgency"},
			wantSummary: "Weekly promotions.",
		},
		{
			name:        "json wrapped in prose",
			response:    "Sure, here is the analysis:\n{\"themes\": [\"receipts\"], \"summary\": \"Order confirmations.\"}\nLet me know if you need more.",
			wantThemes:  []string{"receipts"},
			wantSummary: "Order confirmations.",
		},
		{
			name:     "no json at all",
			response: "I cannot analyze these subjects.",
			wantErr:  true,
		},
		{
			name:     "malformed json",
			response: `{"themes": [unquoted], "summary"`,
			wantErr:  true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			analysis, err := parseAnalysisResponse(tt.response)
			if tt.wantErr {
				if err == nil {
					t.Fatal("expected error, got nil")
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if analysis.Summary != tt.wantSummary {
				t.Errorf("summary = %q, want %q", analysis.Summary, tt.wantSummary)
			}
			if len(analysis.Themes) != len(tt.wantThemes) {
				t.Fatalf("themes = %v, want %v", analysis.Themes, tt.wantThemes)
			}
			for i, theme := range tt.wantThemes {
				if analysis.Themes[i] != theme {
					t.Errorf("themes[%d] = %q, want %q", i, analysis.Themes[i], theme)
				}
			}
		})
	}
}

func TestFormatSubjectsRespectsBudget(t *testing.T) {
	tp := utils.NewTextProcessor(zap.NewNop())

	subjects := make([]string, 100)
	for i := range subjects {
		subjects[i] = strings.Repeat("long subject line ", 10)
	}

	out := formatSubjects(subjects, tp, 500)
	if len(out) > 500+len("\n[... Content truncated due to size limits ...]") {
		t.Errorf("formatted size = %d, want the prompt budget honored", len(out))
	}
	if !strings.HasPrefix(out, "- ") {
		t.Errorf("output = %q, want a bulleted list", out[:20])
	}
}
