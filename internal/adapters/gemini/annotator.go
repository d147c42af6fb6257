package gemini

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/generative-ai-go/genai"
	"go.uber.org/zap"
	"google.golang.org/api/option"

	"github.com/mikey/mailbox-auditor/internal/core"
	"github.com/mikey/mailbox-auditor/internal/utils"
)

// Annotator is an implementation of the SubjectAnnotator interface
// using Google Gemini
type Annotator struct {
	client        *genai.Client
	model         *genai.GenerativeModel
	modelName     string
	maxPromptSize int
	logger        *zap.Logger
	textProcessor *utils.TextProcessor
	promptFormat  string
}

// SubjectAnalysisResponse represents the structured response from the LLM
type SubjectAnalysisResponse struct {
	Themes  []string `json:"themes"`
	Summary string   `json:"summary"`
}

// NewAnnotator creates a new Gemini annotator
func NewAnnotator(
	ctx context.Context,
	apiKey string,
	modelName string,
	maxTokens int,
	temperature float32,
	topP float32,
	maxPromptSize int,
	logger *zap.Logger,
	textProcessor *utils.TextProcessor,
) (*Annotator, error) {
	client, err := genai.NewClient(ctx, option.WithAPIKey(apiKey))
	if err != nil {
		return nil, fmt.Errorf("failed to create Gemini client: %w", err)
	}

	model := client.GenerativeModel(modelName)
	model.SetTemperature(temperature)
	model.SetTopP(topP)
	model.SetMaxOutputTokens(int32(maxTokens))

	return &Annotator{
		client:        client,
		model:         model,
		modelName:     modelName,
		maxPromptSize: maxPromptSize,
		logger:        logger,
		textProcessor: textProcessor,
		promptFormat: `You are a mailbox analysis assistant. The following subject lines all come from one sender.
Identify the recurring themes and summarize what this sender mails about.
Respond with a JSON object containing:
- themes: array of up to 5 short theme names
- summary: string (one or two sentences describing this sender's mail)

Sender: %s
Subject lines:
%s

Respond only with the JSON object and nothing else.`,
	}, nil
}

// Close closes the Gemini client
func (c *Annotator) Close() error {
	if c.client != nil {
		return c.client.Close()
	}
	return nil
}

// AnnotateSubjects summarizes the recurring themes in a sender's
// subject lines
func (c *Annotator) AnnotateSubjects(ctx context.Context, sender string, subjects []string) (*core.SubjectInsight, error) {
	if len(subjects) == 0 {
		return nil, core.NewInsufficientDataError("annotate subjects", 1, 0)
	}

	list := ""
	for _, subject := range subjects {
		list += "- " + subject + "\n"
	}
	prompt := fmt.Sprintf(c.promptFormat, sender, c.textProcessor.ProcessText(list, c.maxPromptSize))

	resp, err := c.model.GenerateContent(ctx, genai.Text(prompt))
	if err != nil {
		return nil, fmt.Errorf("failed to generate content with Gemini: %w", err)
	}
	if len(resp.Candidates) == 0 || len(resp.Candidates[0].Content.Parts) == 0 {
		return nil, fmt.Errorf("empty response from Gemini")
	}

	responseText := fmt.Sprintf("%v", resp.Candidates[0].Content.Parts[0])

	var analysis SubjectAnalysisResponse
	if err := json.Unmarshal([]byte(responseText), &analysis); err != nil {
		// Try to extract JSON from the text response
		jsonStart := 0
		jsonEnd := len(responseText)

		// Find JSON start
		for i := 0; i < len(responseText); i++ {
			if responseText[i] == '{' {
				jsonStart = i
				break
			}
		}

		// Find JSON end
		for i := len(responseText) - 1; i >= 0; i-- {
			if responseText[i] == '}' {
				jsonEnd = i + 1
				break
			}
		}

		if jsonStart >= jsonEnd {
			return nil, fmt.Errorf("failed to extract JSON from LLM response: %w", err)
		}
		jsonStr := responseText[jsonStart:jsonEnd]
		if err := json.Unmarshal([]byte(jsonStr), &analysis); err != nil {
			return nil, fmt.Errorf("failed to parse LLM response as JSON: %w", err)
		}
	}

	return &core.SubjectInsight{
		Sender:      sender,
		Themes:      analysis.Themes,
		Summary:     analysis.Summary,
		ModelUsed:   c.modelName,
		GeneratedAt: time.Now(),
	}, nil
}
