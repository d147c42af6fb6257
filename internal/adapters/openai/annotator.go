package openai

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/sashabaranov/go-openai"
	"go.uber.org/zap"

	"github.com/mikey/mailbox-auditor/internal/core"
	"github.com/mikey/mailbox-auditor/internal/utils"
)

// Annotator is an implementation of the SubjectAnnotator interface
// using OpenAI
type Annotator struct {
	client        *openai.Client
	modelName     string
	maxTokens     int
	temperature   float32
	topP          float32
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

// NewAnnotator creates a new OpenAI annotator
func NewAnnotator(
	apiKey string,
	modelName string,
	maxTokens int,
	temperature float32,
	topP float32,
	maxPromptSize int,
	logger *zap.Logger,
	textProcessor *utils.TextProcessor,
) *Annotator {
	client := openai.NewClient(apiKey)

	return &Annotator{
		client:        client,
		modelName:     modelName,
		maxTokens:     maxTokens,
		temperature:   temperature,
		topP:          topP,
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
	}
}

// AnnotateSubjects summarizes the recurring themes in a sender's
// subject lines
func (c *Annotator) AnnotateSubjects(ctx context.Context, sender string, subjects []string) (*core.SubjectInsight, error) {
	if len(subjects) == 0 {
		return nil, core.NewInsufficientDataError("annotate subjects", 1, 0)
	}

	prompt := fmt.Sprintf(c.promptFormat, sender, formatSubjects(subjects, c.textProcessor, c.maxPromptSize))

	req := openai.ChatCompletionRequest{
		Model: c.modelName,
		Messages: []openai.ChatCompletionMessage{
			{
				Role:    openai.ChatMessageRoleSystem,
				Content: "You are a mailbox analysis assistant. Respond only with JSON.",
			},
			{
				Role:    openai.ChatMessageRoleUser,
				Content: prompt,
			},
		},
		MaxTokens:   c.maxTokens,
		Temperature: c.temperature,
		TopP:        c.topP,
		ResponseFormat: &openai.ChatCompletionResponseFormat{
			Type: openai.ChatCompletionResponseFormatTypeJSONObject,
		},
	}

	resp, err := c.client.CreateChatCompletion(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("failed to create chat completion with OpenAI: %w", err)
	}
	if len(resp.Choices) == 0 {
		return nil, fmt.Errorf("empty response from OpenAI")
	}

	analysis, err := parseAnalysisResponse(resp.Choices[0].Message.Content)
	if err != nil {
		return nil, err
	}

	return &core.SubjectInsight{
		Sender:      sender,
		Themes:      analysis.Themes,
		Summary:     analysis.Summary,
		ModelUsed:   c.modelName,
		GeneratedAt: time.Now(),
	}, nil
}

// formatSubjects renders the subject lines as a list capped to the
// prompt size budget
func formatSubjects(subjects []string, textProcessor *utils.TextProcessor, maxSize int) string {
	list := ""
	for _, subject := range subjects {
		list += "- " + subject + "\n"
	}
	return textProcessor.ProcessText(list, maxSize)
}

// parseAnalysisResponse parses the LLM's JSON response, falling back to
// extracting the JSON object from surrounding prose
func parseAnalysisResponse(responseText string) (*SubjectAnalysisResponse, error) {
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
	return &analysis, nil
}
