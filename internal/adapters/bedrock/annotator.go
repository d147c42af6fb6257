package bedrock

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/bedrockruntime"
	"go.uber.org/zap"

	"github.com/mikey/mailbox-auditor/internal/core"
	"github.com/mikey/mailbox-auditor/internal/utils"
)

// Annotator is an implementation of the SubjectAnnotator interface
// using Amazon Bedrock
type Annotator struct {
	client        *bedrockruntime.Client
	modelID       string
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

// NewAnnotator creates a new Bedrock annotator
func NewAnnotator(
	client *bedrockruntime.Client,
	modelID string,
	maxTokens int,
	temperature float32,
	topP float32,
	maxPromptSize int,
	logger *zap.Logger,
	textProcessor *utils.TextProcessor,
) *Annotator {
	return &Annotator{
		client:        client,
		modelID:       modelID,
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

	list := ""
	for _, subject := range subjects {
		list += "- " + subject + "\n"
	}
	prompt := fmt.Sprintf(c.promptFormat, sender, c.textProcessor.ProcessText(list, c.maxPromptSize))

	var payload []byte
	var err error

	if c.isAnthropicModel() {
		// Anthropic Claude models require the Human/Assistant framing
		payload, err = json.Marshal(map[string]interface{}{
			"prompt":               fmt.Sprintf("\n\nHuman: %s\n\nAssistant:", prompt),
			"max_tokens_to_sample": c.maxTokens,
			"temperature":          c.temperature,
			"top_p":                c.topP,
		})
	} else if c.isAmazonTitanModel() {
		// Amazon Titan models
		payload, err = json.Marshal(map[string]interface{}{
			"inputText": prompt,
			"textGenerationConfig": map[string]interface{}{
				"maxTokenCount": c.maxTokens,
				"temperature":   c.temperature,
				"topP":          c.topP,
			},
		})
	} else {
		// Default to a generic format
		payload, err = json.Marshal(map[string]interface{}{
			"prompt":      prompt,
			"max_tokens":  c.maxTokens,
			"temperature": c.temperature,
			"top_p":       c.topP,
		})
	}
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request payload: %w", err)
	}

	resp, err := c.client.InvokeModel(ctx, &bedrockruntime.InvokeModelInput{
		ModelId:     &c.modelID,
		Body:        payload,
		Accept:      aws.String("application/json"),
		ContentType: aws.String("application/json"),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to invoke Bedrock model: %w", err)
	}

	responseText, err := c.extractResponseText(resp.Body)
	if err != nil {
		return nil, err
	}

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
		ModelUsed:   c.modelID,
		GeneratedAt: time.Now(),
	}, nil
}

// extractResponseText pulls the generated text out of the
// model-family-specific response body
func (c *Annotator) extractResponseText(body []byte) (string, error) {
	if c.isAnthropicModel() {
		var claudeResp struct {
			Completion string `json:"completion"`
		}
		if err := json.Unmarshal(body, &claudeResp); err != nil {
			return "", fmt.Errorf("failed to unmarshal Claude response: %w", err)
		}
		return claudeResp.Completion, nil
	}

	if c.isAmazonTitanModel() {
		var titanResp struct {
			Results []struct {
				OutputText string `json:"outputText"`
			} `json:"results"`
		}
		if err := json.Unmarshal(body, &titanResp); err != nil {
			return "", fmt.Errorf("failed to unmarshal Titan response: %w", err)
		}
		if len(titanResp.Results) == 0 {
			return "", fmt.Errorf("empty response from Titan model")
		}
		return titanResp.Results[0].OutputText, nil
	}

	// Try a generic approach
	var genericResp struct {
		Output   string `json:"output"`
		Text     string `json:"text"`
		Response string `json:"response"`
	}
	if err := json.Unmarshal(body, &genericResp); err != nil {
		return "", fmt.Errorf("failed to unmarshal generic response: %w", err)
	}
	switch {
	case genericResp.Output != "":
		return genericResp.Output, nil
	case genericResp.Text != "":
		return genericResp.Text, nil
	case genericResp.Response != "":
		return genericResp.Response, nil
	default:
		// Just use the raw response as a string
		return string(body), nil
	}
}

// isAnthropicModel checks if the model is an Anthropic Claude model
func (c *Annotator) isAnthropicModel() bool {
	return strings.HasPrefix(c.modelID, "anthropic.claude")
}

// isAmazonTitanModel checks if the model is an Amazon Titan model
func (c *Annotator) isAmazonTitanModel() bool {
	return strings.HasPrefix(c.modelID, "amazon.titan")
}
