package factory

import (
	"context"
	"fmt"

	"github.com/mikey/mailbox-auditor/internal/adapters/bedrock"
	"github.com/mikey/mailbox-auditor/internal/adapters/gemini"
	"github.com/mikey/mailbox-auditor/internal/adapters/openai"
	"github.com/mikey/mailbox-auditor/internal/config"
	"github.com/mikey/mailbox-auditor/internal/core"
	"github.com/mikey/mailbox-auditor/internal/utils"
	"go.uber.org/zap"
)

// AnnotatorFactory creates subject annotators
type AnnotatorFactory struct {
	cfg           *config.Config
	logger        *zap.Logger
	textProcessor *utils.TextProcessor
}

// NewAnnotatorFactory creates a new annotator factory
func NewAnnotatorFactory(cfg *config.Config, logger *zap.Logger, textProcessor *utils.TextProcessor) *AnnotatorFactory {
	return &AnnotatorFactory{
		cfg:           cfg,
		logger:        logger,
		textProcessor: textProcessor,
	}
}

// CreateAnnotator creates a subject annotator based on the configuration.
// It returns a nil annotator when annotation is disabled.
func (f *AnnotatorFactory) CreateAnnotator(ctx context.Context) (core.SubjectAnnotator, error) {
	annotatorCfg := f.cfg.GetAnnotator()
	if !annotatorCfg.Enabled {
		return nil, nil
	}

	switch annotatorCfg.Provider {
	case "openai":
		return openai.NewFactory(f.cfg, f.logger, f.textProcessor).CreateAnnotator()
	case "gemini":
		return gemini.NewFactory(f.cfg, f.logger, f.textProcessor).CreateAnnotator(ctx)
	case "bedrock":
		return bedrock.NewFactory(f.cfg, f.logger, f.textProcessor).CreateAnnotator(ctx)
	default:
		return nil, fmt.Errorf("unsupported annotator provider: %s", annotatorCfg.Provider)
	}
}
