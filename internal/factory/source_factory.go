package factory

import (
	"context"

	"github.com/mikey/mailbox-auditor/internal/adapters/gmail"
	"github.com/mikey/mailbox-auditor/internal/config"
	"github.com/mikey/mailbox-auditor/internal/core"
	"github.com/mikey/mailbox-auditor/internal/utils"
	"go.uber.org/zap"
)

// SourceFactory creates message sources based on configuration
type SourceFactory struct {
	cfg           *config.Config
	logger        *zap.Logger
	textProcessor *utils.TextProcessor
}

// NewSourceFactory creates a new source factory
func NewSourceFactory(cfg *config.Config, logger *zap.Logger, textProcessor *utils.TextProcessor) *SourceFactory {
	return &SourceFactory{
		cfg:           cfg,
		logger:        logger,
		textProcessor: textProcessor,
	}
}

// CreateSource creates a Gmail-backed message source. The OAuth flow may
// prompt on the terminal when no stored token exists yet.
func (f *SourceFactory) CreateSource(ctx context.Context) (core.MessageSource, error) {
	gmailCfg := f.cfg.GetGmail()

	return gmail.NewSource(ctx, gmail.Options{
		CredentialsPath:  gmailCfg.CredentialsPath,
		TokenPath:        gmailCfg.TokenPath,
		Query:            gmailCfg.Query,
		PageSize:         gmailCfg.PageSize,
		RateLimit:        gmailCfg.RateLimit,
		RateBurst:        gmailCfg.RateBurst,
		BreakerThreshold: gmailCfg.BreakerThreshold,
		BreakerTimeout:   gmailCfg.BreakerTimeout,
	}, f.textProcessor, f.logger)
}
