package di

import (
	"context"
	"flag"
	"os"
	"strings"

	"go.uber.org/dig"
	"go.uber.org/zap"

	"github.com/mikey/mailbox-auditor/internal/adapters/report"
	"github.com/mikey/mailbox-auditor/internal/cluster"
	"github.com/mikey/mailbox-auditor/internal/config"
	"github.com/mikey/mailbox-auditor/internal/core"
	"github.com/mikey/mailbox-auditor/internal/factory"
	"github.com/mikey/mailbox-auditor/internal/intent"
	"github.com/mikey/mailbox-auditor/internal/logging"
	"github.com/mikey/mailbox-auditor/internal/ports"
	"github.com/mikey/mailbox-auditor/internal/utils"
	"github.com/mikey/mailbox-auditor/internal/whitelist"
)

// CLIFlags contains all command line flags for the report application
type CLIFlags struct {
	// Report flags
	Report           string
	Top              int
	Tier             string
	Clusters         int
	CSVPath          string
	ProtectedDomains string

	// Cache flags
	CachePath string

	// Annotator flags
	Annotate      bool
	Address       string
	Provider      string
	MaxTokens     int
	Temperature   float64
	TopP          float64
	MaxPromptSize int

	// Bedrock flags
	BedrockRegion  string
	BedrockModelID string

	// Gemini flags
	GeminiAPIKey    string
	GeminiModelName string

	// OpenAI flags
	OpenAIAPIKey    string
	OpenAIModelName string

	// Input flags
	Verbose    bool
	JSONLog    bool
	ConfigFile string
}

// ParseFlags parses command line flags and returns a CLIFlags struct
func ParseFlags() *CLIFlags {
	flags := &CLIFlags{}

	// Report flags
	flag.StringVar(&flags.Report, "report", "full", "Report to render (summary, senders, categories, subjects, clusters, cleanup, full)")
	flag.IntVar(&flags.Top, "top", 20, "Number of senders to show")
	flag.StringVar(&flags.Tier, "tier", "", "Only show senders in this engagement tier (zero, low, medium, high)")
	flag.IntVar(&flags.Clusters, "clusters", 5, "Number of sender clusters")
	flag.StringVar(&flags.CSVPath, "csv", "", "Write the sender report to this CSV file")
	flag.StringVar(&flags.ProtectedDomains, "protected", "", "Comma-separated list of protected domains")

	// Cache flags
	flag.StringVar(&flags.CachePath, "cache", "data/email_cache.json", "Path to the metadata cache file")

	// Annotator flags
	flag.BoolVar(&flags.Annotate, "annotate", false, "Generate subject insights with the configured model provider")
	flag.StringVar(&flags.Address, "address", "", "Annotate this sender instead of the top ignored senders")
	flag.StringVar(&flags.Provider, "provider", "openai", "Annotator provider (openai, gemini, bedrock)")
	flag.IntVar(&flags.MaxTokens, "max-tokens", 500, "Maximum tokens for the model response")
	flag.Float64Var(&flags.Temperature, "temperature", 0.2, "Temperature for model generation")
	flag.Float64Var(&flags.TopP, "top-p", 0.9, "Top-p for model generation")
	flag.IntVar(&flags.MaxPromptSize, "max-prompt-size", 4096, "Maximum subject list size to send to the model")

	// Bedrock flags
	flag.StringVar(&flags.BedrockRegion, "bedrock-region", "us-east-1", "AWS region for Bedrock")
	flag.StringVar(&flags.BedrockModelID, "bedrock-model", "anthropic.claude-v2", "Bedrock model ID")

	// Gemini flags
	flag.StringVar(&flags.GeminiAPIKey, "gemini-api-key", "", "API key for Google Gemini")
	flag.StringVar(&flags.GeminiModelName, "gemini-model", "gemini-pro", "Gemini model name")

	// OpenAI flags
	flag.StringVar(&flags.OpenAIAPIKey, "openai-api-key", "", "API key for OpenAI")
	flag.StringVar(&flags.OpenAIModelName, "openai-model", "gpt-4", "OpenAI model name")

	// Input flags
	flag.BoolVar(&flags.Verbose, "verbose", false, "Enable verbose logging")
	flag.BoolVar(&flags.JSONLog, "json-log", false, "Output logs in JSON format")
	flag.StringVar(&flags.ConfigFile, "config", "", "Path to config file (overrides command line flags)")

	flag.Parse()
	return flags
}

// BuildCLIContainer creates and configures a dependency injection container
// for the report application. It wires only the analysis side. The report
// command never talks to the mailbox provider and works entirely from the
// persisted cache.
func BuildCLIContainer(ctx context.Context, flags *CLIFlags) (*dig.Container, error) {
	container := dig.New()

	// Register run context
	if err := container.Provide(func() context.Context { return ctx }); err != nil {
		return nil, err
	}

	// Register flags
	if err := container.Provide(func() *CLIFlags { return flags }); err != nil {
		return nil, err
	}

	// Register logger
	if err := container.Provide(func(flags *CLIFlags) (*zap.Logger, error) {
		return logging.InitConsoleLogger(flags.Verbose, flags.JSONLog)
	}); err != nil {
		return nil, err
	}

	// Register configuration
	if err := container.Provide(func(flags *CLIFlags, logger *zap.Logger) (*config.Config, error) {
		if flags.ConfigFile != "" {
			cfg, err := config.New()
			if err != nil {
				return nil, err
			}
			logger.Info("Loaded configuration from file", zap.String("file", cfg.GetViper().ConfigFileUsed()))
			return cfg, nil
		}

		// Create config from command line flags
		return createConfigFromFlags(flags), nil
	}); err != nil {
		return nil, err
	}

	// Register factories
	if err := container.Provide(factory.NewTextProcessorFactory); err != nil {
		return nil, err
	}
	if err := container.Provide(factory.NewCacheFactory); err != nil {
		return nil, err
	}
	if err := container.Provide(factory.NewAnnotatorFactory); err != nil {
		return nil, err
	}

	// Register text processor
	if err := container.Provide(func(f *factory.TextProcessorFactory) *utils.TextProcessor {
		return f.CreateTextProcessor()
	}); err != nil {
		return nil, err
	}

	// Register metadata cache
	if err := container.Provide(func(f *factory.CacheFactory) (core.MetadataCache, error) {
		return f.CreateCache()
	}); err != nil {
		return nil, err
	}

	// Register intent classifier
	if err := container.Provide(func(text *utils.TextProcessor, logger *zap.Logger) core.IntentClassifier {
		return intent.NewClassifier(text, logger)
	}); err != nil {
		return nil, err
	}

	// Register metrics engine
	if err := container.Provide(func(cfg *config.Config, classifier core.IntentClassifier, text *utils.TextProcessor, logger *zap.Logger) *core.MetricsEngine {
		metricsCfg := cfg.GetMetrics()
		reportCfg := cfg.GetReport()
		return core.NewMetricsEngine(
			classifier,
			text,
			logger,
			metricsCfg.VolumeCap,
			metricsCfg.UnreadWeight,
			metricsCfg.VolumeWeight,
			metricsCfg.DistinctOpenSignal,
			reportCfg.MinCleanupVolume,
		)
	}); err != nil {
		return nil, err
	}

	// Register protected domain checker
	if err := container.Provide(func(cfg *config.Config, logger *zap.Logger) core.ProtectedChecker {
		return whitelist.NewChecker(cfg.GetReport().ProtectedDomains, logger)
	}); err != nil {
		return nil, err
	}

	// Register cluster engine
	if err := container.Provide(func(cfg *config.Config, logger *zap.Logger) *cluster.Engine {
		clusterCfg := cfg.GetCluster()
		metricsCfg := cfg.GetMetrics()
		return cluster.NewEngine(logger, metricsCfg.VolumeCap, clusterCfg.MaxIterations, clusterCfg.Seed)
	}); err != nil {
		return nil, err
	}

	// Register subject annotator
	if err := container.Provide(func(ctx context.Context, f *factory.AnnotatorFactory) (core.SubjectAnnotator, error) {
		return f.CreateAnnotator(ctx)
	}); err != nil {
		return nil, err
	}

	// Register report renderer
	if err := container.Provide(func() ports.ReportRenderer {
		return report.NewConsoleRenderer(os.Stdout)
	}); err != nil {
		return nil, err
	}

	// Register dataset writer
	if err := container.Provide(func(logger *zap.Logger) ports.DatasetWriter {
		return report.NewCSVWriter(logger)
	}); err != nil {
		return nil, err
	}

	return container, nil
}

// createConfigFromFlags creates a configuration from command line flags
func createConfigFromFlags(flags *CLIFlags) *config.Config {
	v := config.NewEmptyViper()

	// Cache settings
	v.Set("cache.type", "file")
	v.Set("cache.path", flags.CachePath)

	// Report settings
	v.Set("report.top_senders", flags.Top)
	if flags.CSVPath != "" {
		v.Set("report.csv_path", flags.CSVPath)
	}
	if flags.ProtectedDomains != "" {
		domains := strings.Split(flags.ProtectedDomains, ",")
		for i, domain := range domains {
			domains[i] = strings.TrimSpace(domain)
		}
		v.Set("report.protected_domains", domains)
	}

	// Cluster settings
	v.Set("cluster.count", flags.Clusters)

	// Annotator settings
	v.Set("annotator.enabled", flags.Annotate)
	v.Set("annotator.provider", flags.Provider)

	// Set provider-specific configuration
	switch flags.Provider {
	case "bedrock":
		v.Set("bedrock.region", flags.BedrockRegion)
		v.Set("bedrock.model_id", flags.BedrockModelID)
		v.Set("bedrock.max_tokens", flags.MaxTokens)
		v.Set("bedrock.temperature", flags.Temperature)
		v.Set("bedrock.top_p", flags.TopP)
		v.Set("bedrock.max_prompt_size", flags.MaxPromptSize)
	case "gemini":
		v.Set("gemini.api_key", flags.GeminiAPIKey)
		v.Set("gemini.model_name", flags.GeminiModelName)
		v.Set("gemini.max_tokens", flags.MaxTokens)
		v.Set("gemini.temperature", flags.Temperature)
		v.Set("gemini.top_p", flags.TopP)
		v.Set("gemini.max_prompt_size", flags.MaxPromptSize)
	case "openai":
		v.Set("openai.api_key", flags.OpenAIAPIKey)
		v.Set("openai.model_name", flags.OpenAIModelName)
		v.Set("openai.max_tokens", flags.MaxTokens)
		v.Set("openai.temperature", flags.Temperature)
		v.Set("openai.top_p", flags.TopP)
		v.Set("openai.max_prompt_size", flags.MaxPromptSize)
	}

	return config.NewFromViper(v)
}
