package config

import "time"

// GmailConfig represents the configuration for the Gmail message source
type GmailConfig struct {
	CredentialsPath  string
	TokenPath        string
	Query            string
	PageSize         int64
	RateLimit        float64
	RateBurst        int
	BreakerThreshold uint32
	BreakerTimeout   time.Duration
}

// AuditConfig represents the configuration for an audit run
type AuditConfig struct {
	MaxMessages   int
	RefreshUnread bool
}

// CollectorConfig represents the configuration for the fetch worker pool
type CollectorConfig struct {
	Workers        int
	MaxAttempts    int
	InitialBackoff time.Duration
	MaxBackoff     time.Duration
}

// CacheConfig represents the configuration for the metadata cache
type CacheConfig struct {
	Type string
	Path string
}

// MetricsConfig represents the configuration for sender metrics aggregation
type MetricsConfig struct {
	VolumeCap          int
	UnreadWeight       float64
	VolumeWeight       float64
	DistinctOpenSignal bool
}

// ClusterConfig represents the configuration for sender clustering
type ClusterConfig struct {
	Count         int
	MaxIterations int
	Seed          int64
}

// ReportConfig represents the configuration for report rendering
type ReportConfig struct {
	TopSenders       int
	CSVPath          string
	DatasetPath      string
	ProtectedDomains []string
	MinCleanupVolume int
	BaselineEnabled  bool
}

// BaselineConfig represents a previously recorded mailbox snapshot used for
// run-over-run comparison
type BaselineConfig struct {
	TotalMessages      int
	UnreadRate         float64
	AvgOpenRate        float64
	NeverOpenedSenders int
	TopSenderVolume    int
}

// AnnotatorConfig represents the configuration for the optional subject annotator
type AnnotatorConfig struct {
	Enabled  bool
	Provider string
}

// BedrockConfig represents the configuration for Amazon Bedrock
type BedrockConfig struct {
	Region        string
	ModelID       string
	MaxTokens     int
	Temperature   float32
	TopP          float32
	MaxPromptSize int
}

// GeminiConfig represents the configuration for Google Gemini
type GeminiConfig struct {
	APIKey        string
	ModelName     string
	MaxTokens     int
	Temperature   float32
	TopP          float32
	MaxPromptSize int
}

// OpenAIConfig represents the configuration for OpenAI
type OpenAIConfig struct {
	APIKey        string
	ModelName     string
	MaxTokens     int
	Temperature   float32
	TopP          float32
	MaxPromptSize int
}

// GetGmail returns the Gmail source configuration
func (c *Config) GetGmail() GmailConfig {
	breakerTimeout, err := c.GetDuration("gmail.breaker_timeout")
	if err != nil {
		breakerTimeout = 30 * time.Second
	}
	return GmailConfig{
		CredentialsPath:  c.GetString("gmail.credentials_path"),
		TokenPath:        c.GetString("gmail.token_path"),
		Query:            c.GetString("gmail.query"),
		PageSize:         c.GetInt64("gmail.page_size"),
		RateLimit:        c.GetFloat64("gmail.rate_limit"),
		RateBurst:        c.GetInt("gmail.rate_burst"),
		BreakerThreshold: uint32(c.GetInt("gmail.breaker_threshold")),
		BreakerTimeout:   breakerTimeout,
	}
}

// GetAudit returns the audit run configuration
func (c *Config) GetAudit() AuditConfig {
	return AuditConfig{
		MaxMessages:   c.GetInt("audit.max_messages"),
		RefreshUnread: c.GetBool("audit.refresh_unread"),
	}
}

// GetCollector returns the collector pool configuration
func (c *Config) GetCollector() CollectorConfig {
	initialBackoff, err := c.GetDuration("collector.initial_backoff")
	if err != nil {
		initialBackoff = 100 * time.Millisecond
	}
	maxBackoff, err := c.GetDuration("collector.max_backoff")
	if err != nil {
		maxBackoff = 5 * time.Second
	}
	return CollectorConfig{
		Workers:        c.GetInt("collector.workers"),
		MaxAttempts:    c.GetInt("collector.max_attempts"),
		InitialBackoff: initialBackoff,
		MaxBackoff:     maxBackoff,
	}
}

// GetCache returns the cache configuration
func (c *Config) GetCache() CacheConfig {
	return CacheConfig{
		Type: c.GetString("cache.type"),
		Path: c.GetString("cache.path"),
	}
}

// GetMetrics returns the metrics engine configuration
func (c *Config) GetMetrics() MetricsConfig {
	return MetricsConfig{
		VolumeCap:          c.GetInt("metrics.volume_cap"),
		UnreadWeight:       c.GetFloat64("metrics.unread_weight"),
		VolumeWeight:       c.GetFloat64("metrics.volume_weight"),
		DistinctOpenSignal: c.GetBool("metrics.distinct_open_signal"),
	}
}

// GetCluster returns the clustering configuration
func (c *Config) GetCluster() ClusterConfig {
	return ClusterConfig{
		Count:         c.GetInt("cluster.count"),
		MaxIterations: c.GetInt("cluster.max_iterations"),
		Seed:          c.GetInt64("cluster.seed"),
	}
}

// GetReport returns the report configuration
func (c *Config) GetReport() ReportConfig {
	return ReportConfig{
		TopSenders:       c.GetInt("report.top_senders"),
		CSVPath:          c.GetString("report.csv_path"),
		DatasetPath:      c.GetString("report.dataset_path"),
		ProtectedDomains: c.GetStringSlice("report.protected_domains"),
		MinCleanupVolume: c.GetInt("report.min_cleanup_volume"),
		BaselineEnabled:  c.GetBool("report.baseline_enabled"),
	}
}

// GetBaseline returns the recorded baseline metrics
func (c *Config) GetBaseline() BaselineConfig {
	return BaselineConfig{
		TotalMessages:      c.GetInt("report.baseline.total_messages"),
		UnreadRate:         c.GetFloat64("report.baseline.unread_rate"),
		AvgOpenRate:        c.GetFloat64("report.baseline.avg_open_rate"),
		NeverOpenedSenders: c.GetInt("report.baseline.never_opened_senders"),
		TopSenderVolume:    c.GetInt("report.baseline.top_sender_volume"),
	}
}

// GetAnnotator returns the annotator configuration
func (c *Config) GetAnnotator() AnnotatorConfig {
	return AnnotatorConfig{
		Enabled:  c.GetBool("annotator.enabled"),
		Provider: c.GetString("annotator.provider"),
	}
}

// GetBedrock returns the Bedrock configuration
func (c *Config) GetBedrock() BedrockConfig {
	return BedrockConfig{
		Region:        c.GetString("bedrock.region"),
		ModelID:       c.GetString("bedrock.model_id"),
		MaxTokens:     c.GetInt("bedrock.max_tokens"),
		Temperature:   float32(c.GetFloat64("bedrock.temperature")),
		TopP:          float32(c.GetFloat64("bedrock.top_p")),
		MaxPromptSize: c.GetInt("bedrock.max_prompt_size"),
	}
}

// GetGemini returns the Gemini configuration
func (c *Config) GetGemini() GeminiConfig {
	return GeminiConfig{
		APIKey:        c.GetString("gemini.api_key"),
		ModelName:     c.GetString("gemini.model_name"),
		MaxTokens:     c.GetInt("gemini.max_tokens"),
		Temperature:   float32(c.GetFloat64("gemini.temperature")),
		TopP:          float32(c.GetFloat64("gemini.top_p")),
		MaxPromptSize: c.GetInt("gemini.max_prompt_size"),
	}
}

// GetOpenAI returns the OpenAI configuration
func (c *Config) GetOpenAI() OpenAIConfig {
	return OpenAIConfig{
		APIKey:        c.GetString("openai.api_key"),
		ModelName:     c.GetString("openai.model_name"),
		MaxTokens:     c.GetInt("openai.max_tokens"),
		Temperature:   float32(c.GetFloat64("openai.temperature")),
		TopP:          float32(c.GetFloat64("openai.top_p")),
		MaxPromptSize: c.GetInt("openai.max_prompt_size"),
	}
}
