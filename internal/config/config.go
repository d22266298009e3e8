package config

import (
	"os"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds all application configuration.
type Config struct {
	Server  ServerConfig
	Log     LogConfig
	CORS    CORSConfig
	LLM     LLMConfig
	OCR     OCRConfig
	Extract ExtractConfig
	S3      S3Config
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Port         string        `mapstructure:"port"`
	ReadTimeout  time.Duration `mapstructure:"read_timeout"`
	WriteTimeout time.Duration `mapstructure:"write_timeout"`
	Environment  string        `mapstructure:"environment"`
}

// LogConfig holds logging settings.
type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// CORSConfig holds CORS settings.
type CORSConfig struct {
	AllowedOrigins []string `mapstructure:"allowed_origins"`
}

// LLMConfig holds settings for the chat-completion provider used by the
// LLM-assisted extraction path. An empty Provider disables the LLM path.
type LLMConfig struct {
	Provider    string  `mapstructure:"provider"`
	APIKey      string  `mapstructure:"api_key"`
	BaseURL     string  `mapstructure:"base_url"`
	Model       string  `mapstructure:"model"`
	MaxTokens   int     `mapstructure:"max_tokens"`
	Temperature float64 `mapstructure:"temperature"`
	TimeoutSecs int     `mapstructure:"timeout_secs"`
}

// Enabled reports whether an LLM provider is configured.
func (l *LLMConfig) Enabled() bool {
	return l.Provider != ""
}

// Timeout returns the request timeout, defaulting to 60s.
func (l *LLMConfig) Timeout() time.Duration {
	if l.TimeoutSecs <= 0 {
		return 60 * time.Second
	}
	return time.Duration(l.TimeoutSecs) * time.Second
}

// OCRConfig holds settings for the external rendering and OCR binaries.
type OCRConfig struct {
	Pdftoppm    string `mapstructure:"pdftoppm"`
	Tesseract   string `mapstructure:"tesseract"`
	Lang        string `mapstructure:"lang"`
	DPI         int    `mapstructure:"dpi"`
	MaxPages    int    `mapstructure:"max_pages"` // 0 = no limit
	Concurrency int    `mapstructure:"concurrency"`
}

// ExtractConfig holds settings for the extraction pipeline.
type ExtractConfig struct {
	MaxFileSizeMB    int64   `mapstructure:"max_file_size_mb"`
	TotalTolerance   float64 `mapstructure:"total_tolerance"`
	TextExcerptChars int     `mapstructure:"text_excerpt_chars"`
}

// S3Config holds AWS S3 settings for fetching source documents.
type S3Config struct {
	Region    string `mapstructure:"region"`
	Bucket    string `mapstructure:"bucket"`
	Endpoint  string `mapstructure:"endpoint"`
	AccessKey string `mapstructure:"access_key"`
	SecretKey string `mapstructure:"secret_key"`
}

// Enabled reports whether a bucket has been configured.
func (s *S3Config) Enabled() bool {
	return s.Bucket != ""
}

// Load reads configuration from environment variables with the DOCX_ prefix.
func Load() (*Config, error) {
	v := viper.New()
	v.SetEnvPrefix("DOCX")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Server defaults
	v.SetDefault("server.port", ":8080")
	v.SetDefault("server.read_timeout", "30s")
	v.SetDefault("server.write_timeout", "120s")
	v.SetDefault("server.environment", "development")

	// Log defaults
	v.SetDefault("log.level", "debug")
	v.SetDefault("log.format", "console")

	// CORS defaults (localhost origins for development)
	v.SetDefault("cors.allowed_origins", "http://localhost:3000,http://127.0.0.1:3000,http://localhost:3001,http://127.0.0.1:3001")

	// LLM defaults
	v.SetDefault("llm.provider", "openrouter")
	v.SetDefault("llm.api_key", "")
	v.SetDefault("llm.base_url", "")
	v.SetDefault("llm.model", "gpt-4o-mini")
	v.SetDefault("llm.max_tokens", 800)
	v.SetDefault("llm.temperature", 0.0)
	v.SetDefault("llm.timeout_secs", 60)

	// OCR defaults
	v.SetDefault("ocr.pdftoppm", "pdftoppm")
	v.SetDefault("ocr.tesseract", "tesseract")
	v.SetDefault("ocr.lang", "eng")
	v.SetDefault("ocr.dpi", 300)
	v.SetDefault("ocr.max_pages", 0)
	v.SetDefault("ocr.concurrency", 1)

	// Extraction defaults
	v.SetDefault("extract.max_file_size_mb", 20)
	v.SetDefault("extract.total_tolerance", 1.0)
	v.SetDefault("extract.text_excerpt_chars", 4000)

	// S3 defaults
	v.SetDefault("s3.region", "us-east-1")
	v.SetDefault("s3.bucket", "")
	v.SetDefault("s3.endpoint", "")

	// Bind environment variables explicitly for nested keys
	envBindings := map[string]string{
		"server.port":                "DOCX_SERVER_PORT",
		"server.read_timeout":        "DOCX_SERVER_READ_TIMEOUT",
		"server.write_timeout":       "DOCX_SERVER_WRITE_TIMEOUT",
		"server.environment":         "DOCX_SERVER_ENVIRONMENT",
		"log.level":                  "DOCX_LOG_LEVEL",
		"log.format":                 "DOCX_LOG_FORMAT",
		"cors.allowed_origins":       "DOCX_CORS_ALLOWED_ORIGINS",
		"llm.provider":               "DOCX_LLM_PROVIDER",
		"llm.api_key":                "DOCX_LLM_API_KEY",
		"llm.base_url":               "DOCX_LLM_BASE_URL",
		"llm.model":                  "DOCX_LLM_MODEL",
		"llm.max_tokens":             "DOCX_LLM_MAX_TOKENS",
		"llm.temperature":            "DOCX_LLM_TEMPERATURE",
		"llm.timeout_secs":           "DOCX_LLM_TIMEOUT_SECS",
		"ocr.pdftoppm":               "DOCX_OCR_PDFTOPPM",
		"ocr.tesseract":              "DOCX_OCR_TESSERACT",
		"ocr.lang":                   "DOCX_OCR_LANG",
		"ocr.dpi":                    "DOCX_OCR_DPI",
		"ocr.max_pages":              "DOCX_OCR_MAX_PAGES",
		"ocr.concurrency":            "DOCX_OCR_CONCURRENCY",
		"extract.max_file_size_mb":   "DOCX_EXTRACT_MAX_FILE_SIZE_MB",
		"extract.total_tolerance":    "DOCX_EXTRACT_TOTAL_TOLERANCE",
		"extract.text_excerpt_chars": "DOCX_EXTRACT_TEXT_EXCERPT_CHARS",
		"s3.region":                  "DOCX_S3_REGION",
		"s3.bucket":                  "DOCX_S3_BUCKET",
		"s3.endpoint":                "DOCX_S3_ENDPOINT",
		"s3.access_key":              "DOCX_S3_ACCESS_KEY",
		"s3.secret_key":              "DOCX_S3_SECRET_KEY",
	}
	for key, env := range envBindings {
		_ = v.BindEnv(key, env)
	}

	cfg := &Config{}

	// Railway/Heroku/Render set a PORT env var. Use it if DOCX_SERVER_PORT is not explicitly set.
	serverPort := v.GetString("server.port")
	if port := os.Getenv("PORT"); port != "" && os.Getenv("DOCX_SERVER_PORT") == "" {
		serverPort = ":" + port
	}

	cfg.Server = ServerConfig{
		Port:         serverPort,
		ReadTimeout:  v.GetDuration("server.read_timeout"),
		WriteTimeout: v.GetDuration("server.write_timeout"),
		Environment:  v.GetString("server.environment"),
	}
	cfg.Log = LogConfig{
		Level:  v.GetString("log.level"),
		Format: v.GetString("log.format"),
	}
	cfg.CORS = CORSConfig{
		AllowedOrigins: splitList(v.GetString("cors.allowed_origins")),
	}
	cfg.LLM = LLMConfig{
		Provider:    strings.ToLower(strings.TrimSpace(v.GetString("llm.provider"))),
		APIKey:      v.GetString("llm.api_key"),
		BaseURL:     v.GetString("llm.base_url"),
		Model:       v.GetString("llm.model"),
		MaxTokens:   v.GetInt("llm.max_tokens"),
		Temperature: v.GetFloat64("llm.temperature"),
		TimeoutSecs: v.GetInt("llm.timeout_secs"),
	}
	cfg.OCR = OCRConfig{
		Pdftoppm:    v.GetString("ocr.pdftoppm"),
		Tesseract:   v.GetString("ocr.tesseract"),
		Lang:        v.GetString("ocr.lang"),
		DPI:         v.GetInt("ocr.dpi"),
		MaxPages:    v.GetInt("ocr.max_pages"),
		Concurrency: v.GetInt("ocr.concurrency"),
	}
	cfg.Extract = ExtractConfig{
		MaxFileSizeMB:    v.GetInt64("extract.max_file_size_mb"),
		TotalTolerance:   v.GetFloat64("extract.total_tolerance"),
		TextExcerptChars: v.GetInt("extract.text_excerpt_chars"),
	}
	cfg.S3 = S3Config{
		Region:    v.GetString("s3.region"),
		Bucket:    v.GetString("s3.bucket"),
		Endpoint:  v.GetString("s3.endpoint"),
		AccessKey: v.GetString("s3.access_key"),
		SecretKey: v.GetString("s3.secret_key"),
	}

	return cfg, nil
}

// splitList parses a comma-separated string, dropping empty entries.
func splitList(s string) []string {
	var out []string
	for _, o := range strings.Split(s, ",") {
		o = strings.TrimSpace(o)
		if o != "" {
			out = append(out, o)
		}
	}
	return out
}
