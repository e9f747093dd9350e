package common

import (
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds all application configuration
type Config struct {
	Store      StoreConfig
	OCR        OCRConfig
	Extraction ExtractionConfig
	LLM        LLMConfig
	Telegram   TelegramConfig
	Polling    PollingConfig
	Journal    JournalConfig
	Events     EventsConfig
	Server     ServerConfig
	LogLevel   slog.Level
}

// StoreConfig points at the content store HTTP surface.
type StoreConfig struct {
	BaseURL string
	Token   string
	Timeout time.Duration
}

// OCRConfig holds OCR-related configuration
type OCRConfig struct {
	Provider      string // "vision" | "tesseract"
	VisionAPIKey  string
	VisionURL     string
	Tesseract     string
	TesseractLang string
	TessdataDir   string
	Timeout       time.Duration
}

// ExtractionConfig selects the field extraction strategy.
type ExtractionConfig struct {
	Strategy          string // "ai" | "regex"
	Timeout           time.Duration
	SubmitOnMalformed bool
}

// LLMConfig holds LLM-related configuration
type LLMConfig struct {
	Model       string
	APIKey      string
	BaseURL     string
	Temperature float32
	Timeout     time.Duration
}

type TelegramConfig struct {
	Token       string
	PollTimeout int // long-poll seconds
	Debug       bool
}

// PollingConfig drives the browser-sampled chat transport.
type PollingConfig struct {
	Enabled       bool
	URL           string
	Chat          string
	ProfileDir    string
	Headless      bool
	MinBackoff    time.Duration
	MaxBackoff    time.Duration
	SampleTimeout time.Duration
}

// JournalConfig holds the audit journal database configuration.
// DSN: postgres://... uses pgx; "sqlite:<path>" or ":memory:" uses sqlite; empty disables.
type JournalConfig struct {
	DSN             string
	MaxConns        int32
	MinConns        int32
	MaxConnLifetime time.Duration
	MaxConnIdleTime time.Duration
	DialTimeout     time.Duration
}

type EventsConfig struct {
	NATSURL string
	Subject string // subject prefix
}

// ServerConfig holds server-related configuration
type ServerConfig struct {
	GRPCAddr string
	HTTPAddr string // "off" disables the analyze endpoint
}

// HTTPEnabled reports whether the analyze endpoint should listen.
func (s ServerConfig) HTTPEnabled() bool {
	return s.HTTPAddr != "" && !strings.EqualFold(s.HTTPAddr, "off")
}

// LoadConfig loads configuration from environment variables
func LoadConfig() *Config {
	return &Config{
		Store: StoreConfig{
			BaseURL: strings.TrimRight(getEnv("VAGAS_API_URL", ""), "/"),
			Token:   getEnv("VAGAS_API_TOKEN", ""),
			Timeout: getEnvAsDuration("VAGAS_API_TIMEOUT", 25*time.Second),
		},
		OCR: OCRConfig{
			Provider:      strings.ToLower(getEnv("OCR_PROVIDER", "vision")),
			VisionAPIKey:  getEnv("GOOGLE_VISION_API_KEY", ""),
			VisionURL:     getEnv("VISION_ENDPOINT", "https://vision.googleapis.com/v1/images:annotate"),
			Tesseract:     getEnv("TESSERACT_BIN", "tesseract"),
			TesseractLang: getEnv("TESSERACT_LANG", "por"),
			TessdataDir:   getEnv("TESSDATA_PREFIX", ""),
			Timeout:       getEnvAsDuration("OCR_TIMEOUT", 30*time.Second),
		},
		Extraction: ExtractionConfig{
			Strategy:          strings.ToLower(getEnv("EXTRACTION_STRATEGY", "ai")),
			Timeout:           getEnvAsDuration("EXTRACTION_TIMEOUT", 60*time.Second),
			SubmitOnMalformed: getEnvAsBool("SUBMIT_ON_MALFORMED", true),
		},
		LLM: LLMConfig{
			Model:       getEnv("OPENAI_MODEL", "gpt-4o-mini"),
			APIKey:      getEnv("OPENAI_API_KEY", ""),
			BaseURL:     getEnv("OPENAI_BASE_URL", "https://api.openai.com/v1"),
			Temperature: getEnvAsFloat32("OPENAI_TEMPERATURE", 0.0),
			Timeout:     getEnvAsDuration("OPENAI_TIMEOUT", 45*time.Second),
		},
		Telegram: TelegramConfig{
			Token:       getEnv("TELEGRAM_BOT_TOKEN", ""),
			PollTimeout: getEnvAsInt("TELEGRAM_POLL_TIMEOUT", 60),
			Debug:       getEnvAsBool("TELEGRAM_DEBUG", false),
		},
		Polling: PollingConfig{
			Enabled:       getEnvAsBool("WHATSAPP_ENABLED", false),
			URL:           getEnv("WHATSAPP_URL", "https://web.whatsapp.com"),
			Chat:          getEnv("WHATSAPP_CHAT", ""),
			ProfileDir:    getEnv("CHROME_PROFILE_DIR", "./chrome-profile"),
			Headless:      getEnvAsBool("CHROME_HEADLESS", false),
			MinBackoff:    getEnvAsDuration("POLL_MIN_BACKOFF", time.Second),
			MaxBackoff:    getEnvAsDuration("POLL_MAX_BACKOFF", 10*time.Second),
			SampleTimeout: getEnvAsDuration("POLL_SAMPLE_TIMEOUT", 20*time.Second),
		},
		Journal: JournalConfig{
			DSN:             getEnv("JOURNAL_DSN", ""),
			MaxConns:        getEnvAsInt32("JOURNAL_MAX_CONNS", 5),
			MinConns:        getEnvAsInt32("JOURNAL_MIN_CONNS", 1),
			MaxConnLifetime: getEnvAsDuration("JOURNAL_MAX_CONN_LIFETIME", 30*time.Minute),
			MaxConnIdleTime: getEnvAsDuration("JOURNAL_MAX_CONN_IDLE_TIME", 5*time.Minute),
			DialTimeout:     getEnvAsDuration("JOURNAL_DIAL_TIMEOUT", 3*time.Second),
		},
		Events: EventsConfig{
			NATSURL: getEnv("NATS_URL", ""),
			Subject: getEnv("NATS_SUBJECT_PREFIX", "vagas"),
		},
		Server: ServerConfig{
			GRPCAddr: getEnv("GRPC_ADDR", ":8080"),
			HTTPAddr: getEnv("HTTP_ADDR", ":8081"),
		},
		LogLevel: getEnvAsLevel("LOG_LEVEL", slog.LevelInfo),
	}
}

// Helper functions for environment variable parsing
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}

func getEnvAsInt32(key string, defaultValue int32) int32 {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.ParseInt(value, 10, 32); err == nil {
			return int32(intVal)
		}
	}
	return defaultValue
}

func getEnvAsFloat32(key string, defaultValue float32) float32 {
	if value := os.Getenv(key); value != "" {
		if floatVal, err := strconv.ParseFloat(value, 32); err == nil {
			return float32(floatVal)
		}
	}
	return defaultValue
}

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultValue
}

func getEnvAsBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if b, err := strconv.ParseBool(value); err == nil {
			return b
		}
	}
	return defaultValue
}

func getEnvAsLevel(key string, defaultValue slog.Level) slog.Level {
	if value := os.Getenv(key); value != "" {
		var lvl slog.Level
		if err := lvl.UnmarshalText([]byte(value)); err == nil {
			return lvl
		}
	}
	return defaultValue
}

// Validate checks the settings every entry point needs: OCR and extraction.
func (c *Config) Validate() error {
	v := NewValidator().
		Field("OCR_PROVIDER", c.OCR.Provider, OneOf("vision", "tesseract")).
		When(c.OCR.Provider == "vision", "GOOGLE_VISION_API_KEY", c.OCR.VisionAPIKey, Required).
		Field("VISION_ENDPOINT", c.OCR.VisionURL, AbsoluteURL).
		Field("EXTRACTION_STRATEGY", c.Extraction.Strategy, OneOf("ai", "regex")).
		When(c.Extraction.Strategy == "ai", "OPENAI_API_KEY", c.LLM.APIKey, Required).
		Field("OPENAI_BASE_URL", c.LLM.BaseURL, AbsoluteURL)
	if v.HasErrors() {
		return NewAppError(CodeConfig, v.ErrorMessage(), ErrInvalidInput)
	}
	return nil
}

// ValidateStore checks the content store settings.
func (c *Config) ValidateStore() error {
	v := NewValidator().
		Field("VAGAS_API_URL", c.Store.BaseURL, Required, AbsoluteURL).
		Field("VAGAS_API_TOKEN", c.Store.Token, Required)
	if v.HasErrors() {
		return NewAppError(CodeConfig, v.ErrorMessage(), ErrInvalidInput)
	}
	return nil
}

// ValidateDaemon checks everything the long-running bot needs.
func (c *Config) ValidateDaemon() error {
	if err := c.Validate(); err != nil {
		return err
	}
	if err := c.ValidateStore(); err != nil {
		return err
	}
	v := NewValidator().
		Field("GRPC_ADDR", c.Server.GRPCAddr, Required).
		When(c.Polling.Enabled, "WHATSAPP_URL", c.Polling.URL, Required, AbsoluteURL)
	if c.Telegram.Token == "" && !c.Polling.Enabled {
		v.Field("TELEGRAM_BOT_TOKEN", c.Telegram.Token, func(name string, value interface{}) *ValidationError {
			return &ValidationError{Field: name, Value: value, Message: "is required unless WHATSAPP_ENABLED=true"}
		})
	}
	if c.Polling.MaxBackoff < c.Polling.MinBackoff {
		v.Field("POLL_MAX_BACKOFF", c.Polling.MaxBackoff.String(), func(name string, value interface{}) *ValidationError {
			return &ValidationError{Field: name, Value: value, Message: "must not be below POLL_MIN_BACKOFF"}
		})
	}
	if v.HasErrors() {
		return NewAppError(CodeConfig, v.ErrorMessage(), ErrInvalidInput)
	}
	return nil
}
