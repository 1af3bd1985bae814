package app

import (
	"errors"
	"fmt"
	"net"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/yungbote/coursechat-backend/internal/db"
	"github.com/yungbote/coursechat-backend/internal/extract"
	"github.com/yungbote/coursechat-backend/internal/platform/envutil"
	"github.com/yungbote/coursechat-backend/internal/platform/openai"
)

const envPrefix = "COURSECHAT"

type Config struct {
	Env     string        `mapstructure:"env"`
	LogMode string        `mapstructure:"log_mode"`
	Version string        `mapstructure:"version"`
	HTTP    HTTPConfig    `mapstructure:"http"`
	DB      DBConfig      `mapstructure:"db"`
	Blob    BlobConfig    `mapstructure:"blob"`
	Engine  EngineConfig  `mapstructure:"engine"`
	Extract ExtractConfig `mapstructure:"extract"`
	Prompts PromptsConfig `mapstructure:"prompts"`
	Redis   RedisConfig   `mapstructure:"redis"`
	Auth    AuthConfig    `mapstructure:"auth"`
	Metrics MetricsConfig `mapstructure:"metrics"`
	Otel    OtelConfig    `mapstructure:"otel"`
	Cleanup CleanupConfig `mapstructure:"cleanup"`
}

type HTTPConfig struct {
	Host          string        `mapstructure:"host"`
	Port          int           `mapstructure:"port"`
	ShutdownGrace time.Duration `mapstructure:"shutdown_grace"`
	CORSOrigins   []string      `mapstructure:"cors_origins"`
	MaxBodyBytes  int64         `mapstructure:"max_body_bytes"`
}

func (c HTTPConfig) Addr() string {
	return net.JoinHostPort(c.Host, strconv.Itoa(c.Port))
}

type DBConfig struct {
	Driver          string        `mapstructure:"driver"`
	DSN             string        `mapstructure:"dsn"`
	MaxOpenConns    int           `mapstructure:"max_open_conns"`
	MaxIdleConns    int           `mapstructure:"max_idle_conns"`
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime"`
	LogQueries      bool          `mapstructure:"log_queries"`
}

const (
	BlobBackendLocal       = "local"
	BlobBackendGCS         = "gcs"
	BlobBackendGCSEmulator = "gcs_emulator"
)

type BlobConfig struct {
	Backend        string        `mapstructure:"backend"`
	Dir            string        `mapstructure:"dir"`
	PublicPath     string        `mapstructure:"public_path"`
	Bucket         string        `mapstructure:"bucket"`
	EmulatorHost   string        `mapstructure:"emulator_host"`
	CDNDomain      string        `mapstructure:"cdn_domain"`
	PublicBaseURL  string        `mapstructure:"public_base_url"`
	MaxUploadBytes int64         `mapstructure:"max_upload_bytes"`
	Timeout        time.Duration `mapstructure:"timeout"`
}

type EngineConfig struct {
	APIKey          string        `mapstructure:"api_key"`
	BaseURL         string        `mapstructure:"base_url"`
	ChatModel       string        `mapstructure:"chat_model"`
	TranscribeModel string        `mapstructure:"transcribe_model"`
	Language        string        `mapstructure:"language"`
	Temperature     float64       `mapstructure:"temperature"`
	MaxTokens       int           `mapstructure:"max_tokens"`
	TopP            float64       `mapstructure:"top_p"`
	Timeout         time.Duration `mapstructure:"timeout"`
	MaxRetries      int           `mapstructure:"max_retries"`
	// AnswerTimeout bounds one question end to end, retries included.
	AnswerTimeout time.Duration `mapstructure:"answer_timeout"`
}

func (c EngineConfig) Client() openai.Config {
	return openai.Config{
		APIKey:          c.APIKey,
		BaseURL:         c.BaseURL,
		ChatModel:       c.ChatModel,
		TranscribeModel: c.TranscribeModel,
		Language:        c.Language,
		Temperature:     c.Temperature,
		MaxTokens:       c.MaxTokens,
		TopP:            c.TopP,
		Timeout:         c.Timeout,
		MaxRetries:      c.MaxRetries,
	}
}

const (
	ProviderNone       = "none"
	ProviderOpenAI     = "openai"
	ProviderGCP        = "gcp"
	ProviderLocal      = "local"
	ProviderDocumentAI = "documentai"
	ProviderOffice     = "office"
)

type ExtractConfig struct {
	Audio string `mapstructure:"audio"`
	Image string `mapstructure:"image"`
	PDF   string `mapstructure:"pdf"`
	File  string `mapstructure:"file"`

	AudioProvider    string `mapstructure:"audio_provider"`
	OCRProvider      string `mapstructure:"ocr_provider"`
	PDFProvider      string `mapstructure:"pdf_provider"`
	DocumentProvider string `mapstructure:"document_provider"`

	Timeout        time.Duration    `mapstructure:"timeout"`
	VisionHints    []string         `mapstructure:"vision_hints"`
	SpeechLanguage string           `mapstructure:"speech_language"`
	SpeechModel    string           `mapstructure:"speech_model"`
	DocumentAI     DocumentAIConfig `mapstructure:"documentai"`
}

type DocumentAIConfig struct {
	ProjectID        string `mapstructure:"project_id"`
	Location         string `mapstructure:"location"`
	ProcessorID      string `mapstructure:"processor_id"`
	ProcessorVersion string `mapstructure:"processor_version"`
}

// Policy parses the per-kind modes.
func (c ExtractConfig) Policy() (extract.Policy, error) {
	var p extract.Policy
	var err error
	if p.Audio, err = extract.ParseMode(c.Audio); err != nil {
		return p, fmt.Errorf("extract.audio: %w", err)
	}
	if p.Image, err = extract.ParseMode(c.Image); err != nil {
		return p, fmt.Errorf("extract.image: %w", err)
	}
	if p.PDF, err = extract.ParseMode(c.PDF); err != nil {
		return p, fmt.Errorf("extract.pdf: %w", err)
	}
	if p.File, err = extract.ParseMode(c.File); err != nil {
		return p, fmt.Errorf("extract.file: %w", err)
	}
	return p, p.Validate()
}

type PromptsConfig struct {
	// Path overrides the embedded answer prompt pack and is watched for edits.
	Path  string `mapstructure:"path"`
	Watch bool   `mapstructure:"watch"`
}

type RedisConfig struct {
	Addr      string        `mapstructure:"addr"`
	Password  string        `mapstructure:"password"`
	DB        int           `mapstructure:"db"`
	KeyPrefix string        `mapstructure:"key_prefix"`
	TTL       time.Duration `mapstructure:"ttl"`
}

type AuthConfig struct {
	JWTSecret string `mapstructure:"jwt_secret"`
	Issuer    string `mapstructure:"issuer"`
}

type MetricsConfig struct {
	Enabled        bool          `mapstructure:"enabled"`
	Addr           string        `mapstructure:"addr"`
	ScrapeInterval time.Duration `mapstructure:"scrape_interval"`
}

type OtelConfig struct {
	Enabled     bool    `mapstructure:"enabled"`
	ServiceName string  `mapstructure:"service_name"`
	Endpoint    string  `mapstructure:"endpoint"`
	Headers     string  `mapstructure:"headers"`
	Insecure    bool    `mapstructure:"insecure"`
	SampleRatio float64 `mapstructure:"sample_ratio"`
}

type CleanupConfig struct {
	QueueSize int           `mapstructure:"queue_size"`
	Timeout   time.Duration `mapstructure:"timeout"`
}

// bareEnv maps config keys to the unprefixed variable names deployments already set.
var bareEnv = map[string][]string{
	"env":                           {"APP_ENV"},
	"log_mode":                      {"LOG_MODE"},
	"http.port":                     {"PORT"},
	"http.cors_origins":             {"CORS_ORIGINS"},
	"db.driver":                     {"DB_DRIVER"},
	"db.dsn":                        {"DB_DSN", "DATABASE_URL"},
	"blob.backend":                  {"OBJECT_STORAGE_MODE"},
	"blob.dir":                      {"UPLOADS_DIR"},
	"blob.bucket":                   {"GCS_BUCKET"},
	"blob.emulator_host":            {"STORAGE_EMULATOR_HOST"},
	"blob.cdn_domain":               {"GCS_CDN_DOMAIN"},
	"engine.api_key":                {"GROQ_API_KEY"},
	"engine.base_url":               {"GROQ_BASE_URL"},
	"engine.chat_model":             {"GROQ_CHAT_MODEL"},
	"extract.documentai.project_id": {"GOOGLE_CLOUD_PROJECT"},
	"redis.addr":                    {"REDIS_ADDR"},
	"redis.password":                {"REDIS_PASSWORD"},
	"auth.jwt_secret":               {"AUTH_JWT_SECRET"},
	"metrics.enabled":               {"METRICS_ENABLED"},
	"metrics.addr":                  {"METRICS_ADDR"},
	"otel.enabled":                  {"OTEL_ENABLED"},
	"otel.endpoint":                 {"OTEL_EXPORTER_OTLP_ENDPOINT"},
	"otel.headers":                  {"OTEL_EXPORTER_OTLP_HEADERS"},
}

// Load layers defaults, an optional YAML file, and the environment, in that order.
// An empty path falls back to ./config.yaml when it exists.
func Load(path string) (Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetConfigType("yaml")
	if path = strings.TrimSpace(path); path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return Config{}, fmt.Errorf("read config %s: %w", path, err)
		}
	} else {
		v.SetConfigName("config")
		v.AddConfigPath(".")
		if err := v.ReadInConfig(); err != nil {
			var notFound viper.ConfigFileNotFoundError
			if !errors.As(err, &notFound) {
				return Config{}, fmt.Errorf("read config: %w", err)
			}
		}
	}

	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	for key, names := range bareEnv {
		prefixed := envPrefix + "_" + strings.ToUpper(strings.ReplaceAll(key, ".", "_"))
		if err := v.BindEnv(append([]string{key, prefixed}, names...)...); err != nil {
			return Config{}, fmt.Errorf("bind env %s: %w", key, err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("unmarshal config: %w", err)
	}
	cfg.HTTP.CORSOrigins = splitList(cfg.HTTP.CORSOrigins)
	cfg.Extract.VisionHints = splitList(cfg.Extract.VisionHints)
	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("env", "development")
	v.SetDefault("log_mode", "development")
	v.SetDefault("version", "dev")

	v.SetDefault("http.host", "")
	v.SetDefault("http.port", 5000)
	v.SetDefault("http.shutdown_grace", "15s")
	v.SetDefault("http.cors_origins", []string{})
	v.SetDefault("http.max_body_bytes", 1<<20)

	v.SetDefault("db.driver", db.DriverSQLitePureGo)
	v.SetDefault("db.dsn", "coursechat.db")
	v.SetDefault("db.max_open_conns", 10)
	v.SetDefault("db.max_idle_conns", 5)
	v.SetDefault("db.conn_max_lifetime", "30m")
	v.SetDefault("db.log_queries", false)

	v.SetDefault("blob.backend", BlobBackendLocal)
	v.SetDefault("blob.dir", "uploads")
	v.SetDefault("blob.public_path", "/uploads")
	v.SetDefault("blob.bucket", "")
	v.SetDefault("blob.emulator_host", "")
	v.SetDefault("blob.cdn_domain", "")
	v.SetDefault("blob.public_base_url", "")
	v.SetDefault("blob.max_upload_bytes", 100<<20)
	v.SetDefault("blob.timeout", "30s")

	v.SetDefault("engine.api_key", "")
	v.SetDefault("engine.base_url", openai.DefaultBaseURL)
	v.SetDefault("engine.chat_model", openai.DefaultChatModel)
	v.SetDefault("engine.transcribe_model", openai.DefaultTranscribeModel)
	v.SetDefault("engine.language", "en")
	v.SetDefault("engine.temperature", 0.5)
	v.SetDefault("engine.max_tokens", 1024)
	v.SetDefault("engine.top_p", 1.0)
	v.SetDefault("engine.timeout", "60s")
	v.SetDefault("engine.max_retries", 2)
	v.SetDefault("engine.answer_timeout", "90s")

	def := extract.DefaultPolicy()
	v.SetDefault("extract.audio", string(def.Audio))
	v.SetDefault("extract.image", string(def.Image))
	v.SetDefault("extract.pdf", string(def.PDF))
	v.SetDefault("extract.file", string(def.File))
	v.SetDefault("extract.audio_provider", ProviderOpenAI)
	v.SetDefault("extract.ocr_provider", ProviderGCP)
	v.SetDefault("extract.pdf_provider", ProviderLocal)
	v.SetDefault("extract.document_provider", ProviderOffice)
	v.SetDefault("extract.timeout", "60s")
	v.SetDefault("extract.vision_hints", []string{"en"})
	v.SetDefault("extract.speech_language", "en-US")
	v.SetDefault("extract.speech_model", "")
	v.SetDefault("extract.documentai.project_id", "")
	v.SetDefault("extract.documentai.location", "us")
	v.SetDefault("extract.documentai.processor_id", "")
	v.SetDefault("extract.documentai.processor_version", "")

	v.SetDefault("prompts.path", "")
	v.SetDefault("prompts.watch", true)

	v.SetDefault("redis.addr", "")
	v.SetDefault("redis.password", "")
	v.SetDefault("redis.db", 0)
	v.SetDefault("redis.key_prefix", "coursechat:ctx:")
	v.SetDefault("redis.ttl", "24h")

	v.SetDefault("auth.jwt_secret", "")
	v.SetDefault("auth.issuer", "")

	v.SetDefault("metrics.enabled", false)
	v.SetDefault("metrics.addr", "")
	v.SetDefault("metrics.scrape_interval", "15s")

	v.SetDefault("otel.enabled", false)
	v.SetDefault("otel.service_name", "coursechat")
	v.SetDefault("otel.endpoint", "")
	v.SetDefault("otel.headers", "")
	v.SetDefault("otel.insecure", false)
	v.SetDefault("otel.sample_ratio", 1.0)

	v.SetDefault("cleanup.queue_size", 256)
	v.SetDefault("cleanup.timeout", "30s")
}

// splitList flattens comma-separated entries, which is how list values arrive from env.
func splitList(in []string) []string {
	var out []string
	for _, item := range in {
		for _, part := range strings.Split(item, ",") {
			if part = strings.TrimSpace(part); part != "" {
				out = append(out, part)
			}
		}
	}
	return out
}

// Validate checks every setting New depends on, so a bad deploy fails before any
// connection is opened.
func (c Config) Validate() error {
	var errs []error
	if c.HTTP.Port <= 0 || c.HTTP.Port > 65535 {
		errs = append(errs, fmt.Errorf("http.port out of range: %d", c.HTTP.Port))
	}
	switch strings.ToLower(strings.TrimSpace(c.DB.Driver)) {
	case db.DriverPostgres, db.DriverSQLite, db.DriverSQLitePureGo:
	default:
		errs = append(errs, fmt.Errorf("db.driver: unsupported %q", c.DB.Driver))
	}
	if strings.TrimSpace(c.DB.DSN) == "" {
		errs = append(errs, fmt.Errorf("db.dsn is required"))
	}
	switch c.Blob.Backend {
	case BlobBackendLocal:
		if strings.TrimSpace(c.Blob.Dir) == "" {
			errs = append(errs, fmt.Errorf("blob.dir is required for the local backend"))
		}
	case BlobBackendGCS, BlobBackendGCSEmulator:
		if strings.TrimSpace(c.Blob.Bucket) == "" {
			errs = append(errs, fmt.Errorf("blob.bucket is required for the %s backend", c.Blob.Backend))
		}
	default:
		errs = append(errs, fmt.Errorf("blob.backend: unsupported %q", c.Blob.Backend))
	}
	if !strings.HasPrefix(c.Blob.PublicPath, "/") {
		errs = append(errs, fmt.Errorf("blob.public_path must start with /: %q", c.Blob.PublicPath))
	}
	if c.Blob.MaxUploadBytes <= 0 {
		errs = append(errs, fmt.Errorf("blob.max_upload_bytes must be positive"))
	}
	if _, err := c.Extract.Policy(); err != nil {
		errs = append(errs, err)
	}
	if err := oneOf("extract.audio_provider", c.Extract.AudioProvider, ProviderOpenAI, ProviderGCP, ProviderNone); err != nil {
		errs = append(errs, err)
	}
	if err := oneOf("extract.ocr_provider", c.Extract.OCRProvider, ProviderGCP, ProviderNone); err != nil {
		errs = append(errs, err)
	}
	if err := oneOf("extract.pdf_provider", c.Extract.PDFProvider, ProviderLocal, ProviderDocumentAI, ProviderNone); err != nil {
		errs = append(errs, err)
	}
	if err := oneOf("extract.document_provider", c.Extract.DocumentProvider, ProviderOffice, ProviderNone); err != nil {
		errs = append(errs, err)
	}
	if c.Extract.PDFProvider == ProviderDocumentAI && strings.TrimSpace(c.Extract.DocumentAI.ProcessorID) == "" {
		errs = append(errs, fmt.Errorf("extract.documentai.processor_id is required for the documentai pdf provider"))
	}
	if c.Cleanup.QueueSize <= 0 {
		errs = append(errs, fmt.Errorf("cleanup.queue_size must be positive"))
	}
	return errors.Join(errs...)
}

func oneOf(key, got string, allowed ...string) error {
	for _, a := range allowed {
		if got == a {
			return nil
		}
	}
	return fmt.Errorf("%s: unsupported %q (allowed: %s)", key, got, strings.Join(allowed, ", "))
}

// ConfigPathFromEnv is the fallback for --config.
func ConfigPathFromEnv() string {
	return envutil.String(envPrefix+"_CONFIG", "")
}
