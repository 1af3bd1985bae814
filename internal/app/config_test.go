package app

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/yungbote/coursechat-backend/internal/extract"
)

func TestLoadDefaults(t *testing.T) {
	t.Chdir(t.TempDir())
	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.HTTP.Addr() != ":5000" {
		t.Fatalf("addr: got=%q", cfg.HTTP.Addr())
	}
	if cfg.Blob.Backend != BlobBackendLocal || cfg.Blob.PublicPath != "/uploads" {
		t.Fatalf("blob: %+v", cfg.Blob)
	}
	if cfg.Blob.MaxUploadBytes != 100<<20 {
		t.Fatalf("max upload: got=%d", cfg.Blob.MaxUploadBytes)
	}
	if cfg.Engine.Timeout != 60*time.Second || cfg.Cleanup.Timeout != 30*time.Second {
		t.Fatalf("durations: engine=%s cleanup=%s", cfg.Engine.Timeout, cfg.Cleanup.Timeout)
	}
	policy, err := cfg.Extract.Policy()
	if err != nil {
		t.Fatalf("Policy: %v", err)
	}
	if policy != extract.DefaultPolicy() {
		t.Fatalf("policy: want=%+v got=%+v", extract.DefaultPolicy(), policy)
	}
}

func TestLoadEnvOverrides(t *testing.T) {
	t.Chdir(t.TempDir())
	t.Setenv("PORT", "8081")
	t.Setenv("DB_DSN", "bare.db")
	t.Setenv("COURSECHAT_DB_DSN", "prefixed.db")
	t.Setenv("GROQ_API_KEY", "gsk_test")
	t.Setenv("COURSECHAT_EXTRACT_IMAGE", "eager")
	t.Setenv("COURSECHAT_BLOB_MAX_UPLOAD_BYTES", "2048")
	t.Setenv("CORS_ORIGINS", "http://a.test, http://b.test")

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.HTTP.Port != 8081 {
		t.Fatalf("port: got=%d", cfg.HTTP.Port)
	}
	if cfg.DB.DSN != "prefixed.db" {
		t.Fatalf("prefixed name should win: got=%q", cfg.DB.DSN)
	}
	if cfg.Engine.APIKey != "gsk_test" {
		t.Fatalf("api key: got=%q", cfg.Engine.APIKey)
	}
	if cfg.Extract.Image != "eager" || cfg.Blob.MaxUploadBytes != 2048 {
		t.Fatalf("overrides: image=%q max=%d", cfg.Extract.Image, cfg.Blob.MaxUploadBytes)
	}
	if got := strings.Join(cfg.HTTP.CORSOrigins, "|"); got != "http://a.test|http://b.test" {
		t.Fatalf("cors: got=%q", got)
	}
}

func TestLoadFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "coursechat.yaml")
	body := "http:\n  port: 9090\nextract:\n  pdf: eager\n  pdf_provider: none\ncleanup:\n  timeout: 5s\n"
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.HTTP.Port != 9090 || cfg.Extract.PDF != "eager" || cfg.Extract.PDFProvider != ProviderNone {
		t.Fatalf("file values not applied: %+v %+v", cfg.HTTP, cfg.Extract)
	}
	if cfg.Cleanup.Timeout != 5*time.Second {
		t.Fatalf("cleanup timeout: got=%s", cfg.Cleanup.Timeout)
	}
	if cfg.Extract.Audio != "eager" {
		t.Fatalf("unset keys keep defaults: audio=%q", cfg.Extract.Audio)
	}

	if _, err := Load(filepath.Join(dir, "missing.yaml")); err == nil {
		t.Fatalf("explicit missing file should fail")
	}
}

func TestValidate(t *testing.T) {
	t.Chdir(t.TempDir())
	base, err := Load("")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if err := base.Validate(); err != nil {
		t.Fatalf("defaults should validate: %v", err)
	}

	cases := []struct {
		name   string
		mutate func(*Config)
		want   string
	}{
		{"lazy audio", func(c *Config) { c.Extract.Audio = "lazy" }, "lazy transcription"},
		{"unknown mode", func(c *Config) { c.Extract.Image = "sometimes" }, "extract.image"},
		{"bad backend", func(c *Config) { c.Blob.Backend = "s3" }, "blob.backend"},
		{"gcs without bucket", func(c *Config) { c.Blob.Backend = BlobBackendGCS }, "blob.bucket"},
		{"bad driver", func(c *Config) { c.DB.Driver = "mysql" }, "db.driver"},
		{"empty dsn", func(c *Config) { c.DB.DSN = " " }, "db.dsn"},
		{"ocr provider", func(c *Config) { c.Extract.OCRProvider = "tesseract" }, "extract.ocr_provider"},
		{"documentai without processor", func(c *Config) { c.Extract.PDFProvider = ProviderDocumentAI }, "processor_id"},
		{"public path", func(c *Config) { c.Blob.PublicPath = "uploads" }, "public_path"},
		{"port", func(c *Config) { c.HTTP.Port = 0 }, "http.port"},
		{"max upload", func(c *Config) { c.Blob.MaxUploadBytes = 0 }, "max_upload_bytes"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			cfg := base
			tc.mutate(&cfg)
			err := cfg.Validate()
			if err == nil || !strings.Contains(err.Error(), tc.want) {
				t.Fatalf("want error containing %q, got=%v", tc.want, err)
			}
		})
	}
}
