package app

import (
	"context"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"

	"github.com/yungbote/coursechat-backend/internal/db"
	"github.com/yungbote/coursechat-backend/internal/domain/course"
	"github.com/yungbote/coursechat-backend/internal/extract"
	"github.com/yungbote/coursechat-backend/internal/platform/logger"
)

func testConfig(t *testing.T) Config {
	t.Helper()
	t.Chdir(t.TempDir())
	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	dir := t.TempDir()
	cfg.DB.Driver = db.DriverSQLitePureGo
	cfg.DB.DSN = filepath.Join(dir, "app.db")
	cfg.Blob.Dir = filepath.Join(dir, "uploads")
	cfg.Engine.APIKey = "gsk_test"
	cfg.Engine.BaseURL = "http://127.0.0.1:1"
	cfg.Extract.OCRProvider = ProviderNone
	cfg.Prompts.Watch = false
	return cfg
}

func newTestApp(t *testing.T, cfg Config) *App {
	t.Helper()
	a, err := NewWithLogger(context.Background(), logger.Nop(), cfg)
	if err != nil {
		t.Fatalf("NewWithLogger: %v", err)
	}
	t.Cleanup(a.Close)
	return a
}

func serve(a *App, method, path, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	rec := httptest.NewRecorder()
	a.Server.Engine.ServeHTTP(rec, req)
	return rec
}

func TestNewWiresRoutes(t *testing.T) {
	a := newTestApp(t, testConfig(t))

	if rec := serve(a, http.MethodGet, "/healthz", ""); rec.Code != http.StatusOK {
		t.Fatalf("healthz: %d", rec.Code)
	}
	if rec := serve(a, http.MethodGet, "/readyz", ""); rec.Code != http.StatusOK {
		t.Fatalf("readyz: %d body=%s", rec.Code, rec.Body.String())
	}
	rec := serve(a, http.MethodPost, "/api/courses", `{"name":"Operating Systems"}`)
	if rec.Code != http.StatusCreated {
		t.Fatalf("create course: %d body=%s", rec.Code, rec.Body.String())
	}
	if !strings.Contains(rec.Body.String(), "Operating Systems") {
		t.Fatalf("create course body: %s", rec.Body.String())
	}
}

func TestNewWithAuthGatesAPI(t *testing.T) {
	cfg := testConfig(t)
	cfg.Auth.JWTSecret = "secret"
	a := newTestApp(t, cfg)

	if rec := serve(a, http.MethodGet, "/api/courses", ""); rec.Code != http.StatusUnauthorized {
		t.Fatalf("want 401 got=%d", rec.Code)
	}
	if rec := serve(a, http.MethodGet, "/healthz", ""); rec.Code != http.StatusOK {
		t.Fatalf("health stays open: %d", rec.Code)
	}
}

func TestNewRejectsInvalidConfig(t *testing.T) {
	cfg := testConfig(t)
	cfg.Extract.Audio = "lazy"
	if _, err := NewWithLogger(context.Background(), logger.Nop(), cfg); err == nil {
		t.Fatalf("expected config error")
	}
}

func TestNewMissingAPIKey(t *testing.T) {
	cfg := testConfig(t)
	cfg.Engine.APIKey = ""
	if _, err := NewWithLogger(context.Background(), logger.Nop(), cfg); err == nil {
		t.Fatalf("expected answer engine error")
	}
}

func TestBuildExtractorOffKindsDialNothing(t *testing.T) {
	cfg := ExtractConfig{
		Audio: "off", Image: "off", PDF: "eager", File: "lazy",
		AudioProvider: ProviderGCP, OCRProvider: ProviderGCP,
		PDFProvider: ProviderLocal, DocumentProvider: ProviderOffice,
	}
	ex, closers, err := BuildExtractor(logger.Nop(), cfg, nil)
	if err != nil {
		t.Fatalf("BuildExtractor: %v", err)
	}
	if len(closers) != 0 {
		t.Fatalf("no cloud clients expected, got %d closers", len(closers))
	}
	if _, err := ex.Extract(context.Background(), course.KindImage, []byte("x"), "a.png"); err != extract.ErrNoExtractor {
		t.Fatalf("image: want ErrNoExtractor got=%v", err)
	}
	text, err := ex.Extract(context.Background(), course.KindFile, []byte("plain notes"), "notes.txt")
	if err != nil || text != "plain notes" {
		t.Fatalf("file: text=%q err=%v", text, err)
	}
}

func TestBuildExtractorWhisperNeedsEngine(t *testing.T) {
	cfg := ExtractConfig{Audio: "eager", Image: "off", PDF: "off", File: "off", AudioProvider: ProviderOpenAI}
	if _, _, err := BuildExtractor(logger.Nop(), cfg, nil); err == nil {
		t.Fatalf("expected error without engine")
	}
}
