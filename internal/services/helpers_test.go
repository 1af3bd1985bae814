package services

import (
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"gorm.io/gorm"

	"github.com/yungbote/coursechat-backend/internal/blob"
	"github.com/yungbote/coursechat-backend/internal/data/repos"
	"github.com/yungbote/coursechat-backend/internal/data/repos/testutil"
	"github.com/yungbote/coursechat-backend/internal/platform/logger"
	"github.com/yungbote/coursechat-backend/internal/platform/openai"
)

type harness struct {
	db    *gorm.DB
	repos repos.Set
	store *recordingStore
	dir   string
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	db := testutil.DB(t)
	dir := t.TempDir()
	local, err := blob.NewLocalStore(logger.Nop(), dir, "/uploads")
	if err != nil {
		t.Fatalf("NewLocalStore: %v", err)
	}
	return &harness{
		db:    db,
		repos: repos.New(db, testutil.Logger(t)),
		store: &recordingStore{Store: local},
		dir:   dir,
	}
}

func (h *harness) blobFiles(t *testing.T) []string {
	t.Helper()
	entries, err := os.ReadDir(h.dir)
	if err != nil {
		t.Fatalf("ReadDir: %v", err)
	}
	var out []string
	for _, e := range entries {
		out = append(out, e.Name())
	}
	return out
}

func (h *harness) writeBlob(t *testing.T, name, content string) {
	t.Helper()
	if err := os.WriteFile(filepath.Join(h.dir, name), []byte(content), 0o644); err != nil {
		t.Fatalf("write blob: %v", err)
	}
}

// recordingStore counts deletes on top of a real store.
type recordingStore struct {
	blob.Store
	mu      sync.Mutex
	deletes []string
}

func (s *recordingStore) Delete(ctx context.Context, name string) error {
	s.mu.Lock()
	s.deletes = append(s.deletes, name)
	s.mu.Unlock()
	return s.Store.Delete(ctx, name)
}

func (s *recordingStore) deleted() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.deletes...)
}

type recordingCleaner struct {
	mu    sync.Mutex
	names []string
}

func (c *recordingCleaner) Enqueue(names ...string) {
	c.mu.Lock()
	c.names = append(c.names, names...)
	c.mu.Unlock()
}

func (c *recordingCleaner) Run(context.Context) {}

// fakeEngine records chat requests and replies with a fixed completion.
type fakeEngine struct {
	mu      sync.Mutex
	reply   string
	err     error
	calls   [][]openai.Message
	text    string
	textErr error
}

func (f *fakeEngine) Chat(ctx context.Context, messages []openai.Message) (string, error) {
	f.mu.Lock()
	f.calls = append(f.calls, messages)
	f.mu.Unlock()
	if f.err != nil {
		return "", f.err
	}
	return f.reply, nil
}

func (f *fakeEngine) Transcribe(ctx context.Context, audio []byte, filename string) (string, error) {
	if f.textErr != nil {
		return "", f.textErr
	}
	return f.text, nil
}

func (f *fakeEngine) lastCall(t *testing.T) []openai.Message {
	t.Helper()
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.calls) == 0 {
		t.Fatalf("engine was not called")
	}
	return f.calls[len(f.calls)-1]
}

type fakeOCR struct {
	text  string
	err   error
	calls int
}

func (f *fakeOCR) ExtractImage(ctx context.Context, data []byte) (string, error) {
	f.calls++
	return f.text, f.err
}

type fakePDF struct {
	text string
	err  error
}

func (f *fakePDF) ExtractPDF(ctx context.Context, data []byte) (string, error) {
	return f.text, f.err
}

// memCache is an in-process rediscache.Cache.
type memCache struct {
	mu sync.Mutex
	m  map[string]string
}

func newMemCache() *memCache { return &memCache{m: map[string]string{}} }

func (c *memCache) Get(_ context.Context, name string) (string, bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	v, ok := c.m[name]
	return v, ok, nil
}

func (c *memCache) Set(_ context.Context, name, text string) error {
	c.mu.Lock()
	c.m[name] = text
	c.mu.Unlock()
	return nil
}

func (c *memCache) Delete(_ context.Context, names ...string) error {
	c.mu.Lock()
	for _, n := range names {
		delete(c.m, n)
	}
	c.mu.Unlock()
	return nil
}

var errBoom = errors.New("boom")

type errReader struct{}

func (errReader) Read([]byte) (int, error) { return 0, io.ErrUnexpectedEOF }
