package services

import (
	"context"
	"embed"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"

	"github.com/fsnotify/fsnotify"
	"gopkg.in/yaml.v3"

	"github.com/yungbote/coursechat-backend/internal/platform/logger"
)

//go:embed prompts/answer.yaml
var promptFS embed.FS

// PromptPack is the fixed instruction set sent with every question.
type PromptPack struct {
	Version         int    `yaml:"version"`
	System          string `yaml:"system"`
	ContextPrefix   string `yaml:"context_prefix"`
	QuestionPrefix  string `yaml:"question_prefix"`
	ContextMaxChars int    `yaml:"context_max_chars"`
	FallbackAnswer  string `yaml:"fallback_answer"`
}

func (p *PromptPack) validate() error {
	var errs []error
	if strings.TrimSpace(p.System) == "" {
		errs = append(errs, errors.New("system is empty"))
	}
	if p.ContextMaxChars <= 0 {
		errs = append(errs, fmt.Errorf("context_max_chars must be positive, got %d", p.ContextMaxChars))
	}
	if strings.TrimSpace(p.FallbackAnswer) == "" {
		errs = append(errs, errors.New("fallback_answer is empty"))
	}
	return errors.Join(errs...)
}

func parsePromptPack(data []byte) (*PromptPack, error) {
	var p PromptPack
	if err := yaml.Unmarshal(data, &p); err != nil {
		return nil, fmt.Errorf("parse prompt pack: %w", err)
	}
	if err := p.validate(); err != nil {
		return nil, fmt.Errorf("invalid prompt pack: %w", err)
	}
	return &p, nil
}

// DefaultPromptPack returns the embedded pack.
func DefaultPromptPack() *PromptPack {
	data, err := promptFS.ReadFile("prompts/answer.yaml")
	if err != nil {
		panic(fmt.Sprintf("embedded prompt pack missing: %v", err))
	}
	p, err := parsePromptPack(data)
	if err != nil {
		panic(err)
	}
	return p
}

// PromptStore serves the current pack. With an override path it re-reads the file on
// change and keeps the previous pack when the new one does not parse.
type PromptStore struct {
	log     *logger.Logger
	path    string
	current atomic.Pointer[PromptPack]
}

func NewPromptStore(log *logger.Logger, overridePath string) (*PromptStore, error) {
	s := &PromptStore{log: log.With("service", "PromptStore"), path: strings.TrimSpace(overridePath)}
	if s.path == "" {
		s.current.Store(DefaultPromptPack())
		return s, nil
	}
	if err := s.reload(); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *PromptStore) Current() *PromptPack {
	return s.current.Load()
}

func (s *PromptStore) reload() error {
	data, err := os.ReadFile(s.path)
	if err != nil {
		return fmt.Errorf("read prompt pack %s: %w", s.path, err)
	}
	p, err := parsePromptPack(data)
	if err != nil {
		return err
	}
	s.current.Store(p)
	return nil
}

// Watch reloads the override file until ctx is done. It returns nil immediately when the
// embedded pack is in use.
func (s *PromptStore) Watch(ctx context.Context) error {
	if s.path == "" {
		return nil
	}
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("prompt watcher: %w", err)
	}
	defer w.Close()

	// watch the directory: editors and config mounts replace the file rather than write it
	if err := w.Add(filepath.Dir(s.path)); err != nil {
		return fmt.Errorf("watch %s: %w", filepath.Dir(s.path), err)
	}
	target := filepath.Clean(s.path)
	for {
		select {
		case <-ctx.Done():
			return nil
		case ev, ok := <-w.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(ev.Name) != target || !ev.Has(fsnotify.Write|fsnotify.Create) {
				continue
			}
			if err := s.reload(); err != nil {
				s.log.Warn("Prompt pack reload failed; keeping previous", "path", s.path, "error", err)
				continue
			}
			s.log.Info("Prompt pack reloaded", "path", s.path, "version", s.Current().Version)
		case err, ok := <-w.Errors:
			if !ok {
				return nil
			}
			s.log.Warn("Prompt watcher error", "error", err)
		}
	}
}
