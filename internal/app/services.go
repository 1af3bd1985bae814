package app

import (
	"fmt"

	"github.com/yungbote/coursechat-backend/internal/data/repos"
	"github.com/yungbote/coursechat-backend/internal/platform/logger"
	"github.com/yungbote/coursechat-backend/internal/services"
)

type Services struct {
	Prompts *services.PromptStore
	Cleaner services.BlobCleaner
	Courses services.CourseService
	Ingest  services.IngestService
	Ask     services.AskService
}

func wireServices(log *logger.Logger, cfg Config, clients Clients, reposet repos.Set) (Services, error) {
	log.Info("Wiring services...")

	policy, err := cfg.Extract.Policy()
	if err != nil {
		return Services{}, err
	}
	prompts, err := services.NewPromptStore(log, cfg.Prompts.Path)
	if err != nil {
		return Services{}, fmt.Errorf("init prompt pack: %w", err)
	}

	store := clients.Blob.Store
	cleaner := services.NewBlobCleaner(log, store, clients.Cache, cfg.Cleanup.QueueSize, cfg.Cleanup.Timeout)
	answers := services.NewAnswerService(log, clients.Engine, prompts, cfg.Engine.AnswerTimeout)
	resolver := services.NewContextResolver(log, reposet.Messages, store, clients.Extractor, policy, clients.Cache, cfg.Blob.MaxUploadBytes)

	return Services{
		Prompts: prompts,
		Cleaner: cleaner,
		Courses: services.NewCourseService(log, reposet.Courses, reposet.Messages, cleaner),
		Ingest: services.NewIngestService(log, reposet.Courses, reposet.Messages, store, clients.Extractor, clients.Cache, services.IngestConfig{
			MaxUploadBytes: cfg.Blob.MaxUploadBytes,
			Policy:         policy,
			BlobTimeout:    cfg.Blob.Timeout,
		}),
		Ask: services.NewAskService(log, reposet.Courses, resolver, answers),
	}, nil
}
