package services

import (
	"context"
	"strings"
	"time"

	"github.com/yungbote/coursechat-backend/internal/observability"
	"github.com/yungbote/coursechat-backend/internal/platform/apierr"
	"github.com/yungbote/coursechat-backend/internal/platform/logger"
	"github.com/yungbote/coursechat-backend/internal/platform/openai"
)

type AnswerService interface {
	// Answer returns the engine's raw completion for question, grounded in the first
	// ContextMaxChars characters of context when context is non-empty.
	Answer(ctx context.Context, question, context string) (string, error)
}

type answerService struct {
	log     *logger.Logger
	engine  openai.Client
	prompts *PromptStore
	timeout time.Duration
}

func NewAnswerService(baseLog *logger.Logger, engine openai.Client, prompts *PromptStore, timeout time.Duration) AnswerService {
	return &answerService{
		log:     baseLog.With("service", "AnswerService"),
		engine:  engine,
		prompts: prompts,
		timeout: timeout,
	}
}

func (s *answerService) Answer(ctx context.Context, question, grounding string) (string, error) {
	pack := s.prompts.Current()
	messages := BuildAnswerMessages(pack, question, grounding)

	if s.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.timeout)
		defer cancel()
	}
	ctx, span := observability.StartSpan(ctx, "answer.chat")
	defer span.End()

	start := time.Now()
	raw, err := s.engine.Chat(ctx, messages)
	if err != nil {
		span.RecordError(err)
		s.log.Error("Answer engine call failed", "error", err, "duration_ms", time.Since(start).Milliseconds())
		return "", apierr.FromContext("answer_engine", err)
	}
	if strings.TrimSpace(raw) == "" {
		return pack.FallbackAnswer, nil
	}
	return raw, nil
}

// BuildAnswerMessages lays out the chat: system instruction, optional grounding capped to
// pack.ContextMaxChars characters, then the question.
func BuildAnswerMessages(pack *PromptPack, question, grounding string) []openai.Message {
	messages := make([]openai.Message, 0, 3)
	messages = append(messages, openai.SystemMessage(pack.System))
	if grounding != "" {
		messages = append(messages, openai.UserMessage(pack.ContextPrefix+capChars(grounding, pack.ContextMaxChars)))
	}
	messages = append(messages, openai.UserMessage(pack.QuestionPrefix+question))
	return messages
}

func capChars(s string, n int) string {
	if n <= 0 {
		return s
	}
	count := 0
	for i := range s {
		if count == n {
			return s[:i]
		}
		count++
	}
	return s
}
