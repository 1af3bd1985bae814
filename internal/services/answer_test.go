package services

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/yungbote/coursechat-backend/internal/platform/apierr"
	"github.com/yungbote/coursechat-backend/internal/platform/logger"
)

func defaultPrompts(t *testing.T) *PromptStore {
	t.Helper()
	ps, err := NewPromptStore(logger.Nop(), "")
	if err != nil {
		t.Fatalf("NewPromptStore: %v", err)
	}
	return ps
}

func TestBuildAnswerMessages(t *testing.T) {
	pack := DefaultPromptPack()

	msgs := BuildAnswerMessages(pack, "What is paging?", "")
	if len(msgs) != 2 {
		t.Fatalf("ungrounded: want 2 messages got=%d", len(msgs))
	}
	if msgs[0].Role != "system" || !strings.HasPrefix(msgs[0].Content, "You are an academic assistant for M.Tech Computer Science students.") {
		t.Fatalf("system message: %+v", msgs[0])
	}
	if msgs[1].Role != "user" || msgs[1].Content != "Question: What is paging?" {
		t.Fatalf("question message: %+v", msgs[1])
	}

	long := strings.Repeat("é", 1500)
	msgs = BuildAnswerMessages(pack, "Summarize", long)
	if len(msgs) != 3 {
		t.Fatalf("grounded: want 3 messages got=%d", len(msgs))
	}
	ctxMsg := strings.TrimPrefix(msgs[1].Content, "Relevant file content:\n")
	if ctxMsg == msgs[1].Content {
		t.Fatalf("context prefix missing: %q", msgs[1].Content[:40])
	}
	if n := len([]rune(ctxMsg)); n != 1000 {
		t.Fatalf("context cap: want 1000 chars got=%d", n)
	}
}

func TestCapChars(t *testing.T) {
	cases := []struct {
		in   string
		n    int
		want string
	}{
		{"abc", 5, "abc"},
		{"abcdef", 3, "abc"},
		{"日本語テキスト", 3, "日本語"},
		{"abc", 0, "abc"},
		{"", 3, ""},
	}
	for _, tc := range cases {
		if got := capChars(tc.in, tc.n); got != tc.want {
			t.Fatalf("capChars(%q,%d): want=%q got=%q", tc.in, tc.n, tc.want, got)
		}
	}
}

func TestAnswerFallbackAndErrors(t *testing.T) {
	ctx := context.Background()

	engine := &fakeEngine{reply: "  \n "}
	svc := NewAnswerService(logger.Nop(), engine, defaultPrompts(t), time.Second)
	got, err := svc.Answer(ctx, "q", "")
	if err != nil || got != "No answer found." {
		t.Fatalf("blank completion: got=%q err=%v", got, err)
	}

	engine = &fakeEngine{err: fmt.Errorf("chat: %w", context.DeadlineExceeded)}
	svc = NewAnswerService(logger.Nop(), engine, defaultPrompts(t), time.Second)
	if _, err := svc.Answer(ctx, "q", ""); apierr.StatusOf(err) != http.StatusGatewayTimeout {
		t.Fatalf("deadline: want 504 got=%v", err)
	}

	engine = &fakeEngine{err: errBoom}
	svc = NewAnswerService(logger.Nop(), engine, defaultPrompts(t), 0)
	if _, err := svc.Answer(ctx, "q", ""); apierr.StatusOf(err) != http.StatusInternalServerError || apierr.CodeOf(err) != "answer_engine" {
		t.Fatalf("engine failure: want 500/answer_engine got=%v", err)
	}
}
