package openai

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"mime"
	"mime/multipart"
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/yungbote/coursechat-backend/internal/platform/logger"
)

type roundTripperFunc func(*http.Request) (*http.Response, error)

func (f roundTripperFunc) RoundTrip(r *http.Request) (*http.Response, error) { return f(r) }

func jsonResponse(status int, body string) *http.Response {
	return &http.Response{
		StatusCode: status,
		Header:     http.Header{"Content-Type": []string{"application/json"}},
		Body:       io.NopCloser(strings.NewReader(body)),
	}
}

func testClient(t *testing.T, rt roundTripperFunc) *client {
	t.Helper()
	c, err := newClient(logger.Nop(), Config{APIKey: "k", Temperature: 0.5, MaxRetries: 2}, &http.Client{Transport: rt})
	if err != nil {
		t.Fatalf("newClient: %v", err)
	}
	c.sleep = func(time.Duration) {}
	return c
}

func TestChatSendsFixedParameters(t *testing.T) {
	var got chatRequest
	c := testClient(t, func(r *http.Request) (*http.Response, error) {
		if r.URL.String() != DefaultBaseURL+"/v1/chat/completions" {
			t.Fatalf("unexpected url %s", r.URL)
		}
		if r.Header.Get("Authorization") != "Bearer k" {
			t.Fatalf("missing auth header")
		}
		if err := json.NewDecoder(r.Body).Decode(&got); err != nil {
			t.Fatalf("decode request: %v", err)
		}
		return jsonResponse(200, `{"choices":[{"message":{"role":"assistant","content":"Paging\nDefinition"}}],"usage":{"prompt_tokens":12,"completion_tokens":3}}`), nil
	})

	out, err := c.Chat(context.Background(), []Message{SystemMessage("sys"), UserMessage("Question: what is paging")})
	if err != nil {
		t.Fatalf("Chat: %v", err)
	}
	if out != "Paging\nDefinition" {
		t.Fatalf("unexpected content %q", out)
	}
	if got.Model != DefaultChatModel || got.Temperature != 0.5 || got.MaxTokens != 1024 || got.TopP != 1 || got.Stream {
		t.Fatalf("unexpected request params: %+v", got)
	}
	if len(got.Messages) != 2 || got.Messages[0].Role != "system" || got.Messages[1].Role != "user" {
		t.Fatalf("unexpected messages: %+v", got.Messages)
	}
}

func TestChatMissingContentIsEmpty(t *testing.T) {
	c := testClient(t, func(r *http.Request) (*http.Response, error) {
		return jsonResponse(200, `{"choices":[]}`), nil
	})
	out, err := c.Chat(context.Background(), nil)
	if err != nil || out != "" {
		t.Fatalf("want empty answer, got %q err=%v", out, err)
	}
}

func TestChatRetriesServerErrors(t *testing.T) {
	calls := 0
	c := testClient(t, func(r *http.Request) (*http.Response, error) {
		calls++
		if calls == 1 {
			return jsonResponse(503, `{"error":"busy"}`), nil
		}
		return jsonResponse(200, `{"choices":[{"message":{"content":"ok"}}]}`), nil
	})
	out, err := c.Chat(context.Background(), nil)
	if err != nil || out != "ok" || calls != 2 {
		t.Fatalf("calls=%d out=%q err=%v", calls, out, err)
	}
}

func TestChatDoesNotRetryClientErrors(t *testing.T) {
	calls := 0
	c := testClient(t, func(r *http.Request) (*http.Response, error) {
		calls++
		return jsonResponse(401, `{"error":"bad key"}`), nil
	})
	_, err := c.Chat(context.Background(), nil)
	var httpErr *HTTPError
	if !errors.As(err, &httpErr) || httpErr.StatusCode != 401 || calls != 1 {
		t.Fatalf("calls=%d err=%v", calls, err)
	}
}

func TestTranscribeMultipart(t *testing.T) {
	c := testClient(t, func(r *http.Request) (*http.Response, error) {
		if !strings.HasSuffix(r.URL.Path, "/v1/audio/transcriptions") {
			t.Fatalf("unexpected path %s", r.URL.Path)
		}
		_, params, err := mime.ParseMediaType(r.Header.Get("Content-Type"))
		if err != nil {
			t.Fatalf("content type: %v", err)
		}
		form, err := multipart.NewReader(r.Body, params["boundary"]).ReadForm(1 << 20)
		if err != nil {
			t.Fatalf("read form: %v", err)
		}
		if form.Value["model"][0] != DefaultTranscribeModel || form.Value["language"][0] != "en" || form.Value["temperature"][0] != "0" {
			t.Fatalf("unexpected form values: %v", form.Value)
		}
		if fh := form.File["file"]; len(fh) != 1 || fh[0].Filename != "1700_lecture.mp3" {
			t.Fatalf("unexpected file part: %v", form.File)
		}
		return jsonResponse(200, `{"text":"  today we cover paging  "}`), nil
	})
	out, err := c.Transcribe(context.Background(), []byte("ID3audio"), "1700_lecture.mp3")
	if err != nil {
		t.Fatalf("Transcribe: %v", err)
	}
	if out != "today we cover paging" {
		t.Fatalf("unexpected transcript %q", out)
	}
}

func TestNewClientRequiresKey(t *testing.T) {
	if _, err := NewClient(logger.Nop(), Config{}); err == nil {
		t.Fatalf("expected error without api key")
	}
}
