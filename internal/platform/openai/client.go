package openai

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/yungbote/coursechat-backend/internal/observability"
	"github.com/yungbote/coursechat-backend/internal/platform/ctxutil"
	"github.com/yungbote/coursechat-backend/internal/platform/httpx"
	"github.com/yungbote/coursechat-backend/internal/platform/logger"
)

const (
	DefaultBaseURL         = "https://api.groq.com/openai"
	DefaultChatModel       = "llama-3.3-70b-versatile"
	DefaultTranscribeModel = "whisper-large-v3-turbo"
)

// Client talks to an OpenAI-compatible endpoint (Groq by default).
type Client interface {
	// Chat runs one chat completion and returns the first choice's content, which may be "".
	Chat(ctx context.Context, messages []Message) (string, error)

	// Transcribe sends audio to the transcription endpoint and returns the text.
	Transcribe(ctx context.Context, audio []byte, filename string) (string, error)
}

type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

func SystemMessage(content string) Message { return Message{Role: "system", Content: content} }
func UserMessage(content string) Message   { return Message{Role: "user", Content: content} }

type Config struct {
	APIKey          string
	BaseURL         string
	ChatModel       string
	TranscribeModel string
	Language        string
	Temperature     float64
	MaxTokens       int
	TopP            float64
	Timeout         time.Duration
	MaxRetries      int
}

func (c Config) withDefaults() Config {
	if strings.TrimSpace(c.BaseURL) == "" {
		c.BaseURL = DefaultBaseURL
	}
	c.BaseURL = strings.TrimRight(strings.TrimSpace(c.BaseURL), "/")
	if c.ChatModel == "" {
		c.ChatModel = DefaultChatModel
	}
	if c.TranscribeModel == "" {
		c.TranscribeModel = DefaultTranscribeModel
	}
	if c.Language == "" {
		c.Language = "en"
	}
	if c.MaxTokens <= 0 {
		c.MaxTokens = 1024
	}
	if c.TopP <= 0 {
		c.TopP = 1
	}
	if c.Timeout <= 0 {
		c.Timeout = 60 * time.Second
	}
	if c.MaxRetries < 0 {
		c.MaxRetries = 0
	}
	return c
}

type client struct {
	log        *logger.Logger
	cfg        Config
	httpClient *http.Client
	sleep      func(time.Duration)
}

func NewClient(log *logger.Logger, cfg Config) (Client, error) {
	return newClient(log, cfg, nil)
}

func newClient(log *logger.Logger, cfg Config, httpClient *http.Client) (*client, error) {
	if log == nil {
		return nil, fmt.Errorf("logger required")
	}
	if strings.TrimSpace(cfg.APIKey) == "" {
		return nil, fmt.Errorf("missing answer engine api key")
	}
	cfg = cfg.withDefaults()
	if httpClient == nil {
		httpClient = &http.Client{Timeout: cfg.Timeout}
	}
	return &client{
		log:        log.With("client", "openai", "base_url", cfg.BaseURL),
		cfg:        cfg,
		httpClient: httpClient,
		sleep:      time.Sleep,
	}, nil
}

type HTTPError struct {
	StatusCode int
	Body       string
}

func (e *HTTPError) Error() string {
	return fmt.Sprintf("openai http %d: %s", e.StatusCode, e.Body)
}

func (e *HTTPError) HTTPStatusCode() int {
	if e == nil {
		return 0
	}
	return e.StatusCode
}

// -------------------- Chat --------------------

type chatRequest struct {
	Model       string    `json:"model"`
	Messages    []Message `json:"messages"`
	Temperature float64   `json:"temperature"`
	MaxTokens   int       `json:"max_tokens"`
	TopP        float64   `json:"top_p"`
	Stream      bool      `json:"stream"`
}

type chatResponse struct {
	Choices []struct {
		Message struct {
			Content *string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
}

func (c *client) Chat(ctx context.Context, messages []Message) (string, error) {
	req := chatRequest{
		Model:       c.cfg.ChatModel,
		Messages:    messages,
		Temperature: c.cfg.Temperature,
		MaxTokens:   c.cfg.MaxTokens,
		TopP:        c.cfg.TopP,
	}
	payload, err := json.Marshal(req)
	if err != nil {
		return "", err
	}

	var resp chatResponse
	if err := c.do(ctx, "/v1/chat/completions", c.cfg.ChatModel, "application/json", payload, &resp); err != nil {
		return "", err
	}
	if len(resp.Choices) == 0 || resp.Choices[0].Message.Content == nil {
		return "", nil
	}
	return *resp.Choices[0].Message.Content, nil
}

// -------------------- Transcription --------------------

type transcriptionResponse struct {
	Text string `json:"text"`
}

func (c *client) Transcribe(ctx context.Context, audio []byte, filename string) (string, error) {
	if len(audio) == 0 {
		return "", nil
	}
	payload, contentType, err := transcriptionForm(audio, filename, c.cfg)
	if err != nil {
		return "", err
	}
	var resp transcriptionResponse
	if err := c.do(ctx, "/v1/audio/transcriptions", c.cfg.TranscribeModel, contentType, payload, &resp); err != nil {
		return "", err
	}
	return strings.TrimSpace(resp.Text), nil
}

func transcriptionForm(audio []byte, filename string, cfg Config) ([]byte, string, error) {
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	if strings.TrimSpace(filename) == "" {
		filename = "audio"
	}
	fw, err := mw.CreateFormFile("file", filename)
	if err != nil {
		return nil, "", err
	}
	if _, err := fw.Write(audio); err != nil {
		return nil, "", err
	}
	fields := [][2]string{
		{"model", cfg.TranscribeModel},
		{"language", cfg.Language},
		{"temperature", "0"},
		{"response_format", "json"},
	}
	for _, f := range fields {
		if err := mw.WriteField(f[0], f[1]); err != nil {
			return nil, "", err
		}
	}
	if err := mw.Close(); err != nil {
		return nil, "", err
	}
	return buf.Bytes(), mw.FormDataContentType(), nil
}

// -------------------- transport --------------------

func (c *client) doOnce(ctx context.Context, path, contentType string, payload []byte) (*http.Response, []byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.cfg.BaseURL+path, bytes.NewReader(payload))
	if err != nil {
		return nil, nil, err
	}
	req.Header.Set("Authorization", "Bearer "+c.cfg.APIKey)
	req.Header.Set("Content-Type", contentType)
	if rid := ctxutil.RequestID(ctx); rid != "" {
		req.Header.Set("X-Request-Id", rid)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, nil, err
	}
	raw, readErr := io.ReadAll(resp.Body)
	_ = resp.Body.Close()
	if readErr != nil {
		return resp, nil, readErr
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return resp, raw, &HTTPError{StatusCode: resp.StatusCode, Body: truncate(string(raw), 512)}
	}
	return resp, raw, nil
}

func (c *client) do(ctx context.Context, path, model, contentType string, payload []byte, out any) error {
	ctx = ctxutil.Default(ctx)
	backoff := 1 * time.Second
	start := time.Now()

	for attempt := 0; attempt <= c.cfg.MaxRetries; attempt++ {
		if ctx.Err() != nil {
			return ctx.Err()
		}

		resp, raw, err := c.doOnce(ctx, path, contentType, payload)
		if err == nil {
			in, outTokens := usageFromRaw(raw)
			observability.Current().ObserveLLMRequest(model, path, statusFromResp(resp, nil), time.Since(start), in, outTokens)
			if out == nil {
				return nil
			}
			if uErr := json.Unmarshal(raw, out); uErr != nil {
				return fmt.Errorf("openai decode error: %w", uErr)
			}
			return nil
		}

		if !httpx.IsRetryableError(err) || attempt == c.cfg.MaxRetries {
			observability.Current().ObserveLLMRequest(model, path, statusFromResp(resp, err), time.Since(start), 0, 0)
			return err
		}

		sleepFor := httpx.JitterSleep(httpx.RetryAfterDuration(resp, backoff, 10*time.Second))
		c.log.Warn("OpenAI request retrying",
			"path", path,
			"attempt", attempt+1,
			"max_retries", c.cfg.MaxRetries,
			"sleep", sleepFor.String(),
			"error", err.Error(),
		)
		c.sleep(sleepFor)
		backoff *= 2
	}
	return errors.New("unreachable retry loop")
}

func usageFromRaw(raw []byte) (int, int) {
	var payload struct {
		Usage struct {
			PromptTokens     int `json:"prompt_tokens"`
			CompletionTokens int `json:"completion_tokens"`
		} `json:"usage"`
	}
	if len(raw) == 0 || json.Unmarshal(raw, &payload) != nil {
		return 0, 0
	}
	return payload.Usage.PromptTokens, payload.Usage.CompletionTokens
}

func statusFromResp(resp *http.Response, err error) string {
	if resp != nil {
		return strconv.Itoa(resp.StatusCode)
	}
	switch {
	case err == nil:
		return "unknown"
	case errors.Is(err, context.Canceled):
		return "canceled"
	case errors.Is(err, context.DeadlineExceeded):
		return "timeout"
	default:
		return "error"
	}
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
