package gcp

import (
	"context"
	"testing"
	"time"

	speechpb "cloud.google.com/go/speech/apiv1/speechpb"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/yungbote/coursechat-backend/internal/platform/logger"
)

func TestInferSpeechEncoding(t *testing.T) {
	cases := map[string]speechpb.RecognitionConfig_AudioEncoding{
		"1_a.wav":  speechpb.RecognitionConfig_LINEAR16,
		"1_a.MP3":  speechpb.RecognitionConfig_MP3,
		"1_a.webm": speechpb.RecognitionConfig_WEBM_OPUS,
		"1_a.m4a":  speechpb.RecognitionConfig_ENCODING_UNSPECIFIED,
	}
	for name, want := range cases {
		if got := inferSpeechEncoding(name); got != want {
			t.Fatalf("inferSpeechEncoding(%q): want=%s got=%s", name, want, got)
		}
	}
	if cfg := buildSpeechRecognitionConfig("a.wav", SpeechConfig{}); cfg.LanguageCode != "en-US" {
		t.Fatalf("default language: got %q", cfg.LanguageCode)
	}
}

func TestTranscriptFromResponse(t *testing.T) {
	resp := &speechpb.LongRunningRecognizeResponse{Results: []*speechpb.SpeechRecognitionResult{
		{Alternatives: []*speechpb.SpeechRecognitionAlternative{{Transcript: " paging divides memory "}}},
		{Alternatives: nil},
		{Alternatives: []*speechpb.SpeechRecognitionAlternative{{Transcript: "into frames"}}},
	}}
	if got := transcriptFromResponse(resp); got != "paging divides memory into frames" {
		t.Fatalf("unexpected transcript %q", got)
	}
}

func TestRetryLR(t *testing.T) {
	s := &speechService{log: logger.Nop(), maxRetries: 2, sleep: func(time.Duration) {}}

	calls := 0
	resp, err := s.retryLR(context.Background(), func() (*speechpb.LongRunningRecognizeResponse, error) {
		calls++
		if calls < 2 {
			return nil, status.Error(codes.Unavailable, "try later")
		}
		return &speechpb.LongRunningRecognizeResponse{}, nil
	})
	if err != nil || resp == nil || calls != 2 {
		t.Fatalf("retry on Unavailable: calls=%d err=%v", calls, err)
	}

	calls = 0
	_, err = s.retryLR(context.Background(), func() (*speechpb.LongRunningRecognizeResponse, error) {
		calls++
		return nil, status.Error(codes.InvalidArgument, "bad audio")
	})
	if status.Code(err) != codes.InvalidArgument || calls != 1 {
		t.Fatalf("non-retryable: calls=%d err=%v", calls, err)
	}

	calls = 0
	_, err = s.retryLR(context.Background(), func() (*speechpb.LongRunningRecognizeResponse, error) {
		calls++
		return nil, status.Error(codes.ResourceExhausted, "quota")
	})
	if calls != 3 || status.Code(err) != codes.ResourceExhausted {
		t.Fatalf("exhausted retries: calls=%d err=%v", calls, err)
	}
}
