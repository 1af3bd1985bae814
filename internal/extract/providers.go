package extract

import (
	"context"

	"github.com/yungbote/coursechat-backend/internal/platform/gcp"
	"github.com/yungbote/coursechat-backend/internal/platform/openai"
)

// VisionOCR runs DOCUMENT_TEXT_DETECTION on the image.
type VisionOCR struct {
	Vision gcp.Vision
}

func (v VisionOCR) ExtractImage(ctx context.Context, data []byte) (string, error) {
	return v.Vision.OCRImageBytes(ctx, data)
}

// WhisperTranscriber sends audio to the OpenAI-compatible transcription endpoint.
type WhisperTranscriber struct {
	Client openai.Client
}

func (w WhisperTranscriber) Transcribe(ctx context.Context, data []byte, filename string) (string, error) {
	return w.Client.Transcribe(ctx, data, filename)
}

// SpeechTranscriber uses Cloud Speech long-running recognition.
type SpeechTranscriber struct {
	Speech gcp.Speech
}

func (s SpeechTranscriber) Transcribe(ctx context.Context, data []byte, filename string) (string, error) {
	return s.Speech.TranscribeAudioBytes(ctx, data, filename)
}
