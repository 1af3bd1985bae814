package extract

import (
	"fmt"
	"strings"

	"github.com/yungbote/coursechat-backend/internal/domain/course"
)

// Mode says when a kind's text is extracted.
type Mode string

const (
	ModeEager Mode = "eager" // at upload
	ModeLazy  Mode = "lazy"  // at question time
	ModeOff   Mode = "off"
)

func ParseMode(raw string) (Mode, error) {
	switch m := Mode(strings.ToLower(strings.TrimSpace(raw))); m {
	case ModeEager, ModeLazy, ModeOff:
		return m, nil
	case "":
		return "", fmt.Errorf("empty extraction mode")
	default:
		return "", fmt.Errorf("unknown extraction mode %q", raw)
	}
}

// Policy holds the extraction mode of every file-bearing kind. Text never extracts.
type Policy struct {
	Audio Mode
	Image Mode
	PDF   Mode
	File  Mode
}

// DefaultPolicy transcribes audio on upload and defers OCR and PDF parsing until a
// question asks for them.
func DefaultPolicy() Policy {
	return Policy{Audio: ModeEager, Image: ModeLazy, PDF: ModeLazy, File: ModeOff}
}

func (p Policy) ModeFor(k course.MessageKind) Mode {
	switch k {
	case course.KindAudio:
		return p.Audio
	case course.KindImage:
		return p.Image
	case course.KindPDF:
		return p.PDF
	case course.KindFile:
		return p.File
	case course.KindText:
		return ModeOff
	default:
		panic(fmt.Sprintf("extract: unhandled message kind %q", string(k)))
	}
}

// Validate rejects lazy audio: a transcript lives on the message row, so it is either
// produced at upload or not at all.
func (p Policy) Validate() error {
	for _, k := range []course.MessageKind{course.KindAudio, course.KindImage, course.KindPDF, course.KindFile} {
		if _, err := ParseMode(string(p.ModeFor(k))); err != nil {
			return fmt.Errorf("%s: %w", k, err)
		}
	}
	if p.Audio == ModeLazy {
		return fmt.Errorf("audio: lazy transcription is not supported")
	}
	return nil
}

// GroundingKinds lists the kinds the context resolver may match, in Kinds order.
func (p Policy) GroundingKinds() []course.MessageKind {
	var out []course.MessageKind
	for _, k := range course.Kinds {
		if k == course.KindAudio || k == course.KindText {
			continue
		}
		if p.ModeFor(k) != ModeOff {
			out = append(out, k)
		}
	}
	return out
}
