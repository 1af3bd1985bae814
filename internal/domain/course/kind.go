package course

import (
	"fmt"
	"path/filepath"
	"strings"
)

// MessageKind is the closed set of message variants. Every kind except KindText stores a
// blob name in Message.Content.
type MessageKind string

const (
	KindText  MessageKind = "text"
	KindAudio MessageKind = "audio"
	KindImage MessageKind = "image"
	KindPDF   MessageKind = "pdf"
	KindFile  MessageKind = "file"
)

// Kinds lists every MessageKind in declaration order.
var Kinds = []MessageKind{KindText, KindAudio, KindImage, KindPDF, KindFile}

func ParseMessageKind(raw string) (MessageKind, error) {
	switch k := MessageKind(strings.ToLower(strings.TrimSpace(raw))); k {
	case KindText, KindAudio, KindImage, KindPDF, KindFile:
		return k, nil
	default:
		return "", fmt.Errorf("unknown message kind %q", raw)
	}
}

func (k MessageKind) String() string { return string(k) }

// HasBlob reports whether Content is a blob reference.
func (k MessageKind) HasBlob() bool {
	switch k {
	case KindAudio, KindImage, KindPDF, KindFile:
		return true
	case KindText:
		return false
	default:
		panic(fmt.Sprintf("course: unhandled message kind %q", string(k)))
	}
}

var extensionKinds = map[string]MessageKind{
	".mp3":  KindAudio,
	".wav":  KindAudio,
	".m4a":  KindAudio,
	".webm": KindAudio,
	".png":  KindImage,
	".jpg":  KindImage,
	".jpeg": KindImage,
	".pdf":  KindPDF,
}

// Classify maps an uploaded filename to its kind by lowercase extension. Unknown or
// missing extensions are KindFile.
func Classify(filename string) MessageKind {
	if k, ok := extensionKinds[strings.ToLower(filepath.Ext(filename))]; ok {
		return k
	}
	return KindFile
}
