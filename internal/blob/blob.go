package blob

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strconv"
	"strings"
	"time"
)

var (
	ErrNotFound    = errors.New("blob not found")
	ErrExists      = errors.New("blob already exists")
	ErrInvalidName = errors.New("invalid blob name")
	ErrTooLarge    = errors.New("blob exceeds size limit")
)

// Store is durable byte storage addressed by generated names. Writes never overwrite.
type Store interface {
	Put(ctx context.Context, name string, r io.Reader, contentType string) (int64, error)
	Open(ctx context.Context, name string) (io.ReadCloser, error)
	Delete(ctx context.Context, name string) error
	// URL is the client-facing location of name.
	URL(name string) string
}

// GenerateName returns "{unixMillis}_{originalBase}".
func GenerateName(now time.Time, original string) string {
	return strconv.FormatInt(now.UnixMilli(), 10) + "_" + SanitizeOriginal(original)
}

// SanitizeOriginal keeps the client filename's base and drops characters that would make
// it unsafe as a single path element.
func SanitizeOriginal(original string) string {
	base := filepath.Base(strings.ReplaceAll(strings.TrimSpace(original), "\\", "/"))
	base = strings.Map(func(r rune) rune {
		switch {
		case r == '/' || r == 0:
			return -1
		case r < 0x20:
			return '_'
		default:
			return r
		}
	}, base)
	if base == "" || base == "." || base == ".." {
		return "upload"
	}
	return base
}

// ValidName rejects anything that is not a single, non-dot path element.
func ValidName(name string) error {
	if name == "" || name == "." || name == ".." ||
		strings.ContainsAny(name, "/\\\x00") {
		return fmt.Errorf("%w: %q", ErrInvalidName, name)
	}
	return nil
}

// ReadAll reads the named blob, failing with ErrTooLarge past max bytes (max <= 0 disables).
func ReadAll(ctx context.Context, s Store, name string, max int64) ([]byte, error) {
	rc, err := s.Open(ctx, name)
	if err != nil {
		return nil, err
	}
	defer rc.Close()
	var r io.Reader = rc
	if max > 0 {
		r = io.LimitReader(rc, max+1)
	}
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("read blob %q: %w", name, err)
	}
	if max > 0 && int64(len(data)) > max {
		return nil, fmt.Errorf("%w: %q", ErrTooLarge, name)
	}
	return data, nil
}

// ContentTypeForName guesses a MIME type from the blob's extension.
func ContentTypeForName(name string) string {
	switch strings.ToLower(filepath.Ext(name)) {
	case ".png":
		return "image/png"
	case ".jpg", ".jpeg":
		return "image/jpeg"
	case ".pdf":
		return "application/pdf"
	case ".mp3":
		return "audio/mpeg"
	case ".wav":
		return "audio/wav"
	case ".m4a":
		return "audio/mp4"
	case ".webm":
		return "audio/webm"
	default:
		return ""
	}
}
