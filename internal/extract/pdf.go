package extract

import (
	"bytes"
	"context"
	"fmt"
	"strings"

	pdf "github.com/ledongthuc/pdf"

	"github.com/yungbote/coursechat-backend/internal/platform/gcp"
)

// LocalPDF reads the embedded text layer. Scanned PDFs yield "".
type LocalPDF struct{}

func (LocalPDF) ExtractPDF(ctx context.Context, data []byte) (text string, err error) {
	if !isPDF(data) {
		return "", fmt.Errorf("missing %%PDF header (head=%s)", firstBytesHex(data, 16))
	}
	// the reader panics on some malformed xref tables
	defer func() {
		if r := recover(); r != nil {
			text, err = "", fmt.Errorf("pdf parse panic: %v", r)
		}
	}()

	r, err := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return "", fmt.Errorf("pdf reader: %w", err)
	}
	var out strings.Builder
	for i := 1; i <= r.NumPage(); i++ {
		if err := ctx.Err(); err != nil {
			return "", err
		}
		p := r.Page(i)
		if p.V.IsNull() {
			continue
		}
		plain, err := p.GetPlainText(nil)
		if err != nil {
			return "", fmt.Errorf("pdf page %d: %w", i, err)
		}
		out.WriteString(joinPage(plain))
	}
	return out.String(), nil
}

// DocumentAIPDF runs the PDF through a Document AI OCR processor, which also covers
// scanned pages.
type DocumentAIPDF struct {
	Doc gcp.Document
}

func (d DocumentAIPDF) ExtractPDF(ctx context.Context, data []byte) (string, error) {
	if !isPDF(data) {
		return "", fmt.Errorf("missing %%PDF header (head=%s)", firstBytesHex(data, 16))
	}
	res, err := d.Doc.ProcessPDF(ctx, data)
	if err != nil {
		return "", err
	}
	var out strings.Builder
	for _, page := range res.Pages {
		out.WriteString(joinPage(page))
	}
	return out.String(), nil
}

// joinPage joins a page's text items with single spaces and terminates it with "\n".
func joinPage(s string) string {
	return strings.Join(strings.Fields(s), " ") + "\n"
}

func isPDF(b []byte) bool {
	return len(b) >= 5 && string(b[:5]) == "%PDF-"
}

func firstBytesHex(b []byte, n int) string {
	n = min(len(b), n)
	const hexdigits = "0123456789abcdef"
	out := make([]byte, 0, n*2)
	for i := 0; i < n; i++ {
		out = append(out, hexdigits[b[i]>>4], hexdigits[b[i]&0x0f])
	}
	return string(out)
}
