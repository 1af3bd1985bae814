package services

import (
	"context"
	"io"
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"

	types "github.com/yungbote/coursechat-backend/internal/domain"
	"github.com/yungbote/coursechat-backend/internal/extract"
	"github.com/yungbote/coursechat-backend/internal/platform/apierr"
	"github.com/yungbote/coursechat-backend/internal/platform/dbctx"
	"github.com/yungbote/coursechat-backend/internal/platform/logger"
)

func newIngest(h *harness, ex *extract.Service, cache *memCache, cfg IngestConfig) *ingestService {
	var c = newMemCache()
	if cache != nil {
		c = cache
	}
	svc := NewIngestService(logger.Nop(), h.repos.Courses, h.repos.Messages, h.store, ex, c, cfg).(*ingestService)
	svc.now = func() time.Time { return time.UnixMilli(1700000000000) }
	return svc
}

func TestIngestStoresBlobAndAppendsTypedMessage(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t)
	course, err := h.repos.Courses.Create(dbctx.Of(ctx), &types.Course{Name: "Operating Systems"})
	if err != nil {
		t.Fatalf("Create course: %v", err)
	}

	svc := newIngest(h, extract.New(logger.Nop(), extract.Options{}), nil, IngestConfig{MaxUploadBytes: 1 << 20, Policy: extract.DefaultPolicy()})
	msg, err := svc.Ingest(ctx, course.ID, Upload{Filename: "notes.pdf", Size: 9, Body: strings.NewReader("%PDF-1.4\n")})
	if err != nil {
		t.Fatalf("Ingest: %v", err)
	}
	if msg.Kind != types.KindPDF {
		t.Fatalf("kind: want=pdf got=%s", msg.Kind)
	}
	if msg.Content != "1700000000000_notes.pdf" {
		t.Fatalf("content: got=%q", msg.Content)
	}
	fm, ok := msg.FileMeta()
	if !ok || fm.OriginalName != "notes.pdf" || fm.SizeBytes != 9 {
		t.Fatalf("file meta: ok=%v meta=%+v", ok, fm)
	}
	if files := h.blobFiles(t); len(files) != 1 || files[0] != msg.Content {
		t.Fatalf("blobs: got=%v", files)
	}
	list, err := h.repos.Messages.ListByCourseID(dbctx.Of(ctx), course.ID)
	if err != nil || len(list) != 1 || list[0].ID != msg.ID {
		t.Fatalf("ListByCourseID: list=%v err=%v", list, err)
	}
}

func TestIngestClassifiesByExtension(t *testing.T) {
	cases := []struct {
		filename string
		want     types.MessageKind
	}{
		{"lecture.MP3", types.KindAudio},
		{"diagram.png", types.KindImage},
		{"slides.pdf", types.KindPDF},
		{"syllabus.docx", types.KindFile},
		{"README", types.KindFile},
	}
	ctx := context.Background()
	h := newHarness(t)
	course, err := h.repos.Courses.Create(dbctx.Of(ctx), &types.Course{Name: "DBMS"})
	if err != nil {
		t.Fatalf("Create course: %v", err)
	}
	policy := extract.Policy{Audio: extract.ModeOff, Image: extract.ModeOff, PDF: extract.ModeOff, File: extract.ModeOff}
	svc := NewIngestService(logger.Nop(), h.repos.Courses, h.repos.Messages, h.store, extract.New(logger.Nop(), extract.Options{}), nil, IngestConfig{Policy: policy})
	for _, tc := range cases {
		t.Run(tc.filename, func(t *testing.T) {
			msg, err := svc.Ingest(ctx, course.ID, Upload{Filename: tc.filename, Size: 3, Body: strings.NewReader("abc")})
			if err != nil {
				t.Fatalf("Ingest: %v", err)
			}
			if msg.Kind != tc.want {
				t.Fatalf("kind: want=%s got=%s", tc.want, msg.Kind)
			}
		})
	}
}

func TestIngestTranscribesAudioEagerly(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t)
	course, err := h.repos.Courses.Create(dbctx.Of(ctx), &types.Course{Name: "Computer Networks"})
	if err != nil {
		t.Fatalf("Create course: %v", err)
	}
	engine := &fakeEngine{text: "TCP uses a three way handshake."}
	ex := extract.New(logger.Nop(), extract.Options{Audio: extract.WhisperTranscriber{Client: engine}})
	svc := newIngest(h, ex, nil, IngestConfig{Policy: extract.DefaultPolicy()})

	msg, err := svc.Ingest(ctx, course.ID, Upload{Filename: "lecture.mp3", Size: 4, Body: strings.NewReader("ID3x")})
	if err != nil {
		t.Fatalf("Ingest: %v", err)
	}
	if msg.Kind != types.KindAudio || msg.Transcription != "TCP uses a three way handshake." {
		t.Fatalf("unexpected message: %+v", msg)
	}
}

func TestIngestSurvivesTranscriptionFailure(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t)
	course, err := h.repos.Courses.Create(dbctx.Of(ctx), &types.Course{Name: "Computer Networks"})
	if err != nil {
		t.Fatalf("Create course: %v", err)
	}
	engine := &fakeEngine{textErr: errBoom}
	ex := extract.New(logger.Nop(), extract.Options{Audio: extract.WhisperTranscriber{Client: engine}})
	svc := newIngest(h, ex, nil, IngestConfig{Policy: extract.DefaultPolicy()})

	msg, err := svc.Ingest(ctx, course.ID, Upload{Filename: "lecture.wav", Size: 4, Body: strings.NewReader("RIFF")})
	if err != nil {
		t.Fatalf("Ingest: %v", err)
	}
	if msg.Kind != types.KindAudio || msg.Transcription != "" {
		t.Fatalf("unexpected message: %+v", msg)
	}
	if files := h.blobFiles(t); len(files) != 1 {
		t.Fatalf("blob should be kept, got=%v", files)
	}
}

func TestIngestWarmsContextCacheForEagerImages(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t)
	course, err := h.repos.Courses.Create(dbctx.Of(ctx), &types.Course{Name: "Compiler Design"})
	if err != nil {
		t.Fatalf("Create course: %v", err)
	}
	ocr := &fakeOCR{text: "LR(1) parsing table"}
	cache := newMemCache()
	ex := extract.New(logger.Nop(), extract.Options{OCR: ocr})
	policy := extract.DefaultPolicy()
	policy.Image = extract.ModeEager
	svc := newIngest(h, ex, cache, IngestConfig{Policy: policy})

	msg, err := svc.Ingest(ctx, course.ID, Upload{Filename: "board.jpg", Size: 3, Body: strings.NewReader("jpg")})
	if err != nil {
		t.Fatalf("Ingest: %v", err)
	}
	if got, ok, _ := cache.Get(ctx, msg.Content); !ok || got != "LR(1) parsing table" {
		t.Fatalf("cache: ok=%v got=%q", ok, got)
	}
	if msg.Transcription != "" {
		t.Fatalf("images never carry a transcription, got=%q", msg.Transcription)
	}
}

func TestIngestRejections(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t)
	course, err := h.repos.Courses.Create(dbctx.Of(ctx), &types.Course{Name: "Algorithms"})
	if err != nil {
		t.Fatalf("Create course: %v", err)
	}
	svc := newIngest(h, extract.New(logger.Nop(), extract.Options{}), nil, IngestConfig{MaxUploadBytes: 8, Policy: extract.DefaultPolicy()})

	cases := []struct {
		name     string
		courseID uuid.UUID
		up       Upload
		status   int
		code     string
	}{
		{"no file", course.ID, Upload{}, http.StatusBadRequest, "no_file"},
		{"declared too large", course.ID, Upload{Filename: "big.pdf", Size: 9, Body: strings.NewReader("123456789")}, http.StatusBadRequest, "file_too_large"},
		{"body larger than declared", course.ID, Upload{Filename: "liar.pdf", Size: 2, Body: strings.NewReader("0123456789abcdef")}, http.StatusBadRequest, "file_too_large"},
		{"unknown course", uuid.New(), Upload{Filename: "ok.pdf", Size: 2, Body: strings.NewReader("ok")}, http.StatusNotFound, "course_not_found"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := svc.Ingest(ctx, tc.courseID, tc.up)
			if err == nil {
				t.Fatalf("expected error")
			}
			if apierr.StatusOf(err) != tc.status || apierr.CodeOf(err) != tc.code {
				t.Fatalf("want=%d/%s got=%d/%s (%v)", tc.status, tc.code, apierr.StatusOf(err), apierr.CodeOf(err), err)
			}
		})
	}

	if files := h.blobFiles(t); len(files) != 0 {
		t.Fatalf("rejected uploads left blobs: %v", files)
	}
	list, err := h.repos.Messages.ListByCourseID(dbctx.Of(ctx), course.ID)
	if err != nil || len(list) != 0 {
		t.Fatalf("rejected uploads left messages: list=%v err=%v", list, err)
	}
}

func TestIngestReadFailureLeavesNoBlob(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t)
	course, err := h.repos.Courses.Create(dbctx.Of(ctx), &types.Course{Name: "AI"})
	if err != nil {
		t.Fatalf("Create course: %v", err)
	}
	svc := newIngest(h, extract.New(logger.Nop(), extract.Options{}), nil, IngestConfig{Policy: extract.DefaultPolicy()})
	if _, err := svc.Ingest(ctx, course.ID, Upload{Filename: "broken.pdf", Size: 10, Body: errReader{}}); err == nil {
		t.Fatalf("expected error")
	}
	if files := h.blobFiles(t); len(files) != 0 {
		t.Fatalf("failed upload left blobs: %v", files)
	}
}

func TestLimitedReader(t *testing.T) {
	r := &limitedReader{r: strings.NewReader("abcd"), remaining: 4}
	buf := make([]byte, 16)
	n, err := r.Read(buf)
	if n != 4 || err != nil {
		t.Fatalf("first read: n=%d err=%v", n, err)
	}
	if _, err := r.Read(buf); err != io.EOF {
		t.Fatalf("exact-size body should reach EOF, got=%v", err)
	}
}
