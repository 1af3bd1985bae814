package course

import "testing"

func TestClassify(t *testing.T) {
	cases := map[string]MessageKind{
		"lecture.mp3":    KindAudio,
		"a.WAV":          KindAudio,
		"memo.m4a":       KindAudio,
		"rec.webm":       KindAudio,
		"board.png":      KindImage,
		"photo.JPG":      KindImage,
		"scan.jpeg":      KindImage,
		"notes.pdf":      KindPDF,
		"Notes.PDF":      KindPDF,
		"slides.pptx":    KindFile,
		"archive.tar.gz": KindFile,
		"README":         KindFile,
		"":               KindFile,
		"pdf":            KindFile,
	}
	for name, want := range cases {
		if got := Classify(name); got != want {
			t.Fatalf("Classify(%q): want=%s got=%s", name, want, got)
		}
	}
}

func TestParseMessageKind(t *testing.T) {
	for _, k := range Kinds {
		got, err := ParseMessageKind(" " + string(k) + " ")
		if err != nil || got != k {
			t.Fatalf("ParseMessageKind(%q): got=%q err=%v", k, got, err)
		}
	}
	if _, err := ParseMessageKind("video"); err == nil {
		t.Fatalf("expected error for unknown kind")
	}
}

func TestKindPredicates(t *testing.T) {
	for _, k := range Kinds {
		if k.HasBlob() == (k == KindText) {
			t.Fatalf("HasBlob(%s) inconsistent", k)
		}
	}
}

func TestFileMetaRoundTrip(t *testing.T) {
	m := &Message{}
	if _, ok := m.FileMeta(); ok {
		t.Fatalf("empty meta should report false")
	}
	m.SetFileMeta(FileMeta{OriginalName: "lecture.pdf", ContentType: "application/pdf", SizeBytes: 42})
	fm, ok := m.FileMeta()
	if !ok || fm.OriginalName != "lecture.pdf" || fm.SizeBytes != 42 {
		t.Fatalf("unexpected meta: %+v ok=%v", fm, ok)
	}
}
