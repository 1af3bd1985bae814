package format

import (
	"strings"
	"testing"
	"unicode/utf8"
)

func TestAnswer(t *testing.T) {
	cases := []struct {
		name string
		in   string
		want string
	}{
		{"empty", "", ""},
		{"html breaks", "Title<br>Line one<br/>Line two<p>Para</p>", "Title\nLine one\nLine two\nPara"},
		{"strip tags", "<div class=\"x\">Deadlock</div> <b>basics</b>", "Deadlock basics"},
		{"unterminated tag", "Scheduling <span", "Scheduling"},
		{"numbered list", "Steps: 1. Fetch 2. Decode 3. Execute", "Steps:\n1. Fetch\n2. Decode\n3. Execute"},
		{"multi-digit marker", "items 10. ten 11. eleven", "items\n10. ten\n11. eleven"},
		{"emphasis removed", "**Paging** splits *memory* into frames", "Paging splits memory into frames"},
		{"emphasis before marker", "Intro**1. Bold item**", "Intro\n1. Bold item"},
		{"collapse spaces", "a \t  b", "a b"},
		{"blank lines collapse", "Title\n\n\n\nBody   \n   \nEnd", "Title\nBody\nEnd"},
		{"known misfire", "Use Python 3. Next step", "Use Python\n3. Next step"},
		{"trim", "   \n Answer \n  ", "Answer"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := Answer(tc.in); got != tc.want {
				t.Fatalf("Answer(%q)\nwant=%q\n got=%q", tc.in, tc.want, got)
			}
		})
	}
}

func TestAnswerTruncates(t *testing.T) {
	in := strings.Repeat("x", 10000)
	got := Answer(in)
	if !strings.HasSuffix(got, TruncationMarker) {
		t.Fatalf("missing truncation marker")
	}
	body := strings.TrimSuffix(got, TruncationMarker)
	if n := utf8.RuneCountInString(body); n != MaxChars {
		t.Fatalf("body length: want=%d got=%d", MaxChars, n)
	}
}

func TestAnswerCountsRunes(t *testing.T) {
	in := strings.Repeat("é", MaxChars)
	if got := Answer(in); got != in {
		t.Fatalf("exactly MaxChars runes must not be truncated")
	}
	got := Answer(in + "é")
	if !strings.HasSuffix(got, TruncationMarker) || !utf8.ValidString(got) {
		t.Fatalf("one rune over should truncate on a rune boundary")
	}
}

func TestAnswerIdempotent(t *testing.T) {
	inputs := []string{
		"",
		"plain",
		"Steps: 1. Fetch 2. Decode",
		"v2.1. release notes",
		"**1.** bold marker **2.** second",
		"Intro**1. Bold item**",
		"<p>Operating Systems</p><br>1.\tProcess 2.  Thread",
		"a < b and c",
		"x <",
		"Title\n\n\n Body \t\n\n End",
		"Python 3. Next",
		"done\n\n[Response truncated]",
		TruncationMarker,
		strings.Repeat("word ", 1200),
		strings.Repeat("1. item ", 900),
		strings.Repeat("ü", 4100),
		strings.Repeat("a", 3999) + " 12. tail",
	}
	for _, in := range inputs {
		once := Answer(in)
		twice := Answer(once)
		if once != twice {
			t.Fatalf("not idempotent for %q\nonce =%q\ntwice=%q", truncateForLog(in), truncateForLog(once), truncateForLog(twice))
		}
	}
}

func TestAnswerBound(t *testing.T) {
	for _, in := range []string{strings.Repeat("ab\n", 5000), strings.Repeat("**x** ", 3000)} {
		got := Answer(in)
		if utf8.RuneCountInString(got) > MaxChars+utf8.RuneCountInString(TruncationMarker) {
			t.Fatalf("output exceeds bound: %d", utf8.RuneCountInString(got))
		}
	}
}

func truncateForLog(s string) string {
	if len(s) > 80 {
		return s[:80] + "..."
	}
	return s
}
