// Package format normalizes raw answer-engine output into plain text for the chat UI.
package format

import (
	"regexp"
	"strings"
	"unicode/utf8"
)

const (
	// MaxChars caps the formatted body, counted in characters (runes).
	MaxChars = 4000
	// TruncationMarker is appended after a body cut at MaxChars.
	TruncationMarker = "\n\n[Response truncated]"
)

var (
	breakTagRE     = regexp.MustCompile(`(?i)<br\s*/?>`)
	paragraphTagRE = regexp.MustCompile(`(?i)</?p>`)
	anyTagRE       = regexp.MustCompile(`</?[^>]+(>|$)`)
	listMarkerRE   = regexp.MustCompile(`\d+\.\s`)
	hspaceRE       = regexp.MustCompile(`[\t ]+`)
	newlineSpaceRE = regexp.MustCompile(`\s*\n\s*`)
	blankLinesRE   = regexp.MustCompile(`\n{2,}`)
)

// Answer formats raw model output. It is pure and idempotent:
// Answer(Answer(x)) == Answer(x) for every x.
//
// A "<digits>. " sequence is treated as a list marker wherever it appears, so prose
// like "Python 3. Next" is split too.
func Answer(raw string) string {
	if body, ok := strings.CutSuffix(raw, TruncationMarker); ok {
		// already capped once; keep the marker and re-normalize the body
		return capped(normalize(body), true)
	}
	return capped(normalize(raw), false)
}

func normalize(s string) string {
	s = breakTagRE.ReplaceAllString(s, "\n")
	s = paragraphTagRE.ReplaceAllString(s, "\n")
	s = anyTagRE.ReplaceAllString(s, "")

	s = splitListMarkers(s)
	s = strings.ReplaceAll(s, "**", "")
	s = strings.ReplaceAll(s, "*", "")
	// removing emphasis can glue a marker to the text before it
	s = splitListMarkers(s)

	s = hspaceRE.ReplaceAllString(s, " ")
	s = newlineSpaceRE.ReplaceAllString(s, "\n")
	s = blankLinesRE.ReplaceAllString(s, "\n\n")
	return strings.TrimSpace(s)
}

// splitListMarkers starts a new line before every numbered-list marker that does not
// already begin one. It loops until stable because an inserted newline can change which
// digit run the pattern picks up next.
func splitListMarkers(s string) string {
	for {
		next := splitListMarkersOnce(s)
		if next == s {
			return s
		}
		s = next
	}
}

func splitListMarkersOnce(s string) string {
	locs := listMarkerRE.FindAllStringIndex(s, -1)
	if len(locs) == 0 {
		return s
	}
	var b strings.Builder
	b.Grow(len(s) + len(locs))
	prev := 0
	for _, loc := range locs {
		start := loc[0]
		// extend back over the whole digit run so "12. " is not cut into "1" + "2. "
		for start > 0 && s[start-1] >= '0' && s[start-1] <= '9' {
			start--
		}
		if start < prev {
			continue
		}
		b.WriteString(s[prev:start])
		if start > 0 && s[start-1] != '\n' {
			b.WriteByte('\n')
		}
		prev = start
	}
	b.WriteString(s[prev:])
	return b.String()
}

func capped(body string, forceMarker bool) string {
	if utf8.RuneCountInString(body) > MaxChars {
		body = strings.TrimSpace(string([]rune(body)[:MaxChars]))
		return body + TruncationMarker
	}
	if forceMarker {
		return body + TruncationMarker
	}
	return body
}
