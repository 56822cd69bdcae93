// internal/splitter/text.go
package splitter

import (
	"regexp"
	"strings"

	"golang.org/x/text/unicode/norm"
)

var (
	paragraphSeparator = regexp.MustCompile(`\n[ \t\f\v]*\n`)
	sentenceUnit       = regexp.MustCompile(`[^.!?。！？]+[.!?。！？]*`)
)

const sentenceTerminators = ".!?。！？"

// normalizeText converts text to NFC and unifies line endings.
// Korean input may arrive decomposed (NFD) from some editors, which would
// defeat substring matching against the lexicon.
func normalizeText(text string) string {
	text = strings.ReplaceAll(text, "\r\n", "\n")
	text = strings.ReplaceAll(text, "\r", "\n")
	return norm.NFC.String(text)
}

// SplitParagraphs splits text on blank lines and drops whitespace-only parts.
func SplitParagraphs(text string) []string {
	parts := paragraphSeparator.Split(normalizeText(text), -1)
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

func isTerminator(r rune) bool {
	return strings.ContainsRune(sentenceTerminators, r)
}

// countSentences counts non-empty runs between terminators
func countSentences(text string) int {
	n := 0
	for _, s := range strings.FieldsFunc(text, isTerminator) {
		if strings.TrimSpace(s) != "" {
			n++
		}
	}
	return n
}

// splitSentences keeps the terminator attached to each sentence
func splitSentences(text string) []string {
	var out []string
	for _, s := range sentenceUnit.FindAllString(text, -1) {
		if s = strings.TrimSpace(s); s != "" {
			out = append(out, s)
		}
	}
	return out
}

func countWords(text string) int {
	return len(strings.Fields(text))
}

// firstSentence returns the first sentence of the first line, without its terminator.
func firstSentence(text string) string {
	line := strings.TrimSpace(text)
	if i := strings.IndexByte(line, '\n'); i >= 0 {
		line = strings.TrimSpace(line[:i])
	}
	if i := strings.IndexFunc(line, isTerminator); i >= 0 {
		line = strings.TrimSpace(line[:i])
	}
	return line
}

func joinNonEmpty(sep string, parts ...string) string {
	kept := parts[:0:0]
	for _, p := range parts {
		if strings.TrimSpace(p) != "" {
			kept = append(kept, p)
		}
	}
	return strings.Join(kept, sep)
}

// unionStrings appends b to a, skipping values already present, keeping first-seen order.
func unionStrings(a, b []string) []string {
	out := make([]string, 0, len(a)+len(b))
	seen := make(map[string]struct{}, len(a)+len(b))
	for _, list := range [][]string{a, b} {
		for _, v := range list {
			if _, ok := seen[v]; ok {
				continue
			}
			seen[v] = struct{}{}
			out = append(out, v)
		}
	}
	return out
}

func appendNote(notes, note string) string {
	if notes == "" {
		return note
	}
	return notes + "; " + note
}
