package definitions

import (
	"regexp"
	"strings"
	"unicode/utf8"
)

// MaxDefinitionChars caps the cleaned definition length.
const MaxDefinitionChars = 240

var (
	// Reasoning-model artifacts: tagged thinking spans and unclosed ones.
	thinkSpanRe = regexp.MustCompile(`(?is)<(think|thinking|reasoning)>.*?</(think|thinking|reasoning)>`)
	thinkOpenRe = regexp.MustCompile(`(?is)<(think|thinking|reasoning)>.*$`)
	// Conversational preambles some models refuse to drop.
	preambleRe = regexp.MustCompile(`(?i)^(okay,|ok,|sure[,!]|alright,|reasoning:|thinking:|answer:|definition:|let me think[.:]*)\s*`)
	spaceRe    = regexp.MustCompile(`\s+`)
)

// Clean normalizes raw model output into a caption-friendly definition: strips
// reasoning spans and preambles, collapses whitespace, cuts at the first
// sentence-terminal punctuation, and hard-caps the length. It is a pure
// function of its input.
func Clean(raw string) string {
	s := thinkSpanRe.ReplaceAllString(raw, "")
	s = thinkOpenRe.ReplaceAllString(s, "")
	s = strings.TrimSpace(s)
	for {
		trimmed := preambleRe.ReplaceAllString(s, "")
		if trimmed == s {
			break
		}
		s = strings.TrimSpace(trimmed)
	}
	s = strings.Trim(s, `"'`)
	s = spaceRe.ReplaceAllString(s, " ")
	s = strings.TrimSpace(s)

	if idx := firstSentenceEnd(s); idx >= 0 {
		s = s[:idx]
	}
	if utf8.RuneCountInString(s) > MaxDefinitionChars {
		s = string([]rune(s)[:MaxDefinitionChars])
	}
	return strings.TrimSpace(s)
}

// firstSentenceEnd returns the byte index just past the first sentence
// terminator, or -1 when none is found.
func firstSentenceEnd(s string) int {
	for i, r := range s {
		switch r {
		case '.', '!', '?', '。', '！', '？':
			return i + utf8.RuneLen(r)
		}
	}
	return -1
}

// IsSkip reports whether the cleaned output is the skip sentinel: the
// provider's way of flagging a term not worth defining.
func IsSkip(cleaned string) bool {
	s := strings.ToLower(strings.TrimSpace(cleaned))
	s = strings.TrimRight(s, ".!?")
	return s == SentinelSkip
}
