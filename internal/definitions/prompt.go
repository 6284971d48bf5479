package definitions

import "fmt"

// buildPrompt constructs the single instruction sent to the provider. With
// surrounding context the model defines the term as used in that sentence;
// without it, the most common sense. Filler words come back as the literal
// word "skip", which the caller treats as a non-error sentinel.
func buildPrompt(term, contextText, lang string) string {
	if contextText == "" {
		return fmt.Sprintf(
			"Give a 1-2 sentence definition of %q in its most common sense. "+
				"Answer in the language with code %q. "+
				"If the word is a filler word with no meaning worth defining, answer exactly: skip. "+
				"Answer with the definition only, no preamble.",
			term, lang)
	}
	return fmt.Sprintf(
		"Give a 1-2 sentence definition of %q as it is used here: %q. "+
			"Answer in the language with code %q. "+
			"If the word is a filler word with no meaning worth defining, answer exactly: skip. "+
			"Answer with the definition only, no preamble.",
		term, contextText, lang)
}

// trailingWindow keeps at most max characters from the end of s. Captions
// stream oldest-first, so the tail is the text nearest the tapped word.
func trailingWindow(s string, max int) string {
	if max <= 0 {
		return s
	}
	runes := []rune(s)
	if len(runes) <= max {
		return s
	}
	return string(runes[len(runes)-max:])
}
