// Package filter decides whether an utterance is worth dispatching at all.
//
// Matching is plain case-insensitive substring containment, so a keyword
// like "who" also matches inside "whose". That overmatch is kept as-is.
package filter

import "strings"

// DefaultWakeWord triggers processing of any utterance containing it.
const DefaultWakeWord = "flora"

// DefaultDirectKeywords allow processing without the wake word.
var DefaultDirectKeywords = []string{
	"open", "volume", "search", "create", "write", "read", "make",
	"who", "what", "when", "where", "how", "why", "thank", "hello",
}

// ShouldProcess reports whether the utterance contains the wake word or any
// direct keyword, ignoring case.
func ShouldProcess(utterance, wakeWord string, directKeywords []string) bool {
	u := strings.ToLower(utterance)
	if w := strings.ToLower(wakeWord); w != "" && strings.Contains(u, w) {
		return true
	}
	for _, kw := range directKeywords {
		kw = strings.ToLower(kw)
		if kw != "" && strings.Contains(u, kw) {
			return true
		}
	}
	return false
}

// StripWakeWord removes every case-insensitive occurrence of wakeWord and
// trims surrounding whitespace. Removal repeats until nothing is left to
// remove, so the result is stable under a second call even when removing
// one occurrence joins the halves of another.
func StripWakeWord(utterance, wakeWord string) string {
	if wakeWord == "" {
		return strings.TrimSpace(utterance)
	}
	w := strings.ToLower(wakeWord)
	out := utterance
	for {
		next := removeFold(out, w)
		if next == out {
			break
		}
		out = next
	}
	return strings.TrimSpace(out)
}

func removeFold(s, lowerWord string) string {
	lower := strings.ToLower(s)
	// ToLower can change byte length for some runes; fall back to the
	// lower-cased text so indexes stay aligned.
	if len(lower) != len(s) {
		s = lower
	}
	var b strings.Builder
	i := 0
	for {
		j := strings.Index(lower[i:], lowerWord)
		if j < 0 {
			b.WriteString(s[i:])
			break
		}
		b.WriteString(s[i : i+j])
		i += j + len(lowerWord)
	}
	return b.String()
}

// Policy bundles the filter settings used by the engine.
type Policy struct {
	WakeWord       string
	DirectKeywords []string
}

// DefaultPolicy returns the stock wake word and keyword list.
func DefaultPolicy() Policy {
	kw := make([]string, len(DefaultDirectKeywords))
	copy(kw, DefaultDirectKeywords)
	return Policy{WakeWord: DefaultWakeWord, DirectKeywords: kw}
}

func (p Policy) ShouldProcess(utterance string) bool {
	return ShouldProcess(utterance, p.WakeWord, p.DirectKeywords)
}

func (p Policy) Clean(utterance string) string {
	return StripWakeWord(utterance, p.WakeWord)
}
