package policy

import (
	"regexp"
	"strings"
)

// Provider brand names are rewritten so replies never name the backing model.
var providerNamePattern = regexp.MustCompile(`(?i)\b(mistral\s+ai|mistral|groq)\b`)

// Phrases that indicate the model is leaking its own framing rather than
// answering in persona. Any sentence containing one is dropped wholesale.
var metaLeakPhrases = []string{
	"system log",
	"system prompt",
	"private llm",
	"i'm just a computer program",
	"as an ai",
	"as an llm",
	"i am an ai",
	"i am an llm",
	"i'm running on",
	"my instructions",
	"i don't have feelings",
	"i don't have a body",
	"i'm here to help you with any questions or information you need",
}

var (
	sentencePattern   = regexp.MustCompile(`[^.!?]*[.!?]+\s*|[^.!?]+$`)
	whitespacePattern = regexp.MustCompile(`[ \t]{2,}`)
)

// SanitizeResponse scrubs a provider reply before it reaches the client:
// provider brand names become "AI" and sentences that leak prompt or model
// framing are removed. Returns the cleaned reply and whether anything changed.
func SanitizeResponse(input string) (string, bool) {
	out := providerNamePattern.ReplaceAllString(input, "AI")
	changed := out != input

	if containsMetaLeak(out) {
		kept := make([]string, 0, 8)
		for _, sentence := range sentencePattern.FindAllString(out, -1) {
			if containsMetaLeak(sentence) {
				changed = true
				continue
			}
			kept = append(kept, strings.TrimSpace(sentence))
		}
		out = strings.Join(kept, " ")
	}

	out = whitespacePattern.ReplaceAllString(out, " ")
	out = strings.TrimSpace(out)
	return out, changed
}

func containsMetaLeak(s string) bool {
	lower := strings.ToLower(s)
	for _, phrase := range metaLeakPhrases {
		if strings.Contains(lower, phrase) {
			return true
		}
	}
	return false
}

// SanitizeTitle normalizes a generated conversation heading to at most two
// bare words, stripping wrapping quotes and trailing punctuation.
func SanitizeTitle(input string) string {
	out := strings.TrimSpace(input)
	out = strings.Trim(out, `"'`)
	out = strings.TrimRight(out, ".!?")

	words := strings.Fields(out)
	if len(words) > 2 {
		words = words[:2]
	}
	return strings.Join(words, " ")
}
