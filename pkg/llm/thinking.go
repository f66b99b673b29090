package llm

import (
	"regexp"
	"strings"
)

var thinkingPattern = regexp.MustCompile(`(?s)<think>.*?</think>`)

// StripThinking removes every <think>...</think> segment and trims the result.
// An unterminated <think> is left as is.
func StripThinking(text string) string {
	return strings.TrimSpace(thinkingPattern.ReplaceAllString(text, ""))
}

// HasThinking reports whether text contains a delimited thinking segment.
func HasThinking(text string) bool {
	return thinkingPattern.MatchString(text)
}
