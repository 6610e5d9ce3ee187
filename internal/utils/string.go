package utils

import (
	"regexp"
	"strings"
)

var replyPrefixRegex = regexp.MustCompile(`(?i)^\s*(re|fwd|fw)\s*:\s*`)

// StripReplyPrefix removes a single leading Re:/Fwd:/Fw: marker.
func StripReplyPrefix(subject string) string {
	return strings.TrimSpace(replyPrefixRegex.ReplaceAllString(subject, ""))
}

// TruncateRunes cuts s to at most n characters without splitting a rune.
func TruncateRunes(s string, n int) string {
	if n <= 0 {
		return ""
	}
	count := 0
	for i := range s {
		if count == n {
			return s[:i]
		}
		count++
	}
	return s
}
