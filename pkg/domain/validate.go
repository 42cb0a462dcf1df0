package domain

import (
	"fmt"
	"strings"
	"unicode/utf8"
)

// ValidateAnswer checks an answer against the round's resolved letter.
// Empty answers are always valid — "no answer yet" is not a violation.
// A non-empty answer must start with the letter, case-insensitively.
// Returns a human-readable reason, or "" if the answer is acceptable.
// Purely advisory: it gates the submit action, never keystrokes.
func ValidateAnswer(answer, letter string) string {
	trimmed := strings.TrimSpace(answer)
	if trimmed == "" || letter == "" {
		return ""
	}
	first, _ := utf8.DecodeRuneInString(trimmed)
	want, _ := utf8.DecodeRuneInString(letter)
	if !strings.EqualFold(string(first), string(want)) {
		return fmt.Sprintf("must start with %q", strings.ToUpper(letter))
	}
	return ""
}

// ValidateRoomName checks a room name before it is sent to the backend.
func ValidateRoomName(name string) string {
	trimmed := strings.TrimSpace(name)
	if trimmed == "" {
		return "room name cannot be empty"
	}
	if utf8.RuneCountInString(trimmed) > 64 {
		return "room name is too long"
	}
	return ""
}
