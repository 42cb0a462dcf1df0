package tui

import "unicode/utf8"

// maxInputLen is the maximum number of runes allowed in form inputs.
const maxInputLen = 200

// editRune processes a keystroke for inline text editing.
// Handles backspace (rune-aware) and single printable characters.
// Returns the text unchanged for non-printable keys (enter, esc, etc.).
// Input is clamped to maxInputLen runes.
func editRune(text string, key string) string {
	switch key {
	case "backspace":
		if len(text) > 0 {
			runes := []rune(text)
			return string(runes[:len(runes)-1])
		}
		return text
	default:
		if utf8.RuneCountInString(key) == 1 {
			if utf8.RuneCountInString(text) >= maxInputLen {
				return text
			}
			return text + key
		}
		return text
	}
}

// renderField renders one form line: cursor marker, label, value and an
// optional block cursor when focused.
func renderField(label, value string, focused, secret bool) string {
	cursor := " "
	style := metaStyle
	if focused {
		cursor = accentStyle.Render(">")
		style = selectedStyle
	}
	display := value
	if secret {
		display = ""
		for range value {
			display += "*"
		}
	}
	if focused {
		display += accentStyle.Render("█")
	}
	return cursor + " " + style.Render(label) + ": " + display
}
