package tui

import (
	"fmt"
	"math"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

// Shimmer animation for the LETTERS logo.
type shimmerTickMsg time.Time

func shimmerTickCmd() tea.Cmd {
	return tea.Tick(80*time.Millisecond, func(t time.Time) tea.Msg {
		return shimmerTickMsg(t)
	})
}

// renderShimmerLogo renders "L E T T E R S" as a flowing wave of warm light.
// Deep amber (#3a2a10) -> bright gold (#fbbf24). No hue drift.
func renderShimmerLogo(frame int) string {
	const text = "LETTERS"
	n := len(text)

	var out string
	t := float64(frame)

	for i := 0; i < n; i++ {
		x := float64(i) / float64(n-1)

		// One smooth wave advancing through the text.
		phase := t*0.1 - x*3.0
		phase += math.Sin(t*0.023) * 2.0

		b := math.Sin(phase)*0.5 + 0.5
		b = math.Pow(b, 1.3)

		tide := math.Sin(t*0.035) * 0.12
		b = b*0.75 + tide + 0.18

		if b > 1.0 {
			b = 1.0
		} else if b < 0.05 {
			b = 0.05
		}

		// Continuous RGB interpolation: deep amber -> bright gold.
		r := clampByte(58 + b*(251-58))
		g := clampByte(42 + b*(191-42))
		bl := clampByte(16 + b*(36-16))

		color := fmt.Sprintf("#%02X%02X%02X", r, g, bl)

		s := lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color(color))
		out += s.Render(string(text[i]))

		if i < n-1 {
			out += "  "
		}
	}

	return out
}

func clampByte(v float64) int {
	if v > 255 {
		return 255
	}
	if v < 0 {
		return 0
	}
	return int(v)
}

var (
	// Base palette
	dimStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#8890a0"))

	selectedStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#e4e4ec")).
			Bold(true)

	normalStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#c0c4d0"))

	metaStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#505868"))

	// Accent / action
	accentStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#fbbf24"))

	// Help bar
	helpKeyStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#8890a0"))

	helpLabelStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#505868"))

	// The big round letter
	letterStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#fbbf24")).
			Bold(true)

	// Validation and error text
	errorStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#b45555"))

	// Success / submitted markers
	okStyle = lipgloss.NewStyle().
		Foreground(lipgloss.Color("#4ade80"))

	// Round timer: normal and last-ten-seconds urgency
	timerStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#22d3ee"))

	timerUrgentStyle = lipgloss.NewStyle().
				Foreground(lipgloss.Color("#f87171")).
				Bold(true)

	// Transient notice banner
	noticeStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#d4a844"))

	// Host marker next to a player name
	hostBadgeStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#fbbf24")).
			Bold(true)

	// Connection status dots
	connUpStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#4ade80"))

	connRetryStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#f59e0b"))

	connDownStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#b45555"))

	inputPromptStyle = lipgloss.NewStyle().
				Foreground(lipgloss.Color("#fbbf24")).
				Bold(true)

	inputPlaceholderStyle = lipgloss.NewStyle().
				Foreground(lipgloss.Color("#343c4a"))
)

// rankStyle colors a leaderboard position.
func rankStyle(rank int) lipgloss.Style {
	switch rank {
	case 1:
		return lipgloss.NewStyle().Foreground(lipgloss.Color("#fbbf24"))
	case 2:
		return lipgloss.NewStyle().Foreground(lipgloss.Color("#b8ccdf"))
	case 3:
		return lipgloss.NewStyle().Foreground(lipgloss.Color("#f0944a"))
	default:
		return lipgloss.NewStyle().Foreground(lipgloss.Color("#8891a5"))
	}
}

// helpEntry renders a single "key label" pair for help bars.
func helpEntry(key, label string) string {
	return helpKeyStyle.Render(key) + " " + helpLabelStyle.Render(label)
}

// helpView renders the static help overlay.
func helpView() string {
	title := lipgloss.NewStyle().
		Foreground(lipgloss.Color("#fbbf24")).
		Bold(true).
		Render("L E T T E R S")

	sub := lipgloss.NewStyle().
		Foreground(lipgloss.Color("245")).
		Italic(true).
		Render("every answer starts with the round's letter")

	cmdStyle := lipgloss.NewStyle().Bold(true)
	descStyle := lipgloss.NewStyle().Foreground(lipgloss.Color("245"))
	sectionStyle := lipgloss.NewStyle().Foreground(lipgloss.Color("245")).Bold(true)

	commands := []struct{ cmd, desc string }{
		{"letters", "Play (interactive TUI)"},
		{"letters login", "Sign in from the shell"},
		{"letters logout", "Clear the stored session"},
		{"letters version", "Show version"},
	}

	keys := []struct{ key, desc string }{
		{"tab / shift+tab", "Move between fields"},
		{"j/k", "Move the cursor in lists"},
		{"space", "Toggle a category (host setup)"},
		{"ctrl+s", "Save rules / submit answers"},
		{"c", "Copy the room id"},
		{"esc", "Back / leave"},
	}

	var b strings.Builder
	fmt.Fprintf(&b, "\n  %s\n\n  %s\n\n", title, sub)

	fmt.Fprintf(&b, "  %s\n", sectionStyle.Render("Commands"))
	for _, c := range commands {
		fmt.Fprintf(&b, "    %s  %s\n", cmdStyle.Render(fmt.Sprintf("%-18s", c.cmd)), descStyle.Render(c.desc))
	}

	fmt.Fprintf(&b, "\n  %s\n", sectionStyle.Render("Keys"))
	for _, k := range keys {
		fmt.Fprintf(&b, "    %s  %s\n", cmdStyle.Render(fmt.Sprintf("%-18s", k.key)), descStyle.Render(k.desc))
	}
	return b.String()
}
