package ui

import (
	"strings"

	"github.com/charmbracelet/lipgloss"

	"ccsim/pkg/operation"
	"ccsim/pkg/schedule"
)

// ScheduleHighlighter colors rendered schedule tokens by operation kind.
type ScheduleHighlighter struct {
	styles       map[operation.Kind]lipgloss.Style
	unknownStyle lipgloss.Style
	sepStyle     lipgloss.Style
}

func NewScheduleHighlighter() *ScheduleHighlighter {
	lockStyle := lipgloss.NewStyle().Foreground(lipgloss.Color("#BD93F9"))
	dataStyle := lipgloss.NewStyle().Foreground(lipgloss.Color("#8BE9FD"))

	return &ScheduleHighlighter{
		styles: map[operation.Kind]lipgloss.Style{
			operation.Read:          dataStyle,
			operation.Write:         dataStyle.Bold(true),
			operation.SharedLock:    lockStyle,
			operation.ExclusiveLock: lockStyle.Bold(true),
			operation.UpgradeLock:   lockStyle.Bold(true).Underline(true),
			operation.Unlock:        lipgloss.NewStyle().Foreground(lipgloss.Color("#6272A4")),
			operation.Begin:         lipgloss.NewStyle().Foreground(lipgloss.Color("#F1FA8C")),
			operation.Commit:        lipgloss.NewStyle().Foreground(accentColor).Bold(true),
			operation.Abort:         lipgloss.NewStyle().Foreground(errorColor).Bold(true),
		},
		unknownStyle: lipgloss.NewStyle().Foreground(textPrimary),
		sepStyle:     lipgloss.NewStyle().Foreground(textMuted),
	}
}

// Highlight renders a ';'-separated schedule with one style per token.
func (h *ScheduleHighlighter) Highlight(output string) string {
	if output == "" {
		return ""
	}

	tokens := strings.Split(output, schedule.Separator)
	highlighted := make([]string, 0, len(tokens))
	for _, token := range tokens {
		highlighted = append(highlighted, h.styleFor(token).Render(token))
	}
	return strings.Join(highlighted, h.sepStyle.Render(schedule.Separator))
}

func (h *ScheduleHighlighter) styleFor(token string) lipgloss.Style {
	code := leadingCode(token)
	kind, ok := operation.KindFromCode(code)
	if !ok {
		return h.unknownStyle
	}
	return h.styles[kind]
}

// leadingCode returns the upper-case prefix of a token, e.g. "UPL" for "UPL3(B)".
func leadingCode(token string) string {
	end := 0
	for end < len(token) && token[end] >= 'A' && token[end] <= 'Z' {
		end++
	}
	return token[:end]
}
