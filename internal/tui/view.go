package tui

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
)

var (
	tabStyle = lipgloss.NewStyle().
			Padding(0, 1).
			Foreground(lipgloss.Color("245"))
	activeTabStyle = lipgloss.NewStyle().
			Padding(0, 1).
			Bold(true).
			Foreground(lipgloss.Color("212"))
	cursorStyle    = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("212"))
	secondaryStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("243"))
	staleStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("214"))
	errorStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("203"))
	statusStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("245"))
)

func (m Model) View() string {
	var b strings.Builder

	b.WriteString(m.renderTabs())
	b.WriteByte('\n')

	state := m.lists[m.view]
	visible := m.visibleRows()

	if state.loading && len(state.items) == 0 {
		b.WriteString(m.spin.View() + " loading…\n")
	}

	start := 0
	if state.cursor >= visible {
		start = state.cursor - visible + 1
	}
	end := start + visible
	if end > len(state.items) {
		end = len(state.items)
	}
	for idx := start; idx < end; idx++ {
		it := state.items[idx]
		line := it.primary
		if it.secondary != "" {
			line += "  " + secondaryStyle.Render(it.secondary)
		}
		if idx == state.cursor {
			line = cursorStyle.Render("> ") + line
		} else {
			line = "  " + line
		}
		b.WriteString(line)
		b.WriteByte('\n')
	}

	if !state.loading && state.loaded && len(state.items) == 0 && state.errText == "" {
		b.WriteString(secondaryStyle.Render("  nothing here") + "\n")
	}
	if state.next != "" && !state.loading {
		b.WriteString(secondaryStyle.Render("  … press m for more") + "\n")
	}
	if state.errText != "" {
		b.WriteString(errorStyle.Render("  ! "+state.errText) + "\n")
	}

	b.WriteString(m.renderStatusBar(state))
	return b.String()
}

func (m Model) renderTabs() string {
	var tabs []string
	for v := View(0); v < viewCount; v++ {
		title := v.title()
		if v == m.view {
			tabs = append(tabs, activeTabStyle.Render(title))
		} else {
			tabs = append(tabs, tabStyle.Render(title))
		}
	}
	line := lipgloss.JoinHorizontal(lipgloss.Top, tabs...)
	if m.repo != "" {
		line += secondaryStyle.Render("  " + m.owner + "/" + m.repo)
	}
	return line
}

func (m Model) renderStatusBar(state listState) string {
	parts := make([]string, 0, 4)
	if state.stale {
		parts = append(parts, staleStyle.Render("stale"))
	}
	if m.rl.Remaining >= 0 && m.rl.Limit > 0 {
		rl := fmt.Sprintf("rate %d/%d", m.rl.Remaining, m.rl.Limit)
		if !m.rl.Reset.IsZero() {
			rl += " · reset " + m.rl.Reset.Format(time.Kitchen)
		}
		parts = append(parts, rl)
	}
	if m.notice != "" {
		parts = append(parts, m.notice)
	}
	parts = append(parts, "q quit · r refresh · tab views")
	return statusStyle.Render(strings.Join(parts, " · "))
}

// visibleRows is how many list rows fit between the tab bar and the
// status bar.
func (m Model) visibleRows() int {
	rows := m.height - 3
	if rows < 5 {
		rows = 5
	}
	return rows
}
