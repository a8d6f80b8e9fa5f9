package watch

import (
	"fmt"
	"time"

	"github.com/charmbracelet/lipgloss"
)

func renderHeader(health HealthState, ticker Ticker, spinner Spinner, theme Theme, width int) string {
	var status string
	if health.Connected {
		status = theme.StatusOK.Render("● CONNECTED")
	} else {
		status = theme.StatusFailed.Render("○ DISCONNECTED")
	}

	uptime := theme.Dim.Render(fmt.Sprintf("up %s", formatUptime(health.UptimeSeconds)))
	tick := theme.TickerActive.Render(ticker.Current())

	left := lipgloss.JoinHorizontal(lipgloss.Center,
		theme.Header.Render("MORTAR WATCH"),
		"  ",
		status,
		"  ",
		uptime,
	)
	right := lipgloss.JoinHorizontal(lipgloss.Center, spinner.Render(theme), " ", tick)

	gap := width - 4 - lipgloss.Width(left) - lipgloss.Width(right)
	if gap < 1 {
		gap = 1
	}
	line := left + lipgloss.NewStyle().Width(gap).Render("") + right

	return theme.Border.Width(width - 4).Render(line)
}

func formatUptime(seconds int64) string {
	d := time.Duration(seconds) * time.Second
	if d < time.Minute {
		return fmt.Sprintf("%ds", seconds)
	}
	if d < time.Hour {
		return fmt.Sprintf("%dm%ds", int(d.Minutes()), int(d.Seconds())%60)
	}
	return fmt.Sprintf("%dh%dm", int(d.Hours()), int(d.Minutes())%60)
}
