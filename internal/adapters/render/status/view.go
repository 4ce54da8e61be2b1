package status

import (
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/bnema/claude-accounts-cli/internal/application"
	"github.com/charmbracelet/lipgloss"
)

type RenderOptions struct {
	Now time.Time
}

func renderView(statuses []application.Status, opts RenderOptions, s styles) string {
	lines := []string{
		s.title.Render("Claude Accounts"),
		s.header.Render(fmt.Sprintf("accounts: %d", len(statuses))),
	}

	if len(statuses) == 0 {
		lines = append(lines, s.empty.Render("No accounts configured. Run `ca account add` to create one."))
		return lipgloss.JoinVertical(lipgloss.Left, lines...)
	}

	for _, status := range statuses {
		lines = append(lines, s.section.Render(renderAccount(status, opts, s)))
	}

	return lipgloss.JoinVertical(lipgloss.Left, lines...)
}

func renderAccount(status application.Status, opts RenderOptions, s styles) string {
	parts := []string{
		s.account.Render(accountTitle(status)),
		credentialLine(status, opts, s),
	}

	for _, line := range limitLines(status, opts, s) {
		parts = append(parts, line)
	}

	return lipgloss.JoinVertical(lipgloss.Left, parts...)
}

func accountTitle(status application.Status) string {
	title := fmt.Sprintf("%s (%s)", strings.TrimSpace(status.Account.Name), status.Account.ID)
	if icon := strings.TrimSpace(status.Account.Icon); icon != "" {
		title = icon + " " + title
	}
	if status.Selected {
		title += " [selected]"
	}
	return title
}

func credentialLine(status application.Status, opts RenderOptions, s styles) string {
	switch status.State {
	case application.CredentialStateNone:
		return s.detail.Render(fmt.Sprintf("credential: none (run `ca import --account %s`)", status.Account.ID))
	case application.CredentialStateExpired:
		line := s.warning.Render("credential: expired")
		if !status.Refreshable {
			line = lipgloss.JoinHorizontal(lipgloss.Top, line, " ", s.limitMeta.Render("(no refresh token, re-import required)"))
		}
		return line
	default:
		line := s.detail.Render("credential: valid, " + formatExpiresRelative(status.ExpiresAt, opts.Now))
		if !status.Refreshable {
			line = lipgloss.JoinHorizontal(lipgloss.Top, line, " ", s.limitMeta.Render("(manual token)"))
		}
		return line
	}
}

func limitLines(status application.Status, opts RenderOptions, s styles) []string {
	lines := make([]string, 0, 2)
	for _, limit := range []struct {
		label  string
		window *application.UsageWindow
		span   time.Duration
	}{
		{"5h limit:", status.FiveHour, 5 * time.Hour},
		{"7d limit:", status.SevenDay, 7 * 24 * time.Hour},
	} {
		if limit.window == nil {
			continue
		}
		lines = append(lines, limitLine(limit.label, limit.window, limit.span, opts, s))
	}

	return lines
}

func limitLine(label string, window *application.UsageWindow, span time.Duration, opts RenderOptions, s styles) string {
	leftPercent := clampPercent(100 - window.Utilization)
	bar := renderProgressBar(window.Utilization, 24, s)
	key := s.limitKey.Render(label)
	percentStyle := lipgloss.NewStyle().Foreground(interpolateColor(leftPercent, 0, 100))
	meta := percentStyle.Render(fmt.Sprintf("%2.0f%% left", leftPercent))

	resetStyle := lipgloss.NewStyle().Foreground(resetTimeColor(window.ResetsAt, opts.Now, span))
	reset := resetStyle.Render(fmt.Sprintf("(%s)", formatResetRelative(window.ResetsAt, opts.Now)))

	return lipgloss.JoinHorizontal(
		lipgloss.Top,
		key,
		" ",
		bar,
		" ",
		meta,
		" ",
		reset,
	)
}

func renderProgressBar(usedPercent float64, width int, s styles) string {
	if width <= 0 {
		return ""
	}

	used := clampPercent(usedPercent)
	leftFraction := (100.0 - used) / 100.0
	filled := int(math.Round(float64(width) * leftFraction))
	if filled < 0 {
		filled = 0
	}
	if filled > width {
		filled = width
	}

	empty := width - filled
	fillSegment := s.barFill.Render(strings.Repeat("=", filled))
	emptySegment := s.barEmpty.Render(strings.Repeat("-", empty))

	return lipgloss.JoinHorizontal(
		lipgloss.Top,
		s.barBracket.Render("["),
		fillSegment,
		emptySegment,
		s.barBracket.Render("]"),
	)
}

func clampPercent(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 100 {
		return 100
	}
	return v
}

func formatExpiresRelative(expiresAt, now time.Time) string {
	if expiresAt.IsZero() {
		return "expiry unknown"
	}
	if now.IsZero() {
		return "expires " + expiresAt.Format(time.RFC3339)
	}
	if expiresAt.Before(now) {
		return "expires now"
	}

	remaining := expiresAt.Sub(now)
	if remaining < time.Hour {
		minutes := int(math.Ceil(remaining.Minutes()))
		if minutes < 1 {
			minutes = 1
		}
		return fmt.Sprintf("expires in %d min", minutes)
	}
	if remaining < 24*time.Hour {
		hours := int(math.Ceil(remaining.Hours()))
		suffix := "hours"
		if hours == 1 {
			suffix = "hour"
		}
		return fmt.Sprintf("expires in %d %s (%s)", hours, suffix, expiresAt.Format("15:04"))
	}

	days := int(math.Ceil(remaining.Hours() / 24))
	suffix := "days"
	if days == 1 {
		suffix = "day"
	}

	return fmt.Sprintf("expires in %d %s (%s)", days, suffix, expiresAt.Format("15:04 on 02 Jan"))
}

func formatResetAt(resetsAt, now time.Time) string {
	if resetsAt.IsZero() {
		return "unknown"
	}
	if now.IsZero() {
		return resetsAt.Format(time.RFC3339)
	}

	yearA, monthA, dayA := now.Date()
	yearB, monthB, dayB := resetsAt.Date()
	if yearA == yearB && monthA == monthB && dayA == dayB {
		return resetsAt.Format("15:04")
	}

	return resetsAt.Format("15:04 on 02 Jan")
}

func formatResetRelative(resetsAt, now time.Time) string {
	if now.IsZero() {
		return "resets " + formatResetAt(resetsAt, now)
	}

	if resetsAt.Before(now) {
		return "reset now"
	}

	remaining := resetsAt.Sub(now)
	if remaining < 24*time.Hour {
		hours := int(math.Ceil(remaining.Hours()))
		if hours < 1 {
			hours = 1
		}
		suffix := "hours"
		if hours == 1 {
			suffix = "hour"
		}
		return fmt.Sprintf("resets in %d %s (%s)", hours, suffix, resetsAt.Format("15:04"))
	}

	days := int(math.Ceil(remaining.Hours() / 24))
	if days < 1 {
		days = 1
	}
	suffix := "days"
	if days == 1 {
		suffix = "day"
	}

	return fmt.Sprintf("resets in %d %s (%s)", days, suffix, resetsAt.Format("15:04 on 02 Jan"))
}

func interpolateColor(value, min, max float64) lipgloss.Color {
	if max == min {
		return lipgloss.Color("255")
	}

	normalized := (value - min) / (max - min)
	if normalized < 0 {
		normalized = 0
	}
	if normalized > 1 {
		normalized = 1
	}

	// ANSI 256 greyscale ramp: 240 (faded) at min up to 255 (bright) at max.
	interpolated := 240.0 + (255.0-240.0)*normalized

	return lipgloss.Color(fmt.Sprintf("%d", int(interpolated)))
}

func resetTimeColor(resetsAt, now time.Time, span time.Duration) lipgloss.Color {
	if now.IsZero() || resetsAt.Before(now) {
		return lipgloss.Color("255")
	}

	// The closer the reset, the brighter the timestamp.
	remaining := resetsAt.Sub(now)
	inverted := span.Seconds() - remaining.Seconds()

	return interpolateColor(inverted, 0, span.Seconds())
}
