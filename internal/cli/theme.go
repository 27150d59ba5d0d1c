package cli

import (
	"github.com/charmbracelet/lipgloss"

	"github.com/wolfman30/medipulse/internal/appointments"
	"github.com/wolfman30/medipulse/internal/notify"
)

// Adaptive color pairs (dark terminal value, light terminal value).
var (
	colorTeal   = lipgloss.AdaptiveColor{Dark: "#38D9A9", Light: "#0C8599"}
	colorGreen  = lipgloss.AdaptiveColor{Dark: "#6BCB77", Light: "#2F855A"}
	colorAmber  = lipgloss.AdaptiveColor{Dark: "#FFD93D", Light: "#B7791F"}
	colorRed    = lipgloss.AdaptiveColor{Dark: "#FF6B6B", Light: "#C53030"}
	colorGray   = lipgloss.AdaptiveColor{Dark: "#868E96", Light: "#718096"}
	colorWhite  = lipgloss.AdaptiveColor{Dark: "#F8F9FA", Light: "#1A202C"}
	colorSubtle = lipgloss.AdaptiveColor{Dark: "#495057", Light: "#CBD5E0"}
)

var headerStyle = lipgloss.NewStyle().
	Bold(true).
	Foreground(colorWhite).
	Background(colorTeal).
	Padding(0, 1)

var mutedStyle = lipgloss.NewStyle().Foreground(colorGray)

var unreadStyle = lipgloss.NewStyle().Bold(true).Foreground(colorWhite)

var idStyle = lipgloss.NewStyle().Foreground(colorSubtle)

func statusStyle(s appointments.Status) lipgloss.Style {
	base := lipgloss.NewStyle().Bold(true).Width(11)
	switch s {
	case appointments.StatusPending:
		return base.Foreground(colorAmber)
	case appointments.StatusUpcoming:
		return base.Foreground(colorTeal)
	case appointments.StatusCompleted:
		return base.Foreground(colorGreen)
	case appointments.StatusCancelled:
		return base.Foreground(colorRed)
	default:
		return base.Foreground(colorGray)
	}
}

func notificationStyle(t notify.Type) lipgloss.Style {
	base := lipgloss.NewStyle().Bold(true)
	switch t {
	case notify.TypeAlert:
		return base.Foreground(colorRed)
	case notify.TypeSuccess:
		return base.Foreground(colorGreen)
	default:
		return base.Foreground(colorTeal)
	}
}
