// Package theme centralizes the color palette used by the terminal UI.
package theme

import "github.com/charmbracelet/lipgloss"

// Theme is a Catppuccin-flavored palette. Fields are lipgloss colors so
// they plug directly into styles.
type Theme struct {
	Base     lipgloss.Color
	Surface0 lipgloss.Color
	Surface1 lipgloss.Color
	Surface2 lipgloss.Color
	Overlay  lipgloss.Color
	Subtext  lipgloss.Color
	Text     lipgloss.Color

	Primary  lipgloss.Color
	Lavender lipgloss.Color
	Mauve    lipgloss.Color
	Red      lipgloss.Color
	Green    lipgloss.Color
	Yellow   lipgloss.Color
	Blue     lipgloss.Color
	Teal     lipgloss.Color
	Peach    lipgloss.Color

	// Viewer accents.
	PivotEdge     lipgloss.Color
	MarkedSubtree lipgloss.Color
	DimBranch     lipgloss.Color
}

var current = mocha()

// Current returns the active theme.
func Current() Theme { return current }

func mocha() Theme {
	return Theme{
		Base:     lipgloss.Color("#1e1e2e"),
		Surface0: lipgloss.Color("#313244"),
		Surface1: lipgloss.Color("#45475a"),
		Surface2: lipgloss.Color("#585b70"),
		Overlay:  lipgloss.Color("#6c7086"),
		Subtext:  lipgloss.Color("#a6adc8"),
		Text:     lipgloss.Color("#cdd6f4"),

		Primary:  lipgloss.Color("#89b4fa"),
		Lavender: lipgloss.Color("#b4befe"),
		Mauve:    lipgloss.Color("#cba6f7"),
		Red:      lipgloss.Color("#f38ba8"),
		Green:    lipgloss.Color("#a6e3a1"),
		Yellow:   lipgloss.Color("#f9e2af"),
		Blue:     lipgloss.Color("#89b4fa"),
		Teal:     lipgloss.Color("#94e2d5"),
		Peach:    lipgloss.Color("#fab387"),

		PivotEdge:     lipgloss.Color("#2196f3"),
		MarkedSubtree: lipgloss.Color("#e53935"),
		DimBranch:     lipgloss.Color("#585b70"),
	}
}
