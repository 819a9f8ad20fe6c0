package output

import (
	"github.com/fatih/color"
)

// ColorScheme defines the colors used for different elements in the output
type ColorScheme struct {
	Title     *color.Color
	Label     *color.Color
	Value     *color.Color
	Success   *color.Color
	Failure   *color.Color
	Warn      *color.Color
	Highlight *color.Color
	Category  *color.Color
}

// DefaultColorScheme returns the default color scheme
func DefaultColorScheme() *ColorScheme {
	return &ColorScheme{
		Title:     color.New(color.FgCyan, color.Bold),
		Label:     color.New(color.FgYellow),
		Value:     color.New(color.FgWhite),
		Success:   color.New(color.FgGreen, color.Bold),
		Failure:   color.New(color.FgRed, color.Bold),
		Warn:      color.New(color.FgYellow, color.Bold),
		Highlight: color.New(color.FgMagenta, color.Bold),
		Category:  color.New(color.FgBlue),
	}
}

// NoColorScheme returns a color scheme with all colors disabled
func NoColorScheme() *ColorScheme {
	scheme := DefaultColorScheme()

	scheme.Title.DisableColor()
	scheme.Label.DisableColor()
	scheme.Value.DisableColor()
	scheme.Success.DisableColor()
	scheme.Failure.DisableColor()
	scheme.Warn.DisableColor()
	scheme.Highlight.DisableColor()
	scheme.Category.DisableColor()

	return scheme
}

// SuccessIcon returns a checkmark symbol with appropriate color
func SuccessIcon(noColor bool) string {
	if noColor {
		return "✓"
	}
	return color.New(color.FgGreen).Sprint("✓")
}

// ErrorIcon returns an X symbol with appropriate color
func ErrorIcon(noColor bool) string {
	if noColor {
		return "✗"
	}
	return color.New(color.FgRed).Sprint("✗")
}

// WarningIcon returns a warning symbol with appropriate color
func WarningIcon(noColor bool) string {
	if noColor {
		return "⚠"
	}
	return color.New(color.FgYellow).Sprint("⚠")
}
