package output

import (
	"os"
	"strings"

	"github.com/fatih/color"
)

var (
	// Status colors
	Passed  = color.New(color.FgGreen)
	Failed  = color.New(color.FgRed)
	Unknown = color.New(color.Faint)
	Changed = color.New(color.FgCyan)

	// Keyword colors
	Stable  = color.New(color.FgGreen)
	Testing = color.New(color.FgYellow)
	Masked  = color.New(color.FgRed)

	// Message colors
	Success = color.New(color.FgGreen)
	Warning = color.New(color.FgYellow)
	Error   = color.New(color.FgRed)
	Info    = color.New(color.FgCyan)
	Dim     = color.New(color.Faint)

	// Structural colors
	Header  = color.New(color.FgWhite, color.Bold)
	Package = color.New(color.FgBlue, color.Bold)
)

// NoColor disables color output
func NoColor() {
	color.NoColor = true
}

// ForceColor enables color output even when not a TTY
func ForceColor() {
	color.NoColor = false
}

// IsTerminal returns true if stdout is a terminal
func IsTerminal() bool {
	fi, err := os.Stdout.Stat()
	if err != nil {
		return false
	}
	return (fi.Mode() & os.ModeCharDevice) != 0
}

// StatusColor returns the color for an outcome, sanity flag or action name
func StatusColor(status string) *color.Color {
	switch status {
	case "passed", "set-passed":
		return Passed
	case "failed", "set-failed":
		return Failed
	case "unknown", "no-op":
		return Unknown
	case "changed":
		return Changed
	default:
		return color.New(color.Reset)
	}
}

// FormatStatus formats a status string with appropriate color
func FormatStatus(status string) string {
	return StatusColor(status).Sprint(status)
}

// KeywordColor returns the color for a single KEYWORDS entry
func KeywordColor(keyword string) *color.Color {
	switch {
	case strings.HasPrefix(keyword, "-"):
		return Masked
	case strings.HasPrefix(keyword, "~"):
		return Testing
	default:
		return Stable
	}
}

// FormatKeywords renders a KEYWORDS list with stable entries green and
// testing entries yellow
func FormatKeywords(keywords []string) string {
	parts := make([]string, len(keywords))
	for i, kw := range keywords {
		parts[i] = KeywordColor(kw).Sprint(kw)
	}
	return strings.Join(parts, " ")
}

// FormatPackage formats a package atom with color
func FormatPackage(atom string) string {
	return Package.Sprint(atom)
}

// PrintSuccess prints a success message
func PrintSuccess(format string, args ...interface{}) {
	Success.Printf("✓ "+format+"\n", args...)
}

// PrintError prints an error message
func PrintError(format string, args ...interface{}) {
	Error.Fprintf(os.Stderr, "✗ "+format+"\n", args...)
}

// PrintWarning prints a warning message
func PrintWarning(format string, args ...interface{}) {
	Warning.Printf("⚠ "+format+"\n", args...)
}

// PrintInfo prints an info message
func PrintInfo(format string, args ...interface{}) {
	Info.Printf("→ "+format+"\n", args...)
}

// Sprintf returns a colored string without printing
func Sprintf(c *color.Color, format string, args ...interface{}) string {
	return c.Sprintf(format, args...)
}
