package output

import (
	"strings"
	"testing"

	"github.com/fatih/color"
	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
)

func TestColorOutputMatchesStatusType(t *testing.T) {
	ForceColor()
	defer NoColor()

	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 100
	properties := gopter.NewProperties(parameters)

	statusColorCodes := map[string]string{
		"passed":     "\x1b[32m", // Green
		"set-passed": "\x1b[32m",
		"failed":     "\x1b[31m", // Red
		"set-failed": "\x1b[31m",
		"unknown":    "\x1b[2m", // Faint
		"no-op":      "\x1b[2m",
		"changed":    "\x1b[36m", // Cyan
	}

	statusGen := gen.OneConstOf("passed", "set-passed", "failed", "set-failed", "unknown", "no-op", "changed")

	properties.Property("FormatStatus contains correct ANSI code for status type", prop.ForAll(
		func(status string) bool {
			return strings.Contains(FormatStatus(status), statusColorCodes[status])
		},
		statusGen,
	))

	properties.Property("FormatStatus output contains the status text", prop.ForAll(
		func(status string) bool {
			return strings.Contains(FormatStatus(status), status)
		},
		statusGen,
	))

	properties.TestingRun(t)
}

func TestKeywordColor(t *testing.T) {
	tests := []struct {
		keyword string
		want    *color.Color
	}{
		{"amd64", Stable},
		{"~amd64", Testing},
		{"-sparc", Masked},
		{"-*", Masked},
		{"~arm64-macos", Testing},
	}

	for _, tt := range tests {
		t.Run(tt.keyword, func(t *testing.T) {
			if got := KeywordColor(tt.keyword); got != tt.want {
				t.Errorf("KeywordColor(%q) returned the wrong color", tt.keyword)
			}
		})
	}
}

func TestFormatKeywords(t *testing.T) {
	ForceColor()
	defer NoColor()

	got := FormatKeywords([]string{"alpha", "~amd64"})
	if !strings.Contains(got, "\x1b[32malpha") {
		t.Errorf("stable keyword not green: %q", got)
	}
	if !strings.Contains(got, "\x1b[33m~amd64") {
		t.Errorf("testing keyword not yellow: %q", got)
	}

	if FormatKeywords(nil) != "" {
		t.Error("FormatKeywords(nil) should be empty")
	}
}

func TestNoColorFlagDisablesANSICodes(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 100
	properties := gopter.NewProperties(parameters)

	statusGen := gen.OneConstOf("passed", "failed", "unknown", "no-op", "other")

	properties.Property("FormatStatus contains no ANSI codes when NoColor is set", prop.ForAll(
		func(status string) bool {
			NoColor()
			defer ForceColor()

			formatted := FormatStatus(status)
			return !strings.Contains(formatted, "\x1b[")
		},
		statusGen,
	))

	properties.Property("FormatKeywords is the plain joined list when NoColor is set", prop.ForAll(
		func(keywords []string) bool {
			NoColor()
			defer ForceColor()

			return FormatKeywords(keywords) == strings.Join(keywords, " ")
		},
		gen.SliceOf(gen.RegexMatch(`^[~-]?[a-z][a-z0-9]{1,6}$`)),
	))

	properties.Property("Sprintf contains no ANSI codes when NoColor is set", prop.ForAll(
		func(text string) bool {
			NoColor()
			defer ForceColor()

			colors := []*color.Color{Passed, Failed, Unknown, Stable, Testing, Success, Error, Info, Warning}
			for _, c := range colors {
				if strings.Contains(Sprintf(c, "%s", text), "\x1b[") {
					return false
				}
			}
			return true
		},
		gen.AnyString(),
	))

	properties.Property("FormatPackage contains no ANSI codes when NoColor is set", prop.ForAll(
		func(atom string) bool {
			NoColor()
			defer ForceColor()

			return !strings.Contains(FormatPackage(atom), "\x1b[")
		},
		gen.AlphaString(),
	))

	properties.TestingRun(t)
}
