package ebuild

import (
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"
)

const sampleEbuild = `# Copyright 2026 Gentoo Authors
# Distributed under the terms of the GNU General Public License v2

EAPI=8

DESCRIPTION="Test package"
HOMEPAGE="https://example.org"
SRC_URI=""

LICENSE="BSD"
SLOT="0"
KEYWORDS="~alpha ~amd64 ~hppa"
IUSE="KEYWORDS"
`

func TestParseKeywords(t *testing.T) {
	tests := []struct {
		name     string
		content  string
		expected []string
	}{
		{"double quotes", sampleEbuild, []string{"~alpha", "~amd64", "~hppa"}},
		{"single quotes", "KEYWORDS='amd64 ~x86'\n", []string{"amd64", "~x86"}},
		{"mixed masks", `KEYWORDS="-* ~amd64 -x86"` + "\n", []string{"-*", "~amd64", "-x86"}},
		{"empty value", `KEYWORDS=""` + "\n", []string{}},
		{"no assignment", "EAPI=8\nSLOT=0\n", []string{}},
		{"indented", "\tKEYWORDS=\"~arm64\"\n", []string{"~arm64"}},
		{"mismatched quotes", "KEYWORDS=\"~amd64'\n", []string{}},
		{"apostrophe inside double quotes", "KEYWORDS=\"~amd64 it's\"\n", []string{"~amd64", "it's"}},
		{"first valid assignment wins", "KEYWORDS='~x86\"\nKEYWORDS=\"~arm\"\n", []string{"~arm"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseKeywords([]byte(tt.content))
			if err != nil {
				t.Fatalf("ParseKeywords returned error: %v", err)
			}
			if diff := cmp.Diff(tt.expected, got); diff != "" {
				t.Errorf("ParseKeywords mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestReplaceKeywords_PreservesOtherBytes(t *testing.T) {
	got, err := ReplaceKeywords([]byte(sampleEbuild), []string{"~alpha", "amd64", "hppa"})
	if err != nil {
		t.Fatalf("ReplaceKeywords returned error: %v", err)
	}

	expected := `# Copyright 2026 Gentoo Authors
# Distributed under the terms of the GNU General Public License v2

EAPI=8

DESCRIPTION="Test package"
HOMEPAGE="https://example.org"
SRC_URI=""

LICENSE="BSD"
SLOT="0"
KEYWORDS="~alpha amd64 hppa"
IUSE="KEYWORDS"
`
	if diff := cmp.Diff(expected, string(got)); diff != "" {
		t.Errorf("ReplaceKeywords mismatch (-want +got):\n%s", diff)
	}
}

func TestReplaceKeywords_SingleQuotes(t *testing.T) {
	got, err := ReplaceKeywords([]byte("KEYWORDS='~amd64'\n"), []string{"amd64"})
	if err != nil {
		t.Fatalf("ReplaceKeywords returned error: %v", err)
	}
	if string(got) != "KEYWORDS='amd64'\n" {
		t.Errorf("ReplaceKeywords = %q, want %q", got, "KEYWORDS='amd64'\n")
	}
}

func TestReplaceKeywords_MismatchedQuotes(t *testing.T) {
	_, err := ReplaceKeywords([]byte("KEYWORDS=\"~amd64'\n"), []string{"amd64"})
	if !errors.Is(err, ErrNoKeywordsLine) {
		t.Errorf("expected ErrNoKeywordsLine, got %v", err)
	}
}

func TestReplaceKeywords_NoAssignment(t *testing.T) {
	_, err := ReplaceKeywords([]byte("EAPI=8\n"), []string{"amd64"})
	if !errors.Is(err, ErrNoKeywordsLine) {
		t.Errorf("ReplaceKeywords error = %v, want %v", err, ErrNoKeywordsLine)
	}
}

func TestReplaceKeywords_RoundTrip(t *testing.T) {
	kws, err := ParseKeywords([]byte(sampleEbuild))
	if err != nil {
		t.Fatalf("ParseKeywords returned error: %v", err)
	}
	got, err := ReplaceKeywords([]byte(sampleEbuild), kws)
	if err != nil {
		t.Fatalf("ReplaceKeywords returned error: %v", err)
	}
	if string(got) != sampleEbuild {
		t.Errorf("rewriting unchanged keywords altered the ebuild:\n%s", got)
	}
}
