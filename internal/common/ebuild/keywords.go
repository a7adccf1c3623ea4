package ebuild

import (
	"bytes"
	"errors"
	"regexp"
	"strings"
)

// ErrNoKeywordsLine is returned when an ebuild has no KEYWORDS assignment to rewrite
var ErrNoKeywordsLine = errors.New("ebuild has no KEYWORDS assignment")

// keywordsLineRegex matches KEYWORDS="..." or KEYWORDS='...' at line start.
// Group 2 holds a double-quoted value, group 3 a single-quoted one.
var keywordsLineRegex = regexp.MustCompile(`(?m)^(\s*KEYWORDS=)(?:"([^"\n]*)"|'([^'\n]*)')`)

// valueBounds returns the start and end of the quoted value in a submatch
// index slice
func valueBounds(loc []int) (int, int) {
	if loc[4] >= 0 {
		return loc[4], loc[5]
	}
	return loc[6], loc[7]
}

// ParseKeywords returns the keyword entries of the first KEYWORDS assignment
// in an ebuild, in file order. An ebuild without KEYWORDS has no keywords.
func ParseKeywords(content []byte) ([]string, error) {
	loc := keywordsLineRegex.FindSubmatchIndex(content)
	if loc == nil {
		return []string{}, nil
	}
	start, end := valueBounds(loc)
	return strings.Fields(string(content[start:end])), nil
}

// ReplaceKeywords rewrites the first KEYWORDS assignment with keywords,
// keeping the quote style and every other byte of content intact.
func ReplaceKeywords(content []byte, keywords []string) ([]byte, error) {
	loc := keywordsLineRegex.FindSubmatchIndex(content)
	if loc == nil {
		return nil, ErrNoKeywordsLine
	}

	start, end := valueBounds(loc)
	var buf bytes.Buffer
	buf.Grow(len(content))
	buf.Write(content[:start])
	buf.WriteString(strings.Join(keywords, " "))
	buf.Write(content[end:])
	return buf.Bytes(), nil
}
