package ebuild

import (
	"regexp"
	"slices"
	"strconv"
	"strings"
)

// Suffix ordering within a release cycle: alpha < beta < pre < rc < release < p
var suffixPriority = map[string]int{
	"alpha": -4,
	"beta":  -3,
	"pre":   -2,
	"rc":    -1,
	"":      0,
	"p":     1,
}

var (
	versionSuffixRegex = regexp.MustCompile(`_([a-z]+)(\d*)`)
	revisionRegex      = regexp.MustCompile(`-r(\d+)$`)
)

// versionParts is a version string broken into comparable components
type versionParts struct {
	nums      []int
	suffix    string
	suffixNum int
	revision  int
}

func splitVersion(v string) versionParts {
	var p versionParts

	if m := revisionRegex.FindStringSubmatch(v); m != nil {
		p.revision, _ = strconv.Atoi(m[1])
		v = revisionRegex.ReplaceAllString(v, "")
	}

	if m := versionSuffixRegex.FindStringSubmatch(v); m != nil {
		p.suffix = m[1]
		if m[2] != "" {
			p.suffixNum, _ = strconv.Atoi(m[2])
		}
		v = versionSuffixRegex.ReplaceAllString(v, "")
	}

	for _, component := range strings.Split(v, ".") {
		// 1.0a compares as 1.0
		n, _ := strconv.Atoi(strings.TrimRight(component, "abcdefghijklmnopqrstuvwxyz"))
		p.nums = append(p.nums, n)
	}

	return p
}

func compareInts(a, b int) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	}
	return 0
}

// CompareVersions compares two Gentoo-style version strings.
// Returns -1 if v1 < v2, 0 if they are equal and 1 if v1 > v2.
func CompareVersions(v1, v2 string) int {
	p1, p2 := splitVersion(v1), splitVersion(v2)

	for i := 0; i < max(len(p1.nums), len(p2.nums)); i++ {
		var a, b int
		if i < len(p1.nums) {
			a = p1.nums[i]
		}
		if i < len(p2.nums) {
			b = p2.nums[i]
		}
		if c := compareInts(a, b); c != 0 {
			return c
		}
	}

	if c := compareInts(suffixPriority[p1.suffix], suffixPriority[p2.suffix]); c != 0 {
		return c
	}
	if c := compareInts(p1.suffixNum, p2.suffixNum); c != 0 {
		return c
	}
	return compareInts(p1.revision, p2.revision)
}

// SortVersions sorts versions in ascending order in place
func SortVersions(versions []string) {
	slices.SortStableFunc(versions, CompareVersions)
}
