package keywording

import (
	"errors"
	"strings"
)

// ErrArchNotTesting is matched by the soft error Apply returns when a
// requested architecture has no keyword entry at all.
var ErrArchNotTesting = errors.New("architecture not currently testing")

// ArchNotTestingError lists requested arches absent from the keyword list.
type ArchNotTestingError struct {
	Arches []string
}

func (e *ArchNotTestingError) Error() string {
	return ErrArchNotTesting.Error() + ": " + strings.Join(e.Arches, " ")
}

// Is makes errors.Is(err, ErrArchNotTesting) match.
func (e *ArchNotTestingError) Is(target error) bool {
	return target == ErrArchNotTesting
}

// KeywordArch returns the architecture a keyword refers to, without the
// testing (~) prefix. Masked entries (-arch, -*) are returned unchanged so
// they never compare equal to a bare arch.
func KeywordArch(kw string) string {
	return strings.TrimPrefix(kw, "~")
}

// IsTesting reports whether kw is a testing keyword (~arch).
func IsTesting(kw string) bool {
	return strings.HasPrefix(kw, "~")
}

// Apply promotes every testing keyword whose arch is in targets to stable.
//
// The result is a new slice of the same length and order as current; entries
// for arches outside targets are copied verbatim and no entry is ever added
// or removed. changed is true when at least one entry was promoted.
//
// Arches in targets with no arch/~arch entry are reported through a soft
// *ArchNotTestingError; the returned keywords still carry every promotion
// that was possible.
func Apply(current []string, targets []string) ([]string, bool, error) {
	want := make(map[string]bool, len(targets))
	for _, arch := range targets {
		want[arch] = true
	}

	found := make(map[string]bool, len(targets))
	keywords := make([]string, 0, len(current))
	changed := false

	for _, kw := range current {
		arch := KeywordArch(kw)
		if !want[arch] {
			keywords = append(keywords, kw)
			continue
		}
		found[arch] = true
		if IsTesting(kw) {
			changed = true
		}
		keywords = append(keywords, arch)
	}

	var missing []string
	for _, arch := range targets {
		if !found[arch] {
			missing = append(missing, arch)
			found[arch] = true
		}
	}
	if len(missing) > 0 {
		return keywords, changed, &ArchNotTestingError{Arches: missing}
	}

	return keywords, changed, nil
}

// TestingArches returns the arches keyworded ~arch in keywords, in order.
func TestingArches(keywords []string) []string {
	var arches []string
	for _, kw := range keywords {
		if IsTesting(kw) {
			arches = append(arches, KeywordArch(kw))
		}
	}
	return arches
}
