package keywording

import (
	"errors"
	"slices"
	"sort"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
)

func TestApply(t *testing.T) {
	tests := []struct {
		name       string
		current    []string
		targets    []string
		expected   []string
		changed    bool
		notTesting []string
	}{
		{
			name:     "single testing arch",
			current:  []string{"~amd64"},
			targets:  []string{"amd64"},
			expected: []string{"amd64"},
			changed:  true,
		},
		{
			name:     "partial promotion keeps order",
			current:  []string{"~alpha", "~amd64", "~hppa"},
			targets:  []string{"amd64", "hppa"},
			expected: []string{"~alpha", "amd64", "hppa"},
			changed:  true,
		},
		{
			name:     "already stable is a no-op",
			current:  []string{"amd64", "~x86"},
			targets:  []string{"amd64"},
			expected: []string{"amd64", "~x86"},
			changed:  false,
		},
		{
			name:       "missing arch is soft",
			current:    []string{"~amd64", "~x86"},
			targets:    []string{"hppa", "amd64"},
			expected:   []string{"amd64", "~x86"},
			changed:    true,
			notTesting: []string{"hppa"},
		},
		{
			name:       "masked entries never match",
			current:    []string{"-*", "~amd64", "-x86"},
			targets:    []string{"x86", "amd64"},
			expected:   []string{"-*", "amd64", "-x86"},
			changed:    true,
			notTesting: []string{"x86"},
		},
		{
			name:       "empty keywords",
			current:    []string{},
			targets:    []string{"amd64"},
			expected:   []string{},
			changed:    false,
			notTesting: []string{"amd64"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, changed, err := Apply(tt.current, tt.targets)
			if diff := cmp.Diff(tt.expected, got); diff != "" {
				t.Errorf("Apply keywords mismatch (-want +got):\n%s", diff)
			}
			if changed != tt.changed {
				t.Errorf("Apply changed = %v, want %v", changed, tt.changed)
			}

			if tt.notTesting == nil {
				if err != nil {
					t.Errorf("Apply returned unexpected error: %v", err)
				}
				return
			}
			var ante *ArchNotTestingError
			if !errors.As(err, &ante) || !errors.Is(err, ErrArchNotTesting) {
				t.Fatalf("expected ArchNotTestingError, got %v", err)
			}
			if diff := cmp.Diff(tt.notTesting, ante.Arches); diff != "" {
				t.Errorf("not-testing arches mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestApply_DoesNotMutateInput(t *testing.T) {
	current := []string{"~alpha", "~amd64"}
	_, _, _ = Apply(current, []string{"amd64"})
	if diff := cmp.Diff([]string{"~alpha", "~amd64"}, current); diff != "" {
		t.Errorf("Apply mutated its input (-want +got):\n%s", diff)
	}
}

// =============================================================================
// Property-Based Tests
// =============================================================================

// genKeyword generates a keyword entry in stable, testing or masked form
func genKeyword() gopter.Gen {
	return gopter.CombineGens(
		gen.OneConstOf("", "~", "~", "-"),
		genArch(),
	).Map(func(values []interface{}) string {
		return values[0].(string) + values[1].(string)
	})
}

// genKeywords generates keyword lists with unique arches
func genKeywords() gopter.Gen {
	return gen.SliceOf(genKeyword()).Map(func(kws []string) []string {
		seen := make(map[string]bool)
		out := []string{}
		for _, kw := range kws {
			arch := KeywordArch(kw)
			if kw[0] == '-' {
				arch = kw[1:]
			}
			if seen[arch] {
				continue
			}
			seen[arch] = true
			out = append(out, kw)
		}
		return out
	})
}

func archesOf(kws []string) []string {
	out := make([]string, 0, len(kws))
	for _, kw := range kws {
		out = append(out, KeywordArch(kw))
	}
	sort.Strings(out)
	return out
}

// TestPropertyApplyIdempotent checks apply(apply(K, T), T) == apply(K, T) with changed=false
func TestPropertyApplyIdempotent(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 200
	properties := gopter.NewProperties(parameters)

	properties.Property("second application is a no-op", prop.ForAll(
		func(kws []string, targets []string) bool {
			once, _, _ := Apply(kws, targets)
			twice, changed, _ := Apply(once, targets)
			return !changed && slices.Equal(once, twice)
		},
		genKeywords(),
		genArchSet(),
	))

	properties.TestingRun(t)
}

// TestPropertyApplyConservation checks the set of arches is unchanged by Apply
func TestPropertyApplyConservation(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 200
	properties := gopter.NewProperties(parameters)

	properties.Property("no arch added or removed", prop.ForAll(
		func(kws []string, targets []string) bool {
			got, _, _ := Apply(kws, targets)
			return len(got) == len(kws) && slices.Equal(archesOf(got), archesOf(kws))
		},
		genKeywords(),
		genArchSet(),
	))

	properties.TestingRun(t)
}

// TestPropertyApplyPromotionOnly checks targeted ~arch become arch and the rest are untouched
func TestPropertyApplyPromotionOnly(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 200
	properties := gopter.NewProperties(parameters)

	properties.Property("targeted testing keywords promoted, others byte-identical", prop.ForAll(
		func(kws []string, targets []string) bool {
			got, changed, _ := Apply(kws, targets)
			promoted := false
			for i, kw := range kws {
				targeted := slices.Contains(targets, KeywordArch(kw))
				switch {
				case targeted && IsTesting(kw):
					if got[i] != KeywordArch(kw) {
						return false
					}
					promoted = true
				default:
					if got[i] != kw {
						return false
					}
				}
			}
			return changed == promoted
		},
		genKeywords(),
		genArchSet(),
	))

	properties.TestingRun(t)
}

func TestTestingArches(t *testing.T) {
	got := TestingArches([]string{"~alpha", "amd64", "-sparc", "~hppa", "-*"})
	if diff := cmp.Diff([]string{"alpha", "hppa"}, got); diff != "" {
		t.Errorf("TestingArches() mismatch (-want +got):\n%s", diff)
	}
	if got := TestingArches([]string{"amd64"}); got != nil {
		t.Errorf("TestingArches() = %v, want nil", got)
	}
}
