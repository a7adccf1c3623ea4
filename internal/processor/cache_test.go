package processor

import (
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"

	"github.com/obentoo/nattka/internal/keywording"
)

func TestCacheLookup(t *testing.T) {
	now := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	clock := func() time.Time { return now }

	cache, err := NewCache(filepath.Join(t.TempDir(), "nattka", "cache.json"), WithNowFunc(clock))
	if err != nil {
		t.Fatalf("NewCache() error = %v", err)
	}

	digest := Digest("dev-lang/python-3.12 amd64")
	reasons := []string{"pkgcheck: MissingManifest"}
	if err := cache.Put(1, digest, keywording.OutcomeFailed, reasons); err != nil {
		t.Fatalf("Put() error = %v", err)
	}

	outcome, got, ok := cache.Lookup(1, digest)
	if !ok || outcome != keywording.OutcomeFailed {
		t.Fatalf("Lookup() = %v, %v", outcome, ok)
	}
	if diff := cmp.Diff(reasons, got); diff != "" {
		t.Errorf("reasons mismatch (-want +got):\n%s", diff)
	}

	if _, _, ok := cache.Lookup(1, Digest("changed")); ok {
		t.Error("Lookup() hit with a different digest")
	}
	if _, _, ok := cache.Lookup(2, digest); ok {
		t.Error("Lookup() hit for an unknown bug")
	}

	now = now.Add(DefaultCacheTTL)
	if _, _, ok := cache.Lookup(1, digest); ok {
		t.Error("Lookup() hit after TTL")
	}
}

func TestCacheSkipsUnknown(t *testing.T) {
	cache, err := NewCache(filepath.Join(t.TempDir(), "cache.json"))
	if err != nil {
		t.Fatal(err)
	}
	if err := cache.Put(1, "d", keywording.OutcomeUnknown, nil); err != nil {
		t.Fatal(err)
	}
	if cache.Len() != 0 {
		t.Errorf("Len() = %d, want 0", cache.Len())
	}
}

func TestCachePersistence(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cache.json")

	first, err := NewCache(path, WithTTL(2*time.Hour))
	if err != nil {
		t.Fatal(err)
	}
	if err := first.Put(42, "abc", keywording.OutcomePassed, nil); err != nil {
		t.Fatal(err)
	}

	second, err := NewCache(path, WithTTL(2*time.Hour))
	if err != nil {
		t.Fatal(err)
	}
	outcome, _, ok := second.Lookup(42, "abc")
	if !ok || outcome != keywording.OutcomePassed {
		t.Errorf("reloaded Lookup() = %v, %v", outcome, ok)
	}
	entry, ok := second.Entry(42)
	if !ok || entry.Outcome != "passed" || entry.Digest != "abc" {
		t.Errorf("Entry() = %+v, %v", entry, ok)
	}
	if _, err := os.Stat(path + ".tmp"); !os.IsNotExist(err) {
		t.Error("temp file left behind")
	}
}

func TestCacheCorruptedFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cache.json")
	if err := os.WriteFile(path, []byte("{not json"), 0644); err != nil {
		t.Fatal(err)
	}

	cache, err := NewCache(path)
	if err != nil {
		t.Fatalf("NewCache() error = %v", err)
	}
	if cache.Len() != 0 {
		t.Errorf("Len() = %d, want 0", cache.Len())
	}
	if err := cache.Put(1, "d", keywording.OutcomePassed, nil); err != nil {
		t.Fatalf("Put() over corrupted file: %v", err)
	}
}

func TestCacheCleanup(t *testing.T) {
	now := time.Now()
	cache, err := NewCache(filepath.Join(t.TempDir(), "cache.json"), WithNowFunc(func() time.Time { return now }))
	if err != nil {
		t.Fatal(err)
	}
	_ = cache.Put(1, "a", keywording.OutcomePassed, nil)
	now = now.Add(30 * time.Minute)
	_ = cache.Put(2, "b", keywording.OutcomePassed, nil)
	now = now.Add(45 * time.Minute)

	if err := cache.Cleanup(); err != nil {
		t.Fatal(err)
	}
	if _, ok := cache.Entry(1); ok {
		t.Error("expired entry kept")
	}
	if _, ok := cache.Entry(2); !ok {
		t.Error("live entry removed")
	}
}

func TestCacheConcurrentPut(t *testing.T) {
	cache, err := NewCache(filepath.Join(t.TempDir(), "cache.json"))
	if err != nil {
		t.Fatal(err)
	}

	var wg sync.WaitGroup
	for i := 0; i < 32; i++ {
		wg.Add(1)
		go func(id int) {
			defer wg.Done()
			if err := cache.Put(id, Digest("x"), keywording.OutcomePassed, nil); err != nil {
				t.Errorf("Put(%d) error = %v", id, err)
			}
			cache.Lookup(id, Digest("x"))
		}(i)
	}
	wg.Wait()

	if cache.Len() != 32 {
		t.Errorf("Len() = %d, want 32", cache.Len())
	}
}

func TestDigestProperties(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 100
	properties := gopter.NewProperties(parameters)

	properties.Property("Digest is deterministic and 64 hex chars", prop.ForAll(
		func(raw string) bool {
			d := Digest(raw)
			return d == Digest(raw) && len(d) == 64
		},
		gen.AnyString(),
	))

	properties.Property("Digest distinguishes different lists", prop.ForAll(
		func(a, b string) bool {
			return a == b || Digest(a) != Digest(b)
		},
		gen.AlphaString(),
		gen.AlphaString(),
	))

	properties.TestingRun(t)
}
