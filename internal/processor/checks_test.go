package processor

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
)

func TestParseChecks(t *testing.T) {
	data := []byte(`
[pkgcheck]
command = ["pkgcheck", "scan", "--exit", "error"]
per_package = true
timeout = "5m"

[manifest]
command = ["pkgdev", "manifest", "--check"]
`)

	got, err := ParseChecks(data)
	if err != nil {
		t.Fatalf("ParseChecks() error = %v", err)
	}

	want := []Check{
		{Name: "manifest", Command: []string{"pkgdev", "manifest", "--check"}, Timeout: DefaultCheckTimeout},
		{Name: "pkgcheck", Command: []string{"pkgcheck", "scan", "--exit", "error"}, PerPackage: true, Timeout: 5 * time.Minute},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("ParseChecks() mismatch (-want +got):\n%s", diff)
	}
}

func TestParseChecksErrors(t *testing.T) {
	tests := []struct {
		name    string
		data    string
		wantErr error
	}{
		{
			name:    "missing command",
			data:    "[lint]\nper_package = true\n",
			wantErr: ErrMissingCommand,
		},
		{
			name:    "empty program",
			data:    "[lint]\ncommand = [\"\"]\n",
			wantErr: ErrMissingCommand,
		},
		{
			name:    "bad timeout",
			data:    "[lint]\ncommand = [\"true\"]\ntimeout = \"soon\"\n",
			wantErr: ErrInvalidTimeout,
		},
		{
			name:    "negative timeout",
			data:    "[lint]\ncommand = [\"true\"]\ntimeout = \"-1s\"\n",
			wantErr: ErrInvalidTimeout,
		},
		{
			name: "invalid toml",
			data: "[lint\n",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseChecks([]byte(tt.data))
			if err == nil {
				t.Fatal("expected error")
			}
			if tt.wantErr != nil && !errors.Is(err, tt.wantErr) {
				t.Errorf("error = %v, want %v", err, tt.wantErr)
			}
		})
	}
}

func TestLoadChecks(t *testing.T) {
	dir := t.TempDir()

	checks, err := LoadChecks(dir)
	if err != nil || checks != nil {
		t.Fatalf("LoadChecks() without file = %v, %v", checks, err)
	}

	if err := os.MkdirAll(filepath.Dir(ChecksPath(dir)), 0755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(ChecksPath(dir), []byte("[ok]\ncommand = [\"true\"]\n"), 0644); err != nil {
		t.Fatal(err)
	}

	checks, err = LoadChecks(dir)
	if err != nil {
		t.Fatalf("LoadChecks() error = %v", err)
	}
	if len(checks) != 1 || checks[0].Name != "ok" {
		t.Errorf("LoadChecks() = %+v", checks)
	}
}

func TestCheckRun(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()

	t.Run("success", func(t *testing.T) {
		c := Check{Name: "ok", Command: []string{"true"}}
		if err := c.Run(ctx, dir, nil); err != nil {
			t.Errorf("Run() error = %v", err)
		}
	})

	t.Run("failure keeps output tail", func(t *testing.T) {
		c := Check{Name: "lint", Command: []string{"sh", "-c", "echo first; echo; echo last >&2; exit 3"}}
		err := c.Run(ctx, dir, nil)

		var failed *CheckFailedError
		if !errors.As(err, &failed) {
			t.Fatalf("Run() error = %v, want *CheckFailedError", err)
		}
		if !errors.Is(err, ErrCheckFailed) {
			t.Error("error does not match ErrCheckFailed")
		}
		if failed.Output != "first; last" {
			t.Errorf("Output = %q", failed.Output)
		}
		if err.Error() != "lint: first; last" {
			t.Errorf("Error() = %q", err.Error())
		}
	})

	t.Run("per package arguments", func(t *testing.T) {
		c := Check{Name: "args", Command: []string{"sh", "-c", `echo "$*"; exit 1`, "sh"}, PerPackage: true}
		err := c.Run(ctx, dir, []string{"dev-lang/python", "dev-libs/foo"})
		if err == nil || !strings.HasSuffix(err.Error(), "dev-lang/python dev-libs/foo") {
			t.Errorf("Run() error = %v", err)
		}
	})

	t.Run("runs in repository", func(t *testing.T) {
		if err := os.WriteFile(filepath.Join(dir, "marker"), nil, 0644); err != nil {
			t.Fatal(err)
		}
		c := Check{Name: "cwd", Command: []string{"test", "-f", "marker"}}
		if err := c.Run(ctx, dir, nil); err != nil {
			t.Errorf("Run() error = %v", err)
		}
	})

	t.Run("timeout", func(t *testing.T) {
		c := Check{Name: "slow", Command: []string{"sleep", "5"}, Timeout: 50 * time.Millisecond}
		err := c.Run(ctx, dir, nil)
		if !errors.Is(err, ErrCheckFailed) || !strings.Contains(err.Error(), "timed out") {
			t.Errorf("Run() error = %v", err)
		}
	})

	t.Run("missing program", func(t *testing.T) {
		c := Check{Name: "ghost", Command: []string{"nattka-no-such-program"}}
		err := c.Run(ctx, dir, nil)
		if err == nil || errors.Is(err, ErrCheckFailed) {
			t.Errorf("Run() error = %v, want a start failure", err)
		}
	})
}

func TestTailLines(t *testing.T) {
	got := tailLines("a\nb\n\nc\nd\n", 2)
	if got != "c; d" {
		t.Errorf("tailLines() = %q", got)
	}
}
