package processor

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
)

var (
	// ErrMissingCommand is returned when a check has no command
	ErrMissingCommand = errors.New("missing required field: command")
	// ErrInvalidTimeout is returned when a check timeout is not a positive duration
	ErrInvalidTimeout = errors.New("invalid timeout")
	// ErrCheckFailed is matched by every failing check
	ErrCheckFailed = errors.New("sanity check failed")
)

// DefaultCheckTimeout bounds a check that sets no timeout
const DefaultCheckTimeout = 10 * time.Minute

// checkOutputLines is how many trailing output lines a failure reason keeps
const checkOutputLines = 10

// Check is a repository-defined command run against touched packages
type Check struct {
	Name       string
	Command    []string
	PerPackage bool
	Timeout    time.Duration
}

// checkConfig mirrors one [name] table of checks.toml
type checkConfig struct {
	Command    []string `toml:"command"`
	PerPackage bool     `toml:"per_package"`
	Timeout    string   `toml:"timeout,omitempty"`
}

// CheckFailedError carries the tail of a failing check's output
type CheckFailedError struct {
	Name   string
	Output string
}

func (e *CheckFailedError) Error() string {
	if e.Output == "" {
		return e.Name + ": failed"
	}
	return e.Name + ": " + e.Output
}

// Is makes errors.Is(err, ErrCheckFailed) match.
func (e *CheckFailedError) Is(target error) bool {
	return target == ErrCheckFailed
}

// ChecksPath returns the location of the check definitions in a repository
func ChecksPath(repoPath string) string {
	return filepath.Join(repoPath, ".nattka", "checks.toml")
}

// LoadChecks reads .nattka/checks.toml from the repository. A repository
// without the file has no checks.
func LoadChecks(repoPath string) ([]Check, error) {
	data, err := os.ReadFile(ChecksPath(repoPath))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to read checks.toml: %w", err)
	}
	return ParseChecks(data)
}

// ParseChecks decodes and validates check definitions, sorted by name.
func ParseChecks(data []byte) ([]Check, error) {
	var file map[string]checkConfig
	if err := toml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("failed to parse checks.toml: %w", err)
	}

	names := make([]string, 0, len(file))
	for name := range file {
		names = append(names, name)
	}
	sort.Strings(names)

	var errs []error
	checks := make([]Check, 0, len(names))
	for _, name := range names {
		cfg := file[name]
		check := Check{
			Name:       name,
			Command:    cfg.Command,
			PerPackage: cfg.PerPackage,
			Timeout:    DefaultCheckTimeout,
		}

		if len(cfg.Command) == 0 || cfg.Command[0] == "" {
			errs = append(errs, fmt.Errorf("check %s: %w", name, ErrMissingCommand))
			continue
		}
		if cfg.Timeout != "" {
			d, err := time.ParseDuration(cfg.Timeout)
			if err != nil || d <= 0 {
				errs = append(errs, fmt.Errorf("check %s: %w: %q", name, ErrInvalidTimeout, cfg.Timeout))
				continue
			}
			check.Timeout = d
		}

		checks = append(checks, check)
	}

	if err := errors.Join(errs...); err != nil {
		return nil, err
	}
	return checks, nil
}

// Run executes the check in dir. With PerPackage set, every package key
// (category/package) is appended to the command line. A non-zero exit
// returns *CheckFailedError; other errors mean the check could not run.
func (c Check) Run(ctx context.Context, dir string, packages []string) error {
	timeout := c.Timeout
	if timeout <= 0 {
		timeout = DefaultCheckTimeout
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	args := append([]string(nil), c.Command[1:]...)
	if c.PerPackage {
		args = append(args, packages...)
	}

	cmd := exec.CommandContext(ctx, c.Command[0], args...)
	cmd.Dir = dir

	var out bytes.Buffer
	cmd.Stdout = &out
	cmd.Stderr = &out

	err := cmd.Run()
	if err == nil {
		return nil
	}

	if errors.Is(ctx.Err(), context.DeadlineExceeded) {
		return &CheckFailedError{Name: c.Name, Output: "timed out after " + timeout.String()}
	}

	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		return &CheckFailedError{Name: c.Name, Output: tailLines(out.String(), checkOutputLines)}
	}

	return fmt.Errorf("check %s: %w", c.Name, err)
}

// tailLines returns the last n non-empty lines of s joined with "; "
func tailLines(s string, n int) string {
	var lines []string
	for _, line := range strings.Split(s, "\n") {
		if line = strings.TrimSpace(line); line != "" {
			lines = append(lines, line)
		}
	}
	if len(lines) > n {
		lines = lines[len(lines)-n:]
	}
	return strings.Join(lines, "; ")
}
