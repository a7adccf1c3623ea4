package git

import (
	"bytes"
	"context"
	"errors"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
)

var (
	ErrFileNotFound       = errors.New("file not found")
	ErrPathOutsideRepo    = errors.New("path is outside repository directory")
	ErrInvalidPath        = errors.New("invalid path")
	ErrGitCommand         = errors.New("git command failed")
	ErrNothingToCommit    = errors.New("nothing staged to commit")
	ErrEmptyCommitMessage = errors.New("commit message is empty")
)

// GitRunner executes git commands in a specific working directory
type GitRunner struct {
	workDir string
}

// NewGitRunner creates a new GitRunner for the specified working directory
func NewGitRunner(workDir string) *GitRunner {
	return &GitRunner{
		workDir: workDir,
	}
}

// WorkDir returns the working directory of the GitRunner
func (g *GitRunner) WorkDir() string {
	return g.workDir
}

// runCommand executes a git command and returns stdout, stderr, and any error
func (g *GitRunner) runCommand(ctx context.Context, args ...string) (stdout, stderr string, err error) {
	cmd := exec.CommandContext(ctx, "git", args...)
	cmd.Dir = g.workDir

	var stdoutBuf, stderrBuf bytes.Buffer
	cmd.Stdout = &stdoutBuf
	cmd.Stderr = &stderrBuf

	err = cmd.Run()
	stdout = stdoutBuf.String()
	stderr = stderrBuf.String()

	if err != nil {
		if stderr != "" {
			err = errors.Join(ErrGitCommand, errors.New(strings.TrimSpace(stderr)))
		} else {
			err = errors.Join(ErrGitCommand, err)
		}
	}

	return stdout, stderr, err
}

// StatusEntry represents a single entry from git status --porcelain
type StatusEntry struct {
	Status   string // A, M, D, R, ??
	FilePath string
}

// Staged reports whether the entry has changes in the index
func (e StatusEntry) Staged() bool {
	return e.Status != "??" && e.Status != ""
}

// Status returns the current git status as a list of StatusEntry
func (g *GitRunner) Status(ctx context.Context) ([]StatusEntry, error) {
	stdout, _, err := g.runCommand(ctx, "status", "--porcelain")
	if err != nil {
		return nil, err
	}

	return ParseStatusOutput(stdout), nil
}

// ParseStatusOutput parses git status --porcelain output into StatusEntry slice
func ParseStatusOutput(output string) []StatusEntry {
	var entries []StatusEntry

	lines := strings.Split(output, "\n")
	for _, line := range lines {
		if len(line) < 3 {
			continue
		}

		// XY filename; X is the index status, Y the worktree status
		status := strings.TrimSpace(line[:2])
		filePath := line[3:]

		// R  old -> new
		if strings.HasPrefix(status, "R") {
			parts := strings.Split(filePath, " -> ")
			if len(parts) == 2 {
				filePath = parts[1]
			}
		}

		entries = append(entries, StatusEntry{
			Status:   status,
			FilePath: filePath,
		})
	}

	return entries
}

// Add stages files for commit with path validation
func (g *GitRunner) Add(ctx context.Context, paths ...string) error {
	if len(paths) == 0 {
		_, _, err := g.runCommand(ctx, "add", ".")
		return err
	}

	for _, path := range paths {
		if err := g.validatePath(path); err != nil {
			return err
		}
	}

	args := append([]string{"add", "--"}, paths...)
	_, _, err := g.runCommand(ctx, args...)
	return err
}

// validatePath checks that a path exists inside the working directory
func (g *GitRunner) validatePath(path string) error {
	var absPath string
	if filepath.IsAbs(path) {
		absPath = path
	} else {
		absPath = filepath.Join(g.workDir, path)
	}

	absPath = filepath.Clean(absPath)
	workDirAbs := filepath.Clean(g.workDir)

	relPath, err := filepath.Rel(workDirAbs, absPath)
	if err != nil {
		return errors.Join(ErrInvalidPath, err)
	}

	if relPath == ".." || strings.HasPrefix(relPath, ".."+string(filepath.Separator)) {
		return ErrPathOutsideRepo
	}

	if _, err := os.Stat(absPath); err != nil {
		return ErrFileNotFound
	}

	return nil
}

// Commit creates a git commit with the specified message and author
func (g *GitRunner) Commit(ctx context.Context, message, user, email string) error {
	if strings.TrimSpace(message) == "" {
		return ErrEmptyCommitMessage
	}

	entries, err := g.Status(ctx)
	if err != nil {
		return err
	}
	staged := false
	for _, e := range entries {
		if e.Staged() {
			staged = true
			break
		}
	}
	if !staged {
		return ErrNothingToCommit
	}

	args := []string{"commit", "-m", message}

	if user != "" && email != "" {
		args = append(args, "--author", user+" <"+email+">")
	}

	_, _, err = g.runCommand(ctx, args...)
	return err
}
