package git

import (
	"context"
	"slices"
	"strings"
	"sync"
)

// MockCommit is a commit recorded by MockGitRunner
type MockCommit struct {
	Message string
	Author  string
	Paths   []string
}

// MockGitRunner simulates a working tree for tests. Paths listed in
// Modified show up in Status until a commit includes them; Add stages them
// and Commit records the staged set. The *Func hooks, when set, replace the
// simulation for that method.
type MockGitRunner struct {
	StatusFunc func() ([]StatusEntry, error)
	AddFunc    func(paths ...string) error
	CommitFunc func(message, user, email string) error

	// Modified are the unstaged changes of the simulated tree
	Modified []string
	// Commits are the commits made so far, oldest first
	Commits []MockCommit

	mu      sync.Mutex
	staged  []string
	workDir string
}

// NewMockGitRunner creates a MockGitRunner with the given modified paths
func NewMockGitRunner(workDir string, modified ...string) *MockGitRunner {
	return &MockGitRunner{
		workDir:  workDir,
		Modified: slices.Clone(modified),
	}
}

// Status lists every path in Modified as "M"
func (m *MockGitRunner) Status(ctx context.Context) ([]StatusEntry, error) {
	if m.StatusFunc != nil {
		return m.StatusFunc()
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	var entries []StatusEntry
	for _, path := range m.Modified {
		entries = append(entries, StatusEntry{Status: "M", FilePath: path})
	}
	return entries, nil
}

// Add stages paths that are modified; others fail with ErrFileNotFound
func (m *MockGitRunner) Add(ctx context.Context, paths ...string) error {
	if m.AddFunc != nil {
		return m.AddFunc(paths...)
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	for _, path := range paths {
		if !slices.Contains(m.Modified, path) {
			return ErrFileNotFound
		}
	}
	for _, path := range paths {
		if !slices.Contains(m.staged, path) {
			m.staged = append(m.staged, path)
		}
	}
	return nil
}

// Commit records the staged paths and removes them from Modified
func (m *MockGitRunner) Commit(ctx context.Context, message, user, email string) error {
	if m.CommitFunc != nil {
		return m.CommitFunc(message, user, email)
	}
	if strings.TrimSpace(message) == "" {
		return ErrEmptyCommitMessage
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if len(m.staged) == 0 {
		return ErrNothingToCommit
	}

	commit := MockCommit{Message: message, Paths: m.staged}
	if user != "" && email != "" {
		commit.Author = user + " <" + email + ">"
	}
	m.Commits = append(m.Commits, commit)

	m.Modified = slices.DeleteFunc(m.Modified, func(p string) bool {
		return slices.Contains(m.staged, p)
	})
	m.staged = nil
	return nil
}

// WorkDir returns the working directory passed to NewMockGitRunner
func (m *MockGitRunner) WorkDir() string {
	return m.workDir
}

var _ GitExecutor = (*MockGitRunner)(nil)
