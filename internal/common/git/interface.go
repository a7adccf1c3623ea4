package git

import "context"

// GitExecutor is the subset of git the commit flow needs. GitRunner runs
// the real binary; MockGitRunner simulates it in tests.
type GitExecutor interface {
	// Status lists changed paths relative to WorkDir
	Status(ctx context.Context) ([]StatusEntry, error)

	// Add stages paths
	Add(ctx context.Context, paths ...string) error

	// Commit records the staged changes; user and email set the author
	Commit(ctx context.Context, message, user, email string) error

	WorkDir() string
}
