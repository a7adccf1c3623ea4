package processor

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/obentoo/nattka/internal/common/git"
	"github.com/obentoo/nattka/internal/keywording"
)

// ErrNotModified is returned when an ebuild to commit has no pending change
var ErrNotModified = errors.New("ebuild has no uncommitted changes")

// CommitMessage returns the commit summary for one package of a bug, e.g.
// "dev-lang/python: Stabilize 3.12.1 amd64 arm64, #123456"
func CommitMessage(category keywording.Category, key, version string, arches []string, bug int) string {
	verb := "Stabilize"
	if category == keywording.CategoryKeywordReq {
		verb = "Keyword"
	}
	return fmt.Sprintf("%s: %s %s %s, #%d", key, verb, version, strings.Join(arches, " "), bug)
}

// CommitResult records one commit made (or refused) by Commit
type CommitResult struct {
	Bug     int
	Path    string
	Message string
	Err     error
}

// Commit stages and commits every changed ebuild of the successful bugs in
// reports, one commit per package, in report order. Packages whose file
// shows no change in git status are reported with ErrNotModified.
func Commit(ctx context.Context, g git.GitExecutor, reports []BugReport, user, email string) ([]CommitResult, error) {
	status, err := g.Status(ctx)
	if err != nil {
		return nil, fmt.Errorf("reading git status: %w", err)
	}
	modified := make(map[string]bool, len(status))
	for _, entry := range status {
		if entry.Status != "??" {
			modified[entry.FilePath] = true
		}
	}

	var results []CommitResult
	var errs []error
	for _, report := range reports {
		if report.Outcome != keywording.OutcomePassed {
			continue
		}
		for _, pkg := range report.Packages {
			if !pkg.Changed() || pkg.Err != nil {
				continue
			}
			// A duplicate request of an already committed package
			if !modified[pkg.RelPath] {
				if !committed(results, pkg.RelPath) {
					results = append(results, CommitResult{Bug: report.ID, Path: pkg.RelPath, Err: ErrNotModified})
				}
				continue
			}

			result := CommitResult{
				Bug:     report.ID,
				Path:    pkg.RelPath,
				Message: CommitMessage(report.Category, pkg.Key, pkg.Version, pkg.Promoted, report.ID),
			}
			if err := g.Add(ctx, pkg.RelPath); err != nil {
				result.Err = err
			} else if err := g.Commit(ctx, result.Message, user, email); err != nil {
				result.Err = err
			} else {
				delete(modified, pkg.RelPath)
			}
			if result.Err != nil {
				errs = append(errs, fmt.Errorf("%s: %w", pkg.RelPath, result.Err))
			}
			results = append(results, result)
		}
	}

	return results, errors.Join(errs...)
}

func committed(results []CommitResult, path string) bool {
	for _, r := range results {
		if r.Path == path && r.Err == nil {
			return true
		}
	}
	return false
}
