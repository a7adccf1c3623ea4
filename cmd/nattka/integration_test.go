//go:build integration

package main

import (
	"bytes"
	"context"
	"os/exec"
	"strings"
	"testing"
)

func runGit(t *testing.T, dir string, args ...string) string {
	t.Helper()
	cmd := exec.Command("git", args...)
	cmd.Dir = dir
	out, err := cmd.CombinedOutput()
	if err != nil {
		t.Fatalf("git %s: %v\n%s", strings.Join(args, " "), err, out)
	}
	return strings.TrimSpace(string(out))
}

func TestApplyCommit(t *testing.T) {
	tracker := newFakeBugzilla(t,
		stableBug(1, "test/amd64-testing-1 amd64", ""),
		fakeBug{ID: 2, Component: "Keywording", Atoms: "test/alpha-amd64-testing-2 alpha hppa"},
	)
	fx := setupCLI(t, tracker, "")

	runGit(t, fx.repo, "init")
	runGit(t, fx.repo, "config", "user.name", "Test User")
	runGit(t, fx.repo, "config", "user.email", "test@example.com")
	runGit(t, fx.repo, "add", ".")
	runGit(t, fx.repo, "commit", "-m", "initial")

	applyCommit = true
	var out bytes.Buffer
	if err := runApply(context.Background(), &out, []string{"1", "2"}); err != nil {
		t.Fatalf("runApply() error = %v\n%s", err, out.String())
	}

	log := runGit(t, fx.repo, "log", "--format=%s", "-3")
	want := "test/alpha-amd64-testing: Keyword 2 alpha hppa, #2\n" +
		"test/amd64-testing: Stabilize 1 amd64, #1\n" +
		"initial"
	if log != want {
		t.Errorf("git log =\n%s\nwant\n%s", log, want)
	}
	if status := runGit(t, fx.repo, "status", "--porcelain"); status != "" {
		t.Errorf("working tree not clean:\n%s", status)
	}
	if author := runGit(t, fx.repo, "log", "-1", "--format=%an <%ae>"); author != "Test User <test@example.com>" {
		t.Errorf("author = %q", author)
	}
}
