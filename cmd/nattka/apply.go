package main

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/obentoo/nattka/internal/common/git"
	"github.com/obentoo/nattka/internal/common/logger"
	"github.com/obentoo/nattka/internal/common/output"
	"github.com/obentoo/nattka/internal/processor"
	"github.com/spf13/cobra"
)

var (
	// applyDryRun reports changes without writing ebuilds
	applyDryRun bool
	// applyCommit commits every changed ebuild
	applyCommit bool
)

var applyCmd = &cobra.Command{
	Use:   "apply [flags] BUG...",
	Short: "Apply the keywords requested by bugs",
	Long: `Fetch the package lists of the given bugs and stabilize or keyword the
listed ebuilds in the repository. Changes are kept in the working tree.

Examples:
  nattka apply 560322                Apply one bug
  nattka apply -n 560322 560324      Show what would change
  nattka apply --commit 560322       Apply and commit each package`,
	Args: cobra.MinimumNArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		if err := runApply(cmd.Context(), cmd.OutOrStdout(), args); err != nil {
			logger.Error("%v", err)
			os.Exit(1)
		}
	},
}

func init() {
	applyCmd.Flags().BoolVarP(&applyDryRun, "dry-run", "n", false, "Show changes without writing files")
	applyCmd.Flags().BoolVar(&applyCommit, "commit", false, "Commit every changed ebuild")

	rootCmd.AddCommand(applyCmd)
}

func runApply(ctx context.Context, w io.Writer, args []string) error {
	ids, err := parseBugIDs(args)
	if err != nil {
		return err
	}

	env, err := setup(ctx)
	if err != nil {
		return err
	}

	p := processor.New(env.tracker, nil, env.repo,
		processor.WithMode(processor.ModeApply),
		processor.WithDryRun(applyDryRun),
		processor.WithJobs(env.cfg.Process.GetJobs()),
		processor.WithMalformedPolicy(env.policy),
	)

	reports, err := p.Run(ctx, ids)
	if reports == nil && err != nil {
		return err
	}
	renderChanges(w, reports)

	if applyCommit && !applyDryRun {
		if err := commitReports(ctx, w, env, reports); err != nil {
			return err
		}
	}

	if err != nil {
		return err
	}
	if anyFailed(reports) {
		return errBugsFailed
	}
	return nil
}

// commitReports commits the changes of every passed bug
func commitReports(ctx context.Context, w io.Writer, env *environment, reports []processor.BugReport) error {
	user, email, err := env.cfg.GetGitUser()
	if err != nil {
		return err
	}

	results, err := processor.Commit(ctx, git.NewGitRunner(env.repo.Path()), reports, user, email)
	for _, r := range results {
		switch {
		case r.Err == nil:
			fmt.Fprintln(w, output.Success.Sprintf("committed %s", r.Message))
		default:
			fmt.Fprintln(w, output.Warning.Sprintf("%s: %v", r.Path, r.Err))
		}
	}
	return err
}
