package main

import (
	"context"
	"io"
	"os"

	"github.com/obentoo/nattka/internal/common/logger"
	"github.com/obentoo/nattka/internal/processor"
	"github.com/spf13/cobra"
)

// processOptions holds the process-bugs flags
type processOptions struct {
	dryRun    bool
	jobs      int
	force     bool
	cacheFile string
}

var processOpts processOptions

var processBugsCmd = &cobra.Command{
	Use:   "process-bugs [flags] BUG...",
	Short: "Sanity-check bugs and update their sanity-check flag",
	Long: `Apply the keywords requested by each bug, run the repository checks from
.nattka/checks.toml, restore the repository and record the result on the
bug's sanity-check flag.

Examples:
  nattka process-bugs 560322 560324       Check two bugs
  nattka process-bugs -n -j 4 560322      Dry run with four workers
  nattka process-bugs --force 560322      Ignore cached results`,
	Args: cobra.MinimumNArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		opts := processOpts
		if !cmd.Flags().Changed("jobs") {
			opts.jobs = 0
		}
		if err := runProcessBugs(cmd.Context(), cmd.OutOrStdout(), opts, args); err != nil {
			logger.Error("%v", err)
			os.Exit(1)
		}
	},
}

func init() {
	processBugsCmd.Flags().BoolVarP(&processOpts.dryRun, "dry-run", "n", false, "Compute actions without updating bugs")
	processBugsCmd.Flags().IntVarP(&processOpts.jobs, "jobs", "j", 1, "Number of bugs processed concurrently")
	processBugsCmd.Flags().BoolVar(&processOpts.force, "force", false, "Ignore cached results")
	processBugsCmd.Flags().StringVar(&processOpts.cacheFile, "cache-file", "", "Check cache location")

	rootCmd.AddCommand(processBugsCmd)
}

// runProcessBugs processes the bugs; opts.jobs of 0 uses the configured value
func runProcessBugs(ctx context.Context, w io.Writer, opts processOptions, args []string) error {
	ids, err := parseBugIDs(args)
	if err != nil {
		return err
	}

	env, err := setup(ctx)
	if err != nil {
		return err
	}

	checks, err := processor.LoadChecks(env.repo.Path())
	if err != nil {
		return err
	}
	if len(checks) == 0 {
		logger.Warn("no checks configured in %s", processor.ChecksPath(env.repo.Path()))
	}

	jobs := opts.jobs
	if jobs <= 0 {
		jobs = env.cfg.Process.GetJobs()
	}

	cacheFile := opts.cacheFile
	if cacheFile == "" {
		if cacheFile, err = env.cfg.Process.GetCacheFile(); err != nil {
			return err
		}
	}
	// Validate has already rejected a bad TTL
	ttl, _ := env.cfg.Process.GetCacheTTL()
	cache, err := processor.NewCache(cacheFile, processor.WithTTL(ttl))
	if err != nil {
		return err
	}

	p := processor.New(env.tracker, env.tracker, env.repo,
		processor.WithMode(processor.ModeProcess),
		processor.WithDryRun(opts.dryRun),
		processor.WithJobs(jobs),
		processor.WithMalformedPolicy(env.policy),
		processor.WithChecks(checks),
		processor.WithCache(cache, opts.force),
	)

	reports, err := p.Run(ctx, ids)
	if cerr := cache.Cleanup(); cerr != nil {
		logger.Warn("cleaning cache: %v", cerr)
	}
	if reports == nil && err != nil {
		return err
	}
	renderReports(w, reports)
	return err
}
