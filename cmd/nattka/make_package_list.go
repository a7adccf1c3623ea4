package main

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/obentoo/nattka/internal/common/logger"
	"github.com/obentoo/nattka/internal/keywording"
	"github.com/spf13/cobra"
)

var makePackageListCmd = &cobra.Command{
	Use:   "make-package-list ATOM...",
	Short: "Print a package list for the given atoms",
	Long: `Resolve each atom in the repository and print a package list line with
every architecture the ebuild is currently keyworded ~arch on, ready to be
pasted into a stabilization request.

Example:
  nattka make-package-list dev-python/foo =dev-python/bar-1.2`,
	Args:              cobra.MinimumNArgs(1),
	ValidArgsFunction: completeAtoms,
	Run: func(cmd *cobra.Command, args []string) {
		if err := runMakePackageList(cmd.Context(), cmd.OutOrStdout(), args); err != nil {
			logger.Error("%v", err)
			os.Exit(1)
		}
	},
}

func init() {
	rootCmd.AddCommand(makePackageListCmd)
}

func runMakePackageList(ctx context.Context, w io.Writer, atoms []string) error {
	cfg, err := loadConfig(ctx)
	if err != nil {
		return err
	}
	repo, err := openRepository(cfg)
	if err != nil {
		return err
	}

	for _, atom := range atoms {
		pkg, err := repo.Resolve(atom)
		if err != nil {
			return err
		}
		arches := keywording.TestingArches(pkg.Keywords)
		if len(arches) == 0 {
			return fmt.Errorf("%s: no testing keywords", pkg.CPV())
		}
		fmt.Fprintln(w, keywording.FormatRequest("="+pkg.CPV(), arches))
	}
	return nil
}
