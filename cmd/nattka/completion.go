package main

import (
	"context"
	"os"
	"strings"

	"github.com/spf13/cobra"
)

var completionCmd = &cobra.Command{
	Use:   "completion [bash|zsh|fish|powershell]",
	Short: "Generate shell completion scripts",
	Long: `Generate shell completion scripts for nattka.

To load completions:

Bash:
  $ source <(nattka completion bash)
  # To load completions for each session, execute once:
  $ nattka completion bash > /etc/bash_completion.d/nattka

Zsh:
  # If shell completion is not already enabled in your environment,
  # you will need to enable it. You can execute the following once:
  $ echo "autoload -U compinit; compinit" >> ~/.zshrc
  # To load completions for each session, execute once:
  $ nattka completion zsh > "${fpath[1]}/_nattka"

Fish:
  $ nattka completion fish | source
  # To load completions for each session, execute once:
  $ nattka completion fish > ~/.config/fish/completions/nattka.fish

PowerShell:
  PS> nattka completion powershell | Out-String | Invoke-Expression
`,
	DisableFlagsInUseLine: true,
	ValidArgs:             []string{"bash", "zsh", "fish", "powershell"},
	Args:                  cobra.MatchAll(cobra.ExactArgs(1), cobra.OnlyValidArgs),
	Run: func(cmd *cobra.Command, args []string) {
		switch args[0] {
		case "bash":
			rootCmd.GenBashCompletion(os.Stdout)
		case "zsh":
			rootCmd.GenZshCompletion(os.Stdout)
		case "fish":
			rootCmd.GenFishCompletion(os.Stdout, true)
		case "powershell":
			rootCmd.GenPowerShellCompletionWithDesc(os.Stdout)
		}
	},
}

func init() {
	rootCmd.AddCommand(completionCmd)
}

// completeAtoms offers the cat/pkg names of the configured repository
func completeAtoms(cmd *cobra.Command, args []string, toComplete string) ([]string, cobra.ShellCompDirective) {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	cfg, err := loadConfig(ctx)
	if err != nil {
		return nil, cobra.ShellCompDirectiveNoFileComp
	}
	repo, err := openRepository(cfg)
	if err != nil {
		return nil, cobra.ShellCompDirectiveNoFileComp
	}
	pkgs, err := repo.ScanPackages()
	if err != nil {
		return nil, cobra.ShellCompDirectiveNoFileComp
	}

	prefix := strings.TrimPrefix(toComplete, "=")
	var names []string
	for _, pkg := range pkgs {
		if strings.HasPrefix(pkg.FullName(), prefix) {
			names = append(names, pkg.FullName())
		}
	}
	return names, cobra.ShellCompDirectiveNoFileComp
}
