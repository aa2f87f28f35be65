package cli

import (
	"context"
	"slices"
	"strings"

	"github.com/spf13/cobra"

	"github.com/matzehuels/shakify/pkg/cache"
	"github.com/matzehuels/shakify/pkg/config"
)

// completionCommand creates the completion command for generating shell completions.
func (c *CLI) completionCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "completion [bash|zsh|fish|powershell]",
		Short: "Generate shell completion scripts",
		Long: `Generate shell completion scripts for shakify.

Package names complete from results already in the cache, so packages you
analyzed before are one tab away.

  $ source <(shakify completion bash)
  $ shakify completion zsh > "${fpath[1]}/_shakify"
  $ shakify completion fish > ~/.config/fish/completions/shakify.fish
  PS> shakify completion powershell | Out-String | Invoke-Expression`,
		DisableFlagsInUseLine: true,
		ValidArgs:             []string{"bash", "zsh", "fish", "powershell"},
		Args:                  cobra.MatchAll(cobra.ExactArgs(1), cobra.OnlyValidArgs),
		RunE: func(cmd *cobra.Command, args []string) error {
			root, w := cmd.Root(), c.stdout
			switch args[0] {
			case "bash":
				return root.GenBashCompletionV2(w, true)
			case "zsh":
				return root.GenZshCompletion(w)
			case "fish":
				return root.GenFishCompletion(w, true)
			default:
				return root.GenPowerShellCompletionWithDesc(w)
			}
		},
	}
	return cmd
}

// completePackages completes the package-name argument from cached results.
// The store is the one --cache-url names, or the configured default.
func completePackages(cmd *cobra.Command, args []string, toComplete string) ([]string, cobra.ShellCompDirective) {
	if len(args) > 0 {
		return nil, cobra.ShellCompDirectiveNoFileComp
	}
	url, _ := cmd.Flags().GetString("cache-url")
	if url == "" {
		if cfg, err := config.Load(); err == nil {
			url = cfg.CacheURL
		}
	}
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	store, err := cache.Open(ctx, url)
	if err != nil {
		return nil, cobra.ShellCompDirectiveNoFileComp
	}
	defer store.Close()
	return cachedPackages(ctx, store, toComplete), cobra.ShellCompDirectiveNoFileComp
}

// cachedPackages returns the sorted, distinct package names in store that
// start with prefix.
func cachedPackages(ctx context.Context, store cache.Store, prefix string) []string {
	doc, err := store.Load(ctx)
	if err != nil {
		return nil
	}
	var names []string
	for key := range doc {
		name := key
		if i := strings.LastIndex(key, "@"); i > 0 {
			name = key[:i]
		}
		if strings.HasPrefix(name, prefix) {
			names = append(names, name)
		}
	}
	slices.Sort(names)
	return slices.Compact(names)
}

// completeGraphFormat completes the graph --format flag.
func completeGraphFormat(cmd *cobra.Command, args []string, toComplete string) ([]string, cobra.ShellCompDirective) {
	return []string{formatSVG, formatPNG, formatDOT}, cobra.ShellCompDirectiveNoFileComp
}
