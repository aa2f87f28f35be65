package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/matzehuels/shakify/pkg/cache"
	"github.com/matzehuels/shakify/pkg/config"
	"github.com/matzehuels/shakify/pkg/httputil"
)

// cacheCommand creates the cache management command.
func (c *CLI) cacheCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "cache",
		Short: "Manage cached results and registry responses",
	}

	cmd.AddCommand(c.cacheClearCommand())
	cmd.AddCommand(c.cachePathCommand())

	return cmd
}

// cacheClearCommand creates the "cache clear" subcommand.
func (c *CLI) cacheClearCommand() *cobra.Command {
	var (
		cacheURL string
		results  bool
		registry bool
	)
	cmd := &cobra.Command{
		Use:   "clear",
		Short: "Clear cached analysis results and registry responses",
		Long: `Clear cached analysis results and registry responses.

Without --results or --registry both are cleared.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			if !results && !registry {
				results, registry = true, true
			}

			if results {
				url, err := resultStoreURL(cmd, cacheURL)
				if err != nil {
					return err
				}
				store, err := cache.Open(ctx, url)
				if err != nil {
					return err
				}
				defer store.Close()
				cleared, err := store.Clear(ctx)
				if err != nil {
					return fmt.Errorf("clear results: %w", err)
				}
				if cleared {
					printSuccess("Cleared cached results")
				} else {
					printInfo("No cached results")
				}
				printDetail("%s: %s", cache.Backend(store), store.Location())
			}

			if registry {
				dir, err := registryCacheDir()
				if err != nil {
					return fmt.Errorf("get cache dir: %w", err)
				}
				responses, err := httputil.NewCache(dir, 0)
				if err != nil {
					return err
				}
				n, err := responses.Clear()
				if err != nil {
					return fmt.Errorf("clear registry cache: %w", err)
				}
				if n == 0 {
					printInfo("Registry cache is empty")
				} else {
					printSuccess("Cleared %d cached registry responses", n)
				}
				printDetail("Directory: %s", dir)
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&cacheURL, "cache-url", "", "result store: file path, redis://, mongodb:// or none")
	cmd.Flags().BoolVar(&results, "results", false, "clear only analysis results")
	cmd.Flags().BoolVar(&registry, "registry", false, "clear only registry responses")
	return cmd
}

// cachePathCommand creates the "cache path" subcommand.
func (c *CLI) cachePathCommand() *cobra.Command {
	var cacheURL string
	cmd := &cobra.Command{
		Use:   "path",
		Short: "Print where results and registry responses are cached",
		RunE: func(cmd *cobra.Command, args []string) error {
			url, err := resultStoreURL(cmd, cacheURL)
			if err != nil {
				return err
			}
			store, err := cache.Open(cmd.Context(), url)
			if err != nil {
				return err
			}
			defer store.Close()

			dir, err := registryCacheDir()
			if err != nil {
				return fmt.Errorf("get cache dir: %w", err)
			}
			fmt.Fprintf(c.stdout, "results:  %s\n", store.Location())
			fmt.Fprintf(c.stdout, "registry: %s\n", dir)
			return nil
		},
	}
	cmd.Flags().StringVar(&cacheURL, "cache-url", "", "result store: file path, redis://, mongodb:// or none")
	return cmd
}

// resultStoreURL returns the --cache-url flag when set, else the configured
// store.
func resultStoreURL(cmd *cobra.Command, flag string) (string, error) {
	if cmd.Flags().Changed("cache-url") {
		return flag, nil
	}
	cfg, err := config.Load()
	if err != nil {
		return "", err
	}
	return cfg.CacheURL, nil
}
