package cli

import (
	"context"
	"errors"
	"os"
	"time"

	"github.com/mark3labs/mcp-go/server"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/spf13/cobra"

	"github.com/matzehuels/shakify/internal/mcpserver"
	apiserver "github.com/matzehuels/shakify/internal/server"
	"github.com/matzehuels/shakify/pkg/buildinfo"
)

// serveCommand creates the serve command for the HTTP API.
func (c *CLI) serveCommand() *cobra.Command {
	var (
		f         analyzeFlags
		addr      string
		frontSize int
		frontTTL  time.Duration
	)
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve package analysis over HTTP",
		Long: `Serve package analysis over HTTP.

Routes:
  GET    /healthz
  GET    /metrics
  GET    /v1/packages/<name>[?refresh=true]
  DELETE /v1/cache

Concurrent requests for the same package share one analysis, and each
package's latest result is kept in memory for --front-cache-ttl.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			s, err := loadSettings(cmd, &f)
			if err != nil {
				return err
			}
			e, err := c.buildEngine(ctx, s)
			if err != nil {
				return err
			}
			defer e.Close()

			reg := prometheus.NewRegistry()
			reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
			srv := apiserver.New(apiserver.FromAnalyzer(e.Analyzer), apiserver.Options{
				Logger:         c.Logger,
				FrontCacheSize: frontSize,
				FrontCacheTTL:  frontTTL,
				Registry:       reg,
			})
			srv.Metrics().Register()

			err = srv.ListenAndServe(ctx, addr)
			if errors.Is(err, context.Canceled) {
				c.Logger.Info("server stopped")
				return nil
			}
			return err
		},
	}
	fs := cmd.Flags()
	fs.StringVar(&addr, "addr", ":8080", "listen address")
	fs.IntVar(&frontSize, "front-cache-size", apiserver.DefaultFrontCacheSize, "packages kept in memory, negative disables")
	fs.DurationVar(&frontTTL, "front-cache-ttl", apiserver.DefaultFrontCacheTTL, "how long an in-memory result is served")
	fs.IntVarP(&f.concurrency, "concurrency", "j", 1, "number of exports bundled at once per analysis")
	fs.BoolVar(&f.minify, "minify", false, "minify bundles before measuring")
	fs.StringArrayVar(&f.nodePaths, "node-path", nil, "extra node_modules directory for bare imports (repeatable)")
	fs.StringArrayVar(&f.external, "external", nil, "import path to leave unbundled (repeatable)")
	fs.StringVar(&f.registry, "registry", "", "npm registry URL")
	fs.StringVar(&f.cacheURL, "cache-url", "", "result store: file path, redis://, mongodb:// or none")
	return cmd
}

// mcpCommand creates the mcp command, an MCP server on stdio.
func (c *CLI) mcpCommand() *cobra.Command {
	var f analyzeFlags
	cmd := &cobra.Command{
		Use:   "mcp",
		Short: "Serve the analyze_package tool over MCP stdio",
		Long: `Serve the analyze_package tool to MCP clients over stdin and stdout.

Logs go to stderr so they never mix with protocol messages.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			s, err := loadSettings(cmd, &f)
			if err != nil {
				return err
			}
			e, err := c.buildEngine(ctx, s)
			if err != nil {
				return err
			}
			defer e.Close()

			mcpSrv := mcpserver.New(appName, buildinfo.Read().Version, apiserver.FromAnalyzer(e.Analyzer))
			err = server.NewStdioServer(mcpSrv).Listen(ctx, os.Stdin, os.Stdout)
			if errors.Is(err, context.Canceled) {
				return nil
			}
			return err
		},
	}
	fs := cmd.Flags()
	fs.IntVarP(&f.concurrency, "concurrency", "j", 1, "number of exports bundled at once")
	fs.StringVar(&f.registry, "registry", "", "npm registry URL")
	fs.StringVar(&f.cacheURL, "cache-url", "", "result store: file path, redis://, mongodb:// or none")
	return cmd
}
