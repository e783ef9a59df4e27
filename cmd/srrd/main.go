// srrd: research workflow tracking MCP server
//
// Tracks research tool usage against a taxonomy of research acts and
// reports progress, velocity, workflow health and next-step suggestions
// to any MCP-capable AI host.
//
// Usage:
//
//	srrd serve                 # Start MCP server (stdio transport)
//	srrd progress <project_id> # Print a progress report
//	srrd projects              # List tracked projects
//	srrd taxonomy              # Print the research taxonomy
//	srrd version
package main

import (
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/dustin/go-humanize"
	"github.com/mark3labs/mcp-go/server"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/markomanninen/srrd-builder-sub000/internal/config"
	"github.com/markomanninen/srrd-builder-sub000/internal/logging"
	srrdserver "github.com/markomanninen/srrd-builder-sub000/internal/server"
	"github.com/markomanninen/srrd-builder-sub000/internal/tools"
	"github.com/markomanninen/srrd-builder-sub000/internal/workflow"
)

// app holds state shared by all subcommands.
type app struct {
	verbose   bool
	overrides config.Config

	cfg    *config.Config
	logger *zap.Logger
}

func newRootCmd() *cobra.Command {
	a := &app{}

	root := &cobra.Command{
		Use:           "srrd",
		Short:         "Research workflow tracking MCP server",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if cmd.Name() == "version" {
				return nil
			}
			cfg, err := config.Load(&a.overrides)
			if err != nil {
				return fmt.Errorf("failed to load config: %w", err)
			}
			if a.verbose {
				cfg.LogLevel = "debug"
			}
			a.logger, err = logging.New(cfg.LogLevel)
			if err != nil {
				return fmt.Errorf("failed to initialize logger: %w", err)
			}
			a.cfg = cfg
			return nil
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			if a.logger != nil {
				_ = a.logger.Sync()
			}
		},
	}

	flags := root.PersistentFlags()
	flags.BoolVarP(&a.verbose, "verbose", "v", false, "Enable debug logging")
	flags.StringVar(&a.overrides.DataDir, "data-dir", "", "Directory holding the workflow database (default: ~/.srrd)")
	flags.StringVar(&a.overrides.TaxonomyFile, "taxonomy", "", "YAML taxonomy file replacing the built-in one")
	flags.StringVar(&a.overrides.LogLevel, "log-level", "", "Log level: debug, info, warn, error")

	root.AddCommand(
		a.serveCmd(),
		a.progressCmd(),
		a.projectsCmd(),
		a.taxonomyCmd(),
		versionCmd(),
	)
	return root
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func (a *app) serveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Start the MCP server on stdio",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			s, cleanup, err := srrdserver.New(a.cfg, a.logger)
			if err != nil {
				return fmt.Errorf("creating server: %w", err)
			}
			defer cleanup()

			a.logger.Info("serving MCP on stdio",
				zap.String("version", srrdserver.Version),
				zap.String("data_dir", a.cfg.DataDir),
			)

			// Graceful shutdown on interrupt.
			sigCh := make(chan os.Signal, 1)
			signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
			defer signal.Stop(sigCh)

			errCh := make(chan error, 1)
			go func() { errCh <- server.ServeStdio(s) }()

			select {
			case err := <-errCh:
				return err
			case sig := <-sigCh:
				a.logger.Info("received shutdown signal", zap.String("signal", sig.String()))
				return nil
			}
		},
	}
}

// withEngine opens the engine for a one-shot command.
func (a *app) withEngine(fn func(*workflow.Engine) error) error {
	engine, cleanup, err := srrdserver.OpenEngine(a.cfg, a.logger)
	if err != nil {
		return err
	}
	defer cleanup()
	return fn(engine)
}

func (a *app) progressCmd() *cobra.Command {
	var categories bool
	cmd := &cobra.Command{
		Use:   "progress <project_id>",
		Short: "Print the progress report of a project",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.withEngine(func(engine *workflow.Engine) error {
				r, err := engine.AnalyzeProgress(cmd.Context(), args[0])
				if err != nil {
					return err
				}
				_, err = io.WriteString(cmd.OutOrStdout(), tools.FormatProgress(r, categories))
				return err
			})
		},
	}
	cmd.Flags().BoolVar(&categories, "categories", false, "Include per-category completion")
	return cmd
}

func (a *app) projectsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "projects",
		Short: "List tracked research projects",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.withEngine(func(engine *workflow.Engine) error {
				projects, err := engine.ListProjects(cmd.Context())
				if err != nil {
					return err
				}
				out := cmd.OutOrStdout()
				if len(projects) == 0 {
					fmt.Fprintln(out, "No projects yet.")
					return nil
				}
				for _, p := range projects {
					fmt.Fprintf(out, "%s  %s  (created %s)\n", p.ID, p.Name, humanize.Time(p.CreatedAt))
				}
				return nil
			})
		},
	}
}

func (a *app) taxonomyCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "taxonomy",
		Short: "Print research acts, categories and tools",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.withEngine(func(engine *workflow.Engine) error {
				out := cmd.OutOrStdout()
				for i, act := range engine.Registry().Acts() {
					fmt.Fprintf(out, "%d. %s (%s)\n", i+1, act.Name, act.ID)
					for _, c := range act.Categories {
						fmt.Fprintf(out, "   - %s (%s): %d tools\n", c.Name, c.ID, len(c.Tools))
						for _, tool := range c.Tools {
							fmt.Fprintf(out, "       %s\n", tool)
						}
					}
				}
				return nil
			})
		},
	}
}

func versionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the version",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			_, err := fmt.Fprintf(cmd.OutOrStdout(), "srrd v%s\n", srrdserver.Version)
			return err
		},
	}
}

