package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"sort"
	"syscall"
	"text/tabwriter"
	"time"

	"github.com/HendryAvila/deepframe/internal/config"
	"github.com/HendryAvila/deepframe/internal/document"
	"github.com/HendryAvila/deepframe/internal/framework"
	"github.com/HendryAvila/deepframe/internal/logging"
	dfserver "github.com/HendryAvila/deepframe/internal/server"
	"github.com/HendryAvila/deepframe/internal/store"
	"github.com/HendryAvila/deepframe/internal/updater"
	"github.com/HendryAvila/deepframe/internal/workspace"
	"github.com/mark3labs/mcp-go/server"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

// env is what every command needs: settings plus a logger.
type env struct {
	cfg *config.Config
	log *zap.Logger
}

func newRoot() *cobra.Command {
	e := &env{}
	root := &cobra.Command{
		Use:           "deepframe",
		Short:         "Analysis frameworks with conditional widgets",
		Version:       dfserver.Version,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			log, err := logging.New(cfg.LogLevel)
			if err != nil {
				return err
			}
			e.cfg, e.log = cfg, log
			return nil
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			if e.log != nil {
				_ = e.log.Sync()
			}
		},
	}
	root.AddCommand(
		serveCmd(e),
		validateCmd(e),
		importCmd(e),
		exportCmd(e),
		listCmd(e),
		updateCmd(e),
	)
	return root
}

func serveCmd(e *env) *cobra.Command {
	var noUpdateCheck bool
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the MCP server on stdio",
		RunE: func(cmd *cobra.Command, args []string) error {
			s, cleanup, err := dfserver.New(e.cfg, e.log)
			if err != nil {
				return fmt.Errorf("creating server: %w", err)
			}
			defer cleanup()

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			// Notices go to stderr; stdout carries the protocol.
			if !noUpdateCheck {
				go checkForUpdates(ctx, e.log)
			}

			errCh := make(chan error, 1)
			go func() { errCh <- server.ServeStdio(s) }()
			select {
			case err := <-errCh:
				return err
			case <-ctx.Done():
				e.log.Info("shutting down")
				return nil
			}
		},
	}
	cmd.Flags().BoolVar(&noUpdateCheck, "no-update-check", false, "Skip the background release check")
	return cmd
}

func checkForUpdates(ctx context.Context, log *zap.Logger) {
	ctx, cancel := context.WithTimeout(ctx, 15*time.Second)
	defer cancel()
	res := updater.New(updater.WithLogger(log)).Check(ctx, dfserver.Version)
	if res.UpdateAvailable {
		log.Info("update available",
			zap.String("current", res.CurrentVersion),
			zap.String("latest", res.LatestVersion),
			zap.String("release", res.ReleaseURL),
		)
	}
}

func validateCmd(e *env) *cobra.Command {
	return &cobra.Command{
		Use:   "validate <file>",
		Short: "Validate a framework document (.json, .yaml)",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			f, err := document.Load(args[0])
			if err != nil {
				return err
			}
			report := framework.Validate(f, e.cfg.MaxConditions)
			out := cmd.OutOrStdout()
			if report.OK() {
				fmt.Fprintf(out, "%s: %s\n", args[0], report.Summary())
				return nil
			}
			for _, err := range report.FrameworkErrors {
				fmt.Fprintf(out, "%s: %v\n", args[0], err)
			}
			ids := make([]string, 0, len(report.FieldErrors))
			for id := range report.FieldErrors {
				ids = append(ids, id)
			}
			sort.Strings(ids)
			for _, id := range ids {
				for _, err := range report.FieldErrors[id] {
					fmt.Fprintf(out, "%s: widget %s: %v\n", args[0], id, err)
				}
			}
			return errors.New(report.Summary())
		},
	}
}

// withWorkspace opens the store for the duration of fn.
func withWorkspace(e *env, fn func(ws *workspace.Workspace) error) error {
	st, err := store.New(store.Config{DataDir: e.cfg.DataDir, CacheSize: e.cfg.CacheSize})
	if err != nil {
		return err
	}
	defer func() { _ = st.Close() }()
	return fn(workspace.New(st, nil,
		workspace.WithLogger(e.log.Named("workspace")),
		workspace.WithMaxConditions(e.cfg.MaxConditions),
	))
}

func importCmd(e *env) *cobra.Command {
	return &cobra.Command{
		Use:   "import <file>",
		Short: "Store a framework document, replacing one with the same id",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			f, err := document.Load(args[0])
			if err != nil {
				return err
			}
			return withWorkspace(e, func(ws *workspace.Workspace) error {
				saved, err := ws.Import(f)
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "%s\t%s\n", saved.ID, saved.Title)
				return nil
			})
		},
	}
}

func exportCmd(e *env) *cobra.Command {
	var (
		output string
		format string
	)
	cmd := &cobra.Command{
		Use:   "export <framework-id>",
		Short: "Write a stored framework as JSON or YAML",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withWorkspace(e, func(ws *workspace.Workspace) error {
				if output != "" {
					f, err := ws.Framework(args[0])
					if err != nil {
						return err
					}
					return document.Write(output, f)
				}
				df, err := document.ParseFormat(format)
				if err != nil {
					return err
				}
				data, err := ws.Export(args[0], df)
				if err != nil {
					return err
				}
				_, err = cmd.OutOrStdout().Write(data)
				return err
			})
		},
	}
	cmd.Flags().StringVarP(&output, "output", "o", "", "File to write; the extension picks the format")
	cmd.Flags().StringVar(&format, "format", "json", "Format for stdout: json or yaml")
	return cmd
}

func listCmd(e *env) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List stored frameworks",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withWorkspace(e, func(ws *workspace.Workspace) error {
				list, err := ws.Frameworks()
				if err != nil {
					return err
				}
				tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
				fmt.Fprintln(tw, "ID\tTITLE\tSECTIONS\tWIDGETS\tENTRIES")
				for _, f := range list {
					fmt.Fprintf(tw, "%s\t%s\t%d\t%d\t%d\n", f.ID, f.Title, f.Sections, f.Widgets, f.Entries)
				}
				return tw.Flush()
			})
		},
	}
}

func updateCmd(e *env) *cobra.Command {
	return &cobra.Command{
		Use:   "update",
		Short: "Replace this binary with the latest release",
		RunE: func(cmd *cobra.Command, args []string) error {
			out := cmd.ErrOrStderr()
			fmt.Fprintln(out, "Checking for updates...")
			res, err := updater.New(updater.WithLogger(e.log)).SelfUpdate(cmd.Context(), dfserver.Version)
			if errors.Is(err, updater.ErrUpToDate) {
				fmt.Fprintf(out, "Already at the latest version (v%s)\n", res.CurrentVersion)
				return nil
			}
			if err != nil {
				if res != nil && res.ReleaseURL != "" {
					fmt.Fprintf(out, "Download manually from %s\n", res.ReleaseURL)
				}
				return fmt.Errorf("update failed: %w", err)
			}
			fmt.Fprintf(out, "Updated v%s -> v%s. Restart deepframe to use it.\n", res.CurrentVersion, res.LatestVersion)
			return nil
		},
	}
}
