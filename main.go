package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"library-lending/config"
	"library-lending/library"

	jsoniter "github.com/json-iterator/go"
	"github.com/spf13/cobra"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

type options struct {
	envFile  string
	dbPath   string
	logLevel string
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	opts := &options{}
	root := &cobra.Command{
		Use:          "lms",
		Short:        "Library lending system",
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runShell(cmd, opts)
		},
	}
	root.PersistentFlags().StringVar(&opts.envFile, "env", ".env", "optional dotenv file")
	root.PersistentFlags().StringVar(&opts.dbPath, "db", "", "SQLite database path (overrides LMS_DB_PATH)")
	root.PersistentFlags().StringVar(&opts.logLevel, "log-level", "", "debug, info, warn or error (overrides LMS_LOG_LEVEL)")

	root.AddCommand(
		&cobra.Command{
			Use:   "shell",
			Short: "Log in and run the interactive menu",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, _ []string) error {
				return runShell(cmd, opts)
			},
		},
		newInitCmd(opts),
		newExportCmd(opts),
		newSearchCmd(opts),
	)
	return root
}

// openManager resolves configuration and opens the database.
func openManager(cmd *cobra.Command, opts *options) (*library.LibraryManager, error) {
	cfg, err := config.Load(opts.envFile)
	if err != nil {
		return nil, err
	}
	if opts.dbPath != "" {
		cfg.DBPath = opts.dbPath
	}
	if opts.logLevel != "" {
		if err := cfg.LogLevel.UnmarshalText([]byte(opts.logLevel)); err != nil {
			return nil, fmt.Errorf("--log-level: %w", err)
		}
	}
	mgr, err := library.NewLibraryManager(cmd.Context(), cfg.DBPath, cfg.Logger(cmd.ErrOrStderr()))
	if err != nil {
		return nil, fmt.Errorf("open database %s: %w", cfg.DBPath, err)
	}
	return mgr, nil
}

func runShell(cmd *cobra.Command, opts *options) error {
	mgr, err := openManager(cmd, opts)
	if err != nil {
		return err
	}
	defer mgr.Close()

	sh := newShell(cmd.InOrStdin(), cmd.OutOrStdout())
	return sh.Run(cmd.Context(), mgr)
}

func newInitCmd(opts *options) *cobra.Command {
	var username string
	cmd := &cobra.Command{
		Use:   "init",
		Short: "Create the database and the first librarian account",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			mgr, err := openManager(cmd, opts)
			if err != nil {
				return err
			}
			defer mgr.Close()

			sh := newShell(cmd.InOrStdin(), cmd.OutOrStdout())
			password, err := sh.readPassword(fmt.Sprintf("Enter password for %s: ", username))
			if err != nil {
				return fmt.Errorf("read password: %w", err)
			}
			if err := mgr.Bootstrap(cmd.Context(), username, password); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Librarian '%s' created.\n", username)
			return nil
		},
	}
	cmd.Flags().StringVar(&username, "username", "admin", "librarian username")
	return cmd
}

func newExportCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "export",
		Short: "Write the catalog, active loans and fines as JSON",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			mgr, err := openManager(cmd, opts)
			if err != nil {
				return err
			}
			defer mgr.Close()

			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			return enc.Encode(mgr.Engine().Snapshot())
		},
	}
}

func newSearchCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "search QUERY",
		Short: "Search the catalog by title, author or ISBN",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			mgr, err := openManager(cmd, opts)
			if err != nil {
				return err
			}
			defer mgr.Close()

			printBooks(cmd.OutOrStdout(), mgr.Engine().SearchBooks(strings.Join(args, " ")))
			return nil
		},
	}
}
