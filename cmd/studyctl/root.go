package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"study-assistant/internal/app"
	"study-assistant/internal/config"
	"study-assistant/internal/contextutil"
	"study-assistant/internal/indexer"
)

// globalFlags are shared by every subcommand.
type globalFlags struct {
	dir     string
	dbPath  string
	verbose bool
}

func newRootCmd() *cobra.Command {
	flags := &globalFlags{}

	rootCmd := &cobra.Command{
		Use:   "studyctl",
		Short: "Query and ask questions about a folder of study material",
		Long: `studyctl ingests every text, markdown and PDF file below --dir into a fresh
session and then retrieves passages or answers a question from them.

Configuration is read from the environment and .env, like the API server.`,
		SilenceUsage: true,
	}

	rootCmd.PersistentFlags().StringVarP(&flags.dir, "dir", "d", "", "folder with study material")
	rootCmd.PersistentFlags().StringVar(&flags.dbPath, "db", "", "catalog database path (default: temporary file)")
	rootCmd.PersistentFlags().BoolVarP(&flags.verbose, "verbose", "v", false, "log progress to stderr")
	_ = rootCmd.MarkPersistentFlagRequired("dir")

	rootCmd.AddCommand(newQueryCmd(flags), newAskCmd(flags))
	return rootCmd
}

// session is a study session loaded with the contents of --dir.
type session struct {
	stack *app.Stack
	id    string
	ctx   context.Context
	close func()
}

// openSession builds the stack, creates a session and ingests --dir into it.
func openSession(cmd *cobra.Command, flags *globalFlags, needLLM bool) (*session, error) {
	level := slog.LevelWarn
	if flags.verbose {
		level = slog.LevelInfo
	}
	logger := slog.New(slog.NewTextHandler(cmd.ErrOrStderr(), &slog.HandlerOptions{Level: level}))
	ctx := contextutil.WithLogger(cmd.Context(), logger)

	if !needLLM && os.Getenv("LLM_DISABLED") == "" {
		// Retrieval alone never calls the LLM, so no API key is needed.
		_ = os.Setenv("LLM_DISABLED", "true")
	}

	var cleanup []func()
	dbPath := flags.dbPath
	if dbPath == "" {
		tmp, err := os.MkdirTemp("", "studyctl-*")
		if err != nil {
			return nil, err
		}
		dbPath = filepath.Join(tmp, "catalog.db")
		cleanup = append(cleanup, func() { _ = os.RemoveAll(tmp) })
	}
	_ = os.Setenv("DB_PATH", dbPath)

	cfg, err := config.Load()
	if err != nil {
		for _, fn := range cleanup {
			fn()
		}
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}

	stack, err := app.Build(ctx, cfg)
	if err != nil {
		for _, fn := range cleanup {
			fn()
		}
		return nil, err
	}
	closeAll := func() {
		_ = stack.Close()
		for _, fn := range cleanup {
			fn()
		}
	}

	info, err := stack.Service.CreateSession(ctx)
	if err != nil {
		closeAll()
		return nil, err
	}
	ctx = contextutil.WithSession(ctx, info.ID)

	report, err := stack.Service.IngestDirectory(ctx, info.ID, flags.dir)
	if err != nil {
		closeAll()
		return nil, fmt.Errorf("failed to ingest %s: %w", flags.dir, err)
	}
	printReport(cmd.ErrOrStderr(), report)

	return &session{
		stack: stack,
		id:    info.ID,
		ctx:   ctx,
		close: func() {
			_ = stack.Service.DeleteSession(context.Background(), info.ID)
			closeAll()
		},
	}, nil
}

func printReport(w io.Writer, report *indexer.DirectoryReport) {
	fmt.Fprintf(w, "Indexed %d of %d files", len(report.Ingested), report.Files)
	if report.Duplicates > 0 {
		fmt.Fprintf(w, ", %d duplicates skipped", report.Duplicates)
	}
	fmt.Fprintln(w)
	for _, f := range report.Failed {
		fmt.Fprintf(w, "  skipped %s: %v\n", f.RelPath, f.Err)
	}
}
