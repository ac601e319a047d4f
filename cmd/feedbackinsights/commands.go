package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"FeedbackInsights/internal/app"
	"FeedbackInsights/internal/config"
	"FeedbackInsights/internal/logging"
	"FeedbackInsights/internal/usecase"
)

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "feedbackinsights",
		Short: "Classify student feedback and report on it",
		Long: `Feedback Insights reads survey exports (xlsx, csv or an HTML table),
classifies every comment with a language model and serves aggregate views.

Running without a subcommand starts the HTTP server.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE:          runServe,
	}

	root.AddCommand(
		newServeCmd(),
		newIngestCmd(),
		newSummaryCmd(),
		newPriorityCmd(),
		newExportCmd(),
	)
	return root
}

func newServeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Start the HTTP API and the priority digest",
		Args:  cobra.NoArgs,
		RunE:  runServe,
	}
}

func newIngestCmd() *cobra.Command {
	var column string
	cmd := &cobra.Command{
		Use:   "ingest FILE",
		Short: "Classify and store the feedback column of a file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			data, err := os.ReadFile(args[0])
			if err != nil {
				return fmt.Errorf("read upload: %w", err)
			}

			return withApp(cmd, func(cfg *config.Config) {
				if column != "" {
					cfg.Upload.FeedbackColumn = column
				}
			}, func(ctx context.Context, a *app.Application) error {
				result, err := a.Ingest(ctx, data)
				if err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), usecase.StatusMessage(result))
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&column, "column", "", "header of the feedback column (overrides config)")
	return cmd
}

func newSummaryCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "summary",
		Short: "Print sentiment counts and top themes as JSON",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withApp(cmd, nil, func(ctx context.Context, a *app.Application) error {
				summary, err := a.Insights().Summary(ctx)
				if err != nil {
					return err
				}
				return writeJSON(cmd.OutOrStdout(), summary)
			})
		},
	}
}

func newPriorityCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "priority",
		Short: "Print urgent and negative feedback as JSON",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withApp(cmd, nil, func(ctx context.Context, a *app.Application) error {
				items, err := a.Insights().PriorityList(ctx)
				if err != nil {
					return err
				}
				return writeJSON(cmd.OutOrStdout(), items)
			})
		},
	}
}

func newExportCmd() *cobra.Command {
	var output string
	cmd := &cobra.Command{
		Use:   "export",
		Short: "Write every stored record as CSV",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withApp(cmd, nil, func(ctx context.Context, a *app.Application) error {
				data, err := a.Insights().ExportCSV(ctx)
				if err != nil {
					return err
				}
				if output == "" {
					_, err = cmd.OutOrStdout().Write(data)
					return err
				}
				return os.WriteFile(output, data, 0o644)
			})
		},
	}
	cmd.Flags().StringVarP(&output, "output", "o", "", "file to write (default stdout)")
	return cmd
}

func runServe(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()
	cfg := config.Load()
	application, err := app.New(ctx, cfg, logging.New(cfg.Logging.Level))
	if err != nil {
		return err
	}
	defer application.Close()

	return application.Serve(ctx)
}

// withApp loads config, lets the command adjust it, and runs fn against a
// fresh application. Logs go to stderr so stdout stays machine-readable.
func withApp(cmd *cobra.Command, adjust func(*config.Config), fn func(context.Context, *app.Application) error) error {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	cfg := config.Load()
	if adjust != nil {
		adjust(&cfg)
	}

	application, err := app.New(ctx, cfg, logging.NewWriter(cmd.ErrOrStderr(), cfg.Logging.Level))
	if err != nil {
		return err
	}
	defer application.Close()

	return fn(ctx, application)
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
