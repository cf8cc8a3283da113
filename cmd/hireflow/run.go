package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/charmbracelet/x/term"
	"github.com/spf13/cobra"

	"github.com/amishk599/hireflow/internal/model"
	"github.com/amishk599/hireflow/internal/pipeline"
	"github.com/amishk599/hireflow/internal/tui"
)

var (
	browse bool
	plain  bool
)

var runCmd = &cobra.Command{
	Use:   "run <url>",
	Short: "Analyze one careers page and print the drafts",
	Long:  "One-shot run: fetches the page, extracts the postings and prints one drafted email per posting.",
	Args:  cobra.ExactArgs(1),
	RunE:  runRun,
}

func init() {
	runCmd.Flags().BoolVar(&browse, "browse", false, "open the drafts in a scrollable viewer")
	runCmd.Flags().BoolVar(&plain, "plain", false, "plain output without spinner or colors")
	rootCmd.AddCommand(runCmd)
}

func runRun(cmd *cobra.Command, args []string) error {
	url := args[0]
	interactive := !plain && term.IsTerminal(os.Stdout.Fd())

	// Logs would tear through the spinner, so the interactive run stays quiet
	// unless --debug is set.
	logger := setupLogger(debug)
	if interactive && !debug {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}

	cfg, err := loadConfig(cfgPath)
	if err != nil {
		logger.Error("failed to load config", "error", err)
		fmt.Fprintln(os.Stderr, "failed to load config:", err)
		os.Exit(1)
	}

	a, err := buildApp(cfg, nil, logger)
	if err != nil {
		fmt.Fprintln(os.Stderr, "failed to start:", err)
		os.Exit(1)
	}
	defer a.close()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	runFn := func(ctx context.Context) (*model.Report, error) {
		report, failure := pipeline.Safe(ctx, a.pipeline, url)
		if failure != nil {
			return nil, failure
		}
		return report, nil
	}

	var report *model.Report
	if interactive {
		report, err = tui.RunLoader(ctx, url, runFn)
	} else {
		report, err = runFn(ctx)
	}
	if err != nil {
		return reportFailure(err, interactive)
	}

	switch {
	case browse && interactive && !report.NoJobs:
		return tui.Browse(report)
	case interactive:
		width, _, err := term.GetSize(os.Stdout.Fd())
		if err != nil || width <= 0 {
			width = 100
		}
		fmt.Print(tui.RenderReport(report, width))
		return nil
	default:
		return tui.WritePlain(os.Stdout, report)
	}
}

func reportFailure(err error, interactive bool) error {
	if errors.Is(err, tui.ErrCancelled) {
		return err
	}
	var failure *pipeline.Failure
	if !errors.As(err, &failure) {
		return err
	}
	if interactive {
		fmt.Fprint(os.Stderr, tui.RenderFailure(failure))
	} else {
		fmt.Fprintln(os.Stderr, failure.Message)
		if !failure.UserError() {
			fmt.Fprint(os.Stderr, failure.Trace)
		}
	}
	os.Exit(1)
	return nil
}
