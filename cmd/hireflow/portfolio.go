package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/amishk599/hireflow/internal/config"
	"github.com/amishk599/hireflow/internal/portfolio"
	"github.com/amishk599/hireflow/internal/ratelimit"
	"github.com/amishk599/hireflow/internal/vectorstore"
)

var portfolioCmd = &cobra.Command{
	Use:   "portfolio",
	Short: "Inspect and maintain the portfolio store",
}

var portfolioLoadCmd = &cobra.Command{
	Use:   "load",
	Short: "Load the portfolio CSV into the store if it is empty",
	RunE:  runPortfolioLoad,
}

var portfolioQueryCmd = &cobra.Command{
	Use:   "query <skill>...",
	Short: "Show the portfolio links matched for each skill",
	Args:  cobra.MinimumNArgs(1),
	RunE:  runPortfolioQuery,
}

var portfolioCountCmd = &cobra.Command{
	Use:   "count",
	Short: "Print the number of stored portfolio entries",
	RunE:  runPortfolioCount,
}

var portfolioResetCmd = &cobra.Command{
	Use:   "reset",
	Short: "Delete every stored entry so the next load re-reads the CSV",
	RunE:  runPortfolioReset,
}

func init() {
	rootCmd.AddCommand(portfolioCmd)
	portfolioCmd.AddCommand(portfolioLoadCmd, portfolioQueryCmd, portfolioCountCmd, portfolioResetCmd)
}

// openPortfolioStore opens the collection without requiring the LLM API key.
func openPortfolioStore(cfg *config.Config, logger *slog.Logger) (*vectorstore.Collection, error) {
	return openStore(cfg, ratelimit.NewLimiter(cfg.LLM.RequestsPerMinute), logger)
}

// withPortfolio loads config, opens the store and calls fn.
func withPortfolio(fn func(ctx context.Context, cfg *config.Config, store *vectorstore.Collection, logger *slog.Logger) error) error {
	logger := setupLogger(debug)

	cfg, err := loadConfig(cfgPath)
	if err != nil {
		logger.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	store, err := openPortfolioStore(cfg, logger)
	if err != nil {
		logger.Error("failed to open store", "error", err)
		os.Exit(1)
	}
	defer store.Close()

	return fn(context.Background(), cfg, store, logger)
}

func runPortfolioLoad(cmd *cobra.Command, args []string) error {
	return withPortfolio(func(ctx context.Context, cfg *config.Config, store *vectorstore.Collection, logger *slog.Logger) error {
		pf, err := portfolio.New(cfg.Portfolio.CSVPath, store, cfg.Portfolio.ResultsPerSkill, logger)
		if err != nil {
			return err
		}
		if err := pf.Load(ctx); err != nil {
			return err
		}
		n, err := store.Count(ctx)
		if err != nil {
			return err
		}
		fmt.Printf("%d entries in %q (%d rows in %s)\n", n, store.Name(), len(pf.Entries()), cfg.Portfolio.CSVPath)
		return nil
	})
}

func runPortfolioQuery(cmd *cobra.Command, args []string) error {
	return withPortfolio(func(ctx context.Context, cfg *config.Config, store *vectorstore.Collection, logger *slog.Logger) error {
		pf, err := portfolio.New(cfg.Portfolio.CSVPath, store, cfg.Portfolio.ResultsPerSkill, logger)
		if err != nil {
			return err
		}
		if err := pf.Load(ctx); err != nil {
			return err
		}
		groups, err := pf.Query(ctx, args)
		if err != nil {
			return err
		}
		for i, g := range groups {
			fmt.Printf("%s:\n", args[i])
			if len(g) == 0 {
				fmt.Println("  (no matches)")
			}
			for _, md := range g {
				fmt.Printf("  %s\n", strings.TrimSpace(md["links"]))
			}
		}
		return nil
	})
}

func runPortfolioCount(cmd *cobra.Command, args []string) error {
	return withPortfolio(func(ctx context.Context, cfg *config.Config, store *vectorstore.Collection, logger *slog.Logger) error {
		n, err := store.Count(ctx)
		if err != nil {
			return err
		}
		fmt.Println(n)
		return nil
	})
}

func runPortfolioReset(cmd *cobra.Command, args []string) error {
	return withPortfolio(func(ctx context.Context, cfg *config.Config, store *vectorstore.Collection, logger *slog.Logger) error {
		pf, err := portfolio.New(cfg.Portfolio.CSVPath, store, cfg.Portfolio.ResultsPerSkill, logger)
		if err != nil {
			return err
		}
		if err := pf.Reset(ctx); err != nil {
			return err
		}
		logger.Info("portfolio store reset", "collection", store.Name())
		return nil
	})
}
