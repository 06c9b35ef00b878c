package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/bryanwahyu/budget-review/internal/application"
	"github.com/bryanwahyu/budget-review/internal/application/analysis"
	"github.com/bryanwahyu/budget-review/internal/application/review"
	"github.com/bryanwahyu/budget-review/internal/config"
	domai "github.com/bryanwahyu/budget-review/internal/domain/ai"
	"github.com/bryanwahyu/budget-review/internal/domain/budget"
	"github.com/bryanwahyu/budget-review/internal/infra/ai/provider"
	"github.com/bryanwahyu/budget-review/internal/infra/db"
	"github.com/bryanwahyu/budget-review/internal/logger"
)

type AnalyzeCmd struct {
	cityName   string
	fiscalYear string
	userID     string
	offline    bool
	persist    bool
	timeout    time.Duration
}

func NewAnalyzeCmd() *cobra.Command {
	ac := &AnalyzeCmd{}
	cmd := &cobra.Command{
		Use:   "analyze <file>",
		Short: "Run the full analysis on a CSV or XLSX budget file and print the result as JSON",
		Args:  cobra.ExactArgs(1),
		RunE:  ac.run,
	}

	cmd.Flags().StringVar(&ac.cityName, "city", "", "City name for the report context")
	cmd.Flags().StringVar(&ac.fiscalYear, "fiscal-year", "", "Fiscal year label for the report context")
	cmd.Flags().StringVar(&ac.userID, "user", "cli", "Owner recorded when --persist is set")
	cmd.Flags().BoolVar(&ac.offline, "offline", false, "Skip the narrative service and use fallback values")
	cmd.Flags().BoolVar(&ac.persist, "persist", false, "Store the result in the configured database")
	cmd.Flags().DurationVar(&ac.timeout, "timeout", 2*time.Minute, "Overall time limit")

	return cmd
}

func (ac *AnalyzeCmd) run(cmd *cobra.Command, args []string) error {
	cfg, log, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	ctx, cancel := context.WithTimeout(logger.WithContext(cmd.Context(), log), ac.timeout)
	defer cancel()

	data, err := os.ReadFile(args[0])
	if err != nil {
		return fmt.Errorf("failed to read %s: %w", args[0], err)
	}

	var client domai.Client
	if !ac.offline {
		if client, err = provider.New(ctx, cfg); err != nil {
			return fmt.Errorf("failed to create narrative client: %w", err)
		}
	}

	svc := &analysis.Service{
		Parser:     budget.NewParser(),
		Aggregator: budget.NewAggregator(cfg.Heuristics),
		Reviewer:   review.NewRequester(client),
		Clock:      application.SystemClock{},
		DemoTokens: cfg.Demo.Tokens,
	}

	if ac.persist {
		store, err := db.Open(ctx, cfg)
		if err != nil {
			return err
		}
		if store == nil {
			return errors.New("--persist needs database.driver in the config")
		}
		defer store.Close()
		svc.Repo = store.Analyses
	}

	res, err := svc.Analyze(ctx, analysis.Command{
		UserID:     ac.userID,
		FileName:   filepath.Base(args[0]),
		Data:       data,
		CityName:   ac.cityName,
		FiscalYear: ac.fiscalYear,
	})
	if err != nil {
		return err
	}
	if ac.persist && res.Persisted {
		log.Info().Str("analysis_id", string(res.ID)).Msg("analysis stored")
	}

	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(res.Response)
}

type RowsCmd struct{}

// NewRowsCmd prints the normalized rows of a file, one JSON object per line.
func NewRowsCmd() *cobra.Command {
	rc := &RowsCmd{}
	return &cobra.Command{
		Use:   "rows <file>",
		Short: "Print the normalized budget rows of a file as JSON lines",
		Args:  cobra.ExactArgs(1),
		RunE:  rc.run,
	}
}

func (rc *RowsCmd) run(cmd *cobra.Command, args []string) error {
	_, log, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	ctx := logger.WithContext(cmd.Context(), log)

	data, err := os.ReadFile(args[0])
	if err != nil {
		return fmt.Errorf("failed to read %s: %w", args[0], err)
	}
	rows, err := budget.NewParser().ParseRows(ctx, data, filepath.Base(args[0]))
	if err != nil {
		return err
	}

	enc := json.NewEncoder(cmd.OutOrStdout())
	for _, r := range rows {
		if err := enc.Encode(r); err != nil {
			return err
		}
	}
	return nil
}

func loadConfig(cmd *cobra.Command) (*config.Config, zerolog.Logger, error) {
	path, _ := cmd.Flags().GetString("config")
	if v := os.Getenv("CONFIG_PATH"); v != "" && !cmd.Flags().Changed("config") {
		path = v
	}
	cfg, err := config.Load(path)
	if err != nil {
		return nil, zerolog.Nop(), fmt.Errorf("config load error: %w", err)
	}
	return cfg, logger.NewWithWriter(cmd.ErrOrStderr(), cfg.Log.Level, "console"), nil
}
