package cli

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"

	"github.com/forPelevin/clipcut/internal/billing"
	"github.com/forPelevin/clipcut/internal/config"
	"github.com/forPelevin/clipcut/internal/logging"
	"github.com/forPelevin/clipcut/internal/pipeline"
)

func run(cmd *cobra.Command, input string) error {
	userID, _ := cmd.Flags().GetString("user")
	outDir, _ := cmd.Flags().GetString("out")
	cfgPath, _ := cmd.Flags().GetString("config") // persistent, inherited from root
	cacheDir, _ := cmd.Flags().GetString("cache")

	if userID == "" {
		return errors.New("--user is required")
	}

	cfg, err := config.Load(cfgPath)
	if err != nil {
		return err
	}
	log, err := logging.New(logging.Options{Level: cfg.Logging.Level, Format: cfg.Logging.Format})
	if err != nil {
		return err
	}

	absIn, err := filepath.Abs(input)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Hour)
	defer cancel()

	m, err := pipeline.Run(ctx, cfg, pipeline.Request{
		SourcePath: absIn,
		UserID:     userID,
		OutDir:     outDir,
		CacheDir:   cacheDir,
	}, log)
	if err != nil {
		// The user-visible failure surface is deliberately narrow.
		if errors.Is(err, billing.ErrInsufficientFunds) {
			return errors.New("insufficient funds: top up your balance and retry")
		}
		log.Error("pipeline failed", "err", err)
		return errors.New("processing failed, try again later")
	}

	fmt.Fprintf(cmd.OutOrStdout(), "produced %d clips\n", len(m.Clips))
	for _, c := range m.Clips {
		fmt.Fprintf(cmd.OutOrStdout(), "  %s  [%.1fs - %.1fs]  %s\n", c.ID, c.StartSec, c.EndSec, c.File)
	}
	return nil
}
