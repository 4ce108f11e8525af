// Package pipeline wires adapters to the usecase and manages the on-disk
// layout of one processing run.
package pipeline

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/forPelevin/clipcut/internal/config"
	"github.com/forPelevin/clipcut/internal/ports/adapters/assemblyai"
	"github.com/forPelevin/clipcut/internal/ports/adapters/ffmpeg"
	"github.com/forPelevin/clipcut/internal/ports/adapters/ledger"
	openaiadapter "github.com/forPelevin/clipcut/internal/ports/adapters/openai"
	"github.com/forPelevin/clipcut/internal/types"
	"github.com/forPelevin/clipcut/internal/usecase"
)

// Request describes one run of the engine.
type Request struct {
	SourcePath string
	UserID     string
	OutDir     string
	CacheDir   string
}

func (r Request) validate(cfg config.Config) error {
	if r.SourcePath == "" {
		return errors.New("source path is empty")
	}
	if _, err := os.Stat(r.SourcePath); err != nil {
		return fmt.Errorf("stat source: %w", err)
	}
	if r.UserID == "" {
		return errors.New("user id is empty")
	}
	if cfg.Transcription.APIKey == "" {
		return errors.New("transcription api key is required")
	}
	if cfg.Relevance.Enabled && cfg.Relevance.APIKey == "" {
		return errors.New("relevance api key is required when relevance is enabled")
	}
	return cfg.Validate()
}

// Run prepares the workspace, trims over-long sources, executes the
// usecase and writes the run manifest. The returned manifest lists the
// produced clips in timeline order.
func Run(ctx context.Context, cfg config.Config, req Request, log *slog.Logger) (types.Manifest, error) {
	if err := req.validate(cfg); err != nil {
		return types.Manifest{}, fmt.Errorf("request: %w", err)
	}

	cacheDir := req.CacheDir
	if cacheDir == "" {
		cacheDir = ".cache"
	}
	runID := hash(req.SourcePath)
	runCache := filepath.Join(cacheDir, "runs", runID)
	if err := os.MkdirAll(runCache, 0o755); err != nil {
		return types.Manifest{}, err
	}

	outDir := req.OutDir
	if outDir == "" {
		outDir = "out"
	}
	runOut := filepath.Join(outDir, fmt.Sprintf("%s-%s", runID, time.Now().UTC().Format("20060102-150405Z")))
	if err := os.MkdirAll(runOut, 0o755); err != nil {
		return types.Manifest{}, err
	}
	log.Info("workspace ready", "cache", runCache, "out", runOut)

	transcoder := ffmpeg.New(cfg.Render.FFmpegPath, cfg.Render.FFprobePath)
	transcriber := assemblyai.New(cfg.Transcription.APIKey, cfg.Transcription.BaseURL)
	wallet, err := ledger.Open(cfg.Billing.LedgerPath, cfg.Billing.StartingBalance)
	if err != nil {
		return types.Manifest{}, fmt.Errorf("open ledger: %w", err)
	}
	defer wallet.Close()

	deps := usecase.Deps{
		Transcriber: transcriber,
		Transcoder:  transcoder,
		Ledger:      wallet,
		Log:         log,
	}
	if cfg.Relevance.Enabled {
		deps.Relevance = openaiadapter.New(cfg.Relevance.APIKey, cfg.Relevance.BaseURL, cfg.Relevance.Model)
	}

	res, err := usecase.New(deps).Run(ctx, usecase.Input{
		SourcePath: req.SourcePath,
		UserID:     req.UserID,
		CacheDir:   runCache,
		OutDir:     runOut,
		Config:     cfg,
	})
	if err != nil {
		return types.Manifest{}, err
	}

	m := buildManifest(req.SourcePath, res)
	b, err := json.MarshalIndent(m, "", "  ")
	if err != nil {
		return types.Manifest{}, fmt.Errorf("marshal manifest: %w", err)
	}
	manifestPath := filepath.Join(runOut, "manifest.json")
	if err := os.WriteFile(manifestPath, b, 0o644); err != nil {
		return types.Manifest{}, err
	}
	log.Info("manifest written", "clips", len(m.Clips), "path", manifestPath)
	return m, nil
}

func buildManifest(input string, res usecase.Result) types.Manifest {
	m := types.Manifest{Input: input}
	for i, c := range res.Clips {
		if c.Path == "" {
			continue
		}
		breakdown := make(map[string]float64, len(c.Moment.Breakdown))
		for f, v := range c.Moment.Breakdown {
			breakdown[string(f)] = v
		}
		m.Clips = append(m.Clips, types.ManifestClip{
			ID:        fmt.Sprintf("%03d", i+1),
			StartSec:  c.Moment.Start,
			EndSec:    c.Moment.End,
			Score:     c.Moment.Score,
			Breakdown: breakdown,
			Text:      c.Moment.Text,
			File:      filepath.ToSlash(c.Path),
			Reason:    c.Moment.RelevanceReason,
		})
	}
	return m
}

func hash(s string) string {
	sum := sha256.Sum256([]byte(s))
	return hex.EncodeToString(sum[:])[:12]
}
