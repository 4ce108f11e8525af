// Package usecase orchestrates the full highlight pipeline: merge, score,
// select, render, settle.
package usecase

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"sort"

	"github.com/forPelevin/clipcut/internal/billing"
	"github.com/forPelevin/clipcut/internal/config"
	"github.com/forPelevin/clipcut/internal/domain/moments"
	"github.com/forPelevin/clipcut/internal/domain/scoring"
	"github.com/forPelevin/clipcut/internal/domain/selection"
	"github.com/forPelevin/clipcut/internal/ports"
	"github.com/forPelevin/clipcut/internal/render"
	"github.com/forPelevin/clipcut/internal/types"
)

// Deps are the collaborators the pipeline drives. Relevance may be nil
// when the deployment disables the LLM collaborator.
type Deps struct {
	Transcriber ports.Transcriber
	Relevance   ports.RelevanceAnalyzer
	Transcoder  ports.Transcoder
	Ledger      ports.Ledger
	Log         *slog.Logger
}

type Usecase struct{ d Deps }

func New(d Deps) Usecase {
	if d.Log == nil {
		d.Log = slog.Default()
	}
	return Usecase{d: d}
}

// Input is one processing request.
type Input struct {
	SourcePath string
	UserID     string
	CacheDir   string
	OutDir     string
	Config     config.Config
}

// Result is the engine's output contract: the produced clips in selection
// order plus the billing reconciliation.
type Result struct {
	Clips      []Clip
	Settlement types.Settlement
	Summary    string
}

// Clip pairs a selected moment with its render outcome.
type Clip struct {
	Moment  types.Moment
	Path    string
	Skipped string // failure reason when no clip was produced
}

// Run executes the pipeline for one video. The reservation is taken
// before any work starts; a fatal error after that point triggers a full
// refund before the error is returned. Per-clip render failures are not
// fatal: the result simply carries fewer clips.
func (u Usecase) Run(ctx context.Context, in Input) (Result, error) {
	cfg := in.Config
	log := u.d.Log

	settle := billing.New(u.d.Ledger, log, in.UserID, cfg.Billing.CostPerClip)
	if err := settle.Reserve(ctx, cfg.Clips.MaxCount); err != nil {
		return Result{}, err
	}

	// All media work, including trimming over-long sources, happens behind
	// the reservation.
	source, err := u.trimSource(ctx, in.SourcePath, in.CacheDir, cfg.Clips.MaxSourceDurationSecond)
	if err != nil {
		settle.Abort(ctx, "source preparation failed")
		return Result{}, err
	}

	tr, err := u.d.Transcriber.Transcribe(ctx, source, in.CacheDir)
	if err != nil {
		settle.Abort(ctx, "transcription failed")
		return Result{}, fmt.Errorf("transcribe: %w", err)
	}
	if len(tr.Segments) == 0 {
		settle.Abort(ctx, "empty transcript")
		return Result{}, fmt.Errorf("transcribe: no speech found in source")
	}
	totalDuration := tr.Duration()
	log.Info("transcript ready", "segments", len(tr.Segments), "duration", totalDuration)

	signal, summary, err := u.fetchRelevance(ctx, tr, totalDuration, cfg)
	if err != nil {
		settle.Abort(ctx, "relevance analysis failed")
		return Result{}, err
	}

	candidates := moments.Merge(tr.Segments, moments.Options{
		MinDuration: cfg.Clips.MinDurationSeconds,
		MaxDuration: cfg.Clips.MaxDurationSeconds,
		MaxPauseGap: cfg.Clips.MaxPauseGapSeconds,
	})
	log.Info("candidate moments merged", "count", len(candidates))

	scorer := scoring.New(cfg.Weights)
	for i := range candidates {
		candidates[i] = scorer.Score(candidates[i], totalDuration, signal)
	}
	sort.SliceStable(candidates, func(i, j int) bool {
		return candidates[i].Score > candidates[j].Score
	})

	selected := selection.Select(candidates, cfg.Clips.MaxCount, selection.Options{
		SimilarityThreshold: cfg.Clips.SimilarityThreshold,
		TimeWindow:          cfg.Clips.DedupTimeWindowSeconds,
	})
	// Render in timeline order so clip numbering follows the video.
	sort.SliceStable(selected, func(i, j int) bool {
		return selected[i].Start < selected[j].Start
	})
	log.Info("moments selected", "count", len(selected))

	coordinator := render.New(u.d.Transcoder, log)
	results := coordinator.Render(ctx, source, selected, render.Options{
		MinDuration: cfg.Clips.MinDurationSeconds,
		MaxDuration: cfg.Clips.MaxDurationSeconds,
		MaxWorkers:  cfg.Render.MaxWorkers,
		OutDir:      in.OutDir,
	})

	rendered := 0
	clips := make([]Clip, 0, len(results))
	for _, r := range results {
		c := Clip{Moment: selected[r.MomentIndex]}
		if r.Rendered() {
			rendered++
			c.Path = r.OutputPath
		} else {
			c.Skipped = r.FailureReason
		}
		clips = append(clips, c)
	}

	settlement := settle.Settle(ctx, rendered)
	log.Info("pipeline finished",
		"selected", len(selected), "rendered", rendered,
		"charged", settlement.ActualCost, "refunded", settlement.RefundAmount)

	return Result{Clips: clips, Settlement: settlement, Summary: summary}, nil
}

// trimSource caps the amount of source fed to transcription and
// rendering. Sources under the cap are used as-is.
func (u Usecase) trimSource(ctx context.Context, sourcePath, cacheDir string, maxDuration float64) (string, error) {
	if maxDuration <= 0 {
		return sourcePath, nil
	}
	dur, err := u.d.Transcoder.ProbeDuration(ctx, sourcePath)
	if err != nil {
		return "", fmt.Errorf("probe source: %w", err)
	}
	if dur <= maxDuration {
		return sourcePath, nil
	}
	trimmed := filepath.Join(cacheDir, "trimmed"+filepath.Ext(sourcePath))
	u.d.Log.Info("trimming source", "duration", dur, "max", maxDuration, "out", trimmed)
	if err := u.d.Transcoder.Trim(ctx, sourcePath, maxDuration, trimmed); err != nil {
		return "", fmt.Errorf("trim source: %w", err)
	}
	return trimmed, nil
}

// fetchRelevance consults the LLM collaborator once for the whole
// transcript. Failure degrades to a nil signal unless the deployment
// declared the collaborator mandatory.
func (u Usecase) fetchRelevance(ctx context.Context, tr types.Transcript, totalDuration float64, cfg config.Config) (*types.RelevanceSignal, string, error) {
	if u.d.Relevance == nil || !cfg.Relevance.Enabled {
		return nil, "", nil
	}
	signal, err := u.d.Relevance.Analyze(ctx, tr, totalDuration)
	if err != nil {
		if cfg.Relevance.Mandatory {
			return nil, "", fmt.Errorf("relevance analysis: %w", err)
		}
		u.d.Log.Warn("relevance analysis unavailable, scoring without it", "err", err)
		return nil, "", nil
	}
	u.d.Log.Info("relevance signal fetched", "intervals", len(signal.Intervals))
	return signal, signal.Summary, nil
}
