// Package render runs the bounded parallel pool that turns selected
// moments into output clips.
package render

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"sync"

	"github.com/google/uuid"

	"github.com/forPelevin/clipcut/internal/domain/subtitles"
	"github.com/forPelevin/clipcut/internal/ports"
	"github.com/forPelevin/clipcut/internal/types"
)

// Options configures one coordinator run.
type Options struct {
	MinDuration float64 // seconds
	MaxDuration float64 // seconds
	MaxWorkers  int
	OutDir      string
}

// minDurationTolerance lets a moment run slightly under the configured
// minimum before the job is skipped.
const minDurationTolerance = 5.0

// Coordinator renders selected moments through the transcode collaborator.
type Coordinator struct {
	transcoder ports.Transcoder
	log        *slog.Logger
}

func New(transcoder ports.Transcoder, log *slog.Logger) *Coordinator {
	return &Coordinator{transcoder: transcoder, log: log}
}

// Render dispatches one job per moment to a bounded worker pool and
// collects the results in the original selection order. A job failure is
// converted into a skipped result; it never aborts sibling jobs. The
// returned slice always has len(moments) entries.
func (c *Coordinator) Render(ctx context.Context, sourcePath string, selected []types.Moment, opts Options) []types.RenderResult {
	results := make([]types.RenderResult, 0, len(selected))

	jobs := make([]int, 0, len(selected))
	for i, m := range selected {
		if reason, ok := c.validate(m, opts); !ok {
			c.log.Warn("moment skipped before render",
				"index", i, "start", m.Start, "end", m.End, "reason", reason)
			results = append(results, types.RenderResult{MomentIndex: i, FailureReason: reason})
			continue
		}
		jobs = append(jobs, i)
	}

	workers := opts.MaxWorkers
	if len(jobs) < workers {
		workers = len(jobs)
	}
	if workers == 0 {
		return results
	}

	jobCh := make(chan int)
	resCh := make(chan types.RenderResult, len(jobs))

	var wg sync.WaitGroup
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for idx := range jobCh {
				resCh <- c.renderOne(ctx, sourcePath, idx, selected[idx], opts)
			}
		}()
	}
	for _, idx := range jobs {
		jobCh <- idx
	}
	close(jobCh)
	wg.Wait()
	close(resCh)

	for r := range resCh {
		results = append(results, r)
	}
	// Completion order is arbitrary; callers get selection order back.
	sort.Slice(results, func(i, j int) bool {
		return results[i].MomentIndex < results[j].MomentIndex
	})
	return results
}

func (c *Coordinator) validate(m types.Moment, opts Options) (string, bool) {
	dur := m.Duration()
	if dur > opts.MaxDuration {
		return fmt.Sprintf("duration %.1fs above maximum %.1fs", dur, opts.MaxDuration), false
	}
	if dur < opts.MinDuration-minDurationTolerance {
		return fmt.Sprintf("duration %.1fs below minimum %.1fs", dur, opts.MinDuration), false
	}
	if dur < opts.MinDuration {
		c.log.Warn("moment shorter than configured minimum, rendering anyway",
			"duration", dur, "min", opts.MinDuration)
	}
	return "", true
}

// renderOne is the per-job boundary: any failure, including a panic from
// the caption builder or an adapter, is caught here and reported as a
// skipped result so sibling jobs keep running.
func (c *Coordinator) renderOne(ctx context.Context, sourcePath string, idx int, m types.Moment, opts Options) (res types.RenderResult) {
	defer func() {
		if r := recover(); r != nil {
			c.log.Error("render job panicked", "index", idx, "panic", r)
			res = types.RenderResult{MomentIndex: idx, FailureReason: fmt.Sprintf("render panic: %v", r)}
		}
	}()
	jobID := uuid.NewString()
	outPath := filepath.Join(opts.OutDir, fmt.Sprintf("clip_%03d_%s.mp4", idx+1, jobID[:8]))
	captionPath := filepath.Join(opts.OutDir, fmt.Sprintf("clip_%03d_%s.ass", idx+1, jobID[:8]))

	if err := os.WriteFile(captionPath, []byte(subtitles.Render(m)), 0o644); err != nil {
		c.log.Error("write captions failed", "index", idx, "err", err)
		return types.RenderResult{MomentIndex: idx, FailureReason: fmt.Sprintf("write captions: %v", err)}
	}
	// Caption files are per-job scratch; each worker cleans up its own.
	defer os.Remove(captionPath)

	if err := c.transcoder.RenderClip(ctx, sourcePath, m.Start, m.End, captionPath, outPath); err != nil {
		c.log.Error("render job failed", "index", idx, "start", m.Start, "end", m.End, "err", err)
		return types.RenderResult{MomentIndex: idx, FailureReason: fmt.Sprintf("transcode: %v", err)}
	}

	c.log.Info("clip rendered", "index", idx, "start", m.Start, "end", m.End, "path", outPath)
	return types.RenderResult{MomentIndex: idx, OutputPath: outPath}
}
