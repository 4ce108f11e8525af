// Package ports declares the interfaces of the external collaborators the
// engine drives. Adapters live under ports/adapters.
package ports

import (
	"context"
	"errors"

	"github.com/forPelevin/clipcut/internal/types"
)

// ErrInsufficientBalance is returned by Ledger.Reserve when the balance
// cannot cover the requested hold, including when a concurrent run drained
// it between a balance check and the reservation.
var ErrInsufficientBalance = errors.New("insufficient balance")

// Transcriber is the speech-to-text collaborator. Returned segments are
// sorted ascending by start, non-overlapping, with all timing in seconds.
type Transcriber interface {
	Transcribe(ctx context.Context, mediaPath, cacheDir string) (types.Transcript, error)
}

// RelevanceAnalyzer is the optional LLM collaborator. It sees the whole
// formatted transcript once and returns externally scored intervals.
type RelevanceAnalyzer interface {
	Analyze(ctx context.Context, tr types.Transcript, totalDuration float64) (*types.RelevanceSignal, error)
}

// Transcoder cuts [start,end) seconds out of the source, crops and scales
// to the portrait target and burns the caption track, in a single pass.
type Transcoder interface {
	RenderClip(ctx context.Context, sourcePath string, start, end float64, captionPath, outPath string) error
	ProbeDuration(ctx context.Context, mediaPath string) (float64, error)
	Trim(ctx context.Context, sourcePath string, maxDuration float64, outPath string) error
}

// Ledger is the billing collaborator, keyed by an opaque user identifier.
// Reserve moves funds out of the balance into a hold; Charge consumes from
// the hold; Refund returns held funds to the balance.
type Ledger interface {
	Balance(ctx context.Context, userID string) (int64, error)
	Reserve(ctx context.Context, userID string, amount int64) error
	Charge(ctx context.Context, userID string, amount int64) error
	Refund(ctx context.Context, userID string, amount int64, reason string) error
}
