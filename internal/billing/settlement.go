// Package billing reserves a worst-case cost before any work starts and
// reconciles it against the clips actually produced.
package billing

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/forPelevin/clipcut/internal/ports"
	"github.com/forPelevin/clipcut/internal/types"
)

// ErrInsufficientFunds is returned by Reserve when the user's balance
// cannot cover the worst-case cost. No work may start in that case.
var ErrInsufficientFunds = errors.New("insufficient funds")

// Settlement drives the reserve/charge/refund protocol against the
// ledger collaborator for one pipeline run.
type Settlement struct {
	ledger      ports.Ledger
	log         *slog.Logger
	userID      string
	costPerClip int64

	reserved int64
}

func New(ledger ports.Ledger, log *slog.Logger, userID string, costPerClip int64) *Settlement {
	return &Settlement{ledger: ledger, log: log, userID: userID, costPerClip: costPerClip}
}

// Reserve holds maxClips worth of cost against the user's balance.
// It returns ErrInsufficientFunds without reserving anything when the
// balance is too low.
func (s *Settlement) Reserve(ctx context.Context, maxClips int) error {
	amount := int64(maxClips) * s.costPerClip
	balance, err := s.ledger.Balance(ctx, s.userID)
	if err != nil {
		return fmt.Errorf("ledger balance: %w", err)
	}
	if balance < amount {
		return fmt.Errorf("%w: balance %d, need %d", ErrInsufficientFunds, balance, amount)
	}
	if err := s.ledger.Reserve(ctx, s.userID, amount); err != nil {
		// A concurrent run can drain the balance between the check and the
		// hold; surface that as insufficient funds, not a generic failure.
		if errors.Is(err, ports.ErrInsufficientBalance) {
			return fmt.Errorf("%w: %v", ErrInsufficientFunds, err)
		}
		return fmt.Errorf("ledger reserve: %w", err)
	}
	s.reserved = amount
	s.log.Info("cost reserved", "user", s.userID, "amount", amount)
	return nil
}

// Settle charges for the clips actually rendered and refunds the rest of
// the reservation. A failing ledger call is logged and the computed
// settlement is still returned; it must not mask the pipeline result.
func (s *Settlement) Settle(ctx context.Context, renderedClips int) types.Settlement {
	actual := int64(renderedClips) * s.costPerClip
	if actual > s.reserved {
		actual = s.reserved
	}
	refund := s.reserved - actual

	if actual > 0 {
		if err := s.ledger.Charge(ctx, s.userID, actual); err != nil {
			s.log.Error("ledger charge failed", "user", s.userID, "amount", actual, "err", err)
		}
	}
	if refund > 0 {
		if err := s.ledger.Refund(ctx, s.userID, refund, "unused reservation"); err != nil {
			s.log.Error("ledger refund failed", "user", s.userID, "amount", refund, "err", err)
		}
	}
	s.log.Info("cost settled",
		"user", s.userID, "reserved", s.reserved, "charged", actual, "refunded", refund)
	return types.Settlement{ReservedCost: s.reserved, ActualCost: actual, RefundAmount: refund}
}

// Abort refunds the whole reservation after a fatal pipeline error.
// Best-effort: a failing refund is logged, never propagated.
func (s *Settlement) Abort(ctx context.Context, reason string) types.Settlement {
	if s.reserved > 0 {
		if err := s.ledger.Refund(ctx, s.userID, s.reserved, reason); err != nil {
			s.log.Error("ledger full refund failed", "user", s.userID, "amount", s.reserved, "err", err)
		} else {
			s.log.Info("reservation fully refunded", "user", s.userID, "amount", s.reserved, "reason", reason)
		}
	}
	return types.Settlement{ReservedCost: s.reserved, ActualCost: 0, RefundAmount: s.reserved}
}
