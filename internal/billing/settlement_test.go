package billing

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/forPelevin/clipcut/internal/logging"
	"github.com/forPelevin/clipcut/internal/ports"
)

type fakeLedger struct {
	balance  int64
	reserved int64
	charged  int64
	refunded int64
	reasons  []string

	balanceErr error
	reserveErr error
	refundErr  error
}

func (f *fakeLedger) Balance(context.Context, string) (int64, error) {
	return f.balance, f.balanceErr
}

func (f *fakeLedger) Reserve(_ context.Context, _ string, amount int64) error {
	if f.reserveErr != nil {
		return f.reserveErr
	}
	f.balance -= amount
	f.reserved += amount
	return nil
}

func (f *fakeLedger) Charge(_ context.Context, _ string, amount int64) error {
	f.reserved -= amount
	f.charged += amount
	return nil
}

func (f *fakeLedger) Refund(_ context.Context, _ string, amount int64, reason string) error {
	if f.refundErr != nil {
		return f.refundErr
	}
	f.reserved -= amount
	f.balance += amount
	f.refunded += amount
	f.reasons = append(f.reasons, reason)
	return nil
}

func TestSettlement_PartialRender(t *testing.T) {
	// Reserved for 3 clips at cost 1, only 2 rendered: charge 2, refund 1.
	ledger := &fakeLedger{balance: 10}
	s := New(ledger, logging.Discard(), "user-1", 1)

	if err := s.Reserve(context.Background(), 3); err != nil {
		t.Fatalf("reserve: %v", err)
	}
	got := s.Settle(context.Background(), 2)

	if got.ReservedCost != 3 || got.ActualCost != 2 || got.RefundAmount != 1 {
		t.Fatalf("unexpected settlement: %+v", got)
	}
	if ledger.charged != 2 || ledger.refunded != 1 {
		t.Fatalf("ledger calls wrong: charged=%d refunded=%d", ledger.charged, ledger.refunded)
	}
}

func TestSettlement_InsufficientFunds(t *testing.T) {
	ledger := &fakeLedger{balance: 2}
	s := New(ledger, logging.Discard(), "user-1", 1)

	err := s.Reserve(context.Background(), 3)
	if !errors.Is(err, ErrInsufficientFunds) {
		t.Fatalf("expected ErrInsufficientFunds, got %v", err)
	}
	if ledger.reserved != 0 {
		t.Fatalf("nothing should have been reserved, got %d", ledger.reserved)
	}
}

func TestSettlement_ConcurrentDrainIsInsufficientFunds(t *testing.T) {
	// The balance check passes but the hold fails because another run
	// drained the wallet in between.
	ledger := &fakeLedger{
		balance:    5,
		reserveErr: fmt.Errorf("reserve: %w", ports.ErrInsufficientBalance),
	}
	s := New(ledger, logging.Discard(), "user-1", 1)

	err := s.Reserve(context.Background(), 3)
	if !errors.Is(err, ErrInsufficientFunds) {
		t.Fatalf("expected ErrInsufficientFunds, got %v", err)
	}
}

func TestSettlement_ReserveLedgerFaultStaysGeneric(t *testing.T) {
	ledger := &fakeLedger{balance: 5, reserveErr: errors.New("db locked")}
	s := New(ledger, logging.Discard(), "user-1", 1)

	err := s.Reserve(context.Background(), 3)
	if err == nil || errors.Is(err, ErrInsufficientFunds) {
		t.Fatalf("a ledger fault must not look like insufficient funds: %v", err)
	}
}

func TestSettlement_AbortRefundsEverything(t *testing.T) {
	ledger := &fakeLedger{balance: 10}
	s := New(ledger, logging.Discard(), "user-1", 2)

	if err := s.Reserve(context.Background(), 3); err != nil {
		t.Fatalf("reserve: %v", err)
	}
	got := s.Abort(context.Background(), "transcription failed")

	if got.ReservedCost != 6 || got.ActualCost != 0 || got.RefundAmount != 6 {
		t.Fatalf("unexpected settlement: %+v", got)
	}
	if ledger.balance != 10 {
		t.Fatalf("expected balance restored, got %d", ledger.balance)
	}
	if len(ledger.reasons) != 1 || ledger.reasons[0] != "transcription failed" {
		t.Fatalf("expected refund reason recorded, got %v", ledger.reasons)
	}
}

func TestSettlement_ZeroClipsFullRefund(t *testing.T) {
	ledger := &fakeLedger{balance: 10}
	s := New(ledger, logging.Discard(), "user-1", 1)

	if err := s.Reserve(context.Background(), 3); err != nil {
		t.Fatalf("reserve: %v", err)
	}
	got := s.Settle(context.Background(), 0)
	if got.ActualCost != 0 || got.RefundAmount != 3 {
		t.Fatalf("unexpected settlement: %+v", got)
	}
	if ledger.charged != 0 {
		t.Fatalf("expected no charge, got %d", ledger.charged)
	}
}

func TestSettlement_LedgerFailureDoesNotMaskResult(t *testing.T) {
	ledger := &fakeLedger{balance: 10, refundErr: errors.New("ledger down")}
	s := New(ledger, logging.Discard(), "user-1", 1)

	if err := s.Reserve(context.Background(), 3); err != nil {
		t.Fatalf("reserve: %v", err)
	}
	// Settle still reports the computed amounts even though the refund
	// call failed.
	got := s.Settle(context.Background(), 1)
	if got.ActualCost != 1 || got.RefundAmount != 2 {
		t.Fatalf("unexpected settlement: %+v", got)
	}
}

func TestSettlement_BalanceErrorPropagates(t *testing.T) {
	ledger := &fakeLedger{balanceErr: errors.New("db locked")}
	s := New(ledger, logging.Discard(), "user-1", 1)
	if err := s.Reserve(context.Background(), 3); err == nil {
		t.Fatalf("expected error from balance lookup")
	}
}
