package payment

import (
	"context"
	"errors"
	"testing"

	"github.com/shopspring/decimal"

	"github.com/fitcore/fitcore-api/internal/domain/referral"
	"github.com/fitcore/fitcore-api/internal/domain/wallet"
	"github.com/fitcore/fitcore-api/internal/testutil"
)

// A fault injected between the payment update and the derived writes must
// roll back the whole decision: payment status, wallet balance and ledger
// all stay untouched.
func TestSettleRollsBackOnInjectedFault(t *testing.T) {
	db := testutil.SetupDB(t)
	defer testutil.Cleanup(db)

	wallets := wallet.NewRepository(db, "USD")
	svc := NewService(db, NewRepository(db), wallets, referral.NewRepository(db), nil, nil)

	ctx := context.Background()
	referrer := testutil.CreateUser(t, db)
	member := testutil.CreateUser(t, db)
	testutil.CreateReferral(t, db, referrer, member, "completed")

	program := testutil.CreateProgram(t, db, decimal.NewFromInt(100))
	paymentID := testutil.CreatePayment(t, db, member, program, decimal.NewFromInt(100), "pending")

	injected := errors.New("injected fault")
	svc.failAfterUpdate = func() error { return injected }

	status := string(StatusApproved)
	if _, err := svc.Settle(ctx, paymentID, Decision{Status: &status}); !errors.Is(err, injected) {
		t.Fatalf("expected injected fault, got %v", err)
	}

	p, err := svc.repo.GetByID(ctx, paymentID)
	if err != nil {
		t.Fatalf("get payment: %v", err)
	}
	if p.Status != StatusPending {
		t.Fatalf("expected payment to stay pending, got %s", p.Status)
	}
	if p.ProcessedAt.Valid {
		t.Fatal("processed_at must not survive the rollback")
	}

	var ledgerCount int
	if err := db.Get(&ledgerCount, "SELECT COUNT(*) FROM wallet_ledger_entries"); err != nil {
		t.Fatalf("count ledger entries: %v", err)
	}
	if ledgerCount != 0 {
		t.Fatalf("expected no ledger entries after rollback, got %d", ledgerCount)
	}

	// The settlement still works once the fault is gone.
	svc.failAfterUpdate = nil
	detail, err := svc.Settle(ctx, paymentID, Decision{Status: &status})
	if err != nil {
		t.Fatalf("settle after fault cleared: %v", err)
	}
	if detail.Status != StatusApproved {
		t.Fatalf("expected approved, got %s", detail.Status)
	}

	w, err := wallets.GetByUser(ctx, referrer)
	if err != nil {
		t.Fatalf("get referrer wallet: %v", err)
	}
	if !w.Balance.Equal(decimal.RequireFromString("10.00")) {
		t.Fatalf("expected bonus 10.00 after retry, got %s", w.Balance)
	}
}
