package payment_test

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
	"github.com/shopspring/decimal"

	"github.com/fitcore/fitcore-api/internal/domain/payment"
	"github.com/fitcore/fitcore-api/internal/domain/referral"
	"github.com/fitcore/fitcore-api/internal/domain/wallet"
	"github.com/fitcore/fitcore-api/internal/testutil"
)

func newTestService(db *sqlx.DB) (*payment.Service, *wallet.Repository) {
	wallets := wallet.NewRepository(db, "USD")
	svc := payment.NewService(db, payment.NewRepository(db), wallets, referral.NewRepository(db), nil, nil)
	return svc, wallets
}

func strPtr(s string) *string { return &s }

func approved() *string { return strPtr(string(payment.StatusApproved)) }

func TestSettleApprovePostsReferralBonus(t *testing.T) {
	db := testutil.SetupDB(t)
	defer testutil.Cleanup(db)

	svc, wallets := newTestService(db)
	ctx := context.Background()

	referrer := testutil.CreateUser(t, db)
	member := testutil.CreateUser(t, db)
	testutil.CreateReferral(t, db, referrer, member, "completed")

	program := testutil.CreateProgram(t, db, decimal.NewFromInt(100))
	paymentID := testutil.CreatePayment(t, db, member, program, decimal.NewFromInt(100), "pending")

	detail, err := svc.Settle(ctx, paymentID, payment.Decision{Status: approved()})
	if err != nil {
		t.Fatalf("settle failed: %v", err)
	}
	if detail.Status != payment.StatusApproved {
		t.Fatalf("expected approved, got %s", detail.Status)
	}
	if !detail.ProcessedAt.Valid {
		t.Fatal("expected processed_at to be set")
	}

	w, err := wallets.GetByUser(ctx, referrer)
	if err != nil {
		t.Fatalf("get referrer wallet: %v", err)
	}
	if !w.Balance.Equal(decimal.RequireFromString("10.00")) {
		t.Fatalf("expected referrer balance 10.00, got %s", w.Balance)
	}

	entries, err := wallets.LedgerEntries(ctx, w.ID, 10, 0)
	if err != nil {
		t.Fatalf("ledger entries: %v", err)
	}
	if len(entries) != 1 {
		t.Fatalf("expected 1 ledger entry, got %d", len(entries))
	}
	e := entries[0]
	if e.Type != wallet.LedgerCredit {
		t.Fatalf("expected credit entry, got %s", e.Type)
	}
	if e.ReferenceID != paymentID || e.ReferenceType != wallet.ReferencePayment {
		t.Fatalf("ledger entry does not reference the payment: %s/%s", e.ReferenceID, e.ReferenceType)
	}
}

func TestSettleReapprovalDoesNotRepayBonus(t *testing.T) {
	db := testutil.SetupDB(t)
	defer testutil.Cleanup(db)

	svc, wallets := newTestService(db)
	ctx := context.Background()

	referrer := testutil.CreateUser(t, db)
	member := testutil.CreateUser(t, db)
	testutil.CreateReferral(t, db, referrer, member, "completed")

	program := testutil.CreateProgram(t, db, decimal.NewFromInt(50))
	paymentID := testutil.CreatePayment(t, db, member, program, decimal.NewFromInt(50), "pending")

	if _, err := svc.Settle(ctx, paymentID, payment.Decision{Status: approved()}); err != nil {
		t.Fatalf("first settle failed: %v", err)
	}
	if _, err := svc.Settle(ctx, paymentID, payment.Decision{Status: approved(), AdminNotes: strPtr("verified twice")}); err != nil {
		t.Fatalf("second settle failed: %v", err)
	}

	w, err := wallets.GetByUser(ctx, referrer)
	if err != nil {
		t.Fatalf("get referrer wallet: %v", err)
	}
	if !w.Balance.Equal(decimal.RequireFromString("5.00")) {
		t.Fatalf("expected single bonus of 5.00, got balance %s", w.Balance)
	}
}

func TestSettleConcurrentApprovalsPostSingleBonus(t *testing.T) {
	db := testutil.SetupDB(t)
	defer testutil.Cleanup(db)

	svc, wallets := newTestService(db)
	ctx := context.Background()

	referrer := testutil.CreateUser(t, db)
	member := testutil.CreateUser(t, db)
	testutil.CreateReferral(t, db, referrer, member, "completed")

	program := testutil.CreateProgram(t, db, decimal.NewFromInt(100))
	paymentID := testutil.CreatePayment(t, db, member, program, decimal.NewFromInt(100), "pending")

	const workers = 8
	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := svc.Settle(ctx, paymentID, payment.Decision{Status: approved()}); err != nil {
				t.Errorf("settle failed: %v", err)
			}
		}()
	}
	wg.Wait()

	w, err := wallets.GetByUser(ctx, referrer)
	if err != nil {
		t.Fatalf("get referrer wallet: %v", err)
	}
	if !w.Balance.Equal(decimal.RequireFromString("10.00")) {
		t.Fatalf("expected exactly one bonus of 10.00, got balance %s", w.Balance)
	}

	entries, err := wallets.LedgerEntries(ctx, w.ID, 10, 0)
	if err != nil {
		t.Fatalf("ledger entries: %v", err)
	}
	if len(entries) != 1 {
		t.Fatalf("expected 1 ledger entry, got %d", len(entries))
	}
}

func TestSettleWithoutReferralPostsNothing(t *testing.T) {
	db := testutil.SetupDB(t)
	defer testutil.Cleanup(db)

	svc, _ := newTestService(db)
	ctx := context.Background()

	member := testutil.CreateUser(t, db)
	program := testutil.CreateProgram(t, db, decimal.NewFromInt(75))
	paymentID := testutil.CreatePayment(t, db, member, program, decimal.NewFromInt(75), "pending")

	if _, err := svc.Settle(ctx, paymentID, payment.Decision{Status: approved()}); err != nil {
		t.Fatalf("settle failed: %v", err)
	}

	var count int
	if err := db.Get(&count, "SELECT COUNT(*) FROM wallet_ledger_entries"); err != nil {
		t.Fatalf("count ledger entries: %v", err)
	}
	if count != 0 {
		t.Fatalf("expected no ledger entries, got %d", count)
	}
}

func TestSettlePendingReferralPostsNothing(t *testing.T) {
	db := testutil.SetupDB(t)
	defer testutil.Cleanup(db)

	svc, _ := newTestService(db)
	ctx := context.Background()

	referrer := testutil.CreateUser(t, db)
	member := testutil.CreateUser(t, db)
	testutil.CreateReferral(t, db, referrer, member, "pending")

	program := testutil.CreateProgram(t, db, decimal.NewFromInt(100))
	paymentID := testutil.CreatePayment(t, db, member, program, decimal.NewFromInt(100), "pending")

	if _, err := svc.Settle(ctx, paymentID, payment.Decision{Status: approved()}); err != nil {
		t.Fatalf("settle failed: %v", err)
	}

	var count int
	if err := db.Get(&count, "SELECT COUNT(*) FROM wallet_ledger_entries"); err != nil {
		t.Fatalf("count ledger entries: %v", err)
	}
	if count != 0 {
		t.Fatalf("expected no ledger entries for pending referral, got %d", count)
	}
}

func TestSettlePartialDecisionLeavesStatus(t *testing.T) {
	db := testutil.SetupDB(t)
	defer testutil.Cleanup(db)

	svc, _ := newTestService(db)
	ctx := context.Background()

	member := testutil.CreateUser(t, db)
	program := testutil.CreateProgram(t, db, decimal.NewFromInt(60))
	paymentID := testutil.CreatePayment(t, db, member, program, decimal.NewFromInt(60), "pending")

	detail, err := svc.Settle(ctx, paymentID, payment.Decision{AdminNotes: strPtr("awaiting bank confirmation")})
	if err != nil {
		t.Fatalf("settle failed: %v", err)
	}
	if detail.Status != payment.StatusPending {
		t.Fatalf("notes-only decision must not change status, got %s", detail.Status)
	}
	if !detail.Amount.Equal(decimal.NewFromInt(60)) {
		t.Fatalf("amount changed unexpectedly: %s", detail.Amount)
	}
	if detail.AdminNotes.String != "awaiting bank confirmation" {
		t.Fatalf("admin notes not applied: %q", detail.AdminNotes.String)
	}
}

func TestSettleErrors(t *testing.T) {
	db := testutil.SetupDB(t)
	defer testutil.Cleanup(db)

	svc, _ := newTestService(db)
	ctx := context.Background()

	if _, err := svc.Settle(ctx, uuid.New(), payment.Decision{}); !errors.Is(err, payment.ErrEmptyDecision) {
		t.Fatalf("expected ErrEmptyDecision, got %v", err)
	}

	neg := decimal.NewFromInt(-5)
	if _, err := svc.Settle(ctx, uuid.New(), payment.Decision{Amount: &neg}); !errors.Is(err, payment.ErrInvalidAmount) {
		t.Fatalf("expected ErrInvalidAmount, got %v", err)
	}

	if _, err := svc.Settle(ctx, uuid.New(), payment.Decision{Status: approved()}); !errors.Is(err, payment.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestBulkSettleSkipsMissingIDs(t *testing.T) {
	db := testutil.SetupDB(t)
	defer testutil.Cleanup(db)

	svc, _ := newTestService(db)
	ctx := context.Background()

	member := testutil.CreateUser(t, db)
	program := testutil.CreateProgram(t, db, decimal.NewFromInt(30))
	p1 := testutil.CreatePayment(t, db, member, program, decimal.NewFromInt(30), "pending")
	p2 := testutil.CreatePayment(t, db, member, program, decimal.NewFromInt(30), "pending")
	missing := uuid.New()

	details, err := svc.BulkSettle(ctx, []uuid.UUID{p1, missing, p2}, payment.StatusApproved, strPtr("batch reviewed"))
	if err != nil {
		t.Fatalf("bulk settle failed: %v", err)
	}
	if len(details) != 2 {
		t.Fatalf("expected 2 settled payments, got %d", len(details))
	}
	for _, d := range details {
		if d.Status != payment.StatusApproved {
			t.Fatalf("payment %s not approved: %s", d.ID, d.Status)
		}
	}
}

func TestBulkSettleAllMissing(t *testing.T) {
	db := testutil.SetupDB(t)
	defer testutil.Cleanup(db)

	svc, _ := newTestService(db)

	_, err := svc.BulkSettle(context.Background(), []uuid.UUID{uuid.New(), uuid.New()}, payment.StatusApproved, nil)
	if !errors.Is(err, payment.ErrNoneFound) {
		t.Fatalf("expected ErrNoneFound, got %v", err)
	}
}

func TestBulkSettlePostsBonusPerPayment(t *testing.T) {
	db := testutil.SetupDB(t)
	defer testutil.Cleanup(db)

	svc, wallets := newTestService(db)
	ctx := context.Background()

	referrer := testutil.CreateUser(t, db)
	member := testutil.CreateUser(t, db)
	testutil.CreateReferral(t, db, referrer, member, "completed")

	program := testutil.CreateProgram(t, db, decimal.NewFromInt(100))
	p1 := testutil.CreatePayment(t, db, member, program, decimal.NewFromInt(100), "pending")
	p2 := testutil.CreatePayment(t, db, member, program, decimal.NewFromInt(200), "pending")

	if _, err := svc.BulkSettle(ctx, []uuid.UUID{p1, p2}, payment.StatusApproved, nil); err != nil {
		t.Fatalf("bulk settle failed: %v", err)
	}

	w, err := wallets.GetByUser(ctx, referrer)
	if err != nil {
		t.Fatalf("get referrer wallet: %v", err)
	}
	if !w.Balance.Equal(decimal.RequireFromString("30.00")) {
		t.Fatalf("expected 10.00 + 20.00 in bonuses, got %s", w.Balance)
	}
}

func TestDeletePendingPaymentRemovesRow(t *testing.T) {
	db := testutil.SetupDB(t)
	defer testutil.Cleanup(db)

	svc, _ := newTestService(db)
	ctx := context.Background()

	member := testutil.CreateUser(t, db)
	program := testutil.CreateProgram(t, db, decimal.NewFromInt(40))
	paymentID := testutil.CreatePayment(t, db, member, program, decimal.NewFromInt(40), "pending")

	result, err := svc.Delete(ctx, paymentID)
	if err != nil {
		t.Fatalf("delete failed: %v", err)
	}
	if !result.Deleted || result.Cancelled {
		t.Fatalf("expected hard delete, got %+v", result)
	}

	if _, err := svc.Get(ctx, paymentID); !errors.Is(err, payment.ErrNotFound) {
		t.Fatalf("expected ErrNotFound after delete, got %v", err)
	}
}

func TestDeleteProcessedPaymentCancels(t *testing.T) {
	db := testutil.SetupDB(t)
	defer testutil.Cleanup(db)

	svc, _ := newTestService(db)
	ctx := context.Background()

	member := testutil.CreateUser(t, db)
	program := testutil.CreateProgram(t, db, decimal.NewFromInt(40))
	paymentID := testutil.CreatePayment(t, db, member, program, decimal.NewFromInt(40), "approved")

	result, err := svc.Delete(ctx, paymentID)
	if err != nil {
		t.Fatalf("delete failed: %v", err)
	}
	if result.Deleted || !result.Cancelled {
		t.Fatalf("expected cancellation, got %+v", result)
	}

	detail, err := svc.Get(ctx, paymentID)
	if err != nil {
		t.Fatalf("get after cancel: %v", err)
	}
	if detail.Status != payment.StatusRejected {
		t.Fatalf("expected rejected after cancel, got %s", detail.Status)
	}
	if detail.AdminNotes.String != "cancelled by admin" {
		t.Fatalf("expected cancellation note, got %q", detail.AdminNotes.String)
	}
}

func TestExportFiltersByStatusAndDate(t *testing.T) {
	db := testutil.SetupDB(t)
	defer testutil.Cleanup(db)

	svc, _ := newTestService(db)
	ctx := context.Background()

	member := testutil.CreateUser(t, db)
	program := testutil.CreateProgram(t, db, decimal.NewFromInt(20))
	testutil.CreatePayment(t, db, member, program, decimal.NewFromInt(20), "pending")
	approvedID := testutil.CreatePayment(t, db, member, program, decimal.NewFromInt(20), "approved")

	result, err := svc.Export(ctx, payment.ExportFilter{Status: payment.StatusApproved})
	if err != nil {
		t.Fatalf("export failed: %v", err)
	}
	if result.TotalRecords != 1 || len(result.Payments) != 1 {
		t.Fatalf("expected 1 approved payment, got %d", result.TotalRecords)
	}
	if result.Payments[0].ID != approvedID {
		t.Fatalf("wrong payment exported: %s", result.Payments[0].ID)
	}

	all, err := svc.Export(ctx, payment.ExportFilter{})
	if err != nil {
		t.Fatalf("export failed: %v", err)
	}
	if all.TotalRecords != 2 {
		t.Fatalf("expected 2 payments without filter, got %d", all.TotalRecords)
	}
}
