package payment_test

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	_ "github.com/lib/pq"
	"github.com/shopspring/decimal"

	"github.com/fitcore/fitcore-api/internal/domain/payment"
	"github.com/fitcore/fitcore-api/internal/middleware"
	"github.com/fitcore/fitcore-api/internal/pkg/jwt"
	"github.com/fitcore/fitcore-api/internal/testutil"
)

// A member-role caller must be refused before the engine reads or mutates
// anything: 403, payment untouched, no ledger activity.
func TestAdminRoutesRejectMemberRole(t *testing.T) {
	db := testutil.SetupDB(t)
	defer testutil.Cleanup(db)

	svc, _ := newTestService(db)
	jwtSvc := jwt.NewService("secret", time.Minute)

	r := chi.NewRouter()
	r.Mount("/payments", payment.NewHandler(svc).AdminRoutes(middleware.Auth(jwtSvc)))

	member := testutil.CreateUser(t, db)
	program := testutil.CreateProgram(t, db, decimal.NewFromInt(100))
	paymentID := testutil.CreatePayment(t, db, member, program, decimal.NewFromInt(100), "pending")

	token, err := jwtSvc.GenerateAccessToken(member, "member")
	if err != nil {
		t.Fatalf("token gen failed: %v", err)
	}

	body := strings.NewReader(`{"status": "approved"}`)
	req := httptest.NewRequest(http.MethodPut, "/payments/"+paymentID.String(), body)
	req.Header.Set("Authorization", "Bearer "+token)
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)

	if rec.Code != http.StatusForbidden {
		t.Fatalf("expected 403 for member role, got %d", rec.Code)
	}

	detail, err := svc.Get(req.Context(), paymentID)
	if err != nil {
		t.Fatalf("get payment: %v", err)
	}
	if detail.Status != payment.StatusPending {
		t.Fatalf("refused request must not mutate the payment, got %s", detail.Status)
	}

	var ledgerCount int
	if err := db.Get(&ledgerCount, "SELECT COUNT(*) FROM wallet_ledger_entries"); err != nil {
		t.Fatalf("count ledger entries: %v", err)
	}
	if ledgerCount != 0 {
		t.Fatalf("refused request must not touch the ledger, got %d entries", ledgerCount)
	}
}

func TestAdminRoutesAllowAdminRole(t *testing.T) {
	db := testutil.SetupDB(t)
	defer testutil.Cleanup(db)

	svc, _ := newTestService(db)
	jwtSvc := jwt.NewService("secret", time.Minute)

	r := chi.NewRouter()
	r.Mount("/payments", payment.NewHandler(svc).AdminRoutes(middleware.Auth(jwtSvc)))

	member := testutil.CreateUser(t, db)
	admin := testutil.CreateUser(t, db)
	program := testutil.CreateProgram(t, db, decimal.NewFromInt(100))
	paymentID := testutil.CreatePayment(t, db, member, program, decimal.NewFromInt(100), "pending")

	token, err := jwtSvc.GenerateAccessToken(admin, "admin")
	if err != nil {
		t.Fatalf("token gen failed: %v", err)
	}

	body := strings.NewReader(`{"status": "rejected", "admin_notes": "no receipt"}`)
	req := httptest.NewRequest(http.MethodPut, "/payments/"+paymentID.String(), body)
	req.Header.Set("Authorization", "Bearer "+token)
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200 for admin role, got %d: %s", rec.Code, rec.Body.String())
	}

	detail, err := svc.Get(req.Context(), paymentID)
	if err != nil {
		t.Fatalf("get payment: %v", err)
	}
	if detail.Status != payment.StatusRejected {
		t.Fatalf("expected rejected, got %s", detail.Status)
	}
}
