package payment

import (
	"database/sql"
	"testing"

	"github.com/shopspring/decimal"
)

func TestDecisionIsEmpty(t *testing.T) {
	if !(Decision{}).IsEmpty() {
		t.Fatal("zero decision must be empty")
	}

	notes := "checked"
	if (Decision{AdminNotes: &notes}).IsEmpty() {
		t.Fatal("decision with notes must not be empty")
	}
}

func TestDecisionApplyToMergesPresentFieldsOnly(t *testing.T) {
	p := &Payment{
		Amount:     decimal.NewFromInt(100),
		Status:     StatusPending,
		AdminNotes: sql.NullString{String: "old note", Valid: true},
	}

	status := string(StatusApproved)
	amount := decimal.RequireFromString("99.95")
	(Decision{Status: &status, Amount: &amount}).ApplyTo(p)

	if p.Status != StatusApproved {
		t.Fatalf("status not applied: %s", p.Status)
	}
	if !p.Amount.Equal(amount) {
		t.Fatalf("amount not applied: %s", p.Amount)
	}
	if p.AdminNotes.String != "old note" {
		t.Fatalf("absent field overwrote notes: %q", p.AdminNotes.String)
	}

	// An explicit empty string is a present value, distinct from absent.
	empty := ""
	(Decision{AdminNotes: &empty}).ApplyTo(p)
	if p.AdminNotes.String != "" || !p.AdminNotes.Valid {
		t.Fatalf("empty notes not applied: %+v", p.AdminNotes)
	}
}
