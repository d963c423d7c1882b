package db

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/jackc/pgx/v5/pgconn"
)

func TestTxFromContext_Nil(t *testing.T) {
	if tx := TxFromContext(context.Background()); tx != nil {
		t.Error("expected nil tx from empty context")
	}
}

func TestTxFromContext_WithWrongType(t *testing.T) {
	ctx := context.WithValue(context.Background(), txKey, "not-a-tx")
	if tx := TxFromContext(ctx); tx != nil {
		t.Error("expected nil tx for wrong value type")
	}
}

func TestWithinTx_NoPool(t *testing.T) {
	tr := NewTransactor(nil)
	called := false
	err := tr.WithinTx(context.Background(), func(ctx context.Context) error {
		called = true
		return nil
	})
	if err == nil {
		t.Fatal("expected error without a pool")
	}
	if called {
		t.Error("fn must not run without a transaction")
	}
}

func TestIsUniqueViolation(t *testing.T) {
	pgErr := &pgconn.PgError{Code: "23505", ConstraintName: "appointments_doctor_slot_upcoming"}
	wrapped := fmt.Errorf("insert appointment: %w", pgErr)

	if !IsUniqueViolation(wrapped, "") {
		t.Error("expected wrapped unique violation to match")
	}
	if !IsUniqueViolation(wrapped, "appointments_doctor_slot_upcoming") {
		t.Error("expected named constraint to match")
	}
	if IsUniqueViolation(wrapped, "users_email_key") {
		t.Error("expected other constraint not to match")
	}
	if IsUniqueViolation(&pgconn.PgError{Code: "23503"}, "") {
		t.Error("expected foreign key violation not to match")
	}
	if IsUniqueViolation(errors.New("boom"), "") {
		t.Error("expected plain error not to match")
	}
}
