package domain_test

import (
	"errors"
	"testing"

	"github.com/vladislavdragonenkov/tpoints/internal/domain"
)

func TestTransactionKind_ValidateAmount(t *testing.T) {
	tests := []struct {
		name    string
		kind    domain.TransactionKind
		amount  int64
		wantErr error
	}{
		{name: "purchase debit", kind: domain.TransactionPurchase, amount: -400},
		{name: "refund credit", kind: domain.TransactionRefund, amount: 600},
		{name: "top up credit", kind: domain.TransactionTopUp, amount: 10},
		{name: "manual debit", kind: domain.TransactionDebit, amount: -10},
		{name: "earning credit", kind: domain.TransactionEarning, amount: 1000},
		{name: "zero amount", kind: domain.TransactionTopUp, amount: 0, wantErr: domain.ErrInvalidAmount},
		{name: "positive purchase", kind: domain.TransactionPurchase, amount: 100, wantErr: domain.ErrAmountSignMismatch},
		{name: "negative refund", kind: domain.TransactionRefund, amount: -100, wantErr: domain.ErrAmountSignMismatch},
		{name: "unknown kind", kind: "bonus", amount: 100, wantErr: domain.ErrUnknownTransactionKind},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.kind.ValidateAmount(tt.amount)
			if tt.wantErr == nil {
				if err != nil {
					t.Fatalf("unexpected error: %v", err)
				}
				return
			}
			if !errors.Is(err, tt.wantErr) {
				t.Fatalf("expected %v, got %v", tt.wantErr, err)
			}
		})
	}
}

func TestParseTransactionKind(t *testing.T) {
	kind, err := domain.ParseTransactionKind("top_up")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if kind != domain.TransactionTopUp {
		t.Fatalf("expected top_up, got %s", kind)
	}
	if kind.DisplayName() != "Top-up" {
		t.Fatalf("unexpected display name %q", kind.DisplayName())
	}

	if _, err := domain.ParseTransactionKind("cashback"); !errors.Is(err, domain.ErrUnknownTransactionKind) {
		t.Fatalf("expected ErrUnknownTransactionKind, got %v", err)
	}
}
