package inventory

import (
	"context"
	"errors"
	"testing"
)

func TestMockService(t *testing.T) {
	ctx := context.Background()
	mock := NewMockService()
	if mock == nil {
		t.Fatal("expected non-nil mock")
	}

	ok, err := mock.ReserveStock(ctx, nil, 1, "", 2)
	if err != nil || !ok {
		t.Fatalf("unexpected reserve result: ok=%v err=%v", ok, err)
	}
	if err := mock.RestoreStock(ctx, nil, 1, "", 2); err != nil {
		t.Fatalf("unexpected restore error: %v", err)
	}
	if mock.ReserveCalls != 1 || mock.RestoreCalls != 1 {
		t.Fatalf("unexpected call counters: reserve=%d restore=%d", mock.ReserveCalls, mock.RestoreCalls)
	}
	if mock.Restored[1] != 2 {
		t.Fatalf("expected 2 restored units, got %d", mock.Restored[1])
	}

	mock.OutOfStock[7] = true
	if ok, _ := mock.ReserveStock(ctx, nil, 7, "", 1); ok {
		t.Fatal("expected out of stock")
	}

	mock.ReserveErr = errors.New("reserve failed")
	mock.RestoreErr = errors.New("restore failed")
	if _, err := mock.ReserveStock(ctx, nil, 1, "", 1); err == nil {
		t.Fatal("expected reserve error")
	}
	if err := mock.RestoreStock(ctx, nil, 1, "", 1); err == nil {
		t.Fatal("expected restore error")
	}
}
