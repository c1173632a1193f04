package domain

import (
	"errors"
	"fmt"
	"testing"
)

func TestIsRetryable(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{
			name: "lock timeout",
			err:  ErrLockTimeout,
			want: true,
		},
		{
			name: "wrapped lock timeout",
			err:  fmt.Errorf("lock account 42: %w", ErrLockTimeout),
			want: true,
		},
		{
			name: "joined lock timeout",
			err:  errors.Join(errors.New("rollback failed"), ErrLockTimeout),
			want: true,
		},
		{
			name: "business error",
			err:  ErrInsufficientBalance,
			want: false,
		},
		{
			name: "delivery failure is not retried by the core",
			err:  ErrDeliveryFailed,
			want: false,
		},
		{
			name: "nil error",
			err:  nil,
			want: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := IsRetryable(tt.err); got != tt.want {
				t.Errorf("IsRetryable() = %v, want %v", got, tt.want)
			}
		})
	}
}
