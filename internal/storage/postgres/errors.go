package postgres

import (
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5/pgconn"

	"github.com/vladislavdragonenkov/tpoints/internal/domain"
)

const (
	codeUniqueViolation   = "23505"
	codeLockNotAvailable  = "55P03"
	codeDeadlockDetected  = "40P01"
	codeSerializationFail = "40001"
)

func pgCode(err error) string {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code
	}
	return ""
}

func isUniqueViolation(err error) bool {
	return pgCode(err) == codeUniqueViolation
}

// mapError переводит ошибки блокировок PostgreSQL в ErrLockTimeout, сохраняя исходную ошибку.
func mapError(err error) error {
	if err == nil {
		return nil
	}
	switch pgCode(err) {
	case codeLockNotAvailable, codeDeadlockDetected, codeSerializationFail:
		return fmt.Errorf("%w: %v", domain.ErrLockTimeout, err)
	default:
		return err
	}
}
