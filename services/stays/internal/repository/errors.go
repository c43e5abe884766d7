package repository

import (
	"errors"
	"fmt"

	"github.com/diagnosis/stays/services/stays/internal/domain"
	"github.com/jackc/pgx/v5/pgconn"
)

const (
	pgUniqueViolation     = "23505"
	pgForeignKeyViolation = "23503"
	pgExclusionViolation  = "23P01"
)

func pgCode(err error) string {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code
	}
	return ""
}

// storeErr maps constraint violations to domain errors and wraps the rest.
func storeErr(op string, err error) error {
	if err == nil {
		return nil
	}
	switch pgCode(err) {
	case pgExclusionViolation:
		return fmt.Errorf("%s: %w", op, domain.ErrUnavailable)
	case pgForeignKeyViolation:
		return fmt.Errorf("%s: %w", op, domain.ErrNotFound)
	}
	return &domain.StoreError{Op: op, Err: err}
}
