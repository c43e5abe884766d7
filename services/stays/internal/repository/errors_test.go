package repository

import (
	"errors"
	"fmt"
	"testing"

	"github.com/diagnosis/stays/services/stays/internal/domain"
	"github.com/jackc/pgx/v5/pgconn"
)

func TestStoreErr(t *testing.T) {
	tests := []struct {
		name      string
		err       error
		want      error
		wantStore bool
	}{
		{"exclusion violation", &pgconn.PgError{Code: pgExclusionViolation}, domain.ErrUnavailable, false},
		{"wrapped exclusion violation", fmt.Errorf("exec: %w", &pgconn.PgError{Code: pgExclusionViolation}), domain.ErrUnavailable, false},
		{"foreign key violation", &pgconn.PgError{Code: pgForeignKeyViolation}, domain.ErrNotFound, false},
		{"unique violation", &pgconn.PgError{Code: pgUniqueViolation}, nil, true},
		{"serialization failure", &pgconn.PgError{Code: "40001"}, nil, true},
		{"connection error", errors.New("connection reset"), nil, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := storeErr("create booking", tt.err)
			if tt.want != nil && !errors.Is(got, tt.want) {
				t.Fatalf("expected %v, got %v", tt.want, got)
			}

			var se *domain.StoreError
			isStore := errors.As(got, &se)
			if isStore != tt.wantStore {
				t.Fatalf("StoreError = %v, want %v (err %v)", isStore, tt.wantStore, got)
			}
			if isStore && (se.Op != "create booking" || !errors.Is(got, tt.err)) {
				t.Fatalf("StoreError lost context: %+v", se)
			}
			if errors.Is(got, domain.ErrUnavailable) && tt.want != domain.ErrUnavailable {
				t.Fatalf("%v must not read as unavailable", got)
			}
		})
	}

	if storeErr("noop", nil) != nil {
		t.Fatal("nil error must stay nil")
	}
}
