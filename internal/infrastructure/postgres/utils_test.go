package postgres

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"

	"github.com/jhoicas/stock-ledger/internal/domain"
)

func TestMapError_ViolacionUnicaEsDuplicado(t *testing.T) {
	err := mapError("insert product", &pgconn.PgError{Code: "23505", ConstraintName: "uq_products_store_sku"})

	assert.ErrorIs(t, err, domain.ErrDuplicate)
	assert.Equal(t, "CONFLICT", domain.Kind(err))
	assert.Contains(t, err.Error(), "uq_products_store_sku")
}

func TestMapError_BloqueosSonFallaDeAlmacenamiento(t *testing.T) {
	for _, code := range []string{"55P03", "40P01", "40001", "08006"} {
		t.Run(code, func(t *testing.T) {
			err := mapError("get ledger for update", &pgconn.PgError{Code: code})

			assert.ErrorIs(t, err, domain.ErrStorageFailure)
			assert.True(t, domain.IsRetryable(err))
		})
	}
}

func TestMapError_ErroresDeDominioPasanSinCambios(t *testing.T) {
	orig := domain.NotFound("ledger", "s1/p1")

	assert.Same(t, orig, mapError("op", orig))
}

func TestMapError_CancelacionNoEsReintentable(t *testing.T) {
	err := mapError("commit transaction", fmt.Errorf("wrap: %w", context.Canceled))

	assert.ErrorIs(t, err, context.Canceled)
	assert.False(t, domain.IsRetryable(err))
}

func TestMapError_OtrosErroresSeEnvuelven(t *testing.T) {
	cause := errors.New("boom")

	err := mapError("list ledgers", cause)

	assert.ErrorIs(t, err, cause)
	assert.Equal(t, "INTERNAL", domain.Kind(err))
	assert.Nil(t, mapError("x", nil))
}

func TestIsUniqueViolation(t *testing.T) {
	assert.True(t, isUniqueViolation(&pgconn.PgError{Code: "23505"}))
	assert.False(t, isUniqueViolation(&pgconn.PgError{Code: "23503"}))
	assert.False(t, isUniqueViolation(errors.New("23505")))
}

func TestNullString(t *testing.T) {
	assert.Nil(t, nullString(""))
	assert.Equal(t, "k", *nullString("k"))
	assert.Nil(t, jsonOrNil(nil))
	assert.NotNil(t, jsonOrNil(map[string]any{"a": 1}))
}
