package persistence

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/require"

	"github.com/zenGate-Global/palmyra-fieldops/platform/go/apperr"
)

func TestMapError(t *testing.T) {
	require.NoError(t, mapError(nil))

	t.Run("no rows", func(t *testing.T) {
		err := mapError(fmt.Errorf("scan: %w", pgx.ErrNoRows))
		require.ErrorIs(t, err, apperr.ErrNotFound)
	})

	t.Run("known unique constraint", func(t *testing.T) {
		err := mapError(&pgconn.PgError{Code: pgerrcode.UniqueViolation, ConstraintName: "quotes_org_number_key"})
		require.ErrorIs(t, err, apperr.ErrConflict)
		msg, ok := apperr.PublicMessage(err)
		require.True(t, ok)
		require.Equal(t, "quote number already exists", msg)
	})

	t.Run("unknown foreign key", func(t *testing.T) {
		err := mapError(&pgconn.PgError{Code: pgerrcode.ForeignKeyViolation, ConstraintName: "x_fkey"})
		require.ErrorIs(t, err, apperr.ErrConflict)
		_, ok := apperr.PublicMessage(err)
		require.False(t, ok)
	})

	t.Run("check violation is invalid input", func(t *testing.T) {
		err := mapError(&pgconn.PgError{Code: pgerrcode.CheckViolation, ConstraintName: "customers_name_check"})
		require.True(t, apperr.IsValidation(err))
	})

	t.Run("canceled is infrastructure", func(t *testing.T) {
		err := mapError(&pgconn.PgError{Code: pgerrcode.QueryCanceled})
		require.False(t, apperr.IsValidation(err))
		require.NotErrorIs(t, err, apperr.ErrNotFound)
		require.NotErrorIs(t, err, apperr.ErrConflict)
	})

	t.Run("non postgres errors pass through", func(t *testing.T) {
		require.ErrorIs(t, mapError(context.DeadlineExceeded), context.DeadlineExceeded)
		boom := errors.New("boom")
		require.Equal(t, boom, mapError(boom))
	})
}
