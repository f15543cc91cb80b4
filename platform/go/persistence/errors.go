package persistence

import (
	"errors"
	"fmt"

	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/zenGate-Global/palmyra-fieldops/platform/go/apperr"
)

// constraintMessages holds the caller-safe message for constraints whose
// violation is an expected business conflict.
var constraintMessages = map[string]string{
	"customers_org_email_key":  "customer email already exists",
	"quotes_org_number_key":    "quote number already exists",
	"contracts_org_number_key": "contract number already exists",
	"contracts_quote_fkey":     "quote has contracts",
	"organizations_slug_key":   "organization slug already exists",
}

// mapError translates pgx and Postgres errors into apperr kinds. Errors that
// are not recognised are returned wrapped and classify as infrastructure
// failures.
func mapError(err error) error {
	if err == nil {
		return nil
	}

	if errors.Is(err, pgx.ErrNoRows) {
		return fmt.Errorf("%w: %v", apperr.ErrNotFound, err)
	}

	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) {
		return err
	}

	switch pgErr.Code {
	case pgerrcode.UniqueViolation, pgerrcode.ForeignKeyViolation, pgerrcode.ExclusionViolation:
		if msg, ok := constraintMessages[pgErr.ConstraintName]; ok {
			return fmt.Errorf("%w (constraint %s)", apperr.Conflict(msg), pgErr.ConstraintName)
		}
		return fmt.Errorf("%w: constraint %s", apperr.ErrConflict, pgErr.ConstraintName)

	case pgerrcode.CheckViolation, pgerrcode.NotNullViolation, pgerrcode.InvalidTextRepresentation,
		pgerrcode.StringDataRightTruncationDataException:
		field := pgErr.ColumnName
		if field == "" {
			field = pgErr.ConstraintName
		}
		return fmt.Errorf("%w: %s", apperr.Invalid(field, "rejected by the database"), pgErr.Code)

	case pgerrcode.QueryCanceled:
		return fmt.Errorf("query canceled: %w", err)

	case pgerrcode.SerializationFailure, pgerrcode.DeadlockDetected:
		return fmt.Errorf("transaction conflict (retryable): %w", err)

	default:
		return fmt.Errorf("postgres error [%s]: %s: %w", pgErr.Code, pgErr.Message, err)
	}
}
