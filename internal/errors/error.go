// Package errors provides custom error types for product-related operations.
package errors

import (
	"errors"

	"github.com/jackc/pgx/v5/pgconn"
)

var ErrProductNotFound = errors.New("product not found")

// MostSpecificCause returns the message of the deepest error in the chain.
// A PostgreSQL error anywhere in the chain wins over the wrappers around it.
func MostSpecificCause(err error) string {
	if err == nil {
		return ""
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		if pgErr.Detail != "" {
			return pgErr.Message + ": " + pgErr.Detail
		}
		return pgErr.Message
	}
	for {
		next := errors.Unwrap(err)
		if next == nil {
			return err.Error()
		}
		err = next
	}
}
