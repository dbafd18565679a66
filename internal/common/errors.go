package common

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/jackc/pgx/v5/pgconn"
)

var (
	ErrNotFound            = errors.New("requested resource not found")
	ErrUnauthorized        = errors.New("unauthorized access")
	ErrForbidden           = errors.New("forbidden access")
	ErrValidation          = errors.New("validation failed")
	ErrConflict            = errors.New("resource conflict") // e.g. conditional update matched nothing
	ErrDuplicateSubmission = errors.New("submission already exists for this contest")
	ErrPaymentIncomplete   = errors.New("payment not completed")
	ErrGateway             = errors.New("payment gateway error")
	ErrStore               = errors.New("store error")
	ErrStoreTimeout        = errors.New("store timeout")
	ErrInternalServer      = errors.New("internal server error")
	ErrReconcileLockFailed = errors.New("failed to acquire reconcile lock")
)

const pgUniqueViolation = "23505"

// HTTPStatusFromError maps domain errors to HTTP status codes.
func HTTPStatusFromError(err error) int {
	if err == nil {
		return http.StatusOK
	}
	switch {
	case errors.Is(err, ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, ErrUnauthorized):
		return http.StatusUnauthorized
	case errors.Is(err, ErrForbidden):
		return http.StatusForbidden
	case errors.Is(err, ErrValidation), errors.Is(err, ErrPaymentIncomplete):
		return http.StatusBadRequest
	case errors.Is(err, ErrDuplicateSubmission), errors.Is(err, ErrConflict), errors.Is(err, ErrReconcileLockFailed):
		return http.StatusConflict
	case errors.Is(err, ErrGateway):
		return http.StatusBadGateway
	case errors.Is(err, ErrStoreTimeout), errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout
	}

	if IsUniqueViolation(err) {
		return http.StatusConflict
	}

	return http.StatusInternalServerError
}

// ErrorCode is the machine-readable counterpart of HTTPStatusFromError.
func ErrorCode(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrNotFound):
		return "not_found"
	case errors.Is(err, ErrUnauthorized):
		return "unauthenticated"
	case errors.Is(err, ErrForbidden):
		return "forbidden"
	case errors.Is(err, ErrPaymentIncomplete):
		return "payment_incomplete"
	case errors.Is(err, ErrValidation):
		return "validation_error"
	case errors.Is(err, ErrDuplicateSubmission):
		return "duplicate_submission"
	case errors.Is(err, ErrConflict), errors.Is(err, ErrReconcileLockFailed), IsUniqueViolation(err):
		return "conflict"
	case errors.Is(err, ErrGateway):
		return "gateway_error"
	case errors.Is(err, ErrStoreTimeout), errors.Is(err, context.DeadlineExceeded):
		return "store_timeout"
	case errors.Is(err, ErrStore):
		return "store_error"
	}
	return "internal_error"
}

// IsUniqueViolation reports whether err carries a postgres unique constraint violation.
func IsUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == pgUniqueViolation
}

// StoreErr wraps a persistence failure so that it classifies as ErrStore, or ErrStoreTimeout
// when the context deadline expired underneath it.
func StoreErr(op string, err error) error {
	if errors.Is(err, context.DeadlineExceeded) {
		return fmt.Errorf("%s: %w: %w", op, ErrStoreTimeout, err)
	}
	return fmt.Errorf("%s: %w: %w", op, ErrStore, err)
}
