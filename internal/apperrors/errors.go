package apperrors

import (
	"errors"
	"fmt"
	"net/http"
)

// Kind is the machine-readable error category returned to API callers.
type Kind string

const (
	// Validation: the bet payload itself is malformed.
	KindInvalidOptions      Kind = "INVALID_OPTIONS"
	KindInvalidBetType      Kind = "INVALID_BET_TYPE"
	KindOutOfRange          Kind = "OUT_OF_RANGE"
	KindDuplicatePicks      Kind = "DUPLICATE_PICKS"
	KindInvalidAmount       Kind = "INVALID_AMOUNT"
	KindUnsupportedCurrency Kind = "UNSUPPORTED_CURRENCY"
	KindUnknownGame         Kind = "UNKNOWN_GAME"

	// Limits and funds.
	KindBetTooLow           Kind = "BET_TOO_LOW"
	KindBetTooHigh          Kind = "BET_TOO_HIGH"
	KindInsufficientBalance Kind = "INSUFFICIENT_BALANCE"

	KindRoundNotFound    Kind = "ROUND_NOT_FOUND"
	KindSettlementFailed Kind = "SETTLEMENT_FAILED"
	KindInternal         Kind = "INTERNAL"
)

// AppError carries a Kind plus a message that is safe to show to the player.
type AppError struct {
	Kind    Kind   `json:"kind"`
	Message string `json:"message"`
	Err     error  `json:"-"`
}

func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Kind, e.Message, e.Err)
	}
	return fmt.Sprintf("[%s] %s", e.Kind, e.Message)
}

func (e *AppError) Unwrap() error {
	return e.Err
}

// New creates an AppError of the given kind.
func New(kind Kind, format string, args ...any) *AppError {
	return &AppError{
		Kind:    kind,
		Message: fmt.Sprintf(format, args...),
	}
}

// Wrap attaches a cause to a new AppError.
func Wrap(err error, kind Kind, message string) *AppError {
	return &AppError{
		Kind:    kind,
		Message: message,
		Err:     err,
	}
}

// KindOf extracts the Kind from anywhere in err's chain. Errors that are not
// AppErrors are reported as KindInternal.
func KindOf(err error) Kind {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Kind
	}
	return KindInternal
}

// Is reports whether err carries the given kind.
func Is(err error, kind Kind) bool {
	return err != nil && KindOf(err) == kind
}

// IsValidation reports whether err was caused by the caller's input rather
// than by the system.
func IsValidation(err error) bool {
	switch KindOf(err) {
	case KindInvalidOptions, KindInvalidBetType, KindOutOfRange, KindDuplicatePicks,
		KindInvalidAmount, KindUnsupportedCurrency, KindUnknownGame,
		KindBetTooLow, KindBetTooHigh, KindInsufficientBalance:
		return true
	}
	return false
}

// HTTPStatus maps a kind to the status code used by the HTTP layer.
func HTTPStatus(kind Kind) int {
	switch kind {
	case KindInvalidOptions, KindInvalidBetType, KindOutOfRange, KindDuplicatePicks,
		KindInvalidAmount, KindUnsupportedCurrency, KindBetTooLow, KindBetTooHigh:
		return http.StatusBadRequest
	case KindInsufficientBalance:
		return http.StatusPaymentRequired
	case KindUnknownGame, KindRoundNotFound:
		return http.StatusNotFound
	default:
		return http.StatusInternalServerError
	}
}

// Response returns the JSON body for err. Internal and settlement failures
// never leak their cause.
func Response(err error) map[string]any {
	var appErr *AppError
	if !errors.As(err, &appErr) {
		return map[string]any{
			"kind":    KindInternal,
			"message": "internal error",
		}
	}
	switch appErr.Kind {
	case KindSettlementFailed:
		return map[string]any{
			"kind":    appErr.Kind,
			"message": "the bet could not be settled",
		}
	case KindInternal:
		return map[string]any{
			"kind":    appErr.Kind,
			"message": "internal error",
		}
	}
	return map[string]any{
		"kind":    appErr.Kind,
		"message": appErr.Message,
	}
}
