// Package errors provides custom error types for the tokenomics API.
// All service-layer errors should use AppError to ensure consistent,
// secure error responses that never leak internal details to clients.
package errors

import "net/http"

// AppError represents a structured application error with an error code,
// human-readable message, HTTP status code, and optional internal error.
type AppError struct {
	Code       string `json:"code"`
	Message    string `json:"message"`
	StatusCode int    `json:"-"`
	Internal   error  `json:"-"`
}

// Error implements the error interface.
func (e *AppError) Error() string { return e.Message }

// Unwrap returns the internal error for use with errors.Is/As.
func (e *AppError) Unwrap() error { return e.Internal }

// Wrap creates a new AppError with the same code/message/status but wraps an internal error.
func Wrap(sentinel *AppError, internal error) *AppError {
	return &AppError{
		Code:       sentinel.Code,
		Message:    sentinel.Message,
		StatusCode: sentinel.StatusCode,
		Internal:   internal,
	}
}

// WithMessage creates a new AppError with a custom message.
func WithMessage(sentinel *AppError, message string) *AppError {
	return &AppError{
		Code:       sentinel.Code,
		Message:    message,
		StatusCode: sentinel.StatusCode,
		Internal:   sentinel.Internal,
	}
}

// Authentication & authorization errors.
var (
	ErrUnauthorized = &AppError{Code: "UNAUTHORIZED", Message: "Authentication required", StatusCode: http.StatusUnauthorized}
	ErrForbidden    = &AppError{Code: "FORBIDDEN", Message: "Caller lacks the required role", StatusCode: http.StatusForbidden}
)

// Off-chain authorization (signature) errors. A failed verification always
// aborts the whole operation with no partial effect.
var (
	ErrSignatureNotValid = &AppError{Code: "SIGNATURE_NOT_VALID", Message: "Signature is not valid for this request", StatusCode: http.StatusUnauthorized}
	ErrSignatureExpired  = &AppError{Code: "SIGNATURE_EXPIRED", Message: "Signature has expired", StatusCode: http.StatusUnauthorized}
	ErrSignatureUsed     = &AppError{Code: "SIGNATURE_USED", Message: "Signature has already been used", StatusCode: http.StatusConflict}
)

// General errors.
var (
	ErrInvalidInput   = &AppError{Code: "INVALID_INPUT", Message: "Invalid input", StatusCode: http.StatusBadRequest}
	ErrNotFound       = &AppError{Code: "NOT_FOUND", Message: "Resource not found", StatusCode: http.StatusNotFound}
	ErrInternalServer = &AppError{Code: "INTERNAL_ERROR", Message: "An internal error occurred", StatusCode: http.StatusInternalServerError}
)

// Token ledger errors.
var (
	ErrAccountNotFound       = &AppError{Code: "ACCOUNT_NOT_FOUND", Message: "Token account not found", StatusCode: http.StatusNotFound}
	ErrInsufficientBalance   = &AppError{Code: "INSUFFICIENT_BALANCE", Message: "Insufficient token balance", StatusCode: http.StatusBadRequest}
	ErrInsufficientAllowance = &AppError{Code: "INSUFFICIENT_ALLOWANCE", Message: "Insufficient spending allowance", StatusCode: http.StatusBadRequest}
)

// Vesting ledger errors.
var (
	ErrInvestmentNotFound    = &AppError{Code: "INVESTMENT_NOT_FOUND", Message: "Investment position not found", StatusCode: http.StatusNotFound}
	ErrInsufficientClaimable = &AppError{Code: "INSUFFICIENT_CLAIMABLE", Message: "Requested amount exceeds claimable tokens", StatusCode: http.StatusBadRequest}
)

// Staking errors.
var (
	ErrNothingStaked       = &AppError{Code: "NOTHING_STAKED", Message: "No staked balance for this account", StatusCode: http.StatusBadRequest}
	ErrInsufficientStake   = &AppError{Code: "INSUFFICIENT_STAKE", Message: "Requested amount exceeds staked balance", StatusCode: http.StatusBadRequest}
	ErrCooldownNotStarted  = &AppError{Code: "COOLDOWN_NOT_STARTED", Message: "Cooldown has not been started", StatusCode: http.StatusBadRequest}
	ErrNotInUnstakeWindow  = &AppError{Code: "NOT_IN_UNSTAKE_WINDOW", Message: "Redemption attempted outside the unstake window", StatusCode: http.StatusBadRequest}
	ErrInsufficientRewards = &AppError{Code: "INSUFFICIENT_REWARDS", Message: "Requested amount exceeds accrued rewards", StatusCode: http.StatusBadRequest}
)

// Registry errors.
var (
	ErrRegistryNameNotFound = &AppError{Code: "REGISTRY_NAME_NOT_FOUND", Message: "Registry name not found", StatusCode: http.StatusNotFound}
	ErrRegistryNameExists   = &AppError{Code: "REGISTRY_NAME_EXISTS", Message: "Registry name already exists", StatusCode: http.StatusConflict}
)
