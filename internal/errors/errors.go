// Package errors defines the failure taxonomy of the AMM core.
//
// Every failure is an *Error carrying a stable Code. Is matches on Code, so a
// sentinel such as ErrLocked matches any error produced from it with Wrapf or
// WithCause, however deeply it is wrapped.
package errors

import (
	"errors"
	"fmt"
)

// Error codes for the AMM.
const (
	ErrCodeLocked                = "LOCKED"
	ErrCodeExpired               = "EXPIRED"
	ErrCodeZeroAmount            = "ZERO_AMOUNT"
	ErrCodeArithmeticOverflow    = "ARITHMETIC_OVERFLOW"
	ErrCodeInsufficientLiquidity = "INSUFFICIENT_LIQUIDITY"
	ErrCodeSlippageExceeded      = "SLIPPAGE_EXCEEDED"
	ErrCodeInsufficientShares    = "INSUFFICIENT_SHARES"
	ErrCodeZeroLiquidity         = "ZERO_LIQUIDITY"
	ErrCodeDivideByZero          = "DIVIDE_BY_ZERO"
	ErrCodeInsufficientBalance   = "INSUFFICIENT_BALANCE"
	ErrCodeInvalidAsset          = "INVALID_ASSET"
	ErrCodeUnauthorized          = "UNAUTHORIZED"
	ErrCodeInvalidConfig         = "INVALID_CONFIG"
	ErrCodePoolNotFound          = "POOL_NOT_FOUND"
	ErrCodePoolExists            = "POOL_EXISTS"
	ErrCodeInvariantViolation    = "INVARIANT_VIOLATION"
)

// Error represents a failure in the AMM.
type Error struct {
	// Code is a unique error code for this error type.
	Code string

	// Message is a human-readable error message.
	Message string

	// Cause is the underlying error, if any.
	Cause error

	// Details contains additional error context.
	Details map[string]any
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Unwrap returns the underlying error.
func (e *Error) Unwrap() error {
	return e.Cause
}

// Is reports whether the error matches the target.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return e.Code == t.Code
}

func (e *Error) clone() *Error {
	c := *e
	if e.Details != nil {
		c.Details = make(map[string]any, len(e.Details))
		for k, v := range e.Details {
			c.Details[k] = v
		}
	}
	return &c
}

// Wrapf returns a copy of e with the formatted text appended to its message.
func (e *Error) Wrapf(format string, args ...any) *Error {
	c := e.clone()
	c.Message = fmt.Sprintf("%s: %s", e.Message, fmt.Sprintf(format, args...))
	return c
}

// WithCause returns a copy of e with the given cause.
func (e *Error) WithCause(cause error) *Error {
	c := e.clone()
	c.Cause = cause
	return c
}

// WithDetails returns a copy of e with details merged in.
func (e *Error) WithDetails(details map[string]any) *Error {
	c := e.clone()
	if c.Details == nil {
		c.Details = make(map[string]any, len(details))
	}
	for k, v := range details {
		c.Details[k] = v
	}
	return c
}

// NewError creates a new Error.
func NewError(code, message string) *Error {
	return &Error{
		Code:    code,
		Message: message,
	}
}

// Pre-defined errors. Never mutate these; derive copies with Wrapf, WithCause or WithDetails.
var (
	// ErrLocked is returned when a mutating operation targets a paused pool.
	ErrLocked = NewError(ErrCodeLocked, "pool is locked")

	// ErrExpired is returned when the request deadline has passed.
	ErrExpired = NewError(ErrCodeExpired, "request expired")

	// ErrZeroAmount is returned when a required quantity is zero.
	ErrZeroAmount = NewError(ErrCodeZeroAmount, "amount must be non-zero")

	// ErrArithmeticOverflow is returned when a result does not fit the ledger's integer width.
	ErrArithmeticOverflow = NewError(ErrCodeArithmeticOverflow, "arithmetic overflow")

	// ErrInsufficientLiquidity is returned when the curve would drain or invert a reserve.
	ErrInsufficientLiquidity = NewError(ErrCodeInsufficientLiquidity, "insufficient liquidity")

	// ErrSlippageExceeded is returned when a computed amount violates a caller bound.
	ErrSlippageExceeded = NewError(ErrCodeSlippageExceeded, "slippage exceeded")

	// ErrInsufficientShares is returned when a burn exceeds the outstanding supply.
	ErrInsufficientShares = NewError(ErrCodeInsufficientShares, "insufficient liquidity shares")

	// ErrZeroLiquidity is returned for a pool whose reserves and supply disagree.
	ErrZeroLiquidity = NewError(ErrCodeZeroLiquidity, "pool reserves inconsistent with share supply")

	// ErrDivideByZero is returned when a withdrawal is computed against zero supply.
	ErrDivideByZero = NewError(ErrCodeDivideByZero, "division by zero")

	// ErrInsufficientBalance is returned by the ledger when a debit exceeds a balance.
	ErrInsufficientBalance = NewError(ErrCodeInsufficientBalance, "insufficient balance")

	// ErrInvalidAsset is returned by the ledger for an unknown asset.
	ErrInvalidAsset = NewError(ErrCodeInvalidAsset, "invalid asset")

	// ErrUnauthorized is returned when a signer lacks the required authority.
	ErrUnauthorized = NewError(ErrCodeUnauthorized, "unauthorized")

	// ErrInvalidConfig is returned when a pool configuration breaks its invariants.
	ErrInvalidConfig = NewError(ErrCodeInvalidConfig, "invalid pool config")

	// ErrPoolNotFound is returned when no pool exists at an address.
	ErrPoolNotFound = NewError(ErrCodePoolNotFound, "pool not found")

	// ErrPoolExists is returned when initializing a pool whose key is taken.
	ErrPoolExists = NewError(ErrCodePoolExists, "pool already exists")

	// ErrInvariantViolation is returned when a post-condition of an operation fails.
	ErrInvariantViolation = NewError(ErrCodeInvariantViolation, "invariant violation")
)

// Code returns the code of the first *Error in err's chain, or "" if there is none.
func Code(err error) string {
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return ""
}

// Wrap wraps an error with additional context.
func Wrap(err error, message string) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w", message, err)
}

// Is reports whether any error in err's chain matches target.
func Is(err, target error) bool {
	return errors.Is(err, target)
}

// As finds the first error in err's chain that matches target.
func As(err error, target any) bool {
	return errors.As(err, target)
}

// Join returns an error that wraps the given errors.
func Join(errs ...error) error {
	return errors.Join(errs...)
}
