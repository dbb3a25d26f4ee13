// Package transfer defines the transfer request/result exchanged with the
// transfer backend, plus the validation the transfer form applies.
package transfer

import (
	"errors"
	"fmt"
	"regexp"
	"time"

	"github.com/shopspring/decimal"
)

// Limits applied to a single transfer.
var (
	MinAmount = decimal.NewFromInt(1)
	MaxAmount = decimal.NewFromInt(1_000_000)
)

// FailedMessage is the user-facing message once retries are exhausted.
const FailedMessage = "No se pudo completar la transferencia. Intente nuevamente."

// SuccessMessage is returned by the backend on success.
const SuccessMessage = "Transferencia realizada exitosamente"

var accountPattern = regexp.MustCompile(`^\d{10}$`)

// Request asks the backend to move money between accounts.
type Request struct {
	SourceAccount      string          `json:"sourceAccount"`
	DestinationAccount string          `json:"destinationAccount"`
	Amount             decimal.Decimal `json:"amount"`
	Description        string          `json:"description"`
}

// Result is the backend's answer.
type Result struct {
	Success       bool      `json:"success"`
	TransactionID string    `json:"transactionId"`
	Timestamp     time.Time `json:"timestamp"`
	Message       string    `json:"message"`
}

// Validation errors.
var (
	ErrInvalidAccount = errors.New("account must be a 10 digit number")
	ErrAmountTooSmall = errors.New("amount below minimum")
	ErrAmountTooLarge = errors.New("amount above maximum")
)

// Transfer operation errors.
var (
	ErrTransient = errors.New("transient transfer failure")
)

// FieldError ties a validation error to a request field.
type FieldError struct {
	Field string
	Err   error
}

func (e *FieldError) Error() string {
	return fmt.Sprintf("%s: %v", e.Field, e.Err)
}

func (e *FieldError) Unwrap() error {
	return e.Err
}

// Validate applies the transfer form rules.
func Validate(req Request) error {
	if !accountPattern.MatchString(req.SourceAccount) {
		return &FieldError{Field: "sourceAccount", Err: ErrInvalidAccount}
	}
	if !accountPattern.MatchString(req.DestinationAccount) {
		return &FieldError{Field: "destinationAccount", Err: ErrInvalidAccount}
	}
	if req.Amount.LessThan(MinAmount) {
		return &FieldError{Field: "amount", Err: ErrAmountTooSmall}
	}
	if req.Amount.GreaterThan(MaxAmount) {
		return &FieldError{Field: "amount", Err: ErrAmountTooLarge}
	}
	return nil
}

// FailedError is the final error once the retry budget is spent.
type FailedError struct {
	Attempts int
	Cause    error
}

func (e *FailedError) Error() string {
	return FailedMessage
}

func (e *FailedError) Unwrap() error {
	return e.Cause
}
