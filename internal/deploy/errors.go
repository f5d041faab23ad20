package deploy

import (
	"errors"
	"fmt"
)

var (
	// ErrTenantNotFound is returned when the tenant has no account.
	ErrTenantNotFound = errors.New("tenant not found")

	// ErrPaymentMethodRequired is returned when the account has no payment
	// method on file.
	ErrPaymentMethodRequired = errors.New("payment method required")

	// ErrChangeQuotaExceeded is returned when the tenant used up its
	// lifetime phone number changes.
	ErrChangeQuotaExceeded = errors.New("phone number change quota exceeded")

	// ErrNotDeployed is returned when an operation needs an existing
	// deployment.
	ErrNotDeployed = errors.New("tenant is not deployed")
)

// StepError is a fatal step failure.
type StepError struct {
	Step string
	Err  error
}

func (e *StepError) Error() string {
	return fmt.Sprintf("%s step failed: %v", e.Step, e.Err)
}

func (e *StepError) Unwrap() error {
	return e.Err
}

// FailedStep returns the name of the step err stopped at, or "".
func FailedStep(err error) string {
	var stepErr *StepError
	if errors.As(err, &stepErr) {
		return stepErr.Step
	}
	return ""
}
