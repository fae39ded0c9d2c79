package provisioner

import (
	"errors"
	"fmt"
	"strings"

	"github.com/aws/smithy-go"
)

// ExternalEngineError carries a failure reported by the provisioning engine.
// The cause is kept as returned by the provider.
type ExternalEngineError struct {
	Stack string
	Op    string
	Err   error
}

func (e *ExternalEngineError) Error() string {
	return fmt.Sprintf("%s %s: %v", e.Op, e.Stack, e.Err)
}

func (e *ExternalEngineError) Unwrap() error {
	return e.Err
}

func engineError(stack, op string, err error) error {
	return &ExternalEngineError{Stack: stack, Op: op, Err: err}
}

// AccountMismatchError is returned when the resolved credentials belong to a
// different account than the environment targets.
type AccountMismatchError struct {
	Expected string
	Actual   string
}

func (e *AccountMismatchError) Error() string {
	return fmt.Sprintf("credentials belong to account %s, environment targets %s", e.Actual, e.Expected)
}

func apiErrorMessage(err error, code string) (string, bool) {
	var ae smithy.APIError
	if errors.As(err, &ae) && ae.ErrorCode() == code {
		return ae.ErrorMessage(), true
	}
	return "", false
}

func isStackMissing(err error) bool {
	msg, ok := apiErrorMessage(err, "ValidationError")
	return ok && strings.Contains(msg, "does not exist")
}

func isNoUpdates(err error) bool {
	msg, ok := apiErrorMessage(err, "ValidationError")
	return ok && strings.Contains(msg, "No updates are to be performed")
}
