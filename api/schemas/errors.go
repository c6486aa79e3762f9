// api/schemas/errors.go
package schemas

import (
	"errors"
	"fmt"
)

// Failure taxonomy for the automation engine. Callers classify with
// errors.Is; the constructors attach context while keeping the sentinel in
// the chain.
var (
	// ErrEnvironment: no usable browser executable on this machine.
	ErrEnvironment = errors.New("environment error")
	// ErrConnectivity: the remote-debugging endpoint is unreachable.
	ErrConnectivity = errors.New("connectivity error")
	// ErrConfiguration: required AI model credentials are missing.
	ErrConfiguration = errors.New("configuration error")
	// ErrElementNotFound: an expected control never became visible within
	// its timeout.
	ErrElementNotFound = errors.New("element not found")
	// ErrSchemaValidation: AI-extracted data violates its shape/content
	// contract.
	ErrSchemaValidation = errors.New("schema validation error")
	// ErrActionNotResolved: no candidate action matched the required
	// keywords and the calling step has no fallback.
	ErrActionNotResolved = errors.New("action not resolved")
)

func wrap(sentinel error, msg string, cause error) error {
	if cause == nil {
		return fmt.Errorf("%w: %s", sentinel, msg)
	}
	return fmt.Errorf("%w: %s: %w", sentinel, msg, cause)
}

func NewEnvironmentError(msg string, cause error) error {
	return wrap(ErrEnvironment, msg, cause)
}

func NewConnectivityError(msg string, cause error) error {
	return wrap(ErrConnectivity, msg, cause)
}

func NewConfigurationError(msg string, cause error) error {
	return wrap(ErrConfiguration, msg, cause)
}

func NewElementNotFoundError(msg string, cause error) error {
	return wrap(ErrElementNotFound, msg, cause)
}

func NewSchemaValidationError(msg string, cause error) error {
	return wrap(ErrSchemaValidation, msg, cause)
}

func NewActionNotResolvedError(msg string, cause error) error {
	return wrap(ErrActionNotResolved, msg, cause)
}
