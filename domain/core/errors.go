package core

import (
	"errors"
	"fmt"
)

// Domain errors - centralized error definitions
var (
	// Input validation errors
	ErrInsufficientData = errors.New("insufficient data for effect size computation")
	ErrMalformedStudy   = errors.New("malformed study record")

	// Analysis preconditions
	ErrInsufficientStudies = errors.New("insufficient studies for requested analysis")

	// Numerical errors
	ErrNumericalInstability = errors.New("numerically unstable computation")

	// Configuration errors
	ErrConfiguration = errors.New("invalid analysis configuration")

	// Network errors
	ErrDisconnectedNetwork = errors.New("comparison network is disconnected")
	ErrUnknownTreatment    = errors.New("treatment not present in network")
)

// Error constructors with context

func NewInsufficientDataError(studyID string, reason string) error {
	return fmt.Errorf("%w: study %s: %s", ErrInsufficientData, studyID, reason)
}

func NewStudyValidationError(studyID string, field string, reason string) error {
	return fmt.Errorf("%w: study %s field %s: %s", ErrMalformedStudy, studyID, field, reason)
}

func NewInsufficientStudiesError(operation string, got, need int) error {
	return fmt.Errorf("%w: %s requires at least %d studies, got %d", ErrInsufficientStudies, operation, need, got)
}

func NewInstabilityError(step string, reason string) error {
	return fmt.Errorf("%w: %s: %s", ErrNumericalInstability, step, reason)
}

func NewConfigurationError(field string, reason string) error {
	return fmt.Errorf("%w: %s: %s", ErrConfiguration, field, reason)
}

// Error checking helpers

func IsInsufficientData(err error) bool {
	return errors.Is(err, ErrInsufficientData) || errors.Is(err, ErrMalformedStudy)
}

func IsInsufficientStudies(err error) bool {
	return errors.Is(err, ErrInsufficientStudies)
}

func IsNumericalInstability(err error) bool {
	return errors.Is(err, ErrNumericalInstability)
}

func IsConfigurationError(err error) bool {
	return errors.Is(err, ErrConfiguration)
}

func IsDisconnectedNetwork(err error) bool {
	return errors.Is(err, ErrDisconnectedNetwork)
}
