// Package errors provides custom error types for pricing and scenario failures.
package errors

import (
	"errors"
	"fmt"
	"strings"
)

// Error kinds. Every failure raised by the engine wraps exactly one of these.
var (
	ErrInvalidLevel          = errors.New("invalid level")
	ErrInvalidVolatility     = errors.New("invalid volatility")
	ErrInvalidExpiry         = errors.New("invalid expiry")
	ErrMissingRiskFactor     = errors.New("missing risk factor")
	ErrUnknownRiskFactor     = errors.New("unknown risk factor")
	ErrMisalignedStack       = errors.New("misaligned stack")
	ErrDimensionMismatch     = errors.New("dimension mismatch")
	ErrInvalidScenario       = errors.New("invalid scenario")
	ErrInvalidMeasure        = errors.New("invalid measure")
	ErrUnsupportedInstrument = errors.New("unsupported instrument")
)

// Standard sentinel errors for the surrounding tooling.
var (
	ErrConfigInvalid   = errors.New("invalid configuration")
	ErrDataNotFound    = errors.New("data not found")
	ErrDatabaseError   = errors.New("database error")
	ErrInputValidation = errors.New("input validation failed")
)

var kinds = []error{
	ErrInvalidLevel,
	ErrInvalidVolatility,
	ErrInvalidExpiry,
	ErrMissingRiskFactor,
	ErrUnknownRiskFactor,
	ErrMisalignedStack,
	ErrDimensionMismatch,
	ErrInvalidScenario,
	ErrInvalidMeasure,
	ErrUnsupportedInstrument,
}

// PricingError represents a failure raised while evaluating an instrument or
// deriving a shifted environment.
type PricingError struct {
	Kind       error
	Factor     string
	Underlying string
	Message    string
}

func (e *PricingError) Error() string {
	var b strings.Builder
	b.WriteString(e.Kind.Error())
	if e.Factor != "" {
		fmt.Fprintf(&b, " [%s]", e.Factor)
	}
	if e.Underlying != "" {
		fmt.Fprintf(&b, " underlying %s", e.Underlying)
	}
	if e.Message != "" {
		b.WriteString(": ")
		b.WriteString(e.Message)
	}
	return b.String()
}

func (e *PricingError) Unwrap() error {
	return e.Kind
}

// NewPricingError creates a new PricingError.
func NewPricingError(kind error, factor, underlying, message string) *PricingError {
	return &PricingError{
		Kind:       kind,
		Factor:     factor,
		Underlying: underlying,
		Message:    message,
	}
}

// Errorf creates a PricingError carrying only a kind and a formatted message.
func Errorf(kind error, format string, args ...interface{}) *PricingError {
	return &PricingError{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

// GridError locates a failure inside a scenario grid.
type GridError struct {
	Coordinate   []int
	Instrument   int // -1 when the failure happened while deriving the environment
	InstrumentID string
	Err          error
}

func (e *GridError) Error() string {
	if e.Instrument < 0 {
		return fmt.Sprintf("grid point %v: %v", e.Coordinate, e.Err)
	}
	return fmt.Sprintf("grid point %v instrument %d (%s): %v", e.Coordinate, e.Instrument, e.InstrumentID, e.Err)
}

func (e *GridError) Unwrap() error {
	return e.Err
}

// NewGridError creates a new GridError.
func NewGridError(coord []int, instrument int, instrumentID string, err error) *GridError {
	c := make([]int, len(coord))
	copy(c, coord)
	return &GridError{
		Coordinate:   c,
		Instrument:   instrument,
		InstrumentID: instrumentID,
		Err:          err,
	}
}

// InstrumentError attaches a portfolio index to an evaluation failure.
type InstrumentError struct {
	Index int
	ID    string
	Err   error
}

func (e *InstrumentError) Error() string {
	return fmt.Sprintf("instrument %d (%s): %v", e.Index, e.ID, e.Err)
}

func (e *InstrumentError) Unwrap() error {
	return e.Err
}

// ValidationError represents a validation error.
type ValidationError struct {
	Field   string
	Value   interface{}
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation error: %s (%v): %s", e.Field, e.Value, e.Message)
}

func (e *ValidationError) Unwrap() error {
	return ErrInputValidation
}

// NewValidationError creates a new ValidationError.
func NewValidationError(field string, value interface{}, message string) *ValidationError {
	return &ValidationError{
		Field:   field,
		Value:   value,
		Message: message,
	}
}

// DataError represents a market data or trade store error.
type DataError struct {
	DataType string
	Key      string
	Message  string
	Err      error
}

func (e *DataError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("data error [%s] %s: %s: %v", e.DataType, e.Key, e.Message, e.Err)
	}
	return fmt.Sprintf("data error [%s] %s: %s", e.DataType, e.Key, e.Message)
}

func (e *DataError) Unwrap() error {
	return e.Err
}

// NewDataError creates a new DataError.
func NewDataError(dataType, key, message string, err error) *DataError {
	return &DataError{
		DataType: dataType,
		Key:      key,
		Message:  message,
		Err:      err,
	}
}

// KindOf returns the engine error kind in err's chain, or nil.
func KindOf(err error) error {
	for _, k := range kinds {
		if errors.Is(err, k) {
			return k
		}
	}
	return nil
}

// KindName returns a snake_case label for the kind in err's chain.
func KindName(err error) string {
	k := KindOf(err)
	if k == nil {
		return "other"
	}
	return strings.ReplaceAll(k.Error(), " ", "_")
}

// Wrap wraps an error with additional context.
func Wrap(err error, message string) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w", message, err)
}

// Wrapf wraps an error with formatted context.
func Wrapf(err error, format string, args ...interface{}) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w", fmt.Sprintf(format, args...), err)
}

// Is reports whether any error in err's chain matches target.
func Is(err, target error) bool {
	return errors.Is(err, target)
}

// As finds the first error in err's chain that matches target.
func As(err error, target interface{}) bool {
	return errors.As(err, target)
}
