package flowsig

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidConfiguration is returned for invalid model parameters.
	ErrInvalidConfiguration = errors.New("flowsig: invalid configuration")

	// ErrInvalidInput is returned for empty, ragged or mismatched feature matrices.
	ErrInvalidInput = errors.New("flowsig: invalid input")

	// ErrStorageNotFound is returned when a persisted signature set does not exist.
	ErrStorageNotFound = errors.New("flowsig: signature set not found")

	// ErrStorageCorrupt is returned when a persisted signature set cannot be decoded.
	ErrStorageCorrupt = errors.New("flowsig: signature set corrupt")

	// ErrNumericDomain is returned under DomainReject for feature values
	// without a finite logarithm bucket.
	ErrNumericDomain = errors.New("flowsig: feature value outside logarithm domain")
)

// InvalidBaseError indicates a logarithm base that is not a finite number > 1.
type InvalidBaseError struct {
	Base  float64
	cause error
}

func (e *InvalidBaseError) Error() string {
	return fmt.Sprintf("flowsig: invalid base %v: must be a finite number greater than 1", e.Base)
}

func (e *InvalidBaseError) Is(target error) bool { return target == ErrInvalidConfiguration }

func (e *InvalidBaseError) Unwrap() error { return e.cause }

// RaggedRowError indicates a row whose length differs from the first row.
type RaggedRowError struct {
	Row      int
	Expected int
	Actual   int
}

func (e *RaggedRowError) Error() string {
	return fmt.Sprintf("flowsig: row %d has %d features, expected %d", e.Row, e.Actual, e.Expected)
}

func (e *RaggedRowError) Is(target error) bool { return target == ErrInvalidInput }

// ColumnMismatchError indicates a predict matrix whose width differs from
// the width the model was fitted on.
type ColumnMismatchError struct {
	Expected int
	Actual   int
}

func (e *ColumnMismatchError) Error() string {
	return fmt.Sprintf("flowsig: column mismatch: model was fitted on %d features, got %d", e.Expected, e.Actual)
}

func (e *ColumnMismatchError) Is(target error) bool { return target == ErrInvalidInput }

// DomainError reports a feature value without a finite bucket.
type DomainError struct {
	Row    int
	Column int
	Value  float64
}

func (e *DomainError) Error() string {
	return fmt.Sprintf("flowsig: row %d, column %d: log1p(%v) is undefined", e.Row, e.Column, e.Value)
}

func (e *DomainError) Unwrap() error { return ErrNumericDomain }

// StorageError is returned by LoadModel and SaveModel.
//
// Err wraps ErrStorageNotFound or ErrStorageCorrupt where applicable,
// followed by the underlying cause.
type StorageError struct {
	Op   string
	Path string
	Err  error
}

func (e *StorageError) Error() string {
	return fmt.Sprintf("flowsig: %s %s: %v", e.Op, e.Path, e.Err)
}

func (e *StorageError) Unwrap() error { return e.Err }
