// Package errs defines the error kinds returned by the covariance and
// conditional computations. Every error is surfaced synchronously to the
// caller; nothing in this module retries or downgrades one.
package errs

import (
	"errors"
	"fmt"
)

// Sentinels for use with errors.Is. The typed errors below match them.
var (
	ErrDispatch  = errors.New("errs: no covariance formula for pairing")
	ErrShape     = errors.New("errs: shape mismatch")
	ErrNumeric   = errors.New("errs: numerically unstable factorization")
	ErrParameter = errors.New("errs: invalid parameter")
)

// DispatchError is returned when no handler is registered for a
// (feature, kernel) pairing.
type DispatchError struct {
	Op      string
	Feature string
	Kernel  string
}

func (e *DispatchError) Error() string {
	return fmt.Sprintf("errs: %s: no covariance formula for (%s, %s)",
		e.Op, e.Feature, e.Kernel)
}

func (e *DispatchError) Is(target error) bool { return target == ErrDispatch }

// ShapeMismatchError reports inconsistent array dimensions. Got and Want
// hold the offending shapes; a negative entry in Want means "any".
type ShapeMismatchError struct {
	Op   string
	What string
	Got  []int
	Want []int
}

func (e *ShapeMismatchError) Error() string {
	return fmt.Sprintf("errs: %s: %s has shape %v, want %v",
		e.Op, e.What, e.Got, e.Want)
}

func (e *ShapeMismatchError) Is(target error) bool { return target == ErrShape }

// Shape is a helper building a ShapeMismatchError for a two-dimensional
// array.
func Shape(op, what string, gotRows, gotCols, wantRows, wantCols int) *ShapeMismatchError {
	return &ShapeMismatchError{
		Op:   op,
		What: what,
		Got:  []int{gotRows, gotCols},
		Want: []int{wantRows, wantCols},
	}
}

// NumericInstabilityError is returned when the Cholesky factorization of
// Kuu fails even after jitter was added. Increasing the jitter usually
// helps; the caller decides.
type NumericInstabilityError struct {
	Op     string
	Jitter float64
	Size   int
}

func (e *NumericInstabilityError) Error() string {
	return fmt.Sprintf("errs: %s: cholesky of %dx%d matrix failed with jitter %g, "+
		"consider increasing the jitter", e.Op, e.Size, e.Size, e.Jitter)
}

func (e *NumericInstabilityError) Is(target error) bool { return target == ErrNumeric }

// ParameterError reports an invalid scalar parameter or setting.
type ParameterError struct {
	Op    string
	Name  string
	Value interface{}
	Err   error
}

func (e *ParameterError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("errs: %s: invalid %s %v: %v", e.Op, e.Name, e.Value, e.Err)
	}
	return fmt.Sprintf("errs: %s: invalid %s %v", e.Op, e.Name, e.Value)
}

func (e *ParameterError) Is(target error) bool { return target == ErrParameter }

func (e *ParameterError) Unwrap() error { return e.Err }
