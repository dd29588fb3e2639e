package rubric

import (
	"errors"
	"fmt"
)

// ErrEmptyOrder rejects a reorder request with no categories.
var ErrEmptyOrder = errors.New("ordered category list is empty")

// CeilingError reports an allocation or edit that would push a subject's
// total weight past 100%. It carries the would-be total so the caller can
// tell the administrator how far over the request landed.
type CeilingError struct {
	CurrentTotal float64
	Requested    float64
	WouldBeTotal float64
}

func (e *CeilingError) Error() string {
	return fmt.Sprintf("weight ceiling exceeded: current total %.2f%% + requested %.2f%% = %.2f%% > 100%%",
		e.CurrentTotal, e.Requested, e.WouldBeTotal)
}

// RangeError reports an out-of-range or malformed input field. Recoverable;
// detected before any storage access.
type RangeError struct {
	Field  string
	Detail string
}

func (e *RangeError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Detail)
}

// MissingFieldError reports a required field left empty on a direct edit.
type MissingFieldError struct {
	Field string
}

func (e *MissingFieldError) Error() string {
	return "missing required field: " + e.Field
}

// ConsistencyError signals that a computed partition failed to sum back to
// the requested total. Under correct decimal rounding this cannot happen;
// if observed it is a defect and the whole batch is aborted unpersisted.
type ConsistencyError struct {
	Expected float64
	Got      float64
}

func (e *ConsistencyError) Error() string {
	return fmt.Sprintf("partition sum %.4f does not match requested total %.4f", e.Got, e.Expected)
}
