// Package config provides the declarative ExportSpec input and its
// validation for exportcore.
package config

import "errors"

// Sentinel errors kept for callers that want to errors.Is against a
// coarse-grained validation category rather than unwrapping xerrors.CoreError.
var (
	// ErrInvalidDimensions indicates width or height failed validation.
	ErrInvalidDimensions = errors.New("invalid output dimensions")

	// ErrInvalidFrameRate indicates a zero or negative framerate component.
	ErrInvalidFrameRate = errors.New("invalid frame rate")

	// ErrInvalidTrim indicates a trim interval with start >= end.
	ErrInvalidTrim = errors.New("invalid trim interval")
)
