// Package config provides the declarative ExportSpec input and its
// validation for exportcore.
package config

import (
	"encoding/json"
	"fmt"

	xerrors "github.com/clipforge/exportcore/internal/errors"
	"github.com/clipforge/exportcore/internal/timemap"
)

// Default constants mirrored from the pipeline's fixed conventions.
const (
	// DefaultCodecID is used when ExportSpec.CodecID is empty.
	DefaultCodecID = "avc1.640033"

	// MaxInFlight is the default backpressure ceiling on in-flight encodes.
	MaxInFlight = 120

	// DecodeAhead is the depth of the Pipeline's decode-ahead queue.
	DecodeAhead = 10

	// GOPSize is the fixed keyframe spacing, independent of framerate.
	GOPSize = 150

	// MinDimension is the smallest legal width/height.
	MinDimension = 2
)

// FrameRate is a rational framerate, stored as numerator/denominator so a
// caller can express exact ratios like 30000/1001.
type FrameRate struct {
	Num int
	Den int
}

// PeriodUS returns the frame period in microseconds, truncated to an
// integer: 1e6 * Den / Num using integer division.
func (f FrameRate) PeriodUS() int64 {
	if f.Num <= 0 || f.Den <= 0 {
		return 0
	}
	return int64(1_000_000) * int64(f.Den) / int64(f.Num)
}

// ExportSpec is the immutable declarative input to a single export run.
type ExportSpec struct {
	Width, Height int
	FrameRate     FrameRate
	BitrateBPS    int64
	CodecID       string
	SourceURI     string
	Trims         timemap.TrimSet
	// EditLayers is opaque: forwarded verbatim to the compositor's render
	// config without interpretation beyond what the reference compositor
	// implementation understands (crop rect, wallpaper, text annotations).
	EditLayers json.RawMessage
}

// NewExportSpec creates an ExportSpec with pipeline defaults applied.
func NewExportSpec(sourceURI string, width, height int, frameRate FrameRate) *ExportSpec {
	return &ExportSpec{
		Width:      width,
		Height:     height,
		FrameRate:  frameRate,
		CodecID:    DefaultCodecID,
		SourceURI:  sourceURI,
		BitrateBPS: 8_000_000,
	}
}

// Validate checks the spec against the pipeline's constraints, returning an
// xerrors.CoreError of KindInvalidSpec wrapping one of the sentinel errors
// in errors.go on the first violation found.
func (s *ExportSpec) Validate() error {
	if s.Width < MinDimension || s.Width%2 != 0 {
		return invalidSpec(fmt.Sprintf("width must be even and at least %d, got %d", MinDimension, s.Width), ErrInvalidDimensions)
	}
	if s.Height < MinDimension || s.Height%2 != 0 {
		return invalidSpec(fmt.Sprintf("height must be even and at least %d, got %d", MinDimension, s.Height), ErrInvalidDimensions)
	}
	if s.FrameRate.Num <= 0 || s.FrameRate.Den <= 0 {
		return invalidSpec("frame_rate_hz must have a positive numerator and denominator", ErrInvalidFrameRate)
	}
	if s.BitrateBPS <= 0 {
		return xerrors.NewInvalidSpecError(fmt.Sprintf("bitrate_bps must be positive, got %d", s.BitrateBPS))
	}
	if s.SourceURI == "" {
		return xerrors.NewInvalidSpecError("source_uri must not be empty")
	}
	for _, t := range s.Trims {
		if t.StartUS >= t.EndUS {
			return invalidSpec(fmt.Sprintf("trim interval [%d,%d) is not valid: start must be before end", t.StartUS, t.EndUS), ErrInvalidTrim)
		}
	}
	return nil
}

func invalidSpec(message string, sentinel error) error {
	return &xerrors.CoreError{Kind: xerrors.KindInvalidSpec, Message: message, Underlying: sentinel}
}

// EffectiveCodecID returns CodecID, defaulting to DefaultCodecID when unset.
func (s *ExportSpec) EffectiveCodecID() string {
	if s.CodecID == "" {
		return DefaultCodecID
	}
	return s.CodecID
}
