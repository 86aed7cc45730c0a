package validation

import (
	"fmt"
	"math"
)

// durationToleranceSecs is the maximum allowed difference between the
// requested output duration and the measured one.
const durationToleranceSecs = 1.0

// Options contains optional parameters for validation.
type Options struct {
	ExpectedDimensions *[2]uint32
	ExpectedDuration   *float64
}

// ValidateOutputVideo performs post-export validation of a finished Blob's
// muxed file. It delegates to ValidateWithAnalyzer using the DefaultAnalyzer.
func ValidateOutputVideo(outputPath string, opts Options) (*Result, error) {
	return ValidateWithAnalyzer(NewDefaultAnalyzer(), outputPath, opts)
}

func validateDimensions(actualW, actualH, expectedW, expectedH uint32) (bool, string) {
	if actualW == expectedW && actualH == expectedH {
		return true, fmt.Sprintf("dimensions match: %dx%d", actualW, actualH)
	}
	return false, fmt.Sprintf("dimension mismatch: got %dx%d, expected %dx%d",
		actualW, actualH, expectedW, expectedH)
}

func validateDuration(actual, expected float64) (bool, string) {
	diff := math.Abs(actual - expected)
	if diff <= durationToleranceSecs {
		return true, fmt.Sprintf("duration matches request (%.1fs)", actual)
	}
	return false, fmt.Sprintf("duration mismatch: got %.1fs, expected %.1fs (diff: %.1fs)",
		actual, expected, diff)
}

// ValidateWithAnalyzer performs validation using a MediaAnalyzer interface.
// This allows for testing without external tool dependencies.
func ValidateWithAnalyzer(analyzer MediaAnalyzer, outputPath string, opts Options) (*Result, error) {
	result := &Result{IsCropCorrect: true, IsDurationCorrect: true}

	outputProps, err := analyzer.GetVideoProperties(outputPath)
	if err != nil {
		return nil, fmt.Errorf("failed to get output video properties: %w", err)
	}

	if opts.ExpectedDimensions != nil {
		result.ActualDimensions = &[2]uint32{outputProps.Width, outputProps.Height}
		result.ExpectedDimensions = opts.ExpectedDimensions
		result.IsCropCorrect, result.CropMessage = validateDimensions(
			outputProps.Width, outputProps.Height,
			opts.ExpectedDimensions[0], opts.ExpectedDimensions[1],
		)
	} else {
		result.CropMessage = "no dimension validation requested"
	}

	if opts.ExpectedDuration != nil {
		actualDur := outputProps.DurationSecs
		result.ActualDuration = &actualDur
		result.ExpectedDuration = opts.ExpectedDuration
		result.IsDurationCorrect, result.DurationMessage = validateDuration(actualDur, *opts.ExpectedDuration)
	} else {
		result.DurationMessage = "duration validation skipped"
	}

	return result, nil
}
