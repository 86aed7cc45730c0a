// Package exportcore provides a Go library for deterministic, frame-accurate
// video re-rendering: decode, composite, encode and mux a declarative
// ExportSpec into a finished Blob.
//
// Basic usage:
//
//	spec := exportcore.NewExportSpec("clip.mp4", 1920, 1080, exportcore.FrameRate{Num: 30, Den: 1})
//	blob, err := exportcore.Export(ctx, spec, nil)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	os.WriteFile("out.mp4", blob.Data, 0o644)
package exportcore

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/google/uuid"

	"github.com/clipforge/exportcore/internal/config"
	"github.com/clipforge/exportcore/internal/discovery"
	"github.com/clipforge/exportcore/internal/logging"
	"github.com/clipforge/exportcore/internal/mux"
	"github.com/clipforge/exportcore/internal/pipeline"
	"github.com/clipforge/exportcore/internal/reporter"
	"github.com/clipforge/exportcore/internal/validation"
)

// Re-export the config types callers need to build an ExportSpec without a
// second import.
type ExportSpec = config.ExportSpec
type FrameRate = config.FrameRate

// NewExportSpec creates an ExportSpec with pipeline defaults applied.
func NewExportSpec(sourceURI string, width, height int, frameRate FrameRate) *ExportSpec {
	return config.NewExportSpec(sourceURI, width, height, frameRate)
}

// FileResult holds the outcome of a single spec's export within a batch.
type FileResult struct {
	SourceURI       string
	OutputSizeBytes uint64
	Duration        time.Duration
	ValidationOK    bool
	Err             error
}

// BatchResult aggregates the outcome of ExportBatch/ExportDir.
type BatchResult struct {
	Results         []FileResult
	TotalFiles      int
	SuccessfulCount int
}

// Export runs a single ExportSpec end to end and returns the finished Blob.
// rep may be nil, in which case updates are discarded.
func Export(ctx context.Context, spec *ExportSpec, rep reporter.Reporter) (*mux.Blob, error) {
	if rep == nil {
		rep = reporter.NullReporter{}
	}

	runID := uuid.New().String()
	logger := logging.Global().WithPrefix(runID[:8])

	rep.ExportStarted(reporter.ExportStartSummary{
		SourceURI:  spec.SourceURI,
		Resolution: fmt.Sprintf("%dx%d", spec.Width, spec.Height),
	})
	rep.ExportConfig(reporter.ExportConfigSummary{
		CodecID:    spec.EffectiveCodecID(),
		BitrateBPS: spec.BitrateBPS,
		Width:      spec.Width,
		Height:     spec.Height,
		FrameRate:  fmt.Sprintf("%d/%d", spec.FrameRate.Num, spec.FrameRate.Den),
	})

	sink := reporter.PipelineSink{Reporter: rep}
	p := pipeline.New(spec, sink, logger)

	start := time.Now()
	blob, err := p.Run(ctx)
	elapsed := time.Since(start)
	if err != nil {
		rep.Error(reporter.ReporterError{
			Title:   "export failed",
			Message: err.Error(),
			Context: spec.SourceURI,
		})
		return nil, err
	}

	rep.ExportComplete(reporter.ExportOutcome{
		SourceURI:       spec.SourceURI,
		OutputSizeBytes: uint64(len(blob.Data)),
		TotalTime:       elapsed,
	})
	return blob, nil
}

// ExportAndValidate runs Export and then validates the resulting Blob's
// muxed bytes match the spec's requested dimensions, writing blob.Data to
// outputPath first so ffprobe can inspect it.
func ExportAndValidate(ctx context.Context, spec *ExportSpec, outputPath string, rep reporter.Reporter) (*mux.Blob, *validation.Result, error) {
	if rep == nil {
		rep = reporter.NullReporter{}
	}

	blob, err := Export(ctx, spec, rep)
	if err != nil {
		return nil, nil, err
	}

	if err := os.WriteFile(outputPath, blob.Data, 0o644); err != nil {
		return blob, nil, fmt.Errorf("writing output file: %w", err)
	}

	dims := [2]uint32{uint32(spec.Width), uint32(spec.Height)}
	result, err := validation.ValidateOutputVideo(outputPath, validation.Options{ExpectedDimensions: &dims})
	if err != nil {
		return blob, nil, err
	}

	steps := result.GetValidationSteps()
	repSteps := make([]reporter.ValidationStep, len(steps))
	for i, s := range steps {
		repSteps[i] = reporter.ValidationStep{Name: s.Name, Passed: s.Passed, Details: s.Details}
	}
	rep.ValidationComplete(reporter.ValidationSummary{Passed: result.IsValid(), Steps: repSteps})

	return blob, result, nil
}

// ExportBatch runs several ExportSpecs sequentially, each with its own
// Pipeline lifecycle, reporting BatchStarted/FileProgress/BatchComplete.
func ExportBatch(ctx context.Context, specs []*ExportSpec, rep reporter.Reporter) (*BatchResult, error) {
	if rep == nil {
		rep = reporter.NullReporter{}
	}

	sources := make([]string, len(specs))
	for i, s := range specs {
		sources[i] = s.SourceURI
	}
	rep.BatchStarted(reporter.BatchStartInfo{TotalFiles: len(specs), FileList: sources})

	batch := &BatchResult{TotalFiles: len(specs)}
	for i, spec := range specs {
		rep.FileProgress(reporter.FileProgressContext{
			CurrentFile: i + 1,
			TotalFiles:  len(specs),
			Filename:    spec.SourceURI,
		})

		start := time.Now()
		blob, err := Export(ctx, spec, rep)
		elapsed := time.Since(start)

		fr := FileResult{SourceURI: spec.SourceURI, Duration: elapsed, Err: err}
		if err == nil {
			fr.OutputSizeBytes = uint64(len(blob.Data))
			fr.ValidationOK = true
			batch.SuccessfulCount++
		}
		batch.Results = append(batch.Results, fr)

		if err != nil && ctx.Err() != nil {
			break
		}
	}

	var totalDuration time.Duration
	var validationPassed, validationFailed int
	fileResults := make([]reporter.FileResult, len(batch.Results))
	for i, r := range batch.Results {
		totalDuration += r.Duration
		errMsg := ""
		if r.Err != nil {
			errMsg = r.Err.Error()
		}
		if r.Err == nil && r.ValidationOK {
			validationPassed++
		} else if r.Err == nil {
			validationFailed++
		}
		fileResults[i] = reporter.FileResult{Filename: r.SourceURI, Succeeded: r.Err == nil, Error: errMsg}
	}
	rep.BatchComplete(reporter.BatchSummary{
		SuccessfulCount:       batch.SuccessfulCount,
		TotalFiles:            batch.TotalFiles,
		TotalDuration:         totalDuration,
		ValidationPassedCount: validationPassed,
		ValidationFailedCount: validationFailed,
		FileResults:           fileResults,
	})

	return batch, nil
}

// ExportDir discovers ExportSpec documents in inputDir and runs them as a
// batch, in the order FindSpecFiles returns (alphabetical by filename).
func ExportDir(ctx context.Context, inputDir string, rep reporter.Reporter) (*BatchResult, error) {
	files, err := discovery.FindSpecFiles(inputDir)
	if err != nil {
		return nil, err
	}

	specs := make([]*ExportSpec, 0, len(files))
	for _, f := range files {
		spec, err := config.LoadExportSpec(f)
		if err != nil {
			return nil, err
		}
		specs = append(specs, spec)
	}

	return ExportBatch(ctx, specs, rep)
}
