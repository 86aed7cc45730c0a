// Package reporter provides progress reporting interfaces and implementations
// for a single export run and for batch export runs.
package reporter

import "time"

// ExportStartSummary describes the export about to run.
type ExportStartSummary struct {
	SourceURI  string
	OutputPath string
	Duration   string
	Resolution string
}

// ExportConfigSummary describes the encoder configuration a run resolved to.
type ExportConfigSummary struct {
	Encoder    string
	CodecID    string
	BitrateBPS int64
	Width      int
	Height     int
	FrameRate  string
}

// ProgressSnapshot mirrors pipeline.ProgressEvent in reporter-friendly units.
type ProgressSnapshot struct {
	CurrentFrame int64
	TotalFrames  int64
	Percent      float64
	ETA          time.Duration
}

// ValidationSummary contains post-export validation results.
type ValidationSummary struct {
	Passed bool
	Steps  []ValidationStep
}

// ValidationStep represents a single validation check.
type ValidationStep struct {
	Name    string
	Passed  bool
	Details string
}

// ExportOutcome contains a completed run's final results.
type ExportOutcome struct {
	SourceURI       string
	OutputPath      string
	OutputSizeBytes uint64
	TotalTime       time.Duration
	AverageSpeed    float32
}

// ReporterError carries a user-facing error report.
type ReporterError struct {
	Title      string
	Message    string
	Context    string
	Suggestion string
}

// BatchStartInfo describes a batch export run about to start.
type BatchStartInfo struct {
	TotalFiles int
	FileList   []string
	OutputDir  string
}

// FileProgressContext identifies the current file's position within a batch.
type FileProgressContext struct {
	CurrentFile int
	TotalFiles  int
	Filename    string
}

// BatchSummary contains batch completion information.
type BatchSummary struct {
	SuccessfulCount       int
	TotalFiles            int
	TotalDuration         time.Duration
	ValidationPassedCount int
	ValidationFailedCount int
	FileResults           []FileResult
}

// FileResult contains a single file's batch outcome.
type FileResult struct {
	Filename string
	Succeeded bool
	Error    string
}
