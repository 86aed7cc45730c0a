package reporter

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"sync"
	"time"
)

// JSONReporter outputs NDJSON events consumable by a calling process.
type JSONReporter struct {
	writer             io.Writer
	mu                 sync.Mutex
	lastProgressBucket int
	lastProgressTime   time.Time
}

// NewJSONReporter creates a new JSON reporter that writes to stdout.
func NewJSONReporter() *JSONReporter {
	return &JSONReporter{writer: os.Stdout, lastProgressBucket: -1}
}

// NewJSONReporterWithWriter creates a JSON reporter with a custom writer.
func NewJSONReporterWithWriter(w io.Writer) *JSONReporter {
	return &JSONReporter{writer: w, lastProgressBucket: -1}
}

func (r *JSONReporter) timestamp() int64 {
	return time.Now().Unix()
}

func (r *JSONReporter) write(v interface{}) {
	r.mu.Lock()
	defer r.mu.Unlock()

	data, err := json.Marshal(v)
	if err != nil {
		return
	}
	_, _ = fmt.Fprintln(r.writer, string(data))
}

func (r *JSONReporter) ExportStarted(summary ExportStartSummary) {
	r.mu.Lock()
	r.lastProgressBucket = -1
	r.lastProgressTime = time.Time{}
	r.mu.Unlock()

	r.write(map[string]interface{}{
		"type":        "export_started",
		"source_uri":  summary.SourceURI,
		"output_path": summary.OutputPath,
		"duration":    summary.Duration,
		"resolution":  summary.Resolution,
		"timestamp":   r.timestamp(),
	})
}

func (r *JSONReporter) ExportConfig(summary ExportConfigSummary) {
	r.write(map[string]interface{}{
		"type":        "export_config",
		"encoder":     summary.Encoder,
		"codec_id":    summary.CodecID,
		"bitrate_bps": summary.BitrateBPS,
		"width":       summary.Width,
		"height":      summary.Height,
		"frame_rate":  summary.FrameRate,
		"timestamp":   r.timestamp(),
	})
}

func (r *JSONReporter) Progress(snapshot ProgressSnapshot) {
	const progressBucketSize = 1
	const minInterval = 5 * time.Second

	bucket := int(snapshot.Percent) / progressBucketSize
	now := time.Now()

	r.mu.Lock()
	intervalElapsed := r.lastProgressTime.IsZero() || now.Sub(r.lastProgressTime) >= minInterval
	shouldEmit := bucket > r.lastProgressBucket || intervalElapsed || snapshot.Percent >= 99.0

	if !shouldEmit {
		r.mu.Unlock()
		return
	}
	if bucket > r.lastProgressBucket {
		r.lastProgressBucket = bucket
	}
	r.lastProgressTime = now
	r.mu.Unlock()

	r.write(map[string]interface{}{
		"type":          "progress",
		"current_frame": snapshot.CurrentFrame,
		"total_frames":  snapshot.TotalFrames,
		"percent":       snapshot.Percent,
		"eta_seconds":   int64(snapshot.ETA.Seconds()),
		"timestamp":     r.timestamp(),
	})
}

func (r *JSONReporter) ValidationComplete(summary ValidationSummary) {
	steps := make([]map[string]interface{}, len(summary.Steps))
	for i, step := range summary.Steps {
		steps[i] = map[string]interface{}{
			"step":    step.Name,
			"passed":  step.Passed,
			"details": step.Details,
		}
	}

	r.write(map[string]interface{}{
		"type":              "validation_complete",
		"validation_passed": summary.Passed,
		"validation_steps":  steps,
		"timestamp":         r.timestamp(),
	})
}

func (r *JSONReporter) ExportComplete(summary ExportOutcome) {
	r.write(map[string]interface{}{
		"type":              "export_complete",
		"source_uri":        summary.SourceURI,
		"output_path":       summary.OutputPath,
		"output_size_bytes": summary.OutputSizeBytes,
		"duration_seconds":  int64(summary.TotalTime.Seconds()),
		"average_speed":     summary.AverageSpeed,
		"timestamp":         r.timestamp(),
	})
}

func (r *JSONReporter) Warning(message string) {
	r.write(map[string]interface{}{
		"type":      "warning",
		"message":   message,
		"timestamp": r.timestamp(),
	})
}

func (r *JSONReporter) Error(err ReporterError) {
	r.write(map[string]interface{}{
		"type":       "error",
		"title":      err.Title,
		"message":    err.Message,
		"context":    err.Context,
		"suggestion": err.Suggestion,
		"timestamp":  r.timestamp(),
	})
}

func (r *JSONReporter) OperationComplete(message string) {
	r.write(map[string]interface{}{
		"type":      "operation_complete",
		"message":   message,
		"timestamp": r.timestamp(),
	})
}

func (r *JSONReporter) BatchStarted(info BatchStartInfo) {
	r.write(map[string]interface{}{
		"type":        "batch_started",
		"total_files": info.TotalFiles,
		"file_list":   info.FileList,
		"output_dir":  info.OutputDir,
		"timestamp":   r.timestamp(),
	})
}

func (r *JSONReporter) FileProgress(context FileProgressContext) {
	r.write(map[string]interface{}{
		"type":         "file_progress",
		"current_file": context.CurrentFile,
		"total_files":  context.TotalFiles,
		"filename":     context.Filename,
		"timestamp":    r.timestamp(),
	})
}

func (r *JSONReporter) BatchComplete(summary BatchSummary) {
	r.write(map[string]interface{}{
		"type":                    "batch_complete",
		"successful_count":        summary.SuccessfulCount,
		"total_files":             summary.TotalFiles,
		"total_duration_seconds":  int64(summary.TotalDuration.Seconds()),
		"validation_passed_count": summary.ValidationPassedCount,
		"validation_failed_count": summary.ValidationFailedCount,
		"timestamp":               r.timestamp(),
	})
}

func (r *JSONReporter) Verbose(message string) {
	r.write(map[string]interface{}{
		"type":      "verbose",
		"message":   message,
		"timestamp": r.timestamp(),
	})
}
