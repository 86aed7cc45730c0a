package reporter

import (
	"time"

	"github.com/clipforge/exportcore/internal/pipeline"
)

// PipelineSink adapts a Reporter to pipeline.ProgressSink, so a Pipeline run
// can report through whichever Reporter the caller configured.
type PipelineSink struct {
	Reporter Reporter
}

// Emit implements pipeline.ProgressSink.
func (s PipelineSink) Emit(e pipeline.ProgressEvent) {
	s.Reporter.Progress(ProgressSnapshot{
		CurrentFrame: e.CurrentFrame,
		TotalFrames:  e.TotalFrames,
		Percent:      e.Fraction * 100,
		ETA:          time.Duration(e.EstRemainingUS) * time.Microsecond,
	})
}
