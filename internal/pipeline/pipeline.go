// Package pipeline drives a single export as one coordinated decode/render/
// encode/mux loop, owning its SourceReader, FrameCompositor, Encoder and
// Muxer for the run's duration.
package pipeline

import (
	"context"
	"encoding/json"
	"sync"
	"sync/atomic"

	"golang.org/x/sync/errgroup"

	"github.com/clipforge/exportcore/internal/compositor"
	"github.com/clipforge/exportcore/internal/config"
	"github.com/clipforge/exportcore/internal/encoder"
	xerrors "github.com/clipforge/exportcore/internal/errors"
	"github.com/clipforge/exportcore/internal/logging"
	"github.com/clipforge/exportcore/internal/mux"
	"github.com/clipforge/exportcore/internal/source"
	"github.com/clipforge/exportcore/internal/timemap"
)

// ProgressEvent reports the Pipeline's advance through total_frames. Per
// the algorithm's design, EstRemainingUS is always reported as zero; no
// smoothing model is specified.
type ProgressEvent struct {
	CurrentFrame   int64
	TotalFrames    int64
	Fraction       float64
	EstRemainingUS int64
}

// ProgressSink is an optional observer of ProgressEvents.
type ProgressSink interface {
	Emit(ProgressEvent)
}

// Pipeline drives a single ExportSpec through SourceReader, FrameCompositor,
// Encoder and Muxer to a finished Blob.
type Pipeline struct {
	spec   *config.ExportSpec
	sink   ProgressSink
	logger *logging.Logger

	cancelled atomic.Bool

	mu         sync.Mutex
	cancelFunc context.CancelFunc
}

// New constructs a Pipeline for a single run() call. sink and logger may be
// nil.
func New(spec *config.ExportSpec, sink ProgressSink, logger *logging.Logger) *Pipeline {
	if logger == nil {
		logger = logging.Global()
	}
	return &Pipeline{spec: spec, sink: sink, logger: logger}
}

// Cancel sets the cancellation flag observed at every suspension point and
// cancels Run's derived context, so a caller blocked inside a suspension
// point that only watches ctx.Done() — such as Encoder.Submit awaiting a
// backpressure permit — unblocks too. Safe to call before Run, during Run,
// or multiple times; idempotent.
func (p *Pipeline) Cancel() {
	p.cancelled.Store(true)
	p.mu.Lock()
	cancel := p.cancelFunc
	p.mu.Unlock()
	if cancel != nil {
		cancel()
	}
}

type queueItem struct {
	frame   *source.DecodedFrame
	effTSUS int64
	srcTSUS int64
	err     error
}

// Run drives the export end to end, returning the finished Blob or the
// first fatal error encountered. Cleanup of every opened component happens
// exactly once regardless of outcome.
func (p *Pipeline) Run(ctx context.Context) (*mux.Blob, error) {
	if err := p.spec.Validate(); err != nil {
		return nil, err
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	p.mu.Lock()
	p.cancelFunc = cancel
	alreadyCancelled := p.cancelled.Load()
	p.mu.Unlock()
	if alreadyCancelled {
		cancel()
	}

	reader, srcInfo, err := source.Open(ctx, p.spec.SourceURI)
	if err != nil {
		return nil, err
	}

	tm := timemap.New(p.spec.FrameRate.PeriodUS(), p.spec.Trims)
	totalFrames, err := tm.TotalFrames(srcInfo.DurationUS)
	if err != nil {
		reader.Close()
		return nil, err
	}
	if totalFrames == 0 {
		reader.Close()
		return nil, xerrors.NewInvalidSpecError("export spec produces zero output frames")
	}

	comp, err := compositor.Init(compositor.RenderConfig{
		OutputWidth:  p.spec.Width,
		OutputHeight: p.spec.Height,
		SourceWidth:  srcInfo.Width,
		SourceHeight: srcInfo.Height,
		EditLayers:   p.spec.EditLayers,
	})
	if err != nil {
		reader.Close()
		return nil, err
	}

	muxer, err := mux.Init()
	if err != nil {
		comp.Destroy()
		reader.Close()
		return nil, err
	}

	enc := encoder.New(config.MaxInFlight)

	cleanup := func() {
		if err := reader.Close(); err != nil {
			p.logger.Warn("source reader close failed during cleanup", "error", err)
		}
		comp.Destroy()
		if err := enc.Close(); err != nil {
			p.logger.Warn("encoder close failed during cleanup", "error", err)
		}
	}

	group, gctx := errgroup.WithContext(ctx)

	muxTasks := make(chan func() error, config.MaxInFlight)
	group.Go(func() error {
		for task := range muxTasks {
			if err := task(); err != nil {
				return err
			}
		}
		return nil
	})

	onChunk := func(chunk encoder.CodedChunk, meta *encoder.CodecDescription) {
		muxTasks <- func() error {
			return muxer.AddChunk(chunk, meta)
		}
	}

	if err := enc.Configure(gctx, p.spec, onChunk); err != nil {
		close(muxTasks)
		_ = group.Wait()
		cleanup()
		p.logDiagnostics("encoder_configure", 0, totalFrames, err)
		return nil, err
	}

	queue := make(chan queueItem, config.DecodeAhead)
	period := tm.FramePeriodUS()

	group.Go(func() error {
		defer close(queue)
		for i := int64(0); i < totalFrames; i++ {
			if p.cancelled.Load() {
				return xerrors.NewCancelledError()
			}
			effTSUS := i * period
			srcTSUS := tm.SourceTimeOf(effTSUS)
			frame, ferr := reader.FrameAt(gctx, srcTSUS)
			if ferr != nil {
				p.logger.Warn("decode-ahead frame_at failed", "frame", i, "error", ferr)
			}
			select {
			case queue <- queueItem{frame: frame, effTSUS: effTSUS, srcTSUS: srcTSUS, err: ferr}:
			case <-gctx.Done():
				return xerrors.NewCancelledError()
			}
		}
		return nil
	})

	framesEmitted, runErr := p.mainLoop(gctx, totalFrames, period, queue, comp, enc)

	if runErr != nil {
		close(muxTasks)
		_ = group.Wait()
		cleanup()
		p.logDiagnostics("main_loop", framesEmitted, totalFrames, runErr)
		return nil, runErr
	}

	if p.cancelled.Load() {
		close(muxTasks)
		_ = group.Wait()
		cleanup()
		return nil, xerrors.NewCancelledError()
	}

	if err := enc.Flush(gctx); err != nil {
		close(muxTasks)
		_ = group.Wait()
		cleanup()
		p.logDiagnostics("encoder_flush", framesEmitted, totalFrames, err)
		return nil, err
	}
	close(muxTasks)

	if err := group.Wait(); err != nil {
		cleanup()
		p.logDiagnostics("mux_drain", framesEmitted, totalFrames, err)
		return nil, err
	}

	blob, err := muxer.Finalize(ctx)
	cleanup()
	if err != nil {
		return nil, err
	}
	return blob, nil
}

// mainLoop returns the count of frames successfully submitted to the
// encoder alongside the first fatal error, so a failed Run can log where
// the pipeline stopped.
func (p *Pipeline) mainLoop(ctx context.Context, totalFrames, period int64, queue <-chan queueItem, comp *compositor.Compositor, enc *encoder.Encoder) (int64, error) {
	for i := int64(0); i < totalFrames; i++ {
		if p.cancelled.Load() {
			return i, nil
		}

		var item queueItem
		var ok bool
		select {
		case item, ok = <-queue:
			if !ok {
				return i, xerrors.NewDecodeFailedError("decode-ahead queue closed before producing all frames", nil)
			}
		case <-ctx.Done():
			return i, xerrors.NewCancelledError()
		}

		if item.err != nil {
			return i, item.err
		}

		if err := comp.Render(item.frame, item.srcTSUS); err != nil {
			item.frame.Release()
			return i, err
		}
		item.frame.Release()

		handle, err := comp.Target()
		if err != nil {
			return i, err
		}

		composited := &compositor.CompositedFrame{
			Target:        handle,
			EffTSUS:       item.effTSUS,
			FramePeriodUS: period,
		}

		forceKeyframe := i%config.GOPSize == 0
		if err := enc.Submit(ctx, composited, forceKeyframe); err != nil {
			return i, err
		}

		if p.sink != nil {
			p.sink.Emit(ProgressEvent{
				CurrentFrame:   i + 1,
				TotalFrames:    totalFrames,
				Fraction:       float64(i+1) / float64(totalFrames),
				EstRemainingUS: 0,
			})
		}
	}
	return totalFrames, nil
}

// runDiagnostics is a one-line JSON summary of where a failed run stopped,
// logged to help a caller decide whether retrying is worthwhile.
type runDiagnostics struct {
	Stage         string `json:"stage"`
	FramesEmitted int64  `json:"frames_emitted"`
	TotalFrames   int64  `json:"total_frames"`
}

func (p *Pipeline) logDiagnostics(stage string, framesEmitted, totalFrames int64, cause error) {
	blob, err := json.Marshal(runDiagnostics{Stage: stage, FramesEmitted: framesEmitted, TotalFrames: totalFrames})
	if err != nil {
		return
	}
	p.logger.Error("run stopped before completion", "diagnostics", string(blob), "error", cause)
}
