// Package encoder drives CompositedFrames through ffmpeg to produce
// CodedChunks, enforcing the submit/flush/close state machine and the
// in-flight backpressure ceiling described by the pipeline.
package encoder

import (
	"bytes"
	"context"
	"fmt"
	"sync"

	"github.com/clipforge/exportcore/internal/compositor"
	"github.com/clipforge/exportcore/internal/config"
	xerrors "github.com/clipforge/exportcore/internal/errors"
	"github.com/clipforge/exportcore/internal/ffmpeg"
	"github.com/clipforge/exportcore/internal/worker"
)

// State is the Encoder's lifecycle state.
type State int

const (
	Unconfigured State = iota
	Configured
	Flushing
	Closed
)

func (s State) String() string {
	switch s {
	case Unconfigured:
		return "unconfigured"
	case Configured:
		return "configured"
	case Flushing:
		return "flushing"
	case Closed:
		return "closed"
	default:
		return "unknown"
	}
}

// ColorSpace is the coded stream's color space, captured from the first
// chunk's metadata per the spec's idempotent re-attachment contract.
type ColorSpace string

const (
	ColorSpaceBT709 ColorSpace = "bt709"
	ColorSpaceSRGB  ColorSpace = "srgb"
)

// CodedChunk is one encoded access unit in submission (presentation) order.
type CodedChunk struct {
	Data       []byte
	PTSUS      int64
	DurationUS int64
	IsKey      bool
}

// CodecDescription describes the coded stream, captured from the first
// chunk and reused for every later chunk whose encode omits it.
type CodecDescription struct {
	CodecID         string
	DescriptionBlob []byte
	CodedW, CodedH  int
	ColorSpace      ColorSpace
}

// ChunkCallback receives CodedChunks in strict submission order, along with
// the (idempotently re-attached) CodecDescription.
type ChunkCallback func(chunk CodedChunk, meta *CodecDescription)

// RunEncode is overridable by tests (including the Pipeline's end-to-end
// tests) so Encoder unit tests never invoke a real ffmpeg binary.
var RunEncode = ffmpeg.Run

// Encoder implements the Unconfigured -> Configured -> {Flushing -> Closed |
// Closed} state machine. One ffmpeg subprocess is launched per submitted
// frame (mirroring the per-frame decode model in internal/source), bounded
// by a worker.Semaphore so at most MAX_IN_FLIGHT invocations run at once;
// an ordered-delivery buffer keyed by submission index guarantees the
// callback still observes strict presentation order even though subprocess
// completions race.
type Encoder struct {
	mu          sync.Mutex
	state       State
	params      ffmpeg.EncodeParams
	encoderName string
	sem         *worker.Semaphore
	onChunk     ChunkCallback

	nextSubmit  int
	nextDeliver int
	pending     map[int]orderedResult
	description *CodecDescription

	wg       sync.WaitGroup
	firstErr error
}

type orderedResult struct {
	chunk CodedChunk
	err   error
}

// New creates an unconfigured Encoder bounded by maxInFlight concurrent
// submissions.
func New(maxInFlight int) *Encoder {
	if maxInFlight <= 0 {
		maxInFlight = config.MaxInFlight
	}
	return &Encoder{
		state:   Unconfigured,
		sem:     worker.NewSemaphore(maxInFlight),
		pending: make(map[int]orderedResult),
	}
}

// Configure tries a hardware encoder name first, falling back to software,
// failing with CodecUnsupported if neither probes successfully.
func (e *Encoder) Configure(ctx context.Context, spec *config.ExportSpec, onChunk ChunkCallback) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.state != Unconfigured {
		return xerrors.NewEncoderFailedError(fmt.Sprintf("Configure called in state %s, want unconfigured", e.state), nil)
	}

	params := ffmpeg.EncodeParams{
		Width:      spec.Width,
		Height:     spec.Height,
		BitrateBPS: spec.BitrateBPS,
		CodecID:    spec.EffectiveCodecID(),
	}

	hwName := ffmpeg.ResolveEncoderName(params.CodecID, true)
	hwParams := params
	hwParams.CodecParams = ffmpeg.DefaultCodecParams(hwName)
	if probeEncoder(ctx, &hwParams, hwName) {
		e.params = hwParams
		e.encoderName = hwName
		e.onChunk = onChunk
		e.state = Configured
		return nil
	}

	swName := ffmpeg.ResolveEncoderName(params.CodecID, false)
	swParams := params
	swParams.CodecParams = ffmpeg.DefaultCodecParams(swName)
	if probeEncoder(ctx, &swParams, swName) {
		e.params = swParams
		e.encoderName = swName
		e.onChunk = onChunk
		e.state = Configured
		return nil
	}

	return xerrors.NewCodecUnsupportedError(params.CodecID)
}

func probeEncoder(ctx context.Context, params *ffmpeg.EncodeParams, encoderName string) bool {
	probeParams := *params
	args := ffmpeg.BuildEncodeArgs(&probeParams, encoderName)
	blank := make([]byte, probeParams.Width*probeParams.Height*4)
	_, err := RunEncode(ctx, "ffmpeg", args, bytes.NewReader(blank))
	return err == nil
}

// Submit asynchronously enqueues frame for encoding. The caller releases
// frame's target immediately after Submit returns; Submit copies the pixel
// data it needs before returning. Every 150th submission (config.GOPSize)
// is forced to a keyframe independent of forceKeyframe.
func (e *Encoder) Submit(ctx context.Context, frame *compositor.CompositedFrame, forceKeyframe bool) error {
	e.mu.Lock()
	if e.state != Configured {
		e.mu.Unlock()
		return xerrors.NewEncoderFailedError(fmt.Sprintf("Submit called in state %s, want configured", e.state), nil)
	}
	idx := e.nextSubmit
	e.nextSubmit++
	params := e.params
	encoderName := e.encoderName
	e.mu.Unlock()

	select {
	case <-e.sem.Chan():
	case <-ctx.Done():
		return xerrors.NewCancelledError()
	}

	img := frame.Target.Image()
	pix := make([]byte, len(img.Pix))
	copy(pix, img.Pix)

	isKey := forceKeyframe || idx%config.GOPSize == 0

	e.wg.Add(1)
	go e.runSubmit(ctx, idx, pix, isKey, frame.EffTSUS, frame.FramePeriodUS, params, encoderName)
	return nil
}

func (e *Encoder) runSubmit(ctx context.Context, idx int, pix []byte, isKey bool, effTSUS, periodUS int64, params ffmpeg.EncodeParams, encoderName string) {
	defer e.wg.Done()
	defer e.sem.Release()

	args := ffmpeg.BuildEncodeArgs(&params, encoderName)
	result, err := RunEncode(ctx, "ffmpeg", args, bytes.NewReader(pix))

	var res orderedResult
	if err != nil {
		res = orderedResult{err: xerrors.NewEncoderFailedError(fmt.Sprintf("encode of submission %d failed", idx), err)}
	} else {
		res = orderedResult{chunk: CodedChunk{
			Data:       result.Stdout,
			PTSUS:      effTSUS,
			DurationUS: periodUS,
			IsKey:      isKey,
		}}
	}

	e.deliver(idx, res)
}

// deliver stores the result and drains any run of consecutive, in-order
// results it unblocks, invoking onChunk for each exactly once.
func (e *Encoder) deliver(idx int, res orderedResult) {
	e.mu.Lock()
	defer e.mu.Unlock()

	e.pending[idx] = res

	for {
		next, ok := e.pending[e.nextDeliver]
		if !ok {
			break
		}
		delete(e.pending, e.nextDeliver)
		e.nextDeliver++

		if next.err != nil {
			if e.firstErr == nil {
				e.firstErr = next.err
			}
			continue
		}

		meta := e.descriptionFor(next.chunk)
		if e.onChunk != nil {
			e.onChunk(next.chunk, meta)
		}
	}
}

// descriptionFor returns the CodecDescription to attach to chunk, capturing
// it from the first successfully delivered chunk and reusing it thereafter
// (idempotent re-attachment).
func (e *Encoder) descriptionFor(chunk CodedChunk) *CodecDescription {
	if e.description == nil {
		e.description = &CodecDescription{
			CodecID:    e.params.CodecID,
			CodedW:     e.params.Width,
			CodedH:     e.params.Height,
			ColorSpace: ColorSpaceBT709,
		}
	}
	return e.description
}

// InFlight returns the number of submissions awaiting a chunk.
func (e *Encoder) InFlight() int {
	return e.sem.InFlight()
}

// Flush awaits drain of all in-flight encodes, returning the first error
// observed (if any) across all submissions.
func (e *Encoder) Flush(ctx context.Context) error {
	e.mu.Lock()
	if e.state != Configured {
		e.mu.Unlock()
		return xerrors.NewEncoderFailedError(fmt.Sprintf("Flush called in state %s, want configured", e.state), nil)
	}
	e.state = Flushing
	e.mu.Unlock()

	done := make(chan struct{})
	go func() {
		e.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
	case <-ctx.Done():
		return xerrors.NewCancelledError()
	}

	e.mu.Lock()
	err := e.firstErr
	e.mu.Unlock()
	return err
}

// Close releases the Encoder. Submit and Flush are illegal afterward.
func (e *Encoder) Close() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.state = Closed
	return nil
}
