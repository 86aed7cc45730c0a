// Package source reads decoded frames from a source clip addressed by
// source time, shelling out to ffmpeg/ffprobe rather than binding a decoder
// directly.
package source

import (
	"context"
	"fmt"
	"image"

	xerrors "github.com/clipforge/exportcore/internal/errors"
	"github.com/clipforge/exportcore/internal/ffmpeg"
	"github.com/clipforge/exportcore/internal/ffprobe"
)

// idempotentSeekToleranceUS is the window within which a repeated frame_at
// call may reuse the previously decoded frame instead of reseeking.
const idempotentSeekToleranceUS = 1000

// ProbeFunc and RunDecode are overridable by tests (and by the Pipeline's
// own end-to-end tests) so Reader unit tests never invoke real
// ffprobe/ffmpeg binaries.
var ProbeFunc = ffprobe.GetVideoProperties
var RunDecode = ffmpeg.Run

// SourceInfo is returned by Open: the source's dimensions and duration.
type SourceInfo struct {
	Width, Height int
	DurationUS    int64
}

// DecodedFrame is a decoded image bound to the source timestamp it was
// sampled at. The Pipeline releases it immediately after the compositor
// consumes it; Release is idempotent.
type DecodedFrame struct {
	Image    *image.RGBA
	SrcTSUS  int64
	released bool
}

// Release drops the frame's backing image, matching the "exclusive
// ownership until explicitly released" contract.
func (f *DecodedFrame) Release() {
	f.Image = nil
	f.released = true
}

// Reader implements SourceReader: open/frame_at/close over a single source
// clip, enforced single-producer by the caller (the Pipeline never issues a
// second frame_at before the first resolves).
type Reader struct {
	uri    string
	info   SourceInfo
	opened bool

	lastTSUS  int64
	lastFrame *image.RGBA
	hasLast   bool
}

// Open probes the source clip and prepares a Reader for frame_at calls.
func Open(ctx context.Context, uri string) (*Reader, *SourceInfo, error) {
	props, err := ProbeFunc(uri)
	if err != nil {
		return nil, nil, xerrors.NewSourceUnavailableError(fmt.Sprintf("cannot open source %s", uri), err)
	}
	if props.Width <= 0 || props.Height <= 0 {
		return nil, nil, xerrors.NewUnsupportedFormatError(fmt.Sprintf("source %s has no decodable video stream", uri))
	}

	info := SourceInfo{
		Width:      props.Width,
		Height:     props.Height,
		DurationUS: int64(props.DurationSecs * 1_000_000),
	}
	r := &Reader{uri: uri, info: info, opened: true}
	return r, &info, nil
}

// FrameAt seeks to srcTSUS and captures the current frame. When the decoder
// already sits within idempotentSeekToleranceUS of srcTSUS (the most recent
// call), the seek is skipped and the cached frame is reused. Requests past
// the source's end are clamped to the last available frame.
func (r *Reader) FrameAt(ctx context.Context, srcTSUS int64) (*DecodedFrame, error) {
	if !r.opened {
		return nil, xerrors.NewSourceUnavailableError("FrameAt called on a closed reader", nil)
	}

	clamped := srcTSUS
	if r.info.DurationUS > 0 && clamped >= r.info.DurationUS {
		clamped = r.info.DurationUS - 1
		if clamped < 0 {
			clamped = 0
		}
	}

	if r.hasLast && absInt64(clamped-r.lastTSUS) <= idempotentSeekToleranceUS {
		return &DecodedFrame{Image: r.lastFrame, SrcTSUS: clamped}, nil
	}

	img, err := r.decodeAt(ctx, clamped)
	if err != nil {
		// One retry on seek failure, per the retry-once contract.
		img, err = r.decodeAt(ctx, clamped)
		if err != nil {
			return nil, xerrors.NewSeekFailedError(fmt.Sprintf("seek to %dus failed after retry", clamped), err)
		}
	}

	r.lastTSUS = clamped
	r.lastFrame = img
	r.hasLast = true

	return &DecodedFrame{Image: img, SrcTSUS: clamped}, nil
}

func (r *Reader) decodeAt(ctx context.Context, srcTSUS int64) (*image.RGBA, error) {
	args := ffmpeg.BuildDecodeArgs(r.uri, srcTSUS, r.info.Width, r.info.Height)
	result, err := RunDecode(ctx, "ffmpeg", args, nil)
	if err != nil {
		return nil, err
	}

	wantBytes := r.info.Width * r.info.Height * 4
	if len(result.Stdout) < wantBytes {
		return nil, fmt.Errorf("decoded frame truncated: got %d bytes, want %d", len(result.Stdout), wantBytes)
	}

	img := image.NewRGBA(image.Rect(0, 0, r.info.Width, r.info.Height))
	copy(img.Pix, result.Stdout[:wantBytes])
	return img, nil
}

// Close releases the reader. It does not err; ffmpeg subprocesses are
// already reaped per-call.
func (r *Reader) Close() error {
	r.opened = false
	r.lastFrame = nil
	r.hasLast = false
	return nil
}

func absInt64(v int64) int64 {
	if v < 0 {
		return -v
	}
	return v
}
