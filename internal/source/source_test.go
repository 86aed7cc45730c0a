package source

import (
	"context"
	"errors"
	"io"
	"testing"

	"github.com/clipforge/exportcore/internal/ffmpeg"
	"github.com/clipforge/exportcore/internal/ffprobe"
)

func rgbaFrame(width, height int) []byte {
	return make([]byte, width*height*4)
}

func TestOpen(t *testing.T) {
	origProbe := ProbeFunc
	defer func() { ProbeFunc = origProbe }()
	ProbeFunc = func(string) (*ffprobe.VideoProperties, error) {
		return &ffprobe.VideoProperties{Width: 1920, Height: 1080, DurationSecs: 10}, nil
	}

	r, info, err := Open(context.Background(), "clip.mp4")
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	if info.Width != 1920 || info.Height != 1080 {
		t.Errorf("info dimensions = %dx%d, want 1920x1080", info.Width, info.Height)
	}
	if info.DurationUS != 10_000_000 {
		t.Errorf("info.DurationUS = %d, want 10000000", info.DurationUS)
	}
	if r == nil {
		t.Fatal("Reader is nil")
	}
}

func TestOpenProbeFailure(t *testing.T) {
	origProbe := ProbeFunc
	defer func() { ProbeFunc = origProbe }()
	ProbeFunc = func(string) (*ffprobe.VideoProperties, error) {
		return nil, errors.New("no such file")
	}

	if _, _, err := Open(context.Background(), "missing.mp4"); err == nil {
		t.Fatal("expected error for unprobeable source")
	}
}

func TestOpenZeroDimensions(t *testing.T) {
	origProbe := ProbeFunc
	defer func() { ProbeFunc = origProbe }()
	ProbeFunc = func(string) (*ffprobe.VideoProperties, error) {
		return &ffprobe.VideoProperties{Width: 0, Height: 0, DurationSecs: 10}, nil
	}

	if _, _, err := Open(context.Background(), "audio-only.mp4"); err == nil {
		t.Fatal("expected error for a source with no video stream")
	}
}

func newOpenReader(t *testing.T, width, height int, durationSecs float64) *Reader {
	t.Helper()
	origProbe := ProbeFunc
	t.Cleanup(func() { ProbeFunc = origProbe })
	ProbeFunc = func(string) (*ffprobe.VideoProperties, error) {
		return &ffprobe.VideoProperties{Width: width, Height: height, DurationSecs: durationSecs}, nil
	}
	r, _, err := Open(context.Background(), "clip.mp4")
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	return r
}

func TestFrameAtDecodesFrame(t *testing.T) {
	r := newOpenReader(t, 64, 48, 10)

	origDecode := RunDecode
	defer func() { RunDecode = origDecode }()
	RunDecode = func(ctx context.Context, name string, args []string, stdin io.Reader) (*ffmpeg.RunResult, error) {
		return &ffmpeg.RunResult{Stdout: rgbaFrame(64, 48)}, nil
	}

	frame, err := r.FrameAt(context.Background(), 1_000_000)
	if err != nil {
		t.Fatalf("FrameAt() error = %v", err)
	}
	if frame.SrcTSUS != 1_000_000 {
		t.Errorf("SrcTSUS = %d, want 1000000", frame.SrcTSUS)
	}
	if frame.Image.Bounds().Dx() != 64 || frame.Image.Bounds().Dy() != 48 {
		t.Errorf("decoded image dims = %v, want 64x48", frame.Image.Bounds())
	}
}

func TestFrameAtIdempotentWithinTolerance(t *testing.T) {
	r := newOpenReader(t, 32, 32, 10)

	calls := 0
	origDecode := RunDecode
	defer func() { RunDecode = origDecode }()
	RunDecode = func(ctx context.Context, name string, args []string, stdin io.Reader) (*ffmpeg.RunResult, error) {
		calls++
		return &ffmpeg.RunResult{Stdout: rgbaFrame(32, 32)}, nil
	}

	if _, err := r.FrameAt(context.Background(), 2_000_000); err != nil {
		t.Fatalf("first FrameAt() error = %v", err)
	}
	if _, err := r.FrameAt(context.Background(), 2_000_500); err != nil {
		t.Fatalf("second FrameAt() error = %v", err)
	}
	if calls != 1 {
		t.Errorf("decode calls = %d, want 1 (second call should reuse cached frame)", calls)
	}
}

func TestFrameAtClampsPastDuration(t *testing.T) {
	r := newOpenReader(t, 32, 32, 5)

	var gotArgsSeek int64 = -1
	origDecode := RunDecode
	defer func() { RunDecode = origDecode }()
	RunDecode = func(ctx context.Context, name string, args []string, stdin io.Reader) (*ffmpeg.RunResult, error) {
		gotArgsSeek = 1
		return &ffmpeg.RunResult{Stdout: rgbaFrame(32, 32)}, nil
	}

	frame, err := r.FrameAt(context.Background(), 9_000_000)
	if err != nil {
		t.Fatalf("FrameAt() error = %v", err)
	}
	if frame.SrcTSUS >= 5_000_000 {
		t.Errorf("SrcTSUS = %d, want clamped below source duration 5000000", frame.SrcTSUS)
	}
	if gotArgsSeek == -1 {
		t.Error("decode was never invoked")
	}
}

func TestFrameAtRetriesOnceOnSeekFailure(t *testing.T) {
	r := newOpenReader(t, 32, 32, 10)

	calls := 0
	origDecode := RunDecode
	defer func() { RunDecode = origDecode }()
	RunDecode = func(ctx context.Context, name string, args []string, stdin io.Reader) (*ffmpeg.RunResult, error) {
		calls++
		if calls == 1 {
			return nil, errors.New("seek failed")
		}
		return &ffmpeg.RunResult{Stdout: rgbaFrame(32, 32)}, nil
	}

	frame, err := r.FrameAt(context.Background(), 1_000_000)
	if err != nil {
		t.Fatalf("FrameAt() error = %v, want success on retry", err)
	}
	if calls != 2 {
		t.Errorf("decode calls = %d, want 2 (one retry)", calls)
	}
	if frame == nil {
		t.Fatal("frame is nil")
	}
}

func TestFrameAtFailsAfterRetryExhausted(t *testing.T) {
	r := newOpenReader(t, 32, 32, 10)

	origDecode := RunDecode
	defer func() { RunDecode = origDecode }()
	RunDecode = func(ctx context.Context, name string, args []string, stdin io.Reader) (*ffmpeg.RunResult, error) {
		return nil, errors.New("seek failed")
	}

	if _, err := r.FrameAt(context.Background(), 1_000_000); err == nil {
		t.Fatal("expected error after retry exhausted")
	}
}

func TestFrameAtOnClosedReader(t *testing.T) {
	r := newOpenReader(t, 32, 32, 10)
	if err := r.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}
	if _, err := r.FrameAt(context.Background(), 0); err == nil {
		t.Fatal("expected error for FrameAt on a closed reader")
	}
}

func TestDecodedFrameReleaseIsIdempotent(t *testing.T) {
	frame := &DecodedFrame{Image: nil, SrcTSUS: 0}
	frame.Release()
	frame.Release()
	if !frame.released {
		t.Error("expected released to be true")
	}
}
