package pipeline

import (
	"context"
	"errors"
	"io"
	"sync"
	"testing"

	"github.com/clipforge/exportcore/internal/config"
	"github.com/clipforge/exportcore/internal/encoder"
	xerrors "github.com/clipforge/exportcore/internal/errors"
	"github.com/clipforge/exportcore/internal/ffmpeg"
	"github.com/clipforge/exportcore/internal/ffprobe"
	"github.com/clipforge/exportcore/internal/mux"
	"github.com/clipforge/exportcore/internal/source"
)

// fakeStack wires the overridable package-level seams (source.ProbeFunc,
// source.RunDecode, encoder.RunEncode, mux.RunRemux) so a full Pipeline.Run
// never invokes a real ffmpeg/ffprobe binary.
type fakeStack struct {
	mu     sync.Mutex
	failAt int // 1-indexed RunEncode call to fail, 0 disables
	callN  int
}

func (s *fakeStack) install(t *testing.T, width, height int, durationSecs float64) {
	t.Helper()

	origProbe := source.ProbeFunc
	source.ProbeFunc = func(string) (*ffprobe.VideoProperties, error) {
		return &ffprobe.VideoProperties{Width: width, Height: height, DurationSecs: durationSecs}, nil
	}
	t.Cleanup(func() { source.ProbeFunc = origProbe })

	origDecode := source.RunDecode
	source.RunDecode = func(ctx context.Context, name string, args []string, stdin io.Reader) (*ffmpeg.RunResult, error) {
		return &ffmpeg.RunResult{Stdout: rgbaBytes(width, height)}, nil
	}
	t.Cleanup(func() { source.RunDecode = origDecode })

	origEncode := encoder.RunEncode
	encoder.RunEncode = func(ctx context.Context, name string, args []string, stdin io.Reader) (*ffmpeg.RunResult, error) {
		s.mu.Lock()
		s.callN++
		n := s.callN
		s.mu.Unlock()
		if s.failAt != 0 && n == s.failAt {
			return nil, errors.New("injected encode failure")
		}
		return &ffmpeg.RunResult{Stdout: []byte{0x00}}, nil
	}
	t.Cleanup(func() { encoder.RunEncode = origEncode })

	origRemux := mux.RunRemux
	mux.RunRemux = func(ctx context.Context, name string, args []string, stdin io.Reader) (*ffmpeg.RunResult, error) {
		data, _ := io.ReadAll(stdin)
		return &ffmpeg.RunResult{Stdout: data}, nil
	}
	t.Cleanup(func() { mux.RunRemux = origRemux })
}

func rgbaBytes(w, h int) []byte {
	return make([]byte, w*h*4)
}

func testSpec() *config.ExportSpec {
	return &config.ExportSpec{
		Width: 32, Height: 32,
		FrameRate:  config.FrameRate{Num: 10, Den: 1},
		BitrateBPS: 1_000_000,
		CodecID:    "avc1.640033",
		SourceURI:  "clip.mp4",
	}
}

type collectingSink struct {
	mu     sync.Mutex
	events []ProgressEvent
}

func (c *collectingSink) Emit(e ProgressEvent) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.events = append(c.events, e)
}

func TestRunProducesBlobWithMonotonicProgress(t *testing.T) {
	s := &fakeStack{}
	// 1 second of source at 10fps => 10 output frames, no trims.
	s.install(t, 32, 32, 1.0)

	sink := &collectingSink{}
	p := New(testSpec(), sink, nil)

	blob, err := p.Run(context.Background())
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if blob == nil || len(blob.Data) == 0 {
		t.Fatal("expected a non-empty Blob")
	}

	sink.mu.Lock()
	defer sink.mu.Unlock()
	if len(sink.events) != 10 {
		t.Fatalf("got %d progress events, want 10", len(sink.events))
	}
	for i, e := range sink.events {
		if e.CurrentFrame != int64(i+1) {
			t.Errorf("event %d: CurrentFrame = %d, want %d", i, e.CurrentFrame, i+1)
		}
		if e.TotalFrames != 10 {
			t.Errorf("event %d: TotalFrames = %d, want 10", i, e.TotalFrames)
		}
	}
	if sink.events[9].Fraction != 1.0 {
		t.Errorf("final Fraction = %v, want 1.0", sink.events[9].Fraction)
	}
}

func TestRunFailsOnZeroOutputFrames(t *testing.T) {
	s := &fakeStack{}
	s.install(t, 32, 32, 0)

	p := New(testSpec(), nil, nil)
	_, err := p.Run(context.Background())
	if err == nil {
		t.Fatal("expected an error for a zero-duration source")
	}
	if !xerrors.IsKind(err, xerrors.KindInvalidSpec) {
		t.Errorf("expected KindInvalidSpec, got %v", err)
	}
}

func TestRunSurfacesEncodeFailureAndCleansUp(t *testing.T) {
	s := &fakeStack{failAt: 3}
	s.install(t, 32, 32, 1.0)

	p := New(testSpec(), nil, nil)
	_, err := p.Run(context.Background())
	if err == nil {
		t.Fatal("expected Run() to surface the injected encode failure")
	}
}

func TestRunRejectsInvalidSpec(t *testing.T) {
	s := &fakeStack{}
	s.install(t, 32, 32, 1.0)

	spec := testSpec()
	spec.Width = 3 // odd, below MinDimension's evenness rule
	p := New(spec, nil, nil)
	_, err := p.Run(context.Background())
	if err == nil {
		t.Fatal("expected Run() to reject an invalid spec before touching the source")
	}
}

func TestRunHonorsCancellation(t *testing.T) {
	s := &fakeStack{}
	s.install(t, 32, 32, 1.0)

	p := New(testSpec(), nil, nil)
	p.Cancel()

	_, err := p.Run(context.Background())
	if err == nil {
		t.Fatal("expected Run() to fail after Cancel()")
	}
	if !xerrors.IsKind(err, xerrors.KindCancelled) {
		t.Errorf("expected KindCancelled, got %v", err)
	}
}
