// Package mux accumulates CodedChunks and remuxes them into a container
// blob, shelling out to ffmpeg for the final container write.
package mux

import (
	"bytes"
	"context"

	"github.com/clipforge/exportcore/internal/encoder"
	xerrors "github.com/clipforge/exportcore/internal/errors"
	"github.com/clipforge/exportcore/internal/ffmpeg"
)

// Blob is the finalized container byte stream.
type Blob struct {
	Data []byte
}

// RunRemux is overridable by tests (including the Pipeline's end-to-end
// tests) so Muxer unit tests never invoke a real ffmpeg binary.
var RunRemux = ffmpeg.Run

// Muxer is single-threaded relative to itself: the Pipeline serializes
// AddChunk/Finalize calls but may issue them concurrently with encoder
// callbacks via its own FIFO future-queue.
type Muxer struct {
	initialized bool
	finalized   bool
	description *encoder.CodecDescription
	stream      bytes.Buffer
}

// Init prepares the Muxer for AddChunk calls.
func Init() (*Muxer, error) {
	return &Muxer{initialized: true}, nil
}

// AddChunk appends chunk's coded data to the accumulated elementary stream.
// The first call must carry a full CodecDescription (meta != nil), or this
// fails with MissingCodecDescription.
func (m *Muxer) AddChunk(chunk encoder.CodedChunk, meta *encoder.CodecDescription) error {
	if !m.initialized {
		return xerrors.NewMuxerInitError("AddChunk called before Init", nil)
	}
	if m.finalized {
		return xerrors.NewMuxFailedError("AddChunk called after Finalize", nil)
	}
	if m.description == nil {
		if meta == nil {
			return xerrors.NewMissingCodecDescriptionError()
		}
		m.description = meta
	}

	if _, err := m.stream.Write(chunk.Data); err != nil {
		return xerrors.NewMuxFailedError("failed to accumulate coded chunk", err)
	}
	return nil
}

// Finalize writes the container trailer and returns the finished blob.
// Legal only after every AddChunk call the Pipeline issued has resolved.
func (m *Muxer) Finalize(ctx context.Context) (*Blob, error) {
	if !m.initialized {
		return nil, xerrors.NewMuxerInitError("Finalize called before Init", nil)
	}
	if m.description == nil {
		return nil, xerrors.NewMissingCodecDescriptionError()
	}
	if m.finalized {
		return nil, xerrors.NewMuxFailedError("Finalize called twice", nil)
	}

	args := ffmpeg.BuildRemuxArgs(m.description.CodecID)
	result, err := RunRemux(ctx, "ffmpeg", args, bytes.NewReader(m.stream.Bytes()))
	if err != nil {
		return nil, xerrors.NewMuxFailedError("remux to container failed", err)
	}

	m.finalized = true
	return &Blob{Data: result.Stdout}, nil
}
