package config

import (
	"errors"
	"testing"

	xerrors "github.com/clipforge/exportcore/internal/errors"
	"github.com/clipforge/exportcore/internal/timemap"
)

func TestNewExportSpec(t *testing.T) {
	spec := NewExportSpec("file:///clip.mp4", 1280, 720, FrameRate{Num: 30, Den: 1})

	if spec.SourceURI != "file:///clip.mp4" {
		t.Errorf("expected SourceURI=file:///clip.mp4, got %s", spec.SourceURI)
	}
	if spec.Width != 1280 || spec.Height != 720 {
		t.Errorf("expected 1280x720, got %dx%d", spec.Width, spec.Height)
	}
	if spec.CodecID != DefaultCodecID {
		t.Errorf("expected CodecID=%s, got %s", DefaultCodecID, spec.CodecID)
	}
}

func TestFrameRatePeriodUS(t *testing.T) {
	tests := []struct {
		name string
		fr   FrameRate
		want int64
	}{
		{"30fps", FrameRate{Num: 30, Den: 1}, 33333},
		{"25fps", FrameRate{Num: 25, Den: 1}, 40000},
		{"ntsc 30000/1001", FrameRate{Num: 30000, Den: 1001}, 33366},
		{"zero is invalid", FrameRate{}, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.fr.PeriodUS(); got != tt.want {
				t.Errorf("PeriodUS() = %d, want %d", got, tt.want)
			}
		})
	}
}

func TestExportSpecValidate(t *testing.T) {
	valid := func() *ExportSpec {
		return NewExportSpec("file:///clip.mp4", 1280, 720, FrameRate{Num: 30, Den: 1})
	}

	tests := []struct {
		name         string
		modify       func(*ExportSpec)
		wantErr      bool
		wantSentinel error
	}{
		{
			name:    "default spec is valid",
			modify:  func(s *ExportSpec) {},
			wantErr: false,
		},
		{
			name:         "odd width is invalid",
			modify:       func(s *ExportSpec) { s.Width = 1281 },
			wantErr:      true,
			wantSentinel: ErrInvalidDimensions,
		},
		{
			name:         "odd height is invalid",
			modify:       func(s *ExportSpec) { s.Height = 721 },
			wantErr:      true,
			wantSentinel: ErrInvalidDimensions,
		},
		{
			name:         "zero framerate is invalid",
			modify:       func(s *ExportSpec) { s.FrameRate = FrameRate{} },
			wantErr:      true,
			wantSentinel: ErrInvalidFrameRate,
		},
		{
			name:    "negative bitrate is invalid",
			modify:  func(s *ExportSpec) { s.BitrateBPS = -1 },
			wantErr: true,
		},
		{
			name:    "empty source uri is invalid",
			modify:  func(s *ExportSpec) { s.SourceURI = "" },
			wantErr: true,
		},
		{
			name: "trim with start >= end is invalid",
			modify: func(s *ExportSpec) {
				s.Trims = timemap.TrimSet{{StartUS: 5_000_000, EndUS: 5_000_000}}
			},
			wantErr:      true,
			wantSentinel: ErrInvalidTrim,
		},
		{
			name: "well-formed trim is valid",
			modify: func(s *ExportSpec) {
				s.Trims = timemap.TrimSet{{StartUS: 1_000_000, EndUS: 2_000_000}}
			},
			wantErr: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			spec := valid()
			tt.modify(spec)
			err := spec.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
			if tt.wantErr && err != nil && !xerrors.IsKind(err, xerrors.KindInvalidSpec) {
				t.Errorf("Validate() error kind = %v, want KindInvalidSpec", err)
			}
			if tt.wantSentinel != nil && !errors.Is(err, tt.wantSentinel) {
				t.Errorf("Validate() error = %v, want sentinel %v", err, tt.wantSentinel)
			}
		})
	}
}

func TestEffectiveCodecID(t *testing.T) {
	spec := NewExportSpec("file:///clip.mp4", 1280, 720, FrameRate{Num: 30, Den: 1})
	spec.CodecID = ""
	if got := spec.EffectiveCodecID(); got != DefaultCodecID {
		t.Errorf("EffectiveCodecID() = %s, want %s", got, DefaultCodecID)
	}

	spec.CodecID = "hev1.1.6.L93.B0"
	if got := spec.EffectiveCodecID(); got != "hev1.1.6.L93.B0" {
		t.Errorf("EffectiveCodecID() = %s, want hev1.1.6.L93.B0", got)
	}
}
