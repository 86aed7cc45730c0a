package ffprobe

import (
	"errors"
	"testing"
)

const sample1080pJSON = `{
  "format": {"duration": "120.500000"},
  "streams": [
    {"codec_type": "video", "codec_name": "h264", "width": 1920, "height": 1080},
    {"codec_type": "audio", "codec_name": "aac"}
  ]
}`

const sample4kJSON = `{
  "format": {"duration": "8.000000"},
  "streams": [
    {"codec_type": "video", "codec_name": "hevc", "width": 3840, "height": 2160}
  ]
}`

const noVideoStreamJSON = `{
  "format": {"duration": "10.000000"},
  "streams": [
    {"codec_type": "audio", "codec_name": "aac"}
  ]
}`

func withFakeProbe(t *testing.T, payload string, err error) {
	t.Helper()
	orig := runFFprobe
	runFFprobe = func(string) ([]byte, error) {
		if err != nil {
			return nil, err
		}
		return []byte(payload), nil
	}
	t.Cleanup(func() { runFFprobe = orig })
}

func TestGetVideoProperties_1080p(t *testing.T) {
	withFakeProbe(t, sample1080pJSON, nil)

	props, err := GetVideoProperties("clip.mp4")
	if err != nil {
		t.Fatalf("GetVideoProperties() error = %v", err)
	}
	if props.Width != 1920 || props.Height != 1080 {
		t.Errorf("dimensions = %dx%d, want 1920x1080", props.Width, props.Height)
	}
	if props.DurationSecs != 120.5 {
		t.Errorf("DurationSecs = %v, want 120.5", props.DurationSecs)
	}
}

func TestGetVideoProperties_4K(t *testing.T) {
	withFakeProbe(t, sample4kJSON, nil)

	props, err := GetVideoProperties("clip.mp4")
	if err != nil {
		t.Fatalf("GetVideoProperties() error = %v", err)
	}
	if props.Width != 3840 || props.Height != 2160 {
		t.Errorf("dimensions = %dx%d, want 3840x2160", props.Width, props.Height)
	}
}

func TestGetVideoProperties_NoVideoStream(t *testing.T) {
	withFakeProbe(t, noVideoStreamJSON, nil)

	if _, err := GetVideoProperties("clip.mp4"); err == nil {
		t.Error("GetVideoProperties() expected error for missing video stream, got nil")
	}
}

func TestGetVideoProperties_MalformedJSON(t *testing.T) {
	withFakeProbe(t, `{"format": {"duration": "120.5"}, "streams": [}`, nil)

	if _, err := GetVideoProperties("clip.mp4"); err == nil {
		t.Error("GetVideoProperties() expected error for malformed JSON, got nil")
	}
}

func TestGetVideoProperties_ExecFailure(t *testing.T) {
	withFakeProbe(t, "", errors.New("exit status 1"))

	if _, err := GetVideoProperties("clip.mp4"); err == nil {
		t.Error("GetVideoProperties() expected error when ffprobe exec fails, got nil")
	}
}

func TestGetVideoCodecName(t *testing.T) {
	withFakeProbe(t, sample1080pJSON, nil)

	codec, err := GetVideoCodecName("clip.mp4")
	if err != nil {
		t.Fatalf("GetVideoCodecName() error = %v", err)
	}
	if codec != "h264" {
		t.Errorf("GetVideoCodecName() = %q, want h264", codec)
	}
}
