// Package ffprobe extracts media information from a source file using the
// ffprobe binary.
package ffprobe

import (
	"encoding/json"
	"fmt"
	"os/exec"
	"strconv"
)

// VideoProperties contains the video stream properties exportcore needs to
// build a TimeMap and validate a SourceReader.Open call.
type VideoProperties struct {
	Width        int
	Height       int
	DurationSecs float64
}

type ffprobeOutput struct {
	Format  ffprobeFormat   `json:"format"`
	Streams []ffprobeStream `json:"streams"`
}

type ffprobeFormat struct {
	Duration string `json:"duration"`
}

type ffprobeStream struct {
	CodecType string `json:"codec_type"`
	CodecName string `json:"codec_name"`
	Width     int    `json:"width"`
	Height    int    `json:"height"`
}

// runFFprobe is overridable by this package's tests so they never invoke a
// real ffprobe binary.
var runFFprobe = func(inputPath string) ([]byte, error) {
	cmd := exec.Command("ffprobe",
		"-v", "quiet",
		"-print_format", "json",
		"-show_format",
		"-show_streams",
		inputPath,
	)
	return cmd.Output()
}

func probe(inputPath string) (*ffprobeOutput, error) {
	out, err := runFFprobe(inputPath)
	if err != nil {
		return nil, fmt.Errorf("ffprobe failed: %w", err)
	}
	var result ffprobeOutput
	if err := json.Unmarshal(out, &result); err != nil {
		return nil, fmt.Errorf("failed to parse ffprobe output: %w", err)
	}
	return &result, nil
}

// GetVideoProperties returns the first video stream's dimensions and the
// container's duration.
func GetVideoProperties(inputPath string) (*VideoProperties, error) {
	out, err := probe(inputPath)
	if err != nil {
		return nil, err
	}

	var durationSecs float64
	if out.Format.Duration != "" {
		d, perr := strconv.ParseFloat(out.Format.Duration, 64)
		if perr != nil {
			return nil, fmt.Errorf("failed to parse duration %q: %w", out.Format.Duration, perr)
		}
		durationSecs = d
	}

	var videoStream *ffprobeStream
	for i := range out.Streams {
		if out.Streams[i].CodecType == "video" {
			videoStream = &out.Streams[i]
			break
		}
	}
	if videoStream == nil {
		return nil, fmt.Errorf("no video stream found in %s", inputPath)
	}
	if videoStream.Width <= 0 || videoStream.Height <= 0 {
		return nil, fmt.Errorf("invalid dimensions in %s: %dx%d", inputPath, videoStream.Width, videoStream.Height)
	}

	return &VideoProperties{
		Width:        videoStream.Width,
		Height:       videoStream.Height,
		DurationSecs: durationSecs,
	}, nil
}

// GetVideoCodecName returns the video codec name for a file.
func GetVideoCodecName(inputPath string) (string, error) {
	out, err := probe(inputPath)
	if err != nil {
		return "", err
	}
	for _, stream := range out.Streams {
		if stream.CodecType == "video" {
			return stream.CodecName, nil
		}
	}
	return "", fmt.Errorf("no video stream found in %s", inputPath)
}
