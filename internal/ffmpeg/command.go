package ffmpeg

import "fmt"

// EncodeParams carries the subset of an ExportSpec ffmpeg needs to encode
// composited frames.
type EncodeParams struct {
	Width, Height int
	BitrateBPS    int64
	CodecID       string
	Duration      float64 // seconds; not read by BuildEncodeArgs
	CodecParams   string  // colon-separated, from CodecParamsBuilder
}

// ResolveEncoderName maps an opaque codec_id (e.g. "avc1.640033") to the
// ffmpeg encoder name to select, preferring a hardware encoder when
// preferHardware is set. Exported for internal/encoder's configure() probe.
func ResolveEncoderName(codecID string, preferHardware bool) string {
	return ffmpegCodecName(codecID, preferHardware)
}

// ffmpegCodecName maps an opaque codec_id (e.g. "avc1.640033") to the
// ffmpeg encoder name to select, preferring a hardware encoder when
// preferHardware is set.
func ffmpegCodecName(codecID string, preferHardware bool) string {
	family := codecFamily(codecID)
	if preferHardware {
		switch family {
		case "hevc":
			return "hevc_videotoolbox"
		case "av1":
			return "av1_videotoolbox"
		default:
			return "h264_videotoolbox"
		}
	}
	switch family {
	case "hevc":
		return "libx265"
	case "av1":
		return "libsvtav1"
	default:
		return "libx264"
	}
}

// codecFamily extracts the coarse codec family from an opaque codec_id
// string such as "avc1.640033", "hev1.1.6.L93.B0", or "av01.0.04M.08".
func codecFamily(codecID string) string {
	switch {
	case len(codecID) >= 4 && (codecID[:4] == "hev1" || codecID[:4] == "hvc1"):
		return "hevc"
	case len(codecID) >= 4 && codecID[:4] == "av01":
		return "av1"
	default:
		return "avc"
	}
}

// BuildDecodeArgs builds the ffmpeg invocation that seeks to srcTSUS
// (microseconds) and extracts exactly one raw RGBA frame on stdout.
func BuildDecodeArgs(sourceURI string, srcTSUS int64, width, height int) []string {
	seekSecs := float64(srcTSUS) / 1_000_000
	filters := NewVideoFilterChain().AddFilter(fmt.Sprintf("scale=%d:%d", width, height)).Build()
	return []string{
		"-ss", fmt.Sprintf("%.6f", seekSecs),
		"-i", sourceURI,
		"-frames:v", "1",
		"-vf", filters,
		"-f", "rawvideo",
		"-pix_fmt", "rgba",
		"-loglevel", "error",
		"-",
	}
}

// DefaultCodecParams returns the colon-separated encoder-tuning string for
// encoderName, built with CodecParamsBuilder the way the reference pipeline
// wants every encode of a given family configured.
func DefaultCodecParams(encoderName string) string {
	b := NewCodecParamsBuilder()
	switch encoderName {
	case "libsvtav1":
		b.AddIntParam("tune", 0).AddIntParam("fast-decode", 1)
	case "libx265":
		b.AddParam("scenecut", "0")
	case "libx264":
		b.AddParam("scenecut", "0")
	}
	return b.Build()
}

// BuildEncodeArgs builds the ffmpeg invocation that reads raw RGBA frames
// from stdin and writes an Annex-B elementary stream (or AV1 OBU stream) to
// stdout, using the given encoder name.
func BuildEncodeArgs(params *EncodeParams, encoderName string) []string {
	args := []string{
		"-f", "rawvideo",
		"-pix_fmt", "rgba",
		"-s", fmt.Sprintf("%dx%d", params.Width, params.Height),
		"-r", "1000000", // caller paces submission; ffmpeg timestamps are overwritten by the muxer
		"-i", "-",
		"-frames:v", "1",
		"-an",
		"-c:v", encoderName,
		"-b:v", fmt.Sprintf("%d", params.BitrateBPS),
	}
	if params.CodecParams != "" {
		args = append(args, codecParamsFlag(encoderName), params.CodecParams)
	}
	args = append(args,
		"-g", "150",
		"-f", bitstreamFormat(encoderName),
		"-loglevel", "error",
		"-",
	)
	return args
}

func codecParamsFlag(encoderName string) string {
	switch encoderName {
	case "libx265":
		return "-x265-params"
	case "libsvtav1":
		return "-svtav1-params"
	default:
		return "-x264-params"
	}
}

func bitstreamFormat(encoderName string) string {
	switch encoderName {
	case "libsvtav1", "av1_videotoolbox":
		return "obu"
	default:
		return "h264" // also used, loosely, for hevc elementary streams
	}
}

// BuildRemuxArgs builds the ffmpeg invocation that remuxes an elementary
// stream on stdin into a fragmented MP4 container on stdout.
func BuildRemuxArgs(codecID string) []string {
	return []string{
		"-f", bitstreamFormat(ffmpegCodecName(codecID, false)),
		"-i", "-",
		"-c", "copy",
		"-movflags", "frag_keyframe+empty_moov+default_base_moof",
		"-f", "mp4",
		"-loglevel", "error",
		"-",
	}
}
