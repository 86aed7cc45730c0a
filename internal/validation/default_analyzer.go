package validation

import "github.com/clipforge/exportcore/internal/ffprobe"

// DefaultAnalyzer implements MediaAnalyzer using ffprobe.
type DefaultAnalyzer struct{}

// NewDefaultAnalyzer creates a new DefaultAnalyzer instance.
func NewDefaultAnalyzer() *DefaultAnalyzer {
	return &DefaultAnalyzer{}
}

// GetVideoProperties returns video stream properties using ffprobe.
func (a *DefaultAnalyzer) GetVideoProperties(path string) (*AnalyzerVideoProperties, error) {
	props, err := ffprobe.GetVideoProperties(path)
	if err != nil {
		return nil, err
	}
	return &AnalyzerVideoProperties{
		Width:        uint32(props.Width),
		Height:       uint32(props.Height),
		DurationSecs: props.DurationSecs,
	}, nil
}
