// Package validation provides post-export validation checks: the finished
// output's dimensions and duration must match what the ExportSpec requested.
package validation

// MediaAnalyzer provides media analysis capabilities for validation. This
// interface allows validation logic to be tested without external tools.
type MediaAnalyzer interface {
	// GetVideoProperties returns video stream properties for the given file.
	GetVideoProperties(path string) (*AnalyzerVideoProperties, error)
}

// AnalyzerVideoProperties contains video stream information needed for validation.
type AnalyzerVideoProperties struct {
	Width        uint32
	Height       uint32
	DurationSecs float64
}
