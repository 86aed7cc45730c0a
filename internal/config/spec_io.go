package config

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/clipforge/exportcore/internal/timemap"
)

// specDoc is the on-disk wire format for an ExportSpec: snake_case JSON
// matching the data model's field names, decoupled from the Go struct's
// internal FrameRate grouping.
type specDoc struct {
	Width        int             `json:"width"`
	Height       int             `json:"height"`
	FrameRateNum int             `json:"frame_rate_num"`
	FrameRateDen int             `json:"frame_rate_den"`
	BitrateBPS   int64           `json:"bitrate_bps"`
	CodecID      string          `json:"codec_id"`
	SourceURI    string          `json:"source_uri"`
	Trims        []trimDoc       `json:"trims"`
	EditLayers   json.RawMessage `json:"edit_layers"`
}

type trimDoc struct {
	StartUS int64 `json:"start_us"`
	EndUS   int64 `json:"end_us"`
}

// LoadExportSpec reads and parses an ExportSpec document from path.
func LoadExportSpec(path string) (*ExportSpec, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading export spec %s: %w", path, err)
	}
	var doc specDoc
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("parsing export spec %s: %w", path, err)
	}

	trims := make(timemap.TrimSet, len(doc.Trims))
	for i, t := range doc.Trims {
		trims[i] = timemap.TimeInterval{StartUS: t.StartUS, EndUS: t.EndUS}
	}

	return &ExportSpec{
		Width:      doc.Width,
		Height:     doc.Height,
		FrameRate:  FrameRate{Num: doc.FrameRateNum, Den: doc.FrameRateDen},
		BitrateBPS: doc.BitrateBPS,
		CodecID:    doc.CodecID,
		SourceURI:  doc.SourceURI,
		Trims:      trims,
		EditLayers: doc.EditLayers,
	}, nil
}
