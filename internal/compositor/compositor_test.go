package compositor

import (
	"encoding/json"
	"image"
	"image/color"
	"testing"

	"github.com/clipforge/exportcore/internal/source"
)

func solidFrame(w, h int, c color.RGBA) *source.DecodedFrame {
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.SetRGBA(x, y, c)
		}
	}
	return &source.DecodedFrame{Image: img, SrcTSUS: 0}
}

func TestInitRejectsInvalidDimensions(t *testing.T) {
	if _, err := Init(RenderConfig{OutputWidth: 0, OutputHeight: 100}); err == nil {
		t.Fatal("expected error for zero output width")
	}
}

func TestInitRejectsMalformedEditLayers(t *testing.T) {
	cfg := RenderConfig{OutputWidth: 64, OutputHeight: 64, EditLayers: json.RawMessage(`{not json`)}
	if _, err := Init(cfg); err == nil {
		t.Fatal("expected error for malformed edit_layers JSON")
	}
}

func TestRenderProducesOutputSizedTarget(t *testing.T) {
	c, err := Init(RenderConfig{OutputWidth: 80, OutputHeight: 60, SourceWidth: 160, SourceHeight: 120})
	if err != nil {
		t.Fatalf("Init() error = %v", err)
	}

	frame := solidFrame(160, 120, color.RGBA{R: 255, A: 255})
	if err := c.Render(frame, 0); err != nil {
		t.Fatalf("Render() error = %v", err)
	}

	handle, err := c.Target()
	if err != nil {
		t.Fatalf("Target() error = %v", err)
	}
	if handle.Image().Bounds().Dx() != 80 || handle.Image().Bounds().Dy() != 60 {
		t.Errorf("target dims = %v, want 80x60", handle.Image().Bounds())
	}
}

func TestRenderIsDeterministic(t *testing.T) {
	cfg := RenderConfig{OutputWidth: 40, OutputHeight: 30, SourceWidth: 40, SourceHeight: 30}

	c1, _ := Init(cfg)
	frame1 := solidFrame(40, 30, color.RGBA{G: 255, A: 255})
	if err := c1.Render(frame1, 5_000_000); err != nil {
		t.Fatalf("Render() error = %v", err)
	}
	h1, _ := c1.Target()

	c2, _ := Init(cfg)
	frame2 := solidFrame(40, 30, color.RGBA{G: 255, A: 255})
	if err := c2.Render(frame2, 5_000_000); err != nil {
		t.Fatalf("Render() error = %v", err)
	}
	h2, _ := c2.Target()

	if !imagesEqual(h1.Image(), h2.Image()) {
		t.Error("identical render inputs produced different output pixels")
	}
}

func TestRenderBeforeInitFails(t *testing.T) {
	c := &Compositor{}
	if err := c.Render(solidFrame(10, 10, color.RGBA{}), 0); err == nil {
		t.Fatal("expected error for Render before Init")
	}
}

func TestTargetBeforeRenderReturnsBlankTarget(t *testing.T) {
	c, err := Init(RenderConfig{OutputWidth: 10, OutputHeight: 10})
	if err != nil {
		t.Fatalf("Init() error = %v", err)
	}
	if _, err := c.Target(); err != nil {
		t.Fatalf("Target() after Init (before any Render) should return the blank target, got error: %v", err)
	}
}

func TestDestroyInvalidatesTarget(t *testing.T) {
	c, err := Init(RenderConfig{OutputWidth: 10, OutputHeight: 10})
	if err != nil {
		t.Fatalf("Init() error = %v", err)
	}
	if err := c.Render(solidFrame(10, 10, color.RGBA{B: 255, A: 255}), 0); err != nil {
		t.Fatalf("Render() error = %v", err)
	}
	c.Destroy()
	if _, err := c.Target(); err == nil {
		t.Fatal("expected error for Target() after Destroy")
	}
}

func TestRenderWithCropLayer(t *testing.T) {
	layers, err := json.Marshal(map[string]any{
		"crop": map[string]int{"x": 0, "y": 0, "w": 20, "h": 20},
	})
	if err != nil {
		t.Fatalf("marshal edit_layers: %v", err)
	}

	c, err := Init(RenderConfig{OutputWidth: 40, OutputHeight: 40, SourceWidth: 40, SourceHeight: 40, EditLayers: layers})
	if err != nil {
		t.Fatalf("Init() error = %v", err)
	}
	if err := c.Render(solidFrame(40, 40, color.RGBA{R: 128, A: 255}), 0); err != nil {
		t.Fatalf("Render() with crop layer error = %v", err)
	}
}

func imagesEqual(a, b *image.RGBA) bool {
	if a.Bounds() != b.Bounds() {
		return false
	}
	for i := range a.Pix {
		if a.Pix[i] != b.Pix[i] {
			return false
		}
	}
	return true
}
