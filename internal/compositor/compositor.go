// Package compositor renders one output frame per call into a software
// stand-in for a GPU-backed target: crop/zoom region scaling, an optional
// wallpaper background, and text overlays, built from an opaque EditLayers
// document.
package compositor

import (
	"bytes"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"image"
	"image/draw"

	xdraw "golang.org/x/image/draw"
	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"
	"golang.org/x/image/webp"

	xerrors "github.com/clipforge/exportcore/internal/errors"
	"github.com/clipforge/exportcore/internal/source"
)

// RenderConfig carries the render target's dimensions, the source frame's
// dimensions, and the opaque edit_layers document describing crop/zoom,
// wallpaper and annotation layers.
type RenderConfig struct {
	OutputWidth, OutputHeight int
	SourceWidth, SourceHeight int
	EditLayers                json.RawMessage
}

// editLayers is the reference compositor's interpretation of the opaque
// EditLayers document: a crop rect in source pixel space, an optional
// wallpaper background shown behind letterboxed content, and a list of
// fixed-position text annotations. Unknown fields are ignored; a caller
// whose edit_layers document uses a richer authoring model outside this
// reference shape simply sees those extra layers skipped.
type editLayers struct {
	Crop      *cropRect   `json:"crop"`
	Wallpaper string      `json:"wallpaper_base64,omitempty"`
	Texts     []textLayer `json:"texts,omitempty"`
}

type cropRect struct {
	X int `json:"x"`
	Y int `json:"y"`
	W int `json:"w"`
	H int `json:"h"`
}

type textLayer struct {
	Text string `json:"text"`
	X    int    `json:"x"`
	Y    int    `json:"y"`
}

// GpuImageHandle is a generation-stamped borrow of the compositor's current
// target, standing in for a GPU fence: it is valid only until the next
// render or destroy call bumps the generation.
type GpuImageHandle struct {
	image      *image.RGBA
	generation uint64
}

// Image returns the underlying frame. Callers must not retain it past the
// compositor's next render/destroy call.
func (h *GpuImageHandle) Image() *image.RGBA { return h.image }

// CompositedFrame pairs a borrowed target with the presentation timestamp
// and frame duration the Pipeline assigns it (effective time, not source
// time — trims have already been excised by the TimeMap).
type CompositedFrame struct {
	Target        *GpuImageHandle
	EffTSUS       int64
	FramePeriodUS int64
}

// Compositor renders DecodedFrames into a single internal target, reused
// across calls per the "compositor owns exactly one target" contract.
type Compositor struct {
	cfg        RenderConfig
	layers     editLayers
	wallpaper  image.Image
	target     *image.RGBA
	generation uint64
	configured bool
}

// Init prepares the compositor for render calls, decoding any wallpaper
// layer up front so per-frame render stays allocation-light.
func Init(cfg RenderConfig) (*Compositor, error) {
	if cfg.OutputWidth <= 0 || cfg.OutputHeight <= 0 {
		return nil, xerrors.NewCompositorInitError(fmt.Sprintf("invalid output dimensions %dx%d", cfg.OutputWidth, cfg.OutputHeight), nil)
	}

	c := &Compositor{cfg: cfg}

	if len(cfg.EditLayers) > 0 {
		if err := json.Unmarshal(cfg.EditLayers, &c.layers); err != nil {
			return nil, xerrors.NewCompositorInitError(fmt.Sprintf("edit_layers is not valid JSON: %v", err), nil)
		}
	}

	if c.layers.Wallpaper != "" {
		raw, err := base64.StdEncoding.DecodeString(c.layers.Wallpaper)
		if err != nil {
			return nil, xerrors.NewCompositorInitError(fmt.Sprintf("wallpaper_base64 is not valid base64: %v", err), nil)
		}
		img, _, err := image.Decode(bytes.NewReader(raw))
		if err != nil {
			img, err = webp.Decode(bytes.NewReader(raw))
		}
		if err != nil {
			return nil, xerrors.NewCompositorInitError(fmt.Sprintf("cannot decode wallpaper layer: %v", err), nil)
		}
		c.wallpaper = img
	}

	c.target = image.NewRGBA(image.Rect(0, 0, cfg.OutputWidth, cfg.OutputHeight))
	c.configured = true
	return c, nil
}

// Render composites frame into the internal target. DecodedFrame ownership
// is not transferred: the caller releases it immediately after this
// returns. Identical (frame pixels, srcTSUS, edit_layers) always renders
// pixel-identical output.
func (c *Compositor) Render(frame *source.DecodedFrame, srcTSUS int64) error {
	if !c.configured {
		return xerrors.NewRenderFailedError("Render called before Init", nil)
	}
	if frame == nil || frame.Image == nil {
		return xerrors.NewRenderFailedError("Render called with a released frame", nil)
	}

	if c.wallpaper != nil {
		xdraw.NearestNeighbor.Scale(c.target, c.target.Bounds(), c.wallpaper, c.wallpaper.Bounds(), xdraw.Over, nil)
	} else {
		draw.Draw(c.target, c.target.Bounds(), image.Black, image.Point{}, draw.Src)
	}

	srcRect := frame.Image.Bounds()
	if c.layers.Crop != nil {
		cr := c.layers.Crop
		candidate := image.Rect(cr.X, cr.Y, cr.X+cr.W, cr.Y+cr.H).Intersect(srcRect)
		if !candidate.Empty() {
			srcRect = candidate
		}
	}

	destRect := fitRect(c.target.Bounds(), srcRect)
	xdraw.CatmullRom.Scale(c.target, destRect, frame.Image, srcRect, xdraw.Over, nil)

	for _, t := range c.layers.Texts {
		drawText(c.target, t.Text, t.X, t.Y)
	}

	c.generation++
	return nil
}

// Target borrows the current render target. The returned handle is valid
// until the next Render or Destroy call.
func (c *Compositor) Target() (*GpuImageHandle, error) {
	if !c.configured {
		return nil, xerrors.NewRenderFailedError("Target called before Init or after Destroy", nil)
	}
	return &GpuImageHandle{image: c.target, generation: c.generation}, nil
}

// Destroy releases the compositor's resources.
func (c *Compositor) Destroy() {
	c.target = nil
	c.wallpaper = nil
	c.configured = false
	c.generation++
}

// fitRect centers a letterboxed destination rectangle that preserves the
// source rect's aspect ratio within outer.
func fitRect(outer, src image.Rectangle) image.Rectangle {
	if src.Dx() == 0 || src.Dy() == 0 {
		return outer
	}
	srcRatio := float64(src.Dx()) / float64(src.Dy())
	outerRatio := float64(outer.Dx()) / float64(outer.Dy())

	var w, h int
	if srcRatio > outerRatio {
		w = outer.Dx()
		h = int(float64(w) / srcRatio)
	} else {
		h = outer.Dy()
		w = int(float64(h) * srcRatio)
	}
	x0 := outer.Min.X + (outer.Dx()-w)/2
	y0 := outer.Min.Y + (outer.Dy()-h)/2
	return image.Rect(x0, y0, x0+w, y0+h)
}

func drawText(dst *image.RGBA, text string, x, y int) {
	d := &font.Drawer{
		Dst:  dst,
		Src:  image.White,
		Face: basicfont.Face7x13,
		Dot:  fixed.P(x, y),
	}
	d.DrawString(text)
}
