package glyph

import (
	"bytes"
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"image/png"
	"math"

	"github.com/nfnt/resize"
	"golang.org/x/image/vector"
)

// FillAlpha is the opacity of the progress band.
const FillAlpha = 0.8

// Options sizes the icon. All values are in points except Scale.
type Options struct {
	// PointHeight is the display height of the icon.
	PointHeight int
	// Scale is the supersampling factor of the drawing canvas.
	Scale int
	// HeartSize is the width and height of the heart box.
	HeartSize int
	// MinWidth keeps the icon at least this wide so the heart is never clipped.
	MinWidth int
}

// DefaultOptions matches a standard menu bar icon.
func DefaultOptions() Options {
	return Options{
		PointHeight: 26,
		Scale:       2,
		HeartSize:   18,
		MinWidth:    32,
	}
}

// Validate checks that every dimension is positive.
func (o Options) Validate() error {
	if o.PointHeight <= 0 || o.Scale <= 0 || o.HeartSize <= 0 || o.MinWidth <= 0 {
		return fmt.Errorf("invalid glyph options %+v: all values must be positive", o)
	}
	return nil
}

// CanvasSize returns the supersampled canvas dimensions in pixels.
func (o Options) CanvasSize() (w, h int) {
	heart := float64(o.HeartSize * o.Scale)
	w = max(o.MinWidth*o.Scale, int(math.Ceil(heart+8)))
	h = o.PointHeight * o.Scale
	return w, h
}

// PointSize returns the display dimensions.
func (o Options) PointSize() (w, h int) {
	cw, _ := o.CanvasSize()
	return int(math.Ceil(float64(cw) / float64(o.Scale))), o.PointHeight
}

// HeartPath returns the outline used on the canvas for these options.
func (o Options) HeartPath() Path {
	w, h := o.CanvasSize()
	size := float64(o.HeartSize * o.Scale)
	return Heart(float64(w)/2, float64(h)/2, size, size)
}

// Image is a rendered icon.
type Image struct {
	// Canvas is the supersampled drawing.
	Canvas *image.NRGBA
	// Mask is the heart silhouette coverage on the canvas.
	Mask *image.Alpha
	// Display is Canvas downscaled to PointW×PointH.
	Display image.Image
	// Template is always false: the icon carries its own colors and must
	// not be tinted by the host.
	Template bool
	PointW   int
	PointH   int
	Fraction float64
}

// Render draws the heart with the bottom fraction of its box filled with c
// at FillAlpha, clipped to the silhouette. A fraction of 0 leaves the icon
// fully transparent. Rasterization failures are returned as errors so the
// caller can keep its previous icon.
func Render(fraction float64, c color.NRGBA, opts Options) (img *Image, err error) {
	defer func() {
		if r := recover(); r != nil {
			img = nil
			err = fmt.Errorf("render glyph: %v", r)
		}
	}()

	if err := opts.Validate(); err != nil {
		return nil, err
	}
	if math.IsNaN(fraction) {
		fraction = 0
	}
	fraction = math.Max(0, math.Min(1, fraction))

	w, h := opts.CanvasSize()
	pointW, pointH := opts.PointSize()
	bounds := image.Rect(0, 0, w, h)

	heart := opts.HeartPath()
	mask := image.NewAlpha(bounds)
	z := vector.NewRasterizer(w, h)
	z.DrawOp = draw.Src
	heart.addTo(z)
	z.Draw(mask, bounds, image.Opaque, image.Point{})

	canvas := image.NewNRGBA(bounds)
	if fraction > 0 {
		band := bandMask(opts, fraction)
		for y := 0; y < h; y++ {
			for x := 0; x < w; x++ {
				cov := float64(mask.AlphaAt(x, y).A) * float64(band.AlphaAt(x, y).A) / (255 * 255)
				a := uint8(math.Round(cov * FillAlpha * 255))
				if a == 0 {
					continue
				}
				canvas.SetNRGBA(x, y, color.NRGBA{R: c.R, G: c.G, B: c.B, A: a})
			}
		}
	}

	display := resize.Resize(uint(pointW), uint(pointH), canvas, resize.Lanczos3)

	return &Image{
		Canvas:   canvas,
		Mask:     mask,
		Display:  display,
		Template: false,
		PointW:   pointW,
		PointH:   pointH,
		Fraction: fraction,
	}, nil
}

// bandMask rasterizes the horizontal band of height size*fraction that
// rises from the bottom of the heart box.
func bandMask(opts Options, fraction float64) *image.Alpha {
	w, h := opts.CanvasSize()
	size := float64(opts.HeartSize * opts.Scale)
	cx, cy := float64(w)/2, float64(h)/2

	x0 := float32(cx - size/2)
	x1 := float32(cx + size/2)
	y1 := float32(cy + size/2)
	y0 := float32(cy + size/2 - size*fraction)

	bounds := image.Rect(0, 0, w, h)
	band := image.NewAlpha(bounds)
	z := vector.NewRasterizer(w, h)
	z.DrawOp = draw.Src
	z.MoveTo(x0, y0)
	z.LineTo(x1, y0)
	z.LineTo(x1, y1)
	z.LineTo(x0, y1)
	z.ClosePath()
	z.Draw(band, bounds, image.Opaque, image.Point{})
	return band
}

// PNG encodes the display-sized image.
func (img *Image) PNG() ([]byte, error) {
	return encodePNG(img.Display)
}

// CanvasPNG encodes the supersampled canvas.
func (img *Image) CanvasPNG() ([]byte, error) {
	return encodePNG(img.Canvas)
}

func encodePNG(m image.Image) ([]byte, error) {
	var buf bytes.Buffer
	if err := png.Encode(&buf, m); err != nil {
		return nil, fmt.Errorf("encode png: %w", err)
	}
	return buf.Bytes(), nil
}
