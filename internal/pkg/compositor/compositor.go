package compositor

import (
	"bytes"
	"image"
	"image/color"
	"image/png"

	"github.com/disintegration/imaging"
	"github.com/ds124wfegd/fractal-bot/internal/entity"
	"github.com/fogleman/gg"
	"golang.org/x/image/font"
	"golang.org/x/image/font/opentype"
)

const ContentType = "image/png"

// Compositor draws user text over a background picture.
type Compositor interface {
	Compose(background []byte, text string) (*ComposedImage, error)
}

// ComposedImage is the encoded result together with the layout used for it.
type ComposedImage struct {
	Data   []byte
	Width  int
	Height int
	Lines  []string
	Box    Box
}

type compositor struct {
	layout Layout
	font   *opentype.Font
}

// NewCompositor parses fontData once; nil selects the embedded default font.
func NewCompositor(layout Layout, fontData []byte) (Compositor, error) {
	f, err := ParseFont(fontData)
	if err != nil {
		return nil, err
	}
	return &compositor{layout: layout, font: f}, nil
}

func (c *compositor) Compose(background []byte, text string) (*ComposedImage, error) {
	bg, err := imaging.Decode(bytes.NewReader(background))
	if err != nil {
		return nil, entity.NewCompositionError("background cannot be decoded", err)
	}

	// one face per call keeps Compose safe for concurrent requests
	face, err := NewFace(c.font, c.layout.FontSize)
	if err != nil {
		return nil, entity.NewCompositionError("font face is unavailable", err)
	}
	defer face.Close()

	img, overlay := Render(bg, text, c.layout, face)

	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return nil, entity.NewCompositionError("png encoding failed", err)
	}

	bounds := img.Bounds()
	return &ComposedImage{
		Data:   buf.Bytes(),
		Width:  bounds.Dx(),
		Height: bounds.Dy(),
		Lines:  overlay.Lines,
		Box:    overlay.Box,
	}, nil
}

// Render draws the overlay for text on top of bg and returns a new image of
// the same size. bg is not modified.
func Render(bg image.Image, text string, layout Layout, face font.Face) (image.Image, Overlay) {
	bounds := bg.Bounds()
	width, height := bounds.Dx(), bounds.Dy()
	overlay := layout.Plan(width, height, text, FaceMeasurer(face))

	dc := gg.NewContext(width, height)
	dc.DrawImage(bg, -bounds.Min.X, -bounds.Min.Y)

	shadow := layout.Shadow
	box := overlay.Box

	// the box casts a shadow too, weakened by the box's own opacity
	if boxShadow := scaleAlpha(shadow.Color, layout.BoxColor.A); boxShadow.A > 0 {
		dc.DrawImage(blurred(width, height, shadow.Blur, func(layer *gg.Context) {
			layer.SetColor(boxShadow)
			drawBox(layer, box, shadow.OffsetX, shadow.OffsetY)
		}), 0, 0)
	}

	dc.SetColor(layout.BoxColor)
	drawBox(dc, box, 0, 0)

	if shadow.Color.A > 0 {
		dc.DrawImage(blurred(width, height, shadow.Blur, func(layer *gg.Context) {
			layer.SetColor(shadow.Color)
			drawLines(layer, face, overlay, shadow.OffsetX, shadow.OffsetY)
		}), 0, 0)
	}

	dc.SetColor(layout.TextColor)
	drawLines(dc, face, overlay, 0, 0)

	return dc.Image(), overlay
}

func drawBox(dc *gg.Context, box Box, dx, dy float64) {
	if box.Radius > 0 {
		dc.DrawRoundedRectangle(box.X+dx, box.Y+dy, box.Width, box.Height, box.Radius)
	} else {
		dc.DrawRectangle(box.X+dx, box.Y+dy, box.Width, box.Height)
	}
	dc.Fill()
}

// drawLines centers every line horizontally on CenterX and vertically on
// LineY, measuring the vertical middle between ascent and descent.
func drawLines(dc *gg.Context, face font.Face, overlay Overlay, dx, dy float64) {
	dc.SetFontFace(face)
	middle := BaselineOffset(face)
	for i, line := range overlay.Lines {
		dc.DrawStringAnchored(line, overlay.CenterX+dx, overlay.LineY(i)+middle+dy, 0.5, 0)
	}
}

// BaselineOffset is the distance from the vertical middle of a line to its
// baseline.
func BaselineOffset(face font.Face) float64 {
	m := face.Metrics()
	return float64(m.Ascent-m.Descent) / 64 / 2
}

// blurred renders draw on a transparent canvas and blurs it. Blur follows the
// canvas convention of sigma = blur/2.
func blurred(width, height int, blur float64, draw func(layer *gg.Context)) image.Image {
	layer := gg.NewContext(width, height)
	draw(layer)

	if blur <= 0 {
		return layer.Image()
	}
	return imaging.Blur(layer.Image(), blur/2)
}

func scaleAlpha(c color.NRGBA, alpha uint8) color.NRGBA {
	c.A = uint8(uint16(c.A) * uint16(alpha) / 255)
	return c
}
