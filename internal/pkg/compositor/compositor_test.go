package compositor

import (
	"bytes"
	"image"
	"image/color"
	"image/png"
	"strings"
	"testing"

	"github.com/ds124wfegd/fractal-bot/internal/entity"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var background = color.NRGBA{R: 100, G: 150, B: 200, A: 255}

// solidPNG кодирует одноцветное изображение в PNG
func solidPNG(t *testing.T, width, height int, c color.NRGBA) []byte {
	t.Helper()
	img := image.NewNRGBA(image.Rect(0, 0, width, height))
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			img.SetNRGBA(x, y, c)
		}
	}
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return buf.Bytes()
}

func newTestCompositor(t *testing.T) Compositor {
	t.Helper()
	c, err := NewCompositor(DefaultLayout(), nil)
	require.NoError(t, err)
	return c
}

func decode(t *testing.T, data []byte) image.Image {
	t.Helper()
	img, err := png.Decode(bytes.NewReader(data))
	require.NoError(t, err)
	return img
}

func pixel(img image.Image, x, y int) color.NRGBA {
	return color.NRGBAModel.Convert(img.At(x, y)).(color.NRGBA)
}

// TestComposeKeepsDimensions проверяет размеры результата для разных текстов
func TestComposeKeepsDimensions(t *testing.T) {
	c := newTestCompositor(t)

	tests := []struct {
		name          string
		width, height int
		text          string
	}{
		{name: "short text", width: 256, height: 256, text: "Hello world"},
		{name: "seventy characters", width: 256, height: 256, text: strings.Repeat("word ", 14)},
		{name: "placeholder", width: 256, height: 256, text: "   "},
		{name: "cyrillic", width: 256, height: 256, text: "Привет, мир"},
		{name: "over-wide word", width: 256, height: 256, text: strings.Repeat("ш", 70)},
		{name: "landscape", width: 400, height: 200, text: "wide background"},
		{name: "tiny background", width: 8, height: 8, text: "tiny"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out, err := c.Compose(solidPNG(t, tt.width, tt.height, background), tt.text)

			require.NoError(t, err)
			require.NotEmpty(t, out.Data)
			assert.Equal(t, tt.width, out.Width)
			assert.Equal(t, tt.height, out.Height)
			assert.NotEmpty(t, out.Lines)

			img := decode(t, out.Data)
			assert.Equal(t, tt.width, img.Bounds().Dx())
			assert.Equal(t, tt.height, img.Bounds().Dy())
		})
	}
}

func TestComposeDrawsOverlay(t *testing.T) {
	c := newTestCompositor(t)

	out, err := c.Compose(solidPNG(t, 256, 256, background), "Hello world")
	require.NoError(t, err)
	img := decode(t, out.Data)
	box := out.Box

	// outside the box the background is untouched
	assert.Equal(t, background, pixel(img, 0, 0))
	assert.Equal(t, background, pixel(img, 255, 255))

	// inside the padding the background is darkened by the box shadow
	// (0.8*0.3 black) and then by the box itself (0.3 black)
	inside := pixel(img, int(box.X+10), int(box.Y+box.Height/2))
	assert.InDelta(t, 53, int(inside.R), 3)
	assert.InDelta(t, 80, int(inside.G), 3)
	assert.InDelta(t, 106, int(inside.B), 3)

	// the box shadow spills past the bottom edge
	below := pixel(img, int(box.X+box.Width/2), int(box.Y+box.Height)+1)
	assert.Less(t, below.R, background.R)
	assert.Equal(t, background, pixel(img, int(box.X+box.Width/2), int(box.Y+box.Height)+8))

	// white text is drawn somewhere inside the box
	var brightest uint8
	for y := int(box.Y); y < int(box.Y+box.Height); y++ {
		for x := int(box.X); x < int(box.X+box.Width); x++ {
			if p := pixel(img, x, y); p.R > brightest {
				brightest = p.R
			}
		}
	}
	assert.Greater(t, brightest, uint8(230))
}

func TestComposeEmptyTextUsesPlaceholder(t *testing.T) {
	c := newTestCompositor(t)

	out, err := c.Compose(solidPNG(t, 256, 256, background), "")

	require.NoError(t, err)
	assert.Equal(t, DefaultLayout().Placeholder, strings.Join(out.Lines, " "))
}

func TestComposeRejectsUndecodableBackground(t *testing.T) {
	c := newTestCompositor(t)

	tests := []struct {
		name string
		data []byte
	}{
		{name: "empty", data: nil},
		{name: "garbage", data: []byte("definitely not a png")},
		{name: "truncated png", data: solidPNG(t, 16, 16, background)[:20]},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out, err := c.Compose(tt.data, "text")

			require.Error(t, err)
			assert.Nil(t, out)
			assert.True(t, entity.IsType(err, entity.ErrorTypeComposition))
		})
	}
}

func TestNewCompositorRejectsBadFont(t *testing.T) {
	_, err := NewCompositor(DefaultLayout(), []byte("not a font"))

	assert.Error(t, err)
}

func TestRenderWithoutShadowAndRadius(t *testing.T) {
	f, err := ParseFont(nil)
	require.NoError(t, err)
	face, err := NewFace(f, 24)
	require.NoError(t, err)
	defer face.Close()

	layout := DefaultLayout()
	layout.Radius = 0
	layout.Shadow.Color = Black(0)

	bg := image.NewNRGBA(image.Rect(0, 0, 128, 64))
	img, overlay := Render(bg, "flat", layout, face)

	assert.Equal(t, bg.Bounds(), img.Bounds())
	assert.Equal(t, 0.0, overlay.Box.Radius)
	assert.Equal(t, []string{"flat"}, overlay.Lines)
}

// TestRenderCentersTextVertically проверяет, что середина глифов совпадает с LineY
func TestRenderCentersTextVertically(t *testing.T) {
	f, err := ParseFont(nil)
	require.NoError(t, err)
	face, err := NewFace(f, 24)
	require.NoError(t, err)
	defer face.Close()

	layout := DefaultLayout()
	layout.Shadow.Color = Black(0)

	bg := decode(t, solidPNG(t, 256, 256, background))

	for _, text := range []string{"HELLO", "xxxx", "Hello world"} {
		t.Run(text, func(t *testing.T) {
			img, overlay := Render(bg, text, layout, face)
			require.Len(t, overlay.Lines, 1)

			top, bottom := -1, -1
			for y := 0; y < 256; y++ {
				for x := 0; x < 256; x++ {
					if pixel(img, x, y).R > 200 {
						if top < 0 {
							top = y
						}
						bottom = y
						break
					}
				}
			}
			require.GreaterOrEqual(t, top, 0)

			// ink of the default face sits above its descent, so a centered
			// line leaves its ink center within a few pixels of LineY
			inkCenter := float64(top+bottom+1) / 2
			assert.InDelta(t, overlay.LineY(0), inkCenter, 3)
		})
	}
}

func TestBaselineOffset(t *testing.T) {
	f, err := ParseFont(nil)
	require.NoError(t, err)
	face, err := NewFace(f, 24)
	require.NoError(t, err)
	defer face.Close()

	m := face.Metrics()
	offset := BaselineOffset(face)

	assert.Greater(t, offset, 0.0)
	assert.Less(t, offset, float64(m.Height)/64/2)
}

func TestBlack(t *testing.T) {
	assert.Equal(t, color.NRGBA{A: 77}, Black(0.3))
	assert.Equal(t, color.NRGBA{A: 204}, Black(0.8))
	assert.Equal(t, color.NRGBA{A: 255}, Black(2))
	assert.Equal(t, color.NRGBA{A: 0}, Black(-1))
}
