package compositor

import (
	"image/color"
	"math"
	"strings"
)

// Layout holds every drawing constant of the overlay.
type Layout struct {
	FontSize    float64
	LineHeight  float64 // multiplier of FontSize
	WidthRatio  float64 // share of the background width available to the box
	PaddingX    float64
	PaddingY    float64
	Radius      float64
	BoxColor    color.NRGBA
	TextColor   color.NRGBA
	Shadow      Shadow
	Placeholder string
}

type Shadow struct {
	Color   color.NRGBA
	Blur    float64
	OffsetX float64
	OffsetY float64
}

func DefaultLayout() Layout {
	return Layout{
		FontSize:   24,
		LineHeight: 1.4,
		WidthRatio: 0.8,
		PaddingX:   20,
		PaddingY:   12,
		Radius:     8,
		BoxColor:   Black(0.3),
		TextColor:  color.NRGBA{R: 255, G: 255, B: 255, A: 255},
		Shadow: Shadow{
			Color:   Black(0.8),
			Blur:    3,
			OffsetX: 1,
			OffsetY: 1,
		},
		Placeholder: "Здесь мог быть ваш текст",
	}
}

// Black returns black with the given opacity in [0,1].
func Black(opacity float64) color.NRGBA {
	opacity = math.Max(0, math.Min(1, opacity))
	return color.NRGBA{A: uint8(math.Round(opacity * 255))}
}

// Measurer returns the rendered width of s in pixels.
type Measurer interface {
	Measure(s string) float64
}

type MeasurerFunc func(s string) float64

func (f MeasurerFunc) Measure(s string) float64 { return f(s) }

type Box struct {
	X      float64
	Y      float64
	Width  float64
	Height float64
	Radius float64
}

// Overlay is the computed geometry of the text block on a background.
type Overlay struct {
	Text       string
	Lines      []string
	MaxWidth   float64 // cap of the widest line when sizing the box
	WrapWidth  float64 // width lines are wrapped to
	LineHeight float64
	CenterX    float64
	TextTop    float64
	Box        Box
}

// LineY is the vertical middle of line i.
func (o Overlay) LineY(i int) float64 {
	return o.TextTop + float64(i)*o.LineHeight + o.LineHeight/2
}

// Sanitize replaces empty or whitespace-only text with placeholder.
func Sanitize(text, placeholder string) string {
	if strings.TrimSpace(text) == "" {
		return placeholder
	}
	return text
}

// Wrap greedily packs whitespace separated words into lines narrower than
// maxWidth. A single word wider than maxWidth is kept whole on its own line.
func Wrap(text string, maxWidth float64, m Measurer) []string {
	words := strings.Fields(text)
	if len(words) == 0 {
		return nil
	}

	lines := make([]string, 0, len(words))
	current := words[0]
	for _, word := range words[1:] {
		candidate := current + " " + word
		if m.Measure(candidate) < maxWidth {
			current = candidate
			continue
		}
		lines = append(lines, current)
		current = word
	}
	return append(lines, current)
}

// ClampRadius keeps the corner radius within half of either box dimension.
func ClampRadius(radius, width, height float64) float64 {
	if radius > width/2 {
		radius = width / 2
	}
	if radius > height/2 {
		radius = height / 2
	}
	return math.Max(radius, 0)
}

// Plan lays text out on a width x height background.
//
// Lines are wrapped to MaxWidth-2*PaddingX while the box caps the widest line
// at MaxWidth itself, so a lone over-wide word may grow the box past the wrap
// width. Both widths are kept as they are.
func (l Layout) Plan(width, height int, text string, m Measurer) Overlay {
	text = Sanitize(text, l.Placeholder)

	maxWidth := float64(width) * l.WidthRatio
	wrapWidth := maxWidth - 2*l.PaddingX
	lines := Wrap(text, wrapWidth, m)

	lineHeight := l.FontSize * l.LineHeight

	widest := 0.0
	for _, line := range lines {
		widest = math.Max(widest, m.Measure(line))
	}

	boxWidth := math.Min(widest, maxWidth) + 2*l.PaddingX
	boxHeight := float64(len(lines))*lineHeight + 2*l.PaddingY
	box := Box{
		X:      (float64(width) - boxWidth) / 2,
		Y:      (float64(height) - boxHeight) / 2,
		Width:  boxWidth,
		Height: boxHeight,
		Radius: ClampRadius(l.Radius, boxWidth, boxHeight),
	}

	return Overlay{
		Text:       text,
		Lines:      lines,
		MaxWidth:   maxWidth,
		WrapWidth:  wrapWidth,
		LineHeight: lineHeight,
		CenterX:    float64(width) / 2,
		TextTop:    box.Y + l.PaddingY,
		Box:        box,
	}
}
