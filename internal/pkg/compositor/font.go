package compositor

import (
	"fmt"

	"golang.org/x/image/font"
	"golang.org/x/image/font/gofont/goregular"
	"golang.org/x/image/font/opentype"
)

// ParseFont parses TTF/OTF data. Empty data selects the embedded Go Regular
// face, which covers Latin and Cyrillic.
func ParseFont(data []byte) (*opentype.Font, error) {
	if len(data) == 0 {
		data = goregular.TTF
	}
	f, err := opentype.Parse(data)
	if err != nil {
		return nil, fmt.Errorf("parse font: %w", err)
	}
	return f, nil
}

// NewFace creates a face of size pixels. Faces are not safe for concurrent use.
func NewFace(f *opentype.Font, size float64) (font.Face, error) {
	face, err := opentype.NewFace(f, &opentype.FaceOptions{
		Size:    size,
		DPI:     72,
		Hinting: font.HintingNone,
	})
	if err != nil {
		return nil, fmt.Errorf("create font face: %w", err)
	}
	return face, nil
}

type faceMeasurer struct {
	face font.Face
}

// FaceMeasurer measures advance widths with face.
func FaceMeasurer(face font.Face) Measurer {
	return faceMeasurer{face: face}
}

func (m faceMeasurer) Measure(s string) float64 {
	return float64(font.MeasureString(m.face, s)) / 64
}
