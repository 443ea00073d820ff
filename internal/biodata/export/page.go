package export

import (
	"fmt"
	"math"

	"github.com/a3tai/mcp-biodata/internal/biodata/model"
)

// MarginMM is the blank border kept on every page
const MarginMM = 5.0

const mmPerInch = 25.4

var pageSizes = map[string][2]float64{
	model.FormatA4:     {210, 297},
	model.FormatLetter: {215.9, 279.4},
}

// Geometry is the physical layout of an output page in millimetres
type Geometry struct {
	Format      string  `json:"format"`
	Orientation string  `json:"orientation"`
	WidthMM     float64 `json:"width_mm"`
	HeightMM    float64 `json:"height_mm"`
	MarginMM    float64 `json:"margin_mm"`
}

// PageGeometry returns the page for a format and orientation
func PageGeometry(format, orientation string) (Geometry, error) {
	size, ok := pageSizes[format]
	if !ok {
		return Geometry{}, fmt.Errorf("unsupported page format: %q", format)
	}
	w, h := size[0], size[1]
	switch orientation {
	case model.OrientationPortrait:
	case model.OrientationLandscape:
		w, h = h, w
	default:
		return Geometry{}, fmt.Errorf("unsupported orientation: %q", orientation)
	}
	return Geometry{Format: format, Orientation: orientation, WidthMM: w, HeightMM: h, MarginMM: MarginMM}, nil
}

// ContentWidth is the printable width inside the margins
func (g Geometry) ContentWidth() float64 {
	return g.WidthMM - 2*g.MarginMM
}

// ContentHeight is the printable height inside the margins
func (g Geometry) ContentHeight() float64 {
	return g.HeightMM - 2*g.MarginMM
}

// PagePixels returns the full page size in pixels at dpi
func PagePixels(format, orientation string, dpi float64) (int, int, error) {
	g, err := PageGeometry(format, orientation)
	if err != nil {
		return 0, 0, err
	}
	return int(math.Round(g.WidthMM / mmPerInch * dpi)), int(math.Round(g.HeightMM / mmPerInch * dpi)), nil
}
