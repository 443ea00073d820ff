package export

import (
	"fmt"
	"math"

	"github.com/a3tai/mcp-biodata/internal/biodata/model"
)

// Plan modes
const (
	ModeFit   = "fit"
	ModeSlice = "slice"
)

// Placement maps a band of source rows onto one page, in millimetres
type Placement struct {
	SrcTop    int     `json:"src_top"`
	SrcBottom int     `json:"src_bottom"` // exclusive
	X         float64 `json:"x"`
	Y         float64 `json:"y"`
	Width     float64 `json:"width"`
	Height    float64 `json:"height"`
}

// Rows is the number of source rows on the page
func (p Placement) Rows() int {
	return p.SrcBottom - p.SrcTop
}

// Plan lays a bitmap out across one or more pages
type Plan struct {
	Mode     string      `json:"mode"`
	MMPerPx  float64     `json:"mm_per_px"`
	BandRows int         `json:"band_rows,omitempty"`
	Pages    []Placement `json:"pages"`
}

// Paginate plans a w x h pixel bitmap onto pages of geometry g. A bitmap
// that fits the content height at full content width, or any bitmap under
// the fit layout, goes on a single centered page. Otherwise it is cut into
// ceil(h*s/contentHeight) bands of near-equal height, top to bottom.
func Paginate(w, h int, g Geometry, layoutMode string) (Plan, error) {
	if w <= 0 || h <= 0 {
		return Plan{}, fmt.Errorf("cannot paginate an empty %dx%d bitmap", w, h)
	}
	contentW, contentH := g.ContentWidth(), g.ContentHeight()
	if contentW <= 0 || contentH <= 0 {
		return Plan{}, fmt.Errorf("page %gx%g mm has no room inside its margins", g.WidthMM, g.HeightMM)
	}

	s := contentW / float64(w)
	if layoutMode == model.LayoutFit || float64(h)*s <= contentH {
		fit := math.Min(s, contentH/float64(h))
		pw, ph := float64(w)*fit, float64(h)*fit
		return Plan{
			Mode:    ModeFit,
			MMPerPx: fit,
			Pages: []Placement{{
				SrcTop:    0,
				SrcBottom: h,
				X:         (g.WidthMM - pw) / 2,
				Y:         (g.HeightMM - ph) / 2,
				Width:     pw,
				Height:    ph,
			}},
		}, nil
	}

	// page count follows the scaled height; rows are spread evenly over
	// those pages, so a band can exceed the content height by under a row
	n := int(math.Ceil(float64(h) * s / contentH))
	if n > h {
		n = h
	}

	plan := Plan{Mode: ModeSlice, MMPerPx: s, BandRows: (h + n - 1) / n}
	top := 0
	for i := 1; i <= n; i++ {
		bottom := int(math.Round(float64(i) * float64(h) / float64(n)))
		plan.Pages = append(plan.Pages, Placement{
			SrcTop:    top,
			SrcBottom: bottom,
			X:         g.MarginMM,
			Y:         g.MarginMM,
			Width:     contentW,
			Height:    float64(bottom-top) * s,
		})
		top = bottom
	}
	return plan, nil
}
