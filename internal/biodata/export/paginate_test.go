package export

import (
	"image"
	"image/draw"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/a3tai/mcp-biodata/internal/biodata/model"
)

func a4(t *testing.T) Geometry {
	t.Helper()
	g, err := PageGeometry(model.FormatA4, model.OrientationPortrait)
	require.NoError(t, err)
	return g
}

func TestPageGeometry(t *testing.T) {
	tests := []struct {
		format, orientation string
		w, h                float64
	}{
		{model.FormatA4, model.OrientationPortrait, 210, 297},
		{model.FormatA4, model.OrientationLandscape, 297, 210},
		{model.FormatLetter, model.OrientationPortrait, 215.9, 279.4},
		{model.FormatLetter, model.OrientationLandscape, 279.4, 215.9},
	}
	for _, tt := range tests {
		t.Run(tt.format+"/"+tt.orientation, func(t *testing.T) {
			g, err := PageGeometry(tt.format, tt.orientation)
			require.NoError(t, err)
			assert.Equal(t, tt.w, g.WidthMM)
			assert.Equal(t, tt.h, g.HeightMM)
			assert.Equal(t, MarginMM, g.MarginMM)
			assert.InDelta(t, tt.w-10, g.ContentWidth(), 1e-9)
		})
	}

	_, err := PageGeometry("a5", model.OrientationPortrait)
	assert.Error(t, err)
	_, err = PageGeometry(model.FormatA4, "diagonal")
	assert.Error(t, err)
}

func TestPagePixels(t *testing.T) {
	w, h, err := PagePixels(model.FormatA4, model.OrientationPortrait, 96)
	require.NoError(t, err)
	assert.Equal(t, 794, w)
	assert.Equal(t, 1123, h)

	w, h, err = PagePixels(model.FormatA4, model.OrientationLandscape, 96)
	require.NoError(t, err)
	assert.Equal(t, 1123, w)
	assert.Equal(t, 794, h)
}

func TestPaginate_SinglePageFits(t *testing.T) {
	g := a4(t)
	plan, err := Paginate(794, 1000, g, model.LayoutAuto)
	require.NoError(t, err)

	assert.Equal(t, ModeFit, plan.Mode)
	require.Len(t, plan.Pages, 1)
	p := plan.Pages[0]
	assert.Equal(t, 0, p.SrcTop)
	assert.Equal(t, 1000, p.SrcBottom)
	assert.InDelta(t, g.ContentWidth(), p.Width, 1e-9)
	assert.InDelta(t, (g.HeightMM-p.Height)/2, p.Y, 1e-9, "centered vertically")
	assert.InDelta(t, g.MarginMM, p.X, 1e-9)
}

func TestPaginate_FitLayoutScalesTallBitmap(t *testing.T) {
	g := a4(t)
	plan, err := Paginate(794, 3000, g, model.LayoutFit)
	require.NoError(t, err)

	require.Len(t, plan.Pages, 1)
	p := plan.Pages[0]
	assert.InDelta(t, g.ContentHeight(), p.Height, 1e-9)
	assert.Less(t, p.Width, g.ContentWidth())
	assert.InDelta(t, (g.WidthMM-p.Width)/2, p.X, 1e-9, "centered horizontally")
	assert.InDelta(t, float64(794)/3000, p.Width/p.Height, 1e-9, "aspect ratio preserved")
}

func TestPaginate_SlicesTallBitmap(t *testing.T) {
	g := a4(t)
	plan, err := Paginate(794, 3000, g, model.LayoutAuto)
	require.NoError(t, err)

	assert.Equal(t, ModeSlice, plan.Mode)
	assert.Equal(t, 1000, plan.BandRows)
	require.Len(t, plan.Pages, 3)
	for _, p := range plan.Pages {
		assert.Equal(t, 1000, p.Rows())
		assert.LessOrEqual(t, p.Height, g.ContentHeight()+1e-9)
		assert.Equal(t, g.MarginMM, p.Y)
	}
}

func TestPaginate_PageCountAndCoverage(t *testing.T) {
	for _, g := range []Geometry{
		a4(t),
		mustGeometry(t, model.FormatLetter, model.OrientationPortrait),
		mustGeometry(t, model.FormatA4, model.OrientationLandscape),
	} {
		for _, w := range []int{397, 794, 1588} {
			for h := 1; h <= 9000; h += 97 {
				plan, err := Paginate(w, h, g, model.LayoutAuto)
				require.NoError(t, err)

				s := g.ContentWidth() / float64(w)
				if float64(h)*s > g.ContentHeight() {
					require.Equal(t, ModeSlice, plan.Mode)
					want := int(math.Ceil(float64(h) * s / g.ContentHeight()))
					assert.Equal(t, want, len(plan.Pages), "w=%d h=%d", w, h)
					for _, p := range plan.Pages {
						assert.Less(t, p.Height, g.ContentHeight()+s, "w=%d h=%d", w, h)
					}
				} else {
					require.Len(t, plan.Pages, 1)
				}

				// bands are contiguous, ordered and cover [0, h)
				next := 0
				for _, p := range plan.Pages {
					assert.Equal(t, next, p.SrcTop)
					assert.Greater(t, p.Rows(), 0)
					next = p.SrcBottom
				}
				assert.Equal(t, h, next)
			}
		}
	}
}

func TestPaginate_NoSlivers(t *testing.T) {
	g := a4(t)
	for _, tt := range []struct{ w, h, pages int }{
		{794, 3418, 3},
		{794, 4557, 4},
	} {
		plan, err := Paginate(tt.w, tt.h, g, model.LayoutAuto)
		require.NoError(t, err)
		require.Len(t, plan.Pages, tt.pages, "h=%d", tt.h)
		last := plan.Pages[len(plan.Pages)-1]
		assert.Greater(t, last.Rows(), 1000, "h=%d", tt.h)
	}

	mismatches := 0
	for _, w := range []int{794, 1588} {
		s := g.ContentWidth() / float64(w)
		for h := 1200; h <= 20000; h++ {
			plan, err := Paginate(w, h, g, model.LayoutAuto)
			require.NoError(t, err)
			want := 1
			if float64(h)*s > g.ContentHeight() {
				want = int(math.Ceil(float64(h) * s / g.ContentHeight()))
			}
			if len(plan.Pages) != want {
				mismatches++
			}
		}
	}
	assert.Zero(t, mismatches)
}

func TestPaginate_SlicesReconstructBitmap(t *testing.T) {
	src := image.NewRGBA(image.Rect(0, 0, 60, 1000))
	for y := 0; y < 1000; y++ {
		for x := 0; x < 60; x++ {
			i := src.PixOffset(x, y)
			src.Pix[i], src.Pix[i+1], src.Pix[i+2], src.Pix[i+3] = uint8(y), uint8(y>>8), uint8(x), 0xff
		}
	}

	plan, err := Paginate(60, 1000, a4(t), model.LayoutAuto)
	require.NoError(t, err)
	require.Greater(t, len(plan.Pages), 1)

	rebuilt := image.NewRGBA(src.Bounds())
	for _, p := range plan.Pages {
		band := src.SubImage(image.Rect(0, p.SrcTop, 60, p.SrcBottom))
		draw.Draw(rebuilt, band.Bounds(), band, band.Bounds().Min, draw.Src)
	}
	assert.Equal(t, src.Pix, rebuilt.Pix)
}

func TestPaginate_Errors(t *testing.T) {
	_, err := Paginate(0, 100, a4(t), model.LayoutAuto)
	assert.Error(t, err)
	_, err = Paginate(100, 0, a4(t), model.LayoutAuto)
	assert.Error(t, err)
	_, err = Paginate(100, 100, Geometry{WidthMM: 8, HeightMM: 8, MarginMM: 5}, model.LayoutAuto)
	assert.Error(t, err)
}

func mustGeometry(t *testing.T, format, orientation string) Geometry {
	t.Helper()
	g, err := PageGeometry(format, orientation)
	require.NoError(t, err)
	return g
}
