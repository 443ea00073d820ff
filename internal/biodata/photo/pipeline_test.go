package photo

import (
	"bytes"
	"context"
	"image"
	"image/color"
	"image/png"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	bderrors "github.com/a3tai/mcp-biodata/internal/biodata/errors"
)

func pngBytes(t *testing.T, w, h int) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.Set(x, y, color.RGBA{R: uint8(x % 256), G: uint8(y % 256), B: 120, A: 255})
		}
	}
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return buf.Bytes()
}

func pngDataURL(t *testing.T, w, h int) string {
	t.Helper()
	return EncodeDataURL(MIMEPNG, pngBytes(t, w, h))
}

func decodedSize(t *testing.T, src string) (int, int) {
	t.Helper()
	img, err := DecodeDataURL(src)
	require.NoError(t, err)
	return img.Bounds().Dx(), img.Bounds().Dy()
}

func TestPipeline_Validate(t *testing.T) {
	p := NewPipeline(DefaultMaxSize)

	tests := []struct {
		name     string
		fd       FileDescriptor
		wantCode bderrors.Code
	}{
		{"exactly 5 MiB accepted", FileDescriptor{Size: 5 * 1024 * 1024, MIMEType: MIMEJPEG}, bderrors.CodeNone},
		{"6 MiB rejected", FileDescriptor{Size: 6 * 1024 * 1024, MIMEType: MIMEJPEG}, bderrors.CodeTooLarge},
		{"one byte over", FileDescriptor{Size: 5*1024*1024 + 1, MIMEType: MIMEPNG}, bderrors.CodeTooLarge},
		{"png", FileDescriptor{Size: 10, MIMEType: MIMEPNG}, bderrors.CodeNone},
		{"webp", FileDescriptor{Size: 10, MIMEType: MIMEWebP}, bderrors.CodeNone},
		{"jpg alias", FileDescriptor{Size: 10, MIMEType: "image/jpg"}, bderrors.CodeNone},
		{"gif", FileDescriptor{Size: 10, MIMEType: "image/gif"}, bderrors.CodeUnsupportedFormat},
		{"pdf", FileDescriptor{Size: 10, MIMEType: "application/pdf"}, bderrors.CodeUnsupportedFormat},
		{"empty mime", FileDescriptor{Size: 10}, bderrors.CodeUnsupportedFormat},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := p.Validate(tt.fd)
			if tt.wantCode == bderrors.CodeNone {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Equal(t, bderrors.KindValidation, bderrors.KindOf(err))
			assert.Equal(t, tt.wantCode, bderrors.CodeOf(err))
		})
	}
}

func TestPipeline_DecodeToEmbeddable(t *testing.T) {
	p := NewPipeline(DefaultMaxSize)
	ctx := context.Background()
	data := pngBytes(t, 20, 10)

	src, err := p.DecodeToEmbeddable(ctx, FileDescriptor{Name: "me.png", Size: int64(len(data))}, bytes.NewReader(data))
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(src, "data:image/png;base64,"))

	w, h := decodedSize(t, src)
	assert.Equal(t, 20, w)
	assert.Equal(t, 10, h)
}

func TestPipeline_DecodeToEmbeddable_Rejects(t *testing.T) {
	p := NewPipeline(1024)
	ctx := context.Background()

	t.Run("text content", func(t *testing.T) {
		_, err := p.DecodeToEmbeddable(ctx, FileDescriptor{Name: "notes.txt"}, strings.NewReader("hello world"))
		assert.ErrorIs(t, err, bderrors.ErrUnsupportedFormat)
	})

	t.Run("declared image but text content", func(t *testing.T) {
		_, err := p.DecodeToEmbeddable(ctx, FileDescriptor{Name: "x.png", MIMEType: MIMEPNG},
			strings.NewReader("hello world"))
		assert.ErrorIs(t, err, bderrors.ErrUnsupportedFormat)
	})

	t.Run("stream larger than declared", func(t *testing.T) {
		big := pngBytes(t, 200, 200)
		require.Greater(t, len(big), 1024)
		_, err := p.DecodeToEmbeddable(ctx, FileDescriptor{Name: "big.png", Size: 10}, bytes.NewReader(big))
		assert.ErrorIs(t, err, bderrors.ErrTooLarge)
	})

	t.Run("truncated png", func(t *testing.T) {
		data := pngBytes(t, 4, 4)[:20]
		_, err := p.DecodeToEmbeddable(ctx, FileDescriptor{Name: "cut.png"}, bytes.NewReader(data))
		require.Error(t, err)
		assert.Equal(t, bderrors.KindDecode, bderrors.KindOf(err))
	})

	t.Run("cancelled context", func(t *testing.T) {
		cctx, cancel := context.WithCancel(ctx)
		cancel()
		_, err := p.DecodeToEmbeddable(cctx, FileDescriptor{Name: "x.png"}, bytes.NewReader(pngBytes(t, 2, 2)))
		assert.Equal(t, bderrors.KindDecode, bderrors.KindOf(err))
	})
}

func TestPipeline_DecodeFile(t *testing.T) {
	p := NewPipeline(DefaultMaxSize)
	dir := t.TempDir()
	path := filepath.Join(dir, "photo.png")
	require.NoError(t, os.WriteFile(path, pngBytes(t, 8, 8), 0o644))

	src, err := p.DecodeFile(context.Background(), path)
	require.NoError(t, err)
	assert.True(t, IsDataURL(src))

	_, err = p.DecodeFile(context.Background(), filepath.Join(dir, "missing.png"))
	assert.Equal(t, bderrors.KindDecode, bderrors.KindOf(err))

	_, err = p.DecodeFile(context.Background(), dir)
	assert.Equal(t, bderrors.KindDecode, bderrors.KindOf(err))
}

func TestPipeline_CropOutputSize(t *testing.T) {
	p := NewPipeline(DefaultMaxSize)
	src := pngDataURL(t, 400, 300)

	tests := []struct {
		name    string
		region  Region
		display Size
		outW    int
		outH    int
	}{
		{"natural size display", Region{X: 10, Y: 10, Width: 100, Height: 120}, Size{400, 300}, 300, 400},
		{"half size display", Region{X: 0, Y: 0, Width: 200, Height: 150}, Size{200, 150}, 150, 200},
		{"full image", Region{X: 0, Y: 0, Width: 100, Height: 75}, Size{100, 75}, 64, 64},
		{"tiny region", Region{X: 5, Y: 5, Width: 1, Height: 1}, Size{400, 300}, 30, 40},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out, err := p.Crop(src, tt.region, tt.display, tt.outW, tt.outH, DefaultCropQuality)
			require.NoError(t, err)
			assert.True(t, strings.HasPrefix(out, "data:image/jpeg;base64,"))
			w, h := decodedSize(t, out)
			assert.Equal(t, tt.outW, w)
			assert.Equal(t, tt.outH, h)
		})
	}
}

func TestNaturalRect_ScalesDisplayCoordinates(t *testing.T) {
	bounds := image.Rect(0, 0, 1200, 900)

	// image displayed at a third of its natural size
	r := NaturalRect(bounds, Region{X: 10, Y: 20, Width: 100, Height: 50}, Size{Width: 400, Height: 300})
	assert.Equal(t, image.Rect(30, 60, 330, 210), r)

	// region hanging off the edge is clamped
	r = NaturalRect(bounds, Region{X: 350, Y: 250, Width: 100, Height: 100}, Size{Width: 400, Height: 300})
	assert.Equal(t, image.Rect(1050, 750, 1200, 900), r)
}

func TestPipeline_CropErrors(t *testing.T) {
	p := NewPipeline(DefaultMaxSize)
	src := pngDataURL(t, 40, 40)

	_, err := p.Crop(src, Region{X: 100, Y: 100, Width: 10, Height: 10}, Size{40, 40}, 30, 40, 0.9)
	assert.Equal(t, bderrors.KindCrop, bderrors.KindOf(err))

	_, err = p.Crop(src, Region{Width: 10, Height: 10}, Size{40, 40}, 0, 40, 0.9)
	assert.Equal(t, bderrors.KindCrop, bderrors.KindOf(err))

	_, err = p.Crop("not-an-image", Region{Width: 10, Height: 10}, Size{40, 40}, 30, 40, 0.9)
	assert.Equal(t, bderrors.KindCrop, bderrors.KindOf(err))
}

func TestPipeline_Resize(t *testing.T) {
	p := NewPipeline(DefaultMaxSize)

	tests := []struct {
		name         string
		w, h         int
		maxW, maxH   int
		wantW, wantH int
	}{
		{"wide image clamps width", 1000, 500, 600, 800, 600, 300},
		{"tall image clamps height", 500, 1600, 600, 800, 250, 800},
		{"both exceed", 1200, 1600, 600, 800, 600, 800},
		{"within bounds", 300, 200, 600, 800, 300, 200},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out, err := p.Resize(pngDataURL(t, tt.w, tt.h), tt.maxW, tt.maxH, 0.9)
			require.NoError(t, err)
			w, h := decodedSize(t, out)
			assert.Equal(t, tt.wantW, w)
			assert.Equal(t, tt.wantH, h)
		})
	}

	_, err := p.Resize("data:image/png;base64,!!!", 10, 10, 0.9)
	assert.Equal(t, bderrors.KindResize, bderrors.KindOf(err))
}

func TestPipeline_Optimize(t *testing.T) {
	p := NewPipeline(DefaultMaxSize)
	out, err := p.Optimize(pngDataURL(t, 1200, 1200))
	require.NoError(t, err)
	w, h := decodedSize(t, out)
	assert.Equal(t, 600, w)
	assert.Equal(t, 600, h)
}

func TestParseDataURL(t *testing.T) {
	mimeType, data, err := ParseDataURL(EncodeDataURL(MIMEPNG, []byte{1, 2, 3}))
	require.NoError(t, err)
	assert.Equal(t, MIMEPNG, mimeType)
	assert.Equal(t, []byte{1, 2, 3}, data)

	_, _, err = ParseDataURL("https://example.com/a.png")
	assert.Error(t, err)
	_, _, err = ParseDataURL("data:image/png;base64")
	assert.Error(t, err)
	_, _, err = ParseDataURL("data:image/png;utf8,abc")
	assert.Error(t, err)
}

func TestJPEGQuality(t *testing.T) {
	assert.Equal(t, 100, jpegQuality(1))
	assert.Equal(t, 95, jpegQuality(0.95))
	assert.Equal(t, 90, jpegQuality(0))
	assert.Equal(t, 1, jpegQuality(0.001))
	assert.Equal(t, 100, jpegQuality(3))
}
