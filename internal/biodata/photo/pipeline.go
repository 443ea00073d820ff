package photo

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"io"
	"math"
	"os"
	"path/filepath"
	"strings"

	"github.com/disintegration/imaging"
	"github.com/gabriel-vasile/mimetype"

	bderrors "github.com/a3tai/mcp-biodata/internal/biodata/errors"
)

// Supported MIME types
const (
	MIMEJPEG = "image/jpeg"
	MIMEPNG  = "image/png"
	MIMEWebP = "image/webp"
)

// DefaultMaxSize is the largest accepted upload (5 MiB)
const DefaultMaxSize int64 = 5 * 1024 * 1024

// Defaults for crop output and export optimization
const (
	DefaultCropWidth   = 300
	DefaultCropHeight  = 400
	DefaultCropQuality = 0.9

	OptimizeMaxWidth  = 600
	OptimizeMaxHeight = 800
	OptimizeQuality   = 0.95
)

var supportedFormats = map[string]bool{
	MIMEJPEG: true,
	MIMEPNG:  true,
	MIMEWebP: true,
}

// FileDescriptor describes a user-supplied image file
type FileDescriptor struct {
	Name     string `json:"name"`
	Size     int64  `json:"size"`
	MIMEType string `json:"mime_type"`
}

// Region is a crop rectangle in displayed coordinates
type Region struct {
	X      float64 `json:"x"`
	Y      float64 `json:"y"`
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
}

// Size is the size an image was displayed at when the region was chosen
type Size struct {
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
}

// Pipeline validates and transforms profile photos into embeddable data
type Pipeline struct {
	maxSize int64
}

// NewPipeline creates a photo pipeline with the given upload limit
func NewPipeline(maxSize int64) *Pipeline {
	if maxSize <= 0 {
		maxSize = DefaultMaxSize
	}
	return &Pipeline{maxSize: maxSize}
}

// MaxSize returns the upload limit in bytes
func (p *Pipeline) MaxSize() int64 {
	return p.maxSize
}

// SupportedFormats lists the accepted MIME types
func (p *Pipeline) SupportedFormats() []string {
	return []string{MIMEJPEG, MIMEPNG, MIMEWebP}
}

// Validate checks the size limit (inclusive) and the MIME type
func (p *Pipeline) Validate(fd FileDescriptor) error {
	if err := p.validateSize(fd.Size); err != nil {
		return err
	}
	if !supportedFormats[normalizeMIME(fd.MIMEType)] {
		return bderrors.NewWithCode(bderrors.KindValidation, bderrors.CodeUnsupportedFormat,
			"please select a valid image file (JPEG, PNG, or WebP)")
	}
	return nil
}

func (p *Pipeline) validateSize(size int64) error {
	if size > p.maxSize {
		return bderrors.NewWithCode(bderrors.KindValidation, bderrors.CodeTooLarge,
			fmt.Sprintf("file size must be at most %dMB (got %d bytes)", p.maxSize/(1024*1024), size))
	}
	return nil
}

// DecodeToEmbeddable reads an image, validates it and returns embeddable
// image data. An empty MIME type is sniffed from the content.
func (p *Pipeline) DecodeToEmbeddable(ctx context.Context, fd FileDescriptor, r io.Reader) (string, error) {
	if err := p.validateSize(fd.Size); err != nil {
		return "", err
	}
	if err := ctx.Err(); err != nil {
		return "", bderrors.Wrap(bderrors.KindDecode, "reading image", err)
	}

	data, err := io.ReadAll(io.LimitReader(r, p.maxSize+1))
	if err != nil {
		return "", bderrors.Wrap(bderrors.KindDecode, "failed to read file", err)
	}

	fd.Size = int64(len(data))
	sniffed := normalizeMIME(mimetype.Detect(data).String())
	if fd.MIMEType == "" {
		fd.MIMEType = sniffed
	}
	if err := p.Validate(fd); err != nil {
		return "", err
	}
	if !supportedFormats[sniffed] {
		return "", bderrors.NewWithCode(bderrors.KindValidation, bderrors.CodeUnsupportedFormat,
			fmt.Sprintf("file content is %s, not a supported image", sniffed))
	}

	if _, _, err := image.DecodeConfig(bytes.NewReader(data)); err != nil {
		return "", bderrors.Wrap(bderrors.KindDecode, "failed to decode image", err)
	}

	return EncodeDataURL(sniffed, data), nil
}

// DecodeFile is DecodeToEmbeddable for a file on disk
func (p *Pipeline) DecodeFile(ctx context.Context, path string) (string, error) {
	info, err := os.Stat(path)
	if err != nil {
		return "", bderrors.Wrap(bderrors.KindDecode, "cannot access file", err)
	}
	if info.IsDir() {
		return "", bderrors.New(bderrors.KindDecode, "path is a directory, not a file: "+path)
	}
	if err := p.validateSize(info.Size()); err != nil {
		return "", err
	}

	f, err := os.Open(path)
	if err != nil {
		return "", bderrors.Wrap(bderrors.KindDecode, "failed to open file", err)
	}
	defer f.Close()

	return p.DecodeToEmbeddable(ctx, FileDescriptor{Name: filepath.Base(path), Size: info.Size()}, f)
}

// Crop cuts region out of src and scales it to exactly outW x outH.
// region is in the coordinate space the image was displayed at; it is
// scaled by natural/display size before sampling.
func (p *Pipeline) Crop(src string, region Region, display Size, outW, outH int, quality float64) (string, error) {
	if outW <= 0 || outH <= 0 {
		return "", bderrors.New(bderrors.KindCrop, fmt.Sprintf("invalid output size %dx%d", outW, outH))
	}
	img, err := DecodeDataURL(src)
	if err != nil {
		return "", bderrors.Wrap(bderrors.KindCrop, "failed to load image", err)
	}

	rect := NaturalRect(img.Bounds(), region, display)
	if rect.Empty() {
		return "", bderrors.New(bderrors.KindCrop, "crop region lies outside the image")
	}

	cropped := imaging.Crop(img, rect)
	out := imaging.Resize(cropped, outW, outH, imaging.Lanczos)

	data, err := encodeJPEG(out, quality)
	if err != nil {
		return "", bderrors.Wrap(bderrors.KindCrop, "cropping failed", err)
	}
	return data, nil
}

// NaturalRect converts a displayed-space region into natural pixel
// coordinates of bounds, clamped to the image
func NaturalRect(bounds image.Rectangle, region Region, display Size) image.Rectangle {
	natW := float64(bounds.Dx())
	natH := float64(bounds.Dy())

	scaleX, scaleY := 1.0, 1.0
	if display.Width > 0 {
		scaleX = natW / display.Width
	}
	if display.Height > 0 {
		scaleY = natH / display.Height
	}

	r := image.Rect(
		int(math.Round(region.X*scaleX)),
		int(math.Round(region.Y*scaleY)),
		int(math.Round((region.X+region.Width)*scaleX)),
		int(math.Round((region.Y+region.Height)*scaleY)),
	).Add(bounds.Min)

	return r.Intersect(bounds)
}

// Resize shrinks src to fit within maxW x maxH, preserving aspect ratio.
// Images already within bounds keep their size.
func (p *Pipeline) Resize(src string, maxW, maxH int, quality float64) (string, error) {
	if maxW <= 0 || maxH <= 0 {
		return "", bderrors.New(bderrors.KindResize, fmt.Sprintf("invalid bounds %dx%d", maxW, maxH))
	}
	img, err := DecodeDataURL(src)
	if err != nil {
		return "", bderrors.Wrap(bderrors.KindResize, "failed to load image", err)
	}

	w, h := FitWithin(img.Bounds().Dx(), img.Bounds().Dy(), maxW, maxH)
	out := imaging.Resize(img, w, h, imaging.Lanczos)

	data, err := encodeJPEG(out, quality)
	if err != nil {
		return "", bderrors.Wrap(bderrors.KindResize, "resizing failed", err)
	}
	return data, nil
}

// FitWithin returns w x h scaled down so neither side exceeds its maximum
func FitWithin(w, h, maxW, maxH int) (int, int) {
	if w <= 0 || h <= 0 {
		return w, h
	}
	factor := math.Min(1, math.Min(float64(maxW)/float64(w), float64(maxH)/float64(h)))
	nw := int(math.Round(float64(w) * factor))
	nh := int(math.Round(float64(h) * factor))
	if nw < 1 {
		nw = 1
	}
	if nh < 1 {
		nh = 1
	}
	return nw, nh
}

// Optimize prepares a photo for export: at most 600x800 at quality 0.95
func (p *Pipeline) Optimize(src string) (string, error) {
	return p.Resize(src, OptimizeMaxWidth, OptimizeMaxHeight, OptimizeQuality)
}

func normalizeMIME(m string) string {
	m, _, _ = strings.Cut(m, ";")
	m = strings.ToLower(strings.TrimSpace(m))
	if m == "image/jpg" {
		return MIMEJPEG
	}
	return m
}
