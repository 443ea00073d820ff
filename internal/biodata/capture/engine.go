package capture

import (
	"context"
	"fmt"
	"image"
	"log"
	"os"
	"sync/atomic"
	"time"

	bderrors "github.com/a3tai/mcp-biodata/internal/biodata/errors"
	"github.com/a3tai/mcp-biodata/internal/biodata/layout"
	"github.com/a3tai/mcp-biodata/internal/biodata/model"
)

// Bitmap is a captured document raster
type Bitmap struct {
	Width  int
	Height int
	Scale  float64
	Image  *image.RGBA
}

// Engine captures mounted documents into bitmaps. Only one capture runs at
// a time; concurrent requests are rejected.
type Engine struct {
	stage      *Stage
	loader     ImageLoader
	rasterizer *Rasterizer
	logger     *log.Logger

	busy     atomic.Bool
	captures atomic.Int64
	failures atomic.Int64
}

// Option configures an Engine
type Option func(*Engine)

// WithLogger overrides the engine logger
func WithLogger(l *log.Logger) Option {
	return func(e *Engine) { e.logger = l }
}

// NewEngine creates a capture engine over stage, loading images with loader
func NewEngine(stage *Stage, loader ImageLoader, opts ...Option) (*Engine, error) {
	rasterizer, err := NewRasterizer()
	if err != nil {
		return nil, err
	}
	e := &Engine{
		stage:      stage,
		loader:     loader,
		rasterizer: rasterizer,
		logger:     log.New(os.Stderr, "[Capture] ", log.LstdFlags),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e, nil
}

// InProgress reports whether a capture is running
func (e *Engine) InProgress() bool {
	return e.busy.Load()
}

// Stats returns the number of completed and failed captures
func (e *Engine) Stats() (captures, failures int64) {
	return e.captures.Load(), e.failures.Load()
}

// Capture rasterizes the document mounted under handle with the export
// style applied. The style is reverted before Capture returns.
func (e *Engine) Capture(ctx context.Context, handle string, opts model.Options) (bm *Bitmap, err error) {
	if !e.busy.CompareAndSwap(false, true) {
		return nil, bderrors.NewWithCode(bderrors.KindCapture, bderrors.CodeInProgress,
			"PDF generation already in progress")
	}
	defer e.busy.Store(false)

	start := time.Now()
	defer func() {
		if r := recover(); r != nil {
			bm = nil
			err = bderrors.New(bderrors.KindCapture, fmt.Sprintf("rasterization failed: %v", r))
		}
		if err != nil {
			e.failures.Add(1)
			e.logger.Printf("capture of %q failed after %v: %v", handle, time.Since(start), err)
			return
		}
		e.captures.Add(1)
	}()

	opts = opts.WithDefaults()

	lease, err := e.stage.Acquire(handle, layout.ExportStyle())
	if err != nil {
		return nil, err
	}
	defer lease.Release()

	doc := lease.Document()
	images := waitForImages(ctx, e.loader, doc.ImageSources(), opts.ImageTimeout, e.logger)

	scale := opts.EffectiveScale()
	var img *image.RGBA
	if lease.Visible() {
		img, err = e.rasterizer.Rasterize(doc, images, scale)
		if err != nil {
			return nil, bderrors.Wrap(bderrors.KindCapture, "rasterizing document", err)
		}
	} else {
		img = image.NewRGBA(image.Rectangle{})
	}

	b := img.Bounds()
	if b.Dx() <= 0 || b.Dy() <= 0 {
		return nil, bderrors.NewWithCode(bderrors.KindCapture, bderrors.CodeZeroSizeOutput,
			fmt.Sprintf("capture of %q produced an empty %dx%d bitmap", handle, b.Dx(), b.Dy()))
	}

	return &Bitmap{Width: b.Dx(), Height: b.Dy(), Scale: scale, Image: img}, nil
}
