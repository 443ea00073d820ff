package export

import (
	"context"
	"fmt"
	"log"
	"os"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/a3tai/mcp-biodata/internal/biodata/capture"
	bderrors "github.com/a3tai/mcp-biodata/internal/biodata/errors"
	"github.com/a3tai/mcp-biodata/internal/biodata/model"
)

// Result describes a completed export
type Result struct {
	ID       string `json:"id"`
	Filename string `json:"filename"`
	Path     string `json:"path"`
	Pages    int    `json:"pages"`
	Size     int    `json:"size"`
	Mode     string `json:"mode"`
	Data     []byte `json:"-"`
}

// Exporter turns captured bitmaps into saved PDF documents
type Exporter struct {
	saver   *Saver
	clock   func() time.Time
	creator string
	logger  *log.Logger
}

// ExporterOption configures an Exporter
type ExporterOption func(*Exporter)

// WithClock sets the clock used for filenames and document dates
func WithClock(clock func() time.Time) ExporterOption {
	return func(e *Exporter) { e.clock = clock }
}

// WithCreator sets the document creator string
func WithCreator(creator string) ExporterOption {
	return func(e *Exporter) { e.creator = creator }
}

// WithExportLogger overrides the exporter logger
func WithExportLogger(l *log.Logger) ExporterOption {
	return func(e *Exporter) { e.logger = l }
}

// NewExporter creates an exporter saving through saver
func NewExporter(saver *Saver, opts ...ExporterOption) *Exporter {
	e := &Exporter{
		saver:   saver,
		clock:   time.Now,
		creator: "mcp-biodata",
		logger:  log.New(os.Stderr, "[Export] ", log.LstdFlags),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Saver returns the exporter's saver
func (e *Exporter) Saver() *Saver {
	return e.saver
}

// Export paginates bm, assembles the PDF and saves it under the derived
// filename. name is the record's name field.
func (e *Exporter) Export(ctx context.Context, bm *capture.Bitmap, opts model.Options, name string) (*Result, error) {
	id := uuid.NewString()
	opts = opts.WithDefaults()
	if err := opts.Validate(); err != nil {
		return nil, bderrors.Wrap(bderrors.KindExport, "invalid export options", err)
	}
	if bm == nil || bm.Width <= 0 || bm.Height <= 0 {
		return nil, bderrors.NewWithCode(bderrors.KindExport, bderrors.CodeZeroSizeOutput, "nothing to export")
	}

	g, err := PageGeometry(opts.Format, opts.Orientation)
	if err != nil {
		return nil, bderrors.Wrap(bderrors.KindExport, "page geometry", err)
	}
	plan, err := Paginate(bm.Width, bm.Height, g, opts.Layout)
	if err != nil {
		return nil, bderrors.Wrap(bderrors.KindExport, "pagination", err)
	}
	if err := ctx.Err(); err != nil {
		return nil, bderrors.Wrap(bderrors.KindExport, "export cancelled", err)
	}

	now := e.clock()
	title := "Biodata"
	if n := strings.TrimSpace(name); n != "" {
		title = n + " - Biodata"
	}
	raw, err := BuildPDF(bm, plan, g, opts.Quality, Metadata{
		Title:   title,
		Author:  strings.TrimSpace(name),
		Creator: e.creator,
		Created: now,
	})
	if err != nil {
		return nil, bderrors.Wrap(bderrors.KindExport, "building document", err)
	}

	data, pages, err := Finalize(raw)
	if err != nil {
		return nil, bderrors.Wrap(bderrors.KindExport, "checking document", err)
	}
	if pages != len(plan.Pages) {
		return nil, bderrors.New(bderrors.KindExport,
			fmt.Sprintf("document has %d pages, expected %d", pages, len(plan.Pages)))
	}
	if err := ctx.Err(); err != nil {
		return nil, bderrors.Wrap(bderrors.KindExport, "export cancelled", err)
	}

	filename := Filename(name, opts.Filename, now)
	path, err := e.saver.Save(filename, data)
	if err != nil {
		return nil, bderrors.Wrap(bderrors.KindExport, "saving document", err)
	}

	e.logger.Printf("export %s: %s (%d pages, %s layout, %d bytes)", id, path, pages, plan.Mode, len(data))
	return &Result{
		ID:       id,
		Filename: filename,
		Path:     path,
		Pages:    pages,
		Size:     len(data),
		Mode:     plan.Mode,
		Data:     data,
	}, nil
}
