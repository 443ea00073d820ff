package biodata

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"os"
	"sort"
	"sync"
	"time"

	"github.com/spf13/afero"

	"github.com/a3tai/mcp-biodata/internal/biodata/capture"
	bderrors "github.com/a3tai/mcp-biodata/internal/biodata/errors"
	"github.com/a3tai/mcp-biodata/internal/biodata/export"
	"github.com/a3tai/mcp-biodata/internal/biodata/layout"
	"github.com/a3tai/mcp-biodata/internal/biodata/model"
	"github.com/a3tai/mcp-biodata/internal/biodata/photo"
	"github.com/a3tai/mcp-biodata/internal/biodata/storage"
)

// ErrTemplateAlreadySelected is returned when a second, different template
// is selected in the same session
var ErrTemplateAlreadySelected = errors.New("template already selected for this session")

// Options configures a Service
type Options struct {
	Backend       storage.Backend
	Fs            afero.Fs
	OutputDir     string
	MaxImageSize  int64
	AutosaveDelay time.Duration
	Defaults      model.Options
	Loader        capture.ImageLoader
	Clock         func() time.Time
	Logger        *log.Logger
	ServerName    string
	Version       string
}

// Service is one editing session: the record, the selected template and
// the pipeline that turns them into PDF files
type Service struct {
	mu             sync.Mutex
	record         model.Profile
	template       model.Template
	templateChosen bool

	drafts   *storage.DraftStore
	photos   *photo.Pipeline
	stage    *capture.Stage
	engine   *capture.Engine
	loader   capture.ImageLoader
	exporter *export.Exporter

	defaults   model.Options
	logger     *log.Logger
	serverName string
	version    string

	statsMu    sync.Mutex
	lastExport *ExportResult
}

// NewService creates a session, restoring the persisted draft and template
func NewService(ctx context.Context, opts Options) (*Service, error) {
	if opts.Backend == nil {
		return nil, errors.New("storage backend cannot be nil")
	}
	if opts.Fs == nil {
		opts.Fs = afero.NewOsFs()
	}
	if opts.OutputDir == "" {
		return nil, errors.New("output directory cannot be empty")
	}
	if opts.Logger == nil {
		opts.Logger = log.New(os.Stderr, "[Biodata] ", log.LstdFlags)
	}
	if opts.Loader == nil {
		opts.Loader = capture.NewInlineLoader(32)
	}
	if opts.Clock == nil {
		opts.Clock = time.Now
	}
	if opts.ServerName == "" {
		opts.ServerName = "mcp-biodata"
	}

	stage := capture.NewStage()
	engine, err := capture.NewEngine(stage, opts.Loader, capture.WithLogger(opts.Logger))
	if err != nil {
		return nil, fmt.Errorf("failed to create capture engine: %w", err)
	}

	exporter := export.NewExporter(
		export.NewSaver(opts.Fs, opts.OutputDir),
		export.WithClock(opts.Clock),
		export.WithCreator(opts.ServerName+" "+opts.Version),
		export.WithExportLogger(opts.Logger),
	)

	s := &Service{
		drafts:     storage.NewDraftStore(opts.Backend, opts.AutosaveDelay, storage.WithLogger(opts.Logger)),
		photos:     photo.NewPipeline(opts.MaxImageSize),
		stage:      stage,
		engine:     engine,
		loader:     opts.Loader,
		exporter:   exporter,
		defaults:   opts.Defaults.WithDefaults(),
		logger:     opts.Logger,
		serverName: opts.ServerName,
		version:    opts.Version,
		template:   model.DefaultTemplate(),
	}
	if err := s.defaults.Validate(); err != nil {
		return nil, fmt.Errorf("invalid default export options: %w", err)
	}

	s.record = s.drafts.LoadProfile(ctx)
	if id, ok := s.drafts.LoadTemplate(ctx); ok {
		if t, err := model.LookupTemplate(id); err == nil {
			s.template = t
			s.templateChosen = true
		} else {
			s.logger.Printf("ignoring persisted template %q: %v", id, err)
		}
	}
	s.stage.Mount(layout.RenderLive(s.record, s.template))

	return s, nil
}

// Record returns a copy of the current record
func (s *Service) Record() model.Profile {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.record.Clone()
}

// SetField updates one field of the record
func (s *Service) SetField(key, value string) (model.Profile, error) {
	return s.SetFields(map[string]string{key: value})
}

// SetFields updates several fields at once. Every key is checked before
// anything is changed.
func (s *Service) SetFields(values map[string]string) (model.Profile, error) {
	for key := range values {
		if _, ok := model.LookupField(key); !ok {
			return model.Profile{}, bderrors.Wrap(bderrors.KindValidation, "invalid field",
				fmt.Errorf("%w: %s", model.ErrUnknownField, key))
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	for key, value := range values {
		if err := s.record.Set(key, value); err != nil {
			return model.Profile{}, bderrors.Wrap(bderrors.KindValidation, "invalid field", err)
		}
	}
	s.changedLocked()
	return s.record.Clone(), nil
}

// Clear resets the record to all-empty and removes the persisted draft
func (s *Service) Clear(ctx context.Context) error {
	s.mu.Lock()
	s.record = model.NewProfile()
	s.stage.Mount(layout.RenderLive(s.record, s.template))
	s.mu.Unlock()

	if err := s.drafts.Clear(ctx); err != nil {
		s.logger.Printf("clearing draft: %v", err)
		return err
	}
	return nil
}

// Templates lists the available templates
func (s *Service) Templates() []model.Template {
	return model.Templates()
}

// Template returns the selected template and whether one was chosen
// explicitly
func (s *Service) Template() (model.Template, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.template, s.templateChosen
}

// SelectTemplate chooses the session template. Selecting the current
// template again is a no-op; a different one is rejected once chosen.
func (s *Service) SelectTemplate(ctx context.Context, id string) (model.Template, error) {
	t, err := model.LookupTemplate(id)
	if err != nil {
		return model.Template{}, bderrors.Wrap(bderrors.KindValidation, "invalid template", err)
	}

	s.mu.Lock()
	if s.templateChosen {
		current := s.template
		s.mu.Unlock()
		if current.ID == t.ID {
			return current, nil
		}
		return model.Template{}, fmt.Errorf("%w: %s", ErrTemplateAlreadySelected, current.ID)
	}
	s.template = t
	s.templateChosen = true
	s.stage.Mount(layout.RenderLive(s.record, s.template))
	s.mu.Unlock()

	if err := s.drafts.SaveTemplate(ctx, t.ID); err != nil {
		s.logger.Printf("persisting template selection: %v", err)
	}
	return t, nil
}

// SetPhoto reads an uploaded image and embeds it in the record. On any
// failure the record is left untouched.
func (s *Service) SetPhoto(ctx context.Context, fd photo.FileDescriptor, r io.Reader) error {
	src, err := s.photos.DecodeToEmbeddable(ctx, fd, r)
	if err != nil {
		return err
	}
	s.setPhoto(src)
	return nil
}

// SetPhotoFile embeds the image at path
func (s *Service) SetPhotoFile(ctx context.Context, path string) error {
	src, err := s.photos.DecodeFile(ctx, path)
	if err != nil {
		return err
	}
	s.setPhoto(src)
	return nil
}

// SetPhotoData embeds inline image data after validating it like an upload
func (s *Service) SetPhotoData(ctx context.Context, src string) error {
	mimeType, data, err := photo.ParseDataURL(src)
	if err != nil {
		return bderrors.Wrap(bderrors.KindDecode, "invalid image data", err)
	}
	fd := photo.FileDescriptor{Name: "photo", Size: int64(len(data)), MIMEType: mimeType}
	return s.SetPhoto(ctx, fd, bytes.NewReader(data))
}

// CropPhoto replaces the current photo with the selected region
func (s *Service) CropPhoto(req CropRequest) error {
	s.mu.Lock()
	src, ok := s.record.Photo()
	s.mu.Unlock()
	if !ok {
		return bderrors.New(bderrors.KindCrop, "no photo to crop")
	}

	if req.OutputWidth <= 0 {
		req.OutputWidth = photo.DefaultCropWidth
	}
	if req.OutputHeight <= 0 {
		req.OutputHeight = photo.DefaultCropHeight
	}
	if req.Quality <= 0 || req.Quality > 1 {
		req.Quality = photo.DefaultCropQuality
	}

	cropped, err := s.photos.Crop(src, req.Region, req.Display, req.OutputWidth, req.OutputHeight, req.Quality)
	if err != nil {
		return err
	}
	s.setPhoto(cropped)
	return nil
}

// RemovePhoto drops the embedded photo
func (s *Service) RemovePhoto() {
	s.setPhoto("")
}

func (s *Service) setPhoto(src string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.record.SetPhoto(src)
	s.changedLocked()
}

// changedLocked schedules an autosave and refreshes the live preview.
// Callers hold s.mu.
func (s *Service) changedLocked() {
	s.drafts.ScheduleSave(s.record)
	s.stage.Mount(layout.RenderLive(s.record, s.template))
}

// Preview returns the live document for the current record
func (s *Service) Preview() *layout.Document {
	s.mu.Lock()
	defer s.mu.Unlock()
	return layout.RenderLive(s.record, s.template)
}

// Export captures the current record and writes it as a PDF. It never
// returns an error: failures are reported in the result.
func (s *Service) Export(ctx context.Context, opts model.Options) (result ExportResult) {
	start := time.Now()
	opts = s.mergeOptions(opts)
	result.Options = opts

	defer func() {
		if r := recover(); r != nil {
			s.logger.Printf("export panicked: %v", r)
			result = ExportResult{Error: fmt.Sprintf("Failed to generate PDF: %v", r), Options: opts}
		}
		result.Duration = time.Since(start)
		s.recordExport(result)
	}()

	if s.engine.InProgress() {
		return failure(opts, bderrors.NewWithCode(bderrors.KindCapture, bderrors.CodeInProgress,
			"PDF generation already in progress"))
	}
	if err := opts.Validate(); err != nil {
		return failure(opts, bderrors.Wrap(bderrors.KindExport, "invalid export options", err))
	}

	s.mu.Lock()
	record := s.record.Clone()
	tmpl := s.template
	s.mu.Unlock()

	// optimize
	if src, ok := record.Photo(); ok {
		optimized, err := s.photos.Optimize(src)
		if err != nil {
			s.logger.Printf("photo optimization failed, exporting original: %v", err)
		} else {
			record.SetPhoto(optimized)
		}
	}

	// capture
	s.stage.Mount(layout.RenderLive(record, tmpl))
	defer s.remountLive()

	bm, err := s.engine.Capture(ctx, layout.DocumentID, opts)
	if err != nil {
		return failure(opts, err)
	}

	// build and save
	res, err := s.exporter.Export(ctx, bm, opts, record.Name())
	if err != nil {
		return failure(opts, err)
	}

	return ExportResult{
		Success:  true,
		ID:       res.ID,
		Filename: res.Filename,
		Path:     res.Path,
		Pages:    res.Pages,
		Size:     res.Size,
		Layout:   res.Mode,
		Options:  opts,
		Data:     res.Data,
	}
}

func (s *Service) remountLive() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.stage.Mount(layout.RenderLive(s.record, s.template))
}

// mergeOptions fills unset request options from the session defaults
func (s *Service) mergeOptions(opts model.Options) model.Options {
	if opts.Scale <= 0 {
		opts.Scale = s.defaults.Scale
	}
	if opts.Format == "" {
		opts.Format = s.defaults.Format
	}
	if opts.Orientation == "" {
		opts.Orientation = s.defaults.Orientation
	}
	if opts.Quality == 0 {
		opts.Quality = s.defaults.Quality
	}
	if opts.Layout == "" {
		opts.Layout = s.defaults.Layout
	}
	if opts.ImageTimeout <= 0 {
		opts.ImageTimeout = s.defaults.ImageTimeout
	}
	return opts
}

func failure(opts model.Options, err error) ExportResult {
	return ExportResult{Error: userMessage(err), Code: string(bderrors.CodeOf(err)), Options: opts}
}

// userMessage returns the human-readable part of err
func userMessage(err error) string {
	var e *bderrors.Error
	if errors.As(err, &e) && e.Message != "" {
		if e.Err != nil {
			return e.Message + ": " + e.Err.Error()
		}
		return e.Message
	}
	return err.Error()
}

func (s *Service) recordExport(r ExportResult) {
	r.Data = nil
	s.statsMu.Lock()
	defer s.statsMu.Unlock()
	s.lastExport = &r
}

// ExportStats lists exported files and session counters
func (s *Service) ExportStats() (*ExportStatsResult, error) {
	saver := s.exporter.Saver()
	files, err := export.ListExports(saver.Fs(), saver.Dir())
	if err != nil {
		return nil, fmt.Errorf("failed to list exports: %w", err)
	}

	result := &ExportStatsResult{
		OutputDirectory: saver.Dir(),
		Files:           files,
		TotalFiles:      len(files),
		Draft:           s.drafts.Status(),
		DraftDegraded:   s.drafts.Degraded(),
	}
	if result.Files == nil {
		result.Files = []export.FileInfo{}
	}
	for _, f := range files {
		result.TotalSize += f.Size
		result.TotalPages += f.Pages
	}
	result.Captures, result.FailedCaptures = s.engine.Stats()

	if cs, ok := s.loader.(interface{ CacheStats() capture.CacheStats }); ok {
		stats := cs.CacheStats()
		result.ImageCache = &stats
	}

	s.statsMu.Lock()
	if s.lastExport != nil {
		last := *s.lastExport
		result.LastExport = &last
	}
	s.statsMu.Unlock()

	return result, nil
}

// ServerInfo describes the server, its tools and defaults
func (s *Service) ServerInfo() *ServerInfoResult {
	tmpl, _ := s.Template()
	templates := s.Templates()
	sort.SliceStable(templates, func(i, j int) bool {
		return templates[i].Popular && !templates[j].Popular
	})
	return &ServerInfoResult{
		ServerName:       s.serverName,
		Version:          s.version,
		OutputDirectory:  s.exporter.Saver().Dir(),
		MaxImageSize:     s.photos.MaxSize(),
		SupportedFormats: s.photos.SupportedFormats(),
		Templates:        templates,
		SelectedTemplate: tmpl.ID,
		Defaults:         s.defaults,
		AvailableTools:   availableTools(),
		UsageGuidance:    usageGuidance,
	}
}

// SaveStatus reports the outcome of the last draft write
func (s *Service) SaveStatus() storage.SaveStatus {
	return s.drafts.Status()
}

// Flush writes any pending draft immediately
func (s *Service) Flush(ctx context.Context) error {
	return s.drafts.Flush(ctx)
}

// Close flushes the draft and releases the storage backend
func (s *Service) Close(ctx context.Context) error {
	return s.drafts.Close(ctx)
}
