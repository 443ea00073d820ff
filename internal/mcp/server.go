package mcp

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"strings"
	"time"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/a3tai/mcp-biodata/internal/biodata"
	"github.com/a3tai/mcp-biodata/internal/biodata/layout"
	"github.com/a3tai/mcp-biodata/internal/biodata/model"
	"github.com/a3tai/mcp-biodata/internal/biodata/photo"
	"github.com/a3tai/mcp-biodata/internal/config"
	"github.com/a3tai/mcp-biodata/internal/descriptions"
	"github.com/a3tai/mcp-biodata/internal/httpapi"
)

const shutdownTimeout = 10 * time.Second

// Server represents the MCP server instance
type Server struct {
	config    *config.Config
	service   *biodata.Service
	mcpServer *server.MCPServer
}

// NewServer creates a new MCP server instance
func NewServer(cfg *config.Config, service *biodata.Service) (*Server, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config cannot be nil")
	}
	if service == nil {
		return nil, fmt.Errorf("service cannot be nil")
	}

	mcpServer := server.NewMCPServer(
		cfg.ServerName,
		cfg.Version,
		server.WithToolCapabilities(false),
		server.WithRecovery(),
	)

	s := &Server{
		config:    cfg,
		service:   service,
		mcpServer: mcpServer,
	}

	s.registerTools()

	return s, nil
}

// registerTools registers all available MCP tools
func (s *Server) registerTools() {
	s.mcpServer.AddTool(mcp.NewTool(
		"biodata_list_templates",
		mcp.WithDescription(descriptions.GetToolDescription("biodata_list_templates")),
	), s.handleListTemplates)

	s.mcpServer.AddTool(mcp.NewTool(
		"biodata_select_template",
		mcp.WithDescription(descriptions.GetToolDescription("biodata_select_template")),
		mcp.WithString("template_id",
			mcp.Required(),
			mcp.Description("Template ID from biodata_list_templates"),
		),
	), s.handleSelectTemplate)

	s.mcpServer.AddTool(mcp.NewTool(
		"biodata_get_record",
		mcp.WithDescription(descriptions.GetToolDescription("biodata_get_record")),
	), s.handleGetRecord)

	s.mcpServer.AddTool(mcp.NewTool(
		"biodata_set_field",
		mcp.WithDescription(descriptions.GetToolDescription("biodata_set_field")),
		mcp.WithString("field",
			mcp.Required(),
			mcp.Description("Field key, e.g. name, dateOfBirth, occupation"),
		),
		mcp.WithString("value",
			mcp.Required(),
			mcp.Description("New value; empty clears the field"),
		),
	), s.handleSetField)

	s.mcpServer.AddTool(mcp.NewTool(
		"biodata_clear",
		mcp.WithDescription(descriptions.GetToolDescription("biodata_clear")),
	), s.handleClear)

	s.mcpServer.AddTool(mcp.NewTool(
		"biodata_set_photo",
		mcp.WithDescription(descriptions.GetToolDescription("biodata_set_photo")),
		mcp.WithString("path", mcp.Description("Path to a JPEG, PNG or WebP file")),
		mcp.WithString("data_url", mcp.Description("Inline image data (data:image/...;base64,...)")),
	), s.handleSetPhoto)

	s.mcpServer.AddTool(mcp.NewTool(
		"biodata_crop_photo",
		mcp.WithDescription(descriptions.GetToolDescription("biodata_crop_photo")),
		mcp.WithNumber("x", mcp.Required(), mcp.Description("Region left edge in display pixels")),
		mcp.WithNumber("y", mcp.Required(), mcp.Description("Region top edge in display pixels")),
		mcp.WithNumber("width", mcp.Required(), mcp.Description("Region width in display pixels")),
		mcp.WithNumber("height", mcp.Required(), mcp.Description("Region height in display pixels")),
		mcp.WithNumber("display_width", mcp.Description("Width the photo was displayed at (default natural width)")),
		mcp.WithNumber("display_height", mcp.Description("Height the photo was displayed at (default natural height)")),
		mcp.WithNumber("output_width", mcp.Description("Output width in pixels (default 300)")),
		mcp.WithNumber("output_height", mcp.Description("Output height in pixels (default 400)")),
		mcp.WithNumber("quality", mcp.Description("JPEG quality in (0, 1] (default 0.9)")),
	), s.handleCropPhoto)

	s.mcpServer.AddTool(mcp.NewTool(
		"biodata_remove_photo",
		mcp.WithDescription(descriptions.GetToolDescription("biodata_remove_photo")),
	), s.handleRemovePhoto)

	s.mcpServer.AddTool(mcp.NewTool(
		"biodata_preview",
		mcp.WithDescription(descriptions.GetToolDescription("biodata_preview")),
	), s.handlePreview)

	s.mcpServer.AddTool(mcp.NewTool(
		"biodata_export",
		mcp.WithDescription(descriptions.GetToolDescription("biodata_export")),
		mcp.WithString("format", mcp.Description("Page format: a4 or letter")),
		mcp.WithString("orientation", mcp.Description("portrait or landscape")),
		mcp.WithNumber("scale", mcp.Description("Capture scale, device pixels per CSS pixel")),
		mcp.WithNumber("quality", mcp.Description("Image quality in (0, 1]; 1 embeds lossless slices")),
		mcp.WithString("layout", mcp.Description("auto splits tall content across pages, fit keeps one page")),
		mcp.WithString("filename", mcp.Description("Explicit output file name")),
	), s.handleExport)

	s.mcpServer.AddTool(mcp.NewTool(
		"biodata_export_stats",
		mcp.WithDescription(descriptions.GetToolDescription("biodata_export_stats")),
	), s.handleExportStats)

	s.mcpServer.AddTool(mcp.NewTool(
		"biodata_server_info",
		mcp.WithDescription(descriptions.GetToolDescription("biodata_server_info")),
	), s.handleServerInfo)
}

func (s *Server) handleListTemplates(_ context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	current, chosen := s.service.Template()
	return mcp.NewToolResultText(s.formatTemplates(s.service.Templates(), current, chosen)), nil
}

func (s *Server) handleSelectTemplate(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id, err := request.RequireString("template_id")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	t, err := s.service.SelectTemplate(ctx, id)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return mcp.NewToolResultText(fmt.Sprintf("Selected template: %s (%s)", t.Name, t.ID)), nil
}

func (s *Server) handleGetRecord(_ context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return mcp.NewToolResultText(s.formatRecord(s.service.Record())), nil
}

func (s *Server) handleSetField(_ context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	field, err := request.RequireString("field")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	value, err := request.RequireString("value")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	if _, err := s.service.SetField(field, value); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	if value == "" {
		return mcp.NewToolResultText(fmt.Sprintf("Cleared %s", field)), nil
	}
	return mcp.NewToolResultText(fmt.Sprintf("Set %s = %q", field, value)), nil
}

func (s *Server) handleClear(ctx context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	if err := s.service.Clear(ctx); err != nil {
		return mcp.NewToolResultText("Record cleared (the saved draft could not be removed: " + err.Error() + ")"), nil
	}
	return mcp.NewToolResultText("Record cleared"), nil
}

func (s *Server) handleSetPhoto(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	path := request.GetString("path", "")
	dataURL := request.GetString("data_url", "")

	var err error
	switch {
	case path != "" && dataURL != "":
		return mcp.NewToolResultError("provide either path or data_url, not both"), nil
	case path != "":
		err = s.service.SetPhotoFile(ctx, path)
	case dataURL != "":
		err = s.service.SetPhotoData(ctx, dataURL)
	default:
		return mcp.NewToolResultError("one of path or data_url is required"), nil
	}
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return mcp.NewToolResultText("Photo attached"), nil
}

func (s *Server) handleCropPhoto(_ context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	var req biodata.CropRequest
	var err error
	if req.Region.X, err = request.RequireFloat("x"); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	if req.Region.Y, err = request.RequireFloat("y"); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	if req.Region.Width, err = request.RequireFloat("width"); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	if req.Region.Height, err = request.RequireFloat("height"); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	req.Display = photo.Size{
		Width:  request.GetFloat("display_width", 0),
		Height: request.GetFloat("display_height", 0),
	}
	req.OutputWidth = int(request.GetFloat("output_width", photo.DefaultCropWidth))
	req.OutputHeight = int(request.GetFloat("output_height", photo.DefaultCropHeight))
	req.Quality = request.GetFloat("quality", photo.DefaultCropQuality)

	if err := s.service.CropPhoto(req); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return mcp.NewToolResultText(fmt.Sprintf("Photo cropped to %dx%d", req.OutputWidth, req.OutputHeight)), nil
}

func (s *Server) handleRemovePhoto(_ context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	s.service.RemovePhoto()
	return mcp.NewToolResultText("Photo removed"), nil
}

func (s *Server) handlePreview(_ context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return mcp.NewToolResultText(s.formatPreview(s.service.Preview())), nil
}

func (s *Server) handleExport(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	opts := model.Options{
		Format:      strings.ToLower(request.GetString("format", "")),
		Orientation: strings.ToLower(request.GetString("orientation", "")),
		Scale:       request.GetFloat("scale", 0),
		Quality:     request.GetFloat("quality", 0),
		Layout:      strings.ToLower(request.GetString("layout", "")),
		Filename:    request.GetString("filename", ""),
	}

	result := s.service.Export(ctx, opts)
	if !result.Success {
		return mcp.NewToolResultError("Failed to generate PDF: " + result.Error), nil
	}
	return mcp.NewToolResultText(s.formatExportResult(result)), nil
}

func (s *Server) handleExportStats(_ context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	result, err := s.service.ExportStats()
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return mcp.NewToolResultText(s.formatExportStats(result)), nil
}

func (s *Server) handleServerInfo(_ context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return mcp.NewToolResultText(s.formatServerInfo(s.service.ServerInfo())), nil
}

func (s *Server) formatTemplates(templates []model.Template, current model.Template, chosen bool) string {
	text := fmt.Sprintf("Available templates (%d):\n", len(templates))
	for i, t := range templates {
		marker := ""
		if chosen && t.ID == current.ID {
			marker = " ✅ selected"
		}
		popular := ""
		if t.Popular {
			popular = " ⭐"
		}
		text += fmt.Sprintf("\n%d. %s (%s)%s%s\n", i+1, t.Name, t.ID, popular, marker)
		text += fmt.Sprintf("   %s\n", t.Description)
		text += fmt.Sprintf("   Colors: primary %s, secondary %s, accent %s, background %s\n",
			t.Colors.Primary, t.Colors.Secondary, t.Colors.Accent, t.Colors.Background)
	}
	if !chosen {
		text += fmt.Sprintf("\nNo template selected yet; %s is used by default.\n", current.ID)
	}
	return text
}

func (s *Server) formatRecord(p model.Profile) string {
	text := "Biodata record\n"
	for _, section := range model.Sections {
		text += fmt.Sprintf("\n%s:\n", section.Title)
		for _, f := range model.FieldsIn(section.ID) {
			value := p.Get(f.Key)
			if value == "" {
				value = "(empty)"
			}
			text += fmt.Sprintf("  %s [%s]: %s\n", f.Label, f.Key, value)
		}
	}
	if _, ok := p.Photo(); ok {
		text += "\nPhoto: attached\n"
	} else {
		text += "\nPhoto: none\n"
	}
	return text
}

func (s *Server) formatPreview(doc *layout.Document) string {
	text := fmt.Sprintf("📄 %s\n", doc.Title)
	text += fmt.Sprintf("Template: %s\n", doc.TemplateID)
	if doc.Photo.HasImage() {
		text += "Photo: embedded image\n"
	} else {
		text += fmt.Sprintf("Photo: [%s]\n", doc.Photo.Placeholder)
	}

	for _, section := range doc.Sections {
		text += fmt.Sprintf("\n== %s ==\n", section.Title)
		if len(section.Rows) == 0 {
			text += "  (no details yet)\n"
		}
		for _, row := range section.Rows {
			text += fmt.Sprintf("  %s: %s\n", row.Label, row.Value)
		}
	}

	text += fmt.Sprintf("\n%s\n", doc.Footer)
	if doc.WatermarkVisible() {
		text += fmt.Sprintf("(preview watermark: %s)\n", doc.Watermark)
	}
	return text
}

func (s *Server) formatExportResult(result biodata.ExportResult) string {
	text := "✅ PDF generated successfully\n"
	text += fmt.Sprintf("File: %s\n", result.Path)
	text += fmt.Sprintf("Pages: %d\n", result.Pages)
	text += fmt.Sprintf("Size: %d bytes\n", result.Size)
	text += fmt.Sprintf("Page: %s %s, layout %s\n", result.Options.Format, result.Options.Orientation, result.Layout)
	text += fmt.Sprintf("Export ID: %s\n", result.ID)
	text += fmt.Sprintf("Took: %s\n", result.Duration.Round(time.Millisecond))
	return text
}

func (s *Server) formatExportStats(result *biodata.ExportStatsResult) string {
	text := "Export Statistics\n"
	text += fmt.Sprintf("Directory: %s\n", result.OutputDirectory)
	text += fmt.Sprintf("Total PDF files: %d\n", result.TotalFiles)
	text += fmt.Sprintf("Total size: %d bytes\n", result.TotalSize)
	text += fmt.Sprintf("Total pages: %d\n", result.TotalPages)
	text += fmt.Sprintf("Captures: %d (%d failed)\n", result.Captures, result.FailedCaptures)

	for i, f := range result.Files {
		if i >= 10 {
			text += fmt.Sprintf("   ... and %d more files\n", len(result.Files)-10)
			break
		}
		text += fmt.Sprintf("   %d. %s (%d pages, %d bytes)\n", i+1, f.Name, f.Pages, f.Size)
	}

	if result.LastExport != nil {
		if result.LastExport.Success {
			text += fmt.Sprintf("Last export: %s\n", result.LastExport.Filename)
		} else {
			text += fmt.Sprintf("Last export failed: %s\n", result.LastExport.Error)
		}
	}

	switch {
	case result.DraftDegraded:
		text += "Draft: storage unavailable, changes kept in memory only\n"
	case !result.Draft.At.IsZero():
		text += fmt.Sprintf("Draft: %s at %s\n", result.Draft.Message, result.Draft.At.Format(time.RFC3339))
	}

	if result.ImageCache != nil {
		text += fmt.Sprintf("Image cache: %d/%d entries, %d hits, %d misses\n",
			result.ImageCache.Size, result.ImageCache.Capacity, result.ImageCache.Hits, result.ImageCache.Misses)
	}
	return text
}

func (s *Server) formatServerInfo(result *biodata.ServerInfoResult) string {
	text := fmt.Sprintf("📋 %s v%s - Server Information\n", result.ServerName, result.Version)
	text += fmt.Sprintf("📁 Output Directory: %s\n", result.OutputDirectory)
	text += fmt.Sprintf("📏 Max Image Size: %d MB\n", result.MaxImageSize/(1024*1024))
	text += fmt.Sprintf("🎨 Selected Template: %s\n", result.SelectedTemplate)
	text += fmt.Sprintf("📐 Defaults: %s %s, scale %.1f, layout %s\n\n",
		result.Defaults.Format, result.Defaults.Orientation, result.Defaults.Scale, result.Defaults.Layout)

	text += "🛠️  Available Tools:\n"
	for _, tool := range result.AvailableTools {
		text += fmt.Sprintf("\n• %s\n", tool.Name)
		text += fmt.Sprintf("  Usage: %s\n", tool.Usage)
		text += fmt.Sprintf("  Parameters: %s\n", tool.Parameters)
	}

	if len(result.SupportedFormats) > 0 {
		text += "\n🖼️  Supported Photo Formats:\n"
		for _, format := range result.SupportedFormats {
			text += fmt.Sprintf("  • %s\n", format)
		}
	}

	text += "\n" + result.UsageGuidance

	return text
}

// Run starts the MCP server in the configured mode
func (s *Server) Run(ctx context.Context) error {
	if s.config.IsServerMode() {
		return s.runServerMode(ctx)
	}
	return s.runStdioMode(ctx)
}

// runStdioMode runs the server in stdio mode
func (s *Server) runStdioMode(_ context.Context) error {
	if s.config.IsDebug() {
		log.Printf("Starting biodata MCP server in stdio mode")
		log.Printf("Output directory: %s", s.config.OutputDirectory)
	}

	if err := server.ServeStdio(s.mcpServer); err != nil {
		return fmt.Errorf("failed to serve stdio: %w", err)
	}
	return nil
}

// Handler returns the HTTP handler used in server mode: the REST API plus
// the MCP SSE transport
func (s *Server) Handler() http.Handler {
	sse := server.NewSSEServer(s.mcpServer,
		server.WithBaseURL("http://"+s.config.Address()),
	)
	return httpapi.NewHandler(httpapi.Deps{
		Service:      s.service,
		MaxImageSize: s.config.MaxImageSize,
		SSE:          sse.SSEHandler(),
		Message:      sse.MessageHandler(),
	})
}

// runServerMode serves HTTP until ctx is cancelled
func (s *Server) runServerMode(ctx context.Context) error {
	httpServer := &http.Server{
		Addr:              s.config.Address(),
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Printf("Starting biodata server on http://%s", httpServer.Addr)
		log.Printf("Output directory: %s", s.config.OutputDirectory)
		errCh <- httpServer.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("failed to serve http: %w", err)
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("failed to shut down http server: %w", err)
		}
		return nil
	}
}
