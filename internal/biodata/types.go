package biodata

import (
	"time"

	"github.com/a3tai/mcp-biodata/internal/biodata/capture"
	"github.com/a3tai/mcp-biodata/internal/biodata/export"
	"github.com/a3tai/mcp-biodata/internal/biodata/model"
	"github.com/a3tai/mcp-biodata/internal/biodata/photo"
	"github.com/a3tai/mcp-biodata/internal/biodata/storage"
)

// CropRequest selects a region of the current photo. Region and display
// size are in the coordinates the photo was shown at.
type CropRequest struct {
	Region       photo.Region `json:"region"`
	Display      photo.Size   `json:"display"`
	OutputWidth  int          `json:"output_width,omitempty"`
	OutputHeight int          `json:"output_height,omitempty"`
	Quality      float64      `json:"quality,omitempty"`
}

// ExportResult is the outcome of an export. Failures are reported through
// Success and Error rather than a Go error.
type ExportResult struct {
	Success  bool          `json:"success"`
	Error    string        `json:"error,omitempty"`
	Code     string        `json:"code,omitempty"`
	ID       string        `json:"id,omitempty"`
	Filename string        `json:"filename,omitempty"`
	Path     string        `json:"path,omitempty"`
	Pages    int           `json:"pages,omitempty"`
	Size     int           `json:"size,omitempty"`
	Layout   string        `json:"layout,omitempty"`
	Options  model.Options `json:"options"`
	Duration time.Duration `json:"duration"`
	Data     []byte        `json:"-"`
}

// ExportStatsResult summarizes exports and session state
type ExportStatsResult struct {
	OutputDirectory string              `json:"output_directory"`
	Files           []export.FileInfo   `json:"files"`
	TotalFiles      int                 `json:"total_files"`
	TotalSize       int64               `json:"total_size"`
	TotalPages      int                 `json:"total_pages"`
	Captures        int64               `json:"captures"`
	FailedCaptures  int64               `json:"failed_captures"`
	LastExport      *ExportResult       `json:"last_export,omitempty"`
	Draft           storage.SaveStatus  `json:"draft"`
	DraftDegraded   bool                `json:"draft_degraded"`
	ImageCache      *capture.CacheStats `json:"image_cache,omitempty"`
}

// ToolInfo describes an available tool
type ToolInfo struct {
	Name        string `json:"name"`
	Description string `json:"description"`
	Usage       string `json:"usage"`
	Parameters  string `json:"parameters"`
}

// ServerInfoResult describes the server, its tools and its defaults
type ServerInfoResult struct {
	ServerName       string           `json:"server_name"`
	Version          string           `json:"version"`
	OutputDirectory  string           `json:"output_directory"`
	MaxImageSize     int64            `json:"max_image_size"`
	SupportedFormats []string         `json:"supported_formats"`
	Templates        []model.Template `json:"templates"`
	SelectedTemplate string           `json:"selected_template"`
	Defaults         model.Options    `json:"defaults"`
	AvailableTools   []ToolInfo       `json:"available_tools"`
	UsageGuidance    string           `json:"usage_guidance"`
}
