package mcp

import (
	"context"
	"io"
	"log"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/spf13/afero"

	"github.com/a3tai/mcp-biodata/internal/biodata"
	"github.com/a3tai/mcp-biodata/internal/biodata/model"
	"github.com/a3tai/mcp-biodata/internal/biodata/photo"
	"github.com/a3tai/mcp-biodata/internal/biodata/storage"
	"github.com/a3tai/mcp-biodata/internal/config"
)

func testConfig(mode string) *config.Config {
	return &config.Config{
		Mode:            mode,
		Host:            "127.0.0.1",
		Port:            0,
		OutputDirectory: "/exports",
		Version:         "1.0.0",
		ServerName:      "test-server",
		LogLevel:        "info",
		MaxImageSize:    photo.DefaultMaxSize,
	}
}

func newTestService(t *testing.T) *biodata.Service {
	t.Helper()
	defaults := model.DefaultOptions()
	defaults.Scale = 0.5
	svc, err := biodata.NewService(context.Background(), biodata.Options{
		Backend:       storage.NewMemoryBackend(),
		Fs:            afero.NewMemMapFs(),
		OutputDir:     "/exports",
		AutosaveDelay: time.Hour,
		Defaults:      defaults,
		Clock:         func() time.Time { return time.Date(2026, 10, 18, 0, 0, 0, 0, time.UTC) },
		Logger:        log.New(io.Discard, "", 0),
		ServerName:    "test-server",
		Version:       "1.0.0",
	})
	if err != nil {
		t.Fatalf("failed to create service: %v", err)
	}
	return svc
}

func newTestServer(t *testing.T) *Server {
	t.Helper()
	server, err := NewServer(testConfig(config.ModeStdio), newTestService(t))
	if err != nil {
		t.Fatalf("failed to create server: %v", err)
	}
	return server
}

func callRequest(args map[string]interface{}) mcp.CallToolRequest {
	return mcp.CallToolRequest{
		Params: mcp.CallToolParams{
			Arguments: args,
		},
	}
}

func TestNewServer(t *testing.T) {
	svc := newTestService(t)

	tests := []struct {
		name        string
		config      *config.Config
		service     *biodata.Service
		expectError bool
	}{
		{"valid stdio mode config", testConfig(config.ModeStdio), svc, false},
		{"valid server mode config", testConfig(config.ModeServer), svc, false},
		{"nil service", testConfig(config.ModeStdio), nil, true},
		{"nil config", nil, svc, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server, err := NewServer(tt.config, tt.service)
			if tt.expectError {
				if err == nil {
					t.Error("expected error but got none")
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if server.mcpServer == nil {
				t.Error("mcpServer should be initialized")
			}
			if server.service != tt.service {
				t.Error("service not set correctly")
			}
		})
	}
}

func TestServer_HandleSetFieldAndGetRecord(t *testing.T) {
	server := newTestServer(t)
	ctx := context.Background()

	result, err := server.handleSetField(ctx, callRequest(map[string]interface{}{
		"field": "name",
		"value": "Raj Kumar",
	}))
	if err != nil {
		t.Fatalf("handler failed: %v", err)
	}
	if result.IsError {
		t.Fatalf("unexpected tool error: %s", extractTextFromResult(result))
	}

	result, _ = server.handleGetRecord(ctx, callRequest(nil))
	text := extractTextFromResult(result)
	if !strings.Contains(text, "Raj Kumar") {
		t.Errorf("record should contain the name, got: %s", text)
	}
	if !strings.Contains(text, "Photo: none") {
		t.Errorf("record should report the missing photo, got: %s", text)
	}

	result, _ = server.handleSetField(ctx, callRequest(map[string]interface{}{
		"field": "shoeSize",
		"value": "9",
	}))
	if !result.IsError {
		t.Error("unknown field should be a tool error")
	}

	result, _ = server.handleSetField(ctx, callRequest(map[string]interface{}{"field": "name"}))
	if !result.IsError {
		t.Error("missing value should be a tool error")
	}
}

func TestServer_HandleTemplates(t *testing.T) {
	server := newTestServer(t)
	ctx := context.Background()

	result, _ := server.handleListTemplates(ctx, callRequest(nil))
	text := extractTextFromResult(result)
	if !strings.Contains(text, "Classic Golden") {
		t.Errorf("template list should include Classic Golden, got: %s", text)
	}

	result, _ = server.handleSelectTemplate(ctx, callRequest(map[string]interface{}{"template_id": "floral"}))
	if result.IsError {
		t.Fatalf("unexpected tool error: %s", extractTextFromResult(result))
	}

	result, _ = server.handleSelectTemplate(ctx, callRequest(map[string]interface{}{"template_id": "royal"}))
	if !result.IsError {
		t.Error("second template selection should fail")
	}

	result, _ = server.handleListTemplates(ctx, callRequest(nil))
	if !strings.Contains(extractTextFromResult(result), "selected") {
		t.Error("template list should mark the selected template")
	}
}

func TestServer_HandleSetPhoto(t *testing.T) {
	server := newTestServer(t)
	ctx := context.Background()

	path := filepath.Join(t.TempDir(), "me.png")
	if err := os.WriteFile(path, pngBytes(t, 40, 40), 0o644); err != nil {
		t.Fatalf("failed to write photo: %v", err)
	}

	tests := []struct {
		name      string
		args      map[string]interface{}
		wantError bool
	}{
		{"no source", map[string]interface{}{}, true},
		{"both sources", map[string]interface{}{"path": path, "data_url": "data:image/png;base64,AA=="}, true},
		{"missing file", map[string]interface{}{"path": path + ".missing"}, true},
		{"bad data url", map[string]interface{}{"data_url": "data:image/png;base64,!!"}, true},
		{"valid file", map[string]interface{}{"path": path}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result, err := server.handleSetPhoto(ctx, callRequest(tt.args))
			if err != nil {
				t.Fatalf("handler failed: %v", err)
			}
			if result.IsError != tt.wantError {
				t.Errorf("IsError = %v, want %v: %s", result.IsError, tt.wantError, extractTextFromResult(result))
			}
		})
	}

	result, _ := server.handleCropPhoto(ctx, callRequest(map[string]interface{}{
		"x": 0.0, "y": 0.0, "width": 20.0, "height": 20.0,
		"output_width": 30.0, "output_height": 40.0,
	}))
	if result.IsError {
		t.Fatalf("crop failed: %s", extractTextFromResult(result))
	}
	if !strings.Contains(extractTextFromResult(result), "30x40") {
		t.Errorf("unexpected crop result: %s", extractTextFromResult(result))
	}

	result, _ = server.handleCropPhoto(ctx, callRequest(map[string]interface{}{"x": 0.0}))
	if !result.IsError {
		t.Error("crop without a full region should fail")
	}

	result, _ = server.handleRemovePhoto(ctx, callRequest(nil))
	if result.IsError {
		t.Error("remove photo should succeed")
	}
}

func TestServer_HandlePreview(t *testing.T) {
	server := newTestServer(t)
	ctx := context.Background()

	result, _ := server.handlePreview(ctx, callRequest(nil))
	text := extractTextFromResult(result)
	for _, want := range []string{"Your Name", "PERSONAL DETAILS", "CONTACT INFORMATION", "PREVIEW"} {
		if !strings.Contains(text, want) {
			t.Errorf("preview should contain %q, got: %s", want, text)
		}
	}
	if strings.Contains(text, "FAMILY DETAILS") {
		t.Error("empty optional sections should be omitted")
	}
}

func TestServer_HandleExport(t *testing.T) {
	server := newTestServer(t)
	ctx := context.Background()

	if _, err := server.handleSetField(ctx, callRequest(map[string]interface{}{"field": "name", "value": "Anita Devi"})); err != nil {
		t.Fatalf("set field failed: %v", err)
	}

	result, err := server.handleExport(ctx, callRequest(map[string]interface{}{"format": "Letter", "layout": "fit"}))
	if err != nil {
		t.Fatalf("handler failed: %v", err)
	}
	text := extractTextFromResult(result)
	if result.IsError {
		t.Fatalf("export failed: %s", text)
	}
	if !strings.Contains(text, "Anita_Devi_Biodata_2026-10-18.pdf") {
		t.Errorf("export result should name the file, got: %s", text)
	}
	if !strings.Contains(text, "Pages: 1") {
		t.Errorf("fit layout should produce one page, got: %s", text)
	}

	result, _ = server.handleExport(ctx, callRequest(map[string]interface{}{"orientation": "diagonal"}))
	if !result.IsError {
		t.Error("invalid orientation should be a tool error")
	}
	if !strings.Contains(extractTextFromResult(result), "Failed to generate PDF") {
		t.Errorf("unexpected error text: %s", extractTextFromResult(result))
	}

	result, _ = server.handleExportStats(ctx, callRequest(nil))
	text = extractTextFromResult(result)
	if !strings.Contains(text, "Total PDF files: 1") {
		t.Errorf("stats should count the export, got: %s", text)
	}
	if !strings.Contains(text, "Last export failed") {
		t.Errorf("stats should report the last failure, got: %s", text)
	}
}

func TestServer_HandleServerInfo(t *testing.T) {
	server := newTestServer(t)

	result, _ := server.handleServerInfo(context.Background(), callRequest(nil))
	text := extractTextFromResult(result)
	for _, want := range []string{"test-server v1.0.0", "/exports", "biodata_export", "image/webp", "Usage Guide"} {
		if !strings.Contains(text, want) {
			t.Errorf("server info should contain %q", want)
		}
	}
}

func TestServer_HandleClear(t *testing.T) {
	server := newTestServer(t)
	ctx := context.Background()

	_, _ = server.handleSetField(ctx, callRequest(map[string]interface{}{"field": "email", "value": "a@b.c"}))
	result, _ := server.handleClear(ctx, callRequest(nil))
	if result.IsError {
		t.Fatalf("clear failed: %s", extractTextFromResult(result))
	}
	if !server.service.Record().IsEmpty() {
		t.Error("record should be empty after clear")
	}
}

// extractTextFromResult returns the first text content of a result
func extractTextFromResult(result *mcp.CallToolResult) string {
	if result == nil || len(result.Content) == 0 {
		return ""
	}

	for _, content := range result.Content {
		if textContent, ok := content.(mcp.TextContent); ok {
			return textContent.Text
		}
		if textContentPtr, ok := content.(*mcp.TextContent); ok {
			return textContentPtr.Text
		}
	}

	return ""
}
