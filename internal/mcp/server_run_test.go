package mcp

import (
	"bytes"
	"context"
	"image"
	"image/png"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/a3tai/mcp-biodata/internal/config"
)

func pngBytes(t *testing.T, w, h int) []byte {
	t.Helper()
	var buf bytes.Buffer
	if err := png.Encode(&buf, image.NewRGBA(image.Rect(0, 0, w, h))); err != nil {
		t.Fatalf("failed to encode png: %v", err)
	}
	return buf.Bytes()
}

func TestServer_Run_ServerMode(t *testing.T) {
	server, err := NewServer(testConfig(config.ModeServer), newTestService(t))
	if err != nil {
		t.Fatalf("NewServer() error = %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		done <- server.Run(ctx)
	}()

	time.Sleep(50 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		if err != nil {
			t.Errorf("Run() error = %v, want nil after cancellation", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("server did not shut down after cancellation")
	}
}

func TestServer_Run_ServerModeListenError(t *testing.T) {
	cfg := testConfig(config.ModeServer)
	cfg.Host = "256.256.256.256"

	server, err := NewServer(cfg, newTestService(t))
	if err != nil {
		t.Fatalf("NewServer() error = %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := server.Run(ctx); err == nil {
		t.Error("Run() should fail for an unusable address")
	}
}

func TestServer_Handler(t *testing.T) {
	server, err := NewServer(testConfig(config.ModeServer), newTestService(t))
	if err != nil {
		t.Fatalf("NewServer() error = %v", err)
	}
	handler := server.Handler()

	tests := []struct {
		name   string
		method string
		path   string
		want   int
	}{
		{"health", http.MethodGet, "/health", http.StatusOK},
		{"templates", http.MethodGet, "/templates", http.StatusOK},
		{"record", http.MethodGet, "/record", http.StatusOK},
		{"message without session", http.MethodPost, "/message", http.StatusBadRequest},
		{"unknown route", http.MethodGet, "/nope", http.StatusNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			handler.ServeHTTP(rec, httptest.NewRequest(tt.method, tt.path, nil))
			if rec.Code != tt.want {
				t.Errorf("%s %s = %d, want %d", tt.method, tt.path, rec.Code, tt.want)
			}
		})
	}
}
