// Package httpapi exposes a biodata session over HTTP
package httpapi

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"mime"
	"net/http"
	"os"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/a3tai/mcp-biodata/internal/biodata"
	bderrors "github.com/a3tai/mcp-biodata/internal/biodata/errors"
	"github.com/a3tai/mcp-biodata/internal/biodata/model"
	"github.com/a3tai/mcp-biodata/internal/biodata/photo"
)

const (
	maxJSONBodySize   = 1 << 20
	multipartOverhead = 1 << 20
)

// Deps holds the dependencies of the HTTP API
type Deps struct {
	Service      *biodata.Service
	MaxImageSize int64
	// SSE and Message serve the MCP transport when set
	SSE     http.Handler
	Message http.Handler
	Logger  *log.Logger
}

// NewHandler builds the router for a session
func NewHandler(deps Deps) http.Handler {
	if deps.MaxImageSize <= 0 {
		deps.MaxImageSize = photo.DefaultMaxSize
	}
	if deps.Logger == nil {
		deps.Logger = log.New(os.Stderr, "[HTTP] ", log.LstdFlags)
	}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)

	r.Get("/health", handleHealth)
	r.Get("/templates", handleListTemplates(deps))
	r.Put("/template", handleSelectTemplate(deps))
	r.Get("/record", handleGetRecord(deps))
	r.Patch("/record", handlePatchRecord(deps))
	r.Delete("/record", handleClearRecord(deps))
	r.Post("/photo", handleUploadPhoto(deps))
	r.Post("/photo/crop", handleCropPhoto(deps))
	r.Delete("/photo", handleRemovePhoto(deps))
	r.Get("/preview", handlePreview(deps))
	r.Post("/export", handleExport(deps))

	if deps.SSE != nil {
		r.Handle("/sse", deps.SSE)
	}
	if deps.Message != nil {
		r.Handle("/message", deps.Message)
	}

	return r
}

func handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

type templatesResponse struct {
	Templates []model.Template `json:"templates"`
	Selected  string           `json:"selected"`
	Chosen    bool             `json:"chosen"`
}

func handleListTemplates(deps Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, _ *http.Request) {
		current, chosen := deps.Service.Template()
		writeJSON(w, http.StatusOK, templatesResponse{
			Templates: deps.Service.Templates(),
			Selected:  current.ID,
			Chosen:    chosen,
		})
	}
}

type selectTemplateRequest struct {
	ID string `json:"id"`
}

func handleSelectTemplate(deps Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req selectTemplateRequest
		if !decodeBody(w, r, &req) {
			return
		}
		if req.ID == "" {
			httpError(w, http.StatusBadRequest, "invalid_request_error", "id is required")
			return
		}

		t, err := deps.Service.SelectTemplate(r.Context(), req.ID)
		if errors.Is(err, biodata.ErrTemplateAlreadySelected) {
			httpError(w, http.StatusConflict, "conflict_error", "%v", err)
			return
		}
		if err != nil {
			httpError(w, statusFor(err), "invalid_request_error", "%v", err)
			return
		}
		writeJSON(w, http.StatusOK, t)
	}
}

func handleGetRecord(deps Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, deps.Service.Record())
	}
}

func handlePatchRecord(deps Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var fields map[string]string
		if !decodeBody(w, r, &fields) {
			return
		}
		if len(fields) == 0 {
			httpError(w, http.StatusBadRequest, "invalid_request_error", "at least one field is required")
			return
		}

		rec, err := deps.Service.SetFields(fields)
		if err != nil {
			httpError(w, statusFor(err), "invalid_request_error", "%v", err)
			return
		}
		writeJSON(w, http.StatusOK, rec)
	}
}

func handleClearRecord(deps Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := deps.Service.Clear(r.Context()); err != nil {
			// the in-memory record is already cleared
			deps.Logger.Printf("clear: %v", err)
		}
		w.WriteHeader(http.StatusNoContent)
	}
}

func handleUploadPhoto(deps Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		r.Body = http.MaxBytesReader(w, r.Body, deps.MaxImageSize+multipartOverhead)
		defer r.Body.Close()

		file, header, err := r.FormFile("photo")
		if err != nil {
			var tooLarge *http.MaxBytesError
			if errors.As(err, &tooLarge) {
				httpError(w, http.StatusRequestEntityTooLarge, "invalid_request_error",
					"file size must be at most %dMB", deps.MaxImageSize/(1024*1024))
				return
			}
			httpError(w, http.StatusBadRequest, "invalid_request_error", "photo file is required: %v", err)
			return
		}
		defer file.Close()

		fd := photo.FileDescriptor{
			Name:     header.Filename,
			Size:     header.Size,
			MIMEType: header.Header.Get("Content-Type"),
		}
		if fd.MIMEType == "application/octet-stream" {
			// generic part type; sniff the content instead
			fd.MIMEType = ""
		}
		if err := deps.Service.SetPhoto(r.Context(), fd, file); err != nil {
			httpError(w, statusFor(err), "invalid_request_error", "%v", err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}

func handleCropPhoto(deps Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req biodata.CropRequest
		if !decodeBody(w, r, &req) {
			return
		}
		if err := deps.Service.CropPhoto(req); err != nil {
			httpError(w, statusFor(err), "invalid_request_error", "%v", err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}

func handleRemovePhoto(deps Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, _ *http.Request) {
		deps.Service.RemovePhoto()
		w.WriteHeader(http.StatusNoContent)
	}
}

func handlePreview(deps Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, deps.Service.Preview())
	}
}

func handleExport(deps Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var opts model.Options
		if !decodeBody(w, r, &opts) {
			return
		}

		res := deps.Service.Export(r.Context(), opts)
		if !res.Success {
			status := http.StatusUnprocessableEntity
			if res.Code == string(bderrors.CodeInProgress) {
				status = http.StatusConflict
			}
			httpError(w, status, "export_error", "%s", res.Error)
			return
		}

		w.Header().Set("Content-Type", "application/pdf")
		w.Header().Set("Content-Disposition", mime.FormatMediaType("attachment", map[string]string{"filename": res.Filename}))
		w.Header().Set("Content-Length", strconv.Itoa(len(res.Data)))
		w.Header().Set("X-Export-Id", res.ID)
		w.Header().Set("X-Export-Pages", strconv.Itoa(res.Pages))
		w.WriteHeader(http.StatusOK)
		if _, err := w.Write(res.Data); err != nil {
			deps.Logger.Printf("writing export %s: %v", res.ID, err)
		}
	}
}

// statusFor maps a pipeline error to an HTTP status
func statusFor(err error) int {
	switch {
	case errors.Is(err, bderrors.ErrTooLarge):
		return http.StatusRequestEntityTooLarge
	case errors.Is(err, bderrors.ErrUnsupportedFormat):
		return http.StatusUnsupportedMediaType
	case errors.Is(err, bderrors.ErrCaptureInProgress):
		return http.StatusConflict
	}
	switch bderrors.KindOf(err) {
	case bderrors.KindValidation, bderrors.KindDecode, bderrors.KindCrop, bderrors.KindResize:
		return http.StatusBadRequest
	}
	return http.StatusInternalServerError
}

// decodeBody decodes a size-limited JSON body, writing the error response
// itself when decoding fails
func decodeBody(w http.ResponseWriter, r *http.Request, dst any) bool {
	r.Body = http.MaxBytesReader(w, r.Body, maxJSONBodySize)
	defer r.Body.Close()

	if err := json.NewDecoder(r.Body).Decode(dst); err != nil && !errors.Is(err, io.EOF) {
		httpError(w, http.StatusBadRequest, "invalid_request_error", "invalid request body: %v", err)
		return false
	}
	return true
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

func httpError(w http.ResponseWriter, code int, errType string, format string, args ...any) {
	writeJSON(w, code, map[string]any{
		"error": map[string]any{
			"message": fmt.Sprintf(format, args...),
			"type":    errType,
		},
	})
}
