package http

import (
	"encoding/json"
	"errors"
	"log/slog"
	"mime"
	"net/http"
	"strconv"

	"github.com/Zereker/cvstore/internal/action"
	"github.com/Zereker/cvstore/internal/domain"
	"github.com/Zereker/cvstore/pkg/log"
	"github.com/Zereker/cvstore/pkg/result"
)

// multipart 表单在内存中保留的最大字节数，超出部分写临时文件
const maxMultipartMemory = 32 << 20

// Handler handles HTTP API requests
type Handler struct {
	logger *slog.Logger
	files  *action.Files
}

// NewHandler creates a new HTTP handler
func NewHandler(files *action.Files) *Handler {
	return &Handler{
		logger: log.Logger("http.handler"),
		files:  files,
	}
}

// Response represents a standard API response
type Response struct {
	Success bool   `json:"success"`
	Data    any    `json:"data,omitempty"`
	Error   string `json:"error,omitempty"`
}

// RegisterRoutes registers all HTTP routes
func (h *Handler) RegisterRoutes(mux *http.ServeMux) {
	// File operations
	mux.HandleFunc("POST /api/v1/files", h.Upload)
	mux.HandleFunc("GET /api/v1/files", h.List)
	mux.HandleFunc("GET /api/v1/files/search", h.Search)
	mux.HandleFunc("GET /api/v1/files/{id}", h.Get)
	mux.HandleFunc("GET /api/v1/files/{id}/download", h.Download)
	mux.HandleFunc("DELETE /api/v1/files/{id}", h.Delete)

	// Health check
	mux.HandleFunc("GET /health", h.Health)
	mux.HandleFunc("GET /api/v1/health", h.Health)
}

// Upload handles POST /api/v1/files (multipart, field "files")
func (h *Handler) Upload(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseMultipartForm(maxMultipartMemory); err != nil {
		h.writeError(w, http.StatusBadRequest, "invalid multipart form: "+err.Error())
		return
	}
	defer func() {
		_ = r.MultipartForm.RemoveAll()
	}()

	headers := r.MultipartForm.File["files"]
	req := domain.UploadRequest{
		Files:          make([]domain.UploadFile, 0, len(headers)),
		AcceptLanguage: r.Header.Get("Accept-Language"),
	}

	for _, fh := range headers {
		file, err := fh.Open()
		if err != nil {
			h.writeError(w, http.StatusBadRequest, "unable to open file '"+fh.Filename+"'")
			return
		}
		defer file.Close()

		req.Files = append(req.Files, domain.UploadFile{Name: fh.Filename, Size: fh.Size, Reader: file})
	}

	saved, err := h.files.Upload(r.Context(), &req)
	if err != nil {
		h.fail(w, "upload failed", err)
		return
	}

	h.writeJSON(w, http.StatusOK, Response{
		Success: true,
		Data:    saved,
	})
}

// List handles GET /api/v1/files?limit&cursor
func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	limit, ok := h.intParam(w, r, "limit")
	if !ok {
		return
	}

	page, err := h.files.List(r.Context(), domain.ListRequest{
		Limit:  limit,
		Cursor: r.URL.Query().Get("cursor"),
	})
	if err != nil {
		h.fail(w, "list failed", err)
		return
	}

	h.writeJSON(w, http.StatusOK, Response{
		Success: true,
		Data:    page,
	})
}

// Search handles GET /api/v1/files/search?query&limit
func (h *Handler) Search(w http.ResponseWriter, r *http.Request) {
	limit, ok := h.intParam(w, r, "limit")
	if !ok {
		return
	}

	hits, err := h.files.Search(r.Context(), domain.SearchRequest{
		Query: r.URL.Query().Get("query"),
		Limit: limit,
	})
	if err != nil {
		h.fail(w, "search failed", err)
		return
	}

	h.writeJSON(w, http.StatusOK, Response{
		Success: true,
		Data:    hits,
	})
}

// Get handles GET /api/v1/files/{id}
func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	doc, err := h.files.Get(r.Context(), r.PathValue("id"))
	if err != nil {
		h.fail(w, "get failed", err)
		return
	}

	h.writeJSON(w, http.StatusOK, Response{
		Success: true,
		Data:    doc,
	})
}

// Download handles GET /api/v1/files/{id}/download
func (h *Handler) Download(w http.ResponseWriter, r *http.Request) {
	dl, err := h.files.Download(r.Context(), r.PathValue("id"))
	if err != nil {
		h.fail(w, "download failed", err)
		return
	}

	w.Header().Set("Content-Type", dl.ContentType)
	w.Header().Set("Content-Length", strconv.Itoa(len(dl.Data)))
	w.Header().Set("Content-Disposition", mime.FormatMediaType("attachment", map[string]string{"filename": dl.FileName}))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(dl.Data)
}

// Delete handles DELETE /api/v1/files/{id}
func (h *Handler) Delete(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if err := h.files.Delete(r.Context(), id); err != nil {
		h.fail(w, "delete failed", err)
		return
	}

	h.writeJSON(w, http.StatusOK, Response{
		Success: true,
		Data:    map[string]string{"deleted": id},
	})
}

// Health handles GET /health
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	h.writeJSON(w, http.StatusOK, Response{
		Success: true,
		Data: map[string]string{
			"status": "healthy",
		},
	})
}

func (h *Handler) intParam(w http.ResponseWriter, r *http.Request, name string) (int, bool) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return 0, true
	}

	v, err := strconv.Atoi(raw)
	if err != nil || v < 0 {
		h.writeError(w, http.StatusBadRequest, name+" must be a non-negative integer")
		return 0, false
	}
	return v, true
}

// fail maps err to a status code. Only messages of result.Failure reach the client.
func (h *Handler) fail(w http.ResponseWriter, msg string, err error) {
	status := statusOf(err)
	if status == http.StatusInternalServerError {
		h.logger.Error(msg, "error", err)
	} else {
		h.logger.Warn(msg, "error", err)
	}

	message := http.StatusText(http.StatusInternalServerError)
	var f *result.Failure
	if errors.As(err, &f) {
		message = f.Message
	}
	h.writeError(w, status, message)
}

func statusOf(err error) int {
	switch {
	case errors.Is(err, result.ErrValidation), errors.Is(err, result.ErrExtraction):
		return http.StatusBadRequest
	case errors.Is(err, result.ErrNotFound):
		return http.StatusNotFound
	default:
		return http.StatusInternalServerError
	}
}

// writeJSON writes a JSON response
func (h *Handler) writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

// writeError writes an error response
func (h *Handler) writeError(w http.ResponseWriter, status int, message string) {
	h.writeJSON(w, status, Response{
		Success: false,
		Error:   message,
	})
}
