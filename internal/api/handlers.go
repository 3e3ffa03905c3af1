package api

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/starford/ansuz/internal/apperr"
	"github.com/starford/ansuz/internal/registry"
	"github.com/starford/ansuz/internal/siteservice"
)

// Handler holds API route handlers.
type Handler struct {
	svc *siteservice.Service
}

// NewHandler creates a new Handler.
func NewHandler(svc *siteservice.Service) *Handler {
	return &Handler{svc: svc}
}

// PostListResponse wraps paginated post listings.
type PostListResponse struct {
	Posts []siteservice.PostListItem `json:"posts"`
	Total int                        `json:"total"`
}

// NameCountResponse wraps tag or category listings.
type NameCountResponse struct {
	Items []registry.NameCount `json:"items"`
}

// ListPosts handles GET /api/posts with optional tag/category filter and
// limit/offset pagination.
func (h *Handler) ListPosts(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	limit, _ := strconv.Atoi(q.Get("limit"))
	offset, _ := strconv.Atoi(q.Get("offset"))

	items, total, err := h.svc.ListPosts(r.Context(), q.Get("tag"), q.Get("category"), limit, offset)
	if err != nil {
		h.writeServiceError(w, err, "list posts failed")
		return
	}
	writeJSON(w, http.StatusOK, PostListResponse{Posts: items, Total: total})
}

// GetPost handles GET /api/posts/{slug}. With ?render=html the response
// includes the goldmark-rendered body.
func (h *Handler) GetPost(w http.ResponseWriter, r *http.Request) {
	slug := chi.URLParam(r, "slug")
	if slug == "" {
		writeJSON(w, http.StatusBadRequest, errorBody("slug is required"))
		return
	}
	renderHTML := r.URL.Query().Get("render") == "html"

	detail, err := h.svc.GetPost(r.Context(), slug, renderHTML)
	if err != nil {
		if errors.Is(err, apperr.ErrNotFound) {
			writeJSON(w, http.StatusNotFound, errorBody("not found"))
			return
		}
		h.writeServiceError(w, err, "get post failed")
		return
	}
	writeJSON(w, http.StatusOK, detail)
}

// Tags handles GET /api/tags.
func (h *Handler) Tags(w http.ResponseWriter, r *http.Request) {
	items, err := h.svc.Tags(r.Context())
	if err != nil {
		h.writeServiceError(w, err, "list tags failed")
		return
	}
	writeJSON(w, http.StatusOK, NameCountResponse{Items: items})
}

// Categories handles GET /api/categories.
func (h *Handler) Categories(w http.ResponseWriter, r *http.Request) {
	items, err := h.svc.Categories(r.Context())
	if err != nil {
		h.writeServiceError(w, err, "list categories failed")
		return
	}
	writeJSON(w, http.StatusOK, NameCountResponse{Items: items})
}

// Rebuild handles POST /api/rebuild: a forced wholesale rebuild. Build
// failures return 422 with the full per-document error list so the caller
// can fix every offending source at once.
func (h *Handler) Rebuild(w http.ResponseWriter, r *http.Request) {
	reg, err := h.svc.Rebuild(r.Context())
	if err != nil {
		var berr *registry.BuildError
		if errors.As(err, &berr) {
			writeJSON(w, http.StatusUnprocessableEntity, buildErrorBody(berr))
			return
		}
		slog.Error("rebuild failed", slog.String("error", err.Error()))
		writeJSON(w, http.StatusInternalServerError, errorBody("internal error"))
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"posts":       reg.Len(),
		"fingerprint": h.svc.Fingerprint(),
	})
}

// BuildErrorResponse reports every failure of an attempted rebuild.
type BuildErrorResponse struct {
	Errors     []string `json:"errors"`
	Duplicates []string `json:"duplicates,omitempty"`
}

func buildErrorBody(berr *registry.BuildError) BuildErrorResponse {
	resp := BuildErrorResponse{Errors: []string{}}
	for _, d := range berr.Documents {
		resp.Errors = append(resp.Errors, d.Error())
	}
	for _, d := range berr.Duplicates {
		resp.Duplicates = append(resp.Duplicates, d.Error())
	}
	return resp
}

func (h *Handler) writeServiceError(w http.ResponseWriter, err error, msg string) {
	if errors.Is(err, apperr.ErrNotBuilt) {
		writeJSON(w, http.StatusServiceUnavailable, errorBody("registry not built yet"))
		return
	}
	slog.Error(msg, slog.String("error", err.Error()))
	writeJSON(w, http.StatusInternalServerError, errorBody("internal error"))
}
