package api

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/starford/layerline/internal/apperr"
	"github.com/starford/layerline/internal/index"
	"github.com/starford/layerline/internal/layerservice"
	"github.com/starford/layerline/internal/models"
)

// Handler holds API route handlers.
type Handler struct {
	svc  *layerservice.Service
	axis layerservice.AxisDefaults
}

// NewHandler creates a new Handler.
func NewHandler(svc *layerservice.Service, axis layerservice.AxisDefaults) *Handler {
	return &Handler{svc: svc, axis: axis}
}

// ListLayers handles GET /api/layers.
//
//	@Summary		List layers with optional pagination and filtering
//	@Tags			layers
//	@Produce		json
//	@Param			limit	query		int		false	"Page size"
//	@Param			offset	query		int		false	"Page offset"
//	@Param			visible	query		bool	false	"Filter by visibility"
//	@Param			sort	query		string	false	"Sort field"	Enums(id, title, start, updated)
//	@Success		200		{object}	LayerListResponse
//	@Security		BearerAuth
//	@Router			/layers [get]
func (h *Handler) ListLayers(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	lq := index.ListQuery{Sort: q.Get("sort")}
	lq.Limit, _ = strconv.Atoi(q.Get("limit"))
	lq.Offset, _ = strconv.Atoi(q.Get("offset"))
	if s := q.Get("visible"); s != "" {
		v, err := strconv.ParseBool(s)
		if err != nil {
			writeJSON(w, http.StatusBadRequest, errorBody("visible must be a boolean"))
			return
		}
		lq.Visible = &v
	}

	rows, total, err := h.svc.ListLayers(r.Context(), lq)
	if err != nil {
		writeError(w, err, "list layers")
		return
	}
	writeJSON(w, http.StatusOK, LayerListResponse{Layers: rows, Total: total})
}

// GetLayer handles GET /api/layers/{id}.
//
//	@Summary		Get a single layer
//	@Tags			layers
//	@Produce		json
//	@Param			id	path		string	true	"Layer id"
//	@Success		200	{object}	LayerDetail
//	@Failure		404	{object}	errResponse
//	@Security		BearerAuth
//	@Router			/layers/{id} [get]
func (h *Handler) GetLayer(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	row, err := h.svc.GetLayer(r.Context(), id)
	if err != nil {
		writeError(w, err, "get layer", slog.String("layer", id))
		return
	}
	w.Header().Set("ETag", strconv.Quote(row.Checksum))
	writeJSON(w, http.StatusOK, row)
}

// CreateLayer handles POST /api/layers.
//
//	@Summary		Create a new layer definition
//	@Tags			layers
//	@Accept			json
//	@Produce		json
//	@Param			body	body		LayerRequest	true	"Layer to create"
//	@Success		201		{object}	LayerDetail
//	@Failure		400		{object}	errResponse
//	@Failure		409		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/layers [post]
func (h *Handler) CreateLayer(w http.ResponseWriter, r *http.Request) {
	l, ok := decodeLayer(w, r, "")
	if !ok {
		return
	}
	row, err := h.svc.CreateLayer(r.Context(), l)
	if err != nil {
		writeError(w, err, "create layer", slog.String("layer", l.ID))
		return
	}
	w.Header().Set("ETag", strconv.Quote(row.Checksum))
	writeJSON(w, http.StatusCreated, row)
}

// UpdateLayer handles PUT /api/layers/{id}.
//
//	@Summary		Update a layer with optimistic concurrency
//	@Tags			layers
//	@Accept			json
//	@Produce		json
//	@Param			id			path		string			true	"Layer id"
//	@Param			If-Match	header		string			false	"SHA-256 checksum of the definition file"
//	@Param			body		body		LayerRequest	true	"Updated layer"
//	@Success		200			{object}	LayerDetail
//	@Failure		400			{object}	errResponse
//	@Failure		404			{object}	errResponse
//	@Failure		409			{object}	errResponse
//	@Security		BearerAuth
//	@Router			/layers/{id} [put]
func (h *Handler) UpdateLayer(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	l, ok := decodeLayer(w, r, id)
	if !ok {
		return
	}

	// Strip surrounding quotes if present (standard ETag format).
	ifMatch := strings.Trim(r.Header.Get("If-Match"), `"`)

	row, err := h.svc.UpdateLayer(r.Context(), id, l, ifMatch)
	if err != nil {
		writeError(w, err, "update layer", slog.String("layer", id))
		return
	}
	w.Header().Set("ETag", strconv.Quote(row.Checksum))
	writeJSON(w, http.StatusOK, row)
}

// DeleteLayer handles DELETE /api/layers/{id}.
//
//	@Summary		Delete a layer
//	@Tags			layers
//	@Param			id	path	string	true	"Layer id"
//	@Success		204	"Layer deleted"
//	@Failure		404	{object}	errResponse
//	@Security		BearerAuth
//	@Router			/layers/{id} [delete]
func (h *Handler) DeleteLayer(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if err := h.svc.DeleteLayer(r.Context(), id); err != nil {
		writeError(w, err, "delete layer", slog.String("layer", id))
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// LayerCoverage handles GET /api/layers/{id}/coverage.
//
//	@Summary		Coverage lines of one layer for an axis window
//	@Tags			coverage
//	@Produce		json
//	@Param			id			path		string	true	"Layer id"
//	@Param			front		query		string	true	"Axis boundary (ISO-8601)"
//	@Param			back		query		string	true	"Axis boundary (ISO-8601)"
//	@Param			now			query		string	false	"Current time, defaults to the server clock"
//	@Param			width		query		number	false	"Axis width in pixels"
//	@Param			zoom		query		string	false	"Zoom unit"	Enums(year, month, day, hour, minute)
//	@Param			position	query		number	false	"Axis pan position"
//	@Param			transform	query		number	false	"Axis drag transform"
//	@Success		200			{object}	timeline.LayerCoverage
//	@Failure		400			{object}	errResponse
//	@Failure		404			{object}	errResponse
//	@Security		BearerAuth
//	@Router			/layers/{id}/coverage [get]
func (h *Handler) LayerCoverage(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	axis, err := layerservice.ParseAxis(r.URL.Query(), h.axis)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody(err.Error()))
		return
	}
	cov, err := h.svc.Coverage(r.Context(), id, axis)
	if err != nil {
		writeError(w, err, "layer coverage", slog.String("layer", id))
		return
	}
	writeJSON(w, http.StatusOK, cov)
}

// Coverage handles GET /api/coverage.
//
//	@Summary		Coverage lines of several layers for an axis window
//	@Tags			coverage
//	@Produce		json
//	@Param			layers	query		string	false	"Comma-separated layer ids, all layers when omitted"
//	@Param			front	query		string	true	"Axis boundary (ISO-8601)"
//	@Param			back	query		string	true	"Axis boundary (ISO-8601)"
//	@Success		200		{object}	CoverageResponse
//	@Failure		400		{object}	errResponse
//	@Failure		404		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/coverage [get]
func (h *Handler) Coverage(w http.ResponseWriter, r *http.Request) {
	axis, err := layerservice.ParseAxis(r.URL.Query(), h.axis)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody(err.Error()))
		return
	}
	var ids []string
	for _, id := range strings.Split(r.URL.Query().Get("layers"), ",") {
		if id = strings.TrimSpace(id); id != "" {
			ids = append(ids, id)
		}
	}
	layers, err := h.svc.CoverageAll(r.Context(), ids, axis)
	if err != nil {
		writeError(w, err, "coverage")
		return
	}
	writeJSON(w, http.StatusOK, CoverageResponse{Layers: layers})
}

// Search handles GET /api/search.
//
//	@Summary		Search layers by id, title and subtitle
//	@Tags			search
//	@Produce		json
//	@Param			q		query		string	true	"Search query"
//	@Param			limit	query		int		false	"Max results"
//	@Success		200		{object}	SearchResponse
//	@Failure		400		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/search [get]
func (h *Handler) Search(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query().Get("q")
	if q == "" {
		writeJSON(w, http.StatusBadRequest, errorBody("query parameter 'q' is required"))
		return
	}
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	results, err := h.svc.Search(r.Context(), q, limit)
	if err != nil {
		writeError(w, err, "search", slog.String("query", q))
		return
	}
	writeJSON(w, http.StatusOK, SearchResponse{Results: results})
}

// decodeLayer reads and validates a LayerRequest. When id is set it fills
// an empty body id. It writes the error response itself.
func decodeLayer(w http.ResponseWriter, r *http.Request, id string) (*models.Layer, bool) {
	r.Body = http.MaxBytesReader(w, r.Body, 1<<20)
	var req LayerRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody("invalid JSON body"))
		return nil, false
	}
	if req.ID == "" {
		req.ID = id
	}
	def := req.definition()
	if err := def.Validate(); err != nil {
		writeError(w, fmt.Errorf("%w: %v", apperr.ErrInvalid, err), "decode layer")
		return nil, false
	}
	return def.Layer(), true
}
