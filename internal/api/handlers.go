package api

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/starford/vantage/internal/apperr"
	"github.com/starford/vantage/internal/board"
	"github.com/starford/vantage/internal/graph"
	"github.com/starford/vantage/internal/models"
)

// Handler holds board route handlers.
type Handler struct {
	boards *board.Service
}

// NewHandler creates a new Handler.
func NewHandler(boards *board.Service) *Handler {
	return &Handler{boards: boards}
}

// ListNodes handles GET /api/nodes.
func (h *Handler) ListNodes(w http.ResponseWriter, r *http.Request) {
	snap, err := h.boards.Board(r.Context())
	if err != nil {
		slog.Error("list nodes failed", slog.String("error", err.Error()))
		writeJSON(w, http.StatusInternalServerError, errorBody("internal error"))
		return
	}
	writeJSON(w, http.StatusOK, NodeListResponse{Nodes: snap.Nodes})
}

// CreateNode handles POST /api/nodes.
func (h *Handler) CreateNode(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, 1<<20)
	var req CreateNodeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody("invalid JSON body"))
		return
	}
	if req.Title == "" || req.Type == "" {
		writeJSON(w, http.StatusBadRequest, errorBody("title and type are required"))
		return
	}
	if !models.ValidNodeType(models.NodeType(req.Type)) {
		writeJSON(w, http.StatusBadRequest, errorBody("unknown node type: "+req.Type))
		return
	}

	in := board.CreateNodeInput{
		Title:    req.Title,
		Type:     models.NodeType(req.Type),
		ParentID: req.ParentID,
	}
	if req.Data != nil {
		in.Data = *req.Data
	}
	if req.X != nil && req.Y != nil {
		in.Position = &models.Point{X: *req.X, Y: *req.Y}
	}

	node, err := h.boards.CreateNode(r.Context(), in)
	if err != nil {
		slog.Error("create node failed", slog.String("title", req.Title), slog.String("error", err.Error()))
		writeJSON(w, http.StatusInternalServerError, errorBody("internal error"))
		return
	}
	writeJSON(w, http.StatusCreated, node)
}

// GetNode handles GET /api/nodes/{id}.
func (h *Handler) GetNode(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	node, err := h.boards.GetNode(r.Context(), id)
	if err != nil {
		if errors.Is(err, apperr.ErrNotFound) {
			writeJSON(w, http.StatusNotFound, errorBody("not found"))
		} else {
			slog.Error("get node failed", slog.String("id", id), slog.String("error", err.Error()))
			writeJSON(w, http.StatusInternalServerError, errorBody("internal error"))
		}
		return
	}
	writeJSON(w, http.StatusOK, node)
}

// UpdateNode handles PATCH /api/nodes/{id}.
func (h *Handler) UpdateNode(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, 1<<20)
	id := chi.URLParam(r, "id")

	var req UpdateNodeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody("invalid JSON body"))
		return
	}

	node, err := h.boards.UpdateNode(r.Context(), id, req.toUpdate())
	if err != nil {
		if errors.Is(err, apperr.ErrNotFound) {
			writeJSON(w, http.StatusNotFound, errorBody("not found"))
		} else {
			slog.Error("update node failed", slog.String("id", id), slog.String("error", err.Error()))
			writeJSON(w, http.StatusInternalServerError, errorBody("internal error"))
		}
		return
	}
	writeJSON(w, http.StatusOK, node)
}

// DeleteNode handles DELETE /api/nodes/{id}.
func (h *Handler) DeleteNode(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if err := h.boards.DeleteNode(r.Context(), id); err != nil {
		if errors.Is(err, apperr.ErrNotFound) {
			writeJSON(w, http.StatusNotFound, errorBody("not found"))
		} else {
			slog.Error("delete node failed", slog.String("id", id), slog.String("error", err.Error()))
			writeJSON(w, http.StatusInternalServerError, errorBody("internal error"))
		}
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// ListEdges handles GET /api/edges.
func (h *Handler) ListEdges(w http.ResponseWriter, r *http.Request) {
	snap, err := h.boards.Board(r.Context())
	if err != nil {
		slog.Error("list edges failed", slog.String("error", err.Error()))
		writeJSON(w, http.StatusInternalServerError, errorBody("internal error"))
		return
	}
	writeJSON(w, http.StatusOK, EdgeListResponse{Edges: snap.Edges})
}

// CreateEdge handles POST /api/edges. A duplicate (source, target) pair
// returns the existing edge with 200 instead of 201.
func (h *Handler) CreateEdge(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, 1<<20)
	var req CreateEdgeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody("invalid JSON body"))
		return
	}
	if req.Source == "" || req.Target == "" {
		writeJSON(w, http.StatusBadRequest, errorBody("source and target are required"))
		return
	}

	edges, err := h.boards.Store().ListEdges()
	if err != nil {
		slog.Error("create edge failed", slog.String("error", err.Error()))
		writeJSON(w, http.StatusInternalServerError, errorBody("internal error"))
		return
	}
	existed := false
	for _, e := range edges {
		if e.Source == req.Source && e.Target == req.Target {
			existed = true
			break
		}
	}

	edge, err := h.boards.Connect(r.Context(), req.Source, req.Target, req.Label)
	if err != nil {
		if errors.Is(err, apperr.ErrNotFound) {
			writeJSON(w, http.StatusNotFound, errorBody("source or target not found"))
		} else {
			slog.Error("create edge failed", slog.String("error", err.Error()))
			writeJSON(w, http.StatusInternalServerError, errorBody("internal error"))
		}
		return
	}
	status := http.StatusCreated
	if existed {
		status = http.StatusOK
	}
	writeJSON(w, status, edge)
}

// DeleteEdge handles DELETE /api/edges/{id}.
func (h *Handler) DeleteEdge(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if err := h.boards.DeleteEdge(r.Context(), id); err != nil {
		if errors.Is(err, apperr.ErrNotFound) {
			writeJSON(w, http.StatusNotFound, errorBody("not found"))
		} else {
			slog.Error("delete edge failed", slog.String("id", id), slog.String("error", err.Error()))
			writeJSON(w, http.StatusInternalServerError, errorBody("internal error"))
		}
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// Board handles GET /api/board.
func (h *Handler) Board(w http.ResponseWriter, r *http.Request) {
	snap, err := h.boards.Board(r.Context())
	if err != nil {
		slog.Error("board failed", slog.String("error", err.Error()))
		writeJSON(w, http.StatusInternalServerError, errorBody("internal error"))
		return
	}
	writeJSON(w, http.StatusOK, snap)
}

// Search handles GET /api/search.
func (h *Handler) Search(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query().Get("q")
	if q == "" {
		writeJSON(w, http.StatusBadRequest, errorBody("query parameter 'q' is required"))
		return
	}
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	results, err := h.boards.Search(r.Context(), q, limit)
	if err != nil {
		slog.Error("search failed", slog.String("query", q), slog.String("error", err.Error()))
		writeJSON(w, http.StatusInternalServerError, errorBody("internal error"))
		return
	}
	if results == nil {
		results = []graph.SearchResult{}
	}
	writeJSON(w, http.StatusOK, SearchResponse{Results: results})
}
