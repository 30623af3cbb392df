package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/starford/vantage/internal/board"
	"github.com/starford/vantage/internal/storage"
)

// NewRouter creates a chi router with all API routes mounted.
// authEnabled controls whether Bearer token auth is enforced.
// chatHandler and sseHandler may be nil, in which case their routes are
// not mounted (used by tests that only need the CRUD surface).
func NewRouter(boards *board.Service, files storage.Provider, chatHandler *ChatHandler, sseHandler http.Handler, authEnabled bool, token string) chi.Router {
	h := NewHandler(boards)

	r := chi.NewRouter()
	r.Use(AuthMiddleware(authEnabled, token))

	// Nodes CRUD.
	r.Get("/nodes", h.ListNodes)
	r.Post("/nodes", h.CreateNode)
	r.Get("/nodes/{id}", h.GetNode)
	r.Patch("/nodes/{id}", h.UpdateNode)
	r.Delete("/nodes/{id}", h.DeleteNode)

	// Edges.
	r.Get("/edges", h.ListEdges)
	r.Post("/edges", h.CreateEdge)
	r.Delete("/edges/{id}", h.DeleteEdge)

	// Whole-board snapshot and search.
	r.Get("/board", h.Board)
	r.Get("/search", h.Search)

	// Chat and context preview.
	if chatHandler != nil {
		r.Post("/nodes/{id}/chat", chatHandler.Chat)
		r.Get("/nodes/{id}/context", chatHandler.Context)
	}

	// Attachments.
	if files != nil {
		ah := NewAttachmentHandler(files)
		r.Post("/attachments", ah.Upload)
		r.Get("/attachments/{filename}", ah.ServeFile)
	}

	// SSE endpoint (protected by same auth middleware).
	if sseHandler != nil {
		r.Get("/events", sseHandler.ServeHTTP)
	}

	return r
}
