package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/starford/vantage/internal/apperr"
	"github.com/starford/vantage/internal/chat"
	"github.com/starford/vantage/internal/dispatch"
	"github.com/starford/vantage/internal/graph"
	"github.com/starford/vantage/internal/models"
)

// ChatHandler runs research conversations over SSE. Each request gets
// its own chat session.
type ChatHandler struct {
	store  graph.Store
	agent  chat.Streamer
	status dispatch.StatusSink
	mapGen dispatch.MapGenerator
	anchor models.Point
	logger *slog.Logger
}

// NewChatHandler wires the chat endpoint's collaborators.
func NewChatHandler(store graph.Store, agent chat.Streamer, status dispatch.StatusSink, mapGen dispatch.MapGenerator, anchor models.Point, logger *slog.Logger) *ChatHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &ChatHandler{store: store, agent: agent, status: status, mapGen: mapGen, anchor: anchor, logger: logger}
}

// sseEmitter writes chat events as SSE frames. Run emits from a single
// goroutine, so no locking is needed.
type sseEmitter struct {
	w       http.ResponseWriter
	flusher http.Flusher
}

func (e *sseEmitter) frame(event string, data any) {
	payload, err := json.Marshal(data)
	if err != nil {
		return
	}
	fmt.Fprintf(e.w, "event: %s\ndata: %s\n\n", event, payload)
	e.flusher.Flush()
}

func (e *sseEmitter) EmitText(text string) {
	e.frame("text", map[string]string{"text": text})
}

func (e *sseEmitter) EmitStatus(message string) {
	e.frame("status", map[string]string{"message": message})
}

func (e *sseEmitter) EmitActionApplied(actionType string) {
	e.frame("action", map[string]string{"type": actionType})
}

// Chat handles POST /api/nodes/{id}/chat. The response is an SSE stream
// of text, status, and action events, terminated by a done event. Board
// mutations happen as a side effect while the stream runs.
func (h *ChatHandler) Chat(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "streaming unsupported", http.StatusInternalServerError)
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, 1<<20)
	var req ChatRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody("invalid JSON body"))
		return
	}
	if req.Message == "" {
		writeJSON(w, http.StatusBadRequest, errorBody("message is required"))
		return
	}

	nodeID := chi.URLParam(r, "id")
	if _, err := h.store.GetNode(nodeID); err != nil {
		if errors.Is(err, apperr.ErrNotFound) {
			writeJSON(w, http.StatusNotFound, errorBody("not found"))
		} else {
			h.logger.Error("chat: load node failed", slog.String("id", nodeID), slog.String("error", err.Error()))
			writeJSON(w, http.StatusInternalServerError, errorBody("internal error"))
		}
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)
	flusher.Flush()

	emit := &sseEmitter{w: w, flusher: flusher}
	session := chat.NewSession(h.store, h.agent, h.status, h.mapGen, h.anchor, h.logger)

	reply, err := session.Run(r.Context(), nodeID, req.Message, emit)
	if err != nil {
		h.logger.Error("chat: session failed", slog.String("id", nodeID), slog.String("error", err.Error()))
		emit.frame("error", map[string]string{"error": "stream failed"})
		return
	}
	emit.frame("done", map[string]string{"reply": reply})
}

// Context handles GET /api/nodes/{id}/context, returning the assembled
// context block that a chat on this node would send to the agent.
func (h *ChatHandler) Context(w http.ResponseWriter, r *http.Request) {
	nodeID := chi.URLParam(r, "id")
	session := chat.NewSession(h.store, h.agent, h.status, h.mapGen, h.anchor, h.logger)
	block, err := session.Context(nodeID)
	if err != nil {
		if errors.Is(err, apperr.ErrNotFound) {
			writeJSON(w, http.StatusNotFound, errorBody("not found"))
		} else {
			h.logger.Error("chat: context failed", slog.String("id", nodeID), slog.String("error", err.Error()))
			writeJSON(w, http.StatusInternalServerError, errorBody("internal error"))
		}
		return
	}
	writeJSON(w, http.StatusOK, ContextResponse{Context: block})
}
