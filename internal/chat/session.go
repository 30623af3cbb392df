// Package chat drives one research conversation attached to a board
// node: context assembly, the agent token stream, and directive
// dispatch.
package chat

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/starford/vantage/internal/assemble"
	"github.com/starford/vantage/internal/dispatch"
	"github.com/starford/vantage/internal/graph"
	"github.com/starford/vantage/internal/models"
	"github.com/starford/vantage/internal/stream"
)

// Streamer opens a raw agent token stream for a query.
type Streamer interface {
	Research(ctx context.Context, query, mode string) (io.ReadCloser, error)
}

// Emitter receives user-facing stream events as they happen. Implemented
// by the HTTP chat handler, which relays them as SSE frames.
type Emitter interface {
	EmitText(text string)
	EmitStatus(message string)
	EmitActionApplied(actionType string)
}

// Session owns one conversation. Each session gets its own demuxer and
// dispatcher; nothing here is shared across sessions, so a session is
// safe without locks as long as Run is called once.
type Session struct {
	store     graph.Store
	agent     Streamer
	assembler *assemble.Assembler
	status    dispatch.StatusSink
	mapGen    dispatch.MapGenerator
	anchor    models.Point
	logger    *slog.Logger
}

// NewSession wires a session's collaborators. status and mapGen may be
// nil.
func NewSession(store graph.Store, agent Streamer, status dispatch.StatusSink, mapGen dispatch.MapGenerator, anchor models.Point, logger *slog.Logger) *Session {
	if logger == nil {
		logger = slog.Default()
	}
	return &Session{
		store:     store,
		agent:     agent,
		assembler: assemble.New(store),
		status:    status,
		mapGen:    mapGen,
		anchor:    anchor,
		logger:    logger,
	}
}

// Run executes one exchange: persist the user message, stream the agent
// response, apply directives as they arrive, then re-scan the full
// response once the stream ends so directives torn across read
// boundaries are still applied. The dispatcher's dedupe set absorbs the
// double delivery. Returns the assistant's plain text.
func (s *Session) Run(ctx context.Context, nodeID, userMessage string, emit Emitter) (string, error) {
	focal, err := s.store.GetNode(nodeID)
	if err != nil {
		return "", err
	}
	if _, err := s.store.AppendMessage(nodeID, models.RoleUser, userMessage); err != nil {
		return "", err
	}

	contextBlock, err := s.assembler.Assemble(focal)
	if err != nil {
		return "", fmt.Errorf("chat: assemble context: %w", err)
	}
	query := contextBlock + "\n\n" + userMessage

	body, err := s.agent.Research(ctx, query, "research")
	if err != nil {
		return "", err
	}
	defer body.Close()

	demux := stream.NewDemuxer(s.logger)
	disp := dispatch.New(s.store, s.status, s.mapGen, s.anchor, s.logger)

	var full strings.Builder
	var text strings.Builder

	handle := func(events []stream.Event) {
		for _, ev := range events {
			switch ev.Kind {
			case stream.EventText:
				text.WriteString(ev.Text)
				if emit != nil {
					emit.EmitText(ev.Text)
				}
			case stream.EventStatus:
				disp.Apply(ctx, ev)
				if emit != nil {
					emit.EmitStatus(ev.Status)
				}
			case stream.EventAction:
				disp.Apply(ctx, ev)
				if emit != nil {
					emit.EmitActionApplied(string(ev.Action.Type))
				}
			}
		}
	}

	buf := make([]byte, 4096)
	for {
		if err := ctx.Err(); err != nil {
			// Cancellation stops feeding; mutations already applied stay.
			return text.String(), err
		}
		n, err := body.Read(buf)
		if n > 0 {
			chunk := string(buf[:n])
			full.WriteString(chunk)
			handle(demux.Feed(chunk))
		}
		if err == io.EOF {
			break
		}
		if err != nil {
			return text.String(), fmt.Errorf("chat: read agent stream: %w", err)
		}
	}
	handle(demux.Flush())

	// Second pass over the complete response with a fresh demuxer so a
	// directive that straddled a chunk boundary and degraded to text is
	// still applied. Directives already applied dedupe to no-ops, and
	// nothing is re-emitted to the client.
	rescan := stream.NewDemuxer(s.logger)
	for _, ev := range append(rescan.Feed(full.String()), rescan.Flush()...) {
		if ev.Kind == stream.EventAction {
			disp.Apply(ctx, ev)
		}
	}

	// Clear the status indicator when the stream ends.
	if s.status != nil {
		s.status.SetStatus("")
	}

	reply := text.String()
	if _, err := s.store.AppendMessage(nodeID, models.RoleAssistant, reply); err != nil {
		return reply, err
	}
	return reply, nil
}

// Context returns the assembled context block for a node, used by the
// preview endpoint.
func (s *Session) Context(nodeID string) (string, error) {
	focal, err := s.store.GetNode(nodeID)
	if err != nil {
		return "", err
	}
	return s.assembler.Assemble(focal)
}
