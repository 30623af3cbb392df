// Package board coordinates graph storage, placement, and live update
// broadcasts behind a single service used by the HTTP and MCP surfaces.
package board

import (
	"context"

	"github.com/starford/vantage/internal/graph"
	"github.com/starford/vantage/internal/models"
	"github.com/starford/vantage/internal/place"
	"github.com/starford/vantage/internal/sse"
)

// Snapshot is the full board state returned to clients.
type Snapshot struct {
	Nodes []models.Node `json:"nodes"`
	Edges []models.Edge `json:"edges"`
}

// CreateNodeInput describes a node to create. Position is optional;
// when nil the node is spiral-placed around the board anchor.
type CreateNodeInput struct {
	Title    string
	Type     models.NodeType
	Position *models.Point
	ParentID string
	Data     models.NodeData
}

// Service coordinates store mutations with placement and SSE fanout.
type Service struct {
	store  graph.Store
	broker *sse.Broker
	anchor models.Point
}

// NewService creates a board service. broker may be nil in tests.
func NewService(store graph.Store, broker *sse.Broker, anchor models.Point) *Service {
	return &Service{store: store, broker: broker, anchor: anchor}
}

// Anchor returns the default placement anchor.
func (s *Service) Anchor() models.Point { return s.anchor }

// Store exposes the underlying store for collaborators that need raw
// access, such as the chat session wiring.
func (s *Service) Store() graph.Store { return s.store }

// CreateNode creates a node, auto-placing it when no position is given.
func (s *Service) CreateNode(_ context.Context, in CreateNodeInput) (*models.Node, error) {
	n := models.Node{
		Title:    in.Title,
		Type:     in.Type,
		ParentID: in.ParentID,
		Data:     in.Data,
	}
	if in.Position != nil {
		n.X, n.Y = in.Position.X, in.Position.Y
	} else {
		nodes, err := s.store.ListNodes()
		if err != nil {
			return nil, err
		}
		pos := place.Place(s.anchor, place.Boxes(nodes))
		n.X, n.Y = pos.X, pos.Y
	}
	created, err := s.store.CreateNode(n)
	if err != nil {
		return nil, err
	}
	s.publish("created", created.ID)
	return created, nil
}

// GetNode returns a single node by id.
func (s *Service) GetNode(_ context.Context, id string) (*models.Node, error) {
	return s.store.GetNode(id)
}

// UpdateNode applies a partial update and broadcasts the change.
func (s *Service) UpdateNode(_ context.Context, id string, upd graph.NodeUpdate) (*models.Node, error) {
	n, err := s.store.UpdateNode(id, upd)
	if err != nil {
		return nil, err
	}
	s.publish("updated", n.ID)
	return n, nil
}

// DeleteNode removes a node; edges and messages cascade in the store.
func (s *Service) DeleteNode(_ context.Context, id string) error {
	if err := s.store.DeleteNode(id); err != nil {
		return err
	}
	s.publish("deleted", id)
	return nil
}

// Connect creates an edge between two nodes by id. Duplicate pairs
// return the existing edge without a broadcast.
func (s *Service) Connect(_ context.Context, source, target, label string) (*models.Edge, error) {
	edge, created, err := s.store.CreateEdge(source, target, label)
	if err != nil {
		return nil, err
	}
	if created {
		s.publish("connected", edge.ID)
	}
	return edge, nil
}

// DeleteEdge removes an edge by id.
func (s *Service) DeleteEdge(_ context.Context, id string) error {
	return s.store.DeleteEdge(id)
}

// Board returns the full board snapshot.
func (s *Service) Board(_ context.Context) (*Snapshot, error) {
	nodes, err := s.store.ListNodes()
	if err != nil {
		return nil, err
	}
	edges, err := s.store.ListEdges()
	if err != nil {
		return nil, err
	}
	if nodes == nil {
		nodes = []models.Node{}
	}
	if edges == nil {
		edges = []models.Edge{}
	}
	return &Snapshot{Nodes: nodes, Edges: edges}, nil
}

// Search delegates to the store's text search.
func (s *Service) Search(_ context.Context, query string, limit int) ([]graph.SearchResult, error) {
	return s.store.Search(query, limit)
}

func (s *Service) publish(kind, id string) {
	if s.broker != nil {
		s.broker.PublishNodeEvent(kind, id)
	}
}
