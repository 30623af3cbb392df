package api

import (
	"github.com/starford/vantage/internal/board"
	"github.com/starford/vantage/internal/graph"
	"github.com/starford/vantage/internal/models"
)

// CreateNodeRequest is the request body for creating a node. X and Y
// are optional; when both are absent the node is auto-placed.
type CreateNodeRequest struct {
	Title    string           `json:"title"`
	Type     string           `json:"type"`
	X        *float64         `json:"x,omitempty"`
	Y        *float64         `json:"y,omitempty"`
	ParentID string           `json:"parent_id,omitempty"`
	Data     *models.NodeData `json:"data,omitempty"`
}

// UpdateNodeRequest is the request body for PATCH /nodes/{id}. Absent
// fields are left unchanged.
type UpdateNodeRequest struct {
	Title    *string          `json:"title,omitempty"`
	X        *float64         `json:"x,omitempty"`
	Y        *float64         `json:"y,omitempty"`
	W        *float64         `json:"w,omitempty"`
	H        *float64         `json:"h,omitempty"`
	ParentID *string          `json:"parent_id,omitempty"`
	Data     *models.NodeData `json:"data,omitempty"`
}

func (r UpdateNodeRequest) toUpdate() graph.NodeUpdate {
	return graph.NodeUpdate{
		Title:    r.Title,
		X:        r.X,
		Y:        r.Y,
		W:        r.W,
		H:        r.H,
		ParentID: r.ParentID,
		Data:     r.Data,
	}
}

// CreateEdgeRequest is the request body for creating an edge.
type CreateEdgeRequest struct {
	Source string `json:"source"`
	Target string `json:"target"`
	Label  string `json:"label,omitempty"`
}

// ChatRequest is the request body for POST /nodes/{id}/chat.
type ChatRequest struct {
	Message string `json:"message"`
}

// BoardResponse is the full board state (aliased from the domain layer).
type BoardResponse = board.Snapshot

// NodeListResponse wraps node listings.
type NodeListResponse struct {
	Nodes []models.Node `json:"nodes"`
}

// EdgeListResponse wraps edge listings.
type EdgeListResponse struct {
	Edges []models.Edge `json:"edges"`
}

// SearchResponse wraps search results.
type SearchResponse struct {
	Results []graph.SearchResult `json:"results"`
}

// ContextResponse wraps an assembled context preview.
type ContextResponse struct {
	Context string `json:"context"`
}
