package graph

import "github.com/starford/vantage/internal/models"

// Store defines the interface for board storage operations. Consumers
// should depend on this interface rather than the concrete *DB type to
// facilitate testing with mocks.
type Store interface {
	CreateNode(n models.Node) (*models.Node, error)
	GetNode(id string) (*models.Node, error)
	ListNodes() ([]models.Node, error)
	UpdateNode(id string, upd NodeUpdate) (*models.Node, error)
	DeleteNode(id string) error
	FindNodeByTitle(title string, caseInsensitive bool) (*models.Node, error)

	// CreateEdge inserts an edge and reports whether it was newly
	// created; when an edge for the same ordered (source, target) pair
	// already exists, that edge is returned with created == false.
	CreateEdge(source, target, label string) (edge *models.Edge, created bool, err error)
	ListEdges() ([]models.Edge, error)
	DeleteEdge(id string) error

	AppendMessage(nodeID, role, content string) (*models.Message, error)
	Messages(nodeID string, limit int) ([]models.Message, error)

	Search(query string, limit int) ([]SearchResult, error)
	Close() error
}

// Verify *DB satisfies Store at compile time.
var _ Store = (*DB)(nil)
