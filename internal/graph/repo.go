package graph

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/starford/vantage/internal/apperr"
	"github.com/starford/vantage/internal/models"
)

// NodeUpdate describes a partial node mutation. Nil fields are left
// unchanged.
type NodeUpdate struct {
	Title    *string
	X        *float64
	Y        *float64
	W        *float64
	H        *float64
	ParentID *string
	Data     *models.NodeData
}

// SearchResult represents one search hit.
type SearchResult struct {
	ID      string `json:"id"`
	Title   string `json:"title"`
	Snippet string `json:"snippet"`
}

// CreateNode inserts a node. An empty ID is assigned a fresh UUID, zero
// width/height fall back to the type default, and timestamps are set.
func (db *DB) CreateNode(n models.Node) (*models.Node, error) {
	if !models.ValidNodeType(n.Type) {
		return nil, fmt.Errorf("graph: invalid node type %q", n.Type)
	}
	if n.ID == "" {
		n.ID = uuid.NewString()
	}
	if n.W == 0 || n.H == 0 {
		n.W, n.H = models.DefaultSize(n.Type)
	}
	now := time.Now().UTC()
	n.CreatedAt = now
	n.UpdatedAt = now

	dataJSON, err := json.Marshal(n.Data)
	if err != nil {
		return nil, fmt.Errorf("graph: marshal node data: %w", err)
	}

	tx, err := db.conn.Begin()
	if err != nil {
		return nil, fmt.Errorf("graph: begin tx: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck // best-effort on failure path

	_, err = tx.Exec(`
		INSERT INTO nodes (id, title, type, x, y, w, h, parent_id, data, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, n.ID, n.Title, string(n.Type), n.X, n.Y, n.W, n.H, n.ParentID, string(dataJSON), n.CreatedAt, n.UpdatedAt)
	if err != nil {
		if strings.Contains(err.Error(), "UNIQUE constraint failed") {
			return nil, apperr.ErrAlreadyExists
		}
		return nil, fmt.Errorf("graph: insert node: %w", err)
	}
	if err := ftsUpsert(tx, n.ID, n.Title, flattenNodeText(n.Data)); err != nil {
		return nil, err
	}
	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("graph: commit: %w", err)
	}
	return &n, nil
}

const nodeColumns = `id, title, type, x, y, w, h, parent_id, data, created_at, updated_at`

func scanNode(sc interface{ Scan(...any) error }) (*models.Node, error) {
	var n models.Node
	var typ, dataJSON string
	if err := sc.Scan(&n.ID, &n.Title, &typ, &n.X, &n.Y, &n.W, &n.H, &n.ParentID, &dataJSON, &n.CreatedAt, &n.UpdatedAt); err != nil {
		return nil, err
	}
	n.Type = models.NodeType(typ)
	if err := json.Unmarshal([]byte(dataJSON), &n.Data); err != nil {
		return nil, fmt.Errorf("graph: unmarshal node data: %w", err)
	}
	return &n, nil
}

// GetNode returns a node by id.
func (db *DB) GetNode(id string) (*models.Node, error) {
	row := db.conn.QueryRow(`SELECT `+nodeColumns+` FROM nodes WHERE id = ?`, id)
	n, err := scanNode(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperr.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("graph: get node: %w", err)
	}
	return n, nil
}

// ListNodes returns all nodes ordered by creation time.
func (db *DB) ListNodes() ([]models.Node, error) {
	rows, err := db.conn.Query(`SELECT ` + nodeColumns + ` FROM nodes ORDER BY created_at, id`)
	if err != nil {
		return nil, fmt.Errorf("graph: list nodes: %w", err)
	}
	defer rows.Close()

	var out []models.Node
	for rows.Next() {
		n, err := scanNode(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *n)
	}
	return out, rows.Err()
}

// UpdateNode applies a partial update and returns the updated node.
func (db *DB) UpdateNode(id string, upd NodeUpdate) (*models.Node, error) {
	n, err := db.GetNode(id)
	if err != nil {
		return nil, err
	}
	if upd.Title != nil {
		n.Title = *upd.Title
	}
	if upd.X != nil {
		n.X = *upd.X
	}
	if upd.Y != nil {
		n.Y = *upd.Y
	}
	if upd.W != nil {
		n.W = *upd.W
	}
	if upd.H != nil {
		n.H = *upd.H
	}
	if upd.ParentID != nil {
		n.ParentID = *upd.ParentID
	}
	if upd.Data != nil {
		n.Data = *upd.Data
	}
	n.UpdatedAt = time.Now().UTC()

	dataJSON, err := json.Marshal(n.Data)
	if err != nil {
		return nil, fmt.Errorf("graph: marshal node data: %w", err)
	}

	tx, err := db.conn.Begin()
	if err != nil {
		return nil, fmt.Errorf("graph: begin tx: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	_, err = tx.Exec(`
		UPDATE nodes SET title = ?, x = ?, y = ?, w = ?, h = ?, parent_id = ?, data = ?, updated_at = ?
		WHERE id = ?
	`, n.Title, n.X, n.Y, n.W, n.H, n.ParentID, string(dataJSON), n.UpdatedAt, id)
	if err != nil {
		return nil, fmt.Errorf("graph: update node: %w", err)
	}
	if err := ftsUpsert(tx, n.ID, n.Title, flattenNodeText(n.Data)); err != nil {
		return nil, err
	}
	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("graph: commit: %w", err)
	}
	return n, nil
}

// DeleteNode removes a node; incident edges and messages cascade.
func (db *DB) DeleteNode(id string) error {
	tx, err := db.conn.Begin()
	if err != nil {
		return fmt.Errorf("graph: begin tx: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	ftsDelete(tx, id)
	res, err := tx.Exec(`DELETE FROM nodes WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("graph: delete node: %w", err)
	}
	if rows, _ := res.RowsAffected(); rows == 0 {
		return apperr.ErrNotFound
	}
	return tx.Commit()
}

// FindNodeByTitle returns the first node whose title exactly matches,
// optionally ignoring case. Returns apperr.ErrNotFound when no node
// matches.
func (db *DB) FindNodeByTitle(title string, caseInsensitive bool) (*models.Node, error) {
	q := `SELECT ` + nodeColumns + ` FROM nodes WHERE title = ? ORDER BY created_at LIMIT 1`
	if caseInsensitive {
		q = `SELECT ` + nodeColumns + ` FROM nodes WHERE title = ? COLLATE NOCASE ORDER BY created_at LIMIT 1`
	}
	row := db.conn.QueryRow(q, title)
	n, err := scanNode(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperr.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("graph: find node by title: %w", err)
	}
	return n, nil
}

// CreateEdge inserts an edge between two existing nodes. A duplicate
// ordered (source, target) pair returns the existing edge instead of a
// new one.
func (db *DB) CreateEdge(source, target, label string) (*models.Edge, bool, error) {
	e := models.Edge{ID: uuid.NewString(), Source: source, Target: target, Label: label}
	res, err := db.conn.Exec(`
		INSERT OR IGNORE INTO edges (id, source, target, label) VALUES (?, ?, ?, ?)
	`, e.ID, e.Source, e.Target, e.Label)
	if err != nil {
		if strings.Contains(err.Error(), "FOREIGN KEY constraint failed") {
			return nil, false, apperr.ErrNotFound
		}
		return nil, false, fmt.Errorf("graph: insert edge: %w", err)
	}
	rows, _ := res.RowsAffected()
	if rows > 0 {
		return &e, true, nil
	}
	// Ordered pair already connected: return the existing edge.
	var existing models.Edge
	err = db.conn.QueryRow(`SELECT id, source, target, label FROM edges WHERE source = ? AND target = ?`,
		source, target).Scan(&existing.ID, &existing.Source, &existing.Target, &existing.Label)
	if err != nil {
		return nil, false, fmt.Errorf("graph: get existing edge: %w", err)
	}
	return &existing, false, nil
}

// ListEdges returns all edges in insertion order.
func (db *DB) ListEdges() ([]models.Edge, error) {
	rows, err := db.conn.Query(`SELECT id, source, target, label FROM edges ORDER BY rowid`)
	if err != nil {
		return nil, fmt.Errorf("graph: list edges: %w", err)
	}
	defer rows.Close()

	var out []models.Edge
	for rows.Next() {
		var e models.Edge
		if err := rows.Scan(&e.ID, &e.Source, &e.Target, &e.Label); err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

// DeleteEdge removes an edge by id.
func (db *DB) DeleteEdge(id string) error {
	res, err := db.conn.Exec(`DELETE FROM edges WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("graph: delete edge: %w", err)
	}
	if rows, _ := res.RowsAffected(); rows == 0 {
		return apperr.ErrNotFound
	}
	return nil
}

// AppendMessage appends one entry to a node's chat log.
func (db *DB) AppendMessage(nodeID, role, content string) (*models.Message, error) {
	m := models.Message{
		ID:        uuid.NewString(),
		NodeID:    nodeID,
		Role:      role,
		Content:   content,
		CreatedAt: time.Now().UTC(),
	}
	_, err := db.conn.Exec(`
		INSERT INTO messages (id, node_id, role, content, created_at) VALUES (?, ?, ?, ?, ?)
	`, m.ID, m.NodeID, m.Role, m.Content, m.CreatedAt)
	if err != nil {
		if strings.Contains(err.Error(), "FOREIGN KEY constraint failed") {
			return nil, apperr.ErrNotFound
		}
		return nil, fmt.Errorf("graph: append message: %w", err)
	}
	return &m, nil
}

// Messages returns a node's log in chronological order. A positive limit
// returns only the most recent entries.
func (db *DB) Messages(nodeID string, limit int) ([]models.Message, error) {
	q := `SELECT id, node_id, role, content, created_at FROM messages WHERE node_id = ? ORDER BY seq`
	args := []any{nodeID}
	if limit > 0 {
		q = `SELECT id, node_id, role, content, created_at FROM (
			SELECT seq, id, node_id, role, content, created_at FROM messages
			WHERE node_id = ? ORDER BY seq DESC LIMIT ?
		) ORDER BY seq`
		args = append(args, limit)
	}
	rows, err := db.conn.Query(q, args...)
	if err != nil {
		return nil, fmt.Errorf("graph: messages: %w", err)
	}
	defer rows.Close()

	var out []models.Message
	for rows.Next() {
		var m models.Message
		if err := rows.Scan(&m.ID, &m.NodeID, &m.Role, &m.Content, &m.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, m)
	}
	return out, rows.Err()
}

// flattenNodeText collects the searchable text of a node payload.
func flattenNodeText(d models.NodeData) string {
	var parts []string
	if d.Summary != "" {
		parts = append(parts, d.Summary)
	}
	if d.Content != "" {
		parts = append(parts, d.Content)
	}
	if d.Company != nil {
		parts = append(parts, d.Company.Ticker, d.Company.Name, d.Company.Sector, d.Company.Description)
	}
	if d.Chart != nil {
		parts = append(parts, d.Chart.Ticker, d.Chart.Title)
	}
	if d.Metric != nil {
		parts = append(parts, d.Metric.Label, d.Metric.Value)
	}
	return strings.Join(parts, " ")
}
