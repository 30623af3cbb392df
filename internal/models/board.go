// Package models defines the domain types for the Vantage board.
package models

import "time"

// NodeType enumerates the kinds of nodes that can live on a board.
type NodeType string

const (
	NodeResearch NodeType = "research"
	NodeCompany  NodeType = "company"
	NodeChart    NodeType = "chart"
	NodeMetric   NodeType = "metric"
	NodeText     NodeType = "text"
	NodeImage    NodeType = "image"
	NodeDocument NodeType = "document"
)

// ValidNodeType reports whether t is a known node type.
func ValidNodeType(t NodeType) bool {
	switch t {
	case NodeResearch, NodeCompany, NodeChart, NodeMetric, NodeText, NodeImage, NodeDocument:
		return true
	}
	return false
}

// DefaultSize returns the canvas size used for a node type when the
// creator did not specify one.
func DefaultSize(t NodeType) (w, h float64) {
	switch t {
	case NodeChart:
		return 420, 300
	case NodeMetric:
		return 220, 140
	case NodeCompany:
		return 340, 260
	case NodeImage, NodeDocument:
		return 260, 200
	default:
		return 300, 200
	}
}

// Point is a position on the canvas.
type Point struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// Node is a single element on the board.
type Node struct {
	ID        string    `json:"id"`
	Title     string    `json:"title"`
	Type      NodeType  `json:"type"`
	X         float64   `json:"x"`
	Y         float64   `json:"y"`
	W         float64   `json:"w"`
	H         float64   `json:"h"`
	ParentID  string    `json:"parent_id,omitempty"`
	Data      NodeData  `json:"data"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// NodeData is the type-specific payload of a node. Exactly the fields
// relevant to the node's type are populated; the JSON shape matches the
// "data" object of wire actions.
type NodeData struct {
	Summary    string          `json:"summary,omitempty"`
	Content    string          `json:"content,omitempty"`
	Chart      *ChartData      `json:"chart,omitempty"`
	Metric     *MetricData     `json:"metric,omitempty"`
	Company    *CompanyData    `json:"company,omitempty"`
	Attachment *AttachmentData `json:"attachment,omitempty"`
}

// ChartData configures a chart node.
type ChartData struct {
	Ticker    string `json:"ticker"`
	ChartType string `json:"chartType,omitempty"`
	Timeframe string `json:"timeframe,omitempty"`
	Title     string `json:"title,omitempty"`
}

// MetricData configures a metric node.
type MetricData struct {
	Label         string `json:"label"`
	Value         string `json:"value"`
	Ticker        string `json:"ticker,omitempty"`
	Trend         string `json:"trend,omitempty"`
	Unit          string `json:"unit,omitempty"`
	ChangePercent string `json:"changePercent,omitempty"`
}

// CompanyData configures a company node.
type CompanyData struct {
	Ticker        string            `json:"ticker"`
	Name          string            `json:"name,omitempty"`
	Sector        string            `json:"sector,omitempty"`
	MarketCap     string            `json:"marketCap,omitempty"`
	Price         float64           `json:"price,omitempty"`
	Change        float64           `json:"change,omitempty"`
	ChangePercent float64           `json:"changePercent,omitempty"`
	Description   string            `json:"description,omitempty"`
	Metrics       map[string]string `json:"metrics,omitempty"`
}

// AttachmentData references an uploaded file backing an image or
// document node.
type AttachmentData struct {
	Filename string `json:"filename"`
}

// Edge connects two nodes. At most one edge exists per ordered
// (Source, Target) pair.
type Edge struct {
	ID     string `json:"id"`
	Source string `json:"source"`
	Target string `json:"target"`
	Label  string `json:"label,omitempty"`
}

// Message roles.
const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// Message is one entry in a node's append-only chat log.
type Message struct {
	ID        string    `json:"id"`
	NodeID    string    `json:"node_id"`
	Role      string    `json:"role"`
	Content   string    `json:"content"`
	CreatedAt time.Time `json:"created_at"`
}
