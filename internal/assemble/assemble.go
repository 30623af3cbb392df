// Package assemble builds the conversational context block sent to the
// agent: the focal node plus a type-specific summary of every one-hop
// neighbor.
package assemble

import (
	"fmt"
	"strings"

	"github.com/starford/vantage/internal/graph"
	"github.com/starford/vantage/internal/models"
)

// Clipping limits per block type.
const (
	messageClip     = 200
	descriptionClip = 300
	textClip        = 500
	maxExchanges    = 3 // user/assistant pairs, so at most 6 messages
)

// Assembler renders chat context from the board.
type Assembler struct {
	store graph.Store
}

// New creates an assembler over the given store.
func New(store graph.Store) *Assembler {
	return &Assembler{store: store}
}

// Assemble produces the context text for a chat on the focal node: a
// header block followed by one block per unique neighbor, in the order
// edges are iterated. Treats edges as undirected; a neighbor connected
// by several edges appears once. Callers must not rely on any neighbor
// ordering beyond stability for a fixed edge list.
func (a *Assembler) Assemble(focal *models.Node) (string, error) {
	edges, err := a.store.ListEdges()
	if err != nil {
		return "", fmt.Errorf("assemble: list edges: %w", err)
	}

	var b strings.Builder
	fmt.Fprintf(&b, "## Current node: %s\n", focal.Title)
	if focal.Data.Summary != "" {
		fmt.Fprintf(&b, "%s\n", focal.Data.Summary)
	}

	seen := map[string]struct{}{focal.ID: {}}
	for _, e := range edges {
		var neighborID string
		switch focal.ID {
		case e.Source:
			neighborID = e.Target
		case e.Target:
			neighborID = e.Source
		default:
			continue
		}
		if _, dup := seen[neighborID]; dup {
			continue
		}
		seen[neighborID] = struct{}{}

		n, err := a.store.GetNode(neighborID)
		if err != nil {
			// Edge pointing at a node deleted mid-assembly; skip it.
			continue
		}
		b.WriteString("\n")
		a.writeNeighbor(&b, n)
	}
	return b.String(), nil
}

func (a *Assembler) writeNeighbor(b *strings.Builder, n *models.Node) {
	fmt.Fprintf(b, "### Connected: %s (%s)\n", n.Title, n.Type)

	switch n.Type {
	case models.NodeResearch:
		if n.Data.Summary != "" {
			fmt.Fprintf(b, "%s\n", n.Data.Summary)
		}
		msgs, err := a.store.Messages(n.ID, maxExchanges*2)
		if err != nil {
			return
		}
		for _, m := range msgs {
			fmt.Fprintf(b, "- %s: %s\n", m.Role, clip(m.Content, messageClip))
		}

	case models.NodeCompany:
		c := n.Data.Company
		if c == nil {
			return
		}
		fmt.Fprintf(b, "Ticker: %s | Name: %s | Sector: %s\n", c.Ticker, c.Name, c.Sector)
		fmt.Fprintf(b, "Market cap: %s | Price: %g | Change: %g%%\n", c.MarketCap, c.Price, c.ChangePercent)
		if c.Description != "" {
			fmt.Fprintf(b, "%s\n", clip(c.Description, descriptionClip))
		}
		for label, value := range c.Metrics {
			fmt.Fprintf(b, "%s: %s\n", label, value)
		}

	case models.NodeChart:
		c := n.Data.Chart
		if c == nil {
			return
		}
		fmt.Fprintf(b, "Chart of %s (%s, %s): %s\n", c.Ticker, c.ChartType, c.Timeframe, c.Title)

	case models.NodeMetric:
		m := n.Data.Metric
		if m == nil {
			return
		}
		fmt.Fprintf(b, "%s = %s", m.Label, m.Value)
		if m.Ticker != "" {
			fmt.Fprintf(b, " (%s)", m.Ticker)
		}
		if m.Trend != "" {
			fmt.Fprintf(b, ", trend %s", m.Trend)
		}
		if m.ChangePercent != "" {
			fmt.Fprintf(b, ", %s%%", m.ChangePercent)
		}
		b.WriteString("\n")

	case models.NodeText:
		if n.Data.Content != "" {
			fmt.Fprintf(b, "%s\n", clip(n.Data.Content, textClip))
		}

	case models.NodeImage, models.NodeDocument:
		name := "unnamed"
		if n.Data.Attachment != nil {
			name = n.Data.Attachment.Filename
		}
		fmt.Fprintf(b, "[%s attachment: %s]\n", n.Type, name)
	}
}

func clip(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return s[:max] + "..."
}
