package agent

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/starford/vantage/internal/board"
	"github.com/starford/vantage/internal/models"
)

// mapFetcher is the slice of Client used by the builder; split out so
// tests can substitute a canned map.
type mapFetcher interface {
	GenerateMap(ctx context.Context, topic string) (*KnowledgeMap, error)
}

// KnowledgeMapBuilder materializes an agent-generated knowledge map as
// board nodes and edges.
type KnowledgeMapBuilder struct {
	fetch  mapFetcher
	boards *board.Service
	logger *slog.Logger
}

// NewKnowledgeMapBuilder wires a map fetcher to the board service.
func NewKnowledgeMapBuilder(fetch mapFetcher, boards *board.Service, logger *slog.Logger) *KnowledgeMapBuilder {
	if logger == nil {
		logger = slog.Default()
	}
	return &KnowledgeMapBuilder{fetch: fetch, boards: boards, logger: logger}
}

// GenerateMap fetches a knowledge map for the topic and creates one
// board node per map node plus the map's edges. Map-local ids resolve
// to the nodes created in this call only; edges referencing unknown
// ids are skipped.
func (b *KnowledgeMapBuilder) GenerateMap(ctx context.Context, topic string) error {
	km, err := b.fetch.GenerateMap(ctx, topic)
	if err != nil {
		return err
	}

	created := make(map[string]string, len(km.Nodes))
	for _, mn := range km.Nodes {
		if mn.Label == "" {
			continue
		}
		n, err := b.boards.CreateNode(ctx, board.CreateNodeInput{
			Title: mn.Label,
			Type:  mapNodeType(mn.Type),
			Data:  models.NodeData{Summary: mn.Summary},
		})
		if err != nil {
			return fmt.Errorf("agent: map node %q: %w", mn.Label, err)
		}
		created[mn.ID] = n.ID
	}

	for _, me := range km.Edges {
		source, ok := created[me.Source]
		if !ok {
			b.logger.Info("agent: map edge source unknown, skipping", slog.String("id", me.Source))
			continue
		}
		target, ok := created[me.Target]
		if !ok {
			b.logger.Info("agent: map edge target unknown, skipping", slog.String("id", me.Target))
			continue
		}
		if _, err := b.boards.Connect(ctx, source, target, me.Label); err != nil {
			return fmt.Errorf("agent: map edge %s->%s: %w", me.Source, me.Target, err)
		}
	}
	return nil
}

func mapNodeType(t string) models.NodeType {
	switch t {
	case "company":
		return models.NodeCompany
	case "person":
		return models.NodeResearch
	default:
		return models.NodeText
	}
}
