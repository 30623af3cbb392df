// Package dispatch applies parsed directives as board mutations.
package dispatch

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/starford/vantage/internal/graph"
	"github.com/starford/vantage/internal/models"
	"github.com/starford/vantage/internal/place"
	"github.com/starford/vantage/internal/stream"
)

// StatusSink receives agent status updates. Semantics are
// last-write-wins; an empty message clears the indicator.
type StatusSink interface {
	SetStatus(message string)
}

// MapGenerator expands a topic into a set of connected nodes. It is an
// external collaborator; the dispatcher only hands it the topic.
type MapGenerator interface {
	GenerateMap(ctx context.Context, topic string) error
}

// Dispatcher turns directives into GraphStore mutations. One instance
// belongs to one chat session: its dedupe set spans exactly that
// session, absorbing the same logical action arriving via both the live
// per-chunk path and the end-of-stream re-scan.
type Dispatcher struct {
	store   graph.Store
	status  StatusSink
	mapGen  MapGenerator
	anchor  models.Point
	applied map[string]struct{}
	logger  *slog.Logger
}

// New creates a dispatcher for one session. mapGen may be nil, in which
// case generate_map actions are logged and skipped.
func New(store graph.Store, status StatusSink, mapGen MapGenerator, anchor models.Point, logger *slog.Logger) *Dispatcher {
	if logger == nil {
		logger = slog.Default()
	}
	return &Dispatcher{
		store:   store,
		status:  status,
		mapGen:  mapGen,
		anchor:  anchor,
		applied: make(map[string]struct{}),
		logger:  logger,
	}
}

// Apply handles one directive event. Text events are ignored; they are
// the caller's concern.
func (d *Dispatcher) Apply(ctx context.Context, ev stream.Event) {
	switch ev.Kind {
	case stream.EventStatus:
		if d.status != nil {
			d.status.SetStatus(ev.Status)
		}
	case stream.EventAction:
		d.applyAction(ctx, ev.Action)
	}
}

func (d *Dispatcher) applyAction(ctx context.Context, a *stream.Action) {
	key := string(a.Type) + "\x00" + deriveTitle(a)
	if _, done := d.applied[key]; done {
		return
	}

	applied := false
	var err error
	switch a.Type {
	case stream.ActionCreateNode, stream.ActionCreateResearch:
		err = d.createNode(a)
		applied = err == nil
	case stream.ActionCreateChart:
		err = d.createChart(a)
		applied = err == nil
	case stream.ActionCreateMetric:
		err = d.createMetric(a)
		applied = err == nil
	case stream.ActionCreateCompany:
		err = d.createCompany(a)
		applied = err == nil
	case stream.ActionConnectNodes:
		// Marked applied only when an edge mutation actually happened:
		// an unresolved-title no-op leaves the key free, so an identical
		// payload re-delivered after the endpoint appears can still
		// connect.
		applied, err = d.connectNodes(a)
	case stream.ActionUpdateNode:
		// Accepted for compatibility; node edits arrive through the
		// HTTP API, not the stream.
		d.logger.Info("dispatch: update_node ignored", slog.String("title", a.Data.Title))
	case stream.ActionGenerateMap:
		if d.mapGen == nil {
			d.logger.Warn("dispatch: no map generator configured", slog.String("topic", a.Data.Topic))
		} else {
			err = d.mapGen.GenerateMap(ctx, a.Data.Topic)
			applied = err == nil
		}
	default:
		d.logger.Info("dispatch: unknown action type, skipping", slog.String("type", string(a.Type)))
	}

	if err != nil {
		d.logger.Warn("dispatch: action failed",
			slog.String("type", string(a.Type)),
			slog.String("error", err.Error()))
		return
	}
	if applied {
		d.applied[key] = struct{}{}
	}
}

// deriveTitle produces the display title used in the dedupe key. Two
// distinct intended entities sharing a title are merged; this heuristic
// is deliberate, inherited behavior.
func deriveTitle(a *stream.Action) string {
	if a.Data.Title != "" {
		return a.Data.Title
	}
	switch a.Type {
	case stream.ActionCreateChart:
		return strings.ToUpper(a.Data.Chart.Ticker) + " Chart"
	case stream.ActionCreateMetric:
		return a.Data.Metric.Label
	case stream.ActionCreateCompany:
		return strings.ToUpper(a.Data.Company.Ticker)
	case stream.ActionConnectNodes:
		return a.Data.SourceTitle + "->" + a.Data.TargetTitle
	case stream.ActionGenerateMap:
		return a.Data.Topic
	}
	return "Note"
}

// placeNew fetches a fresh node snapshot and spiral-places a new node.
// The snapshot is taken at dispatch time, not session start, so several
// creations within one stream do not collide with each other.
func (d *Dispatcher) placeNew() (models.Point, error) {
	nodes, err := d.store.ListNodes()
	if err != nil {
		return models.Point{}, fmt.Errorf("dispatch: snapshot nodes: %w", err)
	}
	return place.Place(d.anchor, place.Boxes(nodes)), nil
}

func (d *Dispatcher) create(n models.Node) error {
	pos, err := d.placeNew()
	if err != nil {
		return err
	}
	n.X, n.Y = pos.X, pos.Y
	if _, err := d.store.CreateNode(n); err != nil {
		return fmt.Errorf("dispatch: create node: %w", err)
	}
	return nil
}

func (d *Dispatcher) createNode(a *stream.Action) error {
	typ := models.NodeType(a.Data.NodeType)
	if !models.ValidNodeType(typ) {
		typ = models.NodeText
		if a.Type == stream.ActionCreateResearch {
			typ = models.NodeResearch
		}
	}
	data := models.NodeData{Summary: a.Data.Summary}
	if a.Data.Text != nil {
		data.Content = a.Data.Text.Content
	}
	return d.create(models.Node{Title: deriveTitle(a), Type: typ, Data: data})
}

func (d *Dispatcher) createChart(a *stream.Action) error {
	chart := *a.Data.Chart
	chart.Ticker = strings.ToUpper(chart.Ticker)
	if chart.ChartType == "" {
		chart.ChartType = "line"
	}
	if chart.Timeframe == "" {
		chart.Timeframe = "1M"
	}
	return d.create(models.Node{
		Title: deriveTitle(a),
		Type:  models.NodeChart,
		Data:  models.NodeData{Chart: &chart},
	})
}

func (d *Dispatcher) createMetric(a *stream.Action) error {
	metric := *a.Data.Metric
	metric.Ticker = strings.ToUpper(metric.Ticker)
	return d.create(models.Node{
		Title: deriveTitle(a),
		Type:  models.NodeMetric,
		Data:  models.NodeData{Metric: &metric},
	})
}

func (d *Dispatcher) createCompany(a *stream.Action) error {
	company := *a.Data.Company
	company.Ticker = strings.ToUpper(company.Ticker)
	return d.create(models.Node{
		Title: deriveTitle(a),
		Type:  models.NodeCompany,
		Data:  models.NodeData{Company: &company},
	})
}

// connectNodes resolves both endpoint titles against a fresh snapshot;
// the endpoints may themselves have been created earlier in the same
// stream. An unresolved title makes the whole action a no-op: it is not
// queued or retried once the node later appears.
func (d *Dispatcher) connectNodes(a *stream.Action) (bool, error) {
	source, err := d.store.FindNodeByTitle(a.Data.SourceTitle, true)
	if err != nil {
		d.logger.Info("dispatch: connect source not found, skipping",
			slog.String("title", a.Data.SourceTitle))
		return false, nil
	}
	target, err := d.store.FindNodeByTitle(a.Data.TargetTitle, true)
	if err != nil {
		d.logger.Info("dispatch: connect target not found, skipping",
			slog.String("title", a.Data.TargetTitle))
		return false, nil
	}
	if _, _, err := d.store.CreateEdge(source.ID, target.ID, a.Data.Relationship); err != nil {
		return false, fmt.Errorf("dispatch: create edge: %w", err)
	}
	return true, nil
}
