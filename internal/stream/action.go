package stream

import (
	"encoding/json"
	"fmt"

	validation "github.com/go-ozzo/ozzo-validation/v4"

	"github.com/starford/vantage/internal/models"
)

// ActionType identifies the board mutation an action requests.
type ActionType string

const (
	ActionCreateNode     ActionType = "create_node"
	ActionCreateResearch ActionType = "create_research"
	ActionCreateChart    ActionType = "create_chart"
	ActionCreateMetric   ActionType = "create_metric"
	ActionCreateCompany  ActionType = "create_company"
	ActionUpdateNode     ActionType = "update_node"
	ActionConnectNodes   ActionType = "connect_nodes"
	ActionGenerateMap    ActionType = "generate_map"
)

// Action is the payload of an ACTION directive: a discriminated union
// keyed by Type. Unknown types survive decoding and are no-ops at
// dispatch time.
type Action struct {
	Type ActionType `json:"type"`
	Data ActionData `json:"data"`
}

// ActionData carries the per-variant fields. Only the fields relevant to
// the action's type are populated.
type ActionData struct {
	Title        string `json:"title,omitempty"`
	NodeType     string `json:"node_type,omitempty"`
	Summary      string `json:"summary,omitempty"`
	InitialQuery string `json:"initial_query,omitempty"`

	Chart   *models.ChartData   `json:"chart,omitempty"`
	Metric  *models.MetricData  `json:"metric,omitempty"`
	Company *models.CompanyData `json:"company,omitempty"`
	Text    *TextPayload        `json:"data,omitempty"`

	SourceTitle  string `json:"source_title,omitempty"`
	TargetTitle  string `json:"target_title,omitempty"`
	Relationship string `json:"relationship,omitempty"`

	Topic string `json:"topic,omitempty"`
	Depth string `json:"depth,omitempty"`
}

// TextPayload is the nested content object of create_node actions.
type TextPayload struct {
	Content string `json:"content"`
}

// ParseAction decodes and validates an ACTION payload. Validation covers
// the fields each known variant requires; unknown variants pass so the
// dispatcher can log and skip them.
func ParseAction(payload []byte) (*Action, error) {
	var a Action
	if err := json.Unmarshal(payload, &a); err != nil {
		return nil, fmt.Errorf("decode action: %w", err)
	}
	if a.Type == "" {
		return nil, fmt.Errorf("action type is missing")
	}
	if err := a.Validate(); err != nil {
		return nil, fmt.Errorf("invalid %s action: %w", a.Type, err)
	}
	return &a, nil
}

// Validate checks the per-variant required fields.
func (a Action) Validate() error {
	switch a.Type {
	case ActionCreateChart:
		if a.Data.Chart == nil {
			return fmt.Errorf("chart payload is required")
		}
		return validation.ValidateStruct(a.Data.Chart,
			validation.Field(&a.Data.Chart.Ticker, validation.Required),
		)
	case ActionCreateMetric:
		if a.Data.Metric == nil {
			return fmt.Errorf("metric payload is required")
		}
		return validation.ValidateStruct(a.Data.Metric,
			validation.Field(&a.Data.Metric.Label, validation.Required),
			validation.Field(&a.Data.Metric.Value, validation.Required),
		)
	case ActionCreateCompany:
		if a.Data.Company == nil {
			return fmt.Errorf("company payload is required")
		}
		return validation.ValidateStruct(a.Data.Company,
			validation.Field(&a.Data.Company.Ticker, validation.Required),
		)
	case ActionConnectNodes:
		return validation.ValidateStruct(&a.Data,
			validation.Field(&a.Data.SourceTitle, validation.Required),
			validation.Field(&a.Data.TargetTitle, validation.Required),
		)
	case ActionGenerateMap:
		return validation.ValidateStruct(&a.Data,
			validation.Field(&a.Data.Topic, validation.Required),
		)
	}
	return nil
}
