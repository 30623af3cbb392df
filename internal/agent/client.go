// Package agent talks to the upstream research agent service.
package agent

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// ResearchRequest is the body of POST /research.
type ResearchRequest struct {
	Query string `json:"query"`
	Model string `json:"model,omitempty"`
	Mode  string `json:"mode,omitempty"`
}

// KnowledgeMap is the response of POST /map.
type KnowledgeMap struct {
	Nodes []MapNode `json:"nodes"`
	Edges []MapEdge `json:"edges"`
}

// MapNode is one entry in a generated knowledge map. Type is one of
// concept, company, person.
type MapNode struct {
	ID      string `json:"id"`
	Label   string `json:"label"`
	Type    string `json:"type"`
	Summary string `json:"summary"`
}

// MapEdge connects two map nodes by their map-local ids.
type MapEdge struct {
	Source string `json:"source"`
	Target string `json:"target"`
	Label  string `json:"label"`
}

// Client is a thin HTTP client for the agent service. The service owns
// all LLM and market-data access; this side only streams tokens.
type Client struct {
	baseURL string
	model   string
	http    *http.Client
}

// NewClient creates an agent client. timeout bounds a whole research
// stream, not individual reads.
func NewClient(baseURL, model string, timeout time.Duration) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		model:   model,
		http:    &http.Client{Timeout: timeout},
	}
}

// Research opens a token stream for the query. The caller must drain
// and close the returned reader.
func (c *Client) Research(ctx context.Context, query, mode string) (io.ReadCloser, error) {
	body, err := json.Marshal(ResearchRequest{Query: query, Model: c.model, Mode: mode})
	if err != nil {
		return nil, err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/research", bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("agent: research request: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		resp.Body.Close()
		return nil, fmt.Errorf("agent: research returned %s", resp.Status)
	}
	return resp.Body, nil
}

// GenerateMap asks the agent for a knowledge map of the topic. The
// agent sometimes wraps the JSON in Markdown code fences; those are
// stripped before decoding.
func (c *Client) GenerateMap(ctx context.Context, topic string) (*KnowledgeMap, error) {
	body, err := json.Marshal(map[string]string{"topic": topic, "model": c.model})
	if err != nil {
		return nil, err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/map", bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("agent: map request: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("agent: map returned %s", resp.Status)
	}

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}
	var km KnowledgeMap
	if err := json.Unmarshal(stripFences(raw), &km); err != nil {
		return nil, fmt.Errorf("agent: decode map: %w", err)
	}
	return &km, nil
}

func stripFences(raw []byte) []byte {
	s := string(raw)
	s = strings.ReplaceAll(s, "```json", "")
	s = strings.ReplaceAll(s, "```", "")
	return []byte(strings.TrimSpace(s))
}
