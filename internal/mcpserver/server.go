// Package mcpserver provides an MCP (Model Context Protocol) server
// that exposes whiteboard tools for LLM integration via stdio
// transport. Mutating tools do not touch the store directly: they
// return framed action directives that the streaming pipeline parses
// and dispatches, so MCP-driven and chat-driven mutations follow the
// same path.
package mcpserver

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/starford/vantage/internal/graph"
	"github.com/starford/vantage/internal/models"
	"github.com/starford/vantage/internal/stream"
)

// portfolioLimit caps analyze_portfolio fan-out to keep the board
// readable.
const portfolioLimit = 6

// Server wraps the MCP server with whiteboard tools.
type Server struct {
	mcp   *server.MCPServer
	store graph.Store
}

// New creates a new MCP server with all whiteboard tools registered.
func New(store graph.Store) *Server {
	s := &Server{store: store}

	s.mcp = server.NewMCPServer(
		"Vantage",
		"1.0.0",
		server.WithToolCapabilities(false),
		server.WithResourceCapabilities(false, false),
	)

	s.mcp.AddTool(mcp.NewTool("create_research_node",
		mcp.WithDescription("Create a research node on the whiteboard. Use when the user wants to start researching a topic."),
		mcp.WithString("title", mcp.Required(), mcp.Description("Title of the research node")),
		mcp.WithString("summary", mcp.Description("Brief description or context for the research")),
		mcp.WithString("initial_query", mcp.Description("Optional initial research query")),
	), s.createResearchNode)

	s.mcp.AddTool(mcp.NewTool("create_chart_node",
		mcp.WithDescription("Create a stock chart node. Use when the user asks to visualize price data."),
		mcp.WithString("ticker", mcp.Required(), mcp.Description("Stock ticker symbol, e.g. AAPL")),
		mcp.WithString("chart_type", mcp.Description("line, area, or bar")),
		mcp.WithString("timeframe", mcp.Description("1D, 1W, 1M, 3M, 6M, or 1Y")),
		mcp.WithString("title", mcp.Description("Optional custom title")),
	), s.createChartNode)

	s.mcp.AddTool(mcp.NewTool("create_metric_node",
		mcp.WithDescription("Create a metric/KPI node highlighting a key figure."),
		mcp.WithString("label", mcp.Required(), mcp.Description("Name of the metric, e.g. Market Cap")),
		mcp.WithString("value", mcp.Required(), mcp.Description("The metric value, e.g. $2.89T")),
		mcp.WithString("ticker", mcp.Description("Optional ticker if company-specific")),
		mcp.WithString("trend", mcp.Description("up, down, or neutral")),
		mcp.WithString("unit", mcp.Description("Optional unit label")),
	), s.createMetricNode)

	s.mcp.AddTool(mcp.NewTool("create_company_node",
		mcp.WithDescription("Create a company profile node."),
		mcp.WithString("ticker", mcp.Required(), mcp.Description("Stock ticker symbol")),
		mcp.WithString("name", mcp.Description("Full company name")),
		mcp.WithString("sector", mcp.Description("Industry sector")),
		mcp.WithString("market_cap", mcp.Description("Market capitalization, e.g. $2.89T")),
		mcp.WithString("description", mcp.Description("Brief company description")),
	), s.createCompanyNode)

	s.mcp.AddTool(mcp.NewTool("create_text_node",
		mcp.WithDescription("Create a text/notes node for observations or summaries."),
		mcp.WithString("title", mcp.Required(), mcp.Description("Title for the text node")),
		mcp.WithString("content", mcp.Required(), mcp.Description("The text content to display")),
	), s.createTextNode)

	s.mcp.AddTool(mcp.NewTool("connect_nodes",
		mcp.WithDescription("Create a connection between two whiteboard nodes, referenced by title."),
		mcp.WithString("source_title", mcp.Required(), mcp.Description("Title of the source node")),
		mcp.WithString("target_title", mcp.Required(), mcp.Description("Title of the target node")),
		mcp.WithString("relationship", mcp.Description("Optional label for the relationship")),
	), s.connectNodes)

	s.mcp.AddTool(mcp.NewTool("generate_knowledge_map",
		mcp.WithDescription("Generate a knowledge map of interconnected nodes for a topic."),
		mcp.WithString("topic", mcp.Required(), mcp.Description("The central topic to map")),
		mcp.WithString("depth", mcp.Description("quick, medium, or detailed")),
	), s.generateKnowledgeMap)

	s.mcp.AddTool(mcp.NewTool("analyze_portfolio",
		mcp.WithDescription("Create chart nodes for a comma-separated list of tickers (max 6)."),
		mcp.WithString("tickers", mcp.Required(), mcp.Description("Comma-separated ticker symbols, e.g. AAPL,MSFT,GOOGL")),
	), s.analyzePortfolio)

	s.mcp.AddTool(mcp.NewTool("search_board",
		mcp.WithDescription("Full-text search across whiteboard node titles and payloads."),
		mcp.WithString("query", mcp.Required(), mcp.Description("Search query string")),
	), s.searchBoard)

	s.mcp.AddTool(mcp.NewTool("read_node",
		mcp.WithDescription("Read a whiteboard node and its recent conversation."),
		mcp.WithString("id", mcp.Required(), mcp.Description("Node id")),
	), s.readNode)

	s.mcp.AddTool(mcp.NewTool("list_nodes",
		mcp.WithDescription("List all nodes currently on the whiteboard."),
	), s.listNodes)

	// Resource: action wire format contract.
	s.mcp.AddResource(
		mcp.NewResource("vantage://action-format", "Action Format Contract",
			mcp.WithResourceDescription("Framed directive grammar that whiteboard tools emit into the token stream."),
			mcp.WithMIMEType("text/markdown"),
		),
		s.readActionFormatResource,
	)

	return s
}

// ServeStdio starts the MCP server on stdin/stdout.
func (s *Server) ServeStdio() error {
	return server.ServeStdio(s.mcp)
}

// MCPServer returns the underlying server for testing.
func (s *Server) MCPServer() *server.MCPServer {
	return s.mcp
}

// emitAction frames an action for the streaming pipeline. The
// surrounding newlines keep the frame clear of adjacent prose.
func emitAction(a stream.Action) (*mcp.CallToolResult, error) {
	raw, err := json.Marshal(a)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return mcp.NewToolResultText(fmt.Sprintf("\n<<<ACTION:%s:ACTION>>>\n", raw)), nil
}

func optString(req mcp.CallToolRequest, key string) string {
	v, err := req.RequireString(key)
	if err != nil {
		return ""
	}
	return v
}

func (s *Server) createResearchNode(_ context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	title, err := req.RequireString("title")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return emitAction(stream.Action{
		Type: stream.ActionCreateResearch,
		Data: stream.ActionData{
			Title:        title,
			NodeType:     string(models.NodeResearch),
			Summary:      optString(req, "summary"),
			InitialQuery: optString(req, "initial_query"),
		},
	})
}

func (s *Server) createChartNode(_ context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	ticker, err := req.RequireString("ticker")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	ticker = strings.ToUpper(ticker)
	title := optString(req, "title")
	if title == "" {
		title = ticker + " Price Chart"
	}
	return emitAction(stream.Action{
		Type: stream.ActionCreateChart,
		Data: stream.ActionData{
			Title:    title,
			NodeType: string(models.NodeChart),
			Chart: &models.ChartData{
				Ticker:    ticker,
				ChartType: optString(req, "chart_type"),
				Timeframe: optString(req, "timeframe"),
				Title:     title,
			},
		},
	})
}

func (s *Server) createMetricNode(_ context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	label, err := req.RequireString("label")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	value, err := req.RequireString("value")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return emitAction(stream.Action{
		Type: stream.ActionCreateMetric,
		Data: stream.ActionData{
			Title:    label,
			NodeType: string(models.NodeMetric),
			Metric: &models.MetricData{
				Label:  label,
				Value:  value,
				Ticker: strings.ToUpper(optString(req, "ticker")),
				Trend:  optString(req, "trend"),
				Unit:   optString(req, "unit"),
			},
		},
	})
}

func (s *Server) createCompanyNode(_ context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	ticker, err := req.RequireString("ticker")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	ticker = strings.ToUpper(ticker)
	return emitAction(stream.Action{
		Type: stream.ActionCreateCompany,
		Data: stream.ActionData{
			Title:    ticker,
			NodeType: string(models.NodeCompany),
			Company: &models.CompanyData{
				Ticker:      ticker,
				Name:        optString(req, "name"),
				Sector:      optString(req, "sector"),
				MarketCap:   optString(req, "market_cap"),
				Description: optString(req, "description"),
			},
		},
	})
}

func (s *Server) createTextNode(_ context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	title, err := req.RequireString("title")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	content, err := req.RequireString("content")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return emitAction(stream.Action{
		Type: stream.ActionCreateNode,
		Data: stream.ActionData{
			Title:    title,
			NodeType: string(models.NodeText),
			Text:     &stream.TextPayload{Content: content},
		},
	})
}

func (s *Server) connectNodes(_ context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	source, err := req.RequireString("source_title")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	target, err := req.RequireString("target_title")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return emitAction(stream.Action{
		Type: stream.ActionConnectNodes,
		Data: stream.ActionData{
			SourceTitle:  source,
			TargetTitle:  target,
			Relationship: optString(req, "relationship"),
		},
	})
}

func (s *Server) generateKnowledgeMap(_ context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	topic, err := req.RequireString("topic")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return emitAction(stream.Action{
		Type: stream.ActionGenerateMap,
		Data: stream.ActionData{
			Topic: topic,
			Depth: optString(req, "depth"),
		},
	})
}

func (s *Server) analyzePortfolio(_ context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	raw, err := req.RequireString("tickers")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	var tickers []string
	for _, t := range strings.Split(raw, ",") {
		if t = strings.ToUpper(strings.TrimSpace(t)); t != "" {
			tickers = append(tickers, t)
		}
	}
	if len(tickers) == 0 {
		return mcp.NewToolResultError("no tickers given"), nil
	}

	var b strings.Builder
	for i, ticker := range tickers {
		if i == portfolioLimit {
			break
		}
		title := ticker + " Chart"
		action := stream.Action{
			Type: stream.ActionCreateChart,
			Data: stream.ActionData{
				Title:    title,
				NodeType: string(models.NodeChart),
				Chart: &models.ChartData{
					Ticker:    ticker,
					ChartType: "line",
					Timeframe: "1M",
				},
			},
		}
		payload, err := json.Marshal(action)
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
		fmt.Fprintf(&b, "\n<<<ACTION:%s:ACTION>>>\n", payload)
	}
	fmt.Fprintf(&b, "\nCreated portfolio view for: %s", strings.Join(tickers, ", "))
	return mcp.NewToolResultText(b.String()), nil
}

func (s *Server) searchBoard(_ context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	query, err := req.RequireString("query")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	results, err := s.store.Search(query, 20)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	out, _ := json.MarshalIndent(results, "", "  ")
	return mcp.NewToolResultText(string(out)), nil
}

func (s *Server) readNode(_ context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id, err := req.RequireString("id")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	node, err := s.store.GetNode(id)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("not found: %s", id)), nil
	}
	messages, err := s.store.Messages(id, 10)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	out, _ := json.MarshalIndent(map[string]any{
		"node":     node,
		"messages": messages,
	}, "", "  ")
	return mcp.NewToolResultText(string(out)), nil
}

func (s *Server) listNodes(_ context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	nodes, err := s.store.ListNodes()
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	var lines []string
	for _, n := range nodes {
		lines = append(lines, fmt.Sprintf("%s\t%s\t%s", n.ID, n.Type, n.Title))
	}
	if len(lines) == 0 {
		return mcp.NewToolResultText("the board is empty"), nil
	}
	return mcp.NewToolResultText(strings.Join(lines, "\n")), nil
}

func (s *Server) readActionFormatResource(_ context.Context, req mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
	return []mcp.ResourceContents{
		mcp.TextResourceContents{
			URI:      "vantage://action-format",
			MIMEType: "text/markdown",
			Text:     ActionFormatContract,
		},
	}, nil
}
