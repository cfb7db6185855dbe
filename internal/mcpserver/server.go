// Package mcpserver provides an MCP (Model Context Protocol) server
// that exposes layer lookup and coverage tools over stdio.
package mcpserver

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/starford/layerline/internal/apperr"
	"github.com/starford/layerline/internal/catalog"
	"github.com/starford/layerline/internal/index"
	"github.com/starford/layerline/internal/layerservice"
)

// ContractURI is the resource URI of the layer format contract.
const ContractURI = "layerline://layer-format"

// Server wraps the MCP server with layer tools.
type Server struct {
	mcp  *server.MCPServer
	svc  *layerservice.Service
	axis layerservice.AxisDefaults
}

// New creates a new MCP server with all layer tools registered.
func New(svc *layerservice.Service, axis layerservice.AxisDefaults, version string) *Server {
	s := &Server{svc: svc, axis: axis}

	s.mcp = server.NewMCPServer(
		"layerline",
		version,
		server.WithToolCapabilities(false),
		server.WithResourceCapabilities(false, false),
	)

	s.mcp.AddTool(mcp.NewTool("list_layers",
		mcp.WithDescription("List catalogue layers, ordered by id."),
		mcp.WithBoolean("visible", mcp.Description("Only layers with this visibility")),
		mcp.WithNumber("limit", mcp.Description("Page size (default 50)")),
		mcp.WithNumber("offset", mcp.Description("Page offset")),
	), s.listLayers)

	s.mcp.AddTool(mcp.NewTool("get_layer",
		mcp.WithDescription("Return the YAML definition of one layer."),
		mcp.WithString("id", mcp.Required(), mcp.Description("Layer id")),
	), s.getLayer)

	s.mcp.AddTool(mcp.NewTool("search_layers",
		mcp.WithDescription("Search layers by id, title and subtitle."),
		mcp.WithString("query", mcp.Required(), mcp.Description("Search query string")),
	), s.searchLayers)

	s.mcp.AddTool(mcp.NewTool("layer_coverage",
		mcp.WithDescription("Compute the timeline coverage lines of one or more layers "+
			"for a visible time window. Dates are ISO-8601."),
		mcp.WithString("layers", mcp.Required(), mcp.Description("Comma-separated layer ids")),
		mcp.WithString("front", mcp.Required(), mcp.Description("One axis boundary")),
		mcp.WithString("back", mcp.Required(), mcp.Description("The other axis boundary")),
		mcp.WithString("now", mcp.Description("Current time, defaults to the server clock")),
		mcp.WithString("zoom", mcp.Description("Zoom unit: year, month, day, hour or minute")),
		mcp.WithNumber("width", mcp.Description("Axis width in pixels")),
	), s.layerCoverage)

	s.mcp.AddTool(mcp.NewTool("get_layer_contract",
		mcp.WithDescription("Returns the layer definition format. "+
			"Call this before describing or proposing layer definitions."),
	), s.getLayerContract)

	s.mcp.AddResource(
		mcp.NewResource(ContractURI, "Layer Format Contract",
			mcp.WithResourceDescription("YAML format of layer definition files."),
			mcp.WithMIMEType("text/markdown"),
		),
		s.readLayerFormatResource,
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

func jsonResult(v any) (*mcp.CallToolResult, error) {
	out, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return mcp.NewToolResultText(string(out)), nil
}

func (s *Server) listLayers(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	q := index.ListQuery{
		Limit:  req.GetInt("limit", 50),
		Offset: req.GetInt("offset", 0),
	}
	if _, ok := req.GetArguments()["visible"]; ok {
		v := req.GetBool("visible", false)
		q.Visible = &v
	}
	rows, total, err := s.svc.ListLayers(ctx, q)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	type item struct {
		ID     string `json:"id"`
		Title  string `json:"title"`
		Period string `json:"period"`
		Header string `json:"dates"`
	}
	items := make([]item, len(rows))
	for i, r := range rows {
		items[i] = item{ID: r.ID, Title: r.Title, Period: r.Period, Header: headerOf(r)}
	}
	return jsonResult(map[string]any{"layers": items, "total": total})
}

func (s *Server) getLayer(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id, err := req.RequireString("id")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	row, err := s.svc.GetLayer(ctx, id)
	if err != nil {
		if errors.Is(err, apperr.ErrNotFound) {
			return mcp.NewToolResultError(fmt.Sprintf("not found: %s", id)), nil
		}
		return mcp.NewToolResultError(err.Error()), nil
	}
	data, err := catalog.Marshal(&row.Layer)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return mcp.NewToolResultText(string(data)), nil
}

func (s *Server) searchLayers(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	query, err := req.RequireString("query")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	results, err := s.svc.Search(ctx, query, 20)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return jsonResult(results)
}

func (s *Server) layerCoverage(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	layers, err := req.RequireString("layers")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	q := url.Values{}
	for _, name := range []string{"front", "back", "now", "zoom"} {
		if v := req.GetString(name, ""); v != "" {
			q.Set(name, v)
		}
	}
	if w := req.GetFloat("width", 0); w > 0 {
		q.Set("width", fmt.Sprint(w))
	}
	axis, err := layerservice.ParseAxis(q, s.axis)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	var ids []string
	for _, id := range strings.Split(layers, ",") {
		if id = strings.TrimSpace(id); id != "" {
			ids = append(ids, id)
		}
	}
	if len(ids) == 0 {
		return mcp.NewToolResultError("at least one layer id is required"), nil
	}
	cov, err := s.svc.CoverageAll(ctx, ids, axis)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return jsonResult(cov)
}

func (s *Server) getLayerContract(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return mcp.NewToolResultText(LayerFormatContract), nil
}

func (s *Server) readLayerFormatResource(ctx context.Context, req mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
	return []mcp.ResourceContents{
		mcp.TextResourceContents{
			URI:      ContractURI,
			MIMEType: "text/markdown",
			Text:     LayerFormatContract,
		},
	}, nil
}
