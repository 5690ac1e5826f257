package view

import (
	"context"
	"fmt"
	"strings"

	"github.com/dustin/go-humanize"
	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/jaakkos/statusboard/internal/domain"
)

// registerReadBoard registers the read_board tool.
func registerReadBoard(s *server.MCPServer, board Board) {
	s.AddTool(
		mcp.NewTool("read_board",
			mcp.WithDescription("Read all four display panels (stats, analyzer, random-event, last-updated) exactly as currently shown."),
		),
		func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
			var b strings.Builder
			for i, p := range board.Snapshot() {
				if i > 0 {
					b.WriteString("\n")
				}
				writePanel(&b, p)
			}
			return mcp.NewToolResultText(b.String()), nil
		},
	)
}

// registerReadPanel registers the read_panel tool.
func registerReadPanel(s *server.MCPServer, board Board) {
	s.AddTool(
		mcp.NewTool("read_panel",
			mcp.WithDescription("Read the current text of one display panel."),
			mcp.WithString("element", mcp.Required(), mcp.Description("Panel to read"), mcp.Enum(domain.Elements()...)),
		),
		func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
			element, err := requireString(req.GetArguments(), "element")
			if err != nil {
				return nil, err
			}
			p, ok := board.Panel(element)
			if !ok {
				return nil, fmt.Errorf("unknown element %q (want one of %s)", element, strings.Join(domain.Elements(), ", "))
			}
			if p.UpdatedAt.IsZero() {
				return mcp.NewToolResultText(fmt.Sprintf("%s has not been written yet.", element)), nil
			}
			return mcp.NewToolResultText(p.Text), nil
		},
	)
}

// registerListEndpoints registers the list_endpoints tool.
func registerListEndpoints(s *server.MCPServer, endpoints []domain.Endpoint) {
	s.AddTool(
		mcp.NewTool("list_endpoints",
			mcp.WithDescription("List the polled service endpoints and the panel each one writes."),
		),
		func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
			var b strings.Builder
			for _, ep := range endpoints {
				fmt.Fprintf(&b, "%s -> %s  (%s)", ep.Name, ep.Element, ep.URL)
				if ep.Stamp {
					fmt.Fprintf(&b, "  also stamps %s", domain.ElementLastUpdated)
				}
				b.WriteString("\n")
			}
			return mcp.NewToolResultText(b.String()), nil
		},
	)
}

func writePanel(b *strings.Builder, p domain.Panel) {
	if p.UpdatedAt.IsZero() {
		fmt.Fprintf(b, "## %s (never updated)\n", p.Element)
		return
	}
	fmt.Fprintf(b, "## %s (updated %s)\n%s\n", p.Element, humanize.Time(p.UpdatedAt), p.Text)
}
