package view

import (
	"context"
	"fmt"
	"log"
	"strings"

	"github.com/dustin/go-humanize"
	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/jaakkos/statusboard/internal/app"
	"github.com/jaakkos/statusboard/internal/domain"
)

const maxHistoryLimit = 100

// registerReadHistory registers the read_history tool.
func registerReadHistory(s *server.MCPServer, journal app.JournalReader, logger *log.Logger) {
	s.AddTool(
		mcp.NewTool("read_history",
			mcp.WithDescription("Read recent journal entries, newest first. Each entry is one text written to a panel."),
			mcp.WithString("element", mcp.Description("Only entries for this panel (default: all)"), mcp.Enum(domain.Elements()...)),
			mcp.WithNumber("limit", mcp.Description("Maximum number of entries to return (default: 10, max: 100)")),
		),
		func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
			args := req.GetArguments()
			element := optionalString(args, "element")
			if element != "" && !domain.IsElement(element) {
				return nil, fmt.Errorf("unknown element %q", element)
			}
			limit := int(optionalFloat64(args, "limit", 10))
			if limit <= 0 {
				limit = 10
			}
			limit = min(limit, maxHistoryLimit)

			rows, err := journal.Recent(element, limit)
			if err != nil {
				logger.Printf("read_history: %v", err)
				return nil, fmt.Errorf("read journal: %w", err)
			}
			if len(rows) == 0 {
				return mcp.NewToolResultText("No journal entries."), nil
			}

			var b strings.Builder
			for i, u := range rows {
				if i > 0 {
					b.WriteString("\n")
				}
				fmt.Fprintf(&b, "#%d %s from %s, %s (cycle %s)\n%s\n",
					u.ID, u.Element, u.Endpoint, humanize.Time(u.RecordedAt), u.CycleID, u.Text)
			}
			return mcp.NewToolResultText(b.String()), nil
		},
	)
}
