// Package view exposes the display board as read-only MCP tools.
package view

import (
	"log"

	"github.com/mark3labs/mcp-go/server"

	"github.com/jaakkos/statusboard/internal/app"
	"github.com/jaakkos/statusboard/internal/domain"
)

// Board is the read side of board.Board.
type Board interface {
	Snapshot() []domain.Panel
	Panel(element string) (domain.Panel, bool)
}

// RegisterOption configures optional dependencies for tool registration.
type RegisterOption func(*registerOpts)

type registerOpts struct {
	journal app.JournalReader
}

// WithJournal enables the read_history tool.
func WithJournal(j app.JournalReader) RegisterOption {
	return func(o *registerOpts) { o.journal = j }
}

// Register registers the board tools with the mcp-go server.
func Register(s *server.MCPServer, board Board, endpoints []domain.Endpoint, logger *log.Logger, opts ...RegisterOption) {
	var o registerOpts
	for _, opt := range opts {
		opt(&o)
	}

	registerReadBoard(s, board)
	registerReadPanel(s, board)
	registerListEndpoints(s, endpoints)

	if o.journal != nil {
		registerReadHistory(s, o.journal, logger)
	}
}
