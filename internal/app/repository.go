// Package app implements the polling use case and defines its ports
// (display surface and update journal).
package app

import "github.com/jaakkos/statusboard/internal/domain"

// Surface is a display that holds one plain-text value per element.
// Implementations must be safe for concurrent calls: the three fetches of a
// cycle complete on their own goroutines.
type Surface interface {
	SetText(element, text string)
}

// JournalReader reads recorded updates.
type JournalReader interface {
	// Since returns updates with ID > afterID in ascending ID order.
	Since(afterID int64, limit int) ([]domain.Update, error)
	// Recent returns the newest updates first. An empty element means all elements.
	Recent(element string, limit int) ([]domain.Update, error)
}

// Journal records every rendered write.
// Implementation: internal/repository/sqlite.
type Journal interface {
	JournalReader
	Append(u domain.Update) (int64, error)
	Prune(maxPerElement int) (int64, error)
}
