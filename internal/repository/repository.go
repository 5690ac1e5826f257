package repository

import (
	"github.com/jaakkos/statusboard/internal/app"
	"github.com/jaakkos/statusboard/internal/repository/sqlite"
)

// NewJournal returns a Journal backed by SQLite at the given path.
// The path is typically from policy.JournalPath() (default ~/.config/statusboard/journal.sqlite).
func NewJournal(path string) (app.Journal, error) {
	return sqlite.New(path)
}
