package app

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
)

// TouchNotifySignal writes the latest journal ID to the signal file so fsnotify
// followers in other processes can detect new rows. Creates parent dir and file if needed.
func TouchNotifySignal(signalPath string, rev int64) error {
	if signalPath == "" {
		return nil
	}
	dir := filepath.Dir(signalPath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("create signal file dir: %w", err)
	}
	return os.WriteFile(signalPath, []byte(strconv.FormatInt(rev, 10)), 0644)
}

// ReadNotifySignal returns the revision last written by TouchNotifySignal,
// or 0 when the file is missing or unreadable.
func ReadNotifySignal(signalPath string) int64 {
	data, err := os.ReadFile(signalPath)
	if err != nil {
		return 0
	}
	rev, err := strconv.ParseInt(strings.TrimSpace(string(data)), 10, 64)
	if err != nil {
		return 0
	}
	return rev
}
