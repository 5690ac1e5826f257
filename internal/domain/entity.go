// Package domain holds dashboard entities: endpoint descriptors, display
// panels and journal updates. It has no dependencies on other packages.
package domain

import "time"

// Display element ids. The host page (or console) exposes exactly these four
// text regions.
const (
	ElementStats       = "stats"
	ElementAnalyzer    = "analyzer"
	ElementRandomEvent = "random-event"
	ElementLastUpdated = "last-updated"
)

// Logical endpoint names.
const (
	EndpointStats       = "stats"
	EndpointAnalyzer    = "analyzer"
	EndpointRandomEvent = "random-event"
)

// Elements returns all display element ids in render order.
func Elements() []string {
	return []string{ElementStats, ElementAnalyzer, ElementRandomEvent, ElementLastUpdated}
}

// IsElement reports whether id names one of the display elements.
func IsElement(id string) bool {
	for _, e := range Elements() {
		if e == id {
			return true
		}
	}
	return false
}

// Endpoint is a fixed JSON URL polled every cycle and the display element it updates.
type Endpoint struct {
	Name    string `json:"name"`
	URL     string `json:"url"`
	Element string `json:"element"`
	// Stamp marks the endpoint whose successful render also stamps last-updated.
	Stamp bool `json:"stamp,omitempty"`
}

// Panel is the current content of one display element.
type Panel struct {
	Element   string    `json:"element"`
	Text      string    `json:"text"`
	UpdatedAt time.Time `json:"updated_at"`
	Revision  uint64    `json:"revision"`
}

// Update is one rendered write, as recorded in the journal.
type Update struct {
	ID         int64     `json:"id"`
	CycleID    string    `json:"cycle_id"`
	Element    string    `json:"element"`
	Endpoint   string    `json:"endpoint"`
	Text       string    `json:"text"`
	RecordedAt time.Time `json:"recorded_at"`
}
