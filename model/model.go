package model

import (
	"time"

	"github.com/goccy/go-json"
)

// Categories is the closed set of equipment sections, in report order.
// The rest of the code never interprets the names, it only iterates them.
var Categories = []string{
	"plakety", "chl", "chl_pris", "vh_hlavy", "kohouty", "kohout_dily",
	"narazec", "odkapniky", "plyn", "hadice_python", "spojky", "tesneni",
	"sanitace", "vh_prisl", "drzaky_desky", "izolace", "techno", "tank",
	"ostatni", "pulty",
}

// LineItem is one row of an equipment section: a product code and a
// free-form quantity.
type LineItem struct {
	Code string `json:"value"`
	Qty  string `json:"qty"`
}

// Snapshot is the full state of one survey form. Placement and Agreements
// are opaque to this program, their keys belong to the form layout.
// Items and Notes are keyed by category name; a missing key means the
// section was not filled.
type Snapshot struct {
	SAPID       string
	SiteName    string
	TrackNumber string
	RequestedAt string
	Address     string
	Contact     string
	FilledBy    string
	FilledAt    string
	Placement   map[string]any
	Agreements  map[string]any
	Items       map[string][]LineItem
	Notes       map[string]string
}

// DraftRecord wraps a Snapshot for local persistence.
type DraftRecord struct {
	SavedAt time.Time `json:"savedAt"`
	Data    Snapshot  `json:"data"`
}

// Task is one pending webhook POST. Body keeps the originally attempted
// payload verbatim so a replay sends identical bytes.
type Task struct {
	ID       string            `json:"id"`
	URL      string            `json:"url"`
	Body     json.RawMessage   `json:"body"`
	Headers  map[string]string `json:"headers,omitempty"`
	QueuedAt time.Time         `json:"queuedAt"`
}

// Result is the structured outcome of one submission attempt.
type Result struct {
	OK     bool `json:"ok,omitempty"`
	Queued bool `json:"queued,omitempty"`
}
