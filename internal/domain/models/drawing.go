package models

import (
	"encoding/json"
	"time"
)

// Drawing is a saved set of chart annotations.
type Drawing struct {
	ID          int64           `json:"id"`
	Name        string          `json:"name"`
	Layout      int             `json:"layout"`
	Instruments []string        `json:"instruments"`
	Timeframe   string          `json:"timeframe"`
	StartDate   *string         `json:"start_date"`
	EndDate     *string         `json:"end_date"`
	Drawings    json.RawMessage `json:"drawings"`
	CreatedAt   time.Time       `json:"created_at"`
}

// DrawingSummary is the list projection of a Drawing.
type DrawingSummary struct {
	ID          int64     `json:"id"`
	Name        string    `json:"name"`
	CreatedAt   time.Time `json:"created_at"`
	Layout      int       `json:"layout"`
	Instruments string    `json:"instruments"`
	Timeframe   string    `json:"timeframe"`
}

// Pagination describes one page of a listing.
type Pagination struct {
	Page    int   `json:"page"`
	PerPage int   `json:"per_page"`
	Total   int64 `json:"total"`
	Pages   int64 `json:"pages"`
}

// DrawingPage is a page of drawing summaries.
type DrawingPage struct {
	Drawings   []DrawingSummary `json:"drawings"`
	Pagination Pagination       `json:"pagination"`
}
