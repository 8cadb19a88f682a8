package models

import "encoding/json"

// Requests for HTTP endpoints. Defined in domain for consistency and reuse.

type DataRequest struct {
	Table     string `param:"table" validate:"required,max=128"`
	Timeframe string `query:"timeframe" default:"1min"`
	StartDate string `query:"start_date" validate:"omitempty,datetime=2006-01-02"`
	EndDate   string `query:"end_date" validate:"omitempty,datetime=2006-01-02"`
	Limit     int    `query:"limit" validate:"gte=0"`
}

type DownloadRequest struct {
	DataRequest
	Format string `query:"format" default:"csv"`
}

type DrawingListRequest struct {
	Page    int `query:"page" default:"1"`
	PerPage int `query:"per_page" default:"50"`
}

type SaveDrawingRequest struct {
	Name        string          `json:"name" validate:"required"`
	Layout      int             `json:"layout" default:"1"`
	Instruments json.RawMessage `json:"instruments"`
	Timeframe   string          `json:"timeframe" default:"1min"`
	StartDate   *string         `json:"start_date"`
	EndDate     *string         `json:"end_date"`
	Drawings    json.RawMessage `json:"drawings"`
}
