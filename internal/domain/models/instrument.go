package models

// DateRange holds the raw min/max timestamps reported by the store.
type DateRange struct {
	Start string `json:"start"`
	End   string `json:"end"`
}

// Instrument describes one trading table discovered by the catalog.
type Instrument struct {
	TableName   string    `json:"table_name"`
	Instrument  string    `json:"instrument"`
	RecordCount int64     `json:"record_count"`
	DateRange   DateRange `json:"date_range"`
	DisplayName string    `json:"display_name"`
}

// TableStats is the row count and timestamp span of a table.
// MinTS/MaxTS are empty when the table has no rows.
type TableStats struct {
	Count int64
	MinTS string
	MaxTS string
}
