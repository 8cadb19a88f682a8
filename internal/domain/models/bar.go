package models

import "time"

// Bar is one OHLCV observation keyed by its bar end timestamp.
// Timestamp is wall-clock time of the source table; it carries no zone information.
type Bar struct {
	Timestamp time.Time
	Open      float64
	High      float64
	Low       float64
	Close     float64
	Volume    int64
}

// AggregatedBar is a bucket of source bars reduced to a single OHLCV row.
type AggregatedBar struct {
	PeriodStart time.Time
	Open        float64
	High        float64
	Low         float64
	Close       float64
	Volume      int64
	BarCount    int
}

// BarRow is the JSON shape of one bar served by the data API.
// BarCount is only set for aggregated timeframes.
type BarRow struct {
	Datetime string  `json:"datetime"`
	Open     float64 `json:"open"`
	High     float64 `json:"high"`
	Low      float64 `json:"low"`
	Close    float64 `json:"close"`
	Volume   int64   `json:"volume"`
	BarCount int     `json:"bar_count,omitempty"`
}

// RawExportRow is a raw bar in export files; names follow the store columns.
type RawExportRow struct {
	BarEndDatetime string  `json:"bar_end_datetime" parquet:"bar_end_datetime"`
	OpenPrice      float64 `json:"open_price" parquet:"open_price"`
	HighPrice      float64 `json:"high_price" parquet:"high_price"`
	LowPrice       float64 `json:"low_price" parquet:"low_price"`
	ClosePrice     float64 `json:"close_price" parquet:"close_price"`
	Volume         int64   `json:"volume" parquet:"volume"`
}

// AggregatedExportRow is an aggregated bar in export files.
type AggregatedExportRow struct {
	BarEndDatetime string  `json:"bar_end_datetime" parquet:"bar_end_datetime"`
	OpenPrice      float64 `json:"open_price" parquet:"open_price"`
	HighPrice      float64 `json:"high_price" parquet:"high_price"`
	LowPrice       float64 `json:"low_price" parquet:"low_price"`
	ClosePrice     float64 `json:"close_price" parquet:"close_price"`
	Volume         int64   `json:"volume" parquet:"volume"`
	Timeframe      string  `json:"timeframe" parquet:"timeframe"`
	BarCount       int64   `json:"bar_count" parquet:"bar_count"`
}
