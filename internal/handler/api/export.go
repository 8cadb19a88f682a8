package api

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"BarView/internal/domain/models"
	domrepo "BarView/internal/domain/repository"

	"github.com/parquet-go/parquet-go"
)

// Exporter encodes bar rows into a download file.
type Exporter interface {
	Extension() string
	ContentType() string
	Raw(w io.Writer, rows []models.RawExportRow) error
	Aggregated(w io.Writer, rows []models.AggregatedExportRow) error
}

// SupportedFormats lists the accepted download formats.
func SupportedFormats() []string { return []string{"csv", "json", "parquet"} }

// NewExporter returns the encoder for format (csv, json, parquet).
func NewExporter(format string) (Exporter, error) {
	switch strings.ToLower(strings.TrimSpace(format)) {
	case "csv":
		return CSVExporter{}, nil
	case "json":
		return JSONExporter{}, nil
	case "parquet":
		return ParquetExporter{}, nil
	default:
		return nil, fmt.Errorf("%w: %q", domrepo.ErrInvalidFormat, format)
	}
}

// ExportFilename builds <table>_<tf>[_<start>_to_<end>]_<YYYYMMDD_HHMMSS>.<ext>.
// The date span is included only when both bounds were given.
func ExportFilename(table, timeframe, startDate, endDate string, at time.Time, ext string) string {
	base := table + "_" + timeframe
	if startDate != "" && endDate != "" {
		base += "_" + startDate + "_to_" + endDate
	}
	return base + "_" + at.Format("20060102_150405") + "." + ext
}

// CSVExporter writes a header row followed by one record per bar. No rows, no output.
type CSVExporter struct{}

var (
	rawCSVHeader        = []string{"bar_end_datetime", "open_price", "high_price", "low_price", "close_price", "volume"}
	aggregatedCSVHeader = append(append([]string(nil), rawCSVHeader...), "timeframe", "bar_count")
)

func (CSVExporter) Extension() string   { return "csv" }
func (CSVExporter) ContentType() string { return "text/csv; charset=utf-8" }

func (CSVExporter) Raw(w io.Writer, rows []models.RawExportRow) error {
	if len(rows) == 0 {
		return nil
	}
	cw := csv.NewWriter(w)
	if err := cw.Write(rawCSVHeader); err != nil {
		return err
	}
	for _, r := range rows {
		if err := cw.Write(rawRecord(r.BarEndDatetime, r.OpenPrice, r.HighPrice, r.LowPrice, r.ClosePrice, r.Volume)); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

func (CSVExporter) Aggregated(w io.Writer, rows []models.AggregatedExportRow) error {
	if len(rows) == 0 {
		return nil
	}
	cw := csv.NewWriter(w)
	if err := cw.Write(aggregatedCSVHeader); err != nil {
		return err
	}
	for _, r := range rows {
		rec := rawRecord(r.BarEndDatetime, r.OpenPrice, r.HighPrice, r.LowPrice, r.ClosePrice, r.Volume)
		rec = append(rec, r.Timeframe, strconv.FormatInt(r.BarCount, 10))
		if err := cw.Write(rec); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

func rawRecord(ts string, o, h, l, c float64, v int64) []string {
	return []string{ts, formatFloat(o), formatFloat(h), formatFloat(l), formatFloat(c), strconv.FormatInt(v, 10)}
}

func formatFloat(f float64) string { return strconv.FormatFloat(f, 'f', -1, 64) }

// JSONExporter writes an indented JSON array.
type JSONExporter struct{}

func (JSONExporter) Extension() string   { return "json" }
func (JSONExporter) ContentType() string { return "application/json; charset=utf-8" }

func (JSONExporter) Raw(w io.Writer, rows []models.RawExportRow) error {
	return writeIndentedJSON(w, rows)
}

func (JSONExporter) Aggregated(w io.Writer, rows []models.AggregatedExportRow) error {
	return writeIndentedJSON(w, rows)
}

func writeIndentedJSON(w io.Writer, v interface{}) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// ParquetExporter writes a single parquet file using the row struct tags as schema.
type ParquetExporter struct{}

func (ParquetExporter) Extension() string   { return "parquet" }
func (ParquetExporter) ContentType() string { return "application/vnd.apache.parquet" }

func (ParquetExporter) Raw(w io.Writer, rows []models.RawExportRow) error {
	return parquet.Write(w, rows)
}

func (ParquetExporter) Aggregated(w io.Writer, rows []models.AggregatedExportRow) error {
	return parquet.Write(w, rows)
}
