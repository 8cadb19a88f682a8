package api

import (
	"context"
	"encoding/csv"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"BarView/internal/domain/models"
	"BarView/internal/repository"
	"BarView/internal/service/cache"
	"BarView/internal/service/catalog"
	"BarView/internal/usecase"
	xhttp "BarView/pkg/http"
	xlogger "BarView/pkg/logger"
	pkgmetrics "BarView/pkg/metrics"
	pkgsqlite "BarView/pkg/sqlite"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type testEnv struct {
	e     *echo.Echo
	cache *cache.TTLCache
}

func newTestEnv(t *testing.T, opts ...BarsOption) *testEnv {
	t.Helper()
	ctx := context.Background()
	client, err := pkgsqlite.NewClient(
		pkgsqlite.WithPath(filepath.Join(t.TempDir(), "bars.db")),
		pkgsqlite.WithMaxConnections(4),
	)
	require.NoError(t, err)
	t.Cleanup(func() { _ = client.Close() })

	require.NoError(t, client.InitSchema(ctx, []string{
		`CREATE TABLE es_bars (bar_end_datetime TEXT, open_price REAL, high_price REAL,
			low_price REAL, close_price REAL, volume INTEGER)`,
		`INSERT INTO es_bars VALUES
			('2024-01-02 10:00:00', 100, 101, 99, 100.5, 10),
			('2024-01-02 10:01:00', 100.5, 103, 100, 102, 20),
			('2024-01-02 10:05:00', 102, 102.5, 98, 99, 5),
			('2024-01-03 09:30:00', 99, 100, 97, 98, 1)`,
		`CREATE TABLE notes (id INTEGER, body TEXT)`,
	}))

	l := xlogger.NewNop()
	barStore := repository.NewSQLiteBarStore(client, l)
	drawingStore := repository.NewSQLiteDrawingStore(client, l)
	require.NoError(t, drawingStore.Init(ctx))

	cat := catalog.New(barStore, l)
	m := pkgmetrics.Nop{}
	bars := usecase.NewBarsUseCase(barStore, cat, m, l)
	ttl := cache.NewTTLCache(100)

	opts = append([]BarsOption{WithResponseCache(ttl, time.Minute)}, opts...)
	router := NewRouter(
		NewBarsHandler(l, bars, m, opts...),
		NewInstrumentsHandler(l, cat),
		NewDrawingsHandler(l, usecase.NewDrawingsUseCase(drawingStore, repository.NopEventPublisher{}, l)),
		NewHealthHandler(usecase.NewHealthUseCase(barStore)),
	)
	srv := xhttp.NewServer(l, router, xhttp.WithMetrics(false, ""))
	return &testEnv{e: srv.Echo(), cache: ttl}
}

func (env *testEnv) do(t *testing.T, method, target, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, target, strings.NewReader(body))
	if body != "" {
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	}
	rec := httptest.NewRecorder()
	env.e.ServeHTTP(rec, req)
	return rec
}

func errorMessage(t *testing.T, rec *httptest.ResponseRecorder) string {
	t.Helper()
	var body xhttp.ErrorBody
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	return body.Error
}

func TestInstruments(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(t, http.MethodGet, "/api/instruments", "")
	require.Equal(t, http.StatusOK, rec.Code)
	var items []models.Instrument
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &items))
	require.Len(t, items, 1)
	assert.Equal(t, "es_bars", items[0].TableName)
	assert.Equal(t, "ES", items[0].Instrument)
	assert.Equal(t, int64(4), items[0].RecordCount)
	assert.Equal(t, "ES (2024-01-02 to 2024-01-03)", items[0].DisplayName)

	rec = env.do(t, http.MethodPost, "/api/instruments/refresh", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "nosniff", rec.Header().Get(echo.HeaderXContentTypeOptions))
}

func TestData_RawAndAggregated(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(t, http.MethodGet, "/api/data/es_bars?timeframe=raw&start_date=2024-01-02&end_date=2024-01-02", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "public, max-age=300", rec.Header().Get(echo.HeaderCacheControl))
	var rows []models.BarRow
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &rows))
	require.Len(t, rows, 3)
	assert.Equal(t, "2024-01-02 10:00:00", rows[0].Datetime)
	assert.Zero(t, rows[0].BarCount)

	rec = env.do(t, http.MethodGet, "/api/data/es_bars?timeframe=5min", "")
	require.Equal(t, http.StatusOK, rec.Code)
	rows = nil
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &rows))
	require.Len(t, rows, 3)
	assert.Equal(t, models.BarRow{Datetime: "2024-01-02 10:00:00", Open: 100, High: 103, Low: 99, Close: 102, Volume: 30, BarCount: 2}, rows[0])
	assert.Equal(t, "2024-01-03 09:30:00", rows[2].Datetime)

	rec = env.do(t, http.MethodGet, "/api/data/es_bars?timeframe=1day&limit=1", "")
	require.Equal(t, http.StatusOK, rec.Code)
	rows = nil
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &rows))
	require.Len(t, rows, 1)
	assert.Equal(t, "2024-01-02", rows[0].Datetime)
	assert.Equal(t, 3, rows[0].BarCount)
}

func TestData_ServesFromCache(t *testing.T) {
	env := newTestEnv(t)

	first := env.do(t, http.MethodGet, "/api/data/es_bars?timeframe=raw", "")
	require.Equal(t, http.StatusOK, first.Code)
	assert.Equal(t, 1, env.cache.Len())

	second := env.do(t, http.MethodGet, "/api/data/es_bars?timeframe=raw", "")
	require.Equal(t, http.StatusOK, second.Code)
	assert.Equal(t, first.Body.String(), second.Body.String())
	assert.Equal(t, "public, max-age=300", second.Header().Get(echo.HeaderCacheControl))
}

func TestData_Errors(t *testing.T) {
	env := newTestEnv(t)

	cases := []struct {
		name   string
		target string
		status int
		msg    string
	}{
		{"bad table name", "/api/data/es.bars", http.StatusBadRequest, "Invalid table name format"},
		{"unknown table", "/api/data/zz_bars", http.StatusNotFound, "Table zz_bars not found"},
		{"non trading table", "/api/data/notes", http.StatusNotFound, "Table notes not found"},
		{"bad timeframe", "/api/data/es_bars?timeframe=7min", http.StatusBadRequest, "Unsupported timeframe. Use one of: raw, 1min, 5min, 15min, 30min, 60min, 120min, 240min, 1day"},
		{"bad date", "/api/data/es_bars?start_date=01-02-2024", http.StatusBadRequest, "Invalid start_date format. Use YYYY-MM-DD"},
		{"negative limit", "/api/data/es_bars?limit=-5", http.StatusBadRequest, "limit must be greater than or equal to 0"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			rec := env.do(t, http.MethodGet, tc.target, "")
			assert.Equal(t, tc.status, rec.Code)
			assert.Equal(t, tc.msg, errorMessage(t, rec))
		})
	}
}

func TestDownload(t *testing.T) {
	at := time.Date(2024, 5, 6, 7, 8, 9, 0, time.UTC)
	env := newTestEnv(t, func(h *BarsHandler) { h.now = func() time.Time { return at } })

	rec := env.do(t, http.MethodGet, "/download/es_bars?format=csv&timeframe=raw&start_date=2024-01-02&end_date=2024-01-03", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, `attachment; filename="es_bars_raw_2024-01-02_to_2024-01-03_20240506_070809.csv"`,
		rec.Header().Get(echo.HeaderContentDisposition))
	assert.Equal(t, echo.HeaderContentDisposition, rec.Header().Get(echo.HeaderAccessControlExposeHeaders))
	records, err := csv.NewReader(rec.Body).ReadAll()
	require.NoError(t, err)
	require.Len(t, records, 5)
	assert.Equal(t, rawCSVHeader, records[0])
	assert.Equal(t, []string{"2024-01-02 10:00:00", "100", "101", "99", "100.5", "10"}, records[1])

	rec = env.do(t, http.MethodGet, "/download/es_bars?format=json&timeframe=15min", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, `attachment; filename="es_bars_15min_20240506_070809.json"`, rec.Header().Get(echo.HeaderContentDisposition))
	var rows []models.AggregatedExportRow
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &rows))
	require.Len(t, rows, 2)
	assert.Equal(t, "15min", rows[0].Timeframe)
	assert.Equal(t, int64(3), rows[0].BarCount)

	rec = env.do(t, http.MethodGet, "/download/es_bars?format=parquet", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, strings.HasPrefix(rec.Body.String(), "PAR1"))

	rec = env.do(t, http.MethodGet, "/download/es_bars?format=xml", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "Unsupported format. Use csv, json, parquet", errorMessage(t, rec))
}

func TestDownload_RateLimited(t *testing.T) {
	allowed := 1
	env := newTestEnv(t, WithDownloadLimit(func(string) bool {
		allowed--
		return allowed >= 0
	}))

	assert.Equal(t, http.StatusOK, env.do(t, http.MethodGet, "/download/es_bars?timeframe=raw", "").Code)
	rec := env.do(t, http.MethodGet, "/download/es_bars?timeframe=raw", "")
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
}

func TestDrawingsCRUD(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(t, http.MethodPost, "/api/drawings",
		`{"name":"  levels ","layout":5,"instruments":["ES","NQ"],"timeframe":"3min","drawings":[{"type":"line"}]}`)
	require.Equal(t, http.StatusOK, rec.Code)
	var created xhttp.MessageBody
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &created))
	assert.Equal(t, "Drawings saved successfully", created.Message)
	require.Positive(t, created.ID)

	rec = env.do(t, http.MethodPost, "/api/drawings", `{"name":"odd","instruments":"ES"}`)
	require.Equal(t, http.StatusOK, rec.Code)

	rec = env.do(t, http.MethodGet, "/api/drawings/1", "")
	require.Equal(t, http.StatusOK, rec.Code)
	var d models.Drawing
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &d))
	assert.Equal(t, "levels", d.Name)
	assert.Equal(t, 1, d.Layout)
	assert.Equal(t, "1min", d.Timeframe)
	assert.Equal(t, []string{"ES", "NQ"}, d.Instruments)
	assert.JSONEq(t, `[{"type":"line"}]`, string(d.Drawings))

	rec = env.do(t, http.MethodGet, "/api/drawings/2", "")
	require.Equal(t, http.StatusOK, rec.Code)
	d = models.Drawing{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &d))
	assert.Empty(t, d.Instruments)

	rec = env.do(t, http.MethodGet, "/api/drawings?per_page=1", "")
	require.Equal(t, http.StatusOK, rec.Code)
	var page models.DrawingPage
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &page))
	assert.Equal(t, models.Pagination{Page: 1, PerPage: 1, Total: 2, Pages: 2}, page.Pagination)
	require.Len(t, page.Drawings, 1)

	rec = env.do(t, http.MethodDelete, "/api/drawings/1", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"message":"Drawing deleted successfully"}`, rec.Body.String())

	rec = env.do(t, http.MethodDelete, "/api/drawings/1", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "Drawing not found", errorMessage(t, rec))

	rec = env.do(t, http.MethodGet, "/api/drawings/0", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "Invalid drawing ID", errorMessage(t, rec))
}

func TestDrawings_Validation(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(t, http.MethodPost, "/api/drawings", `{"layout":1}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "name is required", errorMessage(t, rec))

	rec = env.do(t, http.MethodPost, "/api/drawings", `{"name":"   "}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "Name must be 1-255 characters", errorMessage(t, rec))
}

func TestHealth(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(t, http.MethodGet, "/health", "")
	require.Equal(t, http.StatusOK, rec.Code)
	var r usecase.HealthReport
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &r))
	assert.Equal(t, "healthy", r.Status)
	assert.Equal(t, "2.0.0", r.Version)
	assert.True(t, r.DatabaseConnected)
	assert.Equal(t, 3, r.TableCount)
}

func TestUnknownRoute(t *testing.T) {
	env := newTestEnv(t)
	rec := env.do(t, http.MethodGet, "/nope", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "Endpoint not found", errorMessage(t, rec))
}
