package usecase

import (
	"context"
	"encoding/json"
	"strings"
	"testing"

	domrepo "BarView/internal/domain/repository"
	applogger "BarView/pkg/logger"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newDrawings() (*DrawingsUseCase, *fakeDrawingStore, *fakePublisher) {
	store := newFakeDrawingStore()
	pub := &fakePublisher{}
	return NewDrawingsUseCase(store, pub, applogger.NewNop()), store, pub
}

func TestSaveNormalizesInput(t *testing.T) {
	uc, store, pub := newDrawings()

	id, err := uc.Save(context.Background(), SaveDrawingParams{
		Name:      "  support lines  ",
		Layout:    7,
		Timeframe: "weekly",
		Drawings:  json.RawMessage(`[{"type":"hline","price":101.5}]`),
	})
	require.NoError(t, err)

	d := store.items[id]
	assert.Equal(t, "support lines", d.Name)
	assert.Equal(t, 1, d.Layout)
	assert.Equal(t, "1min", d.Timeframe)
	assert.Equal(t, []string{}, d.Instruments)

	require.Len(t, pub.events, 1)
	assert.Equal(t, EventDrawingSaved, pub.events[0].Type)
	assert.Equal(t, id, pub.events[0].ID)
}

func TestSaveKeepsValidLayoutAndTimeframe(t *testing.T) {
	uc, store, _ := newDrawings()
	id, err := uc.Save(context.Background(), SaveDrawingParams{
		Name: "split", Layout: 2, Timeframe: "raw", Instruments: []string{"es_bars", "nq_data"},
	})
	require.NoError(t, err)
	assert.Equal(t, 2, store.items[id].Layout)
	assert.Equal(t, "raw", store.items[id].Timeframe)
	assert.Equal(t, []string{"es_bars", "nq_data"}, store.items[id].Instruments)
}

func TestSaveRejectsBadNames(t *testing.T) {
	uc, _, pub := newDrawings()
	for _, name := range []string{"", "   ", strings.Repeat("x", 256)} {
		_, err := uc.Save(context.Background(), SaveDrawingParams{Name: name})
		assert.ErrorIs(t, err, domrepo.ErrInvalidDrawing)
	}
	_, err := uc.Save(context.Background(), SaveDrawingParams{Name: strings.Repeat("é", 255)})
	assert.NoError(t, err)
	assert.Len(t, pub.events, 1)
}

func TestSaveSurvivesPublisherFailure(t *testing.T) {
	uc, _, pub := newDrawings()
	pub.err = errBoom
	_, err := uc.Save(context.Background(), SaveDrawingParams{Name: "ok"})
	assert.NoError(t, err)
}

func TestListPagination(t *testing.T) {
	uc, store, _ := newDrawings()
	for i := 0; i < 7; i++ {
		_, err := uc.Save(context.Background(), SaveDrawingParams{Name: "d"})
		require.NoError(t, err)
	}

	page, err := uc.List(context.Background(), 2, 3)
	require.NoError(t, err)
	assert.Equal(t, 3, store.lastLimit)
	assert.Equal(t, 3, store.lastOffset)
	assert.Equal(t, int64(7), page.Pagination.Total)
	assert.Equal(t, int64(3), page.Pagination.Pages)

	page, err = uc.List(context.Background(), 0, 500)
	require.NoError(t, err)
	assert.Equal(t, 1, page.Pagination.Page)
	assert.Equal(t, 100, page.Pagination.PerPage)
	assert.Equal(t, 0, store.lastOffset)

	page, err = uc.List(context.Background(), 1, 0)
	require.NoError(t, err)
	assert.Equal(t, 50, page.Pagination.PerPage)
}

func TestGetAndDelete(t *testing.T) {
	uc, _, pub := newDrawings()
	ctx := context.Background()

	_, err := uc.Get(ctx, 0)
	assert.ErrorIs(t, err, domrepo.ErrInvalidDrawing)
	assert.ErrorIs(t, uc.Delete(ctx, -1), domrepo.ErrInvalidDrawing)

	id, err := uc.Save(ctx, SaveDrawingParams{Name: "a"})
	require.NoError(t, err)
	d, err := uc.Get(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, "a", d.Name)

	require.NoError(t, uc.Delete(ctx, id))
	assert.Equal(t, EventDrawingDeleted, pub.events[len(pub.events)-1].Type)

	_, err = uc.Get(ctx, id)
	assert.ErrorIs(t, err, domrepo.ErrDrawingNotFound)
	assert.ErrorIs(t, uc.Delete(ctx, id), domrepo.ErrDrawingNotFound)
}
