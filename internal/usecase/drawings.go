package usecase

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"BarView/internal/domain/models"
	domrepo "BarView/internal/domain/repository"
	applogger "BarView/pkg/logger"
)

const (
	defaultPerPage = 50
	maxPerPage     = 100
	maxNameLength  = 255
)

// Drawing event types published on the event bus.
const (
	EventDrawingSaved   = "drawing.saved"
	EventDrawingDeleted = "drawing.deleted"
)

// DrawingEvent is the payload published after a drawing changes.
type DrawingEvent struct {
	Type      string    `json:"type"`
	ID        int64     `json:"id"`
	Name      string    `json:"name,omitempty"`
	Timeframe string    `json:"timeframe,omitempty"`
	At        time.Time `json:"at"`
}

// DrawingsUseCase manages saved drawing sets.
type DrawingsUseCase struct {
	store domrepo.DrawingStore
	pub   domrepo.EventPublisher
	l     *applogger.Logger
}

func NewDrawingsUseCase(store domrepo.DrawingStore, pub domrepo.EventPublisher, l *applogger.Logger) *DrawingsUseCase {
	return &DrawingsUseCase{store: store, pub: pub, l: l}
}

type SaveDrawingParams struct {
	Name        string
	Layout      int
	Instruments []string
	Timeframe   string
	StartDate   *string
	EndDate     *string
	Drawings    json.RawMessage
}

// List returns one page, newest first. page is floored at 1 and perPage clamped to [1, 100].
func (uc *DrawingsUseCase) List(ctx context.Context, page, perPage int) (*models.DrawingPage, error) {
	if page < 1 {
		page = 1
	}
	if perPage <= 0 {
		perPage = defaultPerPage
	}
	if perPage > maxPerPage {
		perPage = maxPerPage
	}

	items, total, err := uc.store.List(ctx, perPage, (page-1)*perPage)
	if err != nil {
		return nil, fmt.Errorf("list drawings: %w", err)
	}
	return &models.DrawingPage{
		Drawings: items,
		Pagination: models.Pagination{
			Page:    page,
			PerPage: perPage,
			Total:   total,
			Pages:   (total + int64(perPage) - 1) / int64(perPage),
		},
	}, nil
}

// Save normalizes and stores a drawing set. Unknown layouts become 1 and unknown timeframes "1min".
func (uc *DrawingsUseCase) Save(ctx context.Context, p SaveDrawingParams) (int64, error) {
	name := strings.TrimSpace(p.Name)
	if name == "" || utf8.RuneCountInString(name) > maxNameLength {
		return 0, fmt.Errorf("%w: name must be 1-%d characters", domrepo.ErrInvalidDrawing, maxNameLength)
	}
	if len(p.Drawings) > 0 && !json.Valid(p.Drawings) {
		return 0, fmt.Errorf("%w: drawings must be valid JSON", domrepo.ErrInvalidDrawing)
	}

	d := &models.Drawing{
		Name:        name,
		Layout:      p.Layout,
		Instruments: p.Instruments,
		Timeframe:   string(domrepo.NormalizeTimeframe(p.Timeframe)),
		StartDate:   p.StartDate,
		EndDate:     p.EndDate,
		Drawings:    p.Drawings,
	}
	if d.Layout != 1 && d.Layout != 2 {
		d.Layout = 1
	}
	if d.Instruments == nil {
		d.Instruments = []string{}
	}

	id, err := uc.store.Create(ctx, d)
	if err != nil {
		return 0, fmt.Errorf("save drawing: %w", err)
	}
	uc.publish(ctx, DrawingEvent{Type: EventDrawingSaved, ID: id, Name: name, Timeframe: d.Timeframe})
	return id, nil
}

func (uc *DrawingsUseCase) Get(ctx context.Context, id int64) (*models.Drawing, error) {
	if id <= 0 {
		return nil, fmt.Errorf("%w: id must be positive", domrepo.ErrInvalidDrawing)
	}
	d, err := uc.store.Get(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("get drawing: %w", err)
	}
	return d, nil
}

func (uc *DrawingsUseCase) Delete(ctx context.Context, id int64) error {
	if id <= 0 {
		return fmt.Errorf("%w: id must be positive", domrepo.ErrInvalidDrawing)
	}
	if err := uc.store.Delete(ctx, id); err != nil {
		return fmt.Errorf("delete drawing: %w", err)
	}
	uc.publish(ctx, DrawingEvent{Type: EventDrawingDeleted, ID: id})
	return nil
}

// publish is best-effort: a failed event never fails the request.
func (uc *DrawingsUseCase) publish(ctx context.Context, ev DrawingEvent) {
	ev.At = time.Now().UTC()
	if err := uc.pub.Publish(ctx, fmt.Sprintf("drawing-%d", ev.ID), ev); err != nil {
		uc.l.Warn("drawing event not published",
			applogger.String("type", ev.Type),
			applogger.Int64("id", ev.ID),
			applogger.Error(err),
		)
	}
}
