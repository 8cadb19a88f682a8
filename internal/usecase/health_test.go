package usecase

import (
	"context"
	"fmt"
	"testing"
	"time"

	"BarView/internal/domain/models"
	domrepo "BarView/internal/domain/repository"

	"github.com/stretchr/testify/assert"
)

func TestHealthyReport(t *testing.T) {
	store := &fakeBarStore{bars: map[string][]models.Bar{"a": nil, "b": nil}}
	uc := NewHealthUseCase(store)
	base := time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC)
	ticks := []time.Time{base, base.Add(1234567 * time.Nanosecond)}
	uc.now = func() time.Time {
		t := ticks[0]
		ticks = ticks[1:]
		return t
	}

	r := uc.Check(context.Background())
	assert.True(t, r.Healthy())
	assert.True(t, r.DatabaseConnected)
	assert.Equal(t, 2, r.TableCount)
	assert.Equal(t, 1, r.ActiveConnections)
	assert.Equal(t, Version, r.Version)
	assert.Equal(t, 1.23, r.ResponseTimeMS)
	assert.Equal(t, "2024-01-02T00:00:00Z", r.Timestamp)
	assert.Empty(t, r.DatabaseError)
}

func TestUnhealthyReport(t *testing.T) {
	store := &fakeBarStore{countErr: fmt.Errorf("%w: disk I/O error", domrepo.ErrStoreUnavailable)}
	r := NewHealthUseCase(store).Check(context.Background())
	assert.False(t, r.Healthy())
	assert.Equal(t, StatusUnhealthy, r.Status)
	assert.False(t, r.DatabaseConnected)
	assert.Contains(t, r.DatabaseError, "store unavailable")
}
