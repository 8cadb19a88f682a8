package usecase

import (
	"context"
	"math"
	"time"

	domrepo "BarView/internal/domain/repository"
)

// Version is reported by the health endpoint.
const Version = "2.0.0"

const (
	StatusHealthy   = "healthy"
	StatusUnhealthy = "unhealthy"
)

// HealthReport is the liveness summary of the service and its store.
type HealthReport struct {
	Status            string  `json:"status"`
	Timestamp         string  `json:"timestamp"`
	Version           string  `json:"version"`
	DatabaseConnected bool    `json:"database_connected"`
	ResponseTimeMS    float64 `json:"response_time_ms"`
	TableCount        int     `json:"table_count"`
	ActiveConnections int     `json:"active_connections"`
	DatabaseError     string  `json:"database_error,omitempty"`
}

// Healthy reports whether the store answered.
func (r *HealthReport) Healthy() bool { return r.Status == StatusHealthy }

type HealthUseCase struct {
	store domrepo.BarStore
	now   func() time.Time
}

func NewHealthUseCase(store domrepo.BarStore) *HealthUseCase {
	return &HealthUseCase{store: store, now: time.Now}
}

// Check counts the store's tables and times the round trip. Store failures are
// reported in the body, never returned.
func (uc *HealthUseCase) Check(ctx context.Context) *HealthReport {
	start := uc.now()
	r := &HealthReport{
		Status:    StatusHealthy,
		Timestamp: start.UTC().Format(time.RFC3339Nano),
		Version:   Version,
	}

	n, err := uc.store.CountTables(ctx)
	if err != nil {
		r.Status = StatusUnhealthy
		r.DatabaseError = err.Error()
	} else {
		r.DatabaseConnected = true
		r.TableCount = n
	}
	r.ActiveConnections = uc.store.ActiveConnections()

	ms := float64(uc.now().Sub(start).Microseconds()) / 1000
	r.ResponseTimeMS = math.Round(ms*100) / 100
	return r
}
