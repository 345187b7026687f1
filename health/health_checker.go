// Package health aggregates database and entity-linking state for /health.
package health

import (
	"context"
	"math"
	"net/http"
	"time"

	"github.com/pillchecker/pillchecker/interfaces"
)

var _ interfaces.HealthChecker = (*HealthCheckerImpl)(nil)

// HealthCheckerImpl implements the interfaces.HealthChecker interface
type HealthCheckerImpl struct {
	store     interfaces.MedicationStore
	ner       *NERStatus
	startTime time.Time
	now       func() time.Time
}

// NewHealthChecker creates a new health checker with injected dependencies
func NewHealthChecker(store interfaces.MedicationStore, ner *NERStatus) *HealthCheckerImpl {
	if ner == nil {
		ner = NewNERStatus(false, 0)
	}
	return &HealthCheckerImpl{
		store:     store,
		ner:       ner,
		startTime: time.Now(),
		now:       time.Now,
	}
}

// HealthCheck reports unhealthy (503) when the database is unreachable,
// degraded (200) when entity linking is disabled or failing, and healthy
// otherwise.
func (h *HealthCheckerImpl) HealthCheck(ctx context.Context) (status string, data map[string]any, httpStatus int) {
	now := h.now()

	ctx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()

	database := map[string]any{"status": "up"}
	dbErr := h.store.Ping(ctx)
	if dbErr != nil {
		database["status"] = "down"
		database["error"] = dbErr.Error()
	} else if count, err := h.store.Count(ctx); err == nil {
		database["medications"] = count
	}

	snap := h.ner.Snapshot()
	ner := map[string]any{"enabled": snap.Enabled}
	switch {
	case !snap.Enabled:
		ner["status"] = "disabled"
	case !snap.Checked:
		ner["status"] = "unknown"
	case snap.Healthy:
		ner["status"] = "up"
	default:
		ner["status"] = "down"
		ner["error"] = snap.LastError
		ner["down_minutes"] = math.Round(snap.DownFor(now).Minutes()*10) / 10
	}
	if snap.Checked {
		ner["last_check"] = snap.LastCheck.Format(time.RFC3339)
	}
	if !snap.LastSuccess.IsZero() {
		ner["last_success"] = snap.LastSuccess.Format(time.RFC3339)
	}
	if !snap.NextCheck.IsZero() {
		ner["next_check"] = snap.NextCheck.Format(time.RFC3339)
	}

	switch {
	case dbErr != nil:
		status = "unhealthy"
		httpStatus = http.StatusServiceUnavailable
	case !snap.Enabled || (snap.Checked && !snap.Healthy):
		status = "degraded"
		httpStatus = http.StatusOK
	default:
		status = "healthy"
		httpStatus = http.StatusOK
	}

	data = map[string]any{
		"database":       database,
		"ner":            ner,
		"uptime_seconds": math.Round(now.Sub(h.startTime).Seconds()),
		"start_time":     h.startTime.Format(time.RFC3339),
	}

	return status, data, httpStatus
}
