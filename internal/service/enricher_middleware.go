package service

import (
	"context"
	"log/slog"
	"time"
)

// enricherMiddleware decorates an Enricher with timing and outcome logging
// without touching the lookup logic.
type enricherMiddleware struct {
	next   Enricher
	logger *slog.Logger
}

func (m *enricherMiddleware) Username(ctx context.Context, userID int64) (string, error) {
	start := time.Now()
	name, err := m.next.Username(ctx, userID)
	if err != nil {
		m.logger.Warn("enrichment failed",
			"user_id", userID,
			"duration_ms", time.Since(start).Milliseconds(),
			"error", err,
		)
	}
	return name, err
}
