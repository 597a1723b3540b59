// Package audit persists immutable audit events.
package audit

import (
	"context"
	"log/slog"
	"time"

	"github.com/cozinhalabs/auditoria/internal/models"
	"github.com/cozinhalabs/auditoria/internal/repository"
)

// Recorder writes audit events on a best-effort basis. Record never returns
// an error: auditing must never fail or roll back the business operation it
// describes. Lost events are logged and counted, not retried.
type Recorder struct {
	repo repository.AuditRepository
}

func NewRecorder(repo repository.AuditRepository) *Recorder {
	return &Recorder{repo: repo}
}

// Record assembles and persists one event. It uses a background context so a
// cancelled request cannot lose an event for a write that already committed.
func (r *Recorder) Record(actorID *int64, action, resource string, detail *models.EventDetail, ip string) {
	event := &models.AuditEvent{
		UsuarioID: actorID,
		Acao:      action,
		Recurso:   resource,
		Detalhes:  detail,
		IPAddress: ip,
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := r.repo.InsertEvent(ctx, event); err != nil {
		RecorderFailures.Inc()
		slog.Error("failed to persist audit event",
			slog.String("action", action),
			slog.String("resource", resource),
			slog.String("error", err.Error()),
		)
		return
	}

	EventsRecorded.WithLabelValues(action, resource).Inc()
}
