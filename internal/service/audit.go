// Package service holds the business logic between HTTP handlers and storage.
package service

import (
	"context"
	"fmt"
	"net/url"
	"strconv"
	"time"

	"github.com/cozinhalabs/auditoria/internal/models"
	"github.com/cozinhalabs/auditoria/internal/repository"
)

// AuditService serves the read side of the audit trail: filtered listings,
// aggregate statistics and the raw event sets behind exports.
type AuditService struct {
	repo        repository.AuditRepository
	statsWindow int
	exportLimit int
}

func NewAuditService(repo repository.AuditRepository, statsWindowDays, exportLimit int) *AuditService {
	return &AuditService{repo: repo, statsWindow: statsWindowDays, exportLimit: exportLimit}
}

// EventPage is one page of audit events plus the unpaginated total.
type EventPage struct {
	Eventos []*models.AuditEventRecord `json:"eventos"`
	Total   int64                      `json:"total"`
	Limit   int                        `json:"limit"`
	Offset  int                        `json:"offset"`
}

// ParseFilter builds an event filter from query parameters. Malformed values
// are rejected here, before any storage work happens.
func ParseFilter(values url.Values) (repository.EventFilter, error) {
	var filter repository.EventFilter

	if raw := values.Get("usuario_id"); raw != "" {
		id, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			return filter, fmt.Errorf("usuario_id inválido: %q", raw)
		}
		filter.UsuarioID = &id
	}

	if acao := values.Get("acao"); acao != "" {
		if !models.ValidAction(acao) {
			return filter, fmt.Errorf("acao inválida: %q", acao)
		}
		filter.Acao = acao
	}

	filter.Recurso = values.Get("recurso")

	if raw := values.Get("data_inicio"); raw != "" {
		t, err := time.Parse("2006-01-02", raw)
		if err != nil {
			return filter, fmt.Errorf("data_inicio inválida: %q", raw)
		}
		filter.DataInicio = &t
	}

	if raw := values.Get("data_fim"); raw != "" {
		t, err := time.Parse("2006-01-02", raw)
		if err != nil {
			return filter, fmt.Errorf("data_fim inválida: %q", raw)
		}
		filter.DataFim = &t
	}

	return filter, nil
}

// List returns one page of events matching the filter, newest first, along
// with the total match count.
func (s *AuditService) List(ctx context.Context, filter repository.EventFilter, limit, offset int) (*EventPage, error) {
	filter.Limit = limit
	filter.Offset = offset

	events, err := s.repo.ListEvents(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("listing audit events: %w", err)
	}
	total, err := s.repo.CountEvents(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("counting audit events: %w", err)
	}

	return &EventPage{Eventos: events, Total: total, Limit: limit, Offset: offset}, nil
}

// ListForUser returns one page of events credited to a single actor.
func (s *AuditService) ListForUser(ctx context.Context, usuarioID int64, limit, offset int) (*EventPage, error) {
	filter := repository.EventFilter{UsuarioID: &usuarioID}
	return s.List(ctx, filter, limit, offset)
}

// ExportSet returns the events behind an export: same filter semantics as
// List but with the export row cap instead of page-size pagination.
func (s *AuditService) ExportSet(ctx context.Context, filter repository.EventFilter) ([]*models.AuditEventRecord, error) {
	filter.Limit = s.exportLimit
	filter.Offset = 0
	events, err := s.repo.ListEvents(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("listing audit events for export: %w", err)
	}
	return events, nil
}

// Stats aggregates activity over the configured trailing window.
func (s *AuditService) Stats(ctx context.Context) (*models.AuditStats, error) {
	now := time.Now()
	since := now.AddDate(0, 0, -s.statsWindow)
	// Truncate works in UTC; "hoje" means the local calendar day.
	startOfDay := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())

	porAcao, err := s.repo.ActionStats(ctx, since)
	if err != nil {
		return nil, fmt.Errorf("aggregating by action: %w", err)
	}
	porRecurso, err := s.repo.ResourceStats(ctx, since)
	if err != nil {
		return nil, fmt.Errorf("aggregating by resource: %w", err)
	}
	atores, err := s.repo.TopActors(ctx, since, 10)
	if err != nil {
		return nil, fmt.Errorf("aggregating top actors: %w", err)
	}
	hoje, err := s.repo.CountSince(ctx, startOfDay)
	if err != nil {
		return nil, fmt.Errorf("counting today's events: %w", err)
	}

	return &models.AuditStats{
		PorAcao:        porAcao,
		PorRecurso:     porRecurso,
		UsuariosAtivos: atores,
		AcoesHoje:      hoje,
		PeriodoDias:    s.statsWindow,
	}, nil
}
