package service

import (
	"context"
	"net/url"
	"testing"
	"time"

	"github.com/brianvoe/gofakeit/v6"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cozinhalabs/auditoria/internal/models"
	"github.com/cozinhalabs/auditoria/internal/repository"
)

func TestParseFilter(t *testing.T) {
	tests := []struct {
		name    string
		query   string
		wantErr bool
		check   func(*testing.T, repository.EventFilter)
	}{
		{
			name:  "empty query",
			query: "",
			check: func(t *testing.T, f repository.EventFilter) {
				assert.Nil(t, f.UsuarioID)
				assert.Empty(t, f.Acao)
				assert.Nil(t, f.DataInicio)
			},
		},
		{
			name:  "all filters",
			query: "usuario_id=12&acao=update&recurso=clientes&data_inicio=2026-08-01&data_fim=2026-08-31",
			check: func(t *testing.T, f repository.EventFilter) {
				require.NotNil(t, f.UsuarioID)
				assert.Equal(t, int64(12), *f.UsuarioID)
				assert.Equal(t, "update", f.Acao)
				assert.Equal(t, "clientes", f.Recurso)
				require.NotNil(t, f.DataInicio)
				assert.Equal(t, 2026, f.DataInicio.Year())
				require.NotNil(t, f.DataFim)
			},
		},
		{name: "invalid action", query: "acao=truncate", wantErr: true},
		{name: "invalid usuario_id", query: "usuario_id=abc", wantErr: true},
		{name: "invalid data_inicio", query: "data_inicio=01/08/2026", wantErr: true},
		{name: "invalid data_fim", query: "data_fim=2026-13-40", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			values, err := url.ParseQuery(tt.query)
			require.NoError(t, err)

			filter, err := ParseFilter(values)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			tt.check(t, filter)
		})
	}
}

func seedEvents(repo *repository.InMemoryRepository, n int, usuarioID int64, acao, recurso string, base time.Time) {
	for i := 0; i < n; i++ {
		uid := usuarioID
		repo.SeedEvent(models.AuditEvent{
			UsuarioID: &uid,
			Acao:      acao,
			Recurso:   recurso,
			IPAddress: gofakeit.IPv4Address(),
			Timestamp: base.Add(time.Duration(i) * time.Minute),
		})
	}
}

func TestListOrderingAndPagination(t *testing.T) {
	repo := repository.NewInMemoryRepository()
	base := time.Date(2026, 8, 10, 9, 0, 0, 0, time.UTC)
	seedEvents(repo, 5, 1, models.ActionUpdate, "clientes", base)

	svc := NewAuditService(repo, 30, 10000)

	page, err := svc.List(context.Background(), repository.EventFilter{}, 3, 0)
	require.NoError(t, err)
	assert.Equal(t, int64(5), page.Total)
	require.Len(t, page.Eventos, 3)

	// newest first
	for i := 1; i < len(page.Eventos); i++ {
		assert.False(t, page.Eventos[i].Timestamp.After(page.Eventos[i-1].Timestamp))
	}

	rest, err := svc.List(context.Background(), repository.EventFilter{}, 3, 3)
	require.NoError(t, err)
	require.Len(t, rest.Eventos, 2)
	assert.True(t, rest.Eventos[0].Timestamp.Before(page.Eventos[2].Timestamp))
}

func TestListFiltersByActionAndResource(t *testing.T) {
	repo := repository.NewInMemoryRepository()
	base := time.Date(2026, 8, 10, 9, 0, 0, 0, time.UTC)
	seedEvents(repo, 3, 1, models.ActionUpdate, "clientes", base)
	seedEvents(repo, 2, 2, models.ActionDelete, "produtos", base)

	svc := NewAuditService(repo, 30, 10000)

	page, err := svc.List(context.Background(), repository.EventFilter{Acao: models.ActionDelete}, 100, 0)
	require.NoError(t, err)
	assert.Equal(t, int64(2), page.Total)
	for _, ev := range page.Eventos {
		assert.Equal(t, models.ActionDelete, ev.Acao)
	}

	page, err = svc.List(context.Background(), repository.EventFilter{Recurso: "clientes"}, 100, 0)
	require.NoError(t, err)
	assert.Equal(t, int64(3), page.Total)
}

func TestListForUser(t *testing.T) {
	repo := repository.NewInMemoryRepository()
	base := time.Date(2026, 8, 10, 9, 0, 0, 0, time.UTC)
	seedEvents(repo, 3, 1, models.ActionUpdate, "clientes", base)
	seedEvents(repo, 2, 2, models.ActionUpdate, "clientes", base)

	svc := NewAuditService(repo, 30, 10000)

	page, err := svc.ListForUser(context.Background(), 2, 100, 0)
	require.NoError(t, err)
	assert.Equal(t, int64(2), page.Total)
	for _, ev := range page.Eventos {
		assert.Equal(t, int64(2), *ev.UsuarioID)
	}
}

func TestExportSetUsesExportLimit(t *testing.T) {
	repo := repository.NewInMemoryRepository()
	base := time.Date(2026, 8, 10, 9, 0, 0, 0, time.UTC)
	seedEvents(repo, 10, 1, models.ActionCreate, "clientes", base)

	svc := NewAuditService(repo, 30, 4)

	events, err := svc.ExportSet(context.Background(), repository.EventFilter{})
	require.NoError(t, err)
	assert.Len(t, events, 4)
}

func TestStats(t *testing.T) {
	repo := repository.NewInMemoryRepository()
	now := time.Now()
	hoje := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())
	seedEvents(repo, 4, 1, models.ActionUpdate, "clientes", hoje.Add(time.Minute))
	seedEvents(repo, 2, 2, models.ActionDelete, "produtos", hoje.Add(10*time.Minute))
	// yesterday local time counts toward the window but not toward "hoje"
	seedEvents(repo, 3, 2, models.ActionView, "rotas", hoje.Add(-time.Hour))
	// outside the trailing window
	seedEvents(repo, 5, 3, models.ActionCreate, "rotas", now.AddDate(0, 0, -60))

	svc := NewAuditService(repo, 30, 10000)

	stats, err := svc.Stats(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 30, stats.PeriodoDias)
	assert.Equal(t, int64(6), stats.AcoesHoje, "only events on the local calendar day count")

	byAction := map[string]int64{}
	for _, ac := range stats.PorAcao {
		byAction[ac.Acao] = ac.Total
	}
	assert.Equal(t, int64(4), byAction[models.ActionUpdate])
	assert.Equal(t, int64(2), byAction[models.ActionDelete])
	assert.Equal(t, int64(3), byAction[models.ActionView])
	assert.Zero(t, byAction[models.ActionCreate], "events outside the window are excluded")
}
