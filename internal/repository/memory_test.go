package repository

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cozinhalabs/auditoria/internal/models"
)

func TestMemoryDateFilterDayPrecision(t *testing.T) {
	repo := NewInMemoryRepository()
	uid := int64(1)

	// late evening on the 10th and early morning on the 11th
	repo.SeedEvent(models.AuditEvent{
		UsuarioID: &uid, Acao: models.ActionCreate, Recurso: "clientes",
		Timestamp: time.Date(2026, 8, 10, 23, 50, 0, 0, time.UTC),
	})
	repo.SeedEvent(models.AuditEvent{
		UsuarioID: &uid, Acao: models.ActionCreate, Recurso: "clientes",
		Timestamp: time.Date(2026, 8, 11, 0, 10, 0, 0, time.UTC),
	})

	day := time.Date(2026, 8, 10, 12, 0, 0, 0, time.UTC)
	events, err := repo.ListEvents(context.Background(), EventFilter{
		DataInicio: &day, DataFim: &day, Limit: 10,
	})
	require.NoError(t, err)
	require.Len(t, events, 1, "bounds are inclusive at calendar-day precision")
	assert.Equal(t, 10, events[0].Timestamp.Day())
}

func TestMemoryListJoinsUserNames(t *testing.T) {
	repo := NewInMemoryRepository()
	user := &models.Usuario{
		Nome: "Fulano", Email: "f@example.com", SenhaHash: "x",
		TipoDeAcesso: models.RoleGerente, NivelDeAcesso: models.LevelI, Status: models.StatusAtivo,
	}
	require.NoError(t, repo.CreateUser(context.Background(), user))

	repo.SeedEvent(models.AuditEvent{
		UsuarioID: &user.ID, Acao: models.ActionUpdate, Recurso: "clientes", Timestamp: time.Now(),
	})

	events, err := repo.ListEvents(context.Background(), EventFilter{Limit: 10})
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.Equal(t, "Fulano", events[0].UsuarioNome)
	assert.Equal(t, "f@example.com", events[0].UsuarioEmail)
}

func TestMemoryFetchRowServesUsers(t *testing.T) {
	repo := NewInMemoryRepository()
	ctx := context.Background()

	user := &models.Usuario{
		Nome: "Beltrano", Email: "b@example.com", SenhaHash: "x",
		TipoDeAcesso: models.RoleCoordenador, NivelDeAcesso: models.LevelII, Status: models.StatusAtivo,
	}
	require.NoError(t, repo.CreateUser(ctx, user))

	row, err := repo.FetchRow(ctx, "usuarios", user.ID)
	require.NoError(t, err)
	assert.Equal(t, "Beltrano", row["nome"])
	assert.Equal(t, "b@example.com", row["email"])
	assert.Equal(t, models.RoleCoordenador, row["tipo_de_acesso"])

	_, err = repo.FetchRow(ctx, "usuarios", 999)
	assert.ErrorIs(t, err, ErrRowNotFound)
}

func TestMemoryGenericRows(t *testing.T) {
	repo := NewInMemoryRepository()
	ctx := context.Background()

	id, err := repo.InsertRow(ctx, "clientes", map[string]any{"razao_social": "Acme"})
	require.NoError(t, err)

	row, err := repo.FetchRow(ctx, "clientes", id)
	require.NoError(t, err)
	assert.Equal(t, "Acme", row["razao_social"])

	// mutating the returned map must not leak into the store
	row["razao_social"] = "Hackeada"
	again, err := repo.FetchRow(ctx, "clientes", id)
	require.NoError(t, err)
	assert.Equal(t, "Acme", again["razao_social"])

	require.NoError(t, repo.DeleteRow(ctx, "clientes", id))
	_, err = repo.FetchRow(ctx, "clientes", id)
	assert.ErrorIs(t, err, ErrRowNotFound)
}
