package audit

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cozinhalabs/auditoria/internal/models"
	"github.com/cozinhalabs/auditoria/internal/repository"
)

type mockAuditRepo struct {
	insertFunc func(ctx context.Context, event *models.AuditEvent) error
}

func (m *mockAuditRepo) InsertEvent(ctx context.Context, event *models.AuditEvent) error {
	if m.insertFunc != nil {
		return m.insertFunc(ctx, event)
	}
	return nil
}

func (m *mockAuditRepo) ListEvents(context.Context, repository.EventFilter) ([]*models.AuditEventRecord, error) {
	return nil, errors.New("not implemented")
}
func (m *mockAuditRepo) CountEvents(context.Context, repository.EventFilter) (int64, error) {
	return 0, errors.New("not implemented")
}
func (m *mockAuditRepo) ActionStats(context.Context, time.Time) ([]models.ActionCount, error) {
	return nil, errors.New("not implemented")
}
func (m *mockAuditRepo) ResourceStats(context.Context, time.Time) ([]models.ResourceCount, error) {
	return nil, errors.New("not implemented")
}
func (m *mockAuditRepo) TopActors(context.Context, time.Time, int) ([]models.ActiveActor, error) {
	return nil, errors.New("not implemented")
}
func (m *mockAuditRepo) CountSince(context.Context, time.Time) (int64, error) {
	return 0, errors.New("not implemented")
}

func TestRecordPersistsEvent(t *testing.T) {
	var captured *models.AuditEvent
	repo := &mockAuditRepo{
		insertFunc: func(_ context.Context, event *models.AuditEvent) error {
			captured = event
			return nil
		},
	}
	rec := NewRecorder(repo)

	actorID := int64(42)
	detail := &models.EventDetail{Method: "POST", URL: "/api/v1/recursos/clientes", StatusCode: 201}
	rec.Record(&actorID, models.ActionCreate, "clientes", detail, "10.0.0.8")

	require.NotNil(t, captured)
	assert.Equal(t, int64(42), *captured.UsuarioID)
	assert.Equal(t, models.ActionCreate, captured.Acao)
	assert.Equal(t, "clientes", captured.Recurso)
	assert.Equal(t, "10.0.0.8", captured.IPAddress)
	assert.Equal(t, detail, captured.Detalhes)
}

func TestRecordSwallowsStorageFailure(t *testing.T) {
	repo := &mockAuditRepo{
		insertFunc: func(context.Context, *models.AuditEvent) error {
			return errors.New("connection refused")
		},
	}
	rec := NewRecorder(repo)

	// must not panic and must not propagate the error anywhere
	rec.Record(nil, models.ActionDelete, "produtos", nil, "10.0.0.8")
}

func TestRecordAnonymousActor(t *testing.T) {
	var captured *models.AuditEvent
	repo := &mockAuditRepo{
		insertFunc: func(_ context.Context, event *models.AuditEvent) error {
			captured = event
			return nil
		},
	}
	NewRecorder(repo).Record(nil, models.ActionLogin, "auth", nil, "")

	require.NotNil(t, captured)
	assert.Nil(t, captured.UsuarioID)
}
