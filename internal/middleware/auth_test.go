package middleware

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cozinhalabs/auditoria/internal/models"
	"github.com/cozinhalabs/auditoria/internal/permissions"
	"github.com/cozinhalabs/auditoria/internal/repository"
	"github.com/cozinhalabs/auditoria/internal/tokens"
)

func newAuthFixture(t *testing.T) (*AuthMiddleware, *tokens.TokenGenerator, *permissions.Service, *repository.InMemoryRepository) {
	t.Helper()
	repo := repository.NewInMemoryRepository()
	perms := permissions.NewService(repo, nil, []string{"clientes", "usuarios"})
	tg := tokens.NewTokenGenerator("test-secret-long-enough", time.Hour)
	return NewAuthMiddleware(tg, perms), tg, perms, repo
}

func TestRequireAuth(t *testing.T) {
	mw, tg, _, _ := newAuthFixture(t)

	var gotActor *Actor
	handler := mw.RequireAuth(func(w http.ResponseWriter, r *http.Request) {
		gotActor, _ = GetActor(r.Context())
		w.WriteHeader(http.StatusOK)
	})

	t.Run("valid token", func(t *testing.T) {
		token, err := tg.Generate(7, models.RoleGerente, models.LevelII)
		require.NoError(t, err)

		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.Header.Set("Authorization", "Bearer "+token)
		rec := httptest.NewRecorder()
		handler(rec, req)

		assert.Equal(t, http.StatusOK, rec.Code)
		require.NotNil(t, gotActor)
		assert.Equal(t, int64(7), gotActor.ID)
		assert.Equal(t, models.RoleGerente, gotActor.Role)
		assert.Equal(t, models.LevelII, gotActor.Level)
	})

	t.Run("missing header", func(t *testing.T) {
		rec := httptest.NewRecorder()
		handler(rec, httptest.NewRequest(http.MethodGet, "/", nil))
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
	})

	t.Run("malformed header", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.Header.Set("Authorization", "Token abc")
		rec := httptest.NewRecorder()
		handler(rec, req)
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
	})

	t.Run("garbage token", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.Header.Set("Authorization", "Bearer not-a-jwt")
		rec := httptest.NewRecorder()
		handler(rec, req)
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
	})

	t.Run("token signed with another secret", func(t *testing.T) {
		other := tokens.NewTokenGenerator("a-different-secret-entirely", time.Hour)
		token, err := other.Generate(7, models.RoleGerente, models.LevelII)
		require.NoError(t, err)

		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.Header.Set("Authorization", "Bearer "+token)
		rec := httptest.NewRecorder()
		handler(rec, req)
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
	})
}

func TestRequireCapability(t *testing.T) {
	mw, tg, perms, _ := newAuthFixture(t)

	handlerCalled := false
	handler := mw.RequireCapability("clientes", permissions.CapDelete, func(w http.ResponseWriter, r *http.Request) {
		handlerCalled = true
		w.WriteHeader(http.StatusOK)
	})

	// gerente level II has no delete grant
	require.NoError(t, perms.Recompute(context.Background(), 7, models.RoleGerente, models.LevelII))
	token, err := tg.Generate(7, models.RoleGerente, models.LevelII)
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodDelete, "/", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	rec := httptest.NewRecorder()
	handler(rec, req)

	assert.Equal(t, http.StatusForbidden, rec.Code)
	assert.False(t, handlerCalled, "denied request must not reach the handler")

	// after an upgrade to level III the same request passes
	require.NoError(t, perms.Recompute(context.Background(), 7, models.RoleGerente, models.LevelIII))
	rec = httptest.NewRecorder()
	handler(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, handlerCalled)
}

func TestRequireDynamicCapability(t *testing.T) {
	mw, tg, perms, _ := newAuthFixture(t)
	require.NoError(t, perms.Recompute(context.Background(), 3, models.RoleSupervisor, models.LevelII))

	handler := mw.RequireDynamicCapability(permissions.CapCreate, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusCreated)
	})

	token, err := tg.Generate(3, models.RoleSupervisor, models.LevelII)
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/recursos/clientes", nil)
	req.SetPathValue("recurso", "clientes")
	req.Header.Set("Authorization", "Bearer "+token)
	rec := httptest.NewRecorder()
	handler(rec, req)
	assert.Equal(t, http.StatusCreated, rec.Code)

	// screen without a grant row is denied
	req = httptest.NewRequest(http.MethodPost, "/api/v1/recursos/contratos", nil)
	req.SetPathValue("recurso", "contratos")
	req.Header.Set("Authorization", "Bearer "+token)
	rec = httptest.NewRecorder()
	handler(rec, req)
	assert.Equal(t, http.StatusForbidden, rec.Code)
}
