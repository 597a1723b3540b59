package middleware

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cozinhalabs/auditoria/internal/audit"
	"github.com/cozinhalabs/auditoria/internal/models"
	"github.com/cozinhalabs/auditoria/internal/registry"
	"github.com/cozinhalabs/auditoria/internal/repository"
	"github.com/cozinhalabs/auditoria/internal/snapshot"
)

func newTestInterceptor(t *testing.T) (*Interceptor, *repository.InMemoryRepository) {
	t.Helper()
	repo := repository.NewInMemoryRepository()
	reg := registry.Default()
	return NewInterceptor(audit.NewRecorder(repo), snapshot.NewAccessor(repo, reg), reg), repo
}

func listAll(t *testing.T, repo *repository.InMemoryRepository) []*models.AuditEventRecord {
	t.Helper()
	events, err := repo.ListEvents(context.Background(), repository.EventFilter{Limit: 100})
	require.NoError(t, err)
	return events
}

func authedRequest(method, target string, body []byte) *http.Request {
	var r *http.Request
	if body != nil {
		r = httptest.NewRequest(method, target, bytes.NewReader(body))
	} else {
		r = httptest.NewRequest(method, target, nil)
	}
	actor := &Actor{ID: 42, Role: models.RoleGerente, Level: models.LevelII}
	return r.WithContext(WithActor(r.Context(), actor))
}

func TestInterceptorRecordsCreate(t *testing.T) {
	ic, repo := newTestInterceptor(t)

	handler := ic.Wrap(models.ActionCreate, "clientes", func(w http.ResponseWriter, r *http.Request) {
		// the wrapped handler must still be able to read the body
		var got map[string]any
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		assert.Equal(t, "Acme Ltda", got["razao_social"])
		w.WriteHeader(http.StatusCreated)
	})

	body := []byte(`{"razao_social":"Acme Ltda","senha":"oculta"}`)
	req := authedRequest(http.MethodPost, "/api/v1/recursos/clientes", body)
	req.Header.Set("X-Forwarded-For", "203.0.113.7")
	rec := httptest.NewRecorder()
	handler(rec, req)

	require.Equal(t, http.StatusCreated, rec.Code)

	events := listAll(t, repo)
	require.Len(t, events, 1)
	ev := events[0]
	assert.Equal(t, models.ActionCreate, ev.Acao)
	assert.Equal(t, "clientes", ev.Recurso)
	assert.Equal(t, int64(42), *ev.UsuarioID)
	assert.Equal(t, "203.0.113.7", ev.IPAddress)
	require.NotNil(t, ev.Detalhes)
	assert.Equal(t, http.StatusCreated, ev.Detalhes.StatusCode)
	assert.Equal(t, "Acme Ltda", ev.Detalhes.RequestBody["razao_social"])
	assert.Equal(t, registry.RedactionMarker, ev.Detalhes.RequestBody["senha"])
}

func TestInterceptorNoEventOnFailure(t *testing.T) {
	ic, repo := newTestInterceptor(t)

	for _, status := range []int{http.StatusBadRequest, http.StatusForbidden, http.StatusInternalServerError} {
		handler := ic.Wrap(models.ActionCreate, "clientes", func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(status)
		})
		handler(httptest.NewRecorder(), authedRequest(http.MethodPost, "/api/v1/recursos/clientes", []byte(`{}`)))
	}

	assert.Empty(t, listAll(t, repo), "non-2xx responses must not be audited")
}

func TestInterceptorImplicit200IsSuccess(t *testing.T) {
	ic, repo := newTestInterceptor(t)

	handler := ic.Wrap(models.ActionUpdate, "clientes", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{}`)) // no explicit WriteHeader
	})
	handler(httptest.NewRecorder(), authedRequest(http.MethodPut, "/api/v1/recursos/clientes/1", []byte(`{"nome":"x"}`)))

	events := listAll(t, repo)
	require.Len(t, events, 1)
	assert.Equal(t, http.StatusOK, events[0].Detalhes.StatusCode)
}

func TestInterceptorUpdateDiff(t *testing.T) {
	ic, repo := newTestInterceptor(t)
	repo.SeedRow("clientes", 9, map[string]any{
		"razao_social": "Acme Ltda",
		"email":        "contato@acme.com",
	})

	handler := ic.Wrap(models.ActionUpdate, "clientes", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})

	body := []byte(`{"razao_social":"Acme S.A.","email":"contato@acme.com"}`)
	req := authedRequest(http.MethodPut, "/api/v1/recursos/clientes/9", body)
	req.SetPathValue("id", "9")
	handler(httptest.NewRecorder(), req)

	events := listAll(t, repo)
	require.Len(t, events, 1)
	detail := events[0].Detalhes
	require.NotNil(t, detail)
	require.NotNil(t, detail.ResourceID)
	assert.Equal(t, int64(9), *detail.ResourceID)

	require.Contains(t, detail.Changes, "razao_social")
	assert.Equal(t, "Acme Ltda", detail.Changes["razao_social"].From)
	assert.Equal(t, "Acme S.A.", detail.Changes["razao_social"].To)
	assert.NotContains(t, detail.Changes, "email", "resubmitted identical value is not a change")
}

func TestInterceptorUpdateMissingPreImageDegrades(t *testing.T) {
	ic, repo := newTestInterceptor(t)

	handler := ic.Wrap(models.ActionUpdate, "clientes", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})

	req := authedRequest(http.MethodPut, "/api/v1/recursos/clientes/77", []byte(`{"nome":"Nova"}`))
	req.SetPathValue("id", "77")
	handler(httptest.NewRecorder(), req)

	// request succeeded and the event was still recorded, but no change set
	// is fabricated from a missing pre-image
	events := listAll(t, repo)
	require.Len(t, events, 1)
	detail := events[0].Detalhes
	require.NotNil(t, detail)
	assert.Empty(t, detail.Changes)
	assert.Equal(t, "Nova", detail.RequestBody["nome"])
}

func TestInterceptorDeleteCarriesResourceID(t *testing.T) {
	ic, repo := newTestInterceptor(t)

	handler := ic.Wrap(models.ActionDelete, "produtos", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})

	req := authedRequest(http.MethodDelete, "/api/v1/recursos/produtos/13", nil)
	req.SetPathValue("id", "13")
	handler(httptest.NewRecorder(), req)

	events := listAll(t, repo)
	require.Len(t, events, 1)
	ev := events[0]
	assert.Equal(t, models.ActionDelete, ev.Acao)
	require.NotNil(t, ev.Detalhes.ResourceID)
	assert.Equal(t, int64(13), *ev.Detalhes.ResourceID)
	assert.Nil(t, ev.Detalhes.RequestBody)
	assert.Empty(t, ev.Detalhes.Changes)
}

func TestInterceptorBodyRestored(t *testing.T) {
	ic, _ := newTestInterceptor(t)

	var seen []byte
	handler := ic.Wrap(models.ActionCreate, "clientes", func(w http.ResponseWriter, r *http.Request) {
		var err error
		seen, err = io.ReadAll(r.Body)
		require.NoError(t, err)
		w.WriteHeader(http.StatusCreated)
	})

	body := []byte(`{"nome":"Acme"}`)
	handler(httptest.NewRecorder(), authedRequest(http.MethodPost, "/api/v1/recursos/clientes", body))
	assert.Equal(t, body, seen)
}

func TestInterceptorWrapDynamic(t *testing.T) {
	ic, repo := newTestInterceptor(t)

	handler := ic.WrapDynamic(models.ActionCreate, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusCreated)
	})

	req := authedRequest(http.MethodPost, "/api/v1/recursos/fornecedores", []byte(`{"nome":"F1"}`))
	req.SetPathValue("recurso", "fornecedores")
	handler(httptest.NewRecorder(), req)

	events := listAll(t, repo)
	require.Len(t, events, 1)
	assert.Equal(t, "fornecedores", events[0].Recurso)
}

func TestInterceptorAnonymousActor(t *testing.T) {
	ic, repo := newTestInterceptor(t)

	handler := ic.Wrap(models.ActionCreate, "clientes", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusCreated)
	})
	handler(httptest.NewRecorder(), httptest.NewRequest(http.MethodPost, "/api/v1/recursos/clientes", bytes.NewReader([]byte(`{}`))))

	events := listAll(t, repo)
	require.Len(t, events, 1)
	assert.Nil(t, events[0].UsuarioID)
}
