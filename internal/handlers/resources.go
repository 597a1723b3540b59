package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/cozinhalabs/auditoria/internal/httputil"
	"github.com/cozinhalabs/auditoria/internal/logging"
	"github.com/cozinhalabs/auditoria/internal/registry"
	"github.com/cozinhalabs/auditoria/internal/repository"
)

// ResourcesHandler is the generic CRUD surface for registered business
// tables. The registry is the only source of table names, so an unknown
// resource is a 404 before storage sees anything.
type ResourcesHandler struct {
	repo     repository.ResourceRepository
	registry *registry.Registry
	logger   *logging.Logger
}

func NewResourcesHandler(repo repository.ResourceRepository, reg *registry.Registry, logger *logging.Logger) *ResourcesHandler {
	return &ResourcesHandler{repo: repo, registry: reg, logger: logger}
}

func (h *ResourcesHandler) table(w http.ResponseWriter, r *http.Request) (string, bool) {
	resource := r.PathValue("recurso")
	if !h.registry.Known(resource) {
		httputil.WriteError(w, http.StatusNotFound, "recurso desconhecido")
		return "", false
	}
	table, err := h.registry.Table(resource)
	if err != nil {
		httputil.WriteError(w, http.StatusNotFound, "recurso desconhecido")
		return "", false
	}
	return table, true
}

// Get handles GET /api/v1/recursos/{recurso}/{id}.
func (h *ResourcesHandler) Get(w http.ResponseWriter, r *http.Request) {
	table, ok := h.table(w, r)
	if !ok {
		return
	}
	id, err := httputil.ParseID(r.PathValue("id"))
	if err != nil {
		httputil.WriteError(w, http.StatusBadRequest, "id inválido")
		return
	}

	row, err := h.repo.FetchRow(r.Context(), table, id)
	if err != nil {
		if errors.Is(err, repository.ErrRowNotFound) {
			httputil.WriteError(w, http.StatusNotFound, "registro não encontrado")
			return
		}
		h.logger.WithContext(r.Context()).Error("failed to fetch row", "error", err, "table", table)
		httputil.WriteError(w, http.StatusInternalServerError, "erro ao consultar registro")
		return
	}
	httputil.WriteJSON(w, http.StatusOK, row)
}

// Create handles POST /api/v1/recursos/{recurso}.
func (h *ResourcesHandler) Create(w http.ResponseWriter, r *http.Request) {
	table, ok := h.table(w, r)
	if !ok {
		return
	}

	var fields map[string]any
	if err := json.NewDecoder(r.Body).Decode(&fields); err != nil || len(fields) == 0 {
		httputil.WriteError(w, http.StatusBadRequest, "corpo da requisição inválido")
		return
	}

	id, err := h.repo.InsertRow(r.Context(), table, fields)
	if err != nil {
		h.logger.WithContext(r.Context()).Error("failed to insert row", "error", err, "table", table)
		httputil.WriteError(w, http.StatusInternalServerError, "erro ao criar registro")
		return
	}
	httputil.WriteJSON(w, http.StatusCreated, map[string]any{"id": id})
}

// Update handles PUT /api/v1/recursos/{recurso}/{id}.
func (h *ResourcesHandler) Update(w http.ResponseWriter, r *http.Request) {
	table, ok := h.table(w, r)
	if !ok {
		return
	}
	id, err := httputil.ParseID(r.PathValue("id"))
	if err != nil {
		httputil.WriteError(w, http.StatusBadRequest, "id inválido")
		return
	}

	var fields map[string]any
	if err := json.NewDecoder(r.Body).Decode(&fields); err != nil || len(fields) == 0 {
		httputil.WriteError(w, http.StatusBadRequest, "corpo da requisição inválido")
		return
	}

	if err := h.repo.UpdateRow(r.Context(), table, id, fields); err != nil {
		if errors.Is(err, repository.ErrRowNotFound) {
			httputil.WriteError(w, http.StatusNotFound, "registro não encontrado")
			return
		}
		h.logger.WithContext(r.Context()).Error("failed to update row", "error", err, "table", table)
		httputil.WriteError(w, http.StatusInternalServerError, "erro ao atualizar registro")
		return
	}
	httputil.WriteJSON(w, http.StatusOK, map[string]string{"message": "registro atualizado"})
}

// Delete handles DELETE /api/v1/recursos/{recurso}/{id}.
func (h *ResourcesHandler) Delete(w http.ResponseWriter, r *http.Request) {
	table, ok := h.table(w, r)
	if !ok {
		return
	}
	id, err := httputil.ParseID(r.PathValue("id"))
	if err != nil {
		httputil.WriteError(w, http.StatusBadRequest, "id inválido")
		return
	}

	if err := h.repo.DeleteRow(r.Context(), table, id); err != nil {
		if errors.Is(err, repository.ErrRowNotFound) {
			httputil.WriteError(w, http.StatusNotFound, "registro não encontrado")
			return
		}
		h.logger.WithContext(r.Context()).Error("failed to delete row", "error", err, "table", table)
		httputil.WriteError(w, http.StatusInternalServerError, "erro ao excluir registro")
		return
	}
	httputil.WriteJSON(w, http.StatusOK, map[string]string{"message": "registro excluído"})
}
