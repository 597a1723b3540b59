package handlers

import (
	"errors"
	"net/http"

	"github.com/cozinhalabs/auditoria/internal/httputil"
	"github.com/cozinhalabs/auditoria/internal/logging"
	"github.com/cozinhalabs/auditoria/internal/middleware"
	"github.com/cozinhalabs/auditoria/internal/models"
	"github.com/cozinhalabs/auditoria/internal/permissions"
	"github.com/cozinhalabs/auditoria/internal/repository"
	"github.com/cozinhalabs/auditoria/internal/service"
)

// PermissoesHandler serves materialized grants and lets administrators force
// a regrant from the user's current role and level.
type PermissoesHandler struct {
	perms  *permissions.Service
	users  *service.UserService
	logger *logging.Logger
}

func NewPermissoesHandler(perms *permissions.Service, users *service.UserService, logger *logging.Logger) *PermissoesHandler {
	return &PermissoesHandler{perms: perms, users: users, logger: logger}
}

// Get handles GET /api/v1/permissoes/{usuarioId}. Users can read their own
// grants; administrators anyone's.
func (h *PermissoesHandler) Get(w http.ResponseWriter, r *http.Request) {
	actor, ok := middleware.GetActor(r.Context())
	if !ok {
		httputil.WriteError(w, http.StatusForbidden, "acesso negado")
		return
	}

	id, err := httputil.ParseID(r.PathValue("usuarioId"))
	if err != nil {
		httputil.WriteError(w, http.StatusBadRequest, "id inválido")
		return
	}
	if actor.Role != models.RoleAdministrador && actor.ID != id {
		httputil.WriteError(w, http.StatusForbidden, "acesso negado")
		return
	}

	grants, err := h.perms.GrantsFor(r.Context(), id)
	if err != nil {
		h.logger.WithContext(r.Context()).Error("failed to load grants", "error", err, "usuario_id", id)
		httputil.WriteError(w, http.StatusInternalServerError, "erro ao consultar permissões")
		return
	}
	httputil.WriteJSON(w, http.StatusOK, grants)
}

// Recompute handles PUT /api/v1/permissoes/{usuarioId}: rebuild the grant
// set from the user's stored role and level. Administrators only.
func (h *PermissoesHandler) Recompute(w http.ResponseWriter, r *http.Request) {
	actor, ok := middleware.GetActor(r.Context())
	if !ok || actor.Role != models.RoleAdministrador {
		httputil.WriteError(w, http.StatusForbidden, "acesso negado")
		return
	}

	id, err := httputil.ParseID(r.PathValue("usuarioId"))
	if err != nil {
		httputil.WriteError(w, http.StatusBadRequest, "id inválido")
		return
	}

	user, err := h.users.Get(r.Context(), id)
	if err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			httputil.WriteError(w, http.StatusNotFound, "usuário não encontrado")
			return
		}
		h.logger.WithContext(r.Context()).Error("failed to load user", "error", err, "usuario_id", id)
		httputil.WriteError(w, http.StatusInternalServerError, "erro ao consultar usuário")
		return
	}

	if err := h.perms.Recompute(r.Context(), user.ID, user.TipoDeAcesso, user.NivelDeAcesso); err != nil {
		h.logger.WithContext(r.Context()).Error("failed to recompute grants", "error", err, "usuario_id", id)
		httputil.WriteError(w, http.StatusInternalServerError, "erro ao recalcular permissões")
		return
	}

	grants, err := h.perms.GrantsFor(r.Context(), id)
	if err != nil {
		h.logger.WithContext(r.Context()).Error("failed to load grants", "error", err, "usuario_id", id)
		httputil.WriteError(w, http.StatusInternalServerError, "erro ao consultar permissões")
		return
	}
	httputil.WriteJSON(w, http.StatusOK, grants)
}
