package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/cozinhalabs/auditoria/internal/audit"
	"github.com/cozinhalabs/auditoria/internal/httputil"
	"github.com/cozinhalabs/auditoria/internal/logging"
	"github.com/cozinhalabs/auditoria/internal/middleware"
	"github.com/cozinhalabs/auditoria/internal/models"
	"github.com/cozinhalabs/auditoria/internal/repository"
	"github.com/cozinhalabs/auditoria/internal/service"
)

// UsersHandler manages accounts. Role or level changes additionally produce
// a permission_change event, because the materialized grant set was rebuilt.
type UsersHandler struct {
	users    *service.UserService
	recorder *audit.Recorder
	logger   *logging.Logger
}

func NewUsersHandler(users *service.UserService, rec *audit.Recorder, logger *logging.Logger) *UsersHandler {
	return &UsersHandler{users: users, recorder: rec, logger: logger}
}

// List handles GET /api/v1/usuarios.
func (h *UsersHandler) List(w http.ResponseWriter, r *http.Request) {
	users, err := h.users.List(r.Context())
	if err != nil {
		h.logger.WithContext(r.Context()).Error("failed to list users", "error", err)
		httputil.WriteError(w, http.StatusInternalServerError, "erro ao listar usuários")
		return
	}
	httputil.WriteJSON(w, http.StatusOK, users)
}

// Create handles POST /api/v1/usuarios.
func (h *UsersHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req models.CreateUserRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httputil.WriteError(w, http.StatusBadRequest, "corpo da requisição inválido")
		return
	}
	if req.Nome == "" || req.Email == "" || req.Senha == "" {
		httputil.WriteError(w, http.StatusBadRequest, "nome, email e senha são obrigatórios")
		return
	}

	user, err := h.users.Create(r.Context(), &req)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrInvalidRole), errors.Is(err, service.ErrInvalidLevel):
			httputil.WriteError(w, http.StatusBadRequest, err.Error())
		case errors.Is(err, repository.ErrUserExists):
			httputil.WriteError(w, http.StatusConflict, "email já cadastrado")
		default:
			h.logger.WithContext(r.Context()).Error("failed to create user", "error", err)
			httputil.WriteError(w, http.StatusInternalServerError, "erro ao criar usuário")
		}
		return
	}
	httputil.WriteJSON(w, http.StatusCreated, user)
}

// Update handles PUT /api/v1/usuarios/{id}.
func (h *UsersHandler) Update(w http.ResponseWriter, r *http.Request) {
	id, err := httputil.ParseID(r.PathValue("id"))
	if err != nil {
		httputil.WriteError(w, http.StatusBadRequest, "id inválido")
		return
	}

	var req models.UpdateUserRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httputil.WriteError(w, http.StatusBadRequest, "corpo da requisição inválido")
		return
	}

	user, accessChanged, err := h.users.Update(r.Context(), id, &req)
	if err != nil {
		switch {
		case errors.Is(err, repository.ErrUserNotFound):
			httputil.WriteError(w, http.StatusNotFound, "usuário não encontrado")
		case errors.Is(err, service.ErrInvalidRole), errors.Is(err, service.ErrInvalidLevel):
			httputil.WriteError(w, http.StatusBadRequest, err.Error())
		default:
			h.logger.WithContext(r.Context()).Error("failed to update user", "error", err, "usuario_id", id)
			httputil.WriteError(w, http.StatusInternalServerError, "erro ao atualizar usuário")
		}
		return
	}

	if accessChanged {
		h.recordPermissionChange(r, user)
	}
	httputil.WriteJSON(w, http.StatusOK, user)
}

// UpdateStatus handles PATCH /api/v1/usuarios/{id}/status.
func (h *UsersHandler) UpdateStatus(w http.ResponseWriter, r *http.Request) {
	id, err := httputil.ParseID(r.PathValue("id"))
	if err != nil {
		httputil.WriteError(w, http.StatusBadRequest, "id inválido")
		return
	}

	var req models.UpdateStatusRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httputil.WriteError(w, http.StatusBadRequest, "corpo da requisição inválido")
		return
	}

	if err := h.users.SetStatus(r.Context(), id, req.Status); err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			httputil.WriteError(w, http.StatusNotFound, "usuário não encontrado")
			return
		}
		httputil.WriteError(w, http.StatusBadRequest, err.Error())
		return
	}
	httputil.WriteJSON(w, http.StatusOK, map[string]string{"message": "status atualizado"})
}

// Delete handles DELETE /api/v1/usuarios/{id}.
func (h *UsersHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, err := httputil.ParseID(r.PathValue("id"))
	if err != nil {
		httputil.WriteError(w, http.StatusBadRequest, "id inválido")
		return
	}

	if err := h.users.Delete(r.Context(), id); err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			httputil.WriteError(w, http.StatusNotFound, "usuário não encontrado")
			return
		}
		h.logger.WithContext(r.Context()).Error("failed to delete user", "error", err, "usuario_id", id)
		httputil.WriteError(w, http.StatusInternalServerError, "erro ao excluir usuário")
		return
	}
	httputil.WriteJSON(w, http.StatusOK, map[string]string{"message": "usuário excluído"})
}

func (h *UsersHandler) recordPermissionChange(r *http.Request, user *models.Usuario) {
	var actorID *int64
	if actor, ok := middleware.GetActor(r.Context()); ok {
		actorID = &actor.ID
	}
	h.recorder.Record(actorID, models.ActionPermissionChange, "permissoes", &models.EventDetail{
		Method:     r.Method,
		URL:        r.URL.RequestURI(),
		StatusCode: http.StatusOK,
		UserAgent:  r.UserAgent(),
		ResourceID: &user.ID,
		RequestBody: map[string]any{
			"tipo_de_acesso":  user.TipoDeAcesso,
			"nivel_de_acesso": user.NivelDeAcesso,
		},
	}, httputil.GetClientIP(r))
}
