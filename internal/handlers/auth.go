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
	"github.com/cozinhalabs/auditoria/internal/service"
	"github.com/cozinhalabs/auditoria/internal/tokens"
)

// AuthHandler serves login, logout and password change. Login and logout are
// recorded directly rather than through the interceptor: login has no actor
// in context until the credentials check passes.
type AuthHandler struct {
	users    *service.UserService
	tokens   *tokens.TokenGenerator
	recorder *audit.Recorder
	logger   *logging.Logger
}

func NewAuthHandler(users *service.UserService, tg *tokens.TokenGenerator, rec *audit.Recorder, logger *logging.Logger) *AuthHandler {
	return &AuthHandler{users: users, tokens: tg, recorder: rec, logger: logger}
}

// Login handles POST /api/v1/auth/login.
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req models.LoginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httputil.WriteError(w, http.StatusBadRequest, "corpo da requisição inválido")
		return
	}
	if req.Email == "" || req.Senha == "" {
		httputil.WriteError(w, http.StatusBadRequest, "email e senha são obrigatórios")
		return
	}

	user, err := h.users.Authenticate(r.Context(), req.Email, req.Senha)
	if err != nil {
		if errors.Is(err, service.ErrInvalidCredentials) || errors.Is(err, service.ErrUserInactive) {
			httputil.WriteError(w, http.StatusUnauthorized, "credenciais inválidas")
			return
		}
		h.logger.WithContext(r.Context()).Error("login failed", "error", err)
		httputil.WriteError(w, http.StatusInternalServerError, "erro ao autenticar")
		return
	}

	token, err := h.tokens.Generate(user.ID, user.TipoDeAcesso, user.NivelDeAcesso)
	if err != nil {
		h.logger.WithContext(r.Context()).Error("token generation failed", "error", err)
		httputil.WriteError(w, http.StatusInternalServerError, "erro ao autenticar")
		return
	}

	h.recorder.Record(&user.ID, models.ActionLogin, "auth", &models.EventDetail{
		Method:     r.Method,
		URL:        r.URL.RequestURI(),
		StatusCode: http.StatusOK,
		UserAgent:  r.UserAgent(),
	}, httputil.GetClientIP(r))

	httputil.WriteJSON(w, http.StatusOK, models.LoginResponse{Token: token, Usuario: user})
}

// Logout handles POST /api/v1/auth/logout. Tokens are stateless, so logout
// only produces the audit event.
func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	actor, ok := middleware.GetActor(r.Context())
	if !ok {
		httputil.WriteError(w, http.StatusUnauthorized, "não autenticado")
		return
	}

	h.recorder.Record(&actor.ID, models.ActionLogout, "auth", &models.EventDetail{
		Method:     r.Method,
		URL:        r.URL.RequestURI(),
		StatusCode: http.StatusOK,
		UserAgent:  r.UserAgent(),
	}, httputil.GetClientIP(r))

	httputil.WriteJSON(w, http.StatusOK, map[string]string{"message": "sessão encerrada"})
}

// ChangePassword handles POST /api/v1/auth/senha.
func (h *AuthHandler) ChangePassword(w http.ResponseWriter, r *http.Request) {
	actor, ok := middleware.GetActor(r.Context())
	if !ok {
		httputil.WriteError(w, http.StatusUnauthorized, "não autenticado")
		return
	}

	var req models.ChangePasswordRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httputil.WriteError(w, http.StatusBadRequest, "corpo da requisição inválido")
		return
	}
	if req.SenhaAtual == "" || req.SenhaNova == "" {
		httputil.WriteError(w, http.StatusBadRequest, "senha atual e nova são obrigatórias")
		return
	}

	if err := h.users.ChangePassword(r.Context(), actor.ID, req.SenhaAtual, req.SenhaNova); err != nil {
		if errors.Is(err, service.ErrInvalidCredentials) {
			httputil.WriteError(w, http.StatusUnauthorized, "senha atual incorreta")
			return
		}
		h.logger.WithContext(r.Context()).Error("password change failed", "error", err)
		httputil.WriteError(w, http.StatusInternalServerError, "erro ao alterar senha")
		return
	}

	httputil.WriteJSON(w, http.StatusOK, map[string]string{"message": "senha alterada"})
}
