// Package server assembles the HTTP surface: routes, middleware chains and
// the audit interception points.
package server

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/cozinhalabs/auditoria/internal/handlers"
	"github.com/cozinhalabs/auditoria/internal/httputil"
	"github.com/cozinhalabs/auditoria/internal/middleware"
	"github.com/cozinhalabs/auditoria/internal/models"
	"github.com/cozinhalabs/auditoria/internal/permissions"
)

type Handlers struct {
	Auth       *handlers.AuthHandler
	Users      *handlers.UsersHandler
	Resources  *handlers.ResourcesHandler
	Permissoes *handlers.PermissoesHandler
	Audit      *handlers.AuditHandler
}

// NewRouter wires every route. Mutating routes are wrapped by the audit
// interceptor inside the authentication chain, so the interceptor always
// sees the actor and a denied request never produces an event.
func NewRouter(h Handlers, authmw *middleware.AuthMiddleware, ic *middleware.Interceptor) http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /healthz", func(w http.ResponseWriter, r *http.Request) {
		httputil.WriteJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	mux.Handle("GET /metrics", promhttp.Handler())

	// Auth. Login records its own event: there is no actor before the
	// credentials check.
	mux.HandleFunc("POST /api/v1/auth/login", h.Auth.Login)
	mux.HandleFunc("POST /api/v1/auth/logout", authmw.RequireAuth(h.Auth.Logout))
	mux.HandleFunc("POST /api/v1/auth/senha", authmw.RequireAuth(
		ic.Wrap(models.ActionPasswordChange, "usuarios", h.Auth.ChangePassword)))

	// Accounts.
	mux.HandleFunc("GET /api/v1/usuarios",
		authmw.RequireCapability("usuarios", permissions.CapView, h.Users.List))
	mux.HandleFunc("POST /api/v1/usuarios",
		authmw.RequireCapability("usuarios", permissions.CapCreate,
			ic.Wrap(models.ActionCreate, "usuarios", h.Users.Create)))
	mux.HandleFunc("PUT /api/v1/usuarios/{id}",
		authmw.RequireCapability("usuarios", permissions.CapEdit,
			ic.Wrap(models.ActionUpdate, "usuarios", h.Users.Update)))
	mux.HandleFunc("DELETE /api/v1/usuarios/{id}",
		authmw.RequireCapability("usuarios", permissions.CapDelete,
			ic.Wrap(models.ActionDelete, "usuarios", h.Users.Delete)))
	mux.HandleFunc("PATCH /api/v1/usuarios/{id}/status",
		authmw.RequireCapability("usuarios", permissions.CapEdit,
			ic.Wrap(models.ActionUserStatusChange, "usuarios", h.Users.UpdateStatus)))

	// Grants.
	mux.HandleFunc("GET /api/v1/permissoes/{usuarioId}",
		authmw.RequireAuth(h.Permissoes.Get))
	mux.HandleFunc("PUT /api/v1/permissoes/{usuarioId}",
		authmw.RequireAuth(
			ic.Wrap(models.ActionPermissionChange, "permissoes", h.Permissoes.Recompute)))

	// Generic business resources.
	mux.HandleFunc("GET /api/v1/recursos/{recurso}/{id}",
		authmw.RequireDynamicCapability(permissions.CapView, h.Resources.Get))
	mux.HandleFunc("POST /api/v1/recursos/{recurso}",
		authmw.RequireDynamicCapability(permissions.CapCreate,
			ic.WrapDynamic(models.ActionCreate, h.Resources.Create)))
	mux.HandleFunc("PUT /api/v1/recursos/{recurso}/{id}",
		authmw.RequireDynamicCapability(permissions.CapEdit,
			ic.WrapDynamic(models.ActionUpdate, h.Resources.Update)))
	mux.HandleFunc("DELETE /api/v1/recursos/{recurso}/{id}",
		authmw.RequireDynamicCapability(permissions.CapDelete,
			ic.WrapDynamic(models.ActionDelete, h.Resources.Delete)))

	// Audit trail. Role gates live in the handlers because they depend on
	// role and level, not on a screen grant.
	mux.HandleFunc("GET /api/v1/auditoria", authmw.RequireAuth(h.Audit.List))
	mux.HandleFunc("GET /api/v1/auditoria/usuarios/{id}", authmw.RequireAuth(h.Audit.ListByUser))
	mux.HandleFunc("GET /api/v1/auditoria/estatisticas", authmw.RequireAuth(h.Audit.Stats))
	mux.HandleFunc("GET /api/v1/auditoria/exportar/xlsx", authmw.RequireAuth(h.Audit.ExportXLSX))
	mux.HandleFunc("GET /api/v1/auditoria/exportar/pdf", authmw.RequireAuth(h.Audit.ExportPDF))

	return middleware.RequestID(mux)
}
