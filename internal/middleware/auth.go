package middleware

import (
	"context"
	"net/http"
	"strings"

	"github.com/cozinhalabs/auditoria/internal/httputil"
	"github.com/cozinhalabs/auditoria/internal/permissions"
	"github.com/cozinhalabs/auditoria/internal/tokens"
)

// Actor is the authenticated user credited with the request.
type Actor struct {
	ID    int64
	Role  string
	Level string
}

const actorKey = contextKey("actor")

// GetActor extracts the authenticated actor from the context.
func GetActor(ctx context.Context) (*Actor, bool) {
	actor, ok := ctx.Value(actorKey).(*Actor)
	return actor, ok
}

// WithActor returns a context carrying the actor, for tests.
func WithActor(ctx context.Context, actor *Actor) context.Context {
	return context.WithValue(ctx, actorKey, actor)
}

type AuthMiddleware struct {
	tokens *tokens.TokenGenerator
	perms  *permissions.Service
}

func NewAuthMiddleware(tg *tokens.TokenGenerator, perms *permissions.Service) *AuthMiddleware {
	return &AuthMiddleware{tokens: tg, perms: perms}
}

// RequireAuth validates the bearer token and places the actor in context.
func (m *AuthMiddleware) RequireAuth(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		authHeader := r.Header.Get("Authorization")
		if authHeader == "" {
			httputil.WriteError(w, http.StatusUnauthorized, "missing authorization header")
			return
		}

		parts := strings.Split(authHeader, " ")
		if len(parts) != 2 || parts[0] != "Bearer" {
			httputil.WriteError(w, http.StatusUnauthorized, "invalid authorization header")
			return
		}

		claims, err := m.tokens.Validate(parts[1])
		if err != nil {
			httputil.WriteError(w, http.StatusUnauthorized, "invalid or expired token")
			return
		}

		actor := &Actor{ID: claims.UserID, Role: claims.Role, Level: claims.Level}
		next.ServeHTTP(w, r.WithContext(WithActor(r.Context(), actor)))
	}
}

// RequireCapability gates a handler on the actor's materialized grant for the
// screen. The denial happens before the business handler runs, so a denied
// request has no side effects and produces no audit event.
func (m *AuthMiddleware) RequireCapability(screen string, cap permissions.Capability, next http.HandlerFunc) http.HandlerFunc {
	return m.RequireAuth(func(w http.ResponseWriter, r *http.Request) {
		actor, ok := GetActor(r.Context())
		if !ok {
			httputil.WriteError(w, http.StatusForbidden, "acesso negado")
			return
		}

		allowed, err := m.perms.Check(r.Context(), actor.ID, screen, cap)
		if err != nil {
			httputil.WriteError(w, http.StatusInternalServerError, "erro ao verificar permissões")
			return
		}
		if !allowed {
			httputil.WriteError(w, http.StatusForbidden, "acesso negado")
			return
		}

		next.ServeHTTP(w, r)
	})
}

// RequireDynamicCapability is RequireCapability with the screen taken from
// the {recurso} path parameter.
func (m *AuthMiddleware) RequireDynamicCapability(cap permissions.Capability, next http.HandlerFunc) http.HandlerFunc {
	return m.RequireAuth(func(w http.ResponseWriter, r *http.Request) {
		actor, ok := GetActor(r.Context())
		if !ok {
			httputil.WriteError(w, http.StatusForbidden, "acesso negado")
			return
		}

		screen := r.PathValue("recurso")
		allowed, err := m.perms.Check(r.Context(), actor.ID, screen, cap)
		if err != nil {
			httputil.WriteError(w, http.StatusInternalServerError, "erro ao verificar permissões")
			return
		}
		if !allowed {
			httputil.WriteError(w, http.StatusForbidden, "acesso negado")
			return
		}

		next.ServeHTTP(w, r)
	})
}
