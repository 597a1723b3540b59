package models

import "time"

// AuditEvent is one immutable fact about a completed mutation. Rows are
// append-only: nothing in the codebase updates or deletes them.
type AuditEvent struct {
	ID        int64        `json:"id"`
	UsuarioID *int64       `json:"usuario_id"`
	Acao      string       `json:"acao"`
	Recurso   string       `json:"recurso"`
	Detalhes  *EventDetail `json:"detalhes,omitempty"`
	IPAddress string       `json:"ip_address,omitempty"`
	Timestamp time.Time    `json:"timestamp"`
}

// AuditEventRecord is an AuditEvent joined with the actor's current name and
// email for display. A missing actor yields empty strings, not an error.
type AuditEventRecord struct {
	AuditEvent
	UsuarioNome  string `json:"usuario_nome,omitempty"`
	UsuarioEmail string `json:"usuario_email,omitempty"`
}

// EventDetail is the schema-less payload stored alongside each event.
type EventDetail struct {
	Method      string                 `json:"method"`
	URL         string                 `json:"url"`
	StatusCode  int                    `json:"statusCode"`
	UserAgent   string                 `json:"userAgent,omitempty"`
	ResourceID  *int64                 `json:"resourceId,omitempty"`
	RequestBody map[string]any         `json:"requestBody,omitempty"`
	Changes     map[string]FieldChange `json:"changes,omitempty"`
}

// FieldChange is a single before/after pair in a change set.
type FieldChange struct {
	From any `json:"from"`
	To   any `json:"to"`
}

const (
	ActionLogin            = "login"
	ActionLogout           = "logout"
	ActionCreate           = "create"
	ActionUpdate           = "update"
	ActionDelete           = "delete"
	ActionView             = "view"
	ActionPasswordChange   = "password_change"
	ActionPermissionChange = "permission_change"
	ActionUserStatusChange = "user_status_change"
)

var auditActions = map[string]bool{
	ActionLogin:            true,
	ActionLogout:           true,
	ActionCreate:           true,
	ActionUpdate:           true,
	ActionDelete:           true,
	ActionView:             true,
	ActionPasswordChange:   true,
	ActionPermissionChange: true,
	ActionUserStatusChange: true,
}

// ValidAction reports whether s is a member of the closed action enumeration.
func ValidAction(s string) bool {
	return auditActions[s]
}

// AuditStats is the aggregate view over a trailing window.
type AuditStats struct {
	PorAcao        []ActionCount   `json:"por_acao"`
	PorRecurso     []ResourceCount `json:"por_recurso"`
	UsuariosAtivos []ActiveActor   `json:"usuarios_ativos"`
	AcoesHoje      int64           `json:"acoes_hoje"`
	PeriodoDias    int             `json:"periodo_dias"`
}

type ActionCount struct {
	Acao  string `json:"acao"`
	Total int64  `json:"total"`
}

type ResourceCount struct {
	Recurso string `json:"recurso"`
	Total   int64  `json:"total"`
}

type ActiveActor struct {
	UsuarioID   int64  `json:"usuario_id"`
	Nome        string `json:"nome"`
	Email       string `json:"email"`
	TotalAcoes  int64  `json:"total_acoes"`
}
