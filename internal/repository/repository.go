package repository

import (
	"context"
	"errors"
	"time"

	"github.com/cozinhalabs/auditoria/internal/models"
)

var (
	ErrUserNotFound = errors.New("user not found")
	ErrUserExists   = errors.New("user already exists")
	ErrRowNotFound  = errors.New("row not found")
)

// EventFilter narrows an audit event listing. Date bounds are inclusive and
// applied at calendar-day precision.
type EventFilter struct {
	UsuarioID  *int64
	Acao       string
	Recurso    string
	DataInicio *time.Time
	DataFim    *time.Time
	Limit      int
	Offset     int
}

// AuditRepository persists and serves the append-only event table.
type AuditRepository interface {
	InsertEvent(ctx context.Context, event *models.AuditEvent) error
	ListEvents(ctx context.Context, filter EventFilter) ([]*models.AuditEventRecord, error)
	CountEvents(ctx context.Context, filter EventFilter) (int64, error)
	ActionStats(ctx context.Context, since time.Time) ([]models.ActionCount, error)
	ResourceStats(ctx context.Context, since time.Time) ([]models.ResourceCount, error)
	TopActors(ctx context.Context, since time.Time, limit int) ([]models.ActiveActor, error)
	CountSince(ctx context.Context, since time.Time) (int64, error)
}

// UserRepository manages the usuarios table.
type UserRepository interface {
	CreateUser(ctx context.Context, user *models.Usuario) error
	GetUserByID(ctx context.Context, id int64) (*models.Usuario, error)
	GetUserByEmail(ctx context.Context, email string) (*models.Usuario, error)
	UpdateUser(ctx context.Context, user *models.Usuario) error
	UpdateUserStatus(ctx context.Context, id int64, status string) error
	UpdatePassword(ctx context.Context, id int64, senhaHash string) error
	DeleteUser(ctx context.Context, id int64) error
	ListUsers(ctx context.Context) ([]*models.Usuario, error)
}

// GrantRepository manages materialized permission grants. ReplaceGrants must
// be delete-then-insert inside a single transaction so concurrent readers
// observe either the old or the new grant set, never a mixture.
type GrantRepository interface {
	ReplaceGrants(ctx context.Context, usuarioID int64, grants []models.PermissaoUsuario) error
	ListGrants(ctx context.Context, usuarioID int64) ([]models.PermissaoUsuario, error)
}

// ResourceRepository provides generic row access for registered business
// tables: pre-image snapshots plus create/update/delete passthrough. Table
// names come exclusively from the registry, never from callers.
type ResourceRepository interface {
	FetchRow(ctx context.Context, table string, id int64) (map[string]any, error)
	InsertRow(ctx context.Context, table string, fields map[string]any) (int64, error)
	UpdateRow(ctx context.Context, table string, id int64, fields map[string]any) error
	DeleteRow(ctx context.Context, table string, id int64) error
}

// Repository is the full storage surface of the service.
type Repository interface {
	AuditRepository
	UserRepository
	GrantRepository
	ResourceRepository
}
