package repository

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/cozinhalabs/auditoria/internal/models"
)

// InMemoryRepository is a map-backed Repository for development and tests.
type InMemoryRepository struct {
	mu sync.RWMutex

	events      []*models.AuditEvent
	nextEventID int64

	users      map[int64]*models.Usuario
	nextUserID int64

	grants map[int64][]models.PermissaoUsuario

	tables    map[string]map[int64]map[string]any
	nextRowID map[string]int64
}

var _ Repository = (*InMemoryRepository)(nil)

func NewInMemoryRepository() *InMemoryRepository {
	return &InMemoryRepository{
		nextEventID: 1,
		users:       make(map[int64]*models.Usuario),
		nextUserID:  1,
		grants:      make(map[int64][]models.PermissaoUsuario),
		tables:      make(map[string]map[int64]map[string]any),
		nextRowID:   make(map[string]int64),
	}
}

func (r *InMemoryRepository) InsertEvent(ctx context.Context, event *models.AuditEvent) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	event.ID = r.nextEventID
	r.nextEventID++
	event.Timestamp = time.Now().UTC()

	stored := *event
	r.events = append(r.events, &stored)
	return nil
}

func matchesFilter(e *models.AuditEvent, filter EventFilter) bool {
	if filter.UsuarioID != nil {
		if e.UsuarioID == nil || *e.UsuarioID != *filter.UsuarioID {
			return false
		}
	}
	if filter.Acao != "" && e.Acao != filter.Acao {
		return false
	}
	if filter.Recurso != "" && e.Recurso != filter.Recurso {
		return false
	}
	day := e.Timestamp.Truncate(24 * time.Hour)
	if filter.DataInicio != nil && day.Before(filter.DataInicio.Truncate(24*time.Hour)) {
		return false
	}
	if filter.DataFim != nil && day.After(filter.DataFim.Truncate(24*time.Hour)) {
		return false
	}
	return true
}

func (r *InMemoryRepository) ListEvents(ctx context.Context, filter EventFilter) ([]*models.AuditEventRecord, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var matched []*models.AuditEvent
	for _, e := range r.events {
		if matchesFilter(e, filter) {
			matched = append(matched, e)
		}
	}

	sort.Slice(matched, func(i, j int) bool {
		if !matched[i].Timestamp.Equal(matched[j].Timestamp) {
			return matched[i].Timestamp.After(matched[j].Timestamp)
		}
		return matched[i].ID > matched[j].ID
	})

	if filter.Offset >= len(matched) {
		return nil, nil
	}
	matched = matched[filter.Offset:]
	if filter.Limit > 0 && len(matched) > filter.Limit {
		matched = matched[:filter.Limit]
	}

	records := make([]*models.AuditEventRecord, 0, len(matched))
	for _, e := range matched {
		rec := &models.AuditEventRecord{AuditEvent: *e}
		if e.UsuarioID != nil {
			if u, ok := r.users[*e.UsuarioID]; ok {
				rec.UsuarioNome = u.Nome
				rec.UsuarioEmail = u.Email
			}
		}
		records = append(records, rec)
	}
	return records, nil
}

func (r *InMemoryRepository) CountEvents(ctx context.Context, filter EventFilter) (int64, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var total int64
	for _, e := range r.events {
		if matchesFilter(e, filter) {
			total++
		}
	}
	return total, nil
}

func (r *InMemoryRepository) ActionStats(ctx context.Context, since time.Time) ([]models.ActionCount, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	counts := make(map[string]int64)
	for _, e := range r.events {
		if !e.Timestamp.Before(since) {
			counts[e.Acao]++
		}
	}

	stats := make([]models.ActionCount, 0, len(counts))
	for acao, total := range counts {
		stats = append(stats, models.ActionCount{Acao: acao, Total: total})
	}
	sort.Slice(stats, func(i, j int) bool {
		if stats[i].Total != stats[j].Total {
			return stats[i].Total > stats[j].Total
		}
		return stats[i].Acao < stats[j].Acao
	})
	return stats, nil
}

func (r *InMemoryRepository) ResourceStats(ctx context.Context, since time.Time) ([]models.ResourceCount, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	counts := make(map[string]int64)
	for _, e := range r.events {
		if !e.Timestamp.Before(since) {
			counts[e.Recurso]++
		}
	}

	stats := make([]models.ResourceCount, 0, len(counts))
	for recurso, total := range counts {
		stats = append(stats, models.ResourceCount{Recurso: recurso, Total: total})
	}
	sort.Slice(stats, func(i, j int) bool {
		if stats[i].Total != stats[j].Total {
			return stats[i].Total > stats[j].Total
		}
		return stats[i].Recurso < stats[j].Recurso
	})
	return stats, nil
}

func (r *InMemoryRepository) TopActors(ctx context.Context, since time.Time, limit int) ([]models.ActiveActor, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	counts := make(map[int64]int64)
	for _, e := range r.events {
		if e.UsuarioID != nil && !e.Timestamp.Before(since) {
			counts[*e.UsuarioID]++
		}
	}

	var actors []models.ActiveActor
	for id, total := range counts {
		u, ok := r.users[id]
		if !ok {
			continue
		}
		actors = append(actors, models.ActiveActor{
			UsuarioID: id, Nome: u.Nome, Email: u.Email, TotalAcoes: total,
		})
	}
	sort.Slice(actors, func(i, j int) bool {
		if actors[i].TotalAcoes != actors[j].TotalAcoes {
			return actors[i].TotalAcoes > actors[j].TotalAcoes
		}
		return actors[i].UsuarioID < actors[j].UsuarioID
	})
	if limit > 0 && len(actors) > limit {
		actors = actors[:limit]
	}
	return actors, nil
}

func (r *InMemoryRepository) CountSince(ctx context.Context, since time.Time) (int64, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var total int64
	for _, e := range r.events {
		if !e.Timestamp.Before(since) {
			total++
		}
	}
	return total, nil
}

func (r *InMemoryRepository) CreateUser(ctx context.Context, user *models.Usuario) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, u := range r.users {
		if strings.EqualFold(u.Email, user.Email) {
			return ErrUserExists
		}
	}

	user.ID = r.nextUserID
	r.nextUserID++
	user.CriadoEm = time.Now().UTC()

	stored := *user
	r.users[user.ID] = &stored
	return nil
}

func (r *InMemoryRepository) GetUserByID(ctx context.Context, id int64) (*models.Usuario, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if u, ok := r.users[id]; ok {
		copied := *u
		return &copied, nil
	}
	return nil, ErrUserNotFound
}

func (r *InMemoryRepository) GetUserByEmail(ctx context.Context, email string) (*models.Usuario, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, u := range r.users {
		if strings.EqualFold(u.Email, email) {
			copied := *u
			return &copied, nil
		}
	}
	return nil, ErrUserNotFound
}

func (r *InMemoryRepository) UpdateUser(ctx context.Context, user *models.Usuario) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	existing, ok := r.users[user.ID]
	if !ok {
		return ErrUserNotFound
	}

	now := time.Now().UTC()
	existing.Nome = user.Nome
	existing.Email = user.Email
	existing.TipoDeAcesso = user.TipoDeAcesso
	existing.NivelDeAcesso = user.NivelDeAcesso
	existing.AtualizadoEm = &now
	return nil
}

func (r *InMemoryRepository) UpdateUserStatus(ctx context.Context, id int64, status string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	u, ok := r.users[id]
	if !ok {
		return ErrUserNotFound
	}
	now := time.Now().UTC()
	u.Status = status
	u.AtualizadoEm = &now
	return nil
}

func (r *InMemoryRepository) UpdatePassword(ctx context.Context, id int64, senhaHash string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	u, ok := r.users[id]
	if !ok {
		return ErrUserNotFound
	}
	now := time.Now().UTC()
	u.SenhaHash = senhaHash
	u.AtualizadoEm = &now
	return nil
}

func (r *InMemoryRepository) DeleteUser(ctx context.Context, id int64) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.users[id]; !ok {
		return ErrUserNotFound
	}
	delete(r.users, id)
	delete(r.grants, id)
	return nil
}

func (r *InMemoryRepository) ListUsers(ctx context.Context) ([]*models.Usuario, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	users := make([]*models.Usuario, 0, len(r.users))
	for _, u := range r.users {
		copied := *u
		users = append(users, &copied)
	}
	sort.Slice(users, func(i, j int) bool { return users[i].ID < users[j].ID })
	return users, nil
}

func (r *InMemoryRepository) ReplaceGrants(ctx context.Context, usuarioID int64, grants []models.PermissaoUsuario) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	replaced := make([]models.PermissaoUsuario, len(grants))
	copy(replaced, grants)
	r.grants[usuarioID] = replaced
	return nil
}

func (r *InMemoryRepository) ListGrants(ctx context.Context, usuarioID int64) ([]models.PermissaoUsuario, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	grants := make([]models.PermissaoUsuario, len(r.grants[usuarioID]))
	copy(grants, r.grants[usuarioID])
	sort.Slice(grants, func(i, j int) bool { return grants[i].Tela < grants[j].Tela })
	return grants, nil
}

func (r *InMemoryRepository) FetchRow(ctx context.Context, table string, id int64) (map[string]any, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	// Users live in their own store, not in the generic tables.
	if table == "usuarios" {
		u, ok := r.users[id]
		if !ok {
			return nil, ErrRowNotFound
		}
		return map[string]any{
			"id":              u.ID,
			"nome":            u.Nome,
			"email":           u.Email,
			"senha_hash":      u.SenhaHash,
			"tipo_de_acesso":  u.TipoDeAcesso,
			"nivel_de_acesso": u.NivelDeAcesso,
			"status":          u.Status,
		}, nil
	}

	rows, ok := r.tables[table]
	if !ok {
		return nil, ErrRowNotFound
	}
	row, ok := rows[id]
	if !ok {
		return nil, ErrRowNotFound
	}

	copied := make(map[string]any, len(row))
	for k, v := range row {
		copied[k] = v
	}
	return copied, nil
}

func (r *InMemoryRepository) InsertRow(ctx context.Context, table string, fields map[string]any) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.tables[table] == nil {
		r.tables[table] = make(map[int64]map[string]any)
	}
	r.nextRowID[table]++
	id := r.nextRowID[table]

	row := make(map[string]any, len(fields)+1)
	for k, v := range fields {
		row[k] = v
	}
	row["id"] = id
	r.tables[table][id] = row
	return id, nil
}

func (r *InMemoryRepository) UpdateRow(ctx context.Context, table string, id int64, fields map[string]any) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	rows, ok := r.tables[table]
	if !ok {
		return ErrRowNotFound
	}
	row, ok := rows[id]
	if !ok {
		return ErrRowNotFound
	}
	for k, v := range fields {
		row[k] = v
	}
	return nil
}

func (r *InMemoryRepository) DeleteRow(ctx context.Context, table string, id int64) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	rows, ok := r.tables[table]
	if !ok {
		return ErrRowNotFound
	}
	if _, ok := rows[id]; !ok {
		return ErrRowNotFound
	}
	delete(rows, id)
	return nil
}

// SeedEvent inserts an event with an explicit timestamp, for tests.
func (r *InMemoryRepository) SeedEvent(event models.AuditEvent) {
	r.mu.Lock()
	defer r.mu.Unlock()

	event.ID = r.nextEventID
	r.nextEventID++
	r.events = append(r.events, &event)
}

// SeedRow inserts a row with an explicit id, for tests and dev fixtures.
func (r *InMemoryRepository) SeedRow(table string, id int64, fields map[string]any) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.tables[table] == nil {
		r.tables[table] = make(map[int64]map[string]any)
	}
	row := make(map[string]any, len(fields)+1)
	for k, v := range fields {
		row[k] = v
	}
	row["id"] = id
	r.tables[table][id] = row
	if id > r.nextRowID[table] {
		r.nextRowID[table] = id
	}
}
