package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"regexp"
	"sort"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/cozinhalabs/auditoria/internal/models"
)

var identPattern = regexp.MustCompile(`^[a-z][a-z0-9_]*$`)

type PostgresRepository struct {
	pool *pgxpool.Pool
}

func NewPostgresRepository(ctx context.Context, connString string) (*PostgresRepository, error) {
	config, err := pgxpool.ParseConfig(connString)
	if err != nil {
		return nil, fmt.Errorf("failed to parse database config: %w", err)
	}

	config.MaxConns = 25
	config.MinConns = 5
	config.MaxConnLifetime = 5 * time.Minute
	config.MaxConnIdleTime = 1 * time.Minute

	pool, err := pgxpool.NewWithConfig(ctx, config)
	if err != nil {
		return nil, fmt.Errorf("failed to create connection pool: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return &PostgresRepository{pool: pool}, nil
}

func (r *PostgresRepository) Close() {
	r.pool.Close()
}

// ----------------------------------------------------------------------------
// Audit events
// ----------------------------------------------------------------------------

func (r *PostgresRepository) InsertEvent(ctx context.Context, event *models.AuditEvent) error {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	var detailJSON []byte
	if event.Detalhes != nil {
		var err error
		detailJSON, err = json.Marshal(event.Detalhes)
		if err != nil {
			return fmt.Errorf("failed to marshal event detail: %w", err)
		}
	}

	// Timestamp and id are server-assigned; the caller never supplies them.
	query := `
		INSERT INTO auditoria_acoes (usuario_id, acao, recurso, detalhes, ip_address, timestamp)
		VALUES ($1, $2, $3, $4, $5, now())
		RETURNING id, timestamp
	`

	err := r.pool.QueryRow(ctx, query,
		event.UsuarioID, event.Acao, event.Recurso, detailJSON, nullIfEmpty(event.IPAddress),
	).Scan(&event.ID, &event.Timestamp)
	if err != nil {
		return fmt.Errorf("failed to insert audit event: %w", err)
	}

	return nil
}

func buildEventWhere(filter EventFilter) (string, []any) {
	var conds []string
	var args []any

	add := func(cond string, value any) {
		args = append(args, value)
		conds = append(conds, fmt.Sprintf(cond, len(args)))
	}

	if filter.UsuarioID != nil {
		add("a.usuario_id = $%d", *filter.UsuarioID)
	}
	if filter.Acao != "" {
		add("a.acao = $%d", filter.Acao)
	}
	if filter.Recurso != "" {
		add("a.recurso = $%d", filter.Recurso)
	}
	if filter.DataInicio != nil {
		add("a.timestamp::date >= $%d::date", *filter.DataInicio)
	}
	if filter.DataFim != nil {
		add("a.timestamp::date <= $%d::date", *filter.DataFim)
	}

	if len(conds) == 0 {
		return "", args
	}
	return "WHERE " + strings.Join(conds, " AND "), args
}

func (r *PostgresRepository) ListEvents(ctx context.Context, filter EventFilter) ([]*models.AuditEventRecord, error) {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	where, args := buildEventWhere(filter)
	args = append(args, filter.Limit, filter.Offset)

	query := fmt.Sprintf(`
		SELECT a.id, a.usuario_id, a.acao, a.recurso, a.detalhes, a.ip_address, a.timestamp,
		       COALESCE(u.nome, ''), COALESCE(u.email, '')
		FROM auditoria_acoes a
		LEFT JOIN usuarios u ON a.usuario_id = u.id
		%s
		ORDER BY a.timestamp DESC, a.id DESC
		LIMIT $%d OFFSET $%d
	`, where, len(args)-1, len(args))

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list audit events: %w", err)
	}
	defer rows.Close()

	var events []*models.AuditEventRecord
	for rows.Next() {
		var rec models.AuditEventRecord
		var detailJSON []byte
		var ip *string

		err := rows.Scan(
			&rec.ID, &rec.UsuarioID, &rec.Acao, &rec.Recurso, &detailJSON, &ip, &rec.Timestamp,
			&rec.UsuarioNome, &rec.UsuarioEmail,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan audit event: %w", err)
		}

		if ip != nil {
			rec.IPAddress = *ip
		}
		if len(detailJSON) > 0 {
			var detail models.EventDetail
			if err := json.Unmarshal(detailJSON, &detail); err == nil {
				rec.Detalhes = &detail
			}
			// An unparseable detail blob is served without detail rather
			// than failing the whole listing.
		}

		events = append(events, &rec)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating audit events: %w", err)
	}

	return events, nil
}

func (r *PostgresRepository) CountEvents(ctx context.Context, filter EventFilter) (int64, error) {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	where, args := buildEventWhere(filter)
	query := fmt.Sprintf(`SELECT COUNT(*) FROM auditoria_acoes a %s`, where)

	var total int64
	if err := r.pool.QueryRow(ctx, query, args...).Scan(&total); err != nil {
		return 0, fmt.Errorf("failed to count audit events: %w", err)
	}
	return total, nil
}

func (r *PostgresRepository) ActionStats(ctx context.Context, since time.Time) ([]models.ActionCount, error) {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	query := `
		SELECT acao, COUNT(*) AS total
		FROM auditoria_acoes
		WHERE timestamp >= $1
		GROUP BY acao
		ORDER BY total DESC
	`

	rows, err := r.pool.Query(ctx, query, since)
	if err != nil {
		return nil, fmt.Errorf("failed to query action stats: %w", err)
	}
	defer rows.Close()

	var stats []models.ActionCount
	for rows.Next() {
		var s models.ActionCount
		if err := rows.Scan(&s.Acao, &s.Total); err != nil {
			return nil, fmt.Errorf("failed to scan action stats: %w", err)
		}
		stats = append(stats, s)
	}
	return stats, rows.Err()
}

func (r *PostgresRepository) ResourceStats(ctx context.Context, since time.Time) ([]models.ResourceCount, error) {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	query := `
		SELECT recurso, COUNT(*) AS total
		FROM auditoria_acoes
		WHERE timestamp >= $1
		GROUP BY recurso
		ORDER BY total DESC
	`

	rows, err := r.pool.Query(ctx, query, since)
	if err != nil {
		return nil, fmt.Errorf("failed to query resource stats: %w", err)
	}
	defer rows.Close()

	var stats []models.ResourceCount
	for rows.Next() {
		var s models.ResourceCount
		if err := rows.Scan(&s.Recurso, &s.Total); err != nil {
			return nil, fmt.Errorf("failed to scan resource stats: %w", err)
		}
		stats = append(stats, s)
	}
	return stats, rows.Err()
}

func (r *PostgresRepository) TopActors(ctx context.Context, since time.Time, limit int) ([]models.ActiveActor, error) {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	query := `
		SELECT u.id, u.nome, u.email, COUNT(a.id) AS total_acoes
		FROM auditoria_acoes a
		JOIN usuarios u ON a.usuario_id = u.id
		WHERE a.timestamp >= $1
		GROUP BY u.id, u.nome, u.email
		ORDER BY total_acoes DESC
		LIMIT $2
	`

	rows, err := r.pool.Query(ctx, query, since, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query top actors: %w", err)
	}
	defer rows.Close()

	var actors []models.ActiveActor
	for rows.Next() {
		var a models.ActiveActor
		if err := rows.Scan(&a.UsuarioID, &a.Nome, &a.Email, &a.TotalAcoes); err != nil {
			return nil, fmt.Errorf("failed to scan top actor: %w", err)
		}
		actors = append(actors, a)
	}
	return actors, rows.Err()
}

func (r *PostgresRepository) CountSince(ctx context.Context, since time.Time) (int64, error) {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	var total int64
	err := r.pool.QueryRow(ctx,
		`SELECT COUNT(*) FROM auditoria_acoes WHERE timestamp >= $1`, since,
	).Scan(&total)
	if err != nil {
		return 0, fmt.Errorf("failed to count audit events: %w", err)
	}
	return total, nil
}

// ----------------------------------------------------------------------------
// Users
// ----------------------------------------------------------------------------

func (r *PostgresRepository) CreateUser(ctx context.Context, user *models.Usuario) error {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	query := `
		INSERT INTO usuarios (nome, email, senha_hash, tipo_de_acesso, nivel_de_acesso, status, criado_em)
		VALUES ($1, $2, $3, $4, $5, $6, now())
		RETURNING id, criado_em
	`

	err := r.pool.QueryRow(ctx, query,
		user.Nome, user.Email, user.SenhaHash, user.TipoDeAcesso, user.NivelDeAcesso, user.Status,
	).Scan(&user.ID, &user.CriadoEm)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return ErrUserExists
		}
		return fmt.Errorf("failed to create user: %w", err)
	}

	return nil
}

const userColumns = `id, nome, email, senha_hash, tipo_de_acesso, nivel_de_acesso, status, criado_em, atualizado_em`

func (r *PostgresRepository) GetUserByID(ctx context.Context, id int64) (*models.Usuario, error) {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	var user models.Usuario
	err := r.pool.QueryRow(ctx,
		`SELECT `+userColumns+` FROM usuarios WHERE id = $1`, id,
	).Scan(
		&user.ID, &user.Nome, &user.Email, &user.SenhaHash,
		&user.TipoDeAcesso, &user.NivelDeAcesso, &user.Status,
		&user.CriadoEm, &user.AtualizadoEm,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("failed to get user: %w", err)
	}

	return &user, nil
}

func (r *PostgresRepository) GetUserByEmail(ctx context.Context, email string) (*models.Usuario, error) {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	var user models.Usuario
	err := r.pool.QueryRow(ctx,
		`SELECT `+userColumns+` FROM usuarios WHERE email = $1`, email,
	).Scan(
		&user.ID, &user.Nome, &user.Email, &user.SenhaHash,
		&user.TipoDeAcesso, &user.NivelDeAcesso, &user.Status,
		&user.CriadoEm, &user.AtualizadoEm,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("failed to get user: %w", err)
	}

	return &user, nil
}

func (r *PostgresRepository) UpdateUser(ctx context.Context, user *models.Usuario) error {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	query := `
		UPDATE usuarios
		SET nome = $2, email = $3, tipo_de_acesso = $4, nivel_de_acesso = $5, atualizado_em = now()
		WHERE id = $1
	`

	result, err := r.pool.Exec(ctx, query,
		user.ID, user.Nome, user.Email, user.TipoDeAcesso, user.NivelDeAcesso,
	)
	if err != nil {
		return fmt.Errorf("failed to update user: %w", err)
	}
	if result.RowsAffected() == 0 {
		return ErrUserNotFound
	}

	return nil
}

func (r *PostgresRepository) UpdateUserStatus(ctx context.Context, id int64, status string) error {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	result, err := r.pool.Exec(ctx,
		`UPDATE usuarios SET status = $2, atualizado_em = now() WHERE id = $1`, id, status,
	)
	if err != nil {
		return fmt.Errorf("failed to update user status: %w", err)
	}
	if result.RowsAffected() == 0 {
		return ErrUserNotFound
	}
	return nil
}

func (r *PostgresRepository) UpdatePassword(ctx context.Context, id int64, senhaHash string) error {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	result, err := r.pool.Exec(ctx,
		`UPDATE usuarios SET senha_hash = $2, atualizado_em = now() WHERE id = $1`, id, senhaHash,
	)
	if err != nil {
		return fmt.Errorf("failed to update password: %w", err)
	}
	if result.RowsAffected() == 0 {
		return ErrUserNotFound
	}
	return nil
}

func (r *PostgresRepository) DeleteUser(ctx context.Context, id int64) error {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	result, err := r.pool.Exec(ctx, `DELETE FROM usuarios WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete user: %w", err)
	}
	if result.RowsAffected() == 0 {
		return ErrUserNotFound
	}
	return nil
}

func (r *PostgresRepository) ListUsers(ctx context.Context) ([]*models.Usuario, error) {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	rows, err := r.pool.Query(ctx,
		`SELECT `+userColumns+` FROM usuarios ORDER BY criado_em DESC`,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list users: %w", err)
	}
	defer rows.Close()

	var users []*models.Usuario
	for rows.Next() {
		var user models.Usuario
		err := rows.Scan(
			&user.ID, &user.Nome, &user.Email, &user.SenhaHash,
			&user.TipoDeAcesso, &user.NivelDeAcesso, &user.Status,
			&user.CriadoEm, &user.AtualizadoEm,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan user: %w", err)
		}
		users = append(users, &user)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating users: %w", err)
	}

	return users, nil
}

// ----------------------------------------------------------------------------
// Permission grants
// ----------------------------------------------------------------------------

func (r *PostgresRepository) ReplaceGrants(ctx context.Context, usuarioID int64, grants []models.PermissaoUsuario) error {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin grant transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	if _, err := tx.Exec(ctx,
		`DELETE FROM permissoes_usuario WHERE usuario_id = $1`, usuarioID,
	); err != nil {
		return fmt.Errorf("failed to delete existing grants: %w", err)
	}

	for _, g := range grants {
		_, err := tx.Exec(ctx, `
			INSERT INTO permissoes_usuario (usuario_id, tela, pode_visualizar, pode_criar, pode_editar, pode_excluir)
			VALUES ($1, $2, $3, $4, $5, $6)
		`, usuarioID, g.Tela, g.PodeVisualizar, g.PodeCriar, g.PodeEditar, g.PodeExcluir)
		if err != nil {
			return fmt.Errorf("failed to insert grant for %q: %w", g.Tela, err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("failed to commit grant replacement: %w", err)
	}
	return nil
}

func (r *PostgresRepository) ListGrants(ctx context.Context, usuarioID int64) ([]models.PermissaoUsuario, error) {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	rows, err := r.pool.Query(ctx, `
		SELECT usuario_id, tela, pode_visualizar, pode_criar, pode_editar, pode_excluir
		FROM permissoes_usuario
		WHERE usuario_id = $1
		ORDER BY tela
	`, usuarioID)
	if err != nil {
		return nil, fmt.Errorf("failed to list grants: %w", err)
	}
	defer rows.Close()

	var grants []models.PermissaoUsuario
	for rows.Next() {
		var g models.PermissaoUsuario
		err := rows.Scan(&g.UsuarioID, &g.Tela, &g.PodeVisualizar, &g.PodeCriar, &g.PodeEditar, &g.PodeExcluir)
		if err != nil {
			return nil, fmt.Errorf("failed to scan grant: %w", err)
		}
		grants = append(grants, g)
	}

	return grants, rows.Err()
}

// ----------------------------------------------------------------------------
// Generic resource rows
// ----------------------------------------------------------------------------

func checkIdent(name string) error {
	if !identPattern.MatchString(name) {
		return fmt.Errorf("unsafe identifier %q", name)
	}
	return nil
}

func (r *PostgresRepository) FetchRow(ctx context.Context, table string, id int64) (map[string]any, error) {
	if err := checkIdent(table); err != nil {
		return nil, err
	}

	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	rows, err := r.pool.Query(ctx,
		fmt.Sprintf(`SELECT * FROM %s WHERE id = $1`, table), id,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch row from %s: %w", table, err)
	}
	defer rows.Close()

	if !rows.Next() {
		if err := rows.Err(); err != nil {
			return nil, fmt.Errorf("failed to fetch row from %s: %w", table, err)
		}
		return nil, ErrRowNotFound
	}

	values, err := rows.Values()
	if err != nil {
		return nil, fmt.Errorf("failed to read row values: %w", err)
	}

	row := make(map[string]any, len(values))
	for i, fd := range rows.FieldDescriptions() {
		row[string(fd.Name)] = values[i]
	}

	return row, nil
}

func (r *PostgresRepository) InsertRow(ctx context.Context, table string, fields map[string]any) (int64, error) {
	if err := checkIdent(table); err != nil {
		return 0, err
	}

	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	cols := make([]string, 0, len(fields))
	for col := range fields {
		if err := checkIdent(col); err != nil {
			return 0, err
		}
		cols = append(cols, col)
	}
	sort.Strings(cols)

	placeholders := make([]string, len(cols))
	args := make([]any, len(cols))
	for i, col := range cols {
		placeholders[i] = fmt.Sprintf("$%d", i+1)
		args[i] = fields[col]
	}

	query := fmt.Sprintf(
		`INSERT INTO %s (%s) VALUES (%s) RETURNING id`,
		table, strings.Join(cols, ", "), strings.Join(placeholders, ", "),
	)

	var id int64
	if err := r.pool.QueryRow(ctx, query, args...).Scan(&id); err != nil {
		return 0, fmt.Errorf("failed to insert into %s: %w", table, err)
	}
	return id, nil
}

func (r *PostgresRepository) UpdateRow(ctx context.Context, table string, id int64, fields map[string]any) error {
	if err := checkIdent(table); err != nil {
		return err
	}
	if len(fields) == 0 {
		return nil
	}

	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	cols := make([]string, 0, len(fields))
	for col := range fields {
		if err := checkIdent(col); err != nil {
			return err
		}
		cols = append(cols, col)
	}
	sort.Strings(cols)

	sets := make([]string, len(cols))
	args := make([]any, 0, len(cols)+1)
	args = append(args, id)
	for i, col := range cols {
		sets[i] = fmt.Sprintf("%s = $%d", col, i+2)
		args = append(args, fields[col])
	}

	query := fmt.Sprintf(`UPDATE %s SET %s WHERE id = $1`, table, strings.Join(sets, ", "))

	result, err := r.pool.Exec(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("failed to update %s: %w", table, err)
	}
	if result.RowsAffected() == 0 {
		return ErrRowNotFound
	}
	return nil
}

func (r *PostgresRepository) DeleteRow(ctx context.Context, table string, id int64) error {
	if err := checkIdent(table); err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	result, err := r.pool.Exec(ctx,
		fmt.Sprintf(`DELETE FROM %s WHERE id = $1`, table), id,
	)
	if err != nil {
		return fmt.Errorf("failed to delete from %s: %w", table, err)
	}
	if result.RowsAffected() == 0 {
		return ErrRowNotFound
	}
	return nil
}

func nullIfEmpty(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
