package permissions

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/cozinhalabs/auditoria/internal/models"
)

// GrantCache keeps per-user grant sets in Redis. Grants are read on every
// capability-gated request but replaced only on role/level changes, so a
// short TTL removes most of the read load from Postgres. A nil client
// disables the cache entirely.
type GrantCache struct {
	client *redis.Client
	ttl    time.Duration
}

func NewGrantCache(client *redis.Client, ttl time.Duration) *GrantCache {
	return &GrantCache{client: client, ttl: ttl}
}

func (c *GrantCache) Enabled() bool {
	return c != nil && c.client != nil
}

func (c *GrantCache) key(usuarioID int64) string {
	return fmt.Sprintf("auditoria:grants:%d", usuarioID)
}

// Get returns the cached grant set, or (nil, false) on miss or error.
func (c *GrantCache) Get(ctx context.Context, usuarioID int64) ([]models.PermissaoUsuario, bool) {
	if !c.Enabled() {
		return nil, false
	}

	data, err := c.client.Get(ctx, c.key(usuarioID)).Result()
	if errors.Is(err, redis.Nil) {
		return nil, false
	}
	if err != nil {
		return nil, false
	}

	var grants []models.PermissaoUsuario
	if err := json.Unmarshal([]byte(data), &grants); err != nil {
		return nil, false
	}
	return grants, true
}

// Set stores the grant set. Cache errors are ignored; Postgres stays
// authoritative.
func (c *GrantCache) Set(ctx context.Context, usuarioID int64, grants []models.PermissaoUsuario) {
	if !c.Enabled() {
		return
	}

	data, err := json.Marshal(grants)
	if err != nil {
		return
	}
	c.client.Set(ctx, c.key(usuarioID), data, c.ttl)
}

// Invalidate drops the cached grant set after a recompute.
func (c *GrantCache) Invalidate(ctx context.Context, usuarioID int64) {
	if !c.Enabled() {
		return
	}
	c.client.Del(ctx, c.key(usuarioID))
}
