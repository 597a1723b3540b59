// Package snapshot fetches resource pre-images ahead of updates.
package snapshot

import (
	"context"
	"errors"
	"log/slog"

	"github.com/cozinhalabs/auditoria/internal/audit"
	"github.com/cozinhalabs/auditoria/internal/registry"
	"github.com/cozinhalabs/auditoria/internal/repository"
)

type Accessor struct {
	repo repository.ResourceRepository
	reg  *registry.Registry
}

func NewAccessor(repo repository.ResourceRepository, reg *registry.Registry) *Accessor {
	return &Accessor{repo: repo, reg: reg}
}

// Fetch returns the current row for (resource, id) as a field map, or nil
// when no pre-image is available. Storage errors never propagate: the caller
// proceeds with an empty pre-image and the later diff degrades to empty.
func (a *Accessor) Fetch(ctx context.Context, resource string, id int64) map[string]any {
	table, err := a.reg.Table(resource)
	if err != nil {
		slog.Warn("cannot resolve resource table for pre-image",
			slog.String("resource", resource),
			slog.String("error", err.Error()),
		)
		return nil
	}

	row, err := a.repo.FetchRow(ctx, table, id)
	if err != nil {
		if !errors.Is(err, repository.ErrRowNotFound) {
			audit.SnapshotFailures.Inc()
			slog.Warn("pre-image fetch failed",
				slog.String("resource", resource),
				slog.Int64("id", id),
				slog.String("error", err.Error()),
			)
		}
		return nil
	}

	return row
}
