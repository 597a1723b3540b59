package permissions

import (
	"context"
	"fmt"

	"github.com/cozinhalabs/auditoria/internal/models"
	"github.com/cozinhalabs/auditoria/internal/repository"
)

// Service materializes and checks per-screen permission grants.
type Service struct {
	repo    repository.GrantRepository
	cache   *GrantCache
	screens []string
}

func NewService(repo repository.GrantRepository, cache *GrantCache, screens []string) *Service {
	return &Service{repo: repo, cache: cache, screens: screens}
}

// Recompute rebuilds the user's grant rows from (role, level) and replaces
// the stored set wholesale. Grants are a pure function of role and level at
// recompute time; patching in place would leave stale capabilities behind
// after a downgrade.
func (s *Service) Recompute(ctx context.Context, usuarioID int64, role, level string) error {
	if !models.ValidRole(role) {
		return fmt.Errorf("unknown access role %q", role)
	}
	if !models.ValidLevel(level) {
		return fmt.Errorf("unknown access level %q", level)
	}

	caps := ForRoleLevel(role, level)
	grants := make([]models.PermissaoUsuario, 0, len(s.screens))
	for _, screen := range s.screens {
		grants = append(grants, models.PermissaoUsuario{
			UsuarioID:      usuarioID,
			Tela:           screen,
			PodeVisualizar: caps.View,
			PodeCriar:      caps.Create,
			PodeEditar:     caps.Edit,
			PodeExcluir:    caps.Delete,
		})
	}

	if err := s.repo.ReplaceGrants(ctx, usuarioID, grants); err != nil {
		return fmt.Errorf("failed to replace grants: %w", err)
	}

	s.cache.Invalidate(ctx, usuarioID)
	return nil
}

// GrantsFor returns the user's current grant set, via cache when available.
func (s *Service) GrantsFor(ctx context.Context, usuarioID int64) ([]models.PermissaoUsuario, error) {
	if grants, ok := s.cache.Get(ctx, usuarioID); ok {
		return grants, nil
	}

	grants, err := s.repo.ListGrants(ctx, usuarioID)
	if err != nil {
		return nil, err
	}

	s.cache.Set(ctx, usuarioID, grants)
	return grants, nil
}

// Check reports whether the user holds the capability on the screen.
func (s *Service) Check(ctx context.Context, usuarioID int64, screen string, cap Capability) (bool, error) {
	grants, err := s.GrantsFor(ctx, usuarioID)
	if err != nil {
		return false, err
	}

	for _, g := range grants {
		if g.Tela != screen {
			continue
		}
		switch cap {
		case CapView:
			return g.PodeVisualizar, nil
		case CapCreate:
			return g.PodeCriar, nil
		case CapEdit:
			return g.PodeEditar, nil
		case CapDelete:
			return g.PodeExcluir, nil
		}
		return false, nil
	}
	return false, nil
}
