package service

import (
	"context"
	"errors"
	"fmt"

	"golang.org/x/crypto/bcrypt"

	"github.com/cozinhalabs/auditoria/internal/models"
	"github.com/cozinhalabs/auditoria/internal/permissions"
	"github.com/cozinhalabs/auditoria/internal/repository"
)

var (
	ErrInvalidCredentials = errors.New("credenciais inválidas")
	ErrUserInactive       = errors.New("usuário inativo")
	ErrInvalidRole        = errors.New("tipo de acesso inválido")
	ErrInvalidLevel       = errors.New("nível de acesso inválido")
)

// UserService manages accounts and keeps each user's materialized grants in
// step with their role and level.
type UserService struct {
	repo  repository.UserRepository
	perms *permissions.Service
}

func NewUserService(repo repository.UserRepository, perms *permissions.Service) *UserService {
	return &UserService{repo: repo, perms: perms}
}

// Authenticate verifies email and password and returns the account. Inactive
// accounts fail even with the correct password.
func (s *UserService) Authenticate(ctx context.Context, email, senha string) (*models.Usuario, error) {
	user, err := s.repo.GetUserByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			return nil, ErrInvalidCredentials
		}
		return nil, fmt.Errorf("fetching user: %w", err)
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.SenhaHash), []byte(senha)); err != nil {
		return nil, ErrInvalidCredentials
	}
	if user.Status != models.StatusAtivo {
		return nil, ErrUserInactive
	}
	return user, nil
}

// Create registers a new account and materializes its initial grant set.
func (s *UserService) Create(ctx context.Context, req *models.CreateUserRequest) (*models.Usuario, error) {
	if !models.ValidRole(req.TipoDeAcesso) {
		return nil, ErrInvalidRole
	}
	if !models.ValidLevel(req.NivelDeAcesso) {
		return nil, ErrInvalidLevel
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Senha), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("hashing password: %w", err)
	}

	user := &models.Usuario{
		Nome:          req.Nome,
		Email:         req.Email,
		SenhaHash:     string(hash),
		TipoDeAcesso:  req.TipoDeAcesso,
		NivelDeAcesso: req.NivelDeAcesso,
		Status:        models.StatusAtivo,
	}
	if err := s.repo.CreateUser(ctx, user); err != nil {
		return nil, err
	}

	if err := s.perms.Recompute(ctx, user.ID, user.TipoDeAcesso, user.NivelDeAcesso); err != nil {
		return nil, fmt.Errorf("materializing grants: %w", err)
	}
	return user, nil
}

// Update applies a partial update. When role or level change the grant set is
// recomputed in the same call; the returned bool reports whether that
// happened so the caller can record a permission_change event.
func (s *UserService) Update(ctx context.Context, id int64, req *models.UpdateUserRequest) (*models.Usuario, bool, error) {
	user, err := s.repo.GetUserByID(ctx, id)
	if err != nil {
		return nil, false, err
	}

	accessChanged := false
	if req.Nome != nil {
		user.Nome = *req.Nome
	}
	if req.Email != nil {
		user.Email = *req.Email
	}
	if req.TipoDeAcesso != nil && *req.TipoDeAcesso != user.TipoDeAcesso {
		if !models.ValidRole(*req.TipoDeAcesso) {
			return nil, false, ErrInvalidRole
		}
		user.TipoDeAcesso = *req.TipoDeAcesso
		accessChanged = true
	}
	if req.NivelDeAcesso != nil && *req.NivelDeAcesso != user.NivelDeAcesso {
		if !models.ValidLevel(*req.NivelDeAcesso) {
			return nil, false, ErrInvalidLevel
		}
		user.NivelDeAcesso = *req.NivelDeAcesso
		accessChanged = true
	}

	if err := s.repo.UpdateUser(ctx, user); err != nil {
		return nil, false, err
	}

	if accessChanged {
		if err := s.perms.Recompute(ctx, user.ID, user.TipoDeAcesso, user.NivelDeAcesso); err != nil {
			return nil, false, fmt.Errorf("recomputing grants: %w", err)
		}
	}
	return user, accessChanged, nil
}

// SetStatus activates or deactivates an account.
func (s *UserService) SetStatus(ctx context.Context, id int64, status string) error {
	if status != models.StatusAtivo && status != models.StatusInativo {
		return fmt.Errorf("status inválido: %q", status)
	}
	return s.repo.UpdateUserStatus(ctx, id, status)
}

// ChangePassword swaps the hash after verifying the current password.
func (s *UserService) ChangePassword(ctx context.Context, id int64, atual, nova string) error {
	user, err := s.repo.GetUserByID(ctx, id)
	if err != nil {
		return err
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.SenhaHash), []byte(atual)); err != nil {
		return ErrInvalidCredentials
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(nova), bcrypt.DefaultCost)
	if err != nil {
		return fmt.Errorf("hashing password: %w", err)
	}
	return s.repo.UpdatePassword(ctx, id, string(hash))
}

func (s *UserService) Get(ctx context.Context, id int64) (*models.Usuario, error) {
	return s.repo.GetUserByID(ctx, id)
}

func (s *UserService) List(ctx context.Context) ([]*models.Usuario, error) {
	return s.repo.ListUsers(ctx)
}

func (s *UserService) Delete(ctx context.Context, id int64) error {
	return s.repo.DeleteUser(ctx, id)
}
