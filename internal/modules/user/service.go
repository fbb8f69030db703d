package user

import (
	"context"
	"errors"
	"strings"

	"texpro/internal/domain"
	"texpro/internal/modules/auth"
	"texpro/internal/repository"
)

var ErrDuplicateEmail = errors.New("email already registered")

type Service struct {
	users *repository.UserRepository
}

func NewService(users *repository.UserRepository) *Service {
	return &Service{users: users}
}

type CreateInput struct {
	Email    string
	Password string
	Name     string
	Role     domain.UserRole
}

func (s *Service) Create(ctx context.Context, in CreateInput) (*domain.User, error) {
	if !in.Role.Valid() {
		return nil, &domain.ConstraintViolationError{Field: "role", Reason: "unknown role"}
	}

	hash, err := auth.HashPassword(in.Password)
	if err != nil {
		return nil, err
	}

	u := &domain.User{
		Email:        strings.ToLower(strings.TrimSpace(in.Email)),
		PasswordHash: hash,
		Name:         strings.TrimSpace(in.Name),
		Role:         in.Role,
		IsActive:     true,
	}
	if err := s.users.Create(ctx, u); err != nil {
		if repository.IsUniqueViolation(err) {
			return nil, ErrDuplicateEmail
		}
		return nil, err
	}
	return u, nil
}

func (s *Service) Get(ctx context.Context, id int64) (*domain.User, error) {
	return s.users.GetByID(ctx, id)
}

func (s *Service) List(ctx context.Context, limit, offset int) ([]domain.User, error) {
	return s.users.List(ctx, limit, offset)
}

func (s *Service) Deactivate(ctx context.Context, id int64) error {
	return s.users.Deactivate(ctx, id)
}
