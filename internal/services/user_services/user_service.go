// File: internal/services/user_services/user_service.go
package user_services

import (
	"context"

	"github.com/google/uuid"

	"github.com/thatchat/go-backend/internal/domain"
	"github.com/thatchat/go-backend/internal/repository/user"
)

// UserService exposes profile lookups for the rest of the system.
type UserService struct {
	userRepo user.UserRepository
	logger   Logger
}

func NewUserService(userRepo user.UserRepository, logger Logger) *UserService {
	return &UserService{userRepo: userRepo, logger: logger}
}

func (s *UserService) FindByID(ctx context.Context, id uuid.UUID) (*domain.User, error) {
	return s.userRepo.FindByID(ctx, id)
}

func (s *UserService) FindByEmail(ctx context.Context, email string) (*domain.User, error) {
	return s.userRepo.FindByEmail(ctx, email)
}
