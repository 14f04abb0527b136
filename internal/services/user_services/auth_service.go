// File: internal/services/user_services/auth_service.go
package user_services

import (
	"context"
	"errors"
	"fmt"
	"net/mail"
	"strings"

	"github.com/google/uuid"

	"github.com/thatchat/go-backend/internal/auth"
	"github.com/thatchat/go-backend/internal/domain"
	"github.com/thatchat/go-backend/internal/repository/user"
)

var ErrInvalidCredentials = errors.New("invalid credentials")
var ErrEmailTaken = errors.New("user with this email already exists")

const passwordMinLength = 4

type AuthService struct {
	userRepo     user.UserRepository
	jwtSecretKey string
	logger       Logger
}

func NewAuthService(userRepo user.UserRepository, jwtSecretKey string, logger Logger) *AuthService {
	return &AuthService{
		userRepo:     userRepo,
		jwtSecretKey: jwtSecretKey,
		logger:       logger,
	}
}

// Register creates a new account with a hashed password.
func (s *AuthService) Register(ctx context.Context, email, password string) (*domain.User, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	if err := s.validateRegistrationInput(email, password); err != nil {
		s.logger.Warn("registration validation failed",
			"email", maskEmail(email),
			"error", err.Error())
		return nil, err
	}

	s.logger.Info("user registration attempt", "email", maskEmail(email))

	newUser := &domain.User{Email: email}
	if err := newUser.HashPassword(password); err != nil {
		return nil, fmt.Errorf("password hashing failed: %w", err)
	}

	created, err := s.userRepo.Create(ctx, newUser)
	if err != nil {
		if errors.Is(err, user.ErrDuplicateEmail) {
			s.logger.Warn("registration failed - email already exists",
				"email", maskEmail(email))
			return nil, ErrEmailTaken
		}
		s.logger.Error("registration failed", "error", err)
		return nil, fmt.Errorf("could not create user: %w", err)
	}

	s.logger.Info("registration successful", "user_id", created.ID)
	return created, nil
}

// Login authenticates a user and returns a signed access token.
func (s *AuthService) Login(ctx context.Context, email, password string) (*domain.User, string, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" || password == "" {
		s.logger.Warn("login attempt with empty credentials",
			"has_email", email != "",
			"has_password", password != "")
		return nil, "", ErrInvalidCredentials
	}

	account, err := s.userRepo.FindByEmail(ctx, email)
	if err != nil {
		s.logger.Warn("login failed - user not found", "email", maskEmail(email))
		return nil, "", ErrInvalidCredentials
	}

	if err := account.ValidatePassword(password); err != nil {
		s.logger.Warn("login failed - invalid password",
			"email", maskEmail(email),
			"user_id", account.ID)
		return nil, "", ErrInvalidCredentials
	}

	token, err := auth.GenerateJWT(account.ID, []byte(s.jwtSecretKey))
	if err != nil {
		s.logger.Error("JWT token generation failed",
			"error", err,
			"user_id", account.ID)
		return nil, "", fmt.Errorf("failed to generate token: %w", err)
	}

	s.logger.Info("login successful", "user_id", account.ID)
	return account, token, nil
}

// ValidateToken resolves a bearer token to the stable user identifier.
func (s *AuthService) ValidateToken(tokenString string) (uuid.UUID, error) {
	return auth.ValidateToken(tokenString, []byte(s.jwtSecretKey))
}

func (s *AuthService) validateRegistrationInput(email, password string) error {
	if _, err := mail.ParseAddress(email); err != nil {
		return errors.New("email address is invalid")
	}
	if len(password) < passwordMinLength {
		return fmt.Errorf("password must be at least %d characters", passwordMinLength)
	}
	return nil
}
