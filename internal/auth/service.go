package auth

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/ElenaBezro/go-shop-api/internal/domain"
	"github.com/ElenaBezro/go-shop-api/internal/repository"
)

var (
	ErrUserExists         = errors.New("user with this username already exists")
	ErrEmailExists        = errors.New("user with this e-mail already exists")
	ErrInvalidCredentials = errors.New("invalid username or password")
)

type Service struct {
	users  repository.UserRepository
	tokens *TokenManager
	log    *zap.Logger
}

func NewService(users repository.UserRepository, tokens *TokenManager, log *zap.Logger) *Service {
	return &Service{
		users:  users,
		tokens: tokens,
		log:    log,
	}
}

// Register creates a user with the default USER role. Username and
// email must both be unused.
func (s *Service) Register(ctx context.Context, username, email, password string) (*domain.User, error) {
	taken, err := s.users.ExistsByUsername(ctx, username)
	if err != nil {
		return nil, err
	}
	if taken {
		return nil, ErrUserExists
	}

	taken, err = s.users.ExistsByEmail(ctx, email)
	if err != nil {
		return nil, err
	}
	if taken {
		return nil, ErrEmailExists
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}

	user := &domain.User{
		Username:     username,
		Email:        email,
		PasswordHash: string(hash),
		Roles:        []string{domain.RoleUser},
	}
	if err := s.users.Insert(ctx, user); err != nil {
		// The unique constraints close the race between the existence
		// checks and the insert.
		switch {
		case errors.Is(err, repository.ErrDuplicateUsername):
			return nil, ErrUserExists
		case errors.Is(err, repository.ErrDuplicateEmail):
			return nil, ErrEmailExists
		}
		return nil, err
	}

	s.log.Info("user_registered", zap.Int64("user_id", user.ID), zap.String("username", username))
	return user, nil
}

// Login verifies the password and returns a signed token.
func (s *Service) Login(ctx context.Context, username, password string) (string, error) {
	user, err := s.users.GetByUsername(ctx, username)
	if errors.Is(err, repository.ErrUserNotFound) {
		return "", ErrInvalidCredentials
	}
	if err != nil {
		return "", err
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		return "", ErrInvalidCredentials
	}

	token, err := s.tokens.Generate(user)
	if err != nil {
		return "", err
	}

	s.log.Info("user_logged_in", zap.Int64("user_id", user.ID))
	return token, nil
}

// EnsureAdmin creates the administrative account on first start. An
// existing user with the same username is left untouched.
func (s *Service) EnsureAdmin(ctx context.Context, username, email, password string) error {
	_, err := s.users.GetByUsername(ctx, username)
	if err == nil {
		return nil
	}
	if !errors.Is(err, repository.ErrUserNotFound) {
		return err
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return fmt.Errorf("hash admin password: %w", err)
	}

	admin := &domain.User{
		Username:     username,
		Email:        email,
		PasswordHash: string(hash),
		Roles:        []string{domain.RoleUser, domain.RoleAdmin},
	}
	if err := s.users.Insert(ctx, admin); err != nil {
		return err
	}

	s.log.Info("admin_user_created", zap.Int64("user_id", admin.ID), zap.String("username", username))
	return nil
}
