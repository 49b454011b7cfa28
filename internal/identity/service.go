package identity

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"golang.org/x/crypto/bcrypt"

	"github.com/odontocare/clinic-api/internal/auth"
	"github.com/odontocare/clinic-api/internal/config"
)

var (
	ErrInvalidCredentials = errors.New("invalid email or password")
	ErrUserInactive       = errors.New("user is deactivated")
	ErrInvalidUser        = errors.New("email, name, role and password are required")
	ErrWeakPassword       = errors.New("password must be at least 8 characters")
)

type Service struct {
	repo Repository
	cfg  config.Config
	log  zerolog.Logger
}

func NewService(repo Repository, cfg config.Config, log zerolog.Logger) *Service {
	return &Service{
		repo: repo,
		cfg:  cfg,
		log:  log.With().Str("component", "identity").Logger(),
	}
}

type CreateUserRequest struct {
	Email      string
	Name       string
	Role       auth.Role
	Password   string
	ValidUntil *time.Time
}

func (s *Service) CreateUser(ctx context.Context, req CreateUserRequest) (*User, error) {
	email := strings.ToLower(strings.TrimSpace(req.Email))
	if email == "" || req.Name == "" || !auth.ValidRole(req.Role) {
		return nil, ErrInvalidUser
	}
	if len(req.Password) < 8 {
		return nil, ErrWeakPassword
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}

	user, err := s.repo.CreateUser(ctx, &User{
		Email:        email,
		Name:         req.Name,
		Role:         req.Role,
		PasswordHash: string(hash),
		Active:       true,
		ValidUntil:   req.ValidUntil,
	})
	if err != nil {
		return nil, err
	}

	s.log.Info().Str("user_id", user.ID.String()).Str("role", string(user.Role)).Msg("user created")

	return user, nil
}

// Login verifies credentials and issues an access token carrying the user's
// role. Expired-but-not-yet-swept users are treated as inactive.
func (s *Service) Login(ctx context.Context, email, password string) (string, *User, error) {
	user, err := s.repo.GetUserByEmail(ctx, strings.ToLower(strings.TrimSpace(email)))
	if err != nil {
		if errors.Is(err, ErrUserNotFound) {
			return "", nil, ErrInvalidCredentials
		}
		return "", nil, fmt.Errorf("load user: %w", err)
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		return "", nil, ErrInvalidCredentials
	}

	if !user.Active {
		return "", nil, ErrUserInactive
	}
	if user.ValidUntil != nil && user.ValidUntil.Before(time.Now()) {
		return "", nil, ErrUserInactive
	}

	token, err := auth.SignToken(s.cfg.JWTSecret, auth.Claims{UserID: user.ID, Role: user.Role}, s.cfg.TokenTTL)
	if err != nil {
		return "", nil, err
	}

	return token, user, nil
}

func (s *Service) Get(ctx context.Context, id uuid.UUID) (*User, error) {
	return s.repo.GetUserByID(ctx, id)
}

func (s *Service) List(ctx context.Context, includeInactive bool) ([]User, error) {
	return s.repo.ListUsers(ctx, includeInactive)
}

func (s *Service) Deactivate(ctx context.Context, id uuid.UUID) (*User, error) {
	user, err := s.repo.SetUserActive(ctx, id, false)
	if err != nil {
		return nil, err
	}
	s.log.Info().Str("user_id", id.String()).Msg("user deactivated")
	return user, nil
}

// DeactivateExpired is called by the sweep worker periodically. Each update
// is an idempotent single-row flip, so overlapping runs are harmless.
func (s *Service) DeactivateExpired(ctx context.Context, now time.Time) (int, error) {
	expired, err := s.repo.FindExpiredActive(ctx, now)
	if err != nil {
		return 0, fmt.Errorf("find expired users: %w", err)
	}

	deactivated := 0
	for _, u := range expired {
		if _, err := s.repo.SetUserActive(ctx, u.ID, false); err != nil {
			if errors.Is(err, ErrUserNotFound) {
				continue
			}
			s.log.Error().Err(err).Str("user_id", u.ID.String()).Msg("failed to deactivate expired user")
			continue
		}
		deactivated++
		s.log.Info().Str("user_id", u.ID.String()).Time("valid_until", *u.ValidUntil).Msg("expired user deactivated")
	}

	return deactivated, nil
}
