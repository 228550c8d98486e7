package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"eventticketing/internal/domain"
	"eventticketing/internal/validation"
)

// AuthConfig configures the identity service.
type AuthConfig struct {
	TokenExpiry time.Duration
	// AllowAdminSignUp lets Register grant the admin flag on request.
	AllowAdminSignUp bool
	Timeout          time.Duration
}

type authService struct {
	store        domain.Store
	hasher       domain.PasswordHasher
	issuer       domain.TokenIssuer
	emailService domain.EmailService
	logger       *slog.Logger
	cfg          AuthConfig
}

// NewAuthService creates an AuthService. emailService may be nil.
func NewAuthService(store domain.Store, hasher domain.PasswordHasher, issuer domain.TokenIssuer, emailService domain.EmailService, logger *slog.Logger, cfg AuthConfig) domain.AuthService {
	return &authService{
		store:        store,
		hasher:       hasher,
		issuer:       issuer,
		emailService: emailService,
		logger:       logger,
		cfg:          cfg,
	}
}

// SignUp registers a regular user. Any admin request is ignored.
func (s *authService) SignUp(ctx context.Context, in domain.SignUpInput) (*domain.User, error) {
	in.Admin = false
	return s.register(ctx, in)
}

// Register registers a user who may ask for the admin flag.
func (s *authService) Register(ctx context.Context, in domain.SignUpInput) (*domain.User, error) {
	if in.Admin && !s.cfg.AllowAdminSignUp {
		return nil, domain.ErrAdminRequired
	}
	return s.register(ctx, in)
}

func (s *authService) register(ctx context.Context, in domain.SignUpInput) (*domain.User, error) {
	ctx, cancel := context.WithTimeout(ctx, s.cfg.Timeout)
	defer cancel()

	in.Name = strings.TrimSpace(in.Name)
	in.Username = strings.TrimSpace(in.Username)
	in.Email = strings.TrimSpace(strings.ToLower(in.Email))
	if err := validation.ValidateStruct(in); err != nil {
		return nil, err
	}

	salt, err := s.hasher.GenerateSalt()
	if err != nil {
		return nil, err
	}
	hash, err := s.hasher.Hash(salt, in.Password)
	if err != nil {
		return nil, err
	}

	now := time.Now()
	user := domain.NewUser(in.Name, in.Username, in.Email, in.Admin, now, now)
	user.Salt, user.PasswordHash = salt, hash
	if err := s.store.Users().Create(ctx, user); err != nil {
		return nil, domain.AsStorageError("create user", err)
	}
	s.logger.InfoContext(ctx, "user registered", "user_id", user.ID, "username", user.Username, "admin", user.Admin)

	if s.emailService != nil && user.Email != "" {
		err := s.emailService.SendWelcomeMessage(context.WithoutCancel(ctx), &domain.WelcomeMessageEmailData{
			Email:    user.Email,
			Name:     user.Name,
			Username: user.Username,
		})
		if err != nil {
			s.logger.WarnContext(ctx, "welcome email not sent", "user_id", user.ID, "error", err)
		}
	}
	return user, nil
}

// Login resolves credentials into a signed token. Unknown usernames and
// wrong passwords are indistinguishable to the caller.
func (s *authService) Login(ctx context.Context, username, password string) (string, *domain.User, error) {
	ctx, cancel := context.WithTimeout(ctx, s.cfg.Timeout)
	defer cancel()

	user, err := s.store.Users().GetByUsername(ctx, strings.TrimSpace(username))
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return "", nil, domain.ErrInvalidCredential
		}
		return "", nil, domain.AsStorageError("get user", err)
	}
	if err := s.hasher.Compare(user.PasswordHash, user.Salt, password); err != nil {
		return "", nil, domain.ErrInvalidCredential
	}
	token, err := s.issuer.Issue(user.ID, user.Username, s.cfg.TokenExpiry)
	if err != nil {
		return "", nil, fmt.Errorf("issue token: %w", err)
	}
	return token, user, nil
}

func (s *authService) GetByID(ctx context.Context, id string) (*domain.User, error) {
	ctx, cancel := context.WithTimeout(ctx, s.cfg.Timeout)
	defer cancel()

	user, err := s.store.Users().GetByID(ctx, id)
	if err != nil {
		return nil, domain.AsStorageError("get user", err)
	}
	return user, nil
}
