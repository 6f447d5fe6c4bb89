package service

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/openarklib/openark-server/internal/auth"
	"github.com/openarklib/openark-server/internal/color"
	"github.com/openarklib/openark-server/internal/domain"
	domainerrors "github.com/openarklib/openark-server/internal/errors"
	"github.com/openarklib/openark-server/internal/id"
	"github.com/openarklib/openark-server/internal/normalize"
	"github.com/openarklib/openark-server/internal/store"
	"github.com/openarklib/openark-server/internal/validation"
)

// AuthService handles account registration, login, and token verification.
type AuthService struct {
	store        *store.Store
	tokenService *auth.TokenService
	activity     *ActivityService
	validator    *validation.Validator
	logger       *slog.Logger
}

// NewAuthService creates a new authentication service.
func NewAuthService(
	store *store.Store,
	tokenService *auth.TokenService,
	activity *ActivityService,
	validator *validation.Validator,
	logger *slog.Logger,
) *AuthService {
	return &AuthService{
		store:        store,
		tokenService: tokenService,
		activity:     activity,
		validator:    validator,
		logger:       logger,
	}
}

// SignupRequest contains new account registration data.
type SignupRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,min=8,max=1024"`
	Name     string `json:"name" validate:"required,max=200"`
}

// SignupResponse tells the new user what happens next.
type SignupResponse struct {
	UserID  string `json:"user_id"`
	Message string `json:"message"`
}

// LoginRequest contains user credentials.
type LoginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

// LoginResponse contains the access token and the authenticated user.
type LoginResponse struct {
	User        *domain.User `json:"user"`
	AccessToken string       `json:"access_token"`
	ExpiresAt   time.Time    `json:"expires_at"`
}

// Signup registers a new student account. Accounts start inactive and stay
// that way until an admin approves them; signup never grants access.
func (s *AuthService) Signup(ctx context.Context, req SignupRequest) (*SignupResponse, error) {
	if err := s.validator.Validate(req); err != nil {
		return nil, err
	}

	passwordHash, err := auth.HashPassword(req.Password)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}

	user := &domain.User{
		Entity: domain.Entity{
			ID: id.MustGenerate(id.PrefixUser),
		},
		Email:        normalize.String(req.Email),
		PasswordHash: passwordHash,
		Name:         normalize.String(req.Name),
		Role:         domain.RoleStudent,
		Active:       false,
	}
	user.AvatarColor = color.ForUser(user.ID)
	user.InitTimestamps()

	if err := s.store.Users.Create(ctx, user.ID, user); err != nil {
		if domainerrors.Is(err, store.ErrAlreadyExists) {
			return nil, domainerrors.AlreadyExists("email already in use")
		}
		return nil, fmt.Errorf("create user: %w", err)
	}

	s.activity.Record(user.Name, domain.ActionRegisteredAccount, user.Email)

	s.logger.Info("User registered, pending approval",
		"user_id", user.ID,
		"email", user.Email,
	)

	return &SignupResponse{
		UserID:  user.ID,
		Message: "account created, awaiting admin approval",
	}, nil
}

// Login authenticates a user and issues an access token. Inactive accounts
// are rejected even with correct credentials.
func (s *AuthService) Login(ctx context.Context, req LoginRequest) (*LoginResponse, error) {
	if err := s.validator.Validate(req); err != nil {
		return nil, err
	}

	user, err := s.store.Users.GetByIndex(ctx, "email", req.Email)
	if err != nil {
		if domainerrors.Is(err, store.ErrNotFound) {
			// Same error as a bad password; don't leak which emails exist.
			return nil, domainerrors.InvalidCredentials("invalid email or password")
		}
		return nil, fmt.Errorf("get user: %w", err)
	}

	ok, err := auth.VerifyPassword(user.PasswordHash, req.Password)
	if err != nil {
		return nil, fmt.Errorf("verify password: %w", err)
	}
	if !ok {
		return nil, domainerrors.InvalidCredentials("invalid email or password")
	}

	if !user.Active {
		return nil, domainerrors.Forbidden("account is awaiting admin approval")
	}

	user.LastLoginAt = time.Now()
	if err := s.store.Users.Update(ctx, user.ID, user); err != nil {
		// Login still succeeds; the timestamp is best effort.
		s.logger.Warn("Failed to update last login time", "user_id", user.ID, "error", err)
	}

	token, err := s.tokenService.GenerateAccessToken(user)
	if err != nil {
		return nil, fmt.Errorf("generate access token: %w", err)
	}

	s.activity.Record(user.Name, domain.ActionLoggedIn, "")

	s.logger.Info("User logged in", "user_id", user.ID, "role", user.Role)

	return &LoginResponse{
		User:        user,
		AccessToken: token,
		ExpiresAt:   time.Now().Add(s.tokenService.AccessTokenDuration()),
	}, nil
}

// VerifyToken validates an access token and loads the current user record.
// The store is the authority on role and active status; a token issued
// before a demotion or deactivation stops working immediately.
func (s *AuthService) VerifyToken(ctx context.Context, token string) (*domain.User, error) {
	claims, err := s.tokenService.VerifyAccessToken(token)
	if err != nil {
		return nil, domainerrors.Unauthorized("invalid or expired token").WithCause(err)
	}

	user, err := s.store.Users.Get(ctx, claims.UserID)
	if err != nil {
		if domainerrors.Is(err, store.ErrNotFound) {
			return nil, domainerrors.Unauthorized("account no longer exists")
		}
		return nil, fmt.Errorf("get user: %w", err)
	}

	if !user.Active {
		return nil, domainerrors.Forbidden("account has been deactivated")
	}

	return user, nil
}

// EnsureAdmin creates the bootstrap admin account on first startup. If a
// user with the configured email already exists, nothing happens.
func (s *AuthService) EnsureAdmin(ctx context.Context, email, password, name string) error {
	if password == "" {
		s.logger.Warn("Admin bootstrap skipped, no admin password configured")
		return nil
	}

	_, err := s.store.Users.GetByIndex(ctx, "email", email)
	if err == nil {
		return nil
	}
	if !domainerrors.Is(err, store.ErrNotFound) {
		return fmt.Errorf("check admin account: %w", err)
	}

	passwordHash, err := auth.HashPassword(password)
	if err != nil {
		return fmt.Errorf("hash admin password: %w", err)
	}

	admin := &domain.User{
		Entity: domain.Entity{
			ID: id.MustGenerate(id.PrefixUser),
		},
		Email:        email,
		PasswordHash: passwordHash,
		Name:         name,
		Role:         domain.RoleAdmin,
		Active:       true,
		ApprovedAt:   time.Now(),
	}
	admin.AvatarColor = color.ForUser(admin.ID)
	admin.InitTimestamps()

	if err := s.store.Users.Create(ctx, admin.ID, admin); err != nil {
		return fmt.Errorf("create admin account: %w", err)
	}

	s.logger.Info("Bootstrap admin account created", "email", email)
	return nil
}
