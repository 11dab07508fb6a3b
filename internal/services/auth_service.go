// Package services – AuthService
//
// This file implements account registration, login, administrator
// provisioning, token verification and profile maintenance. Passwords are
// stored as bcrypt hashes and sessions are stateless HS256 JWTs.
package services

import (
	"context"
	"crypto/subtle"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/tbourn/go-complaints-backend/internal/auth"
	"github.com/tbourn/go-complaints-backend/internal/domain"
)

// TokenIssuer signs and verifies session tokens. *auth.TokenManager implements it.
type TokenIssuer interface {
	GenerateToken(u *domain.User) (string, time.Time, error)
	ParseToken(token string) (*auth.Claims, error)
}

// AuthService implements the account use-cases.
type AuthService struct {
	Users  UserRepo
	Tokens TokenIssuer

	// BcryptCost is the hashing cost for new passwords.
	BcryptCost int
	// AdminSecret gates CreateAdmin.
	AdminSecret string

	// Now is the clock used for CreatedAt; defaults to time.Now.
	Now func() time.Time
}

// NewAuthService constructs an AuthService.
func NewAuthService(users UserRepo, tokens TokenIssuer, bcryptCost int, adminSecret string) *AuthService {
	return &AuthService{
		Users:       users,
		Tokens:      tokens,
		BcryptCost:  bcryptCost,
		AdminSecret: adminSecret,
		Now:         time.Now,
	}
}

// RegisterInput carries the fields of a new account.
type RegisterInput struct {
	Username string
	Password string
	Name     string
	Email    string
}

// Session is a user together with a freshly issued token.
type Session struct {
	User      *domain.User
	Token     string
	ExpiresAt time.Time
}

// Register creates a customer account and signs the user in.
func (s *AuthService) Register(ctx context.Context, in RegisterInput) (*Session, error) {
	ctx, span := otel.Tracer("services/AuthService").Start(ctx, "Register")
	defer span.End()

	u, err := s.createUser(ctx, in, domain.RoleCustomer)
	if err != nil {
		return nil, err
	}
	return s.issue(u)
}

// Login verifies credentials and issues a token. Unknown usernames and wrong
// passwords both yield ErrInvalidCredentials.
func (s *AuthService) Login(ctx context.Context, username, password string) (*Session, error) {
	ctx, span := otel.Tracer("services/AuthService").Start(ctx, "Login")
	defer span.End()

	username = clean(username)
	if username == "" || password == "" {
		return nil, validationf("username and password are required")
	}
	u, err := s.Users.GetByUsername(ctx, username)
	if err != nil {
		if isNotFound(err) {
			return nil, ErrInvalidCredentials
		}
		return nil, err
	}
	if err := auth.ComparePassword(u.Password, password); err != nil {
		return nil, ErrInvalidCredentials
	}
	return s.issue(u)
}

// CreateAdmin provisions an administrator. The secret is checked before any
// input validation so an unauthenticated caller learns nothing about the
// payload rules.
func (s *AuthService) CreateAdmin(ctx context.Context, in RegisterInput, adminSecret string) (*domain.User, error) {
	ctx, span := otel.Tracer("services/AuthService").Start(ctx, "CreateAdmin")
	defer span.End()

	if s.AdminSecret == "" || subtle.ConstantTimeCompare([]byte(adminSecret), []byte(s.AdminSecret)) != 1 {
		return nil, ErrForbidden
	}
	u, err := s.createUser(ctx, in, domain.RoleAdmin)
	if err != nil {
		return nil, err
	}
	log.Ctx(ctx).Info().Str("user_id", u.ID).Msg("admin account created")
	return u, nil
}

// Verify resolves a bearer token to the current user record.
func (s *AuthService) Verify(ctx context.Context, token string) (*domain.User, error) {
	ctx, span := otel.Tracer("services/AuthService").Start(ctx, "Verify")
	defer span.End()

	if token == "" {
		return nil, ErrInvalidToken
	}
	claims, err := s.Tokens.ParseToken(token)
	if err != nil {
		return nil, ErrInvalidToken
	}
	span.SetAttributes(attribute.String("user.id", claims.ID))
	u, err := s.Users.GetByID(ctx, claims.ID)
	if err != nil {
		if isNotFound(err) {
			return nil, ErrUnauthorized
		}
		return nil, err
	}
	if !u.Role.Valid() {
		return nil, ErrUnauthorized
	}
	return u, nil
}

// Profile returns the stored record of userID.
func (s *AuthService) Profile(ctx context.Context, userID string) (*domain.User, error) {
	u, err := s.Users.GetByID(ctx, userID)
	if err != nil {
		if isNotFound(err) {
			return nil, ErrUserNotFound
		}
		return nil, err
	}
	return u, nil
}

// ProfileInput carries a profile update. CurrentPassword is required only
// when NewPassword is set.
type ProfileInput struct {
	Name            string
	Email           string
	CurrentPassword string
	NewPassword     string
}

// UpdateProfile changes the caller's name and email and optionally rotates
// the password.
func (s *AuthService) UpdateProfile(ctx context.Context, userID string, in ProfileInput) (*domain.User, error) {
	ctx, span := otel.Tracer("services/AuthService").Start(ctx, "UpdateProfile",
		trace.WithAttributes(attribute.String("user.id", userID)),
	)
	defer span.End()

	name, email := clean(in.Name), clean(in.Email)
	if name == "" || email == "" {
		return nil, validationf("name and email are required")
	}
	patch := domain.UserPatch{Name: &name, Email: &email}

	if in.NewPassword != "" {
		if in.CurrentPassword == "" {
			return nil, validationf("current password is required to set a new password")
		}
		u, err := s.Profile(ctx, userID)
		if err != nil {
			return nil, err
		}
		if err := auth.ComparePassword(u.Password, in.CurrentPassword); err != nil {
			return nil, ErrInvalidCredentials
		}
		hashed, err := auth.HashPassword(in.NewPassword, s.BcryptCost)
		if err != nil {
			if errors.Is(err, auth.ErrPasswordTooLong) {
				return nil, validationf("password must be at most 72 bytes")
			}
			return nil, err
		}
		patch.Password = &hashed
	}

	u, err := s.Users.Update(ctx, userID, patch)
	if err != nil {
		if isNotFound(err) {
			return nil, ErrUserNotFound
		}
		return nil, err
	}
	return u, nil
}

func (s *AuthService) createUser(ctx context.Context, in RegisterInput, role domain.Role) (*domain.User, error) {
	username, name, email := clean(in.Username), clean(in.Name), clean(in.Email)
	if username == "" || in.Password == "" || name == "" || email == "" {
		return nil, validationf("username, password, name and email are required")
	}

	hashed, err := auth.HashPassword(in.Password, s.BcryptCost)
	if err != nil {
		if errors.Is(err, auth.ErrPasswordTooLong) {
			return nil, validationf("password must be at most 72 bytes")
		}
		return nil, err
	}
	u := &domain.User{
		ID:        uuid.NewString(),
		Username:  username,
		Password:  hashed,
		Name:      name,
		Email:     email,
		Role:      role,
		CreatedAt: s.now(),
	}
	if err := s.Users.Create(ctx, u); err != nil {
		if isDuplicate(err) {
			return nil, ErrDuplicateUsername
		}
		return nil, err
	}
	return u, nil
}

func (s *AuthService) issue(u *domain.User) (*Session, error) {
	token, exp, err := s.Tokens.GenerateToken(u)
	if err != nil {
		return nil, err
	}
	return &Session{User: u, Token: token, ExpiresAt: exp}, nil
}

func (s *AuthService) now() time.Time {
	if s.Now != nil {
		return s.Now().UTC()
	}
	return time.Now().UTC()
}
