package app

import (
	"context"
	"errors"
	"strings"
	"time"

	"go.uber.org/zap"
	"quiz-backend/internal/domain"
)

const (
	maxUsernameLength = 50

	// bcrypt only hashes the first 72 bytes and rejects anything longer.
	maxPasswordBytes = 72
)

// PasswordHasher hashes and verifies passwords. Compare returns an error for
// any mismatch.
type PasswordHasher interface {
	Hash(password string) (string, error)
	Compare(hash, password string) error
}

// TokenIssuer signs and verifies bearer tokens. Verify must report every
// failure as domain.ErrUnauthorized.
type TokenIssuer interface {
	Issue(user domain.User) (string, time.Time, error)
	Verify(token string) (domain.Identity, error)
}

// Token is a signed bearer credential handed out on login.
type Token struct {
	Value     string    `json:"token"`
	Type      string    `json:"token_type"`
	ExpiresAt time.Time `json:"expires_at"`
}

// AuthService orchestrates registration, login and token checks.
type AuthService struct {
	users  UserRepository
	hasher PasswordHasher
	tokens TokenIssuer
	log    *zap.Logger

	// dummyHash keeps login timing similar for unknown usernames.
	dummyHash string
}

func NewAuthService(users UserRepository, hasher PasswordHasher, tokens TokenIssuer, log *zap.Logger) *AuthService {
	if log == nil {
		log = zap.NewNop()
	}
	s := &AuthService{users: users, hasher: hasher, tokens: tokens, log: log.Named("auth")}
	if h, err := hasher.Hash("quiz-backend-timing-guard"); err == nil {
		s.dummyHash = h
	}
	return s
}

// Register creates a new user with a hashed password.
func (s *AuthService) Register(ctx context.Context, username, password string) (domain.User, error) {
	username = strings.TrimSpace(username)
	if username == "" || password == "" {
		return domain.User{}, domain.Invalid("username and password are required")
	}
	if len(username) > maxUsernameLength {
		return domain.User{}, domain.Invalid("username must be at most %d characters", maxUsernameLength)
	}
	if len(password) > maxPasswordBytes {
		return domain.User{}, domain.Invalid("password must be at most %d bytes", maxPasswordBytes)
	}

	_, err := s.users.FindUserByUsername(ctx, username)
	switch {
	case err == nil:
		return domain.User{}, domain.ErrUsernameTaken
	case !errors.Is(err, domain.ErrNotFound):
		return domain.User{}, err
	}

	hash, err := s.hasher.Hash(password)
	if err != nil {
		return domain.User{}, err
	}
	user := domain.User{Username: username, PasswordHash: hash}
	if err := s.users.CreateUser(ctx, &user); err != nil {
		return domain.User{}, err
	}
	s.log.Info("user registered", zap.Int64("user_id", user.ID))
	return user, nil
}

// Login verifies credentials and issues a token. Unknown usernames and wrong
// passwords produce the same error.
func (s *AuthService) Login(ctx context.Context, username, password string) (Token, error) {
	username = strings.TrimSpace(username)
	if username == "" || password == "" {
		return Token{}, domain.Invalid("username and password are required")
	}

	user, err := s.users.FindUserByUsername(ctx, username)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			if s.dummyHash != "" {
				_ = s.hasher.Compare(s.dummyHash, password)
			}
			return Token{}, domain.ErrInvalidCredentials
		}
		return Token{}, err
	}
	if err := s.hasher.Compare(user.PasswordHash, password); err != nil {
		return Token{}, domain.ErrInvalidCredentials
	}

	value, expiresAt, err := s.tokens.Issue(user)
	if err != nil {
		return Token{}, err
	}
	return Token{Value: value, Type: "Bearer", ExpiresAt: expiresAt}, nil
}

// Authenticate validates a bearer token and returns its identity.
func (s *AuthService) Authenticate(token string) (domain.Identity, error) {
	if token == "" {
		return domain.Identity{}, domain.Unauthorized("missing token")
	}
	return s.tokens.Verify(token)
}

// Profile returns the stored user behind an identity.
func (s *AuthService) Profile(ctx context.Context, userID int64) (domain.User, error) {
	return s.users.FindUserByID(ctx, userID)
}
