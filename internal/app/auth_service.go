package app

import (
	"context"
	"crypto/subtle"
	"strings"
	"time"

	"quizdesk/internal/domain"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
)

// AdminCredentials configures the single admin account.
type AdminCredentials struct {
	Email        string
	PasswordHash string // bcrypt
	SessionTTL   time.Duration
}

// AuthService checks admin credentials and manages admin sessions.
type AuthService struct {
	creds    AdminCredentials
	sessions AdminSessionStore
	now      func() time.Time
}

func NewAuthService(creds AdminCredentials, sessions AdminSessionStore) *AuthService {
	creds.Email = strings.ToLower(strings.TrimSpace(creds.Email))
	if creds.SessionTTL <= 0 {
		creds.SessionTTL = 12 * time.Hour
	}
	return &AuthService{creds: creds, sessions: sessions, now: time.Now}
}

// SessionTTL is how long a login stays valid.
func (s *AuthService) SessionTTL() time.Duration {
	return s.creds.SessionTTL
}

// Login returns a fresh session token for valid credentials.
func (s *AuthService) Login(ctx context.Context, email, password string) (string, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" || password == "" {
		return "", domain.Invalid("email and password required")
	}
	if s.creds.Email == "" || s.creds.PasswordHash == "" {
		return "", domain.ErrInvalidCredentials
	}

	emailMatch := subtle.ConstantTimeCompare([]byte(email), []byte(s.creds.Email)) == 1
	// The hash is checked even on an email mismatch so both paths cost the same.
	passMatch := bcrypt.CompareHashAndPassword([]byte(s.creds.PasswordHash), []byte(password)) == nil
	if !emailMatch || !passMatch {
		return "", domain.ErrInvalidCredentials
	}

	token := uuid.NewString()
	session := domain.AdminSession{Email: s.creds.Email, CreatedAt: s.now().UTC()}
	if err := s.sessions.Save(ctx, token, session, s.creds.SessionTTL); err != nil {
		return "", err
	}
	return token, nil
}

// Authenticate resolves a session token into the admin capability.
func (s *AuthService) Authenticate(ctx context.Context, token string) (domain.AdminSession, error) {
	token = strings.TrimSpace(token)
	if token == "" {
		return domain.AdminSession{}, domain.ErrUnauthorized
	}
	return s.sessions.Get(ctx, token)
}

func (s *AuthService) Logout(ctx context.Context, token string) error {
	token = strings.TrimSpace(token)
	if token == "" {
		return nil
	}
	return s.sessions.Delete(ctx, token)
}

// HashPassword produces the bcrypt hash expected in the admin config.
func HashPassword(password string) (string, error) {
	if password == "" {
		return "", domain.Invalid("password is required")
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", err
	}
	return string(hash), nil
}
