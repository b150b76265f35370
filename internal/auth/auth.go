package auth

import (
	"crypto/subtle"
	"errors"
	"fmt"
	"time"

	"github.com/Domenick1991/tourbooking/config"
	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/crypto/bcrypt"
)

const (
	CookieName   = "tourbooking_admin"
	adminSubject = "admin"
)

var (
	ErrInvalidPassword = errors.New("invalid password")
	ErrInvalidSession  = errors.New("invalid or expired session")
)

// Credentials checks the shared admin secret.
type Credentials interface {
	Verify(password string) bool
}

type hashedPassword struct {
	hash []byte
}

func (h hashedPassword) Verify(password string) bool {
	return bcrypt.CompareHashAndPassword(h.hash, []byte(password)) == nil
}

type plainPassword struct {
	secret []byte
}

func (p plainPassword) Verify(password string) bool {
	return subtle.ConstantTimeCompare(p.secret, []byte(password)) == 1
}

// NewCredentials prefers the bcrypt hash and falls back to the plain password.
func NewCredentials(cfg config.AdminConfig) Credentials {
	if cfg.PasswordHash != "" {
		return hashedPassword{hash: []byte(cfg.PasswordHash)}
	}
	return plainPassword{secret: []byte(cfg.Password)}
}

// HashPassword is used by operators to produce admin.password_hash.
func HashPassword(password string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", fmt.Errorf("hash password: %w", err)
	}
	return string(hash), nil
}

// Authenticator exchanges the admin password for a signed session token.
type Authenticator struct {
	credentials Credentials
	secret      []byte
	ttl         time.Duration
	now         func() time.Time
}

func NewAuthenticator(credentials Credentials, secret string, ttl time.Duration) *Authenticator {
	return &Authenticator{
		credentials: credentials,
		secret:      []byte(secret),
		ttl:         ttl,
		now:         time.Now,
	}
}

func (a *Authenticator) Login(password string) (string, time.Time, error) {
	if !a.credentials.Verify(password) {
		return "", time.Time{}, ErrInvalidPassword
	}
	return a.issue()
}

func (a *Authenticator) issue() (string, time.Time, error) {
	now := a.now()
	expires := now.Add(a.ttl)
	claims := jwt.RegisteredClaims{
		Subject:   adminSubject,
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(expires),
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(a.secret)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("sign session: %w", err)
	}
	return token, expires, nil
}

// Verify accepts only HS256 tokens signed with the session secret for the admin subject.
func (a *Authenticator) Verify(tokenString string) error {
	claims := &jwt.RegisteredClaims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(*jwt.Token) (any, error) {
		return a.secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}), jwt.WithTimeFunc(a.now), jwt.WithExpirationRequired())
	if err != nil || !token.Valid || claims.Subject != adminSubject {
		return ErrInvalidSession
	}
	return nil
}
