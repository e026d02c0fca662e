// Package auth implements the shared-password access gate.
//
// The gate only protects the UI unless token enforcement is switched on:
// a successful login returns a signed token, and the API checks it only
// when configured to.
package auth

import (
	"crypto/rand"
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
)

var (
	ErrWrongPassword = errors.New("wrong password")
	ErrInvalidToken  = errors.New("invalid token")
)

const tokenIssuer = "devdiary"

// Config holds gate settings. Either Password or PasswordHash (bcrypt) may
// be set; with neither, the gate is open.
type Config struct {
	Password     string
	PasswordHash string
	TokenSecret  string
	TokenTTL     time.Duration
	EnforceAPI   bool
}

type Gate struct {
	hash       []byte
	secret     []byte
	ttl        time.Duration
	enforceAPI bool
	now        func() time.Time
}

func NewGate(cfg Config) (*Gate, error) {
	g := &Gate{
		ttl:        cfg.TokenTTL,
		enforceAPI: cfg.EnforceAPI,
		now:        time.Now,
	}
	if g.ttl <= 0 {
		g.ttl = 30 * 24 * time.Hour
	}

	switch {
	case cfg.PasswordHash != "":
		if _, err := bcrypt.Cost([]byte(cfg.PasswordHash)); err != nil {
			return nil, fmt.Errorf("parse password hash: %w", err)
		}
		g.hash = []byte(cfg.PasswordHash)
	case cfg.Password != "":
		hash, err := HashPassword(cfg.Password)
		if err != nil {
			return nil, err
		}
		g.hash = []byte(hash)
	}

	if cfg.TokenSecret != "" {
		g.secret = []byte(cfg.TokenSecret)
	} else {
		g.secret = make([]byte, 32)
		if _, err := rand.Read(g.secret); err != nil {
			return nil, fmt.Errorf("generate token secret: %w", err)
		}
	}
	return g, nil
}

// HashPassword returns the bcrypt hash of password.
func HashPassword(password string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", fmt.Errorf("hash password: %w", err)
	}
	return string(hash), nil
}

// Required reports whether a password is configured.
func (g *Gate) Required() bool {
	return len(g.hash) > 0
}

// EnforceAPI reports whether API requests must carry a token.
func (g *Gate) EnforceAPI() bool {
	return g.enforceAPI && g.Required()
}

// Login checks password and returns a signed token on success.
func (g *Gate) Login(password string) (string, error) {
	if g.Required() {
		if err := bcrypt.CompareHashAndPassword(g.hash, []byte(password)); err != nil {
			return "", ErrWrongPassword
		}
	}
	return g.IssueToken()
}

func (g *Gate) IssueToken() (string, error) {
	now := g.now()
	claims := jwt.RegisteredClaims{
		ID:        uuid.NewString(),
		Issuer:    tokenIssuer,
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(g.ttl)),
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(g.secret)
	if err != nil {
		return "", fmt.Errorf("sign token: %w", err)
	}
	return token, nil
}

// Verify parses a token issued by this gate.
func (g *Gate) Verify(token string) (Session, error) {
	var claims jwt.RegisteredClaims
	_, err := jwt.ParseWithClaims(token, &claims,
		func(*jwt.Token) (any, error) { return g.secret, nil },
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(tokenIssuer),
		jwt.WithTimeFunc(g.now),
	)
	if err != nil {
		return Session{}, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}

	s := Session{TokenID: claims.ID}
	if claims.IssuedAt != nil {
		s.IssuedAt = claims.IssuedAt.Time
	}
	if claims.ExpiresAt != nil {
		s.ExpiresAt = claims.ExpiresAt.Time
	}
	return s, nil
}
