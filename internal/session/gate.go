// Package session gates access to the dashboard. A sign-in produces a
// session row and a signed token naming it; every request resolves the
// token back to an identity through the session store.
package session

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/MrSnakeDoc/smartmarks/internal/domain"
	"github.com/MrSnakeDoc/smartmarks/internal/logger"
)

// DefaultTTL is the session lifetime when none is configured.
const DefaultTTL = 7 * 24 * time.Hour

// Password length bounds. bcrypt ignores input past 72 bytes.
const (
	MinPasswordLen = 8
	MaxPasswordLen = 72
)

const (
	issuer     = "smartmarks"
	avatarBase = "https://www.gravatar.com/avatar/"
)

var (
	// ErrInvalidHandle is returned by Login for an empty handle.
	ErrInvalidHandle = errors.New("invalid handle")
	// ErrInvalidPassword is returned when registering a password outside
	// the accepted length.
	ErrInvalidPassword = fmt.Errorf("password must be %d to %d bytes", MinPasswordLen, MaxPasswordLen)
	// ErrInvalidCredentials is returned for a wrong password, or for an
	// unknown handle when sign-up is disabled.
	ErrInvalidCredentials = errors.New("invalid name or password")
)

// Store is the persistence the gate needs.
type Store interface {
	domain.SessionStore
	domain.CredentialStore
}

// Gate signs sessions in and out.
type Gate struct {
	store    Store
	key      []byte
	ttl      time.Duration
	signup   bool
	hashCost int
	now      func() time.Time
	logger   logger.Logger
}

// Option customizes a Gate.
type Option func(*Gate)

// WithTTL sets the session lifetime.
func WithTTL(ttl time.Duration) Option {
	return func(g *Gate) {
		if ttl > 0 {
			g.ttl = ttl
		}
	}
}

// WithSignup controls whether the first sign-in with an unknown handle
// registers its password. Enabled by default.
func WithSignup(enabled bool) Option {
	return func(g *Gate) { g.signup = enabled }
}

// WithHashCost sets the bcrypt cost for new credentials.
func WithHashCost(cost int) Option {
	return func(g *Gate) { g.hashCost = cost }
}

// WithClock replaces time.Now. Used by tests.
func WithClock(now func() time.Time) Option {
	return func(g *Gate) { g.now = now }
}

// NewGate builds a gate signing tokens with key.
func NewGate(store Store, key string, log logger.Logger, opts ...Option) *Gate {
	g := &Gate{
		store:    store,
		key:      []byte(key),
		ttl:      DefaultTTL,
		signup:   true,
		hashCost: bcrypt.DefaultCost,
		now:      time.Now,
		logger:   log,
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// TTL returns the session lifetime.
func (g *Gate) TTL() time.Duration { return g.ttl }

// Login checks password against the credential of handle and establishes
// a session. A handle without a credential is claimed by its first
// sign-in when sign-up is enabled.
func (g *Gate) Login(ctx context.Context, handle, password string) (string, *domain.Session, error) {
	ident, err := IdentityFor(handle)
	if err != nil {
		return "", nil, err
	}
	if err := g.authenticate(ctx, ident, password); err != nil {
		return "", nil, err
	}

	now := g.now().UTC()
	sess := &domain.Session{
		ID:        uuid.Must(uuid.NewV7()).String(),
		Identity:  ident,
		CreatedAt: now,
		ExpiresAt: now.Add(g.ttl),
	}
	if err := g.store.CreateSession(ctx, sess); err != nil {
		return "", nil, fmt.Errorf("create session: %w", err)
	}

	claims := jwt.RegisteredClaims{
		Issuer:    issuer,
		Subject:   ident.ID,
		ID:        sess.ID,
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(sess.ExpiresAt),
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(g.key)
	if err != nil {
		return "", nil, fmt.Errorf("sign session token: %w", err)
	}

	g.logger.Info("session started",
		logger.String("identity", ident.ID),
		logger.String("session", sess.ID))
	return token, sess, nil
}

// Resolve returns the identity behind token, or domain.ErrNoSession.
func (g *Gate) Resolve(ctx context.Context, token string) (domain.Identity, error) {
	sess, err := g.session(ctx, token)
	if err != nil {
		return domain.Identity{}, err
	}
	return sess.Identity, nil
}

// Logout ends the session behind token. An unknown or already ended
// session is not an error.
func (g *Gate) Logout(ctx context.Context, token string) error {
	claims, err := g.parse(token)
	if err != nil {
		return nil
	}
	if err := g.store.DeleteSession(ctx, claims.ID); err != nil {
		return fmt.Errorf("delete session: %w", err)
	}
	g.logger.Info("session ended", logger.String("session", claims.ID))
	return nil
}

func (g *Gate) authenticate(ctx context.Context, ident domain.Identity, password string) error {
	cred, err := g.store.GetCredential(ctx, ident.ID)
	switch {
	case err == nil:
		if bcrypt.CompareHashAndPassword(cred.Hash, []byte(password)) != nil {
			g.logger.Warn("sign-in rejected", logger.String("identity", ident.ID))
			return ErrInvalidCredentials
		}
		return nil
	case !errors.Is(err, domain.ErrNotFound):
		return fmt.Errorf("load credential: %w", err)
	case !g.signup:
		return ErrInvalidCredentials
	}

	if len(password) < MinPasswordLen || len(password) > MaxPasswordLen {
		return ErrInvalidPassword
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(password), g.hashCost)
	if err != nil {
		return fmt.Errorf("hash password: %w", err)
	}
	err = g.store.CreateCredential(ctx, &domain.Credential{
		IdentityID: ident.ID,
		Hash:       hash,
		CreatedAt:  g.now().UTC(),
	})
	if errors.Is(err, domain.ErrExists) {
		// Lost a race against another first sign-in; check against the winner.
		return g.authenticate(ctx, ident, password)
	}
	if err != nil {
		return fmt.Errorf("create credential: %w", err)
	}
	g.logger.Info("identity registered", logger.String("identity", ident.ID))
	return nil
}

func (g *Gate) session(ctx context.Context, token string) (*domain.Session, error) {
	claims, err := g.parse(token)
	if err != nil {
		return nil, domain.ErrNoSession
	}

	sess, err := g.store.GetSession(ctx, claims.ID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, domain.ErrNoSession
		}
		return nil, fmt.Errorf("load session: %w", err)
	}
	if sess.Expired(g.now()) || sess.Identity.ID != claims.Subject {
		return nil, domain.ErrNoSession
	}
	return sess, nil
}

func (g *Gate) parse(token string) (*jwt.RegisteredClaims, error) {
	if token == "" {
		return nil, domain.ErrNoSession
	}

	claims := &jwt.RegisteredClaims{}
	_, err := jwt.ParseWithClaims(token, claims,
		func(*jwt.Token) (any, error) { return g.key, nil },
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(issuer),
		jwt.WithTimeFunc(g.now),
	)
	if err != nil {
		return nil, err
	}
	if claims.ID == "" {
		return nil, domain.ErrNoSession
	}
	return claims, nil
}

// IdentityFor derives the identity for a sign-in handle. The id is stable
// for a handle regardless of case and surrounding whitespace. The avatar is
// the Gravatar of the handle, falling back to a generated identicon.
func IdentityFor(handle string) (domain.Identity, error) {
	display := strings.TrimSpace(handle)
	if display == "" {
		return domain.Identity{}, ErrInvalidHandle
	}
	sum := sha256.Sum256([]byte(strings.ToLower(display)))
	return domain.Identity{
		ID:          hex.EncodeToString(sum[:16]),
		DisplayName: display,
		AvatarURL:   avatarBase + hex.EncodeToString(sum[:]) + "?s=64&d=identicon",
	}, nil
}
