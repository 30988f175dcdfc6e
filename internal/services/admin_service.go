package services

import (
	"context"
	"crypto/subtle"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/charlesng35/shortlink/internal/cache"
	"github.com/charlesng35/shortlink/pkg/crypto"
	apperrors "github.com/charlesng35/shortlink/pkg/errors"
	"github.com/charlesng35/shortlink/pkg/logger"
)

// DefaultAdminSessionTTL bounds how long an admin session token stays valid.
const DefaultAdminSessionTTL = 24 * time.Hour

const adminTokenIssuer = "shortlink"

// ErrAdminNotConfigured is returned when no admin password hash is set.
var ErrAdminNotConfigured = apperrors.New(
	"ADMIN_NOT_CONFIGURED",
	"Admin password not configured",
	http.StatusInternalServerError,
)

// adminSession is the revocation record cached per issued token.
type adminSession struct {
	IssuedAt  int64 `json:"issued_at"`
	ExpiresAt int64 `json:"expires_at"`
}

// AdminOption customises AdminService behaviour.
type AdminOption func(*AdminService)

// WithAdminSessionTTL overrides the session lifetime.
func WithAdminSessionTTL(ttl time.Duration) AdminOption {
	return func(s *AdminService) {
		if ttl > 0 {
			s.ttl = ttl
		}
	}
}

// WithAdminClock injects a custom clock primarily for testing.
func WithAdminClock(clock func() time.Time) AdminOption {
	return func(s *AdminService) {
		if clock != nil {
			s.now = clock
		}
	}
}

// AdminService issues and verifies admin session tokens. Tokens are signed
// JWTs backed by a cached session record so logout revokes them before
// expiry.
type AdminService struct {
	cache        cache.Store
	passwordHash string
	secret       []byte
	ttl          time.Duration
	now          func() time.Time
	log          *zap.Logger
}

// NewAdminService constructs an AdminService. passwordHash accepts either a
// bcrypt hash or a lowercase hex SHA-256 digest; an empty hash disables
// login. The cache store may be nil, in which case tokens cannot be revoked
// before expiry.
func NewAdminService(store cache.Store, passwordHash, secret string, opts ...AdminOption) (*AdminService, error) {
	if strings.TrimSpace(secret) == "" {
		return nil, errors.New("admin service: signing secret is required")
	}

	service := &AdminService{
		cache:        store,
		passwordHash: strings.TrimSpace(passwordHash),
		secret:       []byte(secret),
		ttl:          DefaultAdminSessionTTL,
		now:          time.Now,
		log:          logger.WithModule("admin"),
	}

	for _, opt := range opts {
		opt(service)
	}

	return service, nil
}

// Login checks the password and issues a session token.
func (s *AdminService) Login(ctx context.Context, password string) (token string, expiresAt time.Time, err error) {
	if s.passwordHash == "" {
		return "", time.Time{}, ErrAdminNotConfigured
	}
	if password == "" || !s.verifyPassword(password) {
		return "", time.Time{}, apperrors.ErrInvalidPassword
	}

	now := s.now()
	expiresAt = now.Add(s.ttl)
	jti := uuid.NewString()

	claims := jwt.RegisteredClaims{
		Issuer:    adminTokenIssuer,
		Subject:   "admin",
		ID:        jti,
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(expiresAt),
	}

	token, err = jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.secret)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("admin service: sign token: %w", err)
	}

	if s.cache != nil {
		session := adminSession{IssuedAt: now.Unix(), ExpiresAt: expiresAt.Unix()}
		payload, err := json.Marshal(session)
		if err != nil {
			return "", time.Time{}, fmt.Errorf("admin service: encode session: %w", err)
		}
		if err := s.cache.Set(ctx, cache.AdminSessionKey(jti), payload, s.ttl); err != nil {
			return "", time.Time{}, fmt.Errorf("admin service: store session: %w", err)
		}
	}

	return token, expiresAt, nil
}

// Verify validates a session token and its revocation record.
func (s *AdminService) Verify(ctx context.Context, token string) error {
	jti, err := s.parseToken(token)
	if err != nil {
		return apperrors.ErrUnauthorized
	}

	if s.cache != nil {
		_, ok, err := s.cache.Get(ctx, cache.AdminSessionKey(jti))
		if err != nil {
			s.log.Warn("admin session lookup failed", zap.Error(err))
			return apperrors.ErrUnauthorized
		}
		if !ok {
			return apperrors.ErrUnauthorized
		}
	}

	return nil
}

// Logout revokes the session behind the token. Unknown or expired tokens are
// not an error.
func (s *AdminService) Logout(ctx context.Context, token string) error {
	jti, err := s.parseToken(token)
	if err != nil {
		return nil
	}
	if s.cache == nil {
		return nil
	}
	if err := s.cache.Delete(ctx, cache.AdminSessionKey(jti)); err != nil {
		s.log.Warn("admin session delete failed", zap.Error(err))
	}
	return nil
}

func (s *AdminService) parseToken(token string) (jti string, err error) {
	if strings.TrimSpace(token) == "" {
		return "", errors.New("admin service: empty token")
	}

	claims := &jwt.RegisteredClaims{}
	parsed, err := jwt.ParseWithClaims(token, claims, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("admin service: unexpected signing method %q", t.Method.Alg())
		}
		return s.secret, nil
	},
		jwt.WithIssuer(adminTokenIssuer),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(s.now),
	)
	if err != nil || !parsed.Valid || claims.ID == "" {
		return "", fmt.Errorf("admin service: invalid token: %w", err)
	}
	return claims.ID, nil
}

func (s *AdminService) verifyPassword(password string) bool {
	if strings.HasPrefix(s.passwordHash, "$2") {
		return crypto.VerifyPassword(s.passwordHash, password)
	}
	digest := crypto.SHA256Hex(password)
	return subtle.ConstantTimeCompare([]byte(digest), []byte(strings.ToLower(s.passwordHash))) == 1
}
