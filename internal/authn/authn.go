// Package authn issues and validates operator sessions (spec.md §3
// Operator/Session, §5 "Bootstrap actor"). A session's bearer credential is
// a signed JWT; the JWT's own ID (jti) is what gets persisted as the
// sessions.token row, so middleware.JWTConfig's RevocationChecker can ask
// "does this jti still have a live session row" without ever needing the
// full compact token string back from the client.
package authn

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/fredsystems/zabbid/internal/api/middleware"
	"github.com/fredsystems/zabbid/internal/domain"
	"github.com/fredsystems/zabbid/internal/pkg/apperrors"
	"github.com/fredsystems/zabbid/internal/persistence"
)

// BootstrapCredential is the fixed literal the bootstrap path checks
// (spec.md §5). It gates exactly one operation — creating the very first
// operator — and is rejected unconditionally once any operator row exists.
const BootstrapCredential = "ZABBID-BOOTSTRAP-2026"

// Service authenticates operators and manages their sessions.
type Service struct {
	Store      *persistence.Store
	JWT        middleware.JWTConfig
	Lifetime   time.Duration
	BcryptCost int
}

// New builds a Service. jwtCfg.RevocationChecker is set to the returned
// Service itself by the caller once constructed (the Service must exist
// before it can check its own store).
func New(store *persistence.Store, jwtCfg middleware.JWTConfig, lifetime time.Duration, bcryptCost int) *Service {
	jwtCfg.ExpiresIn = lifetime
	svc := &Service{Store: store, JWT: jwtCfg, Lifetime: lifetime, BcryptCost: bcryptCost}
	svc.JWT.RevocationChecker = svc
	return svc
}

// IsRevoked implements middleware.TokenRevocationChecker: a jti with no
// live session row is treated as revoked, whether that is because of an
// explicit Logout, natural expiry, or the operator having been disabled
// (Logout/disable both call DeleteSession(s)).
func (s *Service) IsRevoked(ctx context.Context, tokenID string) (bool, error) {
	sess, err := s.Store.SessionByToken(ctx, tokenID)
	if err != nil {
		if apperrors.IsKind(err, apperrors.KindNotFound) {
			return true, nil
		}
		return false, err
	}
	return time.Now().After(sess.ExpiresAt), nil
}

// Bootstrap creates the first Admin operator, gated by the fixed
// BootstrapCredential. It fails once any operator already exists, matching
// "disabled automatically once any operator row exists" (spec.md §5).
func (s *Service) Bootstrap(ctx context.Context, credential, loginName, displayName, password string) (*domain.Operator, error) {
	if credential != BootstrapCredential {
		return nil, apperrors.AuthenticationFailed("invalid bootstrap credential")
	}
	count, err := s.Store.OperatorCount(ctx)
	if err != nil {
		return nil, err
	}
	if count > 0 {
		return nil, apperrors.AuthenticationFailed("bootstrap path is disabled: an operator already exists")
	}

	hash, err := s.hashPassword(password)
	if err != nil {
		return nil, err
	}

	id, err := uuid.NewV7()
	if err != nil {
		return nil, fmt.Errorf("generate operator id: %w", err)
	}
	op := &domain.Operator{
		OperatorID:   id.String(),
		LoginName:    normalizeLogin(loginName),
		DisplayName:  displayName,
		PasswordHash: hash,
		Role:         domain.RoleAdmin,
		CreatedAt:    time.Now(),
	}
	if err := s.Store.CreateOperator(ctx, op); err != nil {
		return nil, err
	}
	return op, nil
}

// Login authenticates loginName/password and issues a session, returning
// the bearer JWT the client must send as "Authorization: Bearer <token>".
func (s *Service) Login(ctx context.Context, loginName, password string) (string, *domain.Operator, error) {
	op, err := s.Store.OperatorByLoginName(ctx, normalizeLogin(loginName))
	if err != nil {
		if apperrors.IsKind(err, apperrors.KindNotFound) {
			return "", nil, apperrors.AuthenticationFailed("invalid credentials")
		}
		return "", nil, err
	}
	if op.IsDisabled {
		return "", nil, apperrors.AuthenticationFailed("operator is disabled")
	}
	if err := bcrypt.CompareHashAndPassword([]byte(op.PasswordHash), []byte(password)); err != nil {
		return "", nil, apperrors.AuthenticationFailed("invalid credentials")
	}

	token, err := s.issueSession(ctx, op)
	if err != nil {
		return "", nil, err
	}

	now := time.Now()
	op.LastLoginAt = &now
	if err := s.Store.UpdateOperator(ctx, op); err != nil {
		return "", nil, err
	}
	return token, op, nil
}

func (s *Service) issueSession(ctx context.Context, op *domain.Operator) (string, error) {
	roles := []string{string(op.Role)}
	token, jti, expiresAt, err := middleware.GenerateTokenWithID(s.JWT, op.OperatorID, op.LoginName, roles, nil)
	if err != nil {
		return "", fmt.Errorf("generate session token: %w", err)
	}

	sess := &domain.Session{
		Token:          jti,
		OperatorID:     op.OperatorID,
		ExpiresAt:      expiresAt,
		LastActivityAt: time.Now(),
	}
	if err := s.Store.CreateSession(ctx, sess); err != nil {
		return "", err
	}
	return token, nil
}

// Logout deletes the session row identified by jti, revoking the token
// immediately regardless of its remaining JWT expiry.
func (s *Service) Logout(ctx context.Context, jti string) error {
	return s.Store.DeleteSession(ctx, jti)
}

// Touch records activity on a session, used by middleware after each
// successfully authenticated request (spec.md §3 Session "Mutated by
// activity touch").
func (s *Service) Touch(ctx context.Context, jti string) error {
	return s.Store.TouchSession(ctx, jti, time.Now())
}

func (s *Service) hashPassword(password string) (string, error) {
	cost := s.BcryptCost
	if cost <= 0 {
		cost = bcrypt.DefaultCost
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(password), cost)
	if err != nil {
		return "", fmt.Errorf("hash password: %w", err)
	}
	return string(hash), nil
}

func normalizeLogin(raw string) string {
	return strings.ToLower(strings.TrimSpace(raw))
}
