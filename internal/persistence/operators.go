package persistence

import (
	"context"
	"database/sql"
	"encoding/json"
	"time"

	"github.com/fredsystems/zabbid/internal/domain"
	"github.com/fredsystems/zabbid/internal/pkg/apperrors"
)

// CreateOperator inserts a new operator row. Operators are never deleted,
// only disabled; internal/authz enforces the last-enabled-admin rule before
// this is ever called for a disable.
func (s *Store) CreateOperator(ctx context.Context, op *domain.Operator) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	query := s.rebind(`INSERT INTO operators
		(operator_id, login_name, display_name, password_hash, role, is_disabled, created_at, last_login_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`)
	_, err := s.db.ExecContext(ctx, query, op.OperatorID, op.LoginName, op.DisplayName, op.PasswordHash,
		string(op.Role), op.IsDisabled, op.CreatedAt, op.LastLoginAt)
	if err != nil {
		return apperrors.Persistence(err)
	}
	return nil
}

// UpdateOperator persists changes to an existing operator row (role,
// is_disabled, password_hash, last_login_at).
func (s *Store) UpdateOperator(ctx context.Context, op *domain.Operator) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	query := s.rebind(`UPDATE operators SET display_name = ?, password_hash = ?, role = ?, is_disabled = ?, last_login_at = ?
		WHERE operator_id = ?`)
	_, err := s.db.ExecContext(ctx, query, op.DisplayName, op.PasswordHash, string(op.Role), op.IsDisabled, op.LastLoginAt, op.OperatorID)
	if err != nil {
		return apperrors.Persistence(err)
	}
	return nil
}

type operatorRow struct {
	OperatorID   string       `db:"operator_id"`
	LoginName    string       `db:"login_name"`
	DisplayName  string       `db:"display_name"`
	PasswordHash string       `db:"password_hash"`
	Role         string       `db:"role"`
	IsDisabled   bool         `db:"is_disabled"`
	CreatedAt    time.Time    `db:"created_at"`
	LastLoginAt  sql.NullTime `db:"last_login_at"`
}

func (r operatorRow) toDomain() *domain.Operator {
	op := &domain.Operator{
		OperatorID:   r.OperatorID,
		LoginName:    r.LoginName,
		DisplayName:  r.DisplayName,
		PasswordHash: r.PasswordHash,
		Role:         domain.Role(r.Role),
		IsDisabled:   r.IsDisabled,
		CreatedAt:    r.CreatedAt,
	}
	if r.LastLoginAt.Valid {
		t := r.LastLoginAt.Time
		op.LastLoginAt = &t
	}
	return op
}

// OperatorByLoginName looks up an operator by its normalized login name, or
// returns a ResourceNotFound error.
func (s *Store) OperatorByLoginName(ctx context.Context, loginName string) (*domain.Operator, error) {
	var row operatorRow
	query := s.rebind(`SELECT operator_id, login_name, display_name, password_hash, role, is_disabled, created_at, last_login_at
		FROM operators WHERE login_name = ?`)
	if err := s.db.GetContext(ctx, &row, query, loginName); err != nil {
		if err == sql.ErrNoRows {
			return nil, apperrors.NotFound("Operator", loginName)
		}
		return nil, apperrors.Persistence(err)
	}
	return row.toDomain(), nil
}

// OperatorByID looks up an operator by its surrogate id.
func (s *Store) OperatorByID(ctx context.Context, operatorID string) (*domain.Operator, error) {
	var row operatorRow
	query := s.rebind(`SELECT operator_id, login_name, display_name, password_hash, role, is_disabled, created_at, last_login_at
		FROM operators WHERE operator_id = ?`)
	if err := s.db.GetContext(ctx, &row, query, operatorID); err != nil {
		if err == sql.ErrNoRows {
			return nil, apperrors.NotFound("Operator", operatorID)
		}
		return nil, apperrors.Persistence(err)
	}
	return row.toDomain(), nil
}

// ListOperators returns every operator, ordered by login name. Used by
// internal/authz's last-enabled-admin rule and by the operator management
// API surface.
func (s *Store) ListOperators(ctx context.Context) ([]*domain.Operator, error) {
	var rows []operatorRow
	query := `SELECT operator_id, login_name, display_name, password_hash, role, is_disabled, created_at, last_login_at
		FROM operators ORDER BY login_name`
	if err := s.db.SelectContext(ctx, &rows, query); err != nil {
		return nil, apperrors.Persistence(err)
	}
	out := make([]*domain.Operator, len(rows))
	for i, r := range rows {
		out[i] = r.toDomain()
	}
	return out, nil
}

// OperatorCount reports how many operators exist, used to gate the
// bootstrap authentication path.
func (s *Store) OperatorCount(ctx context.Context) (int, error) {
	var count int
	if err := s.db.GetContext(ctx, &count, `SELECT COUNT(*) FROM operators`); err != nil {
		return 0, apperrors.Persistence(err)
	}
	return count, nil
}

// CreateSession inserts a new session row.
func (s *Store) CreateSession(ctx context.Context, sess *domain.Session) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	query := s.rebind(`INSERT INTO sessions (token, operator_id, expires_at, last_activity_at) VALUES (?, ?, ?, ?)`)
	_, err := s.db.ExecContext(ctx, query, sess.Token, sess.OperatorID, sess.ExpiresAt, sess.LastActivityAt)
	if err != nil {
		return apperrors.Persistence(err)
	}
	return nil
}

type sessionRow struct {
	Token          string    `db:"token"`
	OperatorID     string    `db:"operator_id"`
	ExpiresAt      time.Time `db:"expires_at"`
	LastActivityAt time.Time `db:"last_activity_at"`
}

// SessionByToken looks up a session by its bearer token.
func (s *Store) SessionByToken(ctx context.Context, token string) (*domain.Session, error) {
	var row sessionRow
	query := s.rebind(`SELECT token, operator_id, expires_at, last_activity_at FROM sessions WHERE token = ?`)
	if err := s.db.GetContext(ctx, &row, query, token); err != nil {
		if err == sql.ErrNoRows {
			return nil, apperrors.NotFound("Session", token)
		}
		return nil, apperrors.Persistence(err)
	}
	return &domain.Session{
		Token: row.Token, OperatorID: row.OperatorID,
		ExpiresAt: row.ExpiresAt, LastActivityAt: row.LastActivityAt,
	}, nil
}

// TouchSession records activity on a session by bumping last_activity_at.
func (s *Store) TouchSession(ctx context.Context, token string, at time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	query := s.rebind(`UPDATE sessions SET last_activity_at = ? WHERE token = ?`)
	if _, err := s.db.ExecContext(ctx, query, at, token); err != nil {
		return apperrors.Persistence(err)
	}
	return nil
}

// DeleteSession removes a session row (Logout or operator disable).
func (s *Store) DeleteSession(ctx context.Context, token string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	query := s.rebind(`DELETE FROM sessions WHERE token = ?`)
	if _, err := s.db.ExecContext(ctx, query, token); err != nil {
		return apperrors.Persistence(err)
	}
	return nil
}

// DeleteSessionsForOperator removes all sessions belonging to an operator,
// used when an operator is disabled.
func (s *Store) DeleteSessionsForOperator(ctx context.Context, operatorID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	query := s.rebind(`DELETE FROM sessions WHERE operator_id = ?`)
	if _, err := s.db.ExecContext(ctx, query, operatorID); err != nil {
		return apperrors.Persistence(err)
	}
	return nil
}

// ActiveBidYear returns the one bid year with is_active = true, or a
// ResourceNotFound error if none has been activated yet.
func (s *Store) ActiveBidYear(ctx context.Context) (*domain.BidYear, error) {
	var id string
	query := `SELECT bid_year_id FROM bid_years WHERE is_active = 1 LIMIT 1`
	if err := s.db.GetContext(ctx, &id, query); err != nil {
		if err == sql.ErrNoRows {
			return nil, apperrors.NotFound("BidYear", "active")
		}
		return nil, apperrors.Persistence(err)
	}
	return s.loadBidYear(ctx, id)
}

// ListBidYears returns every bid year, ordered by year.
func (s *Store) ListBidYears(ctx context.Context) ([]*domain.BidYear, error) {
	var ids []string
	if err := s.db.SelectContext(ctx, &ids, `SELECT bid_year_id FROM bid_years ORDER BY year`); err != nil {
		return nil, apperrors.Persistence(err)
	}
	out := make([]*domain.BidYear, 0, len(ids))
	for _, id := range ids {
		by, err := s.loadBidYear(ctx, id)
		if err != nil {
			return nil, err
		}
		out = append(out, by)
	}
	return out, nil
}

// AnyBidYearInState reports whether any bid year other than excludeID
// currently has the given lifecycle state — used to enforce that no other
// bid year is simultaneously BiddingActive.
func (s *Store) AnyBidYearInState(ctx context.Context, state domain.LifecycleState, excludeID string) (bool, error) {
	var count int
	query := s.rebind(`SELECT COUNT(*) FROM bid_years WHERE lifecycle_state = ? AND bid_year_id != ?`)
	if err := s.db.GetContext(ctx, &count, query, state.String(), excludeID); err != nil {
		return false, apperrors.Persistence(err)
	}
	return count > 0, nil
}

type auditEventRow struct {
	EventID            int64          `db:"event_id"`
	BidYearID          sql.NullString `db:"bid_year_id"`
	AreaID             sql.NullString `db:"area_id"`
	ActorJSON          []byte         `db:"actor_json"`
	CauseJSON          []byte         `db:"cause_json"`
	ActionJSON         []byte         `db:"action_json"`
	BeforeSnapshotJSON string         `db:"before_snapshot_json"`
	AfterSnapshotJSON  string         `db:"after_snapshot_json"`
	CreatedAt          time.Time      `db:"created_at"`
}

func (r auditEventRow) toDomain() (*domain.AuditEvent, error) {
	ev := &domain.AuditEvent{
		EventID:        r.EventID,
		BeforeSnapshot: r.BeforeSnapshotJSON,
		AfterSnapshot:  r.AfterSnapshotJSON,
		CreatedAt:      r.CreatedAt,
	}
	if r.BidYearID.Valid {
		v := r.BidYearID.String
		ev.BidYearID = &v
	}
	if r.AreaID.Valid {
		v := r.AreaID.String
		ev.AreaID = &v
	}
	if err := json.Unmarshal(r.ActorJSON, &ev.Actor); err != nil {
		return nil, apperrors.Internal("failed to unmarshal audit event actor", err)
	}
	if err := json.Unmarshal(r.CauseJSON, &ev.Cause); err != nil {
		return nil, apperrors.Internal("failed to unmarshal audit event cause", err)
	}
	if err := json.Unmarshal(r.ActionJSON, &ev.Action); err != nil {
		return nil, apperrors.Internal("failed to unmarshal audit event action", err)
	}
	return ev, nil
}

// EventByID loads a single audit event by id, used by rollback to read the
// target event's recorded after_snapshot.
func (s *Store) EventByID(ctx context.Context, eventID int64) (*domain.AuditEvent, error) {
	var row auditEventRow
	query := s.rebind(`SELECT event_id, bid_year_id, area_id, actor_json, cause_json, action_json,
		before_snapshot_json, after_snapshot_json, created_at FROM audit_events WHERE event_id = ?`)
	if err := s.db.GetContext(ctx, &row, query, eventID); err != nil {
		if err == sql.ErrNoRows {
			return nil, apperrors.NotFound("AuditEvent", "")
		}
		return nil, apperrors.Persistence(err)
	}
	return row.toDomain()
}

// EventsForBidYear returns every audit event scoped to a bid year, ordered
// by event_id, for audit-log display.
func (s *Store) EventsForBidYear(ctx context.Context, bidYearID string) ([]*domain.AuditEvent, error) {
	var rows []auditEventRow
	query := s.rebind(`SELECT event_id, bid_year_id, area_id, actor_json, cause_json, action_json,
		before_snapshot_json, after_snapshot_json, created_at FROM audit_events WHERE bid_year_id = ? ORDER BY event_id`)
	if err := s.db.SelectContext(ctx, &rows, query, bidYearID); err != nil {
		return nil, apperrors.Persistence(err)
	}
	out := make([]*domain.AuditEvent, 0, len(rows))
	for _, r := range rows {
		ev, err := r.toDomain()
		if err != nil {
			return nil, err
		}
		out = append(out, ev)
	}
	return out, nil
}
