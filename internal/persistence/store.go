// Package persistence is the event-sourced storage boundary: it appends
// audit_events, applies the resulting canonical-table deltas, and advances
// bid_years.lifecycle_state as one unit. internal/domain decides WHAT
// happened; this package is the only place that writes it down.
package persistence

import (
	"context"
	"database/sql"
	"encoding/json"
	"sync"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/fredsystems/zabbid/internal/domain"
	"github.com/fredsystems/zabbid/internal/pkg/apperrors"
)

// Dialect names the SQL backend in use. Query text differs only where the
// two drivers genuinely disagree (placeholder style, upsert syntax).
type Dialect string

const (
	DialectSQLite Dialect = "sqlite"
	DialectMySQL  Dialect = "mysql"
)

// Store is the single write/read gateway for bid-year state. A process-wide
// mutex serializes PersistTransition calls: apply() is pure and cheap, so the
// lock is held only across the handful of statements one transition writes,
// never across HTTP request handling.
type Store struct {
	db      *sqlx.DB
	dialect Dialect
	mu      sync.Mutex
}

// New wraps an already-open *sqlx.DB. Callers use sqlitestore.Open or
// mysqlstore.Open rather than calling this directly.
func New(db *sqlx.DB, dialect Dialect) *Store {
	return &Store{db: db, dialect: dialect}
}

func (s *Store) DB() *sqlx.DB { return s.db }

func (s *Store) Close() error { return s.db.Close() }

// PersistTransition writes the audit event produced by domain.Apply, then
// the canonical-table deltas implied by the refreshed State, then the
// bid_years row, in that order, inside one transaction. It returns the
// assigned event_id. Snapshot rows are written only for the three
// full-snapshot actions (domain.RequiresFullSnapshot).
func (s *Store) PersistTransition(ctx context.Context, result *domain.TransitionResult) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return 0, apperrors.Persistence(err)
	}
	defer tx.Rollback()

	eventID, err := s.insertAuditEvent(ctx, tx, result.AuditEvent)
	if err != nil {
		return 0, err
	}

	if domain.RequiresFullSnapshot(result.AuditEvent.Action.Name) {
		if err := s.insertSnapshot(ctx, tx, eventID, result); err != nil {
			return 0, err
		}
	}

	if err := s.upsertBidYear(ctx, tx, result.NewState.BidYear); err != nil {
		return 0, err
	}
	if err := s.upsertAreas(ctx, tx, result.NewState); err != nil {
		return 0, err
	}
	if err := s.upsertUsers(ctx, tx, result.NewState); err != nil {
		return 0, err
	}
	if err := s.upsertRoundGroups(ctx, tx, result.NewState); err != nil {
		return 0, err
	}
	if err := s.upsertRounds(ctx, tx, result.NewState); err != nil {
		return 0, err
	}
	if result.NewState.CanonicalPopulated() {
		if err := s.upsertCanonicalTables(ctx, tx, result.NewState, eventID); err != nil {
			return 0, err
		}
	}

	if err := tx.Commit(); err != nil {
		return 0, apperrors.Persistence(err)
	}
	return eventID, nil
}

func (s *Store) insertAuditEvent(ctx context.Context, tx *sqlx.Tx, ev domain.AuditEvent) (int64, error) {
	actorJSON, _ := json.Marshal(ev.Actor)
	causeJSON, _ := json.Marshal(ev.Cause)
	actionJSON, _ := json.Marshal(ev.Action)

	query := s.rebind(`INSERT INTO audit_events
		(bid_year_id, area_id, actor_json, cause_json, action_json, before_snapshot_json, after_snapshot_json, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`)

	res, err := tx.ExecContext(ctx, query, ev.BidYearID, ev.AreaID, actorJSON, causeJSON, actionJSON,
		ev.BeforeSnapshot, ev.AfterSnapshot, ev.CreatedAt)
	if err != nil {
		return 0, apperrors.Persistence(err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, apperrors.Persistence(err)
	}
	return id, nil
}

func (s *Store) insertSnapshot(ctx context.Context, tx *sqlx.Tx, eventID int64, result *domain.TransitionResult) error {
	stateJSON, err := json.Marshal(result.NewState)
	if err != nil {
		return apperrors.Internal("failed to marshal state snapshot", err)
	}
	query := s.rebind(`INSERT INTO state_snapshots (event_id, bid_year_id, area_id, state_json) VALUES (?, ?, ?, ?)`)
	if _, err := tx.ExecContext(ctx, query, eventID, result.NewState.BidYear.BidYearID, result.AuditEvent.AreaID, stateJSON); err != nil {
		return apperrors.Persistence(err)
	}
	return nil
}

func (s *Store) upsertBidYear(ctx context.Context, tx *sqlx.Tx, by *domain.BidYear) error {
	if by == nil {
		return nil
	}
	var schedule domain.BidSchedule
	if by.Schedule != nil {
		schedule = *by.Schedule
	}
	query := s.upsertQuery("bid_years", "bid_year_id",
		[]string{"bid_year_id", "year", "start_date", "num_pay_periods", "is_active", "lifecycle_state",
			"expected_area_count", "label", "notes", "timezone", "schedule_start_date",
			"window_start_time", "window_end_time", "bidders_per_day"})
	_, err := tx.ExecContext(ctx, query,
		by.BidYearID, by.Year, by.StartDate, by.NumPayPeriods, by.IsActive, by.LifecycleState.String(),
		by.ExpectedAreaCount, by.Label, by.Notes, schedule.Timezone, schedule.StartDate,
		schedule.WindowStartTime, schedule.WindowEndTime, schedule.BiddersPerDay)
	if err != nil {
		return apperrors.Persistence(err)
	}
	return nil
}

func (s *Store) upsertAreas(ctx context.Context, tx *sqlx.Tx, state *domain.State) error {
	query := s.upsertQuery("areas", "area_id",
		[]string{"area_id", "bid_year_id", "area_code", "area_name", "is_system_area", "expected_user_count", "round_group_id"})
	for _, a := range state.Areas {
		var roundGroupID any
		if a.RoundGroupID != nil {
			roundGroupID = *a.RoundGroupID
		}
		_, err := tx.ExecContext(ctx, query, a.AreaID, a.BidYearID, string(a.AreaCode), a.AreaName, a.IsSystemArea, a.ExpectedUserCount, roundGroupID)
		if err != nil {
			return apperrors.Persistence(err)
		}
	}
	return nil
}

func (s *Store) upsertUsers(ctx context.Context, tx *sqlx.Tx, state *domain.State) error {
	query := s.upsertQuery("users", "user_id",
		[]string{"user_id", "bid_year_id", "area_id", "initials", "name", "user_type", "crew",
			"eod_faa_date", "service_computation_date", "natca_bu_date", "cumulative_natca_bu_date",
			"lottery_value", "excluded_from_bidding", "excluded_from_leave_calculation", "no_bid_reviewed"})
	for _, u := range state.Users {
		var crew any
		if u.Crew != nil {
			crew = int(*u.Crew)
		}
		_, err := tx.ExecContext(ctx, query, u.UserID, u.BidYearID, u.AreaID, string(u.Initials), u.Name, string(u.UserType), crew,
			u.Seniority.EODFAADate, u.Seniority.ServiceComputationDate, u.Seniority.NATCABUDate, u.Seniority.CumulativeNATCABUDate,
			u.Seniority.LotteryValue, u.ExcludedFromBidding, u.ExcludedFromLeaveCalculation, u.NoBidReviewed)
		if err != nil {
			return apperrors.Persistence(err)
		}
	}
	return nil
}

// upsertRoundGroups mirrors state.RoundGroups into the database, deleting
// rows for groups DeleteRoundGroup removed from the in-memory set (round
// groups and rounds are the one entity pair that can be destroyed outright).
func (s *Store) upsertRoundGroups(ctx context.Context, tx *sqlx.Tx, state *domain.State) error {
	query := s.upsertQuery("round_groups", "round_group_id", []string{"round_group_id", "bid_year_id", "name"})
	for _, rg := range state.RoundGroups {
		if _, err := tx.ExecContext(ctx, query, rg.RoundGroupID, rg.BidYearID, rg.Name); err != nil {
			return apperrors.Persistence(err)
		}
	}

	var existingIDs []string
	selectQ := s.rebind(`SELECT round_group_id FROM round_groups WHERE bid_year_id = ?`)
	if err := tx.SelectContext(ctx, &existingIDs, selectQ, state.BidYear.BidYearID); err != nil {
		return apperrors.Persistence(err)
	}
	deleteQ := s.rebind(`DELETE FROM round_groups WHERE round_group_id = ?`)
	for _, id := range existingIDs {
		if _, ok := state.RoundGroups[id]; !ok {
			if _, err := tx.ExecContext(ctx, deleteQ, id); err != nil {
				return apperrors.Persistence(err)
			}
		}
	}
	return nil
}

func (s *Store) upsertRounds(ctx context.Context, tx *sqlx.Tx, state *domain.State) error {
	query := s.upsertQuery("rounds", "round_id",
		[]string{"round_id", "round_group_id", "round_number", "slot_limit", "group_limit", "hour_limit", "is_holiday", "allow_overbid"})
	for _, r := range state.Rounds {
		if _, err := tx.ExecContext(ctx, query, r.RoundID, r.RoundGroupID, r.RoundNumber, r.SlotLimit, r.GroupLimit, r.HourLimit, r.IsHoliday, r.AllowOverbid); err != nil {
			return apperrors.Persistence(err)
		}
	}

	groupIDs := make([]string, 0, len(state.RoundGroups))
	for id := range state.RoundGroups {
		groupIDs = append(groupIDs, id)
	}
	if len(groupIDs) == 0 {
		return nil
	}
	query, args, err := sqlx.In(`SELECT round_id FROM rounds WHERE round_group_id IN (?)`, groupIDs)
	if err != nil {
		return apperrors.Persistence(err)
	}
	var existingIDs []string
	if err := tx.SelectContext(ctx, &existingIDs, s.rebind(query), args...); err != nil {
		return apperrors.Persistence(err)
	}
	deleteQ := s.rebind(`DELETE FROM rounds WHERE round_id = ?`)
	for _, id := range existingIDs {
		if _, ok := state.Rounds[id]; !ok {
			if _, err := tx.ExecContext(ctx, deleteQ, id); err != nil {
				return apperrors.Persistence(err)
			}
		}
	}
	return nil
}

func (s *Store) upsertCanonicalTables(ctx context.Context, tx *sqlx.Tx, state *domain.State, eventID int64) error {
	membershipQ := s.upsertQuery("canonical_area_membership", "bid_year_id, user_id",
		[]string{"bid_year_id", "user_id", "area_id", "is_overridden", "override_reason", "audit_event_id"})
	for _, row := range state.CanonicalMembership {
		if _, err := tx.ExecContext(ctx, membershipQ, row.BidYearID, row.UserID, row.AreaID, row.IsOverridden, row.OverrideReason, eventID); err != nil {
			return apperrors.Persistence(err)
		}
	}

	eligibilityQ := s.upsertQuery("canonical_eligibility", "bid_year_id, user_id",
		[]string{"bid_year_id", "user_id", "can_bid", "is_overridden", "override_reason", "audit_event_id"})
	for _, row := range state.CanonicalEligibility {
		if _, err := tx.ExecContext(ctx, eligibilityQ, row.BidYearID, row.UserID, row.CanBid, row.IsOverridden, row.OverrideReason, eventID); err != nil {
			return apperrors.Persistence(err)
		}
	}

	orderQ := s.upsertQuery("canonical_bid_order", "bid_year_id, user_id",
		[]string{"bid_year_id", "user_id", "bid_order", "is_overridden", "override_reason", "audit_event_id"})
	for _, row := range state.CanonicalBidOrder {
		if _, err := tx.ExecContext(ctx, orderQ, row.BidYearID, row.UserID, row.BidOrder, row.IsOverridden, row.OverrideReason, eventID); err != nil {
			return apperrors.Persistence(err)
		}
	}

	windowQ := s.upsertQuery("canonical_bid_windows", "bid_year_id, user_id",
		[]string{"bid_year_id", "user_id", "window_start", "window_end", "is_overridden", "override_reason", "audit_event_id"})
	for _, row := range state.CanonicalBidWindow {
		if _, err := tx.ExecContext(ctx, windowQ, row.BidYearID, row.UserID, row.WindowStart, row.WindowEnd, row.IsOverridden, row.OverrideReason, eventID); err != nil {
			return apperrors.Persistence(err)
		}
	}
	return nil
}

// upsertQuery builds an INSERT ... ON CONFLICT/DUPLICATE KEY UPDATE for the
// given table, keyed on keyCols, dialect-specific only in its upsert clause.
func (s *Store) upsertQuery(table, keyCols string, cols []string) string {
	placeholders := make([]string, len(cols))
	for i := range cols {
		placeholders[i] = "?"
	}
	base := "INSERT INTO " + table + " (" + joinCols(cols) + ") VALUES (" + joinCols(placeholders) + ")"

	var updates []string
	for _, c := range cols {
		updates = append(updates, c+" = excluded."+c)
	}
	switch s.dialect {
	case DialectMySQL:
		var mysqlUpdates []string
		for _, c := range cols {
			mysqlUpdates = append(mysqlUpdates, c+" = VALUES("+c+")")
		}
		return s.rebind(base + " ON DUPLICATE KEY UPDATE " + joinCols(mysqlUpdates))
	default:
		return s.rebind(base + " ON CONFLICT (" + keyCols + ") DO UPDATE SET " + joinCols(updates))
	}
}

func joinCols(cols []string) string {
	out := ""
	for i, c := range cols {
		if i > 0 {
			out += ", "
		}
		out += c
	}
	return out
}

func (s *Store) rebind(query string) string {
	return s.db.Rebind(query)
}

// LoadBidYearState reconstructs a domain.State for the given bid year by
// reading its current row set (not by replaying audit_events — that replay
// path belongs to cmd/schemacheck and forensic tooling, not the hot path).
func (s *Store) LoadBidYearState(ctx context.Context, bidYearID string) (*domain.State, error) {
	by, err := s.loadBidYear(ctx, bidYearID)
	if err != nil {
		return nil, err
	}
	state := domain.NewState(by)

	if err := s.loadAreas(ctx, state); err != nil {
		return nil, err
	}
	if err := s.loadUsers(ctx, state); err != nil {
		return nil, err
	}
	if err := s.loadRoundGroups(ctx, state); err != nil {
		return nil, err
	}
	if err := s.loadRounds(ctx, state); err != nil {
		return nil, err
	}
	if state.BidYear.LifecycleState >= domain.Canonicalized {
		if err := s.loadCanonicalTables(ctx, state); err != nil {
			return nil, err
		}
		eventID, err := s.loadCanonicalizationEventID(ctx, state.BidYear.BidYearID)
		if err != nil {
			return nil, err
		}
		state.CanonicalizationEventID = eventID
	}
	return state, nil
}

// loadCanonicalizationEventID finds the audit event that first populated the
// canonical tables for this bid year, so Apply's idempotency check can
// return the original event_id rather than minting a new one on a repeated
// CanonicalizeBidYear call.
func (s *Store) loadCanonicalizationEventID(ctx context.Context, bidYearID string) (int64, error) {
	var eventID int64
	query := s.rebind(`SELECT event_id FROM audit_events
		WHERE bid_year_id = ? AND action_json LIKE ?
		ORDER BY event_id ASC LIMIT 1`)
	err := s.db.GetContext(ctx, &eventID, query, bidYearID, `%"CanonicalizeBidYear"%`)
	if err != nil {
		if err == sql.ErrNoRows {
			return 0, nil
		}
		return 0, apperrors.Persistence(err)
	}
	return eventID, nil
}

type membershipRow struct {
	UserID         string `db:"user_id"`
	AreaID         string `db:"area_id"`
	IsOverridden   bool   `db:"is_overridden"`
	OverrideReason string `db:"override_reason"`
	AuditEventID   int64  `db:"audit_event_id"`
}

type eligibilityRow struct {
	UserID         string `db:"user_id"`
	CanBid         bool   `db:"can_bid"`
	IsOverridden   bool   `db:"is_overridden"`
	OverrideReason string `db:"override_reason"`
	AuditEventID   int64  `db:"audit_event_id"`
}

type bidOrderRow struct {
	UserID         string        `db:"user_id"`
	BidOrder       sql.NullInt64 `db:"bid_order"`
	IsOverridden   bool          `db:"is_overridden"`
	OverrideReason string        `db:"override_reason"`
	AuditEventID   int64         `db:"audit_event_id"`
}

type bidWindowRow struct {
	UserID         string         `db:"user_id"`
	WindowStart    sql.NullString `db:"window_start"`
	WindowEnd      sql.NullString `db:"window_end"`
	IsOverridden   bool           `db:"is_overridden"`
	OverrideReason string         `db:"override_reason"`
	AuditEventID   int64          `db:"audit_event_id"`
}

// loadCanonicalTables reads the four canonical tables for a bid year at or
// past Canonicalized. It is the only reader of these tables outside the
// override engine's pre-image lookups.
func (s *Store) loadCanonicalTables(ctx context.Context, state *domain.State) error {
	bidYearID := state.BidYear.BidYearID

	var membership []membershipRow
	if err := s.db.SelectContext(ctx, &membership, s.rebind(
		`SELECT user_id, area_id, is_overridden, override_reason, audit_event_id FROM canonical_area_membership WHERE bid_year_id = ?`),
		bidYearID); err != nil {
		return apperrors.Persistence(err)
	}
	state.CanonicalMembership = make(map[string]*domain.CanonicalAreaMembership, len(membership))
	for _, r := range membership {
		state.CanonicalMembership[r.UserID] = &domain.CanonicalAreaMembership{
			BidYearID: bidYearID, UserID: r.UserID, AreaID: r.AreaID,
			IsOverridden: r.IsOverridden, OverrideReason: r.OverrideReason, AuditEventID: r.AuditEventID,
		}
	}

	var eligibility []eligibilityRow
	if err := s.db.SelectContext(ctx, &eligibility, s.rebind(
		`SELECT user_id, can_bid, is_overridden, override_reason, audit_event_id FROM canonical_eligibility WHERE bid_year_id = ?`),
		bidYearID); err != nil {
		return apperrors.Persistence(err)
	}
	state.CanonicalEligibility = make(map[string]*domain.CanonicalEligibility, len(eligibility))
	for _, r := range eligibility {
		state.CanonicalEligibility[r.UserID] = &domain.CanonicalEligibility{
			BidYearID: bidYearID, UserID: r.UserID, CanBid: r.CanBid,
			IsOverridden: r.IsOverridden, OverrideReason: r.OverrideReason, AuditEventID: r.AuditEventID,
		}
	}

	var order []bidOrderRow
	if err := s.db.SelectContext(ctx, &order, s.rebind(
		`SELECT user_id, bid_order, is_overridden, override_reason, audit_event_id FROM canonical_bid_order WHERE bid_year_id = ?`),
		bidYearID); err != nil {
		return apperrors.Persistence(err)
	}
	state.CanonicalBidOrder = make(map[string]*domain.CanonicalBidOrder, len(order))
	for _, r := range order {
		row := &domain.CanonicalBidOrder{
			BidYearID: bidYearID, UserID: r.UserID,
			IsOverridden: r.IsOverridden, OverrideReason: r.OverrideReason, AuditEventID: r.AuditEventID,
		}
		if r.BidOrder.Valid {
			v := int(r.BidOrder.Int64)
			row.BidOrder = &v
		}
		state.CanonicalBidOrder[r.UserID] = row
	}

	var windows []bidWindowRow
	if err := s.db.SelectContext(ctx, &windows, s.rebind(
		`SELECT user_id, window_start, window_end, is_overridden, override_reason, audit_event_id FROM canonical_bid_windows WHERE bid_year_id = ?`),
		bidYearID); err != nil {
		return apperrors.Persistence(err)
	}
	state.CanonicalBidWindow = make(map[string]*domain.CanonicalBidWindow, len(windows))
	for _, r := range windows {
		row := &domain.CanonicalBidWindow{
			BidYearID: bidYearID, UserID: r.UserID,
			IsOverridden: r.IsOverridden, OverrideReason: r.OverrideReason, AuditEventID: r.AuditEventID,
		}
		if r.WindowStart.Valid {
			v := r.WindowStart.String
			row.WindowStart = &v
		}
		if r.WindowEnd.Valid {
			v := r.WindowEnd.String
			row.WindowEnd = &v
		}
		state.CanonicalBidWindow[r.UserID] = row
	}
	return nil
}

type roundGroupRow struct {
	RoundGroupID string `db:"round_group_id"`
	BidYearID    string `db:"bid_year_id"`
	Name         string `db:"name"`
}

func (s *Store) loadRoundGroups(ctx context.Context, state *domain.State) error {
	var rows []roundGroupRow
	query := s.rebind(`SELECT round_group_id, bid_year_id, name FROM round_groups WHERE bid_year_id = ?`)
	if err := s.db.SelectContext(ctx, &rows, query, state.BidYear.BidYearID); err != nil {
		return apperrors.Persistence(err)
	}
	for _, r := range rows {
		state.RoundGroups[r.RoundGroupID] = &domain.RoundGroup{
			RoundGroupID: r.RoundGroupID,
			BidYearID:    r.BidYearID,
			Name:         r.Name,
		}
	}
	return nil
}

type roundRow struct {
	RoundID      string        `db:"round_id"`
	RoundGroupID string        `db:"round_group_id"`
	RoundNumber  int           `db:"round_number"`
	SlotLimit    sql.NullInt64 `db:"slot_limit"`
	GroupLimit   sql.NullInt64 `db:"group_limit"`
	HourLimit    sql.NullInt64 `db:"hour_limit"`
	IsHoliday    bool          `db:"is_holiday"`
	AllowOverbid bool          `db:"allow_overbid"`
}

func (s *Store) loadRounds(ctx context.Context, state *domain.State) error {
	if len(state.RoundGroups) == 0 {
		return nil
	}
	groupIDs := make([]string, 0, len(state.RoundGroups))
	for id := range state.RoundGroups {
		groupIDs = append(groupIDs, id)
	}
	query, args, err := sqlx.In(`SELECT round_id, round_group_id, round_number, slot_limit, group_limit, hour_limit, is_holiday, allow_overbid
		FROM rounds WHERE round_group_id IN (?)`, groupIDs)
	if err != nil {
		return apperrors.Persistence(err)
	}
	var rows []roundRow
	if err := s.db.SelectContext(ctx, &rows, s.rebind(query), args...); err != nil {
		return apperrors.Persistence(err)
	}
	for _, r := range rows {
		round := &domain.Round{
			RoundID:      r.RoundID,
			RoundGroupID: r.RoundGroupID,
			RoundNumber:  r.RoundNumber,
			IsHoliday:    r.IsHoliday,
			AllowOverbid: r.AllowOverbid,
		}
		if r.SlotLimit.Valid {
			v := int(r.SlotLimit.Int64)
			round.SlotLimit = &v
		}
		if r.GroupLimit.Valid {
			v := int(r.GroupLimit.Int64)
			round.GroupLimit = &v
		}
		if r.HourLimit.Valid {
			v := int(r.HourLimit.Int64)
			round.HourLimit = &v
		}
		state.Rounds[round.RoundID] = round
	}
	return nil
}

type bidYearRow struct {
	BidYearID         string         `db:"bid_year_id"`
	Year              int            `db:"year"`
	StartDate         time.Time      `db:"start_date"`
	NumPayPeriods     int            `db:"num_pay_periods"`
	IsActive          bool           `db:"is_active"`
	LifecycleState    string         `db:"lifecycle_state"`
	ExpectedAreaCount sql.NullInt64  `db:"expected_area_count"`
	Label             sql.NullString `db:"label"`
	Notes             sql.NullString `db:"notes"`
	Timezone          sql.NullString `db:"timezone"`
	ScheduleStart     sql.NullTime   `db:"schedule_start_date"`
	WindowStart       sql.NullString `db:"window_start_time"`
	WindowEnd         sql.NullString `db:"window_end_time"`
	BiddersPerDay     sql.NullInt64  `db:"bidders_per_day"`
}

func (s *Store) loadBidYear(ctx context.Context, bidYearID string) (*domain.BidYear, error) {
	var row bidYearRow
	query := s.rebind(`SELECT bid_year_id, year, start_date, num_pay_periods, is_active, lifecycle_state,
		expected_area_count, label, notes, timezone, schedule_start_date, window_start_time, window_end_time, bidders_per_day
		FROM bid_years WHERE bid_year_id = ?`)
	if err := s.db.GetContext(ctx, &row, query, bidYearID); err != nil {
		if err == sql.ErrNoRows {
			return nil, apperrors.NotFound("bid_year", bidYearID)
		}
		return nil, apperrors.Persistence(err)
	}

	by := &domain.BidYear{
		BidYearID:     row.BidYearID,
		Year:          row.Year,
		StartDate:     row.StartDate,
		NumPayPeriods: row.NumPayPeriods,
		IsActive:      row.IsActive,
	}
	if row.ExpectedAreaCount.Valid {
		v := int(row.ExpectedAreaCount.Int64)
		by.ExpectedAreaCount = &v
	}
	by.Label = row.Label.String
	by.Notes = row.Notes.String
	switch row.LifecycleState {
	case domain.Draft.String():
		by.LifecycleState = domain.Draft
	case domain.BootstrapComplete.String():
		by.LifecycleState = domain.BootstrapComplete
	case domain.Canonicalized.String():
		by.LifecycleState = domain.Canonicalized
	case domain.BiddingActive.String():
		by.LifecycleState = domain.BiddingActive
	case domain.BiddingClosed.String():
		by.LifecycleState = domain.BiddingClosed
	}
	if row.Timezone.Valid {
		by.Schedule = &domain.BidSchedule{
			Timezone:        row.Timezone.String,
			StartDate:       row.ScheduleStart.Time,
			WindowStartTime: row.WindowStart.String,
			WindowEndTime:   row.WindowEnd.String,
			BiddersPerDay:   int(row.BiddersPerDay.Int64),
		}
	}
	return by, nil
}

type areaRow struct {
	AreaID            string         `db:"area_id"`
	BidYearID         string         `db:"bid_year_id"`
	AreaCode          string         `db:"area_code"`
	AreaName          sql.NullString `db:"area_name"`
	IsSystemArea      bool           `db:"is_system_area"`
	ExpectedUserCount sql.NullInt64  `db:"expected_user_count"`
	RoundGroupID      sql.NullString `db:"round_group_id"`
}

func (s *Store) loadAreas(ctx context.Context, state *domain.State) error {
	var rows []areaRow
	query := s.rebind(`SELECT area_id, bid_year_id, area_code, area_name, is_system_area, expected_user_count, round_group_id
		FROM areas WHERE bid_year_id = ?`)
	if err := s.db.SelectContext(ctx, &rows, query, state.BidYear.BidYearID); err != nil {
		return apperrors.Persistence(err)
	}
	for _, r := range rows {
		area := &domain.Area{
			AreaID:       r.AreaID,
			BidYearID:    r.BidYearID,
			AreaCode:     domain.AreaCode(r.AreaCode),
			AreaName:     r.AreaName.String,
			IsSystemArea: r.IsSystemArea,
		}
		if r.RoundGroupID.Valid {
			v := r.RoundGroupID.String
			area.RoundGroupID = &v
		}
		if r.ExpectedUserCount.Valid {
			v := int(r.ExpectedUserCount.Int64)
			area.ExpectedUserCount = &v
		}
		state.Areas[area.AreaID] = area
	}
	return nil
}

type userRow struct {
	UserID                       string         `db:"user_id"`
	BidYearID                    string         `db:"bid_year_id"`
	AreaID                       string         `db:"area_id"`
	Initials                     string         `db:"initials"`
	Name                         string         `db:"name"`
	UserType                     string         `db:"user_type"`
	Crew                         sql.NullInt64  `db:"crew"`
	EODFAADate                   sql.NullTime   `db:"eod_faa_date"`
	ServiceComputationDate       sql.NullTime   `db:"service_computation_date"`
	NATCABUDate                  sql.NullTime   `db:"natca_bu_date"`
	CumulativeNATCABUDate        sql.NullTime   `db:"cumulative_natca_bu_date"`
	LotteryValue                 sql.NullFloat64 `db:"lottery_value"`
	ExcludedFromBidding          bool           `db:"excluded_from_bidding"`
	ExcludedFromLeaveCalculation bool           `db:"excluded_from_leave_calculation"`
	NoBidReviewed                bool           `db:"no_bid_reviewed"`
}

func (s *Store) loadUsers(ctx context.Context, state *domain.State) error {
	var rows []userRow
	query := s.rebind(`SELECT user_id, bid_year_id, area_id, initials, name, user_type, crew,
		eod_faa_date, service_computation_date, natca_bu_date, cumulative_natca_bu_date, lottery_value,
		excluded_from_bidding, excluded_from_leave_calculation, no_bid_reviewed
		FROM users WHERE bid_year_id = ?`)
	if err := s.db.SelectContext(ctx, &rows, query, state.BidYear.BidYearID); err != nil {
		return apperrors.Persistence(err)
	}
	for _, r := range rows {
		userType, _ := domain.ParseUserType(r.UserType)
		var crew *domain.Crew
		if r.Crew.Valid {
			c, err := domain.ParseCrew(int(r.Crew.Int64))
			if err == nil {
				crew = &c
			}
		}
		u := &domain.User{
			UserID:    r.UserID,
			BidYearID: r.BidYearID,
			AreaID:    r.AreaID,
			Initials:  domain.Initials(r.Initials),
			Name:      r.Name,
			UserType:  userType,
			Crew:      crew,
			Seniority: domain.Seniority{
				EODFAADate:             r.EODFAADate.Time,
				ServiceComputationDate: r.ServiceComputationDate.Time,
				NATCABUDate:            r.NATCABUDate.Time,
				CumulativeNATCABUDate:  r.CumulativeNATCABUDate.Time,
			},
			ExcludedFromBidding:          r.ExcludedFromBidding,
			ExcludedFromLeaveCalculation: r.ExcludedFromLeaveCalculation,
			NoBidReviewed:                r.NoBidReviewed,
		}
		if r.LotteryValue.Valid {
			v := r.LotteryValue.Float64
			u.Seniority.LotteryValue = &v
		}
		state.Users[u.UserID] = u
	}
	return nil
}
