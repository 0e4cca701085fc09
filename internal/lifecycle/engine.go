// Package lifecycle is the cross-bid-year orchestration layer: it loads a
// single bid year's State, enforces the invariants that apply() cannot see
// because they span more than one bid year (exactly one active bid year,
// at most one BiddingActive bid year), calls domain.Apply, persists the
// result, and publishes the resulting audit event to any live subscribers.
package lifecycle

import (
	"context"
	"fmt"
	"time"

	"github.com/fredsystems/zabbid/internal/domain"
	"github.com/fredsystems/zabbid/internal/pkg/apperrors"
)

// Store is the subset of internal/persistence.Store the engine needs. It is
// declared here, not imported as a concrete type, so the engine can be
// exercised with a fake in tests without touching a real database.
type Store interface {
	LoadBidYearState(ctx context.Context, bidYearID string) (*domain.State, error)
	PersistTransition(ctx context.Context, result *domain.TransitionResult) (int64, error)
	AnyBidYearInState(ctx context.Context, state domain.LifecycleState, excludeID string) (bool, error)
	ActiveBidYear(ctx context.Context) (*domain.BidYear, error)
	EventByID(ctx context.Context, eventID int64) (*domain.AuditEvent, error)
}

// Publisher receives every committed audit event for live broadcast.
// internal/broadcast.Hub satisfies this interface; Engine works without one
// (e.g. in cmd/seed or tests) since Publisher may be nil.
type Publisher interface {
	Publish(domain.AuditEvent)
}

// Engine is the single entry point command handlers call once authorization
// has already passed.
type Engine struct {
	Store     Store
	Publisher Publisher
	// Now returns the wall-clock time to stamp events with; overridable for
	// deterministic tests. Defaults to time.Now at construction.
	Now func() time.Time
}

// New builds an Engine backed by store, optionally publishing committed
// events to pub.
func New(store Store, pub Publisher) *Engine {
	return &Engine{Store: store, Publisher: pub, Now: time.Now}
}

// ConfirmationToken is the fixed literal TransitionToBiddingActive must be
// given verbatim; internal/config.BiddingConfig supplies the live value at
// wiring time.
type ConfirmationToken = string

// Execute loads bidYearID's State, runs any cross-bid-year precondition this
// particular command requires, calls domain.Apply, persists the result, and
// publishes the committed audit event. It is the sole path commands outside
// the bootstrap family travel.
func (e *Engine) Execute(ctx context.Context, bidYearID string, cmd domain.Command, actor domain.Actor, cause domain.Cause, confirmationToken ConfirmationToken) (*domain.TransitionResult, error) {
	if err := e.checkCrossBidYearPreconditions(ctx, bidYearID, cmd); err != nil {
		return nil, err
	}

	now := e.Now()
	if _, ok := cmd.(domain.SetActiveBidYear); ok {
		// Deactivate whichever bid year currently holds is_active before
		// activating this one, so at most one bid year is ever active at
		// once (universal invariant 1) rather than briefly two.
		if err := e.deactivateOthers(ctx, bidYearID, actor, cause, now); err != nil {
			return nil, err
		}
	}

	state, err := e.Store.LoadBidYearState(ctx, bidYearID)
	if err != nil {
		return nil, err
	}

	if rb, ok := cmd.(domain.RollbackToEventId); ok {
		target, err := e.Store.EventByID(ctx, rb.TargetEventID)
		if err != nil {
			return nil, err
		}
		rb.TargetSnapshot = target.AfterSnapshot
		cmd = rb
	}

	meta := domain.Metadata{Now: now, ConfirmationToken: confirmationToken}
	result, err := domain.Apply(meta, state, cmd, actor, cause)
	if err != nil {
		return nil, err
	}

	// domain.Apply already stamps a nonzero EventID when it detects the
	// command was a no-op repeat of something already committed (currently
	// only CanonicalizeBidYear's idempotency check, domain/canonicalize.go).
	// Persisting again would mint a duplicate audit row and re-point every
	// canonical row's audit_event_id at it, so the already-assigned id is
	// returned as-is with no write and no re-publish.
	if result.AuditEvent.EventID != 0 {
		return result, nil
	}

	eventID, err := e.Store.PersistTransition(ctx, result)
	if err != nil {
		return nil, fmt.Errorf("persist transition: %w", err)
	}
	result.AuditEvent.EventID = eventID

	if e.Publisher != nil {
		e.Publisher.Publish(result.AuditEvent)
	}
	return result, nil
}

// checkCrossBidYearPreconditions enforces the two invariants a single
// bid year's State cannot see on its own: at most one bid year is ever
// BiddingActive, and entering BiddingActive requires Canonicalized first.
func (e *Engine) checkCrossBidYearPreconditions(ctx context.Context, bidYearID string, cmd domain.Command) error {
	switch cmd.(type) {
	case domain.TransitionToBiddingActive, domain.ConfirmReadyToBid:
		active, err := e.Store.AnyBidYearInState(ctx, domain.BiddingActive, bidYearID)
		if err != nil {
			return err
		}
		if active {
			return apperrors.DomainRule("other_bid_year_bidding_active",
				"another bid year is already BiddingActive")
		}
	}
	return nil
}

// deactivateOthers clears is_active on whichever bid year (other than
// bidYearID) currently holds it, so invariant 1 ("exactly one bid year may
// have is_active = true") keeps holding after SetActiveBidYear commits.
func (e *Engine) deactivateOthers(ctx context.Context, bidYearID string, actor domain.Actor, cause domain.Cause, now time.Time) error {
	prev, err := e.Store.ActiveBidYear(ctx)
	if err != nil {
		if apperrors.IsKind(err, apperrors.KindNotFound) {
			return nil
		}
		return err
	}
	if prev.BidYearID == bidYearID {
		return nil
	}

	prevState, err := e.Store.LoadBidYearState(ctx, prev.BidYearID)
	if err != nil {
		return err
	}
	meta := domain.Metadata{Now: now}
	result, err := domain.Apply(meta, prevState, domain.DeactivateBidYear{BidYearID: prev.BidYearID}, actor, cause)
	if err != nil {
		return err
	}
	eventID, err := e.Store.PersistTransition(ctx, result)
	if err != nil {
		return fmt.Errorf("persist deactivation: %w", err)
	}
	result.AuditEvent.EventID = eventID
	if e.Publisher != nil {
		e.Publisher.Publish(result.AuditEvent)
	}
	return nil
}

// Canonicalize is the convenience entry point for CanonicalizeBidYear; it is
// idempotent by way of domain.Apply's own idempotency check.
func (e *Engine) Canonicalize(ctx context.Context, bidYearID string, actor domain.Actor, cause domain.Cause) (*domain.TransitionResult, error) {
	return e.Execute(ctx, bidYearID, domain.CanonicalizeBidYear{BidYearID: bidYearID}, actor, cause, "")
}

// Rollback targets an earlier event and records a new Rollback audit event
// whose after_snapshot is the target event's own after_snapshot (see
// DESIGN.md Open Question resolution: audit-only, no canonical-table
// reversion).
func (e *Engine) Rollback(ctx context.Context, bidYearID string, targetEventID int64, actor domain.Actor, cause domain.Cause) (*domain.TransitionResult, error) {
	return e.Execute(ctx, bidYearID, domain.RollbackToEventId{BidYearID: bidYearID, TargetEventID: targetEventID}, actor, cause, "")
}
