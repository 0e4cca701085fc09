// Package override wraps the four domain.Override* commands so callers get
// back a domain.OverrideResult (spec.md §4.6: UI needs to know whether a row
// was already overridden before this call). domain.Apply's generic switch
// returns a plain domain.TransitionResult for every command, so
// WasAlreadyOverridden has to be computed here, from the state as it stood
// immediately before the command ran.
package override

import (
	"context"

	"github.com/fredsystems/zabbid/internal/domain"
	"github.com/fredsystems/zabbid/internal/lifecycle"
)

// AreaAssignment overrides a user's canonical area assignment.
func AreaAssignment(ctx context.Context, eng *lifecycle.Engine, bidYearID string, cmd domain.OverrideAreaAssignment, actor domain.Actor, cause domain.Cause) (*domain.OverrideResult, error) {
	wasAlreadyOverridden, err := alreadyOverridden(ctx, eng, bidYearID, func(s *domain.State) bool {
		row, ok := s.CanonicalMembership[cmd.UserID]
		return ok && row.IsOverridden
	})
	if err != nil {
		return nil, err
	}
	return execute(ctx, eng, bidYearID, cmd, actor, cause, wasAlreadyOverridden)
}

// Eligibility overrides a user's canonical bidding eligibility.
func Eligibility(ctx context.Context, eng *lifecycle.Engine, bidYearID string, cmd domain.OverrideEligibility, actor domain.Actor, cause domain.Cause) (*domain.OverrideResult, error) {
	wasAlreadyOverridden, err := alreadyOverridden(ctx, eng, bidYearID, func(s *domain.State) bool {
		row, ok := s.CanonicalEligibility[cmd.UserID]
		return ok && row.IsOverridden
	})
	if err != nil {
		return nil, err
	}
	return execute(ctx, eng, bidYearID, cmd, actor, cause, wasAlreadyOverridden)
}

// BidOrder overrides a user's canonical bid order position.
func BidOrder(ctx context.Context, eng *lifecycle.Engine, bidYearID string, cmd domain.OverrideBidOrder, actor domain.Actor, cause domain.Cause) (*domain.OverrideResult, error) {
	wasAlreadyOverridden, err := alreadyOverridden(ctx, eng, bidYearID, func(s *domain.State) bool {
		row, ok := s.CanonicalBidOrder[cmd.UserID]
		return ok && row.IsOverridden
	})
	if err != nil {
		return nil, err
	}
	return execute(ctx, eng, bidYearID, cmd, actor, cause, wasAlreadyOverridden)
}

// BidWindow overrides a user's canonical bid window.
func BidWindow(ctx context.Context, eng *lifecycle.Engine, bidYearID string, cmd domain.OverrideBidWindow, actor domain.Actor, cause domain.Cause) (*domain.OverrideResult, error) {
	wasAlreadyOverridden, err := alreadyOverridden(ctx, eng, bidYearID, func(s *domain.State) bool {
		row, ok := s.CanonicalBidWindow[cmd.UserID]
		return ok && row.IsOverridden
	})
	if err != nil {
		return nil, err
	}
	return execute(ctx, eng, bidYearID, cmd, actor, cause, wasAlreadyOverridden)
}

func alreadyOverridden(ctx context.Context, eng *lifecycle.Engine, bidYearID string, check func(*domain.State) bool) (bool, error) {
	state, err := eng.Store.LoadBidYearState(ctx, bidYearID)
	if err != nil {
		return false, err
	}
	return check(state), nil
}

func execute(ctx context.Context, eng *lifecycle.Engine, bidYearID string, cmd domain.Command, actor domain.Actor, cause domain.Cause, wasAlreadyOverridden bool) (*domain.OverrideResult, error) {
	result, err := eng.Execute(ctx, bidYearID, cmd, actor, cause, "")
	if err != nil {
		return nil, err
	}
	return &domain.OverrideResult{TransitionResult: *result, WasAlreadyOverridden: wasAlreadyOverridden}, nil
}
