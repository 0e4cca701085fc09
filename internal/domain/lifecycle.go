package domain

import "github.com/fredsystems/zabbid/internal/pkg/apperrors"

// applyTransitionToBootstrapComplete implements the Draft→BootstrapComplete
// precondition in spec.md §4.2's table.
func applyTransitionToBootstrapComplete(meta Metadata, state *State, c TransitionToBootstrapComplete, actor Actor, cause Cause) (*TransitionResult, error) {
	if state.BidYear.LifecycleState != Draft {
		return nil, apperrors.Lifecycle("bootstrap_complete_lifecycle",
			"only a bid year in Draft can transition to BootstrapComplete")
	}
	if !state.BidYear.IsActive {
		return nil, apperrors.DomainRule("bootstrap_requires_active_bid_year", "the bid year must be active")
	}
	if state.BidYear.ExpectedAreaCount == nil || *state.BidYear.ExpectedAreaCount != len(state.Areas) {
		return nil, apperrors.DomainRule("expected_area_count_unmet", "expected area count is not set or not met")
	}
	for _, a := range state.Areas {
		if a.IsSystemArea {
			continue
		}
		if a.ExpectedUserCount == nil || *a.ExpectedUserCount != len(state.UsersInArea(a.AreaID)) {
			return nil, apperrors.DomainRule("expected_user_count_unmet", "area "+string(a.AreaCode)+" expected user count is not set or not met")
		}
	}
	if sys := state.SystemArea(); sys != nil {
		for _, u := range state.UsersInArea(sys.AreaID) {
			if !u.NoBidReviewed {
				return nil, apperrors.DomainRule("unreviewed_no_bid_users", "the system area has unreviewed users")
			}
		}
	}

	before := state.Clone()
	after := state.Clone()
	after.BidYear.LifecycleState = BootstrapComplete

	ev := newEvent(meta, actor, cause, "TransitionToBootstrapComplete", before, after, &state.BidYear.BidYearID, nil)
	return &TransitionResult{AuditEvent: ev, NewState: after}, nil
}

// applyTransitionToBiddingActive implements the
// Canonicalized→BiddingActive precondition: confirmation token match plus
// readiness still green. The "no other bid year currently BiddingActive"
// rule needs cross-bid-year knowledge this single-bid-year State does not
// carry; internal/lifecycle enforces it before calling apply().
func applyTransitionToBiddingActive(meta Metadata, state *State, bidYearID, token string, actor Actor, cause Cause) (*TransitionResult, error) {
	if state.BidYear.LifecycleState != Canonicalized {
		return nil, apperrors.Lifecycle("bidding_active_lifecycle",
			"only a Canonicalized bid year can transition to BiddingActive")
	}
	if token != meta.ConfirmationToken {
		return nil, apperrors.Validation("CONFIRMATION_TOKEN_MISMATCH", "confirmation text does not match", "confirmation_token")
	}
	if reasons := EvaluateReadiness(state); len(reasons) > 0 {
		return nil, apperrors.DomainRule("not_ready_to_bid", "readiness check reported blocking reasons")
	}

	before := state.Clone()
	after := state.Clone()
	after.BidYear.LifecycleState = BiddingActive

	ev := newEvent(meta, actor, cause, "TransitionToBiddingActive", before, after, &state.BidYear.BidYearID, nil)
	return &TransitionResult{AuditEvent: ev, NewState: after}, nil
}

// applyTransitionToBiddingClosed implements BiddingActive→BiddingClosed: an
// admin action with no further preconditions.
func applyTransitionToBiddingClosed(meta Metadata, state *State, c TransitionToBiddingClosed, actor Actor, cause Cause) (*TransitionResult, error) {
	if state.BidYear.LifecycleState != BiddingActive {
		return nil, apperrors.Lifecycle("bidding_closed_lifecycle",
			"only a BiddingActive bid year can transition to BiddingClosed")
	}

	before := state.Clone()
	after := state.Clone()
	after.BidYear.LifecycleState = BiddingClosed

	ev := newEvent(meta, actor, cause, "TransitionToBiddingClosed", before, after, &state.BidYear.BidYearID, nil)
	return &TransitionResult{AuditEvent: ev, NewState: after}, nil
}
