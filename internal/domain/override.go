package domain

import "github.com/fredsystems/zabbid/internal/pkg/apperrors"

// MinReasonLength is the resolved threshold for override reasons (DESIGN.md
// Open Question resolution: 10 characters).
const MinReasonLength = 10

func validateOverrideReason(reason string) error {
	if len(reason) < MinReasonLength {
		return apperrors.Validation("OVERRIDE_REASON_TOO_SHORT",
			"override reason must be at least 10 characters", "reason")
	}
	return nil
}

func requireCanonicalized(state *State) error {
	if !state.CanonicalPopulated() {
		return apperrors.Lifecycle("override_requires_canonicalized", "overrides require a canonicalized bid year")
	}
	return nil
}

// OverrideResult additionally reports whether the row was already
// overridden, for UI messaging (spec.md §4.6).
type OverrideResult struct {
	TransitionResult
	WasAlreadyOverridden bool
}

func applyOverrideAreaAssignment(meta Metadata, state *State, c OverrideAreaAssignment, actor Actor, cause Cause) (*TransitionResult, error) {
	if err := requireCanonicalized(state); err != nil {
		return nil, err
	}
	if err := validateOverrideReason(c.Reason); err != nil {
		return nil, err
	}
	row, ok := state.CanonicalMembership[c.UserID]
	if !ok {
		return nil, apperrors.NotFound("CanonicalAreaMembership", c.UserID)
	}
	if _, ok := state.Areas[c.AreaID]; !ok {
		return nil, apperrors.NotFound("Area", c.AreaID)
	}

	after := state.Clone()
	updated := *row
	updated.AreaID = c.AreaID
	updated.IsOverridden = true
	updated.OverrideReason = c.Reason
	after.CanonicalMembership[c.UserID] = &updated

	ev := newEvent(meta, actor, cause, "OverrideAreaAssignment", row, &updated, &state.BidYear.BidYearID, &c.AreaID)
	return &TransitionResult{AuditEvent: ev, NewState: after}, nil
}

func applyOverrideEligibility(meta Metadata, state *State, c OverrideEligibility, actor Actor, cause Cause) (*TransitionResult, error) {
	if err := requireCanonicalized(state); err != nil {
		return nil, err
	}
	if err := validateOverrideReason(c.Reason); err != nil {
		return nil, err
	}
	row, ok := state.CanonicalEligibility[c.UserID]
	if !ok {
		return nil, apperrors.NotFound("CanonicalEligibility", c.UserID)
	}

	after := state.Clone()
	updated := *row
	updated.CanBid = c.CanBid
	updated.IsOverridden = true
	updated.OverrideReason = c.Reason
	after.CanonicalEligibility[c.UserID] = &updated

	ev := newEvent(meta, actor, cause, "OverrideEligibility", row, &updated, &state.BidYear.BidYearID, nil)
	return &TransitionResult{AuditEvent: ev, NewState: after}, nil
}

func applyOverrideBidOrder(meta Metadata, state *State, c OverrideBidOrder, actor Actor, cause Cause) (*TransitionResult, error) {
	if err := requireCanonicalized(state); err != nil {
		return nil, err
	}
	if err := validateOverrideReason(c.Reason); err != nil {
		return nil, err
	}
	row, ok := state.CanonicalBidOrder[c.UserID]
	if !ok {
		return nil, apperrors.NotFound("CanonicalBidOrder", c.UserID)
	}

	after := state.Clone()
	updated := *row
	order := c.BidOrder
	updated.BidOrder = &order
	updated.IsOverridden = true
	updated.OverrideReason = c.Reason
	after.CanonicalBidOrder[c.UserID] = &updated

	ev := newEvent(meta, actor, cause, "OverrideBidOrder", row, &updated, &state.BidYear.BidYearID, nil)
	return &TransitionResult{AuditEvent: ev, NewState: after}, nil
}

func applyOverrideBidWindow(meta Metadata, state *State, c OverrideBidWindow, actor Actor, cause Cause) (*TransitionResult, error) {
	if err := requireCanonicalized(state); err != nil {
		return nil, err
	}
	if err := validateOverrideReason(c.Reason); err != nil {
		return nil, err
	}
	row, ok := state.CanonicalBidWindow[c.UserID]
	if !ok {
		return nil, apperrors.NotFound("CanonicalBidWindow", c.UserID)
	}

	after := state.Clone()
	updated := *row
	start := c.WindowStart.Format("2006-01-02T15:04:05Z07:00")
	end := c.WindowEnd.Format("2006-01-02T15:04:05Z07:00")
	updated.WindowStart = &start
	updated.WindowEnd = &end
	updated.IsOverridden = true
	updated.OverrideReason = c.Reason
	after.CanonicalBidWindow[c.UserID] = &updated

	ev := newEvent(meta, actor, cause, "OverrideBidWindow", row, &updated, &state.BidYear.BidYearID, nil)
	return &TransitionResult{AuditEvent: ev, NewState: after}, nil
}
