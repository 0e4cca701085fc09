package domain

import (
	"github.com/google/uuid"

	"github.com/fredsystems/zabbid/internal/pkg/apperrors"
)

// Round management (spec.md §4.1 "Round management"). Round groups and
// rounds are structural in the sense that they configure the bidding phase,
// but they are not locked by requireStructuralUnlocked: a round group with
// zero rounds is exactly what the readiness evaluator's "areas have rounds"
// check exists to catch, and areas may legitimately gain rounds right up to
// ConfirmReadyToBid.

func applyCreateRoundGroup(meta Metadata, state *State, c CreateRoundGroup, actor Actor, cause Cause) (*TransitionResult, error) {
	if c.Name == "" {
		return nil, apperrors.Validation("INVALID_ROUND_GROUP_NAME", "round group name must not be empty", "name")
	}

	before := state.Clone()
	rg := &RoundGroup{
		RoundGroupID: uuid.NewString(),
		BidYearID:    state.BidYear.BidYearID,
		Name:         c.Name,
	}
	after := state.Clone()
	after.RoundGroups[rg.RoundGroupID] = rg

	ev := newEvent(meta, actor, cause, "CreateRoundGroup", before, after, &state.BidYear.BidYearID, nil)
	return &TransitionResult{AuditEvent: ev, NewState: after}, nil
}

func applyUpdateRoundGroup(meta Metadata, state *State, c UpdateRoundGroup, actor Actor, cause Cause) (*TransitionResult, error) {
	existing, ok := state.RoundGroups[c.RoundGroupID]
	if !ok {
		return nil, apperrors.NotFound("RoundGroup", c.RoundGroupID)
	}
	if c.Name == "" {
		return nil, apperrors.Validation("INVALID_ROUND_GROUP_NAME", "round group name must not be empty", "name")
	}

	before := state.Clone()
	after := state.Clone()
	updated := *existing
	updated.Name = c.Name
	after.RoundGroups[c.RoundGroupID] = &updated

	ev := newEvent(meta, actor, cause, "UpdateRoundGroup", before, after, &state.BidYear.BidYearID, nil)
	return &TransitionResult{AuditEvent: ev, NewState: after}, nil
}

func applyDeleteRoundGroup(meta Metadata, state *State, c DeleteRoundGroup, actor Actor, cause Cause) (*TransitionResult, error) {
	if _, ok := state.RoundGroups[c.RoundGroupID]; !ok {
		return nil, apperrors.NotFound("RoundGroup", c.RoundGroupID)
	}
	for _, a := range state.Areas {
		if a.RoundGroupID != nil && *a.RoundGroupID == c.RoundGroupID {
			return nil, apperrors.DomainRule("round_group_in_use",
				"the round group is assigned to at least one area and cannot be deleted")
		}
	}

	before := state.Clone()
	after := state.Clone()
	delete(after.RoundGroups, c.RoundGroupID)
	for id, r := range after.Rounds {
		if r.RoundGroupID == c.RoundGroupID {
			delete(after.Rounds, id)
		}
	}

	ev := newEvent(meta, actor, cause, "DeleteRoundGroup", before, after, &state.BidYear.BidYearID, nil)
	return &TransitionResult{AuditEvent: ev, NewState: after}, nil
}

func validateRoundLimits(slotLimit, groupLimit, hourLimit *int) error {
	for _, limit := range []*int{slotLimit, groupLimit, hourLimit} {
		if limit != nil && *limit < 0 {
			return apperrors.Validation("INVALID_ROUND_LIMIT", "round limits must not be negative", "limit")
		}
	}
	return nil
}

func applyCreateRound(meta Metadata, state *State, c CreateRound, actor Actor, cause Cause) (*TransitionResult, error) {
	if _, ok := state.RoundGroups[c.RoundGroupID]; !ok {
		return nil, apperrors.NotFound("RoundGroup", c.RoundGroupID)
	}
	if c.RoundNumber < 1 {
		return nil, apperrors.Validation("INVALID_ROUND_NUMBER", "round_number must be positive", "round_number")
	}
	if err := validateRoundLimits(c.SlotLimit, c.GroupLimit, c.HourLimit); err != nil {
		return nil, err
	}
	for _, r := range state.RoundsInGroup(c.RoundGroupID) {
		if r.RoundNumber == c.RoundNumber {
			return nil, apperrors.DomainRule("round_number_uniqueness",
				"a round with this round_number already exists in the round group")
		}
	}

	before := state.Clone()
	round := &Round{
		RoundID:      uuid.NewString(),
		RoundGroupID: c.RoundGroupID,
		RoundNumber:  c.RoundNumber,
		SlotLimit:    c.SlotLimit,
		GroupLimit:   c.GroupLimit,
		HourLimit:    c.HourLimit,
		IsHoliday:    c.IsHoliday,
		AllowOverbid: c.AllowOverbid,
	}
	after := state.Clone()
	after.Rounds[round.RoundID] = round

	ev := newEvent(meta, actor, cause, "CreateRound", before, after, &state.BidYear.BidYearID, nil)
	return &TransitionResult{AuditEvent: ev, NewState: after}, nil
}

func applyUpdateRound(meta Metadata, state *State, c UpdateRound, actor Actor, cause Cause) (*TransitionResult, error) {
	existing, ok := state.Rounds[c.RoundID]
	if !ok {
		return nil, apperrors.NotFound("Round", c.RoundID)
	}
	if err := validateRoundLimits(c.SlotLimit, c.GroupLimit, c.HourLimit); err != nil {
		return nil, err
	}

	before := state.Clone()
	after := state.Clone()
	updated := *existing
	if c.SlotLimit != nil {
		updated.SlotLimit = c.SlotLimit
	}
	if c.GroupLimit != nil {
		updated.GroupLimit = c.GroupLimit
	}
	if c.HourLimit != nil {
		updated.HourLimit = c.HourLimit
	}
	if c.IsHoliday != nil {
		updated.IsHoliday = *c.IsHoliday
	}
	if c.AllowOverbid != nil {
		updated.AllowOverbid = *c.AllowOverbid
	}
	after.Rounds[c.RoundID] = &updated

	ev := newEvent(meta, actor, cause, "UpdateRound", before, after, &state.BidYear.BidYearID, nil)
	return &TransitionResult{AuditEvent: ev, NewState: after}, nil
}

func applyDeleteRound(meta Metadata, state *State, c DeleteRound, actor Actor, cause Cause) (*TransitionResult, error) {
	if _, ok := state.Rounds[c.RoundID]; !ok {
		return nil, apperrors.NotFound("Round", c.RoundID)
	}

	before := state.Clone()
	after := state.Clone()
	delete(after.Rounds, c.RoundID)

	ev := newEvent(meta, actor, cause, "DeleteRound", before, after, &state.BidYear.BidYearID, nil)
	return &TransitionResult{AuditEvent: ev, NewState: after}, nil
}
