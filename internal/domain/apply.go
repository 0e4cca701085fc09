package domain

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/fredsystems/zabbid/internal/pkg/apperrors"
)

// Metadata carries the inputs to apply() that are neither state nor command:
// wall-clock time (injected for determinism) and the fixed confirmation
// token TransitionToBiddingActive must match verbatim.
type Metadata struct {
	Now               time.Time
	ConfirmationToken string
}

// TransitionResult is what apply() returns for ordinary commands: the audit
// event describing the transition (EventID left zero; the persistence
// layer assigns the monotonic id) and the refreshed in-memory state.
type TransitionResult struct {
	AuditEvent AuditEvent
	NewState   *State
}

// BootstrapResult is the parallel return shape for CreateBidYear and
// CreateArea: same as TransitionResult, plus the surrogate id the caller
// needs to keep working (spec.md §4.1).
type BootstrapResult struct {
	TransitionResult
	CreatedID string
}

func snapshotJSON(v any) string {
	b, err := json.Marshal(v)
	if err != nil {
		return "{}"
	}
	return string(b)
}

func newEvent(meta Metadata, actor Actor, cause Cause, action string, before, after any, bidYearID, areaID *string) AuditEvent {
	return AuditEvent{
		BidYearID:      bidYearID,
		AreaID:         areaID,
		Actor:          actor,
		Cause:          cause,
		Action:         Action{Name: action},
		BeforeSnapshot: snapshotJSON(before),
		AfterSnapshot:  snapshotJSON(after),
		CreatedAt:      meta.Now,
	}
}

// Apply is the pure state-transition function: validate, snapshot, emit one
// AuditEvent, return the refreshed State. It never touches persistence.
func Apply(meta Metadata, state *State, cmd Command, actor Actor, cause Cause) (*TransitionResult, error) {
	switch c := cmd.(type) {
	case RegisterUser:
		return applyRegisterUser(meta, state, c, actor, cause)
	case UpdateUser:
		return applyUpdateUser(meta, state, c, actor, cause)
	case UpdateUserParticipation:
		return applyUpdateUserParticipation(meta, state, c, actor, cause)
	case CreateArea:
		return nil, apperrors.Internal("CreateArea is a bootstrap command; call ApplyBootstrapCreateArea", nil)
	case UpdateArea:
		return applyUpdateArea(meta, state, c, actor, cause)
	case AssignAreaRoundGroup:
		return applyAssignAreaRoundGroup(meta, state, c, actor, cause)
	case CreateRoundGroup:
		return applyCreateRoundGroup(meta, state, c, actor, cause)
	case UpdateRoundGroup:
		return applyUpdateRoundGroup(meta, state, c, actor, cause)
	case DeleteRoundGroup:
		return applyDeleteRoundGroup(meta, state, c, actor, cause)
	case CreateRound:
		return applyCreateRound(meta, state, c, actor, cause)
	case UpdateRound:
		return applyUpdateRound(meta, state, c, actor, cause)
	case DeleteRound:
		return applyDeleteRound(meta, state, c, actor, cause)
	case SetActiveBidYear:
		return applySetActiveBidYear(meta, state, c, actor, cause)
	case DeactivateBidYear:
		return applyDeactivateBidYear(meta, state, c, actor, cause)
	case SetExpectedAreaCount:
		return applySetExpectedAreaCount(meta, state, c, actor, cause)
	case SetExpectedUserCount:
		return applySetExpectedUserCount(meta, state, c, actor, cause)
	case UpdateBidYearMetadata:
		return applyUpdateBidYearMetadata(meta, state, c, actor, cause)
	case SetBidSchedule:
		return applySetBidSchedule(meta, state, c, actor, cause)
	case TransitionToBootstrapComplete:
		return applyTransitionToBootstrapComplete(meta, state, c, actor, cause)
	case CanonicalizeBidYear:
		return applyCanonicalizeBidYear(meta, state, c, actor, cause)
	case TransitionToBiddingActive:
		return applyTransitionToBiddingActive(meta, state, c.BidYearID, c.ConfirmationToken, actor, cause)
	case ConfirmReadyToBid:
		return applyTransitionToBiddingActive(meta, state, c.BidYearID, c.ConfirmationToken, actor, cause)
	case TransitionToBiddingClosed:
		return applyTransitionToBiddingClosed(meta, state, c, actor, cause)
	case OverrideAreaAssignment:
		return applyOverrideAreaAssignment(meta, state, c, actor, cause)
	case OverrideEligibility:
		return applyOverrideEligibility(meta, state, c, actor, cause)
	case OverrideBidOrder:
		return applyOverrideBidOrder(meta, state, c, actor, cause)
	case OverrideBidWindow:
		return applyOverrideBidWindow(meta, state, c, actor, cause)
	case Checkpoint:
		return applyCheckpoint(meta, state, c, actor, cause)
	case Finalize:
		return applyFinalize(meta, state, c, actor, cause)
	case RollbackToEventId:
		return applyRollback(meta, state, c, actor, cause)
	default:
		return nil, apperrors.Internal(fmt.Sprintf("unknown command type %T", cmd), nil)
	}
}

// requireStructuralUnlocked rejects structural mutation once the bid year is
// at or past Canonicalized (spec.md §4.2 "structural lock").
func requireStructuralUnlocked(state *State, rule string) error {
	if state.BidYear.LifecycleState >= Canonicalized {
		return apperrors.Lifecycle(rule, "the bid year is locked for structural changes once canonicalized")
	}
	return nil
}

func applyRegisterUser(meta Metadata, state *State, c RegisterUser, actor Actor, cause Cause) (*TransitionResult, error) {
	if err := requireStructuralUnlocked(state, "user_registration_lifecycle"); err != nil {
		return nil, err
	}
	initials, err := NewInitials(c.Initials)
	if err != nil {
		return nil, err
	}
	if state.UserByInitials(initials) != nil {
		return nil, apperrors.DomainRule("initials_uniqueness", fmt.Sprintf("initials %q already registered in this bid year", initials))
	}
	utype, err := ParseUserType(c.UserType)
	if err != nil {
		return nil, err
	}
	area, ok := state.Areas[c.AreaID]
	if !ok {
		return nil, apperrors.NotFound("Area", c.AreaID)
	}
	var crew *Crew
	if c.Crew != nil {
		cr, err := ParseCrew(*c.Crew)
		if err != nil {
			return nil, err
		}
		crew = &cr
	}

	before := state.Clone()
	user := &User{
		UserID:    uuid.NewString(),
		BidYearID: state.BidYear.BidYearID,
		AreaID:    area.AreaID,
		Initials:  initials,
		Name:      c.Name,
		UserType:  utype,
		Crew:      crew,
		Seniority: c.Seniority,
	}
	if err := user.ValidateParticipationInvariant(); err != nil {
		return nil, err
	}
	after := state.Clone()
	after.Users[user.UserID] = user

	ev := newEvent(meta, actor, cause, "RegisterUser", before, after, &state.BidYear.BidYearID, &area.AreaID)
	return &TransitionResult{AuditEvent: ev, NewState: after}, nil
}

func applyUpdateUser(meta Metadata, state *State, c UpdateUser, actor Actor, cause Cause) (*TransitionResult, error) {
	existing, ok := state.Users[c.UserID]
	if !ok {
		return nil, apperrors.NotFound("User", c.UserID)
	}
	changesArea := c.AreaID != nil && *c.AreaID != existing.AreaID
	if changesArea {
		if err := requireStructuralUnlocked(state, "user_edit_lifecycle"); err != nil {
			return nil, err
		}
		if _, ok := state.Areas[*c.AreaID]; !ok {
			return nil, apperrors.NotFound("Area", *c.AreaID)
		}
	}

	before := state.Clone()
	after := state.Clone()
	updated := *existing
	if c.AreaID != nil {
		updated.AreaID = *c.AreaID
	}
	if c.Name != nil {
		updated.Name = *c.Name
	}
	if c.UserType != nil {
		ut, err := ParseUserType(*c.UserType)
		if err != nil {
			return nil, err
		}
		updated.UserType = ut
	}
	if c.Crew != nil {
		cr, err := ParseCrew(*c.Crew)
		if err != nil {
			return nil, err
		}
		updated.Crew = &cr
	}
	after.Users[c.UserID] = &updated

	ev := newEvent(meta, actor, cause, "UpdateUser", before, after, &state.BidYear.BidYearID, nil)
	return &TransitionResult{AuditEvent: ev, NewState: after}, nil
}

func applyUpdateUserParticipation(meta Metadata, state *State, c UpdateUserParticipation, actor Actor, cause Cause) (*TransitionResult, error) {
	existing, ok := state.Users[c.UserID]
	if !ok {
		return nil, apperrors.NotFound("User", c.UserID)
	}
	if err := requireStructuralUnlocked(state, "user_participation_lifecycle"); err != nil {
		return nil, err
	}

	before := state.Clone()
	after := state.Clone()
	updated := *existing
	if c.ExcludedFromBidding != nil {
		updated.ExcludedFromBidding = *c.ExcludedFromBidding
	}
	if c.ExcludedFromLeaveCalculation != nil {
		updated.ExcludedFromLeaveCalculation = *c.ExcludedFromLeaveCalculation
	}
	if c.NoBidReviewed != nil {
		updated.NoBidReviewed = *c.NoBidReviewed
	}
	if err := updated.ValidateParticipationInvariant(); err != nil {
		return nil, err
	}
	after.Users[c.UserID] = &updated

	ev := newEvent(meta, actor, cause, "UpdateUserParticipation", before, after, &state.BidYear.BidYearID, nil)
	return &TransitionResult{AuditEvent: ev, NewState: after}, nil
}

func applyCreateArea(meta Metadata, state *State, c CreateArea, actor Actor, cause Cause) (*TransitionResult, error) {
	if err := requireStructuralUnlocked(state, "area_creation_lifecycle"); err != nil {
		return nil, err
	}
	code, err := NewAreaCode(c.AreaCode)
	if err != nil {
		return nil, err
	}
	if code == SystemAreaCode {
		return nil, apperrors.DomainRule("system_area_reserved", "area code \"NO BID\" is reserved for the system area")
	}
	if state.AreaByCode(code) != nil {
		return nil, apperrors.DomainRule("area_code_uniqueness", fmt.Sprintf("area code %q already exists in this bid year", code))
	}

	before := state.Clone()
	area := &Area{
		AreaID:    uuid.NewString(),
		BidYearID: state.BidYear.BidYearID,
		AreaCode:  code,
		AreaName:  c.AreaName,
	}
	after := state.Clone()
	after.Areas[area.AreaID] = area

	ev := newEvent(meta, actor, cause, "CreateArea", before, after, &state.BidYear.BidYearID, &area.AreaID)
	return &TransitionResult{AuditEvent: ev, NewState: after}, nil
}

func applyUpdateArea(meta Metadata, state *State, c UpdateArea, actor Actor, cause Cause) (*TransitionResult, error) {
	existing, ok := state.Areas[c.AreaID]
	if !ok {
		return nil, apperrors.NotFound("Area", c.AreaID)
	}
	if existing.IsSystemArea && c.AreaName != nil {
		return nil, apperrors.DomainRule("system_area_immutable", "the system area cannot be renamed")
	}
	if c.AreaName != nil {
		if err := requireStructuralUnlocked(state, "area_rename_lifecycle"); err != nil {
			return nil, err
		}
	}

	before := state.Clone()
	after := state.Clone()
	updated := *existing
	if c.AreaName != nil {
		updated.AreaName = *c.AreaName
	}
	if c.ExpectedUserCount != nil {
		if existing.IsSystemArea {
			return nil, apperrors.DomainRule("system_area_immutable", "the system area does not carry an expected user count")
		}
		updated.ExpectedUserCount = c.ExpectedUserCount
	}
	after.Areas[c.AreaID] = &updated

	ev := newEvent(meta, actor, cause, "UpdateArea", before, after, &state.BidYear.BidYearID, &c.AreaID)
	return &TransitionResult{AuditEvent: ev, NewState: after}, nil
}

func applyAssignAreaRoundGroup(meta Metadata, state *State, c AssignAreaRoundGroup, actor Actor, cause Cause) (*TransitionResult, error) {
	existing, ok := state.Areas[c.AreaID]
	if !ok {
		return nil, apperrors.NotFound("Area", c.AreaID)
	}
	if existing.IsSystemArea {
		return nil, apperrors.DomainRule("system_area_immutable", "the system area cannot carry a round group")
	}
	if _, ok := state.RoundGroups[c.RoundGroupID]; !ok {
		return nil, apperrors.NotFound("RoundGroup", c.RoundGroupID)
	}

	before := state.Clone()
	after := state.Clone()
	updated := *existing
	updated.RoundGroupID = &c.RoundGroupID
	after.Areas[c.AreaID] = &updated

	ev := newEvent(meta, actor, cause, "AssignAreaRoundGroup", before, after, &state.BidYear.BidYearID, &c.AreaID)
	return &TransitionResult{AuditEvent: ev, NewState: after}, nil
}

func applySetActiveBidYear(meta Metadata, state *State, c SetActiveBidYear, actor Actor, cause Cause) (*TransitionResult, error) {
	before := state.Clone()
	after := state.Clone()
	after.BidYear.IsActive = true

	ev := newEvent(meta, actor, cause, "SetActiveBidYear", before, after, &state.BidYear.BidYearID, nil)
	return &TransitionResult{AuditEvent: ev, NewState: after}, nil
}

func applyDeactivateBidYear(meta Metadata, state *State, c DeactivateBidYear, actor Actor, cause Cause) (*TransitionResult, error) {
	before := state.Clone()
	after := state.Clone()
	after.BidYear.IsActive = false

	ev := newEvent(meta, actor, cause, "DeactivateBidYear", before, after, &state.BidYear.BidYearID, nil)
	return &TransitionResult{AuditEvent: ev, NewState: after}, nil
}

func applySetExpectedAreaCount(meta Metadata, state *State, c SetExpectedAreaCount, actor Actor, cause Cause) (*TransitionResult, error) {
	before := state.Clone()
	after := state.Clone()
	after.BidYear.ExpectedAreaCount = &c.Count

	ev := newEvent(meta, actor, cause, "SetExpectedAreaCount", before, after, &state.BidYear.BidYearID, nil)
	return &TransitionResult{AuditEvent: ev, NewState: after}, nil
}

func applySetExpectedUserCount(meta Metadata, state *State, c SetExpectedUserCount, actor Actor, cause Cause) (*TransitionResult, error) {
	existing, ok := state.Areas[c.AreaID]
	if !ok {
		return nil, apperrors.NotFound("Area", c.AreaID)
	}
	if existing.IsSystemArea {
		return nil, apperrors.DomainRule("system_area_immutable", "the system area does not carry an expected user count")
	}

	before := state.Clone()
	after := state.Clone()
	updated := *existing
	updated.ExpectedUserCount = &c.Count
	after.Areas[c.AreaID] = &updated

	ev := newEvent(meta, actor, cause, "SetExpectedUserCount", before, after, &state.BidYear.BidYearID, &c.AreaID)
	return &TransitionResult{AuditEvent: ev, NewState: after}, nil
}

func applyUpdateBidYearMetadata(meta Metadata, state *State, c UpdateBidYearMetadata, actor Actor, cause Cause) (*TransitionResult, error) {
	before := state.Clone()
	after := state.Clone()
	if c.Label != nil {
		after.BidYear.Label = *c.Label
	}
	if c.Notes != nil {
		after.BidYear.Notes = *c.Notes
	}

	ev := newEvent(meta, actor, cause, "UpdateBidYearMetadata", before, after, &state.BidYear.BidYearID, nil)
	return &TransitionResult{AuditEvent: ev, NewState: after}, nil
}

func applySetBidSchedule(meta Metadata, state *State, c SetBidSchedule, actor Actor, cause Cause) (*TransitionResult, error) {
	before := state.Clone()
	after := state.Clone()
	sched := c.Schedule
	after.BidYear.Schedule = &sched

	ev := newEvent(meta, actor, cause, "SetBidSchedule", before, after, &state.BidYear.BidYearID, nil)
	return &TransitionResult{AuditEvent: ev, NewState: after}, nil
}

func applyCheckpoint(meta Metadata, state *State, c Checkpoint, actor Actor, cause Cause) (*TransitionResult, error) {
	before := state.Clone()
	after := state.Clone()
	ev := newEvent(meta, actor, cause, ActionCheckpoint, before, after, &state.BidYear.BidYearID, nil)
	ev.Action.Details = map[string]any{"note": c.Note}
	return &TransitionResult{AuditEvent: ev, NewState: after}, nil
}

func applyFinalize(meta Metadata, state *State, c Finalize, actor Actor, cause Cause) (*TransitionResult, error) {
	before := state.Clone()
	after := state.Clone()
	ev := newEvent(meta, actor, cause, ActionFinalize, before, after, &state.BidYear.BidYearID, nil)
	return &TransitionResult{AuditEvent: ev, NewState: after}, nil
}

// applyRollback only records a new Rollback audit event; it never mutates
// canonical tables or in-memory State (DESIGN.md Open Question resolution:
// rollback is audit-only). Its after_snapshot is the target event's own
// recorded after_snapshot verbatim, looked up by internal/lifecycle before
// calling Apply since apply() itself has no access to event history.
func applyRollback(meta Metadata, state *State, c RollbackToEventId, actor Actor, cause Cause) (*TransitionResult, error) {
	before := state.Clone()
	after := state.Clone()

	ev := AuditEvent{
		BidYearID:      &state.BidYear.BidYearID,
		Actor:          actor,
		Cause:          cause,
		Action:         Action{Name: ActionRollback, Details: map[string]any{"target_event_id": c.TargetEventID}},
		BeforeSnapshot: snapshotJSON(before),
		AfterSnapshot:  c.TargetSnapshot,
		CreatedAt:      meta.Now,
	}
	return &TransitionResult{AuditEvent: ev, NewState: after}, nil
}
