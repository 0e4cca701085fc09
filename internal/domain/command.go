package domain

import "time"

// Command is the closed set of state-changing operations apply() accepts.
// Name returns the discriminator used as AuditEvent.Action.Name.
type Command interface {
	Name() string
}

// --- User lifecycle ---

type RegisterUser struct {
	AreaID    string
	Initials  string
	Name      string
	UserType  string
	Crew      *int
	Seniority Seniority
}

func (RegisterUser) Name() string { return "RegisterUser" }

type UpdateUser struct {
	UserID   string
	AreaID   *string
	Name     *string
	UserType *string
	Crew     *int
}

func (UpdateUser) Name() string { return "UpdateUser" }

type UpdateUserParticipation struct {
	UserID                       string
	ExcludedFromBidding          *bool
	ExcludedFromLeaveCalculation *bool
	NoBidReviewed                *bool
}

func (UpdateUserParticipation) Name() string { return "UpdateUserParticipation" }

// --- Structural ---

type CreateBidYear struct {
	Year          int
	StartDate     time.Time
	NumPayPeriods int
	Label         string
	Notes         string
}

func (CreateBidYear) Name() string { return "CreateBidYear" }

type CreateArea struct {
	BidYearID string
	AreaCode  string
	AreaName  string
}

func (CreateArea) Name() string { return "CreateArea" }

type UpdateArea struct {
	AreaID            string
	AreaName          *string
	ExpectedUserCount *int
}

func (UpdateArea) Name() string { return "UpdateArea" }

type AssignAreaRoundGroup struct {
	AreaID       string
	RoundGroupID string
}

func (AssignAreaRoundGroup) Name() string { return "AssignAreaRoundGroup" }

// --- Bootstrap progression ---

type SetActiveBidYear struct {
	BidYearID string
}

func (SetActiveBidYear) Name() string { return "SetActiveBidYear" }

// DeactivateBidYear clears is_active on a bid year other than the one a
// SetActiveBidYear command just activated. internal/lifecycle issues this
// itself to keep universal invariant 1 ("exactly one bid year may have
// is_active = true") holding; it is never exposed as an operator-facing
// command.
type DeactivateBidYear struct {
	BidYearID string
}

func (DeactivateBidYear) Name() string { return "DeactivateBidYear" }

type SetExpectedAreaCount struct {
	BidYearID string
	Count     int
}

func (SetExpectedAreaCount) Name() string { return "SetExpectedAreaCount" }

type SetExpectedUserCount struct {
	AreaID string
	Count  int
}

func (SetExpectedUserCount) Name() string { return "SetExpectedUserCount" }

type UpdateBidYearMetadata struct {
	BidYearID string
	Label     *string
	Notes     *string
}

func (UpdateBidYearMetadata) Name() string { return "UpdateBidYearMetadata" }

type SetBidSchedule struct {
	BidYearID string
	Schedule  BidSchedule
}

func (SetBidSchedule) Name() string { return "SetBidSchedule" }

// --- Round management ---

type CreateRoundGroup struct {
	BidYearID string
	Name      string
}

func (CreateRoundGroup) Name() string { return "CreateRoundGroup" }

type UpdateRoundGroup struct {
	RoundGroupID string
	Name         string
}

func (UpdateRoundGroup) Name() string { return "UpdateRoundGroup" }

type DeleteRoundGroup struct {
	RoundGroupID string
}

func (DeleteRoundGroup) Name() string { return "DeleteRoundGroup" }

type CreateRound struct {
	RoundGroupID string
	RoundNumber  int
	SlotLimit    *int
	GroupLimit   *int
	HourLimit    *int
	IsHoliday    bool
	AllowOverbid bool
}

func (CreateRound) Name() string { return "CreateRound" }

type UpdateRound struct {
	RoundID      string
	SlotLimit    *int
	GroupLimit   *int
	HourLimit    *int
	IsHoliday    *bool
	AllowOverbid *bool
}

func (UpdateRound) Name() string { return "UpdateRound" }

type DeleteRound struct {
	RoundID string
}

func (DeleteRound) Name() string { return "DeleteRound" }

// --- Lifecycle ---

type TransitionToBootstrapComplete struct {
	BidYearID string
}

func (TransitionToBootstrapComplete) Name() string { return "TransitionToBootstrapComplete" }

type CanonicalizeBidYear struct {
	BidYearID string
}

func (CanonicalizeBidYear) Name() string { return "CanonicalizeBidYear" }

type TransitionToBiddingActive struct {
	BidYearID         string
	ConfirmationToken string
}

func (TransitionToBiddingActive) Name() string { return "TransitionToBiddingActive" }

// ConfirmReadyToBid is an alias for TransitionToBiddingActive (spec.md §4.1).
type ConfirmReadyToBid struct {
	BidYearID         string
	ConfirmationToken string
}

func (ConfirmReadyToBid) Name() string { return "TransitionToBiddingActive" }

type TransitionToBiddingClosed struct {
	BidYearID string
}

func (TransitionToBiddingClosed) Name() string { return "TransitionToBiddingClosed" }

// --- Override (post-Canonicalized) ---

type OverrideAreaAssignment struct {
	UserID   string
	AreaID   string
	Reason   string
}

func (OverrideAreaAssignment) Name() string { return "OverrideAreaAssignment" }

type OverrideEligibility struct {
	UserID  string
	CanBid  bool
	Reason  string
}

func (OverrideEligibility) Name() string { return "OverrideEligibility" }

type OverrideBidOrder struct {
	UserID   string
	BidOrder int
	Reason   string
}

func (OverrideBidOrder) Name() string { return "OverrideBidOrder" }

type OverrideBidWindow struct {
	UserID      string
	WindowStart time.Time
	WindowEnd   time.Time
	Reason      string
}

func (OverrideBidWindow) Name() string { return "OverrideBidWindow" }

// --- Auxiliary ---

type Checkpoint struct {
	BidYearID string
	Note      string
}

func (Checkpoint) Name() string { return ActionCheckpoint }

type Finalize struct {
	BidYearID string
}

func (Finalize) Name() string { return ActionFinalize }

type RollbackToEventId struct {
	BidYearID     string
	TargetEventID int64
	// TargetSnapshot is the target event's recorded after_snapshot, looked up
	// by internal/lifecycle before calling Apply since apply() itself has no
	// access to event history.
	TargetSnapshot string
}

func (RollbackToEventId) Name() string { return ActionRollback }
