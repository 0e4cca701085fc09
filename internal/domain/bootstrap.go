package domain

import (
	"github.com/google/uuid"

	"github.com/fredsystems/zabbid/internal/pkg/apperrors"
)

// ApplyBootstrapCreateBidYear is the sibling of Apply for CreateBidYear
// (spec.md §2 component 5, §4.1). It has no prior State to read since the
// bid year does not exist yet; it creates both the bid year and its
// auto-created system area ("NO BID") in a single bootstrap step and
// returns the fresh State alongside the new bid year's id.
func ApplyBootstrapCreateBidYear(meta Metadata, c CreateBidYear, actor Actor, cause Cause) (*BootstrapResult, error) {
	if err := ValidatePayPeriods(c.NumPayPeriods); err != nil {
		return nil, err
	}
	if c.Year <= 0 {
		return nil, apperrors.Validation("INVALID_YEAR", "year must be positive", "year")
	}

	by := &BidYear{
		BidYearID:     uuid.NewString(),
		Year:          c.Year,
		StartDate:     c.StartDate,
		NumPayPeriods: c.NumPayPeriods,
		Label:         c.Label,
		Notes:         c.Notes,
		LifecycleState: Draft,
	}
	state := NewState(by)
	sysArea := &Area{
		AreaID:       uuid.NewString(),
		BidYearID:    by.BidYearID,
		AreaCode:     SystemAreaCode,
		IsSystemArea: true,
	}
	state.Areas[sysArea.AreaID] = sysArea

	ev := newEvent(meta, actor, cause, "CreateBidYear", nil, state, &by.BidYearID, nil)
	return &BootstrapResult{
		TransitionResult: TransitionResult{AuditEvent: ev, NewState: state},
		CreatedID:        by.BidYearID,
	}, nil
}

// ApplyBootstrapCreateArea is the sibling of Apply for CreateArea, run
// against an already-loaded bid-year State.
func ApplyBootstrapCreateArea(meta Metadata, state *State, c CreateArea, actor Actor, cause Cause) (*BootstrapResult, error) {
	result, err := applyCreateArea(meta, state, c, actor, cause)
	if err != nil {
		return nil, err
	}
	var createdID string
	for id, a := range result.NewState.Areas {
		if _, existed := state.Areas[id]; !existed {
			createdID = a.AreaID
			break
		}
	}
	return &BootstrapResult{TransitionResult: *result, CreatedID: createdID}, nil
}
