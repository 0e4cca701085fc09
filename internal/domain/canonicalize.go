package domain

import (
	"sort"

	"github.com/fredsystems/zabbid/internal/pkg/apperrors"
)

// The four canonical tables populated at canonicalization (spec.md §3).
// Each row links back to the audit event that last wrote it.

type CanonicalAreaMembership struct {
	BidYearID     string
	UserID        string
	AreaID        string
	IsOverridden  bool
	OverrideReason string
	AuditEventID  int64
}

type CanonicalEligibility struct {
	BidYearID      string
	UserID         string
	CanBid         bool
	IsOverridden   bool
	OverrideReason string
	AuditEventID   int64
}

type CanonicalBidOrder struct {
	BidYearID      string
	UserID         string
	BidOrder       *int
	IsOverridden   bool
	OverrideReason string
	AuditEventID   int64
}

type CanonicalBidWindow struct {
	BidYearID      string
	UserID         string
	WindowStart    *string
	WindowEnd      *string
	IsOverridden   bool
	OverrideReason string
	AuditEventID   int64
}

// canonicalizationSnapshot is the document attached to the canonicalization
// event's after_snapshot (spec.md §4.3 step 4): counts plus per-user and
// per-area arrays.
type canonicalizationSnapshot struct {
	BidYearID  string   `json:"bid_year_id"`
	UserCount  int      `json:"user_count"`
	AreaCount  int      `json:"area_count"`
	UserIDs    []string `json:"user_ids"`
	AreaIDs    []string `json:"area_ids"`
}

// applyCanonicalizeBidYear implements spec.md §4.3. Idempotent: if canonical
// rows already exist, it returns a TransitionResult carrying the
// already-recorded CanonicalizationEventID rather than minting a new one —
// the persistence layer is expected to recognize EventID==0 with a nonzero
// CanonicalizationEventID on state and skip writing a fresh audit row.
func applyCanonicalizeBidYear(meta Metadata, state *State, c CanonicalizeBidYear, actor Actor, cause Cause) (*TransitionResult, error) {
	if !state.CanonicalPopulated() && state.BidYear.LifecycleState != BootstrapComplete {
		return nil, apperrors.Lifecycle("canonicalize_lifecycle",
			"only a BootstrapComplete bid year can be canonicalized")
	}
	if !state.CanonicalPopulated() {
		if reasons := EvaluateReadiness(state); len(reasons) > 0 {
			return nil, apperrors.DomainRule("not_ready_to_canonicalize", "readiness check reported blocking reasons")
		}
	}
	if state.CanonicalPopulated() {
		after := state.Clone()
		return &TransitionResult{
			AuditEvent: AuditEvent{
				EventID:   state.CanonicalizationEventID,
				BidYearID: &state.BidYear.BidYearID,
				Actor:     actor,
				Cause:     cause,
				Action:    Action{Name: "CanonicalizeBidYear"},
				CreatedAt: meta.Now,
			},
			NewState: after,
		}, nil
	}

	before := state.Clone()
	after := state.Clone()

	userIDs := make([]string, 0, len(after.Users))
	for id := range after.Users {
		userIDs = append(userIDs, id)
	}
	sort.Slice(userIDs, func(i, j int) bool {
		return after.Users[userIDs[i]].Initials < after.Users[userIDs[j]].Initials
	})
	areaIDs := make([]string, 0, len(after.Areas))
	for id := range after.Areas {
		areaIDs = append(areaIDs, id)
	}
	sort.Slice(areaIDs, func(i, j int) bool {
		return after.Areas[areaIDs[i]].AreaCode < after.Areas[areaIDs[j]].AreaCode
	})

	after.CanonicalMembership = make(map[string]*CanonicalAreaMembership, len(userIDs))
	after.CanonicalEligibility = make(map[string]*CanonicalEligibility, len(userIDs))
	after.CanonicalBidOrder = make(map[string]*CanonicalBidOrder, len(userIDs))
	after.CanonicalBidWindow = make(map[string]*CanonicalBidWindow, len(userIDs))

	for _, id := range userIDs {
		u := after.Users[id]
		after.CanonicalMembership[id] = &CanonicalAreaMembership{
			BidYearID: state.BidYear.BidYearID,
			UserID:    id,
			AreaID:    u.AreaID,
		}
		after.CanonicalEligibility[id] = &CanonicalEligibility{
			BidYearID: state.BidYear.BidYearID,
			UserID:    id,
			CanBid:    !u.ExcludedFromBidding,
		}
		after.CanonicalBidOrder[id] = &CanonicalBidOrder{BidYearID: state.BidYear.BidYearID, UserID: id}
		after.CanonicalBidWindow[id] = &CanonicalBidWindow{BidYearID: state.BidYear.BidYearID, UserID: id}
	}

	after.BidYear.LifecycleState = Canonicalized

	snap := canonicalizationSnapshot{
		BidYearID: state.BidYear.BidYearID,
		UserCount: len(userIDs),
		AreaCount: len(areaIDs),
		UserIDs:   userIDs,
		AreaIDs:   areaIDs,
	}

	ev := newEvent(meta, actor, cause, "CanonicalizeBidYear", before, snap, &state.BidYear.BidYearID, nil)
	return &TransitionResult{AuditEvent: ev, NewState: after}, nil
}
