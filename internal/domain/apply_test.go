package domain

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fredsystems/zabbid/internal/pkg/apperrors"
)

func testMeta() Metadata {
	return Metadata{Now: time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC), ConfirmationToken: "I CONFIRM THIS BID YEAR IS READY"}
}

func bootstrapActor() Actor { return BootstrapActor }

func newTestBidYear(t *testing.T) *State {
	t.Helper()
	result, err := ApplyBootstrapCreateBidYear(testMeta(), CreateBidYear{
		Year:          2026,
		StartDate:     time.Date(2026, 1, 4, 0, 0, 0, 0, time.UTC),
		NumPayPeriods: 26,
	}, bootstrapActor(), Cause{Description: "test setup"})
	require.NoError(t, err)
	return result.NewState
}

func TestApplyBootstrapCreateBidYear(t *testing.T) {
	result, err := ApplyBootstrapCreateBidYear(testMeta(), CreateBidYear{
		Year: 2026, StartDate: time.Date(2026, 1, 4, 0, 0, 0, 0, time.UTC), NumPayPeriods: 26,
	}, bootstrapActor(), Cause{})
	require.NoError(t, err)
	assert.NotEmpty(t, result.CreatedID)
	assert.Len(t, result.NewState.Areas, 1)

	sys := result.NewState.SystemArea()
	require.NotNil(t, sys)
	assert.Equal(t, AreaCode(SystemAreaCode), sys.AreaCode)
	assert.True(t, sys.IsSystemArea)
}

func TestApplyBootstrapCreateBidYear_RejectsBadPayPeriods(t *testing.T) {
	_, err := ApplyBootstrapCreateBidYear(testMeta(), CreateBidYear{Year: 2026, NumPayPeriods: 25}, bootstrapActor(), Cause{})
	assert.Error(t, err)
}

func TestApplyBootstrapCreateArea(t *testing.T) {
	state := newTestBidYear(t)
	result, err := ApplyBootstrapCreateArea(testMeta(), state, CreateArea{BidYearID: state.BidYear.BidYearID, AreaCode: "zab"}, Actor{ID: "op1"}, Cause{})
	require.NoError(t, err)
	assert.NotEmpty(t, result.CreatedID)
	assert.Len(t, result.NewState.Areas, 2)
}

func TestApplyBootstrapCreateArea_RejectsReservedCode(t *testing.T) {
	state := newTestBidYear(t)
	_, err := ApplyBootstrapCreateArea(testMeta(), state, CreateArea{AreaCode: "no bid"}, Actor{ID: "op1"}, Cause{})
	require.Error(t, err)
	appErr, ok := apperrors.As(err)
	require.True(t, ok)
	assert.Equal(t, apperrors.KindDomainRule, appErr.Kind)
}

func TestApplyBootstrapCreateArea_RejectsDuplicateCode(t *testing.T) {
	state := newTestBidYear(t)
	result, err := ApplyBootstrapCreateArea(testMeta(), state, CreateArea{AreaCode: "ZAB"}, Actor{ID: "op1"}, Cause{})
	require.NoError(t, err)

	_, err = ApplyBootstrapCreateArea(testMeta(), result.NewState, CreateArea{AreaCode: "zab"}, Actor{ID: "op1"}, Cause{})
	require.Error(t, err)
	assert.True(t, apperrors.IsKind(err, apperrors.KindDomainRule))
}

func areaID(t *testing.T, state *State, code AreaCode) string {
	t.Helper()
	a := state.AreaByCode(code)
	require.NotNil(t, a)
	return a.AreaID
}

func registerTestUser(t *testing.T, state *State, areaCode AreaCode, initials, eodDate string) *TransitionResult {
	t.Helper()
	d, err := time.Parse("2006-01-02", eodDate)
	require.NoError(t, err)
	result, err := Apply(testMeta(), state, RegisterUser{
		AreaID:   areaID(t, state, areaCode),
		Initials: initials,
		Name:     "Test User",
		UserType: "CPC",
		Seniority: Seniority{
			EODFAADate:             d,
			ServiceComputationDate: d,
			NATCABUDate:            d,
			CumulativeNATCABUDate:  d,
		},
	}, Actor{ID: "op1"}, Cause{})
	require.NoError(t, err)
	return result
}

func TestApply_RegisterUser(t *testing.T) {
	state := newTestBidYear(t)
	result, err := ApplyBootstrapCreateArea(testMeta(), state, CreateArea{AreaCode: "ZAB"}, Actor{ID: "op1"}, Cause{})
	require.NoError(t, err)
	state = result.NewState

	tr := registerTestUser(t, state, "ZAB", "AB", "2020-01-01")
	assert.Len(t, tr.NewState.Users, 1)
	assert.Equal(t, "RegisterUser", tr.AuditEvent.Action.Name)
}

func TestApply_RegisterUser_RejectsDuplicateInitials(t *testing.T) {
	state := newTestBidYear(t)
	areaResult, err := ApplyBootstrapCreateArea(testMeta(), state, CreateArea{AreaCode: "ZAB"}, Actor{ID: "op1"}, Cause{})
	require.NoError(t, err)
	state = areaResult.NewState

	tr := registerTestUser(t, state, "ZAB", "AB", "2020-01-01")
	_, err = Apply(testMeta(), tr.NewState, RegisterUser{
		AreaID:   areaID(t, tr.NewState, "ZAB"),
		Initials: "ab",
		Name:     "Dup",
		UserType: "CPC",
	}, Actor{ID: "op1"}, Cause{})
	require.Error(t, err)
	assert.True(t, apperrors.IsKind(err, apperrors.KindDomainRule))
}

func TestApply_RegisterUser_RejectedAfterCanonicalized(t *testing.T) {
	state := newTestBidYear(t)
	areaResult, err := ApplyBootstrapCreateArea(testMeta(), state, CreateArea{AreaCode: "ZAB"}, Actor{ID: "op1"}, Cause{})
	require.NoError(t, err)
	state = areaResult.NewState
	state.BidYear.LifecycleState = Canonicalized

	_, err = Apply(testMeta(), state, RegisterUser{
		AreaID:   areaID(t, state, "ZAB"),
		Initials: "CD",
		Name:     "Late",
		UserType: "CPC",
	}, Actor{ID: "op1"}, Cause{})
	require.Error(t, err)
	assert.True(t, apperrors.IsKind(err, apperrors.KindLifecycle))
}

func TestApply_UpdateUserParticipation_EnforcesInvariant(t *testing.T) {
	state := newTestBidYear(t)
	areaResult, err := ApplyBootstrapCreateArea(testMeta(), state, CreateArea{AreaCode: "ZAB"}, Actor{ID: "op1"}, Cause{})
	require.NoError(t, err)
	tr := registerTestUser(t, areaResult.NewState, "ZAB", "AB", "2020-01-01")

	var userID string
	for id := range tr.NewState.Users {
		userID = id
	}
	trueVal := true
	_, err = Apply(testMeta(), tr.NewState, UpdateUserParticipation{
		UserID:                       userID,
		ExcludedFromLeaveCalculation: &trueVal,
	}, Actor{ID: "op1"}, Cause{})
	require.Error(t, err)
	assert.True(t, apperrors.IsKind(err, apperrors.KindDomainRule))
}

func bootstrapAreaAndUsers(t *testing.T) (*State, string, string) {
	t.Helper()
	state := newTestBidYear(t)
	areaResult, err := ApplyBootstrapCreateArea(testMeta(), state, CreateArea{AreaCode: "ZAB"}, Actor{ID: "op1"}, Cause{})
	require.NoError(t, err)
	state = areaResult.NewState

	tr := registerTestUser(t, state, "ZAB", "AB", "2020-01-01")
	state = tr.NewState
	tr = registerTestUser(t, state, "ZAB", "CD", "2019-01-01")
	state = tr.NewState

	var abID, cdID string
	for id, u := range state.Users {
		switch u.Initials {
		case "AB":
			abID = id
		case "CD":
			cdID = id
		}
	}
	return state, abID, cdID
}

func driveToCanonicalized(t *testing.T, state *State) *State {
	t.Helper()
	one := 1
	state = state.Clone()
	state.BidYear.IsActive = true
	state.BidYear.ExpectedAreaCount = &one

	for _, a := range state.Areas {
		if a.IsSystemArea {
			continue
		}
		n := len(state.UsersInArea(a.AreaID))
		a.ExpectedUserCount = &n
	}

	tr, err := Apply(testMeta(), state, TransitionToBootstrapComplete{BidYearID: state.BidYear.BidYearID}, Actor{ID: "op1"}, Cause{})
	require.NoError(t, err)
	state = tr.NewState

	state.BidYear.Schedule = &BidSchedule{Timezone: "UTC", StartDate: testMeta().Now, WindowStartTime: "08:00", WindowEndTime: "17:00", BiddersPerDay: 1}
	for _, a := range state.Areas {
		if a.IsSystemArea {
			continue
		}
		rg := "rg-1"
		a.RoundGroupID = &rg
	}

	tr, err = Apply(testMeta(), state, CanonicalizeBidYear{BidYearID: state.BidYear.BidYearID}, Actor{ID: "op1"}, Cause{})
	require.NoError(t, err)
	return tr.NewState
}

func TestApply_CanonicalizeBidYear_IsIdempotent(t *testing.T) {
	state, _, _ := bootstrapAreaAndUsers(t)
	state = driveToCanonicalized(t, state)
	assert.Equal(t, Canonicalized, state.BidYear.LifecycleState)
	assert.Len(t, state.CanonicalMembership, 2)

	// Apply itself leaves CanonicalizationEventID unset on a fresh
	// canonicalize (the id only exists once the persistence layer assigns
	// it); the persistence layer's own LoadBidYearState re-derives it from
	// the audit log on every subsequent load (store.go
	// loadCanonicalizationEventID) before calling Apply again, so the
	// idempotent branch here is exercised with that id already populated,
	// matching the real call sequence.
	state.CanonicalizationEventID = 4242

	second, err := Apply(testMeta(), state, CanonicalizeBidYear{BidYearID: state.BidYear.BidYearID}, Actor{ID: "op1"}, Cause{})
	require.NoError(t, err)
	assert.Len(t, second.NewState.CanonicalMembership, 2)
	assert.EqualValues(t, 4242, second.AuditEvent.EventID)

	third, err := Apply(testMeta(), state, CanonicalizeBidYear{BidYearID: state.BidYear.BidYearID}, Actor{ID: "op1"}, Cause{})
	require.NoError(t, err)
	assert.Equal(t, second.AuditEvent.EventID, third.AuditEvent.EventID)
}

func TestApply_CanonicalizeBidYear_SnapshotIsOrderedByInitialsAndAreaCode(t *testing.T) {
	state := newTestBidYear(t)
	areaResult, err := ApplyBootstrapCreateArea(testMeta(), state, CreateArea{AreaCode: "ZAB"}, Actor{ID: "op1"}, Cause{})
	require.NoError(t, err)
	state = areaResult.NewState

	// Register users in reverse-of-initials order so a snapshot built from
	// unordered map iteration would only pass by chance; a deterministic
	// sort by Initials is required to reliably put CD after AB.
	tr := registerTestUser(t, state, "ZAB", "CD", "2019-01-01")
	state = tr.NewState
	tr = registerTestUser(t, state, "ZAB", "AB", "2020-01-01")
	state = tr.NewState

	one := 1
	state.BidYear.IsActive = true
	state.BidYear.ExpectedAreaCount = &one
	for _, a := range state.Areas {
		if a.IsSystemArea {
			continue
		}
		n := len(state.UsersInArea(a.AreaID))
		a.ExpectedUserCount = &n
	}
	tr, err = Apply(testMeta(), state, TransitionToBootstrapComplete{BidYearID: state.BidYear.BidYearID}, Actor{ID: "op1"}, Cause{})
	require.NoError(t, err)
	state = tr.NewState
	state.BidYear.Schedule = &BidSchedule{Timezone: "UTC", StartDate: testMeta().Now, WindowStartTime: "08:00", WindowEndTime: "17:00", BiddersPerDay: 1}
	for _, a := range state.Areas {
		if a.IsSystemArea {
			continue
		}
		rg := "rg-1"
		a.RoundGroupID = &rg
	}

	tr, err = Apply(testMeta(), state, CanonicalizeBidYear{BidYearID: state.BidYear.BidYearID}, Actor{ID: "op1"}, Cause{})
	require.NoError(t, err)

	var snap canonicalizationSnapshot
	require.NoError(t, json.Unmarshal([]byte(tr.AuditEvent.AfterSnapshot), &snap))
	require.Len(t, snap.UserIDs, 2)
	assert.Equal(t, Initials("AB"), tr.NewState.Users[snap.UserIDs[0]].Initials)
	assert.Equal(t, Initials("CD"), tr.NewState.Users[snap.UserIDs[1]].Initials)
	require.Len(t, snap.AreaIDs, 2)
	assert.Equal(t, AreaCode(SystemAreaCode), tr.NewState.Areas[snap.AreaIDs[0]].AreaCode)
	assert.Equal(t, AreaCode("ZAB"), tr.NewState.Areas[snap.AreaIDs[1]].AreaCode)
}

func TestApply_TransitionToBiddingActive_RequiresReadiness(t *testing.T) {
	state, _, _ := bootstrapAreaAndUsers(t)
	state = driveToCanonicalized(t, state)

	_, err := Apply(testMeta(), state, TransitionToBiddingActive{
		BidYearID:         state.BidYear.BidYearID,
		ConfirmationToken: "wrong token",
	}, Actor{ID: "op1"}, Cause{})
	require.Error(t, err)
	assert.True(t, apperrors.IsKind(err, apperrors.KindValidation))

	tr, err := Apply(testMeta(), state, TransitionToBiddingActive{
		BidYearID:         state.BidYear.BidYearID,
		ConfirmationToken: testMeta().ConfirmationToken,
	}, Actor{ID: "op1"}, Cause{})
	require.NoError(t, err)
	assert.Equal(t, BiddingActive, tr.NewState.BidYear.LifecycleState)
}

func TestApply_OverrideEligibility_RequiresCanonicalized(t *testing.T) {
	state, abID, _ := bootstrapAreaAndUsers(t)
	_, err := Apply(testMeta(), state, OverrideEligibility{UserID: abID, CanBid: false, Reason: "not eligible anymore"}, Actor{ID: "op1"}, Cause{})
	require.Error(t, err)
	assert.True(t, apperrors.IsKind(err, apperrors.KindLifecycle))
}

func TestApply_OverrideEligibility_RequiresLongReason(t *testing.T) {
	state, abID, _ := bootstrapAreaAndUsers(t)
	state = driveToCanonicalized(t, state)

	_, err := Apply(testMeta(), state, OverrideEligibility{UserID: abID, CanBid: false, Reason: "short"}, Actor{ID: "op1"}, Cause{})
	require.Error(t, err)
	assert.True(t, apperrors.IsKind(err, apperrors.KindValidation))

	tr, err := Apply(testMeta(), state, OverrideEligibility{UserID: abID, CanBid: false, Reason: "no longer eligible due to transfer"}, Actor{ID: "op1"}, Cause{})
	require.NoError(t, err)
	row := tr.NewState.CanonicalEligibility[abID]
	assert.True(t, row.IsOverridden)
	assert.False(t, row.CanBid)
}

func TestApply_OverrideBidOrder(t *testing.T) {
	state, abID, _ := bootstrapAreaAndUsers(t)
	state = driveToCanonicalized(t, state)

	tr, err := Apply(testMeta(), state, OverrideBidOrder{UserID: abID, BidOrder: 1, Reason: "manual correction applied"}, Actor{ID: "op1"}, Cause{})
	require.NoError(t, err)
	row := tr.NewState.CanonicalBidOrder[abID]
	require.NotNil(t, row.BidOrder)
	assert.Equal(t, 1, *row.BidOrder)
}

func TestEvaluateReadiness_DetectsSeniorityTies(t *testing.T) {
	state, _, _ := bootstrapAreaAndUsers(t)
	// Force a tie: both users already registered with different EOD dates in
	// bootstrapAreaAndUsers, so tie-detection is exercised via equal dates.
	var users []*User
	for _, u := range state.Users {
		users = append(users, u)
	}
	require.Len(t, users, 2)
	users[1].Seniority = users[0].Seniority

	one := 1
	state.BidYear.ExpectedAreaCount = &one
	reasons := EvaluateReadiness(state)
	var foundTie bool
	for _, r := range reasons {
		if r.Code == "seniority_tie" {
			foundTie = true
		}
	}
	assert.True(t, foundTie)
}

func TestPreviewBidOrder_OrdersBySeniorityThenExcludesNonBidders(t *testing.T) {
	state, abID, cdID := bootstrapAreaAndUsers(t)
	areaIDForZab := areaID(t, state, "ZAB")

	ordered, err := PreviewBidOrder(state, areaIDForZab)
	require.NoError(t, err)
	require.Len(t, ordered, 2)
	assert.Equal(t, cdID, ordered[0].UserID) // earlier EOD date (2019) sorts first
	assert.Equal(t, abID, ordered[1].UserID)
}
