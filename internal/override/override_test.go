package override

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fredsystems/zabbid/internal/domain"
	"github.com/fredsystems/zabbid/internal/lifecycle"
	"github.com/fredsystems/zabbid/internal/pkg/apperrors"
)

type fakeStore struct {
	state       *domain.State
	nextEventID int64
}

func (f *fakeStore) LoadBidYearState(ctx context.Context, bidYearID string) (*domain.State, error) {
	return f.state.Clone(), nil
}

func (f *fakeStore) PersistTransition(ctx context.Context, result *domain.TransitionResult) (int64, error) {
	f.nextEventID++
	f.state = result.NewState
	return f.nextEventID, nil
}

func (f *fakeStore) AnyBidYearInState(ctx context.Context, state domain.LifecycleState, excludeID string) (bool, error) {
	return false, nil
}

func (f *fakeStore) ActiveBidYear(ctx context.Context) (*domain.BidYear, error) {
	return nil, apperrors.NotFound("BidYear", "active")
}

func (f *fakeStore) EventByID(ctx context.Context, eventID int64) (*domain.AuditEvent, error) {
	return nil, apperrors.NotFound("AuditEvent", "")
}

func testActor() domain.Actor { return domain.Actor{ID: "op-1", Type: domain.ActorTypeOperator} }
func testCause() domain.Cause { return domain.Cause{ID: "c-1", Description: "test"} }

func canonicalizedState(userID, areaID string) *domain.State {
	by := &domain.BidYear{BidYearID: "by1", LifecycleState: domain.Canonicalized}
	s := domain.NewState(by)
	s.Areas[areaID] = &domain.Area{AreaID: areaID, BidYearID: "by1"}
	s.CanonicalMembership = map[string]*domain.CanonicalAreaMembership{
		userID: {BidYearID: "by1", UserID: userID, AreaID: areaID},
	}
	s.CanonicalEligibility = map[string]*domain.CanonicalEligibility{
		userID: {BidYearID: "by1", UserID: userID, CanBid: true},
	}
	s.CanonicalBidOrder = map[string]*domain.CanonicalBidOrder{
		userID: {BidYearID: "by1", UserID: userID},
	}
	s.CanonicalBidWindow = map[string]*domain.CanonicalBidWindow{
		userID: {BidYearID: "by1", UserID: userID},
	}
	return s
}

func TestAreaAssignment_FirstOverrideReportsNotAlreadyOverridden(t *testing.T) {
	store := &fakeStore{state: canonicalizedState("u1", "area-1")}
	store.state.Areas["area-2"] = &domain.Area{AreaID: "area-2", BidYearID: "by1"}
	eng := lifecycle.New(store, nil)

	result, err := AreaAssignment(context.Background(), eng, "by1",
		domain.OverrideAreaAssignment{UserID: "u1", AreaID: "area-2", Reason: "relocated for medical reasons"},
		testActor(), testCause())
	require.NoError(t, err)
	assert.False(t, result.WasAlreadyOverridden)
	assert.Equal(t, "area-2", store.state.CanonicalMembership["u1"].AreaID)
	assert.True(t, store.state.CanonicalMembership["u1"].IsOverridden)
}

func TestAreaAssignment_SecondOverrideReportsAlreadyOverridden(t *testing.T) {
	store := &fakeStore{state: canonicalizedState("u1", "area-1")}
	store.state.Areas["area-2"] = &domain.Area{AreaID: "area-2", BidYearID: "by1"}
	eng := lifecycle.New(store, nil)

	_, err := AreaAssignment(context.Background(), eng, "by1",
		domain.OverrideAreaAssignment{UserID: "u1", AreaID: "area-2", Reason: "relocated for medical reasons"},
		testActor(), testCause())
	require.NoError(t, err)

	result, err := AreaAssignment(context.Background(), eng, "by1",
		domain.OverrideAreaAssignment{UserID: "u1", AreaID: "area-1", Reason: "relocated back again today"},
		testActor(), testCause())
	require.NoError(t, err)
	assert.True(t, result.WasAlreadyOverridden)
}

func TestEligibility_ReportsAlreadyOverridden(t *testing.T) {
	store := &fakeStore{state: canonicalizedState("u1", "area-1")}
	eng := lifecycle.New(store, nil)

	first, err := Eligibility(context.Background(), eng, "by1",
		domain.OverrideEligibility{UserID: "u1", CanBid: false, Reason: "requested exclusion in writing"},
		testActor(), testCause())
	require.NoError(t, err)
	assert.False(t, first.WasAlreadyOverridden)

	second, err := Eligibility(context.Background(), eng, "by1",
		domain.OverrideEligibility{UserID: "u1", CanBid: true, Reason: "exclusion request rescinded"},
		testActor(), testCause())
	require.NoError(t, err)
	assert.True(t, second.WasAlreadyOverridden)
}

func TestBidOrder_ReportsAlreadyOverridden(t *testing.T) {
	store := &fakeStore{state: canonicalizedState("u1", "area-1")}
	eng := lifecycle.New(store, nil)

	first, err := BidOrder(context.Background(), eng, "by1",
		domain.OverrideBidOrder{UserID: "u1", BidOrder: 3, Reason: "manual seniority correction"},
		testActor(), testCause())
	require.NoError(t, err)
	assert.False(t, first.WasAlreadyOverridden)
	assert.Equal(t, 3, *store.state.CanonicalBidOrder["u1"].BidOrder)

	second, err := BidOrder(context.Background(), eng, "by1",
		domain.OverrideBidOrder{UserID: "u1", BidOrder: 5, Reason: "second seniority correction"},
		testActor(), testCause())
	require.NoError(t, err)
	assert.True(t, second.WasAlreadyOverridden)
}

func TestBidWindow_ReportsAlreadyOverridden(t *testing.T) {
	store := &fakeStore{state: canonicalizedState("u1", "area-1")}
	eng := lifecycle.New(store, nil)
	start := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	end := time.Date(2026, 3, 1, 17, 0, 0, 0, time.UTC)

	first, err := BidWindow(context.Background(), eng, "by1",
		domain.OverrideBidWindow{UserID: "u1", WindowStart: start, WindowEnd: end, Reason: "accommodation for travel"},
		testActor(), testCause())
	require.NoError(t, err)
	assert.False(t, first.WasAlreadyOverridden)

	second, err := BidWindow(context.Background(), eng, "by1",
		domain.OverrideBidWindow{UserID: "u1", WindowStart: start, WindowEnd: end, Reason: "travel accommodation updated"},
		testActor(), testCause())
	require.NoError(t, err)
	assert.True(t, second.WasAlreadyOverridden)
}

func TestAreaAssignment_RejectsShortReason(t *testing.T) {
	store := &fakeStore{state: canonicalizedState("u1", "area-1")}
	store.state.Areas["area-2"] = &domain.Area{AreaID: "area-2", BidYearID: "by1"}
	eng := lifecycle.New(store, nil)

	_, err := AreaAssignment(context.Background(), eng, "by1",
		domain.OverrideAreaAssignment{UserID: "u1", AreaID: "area-2", Reason: "short"},
		testActor(), testCause())
	require.Error(t, err)
	appErr, ok := apperrors.As(err)
	require.True(t, ok)
	assert.Equal(t, apperrors.KindValidation, appErr.Kind)
}
