package leaveaccrual

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fredsystems/zabbid/internal/domain"
)

func mustDate(s string) time.Time {
	t, err := time.Parse("2006-01-02", s)
	if err != nil {
		panic(err)
	}
	return t
}

func makeUser(scd string) *domain.User {
	return &domain.User{
		UserID:   "u1",
		Initials: "TS",
		Name:     "Test User",
		UserType: domain.UserTypeCPC,
		Seniority: domain.Seniority{
			EODFAADate:             mustDate("2020-01-01"),
			NATCABUDate:            mustDate("2020-01-01"),
			CumulativeNATCABUDate:  mustDate("2020-01-01"),
			ServiceComputationDate: mustDate(scd),
		},
	}
}

func bidYear26PP() *domain.BidYear {
	return &domain.BidYear{BidYearID: "by1", Year: 2026, StartDate: mustDate("2026-01-04"), NumPayPeriods: 26}
}

func bidYear27PP() *domain.BidYear {
	return &domain.BidYear{BidYearID: "by1", Year: 2026, StartDate: mustDate("2026-01-04"), NumPayPeriods: 27}
}

func TestYearsOfService(t *testing.T) {
	assert.Equal(t, 0, yearsOfService(mustDate("2020-03-15"), mustDate("2020-03-15")))
	assert.Equal(t, 0, yearsOfService(mustDate("2020-03-15"), mustDate("2021-03-14")))
	assert.Equal(t, 1, yearsOfService(mustDate("2020-03-15"), mustDate("2021-03-15")))
	assert.Equal(t, 1, yearsOfService(mustDate("2020-03-15"), mustDate("2021-03-16")))
	assert.Equal(t, 5, yearsOfService(mustDate("2020-03-15"), mustDate("2025-03-15")))
	assert.Equal(t, 0, yearsOfService(mustDate("2025-03-15"), mustDate("2020-03-15")))
}

func TestAccrualRate(t *testing.T) {
	assert.Equal(t, 4, accrualRate(0))
	assert.Equal(t, 4, accrualRate(2))
	assert.Equal(t, 6, accrualRate(3))
	assert.Equal(t, 6, accrualRate(14))
	assert.Equal(t, 8, accrualRate(15))
	assert.Equal(t, 8, accrualRate(30))
}

func TestCalculate_Under3Years26PP(t *testing.T) {
	result, err := Calculate(makeUser("2024-01-01"), bidYear26PP())
	require.NoError(t, err)
	assert.Equal(t, 104, result.TotalHours)
	assert.Equal(t, 13, result.TotalDays)
	assert.False(t, result.RoundedUp)
	assert.Len(t, result.Breakdown, 26)
}

func TestCalculate_3To14Years26PP(t *testing.T) {
	result, err := Calculate(makeUser("2020-01-01"), bidYear26PP())
	require.NoError(t, err)
	assert.Equal(t, 160, result.TotalHours)
	assert.Equal(t, 20, result.TotalDays)
	assert.False(t, result.RoundedUp)
	assert.Len(t, result.Breakdown, 27) // 26 PPs + 1 bonus
}

func TestCalculate_15PlusYears26PP(t *testing.T) {
	result, err := Calculate(makeUser("2010-01-01"), bidYear26PP())
	require.NoError(t, err)
	assert.Equal(t, 208, result.TotalHours)
	assert.Equal(t, 26, result.TotalDays)
	assert.False(t, result.RoundedUp)
	assert.Len(t, result.Breakdown, 26)
}

func TestCalculate_27PPYear(t *testing.T) {
	result, err := Calculate(makeUser("2020-01-01"), bidYear27PP())
	require.NoError(t, err)
	assert.Equal(t, 168, result.TotalHours)
	assert.Equal(t, 21, result.TotalDays)
	assert.True(t, result.RoundedUp)
	assert.Len(t, result.Breakdown, 29) // 27 PPs + 1 bonus + 1 rounding

	var pp27 *PeriodAccrual
	for i := range result.Breakdown {
		if result.Breakdown[i].PeriodIndex == 27 {
			pp27 = &result.Breakdown[i]
		}
	}
	require.NotNil(t, pp27)
	assert.Equal(t, ReasonTwentySeventhPP, pp27.Reason)
}

func TestCalculate_TransitionAt3Years(t *testing.T) {
	// SCD March 15 2023 -> hits 3 years on March 15 2026, which is the start
	// date of pay period 6 (Jan 4 start, 14-day periods).
	result, err := Calculate(makeUser("2023-03-15"), bidYear26PP())
	require.NoError(t, err)
	assert.Equal(t, 152, result.TotalHours)
	assert.Equal(t, 19, result.TotalDays)
	assert.True(t, result.RoundedUp)

	var transition *PeriodAccrual
	for i := range result.Breakdown {
		if result.Breakdown[i].Reason == ReasonTransition {
			transition = &result.Breakdown[i]
		}
	}
	require.NotNil(t, transition)
	assert.Equal(t, 6, transition.PeriodIndex)
}

func TestCalculate_TransitionDuringPayPeriodUsesPriorRate(t *testing.T) {
	// SCD March 10 2023 -> hits 3 years on March 10 2026, which falls inside
	// (not at the start of) pay period 6; that period keeps the old rate and
	// period 7 picks up the Transition reason.
	result, err := Calculate(makeUser("2023-03-10"), bidYear26PP())
	require.NoError(t, err)

	var pp6, pp7 *PeriodAccrual
	for i := range result.Breakdown {
		switch result.Breakdown[i].PeriodIndex {
		case 6:
			pp6 = &result.Breakdown[i]
		case 7:
			pp7 = &result.Breakdown[i]
		}
	}
	require.NotNil(t, pp6)
	require.NotNil(t, pp7)
	assert.Equal(t, 4, pp6.Rate)
	assert.Equal(t, 6, pp7.Rate)
	assert.Equal(t, ReasonTransition, pp7.Reason)
}

func TestCalculate_TransitionAt15Years(t *testing.T) {
	result, err := Calculate(makeUser("2011-01-04"), bidYear26PP())
	require.NoError(t, err)
	assert.Equal(t, 208, result.TotalHours)
	assert.Equal(t, 26, result.TotalDays)
	assert.False(t, result.RoundedUp)
	assert.Equal(t, 8, result.Breakdown[0].Rate)
}

func TestCalculate_BonusAppliedOnce(t *testing.T) {
	result, err := Calculate(makeUser("2020-01-01"), bidYear26PP())
	require.NoError(t, err)

	var bonusCount int
	for _, e := range result.Breakdown {
		if e.Reason == ReasonBonus {
			bonusCount++
			assert.Equal(t, 4, e.HoursAccrued)
			assert.Zero(t, e.PeriodIndex)
			assert.True(t, e.PeriodStart.IsZero())
		}
	}
	assert.Equal(t, 1, bonusCount)
}

func TestCalculate_NoBonusFor4HourTier(t *testing.T) {
	result, err := Calculate(makeUser("2024-01-01"), bidYear26PP())
	require.NoError(t, err)
	for _, e := range result.Breakdown {
		assert.NotEqual(t, ReasonBonus, e.Reason)
	}
}

func TestCalculate_NoBonusFor8HourTier(t *testing.T) {
	result, err := Calculate(makeUser("2010-01-01"), bidYear26PP())
	require.NoError(t, err)
	for _, e := range result.Breakdown {
		assert.NotEqual(t, ReasonBonus, e.Reason)
	}
}

func TestCalculate_Deterministic(t *testing.T) {
	user := makeUser("2020-06-15")
	by := bidYear26PP()
	r1, err := Calculate(user, by)
	require.NoError(t, err)
	r2, err := Calculate(user, by)
	require.NoError(t, err)
	assert.Equal(t, r1, r2)
}

func TestCalculate_InvalidServiceComputationDate(t *testing.T) {
	user := makeUser("2020-01-01")
	user.Seniority.ServiceComputationDate = time.Time{}
	_, err := Calculate(user, bidYear26PP())
	assert.Error(t, err)
}
