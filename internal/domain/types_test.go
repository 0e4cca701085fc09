package domain

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestNewInitials(t *testing.T) {
	i, err := NewInitials(" ab ")
	assert.NoError(t, err)
	assert.Equal(t, Initials("AB"), i)

	_, err = NewInitials("A")
	assert.Error(t, err)

	_, err = NewInitials("A1")
	assert.Error(t, err)
}

func TestNewAreaCode(t *testing.T) {
	c, err := NewAreaCode(" zab ")
	assert.NoError(t, err)
	assert.Equal(t, AreaCode("ZAB"), c)

	_, err = NewAreaCode("")
	assert.Error(t, err)
}

func TestParseUserType(t *testing.T) {
	_, err := ParseUserType("CPC")
	assert.NoError(t, err)

	_, err = ParseUserType("bogus")
	assert.Error(t, err)
}

func TestParseCrew(t *testing.T) {
	_, err := ParseCrew(0)
	assert.Error(t, err)
	_, err = ParseCrew(8)
	assert.Error(t, err)
	c, err := ParseCrew(3)
	assert.NoError(t, err)
	assert.EqualValues(t, 3, c)
}

func TestBidYear_EndDate(t *testing.T) {
	by := &BidYear{StartDate: time.Date(2026, 1, 4, 0, 0, 0, 0, time.UTC), NumPayPeriods: 26}
	assert.Equal(t, time.Date(2026, 12, 26, 0, 0, 0, 0, time.UTC), by.EndDate())
}

func TestValidatePayPeriods(t *testing.T) {
	assert.NoError(t, ValidatePayPeriods(26))
	assert.NoError(t, ValidatePayPeriods(27))
	assert.Error(t, ValidatePayPeriods(25))
}

func TestBidSchedule_Configured(t *testing.T) {
	var s *BidSchedule
	assert.False(t, s.Configured())

	s = &BidSchedule{Timezone: "America/New_York", StartDate: time.Now(), WindowStartTime: "08:00", WindowEndTime: "17:00", BiddersPerDay: 5}
	assert.True(t, s.Configured())

	s.BiddersPerDay = 0
	assert.False(t, s.Configured())
}

func TestUser_ValidateParticipationInvariant(t *testing.T) {
	u := &User{ExcludedFromLeaveCalculation: true, ExcludedFromBidding: false}
	assert.Error(t, u.ValidateParticipationInvariant())

	u.ExcludedFromBidding = true
	assert.NoError(t, u.ValidateParticipationInvariant())
}
