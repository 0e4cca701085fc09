// Package leaveaccrual computes anniversary-based annual leave accrual for a
// single user within a single canonicalized bid year. It is pure and
// deterministic: the same user and bid year always produce the same
// breakdown, with no dependency on wall-clock time.
package leaveaccrual

import (
	"time"

	"github.com/fredsystems/zabbid/internal/domain"
	"github.com/fredsystems/zabbid/internal/pkg/apperrors"
)

// AccrualReason explains why a particular breakdown entry carries the hours
// it does.
type AccrualReason string

const (
	ReasonNormal             AccrualReason = "Normal"
	ReasonTransition         AccrualReason = "Transition"
	ReasonTwentySeventhPP    AccrualReason = "TwentySeventhPP"
	ReasonBonus              AccrualReason = "Bonus"
	ReasonRoundingAdjustment AccrualReason = "RoundingAdjustment"
)

// PeriodAccrual is one entry in a user's accrual breakdown. PeriodIndex,
// PeriodStart and PeriodEnd are zero/nil for the Bonus and
// RoundingAdjustment entries, which do not correspond to a single pay
// period.
type PeriodAccrual struct {
	PeriodIndex  int
	PeriodStart  time.Time
	PeriodEnd    time.Time
	Rate         int
	HoursAccrued int
	Reason       AccrualReason
}

// Result is the outcome of calculating leave accrual for one user in one
// bid year.
type Result struct {
	TotalHours int
	TotalDays  int
	RoundedUp  bool
	Breakdown  []PeriodAccrual
}

// payPeriod is an internal 14-day slice of the bid year, 1-indexed.
type payPeriod struct {
	index int
	start time.Time
	end   time.Time
}

// payPeriods derives the bid year's fixed-length 14-day pay periods from its
// start date and pay-period count (26 or 27).
func payPeriods(by *domain.BidYear) []payPeriod {
	periods := make([]payPeriod, 0, by.NumPayPeriods)
	for i := 1; i <= by.NumPayPeriods; i++ {
		start := by.StartDate.AddDate(0, 0, (i-1)*14)
		end := start.AddDate(0, 0, 13)
		periods = append(periods, payPeriod{index: i, start: start, end: end})
	}
	return periods
}

// Calculate computes the full accrual breakdown for user within bidYear.
//
// It evaluates the accrual rate tier at the start of each pay period using
// anniversary-based years of service, applies the prior tier's rate when a
// threshold is crossed mid-pay-period, adds a one-time 4-hour bonus on
// entering the 6-hour tier, flags the 27th pay period of a 27-PP year, and
// rounds the running total up to the next multiple of 8 if needed.
func Calculate(user *domain.User, bidYear *domain.BidYear) (*Result, error) {
	scd := user.Seniority.ServiceComputationDate
	if scd.IsZero() {
		return nil, apperrors.Validation("INVALID_SERVICE_COMPUTATION_DATE",
			"service computation date is missing", "service_computation_date")
	}

	periods := payPeriods(bidYear)

	var breakdown []PeriodAccrual
	var totalHours int
	appliedBonus := false

	for idx, period := range periods {
		yearsOfService := yearsOfService(scd, period.start)
		rate := accrualRate(yearsOfService)

		var reason AccrualReason
		switch {
		case period.index == 27:
			reason = ReasonTwentySeventhPP
		case idx > 0:
			prevPeriod := periods[idx-1]
			prevRate := accrualRate(yearsOfService(scd, prevPeriod.start))
			if rate == prevRate {
				reason = ReasonNormal
			} else {
				reason = ReasonTransition
			}
		default:
			reason = ReasonNormal
		}

		breakdown = append(breakdown, PeriodAccrual{
			PeriodIndex:  period.index,
			PeriodStart:  period.start,
			PeriodEnd:    period.end,
			Rate:         rate,
			HoursAccrued: rate,
			Reason:       reason,
		})
		totalHours += rate

		if rate == 6 && !appliedBonus {
			breakdown = append(breakdown, PeriodAccrual{Rate: 0, HoursAccrued: 4, Reason: ReasonBonus})
			totalHours += 4
			appliedBonus = true
		}
	}

	roundedUp := totalHours%8 != 0
	if roundedUp {
		adjustment := 8 - totalHours%8
		breakdown = append(breakdown, PeriodAccrual{Rate: 0, HoursAccrued: adjustment, Reason: ReasonRoundingAdjustment})
		totalHours += adjustment
	}

	return &Result{
		TotalHours: totalHours,
		TotalDays:  totalHours / 8,
		RoundedUp:  roundedUp,
		Breakdown:  breakdown,
	}, nil
}

// yearsOfService counts complete anniversary years between scd and asOf.
// An anniversary counts only once the calendar month/day has been reached
// or passed in asOf's year.
func yearsOfService(scd, asOf time.Time) int {
	if asOf.Before(scd) {
		return 0
	}

	yearsDiff := asOf.Year() - scd.Year()
	anniversaryReached := asOf.Month() > scd.Month() ||
		(asOf.Month() == scd.Month() && asOf.Day() >= scd.Day())

	if anniversaryReached {
		if yearsDiff < 0 {
			return 0
		}
		return yearsDiff
	}
	if yearsDiff-1 < 0 {
		return 0
	}
	return yearsDiff - 1
}

// accrualRate maps years of service to the hours-per-pay-period tier.
func accrualRate(yearsOfService int) int {
	switch {
	case yearsOfService < 3:
		return 4
	case yearsOfService < 15:
		return 6
	default:
		return 8
	}
}
