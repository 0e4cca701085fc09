package domain

import (
	"fmt"
	"sort"
)

// orderingKey builds a comparable string from a user's seniority dates so
// equal keys across two users can be detected (the readiness evaluator's
// "no seniority ties" check).
func orderingKey(u *User) string {
	key := fmt.Sprintf("%s|%s|%s|%s",
		u.Seniority.EODFAADate.Format("2006-01-02"),
		u.Seniority.ServiceComputationDate.Format("2006-01-02"),
		u.Seniority.NATCABUDate.Format("2006-01-02"),
		u.Seniority.CumulativeNATCABUDate.Format("2006-01-02"),
	)
	if u.Seniority.LotteryValue != nil {
		key += fmt.Sprintf("|%f", *u.Seniority.LotteryValue)
	} else {
		key += "|" // no lottery value sorts after users with one
	}
	return key
}

// UsersInAreaForBidOrder returns the users of an area sorted by the
// lexicographic ordering key in spec.md §4.5: eod_faa_date,
// service_computation_date, natca_bu_date, cumulative_natca_bu_date,
// lottery_value (present values sort before absent ones).
func UsersInAreaForBidOrder(state *State, areaID string) []*User {
	users := state.UsersInArea(areaID)
	sort.SliceStable(users, func(i, j int) bool {
		a, b := users[i], users[j]
		if !a.Seniority.EODFAADate.Equal(b.Seniority.EODFAADate) {
			return a.Seniority.EODFAADate.Before(b.Seniority.EODFAADate)
		}
		if !a.Seniority.ServiceComputationDate.Equal(b.Seniority.ServiceComputationDate) {
			return a.Seniority.ServiceComputationDate.Before(b.Seniority.ServiceComputationDate)
		}
		if !a.Seniority.NATCABUDate.Equal(b.Seniority.NATCABUDate) {
			return a.Seniority.NATCABUDate.Before(b.Seniority.NATCABUDate)
		}
		if !a.Seniority.CumulativeNATCABUDate.Equal(b.Seniority.CumulativeNATCABUDate) {
			return a.Seniority.CumulativeNATCABUDate.Before(b.Seniority.CumulativeNATCABUDate)
		}
		switch {
		case a.Seniority.LotteryValue == nil && b.Seniority.LotteryValue == nil:
			return string(a.Initials) < string(b.Initials)
		case a.Seniority.LotteryValue == nil:
			return false
		case b.Seniority.LotteryValue == nil:
			return true
		default:
			return *a.Seniority.LotteryValue < *b.Seniority.LotteryValue
		}
	})
	return users
}

// PreviewBidOrder returns the ordered list of eligible bidders for an area.
// It does not persist anything; only OverrideBidOrder writes canonical
// bid_order values.
func PreviewBidOrder(state *State, areaID string) ([]*User, error) {
	if _, ok := state.Areas[areaID]; !ok {
		return nil, fmt.Errorf("area %s not found", areaID)
	}
	ordered := UsersInAreaForBidOrder(state, areaID)
	eligible := make([]*User, 0, len(ordered))
	for _, u := range ordered {
		if !u.ExcludedFromBidding {
			eligible = append(eligible, u)
		}
	}
	return eligible, nil
}
