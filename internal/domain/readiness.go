package domain

import (
	"fmt"
	"sort"
)

// BlockingReason is one deterministic-order obstacle preventing entry to
// BiddingActive. Zero reasons means ready.
type BlockingReason struct {
	Code    string
	Message string
}

// EvaluateReadiness runs the five checks in spec.md §4.4, in their fixed
// order, and is pure and re-runnable.
func EvaluateReadiness(state *State) []BlockingReason {
	var reasons []BlockingReason

	if !state.BidYear.Schedule.Configured() {
		reasons = append(reasons, BlockingReason{
			Code:    "schedule_not_configured",
			Message: "the bid schedule is not fully configured",
		})
	}

	nonSystemAreas := make([]*Area, 0, len(state.Areas))
	for _, a := range state.Areas {
		if !a.IsSystemArea {
			nonSystemAreas = append(nonSystemAreas, a)
		}
	}
	sort.Slice(nonSystemAreas, func(i, j int) bool { return nonSystemAreas[i].AreaCode < nonSystemAreas[j].AreaCode })
	for _, a := range nonSystemAreas {
		if a.RoundGroupID == nil {
			reasons = append(reasons, BlockingReason{
				Code:    "area_missing_round_group",
				Message: fmt.Sprintf("area %s has no round group assigned", a.AreaCode),
			})
			continue
		}
		if len(state.RoundsInGroup(*a.RoundGroupID)) == 0 {
			reasons = append(reasons, BlockingReason{
				Code:    "round_group_has_no_rounds",
				Message: fmt.Sprintf("area %s's round group has no rounds configured", a.AreaCode),
			})
		}
	}

	if sys := state.SystemArea(); sys != nil {
		var unreviewed []string
		for _, u := range state.UsersInArea(sys.AreaID) {
			if !u.NoBidReviewed {
				unreviewed = append(unreviewed, string(u.Initials))
			}
		}
		if len(unreviewed) > 0 {
			sort.Strings(unreviewed)
			reasons = append(reasons, BlockingReason{
				Code:    "unreviewed_no_bid_users",
				Message: fmt.Sprintf("unreviewed No-Bid users: %v", unreviewed),
			})
		}
	}

	var participationViolations []string
	for _, u := range state.Users {
		if u.ExcludedFromLeaveCalculation && !u.ExcludedFromBidding {
			participationViolations = append(participationViolations, string(u.Initials))
		}
	}
	if len(participationViolations) > 0 {
		sort.Strings(participationViolations)
		reasons = append(reasons, BlockingReason{
			Code:    "participation_invariant_violated",
			Message: fmt.Sprintf("users excluded from leave calculation but not from bidding: %v", participationViolations),
		})
	}

	for _, a := range nonSystemAreas {
		seen := make(map[string]string) // ordering key -> initials
		var dupes []string
		ordered := UsersInAreaForBidOrder(state, a.AreaID)
		for _, u := range ordered {
			key := orderingKey(u)
			if other, ok := seen[key]; ok {
				dupes = append(dupes, fmt.Sprintf("%s/%s", other, u.Initials))
			} else {
				seen[key] = string(u.Initials)
			}
		}
		if len(dupes) > 0 {
			reasons = append(reasons, BlockingReason{
				Code:    "seniority_tie",
				Message: fmt.Sprintf("area %s has tied seniority ordering: %v", a.AreaCode, dupes),
			})
		}
	}

	return reasons
}
