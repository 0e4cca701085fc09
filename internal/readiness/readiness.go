// Package readiness evaluates whether a bid year may enter BiddingActive.
package readiness

import "github.com/fredsystems/zabbid/internal/domain"

// BlockingReason re-exports the domain type so callers outside internal/domain
// never need to import it directly.
type BlockingReason = domain.BlockingReason

// Evaluate runs the five deterministic-order checks in spec.md §4.4. It is
// pure and re-runnable; it never mutates state.
func Evaluate(state *domain.State) []BlockingReason {
	return domain.EvaluateReadiness(state)
}

// Ready reports whether Evaluate returned no blocking reasons.
func Ready(state *domain.State) bool {
	return len(Evaluate(state)) == 0
}
