// Package bidorder computes the preview-only bid order for a canonicalized
// area (spec.md §4.5). It never persists anything; only
// internal/override.BidOrder writes canonical bid_order values.
package bidorder

import "github.com/fredsystems/zabbid/internal/domain"

// Preview returns the ordered list of eligible bidders for the given area,
// sorted by the six-key lexicographic seniority rule.
func Preview(state *domain.State, areaID string) ([]*domain.User, error) {
	return domain.PreviewBidOrder(state, areaID)
}
