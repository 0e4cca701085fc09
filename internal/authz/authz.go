// Package authz computes the three capability structures the API layer
// needs before it lets a command through (spec.md §4.7). Every check here
// runs ahead of any persistence call: authorization failures never touch
// the audit log.
package authz

import "github.com/fredsystems/zabbid/internal/domain"

// isActiveAdmin reports whether op is an enabled Admin. A nil operator
// (unauthenticated request) or a disabled one has no capabilities at all.
func isActiveAdmin(op *domain.Operator) bool {
	return op != nil && op.Role == domain.RoleAdmin && !op.IsDisabled
}

// GlobalCapabilities are bid-year-independent: they gate the structural and
// operator-management commands rather than anything tied to a single
// bid year's lifecycle state.
type GlobalCapabilities struct {
	CanCreateBidYear   bool
	CanManageOperators bool
	CanViewAuditLog    bool
	CanImportCSV       bool
	CanCanonicalize    bool
	CanManageRounds    bool
	CanRollback        bool
}

// Global computes op's bid-year-independent capabilities. Every one of
// these is Admin-only; Bidder accounts never get any of them.
func Global(op *domain.Operator) GlobalCapabilities {
	admin := isActiveAdmin(op)
	return GlobalCapabilities{
		CanCreateBidYear:   admin,
		CanManageOperators: admin,
		CanViewAuditLog:    admin,
		CanImportCSV:       admin,
		CanCanonicalize:    admin,
		CanManageRounds:    admin,
		CanRollback:        admin,
	}
}

// OperatorCapabilities are computed per target operator by an admin actor
// (spec.md §4.7); the caller must already have confirmed the actor itself
// is an enabled Admin via Global before calling ForOperator.
type OperatorCapabilities struct {
	CanDisable       bool
	CanEnable        bool
	CanDelete        bool
	CanChangeRole    bool
	CanResetPassword bool
}

// ForOperator computes target's capabilities. enabledAdminCount is the
// number of enabled Admin operators currently in the system, including
// target itself if target is one; it is the caller's responsibility to
// compute that count from a fresh read, since it changes with every
// enable/disable/delete/demote.
//
// The last enabled admin can never be disabled, demoted, or deleted — doing
// so would leave the system with no account able to reverse the mistake.
func ForOperator(actor, target *domain.Operator, enabledAdminCount int) OperatorCapabilities {
	if !isActiveAdmin(actor) {
		return OperatorCapabilities{}
	}

	isLastEnabledAdmin := target.Role == domain.RoleAdmin && !target.IsDisabled && enabledAdminCount <= 1

	caps := OperatorCapabilities{
		CanResetPassword: true,
		CanChangeRole:    !isLastEnabledAdmin,
		CanDelete:        !isLastEnabledAdmin,
	}
	if target.IsDisabled {
		caps.CanEnable = true
	} else {
		caps.CanDisable = !isLastEnabledAdmin
	}
	return caps
}

// UserCapabilities are computed per target user against the bid year's
// current lifecycle state (spec.md §4.7). Bidders never get any of them;
// capability computation for a user's own bid submission is out of scope
// (spec.md §4.7 explicitly carves bid submission itself out of the core).
type UserCapabilities struct {
	CanEdit                bool
	CanOverrideArea        bool
	CanOverrideEligibility bool
	CanOverrideBidOrder    bool
	CanOverrideBidWindow   bool
	CanMarkNoBidReviewed   bool
}

// ForUser computes capabilities for a target user in a bid year currently
// at state. Plain field edits are only safe before canonicalization freezes
// the derived tables; overrides exist precisely because canonicalization
// already ran.
func ForUser(actor *domain.Operator, state domain.LifecycleState) UserCapabilities {
	if !isActiveAdmin(actor) {
		return UserCapabilities{}
	}

	preCanonical := state < domain.Canonicalized
	postCanonical := state >= domain.Canonicalized
	return UserCapabilities{
		CanEdit:                preCanonical,
		CanOverrideArea:        postCanonical,
		CanOverrideEligibility: postCanonical,
		CanOverrideBidOrder:    postCanonical,
		CanOverrideBidWindow:   postCanonical,
		CanMarkNoBidReviewed:   preCanonical,
	}
}
