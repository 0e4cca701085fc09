// Package domain implements the bid-year value objects, the audit event
// model, and the closed command set plus its pure apply() function.
//
// apply() never touches persistence. It takes the current in-memory State
// and a Command and returns a TransitionResult describing the single audit
// event produced and the refreshed State, or an error from
// internal/pkg/apperrors. Relational validation (uniqueness, lifecycle
// gates, existence) happens here; primitive validation (initials shape,
// date parsing) happens in the value-object constructors below.
package domain
