package lifecycle

import (
	"context"
	"fmt"

	"github.com/fredsystems/zabbid/internal/domain"
)

// CreateBidYear runs the one command with no prior State to load: it mints
// a fresh bid year plus its system area and persists both as the bid year's
// very first audit event.
func (e *Engine) CreateBidYear(ctx context.Context, cmd domain.CreateBidYear, actor domain.Actor, cause domain.Cause) (*domain.BootstrapResult, error) {
	meta := domain.Metadata{Now: e.Now()}
	result, err := domain.ApplyBootstrapCreateBidYear(meta, cmd, actor, cause)
	if err != nil {
		return nil, err
	}

	eventID, err := e.Store.PersistTransition(ctx, &result.TransitionResult)
	if err != nil {
		return nil, fmt.Errorf("persist bid year creation: %w", err)
	}
	result.AuditEvent.EventID = eventID

	if e.Publisher != nil {
		e.Publisher.Publish(result.AuditEvent)
	}
	return result, nil
}

// CreateArea runs CreateArea against bidYearID's already-loaded State and
// returns the new area's id alongside the usual transition result.
func (e *Engine) CreateArea(ctx context.Context, bidYearID string, cmd domain.CreateArea, actor domain.Actor, cause domain.Cause) (*domain.BootstrapResult, error) {
	state, err := e.Store.LoadBidYearState(ctx, bidYearID)
	if err != nil {
		return nil, err
	}

	meta := domain.Metadata{Now: e.Now()}
	result, err := domain.ApplyBootstrapCreateArea(meta, state, cmd, actor, cause)
	if err != nil {
		return nil, err
	}

	eventID, err := e.Store.PersistTransition(ctx, &result.TransitionResult)
	if err != nil {
		return nil, fmt.Errorf("persist area creation: %w", err)
	}
	result.AuditEvent.EventID = eventID

	if e.Publisher != nil {
		e.Publisher.Publish(result.AuditEvent)
	}
	return result, nil
}
