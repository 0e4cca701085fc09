package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/fredsystems/zabbid/internal/authz"
	"github.com/fredsystems/zabbid/internal/domain"
	"github.com/fredsystems/zabbid/internal/override"
)

func (s *Server) loadOverrideState(c *gin.Context, bidYearID string) (*domain.Operator, *domain.State, bool) {
	op, err := s.currentOperator(c.Request.Context(), c)
	if err != nil {
		respondError(c, err)
		return nil, nil, false
	}
	state, err := s.Store.LoadBidYearState(c.Request.Context(), bidYearID)
	if err != nil {
		respondError(c, err)
		return nil, nil, false
	}
	return op, state, true
}

func respondOverride(c *gin.Context, result *domain.OverrideResult) {
	c.JSON(http.StatusOK, gin.H{
		"event_id":                result.AuditEvent.EventID,
		"was_already_overridden":  result.WasAlreadyOverridden,
	})
}

type overrideAreaAssignmentRequest struct {
	AreaID string `json:"area_id" binding:"required"`
	Reason string `json:"reason" binding:"required"`
}

// OverrideAreaAssignment handles POST /bid-years/:id/users/:user_id/override/area.
func (s *Server) OverrideAreaAssignment(c *gin.Context) {
	bidYearID := c.Param("id")
	op, state, ok := s.loadOverrideState(c, bidYearID)
	if !ok {
		return
	}
	if !authz.ForUser(op, state.BidYear.LifecycleState).CanOverrideArea {
		respondError(c, authzDenied())
		return
	}

	var req overrideAreaAssignmentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondValidation(c, err)
		return
	}

	cmd := domain.OverrideAreaAssignment{UserID: c.Param("user_id"), AreaID: req.AreaID, Reason: req.Reason}
	result, err := override.AreaAssignment(c.Request.Context(), s.Engine, bidYearID, cmd, actor(op), causeFrom(c, "OverrideAreaAssignment"))
	if err != nil {
		respondError(c, err)
		return
	}
	respondOverride(c, result)
}

type overrideEligibilityRequest struct {
	CanBid bool   `json:"can_bid"`
	Reason string `json:"reason" binding:"required"`
}

// OverrideEligibility handles POST /bid-years/:id/users/:user_id/override/eligibility.
func (s *Server) OverrideEligibility(c *gin.Context) {
	bidYearID := c.Param("id")
	op, state, ok := s.loadOverrideState(c, bidYearID)
	if !ok {
		return
	}
	if !authz.ForUser(op, state.BidYear.LifecycleState).CanOverrideEligibility {
		respondError(c, authzDenied())
		return
	}

	var req overrideEligibilityRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondValidation(c, err)
		return
	}

	cmd := domain.OverrideEligibility{UserID: c.Param("user_id"), CanBid: req.CanBid, Reason: req.Reason}
	result, err := override.Eligibility(c.Request.Context(), s.Engine, bidYearID, cmd, actor(op), causeFrom(c, "OverrideEligibility"))
	if err != nil {
		respondError(c, err)
		return
	}
	respondOverride(c, result)
}

type overrideBidOrderRequest struct {
	BidOrder int    `json:"bid_order" binding:"required"`
	Reason   string `json:"reason" binding:"required"`
}

// OverrideBidOrder handles POST /bid-years/:id/users/:user_id/override/bid-order.
func (s *Server) OverrideBidOrder(c *gin.Context) {
	bidYearID := c.Param("id")
	op, state, ok := s.loadOverrideState(c, bidYearID)
	if !ok {
		return
	}
	if !authz.ForUser(op, state.BidYear.LifecycleState).CanOverrideBidOrder {
		respondError(c, authzDenied())
		return
	}

	var req overrideBidOrderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondValidation(c, err)
		return
	}

	cmd := domain.OverrideBidOrder{UserID: c.Param("user_id"), BidOrder: req.BidOrder, Reason: req.Reason}
	result, err := override.BidOrder(c.Request.Context(), s.Engine, bidYearID, cmd, actor(op), causeFrom(c, "OverrideBidOrder"))
	if err != nil {
		respondError(c, err)
		return
	}
	respondOverride(c, result)
}

type overrideBidWindowRequest struct {
	WindowStart string `json:"window_start" binding:"required"`
	WindowEnd   string `json:"window_end" binding:"required"`
	Reason      string `json:"reason" binding:"required"`
}

// OverrideBidWindow handles POST /bid-years/:id/users/:user_id/override/bid-window.
func (s *Server) OverrideBidWindow(c *gin.Context) {
	bidYearID := c.Param("id")
	op, state, ok := s.loadOverrideState(c, bidYearID)
	if !ok {
		return
	}
	if !authz.ForUser(op, state.BidYear.LifecycleState).CanOverrideBidWindow {
		respondError(c, authzDenied())
		return
	}

	var req overrideBidWindowRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondValidation(c, err)
		return
	}
	windowStart, err := parseOptionalDate(req.WindowStart)
	if err != nil {
		respondValidation(c, err)
		return
	}
	windowEnd, err := parseOptionalDate(req.WindowEnd)
	if err != nil {
		respondValidation(c, err)
		return
	}

	cmd := domain.OverrideBidWindow{
		UserID:      c.Param("user_id"),
		WindowStart: windowStart,
		WindowEnd:   windowEnd,
		Reason:      req.Reason,
	}
	result, err := override.BidWindow(c.Request.Context(), s.Engine, bidYearID, cmd, actor(op), causeFrom(c, "OverrideBidWindow"))
	if err != nil {
		respondError(c, err)
		return
	}
	respondOverride(c, result)
}
