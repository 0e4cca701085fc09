package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/fredsystems/zabbid/internal/authz"
	"github.com/fredsystems/zabbid/internal/bidorder"
	"github.com/fredsystems/zabbid/internal/domain"
	"github.com/fredsystems/zabbid/internal/pkg/apperrors"
	"github.com/fredsystems/zabbid/internal/readiness"
)

// TransitionToBootstrapComplete handles POST /bid-years/:id/bootstrap-complete.
func (s *Server) TransitionToBootstrapComplete(c *gin.Context) {
	op, err := s.currentOperator(c.Request.Context(), c)
	if err != nil {
		respondError(c, err)
		return
	}
	if !authz.Global(op).CanCreateBidYear {
		respondError(c, authzDenied())
		return
	}

	bidYearID := c.Param("id")
	cmd := domain.TransitionToBootstrapComplete{BidYearID: bidYearID}
	result, err := s.Engine.Execute(c.Request.Context(), bidYearID, cmd, actor(op), causeFrom(c, "TransitionToBootstrapComplete"), "")
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"event_id": result.AuditEvent.EventID})
}

// Canonicalize handles POST /bid-years/:id/canonicalize.
func (s *Server) Canonicalize(c *gin.Context) {
	op, err := s.currentOperator(c.Request.Context(), c)
	if err != nil {
		respondError(c, err)
		return
	}
	if !authz.Global(op).CanCanonicalize {
		respondError(c, authzDenied())
		return
	}

	bidYearID := c.Param("id")
	result, err := s.Engine.Canonicalize(c.Request.Context(), bidYearID, actor(op), causeFrom(c, "CanonicalizeBidYear"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"event_id": result.AuditEvent.EventID})
}

// Readiness handles GET /bid-years/:id/readiness.
func (s *Server) Readiness(c *gin.Context) {
	state, err := s.Store.LoadBidYearState(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	reasons := readiness.Evaluate(state)
	c.JSON(http.StatusOK, gin.H{
		"ready":           len(reasons) == 0,
		"blocking_reasons": reasons,
	})
}

type confirmReadyToBidRequest struct {
	ConfirmationToken string `json:"confirmation_token" binding:"required"`
}

// ConfirmReadyToBid handles POST /bid-years/:id/confirm-ready-to-bid. The
// confirmation token must match the configured literal verbatim (spec.md
// §4.2); the readiness evaluator also still runs inside domain.Apply.
func (s *Server) ConfirmReadyToBid(c *gin.Context) {
	op, err := s.currentOperator(c.Request.Context(), c)
	if err != nil {
		respondError(c, err)
		return
	}
	if !authz.Global(op).CanCanonicalize {
		respondError(c, authzDenied())
		return
	}

	var req confirmReadyToBidRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondValidation(c, err)
		return
	}

	bidYearID := c.Param("id")
	cmd := domain.TransitionToBiddingActive{BidYearID: bidYearID, ConfirmationToken: req.ConfirmationToken}
	result, err := s.Engine.Execute(c.Request.Context(), bidYearID, cmd, actor(op), causeFrom(c, "TransitionToBiddingActive"), s.Bidding.ConfirmationToken)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"event_id": result.AuditEvent.EventID})
}

// TransitionToBiddingClosed handles POST /bid-years/:id/close.
func (s *Server) TransitionToBiddingClosed(c *gin.Context) {
	op, err := s.currentOperator(c.Request.Context(), c)
	if err != nil {
		respondError(c, err)
		return
	}
	if !authz.Global(op).CanCanonicalize {
		respondError(c, authzDenied())
		return
	}

	bidYearID := c.Param("id")
	cmd := domain.TransitionToBiddingClosed{BidYearID: bidYearID}
	result, err := s.Engine.Execute(c.Request.Context(), bidYearID, cmd, actor(op), causeFrom(c, "TransitionToBiddingClosed"), "")
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"event_id": result.AuditEvent.EventID})
}

// BidOrderPreview handles GET /bid-years/:id/areas/:area_id/bid-order-preview.
func (s *Server) BidOrderPreview(c *gin.Context) {
	state, err := s.Store.LoadBidYearState(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	ordered, err := bidorder.Preview(state, c.Param("area_id"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"users": ordered})
}

type checkpointRequest struct {
	Note string `json:"note"`
}

// Checkpoint handles POST /bid-years/:id/checkpoint.
func (s *Server) Checkpoint(c *gin.Context) {
	op, err := s.currentOperator(c.Request.Context(), c)
	if err != nil {
		respondError(c, err)
		return
	}
	if !authz.Global(op).CanRollback {
		respondError(c, authzDenied())
		return
	}

	var req checkpointRequest
	_ = c.ShouldBindJSON(&req)

	bidYearID := c.Param("id")
	cmd := domain.Checkpoint{BidYearID: bidYearID, Note: req.Note}
	result, err := s.Engine.Execute(c.Request.Context(), bidYearID, cmd, actor(op), causeFrom(c, "Checkpoint"), "")
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"event_id": result.AuditEvent.EventID})
}

// Finalize handles POST /bid-years/:id/finalize.
func (s *Server) Finalize(c *gin.Context) {
	op, err := s.currentOperator(c.Request.Context(), c)
	if err != nil {
		respondError(c, err)
		return
	}
	if !authz.Global(op).CanRollback {
		respondError(c, authzDenied())
		return
	}

	bidYearID := c.Param("id")
	cmd := domain.Finalize{BidYearID: bidYearID}
	result, err := s.Engine.Execute(c.Request.Context(), bidYearID, cmd, actor(op), causeFrom(c, "Finalize"), "")
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"event_id": result.AuditEvent.EventID})
}

type rollbackRequest struct {
	TargetEventID int64 `json:"target_event_id" binding:"required"`
}

// Rollback handles POST /bid-years/:id/rollback.
func (s *Server) Rollback(c *gin.Context) {
	op, err := s.currentOperator(c.Request.Context(), c)
	if err != nil {
		respondError(c, err)
		return
	}
	if !authz.Global(op).CanRollback {
		respondError(c, authzDenied())
		return
	}

	var req rollbackRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondValidation(c, err)
		return
	}
	if req.TargetEventID <= 0 {
		respondError(c, apperrors.Validation("INVALID_TARGET_EVENT", "target_event_id must be positive", "target_event_id"))
		return
	}

	bidYearID := c.Param("id")
	result, err := s.Engine.Rollback(c.Request.Context(), bidYearID, req.TargetEventID, actor(op), causeFrom(c, "RollbackToEventId"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"event_id": result.AuditEvent.EventID})
}
