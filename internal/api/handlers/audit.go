package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/fredsystems/zabbid/internal/authz"
)

// ListAuditEvents handles GET /bid-years/:id/audit-events.
func (s *Server) ListAuditEvents(c *gin.Context) {
	op, err := s.currentOperator(c.Request.Context(), c)
	if err != nil {
		respondError(c, err)
		return
	}
	if !authz.Global(op).CanViewAuditLog {
		respondError(c, authzDenied())
		return
	}

	events, err := s.Store.EventsForBidYear(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"events": events})
}
