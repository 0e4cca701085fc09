package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/fredsystems/zabbid/internal/authz"
	"github.com/fredsystems/zabbid/internal/domain"
)

type createAreaRequest struct {
	AreaCode string `json:"area_code" binding:"required"`
	AreaName string `json:"area_name" binding:"required"`
}

// CreateArea handles POST /bid-years/:id/areas.
func (s *Server) CreateArea(c *gin.Context) {
	op, err := s.currentOperator(c.Request.Context(), c)
	if err != nil {
		respondError(c, err)
		return
	}
	if !authz.Global(op).CanCreateBidYear {
		respondError(c, authzDenied())
		return
	}

	var req createAreaRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondValidation(c, err)
		return
	}

	bidYearID := c.Param("id")
	cmd := domain.CreateArea{BidYearID: bidYearID, AreaCode: req.AreaCode, AreaName: req.AreaName}
	result, err := s.Engine.CreateArea(c.Request.Context(), bidYearID, cmd, actor(op), causeFrom(c, "CreateArea"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{
		"area_id":  result.CreatedID,
		"event_id": result.AuditEvent.EventID,
	})
}

// ListAreas handles GET /bid-years/:id/areas.
func (s *Server) ListAreas(c *gin.Context) {
	state, err := s.Store.LoadBidYearState(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	areas := make([]*domain.Area, 0, len(state.Areas))
	for _, a := range state.Areas {
		areas = append(areas, a)
	}
	c.JSON(http.StatusOK, gin.H{"areas": areas})
}

type updateAreaRequest struct {
	AreaName          *string `json:"area_name"`
	ExpectedUserCount *int    `json:"expected_user_count"`
}

// UpdateArea handles PATCH /bid-years/:id/areas/:area_id.
func (s *Server) UpdateArea(c *gin.Context) {
	op, err := s.currentOperator(c.Request.Context(), c)
	if err != nil {
		respondError(c, err)
		return
	}
	if !authz.Global(op).CanCreateBidYear {
		respondError(c, authzDenied())
		return
	}

	var req updateAreaRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondValidation(c, err)
		return
	}

	bidYearID := c.Param("id")
	cmd := domain.UpdateArea{AreaID: c.Param("area_id"), AreaName: req.AreaName, ExpectedUserCount: req.ExpectedUserCount}
	result, err := s.Engine.Execute(c.Request.Context(), bidYearID, cmd, actor(op), causeFrom(c, "UpdateArea"), "")
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"event_id": result.AuditEvent.EventID})
}

type assignAreaRoundGroupRequest struct {
	RoundGroupID string `json:"round_group_id" binding:"required"`
}

// AssignAreaRoundGroup handles PUT /bid-years/:id/areas/:area_id/round-group.
func (s *Server) AssignAreaRoundGroup(c *gin.Context) {
	op, err := s.currentOperator(c.Request.Context(), c)
	if err != nil {
		respondError(c, err)
		return
	}
	if !authz.Global(op).CanManageRounds {
		respondError(c, authzDenied())
		return
	}

	var req assignAreaRoundGroupRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondValidation(c, err)
		return
	}

	bidYearID := c.Param("id")
	cmd := domain.AssignAreaRoundGroup{AreaID: c.Param("area_id"), RoundGroupID: req.RoundGroupID}
	result, err := s.Engine.Execute(c.Request.Context(), bidYearID, cmd, actor(op), causeFrom(c, "AssignAreaRoundGroup"), "")
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"event_id": result.AuditEvent.EventID})
}

type setExpectedUserCountRequest struct {
	Count int `json:"count" binding:"required"`
}

// SetExpectedUserCount handles PUT /bid-years/:id/areas/:area_id/expected-user-count.
func (s *Server) SetExpectedUserCount(c *gin.Context) {
	op, err := s.currentOperator(c.Request.Context(), c)
	if err != nil {
		respondError(c, err)
		return
	}
	if !authz.Global(op).CanCreateBidYear {
		respondError(c, authzDenied())
		return
	}

	var req setExpectedUserCountRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondValidation(c, err)
		return
	}

	bidYearID := c.Param("id")
	cmd := domain.SetExpectedUserCount{AreaID: c.Param("area_id"), Count: req.Count}
	result, err := s.Engine.Execute(c.Request.Context(), bidYearID, cmd, actor(op), causeFrom(c, "SetExpectedUserCount"), "")
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"event_id": result.AuditEvent.EventID})
}
