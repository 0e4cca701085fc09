package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/fredsystems/zabbid/internal/authz"
	"github.com/fredsystems/zabbid/internal/domain"
)

func (s *Server) requireManageRounds(c *gin.Context) (*domain.Operator, bool) {
	op, err := s.currentOperator(c.Request.Context(), c)
	if err != nil {
		respondError(c, err)
		return nil, false
	}
	if !authz.Global(op).CanManageRounds {
		respondError(c, authzDenied())
		return nil, false
	}
	return op, true
}

type createRoundGroupRequest struct {
	Name string `json:"name" binding:"required"`
}

// CreateRoundGroup handles POST /bid-years/:id/round-groups.
func (s *Server) CreateRoundGroup(c *gin.Context) {
	op, ok := s.requireManageRounds(c)
	if !ok {
		return
	}
	var req createRoundGroupRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondValidation(c, err)
		return
	}

	bidYearID := c.Param("id")
	cmd := domain.CreateRoundGroup{BidYearID: bidYearID, Name: req.Name}
	result, err := s.Engine.Execute(c.Request.Context(), bidYearID, cmd, actor(op), causeFrom(c, "CreateRoundGroup"), "")
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"event_id": result.AuditEvent.EventID})
}

// ListRoundGroups handles GET /bid-years/:id/round-groups.
func (s *Server) ListRoundGroups(c *gin.Context) {
	state, err := s.Store.LoadBidYearState(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	groups := make([]*domain.RoundGroup, 0, len(state.RoundGroups))
	for _, g := range state.RoundGroups {
		groups = append(groups, g)
	}
	c.JSON(http.StatusOK, gin.H{"round_groups": groups})
}

type updateRoundGroupRequest struct {
	Name string `json:"name" binding:"required"`
}

// UpdateRoundGroup handles PATCH /bid-years/:id/round-groups/:round_group_id.
func (s *Server) UpdateRoundGroup(c *gin.Context) {
	op, ok := s.requireManageRounds(c)
	if !ok {
		return
	}
	var req updateRoundGroupRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondValidation(c, err)
		return
	}

	bidYearID := c.Param("id")
	cmd := domain.UpdateRoundGroup{RoundGroupID: c.Param("round_group_id"), Name: req.Name}
	result, err := s.Engine.Execute(c.Request.Context(), bidYearID, cmd, actor(op), causeFrom(c, "UpdateRoundGroup"), "")
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"event_id": result.AuditEvent.EventID})
}

// DeleteRoundGroup handles DELETE /bid-years/:id/round-groups/:round_group_id.
func (s *Server) DeleteRoundGroup(c *gin.Context) {
	op, ok := s.requireManageRounds(c)
	if !ok {
		return
	}
	bidYearID := c.Param("id")
	cmd := domain.DeleteRoundGroup{RoundGroupID: c.Param("round_group_id")}
	result, err := s.Engine.Execute(c.Request.Context(), bidYearID, cmd, actor(op), causeFrom(c, "DeleteRoundGroup"), "")
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"event_id": result.AuditEvent.EventID})
}

type createRoundRequest struct {
	RoundNumber  int  `json:"round_number" binding:"required"`
	SlotLimit    *int `json:"slot_limit"`
	GroupLimit   *int `json:"group_limit"`
	HourLimit    *int `json:"hour_limit"`
	IsHoliday    bool `json:"is_holiday"`
	AllowOverbid bool `json:"allow_overbid"`
}

// CreateRound handles POST /bid-years/:id/round-groups/:round_group_id/rounds.
func (s *Server) CreateRound(c *gin.Context) {
	op, ok := s.requireManageRounds(c)
	if !ok {
		return
	}
	var req createRoundRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondValidation(c, err)
		return
	}

	bidYearID := c.Param("id")
	cmd := domain.CreateRound{
		RoundGroupID: c.Param("round_group_id"),
		RoundNumber:  req.RoundNumber,
		SlotLimit:    req.SlotLimit,
		GroupLimit:   req.GroupLimit,
		HourLimit:    req.HourLimit,
		IsHoliday:    req.IsHoliday,
		AllowOverbid: req.AllowOverbid,
	}
	result, err := s.Engine.Execute(c.Request.Context(), bidYearID, cmd, actor(op), causeFrom(c, "CreateRound"), "")
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"event_id": result.AuditEvent.EventID})
}

type updateRoundRequest struct {
	SlotLimit    *int  `json:"slot_limit"`
	GroupLimit   *int  `json:"group_limit"`
	HourLimit    *int  `json:"hour_limit"`
	IsHoliday    *bool `json:"is_holiday"`
	AllowOverbid *bool `json:"allow_overbid"`
}

// UpdateRound handles PATCH /bid-years/:id/rounds/:round_id.
func (s *Server) UpdateRound(c *gin.Context) {
	op, ok := s.requireManageRounds(c)
	if !ok {
		return
	}
	var req updateRoundRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondValidation(c, err)
		return
	}

	bidYearID := c.Param("id")
	cmd := domain.UpdateRound{
		RoundID:      c.Param("round_id"),
		SlotLimit:    req.SlotLimit,
		GroupLimit:   req.GroupLimit,
		HourLimit:    req.HourLimit,
		IsHoliday:    req.IsHoliday,
		AllowOverbid: req.AllowOverbid,
	}
	result, err := s.Engine.Execute(c.Request.Context(), bidYearID, cmd, actor(op), causeFrom(c, "UpdateRound"), "")
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"event_id": result.AuditEvent.EventID})
}

// DeleteRound handles DELETE /bid-years/:id/rounds/:round_id.
func (s *Server) DeleteRound(c *gin.Context) {
	op, ok := s.requireManageRounds(c)
	if !ok {
		return
	}
	bidYearID := c.Param("id")
	cmd := domain.DeleteRound{RoundID: c.Param("round_id")}
	result, err := s.Engine.Execute(c.Request.Context(), bidYearID, cmd, actor(op), causeFrom(c, "DeleteRound"), "")
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"event_id": result.AuditEvent.EventID})
}
