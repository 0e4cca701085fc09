package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/fredsystems/zabbid/internal/authz"
	"github.com/fredsystems/zabbid/internal/domain"
)

type registerUserRequest struct {
	AreaID                 string  `json:"area_id" binding:"required"`
	Initials               string  `json:"initials" binding:"required"`
	Name                   string  `json:"name" binding:"required"`
	UserType               string  `json:"user_type" binding:"required"`
	Crew                   *int    `json:"crew"`
	EODFAADate             string  `json:"eod_faa_date" binding:"required"`
	ServiceComputationDate string  `json:"service_computation_date" binding:"required"`
	NATCABUDate            string  `json:"natca_bu_date"`
	CumulativeNATCABUDate  string  `json:"cumulative_natca_bu_date"`
	LotteryValue           *float64 `json:"lottery_value"`
}

func parseOptionalDate(raw string) (time.Time, error) {
	if raw == "" {
		return time.Time{}, nil
	}
	return time.Parse("2006-01-02", raw)
}

// RegisterUser handles POST /bid-years/:id/users.
func (s *Server) RegisterUser(c *gin.Context) {
	op, err := s.currentOperator(c.Request.Context(), c)
	if err != nil {
		respondError(c, err)
		return
	}
	bidYearID := c.Param("id")
	state, err := s.Store.LoadBidYearState(c.Request.Context(), bidYearID)
	if err != nil {
		respondError(c, err)
		return
	}
	if !authz.ForUser(op, state.BidYear.LifecycleState).CanEdit {
		respondError(c, authzDenied())
		return
	}

	var req registerUserRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondValidation(c, err)
		return
	}
	eodFAA, err := parseOptionalDate(req.EODFAADate)
	if err != nil {
		respondValidation(c, err)
		return
	}
	scd, err := parseOptionalDate(req.ServiceComputationDate)
	if err != nil {
		respondValidation(c, err)
		return
	}
	natcaBU, err := parseOptionalDate(req.NATCABUDate)
	if err != nil {
		respondValidation(c, err)
		return
	}
	cumulativeNatcaBU, err := parseOptionalDate(req.CumulativeNATCABUDate)
	if err != nil {
		respondValidation(c, err)
		return
	}

	cmd := domain.RegisterUser{
		AreaID:   req.AreaID,
		Initials: req.Initials,
		Name:     req.Name,
		UserType: req.UserType,
		Crew:     req.Crew,
		Seniority: domain.Seniority{
			EODFAADate:             eodFAA,
			ServiceComputationDate: scd,
			NATCABUDate:            natcaBU,
			CumulativeNATCABUDate:  cumulativeNatcaBU,
			LotteryValue:           req.LotteryValue,
		},
	}
	result, err := s.Engine.Execute(c.Request.Context(), bidYearID, cmd, actor(op), causeFrom(c, "RegisterUser"), "")
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"event_id": result.AuditEvent.EventID})
}

// ListUsers handles GET /bid-years/:id/users.
func (s *Server) ListUsers(c *gin.Context) {
	state, err := s.Store.LoadBidYearState(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	users := make([]*domain.User, 0, len(state.Users))
	for _, u := range state.Users {
		users = append(users, u)
	}
	c.JSON(http.StatusOK, gin.H{"users": users})
}

type updateUserRequest struct {
	AreaID   *string `json:"area_id"`
	Name     *string `json:"name"`
	UserType *string `json:"user_type"`
	Crew     *int    `json:"crew"`
}

// UpdateUser handles PATCH /bid-years/:id/users/:user_id.
func (s *Server) UpdateUser(c *gin.Context) {
	op, err := s.currentOperator(c.Request.Context(), c)
	if err != nil {
		respondError(c, err)
		return
	}
	bidYearID := c.Param("id")
	state, err := s.Store.LoadBidYearState(c.Request.Context(), bidYearID)
	if err != nil {
		respondError(c, err)
		return
	}
	if !authz.ForUser(op, state.BidYear.LifecycleState).CanEdit {
		respondError(c, authzDenied())
		return
	}

	var req updateUserRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondValidation(c, err)
		return
	}

	cmd := domain.UpdateUser{
		UserID:   c.Param("user_id"),
		AreaID:   req.AreaID,
		Name:     req.Name,
		UserType: req.UserType,
		Crew:     req.Crew,
	}
	result, err := s.Engine.Execute(c.Request.Context(), bidYearID, cmd, actor(op), causeFrom(c, "UpdateUser"), "")
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"event_id": result.AuditEvent.EventID})
}

type updateUserParticipationRequest struct {
	ExcludedFromBidding          *bool `json:"excluded_from_bidding"`
	ExcludedFromLeaveCalculation *bool `json:"excluded_from_leave_calculation"`
	NoBidReviewed                *bool `json:"no_bid_reviewed"`
}

// UpdateUserParticipation handles PATCH /bid-years/:id/users/:user_id/participation.
func (s *Server) UpdateUserParticipation(c *gin.Context) {
	op, err := s.currentOperator(c.Request.Context(), c)
	if err != nil {
		respondError(c, err)
		return
	}
	bidYearID := c.Param("id")
	state, err := s.Store.LoadBidYearState(c.Request.Context(), bidYearID)
	if err != nil {
		respondError(c, err)
		return
	}
	caps := authz.ForUser(op, state.BidYear.LifecycleState)
	if !caps.CanEdit && !caps.CanMarkNoBidReviewed {
		respondError(c, authzDenied())
		return
	}

	var req updateUserParticipationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondValidation(c, err)
		return
	}

	cmd := domain.UpdateUserParticipation{
		UserID:                       c.Param("user_id"),
		ExcludedFromBidding:          req.ExcludedFromBidding,
		ExcludedFromLeaveCalculation: req.ExcludedFromLeaveCalculation,
		NoBidReviewed:                req.NoBidReviewed,
	}
	result, err := s.Engine.Execute(c.Request.Context(), bidYearID, cmd, actor(op), causeFrom(c, "UpdateUserParticipation"), "")
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"event_id": result.AuditEvent.EventID})
}
