package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/fredsystems/zabbid/internal/authz"
	"github.com/fredsystems/zabbid/internal/domain"
)

type createBidYearRequest struct {
	Year          int    `json:"year" binding:"required"`
	StartDate     string `json:"start_date" binding:"required"` // YYYY-MM-DD
	NumPayPeriods int    `json:"num_pay_periods" binding:"required"`
	Label         string `json:"label"`
	Notes         string `json:"notes"`
}

// CreateBidYear handles POST /bid-years.
func (s *Server) CreateBidYear(c *gin.Context) {
	op, err := s.currentOperator(c.Request.Context(), c)
	if err != nil {
		respondError(c, err)
		return
	}
	if !authz.Global(op).CanCreateBidYear {
		respondError(c, authzDenied())
		return
	}

	var req createBidYearRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondValidation(c, err)
		return
	}
	startDate, err := time.Parse("2006-01-02", req.StartDate)
	if err != nil {
		respondValidation(c, err)
		return
	}

	cmd := domain.CreateBidYear{
		Year:          req.Year,
		StartDate:     startDate,
		NumPayPeriods: req.NumPayPeriods,
		Label:         req.Label,
		Notes:         req.Notes,
	}
	result, err := s.Engine.CreateBidYear(c.Request.Context(), cmd, actor(op), causeFrom(c, "CreateBidYear"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{
		"bid_year_id": result.CreatedID,
		"event_id":    result.AuditEvent.EventID,
	})
}

// ListBidYears handles GET /bid-years.
func (s *Server) ListBidYears(c *gin.Context) {
	years, err := s.Store.ListBidYears(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"bid_years": years})
}

// GetBidYear handles GET /bid-years/:id.
func (s *Server) GetBidYear(c *gin.Context) {
	state, err := s.Store.LoadBidYearState(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, state.BidYear)
}

type updateBidYearMetadataRequest struct {
	Label *string `json:"label"`
	Notes *string `json:"notes"`
}

// UpdateBidYearMetadata handles PATCH /bid-years/:id.
func (s *Server) UpdateBidYearMetadata(c *gin.Context) {
	op, err := s.currentOperator(c.Request.Context(), c)
	if err != nil {
		respondError(c, err)
		return
	}
	if !authz.Global(op).CanCreateBidYear {
		respondError(c, authzDenied())
		return
	}

	var req updateBidYearMetadataRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondValidation(c, err)
		return
	}

	bidYearID := c.Param("id")
	cmd := domain.UpdateBidYearMetadata{BidYearID: bidYearID, Label: req.Label, Notes: req.Notes}
	result, err := s.Engine.Execute(c.Request.Context(), bidYearID, cmd, actor(op), causeFrom(c, "UpdateBidYearMetadata"), "")
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"event_id": result.AuditEvent.EventID})
}

type setBidScheduleRequest struct {
	Timezone        string `json:"timezone" binding:"required"`
	StartDate       string `json:"schedule_start_date" binding:"required"`
	WindowStartTime string `json:"window_start_time" binding:"required"`
	WindowEndTime   string `json:"window_end_time" binding:"required"`
	BiddersPerDay   int    `json:"bidders_per_day" binding:"required"`
}

// SetBidSchedule handles PUT /bid-years/:id/schedule.
func (s *Server) SetBidSchedule(c *gin.Context) {
	op, err := s.currentOperator(c.Request.Context(), c)
	if err != nil {
		respondError(c, err)
		return
	}
	if !authz.Global(op).CanCreateBidYear {
		respondError(c, authzDenied())
		return
	}

	var req setBidScheduleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondValidation(c, err)
		return
	}
	startDate, err := time.Parse("2006-01-02", req.StartDate)
	if err != nil {
		respondValidation(c, err)
		return
	}

	bidYearID := c.Param("id")
	cmd := domain.SetBidSchedule{
		BidYearID: bidYearID,
		Schedule: domain.BidSchedule{
			Timezone:        req.Timezone,
			StartDate:       startDate,
			WindowStartTime: req.WindowStartTime,
			WindowEndTime:   req.WindowEndTime,
			BiddersPerDay:   req.BiddersPerDay,
		},
	}
	result, err := s.Engine.Execute(c.Request.Context(), bidYearID, cmd, actor(op), causeFrom(c, "SetBidSchedule"), "")
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"event_id": result.AuditEvent.EventID})
}

type setExpectedAreaCountRequest struct {
	Count int `json:"count" binding:"required"`
}

// SetExpectedAreaCount handles PUT /bid-years/:id/expected-area-count.
func (s *Server) SetExpectedAreaCount(c *gin.Context) {
	op, err := s.currentOperator(c.Request.Context(), c)
	if err != nil {
		respondError(c, err)
		return
	}
	if !authz.Global(op).CanCreateBidYear {
		respondError(c, authzDenied())
		return
	}

	var req setExpectedAreaCountRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondValidation(c, err)
		return
	}

	bidYearID := c.Param("id")
	cmd := domain.SetExpectedAreaCount{BidYearID: bidYearID, Count: req.Count}
	result, err := s.Engine.Execute(c.Request.Context(), bidYearID, cmd, actor(op), causeFrom(c, "SetExpectedAreaCount"), "")
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"event_id": result.AuditEvent.EventID})
}

// ActivateBidYear handles POST /bid-years/:id/activate.
func (s *Server) ActivateBidYear(c *gin.Context) {
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
	cmd := domain.SetActiveBidYear{BidYearID: bidYearID}
	result, err := s.Engine.Execute(c.Request.Context(), bidYearID, cmd, actor(op), causeFrom(c, "SetActiveBidYear"), "")
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"event_id": result.AuditEvent.EventID})
}
