package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/fredsystems/zabbid/internal/authz"
	"github.com/fredsystems/zabbid/internal/csvimport"
)

// PreviewCSV handles POST /bid-years/:id/users/csv-preview, a multipart file
// upload validated row-by-row against the bid year's current state.
func (s *Server) PreviewCSV(c *gin.Context) {
	op, err := s.currentOperator(c.Request.Context(), c)
	if err != nil {
		respondError(c, err)
		return
	}
	if !authz.Global(op).CanImportCSV {
		respondError(c, authzDenied())
		return
	}

	bidYearID := c.Param("id")
	state, err := s.Store.LoadBidYearState(c.Request.Context(), bidYearID)
	if err != nil {
		respondError(c, err)
		return
	}

	file, _, err := c.Request.FormFile("file")
	if err != nil {
		respondValidation(c, err)
		return
	}
	defer file.Close()

	result, err := csvimport.Preview(c.Request.Context(), s.CSVPool, file, state)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

type importCSVRequest struct {
	Rows []csvimport.RowResult `json:"rows" binding:"required"`
}

// ImportCSV handles POST /bid-years/:id/users/csv-import. The client sends
// back the previously previewed rows (re-validated server-side) it wants
// committed; every Valid row among them is registered independently.
func (s *Server) ImportCSV(c *gin.Context) {
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

	var req importCSVRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondValidation(c, err)
		return
	}

	preview := &csvimport.PreviewResult{Rows: req.Rows}
	results := csvimport.Import(c.Request.Context(), s.Engine, bidYearID, preview, nil, actor(op))
	c.JSON(http.StatusOK, gin.H{"rows": results})
}
