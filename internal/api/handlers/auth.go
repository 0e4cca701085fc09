package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

type bootstrapRequest struct {
	Credential  string `json:"credential" binding:"required"`
	LoginName   string `json:"login_name" binding:"required"`
	DisplayName string `json:"display_name" binding:"required"`
	Password    string `json:"password" binding:"required,min=8"`
}

// Bootstrap handles POST /auth/bootstrap: creates the first Admin operator,
// gated by authn.BootstrapCredential, and is rejected once any operator
// already exists.
func (s *Server) Bootstrap(c *gin.Context) {
	var req bootstrapRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondValidation(c, err)
		return
	}

	op, err := s.Authn.Bootstrap(c.Request.Context(), req.Credential, req.LoginName, req.DisplayName, req.Password)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"operator_id": op.OperatorID,
		"login_name":  op.LoginName,
		"role":        op.Role,
	})
}

type loginRequest struct {
	LoginName string `json:"login_name" binding:"required"`
	Password  string `json:"password" binding:"required"`
}

// Login handles POST /auth/login.
func (s *Server) Login(c *gin.Context) {
	var req loginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondValidation(c, err)
		return
	}

	token, op, err := s.Authn.Login(c.Request.Context(), req.LoginName, req.Password)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"token":       token,
		"operator_id": op.OperatorID,
		"login_name":  op.LoginName,
		"role":        op.Role,
	})
}

// Logout handles POST /auth/logout: revokes the caller's own session.
func (s *Server) Logout(c *gin.Context) {
	jti := c.GetString("jti")
	if jti == "" {
		c.JSON(http.StatusNoContent, nil)
		return
	}
	if err := s.Authn.Logout(c.Request.Context(), jti); err != nil {
		respondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// Me handles GET /auth/me: returns the authenticated operator's profile.
func (s *Server) Me(c *gin.Context) {
	op, err := s.currentOperator(c.Request.Context(), c)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"operator_id":  op.OperatorID,
		"login_name":   op.LoginName,
		"display_name": op.DisplayName,
		"role":         op.Role,
	})
}
