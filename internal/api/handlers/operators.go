package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/fredsystems/zabbid/internal/authz"
	"github.com/fredsystems/zabbid/internal/domain"
	"github.com/fredsystems/zabbid/internal/pkg/apperrors"
)

// enabledAdminCount counts the currently enabled Admin operators, the
// figure internal/authz.ForOperator needs to enforce the
// last-enabled-admin rule.
func (s *Server) enabledAdminCount(operators []*domain.Operator) int {
	count := 0
	for _, op := range operators {
		if op.Role == domain.RoleAdmin && !op.IsDisabled {
			count++
		}
	}
	return count
}

// ListOperators handles GET /operators.
func (s *Server) ListOperators(c *gin.Context) {
	actorOp, err := s.currentOperator(c.Request.Context(), c)
	if err != nil {
		respondError(c, err)
		return
	}
	if !authz.Global(actorOp).CanManageOperators {
		respondError(c, authzDenied())
		return
	}

	ops, err := s.Store.ListOperators(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"operators": ops})
}

type createOperatorRequest struct {
	LoginName   string `json:"login_name" binding:"required"`
	DisplayName string `json:"display_name" binding:"required"`
	Password    string `json:"password" binding:"required,min=8"`
	Role        string `json:"role" binding:"required"`
}

// CreateOperator handles POST /operators.
func (s *Server) CreateOperator(c *gin.Context) {
	actorOp, err := s.currentOperator(c.Request.Context(), c)
	if err != nil {
		respondError(c, err)
		return
	}
	if !authz.Global(actorOp).CanManageOperators {
		respondError(c, authzDenied())
		return
	}

	var req createOperatorRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondValidation(c, err)
		return
	}
	role := domain.Role(req.Role)
	if role != domain.RoleAdmin && role != domain.RoleBidder {
		respondError(c, apperrors.Validation("INVALID_ROLE", "role must be Admin or Bidder", "role"))
		return
	}

	cost := s.Authn.BcryptCost
	if cost <= 0 {
		cost = bcrypt.DefaultCost
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), cost)
	if err != nil {
		respondError(c, apperrors.Internal("hash password", err))
		return
	}
	id, err := uuid.NewV7()
	if err != nil {
		respondError(c, apperrors.Internal("generate operator id", err))
		return
	}

	newOp := &domain.Operator{
		OperatorID:   id.String(),
		LoginName:    req.LoginName,
		DisplayName:  req.DisplayName,
		PasswordHash: string(hash),
		Role:         role,
		CreatedAt:    time.Now(),
	}
	if err := s.Store.CreateOperator(c.Request.Context(), newOp); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"operator_id": newOp.OperatorID})
}

type updateOperatorRoleRequest struct {
	Role string `json:"role" binding:"required"`
}

// UpdateOperatorRole handles PATCH /operators/:operator_id/role.
func (s *Server) UpdateOperatorRole(c *gin.Context) {
	actorOp, target, ops, ok := s.loadOperatorTarget(c)
	if !ok {
		return
	}
	if !authz.ForOperator(actorOp, target, s.enabledAdminCount(ops)).CanChangeRole {
		respondError(c, authzDenied())
		return
	}

	var req updateOperatorRoleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondValidation(c, err)
		return
	}
	role := domain.Role(req.Role)
	if role != domain.RoleAdmin && role != domain.RoleBidder {
		respondError(c, apperrors.Validation("INVALID_ROLE", "role must be Admin or Bidder", "role"))
		return
	}

	target.Role = role
	if err := s.Store.UpdateOperator(c.Request.Context(), target); err != nil {
		respondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// DisableOperator handles POST /operators/:operator_id/disable.
func (s *Server) DisableOperator(c *gin.Context) {
	actorOp, target, ops, ok := s.loadOperatorTarget(c)
	if !ok {
		return
	}
	if !authz.ForOperator(actorOp, target, s.enabledAdminCount(ops)).CanDisable {
		respondError(c, authzDenied())
		return
	}

	target.IsDisabled = true
	if err := s.Store.UpdateOperator(c.Request.Context(), target); err != nil {
		respondError(c, err)
		return
	}
	if err := s.Store.DeleteSessionsForOperator(c.Request.Context(), target.OperatorID); err != nil {
		respondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// EnableOperator handles POST /operators/:operator_id/enable.
func (s *Server) EnableOperator(c *gin.Context) {
	actorOp, target, ops, ok := s.loadOperatorTarget(c)
	if !ok {
		return
	}
	if !authz.ForOperator(actorOp, target, s.enabledAdminCount(ops)).CanEnable {
		respondError(c, authzDenied())
		return
	}

	target.IsDisabled = false
	if err := s.Store.UpdateOperator(c.Request.Context(), target); err != nil {
		respondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

type resetPasswordRequest struct {
	Password string `json:"password" binding:"required,min=8"`
}

// ResetOperatorPassword handles POST /operators/:operator_id/reset-password.
func (s *Server) ResetOperatorPassword(c *gin.Context) {
	actorOp, target, ops, ok := s.loadOperatorTarget(c)
	if !ok {
		return
	}
	if !authz.ForOperator(actorOp, target, s.enabledAdminCount(ops)).CanResetPassword {
		respondError(c, authzDenied())
		return
	}

	var req resetPasswordRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondValidation(c, err)
		return
	}

	cost := s.Authn.BcryptCost
	if cost <= 0 {
		cost = bcrypt.DefaultCost
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), cost)
	if err != nil {
		respondError(c, apperrors.Internal("hash password", err))
		return
	}
	target.PasswordHash = string(hash)
	if err := s.Store.UpdateOperator(c.Request.Context(), target); err != nil {
		respondError(c, err)
		return
	}
	if err := s.Store.DeleteSessionsForOperator(c.Request.Context(), target.OperatorID); err != nil {
		respondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (s *Server) loadOperatorTarget(c *gin.Context) (actorOp, target *domain.Operator, all []*domain.Operator, ok bool) {
	actorOp, err := s.currentOperator(c.Request.Context(), c)
	if err != nil {
		respondError(c, err)
		return nil, nil, nil, false
	}
	ops, err := s.Store.ListOperators(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return nil, nil, nil, false
	}
	targetID := c.Param("operator_id")
	for _, op := range ops {
		if op.OperatorID == targetID {
			target = op
			break
		}
	}
	if target == nil {
		respondError(c, apperrors.NotFound("Operator", targetID))
		return nil, nil, nil, false
	}
	return actorOp, target, ops, true
}
