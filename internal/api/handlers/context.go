package handlers

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/fredsystems/zabbid/internal/domain"
	"github.com/fredsystems/zabbid/internal/pkg/apperrors"
)

// currentOperator loads the operator identified by the JWT subject already
// validated by middleware.JWTAuthWithConfig. Every handler that needs to
// authorize a command calls this first.
func (s *Server) currentOperator(ctx context.Context, c *gin.Context) (*domain.Operator, error) {
	operatorID := c.GetString("user_id")
	if operatorID == "" {
		return nil, apperrors.AuthenticationFailed("no authenticated operator on request")
	}
	return s.Store.OperatorByID(ctx, operatorID)
}

// actor builds the domain.Actor recorded on the audit event for op.
func actor(op *domain.Operator) domain.Actor {
	return domain.Actor{
		ID:          op.OperatorID,
		Type:        domain.ActorTypeOperator,
		OperatorID:  op.OperatorID,
		Login:       op.LoginName,
		DisplayName: op.DisplayName,
	}
}

// causeFrom builds a Cause from the request's correlation id plus a short
// human description of what triggered the command.
func causeFrom(c *gin.Context, description string) domain.Cause {
	return domain.Cause{ID: requestID(c), Description: description}
}

func requestID(c *gin.Context) string {
	if v, ok := c.Get("request_id"); ok {
		if s, ok := v.(string); ok {
			return s
		}
	}
	return ""
}

// respondError translates err into the JSON error shape the client expects.
func respondError(c *gin.Context, err error) {
	appErr, ok := apperrors.As(err)
	if !ok {
		appErr = apperrors.Internal("unexpected error", err)
	}
	c.AbortWithStatusJSON(appErr.HTTPStatus(), gin.H{
		"code":    appErr.Code,
		"message": appErr.Message,
		"rule":    appErr.Rule,
		"field":   appErr.Field,
	})
}

// authzDenied builds the standard AuthorizationFailed error for a
// capability check that came back false.
func authzDenied() error {
	return apperrors.AuthorizationFailed("operator lacks the capability required for this action")
}

// respondValidation returns a 400 for a request body that failed struct
// validation (go-playground/validator, wired in via gin's binding tags).
func respondValidation(c *gin.Context, err error) {
	c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{
		"code":    "INVALID_REQUEST",
		"message": err.Error(),
	})
}
