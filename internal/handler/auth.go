package handler

import (
	"net/http"
	"time"

	"strategist/internal/logger"
	"strategist/internal/middleware"
	"strategist/internal/model"
	"strategist/internal/service"
	"strategist/pkg/advice"

	"github.com/gin-gonic/gin"
)

type AuthHandler struct {
	auth   *service.AuthService
	tokens *middleware.Tokens
}

func NewAuthHandler(auth *service.AuthService, tokens *middleware.Tokens) *AuthHandler {
	return &AuthHandler{auth: auth, tokens: tokens}
}

// Unlock trades the shared password for a session token.
func (h *AuthHandler) Unlock(c *gin.Context) {
	var req model.UnlockRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, model.ErrorResponse{Error: "invalid request", Code: advice.CodeBadRequest})
		return
	}

	if err := h.auth.Check(req.Password); err != nil {
		logger.Warn("unlock.failed", "request_id", c.GetString(middleware.ContextRequestID))
		c.JSON(http.StatusUnauthorized, model.ErrorResponse{Error: advice.Detail(err), Code: advice.Code(err)})
		return
	}

	token, exp, err := h.tokens.Issue()
	if err != nil {
		logger.Error("unlock.issue failed", "err", err)
		c.JSON(http.StatusInternalServerError, model.ErrorResponse{Error: "could not issue token", Code: advice.CodeInternal})
		return
	}
	logger.Info("unlock.ok", "request_id", c.GetString(middleware.ContextRequestID), "expires_at", exp)
	c.JSON(http.StatusOK, model.UnlockResponse{Token: token, ExpiresAt: exp.UTC().Format(time.RFC3339)})
}
