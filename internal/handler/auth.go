package handler

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/domain-sentry/backend/internal/model"
	"github.com/domain-sentry/backend/internal/service"
)

// authService - 서비스 인터페이스
type authService interface {
	Login(ctx context.Context, req model.LoginRequest) (string, *model.AuthUser, error)
}

// AuthHandler - 로그인/세션 핸들러
type AuthHandler struct {
	svc       authService
	accessTTL time.Duration
}

func NewAuthHandler(svc authService, accessTTL time.Duration) *AuthHandler {
	return &AuthHandler{svc: svc, accessTTL: accessTTL}
}

// Login - POST /api/auth/login
func (h *AuthHandler) Login(c *gin.Context) {
	var req model.LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "login_id and password are required"})
		return
	}

	token, _, err := h.svc.Login(c.Request.Context(), req)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrInvalidInput):
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		case errors.Is(err, service.ErrUnauthorized):
			c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid credentials"})
		default:
			c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
		}
		return
	}

	c.JSON(http.StatusOK, model.AuthLoginResponse{
		Status:      "success",
		AccessToken: token,
		ExpiresIn:   int64(h.accessTTL.Seconds()),
	})
}

// Me - GET /api/auth/me (AuthMiddleware 뒤에서만)
func (h *AuthHandler) Me(c *gin.Context) {
	user := GetAuthUser(c)
	if user == nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}
	c.JSON(http.StatusOK, model.AuthMeResponse{
		OperatorID: user.OperatorID,
		LoginID:    user.LoginID,
	})
}
