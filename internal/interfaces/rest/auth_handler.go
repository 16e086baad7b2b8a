package rest

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/coverline/backend/internal/application/services"
)

type AuthHandler struct {
	svc *services.AuthService
}

func NewAuthHandler(svc *services.AuthService) *AuthHandler {
	return &AuthHandler{svc: svc}
}

// LoginRequest represents login request body
type LoginRequest struct {
	Email    string `json:"email" binding:"required"`
	Password string `json:"password" binding:"required"`
}

// LoginResponse represents login response
type LoginResponse struct {
	Success   bool                   `json:"success"`
	Token     string                 `json:"token,omitempty"`
	Admin     map[string]interface{} `json:"admin,omitempty"`
	ExpiresAt string                 `json:"expires_at,omitempty"`
}

// Login handles POST /api/auth/login
func (h *AuthHandler) Login(c *gin.Context) {
	var req LoginRequest
	if !BindJSON(c, &req) {
		return
	}

	token, admin, err := h.svc.Login(c.Request.Context(), req.Email, req.Password)
	if err != nil {
		RespondAppError(c, err)
		return
	}

	c.JSON(http.StatusOK, LoginResponse{
		Success: true,
		Token:   token,
		Admin: map[string]interface{}{
			"id":    admin.ID,
			"name":  admin.Name,
			"email": admin.Email,
			"role":  admin.Role,
		},
		ExpiresAt: time.Now().Add(24 * time.Hour).Format(time.RFC3339),
	})
}

// GetMe handles GET /api/auth/me
func (h *AuthHandler) GetMe(c *gin.Context) {
	actor, ok := GetActorFromContext(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"message": "Actor not found"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"actor": gin.H{
			"id":    actor.ID,
			"name":  actor.Name,
			"email": actor.Email,
			"role":  actor.Role,
		},
	})
}
