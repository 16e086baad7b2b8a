package rest

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/coverline/backend/internal/application/services"
	"github.com/coverline/backend/internal/domain/models"
	appErrors "github.com/coverline/backend/pkg/errors"
)

// ClaimService defines the interface for claim operations
type ClaimService interface {
	FileClaim(ctx context.Context, req *services.FileClaimRequest) (*models.Claim, error)
	GetClaim(ctx context.Context, claimID string) (*models.Claim, error)
	AdvanceManualStep(ctx context.Context, claimID, resultingStatus string, actor *models.Admin) error
	OverdueReport(ctx context.Context) ([]*models.OverdueStep, error)
}

// ActorResolver loads the full admin record behind a session
type ActorResolver interface {
	GetAdmin(ctx context.Context, adminID string) (*models.Admin, error)
}

// ClaimHandler handles claim API endpoints
type ClaimHandler struct {
	svc    ClaimService
	actors ActorResolver
}

// NewClaimHandler creates a new ClaimHandler
func NewClaimHandler(svc ClaimService, actors ActorResolver) *ClaimHandler {
	return &ClaimHandler{svc: svc, actors: actors}
}

// resolveAdmin maps the session actor to its admin record. Responds with
// 401/404 itself when the actor cannot be resolved.
func resolveAdmin(c *gin.Context, actors ActorResolver) (*models.Admin, bool) {
	actor, ok := GetActorFromContext(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"message": "Actor not found"})
		return nil, false
	}
	admin, err := actors.GetAdmin(c.Request.Context(), actor.ID)
	if err != nil {
		RespondAppError(c, err)
		return nil, false
	}
	return admin, true
}

// File handles POST /api/claims
func (h *ClaimHandler) File(c *gin.Context) {
	var req services.FileClaimRequest
	if !BindJSON(c, &req) {
		return
	}

	claim, err := h.svc.FileClaim(c.Request.Context(), &req)
	if err != nil {
		RespondAppError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{"claim": claim})
}

// Get handles GET /api/claims/:claimId
func (h *ClaimHandler) Get(c *gin.Context) {
	claimID := c.Param("claimId")
	HandleGetEnvelope(c, "claim", func() (interface{}, error) {
		return h.svc.GetClaim(c.Request.Context(), claimID)
	})
}

// ManualStepRequest carries an admin's decision for the paused manual step
type ManualStepRequest struct {
	Status string `json:"status" binding:"required"`
}

// CompleteManualStep handles POST /api/claims/:claimId/steps/complete
func (h *ClaimHandler) CompleteManualStep(c *gin.Context) {
	claimID := c.Param("claimId")

	admin, ok := resolveAdmin(c, h.actors)
	if !ok {
		return
	}

	var req ManualStepRequest
	if !BindJSON(c, &req) {
		return
	}

	HandleActionEnvelope(c, "Manual step completed", func() error {
		return h.svc.AdvanceManualStep(c.Request.Context(), claimID, req.Status, admin)
	})
}

// OverdueReport handles GET /api/claims/reports/overdue
func (h *ClaimHandler) OverdueReport(c *gin.Context) {
	HandleGetEnvelope(c, "overdue", func() (interface{}, error) {
		rows, err := h.svc.OverdueReport(c.Request.Context())
		if err != nil {
			return nil, appErrors.NewEngineError("overdue report failed", err)
		}
		if rows == nil {
			rows = []*models.OverdueStep{}
		}
		return rows, nil
	})
}
