package rest

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/coverline/backend/internal/application/services"
	"github.com/coverline/backend/internal/domain/models"
)

// PolicyService defines the interface for policy lifecycle operations
type PolicyService interface {
	PurchasePolicy(ctx context.Context, req *services.PurchasePolicyRequest) (*models.Policy, error)
	GetPolicy(ctx context.Context, policyID string) (*models.Policy, error)
	OnPaymentReceived(ctx context.Context, policyID string, amount float64) error
	ApproveInitial(ctx context.Context, policyID string, actor *models.Admin) error
	ApproveFinal(ctx context.Context, policyID string, actor *models.Admin) error
	Decline(ctx context.Context, policyID string, actor *models.Admin) error
}

// PolicyHandler handles policy API endpoints
type PolicyHandler struct {
	svc    PolicyService
	actors ActorResolver
}

// NewPolicyHandler creates a new PolicyHandler
func NewPolicyHandler(svc PolicyService, actors ActorResolver) *PolicyHandler {
	return &PolicyHandler{svc: svc, actors: actors}
}

// Purchase handles POST /api/policies
func (h *PolicyHandler) Purchase(c *gin.Context) {
	var req services.PurchasePolicyRequest
	if !BindJSON(c, &req) {
		return
	}

	policy, err := h.svc.PurchasePolicy(c.Request.Context(), &req)
	if err != nil {
		RespondAppError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{"policy": policy})
}

// Get handles GET /api/policies/:policyId
func (h *PolicyHandler) Get(c *gin.Context) {
	policyID := c.Param("policyId")
	HandleGetEnvelope(c, "policy", func() (interface{}, error) {
		return h.svc.GetPolicy(c.Request.Context(), policyID)
	})
}

// PaymentRequest records the initial premium payment
type PaymentRequest struct {
	Amount float64 `json:"amount" binding:"required"`
}

// Payment handles POST /api/policies/:policyId/payment
func (h *PolicyHandler) Payment(c *gin.Context) {
	policyID := c.Param("policyId")

	var req PaymentRequest
	if !BindJSON(c, &req) {
		return
	}

	HandleActionEnvelope(c, "Payment recorded", func() error {
		return h.svc.OnPaymentReceived(c.Request.Context(), policyID, req.Amount)
	})
}

// ApproveInitial handles POST /api/policies/:policyId/approve/initial
func (h *PolicyHandler) ApproveInitial(c *gin.Context) {
	policyID := c.Param("policyId")

	admin, ok := resolveAdmin(c, h.actors)
	if !ok {
		return
	}

	HandleActionEnvelope(c, "Initial approval recorded", func() error {
		return h.svc.ApproveInitial(c.Request.Context(), policyID, admin)
	})
}

// ApproveFinal handles POST /api/policies/:policyId/approve/final
func (h *PolicyHandler) ApproveFinal(c *gin.Context) {
	policyID := c.Param("policyId")

	admin, ok := resolveAdmin(c, h.actors)
	if !ok {
		return
	}

	HandleActionEnvelope(c, "Final approval recorded", func() error {
		return h.svc.ApproveFinal(c.Request.Context(), policyID, admin)
	})
}

// Decline handles POST /api/policies/:policyId/decline
func (h *PolicyHandler) Decline(c *gin.Context) {
	policyID := c.Param("policyId")

	admin, ok := resolveAdmin(c, h.actors)
	if !ok {
		return
	}

	HandleActionEnvelope(c, "Policy declined", func() error {
		return h.svc.Decline(c.Request.Context(), policyID, admin)
	})
}
