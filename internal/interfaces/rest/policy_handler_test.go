package rest_test

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"

	"github.com/coverline/backend/internal/application/services"
	"github.com/coverline/backend/internal/domain/models"
	"github.com/coverline/backend/internal/interfaces/rest"
	"github.com/coverline/backend/pkg/constants"
	appErrors "github.com/coverline/backend/pkg/errors"
)

// MockPolicyService is a mock implementation of the PolicyService
type MockPolicyService struct {
	mock.Mock
}

func (m *MockPolicyService) PurchasePolicy(ctx context.Context, req *services.PurchasePolicyRequest) (*models.Policy, error) {
	args := m.Called(ctx, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Policy), args.Error(1)
}

func (m *MockPolicyService) GetPolicy(ctx context.Context, policyID string) (*models.Policy, error) {
	args := m.Called(ctx, policyID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Policy), args.Error(1)
}

func (m *MockPolicyService) OnPaymentReceived(ctx context.Context, policyID string, amount float64) error {
	args := m.Called(ctx, policyID, amount)
	return args.Error(0)
}

func (m *MockPolicyService) ApproveInitial(ctx context.Context, policyID string, actor *models.Admin) error {
	args := m.Called(ctx, policyID, actor)
	return args.Error(0)
}

func (m *MockPolicyService) ApproveFinal(ctx context.Context, policyID string, actor *models.Admin) error {
	args := m.Called(ctx, policyID, actor)
	return args.Error(0)
}

func (m *MockPolicyService) Decline(ctx context.Context, policyID string, actor *models.Admin) error {
	args := m.Called(ctx, policyID, actor)
	return args.Error(0)
}

func TestPolicyHandler_Payment(t *testing.T) {
	gin.SetMode(gin.TestMode)

	t.Run("Success", func(t *testing.T) {
		mockService := new(MockPolicyService)
		handler := rest.NewPolicyHandler(mockService, new(MockActorResolver))

		w := httptest.NewRecorder()
		c, _ := gin.CreateTestContext(w)
		c.Params = gin.Params{{Key: "policyId", Value: "pol-1"}}
		c.Request = httptest.NewRequest("POST", "/api/policies/pol-1/payment",
			bytes.NewBufferString(`{"amount": 8000}`))

		mockService.On("OnPaymentReceived", mock.Anything, "pol-1", 8000.0).Return(nil).Once()

		handler.Payment(c)

		assert.Equal(t, http.StatusOK, w.Code)
		mockService.AssertExpectations(t)
	})

	t.Run("Payment Not Required", func(t *testing.T) {
		mockService := new(MockPolicyService)
		handler := rest.NewPolicyHandler(mockService, new(MockActorResolver))

		w := httptest.NewRecorder()
		c, _ := gin.CreateTestContext(w)
		c.Params = gin.Params{{Key: "policyId", Value: "pol-1"}}
		c.Request = httptest.NewRequest("POST", "/api/policies/pol-1/payment",
			bytes.NewBufferString(`{"amount": 8000}`))

		mockService.On("OnPaymentReceived", mock.Anything, "pol-1", 8000.0).
			Return(appErrors.NewInvalidStateError("policy", constants.PolicyStatusActive, "initial payment not required")).Once()

		handler.Payment(c)

		assert.Equal(t, http.StatusConflict, w.Code)
		mockService.AssertExpectations(t)
	})
}

func TestPolicyHandler_ApproveFinal(t *testing.T) {
	gin.SetMode(gin.TestMode)

	t.Run("Success", func(t *testing.T) {
		mockService := new(MockPolicyService)
		mockActors := new(MockActorResolver)
		handler := rest.NewPolicyHandler(mockService, mockActors)

		w := httptest.NewRecorder()
		c, _ := gin.CreateTestContext(w)
		c.Params = gin.Params{{Key: "policyId", Value: "pol-1"}}
		setActor(c, "adm-2", constants.RoleSecurityOfficer)
		c.Request = httptest.NewRequest("POST", "/api/policies/pol-1/approve/final", nil)

		admin := &models.Admin{ID: "adm-2", Role: constants.RoleSecurityOfficer}
		mockActors.On("GetAdmin", mock.Anything, "adm-2").Return(admin, nil).Once()
		mockService.On("ApproveFinal", mock.Anything, "pol-1", admin).Return(nil).Once()

		handler.ApproveFinal(c)

		assert.Equal(t, http.StatusOK, w.Code)
		mockService.AssertExpectations(t)
	})

	t.Run("Four Eyes Violation", func(t *testing.T) {
		mockService := new(MockPolicyService)
		mockActors := new(MockActorResolver)
		handler := rest.NewPolicyHandler(mockService, mockActors)

		w := httptest.NewRecorder()
		c, _ := gin.CreateTestContext(w)
		c.Params = gin.Params{{Key: "policyId", Value: "pol-1"}}
		setActor(c, "adm-1", constants.RoleSecurityOfficer)
		c.Request = httptest.NewRequest("POST", "/api/policies/pol-1/approve/final", nil)

		admin := &models.Admin{ID: "adm-1", Role: constants.RoleSecurityOfficer}
		mockActors.On("GetAdmin", mock.Anything, "adm-1").Return(admin, nil).Once()
		mockService.On("ApproveFinal", mock.Anything, "pol-1", admin).
			Return(appErrors.NewForbiddenError("four-eyes", "final approver must differ from initial approver")).Once()

		handler.ApproveFinal(c)

		assert.Equal(t, http.StatusForbidden, w.Code)
		mockService.AssertExpectations(t)
	})
}
