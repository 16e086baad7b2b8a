package services

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/coverline/backend/internal/domain"
	"github.com/coverline/backend/internal/domain/models"
	"github.com/coverline/backend/pkg/constants"
	apperrors "github.com/coverline/backend/pkg/errors"
)

// fakePolicyStore keeps policies in memory with CAS semantics intact
type fakePolicyStore struct {
	policies map[string]*models.Policy
	payments []*models.InitialPayment
}

func newFakePolicyStore() *fakePolicyStore {
	return &fakePolicyStore{policies: make(map[string]*models.Policy)}
}

func (f *fakePolicyStore) Insert(ctx context.Context, policy *models.Policy) error {
	f.policies[policy.ID] = policy
	return nil
}

func (f *fakePolicyStore) Get(ctx context.Context, policyID string) (*models.Policy, error) {
	policy, ok := f.policies[policyID]
	if !ok {
		return nil, apperrors.NewNotFoundError("policy", policyID)
	}
	copied := *policy
	return &copied, nil
}

func (f *fakePolicyStore) GetForUpdate(ctx context.Context, policyID string) (*models.Policy, error) {
	return f.Get(ctx, policyID)
}

func (f *fakePolicyStore) UpdateStatusCAS(ctx context.Context, policyID, from, to string) (bool, error) {
	policy, ok := f.policies[policyID]
	if !ok {
		return false, fmt.Errorf("policy %s not found", policyID)
	}
	if policy.Status != from {
		return false, nil
	}
	policy.Status = to
	return true, nil
}

func (f *fakePolicyStore) SetInitialApproval(ctx context.Context, policyID, approverID string, at time.Time) error {
	policy := f.policies[policyID]
	policy.InitialApproverID = &approverID
	policy.InitialApprovalDate = &at
	return nil
}

func (f *fakePolicyStore) SetFinalApproval(ctx context.Context, policyID, approverID string, at time.Time) error {
	policy := f.policies[policyID]
	policy.FinalApproverID = &approverID
	policy.FinalApprovalDate = &at
	return nil
}

func (f *fakePolicyStore) InsertPayment(ctx context.Context, payment *models.InitialPayment) error {
	f.payments = append(f.payments, payment)
	return nil
}

func (f *fakePolicyStore) ListExpirable(ctx context.Context, cutoff time.Time) ([]*models.Policy, error) {
	var out []*models.Policy
	for _, p := range f.policies {
		if p.Status == constants.PolicyStatusActive && p.EndDate != nil && p.EndDate.Before(cutoff) {
			copied := *p
			out = append(out, &copied)
		}
	}
	return out, nil
}

func newTestPolicyService(store *fakePolicyStore, env *fakeWorkflowEnv) *PolicyService {
	underwriter := domain.NewUnderwriter(domain.DefaultUnderwriterRules())
	return NewPolicyService(env, store, env, underwriter)
}

func (f *fakePolicyStore) seed(id, status string, premium float64, riskScore int) *models.Policy {
	policy := &models.Policy{
		ID:            id,
		CustomerID:    "cust-" + id,
		PremiumAmount: premium,
		Status:        status,
		RiskScore:     riskScore,
	}
	f.policies[id] = policy
	return policy
}

func TestOnPaymentReceivedSmallPremiumApproves(t *testing.T) {
	store := newFakePolicyStore()
	env := newFakeWorkflowEnv()
	store.seed("p1", constants.PolicyStatusAwaitingPayment, 8_000, 2)

	svc := newTestPolicyService(store, env)
	err := svc.OnPaymentReceived(context.Background(), "p1", 8_000)

	require.NoError(t, err)
	assert.Equal(t, constants.PolicyStatusPendingInitial, store.policies["p1"].Status)
	assert.Len(t, store.payments, 1)
}

func TestOnPaymentReceivedHighPremiumDenies(t *testing.T) {
	store := newFakePolicyStore()
	env := newFakeWorkflowEnv()
	store.seed("p1", constants.PolicyStatusAwaitingPayment, 2_000_000, 0)

	svc := newTestPolicyService(store, env)
	err := svc.OnPaymentReceived(context.Background(), "p1", 2_000_000)

	require.NoError(t, err)
	assert.Equal(t, constants.PolicyStatusDeniedUnderwrite, store.policies["p1"].Status)
}

func TestOnPaymentReceivedWrongState(t *testing.T) {
	store := newFakePolicyStore()
	env := newFakeWorkflowEnv()
	store.seed("p1", constants.PolicyStatusActive, 8_000, 0)

	svc := newTestPolicyService(store, env)
	err := svc.OnPaymentReceived(context.Background(), "p1", 8_000)

	require.Error(t, err)
	assert.True(t, apperrors.IsInvalidState(err))
	assert.Contains(t, err.Error(), "initial payment not required")
	// No payment row, no status change
	assert.Empty(t, store.payments)
	assert.Equal(t, constants.PolicyStatusActive, store.policies["p1"].Status)
}

func TestOnPaymentReceivedMidBandUsesRiskScore(t *testing.T) {
	store := newFakePolicyStore()
	env := newFakeWorkflowEnv()
	store.seed("low", constants.PolicyStatusAwaitingPayment, 120_000, 2)
	store.seed("high", constants.PolicyStatusAwaitingPayment, 120_000, 6)

	svc := newTestPolicyService(store, env)

	require.NoError(t, svc.OnPaymentReceived(context.Background(), "low", 120_000))
	require.NoError(t, svc.OnPaymentReceived(context.Background(), "high", 120_000))

	assert.Equal(t, constants.PolicyStatusPendingInitial, store.policies["low"].Status)
	assert.Equal(t, constants.PolicyStatusDeniedUnderwrite, store.policies["high"].Status)
}

func TestApprovalPipelineFourEyes(t *testing.T) {
	store := newFakePolicyStore()
	env := newFakeWorkflowEnv()
	store.seed("p1", constants.PolicyStatusPendingInitial, 8_000, 0)

	svc := newTestPolicyService(store, env)

	adminA := &models.Admin{ID: "A", Name: "Alice", Role: constants.RoleSecurityOfficer}
	adminB := &models.Admin{ID: "B", Name: "Bala", Role: constants.RoleSecurityOfficer}

	require.NoError(t, svc.ApproveInitial(context.Background(), "p1", adminA))
	assert.Equal(t, constants.PolicyStatusPendingFinal, store.policies["p1"].Status)

	// Same admin cannot give the final approval
	err := svc.ApproveFinal(context.Background(), "p1", adminA)
	require.Error(t, err)
	assert.True(t, apperrors.IsForbidden(err))
	assert.Contains(t, err.Error(), "four-eyes")
	assert.Equal(t, constants.PolicyStatusPendingFinal, store.policies["p1"].Status)

	// A different security officer can
	require.NoError(t, svc.ApproveFinal(context.Background(), "p1", adminB))

	policy := store.policies["p1"]
	assert.Equal(t, constants.PolicyStatusActive, policy.Status)
	require.NotNil(t, policy.InitialApproverID)
	require.NotNil(t, policy.FinalApproverID)
	assert.NotEqual(t, *policy.InitialApproverID, *policy.FinalApproverID)
}

func TestApproveFinalRequiresSecurityOfficer(t *testing.T) {
	store := newFakePolicyStore()
	env := newFakeWorkflowEnv()
	policy := store.seed("p1", constants.PolicyStatusPendingFinal, 8_000, 0)
	initial := "A"
	policy.InitialApproverID = &initial

	svc := newTestPolicyService(store, env)
	claimsAdmin := &models.Admin{ID: "B", Name: "Bala", Role: constants.RoleClaimsAdmin}

	err := svc.ApproveFinal(context.Background(), "p1", claimsAdmin)
	require.Error(t, err)
	assert.True(t, apperrors.IsForbidden(err))
	assert.Contains(t, err.Error(), "role")
}

func TestApproveInitialWrongState(t *testing.T) {
	store := newFakePolicyStore()
	env := newFakeWorkflowEnv()
	store.seed("p1", constants.PolicyStatusAwaitingPayment, 8_000, 0)

	svc := newTestPolicyService(store, env)
	admin := &models.Admin{ID: "A", Name: "Alice", Role: constants.RoleClaimsAdmin}

	err := svc.ApproveInitial(context.Background(), "p1", admin)
	require.Error(t, err)
	assert.True(t, apperrors.IsInvalidState(err))
}

func TestExpireSweep(t *testing.T) {
	store := newFakePolicyStore()
	env := newFakeWorkflowEnv()

	past := time.Now().AddDate(0, -1, 0)
	future := time.Now().AddDate(1, 0, 0)

	ended := store.seed("old", constants.PolicyStatusActive, 8_000, 0)
	ended.EndDate = &past
	current := store.seed("current", constants.PolicyStatusActive, 8_000, 0)
	current.EndDate = &future

	svc := newTestPolicyService(store, env)
	svc.ExpireSweep(context.Background())

	assert.Equal(t, constants.PolicyStatusExpired, store.policies["old"].Status)
	assert.Equal(t, constants.PolicyStatusActive, store.policies["current"].Status)
}

func TestPurchasePolicyValidation(t *testing.T) {
	store := newFakePolicyStore()
	env := newFakeWorkflowEnv()
	svc := newTestPolicyService(store, env)

	_, err := svc.PurchasePolicy(context.Background(), &PurchasePolicyRequest{
		CustomerID:    "cust-1",
		PremiumAmount: 0,
	})
	require.Error(t, err)
	assert.True(t, apperrors.IsValidation(err))

	policy, err := svc.PurchasePolicy(context.Background(), &PurchasePolicyRequest{
		CustomerID:    "cust-1",
		PremiumAmount: 8_000,
	})
	require.NoError(t, err)
	assert.Equal(t, constants.PolicyStatusAwaitingPayment, policy.Status)
	require.NotNil(t, policy.EndDate)
}
