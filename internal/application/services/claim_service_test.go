package services

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/coverline/backend/internal/domain/models"
	"github.com/coverline/backend/pkg/constants"
	apperrors "github.com/coverline/backend/pkg/errors"
)

type fakeScheduler struct {
	enqueued []string
}

func (f *fakeScheduler) Enqueue(claimID string) {
	f.enqueued = append(f.enqueued, claimID)
}

func newTestClaimService(env *fakeWorkflowEnv, sched *fakeScheduler) *ClaimService {
	return NewClaimService(env, env, env, env, sched)
}

func TestFileClaimScoresAndStartsWorkflow(t *testing.T) {
	env := newFakeWorkflowEnv()
	env.addStep("wf", 1, constants.TaskTypeManual, "Review", nil)
	sched := &fakeScheduler{}
	svc := newTestClaimService(env, sched)

	days := 180
	claim, err := svc.FileClaim(context.Background(), &FileClaimRequest{
		CustomerID:        "cust-1",
		PolicyID:          "pol-1",
		Description:       "storm damage",
		Amount:            9_000_000,
		WorkflowID:        "wf",
		PreviousClaims:    1,
		DaysSincePurchase: &days,
		HasAllDocuments:   true,
	})

	require.NoError(t, err)
	assert.GreaterOrEqual(t, claim.RiskScore, 3)
	assert.Contains(t, claim.RiskFlags, "HIGH_AMOUNT")
	assert.NotEqual(t, "LOW", claim.RiskLevel)
	assert.Equal(t, constants.ClaimStatusPending, claim.Status)
	require.NotNil(t, claim.CurrentStepOrder)
	assert.Equal(t, 1, *claim.CurrentStepOrder)
	assert.Equal(t, []string{claim.ID}, sched.enqueued)
}

func TestFileClaimWithoutWorkflow(t *testing.T) {
	env := newFakeWorkflowEnv()
	sched := &fakeScheduler{}
	svc := newTestClaimService(env, sched)

	claim, err := svc.FileClaim(context.Background(), &FileClaimRequest{
		CustomerID:      "cust-1",
		PolicyID:        "pol-1",
		Amount:          5_000,
		HasAllDocuments: true,
	})

	require.NoError(t, err)
	assert.Nil(t, claim.WorkflowID)
	assert.Nil(t, claim.CurrentStepOrder)
	assert.Empty(t, sched.enqueued)
}

func TestFileClaimValidation(t *testing.T) {
	env := newFakeWorkflowEnv()
	svc := newTestClaimService(env, &fakeScheduler{})

	_, err := svc.FileClaim(context.Background(), &FileClaimRequest{
		CustomerID: "cust-1",
		PolicyID:   "pol-1",
		Amount:     -5,
	})
	require.Error(t, err)
	assert.True(t, apperrors.IsValidation(err))

	_, err = svc.FileClaim(context.Background(), &FileClaimRequest{
		CustomerID: "cust-1",
		PolicyID:   "pol-1",
		Amount:     100,
		WorkflowID: "no-such-workflow",
	})
	require.Error(t, err)
	assert.True(t, apperrors.IsNotFound(err))
}

func TestAdvanceManualStepCompletesAndResumes(t *testing.T) {
	env := newFakeWorkflowEnv()
	env.addStep("wf", 1, constants.TaskTypeManual, "Adjuster review", nil)
	env.addStep("wf", 2, constants.TaskTypeAPI, "Notify", nil)
	env.addClaim("c1", "wf", 1, 10_000)

	sched := &fakeScheduler{}
	svc := newTestClaimService(env, sched)
	actor := &models.Admin{ID: "adm-1", Name: "Alice", Role: constants.RoleClaimsAdmin}

	err := svc.AdvanceManualStep(context.Background(), "c1", constants.ClaimStatusApproved, actor)
	require.NoError(t, err)

	claim := env.claims["c1"]
	assert.Equal(t, constants.ClaimStatusApproved, claim.Status)
	require.NotNil(t, claim.CurrentStepOrder)
	assert.Equal(t, 2, *claim.CurrentStepOrder)
	assert.Contains(t, claim.StatusLog, "Adjuster review")
	assert.Equal(t, []string{"c1"}, sched.enqueued)
}

func TestAdvanceManualStepOnLastStep(t *testing.T) {
	env := newFakeWorkflowEnv()
	env.addStep("wf", 4, constants.TaskTypeManual, "Final review", nil)
	env.addClaim("c1", "wf", 4, 10_000)

	sched := &fakeScheduler{}
	svc := newTestClaimService(env, sched)
	actor := &models.Admin{ID: "adm-1", Name: "Alice", Role: constants.RoleClaimsAdmin}

	err := svc.AdvanceManualStep(context.Background(), "c1", constants.ClaimStatusDeclined, actor)
	require.NoError(t, err)

	assert.Nil(t, env.claims["c1"].CurrentStepOrder)
	// Nothing left to run: the scheduler must not be poked
	assert.Empty(t, sched.enqueued)
}

func TestAdvanceManualStepRejectsNonManual(t *testing.T) {
	env := newFakeWorkflowEnv()
	env.addStep("wf", 1, constants.TaskTypeTimer, "Cooling off", nil)
	env.addClaim("c1", "wf", 1, 10_000)

	svc := newTestClaimService(env, &fakeScheduler{})
	actor := &models.Admin{ID: "adm-1", Name: "Alice", Role: constants.RoleClaimsAdmin}

	err := svc.AdvanceManualStep(context.Background(), "c1", constants.ClaimStatusApproved, actor)
	require.Error(t, err)
	assert.True(t, apperrors.IsInvalidState(err))
	// Scenario guard: the step order did not move
	assert.Equal(t, 1, *env.claims["c1"].CurrentStepOrder)
}

func TestAdvanceManualStepRejectsUnknownStatus(t *testing.T) {
	env := newFakeWorkflowEnv()
	svc := newTestClaimService(env, &fakeScheduler{})
	actor := &models.Admin{ID: "adm-1", Name: "Alice"}

	err := svc.AdvanceManualStep(context.Background(), "c1", "MAYBE", actor)
	require.Error(t, err)
	assert.True(t, apperrors.IsValidation(err))
}
