package services

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/coverline/backend/internal/domain/models"
	"github.com/coverline/backend/pkg/constants"
)

func newTestScheduler(env *fakeWorkflowEnv) *WorkflowScheduler {
	executor := newTestExecutor(env)
	return NewWorkflowScheduler(executor, env, env, env)
}

func TestFireDueTimersAdvancesAndResumes(t *testing.T) {
	env := newFakeWorkflowEnv()
	env.addStep("wf", 1, constants.TaskTypeTimer, "Cooling off", nil)
	env.addStep("wf", 2, constants.TaskTypeManual, "Review", nil)
	env.addClaim("c1", "wf", 1, 10_000)

	next := 2
	env.timers = append(env.timers, &models.WorkflowTimer{
		ID:                "t1",
		ClaimID:           "c1",
		ResumeAt:          time.Now().Add(-time.Minute),
		ExpectedStepOrder: 1,
		NextStepOrder:     &next,
	})

	sched := newTestScheduler(env)
	sched.fireDueTimers()

	assert.True(t, env.timers[0].Fired)
	require.NotNil(t, env.claims["c1"].CurrentStepOrder)
	assert.Equal(t, 2, *env.claims["c1"].CurrentStepOrder)
	// The claim was queued for the workers
	assert.Equal(t, 1, len(sched.queue))
}

func TestFireDueTimersStaleTimerIsNoOp(t *testing.T) {
	env := newFakeWorkflowEnv()
	env.addClaim("c1", "wf", 5, 10_000) // already past the timer's step

	next := 2
	env.timers = append(env.timers, &models.WorkflowTimer{
		ID:                "t1",
		ClaimID:           "c1",
		ResumeAt:          time.Now().Add(-time.Minute),
		ExpectedStepOrder: 1,
		NextStepOrder:     &next,
	})

	sched := newTestScheduler(env)
	sched.fireDueTimers()

	// The timer is consumed without touching the claim
	assert.True(t, env.timers[0].Fired)
	assert.Equal(t, 5, *env.claims["c1"].CurrentStepOrder)
	assert.Equal(t, 0, len(sched.queue))
}

func TestFireDueTimersFailingTimerDoesNotBlockOthers(t *testing.T) {
	env := newFakeWorkflowEnv()
	env.addStep("wf", 1, constants.TaskTypeTimer, "Cooling off", nil)
	env.addStep("wf", 2, constants.TaskTypeManual, "Review", nil)
	env.addClaim("c1", "wf", 1, 10_000)

	next := 2
	// The older timer points at a claim that no longer exists, so its
	// advance errors every time it is attempted.
	env.timers = append(env.timers,
		&models.WorkflowTimer{
			ID:                "t-broken",
			ClaimID:           "deleted-claim",
			ResumeAt:          time.Now().Add(-2 * time.Minute),
			ExpectedStepOrder: 1,
			NextStepOrder:     &next,
		},
		&models.WorkflowTimer{
			ID:                "t-ok",
			ClaimID:           "c1",
			ResumeAt:          time.Now().Add(-time.Minute),
			ExpectedStepOrder: 1,
			NextStepOrder:     &next,
		},
	)

	sched := newTestScheduler(env)
	sched.fireDueTimers()

	// The healthy timer fired and resumed its claim despite the failure
	assert.True(t, env.timers[1].Fired)
	require.NotNil(t, env.claims["c1"].CurrentStepOrder)
	assert.Equal(t, 2, *env.claims["c1"].CurrentStepOrder)
	require.Equal(t, 1, len(sched.queue))
	assert.Equal(t, "c1", <-sched.queue)
}

func TestFireDueTimersIgnoresFutureTimers(t *testing.T) {
	env := newFakeWorkflowEnv()
	env.addClaim("c1", "wf", 1, 10_000)

	env.timers = append(env.timers, &models.WorkflowTimer{
		ID:                "t1",
		ClaimID:           "c1",
		ResumeAt:          time.Now().Add(time.Hour),
		ExpectedStepOrder: 1,
	})

	sched := newTestScheduler(env)
	sched.fireDueTimers()

	assert.False(t, env.timers[0].Fired)
	assert.Equal(t, 1, *env.claims["c1"].CurrentStepOrder)
}

func TestSchedulerDrivesWorkflowToCompletion(t *testing.T) {
	env := newFakeWorkflowEnv()
	env.addStep("wf", 1, constants.TaskTypeRule, "Assign", map[string]interface{}{
		constants.ConfigRuleName:  constants.RuleAssignByAmount,
		constants.ConfigThreshold: float64(1_000_000),
		constants.ConfigAdminID:   "adm-1",
	})
	env.addStep("wf", 2, constants.TaskTypeAPI, "Notify", map[string]interface{}{
		constants.ConfigTask: constants.APITaskSendNotification,
	})
	env.addClaim("c1", "wf", 1, 10_000)

	sched := newTestScheduler(env)

	// Drain synchronously the way a worker would
	sched.Enqueue("c1")
	for len(sched.queue) > 0 {
		claimID := <-sched.queue
		sched.runStep(claimID)
	}

	claim := env.claims["c1"]
	assert.Nil(t, claim.CurrentStepOrder)
	require.NotNil(t, claim.AdminID)
	assert.Len(t, env.events, 1)
}

func TestSchedulerStartStop(t *testing.T) {
	env := newFakeWorkflowEnv()
	sched := newTestScheduler(env)

	sched.Start()
	sched.Enqueue("missing-claim") // workers must survive executor errors
	time.Sleep(50 * time.Millisecond)
	sched.Stop()
}

func TestEnqueueNeverBlocksWhenFull(t *testing.T) {
	env := newFakeWorkflowEnv()
	sched := newTestScheduler(env)

	done := make(chan struct{})
	go func() {
		defer close(done)
		for i := 0; i < constants.SchedulerQueueSize+10; i++ {
			sched.Enqueue("c1")
		}
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("Enqueue blocked on a full queue")
	}

	// Unblock the deferred goroutines
	sched.stopOnce.Do(func() { close(sched.stopChan) })
}
