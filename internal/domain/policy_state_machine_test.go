package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestPolicyStateMachine_ValidTransitions(t *testing.T) {
	sm := NewPolicyStateMachine()

	tests := []struct {
		name        string
		from        PolicyState
		action      PolicyTransition
		expectedTo  PolicyState
		shouldError bool
	}{
		// Valid transitions
		{"AwaitingPayment -> UnderwriterReview via PaymentReceived", PolicyStateAwaitingPayment, TransitionPaymentReceived, PolicyStateUnderwriterReview, false},
		{"UnderwriterReview -> PendingInitial via UnderwriterApprove", PolicyStateUnderwriterReview, TransitionUnderwriterApprove, PolicyStatePendingInitial, false},
		{"UnderwriterReview -> DeniedUnderwriter via UnderwriterDeny", PolicyStateUnderwriterReview, TransitionUnderwriterDeny, PolicyStateDeniedUnderwriter, false},
		{"PendingInitial -> PendingFinal via InitialApprove", PolicyStatePendingInitial, TransitionInitialApprove, PolicyStatePendingFinal, false},
		{"PendingInitial -> Declined via Decline", PolicyStatePendingInitial, TransitionDecline, PolicyStateDeclined, false},
		{"PendingFinal -> Active via FinalApprove", PolicyStatePendingFinal, TransitionFinalApprove, PolicyStateActive, false},
		{"PendingFinal -> Declined via Decline", PolicyStatePendingFinal, TransitionDecline, PolicyStateDeclined, false},
		{"Active -> Expired via Expire", PolicyStateActive, TransitionExpire, PolicyStateExpired, false},

		// Invalid transitions
		{"Active -> payment again (invalid)", PolicyStateActive, TransitionPaymentReceived, PolicyStateActive, true},
		{"AwaitingPayment -> FinalApprove (skips pipeline)", PolicyStateAwaitingPayment, TransitionFinalApprove, PolicyStateAwaitingPayment, true},
		{"DeniedUnderwriter -> InitialApprove (terminal)", PolicyStateDeniedUnderwriter, TransitionInitialApprove, PolicyStateDeniedUnderwriter, true},
		{"Declined -> FinalApprove (terminal)", PolicyStateDeclined, TransitionFinalApprove, PolicyStateDeclined, true},
		{"Expired -> Expire again (terminal)", PolicyStateExpired, TransitionExpire, PolicyStateExpired, true},
		{"PendingFinal -> InitialApprove (wrong stage)", PolicyStatePendingFinal, TransitionInitialApprove, PolicyStatePendingFinal, true},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			newState, err := sm.Transition(tc.from, tc.action)

			if tc.shouldError {
				assert.Error(t, err)
				assert.Equal(t, tc.from, newState, "State should not change on invalid transition")
			} else {
				assert.NoError(t, err)
				assert.Equal(t, tc.expectedTo, newState)
			}
		})
	}
}

func TestPolicyStateMachine_CanTransition(t *testing.T) {
	sm := NewPolicyStateMachine()

	assert.True(t, sm.CanTransition(PolicyStateAwaitingPayment, TransitionPaymentReceived))
	assert.True(t, sm.CanTransition(PolicyStatePendingFinal, TransitionFinalApprove))
	assert.False(t, sm.CanTransition(PolicyStateActive, TransitionFinalApprove))
	assert.False(t, sm.CanTransition(PolicyStateDeclined, TransitionPaymentReceived))
}

func TestPolicyStateMachine_ValidTransitionsFromState(t *testing.T) {
	sm := NewPolicyStateMachine()

	reviewTransitions := sm.ValidTransitions(PolicyStateUnderwriterReview)
	assert.Len(t, reviewTransitions, 2) // UnderwriterApprove, UnderwriterDeny

	activeTransitions := sm.ValidTransitions(PolicyStateActive)
	assert.Len(t, activeTransitions, 1) // Expire

	expiredTransitions := sm.ValidTransitions(PolicyStateExpired)
	assert.Len(t, expiredTransitions, 0) // Terminal state
}

func TestPolicyStateMachine_IsTerminal(t *testing.T) {
	sm := NewPolicyStateMachine()

	assert.False(t, sm.IsTerminal(PolicyStateAwaitingPayment))
	assert.False(t, sm.IsTerminal(PolicyStatePendingFinal))
	assert.False(t, sm.IsTerminal(PolicyStateActive))
	assert.True(t, sm.IsTerminal(PolicyStateDeclined))
	assert.True(t, sm.IsTerminal(PolicyStateDeniedUnderwriter))
	assert.True(t, sm.IsTerminal(PolicyStateExpired))
}
