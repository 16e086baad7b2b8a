package domain

import (
	"fmt"

	"github.com/coverline/backend/pkg/constants"
)

// PolicyState represents the lifecycle state of a policy
type PolicyState string

const (
	// PolicyStateAwaitingPayment is the state at purchase, before the first premium payment
	PolicyStateAwaitingPayment PolicyState = constants.PolicyStatusAwaitingPayment
	// PolicyStateUnderwriterReview is entered on payment, while the underwriter evaluator runs
	PolicyStateUnderwriterReview PolicyState = constants.PolicyStatusUnderwriterRev
	// PolicyStatePendingInitial awaits the first human approval
	PolicyStatePendingInitial PolicyState = constants.PolicyStatusPendingInitial
	// PolicyStatePendingFinal awaits the second, role-qualified approval
	PolicyStatePendingFinal PolicyState = constants.PolicyStatusPendingFinal
	// PolicyStateActive is the successful terminal state
	PolicyStateActive PolicyState = constants.PolicyStatusActive
	// PolicyStateDeclined is the terminal state for a human rejection
	PolicyStateDeclined PolicyState = constants.PolicyStatusDeclined
	// PolicyStateDeniedUnderwriter is the terminal state for an underwriter denial
	PolicyStateDeniedUnderwriter PolicyState = constants.PolicyStatusDeniedUnderwrite
	// PolicyStateExpired is the terminal state reached by the expiry sweep
	PolicyStateExpired PolicyState = constants.PolicyStatusExpired
)

// PolicyTransition represents an action that can change policy state
type PolicyTransition string

const (
	// TransitionPaymentReceived moves a purchased policy into underwriter review
	TransitionPaymentReceived PolicyTransition = "PaymentReceived"
	// TransitionUnderwriterApprove moves a reviewed policy into the approval pipeline
	TransitionUnderwriterApprove PolicyTransition = "UnderwriterApprove"
	// TransitionUnderwriterDeny terminates a policy the underwriter rejects
	TransitionUnderwriterDeny PolicyTransition = "UnderwriterDeny"
	// TransitionInitialApprove records the first human approval
	TransitionInitialApprove PolicyTransition = "InitialApprove"
	// TransitionFinalApprove records the second approval and activates the policy
	TransitionFinalApprove PolicyTransition = "FinalApprove"
	// TransitionDecline records a human rejection at either approval stage
	TransitionDecline PolicyTransition = "Decline"
	// TransitionExpire ends an active policy past its end date
	TransitionExpire PolicyTransition = "Expire"
)

// PolicyStateMachine enforces valid policy lifecycle transitions.
// Invalid transitions return an error (fail-fast approach). The four-eyes
// and role checks live in the policy service; this machine only answers
// whether a transition is structurally legal from the current state.
type PolicyStateMachine struct {
	// transitions maps (current state, transition) -> next state
	transitions map[stateTransitionKey]PolicyState
}

type stateTransitionKey struct {
	state      PolicyState
	transition PolicyTransition
}

// NewPolicyStateMachine creates a state machine with the policy lifecycle rules.
// State diagram:
//
//	[AwaitingPayment] ──PaymentReceived──► [UnderwriterReview]
//	                                         │            │
//	                            UnderwriterApprove   UnderwriterDeny
//	                                         │            │
//	                                         ▼            ▼
//	                               [PendingInitial]  [DeniedUnderwriter]
//	                                   │       │
//	                         InitialApprove  Decline──► [Declined]
//	                                   │
//	                                   ▼
//	                             [PendingFinal] ──Decline──► [Declined]
//	                                   │
//	                             FinalApprove
//	                                   │
//	                                   ▼
//	                               [Active] ──Expire──► [Expired]
func NewPolicyStateMachine() *PolicyStateMachine {
	sm := &PolicyStateMachine{
		transitions: make(map[stateTransitionKey]PolicyState),
	}

	sm.addTransition(PolicyStateAwaitingPayment, TransitionPaymentReceived, PolicyStateUnderwriterReview)
	sm.addTransition(PolicyStateUnderwriterReview, TransitionUnderwriterApprove, PolicyStatePendingInitial)
	sm.addTransition(PolicyStateUnderwriterReview, TransitionUnderwriterDeny, PolicyStateDeniedUnderwriter)
	sm.addTransition(PolicyStatePendingInitial, TransitionInitialApprove, PolicyStatePendingFinal)
	sm.addTransition(PolicyStatePendingInitial, TransitionDecline, PolicyStateDeclined)
	sm.addTransition(PolicyStatePendingFinal, TransitionFinalApprove, PolicyStateActive)
	sm.addTransition(PolicyStatePendingFinal, TransitionDecline, PolicyStateDeclined)
	sm.addTransition(PolicyStateActive, TransitionExpire, PolicyStateExpired)

	return sm
}

func (sm *PolicyStateMachine) addTransition(from PolicyState, via PolicyTransition, to PolicyState) {
	key := stateTransitionKey{state: from, transition: via}
	sm.transitions[key] = to
}

// Transition attempts to transition from the current state using the given action.
// Returns the new state or an error if the transition is invalid.
func (sm *PolicyStateMachine) Transition(current PolicyState, action PolicyTransition) (PolicyState, error) {
	key := stateTransitionKey{state: current, transition: action}
	next, ok := sm.transitions[key]
	if !ok {
		return current, fmt.Errorf("invalid state transition: cannot %s from %s", action, current)
	}
	return next, nil
}

// CanTransition checks if a transition is valid without performing it.
func (sm *PolicyStateMachine) CanTransition(current PolicyState, action PolicyTransition) bool {
	key := stateTransitionKey{state: current, transition: action}
	_, ok := sm.transitions[key]
	return ok
}

// ValidTransitions returns all valid transitions from the given state.
func (sm *PolicyStateMachine) ValidTransitions(state PolicyState) []PolicyTransition {
	var result []PolicyTransition
	for key := range sm.transitions {
		if key.state == state {
			result = append(result, key.transition)
		}
	}
	return result
}

// IsTerminal returns true if the state is a terminal state (no further
// transitions). ACTIVE is not terminal here: the expiry sweep can still
// move it to EXPIRED.
func (sm *PolicyStateMachine) IsTerminal(state PolicyState) bool {
	return state == PolicyStateDeclined ||
		state == PolicyStateDeniedUnderwriter ||
		state == PolicyStateExpired
}
