// Package lifecycle defines the contract state machine: which states exist,
// which lifecycle events each state accepts, and which events force an
// automatic state change. All lookups are pure functions over fixed tables.
package lifecycle

// State is a contract lifecycle state.
type State string

const (
	StateDraft               State = "draft"
	StateInReview            State = "in_review"
	StateInApproval          State = "in_approval"
	StateSentForSignature    State = "sent_for_signature"
	StateActive              State = "active"
	StateExpired             State = "expired"
	StateTerminatedForCause  State = "terminated_for_cause"
	StateRescinded           State = "rescinded"
)

// EventType is a lifecycle event recorded against a contract.
type EventType string

const (
	EventCreation            EventType = "creation"
	EventSignature           EventType = "signature"
	EventEffectiveDateStart  EventType = "effective_date_start"
	EventRenewal             EventType = "renewal"
	EventAmendment           EventType = "amendment"
	EventTerminationForCause EventType = "termination_for_cause"
	EventRescission          EventType = "rescission"
	EventExpiration          EventType = "expiration"
	EventInternalNote        EventType = "internal_note"
	EventModification        EventType = "modification"
)

// transitions maps each state to the set of states it may move to.
// Terminal states map to an empty set.
var transitions = map[State][]State{
	StateDraft:              {StateInReview, StateActive},
	StateInReview:           {StateDraft, StateInApproval, StateActive},
	StateInApproval:         {StateInReview, StateActive},
	StateSentForSignature:   {StateActive, StateInReview},
	StateActive:             {StateExpired, StateTerminatedForCause, StateRescinded},
	StateExpired:            {StateActive},
	StateTerminatedForCause: {},
	StateRescinded:          {},
}

// eventsByState maps each state to the event types it accepts. States not
// listed here accept only internal notes.
var eventsByState = map[State][]EventType{
	StateDraft:    {EventCreation, EventModification, EventInternalNote},
	StateInReview: {EventModification, EventInternalNote},
	StateInApproval: {
		EventModification, EventInternalNote,
	},
	StateSentForSignature: {
		EventSignature, EventInternalNote, EventModification,
	},
	StateActive: {
		EventEffectiveDateStart, EventRenewal, EventAmendment,
		EventTerminationForCause, EventRescission, EventExpiration,
		EventInternalNote, EventModification,
	},
	StateExpired: {EventRenewal, EventInternalNote},
}

// forcedStates maps event types that force a contract into a new state.
var forcedStates = map[EventType]State{
	EventRescission:          StateRescinded,
	EventTerminationForCause: StateTerminatedForCause,
	EventExpiration:          StateExpired,
	EventRenewal:             StateActive,
}

// AllStates lists every known contract state.
var AllStates = []State{
	StateDraft, StateInReview, StateInApproval, StateSentForSignature,
	StateActive, StateExpired, StateTerminatedForCause, StateRescinded,
}

// AllEventTypes lists every known lifecycle event type.
var AllEventTypes = []EventType{
	EventCreation, EventSignature, EventEffectiveDateStart, EventRenewal,
	EventAmendment, EventTerminationForCause, EventRescission,
	EventExpiration, EventInternalNote, EventModification,
}

// KnownState reports whether s is one of the defined states.
func KnownState(s State) bool {
	_, ok := transitions[s]
	return ok
}

// KnownEventType reports whether e is one of the defined event types.
func KnownEventType(e EventType) bool {
	for _, t := range AllEventTypes {
		if t == e {
			return true
		}
	}
	return false
}

// CanTransition reports whether a contract in state current may move to
// target. It is a guard only and never fails on unknown input.
func CanTransition(current, target State) bool {
	for _, s := range transitions[current] {
		if s == target {
			return true
		}
	}
	return false
}

// ValidEventsFor returns the event types a contract in state s accepts.
// Unrecognized states fall back to internal notes only, so the result is
// never empty.
func ValidEventsFor(s State) []EventType {
	if events, ok := eventsByState[s]; ok {
		return events
	}
	return []EventType{EventInternalNote}
}

// EventPermitted reports whether event type e is accepted in state s.
func EventPermitted(s State, e EventType) bool {
	for _, t := range ValidEventsFor(s) {
		if t == e {
			return true
		}
	}
	return false
}

// ForcedStateFor returns the state an event type forces a contract into,
// if any.
func ForcedStateFor(e EventType) (State, bool) {
	s, ok := forcedStates[e]
	return s, ok
}

// Terminal reports whether s has no outgoing transitions.
func Terminal(s State) bool {
	return KnownState(s) && len(transitions[s]) == 0
}
