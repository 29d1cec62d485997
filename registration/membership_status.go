package registration

import (
	"time"
)

type MembershipState string

const (
	MembershipIdle       MembershipState = "idle"
	MembershipValidating MembershipState = "validating"
	MembershipValid      MembershipState = "valid"
	MembershipInvalid    MembershipState = "invalid"
)

// MembershipSentinel always passes membership validation. End-to-end test
// suites register with it so they never reach the association.
const MembershipSentinel = "424242424242"

type MembershipStatus struct {
	State      MembershipState `json:"state"`
	Number     string          `json:"number,omitempty"`
	Message    string          `json:"message,omitempty"`
	Generation uint64          `json:"generation"`
	UpdatedAt  time.Time       `json:"updatedAt"`
}

type statusKey struct {
	entity string
	field  string
}

// membershipTracker holds the status machine per entity+field. Every input
// change takes a fresh generation; a verification result is only applied
// while its generation is still current. Generations are never reused, even
// after an entity is deselected and selected again.
type membershipTracker struct {
	generation uint64
	statuses   map[statusKey]MembershipStatus
	timers     map[statusKey]*time.Timer
	now        func() time.Time
}

func newMembershipTracker(now func() time.Time) *membershipTracker {
	return &membershipTracker{
		statuses: map[statusKey]MembershipStatus{},
		timers:   map[statusKey]*time.Timer{},
		now:      now,
	}
}

func (t *membershipTracker) get(entity, field string) MembershipStatus {
	st, ok := t.statuses[statusKey{entity, field}]
	if !ok {
		return MembershipStatus{State: MembershipIdle}
	}
	return st
}

// reset starts a new generation in state idle and cancels a pending debounce.
func (t *membershipTracker) reset(entity, field, number string) uint64 {
	key := statusKey{entity, field}
	t.stopTimer(key)
	t.generation++
	t.statuses[key] = MembershipStatus{
		State:      MembershipIdle,
		Number:     number,
		Generation: t.generation,
		UpdatedAt:  t.now(),
	}
	return t.generation
}

// transition applies state only if gen is still the current generation.
func (t *membershipTracker) transition(entity, field string, gen uint64, state MembershipState, message string) bool {
	key := statusKey{entity, field}
	st, ok := t.statuses[key]
	if !ok || st.Generation != gen {
		return false
	}
	st.State = state
	st.Message = message
	st.UpdatedAt = t.now()
	t.statuses[key] = st
	return true
}

func (t *membershipTracker) schedule(entity, field string, timer *time.Timer) {
	key := statusKey{entity, field}
	t.stopTimer(key)
	t.timers[key] = timer
}

// fired drops the bookkeeping for a timer that has already run.
func (t *membershipTracker) fired(entity, field string) {
	delete(t.timers, statusKey{entity, field})
}

func (t *membershipTracker) stopTimer(key statusKey) {
	if timer, ok := t.timers[key]; ok {
		timer.Stop()
		delete(t.timers, key)
	}
}

func (t *membershipTracker) forget(entity string) {
	for key := range t.statuses {
		if key.entity == entity {
			t.stopTimer(key)
			delete(t.statuses, key)
		}
	}
}
