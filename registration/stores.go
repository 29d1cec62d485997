package registration

import (
	"strings"
	"time"

	"github.com/Dosada05/league-registration/metadata"
	"github.com/Dosada05/league-registration/models"
)

// The stores below each own one concern. They are not safe for concurrent
// use on their own; the Orchestrator serializes access.

// SelectionStore keeps the selected entities in selection order.
type SelectionStore struct {
	order []string
}

func (s *SelectionStore) Select(entityID string) bool {
	if s.IsSelected(entityID) {
		return false
	}
	s.order = append(s.order, entityID)
	return true
}

func (s *SelectionStore) Deselect(entityID string) bool {
	for i, id := range s.order {
		if id == entityID {
			s.order = append(s.order[:i], s.order[i+1:]...)
			return true
		}
	}
	return false
}

func (s *SelectionStore) IsSelected(entityID string) bool {
	for _, id := range s.order {
		if id == entityID {
			return true
		}
	}
	return false
}

func (s *SelectionStore) Selected() []string {
	return append([]string(nil), s.order...)
}

// FormStore holds one value map per entity.
type FormStore struct {
	values map[string]map[string]any
}

func NewFormStore() *FormStore {
	return &FormStore{values: map[string]map[string]any{}}
}

func (s *FormStore) Reset(entityID string, values map[string]any) {
	s.values[entityID] = values
}

func (s *FormStore) Has(entityID string) bool {
	_, ok := s.values[entityID]
	return ok
}

func (s *FormStore) Get(entityID, field string) any {
	return s.values[entityID][field]
}

func (s *FormStore) Set(entityID, field string, value any) {
	m, ok := s.values[entityID]
	if !ok {
		m = map[string]any{}
		s.values[entityID] = m
	}
	m[field] = value
}

// Values returns a copy of the entity's map.
func (s *FormStore) Values(entityID string) map[string]any {
	out := make(map[string]any, len(s.values[entityID]))
	for k, v := range s.values[entityID] {
		out[k] = v
	}
	return out
}

func (s *FormStore) Delete(entityID string) {
	delete(s.values, entityID)
}

// EligibilityStore holds the value captured by the eligibility step per entity.
type EligibilityStore struct {
	values map[string]string
}

func NewEligibilityStore() *EligibilityStore {
	return &EligibilityStore{values: map[string]string{}}
}

func (s *EligibilityStore) Set(entityID, value string) {
	if strings.TrimSpace(value) == "" {
		delete(s.values, entityID)
		return
	}
	s.values[entityID] = strings.TrimSpace(value)
}

func (s *EligibilityStore) Get(entityID string) string {
	return s.values[entityID]
}

func (s *EligibilityStore) Delete(entityID string) {
	delete(s.values, entityID)
}

// WaiverStore tracks acceptance per waiver field plus the global gate.
type WaiverStore struct {
	accepted    map[string]bool
	allAccepted bool
}

func NewWaiverStore() *WaiverStore {
	return &WaiverStore{accepted: map[string]bool{}}
}

func (s *WaiverStore) Accept(field string, accepted bool) {
	s.accepted[strings.ToLower(field)] = accepted
}

func (s *WaiverStore) AcceptAll(accepted bool) {
	s.allAccepted = accepted
}

func (s *WaiverStore) IsAccepted(field string) bool {
	return s.allAccepted || s.accepted[strings.ToLower(field)]
}

func (s *WaiverStore) AllAccepted() bool {
	return s.allAccepted
}

// JobContext is the read-only job configuration the orchestrator works against.
type JobContext struct {
	JobID      int
	Constraint models.EligibilityConstraint
	// MembershipRequiredThrough is the date a membership must stay valid
	// until; zero means "today".
	MembershipRequiredThrough time.Time
}

// teamsDataSource is the data-source key teams are published under.
const teamsDataSource = "teams"

// TeamOptions looks the job's team list up in its option dictionary.
func TeamOptions(dict metadata.OptionDictionary) []models.Option {
	set, ok := dict.Lookup(teamsDataSource)
	if !ok {
		return nil
	}
	return set.Values
}
