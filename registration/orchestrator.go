package registration

import (
	"context"
	"errors"
	"log/slog"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/Dosada05/league-registration/membership"
	"github.com/Dosada05/league-registration/metadata"
	"github.com/Dosada05/league-registration/models"
)

var (
	ErrEntityRequired    = errors.New("entity id is required")
	ErrEntityNotSelected = errors.New("entity is not selected")
	ErrUnknownField      = errors.New("field is not part of the schema")
	ErrNotWaiverField    = errors.New("field is not a waiver")
)

const (
	DefaultMembershipDebounce = 400 * time.Millisecond
	defaultVerifyTimeout      = 10 * time.Second
)

// Seed carries the values an entity starts with.
type Seed struct {
	Prior    map[string]any `json:"prior,omitempty"`
	Defaults map[string]any `json:"defaults,omitempty"`
}

// FieldError is one validation failure. Validation never returns an error
// for bad input; the caller gets these instead.
type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

type OrchestratorOption func(*Orchestrator)

func WithVerifier(v membership.Verifier) OrchestratorOption {
	return func(o *Orchestrator) { o.verifier = v }
}

func WithDebounce(d time.Duration) OrchestratorOption {
	return func(o *Orchestrator) { o.debounce = d }
}

func WithLogger(l *slog.Logger) OrchestratorOption {
	return func(o *Orchestrator) {
		if l != nil {
			o.logger = l
		}
	}
}

func WithClock(now func() time.Time) OrchestratorOption {
	return func(o *Orchestrator) { o.now = now }
}

// Orchestrator coordinates the per-concern stores for one household
// registration. All methods are safe for concurrent use.
type Orchestrator struct {
	mu sync.Mutex

	schema           Schema
	job              JobContext
	classes          map[string]metadata.Classification
	eligibilityField string
	waiverFields     []models.FieldDescriptor
	teams            []models.Option

	selection   SelectionStore
	forms       *FormStore
	eligibility *EligibilityStore
	waivers     *WaiverStore
	membership  *membershipTracker

	verifier      membership.Verifier
	debounce      time.Duration
	verifyTimeout time.Duration
	logger        *slog.Logger
	now           func() time.Time
}

func NewOrchestrator(schema Schema, job JobContext, opts ...OrchestratorOption) *Orchestrator {
	o := &Orchestrator{
		schema:        schema,
		job:           job,
		classes:       make(map[string]metadata.Classification, len(schema.Fields)),
		forms:         NewFormStore(),
		eligibility:   NewEligibilityStore(),
		waivers:       NewWaiverStore(),
		debounce:      DefaultMembershipDebounce,
		verifyTimeout: defaultVerifyTimeout,
		logger:        slog.Default(),
		now:           time.Now,
	}
	for _, opt := range opts {
		opt(o)
	}
	o.membership = newMembershipTracker(o.now)

	seen := map[string]bool{}
	for _, f := range schema.Fields {
		c := metadata.ClassifyField(f)
		o.classes[f.Name] = c
		if c.Waiver && f.Visibility == models.VisibilityPublic && !seen[strings.ToLower(f.Name)] {
			seen[strings.ToLower(f.Name)] = true
			o.waiverFields = append(o.waiverFields, f)
		}
	}
	if name, ok := metadata.ResolveEligibilityField(schema.Fields, job.Constraint); ok {
		o.eligibilityField = name
	}
	o.teams = TeamOptions(schema.Options)
	return o
}

func (o *Orchestrator) Schema() Schema {
	return o.schema
}

func (o *Orchestrator) Job() JobContext {
	return o.job
}

// EligibilityField is the field that receives the eligibility value, or "".
func (o *Orchestrator) EligibilityField() string {
	return o.eligibilityField
}

// Waivers lists the waiver fields, deduplicated by name.
func (o *Orchestrator) Waivers() []models.FieldDescriptor {
	return append([]models.FieldDescriptor(nil), o.waiverFields...)
}

func (o *Orchestrator) Selected() []string {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.selection.Selected()
}

// InitializeForEntity selects the entity and seeds its form values. Later
// sources only fill values that are still blank: null stub, prior
// submission, entity defaults, then an alias backfill pass.
func (o *Orchestrator) InitializeForEntity(entityID string, seed Seed) error {
	entityID = strings.TrimSpace(entityID)
	if entityID == "" {
		return ErrEntityRequired
	}

	o.mu.Lock()
	defer o.mu.Unlock()

	values := make(map[string]any, len(o.schema.Fields))
	for _, f := range o.schema.Fields {
		values[f.Name] = nil
	}
	o.applySeed(values, seed.Prior)
	o.applySeed(values, seed.Defaults)

	o.selection.Select(entityID)
	o.forms.Reset(entityID, values)
	o.membership.forget(entityID)

	for _, f := range o.schema.Fields {
		if o.classes[f.Name].Membership {
			o.onMembershipInput(entityID, f.Name, asString(values[f.Name]))
		}
	}
	return nil
}

// applySeed fills blank slots from src. Keys resolve to fields through any
// alias form, so a later source never beats an earlier one on spelling alone.
func (o *Orchestrator) applySeed(values map[string]any, src map[string]any) {
	for _, key := range sortedKeys(src) {
		v := normalizeValue(src[key])
		if canonical, ok := o.schema.Aliases.Resolve(key); ok {
			if isBlank(values[canonical]) && !isBlank(v) {
				values[canonical] = v
			}
			continue
		}
		if _, exists := values[key]; !exists {
			values[key] = v
		}
	}
}

// Deselect prunes everything held for the entity.
func (o *Orchestrator) Deselect(entityID string) error {
	o.mu.Lock()
	defer o.mu.Unlock()
	if !o.selection.Deselect(entityID) {
		return ErrEntityNotSelected
	}
	o.forms.Delete(entityID)
	o.eligibility.Delete(entityID)
	o.membership.forget(entityID)
	return nil
}

// SetFieldValue accepts the field under its canonical name or any alias.
func (o *Orchestrator) SetFieldValue(entityID, fieldName string, value any) error {
	o.mu.Lock()
	defer o.mu.Unlock()
	if !o.selection.IsSelected(entityID) {
		return ErrEntityNotSelected
	}
	canonical, ok := o.schema.Aliases.Resolve(fieldName)
	if !ok {
		return ErrUnknownField
	}
	value = normalizeValue(value)
	o.forms.Set(entityID, canonical, value)
	if o.classes[canonical].Membership {
		o.onMembershipInput(entityID, canonical, asString(value))
	}
	return nil
}

func (o *Orchestrator) Values(entityID string) (map[string]any, error) {
	o.mu.Lock()
	defer o.mu.Unlock()
	if !o.selection.IsSelected(entityID) {
		return nil, ErrEntityNotSelected
	}
	return o.forms.Values(entityID), nil
}

// GetVisibleFields returns the fields the generic renderer shows for the entity.
func (o *Orchestrator) GetVisibleFields(entityID string) ([]models.FieldDescriptor, error) {
	o.mu.Lock()
	defer o.mu.Unlock()
	if !o.selection.IsSelected(entityID) {
		return nil, ErrEntityNotSelected
	}
	return o.visibleFields(entityID), nil
}

func (o *Orchestrator) visibleFields(entityID string) []models.FieldDescriptor {
	out := make([]models.FieldDescriptor, 0, len(o.schema.Fields))
	for _, f := range o.schema.Fields {
		if o.renderedElsewhere(f) {
			continue
		}
		if f.ConditionalOn != nil && !o.conditionMet(entityID, *f.ConditionalOn) {
			continue
		}
		out = append(out, f)
	}
	return out
}

// renderedElsewhere covers every rule that keeps a field out of the generic
// renderer except conditional visibility.
func (o *Orchestrator) renderedElsewhere(f models.FieldDescriptor) bool {
	if f.Visibility == models.VisibilityHidden || f.Visibility == models.VisibilityAdminOnly {
		return true
	}
	c := o.classes[f.Name]
	if c.Waiver || c.TeamSelection || c.Eligibility {
		return true
	}
	return o.eligibilityField != "" && strings.EqualFold(f.Name, o.eligibilityField)
}

func isEqualityOperator(op string) bool {
	switch strings.ToLower(strings.TrimSpace(op)) {
	case "", "equals", "eq", "==", "=":
		return true
	}
	return false
}

// conditionMet compares with equality whatever the declared operator.
func (o *Orchestrator) conditionMet(entityID string, c models.Condition) bool {
	ref := c.Field
	if canonical, ok := o.schema.Aliases.Resolve(c.Field); ok {
		ref = canonical
	}
	v := o.forms.Get(entityID, ref)
	actual := asString(v)
	if f, ok := o.schema.Field(ref); ok && f.InputType == models.InputCheckbox {
		actual = strconv.FormatBool(asBool(v))
	}
	return strings.EqualFold(actual, strings.TrimSpace(string(c.Value)))
}

// ValidateEntity validates every visible field, then required waivers.
func (o *Orchestrator) ValidateEntity(entityID string) ([]FieldError, error) {
	o.mu.Lock()
	defer o.mu.Unlock()
	if !o.selection.IsSelected(entityID) {
		return nil, ErrEntityNotSelected
	}

	var errs []FieldError
	for _, f := range o.visibleFields(entityID) {
		if msg := o.validateField(entityID, f); msg != "" {
			errs = append(errs, FieldError{Field: f.Name, Message: msg})
		}
	}
	for _, f := range o.waiverFields {
		if f.IsRequired() && !o.waivers.IsAccepted(f.Name) {
			errs = append(errs, FieldError{Field: f.Name, Message: "You must accept the " + f.Label() + "."})
		}
	}
	return errs, nil
}

// BuildSubmissionPayload assembles what gets committed for the entity.
func (o *Orchestrator) BuildSubmissionPayload(entityID string) (map[string]any, error) {
	o.mu.Lock()
	defer o.mu.Unlock()
	if !o.selection.IsSelected(entityID) {
		return nil, ErrEntityNotSelected
	}

	payload := make(map[string]any, len(o.schema.Fields))
	for _, f := range o.schema.Fields {
		if f.Visibility == models.VisibilityHidden || f.Visibility == models.VisibilityAdminOnly {
			continue
		}
		if o.classes[f.Name].Waiver {
			continue
		}
		payload[f.Name] = o.forms.Get(entityID, f.Name)
	}
	if o.eligibilityField != "" {
		if ev := o.eligibility.Get(entityID); ev != "" && isBlank(payload[o.eligibilityField]) {
			payload[o.eligibilityField] = ev
		}
	}
	for _, f := range o.waiverFields {
		if o.waivers.IsAccepted(f.Name) {
			payload[f.Name] = true
		}
	}
	return payload, nil
}

// AcceptWaiver records acceptance of one waiver field.
func (o *Orchestrator) AcceptWaiver(fieldName string, accepted bool) error {
	o.mu.Lock()
	defer o.mu.Unlock()
	canonical, ok := o.schema.Aliases.Resolve(fieldName)
	if !ok {
		return ErrUnknownField
	}
	for _, f := range o.waiverFields {
		if strings.EqualFold(f.Name, canonical) {
			o.waivers.Accept(f.Name, accepted)
			return nil
		}
	}
	return ErrNotWaiverField
}

// AcceptAllWaivers sets the household-wide gate.
func (o *Orchestrator) AcceptAllWaivers(accepted bool) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.waivers.AcceptAll(accepted)
}

func (o *Orchestrator) SetEligibility(entityID, value string) error {
	o.mu.Lock()
	defer o.mu.Unlock()
	if !o.selection.IsSelected(entityID) {
		return ErrEntityNotSelected
	}
	o.eligibility.Set(entityID, value)
	return nil
}

func (o *Orchestrator) Eligibility(entityID string) (string, error) {
	o.mu.Lock()
	defer o.mu.Unlock()
	if !o.selection.IsSelected(entityID) {
		return "", ErrEntityNotSelected
	}
	return o.eligibility.Get(entityID), nil
}

// EligibleTeams filters the job's teams by the entity's eligibility value.
// Without a constraint or a captured value every team is eligible.
func (o *Orchestrator) EligibleTeams(entityID string) ([]models.Option, error) {
	o.mu.Lock()
	defer o.mu.Unlock()
	if !o.selection.IsSelected(entityID) {
		return nil, ErrEntityNotSelected
	}
	value := metadata.NormalizeKey(o.eligibility.Get(entityID))
	if o.job.Constraint == models.ConstraintNone || value == "" {
		return append([]models.Option(nil), o.teams...), nil
	}
	var out []models.Option
	for _, t := range o.teams {
		if strings.Contains(metadata.NormalizeKey(t.Label), value) || strings.Contains(metadata.NormalizeKey(t.Value), value) {
			out = append(out, t)
		}
	}
	return out, nil
}

func (o *Orchestrator) MembershipStatus(entityID, fieldName string) (MembershipStatus, error) {
	o.mu.Lock()
	defer o.mu.Unlock()
	if !o.selection.IsSelected(entityID) {
		return MembershipStatus{}, ErrEntityNotSelected
	}
	canonical, ok := o.schema.Aliases.Resolve(fieldName)
	if !ok {
		return MembershipStatus{}, ErrUnknownField
	}
	return o.membership.get(entityID, canonical), nil
}

// onMembershipInput restarts the status machine for a new number and
// schedules a debounced lookup. Callers hold o.mu.
func (o *Orchestrator) onMembershipInput(entityID, field, number string) {
	gen := o.membership.reset(entityID, field, number)
	switch {
	case number == "":
		return
	case number == MembershipSentinel:
		o.membership.transition(entityID, field, gen, MembershipValid, "")
		return
	case o.verifier == nil:
		o.membership.transition(entityID, field, gen, MembershipInvalid, "Membership verification is currently unavailable. Try again later.")
		return
	}
	timer := time.AfterFunc(o.debounce, func() { o.verifyMembership(entityID, field, number, gen) })
	o.membership.schedule(entityID, field, timer)
}

func (o *Orchestrator) verifyMembership(entityID, field, number string, gen uint64) {
	o.mu.Lock()
	if !o.membership.transition(entityID, field, gen, MembershipValidating, "") {
		o.mu.Unlock()
		return
	}
	o.membership.fired(entityID, field)
	req := o.membershipRequest(entityID, number)
	o.mu.Unlock()

	ctx, cancel := context.WithTimeout(context.Background(), o.verifyTimeout)
	defer cancel()
	rec, err := o.verifier.Lookup(ctx, number)

	var state MembershipState
	var message string
	switch {
	case errors.Is(err, membership.ErrMemberNotFound):
		res := membership.Evaluate(req, nil, o.now())
		state, message = MembershipInvalid, res.Message
	case err != nil:
		o.logger.Warn("membership lookup failed", slog.String("entity", entityID), slog.String("field", field), slog.Any("error", err))
		state, message = MembershipInvalid, "We could not reach the membership service. Try again shortly."
	default:
		res := membership.Evaluate(req, rec, o.now())
		state, message = MembershipInvalid, res.Message
		if res.Valid {
			state = MembershipValid
		}
	}

	o.mu.Lock()
	defer o.mu.Unlock()
	if !o.membership.transition(entityID, field, gen, state, message) {
		o.logger.Debug("stale membership result discarded", slog.String("entity", entityID), slog.String("field", field))
	}
}

var (
	firstNameTokens = []string{"firstname", "fname"}
	lastNameTokens  = []string{"lastname", "lname", "surname"}
	birthDateTokens = []string{"dob", "dateofbirth", "birthdate", "birthday"}
)

func (o *Orchestrator) membershipRequest(entityID, number string) membership.Request {
	req := membership.Request{
		Number:          number,
		FirstName:       o.identityValue(entityID, firstNameTokens),
		LastName:        o.identityValue(entityID, lastNameTokens),
		RequiredThrough: o.job.MembershipRequiredThrough,
	}
	if dob, ok := parseDate(o.identityValue(entityID, birthDateTokens)); ok {
		req.DateOfBirth = dob
	}
	return req
}

func (o *Orchestrator) identityValue(entityID string, tokens []string) string {
	for _, f := range o.schema.Fields {
		n := metadata.NormalizeKey(f.Name)
		for _, t := range tokens {
			if strings.Contains(n, t) {
				if v := asString(o.forms.Get(entityID, f.Name)); v != "" {
					return v
				}
			}
		}
	}
	return ""
}

func sortedKeys(m map[string]any) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
