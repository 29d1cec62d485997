package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/Dosada05/league-registration/cache"
	"github.com/Dosada05/league-registration/membership"
	"github.com/Dosada05/league-registration/models"
	"github.com/Dosada05/league-registration/registration"
	"github.com/Dosada05/league-registration/repositories"
	"github.com/google/uuid"
)

const DefaultSessionTTL = 2 * time.Hour

// SessionView is what a client needs to render a registration form.
type SessionView struct {
	SessionID        string                   `json:"session_id"`
	JobID            int                      `json:"job_id"`
	ProfileType      models.ProfileType       `json:"profile_type,omitempty"`
	Constraint       string                   `json:"constraint,omitempty"`
	Fields           []models.FieldDescriptor `json:"fields"`
	Waivers          []models.FieldDescriptor `json:"waivers"`
	EligibilityField string                   `json:"eligibility_field,omitempty"`
	UnmappedFields   []string                 `json:"unmapped_fields,omitempty"`
	Selected         []string                 `json:"selected"`
	ExpiresInSeconds int                      `json:"expires_in_seconds"`
}

// ValidationView reports per-field messages; Valid is true when there are none.
type ValidationView struct {
	EntityID string                    `json:"entity_id"`
	Valid    bool                      `json:"valid"`
	Errors   []registration.FieldError `json:"errors"`
}

type RegistrationService interface {
	CreateSession(ctx context.Context, jobID int) (*SessionView, error)
	GetSession(ctx context.Context, sessionID string) (*SessionView, error)
	CloseSession(ctx context.Context, sessionID string) error
	SelectEntity(ctx context.Context, sessionID, entityID string, seed registration.Seed) ([]models.FieldDescriptor, error)
	DeselectEntity(ctx context.Context, sessionID, entityID string) error
	SetFieldValue(ctx context.Context, sessionID, entityID, field string, value any) error
	SetEligibility(ctx context.Context, sessionID, entityID, value string) error
	AcceptWaiver(ctx context.Context, sessionID, field string, accepted bool) error
	AcceptAllWaivers(ctx context.Context, sessionID string, accepted bool) error
	VisibleFields(ctx context.Context, sessionID, entityID string) ([]models.FieldDescriptor, error)
	Validate(ctx context.Context, sessionID, entityID string) (*ValidationView, error)
	Payload(ctx context.Context, sessionID, entityID string) (map[string]any, error)
	EligibleTeams(ctx context.Context, sessionID, entityID string) ([]models.Option, error)
	MembershipStatus(ctx context.Context, sessionID, entityID, field string) (registration.MembershipStatus, error)
}

type registrationSession struct {
	id   string
	job  models.Job
	orch *registration.Orchestrator
}

type registrationService struct {
	jobRepo  repositories.JobRepository
	verifier membership.Verifier
	sessions *cache.TTL[*registrationSession]
	debounce time.Duration
	logger   *slog.Logger
	newID    func() string
}

// NewRegistrationService keeps one orchestrator per session in a TTL cache.
// verifier may be nil; membership fields then report verification as unavailable.
func NewRegistrationService(
	jobRepo repositories.JobRepository,
	verifier membership.Verifier,
	sessionTTL time.Duration,
	debounce time.Duration,
	logger *slog.Logger,
) RegistrationService {
	if logger == nil {
		logger = slog.Default()
	}
	if sessionTTL <= 0 {
		sessionTTL = DefaultSessionTTL
	}
	if debounce <= 0 {
		debounce = registration.DefaultMembershipDebounce
	}
	return &registrationService{
		jobRepo:  jobRepo,
		verifier: verifier,
		sessions: cache.New[*registrationSession]("registration_sessions", sessionTTL, cache.DefaultCleanupInterval, logger),
		debounce: debounce,
		logger:   logger,
		newID:    func() string { return uuid.NewString() },
	}
}

func (s *registrationService) CreateSession(ctx context.Context, jobID int) (*SessionView, error) {
	job, err := s.jobRepo.GetByID(ctx, jobID)
	if err != nil {
		if errors.Is(err, repositories.ErrJobNotFound) {
			return nil, ErrJobNotFound
		}
		return nil, fmt.Errorf("failed to get job %d: %w", jobID, err)
	}

	schema := registration.Interpret(job.Metadata(), job.Options(), s.logger.With(slog.Int("job_id", job.ID)))
	profile := job.Profile()
	opts := []registration.OrchestratorOption{
		registration.WithDebounce(s.debounce),
		registration.WithLogger(s.logger),
	}
	if s.verifier != nil {
		opts = append(opts, registration.WithVerifier(s.verifier))
	}
	orch := registration.NewOrchestrator(schema, registration.JobContext{JobID: job.ID, Constraint: profile.Constraint}, opts...)

	sess := &registrationSession{id: s.newID(), job: *job, orch: orch}
	s.sessions.Set(sess.id, sess)
	s.logger.InfoContext(ctx, "registration session created",
		slog.String("session_id", sess.id),
		slog.Int("job_id", job.ID),
		slog.Int("fields", len(schema.Fields)))
	return s.view(sess), nil
}

func (s *registrationService) view(sess *registrationSession) *SessionView {
	schema := sess.orch.Schema()
	profile := sess.job.Profile()
	return &SessionView{
		SessionID:        sess.id,
		JobID:            sess.job.ID,
		ProfileType:      profile.ProfileType,
		Constraint:       string(profile.Constraint),
		Fields:           schema.Fields,
		Waivers:          sess.orch.Waivers(),
		EligibilityField: sess.orch.EligibilityField(),
		UnmappedFields:   schema.Unmapped,
		Selected:         sess.orch.Selected(),
		ExpiresInSeconds: int(s.sessions.TTL().Seconds()),
	}
}

// session loads a live session and extends its lifetime.
func (s *registrationService) session(sessionID string) (*registrationSession, error) {
	if strings.TrimSpace(sessionID) == "" {
		return nil, ErrSessionNotFound
	}
	sess, ok := s.sessions.Touch(sessionID)
	if !ok {
		return nil, ErrSessionNotFound
	}
	return sess, nil
}

func (s *registrationService) GetSession(_ context.Context, sessionID string) (*SessionView, error) {
	sess, err := s.session(sessionID)
	if err != nil {
		return nil, err
	}
	return s.view(sess), nil
}

func (s *registrationService) CloseSession(ctx context.Context, sessionID string) error {
	sess, err := s.session(sessionID)
	if err != nil {
		return err
	}
	for _, id := range sess.orch.Selected() {
		_ = sess.orch.Deselect(id)
	}
	s.sessions.Delete(sessionID)
	s.logger.InfoContext(ctx, "registration session closed", slog.String("session_id", sessionID))
	return nil
}

func (s *registrationService) SelectEntity(_ context.Context, sessionID, entityID string, seed registration.Seed) ([]models.FieldDescriptor, error) {
	sess, err := s.session(sessionID)
	if err != nil {
		return nil, err
	}
	if err := sess.orch.InitializeForEntity(entityID, seed); err != nil {
		return nil, mapRegistrationError(err)
	}
	fields, err := sess.orch.GetVisibleFields(entityID)
	return fields, mapRegistrationError(err)
}

func (s *registrationService) DeselectEntity(_ context.Context, sessionID, entityID string) error {
	sess, err := s.session(sessionID)
	if err != nil {
		return err
	}
	return mapRegistrationError(sess.orch.Deselect(entityID))
}

func (s *registrationService) SetFieldValue(_ context.Context, sessionID, entityID, field string, value any) error {
	sess, err := s.session(sessionID)
	if err != nil {
		return err
	}
	return mapRegistrationError(sess.orch.SetFieldValue(entityID, field, value))
}

func (s *registrationService) SetEligibility(_ context.Context, sessionID, entityID, value string) error {
	sess, err := s.session(sessionID)
	if err != nil {
		return err
	}
	return mapRegistrationError(sess.orch.SetEligibility(entityID, value))
}

func (s *registrationService) AcceptWaiver(_ context.Context, sessionID, field string, accepted bool) error {
	sess, err := s.session(sessionID)
	if err != nil {
		return err
	}
	return mapRegistrationError(sess.orch.AcceptWaiver(field, accepted))
}

func (s *registrationService) AcceptAllWaivers(_ context.Context, sessionID string, accepted bool) error {
	sess, err := s.session(sessionID)
	if err != nil {
		return err
	}
	sess.orch.AcceptAllWaivers(accepted)
	return nil
}

func (s *registrationService) VisibleFields(_ context.Context, sessionID, entityID string) ([]models.FieldDescriptor, error) {
	sess, err := s.session(sessionID)
	if err != nil {
		return nil, err
	}
	fields, err := sess.orch.GetVisibleFields(entityID)
	if err != nil {
		return nil, mapRegistrationError(err)
	}
	return fields, nil
}

func (s *registrationService) Validate(_ context.Context, sessionID, entityID string) (*ValidationView, error) {
	sess, err := s.session(sessionID)
	if err != nil {
		return nil, err
	}
	errs, err := sess.orch.ValidateEntity(entityID)
	if err != nil {
		return nil, mapRegistrationError(err)
	}
	if errs == nil {
		errs = []registration.FieldError{}
	}
	return &ValidationView{EntityID: entityID, Valid: len(errs) == 0, Errors: errs}, nil
}

func (s *registrationService) Payload(_ context.Context, sessionID, entityID string) (map[string]any, error) {
	sess, err := s.session(sessionID)
	if err != nil {
		return nil, err
	}
	payload, err := sess.orch.BuildSubmissionPayload(entityID)
	if err != nil {
		return nil, mapRegistrationError(err)
	}
	return payload, nil
}

func (s *registrationService) EligibleTeams(_ context.Context, sessionID, entityID string) ([]models.Option, error) {
	sess, err := s.session(sessionID)
	if err != nil {
		return nil, err
	}
	teams, err := sess.orch.EligibleTeams(entityID)
	if err != nil {
		return nil, mapRegistrationError(err)
	}
	if teams == nil {
		teams = []models.Option{}
	}
	return teams, nil
}

func (s *registrationService) MembershipStatus(_ context.Context, sessionID, entityID, field string) (registration.MembershipStatus, error) {
	sess, err := s.session(sessionID)
	if err != nil {
		return registration.MembershipStatus{}, err
	}
	status, err := sess.orch.MembershipStatus(entityID, field)
	return status, mapRegistrationError(err)
}

func mapRegistrationError(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, registration.ErrEntityRequired):
		return fmt.Errorf("%w: %w", ErrValidationFailed, err)
	case errors.Is(err, registration.ErrEntityNotSelected):
		return ErrEntityNotSelected
	case errors.Is(err, registration.ErrUnknownField):
		return ErrFieldNotFound
	case errors.Is(err, registration.ErrNotWaiverField):
		return ErrNotWaiverField
	}
	return err
}
