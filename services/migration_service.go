package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"time"

	"github.com/Dosada05/league-registration/definitions"
	"github.com/Dosada05/league-registration/metadata"
	"github.com/Dosada05/league-registration/models"
	"github.com/Dosada05/league-registration/parser"
	"github.com/Dosada05/league-registration/progress"
	"github.com/Dosada05/league-registration/repositories"
	"github.com/Dosada05/league-registration/storage"
	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"
)

const defaultActor = "system"

// DefinitionFetcher is the part of definitions.Fetcher the migrator uses.
type DefinitionFetcher interface {
	FetchDefinition(ctx context.Context, pt models.ProfileType) (definitions.Definition, error)
	FetchBaseDefinition(ctx context.Context) (definitions.Definition, error)
	FetchTemplate(ctx context.Context, pt models.ProfileType) (string, bool)
	ListKnownProfileTypes(ctx context.Context) ([]models.ProfileType, error)
}

type MigrationService interface {
	MigrateProfile(ctx context.Context, profileType models.ProfileType, opts MigrateOptions) (*MigrationResult, error)
	MigrateAllProfiles(ctx context.Context, opts MigrateOptions, filter ProfileFilter) (*BatchReport, error)
	UpdateSchema(ctx context.Context, profileType models.ProfileType, fields []models.FieldDescriptor, actor string) (*MigrationResult, error)
	PreviewJob(ctx context.Context, jobID int) (*JobMigrationResult, error)
	MigrateJob(ctx context.Context, jobID int, actor string) (*JobMigrationResult, error)
	MigrateAllJobs(ctx context.Context, opts MigrateOptions, filter JobFilter) (*JobBatchReport, error)
	GetProfileSummary(ctx context.Context) (*ProfileSummaryReport, error)
	KnownProfileTypes(ctx context.Context) ([]models.ProfileType, error)
	NextProfileType(ctx context.Context, source string) (models.ProfileType, error)
	ExportSQL(ctx context.Context, filter JobFilter, upload bool) (*SQLExport, error)
}

type migrationService struct {
	jobRepo  repositories.JobRepository
	fetcher  DefinitionFetcher
	parser   parser.Parser
	progress progress.Publisher
	store    storage.ObjectStore
	locks    *profileLocks
	logger   *slog.Logger
	now      func() time.Time
	newRunID func() string
}

// NewMigrationService wires the migrator. publisher and store may be nil.
func NewMigrationService(
	jobRepo repositories.JobRepository,
	fetcher DefinitionFetcher,
	p parser.Parser,
	publisher progress.Publisher,
	store storage.ObjectStore,
	logger *slog.Logger,
) MigrationService {
	if publisher == nil {
		publisher = progress.Discard{}
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &migrationService{
		jobRepo:  jobRepo,
		fetcher:  fetcher,
		parser:   p,
		progress: publisher,
		store:    store,
		locks:    newProfileLocks(),
		logger:   logger,
		now:      time.Now,
		newRunID: func() string { return uuid.NewString() },
	}
}

type builtSchema struct {
	doc           models.SchemaDocument
	definitionFP  string
	baseFP        string
	templateFound bool
}

// buildSchema fetches definition, base and template concurrently, parses and
// normalizes. The template is optional; the other two are not.
func (s *migrationService) buildSchema(ctx context.Context, pt models.ProfileType, stamp models.SourceStamp) (builtSchema, error) {
	var (
		def, base     definitions.Definition
		template      string
		templateFound bool
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		d, err := s.fetcher.FetchDefinition(gctx, pt)
		if err != nil {
			return err
		}
		def = d
		return nil
	})
	g.Go(func() error {
		b, err := s.fetcher.FetchBaseDefinition(gctx)
		if err != nil {
			return err
		}
		base = b
		return nil
	})
	g.Go(func() error {
		template, templateFound = s.fetcher.FetchTemplate(gctx, pt)
		return nil
	})
	if err := g.Wait(); err != nil {
		if errors.Is(err, definitions.ErrNotFound) {
			return builtSchema{}, fmt.Errorf("%w: %w", ErrDefinitionNotFound, err)
		}
		return builtSchema{}, fmt.Errorf("fetch definition for %s: %w", pt, err)
	}
	if !templateFound {
		s.logger.DebugContext(ctx, "no template, fields without visibility default to public", slog.String("profile_type", string(pt)))
	}

	fields, err := s.parser.Parse(def.Text, base.Text, template)
	if err != nil {
		return builtSchema{}, fmt.Errorf("%w: %s: %w", ErrDefinitionInvalid, pt, err)
	}

	stamp.DefinitionFingerprint = def.Fingerprint
	stamp.BaseFingerprint = base.Fingerprint
	return builtSchema{
		doc:           models.SchemaDocument{Fields: metadata.Normalize(fields), Source: &stamp},
		definitionFP:  def.Fingerprint,
		baseFP:        base.Fingerprint,
		templateFound: templateFound,
	}, nil
}

func (s *migrationService) stamp(pt models.ProfileType, actor, mode, runID string) models.SourceStamp {
	if strings.TrimSpace(actor) == "" {
		actor = defaultActor
	}
	return models.SourceStamp{
		MigratedBy:  actor,
		MigratedAt:  s.now().UTC().Format(time.RFC3339),
		Mode:        mode,
		RunID:       runID,
		ProfileType: string(pt),
	}
}

func (s *migrationService) MigrateProfile(ctx context.Context, profileType models.ProfileType, opts MigrateOptions) (*MigrationResult, error) {
	pt, ok := models.ParseProfileType(string(profileType))
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrProfileTypeInvalid, profileType)
	}
	res := s.migrateProfile(ctx, pt, opts, s.newRunID())
	res.finish()
	return res, nil
}

// migrateProfile never returns an error; every failure ends up in the result.
func (s *migrationService) migrateProfile(ctx context.Context, pt models.ProfileType, opts MigrateOptions, runID string) (res *MigrationResult) {
	res = &MigrationResult{ProfileType: pt, RunID: runID, DryRun: opts.DryRun}
	defer func() {
		if r := recover(); r != nil {
			s.logger.ErrorContext(ctx, "profile migration panicked", slog.String("profile_type", string(pt)), slog.Any("panic", r))
			res.Success = false
			res.Error = fmt.Sprintf("unexpected failure: %v", r)
		}
	}()

	if !opts.DryRun {
		unlock := s.locks.Lock(string(pt))
		defer unlock()
	}

	s.progress.Publish(progress.RoomMigrations, progress.EventMigrationStarted, map[string]any{
		"run_id": runID, "profile_type": pt, "dry_run": opts.DryRun,
	})
	defer func() {
		s.progress.Publish(progress.RoomMigrations, progress.EventMigrationFinished, map[string]any{
			"run_id": runID, "profile_type": pt, "success": res.Success, "jobs_affected": res.JobsAffected, "warnings": len(res.Warnings),
		})
	}()

	built, err := s.buildSchema(ctx, pt, s.stamp(pt, opts.Actor, models.SourceModeMigration, runID))
	if err != nil {
		s.logger.ErrorContext(ctx, "profile migration failed", slog.String("profile_type", string(pt)), slog.Any("error", err))
		res.Error = err.Error()
		return res
	}
	res.FieldCount = len(built.doc.Fields)
	res.DefinitionFingerprint = built.definitionFP
	res.BaseFingerprint = built.baseFP
	if opts.DryRun {
		doc := built.doc.Clone()
		res.Schema = &doc
	}

	s.propagate(ctx, res, built.doc, opts.DryRun)
	return res
}

// propagate writes one option-injected copy of doc to every job of the
// profile type, sequentially. Job failures are recorded, not returned.
func (s *migrationService) propagate(ctx context.Context, res *MigrationResult, doc models.SchemaDocument, dryRun bool) {
	jobs, err := s.jobRepo.ListByProfileType(ctx, res.ProfileType)
	if err != nil {
		res.Error = fmt.Sprintf("failed to list jobs for %s: %v", res.ProfileType, err)
		s.logger.ErrorContext(ctx, "listing jobs failed", slog.String("profile_type", string(res.ProfileType)), slog.Any("error", err))
		return
	}
	if len(jobs) == 0 {
		res.Success = true
		res.Skipped = true
		return
	}

	failed := 0
	for _, job := range jobs {
		var jr JobMigrationResult
		if ctxErr := ctx.Err(); ctxErr != nil {
			jr = JobMigrationResult{JobID: job.ID, JobName: job.Name, ProfileType: res.ProfileType, DryRun: dryRun, Error: ctxErr.Error()}
		} else {
			jr = s.propagateJob(ctx, job, doc, dryRun, false)
		}
		jr.finish()
		res.Jobs = append(res.Jobs, jr)

		if !jr.Success {
			failed++
		} else {
			res.JobsAffected++
		}
		for _, w := range jr.Warnings {
			res.Warnings = append(res.Warnings, fmt.Sprintf("job %d (%s): %s", job.ID, job.Name, w))
		}
		s.progress.Publish(progress.RoomMigrations, progress.EventMigrationJob, map[string]any{
			"run_id": doc.Source.RunID, "profile_type": res.ProfileType, "job_id": job.ID, "outcome": jr.Outcome,
		})
	}

	res.Success = failed == 0
	if failed > 0 {
		res.Error = fmt.Sprintf("%d of %d job updates failed", failed, len(jobs))
	}
	s.logger.InfoContext(ctx, "profile migrated",
		slog.String("profile_type", string(res.ProfileType)),
		slog.Bool("dry_run", dryRun),
		slog.Int("jobs", len(jobs)),
		slog.Int("failed", failed),
		slog.Int("warnings", len(res.Warnings)))
}

// propagateJob injects the job's own options into a private copy of doc.
func (s *migrationService) propagateJob(ctx context.Context, job models.Job, doc models.SchemaDocument, dryRun, withDiff bool) JobMigrationResult {
	jr := JobMigrationResult{JobID: job.ID, JobName: job.Name, ProfileType: job.Profile().ProfileType, DryRun: dryRun}

	perJob := doc.Clone()
	dict, err := metadata.ParseOptionDictionary(job.Options())
	if err != nil {
		s.logger.DebugContext(ctx, "job option dictionary malformed", slog.Int("job_id", job.ID), slog.Any("error", err))
		jr.Warnings = append(jr.Warnings, "job option dictionary is malformed; no options injected")
	}
	if unmapped := metadata.InjectOptions(&perJob, dict); len(unmapped) > 0 {
		jr.UnmappedFields = unmapped
		jr.Warnings = append(jr.Warnings, "SELECT fields missing data-source mapping: "+strings.Join(unmapped, ", "))
		s.logger.WarnContext(ctx, "select fields missing data-source mapping", slog.Int("job_id", job.ID), slog.Any("fields", unmapped))
	}

	data, err := metadata.Serialize(perJob)
	if err != nil {
		jr.Error = err.Error()
		return jr
	}
	jr.MetadataBytes = len(data)
	if withDiff {
		d := diffMetadata(fieldsOnly(job.Metadata()), fieldsOnly(string(data)))
		jr.Diff = &d
	}
	if dryRun {
		jr.Success = true
		return jr
	}

	if err := s.jobRepo.UpdateMetadata(ctx, job.ID, string(data)); err != nil {
		switch {
		case errors.Is(err, repositories.ErrJobMetadataTooLong):
			jr.Error = ErrMetadataTooLong.Error()
		case errors.Is(err, repositories.ErrJobNotFound):
			jr.Error = ErrJobNotFound.Error()
		default:
			jr.Error = fmt.Sprintf("failed to save metadata: %v", err)
		}
		s.logger.ErrorContext(ctx, "job metadata update failed", slog.Int("job_id", job.ID), slog.Any("error", err))
		return jr
	}
	jr.Success = true
	jr.Persisted = true
	return jr
}

// fieldsOnly drops the source stamp so previews do not report every run as a change.
func fieldsOnly(document string) string {
	doc, err := metadata.Deserialize([]byte(document))
	if err != nil {
		return document
	}
	doc.Source = nil
	data, err := metadata.Serialize(doc)
	if err != nil {
		return document
	}
	return string(data)
}

func (s *migrationService) MigrateAllProfiles(ctx context.Context, opts MigrateOptions, filter ProfileFilter) (*BatchReport, error) {
	types, err := s.resolveProfileTypes(ctx, filter)
	if err != nil {
		return nil, err
	}

	report := &BatchReport{RunID: s.newRunID(), DryRun: opts.DryRun, StartedAt: s.now(), Results: make([]MigrationResult, 0, len(types))}
	for _, pt := range types {
		if ctxErr := ctx.Err(); ctxErr != nil {
			report.add(&MigrationResult{ProfileType: pt, RunID: report.RunID, DryRun: opts.DryRun, Success: true, Skipped: true, Error: ctxErr.Error()})
			continue
		}
		report.add(s.migrateProfile(ctx, pt, opts, report.RunID))
	}
	report.FinishedAt = s.now()

	s.logger.InfoContext(ctx, "profile batch finished",
		slog.String("run_id", report.RunID),
		slog.Bool("dry_run", opts.DryRun),
		slog.Int("total", report.Counts.Total),
		slog.Int("failed", report.Counts.Failed),
		slog.Int("with_warnings", report.Counts.WithWarnings),
		slog.Int("skipped", report.Counts.Skipped))
	return report, nil
}

func (s *migrationService) resolveProfileTypes(ctx context.Context, filter ProfileFilter) ([]models.ProfileType, error) {
	var candidates []models.ProfileType
	if len(filter.ProfileTypes) > 0 {
		for _, raw := range filter.ProfileTypes {
			pt, ok := models.ParseProfileType(string(raw))
			if !ok {
				return nil, fmt.Errorf("%w: %q", ErrProfileTypeInvalid, raw)
			}
			candidates = append(candidates, pt)
		}
	} else {
		known, err := s.fetcher.ListKnownProfileTypes(ctx)
		if err != nil {
			return nil, fmt.Errorf("failed to list known profile types: %w", err)
		}
		candidates = known
	}

	seen := make(map[models.ProfileType]bool, len(candidates))
	out := make([]models.ProfileType, 0, len(candidates))
	for _, pt := range candidates {
		if seen[pt] || (filter.Family != "" && pt.Family() != filter.Family) {
			continue
		}
		seen[pt] = true
		out = append(out, pt)
	}
	return out, nil
}

func (s *migrationService) UpdateSchema(ctx context.Context, profileType models.ProfileType, fields []models.FieldDescriptor, actor string) (*MigrationResult, error) {
	pt, ok := models.ParseProfileType(string(profileType))
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrProfileTypeInvalid, profileType)
	}
	if err := validateSchemaFields(fields); err != nil {
		return nil, err
	}

	runID := s.newRunID()
	stamp := s.stamp(pt, actor, models.SourceModeEditor, runID)
	doc := models.SchemaDocument{Fields: metadata.Normalize(fields), Source: &stamp}

	unlock := s.locks.Lock(string(pt))
	defer unlock()

	res := &MigrationResult{ProfileType: pt, RunID: runID, FieldCount: len(doc.Fields)}
	s.propagate(ctx, res, doc, false)
	res.finish()
	return res, nil
}

func validateSchemaFields(fields []models.FieldDescriptor) error {
	if len(fields) == 0 {
		return fmt.Errorf("%w: at least one field is required", ErrSchemaInvalid)
	}
	seen := make(map[string]bool, len(fields))
	for i, f := range fields {
		name := strings.TrimSpace(f.Name)
		if name == "" {
			return fmt.Errorf("%w: field #%d has no name", ErrSchemaInvalid, i+1)
		}
		key := strings.ToLower(name)
		if seen[key] {
			return fmt.Errorf("%w: duplicate field name %q", ErrSchemaInvalid, name)
		}
		seen[key] = true
	}
	return nil
}

func (s *migrationService) PreviewJob(ctx context.Context, jobID int) (*JobMigrationResult, error) {
	return s.migrateSingleJob(ctx, jobID, MigrateOptions{DryRun: true})
}

func (s *migrationService) MigrateJob(ctx context.Context, jobID int, actor string) (*JobMigrationResult, error) {
	return s.migrateSingleJob(ctx, jobID, MigrateOptions{Actor: actor})
}

func (s *migrationService) migrateSingleJob(ctx context.Context, jobID int, opts MigrateOptions) (*JobMigrationResult, error) {
	job, err := s.jobRepo.GetByID(ctx, jobID)
	if err != nil {
		if errors.Is(err, repositories.ErrJobNotFound) {
			return nil, ErrJobNotFound
		}
		return nil, fmt.Errorf("failed to get job %d: %w", jobID, err)
	}
	pt := job.Profile().ProfileType
	if pt == "" {
		return nil, ErrJobHasNoProfile
	}
	if !opts.DryRun {
		unlock := s.locks.Lock(string(pt))
		defer unlock()
	}

	runID := s.newRunID()
	built, err := s.buildSchema(ctx, pt, s.stamp(pt, opts.Actor, models.SourceModeJob, runID))
	if err != nil {
		jr := JobMigrationResult{JobID: job.ID, JobName: job.Name, ProfileType: pt, DryRun: opts.DryRun, Error: err.Error()}
		jr.finish()
		return &jr, nil
	}
	jr := s.propagateJob(ctx, *job, built.doc, opts.DryRun, true)
	jr.finish()
	return &jr, nil
}

func (s *migrationService) MigrateAllJobs(ctx context.Context, opts MigrateOptions, filter JobFilter) (*JobBatchReport, error) {
	all, err := s.jobRepo.ListAll(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list jobs: %w", err)
	}

	report := &JobBatchReport{RunID: s.newRunID(), DryRun: opts.DryRun, StartedAt: s.now(), Results: make([]JobMigrationResult, 0)}
	selected := make(map[models.ProfileType]map[int]bool)
	var order []models.ProfileType
	for _, job := range all {
		if !filter.matches(job) {
			continue
		}
		pt := job.Profile().ProfileType
		if pt == "" {
			report.add(JobMigrationResult{JobID: job.ID, JobName: job.Name, DryRun: opts.DryRun, Outcome: OutcomeSkipped, Error: ErrJobHasNoProfile.Error()})
			continue
		}
		if selected[pt] == nil {
			selected[pt] = make(map[int]bool)
			order = append(order, pt)
		}
		selected[pt][job.ID] = true
	}
	sortProfileTypes(order)

	for _, pt := range order {
		report.addAll(s.migrateJobsOfProfile(ctx, pt, selected[pt], opts, report.RunID))
	}
	report.FinishedAt = s.now()
	return report, nil
}

func (b *JobBatchReport) addAll(results []JobMigrationResult) {
	for _, r := range results {
		b.add(r)
	}
}

func (s *migrationService) migrateJobsOfProfile(ctx context.Context, pt models.ProfileType, ids map[int]bool, opts MigrateOptions, runID string) []JobMigrationResult {
	if !opts.DryRun {
		unlock := s.locks.Lock(string(pt))
		defer unlock()
	}

	jobs, err := s.jobRepo.ListByProfileType(ctx, pt)
	if err != nil {
		return failAll(ids, pt, opts.DryRun, fmt.Sprintf("failed to list jobs: %v", err))
	}
	built, err := s.buildSchema(ctx, pt, s.stamp(pt, opts.Actor, models.SourceModeJob, runID))
	if err != nil {
		return failAll(ids, pt, opts.DryRun, err.Error())
	}

	results := make([]JobMigrationResult, 0, len(ids))
	for _, job := range jobs {
		if !ids[job.ID] {
			continue
		}
		if ctxErr := ctx.Err(); ctxErr != nil {
			results = append(results, JobMigrationResult{JobID: job.ID, JobName: job.Name, ProfileType: pt, DryRun: opts.DryRun, Error: ctxErr.Error()})
			continue
		}
		results = append(results, s.propagateJob(ctx, job, built.doc, opts.DryRun, false))
	}
	return results
}

func failAll(ids map[int]bool, pt models.ProfileType, dryRun bool, message string) []JobMigrationResult {
	keys := make([]int, 0, len(ids))
	for id := range ids {
		keys = append(keys, id)
	}
	sort.Ints(keys)
	out := make([]JobMigrationResult, 0, len(keys))
	for _, id := range keys {
		out = append(out, JobMigrationResult{JobID: id, ProfileType: pt, DryRun: dryRun, Error: message})
	}
	return out
}

func (s *migrationService) GetProfileSummary(ctx context.Context) (*ProfileSummaryReport, error) {
	jobs, err := s.jobRepo.ListAll(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list jobs: %w", err)
	}
	known, err := s.fetcher.ListKnownProfileTypes(ctx)
	if err != nil {
		s.logger.WarnContext(ctx, "known profile types unavailable for summary", slog.Any("error", err))
	}

	byType := make(map[models.ProfileType]*ProfileSummary)
	get := func(pt models.ProfileType) *ProfileSummary {
		if sum, ok := byType[pt]; ok {
			return sum
		}
		sum := &ProfileSummary{ProfileType: pt}
		byType[pt] = sum
		return sum
	}
	for _, pt := range known {
		get(pt).DefinitionAvailable = true
	}

	report := &ProfileSummaryReport{TotalJobs: len(jobs)}
	for _, job := range jobs {
		pt := job.Profile().ProfileType
		if pt == "" {
			report.JobsWithoutProfile++
			continue
		}
		sum := get(pt)
		sum.JobCount++
		if job.HasMetadata {
			sum.JobsWithMetadata++
		}
	}

	types := make([]models.ProfileType, 0, len(byType))
	for pt := range byType {
		types = append(types, pt)
	}
	sortProfileTypes(types)
	report.Profiles = make([]ProfileSummary, 0, len(types))
	for _, pt := range types {
		sum := byType[pt]
		if sum.JobCount > 0 {
			sum.CoveragePercent = float64(sum.JobsWithMetadata) * 100 / float64(sum.JobCount)
		}
		report.Profiles = append(report.Profiles, *sum)
	}
	return report, nil
}

func (s *migrationService) KnownProfileTypes(ctx context.Context) ([]models.ProfileType, error) {
	types, err := s.fetcher.ListKnownProfileTypes(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list known profile types: %w", err)
	}
	return types, nil
}

// NextProfileType scans every job's encoded profile string for segments of
// the source's family and returns max+1, or source+1 when none exist. The
// numeral keeps the source's zero padding.
func (s *migrationService) NextProfileType(ctx context.Context, source string) (models.ProfileType, error) {
	pt, ok := models.ParseProfileType(source)
	if !ok {
		return "", fmt.Errorf("%w: %q", ErrProfileTypeInvalid, source)
	}
	jobs, err := s.jobRepo.ListAll(ctx)
	if err != nil {
		return "", fmt.Errorf("failed to list jobs: %w", err)
	}

	family := pt.Family()
	highest, found := 0, false
	for _, job := range jobs {
		for _, n := range models.FamilySegmentNumbers(job.ProfileEncoding, family) {
			if !found || n > highest {
				highest, found = n, true
			}
		}
	}
	next := pt.Number() + 1
	if found {
		next = highest + 1
	}
	width := len(string(pt)) - len(string(family))
	return models.ProfileType(fmt.Sprintf("%s%0*d", family, width, next)), nil
}

func sortProfileTypes(types []models.ProfileType) {
	sort.Slice(types, func(i, j int) bool {
		if types[i].Family() != types[j].Family() {
			return types[i].Family() == models.FamilyPlayer
		}
		return types[i].Number() < types[j].Number()
	})
}
