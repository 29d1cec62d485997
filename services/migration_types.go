package services

import (
	"strings"
	"time"

	"github.com/Dosada05/league-registration/models"
)

type MigrateOptions struct {
	DryRun bool
	Actor  string
}

type Outcome string

const (
	OutcomeSucceeded    Outcome = "succeeded"
	OutcomeWithWarnings Outcome = "succeeded_with_warnings"
	OutcomeFailed       Outcome = "failed"
	OutcomeSkipped      Outcome = "skipped"
)

// MigrationResult is the outcome of one profile type's migration.
type MigrationResult struct {
	ProfileType           models.ProfileType     `json:"profile_type"`
	RunID                 string                 `json:"run_id"`
	DryRun                bool                   `json:"dry_run"`
	Success               bool                   `json:"success"`
	Skipped               bool                   `json:"skipped,omitempty"`
	Outcome               Outcome                `json:"outcome"`
	Error                 string                 `json:"error,omitempty"`
	Warnings              []string               `json:"warnings,omitempty"`
	FieldCount            int                    `json:"field_count"`
	JobsAffected          int                    `json:"jobs_affected"`
	DefinitionFingerprint string                 `json:"definition_fingerprint,omitempty"`
	BaseFingerprint       string                 `json:"base_fingerprint,omitempty"`
	Jobs                  []JobMigrationResult   `json:"jobs,omitempty"`
	// Schema is the regenerated document before per-job option injection;
	// set for dry runs only.
	Schema                *models.SchemaDocument `json:"schema,omitempty"`
}

func (r *MigrationResult) finish() {
	switch {
	case !r.Success:
		r.Outcome = OutcomeFailed
	case r.Skipped:
		r.Outcome = OutcomeSkipped
	case len(r.Warnings) > 0:
		r.Outcome = OutcomeWithWarnings
	default:
		r.Outcome = OutcomeSucceeded
	}
}

// JobMigrationResult is the outcome for one job.
type JobMigrationResult struct {
	JobID          int                `json:"job_id"`
	JobName        string             `json:"job_name"`
	ProfileType    models.ProfileType `json:"profile_type,omitempty"`
	DryRun         bool               `json:"dry_run"`
	Success        bool               `json:"success"`
	Persisted      bool               `json:"persisted"`
	Outcome        Outcome            `json:"outcome"`
	Error          string             `json:"error,omitempty"`
	Warnings       []string           `json:"warnings,omitempty"`
	UnmappedFields []string           `json:"unmapped_fields,omitempty"`
	MetadataBytes  int                `json:"metadata_bytes"`
	Diff           *MetadataDiff      `json:"diff,omitempty"`
}

func (r *JobMigrationResult) finish() {
	switch {
	case r.Outcome == OutcomeSkipped:
	case !r.Success:
		r.Outcome = OutcomeFailed
	case len(r.Warnings) > 0:
		r.Outcome = OutcomeWithWarnings
	default:
		r.Outcome = OutcomeSucceeded
	}
}

// ReportCounts are the operator-facing tallies of a batch.
type ReportCounts struct {
	Total        int `json:"total"`
	Succeeded    int `json:"succeeded"`
	WithWarnings int `json:"with_warnings"`
	Failed       int `json:"failed"`
	Skipped      int `json:"skipped"`
}

func (c *ReportCounts) add(o Outcome) {
	c.Total++
	switch o {
	case OutcomeSucceeded:
		c.Succeeded++
	case OutcomeWithWarnings:
		c.Succeeded++
		c.WithWarnings++
	case OutcomeFailed:
		c.Failed++
	case OutcomeSkipped:
		c.Skipped++
	}
}

type BatchReport struct {
	RunID      string            `json:"run_id"`
	DryRun     bool              `json:"dry_run"`
	StartedAt  time.Time         `json:"started_at"`
	FinishedAt time.Time         `json:"finished_at"`
	Counts     ReportCounts      `json:"counts"`
	Results    []MigrationResult `json:"results"`
}

func (b *BatchReport) add(r *MigrationResult) {
	r.finish()
	b.Counts.add(r.Outcome)
	b.Results = append(b.Results, *r)
}

type JobBatchReport struct {
	RunID      string               `json:"run_id"`
	DryRun     bool                 `json:"dry_run"`
	StartedAt  time.Time            `json:"started_at"`
	FinishedAt time.Time            `json:"finished_at"`
	Counts     ReportCounts         `json:"counts"`
	Results    []JobMigrationResult `json:"results"`
}

func (b *JobBatchReport) add(r JobMigrationResult) {
	r.finish()
	b.Counts.add(r.Outcome)
	b.Results = append(b.Results, r)
}

// ProfileFilter narrows a batch to explicit profile types and/or one family.
// An empty filter selects every known profile type.
type ProfileFilter struct {
	ProfileTypes []models.ProfileType `json:"profile_types,omitempty"`
	Family       models.ProfileFamily `json:"family,omitempty"`
}

// JobFilter narrows job batches and exports. Empty fields match everything.
type JobFilter struct {
	ProfileTypes []models.ProfileType `json:"profile_types,omitempty"`
	NameContains string               `json:"name_contains,omitempty"`
	JobIDs       []int                `json:"job_ids,omitempty"`
}

func (f JobFilter) matches(job models.Job) bool {
	if len(f.JobIDs) > 0 {
		found := false
		for _, id := range f.JobIDs {
			if id == job.ID {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	if f.NameContains != "" && !strings.Contains(strings.ToLower(job.Name), strings.ToLower(f.NameContains)) {
		return false
	}
	if len(f.ProfileTypes) > 0 {
		pt := job.Profile().ProfileType
		for _, want := range f.ProfileTypes {
			if want == pt {
				return true
			}
		}
		return false
	}
	return true
}

type ProfileSummary struct {
	ProfileType         models.ProfileType `json:"profile_type"`
	JobCount            int                `json:"job_count"`
	JobsWithMetadata    int                `json:"jobs_with_metadata"`
	CoveragePercent     float64            `json:"coverage_percent"`
	DefinitionAvailable bool               `json:"definition_available"`
}

type ProfileSummaryReport struct {
	TotalJobs          int              `json:"total_jobs"`
	JobsWithoutProfile int              `json:"jobs_without_profile"`
	Profiles           []ProfileSummary `json:"profiles"`
}

type SQLExport struct {
	Script     string    `json:"script"`
	Statements int       `json:"statements"`
	Key        string    `json:"key,omitempty"`
	URL        string    `json:"url,omitempty"`
	CreatedAt  time.Time `json:"created_at"`
}
