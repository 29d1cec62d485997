package repositories

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/Dosada05/league-registration/models"
	"github.com/lib/pq"
)

var (
	ErrJobNotFound        = errors.New("job not found")
	ErrJobMetadataTooLong = errors.New("job metadata exceeds column size")
)

type JobRepository interface {
	GetByID(ctx context.Context, id int) (*models.Job, error)
	// ListAll returns every job without metadata/options bodies; HasMetadata is populated.
	ListAll(ctx context.Context) ([]models.Job, error)
	// ListByProfileType returns full rows of jobs whose encoded profile resolves to profileType.
	ListByProfileType(ctx context.Context, profileType models.ProfileType) ([]models.Job, error)
	UpdateMetadata(ctx context.Context, id int, metadataJSON string) error
}

type postgresJobRepository struct {
	db *sql.DB
}

func NewPostgresJobRepository(db *sql.DB) JobRepository {
	return &postgresJobRepository{db: db}
}

func (r *postgresJobRepository) GetByID(ctx context.Context, id int) (*models.Job, error) {
	query := `
		SELECT id, name, player_profile, player_profile_metadata_json, job_options_json, updated_at
		FROM jobs
		WHERE id = $1`

	job, err := scanJob(r.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrJobNotFound
		}
		return nil, err
	}
	return job, nil
}

func (r *postgresJobRepository) ListAll(ctx context.Context) ([]models.Job, error) {
	query := `
		SELECT id, name, COALESCE(player_profile, ''), updated_at,
		       (player_profile_metadata_json IS NOT NULL AND player_profile_metadata_json <> '') AS has_metadata
		FROM jobs
		ORDER BY id ASC`

	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	jobs := make([]models.Job, 0)
	for rows.Next() {
		var job models.Job
		if err := rows.Scan(&job.ID, &job.Name, &job.ProfileEncoding, &job.UpdatedAt, &job.HasMetadata); err != nil {
			return nil, err
		}
		jobs = append(jobs, job)
	}
	if err = rows.Err(); err != nil {
		return nil, err
	}
	return jobs, nil
}

func (r *postgresJobRepository) ListByProfileType(ctx context.Context, profileType models.ProfileType) ([]models.Job, error) {
	// LIKE narrows the scan; the encoding is re-parsed so PP1 does not match PP10.
	query := `
		SELECT id, name, player_profile, player_profile_metadata_json, job_options_json, updated_at
		FROM jobs
		WHERE UPPER(player_profile) LIKE '%' || $1 || '%'
		ORDER BY id ASC`

	rows, err := r.db.QueryContext(ctx, query, string(profileType))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	jobs := make([]models.Job, 0)
	for rows.Next() {
		job, scanErr := scanJob(rows)
		if scanErr != nil {
			return nil, scanErr
		}
		if job.Profile().ProfileType != profileType {
			continue
		}
		jobs = append(jobs, *job)
	}
	if err = rows.Err(); err != nil {
		return nil, err
	}
	return jobs, nil
}

func (r *postgresJobRepository) UpdateMetadata(ctx context.Context, id int, metadataJSON string) error {
	query := `UPDATE jobs SET player_profile_metadata_json = $1, updated_at = NOW() WHERE id = $2`

	result, err := r.db.ExecContext(ctx, query, metadataJSON, id)
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code == "22001" { // string_data_right_truncation
			return fmt.Errorf("%w (job %d)", ErrJobMetadataTooLong, id)
		}
		return err
	}
	return checkAffectedRows(result, ErrJobNotFound)
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanJob(row rowScanner) (*models.Job, error) {
	var (
		job      models.Job
		profile  sql.NullString
		metadata sql.NullString
		options  sql.NullString
	)
	if err := row.Scan(&job.ID, &job.Name, &profile, &metadata, &options, &job.UpdatedAt); err != nil {
		return nil, err
	}
	job.ProfileEncoding = profile.String
	if metadata.Valid {
		job.MetadataJSON = &metadata.String
		job.HasMetadata = metadata.String != ""
	}
	if options.Valid {
		job.OptionsJSON = &options.String
	}
	return &job, nil
}
