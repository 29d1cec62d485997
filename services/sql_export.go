package services

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"sort"
	"strings"

	"github.com/Dosada05/league-registration/models"
	"github.com/lib/pq"
)

const (
	exportKeyPrefix   = "exports/"
	exportContentType = "application/sql"
)

// ExportSQL renders the stored metadata of every matching job as one
// transaction of UPDATE statements, for manual application elsewhere.
// Jobs without a profile type or without metadata are left out.
func (s *migrationService) ExportSQL(ctx context.Context, filter JobFilter, upload bool) (*SQLExport, error) {
	if upload && s.store == nil {
		return nil, ErrExportStoreDisabled
	}

	all, err := s.jobRepo.ListAll(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list jobs: %w", err)
	}
	wanted := make(map[models.ProfileType]map[int]bool)
	for _, job := range all {
		pt := job.Profile().ProfileType
		if pt == "" || !job.HasMetadata || !filter.matches(job) {
			continue
		}
		if wanted[pt] == nil {
			wanted[pt] = make(map[int]bool)
		}
		wanted[pt][job.ID] = true
	}

	types := make([]models.ProfileType, 0, len(wanted))
	for pt := range wanted {
		types = append(types, pt)
	}
	sortProfileTypes(types)

	var jobs []models.Job
	for _, pt := range types {
		rows, err := s.jobRepo.ListByProfileType(ctx, pt)
		if err != nil {
			return nil, fmt.Errorf("failed to list jobs for %s: %w", pt, err)
		}
		for _, job := range rows {
			if wanted[pt][job.ID] && strings.TrimSpace(job.Metadata()) != "" {
				jobs = append(jobs, job)
			}
		}
	}
	sort.SliceStable(jobs, func(i, j int) bool { return jobs[i].ID < jobs[j].ID })

	created := s.now().UTC()
	export := &SQLExport{Script: renderSQL(jobs, created.Format("2006-01-02T15:04:05Z")), Statements: len(jobs), CreatedAt: created}
	if !upload {
		return export, nil
	}

	key := exportKeyPrefix + "profile-metadata-" + created.Format("20060102T150405Z") + ".sql"
	res, err := s.store.Upload(ctx, key, exportContentType, bytes.NewReader([]byte(export.Script)))
	if err != nil {
		s.logger.ErrorContext(ctx, "sql export upload failed", slog.String("key", key), slog.Any("error", err))
		return nil, fmt.Errorf("%w: %w", ErrExportUploadFailed, err)
	}
	export.Key = res.Key
	export.URL = s.store.GetPublicURL(res.Key)
	s.logger.InfoContext(ctx, "sql export uploaded", slog.String("key", res.Key), slog.Int("statements", export.Statements))
	return export, nil
}

func renderSQL(jobs []models.Job, generatedAt string) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "-- profile metadata export, %d job(s), generated %s\n", len(jobs), generatedAt)
	sb.WriteString("BEGIN;\n")
	for _, job := range jobs {
		fmt.Fprintf(&sb, "-- %d %s (%s)\n", job.ID, sqlComment(job.Name), job.Profile().ProfileType)
		fmt.Fprintf(&sb, "UPDATE jobs SET player_profile_metadata_json = %s WHERE id = %d;\n",
			pq.QuoteLiteral(job.Metadata()), job.ID)
	}
	sb.WriteString("COMMIT;\n")
	return sb.String()
}

// sqlComment keeps a job name on one comment line.
func sqlComment(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
