package main

import (
	"context"
	"fmt"
	"strconv"

	"github.com/Dosada05/league-registration/models"
	"github.com/Dosada05/league-registration/services"
	"github.com/spf13/cobra"
)

func (c *cli) migrateCmd() *cobra.Command {
	var dryRun bool
	cmd := &cobra.Command{
		Use:   "migrate <profile-type>",
		Short: "Regenerate one profile type and propagate it to its jobs",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.withService(cmd, func(ctx context.Context, svc services.MigrationService) (any, error) {
				return svc.MigrateProfile(ctx, models.ProfileType(args[0]), services.MigrateOptions{DryRun: dryRun, Actor: c.actor()})
			})
		},
	}
	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "compute results without writing job metadata")
	return cmd
}

func (c *cli) migrateAllCmd() *cobra.Command {
	var (
		dryRun       bool
		profileTypes []string
		family       string
	)
	cmd := &cobra.Command{
		Use:   "migrate-all",
		Short: "Regenerate every known profile type",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			filter := services.ProfileFilter{
				ProfileTypes: toProfileTypes(profileTypes),
				Family:       models.ProfileFamily(family),
			}
			return c.withService(cmd, func(ctx context.Context, svc services.MigrationService) (any, error) {
				return svc.MigrateAllProfiles(ctx, services.MigrateOptions{DryRun: dryRun, Actor: c.actor()}, filter)
			})
		},
	}
	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "compute results without writing job metadata")
	cmd.Flags().StringSliceVar(&profileTypes, "profile-type", nil, "limit to these profile types")
	cmd.Flags().StringVar(&family, "family", "", "limit to one family (PP or CAC)")
	return cmd
}

func (c *cli) migrateJobsCmd() *cobra.Command {
	var (
		dryRun bool
		filter jobFilterFlags
	)
	cmd := &cobra.Command{
		Use:   "migrate-jobs",
		Short: "Regenerate metadata for every matching job",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.withService(cmd, func(ctx context.Context, svc services.MigrationService) (any, error) {
				return svc.MigrateAllJobs(ctx, services.MigrateOptions{DryRun: dryRun, Actor: c.actor()}, filter.toFilter())
			})
		},
	}
	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "compute results without writing job metadata")
	filter.register(cmd)
	return cmd
}

func (c *cli) previewJobCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "preview-job <job-id>",
		Short: "Show the regenerated metadata for a job and its diff against the stored copy",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			jobID, err := parseJobID(args[0])
			if err != nil {
				return err
			}
			return c.withService(cmd, func(ctx context.Context, svc services.MigrationService) (any, error) {
				return svc.PreviewJob(ctx, jobID)
			})
		},
	}
}

func (c *cli) migrateJobCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate-job <job-id>",
		Short: "Regenerate and store metadata for one job",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			jobID, err := parseJobID(args[0])
			if err != nil {
				return err
			}
			return c.withService(cmd, func(ctx context.Context, svc services.MigrationService) (any, error) {
				return svc.MigrateJob(ctx, jobID, c.actor())
			})
		},
	}
}

func (c *cli) summaryCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "summary",
		Short: "Job counts and metadata coverage per profile type",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.withService(cmd, func(ctx context.Context, svc services.MigrationService) (any, error) {
				return svc.GetProfileSummary(ctx)
			})
		},
	}
}

func (c *cli) knownCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "known",
		Short: "List profile types that have a definition",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.withService(cmd, func(ctx context.Context, svc services.MigrationService) (any, error) {
				return svc.KnownProfileTypes(ctx)
			})
		},
	}
}

func (c *cli) nextCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "next <profile-type>",
		Short: "Suggest the next unused profile type in the same family",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.withService(cmd, func(ctx context.Context, svc services.MigrationService) (any, error) {
				next, err := svc.NextProfileType(ctx, args[0])
				if err != nil {
					return nil, err
				}
				return map[string]string{"source": args[0], "next": string(next)}, nil
			})
		},
	}
}

func (c *cli) exportSQLCmd() *cobra.Command {
	var (
		filter jobFilterFlags
		upload bool
	)
	cmd := &cobra.Command{
		Use:   "export-sql",
		Short: "Print UPDATE statements for stored job metadata",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.withService(cmd, func(ctx context.Context, svc services.MigrationService) (any, error) {
				export, err := svc.ExportSQL(ctx, filter.toFilter(), upload)
				if err != nil {
					return nil, err
				}
				if upload {
					return export, nil
				}
				return export.Script, nil
			})
		},
	}
	filter.register(cmd)
	cmd.Flags().BoolVar(&upload, "upload", false, "upload the script to object storage and print its location")
	return cmd
}

type jobFilterFlags struct {
	profileTypes []string
	name         string
	jobIDs       []int
}

func (f *jobFilterFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringSliceVar(&f.profileTypes, "profile-type", nil, "limit to these profile types")
	cmd.Flags().StringVar(&f.name, "name", "", "limit to jobs whose name contains this text")
	cmd.Flags().IntSliceVar(&f.jobIDs, "job-id", nil, "limit to these job ids")
}

func (f *jobFilterFlags) toFilter() services.JobFilter {
	return services.JobFilter{
		ProfileTypes: toProfileTypes(f.profileTypes),
		NameContains: f.name,
		JobIDs:       f.jobIDs,
	}
}

func toProfileTypes(raw []string) []models.ProfileType {
	if len(raw) == 0 {
		return nil
	}
	out := make([]models.ProfileType, 0, len(raw))
	for _, r := range raw {
		out = append(out, models.ProfileType(r))
	}
	return out
}

func parseJobID(raw string) (int, error) {
	id, err := strconv.Atoi(raw)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("invalid job id %q", raw)
	}
	return id, nil
}
