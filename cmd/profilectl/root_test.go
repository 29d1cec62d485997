package main

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"testing"

	"github.com/Dosada05/league-registration/config"
	"github.com/Dosada05/league-registration/models"
	"github.com/Dosada05/league-registration/services"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeService struct {
	services.MigrationService

	migrated   models.ProfileType
	opts       services.MigrateOptions
	jobFilter  services.JobFilter
	uploaded   bool
	closeCalls int
}

func (f *fakeService) MigrateProfile(_ context.Context, pt models.ProfileType, opts services.MigrateOptions) (*services.MigrationResult, error) {
	f.migrated, f.opts = pt, opts
	return &services.MigrationResult{ProfileType: pt, Success: true}, nil
}

func (f *fakeService) KnownProfileTypes(context.Context) ([]models.ProfileType, error) {
	return []models.ProfileType{"PP10", "CAC04"}, nil
}

func (f *fakeService) NextProfileType(_ context.Context, source string) (models.ProfileType, error) {
	return "PP11", nil
}

func (f *fakeService) ExportSQL(_ context.Context, filter services.JobFilter, upload bool) (*services.SQLExport, error) {
	f.jobFilter, f.uploaded = filter, upload
	return &services.SQLExport{Script: "BEGIN;\nCOMMIT;\n", Statements: 0}, nil
}

func runCLI(t *testing.T, svc *fakeService, args ...string) (string, *config.Config, error) {
	t.Helper()
	t.Setenv("DATABASE_URL", "")
	t.Setenv("ACTOR", "")

	var seen *config.Config
	open := func(_ context.Context, cfg *config.Config, _ *slog.Logger) (services.MigrationService, func() error, error) {
		seen = cfg
		return svc, func() error { svc.closeCalls++; return nil }, nil
	}

	root := newRootCmd(open)
	var out bytes.Buffer
	root.SetOut(&out)
	root.SetErr(&out)
	root.SetArgs(args)
	err := root.Execute()
	return out.String(), seen, err
}

func TestProfilectl_RequiresDatabaseURL(t *testing.T) {
	_, cfg, err := runCLI(t, &fakeService{}, "known")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "database url is required")
	assert.Nil(t, cfg)
}

func TestProfilectl_FlagsOverrideConfig(t *testing.T) {
	svc := &fakeService{}
	out, cfg, err := runCLI(t, svc, "known",
		"--database-url", "postgres://localhost/test",
		"--definitions-root", "/srv/definitions",
		"--log-level", "debug")
	require.NoError(t, err)

	require.NotNil(t, cfg)
	assert.Equal(t, "postgres://localhost/test", cfg.DatabaseURL)
	assert.Equal(t, "/srv/definitions", cfg.DefinitionsRoot)
	assert.Equal(t, slog.LevelDebug, cfg.LogLevel)
	assert.Equal(t, 1, svc.closeCalls)

	var known []string
	require.NoError(t, json.Unmarshal([]byte(out), &known))
	assert.Equal(t, []string{"PP10", "CAC04"}, known)
}

func TestProfilectl_MigrateUsesActorAndDryRun(t *testing.T) {
	svc := &fakeService{}
	_, _, err := runCLI(t, svc, "migrate", "PP10", "--dry-run",
		"--database-url", "postgres://localhost/test",
		"--actor", "ops@example.test")
	require.NoError(t, err)

	assert.Equal(t, models.ProfileType("PP10"), svc.migrated)
	assert.True(t, svc.opts.DryRun)
	assert.Equal(t, "ops@example.test", svc.opts.Actor)
}

func TestProfilectl_ExportSQLPrintsScript(t *testing.T) {
	svc := &fakeService{}
	out, _, err := runCLI(t, svc, "export-sql",
		"--database-url", "postgres://localhost/test",
		"--profile-type", "PP10,PP20",
		"--job-id", "3",
		"--name", "Spring")
	require.NoError(t, err)

	assert.Equal(t, "BEGIN;\nCOMMIT;\n", out)
	assert.False(t, svc.uploaded)
	assert.Equal(t, services.JobFilter{
		ProfileTypes: []models.ProfileType{"PP10", "PP20"},
		NameContains: "Spring",
		JobIDs:       []int{3},
	}, svc.jobFilter)
}

func TestProfilectl_NextAndJobIDValidation(t *testing.T) {
	out, _, err := runCLI(t, &fakeService{}, "next", "PP10", "--database-url", "postgres://localhost/test")
	require.NoError(t, err)
	assert.JSONEq(t, `{"source":"PP10","next":"PP11"}`, out)

	_, _, err = runCLI(t, &fakeService{}, "preview-job", "abc", "--database-url", "postgres://localhost/test")
	assert.ErrorContains(t, err, `invalid job id "abc"`)
}
