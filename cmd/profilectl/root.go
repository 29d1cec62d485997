package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/Dosada05/league-registration/config"
	"github.com/Dosada05/league-registration/db"
	"github.com/Dosada05/league-registration/definitions"
	"github.com/Dosada05/league-registration/parser"
	"github.com/Dosada05/league-registration/repositories"
	"github.com/Dosada05/league-registration/services"
	"github.com/Dosada05/league-registration/storage"
	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var version = "dev"

// serviceOpener builds a migration service from resolved configuration. The
// returned func releases whatever the service holds open.
type serviceOpener func(ctx context.Context, cfg *config.Config, logger *slog.Logger) (services.MigrationService, func() error, error)

type cli struct {
	v       *viper.Viper
	open    serviceOpener
	cfgFile string
}

func newRootCmd(open serviceOpener) *cobra.Command {
	c := &cli{v: viper.New(), open: open}

	root := &cobra.Command{
		Use:           "profilectl",
		Short:         "Operate on registration profile metadata",
		Long:          `Migrates profile definitions into job metadata, previews job changes and exports SQL for manual application.`,
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	flags := root.PersistentFlags()
	flags.StringVarP(&c.cfgFile, "config", "c", "", "config file with the same keys as the environment (lower case)")
	flags.String("database-url", "", "PostgreSQL connection string (env DATABASE_URL)")
	flags.String("definitions-source", "", "fs or s3 (env DEFINITIONS_SOURCE)")
	flags.String("definitions-root", "", "definitions directory or bucket prefix (env DEFINITIONS_ROOT)")
	flags.String("log-level", "", "debug, info, warn or error (env LOG_LEVEL)")
	flags.String("actor", "", "name recorded in migration stamps (default profilectl:$USER)")

	for _, name := range []string{"database-url", "definitions-source", "definitions-root", "log-level", "actor"} {
		_ = c.v.BindPFlag(strings.ReplaceAll(name, "-", "_"), flags.Lookup(name))
	}

	root.AddCommand(
		c.migrateCmd(),
		c.migrateAllCmd(),
		c.migrateJobsCmd(),
		c.previewJobCmd(),
		c.migrateJobCmd(),
		c.summaryCmd(),
		c.knownCmd(),
		c.nextCmd(),
		c.exportSQLCmd(),
	)
	return root
}

// withService resolves flags, config file and environment in that order of
// precedence, opens the service for the duration of fn and prints its result.
func (c *cli) withService(cmd *cobra.Command, fn func(ctx context.Context, svc services.MigrationService) (any, error)) error {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	svc, closer, err := c.setup(ctx)
	if err != nil {
		return err
	}
	defer func() {
		if closer != nil {
			_ = closer()
		}
	}()

	out, err := fn(ctx, svc)
	if err != nil {
		return err
	}
	if s, ok := out.(string); ok {
		_, err = io.WriteString(cmd.OutOrStdout(), s)
		return err
	}
	return writeJSON(cmd.OutOrStdout(), out)
}

func (c *cli) setup(ctx context.Context) (services.MigrationService, func() error, error) {
	_ = godotenv.Load()

	c.v.AutomaticEnv()
	if c.cfgFile != "" {
		c.v.SetConfigFile(c.cfgFile)
		if err := c.v.ReadInConfig(); err != nil {
			return nil, nil, fmt.Errorf("reading config file: %w", err)
		}
	}

	cfg, err := config.Parse(c.lookup)
	if err != nil {
		return nil, nil, err
	}
	if cfg.DatabaseURL == "" {
		return nil, nil, errors.New("database url is required: set --database-url or DATABASE_URL")
	}

	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: cfg.LogLevel}))
	return c.open(ctx, cfg, logger)
}

func (c *cli) actor() string {
	if a := strings.TrimSpace(c.v.GetString("actor")); a != "" {
		return a
	}
	if u := os.Getenv("USER"); u != "" {
		return "profilectl:" + u
	}
	return "profilectl"
}

// lookup feeds config.Parse from viper so flags and config files override
// the process environment.
func (c *cli) lookup(key string) (string, bool) {
	v := c.v.GetString(strings.ToLower(key))
	if v != "" {
		return v, true
	}
	return os.LookupEnv(key)
}

func openMigrationService(ctx context.Context, cfg *config.Config, logger *slog.Logger) (services.MigrationService, func() error, error) {
	dbConn, err := db.Connect(cfg.DatabaseURL, 5*time.Second)
	if err != nil {
		return nil, nil, err
	}

	var store storage.ObjectStore
	if cfg.R2Configured() {
		store, err = storage.NewCloudflareR2Store(storage.CloudflareR2Config{
			AccountID:       cfg.R2AccountID,
			AccessKeyID:     cfg.R2AccessKeyID,
			SecretAccessKey: cfg.R2SecretAccessKey,
			BucketName:      cfg.R2BucketName,
			PublicBaseURL:   cfg.R2PublicBaseURL,
		})
		if err != nil {
			_ = dbConn.Close()
			return nil, nil, err
		}
	}

	source := definitions.NewDirSource(cfg.DefinitionsRoot)
	if cfg.DefinitionsSource == config.DefinitionsSourceS3 {
		source = definitions.NewObjectSource(store, cfg.DefinitionsPrefix())
	}
	fetcher := definitions.NewFetcher(source, definitions.FetcherConfig{
		DefinitionTTL: cfg.DefinitionCacheTTL,
		BaseTTL:       cfg.BaseDefinitionCacheTTL,
	}, logger)

	svc := services.NewMigrationService(
		repositories.NewPostgresJobRepository(dbConn),
		fetcher,
		parser.NewYAMLParser(),
		nil,
		store,
		logger,
	)
	return svc, dbConn.Close, nil
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
