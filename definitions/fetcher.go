// Package definitions retrieves canonical profile definition files, the shared
// base definition and optional companion templates.
package definitions

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"sort"
	"time"

	"github.com/Dosada05/league-registration/cache"
	"github.com/Dosada05/league-registration/models"
	"golang.org/x/sync/singleflight"
)

var ErrNotFound = errors.New("definition not found")

const (
	DefaultDefinitionTTL = 5 * time.Minute
	DefaultBaseTTL       = 24 * time.Hour
)

// Definition is one fetched source file.
type Definition struct {
	ProfileType models.ProfileType `json:"profile_type,omitempty"`
	Path        string             `json:"path"`
	Text        string             `json:"-"`
	Fingerprint string             `json:"fingerprint"`
}

type templateEntry struct {
	Text  string
	Found bool
}

type FetcherConfig struct {
	// DefinitionTTL applies to per-profile definitions and templates.
	DefinitionTTL time.Duration
	// BaseTTL applies to the shared base definition.
	BaseTTL time.Duration
}

type Fetcher struct {
	source      Source
	definitions *cache.TTL[Definition]
	templates   *cache.TTL[templateEntry]
	base        *cache.TTL[Definition]
	group       singleflight.Group
	logger      *slog.Logger
}

func NewFetcher(source Source, cfg FetcherConfig, logger *slog.Logger) *Fetcher {
	if cfg.DefinitionTTL <= 0 {
		cfg.DefinitionTTL = DefaultDefinitionTTL
	}
	if cfg.BaseTTL <= 0 {
		cfg.BaseTTL = DefaultBaseTTL
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Fetcher{
		source:      source,
		definitions: cache.New[Definition]("profile-definitions", cfg.DefinitionTTL, cache.DefaultCleanupInterval, logger),
		templates:   cache.New[templateEntry]("profile-templates", cfg.DefinitionTTL, cache.DefaultCleanupInterval, logger),
		base:        cache.New[Definition]("base-definition", cfg.BaseTTL, cache.DefaultCleanupInterval, logger),
		logger:      logger,
	}
}

// FetchDefinition returns the definition source for a profile type or ErrNotFound.
func (f *Fetcher) FetchDefinition(ctx context.Context, pt models.ProfileType) (Definition, error) {
	if def, ok := f.definitions.Get(string(pt)); ok {
		return def, nil
	}

	v, err, _ := f.group.Do("definition:"+string(pt), func() (interface{}, error) {
		def, err := f.locateDefinition(ctx, pt)
		if err != nil {
			return Definition{}, err
		}
		f.definitions.Set(string(pt), def)
		return def, nil
	})
	if err != nil {
		return Definition{}, err
	}
	return v.(Definition), nil
}

func (f *Fetcher) FetchBaseDefinition(ctx context.Context) (Definition, error) {
	if def, ok := f.base.Get(BaseDefinitionPath); ok {
		return def, nil
	}

	v, err, _ := f.group.Do("base", func() (interface{}, error) {
		data, err := f.source.ReadFile(ctx, BaseDefinitionPath)
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return Definition{}, fmt.Errorf("%w: base definition %s", ErrNotFound, BaseDefinitionPath)
			}
			return Definition{}, fmt.Errorf("failed to read base definition: %w", err)
		}
		def := Definition{Path: BaseDefinitionPath, Text: string(data), Fingerprint: Fingerprint(data)}
		f.base.Set(BaseDefinitionPath, def)
		return def, nil
	})
	if err != nil {
		return Definition{}, err
	}
	return v.(Definition), nil
}

// FetchTemplate is best-effort: any failure degrades to "no template".
func (f *Fetcher) FetchTemplate(ctx context.Context, pt models.ProfileType) (string, bool) {
	if entry, ok := f.templates.Get(string(pt)); ok {
		return entry.Text, entry.Found
	}

	v, _, _ := f.group.Do("template:"+string(pt), func() (interface{}, error) {
		data, err := f.source.ReadFile(ctx, templatePath(pt))
		if err != nil {
			if !errors.Is(err, fs.ErrNotExist) {
				f.logger.WarnContext(ctx, "template read failed, continuing without template",
					slog.String("profile_type", string(pt)), slog.Any("error", err))
				// Transient failures are not cached.
				return templateEntry{}, nil
			}
			entry := templateEntry{}
			f.templates.Set(string(pt), entry)
			return entry, nil
		}
		entry := templateEntry{Text: string(data), Found: true}
		f.templates.Set(string(pt), entry)
		return entry, nil
	})
	entry, _ := v.(templateEntry)
	return entry.Text, entry.Found
}

// ListKnownProfileTypes scans the player and club directories, sorted by family then number.
func (f *Fetcher) ListKnownProfileTypes(ctx context.Context) ([]models.ProfileType, error) {
	seen := make(map[models.ProfileType]struct{})
	out := make([]models.ProfileType, 0)

	scans := []struct {
		dir    string
		family models.ProfileFamily
	}{
		{PlayerProfileDir, models.FamilyPlayer},
		{ClubProfileDir, models.FamilyClub},
	}
	for _, scan := range scans {
		names, err := f.source.ListDir(ctx, scan.dir)
		if err != nil {
			return nil, fmt.Errorf("failed to list %s: %w", scan.dir, err)
		}
		for _, name := range names {
			pt, ok := profileTypeFromFileName(scan.family, name)
			if !ok {
				f.logger.DebugContext(ctx, "skipping file outside naming convention",
					slog.String("dir", scan.dir), slog.String("file", name))
				continue
			}
			if _, dup := seen[pt]; dup {
				continue
			}
			seen[pt] = struct{}{}
			out = append(out, pt)
		}
	}

	sort.Slice(out, func(i, j int) bool {
		if out[i].Family() != out[j].Family() {
			return out[i].Family() == models.FamilyPlayer
		}
		return out[i].Number() < out[j].Number()
	})
	return out, nil
}

func (f *Fetcher) locateDefinition(ctx context.Context, pt models.ProfileType) (Definition, error) {
	for _, candidate := range definitionCandidates(pt) {
		data, err := f.source.ReadFile(ctx, candidate)
		if err == nil {
			return Definition{ProfileType: pt, Path: candidate, Text: string(data), Fingerprint: Fingerprint(data)}, nil
		}
		if !errors.Is(err, fs.ErrNotExist) {
			return Definition{}, fmt.Errorf("failed to read definition %s: %w", candidate, err)
		}
	}

	if pt.IsMultiRegistrant() {
		dir := profileDir(pt)
		names, err := f.source.ListDir(ctx, dir)
		if err != nil {
			return Definition{}, fmt.Errorf("failed to list %s: %w", dir, err)
		}
		for _, name := range names {
			if match, ok := profileTypeFromFileName(models.FamilyClub, name); ok && match == pt {
				data, err := f.source.ReadFile(ctx, dir+"/"+name)
				if err != nil {
					return Definition{}, fmt.Errorf("failed to read definition %s/%s: %w", dir, name, err)
				}
				return Definition{ProfileType: pt, Path: dir + "/" + name, Text: string(data), Fingerprint: Fingerprint(data)}, nil
			}
		}
	}

	return Definition{}, fmt.Errorf("%w: %s", ErrNotFound, pt)
}
