// Package registration interprets a job's persisted schema document at
// runtime and keeps per-entity form state for one household registration.
package registration

import (
	"log/slog"
	"strings"

	"github.com/Dosada05/league-registration/metadata"
	"github.com/Dosada05/league-registration/models"
)

// AliasMap resolves a key found in a stored submission (an old field name,
// a db column, a display name) to the current canonical field name.
type AliasMap struct {
	exact      map[string]string
	folded     map[string]string
	normalized map[string]string
}

func NewAliasMap() AliasMap {
	return AliasMap{exact: map[string]string{}, folded: map[string]string{}, normalized: map[string]string{}}
}

// Add registers alias for canonical. Earlier registrations win.
func (a AliasMap) Add(alias, canonical string) {
	alias = strings.TrimSpace(alias)
	if alias == "" || canonical == "" {
		return
	}
	if _, ok := a.exact[alias]; !ok {
		a.exact[alias] = canonical
	}
	if f := strings.ToLower(alias); a.folded[f] == "" {
		a.folded[f] = canonical
	}
	if n := metadata.NormalizeKey(alias); n != "" && a.normalized[n] == "" {
		a.normalized[n] = canonical
	}
}

// Lookup resolves by exact key, then ignoring case.
func (a AliasMap) Lookup(key string) (string, bool) {
	key = strings.TrimSpace(key)
	if c, ok := a.exact[key]; ok {
		return c, true
	}
	c, ok := a.folded[strings.ToLower(key)]
	return c, ok
}

// Resolve extends Lookup with a punctuation- and diacritic-insensitive match.
func (a AliasMap) Resolve(key string) (string, bool) {
	if c, ok := a.Lookup(key); ok {
		return c, true
	}
	c, ok := a.normalized[metadata.NormalizeKey(key)]
	return c, ok && c != ""
}

// Entries returns the exact alias table.
func (a AliasMap) Entries() map[string]string {
	out := make(map[string]string, len(a.exact))
	for k, v := range a.exact {
		out[k] = v
	}
	return out
}

// Schema is the interpreted form of a job's schema document.
type Schema struct {
	Fields   []models.FieldDescriptor
	Aliases  AliasMap
	Options  metadata.OptionDictionary
	Unmapped []string
	Source   *models.SourceStamp
}

// Field finds a field by canonical name, ignoring case.
func (s Schema) Field(name string) (models.FieldDescriptor, bool) {
	for _, f := range s.Fields {
		if strings.EqualFold(f.Name, name) {
			return f, true
		}
	}
	return models.FieldDescriptor{}, false
}

// Interpret never fails: a malformed document yields no fields and malformed
// options yield fields without options. Data-sourced select fields whose
// options cannot be resolved stay in the schema with an empty option list.
func Interpret(document, rawOptions string, logger *slog.Logger) Schema {
	if logger == nil {
		logger = slog.Default()
	}

	doc, skipped, err := metadata.DecodeLenient([]byte(document))
	if err != nil {
		logger.Warn("schema document unreadable, rendering no fields", slog.Any("error", err))
		doc = models.SchemaDocument{}
	}
	if len(skipped) > 0 {
		logger.Debug("schema document fields skipped", slog.Any("fields", skipped))
	}

	dict, err := metadata.ParseOptionDictionary(rawOptions)
	if err != nil {
		logger.Debug("job option dictionary unreadable, fields keep no options", slog.Any("error", err))
	}
	unmapped := metadata.InjectOptions(&doc, dict)
	for i := range doc.Fields {
		if doc.Fields[i].Options == nil {
			doc.Fields[i].Options = []models.Option{}
		}
		if c := doc.Fields[i].ConditionalOn; c != nil && !isEqualityOperator(c.Operator) {
			logger.Debug("conditional operator treated as equality",
				slog.String("field", doc.Fields[i].Name), slog.String("operator", c.Operator))
		}
	}

	return Schema{
		Fields:   doc.Fields,
		Aliases:  buildAliases(doc.Fields),
		Options:  dict,
		Unmapped: unmapped,
		Source:   doc.Source,
	}
}

func buildAliases(fields []models.FieldDescriptor) AliasMap {
	aliases := NewAliasMap()
	for _, f := range fields {
		aliases.Add(f.Name, f.Name)
	}
	for _, f := range fields {
		aliases.Add(f.DBColumn, f.Name)
	}
	for _, f := range fields {
		aliases.Add(f.DisplayName, f.Name)
	}
	return aliases
}
