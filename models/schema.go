package models

import "strings"

// SourceStamp records who produced a schema document and from what.
type SourceStamp struct {
	MigratedBy            string `json:"migratedBy"`
	MigratedAt            string `json:"migratedAt"`
	Mode                  string `json:"mode,omitempty"`
	RunID                 string `json:"runId,omitempty"`
	ProfileType           string `json:"profileType,omitempty"`
	DefinitionFingerprint string `json:"definitionFingerprint,omitempty"`
	BaseFingerprint       string `json:"baseFingerprint,omitempty"`
}

const (
	SourceModeMigration = "migration"
	SourceModeEditor    = "editor"
	SourceModeJob       = "job"
)

// SchemaDocument is the persisted, versioned-by-overwrite field list of a profile type.
type SchemaDocument struct {
	Fields []FieldDescriptor `json:"fields"`
	Source *SourceStamp      `json:"source,omitempty"`
}

// Clone deep-copies the document so per-job option injection never touches the original.
func (d SchemaDocument) Clone() SchemaDocument {
	out := SchemaDocument{Fields: make([]FieldDescriptor, len(d.Fields))}
	for i, f := range d.Fields {
		out.Fields[i] = f.Clone()
	}
	if d.Source != nil {
		s := *d.Source
		out.Source = &s
	}
	return out
}

// Field finds a field by case-insensitive name.
func (d SchemaDocument) Field(name string) (FieldDescriptor, bool) {
	for _, f := range d.Fields {
		if strings.EqualFold(f.Name, name) {
			return f, true
		}
	}
	return FieldDescriptor{}, false
}
