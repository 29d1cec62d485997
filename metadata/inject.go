package metadata

import (
	"github.com/Dosada05/league-registration/models"
)

// needsOptions reports whether a field draws its options from a job data source.
func needsOptions(f models.FieldDescriptor) bool {
	if f.DataSource == "" {
		return false
	}
	return f.InputType == models.InputSelect || f.InputType == models.InputMultiSelect
}

// InjectOptions fills options of data-sourced select fields from the job's
// dictionary. It mutates doc, so callers pass a per-job clone. The names of
// fields whose data source could not be mapped are returned; those fields
// keep whatever options they already had.
func InjectOptions(doc *models.SchemaDocument, dict OptionDictionary) []string {
	var unmapped []string
	for i := range doc.Fields {
		f := &doc.Fields[i]
		if !needsOptions(*f) {
			continue
		}
		set, ok := dict.Lookup(f.DataSource)
		if !ok {
			unmapped = append(unmapped, f.Name)
			continue
		}
		f.Options = append([]models.Option(nil), set.Values...)
	}
	return unmapped
}

// SelectFieldsWithDataSource lists the fields InjectOptions would try to fill.
func SelectFieldsWithDataSource(fields []models.FieldDescriptor) []string {
	var out []string
	for _, f := range fields {
		if needsOptions(f) {
			out = append(out, f.Name)
		}
	}
	return out
}
