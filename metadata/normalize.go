// Package metadata holds the profile schema pipeline shared by the migrator
// and the runtime interpreter: normalization, the persisted document format,
// option dictionaries, data-source key resolution and field heuristics.
package metadata

import (
	"sort"

	"github.com/Dosada05/league-registration/models"
)

// visibilityGroups is the fixed render grouping of a normalized schema.
var visibilityGroups = []models.Visibility{
	models.VisibilityHidden,
	models.VisibilityPublic,
	models.VisibilityAdminOnly,
}

// EnforceHiddenInputType forces InputHidden on every hidden field and reports
// how many fields were changed.
func EnforceHiddenInputType(fields []models.FieldDescriptor) int {
	changed := 0
	for i := range fields {
		if fields[i].Visibility == models.VisibilityHidden && fields[i].InputType != models.InputHidden {
			fields[i].InputType = models.InputHidden
			changed++
		}
	}
	return changed
}

// Reorder groups fields hidden → public → adminOnly, keeps each group's
// relative order by the existing Order (stable), and renumbers 1..N.
// Unknown visibilities are treated as public.
func Reorder(fields []models.FieldDescriptor) []models.FieldDescriptor {
	buckets := make(map[models.Visibility][]models.FieldDescriptor, len(visibilityGroups))
	for _, f := range fields {
		v := f.Visibility
		if v != models.VisibilityHidden && v != models.VisibilityAdminOnly {
			v = models.VisibilityPublic
		}
		buckets[v] = append(buckets[v], f)
	}

	out := make([]models.FieldDescriptor, 0, len(fields))
	for _, v := range visibilityGroups {
		group := buckets[v]
		sort.SliceStable(group, func(i, j int) bool { return group[i].Order < group[j].Order })
		out = append(out, group...)
	}
	for i := range out {
		out[i].Order = i + 1
	}
	return out
}

// Normalize applies every canonical invariant to a parser or editor field
// list. The input slice is not modified.
func Normalize(fields []models.FieldDescriptor) []models.FieldDescriptor {
	cloned := make([]models.FieldDescriptor, len(fields))
	for i, f := range fields {
		cloned[i] = f.Clone()
		if cloned[i].Visibility == "" {
			cloned[i].Visibility = models.VisibilityPublic
		}
		if cloned[i].InputType == "" {
			cloned[i].InputType = models.InputText
		}
	}
	EnforceHiddenInputType(cloned)
	return Reorder(cloned)
}

// IsNormalized reports whether fields satisfy the hidden-type and grouping invariants.
func IsNormalized(fields []models.FieldDescriptor) bool {
	group := 0
	for i, f := range fields {
		if f.Order != i+1 {
			return false
		}
		if f.Visibility == models.VisibilityHidden && f.InputType != models.InputHidden {
			return false
		}
		g := groupIndex(f.Visibility)
		if g < group {
			return false
		}
		group = g
	}
	return true
}

func groupIndex(v models.Visibility) int {
	for i, g := range visibilityGroups {
		if g == v {
			return i
		}
	}
	return 1
}
