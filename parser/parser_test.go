package parser

import (
	"errors"
	"testing"

	"github.com/Dosada05/league-registration/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const baseYAML = `
fields:
  - name: firstName
    displayName: First Name
    inputType: TEXT
    visibility: public
    validation: {required: true}
  - name: lastName
    displayName: Last Name
    visibility: public
  - name: legacyCode
    visibility: adminOnly
`

func TestYAMLParser_MergesBaseAndProfile(t *testing.T) {
	profile := `
exclude: [legacyCode]
fields:
  - name: lastName
    displayName: Surname
    visibility: public
  - name: gradYear
    inputType: dropdown
    dataSource: gradYears
    visibility: public
`
	fields, err := NewYAMLParser().Parse(profile, baseYAML, "")
	require.NoError(t, err)

	require.Len(t, fields, 3)
	assert.Equal(t, "firstName", fields[0].Name)
	assert.Equal(t, "Surname", fields[1].DisplayName, "profile overrides base field")
	assert.Equal(t, "gradYear", fields[2].Name)
	assert.Equal(t, models.InputSelect, fields[2].InputType)
	assert.Equal(t, "gradYears", fields[2].DataSource)
	require.NotNil(t, fields[0].Validation)
	assert.True(t, fields[0].Validation.Required)
}

func TestYAMLParser_InheritBaseFalse(t *testing.T) {
	profile := `
inheritBase: false
fields:
  - name: clubName
    visibility: public
`
	fields, err := NewYAMLParser().Parse(profile, baseYAML, "")
	require.NoError(t, err)
	require.Len(t, fields, 1)
	assert.Equal(t, "clubName", fields[0].Name)
}

func TestYAMLParser_TemplateDrivesDefaultVisibility(t *testing.T) {
	profile := `
inheritBase: false
fields:
  - name: shirtSize
  - name: internalId
  - name: parentEmail
  - name: notes
    visibility: adminOnly
`
	template := `
<form>
  <select name="shirtSize"></select>
  <input type="hidden" name="internalId" />
</form>`
	fields, err := NewYAMLParser().Parse(profile, "", template)
	require.NoError(t, err)

	got := map[string]models.Visibility{}
	for _, f := range fields {
		got[f.Name] = f.Visibility
	}
	assert.Equal(t, models.VisibilityPublic, got["shirtSize"])
	assert.Equal(t, models.VisibilityHidden, got["internalId"], "rendered as hidden input")
	assert.Equal(t, models.VisibilityHidden, got["parentEmail"], "not rendered by template")
	assert.Equal(t, models.VisibilityAdminOnly, got["notes"], "explicit visibility wins")
}

func TestYAMLParser_NoTemplateDefaultsToPublic(t *testing.T) {
	fields, err := NewYAMLParser().Parse("inheritBase: false\nfields:\n  - name: a\n", "", "")
	require.NoError(t, err)
	assert.Equal(t, models.VisibilityPublic, fields[0].Visibility)
	assert.Equal(t, 1, fields[0].Order, "order falls back to declaration order")
}

func TestYAMLParser_ConditionalOn(t *testing.T) {
	profile := `
inheritBase: false
fields:
  - name: playsGoalie
    inputType: CHECKBOX
  - name: gloveSize
    conditionalOn: {field: playsGoalie, operator: equals, value: "true"}
`
	fields, err := NewYAMLParser().Parse(profile, "", "")
	require.NoError(t, err)
	require.NotNil(t, fields[1].ConditionalOn)
	assert.Equal(t, "playsGoalie", fields[1].ConditionalOn.Field)
	assert.Equal(t, models.ConditionValue("true"), fields[1].ConditionalOn.Value)
}

func TestYAMLParser_Errors(t *testing.T) {
	tests := []struct {
		name    string
		profile string
	}{
		{"malformed yaml", "fields: [\n"},
		{"missing name", "inheritBase: false\nfields:\n  - displayName: x\n"},
		{"duplicate name", "inheritBase: false\nfields:\n  - name: a\n  - name: A\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewYAMLParser().Parse(tt.profile, "", "")
			require.Error(t, err)
			assert.True(t, errors.Is(err, ErrInvalidDefinition))
		})
	}
}
