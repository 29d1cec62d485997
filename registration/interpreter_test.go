package registration

import (
	"testing"

	"github.com/Dosada05/league-registration/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const interpreterDoc = `{
	"fields": [
		{"name": "gradYear", "dbColumn": "Grad_Year", "displayName": "Graduation Year", "inputType": "SELECT",
		 "dataSource": "gradYears", "options": [], "order": 1, "visibility": "public", "computed": false},
		{"name": "position", "displayName": "Position", "inputType": "SELECT", "dataSource": "positions",
		 "options": [], "order": 2, "visibility": "public", "computed": false},
		{"name": "jersey", "displayName": "Jersey", "inputType": "SELECT", "dataSource": "jerseySizes",
		 "options": [], "order": 3, "visibility": "public", "computed": false,
		 "conditionalOn": {"field": "position", "operator": "contains", "value": "G"}}
	],
	"source": {"migratedBy": "ops", "migratedAt": "2026-02-01T00:00:00Z"}
}`

func TestInterpret(t *testing.T) {
	schema := Interpret(interpreterDoc, `{"GradYears": ["2026", "2027"], "List_Positions": [{"Value": "G", "Text": "Goalie"}]}`, nil)

	require.Len(t, schema.Fields, 3)
	assert.Equal(t, []models.Option{{Value: "2026", Label: "2026"}, {Value: "2027", Label: "2027"}}, schema.Fields[0].Options)
	assert.Equal(t, []models.Option{{Value: "G", Label: "Goalie"}}, schema.Fields[1].Options)
	assert.NotNil(t, schema.Fields[2].Options, "unmapped select still renders as an empty dropdown")
	assert.Empty(t, schema.Fields[2].Options)
	assert.Equal(t, []string{"jersey"}, schema.Unmapped)
	require.NotNil(t, schema.Source)
	assert.Equal(t, "ops", schema.Source.MigratedBy)

	for alias, want := range map[string]string{
		"gradYear":        "gradYear",
		"GRADYEAR":        "gradYear",
		"Grad_Year":       "gradYear",
		"Graduation Year": "gradYear",
	} {
		got, ok := schema.Aliases.Lookup(alias)
		require.True(t, ok, alias)
		assert.Equal(t, want, got, alias)
	}
	_, ok := schema.Aliases.Lookup("grad-year")
	assert.False(t, ok)
	got, ok := schema.Aliases.Resolve("grad-year")
	require.True(t, ok)
	assert.Equal(t, "gradYear", got)
}

func TestInterpret_Degrades(t *testing.T) {
	schema := Interpret(`{"fields": [`, `{"positions": ["A"]}`, nil)
	assert.Empty(t, schema.Fields)

	schema = Interpret(interpreterDoc, `{not json`, nil)
	require.Len(t, schema.Fields, 3)
	for _, f := range schema.Fields {
		assert.Empty(t, f.Options, f.Name)
	}
	assert.Equal(t, []string{"gradYear", "position", "jersey"}, schema.Unmapped)
}

func TestAliasMap_FirstRegistrationWins(t *testing.T) {
	a := NewAliasMap()
	a.Add("team", "team")
	a.Add("Team", "teamName")
	got, ok := a.Lookup("TEAM")
	require.True(t, ok)
	assert.Equal(t, "team", got)
	assert.Equal(t, map[string]string{"team": "team", "Team": "teamName"}, a.Entries())
}
