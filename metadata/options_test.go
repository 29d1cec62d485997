package metadata

import (
	"testing"

	"github.com/Dosada05/league-registration/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseOptionDictionary(t *testing.T) {
	raw := `{
		"List_Positions": ["Attack", "Midfield", {"Value": "D", "Text": "Defense"}],
		"ListSizes_Jersey": [{"value": "YS", "label": "Youth Small"}, {"ID": 7, "Name": "Adult XL"}, {}],
		"Teams": [{"id": 12, "text": "2026 Boys"}],
		"FeeNote": "not a list",
		"Teams": ["duplicate ignored"]
	}`

	dict, err := ParseOptionDictionary(raw)
	require.NoError(t, err)
	assert.Equal(t, []string{"List_Positions", "ListSizes_Jersey", "Teams", "FeeNote"}, dict.Keys())
	assert.Equal(t, 4, dict.Len())

	positions, ok := dict.Lookup("positions")
	require.True(t, ok)
	assert.Equal(t, ProviderJobOptions, positions.Provider)
	assert.True(t, positions.ReadOnly)
	assert.Equal(t, []models.Option{
		{Value: "Attack", Label: "Attack"},
		{Value: "Midfield", Label: "Midfield"},
		{Value: "D", Label: "Defense"},
	}, positions.Values)

	jersey, ok := dict.Lookup("jerseySizes")
	require.True(t, ok)
	assert.Equal(t, []models.Option{
		{Value: "YS", Label: "Youth Small"},
		{Value: "7", Label: "Adult XL"},
	}, jersey.Values)

	teams, ok := dict.Lookup("teams")
	require.True(t, ok)
	assert.Equal(t, []models.Option{{Value: "12", Label: "2026 Boys"}}, teams.Values)

	_, ok = dict.Lookup("feeNote")
	assert.False(t, ok, "non-array value holds no options")

	assert.Len(t, dict.Sets(), 3)
}

func TestParseOptionDictionary_Malformed(t *testing.T) {
	for _, raw := range []string{`[1,2]`, `{"a": [`, `not json`} {
		dict, err := ParseOptionDictionary(raw)
		assert.Error(t, err, raw)
		assert.Zero(t, dict.Len())
		_, ok := dict.Lookup("a")
		assert.False(t, ok)
	}

	dict, err := ParseOptionDictionary("")
	require.NoError(t, err)
	assert.Zero(t, dict.Len())
}

func TestOptionDictionary_Add(t *testing.T) {
	var dict OptionDictionary
	dict.Add(OptionSet{Key: "gradYears", Provider: ProviderRegistration, Values: []models.Option{{Value: "2026", Label: "2026"}}})

	set, ok := dict.Lookup("GradYears")
	require.True(t, ok)
	assert.Equal(t, ProviderRegistration, set.Provider)
	assert.Equal(t, []string{"gradYears"}, dict.Keys())
}
