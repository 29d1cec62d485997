package metadata

import (
	"testing"

	"github.com/Dosada05/league-registration/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"
)

func documentGenerator() *rapid.Generator[models.SchemaDocument] {
	word := rapid.StringMatching(`[A-Za-z][A-Za-z0-9_ ]{0,12}`)
	return rapid.Custom(func(t *rapid.T) models.SchemaDocument {
		n := rapid.IntRange(0, 8).Draw(t, "n")
		doc := models.SchemaDocument{}
		for i := 0; i < n; i++ {
			f := models.FieldDescriptor{
				Name:        word.Draw(t, "name"),
				DBColumn:    word.Draw(t, "dbColumn"),
				DisplayName: word.Draw(t, "displayName"),
				InputType:   rapid.SampledFrom([]models.InputType{models.InputText, models.InputSelect, models.InputHidden}).Draw(t, "inputType"),
				Order:       i + 1,
				Visibility:  rapid.SampledFrom([]models.Visibility{models.VisibilityHidden, models.VisibilityPublic, models.VisibilityAdminOnly}).Draw(t, "visibility"),
				Computed:    rapid.Bool().Draw(t, "computed"),
			}
			if rapid.Bool().Draw(t, "hasDataSource") {
				f.DataSource = word.Draw(t, "dataSource")
			}
			for j := rapid.IntRange(0, 3).Draw(t, "options"); j > 0; j-- {
				f.Options = append(f.Options, models.Option{Value: word.Draw(t, "value"), Label: word.Draw(t, "label")})
			}
			if rapid.Bool().Draw(t, "hasValidation") {
				minLen := rapid.IntRange(0, 10).Draw(t, "minLength")
				f.Validation = &models.ValidationRules{
					Required:  rapid.Bool().Draw(t, "required"),
					MinLength: &minLen,
					Pattern:   word.Draw(t, "pattern"),
				}
			}
			if rapid.Bool().Draw(t, "hasCondition") {
				f.ConditionalOn = &models.Condition{
					Field:    word.Draw(t, "condField"),
					Operator: "equals",
					Value:    models.ConditionValue(word.Draw(t, "condValue")),
				}
			}
			doc.Fields = append(doc.Fields, f)
		}
		if rapid.Bool().Draw(t, "hasSource") {
			doc.Source = &models.SourceStamp{MigratedBy: word.Draw(t, "actor"), MigratedAt: "2026-01-02T03:04:05Z", Mode: models.SourceModeMigration}
		}
		return doc
	})
}

func TestDocument_RoundTrip(t *testing.T) {
	rapid.Check(t, func(rt *rapid.T) {
		doc := documentGenerator().Draw(rt, "doc")

		first, err := Serialize(doc)
		if err != nil {
			rt.Fatal(err)
		}
		decoded, err := Deserialize(first)
		if err != nil {
			rt.Fatal(err)
		}
		second, err := Serialize(decoded)
		if err != nil {
			rt.Fatal(err)
		}
		if string(first) != string(second) {
			rt.Fatalf("round trip changed document:\n%s\n%s", first, second)
		}
	})
}

func TestSerialize_EmptyOptionsAsArray(t *testing.T) {
	data, err := Serialize(models.SchemaDocument{Fields: []models.FieldDescriptor{{Name: "a", InputType: models.InputText, Visibility: models.VisibilityPublic, Order: 1}}})
	require.NoError(t, err)
	assert.JSONEq(t, `{"fields":[{"name":"a","displayName":"","inputType":"TEXT","options":[],"order":1,"visibility":"public","computed":false}]}`, string(data))
}

func TestDeserialize_Malformed(t *testing.T) {
	_, err := Deserialize([]byte(`{"fields":`))
	require.ErrorIs(t, err, ErrMalformedDocument)
}

func TestDecodeLenient_Aliases(t *testing.T) {
	raw := `{
		"ProfileFields": [
			{"FieldName": "gradYear", "Label": "Graduation Year", "Type": "dropdown",
			 "DataSourceKey": "gradYears", "Visible": false, "SortOrder": 3,
			 "Items": [{"Value": "2026", "Text": "Class of 2026"}, "2027"]},
			{"name": "waiverAccepted", "displayName": "I Agree to the Waiver", "inputType": "checkbox",
			 "visibility": "public", "validation": {"requiredTrue": true}},
			{"Label": "no name"},
			"garbage"
		],
		"Source": {"migratedBy": "ops", "migratedAt": "2026-01-01T00:00:00Z"}
	}`

	doc, skipped, err := DecodeLenient([]byte(raw))
	require.NoError(t, err)
	assert.Equal(t, []string{"#3", "#4"}, skipped)
	require.Len(t, doc.Fields, 2)

	grad := doc.Fields[0]
	assert.Equal(t, "gradYear", grad.Name)
	assert.Equal(t, "Graduation Year", grad.DisplayName)
	assert.Equal(t, models.InputSelect, grad.InputType)
	assert.Equal(t, "gradYears", grad.DataSource)
	assert.Equal(t, models.VisibilityHidden, grad.Visibility)
	assert.Equal(t, 3, grad.Order)
	assert.Equal(t, []models.Option{{Value: "2026", Label: "Class of 2026"}, {Value: "2027", Label: "2027"}}, grad.Options)

	waiver := doc.Fields[1]
	assert.Equal(t, models.InputCheckbox, waiver.InputType)
	require.NotNil(t, waiver.Validation)
	assert.True(t, waiver.Validation.RequiredTrue)

	require.NotNil(t, doc.Source)
	assert.Equal(t, "ops", doc.Source.MigratedBy)
}

func TestDecodeLenient_BareArrayAndEmpty(t *testing.T) {
	doc, skipped, err := DecodeLenient([]byte(`[{"name":"a"}]`))
	require.NoError(t, err)
	assert.Empty(t, skipped)
	require.Len(t, doc.Fields, 1)
	assert.Equal(t, models.InputText, doc.Fields[0].InputType)
	assert.Equal(t, models.VisibilityPublic, doc.Fields[0].Visibility)

	doc, _, err = DecodeLenient([]byte("  "))
	require.NoError(t, err)
	assert.Empty(t, doc.Fields)

	_, _, err = DecodeLenient([]byte(`"nope"`))
	require.ErrorIs(t, err, ErrMalformedDocument)
}
