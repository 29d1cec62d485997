package metadata

import (
	"testing"

	"github.com/Dosada05/league-registration/models"
	"github.com/stretchr/testify/assert"
)

func TestClassify(t *testing.T) {
	tests := []struct {
		name      string
		field     string
		label     string
		inputType models.InputType
		want      Classification
	}{
		{"waiver by label", "waiverAccepted", "I Agree to the Waiver", models.InputCheckbox, Classification{Waiver: true}},
		{"refund policy", "agree1", "Refund Policy", models.InputCheckbox, Classification{Waiver: true}},
		{"code of conduct", "cocAgree", "Code of Conduct", models.InputCheckbox, Classification{Waiver: true}},
		{"liability release", "liabilityRelease", "", models.InputCheckbox, Classification{Waiver: true}},
		{"waiver text is not a checkbox", "waiverNotes", "Waiver Notes", models.InputTextArea, Classification{}},
		{"team id", "TeamID", "Team", models.InputSelect, Classification{TeamSelection: true}},
		{"assigned team label", "assigned", "Assigned Team", models.InputSelect, Classification{TeamSelection: true}},
		{"team colour is not team selection", "teamColor", "Team Color", models.InputText, Classification{}},
		{"eligibility constraint", "eligibilityConstraintValue", "", models.InputText, Classification{Eligibility: true}},
		{"eligibility alone", "eligibility", "Eligibility", models.InputText, Classification{}},
		{"membership number", "sportAssnId", "US Lacrosse #", models.InputText, Classification{Membership: true}},
		{"membership by label", "memberNo", "Membership Number", models.InputText, Classification{Membership: true}},
		{"membership checkbox", "hasMembership", "Has Membership", models.InputCheckbox, Classification{}},
		{"plain", "firstName", "First Name", models.InputText, Classification{}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Classify(tt.field, tt.label, tt.inputType))
		})
	}
}

func TestResolveEligibilityField(t *testing.T) {
	fields := []models.FieldDescriptor{
		{Name: "internalAgeGroup", Visibility: models.VisibilityHidden},
		{Name: "ageGroupName", Visibility: models.VisibilityPublic},
		{Name: "shirtSize", Visibility: models.VisibilityPublic},
		{Name: "gy", DisplayName: "Graduation Year", Visibility: models.VisibilityPublic},
		{Name: "clubName", Visibility: models.VisibilityAdminOnly},
	}

	tests := []struct {
		constraint models.EligibilityConstraint
		want       string
		ok         bool
	}{
		{models.ConstraintByAgeGroup, "ageGroupName", true},
		{models.ConstraintByGradYear, "gy", true},
		{models.ConstraintByAgeRange, "", false},
		{models.ConstraintByClubName, "", false},
		{models.ConstraintNone, "", false},
	}
	for _, tt := range tests {
		t.Run(string(tt.constraint), func(t *testing.T) {
			got, ok := ResolveEligibilityField(fields, tt.constraint)
			assert.Equal(t, tt.ok, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestResolveEligibilityField_SkipsWaiverAndTeamFields(t *testing.T) {
	tests := map[string][]models.FieldDescriptor{
		"waiver before club name": {
			{Name: "clubWaiver", DisplayName: "Club Waiver", InputType: models.InputCheckbox, Visibility: models.VisibilityPublic},
			{Name: "clubName", Visibility: models.VisibilityPublic},
		},
		"team before club name": {
			{Name: "team", DisplayName: "Club Team", InputType: models.InputSelect, Visibility: models.VisibilityPublic},
			{Name: "clubName", Visibility: models.VisibilityPublic},
		},
	}
	for name, fields := range tests {
		t.Run(name, func(t *testing.T) {
			got, ok := ResolveEligibilityField(fields, models.ConstraintByClubName)
			assert.True(t, ok)
			assert.Equal(t, "clubName", got)
		})
	}
}
