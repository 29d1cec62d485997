package metadata

import (
	"strings"

	"github.com/Dosada05/league-registration/models"
)

// Classification is the heuristic role of a field, derived from its name,
// label and input type. The token sets below are heuristics collected from
// live job configurations; they are matched against NormalizeKey output.
type Classification struct {
	Waiver        bool
	TeamSelection bool
	Eligibility   bool
	Membership    bool
}

var (
	waiverTokens = []string{"waiver", "release", "refund", "codeofconduct", "liability"}

	teamSelectionNames = map[string]bool{
		"team":            true,
		"teamid":          true,
		"teams":           true,
		"teamname":        true,
		"teamselection":   true,
		"assignedteam":    true,
		"teamassignment":  true,
		"assignedteamid":  true,
		"teamassignments": true,
	}

	eligibilityToken           = "eligibility"
	eligibilityCompanionTokens = []string{"constraint", "value"}

	membershipTokens = []string{"membership", "sportassn", "uslax", "usalacrosse", "memberid"}
)

// Classify is a pure function over a field's identity.
func Classify(name, label string, inputType models.InputType) Classification {
	n := NormalizeKey(name)
	l := NormalizeKey(label)

	var c Classification
	if inputType == models.InputCheckbox {
		c.Waiver = containsAny(n, waiverTokens) || containsAny(l, waiverTokens)
	}
	c.TeamSelection = teamSelectionNames[n] || teamSelectionNames[l]
	c.Eligibility = isEligibilityText(n) || isEligibilityText(l)
	if inputType != models.InputCheckbox {
		c.Membership = containsAny(n, membershipTokens) || containsAny(l, membershipTokens)
	}
	return c
}

// ClassifyField is Classify applied to a descriptor.
func ClassifyField(f models.FieldDescriptor) Classification {
	return Classify(f.Name, f.DisplayName, f.InputType)
}

func isEligibilityText(s string) bool {
	return strings.Contains(s, eligibilityToken) && containsAny(s, eligibilityCompanionTokens)
}

// ResolveEligibilityField picks the field that captures the constraint's
// value: the first public field whose normalized name or label contains every
// constraint token. Waiver and team-selection fields never qualify.
func ResolveEligibilityField(fields []models.FieldDescriptor, constraint models.EligibilityConstraint) (string, bool) {
	tokens := constraint.Tokens()
	if len(tokens) == 0 {
		return "", false
	}
	for _, f := range fields {
		if f.Visibility != models.VisibilityPublic {
			continue
		}
		if c := ClassifyField(f); c.Waiver || c.TeamSelection {
			continue
		}
		if containsAll(NormalizeKey(f.Name), tokens) || containsAll(NormalizeKey(f.DisplayName), tokens) {
			return f.Name, true
		}
	}
	return "", false
}

func containsAny(s string, tokens []string) bool {
	if s == "" {
		return false
	}
	for _, t := range tokens {
		if strings.Contains(s, t) {
			return true
		}
	}
	return false
}

func containsAll(s string, tokens []string) bool {
	if s == "" {
		return false
	}
	for _, t := range tokens {
		if !strings.Contains(s, t) {
			return false
		}
	}
	return true
}
