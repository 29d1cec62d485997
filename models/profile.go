package models

import (
	"regexp"
	"strconv"
	"strings"
)

// ProfileFamily is the prefix of a profile type code.
type ProfileFamily string

const (
	FamilyPlayer ProfileFamily = "PP"  // single registrant
	FamilyClub   ProfileFamily = "CAC" // multi registrant / club
)

// ProfileType identifies a family of jobs sharing one field schema, e.g. PP10 or CAC04.
type ProfileType string

var profileTypeRe = regexp.MustCompile(`(?i)^(PP|CAC)(\d+)$`)

// ParseProfileType accepts a code in any letter case and returns it upper-cased.
func ParseProfileType(raw string) (ProfileType, bool) {
	s := strings.TrimSpace(raw)
	m := profileTypeRe.FindStringSubmatch(s)
	if m == nil {
		return "", false
	}
	return ProfileType(strings.ToUpper(m[1]) + m[2]), true
}

func (p ProfileType) Family() ProfileFamily {
	if strings.HasPrefix(string(p), string(FamilyClub)) {
		return FamilyClub
	}
	if strings.HasPrefix(string(p), string(FamilyPlayer)) {
		return FamilyPlayer
	}
	return ""
}

// Number returns the trailing numeral of the code, or 0 when there is none.
func (p ProfileType) Number() int {
	n, _ := trailingNumber(string(p))
	return n
}

func (p ProfileType) IsMultiRegistrant() bool {
	return p.Family() == FamilyClub
}

func (p ProfileType) String() string {
	return string(p)
}

// EligibilityConstraint decides which schema field captures the eligibility value
// and how team options are filtered.
type EligibilityConstraint string

const (
	ConstraintNone       EligibilityConstraint = ""
	ConstraintByGradYear EligibilityConstraint = "BYGRADYEAR"
	ConstraintByAgeGroup EligibilityConstraint = "BYAGEGROUP"
	ConstraintByAgeRange EligibilityConstraint = "BYAGERANGE"
	ConstraintByClubName EligibilityConstraint = "BYCLUBNAME"
)

func ParseEligibilityConstraint(raw string) (EligibilityConstraint, bool) {
	switch c := EligibilityConstraint(strings.ToUpper(strings.TrimSpace(raw))); c {
	case ConstraintByGradYear, ConstraintByAgeGroup, ConstraintByAgeRange, ConstraintByClubName:
		return c, true
	}
	return ConstraintNone, false
}

// Tokens are the lower-case name fragments that must all appear in a field's
// name or label for it to be the constraint's field.
func (c EligibilityConstraint) Tokens() []string {
	switch c {
	case ConstraintByGradYear:
		return []string{"grad", "year"}
	case ConstraintByAgeGroup:
		return []string{"age", "group"}
	case ConstraintByAgeRange:
		return []string{"age", "range"}
	case ConstraintByClubName:
		return []string{"club"}
	}
	return nil
}

// ProfileEncoding is the decoded form of a job's pipe-delimited profile string,
// e.g. "PP10|BYGRADYEAR|ALLOWPIF".
type ProfileEncoding struct {
	Raw         string                `json:"raw"`
	ProfileType ProfileType           `json:"profile_type,omitempty"`
	Constraint  EligibilityConstraint `json:"constraint,omitempty"`
	Flags       []string              `json:"flags,omitempty"`
}

const profileDelimiter = "|"

// ParseProfileEncoding never fails; "0" and "1" are legacy markers for
// "no profile configured" and decode to an empty encoding.
func ParseProfileEncoding(raw string) ProfileEncoding {
	enc := ProfileEncoding{Raw: raw}
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" || trimmed == "0" || trimmed == "1" {
		return enc
	}

	for _, segment := range strings.Split(trimmed, profileDelimiter) {
		segment = strings.TrimSpace(segment)
		if segment == "" {
			continue
		}
		if enc.ProfileType == "" {
			if pt, ok := ParseProfileType(segment); ok {
				enc.ProfileType = pt
				continue
			}
		}
		if enc.Constraint == ConstraintNone {
			if c, ok := ParseEligibilityConstraint(segment); ok {
				enc.Constraint = c
				continue
			}
		}
		enc.Flags = append(enc.Flags, segment)
	}
	return enc
}

func (e ProfileEncoding) HasProfile() bool {
	return e.ProfileType != ""
}

// FamilySegmentNumbers splits a raw profile string and returns the trailing
// numbers of every segment belonging to the given family.
func FamilySegmentNumbers(raw string, family ProfileFamily) []int {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" || trimmed == "0" || trimmed == "1" {
		return nil
	}
	var out []int
	for _, segment := range strings.Split(trimmed, profileDelimiter) {
		segment = strings.ToUpper(strings.TrimSpace(segment))
		if !strings.HasPrefix(segment, string(family)) {
			continue
		}
		if n, ok := trailingNumber(segment); ok {
			out = append(out, n)
		}
	}
	return out
}

func trailingNumber(s string) (int, bool) {
	end := len(s)
	start := end
	for start > 0 && s[start-1] >= '0' && s[start-1] <= '9' {
		start--
	}
	if start == end {
		return 0, false
	}
	n, err := strconv.Atoi(s[start:end])
	if err != nil {
		return 0, false
	}
	return n, true
}
