package registration

import (
	"fmt"
	"log/slog"
	"regexp"
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/Dosada05/league-registration/models"
)

var emailRe = regexp.MustCompile(`^[^@\s]+@[^@\s]+\.[^@\s]+$`)

// validateField runs, in order: required-ness, type coercion, the declared
// extra rules, then membership status. The first failure is returned.
// Callers hold o.mu.
func (o *Orchestrator) validateField(entityID string, f models.FieldDescriptor) string {
	v := o.forms.Get(entityID, f.Name)
	label := f.Label()

	if f.IsRequired() {
		switch f.InputType {
		case models.InputCheckbox:
			if !asBool(v) {
				return o.message(f, label+" must be checked.")
			}
		case models.InputMultiSelect:
			if len(asStrings(v)) == 0 {
				return o.message(f, "Select at least one "+label+".")
			}
		default:
			if isBlank(v) {
				return o.message(f, label+" is required.")
			}
		}
	}
	if isBlank(v) || f.InputType == models.InputCheckbox {
		return ""
	}

	if msg := o.checkType(f, v, label); msg != "" {
		return o.message(f, msg)
	}
	if msg := o.checkRules(entityID, f, v, label); msg != "" {
		return o.message(f, msg)
	}
	if o.classes[f.Name].Membership {
		return o.checkMembership(entityID, f.Name, asString(v))
	}
	return ""
}

func (o *Orchestrator) message(f models.FieldDescriptor, fallback string) string {
	if f.Validation != nil && strings.TrimSpace(f.Validation.Message) != "" {
		return f.Validation.Message
	}
	return fallback
}

func (o *Orchestrator) checkType(f models.FieldDescriptor, v any, label string) string {
	switch f.InputType {
	case models.InputNumber:
		if _, ok := parseNumber(v); !ok {
			return label + " must be a number."
		}
	case models.InputDate:
		if _, ok := parseDate(asString(v)); !ok {
			return label + " must be a valid date."
		}
	case models.InputSelect:
		if len(f.Options) > 0 && !hasOption(f.Options, asString(v)) {
			return label + " has an invalid selection."
		}
	case models.InputMultiSelect:
		if len(f.Options) > 0 {
			for _, s := range asStrings(v) {
				if !hasOption(f.Options, s) {
					return fmt.Sprintf("%s has an invalid selection (%s).", label, s)
				}
			}
		}
	case models.InputEmail:
		if !emailRe.MatchString(asString(v)) {
			return label + " must be a valid email address."
		}
	}
	return ""
}

func (o *Orchestrator) checkRules(entityID string, f models.FieldDescriptor, v any, label string) string {
	rules := f.Validation
	if rules == nil {
		return ""
	}
	s := asString(v)

	if rules.Email && !emailRe.MatchString(s) {
		return label + " must be a valid email address."
	}
	if rules.MinLength != nil && utf8.RuneCountInString(s) < *rules.MinLength {
		return fmt.Sprintf("%s must be at least %d characters.", label, *rules.MinLength)
	}
	if rules.MaxLength != nil && utf8.RuneCountInString(s) > *rules.MaxLength {
		return fmt.Sprintf("%s must be at most %d characters.", label, *rules.MaxLength)
	}
	if rules.Pattern != "" {
		re, err := regexp.Compile(rules.Pattern)
		if err != nil {
			o.logger.Debug("ignoring invalid validation pattern", slog.String("field", f.Name), slog.Any("error", err))
		} else if !re.MatchString(s) {
			return label + " is not in the expected format."
		}
	}
	if rules.Min != nil || rules.Max != nil {
		n, ok := parseNumber(v)
		if ok && rules.Min != nil && n < *rules.Min {
			return label + " must be at least " + strconv.FormatFloat(*rules.Min, 'f', -1, 64) + "."
		}
		if ok && rules.Max != nil && n > *rules.Max {
			return label + " must be at most " + strconv.FormatFloat(*rules.Max, 'f', -1, 64) + "."
		}
	}
	if rules.Compare != "" {
		other := rules.Compare
		if canonical, ok := o.schema.Aliases.Resolve(other); ok {
			other = canonical
		}
		if s != asString(o.forms.Get(entityID, other)) {
			otherLabel := other
			if of, ok := o.schema.Field(other); ok {
				otherLabel = of.Label()
			}
			return label + " does not match " + otherLabel + "."
		}
	}
	return ""
}

// checkMembership reads the asynchronous status; it never calls out itself.
func (o *Orchestrator) checkMembership(entityID, field, number string) string {
	if number == MembershipSentinel {
		return ""
	}
	st := o.membership.get(entityID, field)
	switch st.State {
	case MembershipValid:
		return ""
	case MembershipInvalid:
		if st.Message != "" {
			return st.Message
		}
		return "Membership number is not valid."
	case MembershipValidating:
		return "Membership number is still being verified."
	default:
		return "Membership number has not been verified yet."
	}
}

func hasOption(options []models.Option, value string) bool {
	for _, opt := range options {
		if strings.EqualFold(strings.TrimSpace(opt.Value), value) {
			return true
		}
	}
	return false
}
