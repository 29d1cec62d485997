package models

import (
	"encoding/json"
	"strconv"
	"strings"
)

type InputType string

const (
	InputText        InputType = "TEXT"
	InputTextArea    InputType = "TEXTAREA"
	InputNumber      InputType = "NUMBER"
	InputEmail       InputType = "EMAIL"
	InputPhone       InputType = "PHONE"
	InputSelect      InputType = "SELECT"
	InputMultiSelect InputType = "MULTISELECT"
	InputCheckbox    InputType = "CHECKBOX"
	InputDate        InputType = "DATE"
	InputHidden      InputType = "HIDDEN"
)

// ParseInputType upper-cases and maps a few spellings seen in older documents.
func ParseInputType(raw string) InputType {
	s := strings.ToUpper(strings.TrimSpace(raw))
	switch s {
	case "":
		return InputText
	case "DROPDOWN", "DROPDOWNLIST":
		return InputSelect
	case "MULTI-SELECT", "MULTI_SELECT", "LISTBOX":
		return InputMultiSelect
	case "BOOL", "BOOLEAN", "YESNO":
		return InputCheckbox
	case "DATETIME":
		return InputDate
	case "INT", "INTEGER", "DECIMAL":
		return InputNumber
	}
	return InputType(s)
}

type Visibility string

const (
	VisibilityPublic    Visibility = "public"
	VisibilityAdminOnly Visibility = "adminOnly"
	VisibilityHidden    Visibility = "hidden"
)

// ParseVisibility is case-insensitive; unknown values are treated as public.
func ParseVisibility(raw string) Visibility {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "hidden":
		return VisibilityHidden
	case "adminonly", "admin_only", "admin":
		return VisibilityAdminOnly
	}
	return VisibilityPublic
}

// Option is one {value,label} entry of a dropdown.
type Option struct {
	Value string `json:"value" yaml:"value"`
	Label string `json:"label" yaml:"label"`
}

type ValidationRules struct {
	Required     bool     `json:"required,omitempty" yaml:"required"`
	Email        bool     `json:"email,omitempty" yaml:"email"`
	RequiredTrue bool     `json:"requiredTrue,omitempty" yaml:"requiredTrue"`
	MinLength    *int     `json:"minLength,omitempty" yaml:"minLength"`
	MaxLength    *int     `json:"maxLength,omitempty" yaml:"maxLength"`
	Pattern      string   `json:"pattern,omitempty" yaml:"pattern"`
	Min          *float64 `json:"min,omitempty" yaml:"min"`
	Max          *float64 `json:"max,omitempty" yaml:"max"`
	Compare      string   `json:"compare,omitempty" yaml:"compare"`
	Remote       string   `json:"remote,omitempty" yaml:"remote"`
	Message      string   `json:"message,omitempty" yaml:"message"`
}

// ConditionValue is always stored as a string but accepts JSON booleans and
// numbers on input.
type ConditionValue string

func (v *ConditionValue) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		*v = ConditionValue(s)
		return nil
	}
	var b bool
	if err := json.Unmarshal(data, &b); err == nil {
		*v = ConditionValue(strconv.FormatBool(b))
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return err
	}
	*v = ConditionValue(n.String())
	return nil
}

type Condition struct {
	Field    string         `json:"field" yaml:"field"`
	Operator string         `json:"operator" yaml:"operator"`
	Value    ConditionValue `json:"value" yaml:"value"`
}

// FieldDescriptor is one form field's full behavioral declaration.
type FieldDescriptor struct {
	Name          string           `json:"name"`
	DBColumn      string           `json:"dbColumn,omitempty"`
	DisplayName   string           `json:"displayName"`
	InputType     InputType        `json:"inputType"`
	DataSource    string           `json:"dataSource,omitempty"`
	Options       []Option         `json:"options"`
	Validation    *ValidationRules `json:"validation,omitempty"`
	Order         int              `json:"order"`
	Visibility    Visibility       `json:"visibility"`
	Computed      bool             `json:"computed"`
	ConditionalOn *Condition       `json:"conditionalOn,omitempty"`
}

// Label is the display name, falling back to the field name.
func (f FieldDescriptor) Label() string {
	if strings.TrimSpace(f.DisplayName) != "" {
		return f.DisplayName
	}
	return f.Name
}

func (f FieldDescriptor) IsRequired() bool {
	return f.Validation != nil && (f.Validation.Required || f.Validation.RequiredTrue)
}

// Clone returns a deep copy; option slices and pointer members are not shared.
func (f FieldDescriptor) Clone() FieldDescriptor {
	out := f
	if f.Options != nil {
		out.Options = append([]Option(nil), f.Options...)
	}
	if f.Validation != nil {
		v := *f.Validation
		v.MinLength = cloneInt(f.Validation.MinLength)
		v.MaxLength = cloneInt(f.Validation.MaxLength)
		v.Min = cloneFloat(f.Validation.Min)
		v.Max = cloneFloat(f.Validation.Max)
		out.Validation = &v
	}
	if f.ConditionalOn != nil {
		c := *f.ConditionalOn
		out.ConditionalOn = &c
	}
	return out
}

func cloneInt(p *int) *int {
	if p == nil {
		return nil
	}
	v := *p
	return &v
}

func cloneFloat(p *float64) *float64 {
	if p == nil {
		return nil
	}
	v := *p
	return &v
}
