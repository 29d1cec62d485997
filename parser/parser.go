// Package parser turns YAML profile definitions into field lists.
//
// A definition looks like:
//
//	inheritBase: true
//	exclude: [legacyField]
//	fields:
//	  - name: gradYear
//	    dbColumn: GradYear
//	    displayName: Graduation Year
//	    inputType: SELECT
//	    dataSource: gradYears
//	    visibility: public
//	    validation: {required: true}
//
// Profile fields override base fields of the same name. A field without an
// explicit visibility is hidden when the companion template does not render it
// (or renders it as a hidden input), public otherwise.
package parser

import (
	"errors"
	"fmt"
	"regexp"
	"strings"

	"github.com/Dosada05/league-registration/models"
	"gopkg.in/yaml.v3"
)

var ErrInvalidDefinition = errors.New("invalid profile definition")

// Parser is the Definition Parser contract consumed by the migrator.
type Parser interface {
	Parse(definition, base, template string) ([]models.FieldDescriptor, error)
}

type yamlDefinition struct {
	InheritBase *bool       `yaml:"inheritBase"`
	Exclude     []string    `yaml:"exclude"`
	Fields      []yamlField `yaml:"fields"`
}

type yamlField struct {
	Name          string                  `yaml:"name"`
	DBColumn      string                  `yaml:"dbColumn"`
	DisplayName   string                  `yaml:"displayName"`
	InputType     string                  `yaml:"inputType"`
	DataSource    string                  `yaml:"dataSource"`
	Options       []models.Option         `yaml:"options"`
	Validation    *models.ValidationRules `yaml:"validation"`
	Order         int                     `yaml:"order"`
	Visibility    string                  `yaml:"visibility"`
	Computed      bool                    `yaml:"computed"`
	ConditionalOn *yamlCondition          `yaml:"conditionalOn"`
}

type yamlCondition struct {
	Field    string `yaml:"field"`
	Operator string `yaml:"operator"`
	Value    string `yaml:"value"`
}

type YAMLParser struct{}

func NewYAMLParser() *YAMLParser {
	return &YAMLParser{}
}

func (p *YAMLParser) Parse(definition, base, template string) ([]models.FieldDescriptor, error) {
	profile, err := decode(definition)
	if err != nil {
		return nil, fmt.Errorf("%w: profile: %v", ErrInvalidDefinition, err)
	}

	var merged []yamlField
	if profile.InheritBase == nil || *profile.InheritBase {
		baseDef, err := decode(base)
		if err != nil {
			return nil, fmt.Errorf("%w: base: %v", ErrInvalidDefinition, err)
		}
		excluded := make(map[string]bool, len(profile.Exclude))
		for _, name := range profile.Exclude {
			excluded[strings.ToLower(name)] = true
		}
		for _, f := range baseDef.Fields {
			if !excluded[strings.ToLower(f.Name)] {
				merged = append(merged, f)
			}
		}
	}

	baseCount := len(merged)
	for _, f := range profile.Fields {
		if idx := indexOf(merged[:baseCount], f.Name); idx >= 0 {
			merged[idx] = f
			continue
		}
		merged = append(merged, f)
	}

	tmpl := newTemplateIndex(template)
	fields := make([]models.FieldDescriptor, 0, len(merged))
	seen := make(map[string]bool, len(merged))
	for i, f := range merged {
		name := strings.TrimSpace(f.Name)
		if name == "" {
			return nil, fmt.Errorf("%w: field #%d has no name", ErrInvalidDefinition, i+1)
		}
		key := strings.ToLower(name)
		if seen[key] {
			return nil, fmt.Errorf("%w: duplicate field %q", ErrInvalidDefinition, name)
		}
		seen[key] = true

		fd := models.FieldDescriptor{
			Name:        name,
			DBColumn:    f.DBColumn,
			DisplayName: f.DisplayName,
			InputType:   models.ParseInputType(f.InputType),
			DataSource:  f.DataSource,
			Options:     f.Options,
			Validation:  f.Validation,
			Order:       f.Order,
			Computed:    f.Computed,
		}
		if fd.Order == 0 {
			fd.Order = i + 1
		}
		if f.Visibility != "" {
			fd.Visibility = models.ParseVisibility(f.Visibility)
		} else {
			fd.Visibility = tmpl.defaultVisibility(name)
		}
		if f.ConditionalOn != nil && f.ConditionalOn.Field != "" {
			fd.ConditionalOn = &models.Condition{
				Field:    f.ConditionalOn.Field,
				Operator: f.ConditionalOn.Operator,
				Value:    models.ConditionValue(f.ConditionalOn.Value),
			}
		}
		fields = append(fields, fd)
	}
	return fields, nil
}

func decode(text string) (yamlDefinition, error) {
	var def yamlDefinition
	if strings.TrimSpace(text) == "" {
		return def, nil
	}
	if err := yaml.Unmarshal([]byte(text), &def); err != nil {
		return def, err
	}
	return def, nil
}

func indexOf(fields []yamlField, name string) int {
	for i, f := range fields {
		if strings.EqualFold(f.Name, name) {
			return i
		}
	}
	return -1
}

var (
	inputTagRe = regexp.MustCompile(`(?is)<(input|select|textarea)\b[^>]*>`)
	nameAttrRe = regexp.MustCompile(`(?i)\bname\s*=\s*["']([^"']+)["']`)
	hiddenRe   = regexp.MustCompile(`(?i)\btype\s*=\s*["']hidden["']`)
)

type templateIndex struct {
	present  bool
	rendered map[string]bool // lower-case name -> rendered as a hidden input
}

func newTemplateIndex(template string) templateIndex {
	idx := templateIndex{rendered: map[string]bool{}}
	if strings.TrimSpace(template) == "" {
		return idx
	}
	idx.present = true
	for _, tag := range inputTagRe.FindAllString(template, -1) {
		m := nameAttrRe.FindStringSubmatch(tag)
		if m == nil {
			continue
		}
		name := strings.ToLower(m[1])
		hidden := hiddenRe.MatchString(tag)
		if prev, ok := idx.rendered[name]; ok {
			// Any visible rendering wins.
			hidden = hidden && prev
		}
		idx.rendered[name] = hidden
	}
	return idx
}

func (t templateIndex) defaultVisibility(name string) models.Visibility {
	if !t.present {
		return models.VisibilityPublic
	}
	hidden, ok := t.rendered[strings.ToLower(name)]
	if !ok || hidden {
		return models.VisibilityHidden
	}
	return models.VisibilityPublic
}
