package metadata

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/Dosada05/league-registration/models"
)

var ErrMalformedDocument = errors.New("malformed schema document")

// Serialize renders the persisted document format. Nil option lists are
// written as [] so a decode/encode cycle is byte-identical.
func Serialize(doc models.SchemaDocument) ([]byte, error) {
	out := models.SchemaDocument{Fields: make([]models.FieldDescriptor, len(doc.Fields)), Source: doc.Source}
	for i, f := range doc.Fields {
		if f.Options == nil {
			f.Options = []models.Option{}
		}
		out.Fields[i] = f
	}
	data, err := json.Marshal(out)
	if err != nil {
		return nil, fmt.Errorf("serialize schema document: %w", err)
	}
	return data, nil
}

// Deserialize reads a document written by Serialize.
func Deserialize(data []byte) (models.SchemaDocument, error) {
	var doc models.SchemaDocument
	if err := json.Unmarshal(data, &doc); err != nil {
		return models.SchemaDocument{}, fmt.Errorf("%w: %v", ErrMalformedDocument, err)
	}
	return doc, nil
}

// Canonical field property names and the aliases older documents use for
// them. Lookup is case-insensitive and resolved once per field.
var fieldAliases = map[string][]string{
	"name":          {"name", "fieldName", "field"},
	"dbColumn":      {"dbColumn", "column", "dbColumnName", "columnName"},
	"displayName":   {"displayName", "label", "display", "caption"},
	"inputType":     {"inputType", "type", "fieldType", "controlType"},
	"dataSource":    {"dataSource", "dataSourceKey", "optionsSource", "dropdownSource"},
	"options":       {"options", "items", "choices"},
	"validation":    {"validation", "rules", "validators"},
	"order":         {"order", "sortOrder", "displayOrder"},
	"visibility":    {"visibility", "visible"},
	"computed":      {"computed", "isComputed"},
	"conditionalOn": {"conditionalOn", "condition", "showIf"},
}

var documentFieldsAliases = []string{"fields", "profileFields", "schema"}

var aliasIndex = buildAliasIndex()

func buildAliasIndex() map[string]string {
	idx := make(map[string]string)
	for canonical, aliases := range fieldAliases {
		for _, a := range aliases {
			idx[strings.ToLower(a)] = canonical
		}
	}
	return idx
}

// DecodeLenient reads documents produced by any generation of the editor:
// a bare field array or an object with a fields array, property names in any
// casing or under a declared alias. Fields that cannot be understood are
// dropped and reported in skipped.
func DecodeLenient(data []byte) (doc models.SchemaDocument, skipped []string, err error) {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 {
		return models.SchemaDocument{}, nil, nil
	}

	var rawFields []json.RawMessage
	switch trimmed[0] {
	case '[':
		if err := json.Unmarshal(trimmed, &rawFields); err != nil {
			return models.SchemaDocument{}, nil, fmt.Errorf("%w: %v", ErrMalformedDocument, err)
		}
	case '{':
		var top map[string]json.RawMessage
		if err := json.Unmarshal(trimmed, &top); err != nil {
			return models.SchemaDocument{}, nil, fmt.Errorf("%w: %v", ErrMalformedDocument, err)
		}
		lowered := lowerKeys(top)
		for _, alias := range documentFieldsAliases {
			if raw, ok := lowered[strings.ToLower(alias)]; ok {
				if err := json.Unmarshal(raw, &rawFields); err != nil {
					return models.SchemaDocument{}, nil, fmt.Errorf("%w: fields: %v", ErrMalformedDocument, err)
				}
				break
			}
		}
		if raw, ok := lowered["source"]; ok {
			var stamp models.SourceStamp
			if json.Unmarshal(raw, &stamp) == nil {
				doc.Source = &stamp
			}
		}
	default:
		return models.SchemaDocument{}, nil, fmt.Errorf("%w: unexpected leading %q", ErrMalformedDocument, trimmed[0])
	}

	doc.Fields = make([]models.FieldDescriptor, 0, len(rawFields))
	for i, raw := range rawFields {
		f, ok := decodeField(raw)
		if !ok {
			skipped = append(skipped, fmt.Sprintf("#%d", i+1))
			continue
		}
		doc.Fields = append(doc.Fields, f)
	}
	return doc, skipped, nil
}

func decodeField(raw json.RawMessage) (models.FieldDescriptor, bool) {
	var obj map[string]json.RawMessage
	if err := json.Unmarshal(raw, &obj); err != nil {
		return models.FieldDescriptor{}, false
	}
	props := make(map[string]json.RawMessage, len(obj))
	for k, v := range obj {
		canonical, ok := aliasIndex[strings.ToLower(k)]
		if !ok {
			continue
		}
		// The canonical spelling beats an alias when both are present.
		if _, exists := props[canonical]; exists && !strings.EqualFold(k, canonical) {
			continue
		}
		props[canonical] = v
	}

	var f models.FieldDescriptor
	if s, ok := scalarString(props["name"]); !ok || s == "" {
		return models.FieldDescriptor{}, false
	} else {
		f.Name = s
	}
	f.DBColumn, _ = scalarString(props["dbColumn"])
	f.DisplayName, _ = scalarString(props["displayName"])
	f.DataSource, _ = scalarString(props["dataSource"])

	inputType, _ := scalarString(props["inputType"])
	f.InputType = models.ParseInputType(inputType)

	visibility, _ := scalarString(props["visibility"])
	switch visibility {
	case "true":
		visibility = string(models.VisibilityPublic)
	case "false":
		visibility = string(models.VisibilityHidden)
	}
	f.Visibility = models.ParseVisibility(visibility)

	if raw, ok := props["options"]; ok {
		if opts, ok := parseOptionArray(raw); ok {
			f.Options = opts
		}
	}
	if raw, ok := props["validation"]; ok {
		var v models.ValidationRules
		if json.Unmarshal(raw, &v) == nil {
			f.Validation = &v
		}
	}
	if raw, ok := props["order"]; ok {
		_ = json.Unmarshal(raw, &f.Order)
	}
	if raw, ok := props["computed"]; ok {
		_ = json.Unmarshal(raw, &f.Computed)
	}
	if raw, ok := props["conditionalOn"]; ok {
		var c models.Condition
		if json.Unmarshal(raw, &c) == nil && c.Field != "" {
			f.ConditionalOn = &c
		}
	}
	return f, true
}

func lowerKeys(m map[string]json.RawMessage) map[string]json.RawMessage {
	out := make(map[string]json.RawMessage, len(m))
	for k, v := range m {
		out[strings.ToLower(k)] = v
	}
	return out
}
