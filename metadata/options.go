package metadata

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/Dosada05/league-registration/models"
)

const (
	ProviderJobOptions   = "job options"
	ProviderRegistration = "registration-derived"
)

// OptionSet is one named list of dropdown values.
type OptionSet struct {
	Key      string          `json:"key"`
	Provider string          `json:"provider"`
	ReadOnly bool            `json:"readOnly"`
	Values   []models.Option `json:"values"`
}

// OptionDictionary is a job's raw option dictionary after parsing. Keys keep
// their document order; keys whose value was not an array are remembered so a
// fuzzy match on them reports "no options" instead of matching a sibling.
type OptionDictionary struct {
	keys     []string
	sets     map[string]OptionSet
	nonArray map[string]bool
}

// Accepted property names (lower-case) of an option object.
var (
	optionValueKeys = []string{"value", "id", "key"}
	optionLabelKeys = []string{"text", "label", "name"}
)

// ParseOptionDictionary decodes a flat key → array mapping. Malformed input
// yields an empty dictionary together with the error so callers can log and
// continue.
func ParseOptionDictionary(raw string) (OptionDictionary, error) {
	dict := OptionDictionary{sets: map[string]OptionSet{}, nonArray: map[string]bool{}}
	if strings.TrimSpace(raw) == "" {
		return dict, nil
	}

	dec := json.NewDecoder(strings.NewReader(raw))
	dec.UseNumber()
	tok, err := dec.Token()
	if err != nil {
		return emptyDictionary(), fmt.Errorf("option dictionary: %w", err)
	}
	if delim, ok := tok.(json.Delim); !ok || delim != '{' {
		return emptyDictionary(), errors.New("option dictionary: expected a JSON object")
	}

	for dec.More() {
		keyTok, err := dec.Token()
		if err != nil {
			return emptyDictionary(), fmt.Errorf("option dictionary: %w", err)
		}
		key, _ := keyTok.(string)
		var value json.RawMessage
		if err := dec.Decode(&value); err != nil {
			return emptyDictionary(), fmt.Errorf("option dictionary key %q: %w", key, err)
		}
		if _, dup := dict.sets[key]; dup || dict.nonArray[key] {
			continue
		}
		dict.keys = append(dict.keys, key)

		values, ok := parseOptionArray(value)
		if !ok {
			dict.nonArray[key] = true
			continue
		}
		dict.sets[key] = OptionSet{Key: key, Provider: ProviderJobOptions, ReadOnly: true, Values: values}
	}
	return dict, nil
}

func emptyDictionary() OptionDictionary {
	return OptionDictionary{sets: map[string]OptionSet{}, nonArray: map[string]bool{}}
}

func (d OptionDictionary) Keys() []string {
	return append([]string(nil), d.keys...)
}

func (d OptionDictionary) Len() int {
	return len(d.keys)
}

// Lookup resolves requested with ResolveOptionKey. ok is false when nothing
// matched or the matched key does not hold an array.
func (d OptionDictionary) Lookup(requested string) (OptionSet, bool) {
	key, found := ResolveOptionKey(d.keys, requested)
	if !found {
		return OptionSet{}, false
	}
	set, ok := d.sets[key]
	return set, ok
}

// Add registers a set under its key, replacing any previous set.
func (d *OptionDictionary) Add(set OptionSet) {
	if d.sets == nil {
		d.sets = map[string]OptionSet{}
		d.nonArray = map[string]bool{}
	}
	if _, exists := d.sets[set.Key]; !exists && !d.nonArray[set.Key] {
		d.keys = append(d.keys, set.Key)
	}
	delete(d.nonArray, set.Key)
	d.sets[set.Key] = set
}

// Sets returns every array-valued set in key order.
func (d OptionDictionary) Sets() []OptionSet {
	out := make([]OptionSet, 0, len(d.sets))
	for _, k := range d.keys {
		if set, ok := d.sets[k]; ok {
			out = append(out, set)
		}
	}
	return out
}

// parseOptionArray accepts an array whose elements are bare strings, numbers
// or objects carrying value/label under any accepted casing.
func parseOptionArray(raw json.RawMessage) ([]models.Option, bool) {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 || trimmed[0] != '[' {
		return nil, false
	}
	var elems []json.RawMessage
	if err := json.Unmarshal(trimmed, &elems); err != nil {
		return nil, false
	}

	out := make([]models.Option, 0, len(elems))
	for _, el := range elems {
		if opt, ok := parseOption(el); ok {
			out = append(out, opt)
		}
	}
	return out, true
}

func parseOption(raw json.RawMessage) (models.Option, bool) {
	if s, ok := scalarString(raw); ok {
		if s == "" {
			return models.Option{}, false
		}
		return models.Option{Value: s, Label: s}, true
	}

	var obj map[string]json.RawMessage
	if err := json.Unmarshal(raw, &obj); err != nil {
		return models.Option{}, false
	}
	lowered := make(map[string]json.RawMessage, len(obj))
	for k, v := range obj {
		lk := strings.ToLower(k)
		if _, exists := lowered[lk]; !exists {
			lowered[lk] = v
		}
	}

	value := firstScalar(lowered, optionValueKeys)
	label := firstScalar(lowered, optionLabelKeys)
	switch {
	case value == "" && label == "":
		return models.Option{}, false
	case value == "":
		value = label
	case label == "":
		label = value
	}
	return models.Option{Value: value, Label: label}, true
}

func firstScalar(obj map[string]json.RawMessage, keys []string) string {
	for _, k := range keys {
		if raw, ok := obj[k]; ok {
			if s, ok := scalarString(raw); ok && s != "" {
				return s
			}
		}
	}
	return ""
}

func scalarString(raw json.RawMessage) (string, bool) {
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return strings.TrimSpace(s), true
	}
	var n json.Number
	if err := json.Unmarshal(raw, &n); err == nil {
		return n.String(), true
	}
	var b bool
	if err := json.Unmarshal(raw, &b); err == nil {
		if b {
			return "true", true
		}
		return "false", true
	}
	return "", false
}
