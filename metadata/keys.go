package metadata

import (
	"strings"
	"unicode"

	"golang.org/x/text/unicode/norm"
)

// listMarkers are prefixes job configurators put in front of option set keys.
var listMarkers = []string{"list_", "list"}

const (
	sizesToken      = "sizes"
	minFuzzyVariant = 3
	listToken       = "list"
	listSizesToken  = "listsizes"
)

// ResolveOptionKey maps a schema data-source key onto one of the keys a job
// actually defines. Tiers are tried in order and the first match wins:
//
//  1. case-insensitive equality
//  2. equality with a list marker prepended ("positions" -> "List_Positions")
//  3. case-insensitive substring containment, either direction
//  4. normalized fuzzy matching over requested-key variants, including the
//     "sizes" relocation that reconciles "ListSizes_Jersey" and "List_JerseySizes"
func ResolveOptionKey(available []string, requested string) (string, bool) {
	requested = strings.TrimSpace(requested)
	if requested == "" || len(available) == 0 {
		return "", false
	}

	for _, key := range available {
		if strings.EqualFold(key, requested) {
			return key, true
		}
	}

	for _, marker := range listMarkers {
		for _, key := range available {
			if strings.EqualFold(key, marker+requested) {
				return key, true
			}
		}
	}

	lowerReq := strings.ToLower(requested)
	for _, key := range available {
		lowerKey := strings.ToLower(strings.TrimSpace(key))
		if lowerKey == "" {
			continue
		}
		if strings.Contains(lowerKey, lowerReq) || strings.Contains(lowerReq, lowerKey) {
			return key, true
		}
	}

	variants := requestedVariants(requested)
	for _, key := range available {
		nk := NormalizeKey(key)
		if len(nk) < minFuzzyVariant {
			continue
		}
		for _, v := range variants {
			if strings.Contains(nk, v) || strings.Contains(v, nk) {
				return key, true
			}
		}
	}
	return "", false
}

// NormalizeKey lower-cases, folds diacritics and drops everything that is not
// a letter or digit.
func NormalizeKey(s string) string {
	decomposed := norm.NFD.String(s)
	var b strings.Builder
	b.Grow(len(decomposed))
	for _, r := range decomposed {
		if unicode.Is(unicode.Mn, r) {
			continue
		}
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			b.WriteRune(unicode.ToLower(r))
		}
	}
	return b.String()
}

func requestedVariants(requested string) []string {
	n := NormalizeKey(requested)
	bases := []string{n}
	if strings.HasPrefix(n, listSizesToken) {
		bases = append(bases, strings.TrimPrefix(n, listSizesToken))
	}
	if strings.HasPrefix(n, listToken) {
		bases = append(bases, strings.TrimPrefix(n, listToken))
	}

	seen := make(map[string]bool)
	var out []string
	add := func(v string) {
		if len(v) < minFuzzyVariant || seen[v] {
			return
		}
		seen[v] = true
		out = append(out, v)
	}
	for _, b := range bases {
		add(b)
		if strings.Contains(b, sizesToken) {
			stem := strings.Replace(b, sizesToken, "", 1)
			add(stem + sizesToken)
			add(sizesToken + stem)
		}
	}
	return out
}
