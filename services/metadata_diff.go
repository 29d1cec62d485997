package services

import (
	"bytes"
	"encoding/json"
	"strings"

	"github.com/sergi/go-diff/diffmatchpatch"
)

// MetadataDiff is a line diff between stored and regenerated metadata.
type MetadataDiff struct {
	Changed   bool   `json:"changed"`
	Added     int    `json:"added"`
	Removed   int    `json:"removed"`
	Unified   string `json:"unified,omitempty"`
	StoredLen int    `json:"stored_len"`
	NewLen    int    `json:"new_len"`
}

// diffMetadata compares two documents after indenting them, so a change to
// one field shows up as a few lines instead of one huge line.
func diffMetadata(stored, regenerated string) MetadataDiff {
	old, updated := indentJSON(stored), indentJSON(regenerated)
	d := MetadataDiff{StoredLen: len(stored), NewLen: len(regenerated)}
	if old == updated {
		return d
	}

	dmp := diffmatchpatch.New()
	a, b, lines := dmp.DiffLinesToChars(old, updated)
	diffs := dmp.DiffCharsToLines(dmp.DiffMain(a, b, false), lines)

	// Only changed lines are rendered.
	var sb strings.Builder
	for _, diff := range diffs {
		prefix := "+"
		switch diff.Type {
		case diffmatchpatch.DiffEqual:
			continue
		case diffmatchpatch.DiffDelete:
			prefix = "-"
		}
		for _, line := range strings.SplitAfter(diff.Text, "\n") {
			if line == "" {
				continue
			}
			if diff.Type == diffmatchpatch.DiffDelete {
				d.Removed++
			} else {
				d.Added++
			}
			sb.WriteString(prefix)
			sb.WriteString(line)
			if !strings.HasSuffix(line, "\n") {
				sb.WriteByte('\n')
			}
		}
	}
	d.Changed = true
	d.Unified = sb.String()
	return d
}

func indentJSON(s string) string {
	if strings.TrimSpace(s) == "" {
		return ""
	}
	var buf bytes.Buffer
	if err := json.Indent(&buf, []byte(s), "", "  "); err != nil {
		return s
	}
	buf.WriteByte('\n')
	return buf.String()
}
