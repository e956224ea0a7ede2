package scan

import (
	"sort"
	"strings"

	"github.com/unitwatch/inventory-backend/internal/inventory/domain"
)

// Diff compares two snapshots and classifies every key as added, removed or
// changed. Added and removed are sorted ascending; a key appears in changed
// only when it exists in both snapshots and at least one field differs.
//
// Field comparison applies an empty-equivalence rule first: a value is
// "empty" when it is nil, blank, or the NaN marker the scraping layer leaves
// behind; two empty values are never a change. Everything else is compared
// after string coercion, which tolerates numeric-vs-string drift between
// runs at the cost of not distinguishing nil from the literal string "null".
//
// Total function over well-formed snapshots; never fails.
func Diff(old, new domain.Snapshot) domain.DiffResult {
	result := domain.DiffResult{
		Added:   make([]string, 0),
		Removed: make([]string, 0),
	}

	common := make([]string, 0, len(new))
	for key := range new {
		if _, ok := old[key]; ok {
			common = append(common, key)
		} else {
			result.Added = append(result.Added, key)
		}
	}
	for key := range old {
		if _, ok := new[key]; !ok {
			result.Removed = append(result.Removed, key)
		}
	}
	sort.Strings(result.Added)
	sort.Strings(result.Removed)
	sort.Strings(common)

	for _, key := range common {
		oldRec, newRec := old[key], new[key]

		fields := make([]string, 0, len(oldRec)+len(newRec))
		seen := make(map[string]struct{}, len(oldRec)+len(newRec))
		for f := range oldRec {
			fields = append(fields, f)
			seen[f] = struct{}{}
		}
		for f := range newRec {
			if _, ok := seen[f]; !ok {
				fields = append(fields, f)
			}
		}
		sort.Strings(fields)

		var changes []domain.FieldChange
		for _, f := range fields {
			oldVal, newVal := oldRec[f], newRec[f]
			if emptyValue(oldVal) && emptyValue(newVal) {
				continue
			}
			if coerce(oldVal) != coerce(newVal) {
				changes = append(changes, domain.FieldChange{Field: f, Old: oldVal, New: newVal})
			}
		}
		if len(changes) > 0 {
			result.Changed = append(result.Changed, domain.KeyChange{Key: key, Fields: changes})
		}
	}

	return result
}

// emptyValue reports whether a field value counts as absent: nil, blank, or
// the not-a-number marker left by upstream number parsing.
func emptyValue(v *string) bool {
	if v == nil {
		return true
	}
	s := strings.TrimSpace(*v)
	return s == "" || strings.EqualFold(s, "nan")
}

func coerce(v *string) string {
	if v == nil {
		return ""
	}
	return *v
}
