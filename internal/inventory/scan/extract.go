package scan

import (
	"strings"

	"github.com/unitwatch/inventory-backend/internal/inventory/domain"
)

// ExtractOptions tunes row filtering during extraction.
type ExtractOptions struct {
	// InvalidColors lists background colors (lower-cased hex) that mark a
	// row as excluded regardless of key validity.
	InvalidColors []string
	// KeyPrefixes restricts extraction to keys with one of these prefixes.
	// Empty means every syntactically valid key is accepted.
	KeyPrefixes []string
	// MinKeyLength overrides DefaultMinKeyLength when > 0.
	MinKeyLength int
}

// ExtractSnapshot walks every grid row below the header and builds the
// snapshot mapping canonical key -> field record.
//
// Rows whose identifier cell yields no valid key are skipped silently:
// scraped grids routinely contain decorative and blank rows. Rows whose
// identifier cell carries a color from InvalidColors are skipped too, even
// when the key is valid. On duplicate keys the last row wins.
//
// Pure function: no I/O, no logging, deterministic for identical inputs.
func ExtractSnapshot(grid domain.Grid, colors domain.ColorGrid, hi domain.HeaderInfo, opts ExtractOptions) domain.Snapshot {
	minLen := opts.MinKeyLength
	if minLen <= 0 {
		minLen = DefaultMinKeyLength
	}

	invalid := make(map[string]struct{}, len(opts.InvalidColors))
	for _, c := range opts.InvalidColors {
		invalid[strings.ToLower(c)] = struct{}{}
	}

	idCol := hi.ColumnIndex[hi.IdentifierColumn]
	snapshot := make(domain.Snapshot)

	for r := hi.HeaderRow + 1; r < len(grid); r++ {
		key := NormalizeKeyN(cellAt(grid, r, idCol), opts.KeyPrefixes, minLen)
		if key == "" {
			continue
		}

		if color := cellAt(colors, r, idCol); color != "" {
			if _, bad := invalid[strings.ToLower(color)]; bad {
				continue
			}
		}

		record := make(domain.Record, len(hi.ColumnIndex)-1)
		for name, col := range hi.ColumnIndex {
			if name == hi.IdentifierColumn || col < 0 {
				continue
			}
			value := cellAt(grid, r, col)
			if strings.TrimSpace(value) == "" {
				record[name] = nil
			} else {
				record[name] = &value
			}
		}
		snapshot[key] = record
	}

	return snapshot
}

// cellAt reads a cell, tolerating ragged rows.
func cellAt(g [][]string, r, c int) string {
	if r < 0 || r >= len(g) || c < 0 || c >= len(g[r]) {
		return ""
	}
	return g[r][c]
}
