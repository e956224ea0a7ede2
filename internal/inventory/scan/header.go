package scan

import (
	"strings"

	"github.com/unitwatch/inventory-backend/internal/inventory/domain"
)

// headerSearchRows bounds the auto-detection window. Remote sheets put the
// header somewhere near the top; anything deeper needs an explicit
// header_row override on the config.
const headerSearchRows = 10

var labelReplacer = strings.NewReplacer(
	" ", "",
	"\n", "",
	"(", "",
	")", "",
	"&", "+",
	"và", "+",
	",", "+",
)

// NormalizeLabel canonicalizes a header label so that alias matching is
// robust to case, internal whitespace, parentheses and the common Vietnamese
// separator variants ("&", "và", "," all meaning "+"). Idempotent.
func NormalizeLabel(s string) string {
	return labelReplacer.Replace(strings.ToLower(strings.TrimSpace(s)))
}

// LocateHeader finds the header row of a scraped grid and resolves every
// column definition to a grid column index.
//
// If headerRow is a valid 1-based row number it is used directly; otherwise
// the first headerSearchRows rows are scanned for any cell matching one of
// the identifier column's aliases. Non-identifier columns that match no
// header cell are tolerated and mapped to -1; a missing identifier column is
// a hard failure.
func LocateHeader(grid domain.Grid, defs []domain.ColumnDefinition, headerRow int) (domain.HeaderInfo, error) {
	var identifier *domain.ColumnDefinition
	for i := range defs {
		if defs[i].IsIdentifier {
			identifier = &defs[i]
			break
		}
	}
	if identifier == nil || len(identifier.Aliases) == 0 {
		return domain.HeaderInfo{}, domain.ErrInvalidAliasConfig
	}

	rowIdx := -1
	if headerRow >= 1 && headerRow <= len(grid) {
		rowIdx = headerRow - 1
	} else {
		idAliases := make(map[string]struct{}, len(identifier.Aliases))
		for _, a := range identifier.Aliases {
			idAliases[NormalizeLabel(a)] = struct{}{}
		}

		limit := len(grid)
		if limit > headerSearchRows {
			limit = headerSearchRows
		}
		for r := 0; r < limit; r++ {
			for _, cell := range grid[r] {
				if strings.TrimSpace(cell) == "" {
					continue
				}
				if _, ok := idAliases[NormalizeLabel(cell)]; ok {
					rowIdx = r
					break
				}
			}
			if rowIdx != -1 {
				break
			}
		}
	}
	if rowIdx == -1 {
		return domain.HeaderInfo{}, domain.ErrHeaderNotFound
	}

	header := make([]string, len(grid[rowIdx]))
	for c, cell := range grid[rowIdx] {
		header[c] = NormalizeLabel(cell)
	}

	columnIndex := make(map[string]int, len(defs))
	for _, def := range defs {
		columnIndex[def.InternalName] = findAlias(header, def.Aliases)
	}
	if columnIndex[identifier.InternalName] == -1 {
		return domain.HeaderInfo{}, domain.ErrIdentifierColumnNotFound
	}

	return domain.HeaderInfo{
		HeaderRow:        rowIdx,
		IdentifierColumn: identifier.InternalName,
		ColumnIndex:      columnIndex,
	}, nil
}

// findAlias returns the column of the first alias with an exact match in the
// normalized header row, or -1.
func findAlias(header []string, aliases []string) int {
	for _, alias := range aliases {
		want := NormalizeLabel(alias)
		if want == "" {
			continue
		}
		for c, got := range header {
			if got == want {
				return c
			}
		}
	}
	return -1
}
