package fetch

import (
	"context"
	"fmt"
	"math"
	"strconv"
	"strings"

	"golang.org/x/oauth2/google"
	"golang.org/x/time/rate"
	"google.golang.org/api/option"
	sheets "google.golang.org/api/sheets/v4"

	"github.com/unitwatch/inventory-backend/internal/inventory/domain"
)

// SheetsAPIFetcher reads a worksheet through the Sheets API instead of
// scraping htmlview. Needs application default credentials with read access;
// in exchange it gets authoritative cell values, fills and merge ranges.
type SheetsAPIFetcher struct {
	svc     *sheets.Service
	limiter *rate.Limiter
}

func NewSheetsAPIFetcher(ctx context.Context) (*SheetsAPIFetcher, error) {
	creds, _ := google.FindDefaultCredentials(ctx, sheets.SpreadsheetsReadonlyScope)
	var opts []option.ClientOption
	if creds != nil && creds.JSON != nil {
		opts = append(opts, option.WithCredentialsJSON(creds.JSON))
	}

	svc, err := sheets.NewService(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("sheets.NewService: %w", err)
	}

	return &SheetsAPIFetcher{
		svc:     svc,
		limiter: rate.NewLimiter(rate.Limit(1), 4),
	}, nil
}

func (f *SheetsAPIFetcher) Fetch(ctx context.Context, cfg domain.ProjectConfig) (domain.Grid, domain.ColorGrid, error) {
	if cfg.SpreadsheetID == "" {
		return nil, nil, fmt.Errorf("config %d has no spreadsheet_id", cfg.ID)
	}

	if err := f.limiter.Wait(ctx); err != nil {
		return nil, nil, err
	}

	resp, err := f.svc.Spreadsheets.Get(cfg.SpreadsheetID).
		IncludeGridData(true).
		Context(ctx).
		Do()
	if err != nil {
		return nil, nil, fmt.Errorf("spreadsheets.get %s: %w", cfg.SpreadsheetID, err)
	}

	sheet, err := pickSheet(resp.Sheets, cfg.GID)
	if err != nil {
		return nil, nil, err
	}
	if len(sheet.Data) == 0 {
		return nil, nil, fmt.Errorf("worksheet %s carries no grid data", cfg.GID)
	}

	grid, colors := gridFromAPI(sheet.Data[0])
	expandMerges(colors, sheet.Merges)
	return grid, colors, nil
}

func pickSheet(all []*sheets.Sheet, gid string) (*sheets.Sheet, error) {
	if len(all) == 0 {
		return nil, fmt.Errorf("spreadsheet has no sheets")
	}
	gid = strings.TrimPrefix(gid, "#")
	if gid == "" {
		return all[0], nil
	}
	want, err := strconv.ParseInt(gid, 10, 64)
	if err != nil {
		return nil, fmt.Errorf("gid %q is not numeric: %w", gid, err)
	}
	for _, s := range all {
		if s.Properties != nil && s.Properties.SheetId == want {
			return s, nil
		}
	}
	return nil, fmt.Errorf("worksheet gid %s not found", gid)
}

func gridFromAPI(data *sheets.GridData) (domain.Grid, domain.ColorGrid) {
	maxCols := 0
	for _, row := range data.RowData {
		if len(row.Values) > maxCols {
			maxCols = len(row.Values)
		}
	}

	grid := make(domain.Grid, len(data.RowData))
	colors := make(domain.ColorGrid, len(data.RowData))
	for r, row := range data.RowData {
		grid[r] = make([]string, maxCols)
		colors[r] = make([]string, maxCols)
		for c, cell := range row.Values {
			grid[r][c] = cell.FormattedValue
			if cell.EffectiveFormat != nil {
				colors[r][c] = colorToHex(cell.EffectiveFormat.BackgroundColor)
			}
		}
	}
	return grid, colors
}

// expandMerges copies the top-left fill across every covered cell of each
// merged range. FormattedValue is already only present at the top-left, so
// the text side needs no work.
func expandMerges(colors domain.ColorGrid, merges []*sheets.GridRange) {
	for _, m := range merges {
		if m == nil || m.StartRowIndex >= int64(len(colors)) {
			continue
		}
		if m.StartColumnIndex >= int64(len(colors[m.StartRowIndex])) {
			continue
		}
		fill := colors[m.StartRowIndex][m.StartColumnIndex]
		for r := m.StartRowIndex; r < m.EndRowIndex && r < int64(len(colors)); r++ {
			for c := m.StartColumnIndex; c < m.EndColumnIndex && c < int64(len(colors[r])); c++ {
				colors[r][c] = fill
			}
		}
	}
}

// colorToHex renders an API color as lower-cased "#rrggbb". White is the
// sheet default and maps to "" (no fill).
func colorToHex(c *sheets.Color) string {
	if c == nil {
		return ""
	}
	r := int(math.Round(c.Red * 255))
	g := int(math.Round(c.Green * 255))
	b := int(math.Round(c.Blue * 255))
	if r == 255 && g == 255 && b == 255 {
		return ""
	}
	return fmt.Sprintf("#%02x%02x%02x", r, g, b)
}
