package fetch

import (
	"context"
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/go-resty/resty/v2"
	"golang.org/x/time/rate"

	"github.com/unitwatch/inventory-backend/internal/inventory/domain"
)

// HTMLViewFetcher scrapes the public /htmlview rendering of a Google Sheet
// (or any configured HTML URL exposing the same table markup). The htmlview
// page keeps cell fills as CSS classes in a <style> block, so colors are
// recovered by joining cell classes against that block.
type HTMLViewFetcher struct {
	client  *resty.Client
	limiter *rate.Limiter
}

func NewHTMLViewFetcher() *HTMLViewFetcher {
	return &HTMLViewFetcher{
		client: resty.New().
			SetTimeout(30 * time.Second).
			SetRetryCount(2).
			SetRetryWaitTime(2 * time.Second),
		// htmlview is unauthenticated; stay well under Google's abuse limits
		limiter: rate.NewLimiter(rate.Every(time.Second), 2),
	}
}

func (f *HTMLViewFetcher) Fetch(ctx context.Context, cfg domain.ProjectConfig) (domain.Grid, domain.ColorGrid, error) {
	url := cfg.HTMLURL
	if url == "" {
		if cfg.SpreadsheetID == "" {
			return nil, nil, fmt.Errorf("config %d has neither html_url nor spreadsheet_id", cfg.ID)
		}
		url = fmt.Sprintf("https://docs.google.com/spreadsheets/d/%s/htmlview", cfg.SpreadsheetID)
	}

	if err := f.limiter.Wait(ctx); err != nil {
		return nil, nil, err
	}

	resp, err := f.client.R().SetContext(ctx).Get(url)
	if err != nil {
		return nil, nil, fmt.Errorf("fetch htmlview: %w", err)
	}
	if resp.IsError() {
		return nil, nil, fmt.Errorf("fetch htmlview: status %d from %s", resp.StatusCode(), url)
	}

	return ParseHTMLView(resp.String(), cfg.GID)
}

// sNN classes carrying a background-color inside the htmlview <style> block.
var cssColorRule = regexp.MustCompile(`\.ritz\s*\.waffle\s*\.(s\d+)\s*\{[^}]*background-color:\s*([^;]+);`)

var rgbComponents = regexp.MustCompile(`\d+`)

// ParseHTMLView extracts the data and color grids for one worksheet out of
// an htmlview page. The worksheet is the table inside div#<gid>; colspan and
// rowspan are expanded so both grids come out dense and rectangular, with
// only the top-left cell of a merged region holding the display text. The
// gutter (column-letter row plus row-number column) is dropped.
func ParseHTMLView(html, gid string) (domain.Grid, domain.ColorGrid, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return nil, nil, fmt.Errorf("parse htmlview: %w", err)
	}

	cssColors := extractCSSColors(doc)

	// gid divs have numeric ids; an attribute selector avoids CSS
	// identifier rules that a "#123" selector would trip over.
	section := doc.Find(fmt.Sprintf("div[id=%q]", strings.TrimPrefix(gid, "#")))
	if section.Length() == 0 {
		return nil, nil, fmt.Errorf("worksheet div #%s not found", gid)
	}
	table := section.Find("table").First()
	if table.Length() == 0 {
		return nil, nil, fmt.Errorf("no table inside worksheet div #%s", gid)
	}

	rows := table.Find("tr")
	if rows.Length() == 0 {
		return nil, nil, fmt.Errorf("worksheet #%s table has no rows", gid)
	}

	maxCols := 0
	rows.Each(func(_ int, tr *goquery.Selection) {
		count := 0
		tr.Find("td,th").Each(func(_ int, cell *goquery.Selection) {
			if isFreezebar(cell) {
				return
			}
			count += intAttr(cell, "colspan", 1)
		})
		if count > maxCols {
			maxCols = count
		}
	})

	grid := make(domain.Grid, rows.Length())
	colors := make(domain.ColorGrid, rows.Length())
	occupied := make([][]bool, rows.Length())
	for i := range grid {
		grid[i] = make([]string, maxCols)
		colors[i] = make([]string, maxCols)
		occupied[i] = make([]bool, maxCols)
	}

	rows.Each(func(r int, tr *goquery.Selection) {
		col := 0
		tr.Find("td,th").Each(func(_ int, cell *goquery.Selection) {
			if isFreezebar(cell) {
				return
			}
			classes := strings.Fields(cell.AttrOr("class", ""))

			for col < maxCols && occupied[r][col] {
				col++
			}
			if col >= maxCols {
				return
			}

			rowspan := intAttr(cell, "rowspan", 1)
			colspan := intAttr(cell, "colspan", 1)
			text := strings.TrimSpace(cell.Text())

			color := ""
			for _, cls := range classes {
				if hex, ok := cssColors[cls]; ok {
					color = hex
					break
				}
			}

			for rr := r; rr < r+rowspan && rr < len(grid); rr++ {
				for cc := col; cc < col+colspan && cc < maxCols; cc++ {
					if rr == r && cc == col {
						grid[rr][cc] = text
					}
					colors[rr][cc] = color
					occupied[rr][cc] = true
				}
			}
			col += colspan
		})
	})

	return dropGutter(grid), dropGutter(colors), nil
}

// extractCSSColors maps htmlview cell classes (s0, s1, ...) to lower-cased
// "#rrggbb" background colors.
func extractCSSColors(doc *goquery.Document) map[string]string {
	out := make(map[string]string)
	doc.Find("style").Each(func(_ int, style *goquery.Selection) {
		for _, m := range cssColorRule.FindAllStringSubmatch(style.Text(), -1) {
			out[m[1]] = normalizeColor(m[2])
		}
	})
	return out
}

func normalizeColor(raw string) string {
	raw = strings.ToLower(strings.TrimSpace(raw))
	if strings.HasPrefix(raw, "rgb") {
		parts := rgbComponents.FindAllString(raw, -1)
		if len(parts) < 3 {
			return ""
		}
		r, _ := strconv.Atoi(parts[0])
		g, _ := strconv.Atoi(parts[1])
		b, _ := strconv.Atoi(parts[2])
		return fmt.Sprintf("#%02x%02x%02x", r, g, b)
	}
	if strings.HasPrefix(raw, "#") {
		return raw
	}
	return ""
}

// dropGutter removes the htmlview gutter: the column-letter row on top and
// the row-number column on the left. Stripping both keeps 1-based
// header_row overrides aligned with the row numbers operators see in the
// spreadsheet UI.
func dropGutter[T ~[][]string](g T) T {
	if len(g) > 0 {
		g = g[1:]
	}
	out := make(T, 0, len(g))
	for _, row := range g {
		if len(row) > 0 {
			row = row[1:]
		}
		out = append(out, row)
	}
	return out
}

func isFreezebar(cell *goquery.Selection) bool {
	for _, cls := range strings.Fields(cell.AttrOr("class", "")) {
		if strings.HasPrefix(cls, "freezebar") {
			return true
		}
	}
	return false
}

func intAttr(s *goquery.Selection, name string, def int) int {
	v, err := strconv.Atoi(s.AttrOr(name, ""))
	if err != nil || v < 1 {
		return def
	}
	return v
}
