package fetch

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/unitwatch/inventory-backend/internal/inventory/domain"
)

const sampleHTMLView = `<!DOCTYPE html><html><head>
<style>
.ritz .waffle .s1 { background-color: #ff0000; }
.ritz .waffle .s2 { background-color: rgb(234, 67, 53); }
.ritz .waffle .s3 { background-color: #FFFF00; }
</style>
</head><body class="ritz">
<div id="723417714"><table class="waffle">
<tr><th></th><th>A</th><th>B</th><th>C</th></tr>
<tr><th class="freezebar-cell"></th><td>1</td><td>Mã căn</td><td>Giá TTS</td><td>CSBH</td></tr>
<tr><td>2</td><td colspan="3">TÒA C3</td></tr>
<tr><td>3</td><td>C3-01X</td><td rowspan="2">5.2 tỷ</td><td class="s3">CK 3%</td></tr>
<tr><td>4</td><td class="s1">C3-02X</td><td class="s2">CK 5%</td></tr>
</table></div>
<div id="999"><table><tr><td>1</td><td>other sheet</td></tr></table></div>
</body></html>`

func TestParseHTMLView(t *testing.T) {
	grid, colors, err := ParseHTMLView(sampleHTMLView, "723417714")
	require.NoError(t, err)

	require.Len(t, grid, 4)
	require.Len(t, colors, 4)
	for i := range grid {
		assert.Len(t, colors[i], len(grid[i]))
	}

	t.Run("gutter row and column are dropped", func(t *testing.T) {
		assert.Equal(t, []string{"Mã căn", "Giá TTS", "CSBH"}, grid[0])
	})

	t.Run("colspan expands with text only at top-left", func(t *testing.T) {
		assert.Equal(t, []string{"TÒA C3", "", ""}, grid[1])
	})

	t.Run("rowspan carries the value down as blank", func(t *testing.T) {
		assert.Equal(t, "5.2 tỷ", grid[2][1])
		assert.Equal(t, "", grid[3][1])
	})

	t.Run("css colors resolve to lower-cased hex", func(t *testing.T) {
		assert.Equal(t, "#ffff00", colors[2][2])
		assert.Equal(t, "#ff0000", colors[3][0])
	})

	t.Run("rgb colors convert to hex", func(t *testing.T) {
		assert.Equal(t, "#ea4335", colors[3][2])
	})

	t.Run("uncolored cells are empty", func(t *testing.T) {
		assert.Equal(t, "", colors[2][0])
	})

	t.Run("missing worksheet div", func(t *testing.T) {
		_, _, err := ParseHTMLView(sampleHTMLView, "123")
		assert.Error(t, err)
	})
}

// Row 1 of the stripped grid must be the first spreadsheet row, so a
// 1-based header_row override matches what the operator sees in the
// spreadsheet UI rather than being offset by the column-letter row.
func TestParseHTMLViewGutterRow(t *testing.T) {
	const page = `<html><body class="ritz">
<div id="7"><table class="waffle">
<tr><th></th><th>A</th><th>B</th></tr>
<tr><td>1</td><td>Mã căn</td><td>Giá bán</td></tr>
<tr><td>2</td><td>C3-01</td><td>100</td></tr>
</table></div>
</body></html>`

	grid, colors, err := ParseHTMLView(page, "7")
	require.NoError(t, err)

	require.Len(t, grid, 2)
	require.Len(t, colors, 2)
	assert.Equal(t, []string{"Mã căn", "Giá bán"}, grid[0])
	assert.Equal(t, []string{"C3-01", "100"}, grid[1])
}

func TestHTMLViewFetcher(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(sampleHTMLView))
	}))
	defer srv.Close()

	f := NewHTMLViewFetcher()
	grid, colors, err := f.Fetch(context.Background(), domain.ProjectConfig{
		ID: 1, HTMLURL: srv.URL, GID: "723417714",
	})
	require.NoError(t, err)
	assert.NotEmpty(t, grid)
	assert.Equal(t, len(grid), len(colors))

	t.Run("http error surfaces", func(t *testing.T) {
		bad := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			w.WriteHeader(http.StatusForbidden)
		}))
		defer bad.Close()

		_, _, err := f.Fetch(context.Background(), domain.ProjectConfig{ID: 2, HTMLURL: bad.URL, GID: "1"})
		assert.Error(t, err)
	})
}
