package scan

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/unitwatch/inventory-backend/internal/inventory/domain"
)

func unitColumns() []domain.ColumnDefinition {
	return []domain.ColumnDefinition{
		{InternalName: "key", Aliases: []string{"Mã căn", "Mã căn hộ"}, IsIdentifier: true},
		{InternalName: "price", Aliases: []string{"Giá TTS", "Giá TTS (tạm tính)"}},
		{InternalName: "policy", Aliases: []string{"CSBH", "Chính sách"}},
	}
}

func TestNormalizeLabel(t *testing.T) {
	t.Run("idempotent", func(t *testing.T) {
		once := NormalizeLabel("Giá TTS (gồm VAT & KPBT)")
		assert.Equal(t, once, NormalizeLabel(once))
	})

	t.Run("separator variants collapse to the same form", func(t *testing.T) {
		a := NormalizeLabel("VAT & KPBT")
		b := NormalizeLabel("VAT và KPBT")
		c := NormalizeLabel("VAT, KPBT")
		assert.Equal(t, a, b)
		assert.Equal(t, b, c)
	})

	t.Run("case and whitespace insensitive", func(t *testing.T) {
		assert.Equal(t, NormalizeLabel("mã căn"), NormalizeLabel("  Mã Căn \n"))
	})
}

func TestLocateHeader(t *testing.T) {
	t.Run("auto-detects header and maps columns", func(t *testing.T) {
		grid := domain.Grid{
			{"BẢNG HÀNG NGÀY 14/04", "", ""},
			{"", "", ""},
			{"STT", "Mã căn", "Giá TTS"},
			{"1", "C3_045-A", "5.2 tỷ"},
		}

		hi, err := LocateHeader(grid, unitColumns(), 0)
		require.NoError(t, err)
		assert.Equal(t, 2, hi.HeaderRow)
		assert.Equal(t, "key", hi.IdentifierColumn)
		assert.Equal(t, 1, hi.ColumnIndex["key"])
		assert.Equal(t, 2, hi.ColumnIndex["price"])
		// missing non-identifier column is tolerated
		assert.Equal(t, -1, hi.ColumnIndex["policy"])
	})

	t.Run("configured header row skips the search", func(t *testing.T) {
		grid := domain.Grid{
			{"Mã căn", "Giá TTS"}, // decoy above the real header
			{"Mã căn", "Giá TTS"},
		}
		hi, err := LocateHeader(grid, unitColumns(), 2)
		require.NoError(t, err)
		assert.Equal(t, 1, hi.HeaderRow)
	})

	t.Run("out-of-range configured row falls back to search", func(t *testing.T) {
		grid := domain.Grid{{"Mã căn", "Giá TTS"}}
		hi, err := LocateHeader(grid, unitColumns(), 99)
		require.NoError(t, err)
		assert.Equal(t, 0, hi.HeaderRow)
	})

	t.Run("header beyond the search window is not found", func(t *testing.T) {
		grid := make(domain.Grid, 12)
		for i := range grid {
			grid[i] = []string{"", ""}
		}
		grid[10] = []string{"Mã căn", "Giá TTS"} // row index 10 is outside the 10-row window

		_, err := LocateHeader(grid, unitColumns(), 0)
		assert.ErrorIs(t, err, domain.ErrHeaderNotFound)
	})

	t.Run("alias matching survives case and separator drift", func(t *testing.T) {
		grid := domain.Grid{
			{"mã căn ", "giá tts (GỒM vat và kpbt)"},
		}
		defs := []domain.ColumnDefinition{
			{InternalName: "key", Aliases: []string{"Mã căn"}, IsIdentifier: true},
			{InternalName: "price", Aliases: []string{"Giá TTS (gồm VAT & KPBT)"}},
		}
		hi, err := LocateHeader(grid, defs, 0)
		require.NoError(t, err)
		assert.Equal(t, 1, hi.ColumnIndex["price"])
	})

	t.Run("identifier alias absent from header row", func(t *testing.T) {
		grid := domain.Grid{{"Mã căn", "Giá TTS"}}
		defs := []domain.ColumnDefinition{
			{InternalName: "key", Aliases: []string{"Mã căn"}, IsIdentifier: true},
		}
		// fixed header row points at a row without the identifier label
		grid[0][0] = "STT"
		_, err := LocateHeader(grid, defs, 1)
		assert.ErrorIs(t, err, domain.ErrIdentifierColumnNotFound)
	})

	t.Run("no identifier definition", func(t *testing.T) {
		grid := domain.Grid{{"Mã căn"}}
		_, err := LocateHeader(grid, []domain.ColumnDefinition{
			{InternalName: "price", Aliases: []string{"Giá TTS"}},
		}, 0)
		assert.ErrorIs(t, err, domain.ErrInvalidAliasConfig)
	})

	t.Run("identifier with no aliases", func(t *testing.T) {
		grid := domain.Grid{{"Mã căn"}}
		_, err := LocateHeader(grid, []domain.ColumnDefinition{
			{InternalName: "key", IsIdentifier: true},
		}, 0)
		assert.ErrorIs(t, err, domain.ErrInvalidAliasConfig)
	})

	t.Run("first matching alias wins", func(t *testing.T) {
		grid := domain.Grid{{"Mã căn hộ", "Mã căn"}}
		defs := []domain.ColumnDefinition{
			{InternalName: "key", Aliases: []string{"Mã căn", "Mã căn hộ"}, IsIdentifier: true},
		}
		hi, err := LocateHeader(grid, defs, 0)
		require.NoError(t, err)
		assert.Equal(t, 1, hi.ColumnIndex["key"])
	})
}
