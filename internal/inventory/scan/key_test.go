package scan

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNormalizeKey(t *testing.T) {
	t.Run("trims, upper-cases and keeps the key run", func(t *testing.T) {
		assert.Equal(t, "C3_045-A", NormalizeKey(" c3_045-a ", []string{"C3"}))
	})

	t.Run("prefix mismatch rejects", func(t *testing.T) {
		assert.Equal(t, "", NormalizeKey("C3_045-A", []string{"C4"}))
	})

	t.Run("prefix check is case-insensitive", func(t *testing.T) {
		assert.Equal(t, "C3_045-A", NormalizeKey("c3_045-a", []string{"c3"}))
	})

	t.Run("no prefixes accepts any valid key", func(t *testing.T) {
		assert.Equal(t, "HH2-1208", NormalizeKey("HH2-1208", nil))
	})

	t.Run("strips surrounding annotation", func(t *testing.T) {
		assert.Equal(t, "C3_045-A", NormalizeKey("* c3_045-a (đã cọc)", nil))
	})

	t.Run("below minimum length is noise", func(t *testing.T) {
		// numeric-looking fragments such as row numbers must not become keys
		assert.Equal(t, "", NormalizeKey("42", nil))
		assert.Equal(t, "", NormalizeKey("C3-1", nil)) // 4 chars, one short of the default
	})

	t.Run("exactly minimum length is accepted", func(t *testing.T) {
		assert.Equal(t, "C3-12", NormalizeKey("C3-12", nil))
	})

	t.Run("custom minimum length", func(t *testing.T) {
		assert.Equal(t, "C3-1", NormalizeKeyN("C3-1", nil, 4))
		assert.Equal(t, "", NormalizeKeyN("C3-1", nil, 5))
	})

	t.Run("blank and symbol-only cells", func(t *testing.T) {
		assert.Equal(t, "", NormalizeKey("", nil))
		assert.Equal(t, "", NormalizeKey("   ", nil))
		assert.Equal(t, "", NormalizeKey("***", nil))
	})

	t.Run("longest run wins over leading fragments", func(t *testing.T) {
		assert.Equal(t, "TX01-12A05", NormalizeKey("1. TX01-12A05", nil))
	})

	t.Run("deterministic", func(t *testing.T) {
		for i := 0; i < 3; i++ {
			assert.Equal(t, "C3_045-A", NormalizeKey(" c3_045-a ", []string{"C3"}))
		}
	})
}
