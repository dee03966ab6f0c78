package schema

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestAccountFilter(t *testing.T) {
	t.Run("zero value selects everyone", func(t *testing.T) {
		var f AccountFilter
		assert.True(t, f.IsAll())
		assert.Nil(t, f.IDs())
		assert.True(t, f.Contains("anything"))
		assert.Equal(t, AllAccounts(), f)
	})

	t.Run("explicit ids are trimmed, sorted and deduplicated", func(t *testing.T) {
		f := ExplicitAccounts(" b ", "a", "b", "", "c")
		assert.False(t, f.IsAll())
		assert.Equal(t, []string{"a", "b", "c"}, f.IDs())
		assert.True(t, f.Contains("b"))
		assert.False(t, f.Contains("d"))
	})

	t.Run("explicit empty selects nobody", func(t *testing.T) {
		f := ExplicitAccounts()
		assert.False(t, f.IsAll())
		assert.Empty(t, f.IDs())
		assert.NotNil(t, f.IDs())
		assert.False(t, f.Contains("a"))
	})

	t.Run("ids are a copy", func(t *testing.T) {
		f := ExplicitAccounts("a", "b")
		ids := f.IDs()
		ids[0] = "z"
		assert.Equal(t, []string{"a", "b"}, f.IDs())
	})
}
