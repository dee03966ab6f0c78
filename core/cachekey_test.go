package core

import (
	"strings"
	"testing"

	"github.com/huangsam/radar/schema"
	"github.com/stretchr/testify/assert"
)

func TestBuildCacheKey(t *testing.T) {
	all := BuildCacheKey(90, 2, schema.AllAccounts())
	empty := BuildCacheKey(90, 2, schema.ExplicitAccounts())

	tests := []struct {
		name  string
		a, b  string
		equal bool
	}{
		{"deterministic", all, BuildCacheKey(90, 2, schema.AllAccounts()), true},
		{"order independent", BuildCacheKey(90, 2, schema.ExplicitAccounts("A2", "A1")), BuildCacheKey(90, 2, schema.ExplicitAccounts("A1", "A2")), true},
		{"duplicates collapse", BuildCacheKey(90, 2, schema.ExplicitAccounts("A1", "A1")), BuildCacheKey(90, 2, schema.ExplicitAccounts("A1")), true},
		{"all differs from explicit empty", all, empty, false},
		{"window matters", all, BuildCacheKey(60, 2, schema.AllAccounts()), false},
		{"min obs matters", all, BuildCacheKey(90, 3, schema.AllAccounts()), false},
		{"ids matter", BuildCacheKey(90, 2, schema.ExplicitAccounts("A1")), BuildCacheKey(90, 2, schema.ExplicitAccounts("A2")), false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.equal {
				assert.Equal(t, tt.a, tt.b)
			} else {
				assert.NotEqual(t, tt.a, tt.b)
			}
		})
	}
}

func TestBuildCacheKeyFormat(t *testing.T) {
	key := BuildCacheKey(90, 2, schema.ExplicitAccounts("A1"))
	assert.True(t, strings.HasPrefix(key, "churn:"))
	assert.Len(t, key, len("churn:")+16)
	assert.Regexp(t, `^churn:[0-9a-f]{16}$`, key)
}
