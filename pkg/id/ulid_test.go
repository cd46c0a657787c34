package id

import (
	"sort"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestULIDGenerator_MonotonicAndUnique(t *testing.T) {
	gen := NewULIDGenerator()

	ids := make([]string, 1000)
	for i := range ids {
		ids[i] = gen.Generate()
	}

	assert.True(t, sort.StringsAreSorted(ids))
	seen := make(map[string]struct{}, len(ids))
	for _, s := range ids {
		assert.Len(t, s, 26)
		assert.True(t, IsValidULID(s))
		seen[s] = struct{}{}
	}
	assert.Len(t, seen, len(ids))
}

func TestIsValidULID(t *testing.T) {
	assert.True(t, IsValidULID(NewULID()))
	assert.False(t, IsValidULID(""))
	assert.False(t, IsValidULID("not-a-ulid"))
	assert.False(t, IsValidULID("01ARZ3NDEKTSV4RRFFQ69G5FA!"))
}
