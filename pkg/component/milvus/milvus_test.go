package milvus

import (
	"testing"

	"github.com/milvus-io/milvus/client/v2/column"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuildColumns(t *testing.T) {
	rows := []Row{
		{ID: "a.txt", Vector: []float32{1, 0}, Fields: map[string]string{"source": "a.txt", "content": "alpha"}},
		{ID: "b.txt", Vector: []float32{0, 1}, Fields: map[string]string{"source": "b.txt", "content": "beta"}},
	}

	cols, err := BuildColumns(rows)
	require.NoError(t, err)
	require.Len(t, cols, 4)

	assert.Equal(t, FieldID, cols[0].Name())
	assert.Equal(t, []string{"a.txt", "b.txt"}, cols[0].(*column.ColumnVarChar).Data())
	assert.Equal(t, FieldVector, cols[1].Name())
	assert.Equal(t, "content", cols[2].Name())
	assert.Equal(t, []string{"alpha", "beta"}, cols[2].(*column.ColumnVarChar).Data())
	assert.Equal(t, "source", cols[3].Name())
}

func TestBuildColumns_Invalid(t *testing.T) {
	_, err := BuildColumns(nil)
	assert.Error(t, err)

	_, err = BuildColumns([]Row{{ID: "x"}})
	assert.Error(t, err)

	_, err = BuildColumns([]Row{
		{ID: "a", Vector: []float32{1, 2}},
		{ID: "b", Vector: []float32{1}},
	})
	assert.Error(t, err)

	_, err = BuildColumns([]Row{
		{ID: "a", Vector: []float32{1}, Fields: map[string]string{"source": "a"}},
		{ID: "b", Vector: []float32{1}, Fields: map[string]string{"title": "b"}},
	})
	assert.Error(t, err)
}
