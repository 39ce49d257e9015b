package ehrschema

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSchemaError_Error(t *testing.T) {
	err := NewSchemaShapeError("bad shape")
	assert.Equal(t, "[schema_shape:SCHEMA_SHAPE_INVALID] bad shape", err.Error())

	withTable := NewSchemaShapeError("bad shape").WithTable("Weekly Wound Review")
	assert.Contains(t, withTable.Error(), "table 'Weekly Wound Review'")

	withBoth := NewUnknownTypeError("hologram", "Temperature Route")
	assert.Contains(t, withBoth.Error(), "field 'Temperature Route'")
	assert.Contains(t, withBoth.Error(), "hologram")
}

func TestSchemaError_Unwrap(t *testing.T) {
	cause := fmt.Errorf("underlying parse failure")
	err := NewSchemaShapeError("bad shape").WithCause(cause)
	assert.True(t, errors.Is(err, cause))
}

func TestSchemaError_WithDetail(t *testing.T) {
	err := NewSchemaShapeError("bad shape").
		WithDetail("line", 4).
		WithDetail("column", 2)
	require.NotNil(t, err.Details)
	assert.Equal(t, 4, err.Details["line"])
	assert.Equal(t, 2, err.Details["column"])
}

func TestErrorPredicates(t *testing.T) {
	assert.True(t, IsSchemaShapeError(NewSchemaShapeError("x")))
	assert.True(t, IsUnknownTypeError(NewUnknownTypeError("x", "f")))
	assert.True(t, IsNotFoundError(NewTableNotFoundError("x")))
	assert.True(t, IsDuplicateIDError(NewDuplicateIDError(7)))
	assert.True(t, IsDuplicateIDError(NewDuplicateNameError("x")))

	assert.False(t, IsSchemaShapeError(NewTableNotFoundError("x")))
	assert.False(t, IsNotFoundError(nil))
	assert.False(t, IsNotFoundError(fmt.Errorf("plain")))
}
