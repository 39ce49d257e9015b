package internal

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	ehrschema "github.com/speakcare/spkc-ehr-schema-sub002"
)

func fieldByKey(t *testing.T, fields []ehrschema.FieldMeta, key string) ehrschema.FieldMeta {
	t.Helper()
	for _, f := range fields {
		if f.Key == key {
			return f
		}
	}
	t.Fatalf("field %q not found", key)
	return ehrschema.FieldMeta{}
}

func TestCompiler_Compile_Tree(t *testing.T) {
	table := compileTestTable(t)

	assert.Equal(t, "Weekly Wound Review", table.Schema.Name)
	assert.Equal(t, 2, table.Schema.Version)
	assert.Equal(t, "assessment_name", table.NameField)

	root := table.Root
	require.Equal(t, ehrschema.NodeObject, root.Kind)
	require.Equal(t, []string{"sections"}, root.Required)

	sections := root.Properties["sections"]
	require.NotNil(t, sections)
	require.Equal(t, []string{"GENERAL", "WOUND"}, sections.Required)

	general := sections.Properties["GENERAL"]
	require.NotNil(t, general)
	require.Equal(t, []string{"questions"}, general.Required)

	questions := general.Properties["questions"]
	require.NotNil(t, questions)
	// The ignored signature question must not appear.
	assert.Equal(t, []string{
		"Physician Notified", "Review Instructions", "Reviewed On",
		"Skin Concerns", "Temperature Route",
	}, questions.Required)

	instructions := questions.Properties["Review Instructions"]
	require.NotNil(t, instructions)
	assert.True(t, instructions.HasConst)
	assert.Equal(t, "Complete weekly for all residents\nReview Instructions", instructions.Const)
	assert.False(t, instructions.Nullable)
	assert.Equal(t, instructionsNote, instructions.Note)

	route := questions.Properties["Temperature Route"]
	require.NotNil(t, route)
	assert.Equal(t, ehrschema.FieldTypeSingleSelect, route.TargetType)
	assert.True(t, route.Nullable)
	assert.Equal(t, []string{"Oral", "Tympanic", "Rectal", "Axilla"}, route.Enum)

	notified := questions.Properties["Physician Notified"]
	require.NotNil(t, notified)
	assert.Equal(t, ehrschema.FieldTypeBoolean, notified.TargetType)
	assert.False(t, notified.Nullable)

	wound := sections.Properties["WOUND"].Properties["questions"]
	require.NotNil(t, wound)
	virtual := wound.Properties["Interventions"]
	require.NotNil(t, virtual)
	assert.Equal(t, ehrschema.NodeVirtual, virtual.Kind)
	assert.Len(t, virtual.Children, 5)
	assert.Equal(t, 3, virtual.PairLimit)
	for _, child := range virtual.Children {
		assert.Equal(t, ehrschema.FieldTypeBoolean, child.TargetType)
		assert.False(t, child.Nullable)
	}
}

func TestCompiler_FieldMetadata(t *testing.T) {
	table := compileTestTable(t)
	fields := table.Fields

	route := fieldByKey(t, fields, "general.temp_route")
	assert.Equal(t, "g2", route.ID)
	assert.Equal(t, "Temperature Route", route.Name)
	assert.Equal(t, "dropdown", route.RawType)
	assert.Equal(t, ehrschema.FieldTypeSingleSelect, route.TargetType)
	assert.True(t, route.Required)
	assert.Equal(t, []string{"GENERAL", "questions"}, route.LevelKeys)
	assert.Equal(t, []string{"sections", "GENERAL", "questions", "Temperature Route"}, route.DocPath)
	require.Len(t, route.Options, 4)
	assert.Equal(t, ehrschema.Option{Value: "2", Label: "Tympanic"}, route.Options[1])

	note := fieldByKey(t, fields, "general.note")
	assert.Equal(t, "readonly", note.RawType)
	assert.Equal(t, ehrschema.FieldTypeInstructions, note.TargetType)
	assert.False(t, note.Required)

	parent := fieldByKey(t, fields, "wound.interventions")
	assert.True(t, parent.IsVirtualParent)
	assert.Equal(t, ehrschema.FieldTypeVirtualContainer, parent.TargetType)
	assert.Equal(t, 3, parent.PairLimit)

	child := fieldByKey(t, fields, "wound.interventions.102")
	assert.True(t, child.IsVirtualChild)
	assert.Equal(t, "wound.interventions", child.VirtualParent)
	assert.Equal(t, "Repositioning", child.Name)
	assert.Equal(t, "102", child.SourceValue)
	assert.Equal(t, ehrschema.FieldTypeBoolean, child.TargetType)
	assert.Equal(t,
		[]string{"sections", "WOUND", "questions", "Interventions", "Repositioning"},
		child.DocPath)

	// The ignored signature question contributes nothing.
	for _, f := range fields {
		assert.NotEqual(t, "general.signature", f.Key)
	}
}

func TestCompiler_Idempotence(t *testing.T) {
	first := compileTestTable(t)
	second := compileTestTable(t)

	assert.Equal(t, first.Fields, second.Fields)

	firstDoc, err := json.Marshal(first.Document)
	require.NoError(t, err)
	secondDoc, err := json.Marshal(second.Document)
	require.NoError(t, err)
	assert.Equal(t, firstDoc, secondDoc)
}

func TestCompiler_EmptyContainer(t *testing.T) {
	compiler := NewCompiler(testMetaSchema(), newTestTypes(), ehrschema.DefaultConfig().Limits)
	table, err := compiler.Compile(map[string]any{
		"assessment_name": "Empty Assessment",
		"sections":        []any{},
	})
	require.NoError(t, err)

	sections := table.Root.Properties["sections"]
	require.NotNil(t, sections)
	assert.Equal(t, ehrschema.NodeObject, sections.Kind)
	assert.Empty(t, sections.Properties)
	assert.Equal(t, []string{}, sections.Required)
	assert.Empty(t, table.Fields)
}

func TestCompiler_Errors(t *testing.T) {
	base := func() map[string]any { return testFormSchema() }

	tests := []struct {
		name    string
		mutate  func(data map[string]any)
		check   func(t *testing.T, err error)
	}{
		{
			name:   "missing name field",
			mutate: func(data map[string]any) { delete(data, "assessment_name") },
			check: func(t *testing.T, err error) {
				assert.True(t, ehrschema.IsSchemaShapeError(err))
			},
		},
		{
			name:   "missing top container",
			mutate: func(data map[string]any) { delete(data, "sections") },
			check: func(t *testing.T, err error) {
				assert.True(t, ehrschema.IsSchemaShapeError(err))
			},
		},
		{
			name: "container not an array",
			mutate: func(data map[string]any) {
				data["sections"] = map[string]any{"oops": true}
			},
			check: func(t *testing.T, err error) {
				assert.True(t, ehrschema.IsSchemaShapeError(err))
			},
		},
		{
			name: "duplicate section code",
			mutate: func(data map[string]any) {
				sections := data["sections"].([]any)
				second := sections[1].(map[string]any)
				second["section_code"] = "GENERAL"
			},
			check: func(t *testing.T, err error) {
				assert.True(t, ehrschema.IsSchemaShapeError(err))
				assert.Contains(t, err.Error(), "duplicate")
			},
		},
		{
			name: "unknown raw type",
			mutate: func(data map[string]any) {
				sections := data["sections"].([]any)
				questions := sections[0].(map[string]any)["questions"].([]any)
				questions[1].(map[string]any)["type"] = "hologram"
			},
			check: func(t *testing.T, err error) {
				assert.True(t, ehrschema.IsUnknownTypeError(err))
			},
		},
		{
			name: "select without options",
			mutate: func(data map[string]any) {
				sections := data["sections"].([]any)
				questions := sections[0].(map[string]any)["questions"].([]any)
				delete(questions[2].(map[string]any), "choices")
			},
			check: func(t *testing.T, err error) {
				assert.True(t, ehrschema.IsSchemaShapeError(err))
			},
		},
		{
			name: "missing field key",
			mutate: func(data map[string]any) {
				sections := data["sections"].([]any)
				questions := sections[0].(map[string]any)["questions"].([]any)
				delete(questions[1].(map[string]any), "field_key")
			},
			check: func(t *testing.T, err error) {
				assert.True(t, ehrschema.IsSchemaShapeError(err))
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			data := base()
			tt.mutate(data)
			compiler := NewCompiler(testMetaSchema(), newTestTypes(), ehrschema.DefaultConfig().Limits)
			_, err := compiler.Compile(data)
			require.Error(t, err)
			tt.check(t, err)
		})
	}
}
