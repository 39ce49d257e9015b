package internal

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func summaryFormSchema() map[string]any {
	return map[string]any{
		"assessment_name": "Monthly Summary",
		"version":         1,
		"sections": []any{
			map[string]any{
				"section_code":  "SUMMARY",
				"section_name":  "Summary",
				"section_title": "Summary",
				"questions": []any{
					question("summary.weight_kg", "s1", "Weight", "Weight (kg)", "number",
						map[string]any{"required": true}),
					question("summary.notes", "s2", "Notes", "Summary Notes", "text", nil),
				},
			},
		},
	}
}

func newCompositeFixture(t *testing.T) (*SchemaEngine, *CompositeTable) {
	t.Helper()
	engine := newTestEngine(t)
	_, _, err := engine.RegisterTable(0, testFormSchema())
	require.NoError(t, err)
	_, _, err = engine.RegisterTable(0, summaryFormSchema())
	require.NoError(t, err)

	composite := NewCompositeTable(engine, "Resident Review").
		AddSection("wound", "Weekly Wound Review", true).
		AddSection("summary", "Monthly Summary", false)
	return engine, composite
}

func TestCompositeTable_JSONSchema(t *testing.T) {
	_, composite := newCompositeFixture(t)

	doc, err := composite.JSONSchema()
	require.NoError(t, err)

	assert.Equal(t, "object", doc["type"])
	assert.Equal(t, "Resident Review", doc["title"])
	assert.Equal(t, false, doc["additionalProperties"])
	assert.Equal(t, []string{"summary", "wound"}, doc["required"])

	props := doc["properties"].(map[string]any)
	wound := props["wound"].(map[string]any)
	assert.Equal(t, "object", wound["type"])
	assert.Contains(t, wound["properties"].(map[string]any), "assessment_name")
}

func TestCompositeTable_JSONSchemaUnknownSection(t *testing.T) {
	engine := newTestEngine(t)
	composite := NewCompositeTable(engine, "Broken").AddSection("x", "missing", true)
	_, err := composite.JSONSchema()
	assert.Error(t, err)
}

func TestCompositeTable_StructuralValidate(t *testing.T) {
	_, composite := newCompositeFixture(t)

	summaryModel := map[string]any{
		"assessment_name": "Monthly Summary",
		"sections": map[string]any{
			"SUMMARY": map[string]any{
				"questions": map[string]any{
					"Weight": 72.5,
					"Notes":  "stable",
				},
			},
		},
	}

	ok, messages, err := composite.Validate(map[string]any{
		"wound":   validModel(),
		"summary": summaryModel,
	})
	require.NoError(t, err)
	assert.True(t, ok, "messages: %v", messages)

	// Optional section absent: still valid.
	ok, _, err = composite.Validate(map[string]any{"wound": validModel()})
	require.NoError(t, err)
	assert.True(t, ok)

	// Required section absent: invalid.
	ok, messages, err = composite.Validate(map[string]any{"summary": summaryModel})
	require.NoError(t, err)
	assert.False(t, ok)
	require.NotEmpty(t, messages)
	assert.Contains(t, messages[0], "wound")
}

func TestCompositeTable_SectionMessagesArePrefixed(t *testing.T) {
	_, composite := newCompositeFixture(t)

	broken := validModel()
	generalQuestions(broken)["Temperature Route"] = "Forearm"

	ok, messages, err := composite.Validate(map[string]any{"wound": broken})
	require.NoError(t, err)
	assert.False(t, ok)
	require.NotEmpty(t, messages)
	assert.Contains(t, messages[0], "wound: ")
}

func TestCompositeTable_ValidateRecordSharedErrorList(t *testing.T) {
	_, composite := newCompositeFixture(t)

	record := map[string]any{
		"wound": validFlatRecord(),
		"summary": map[string]any{
			"summary.weight_kg": "heavy",
			"summary.notes":     "stable",
		},
	}

	var errs []string
	ok, coerced, err := composite.ValidateRecord(record, &errs, false)
	require.NoError(t, err)

	// The summary's required weight failed, but the section is optional at
	// the parent level, so the composite as a whole stays valid.
	assert.True(t, ok)
	require.Len(t, errs, 1)
	assert.Contains(t, errs[0], "summary.weight_kg")

	woundValues := coerced["wound"].(map[string]any)
	assert.Equal(t, "Tympanic", woundValues["general.temp_route"])
	summaryValues := coerced["summary"].(map[string]any)
	assert.Equal(t, "stable", summaryValues["summary.notes"])
	_, present := summaryValues["summary.weight_kg"]
	assert.False(t, present)
}

func TestCompositeTable_RequiredSectionFailurePropagates(t *testing.T) {
	_, composite := newCompositeFixture(t)

	record := map[string]any{
		"wound": map[string]any{
			"general.temp_route": "Forearm",
		},
	}

	var errs []string
	ok, _, err := composite.ValidateRecord(record, &errs, true)
	require.NoError(t, err)
	assert.False(t, ok)
	require.Len(t, errs, 1)
	assert.Contains(t, errs[0], "general.temp_route")

	// partial=true also suppresses the missing optional section and the
	// wound section's own missing required fields.
	for _, msg := range errs {
		assert.NotContains(t, msg, "is missing")
	}
}
