package internal

import (
	"testing"

	"github.com/stretchr/testify/require"

	ehrschema "github.com/speakcare/spkc-ehr-schema-sub002"
)

// testMetaSchema mirrors a typical EHR assessment export: sections keyed by a
// code, each with a list of questions.
func testMetaSchema() *ehrschema.MetaSchema {
	return &ehrschema.MetaSchema{
		NameField:    "assessment_name",
		VersionField: "version",
		Container: &ehrschema.Container{
			ContainerName: "sections",
			ContainerType: "array",
			Object: &ehrschema.ObjectSpec{
				Name:  "section_name",
				Key:   "section_code",
				Title: "section_title",
				Properties: &ehrschema.Properties{
					PropertiesName: "questions",
					Property: &ehrschema.PropertySpec{
						Key:      "field_key",
						ID:       "field_id",
						Name:     "name",
						Title:    "label",
						Type:     "type",
						Options:  "choices",
						Required: "required",
						Validation: &ehrschema.ValidationSpec{
							AllowedTypes: []string{
								"text", "date", "datetime", "dropdown", "multiselect",
								"checkbox", "number", "integer", "percent", "currency",
								"readonly", "checkbox_group",
							},
							IgnoredTypes: []string{"signature"},
							TypeConstraints: map[string]ehrschema.TypeConstraint{
								"text":     {TargetType: ehrschema.FieldTypeString},
								"date":     {TargetType: ehrschema.FieldTypeDate},
								"datetime": {TargetType: ehrschema.FieldTypeDateTime},
								"dropdown": {
									TargetType:      ehrschema.FieldTypeSingleSelect,
									RequiresOptions: true,
								},
								"multiselect": {
									TargetType:      ehrschema.FieldTypeMultipleSelect,
									RequiresOptions: true,
								},
								"checkbox": {TargetType: ehrschema.FieldTypeBoolean},
								"number":   {TargetType: ehrschema.FieldTypePositiveNumber},
								"integer":  {TargetType: ehrschema.FieldTypePositiveInteger},
								"percent":  {TargetType: ehrschema.FieldTypePercent},
								"currency": {TargetType: ehrschema.FieldTypeCurrency},
								"readonly": {TargetType: ehrschema.FieldTypeInstructions},
								"checkbox_group": {
									TargetType:      ehrschema.FieldTypeVirtualContainer,
									RequiresOptions: true,
									OptionsField:    "choices",
								},
							},
						},
					},
				},
			},
		},
	}
}

func question(key, id, name, label, rawType string, extra map[string]any) map[string]any {
	q := map[string]any{
		"field_key": key,
		"field_id":  id,
		"name":      name,
		"label":     label,
		"type":      rawType,
	}
	for k, v := range extra {
		q[k] = v
	}
	return q
}

func choices(pairs ...[2]string) []any {
	out := make([]any, 0, len(pairs))
	for _, p := range pairs {
		out = append(out, map[string]any{"value": p[0], "label": p[1]})
	}
	return out
}

// testFormSchema covers every intrinsic target type plus one virtual
// container and one ignored raw type.
func testFormSchema() map[string]any {
	return map[string]any{
		"assessment_name": "Weekly Wound Review",
		"version":         2,
		"sections": []any{
			map[string]any{
				"section_code":  "GENERAL",
				"section_name":  "General",
				"section_title": "General",
				"questions": []any{
					question("general.note", "g0", "Review Instructions", "Complete weekly for all residents", "readonly", nil),
					question("general.reviewed_on", "g1", "Reviewed On", "Review Date", "date",
						map[string]any{"required": true}),
					question("general.temp_route", "g2", "Temperature Route", "Temperature Route", "dropdown",
						map[string]any{
							"required": true,
							"choices": choices(
								[2]string{"1", "Oral"},
								[2]string{"2", "Tympanic"},
								[2]string{"3", "Rectal"},
								[2]string{"4", "Axilla"},
							),
						}),
					question("general.concerns", "g3", "Skin Concerns", "Observed Concerns", "multiselect",
						map[string]any{
							"choices": choices(
								[2]string{"br", "Bruising"},
								[2]string{"rd", "Redness"},
								[2]string{"dr", "Dryness"},
								[2]string{"wd", "Wound"},
							),
						}),
					question("general.notified_md", "g4", "Physician Notified", "Physician Notified", "checkbox", nil),
					question("general.signature", "g5", "Nurse Signature", "Signature", "signature", nil),
				},
			},
			map[string]any{
				"section_code":  "WOUND",
				"section_name":  "Wound Detail",
				"section_title": "Wound Detail",
				"questions": []any{
					question("wound.length_cm", "w1", "Wound Length", "Length (cm)", "number", nil),
					question("wound.stage", "w2", "Wound Stage", "Stage", "integer", nil),
					question("wound.healing_pct", "w3", "Healing Progress", "Healing (%)", "percent", nil),
					question("wound.supply_cost", "w4", "Supply Cost", "Cost", "currency", nil),
					question("wound.next_review", "w5", "Next Review", "Next Review", "datetime", nil),
					question("wound.interventions", "w6", "Interventions", "Interventions Applied", "checkbox_group",
						map[string]any{
							"choices": choices(
								[2]string{"101", "Barrier Cream"},
								[2]string{"102", "Repositioning"},
								[2]string{"103", "Wound Dressing"},
								[2]string{"104", "Pressure Relief Mattress"},
								[2]string{"105", "Nutrition Consult"},
							),
						}),
				},
			},
		},
	}
}

func newTestTypes() *ehrschema.TypeRegistry {
	types := ehrschema.NewTypeRegistry()
	types.RegisterFieldSchemaBuilder("checkbox_group",
		ehrschema.NewVirtualContainerBuilder(ehrschema.VirtualContainerConfig{
			ChildrenField: "choices",
			ValueField:    "value",
			LabelField:    "label",
			PairLimit:     3,
		}))
	return types
}

func newTestEngine(t *testing.T) *SchemaEngine {
	t.Helper()
	meta := testMetaSchema()
	require.NoError(t, meta.Validate())
	return NewSchemaEngine(meta, ehrschema.DefaultConfig(), newTestTypes())
}

// compileTestTable compiles and emits the fixture without going through the
// registry, for tests that inspect artifacts directly.
func compileTestTable(t *testing.T) *ehrschema.CompiledTable {
	t.Helper()
	compiler := NewCompiler(testMetaSchema(), newTestTypes(), ehrschema.DefaultConfig().Limits)
	table, err := compiler.Compile(testFormSchema())
	require.NoError(t, err)
	table.Document = EmitDocument(table)
	return table
}
