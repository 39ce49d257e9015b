package main

import (
	ehrschema "github.com/speakcare/spkc-ehr-schema-sub002"
)

// assessmentMetaSchema is the grammar of the sample EHR vendor's assessment
// export: a flat list of sections, each carrying a list of questions.
func assessmentMetaSchema() *ehrschema.MetaSchema {
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
								"text", "date", "dropdown", "multiselect",
								"checkbox", "number", "percent", "readonly",
								"checkbox_group",
							},
							IgnoredTypes: []string{"signature"},
							TypeConstraints: map[string]ehrschema.TypeConstraint{
								"text":     {TargetType: ehrschema.FieldTypeString},
								"date":     {TargetType: ehrschema.FieldTypeDate},
								"dropdown": {TargetType: ehrschema.FieldTypeSingleSelect, RequiresOptions: true},
								"multiselect": {
									TargetType:      ehrschema.FieldTypeMultipleSelect,
									RequiresOptions: true,
								},
								"checkbox": {TargetType: ehrschema.FieldTypeBoolean},
								"number":   {TargetType: ehrschema.FieldTypePositiveNumber},
								"percent":  {TargetType: ehrschema.FieldTypePercent},
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

// sampleAssessment is one concrete form-schema instance in the vendor's
// export format.
func sampleAssessment() map[string]any {
	return map[string]any{
		"assessment_name": "Nursing Admission Assessment",
		"version":         3,
		"sections": []any{
			map[string]any{
				"section_code":  "VITALS",
				"section_name":  "Vital Signs",
				"section_title": "Vital Signs",
				"questions": []any{
					map[string]any{
						"field_key": "vitals.note",
						"field_id":  "q100",
						"name":      "Vitals Instructions",
						"label":     "Record vital signs on admission",
						"type":      "readonly",
					},
					map[string]any{
						"field_key": "vitals.temp_route",
						"field_id":  "q101",
						"name":      "Temperature Route",
						"label":     "Temperature Route",
						"type":      "dropdown",
						"required":  true,
						"choices": []any{
							map[string]any{"value": "1", "label": "Oral"},
							map[string]any{"value": "2", "label": "Tympanic"},
							map[string]any{"value": "3", "label": "Axilla"},
						},
					},
					map[string]any{
						"field_key": "vitals.temp",
						"field_id":  "q102",
						"name":      "Temperature",
						"label":     "Temperature (F)",
						"type":      "number",
						"required":  true,
					},
					map[string]any{
						"field_key": "vitals.o2_sat",
						"field_id":  "q103",
						"name":      "Oxygen Saturation",
						"label":     "SpO2 (%)",
						"type":      "percent",
					},
				},
			},
			map[string]any{
				"section_code":  "SKIN",
				"section_name":  "Skin Assessment",
				"section_title": "Skin Assessment",
				"questions": []any{
					map[string]any{
						"field_key": "skin.assessed_on",
						"field_id":  "q200",
						"name":      "Assessed On",
						"label":     "Assessment Date",
						"type":      "date",
						"required":  true,
					},
					map[string]any{
						"field_key": "skin.concerns",
						"field_id":  "q201",
						"name":      "Skin Concerns",
						"label":     "Observed Concerns",
						"type":      "multiselect",
						"choices": []any{
							map[string]any{"value": "br", "label": "Bruising"},
							map[string]any{"value": "rd", "label": "Redness"},
							map[string]any{"value": "dr", "label": "Dryness"},
							map[string]any{"value": "wd", "label": "Wound"},
						},
					},
					map[string]any{
						"field_key": "skin.interventions",
						"field_id":  "q202",
						"name":      "Interventions",
						"label":     "Interventions Applied",
						"type":      "checkbox_group",
						"choices": []any{
							map[string]any{"value": "101", "label": "Barrier Cream"},
							map[string]any{"value": "102", "label": "Repositioning"},
							map[string]any{"value": "103", "label": "Wound Dressing"},
							map[string]any{"value": "104", "label": "Pressure Relief Mattress"},
						},
					},
					map[string]any{
						"field_key": "skin.notified_md",
						"field_id":  "q203",
						"name":      "Physician Notified",
						"label":     "Physician Notified",
						"type":      "checkbox",
					},
					map[string]any{
						"field_key": "skin.signature",
						"field_id":  "q204",
						"name":      "Nurse Signature",
						"type":      "signature",
					},
				},
			},
		},
	}
}

// sampleModelResponse is a filled record in the emitted document's shape, the
// way a structured-output model would return it.
func sampleModelResponse() map[string]any {
	return map[string]any{
		"assessment_name": "Nursing Admission Assessment",
		"sections": map[string]any{
			"VITALS": map[string]any{
				"questions": map[string]any{
					"Vitals Instructions": "Record vital signs on admission\nVitals Instructions",
					"Temperature Route":   "Tympanic",
					"Temperature":         98.6,
					"Oxygen Saturation":   97,
				},
			},
			"SKIN": map[string]any{
				"questions": map[string]any{
					"Assessed On":   "2026-08-31",
					"Skin Concerns": []any{"Redness", "Dryness"},
					"Interventions": map[string]any{
						"Barrier Cream":            true,
						"Repositioning":            true,
						"Wound Dressing":           false,
						"Pressure Relief Mattress": false,
					},
					"Physician Notified": true,
				},
			},
		},
	}
}

// sampleFlatRecord is the same answers keyed by the vendor's field keys, the
// shape the semantic validator consumes. One multi-select element is
// deliberately off-list to show partial acceptance.
func sampleFlatRecord() map[string]any {
	return map[string]any{
		"vitals.temp_route": "Tympanic",
		"vitals.temp":       98.6,
		"vitals.o2_sat":     97,
		"skin.assessed_on":  "2026-08-31",
		"skin.concerns":     []any{"Redness", "Peeling", "Dryness"},
		"skin.interventions": map[string]any{
			"Barrier Cream": true,
			"Repositioning": true,
		},
		"skin.notified_md": true,
		"charted_by":       "rn.jdoe",
	}
}
