package internal

import (
	"fmt"

	ehrschema "github.com/speakcare/spkc-ehr-schema-sub002"
)

// compositeSection references one registered table embedded under a key.
type compositeSection struct {
	key      string
	table    string
	required bool
}

// CompositeTable nests registered tables as named sections of one parent
// document. Each section keeps its own compiled artifacts and validators; the
// parent only routes records and merges results. Section validation shares
// one error list so one record produces one ordered message sequence, while
// each section passes or fails on its own.
type CompositeTable struct {
	engine   *SchemaEngine
	name     string
	sections []compositeSection
}

// NewCompositeTable creates an empty composite over already registered tables.
func NewCompositeTable(engine *SchemaEngine, name string) *CompositeTable {
	return &CompositeTable{engine: engine, name: name}
}

// Name returns the composite's name.
func (c *CompositeTable) Name() string {
	return c.name
}

// AddSection embeds a registered table under a key. The required flag routes
// validation severity at the parent level only; the fields inside the section
// keep their own required flags.
func (c *CompositeTable) AddSection(key, tableName string, required bool) *CompositeTable {
	c.sections = append(c.sections, compositeSection{key: key, table: tableName, required: required})
	return c
}

// JSONSchema emits the parent document with each section's document nested
// under its key. The parent object carries the same exhaustive required and
// additionalProperties:false contract as any emitted object node.
func (c *CompositeTable) JSONSchema() (ehrschema.SchemaDocument, error) {
	properties := make(map[string]any, len(c.sections))
	for _, section := range c.sections {
		doc, err := c.engine.GetJSONSchema(section.table)
		if err != nil {
			return nil, err
		}
		properties[section.key] = map[string]any(doc)
	}
	return ehrschema.SchemaDocument{
		"type":                 "object",
		"title":                c.name,
		"properties":           properties,
		"required":             sortedKeys(properties),
		"additionalProperties": false,
	}, nil
}

// Validate structurally checks each section's sub-record against that
// section's emitted document. Messages are prefixed with the section key.
func (c *CompositeTable) Validate(record map[string]any) (bool, []string, error) {
	valid := true
	var messages []string

	for _, section := range c.sections {
		value, present := record[section.key]
		if !present {
			if section.required {
				messages = append(messages, fmt.Sprintf("missing required section '%s'", section.key))
				valid = false
			}
			continue
		}
		sub, ok := value.(map[string]any)
		if !ok {
			messages = append(messages, fmt.Sprintf("section '%s' must be an object", section.key))
			valid = false
			continue
		}
		ok, sectionMessages, err := c.engine.Validate(section.table, sub)
		if err != nil {
			return false, nil, err
		}
		for _, msg := range sectionMessages {
			messages = append(messages, fmt.Sprintf("%s: %s", section.key, msg))
		}
		if !ok && section.required {
			valid = false
		}
	}
	return valid, messages, nil
}

// ValidateRecord delegates each section's sub-record to that section's own
// record validator, accumulating into one shared error list. The coerced
// output nests per-section results under the section keys. An invalid
// optional section does not fail the composite.
func (c *CompositeTable) ValidateRecord(record map[string]any, errs *[]string, partial bool) (bool, map[string]any, error) {
	valid := true
	coerced := make(map[string]any)

	for _, section := range c.sections {
		value, present := record[section.key]
		if !present {
			if section.required && !partial {
				*errs = append(*errs, fmt.Sprintf("Required section '%s' is missing", section.key))
				valid = false
			}
			continue
		}
		sub, ok := value.(map[string]any)
		if !ok {
			*errs = append(*errs, fmt.Sprintf("Section '%s' is not an object", section.key))
			if section.required {
				valid = false
			}
			continue
		}
		entry, err := c.engine.entryByName(section.table)
		if err != nil {
			return false, nil, err
		}
		ok, sectionCoerced := NewRecordValidator(entry.index).ValidateRecord(sub, errs, partial)
		if !ok && section.required {
			valid = false
		}
		coerced[section.key] = sectionCoerced
	}
	return valid, coerced, nil
}
