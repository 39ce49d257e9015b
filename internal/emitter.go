package internal

import (
	"sort"

	ehrschema "github.com/speakcare/spkc-ehr-schema-sub002"
)

// EmitDocument renders the compiled tree into a strict structural schema
// document. Pure and total for any well-formed compiled table: every object
// node carries additionalProperties:false and an exhaustive required list,
// nullable leaves use two-element type unions, and the document root carries
// an identity leaf whose const is the registered table name.
func EmitDocument(table *ehrschema.CompiledTable) ehrschema.SchemaDocument {
	doc := emitNode(table.Root)

	props := doc["properties"].(map[string]any)
	props[table.NameField] = map[string]any{
		"type":  "string",
		"const": table.Schema.Name,
	}
	keys := make([]string, 0, len(props))
	for key := range props {
		keys = append(keys, key)
	}
	doc["required"] = sortStrings(keys)

	return ehrschema.SchemaDocument(doc)
}

func emitNode(node *ehrschema.CompiledNode) map[string]any {
	switch node.Kind {
	case ehrschema.NodeObject:
		props := make(map[string]any, len(node.Properties))
		for key, child := range node.Properties {
			props[key] = emitNode(child)
		}
		return map[string]any{
			"type":                 "object",
			"properties":           props,
			"required":             append([]string{}, node.Required...),
			"additionalProperties": false,
		}

	case ehrschema.NodeVirtual:
		props := make(map[string]any, len(node.Children))
		keys := make([]string, 0, len(node.Children))
		for name, child := range node.Children {
			props[name] = emitNode(child)
			keys = append(keys, name)
		}
		return map[string]any{
			"type":                 "object",
			"properties":           props,
			"required":             sortStrings(keys),
			"additionalProperties": false,
		}

	default:
		return emitLeaf(node)
	}
}

func emitLeaf(leaf *ehrschema.CompiledNode) map[string]any {
	if leaf.HasConst {
		out := map[string]any{
			"type":  "string",
			"const": leaf.Const,
		}
		if leaf.Note != "" {
			out["description"] = leaf.Note
		}
		return out
	}

	base := baseType(leaf.TargetType)
	out := make(map[string]any)
	if leaf.Nullable {
		out["type"] = []any{base, "null"}
	} else {
		out["type"] = base
	}

	switch leaf.TargetType {
	case ehrschema.FieldTypeDate:
		out["format"] = "date"
	case ehrschema.FieldTypeDateTime:
		out["format"] = "date-time"
	case ehrschema.FieldTypeSingleSelect:
		// Null sentinel so models can answer "unknown / not sure".
		enum := make([]any, 0, len(leaf.Enum)+1)
		for _, label := range leaf.Enum {
			enum = append(enum, label)
		}
		enum = append(enum, nil)
		out["enum"] = enum
	case ehrschema.FieldTypeMultipleSelect:
		enum := make([]any, 0, len(leaf.Enum))
		for _, label := range leaf.Enum {
			enum = append(enum, label)
		}
		out["items"] = map[string]any{
			"type": "string",
			"enum": enum,
		}
	case ehrschema.FieldTypePositiveInteger, ehrschema.FieldTypePositiveNumber:
		out["minimum"] = 0
	case ehrschema.FieldTypePercent:
		out["minimum"] = 0
		out["maximum"] = 100
	}

	return out
}

func baseType(t ehrschema.FieldType) string {
	switch t {
	case ehrschema.FieldTypeBoolean:
		return "boolean"
	case ehrschema.FieldTypePositiveInteger:
		return "integer"
	case ehrschema.FieldTypeNumber, ehrschema.FieldTypeCurrency,
		ehrschema.FieldTypePercent, ehrschema.FieldTypePositiveNumber:
		return "number"
	case ehrschema.FieldTypeMultipleSelect:
		return "array"
	default:
		return "string"
	}
}

func sortStrings(keys []string) []string {
	out := append([]string{}, keys...)
	sort.Strings(out)
	return out
}
