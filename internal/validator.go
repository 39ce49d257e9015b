package internal

import (
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	ehrschema "github.com/speakcare/spkc-ehr-schema-sub002"
)

const (
	dateLayout = "2006-01-02"
)

// StructuralValidator checks records against the emitted document's
// structural rules: types, enums, formats, exhaustive required sets and
// additionalProperties:false. One message per violation; never an error.
type StructuralValidator struct {
	table *ehrschema.CompiledTable
}

// NewStructuralValidator creates a validator over one compiled table.
func NewStructuralValidator(table *ehrschema.CompiledTable) *StructuralValidator {
	return &StructuralValidator{table: table}
}

// Validate walks the record against the compiled tree.
func (v *StructuralValidator) Validate(record map[string]any) (bool, []string) {
	var errs []string

	nameField := v.table.NameField
	if identity, present := record[nameField]; !present {
		errs = append(errs, fmt.Sprintf("missing required property '%s'", nameField))
	} else if s, ok := identity.(string); !ok || s != v.table.Schema.Name {
		errs = append(errs, fmt.Sprintf("property '%s' must equal '%s'", nameField, v.table.Schema.Name))
	}

	body := make(map[string]any, len(record))
	for key, value := range record {
		if key == nameField {
			continue
		}
		body[key] = value
	}

	v.walkNode(v.table.Root, body, "", &errs)
	return len(errs) == 0, errs
}

func (v *StructuralValidator) walkNode(node *ehrschema.CompiledNode, value any, path string, errs *[]string) {
	switch node.Kind {
	case ehrschema.NodeObject:
		v.walkObject(node.Properties, node.Required, value, path, errs)
	case ehrschema.NodeVirtual:
		v.walkObject(node.Children, sortedKeys(node.Children), value, path, errs)
	default:
		checkStructuralLeaf(node, value, path, errs)
	}
}

func (v *StructuralValidator) walkObject(
	properties map[string]*ehrschema.CompiledNode,
	required []string,
	value any,
	path string,
	errs *[]string,
) {
	obj, ok := value.(map[string]any)
	if !ok {
		*errs = append(*errs, fmt.Sprintf("property '%s' must be an object", displayPath(path)))
		return
	}

	for _, key := range required {
		if _, present := obj[key]; !present {
			*errs = append(*errs, fmt.Sprintf("missing required property '%s'", joinPath(path, key)))
		}
	}
	for _, key := range sortedKeys(obj) {
		child, declared := properties[key]
		if !declared {
			*errs = append(*errs, fmt.Sprintf("undeclared property '%s'", joinPath(path, key)))
			continue
		}
		v.walkNode(child, obj[key], joinPath(path, key), errs)
	}
}

func checkStructuralLeaf(leaf *ehrschema.CompiledNode, value any, path string, errs *[]string) {
	if leaf.HasConst {
		if s, ok := value.(string); !ok || s != leaf.Const {
			*errs = append(*errs, fmt.Sprintf("property '%s' must equal its instruction text", path))
		}
		return
	}

	if value == nil {
		if !leaf.Nullable {
			*errs = append(*errs, fmt.Sprintf("property '%s' may not be null", path))
		}
		return
	}

	switch leaf.TargetType {
	case ehrschema.FieldTypeString, ehrschema.FieldTypeInstructions:
		if _, ok := value.(string); !ok {
			*errs = append(*errs, fmt.Sprintf("property '%s' must be a string", path))
		}
	case ehrschema.FieldTypeDate:
		s, ok := value.(string)
		if !ok {
			*errs = append(*errs, fmt.Sprintf("property '%s' must be a string", path))
			return
		}
		if _, err := time.Parse(dateLayout, s); err != nil {
			*errs = append(*errs, fmt.Sprintf("property '%s' must be a date in YYYY-MM-DD format", path))
		}
	case ehrschema.FieldTypeDateTime:
		s, ok := value.(string)
		if !ok {
			*errs = append(*errs, fmt.Sprintf("property '%s' must be a string", path))
			return
		}
		if _, err := time.Parse(time.RFC3339, s); err != nil {
			*errs = append(*errs, fmt.Sprintf("property '%s' must be an ISO-8601 datetime", path))
		}
	case ehrschema.FieldTypeBoolean:
		if _, ok := value.(bool); !ok {
			*errs = append(*errs, fmt.Sprintf("property '%s' must be a boolean", path))
		}
	case ehrschema.FieldTypeSingleSelect:
		s, ok := value.(string)
		if !ok || !containsString(leaf.Enum, s) {
			*errs = append(*errs, fmt.Sprintf("property '%s' is not one of the allowed choices", path))
		}
	case ehrschema.FieldTypeMultipleSelect:
		items, ok := value.([]any)
		if !ok {
			*errs = append(*errs, fmt.Sprintf("property '%s' must be an array", path))
			return
		}
		for i, item := range items {
			s, ok := item.(string)
			if !ok || !containsString(leaf.Enum, s) {
				*errs = append(*errs, fmt.Sprintf("property '%s' element %d is not one of the allowed choices", path, i))
			}
		}
	case ehrschema.FieldTypePositiveInteger:
		n, ok := toNumber(value)
		if !ok || n != math.Trunc(n) || n < 0 {
			*errs = append(*errs, fmt.Sprintf("property '%s' must be a non-negative integer", path))
		}
	case ehrschema.FieldTypePositiveNumber:
		n, ok := toNumber(value)
		if !ok || n < 0 {
			*errs = append(*errs, fmt.Sprintf("property '%s' must be a non-negative number", path))
		}
	case ehrschema.FieldTypePercent:
		n, ok := toNumber(value)
		if !ok || n < 0 || n > 100 {
			*errs = append(*errs, fmt.Sprintf("property '%s' must be a percent between 0 and 100", path))
		}
	case ehrschema.FieldTypeNumber, ehrschema.FieldTypeCurrency:
		if _, ok := toNumber(value); !ok {
			*errs = append(*errs, fmt.Sprintf("property '%s' must be a number", path))
		}
	}
}

// RecordValidator performs semantic, per-field coercive validation over the
// flat field metadata index. Validation-time problems are returned as
// messages, never errors; severity follows the field's own required flag.
type RecordValidator struct {
	index *ehrschema.FieldIndex
}

// NewRecordValidator creates a validator over one table's field metadata.
func NewRecordValidator(index *ehrschema.FieldIndex) *RecordValidator {
	return &RecordValidator{index: index}
}

// ValidateRecord coerces each declared field of the record. Messages
// accumulate into errs so callers can batch several records or sections into
// one ordered list. With partial set, absent required fields are not
// reported; every other rule still applies.
func (v *RecordValidator) ValidateRecord(record map[string]any, errs *[]string, partial bool) (bool, map[string]any) {
	valid := true
	coerced := make(map[string]any)

	for _, meta := range v.index.Declared() {
		if meta.TargetType == ehrschema.FieldTypeInstructions {
			continue
		}

		value, present := record[meta.Key]
		if !present {
			if meta.Required && !partial {
				*errs = append(*errs, fmt.Sprintf("Required field '%s' is missing", meta.Key))
				valid = false
			}
			continue
		}

		if meta.TargetType == ehrschema.FieldTypeMultipleSelect {
			if ok := v.coerceMultiSelect(meta, value, errs, coerced); !ok {
				valid = false
			}
			continue
		}

		out, reason := coerceValue(meta, value, v.index)
		if reason != "" {
			if meta.Required {
				*errs = append(*errs, fmt.Sprintf("Required field '%s' %s", meta.Key, reason))
				valid = false
			} else {
				*errs = append(*errs, fmt.Sprintf("Field '%s' is null or failed validation: %s", meta.Key, reason))
			}
			continue
		}
		coerced[meta.Key] = out
	}

	for _, key := range sortedKeys(record) {
		if _, declared := v.index.Lookup(key); !declared {
			*errs = append(*errs, fmt.Sprintf("Extra field '%s' ignored", key))
		}
	}

	return valid, coerced
}

// coerceMultiSelect screens the input list element by element: invalid
// elements are dropped and reported in one combined message, surviving
// elements are returned in input order. Zero survivors omit the key entirely.
func (v *RecordValidator) coerceMultiSelect(meta ehrschema.FieldMeta, value any, errs *[]string, coerced map[string]any) bool {
	if value == nil {
		if meta.Required {
			*errs = append(*errs, fmt.Sprintf("Required field '%s' is null", meta.Key))
			return false
		}
		*errs = append(*errs, fmt.Sprintf("Field '%s' is null or failed validation: is null", meta.Key))
		return true
	}

	items, ok := toAnySlice(value)
	if !ok {
		if meta.Required {
			*errs = append(*errs, fmt.Sprintf("Required field '%s' is not a list of choices", meta.Key))
			return false
		}
		*errs = append(*errs, fmt.Sprintf("Field '%s' is null or failed validation: is not a list of choices", meta.Key))
		return true
	}

	labels := ehrschema.OptionLabels(meta.Options)
	kept := make([]string, 0, len(items))
	var invalid []string
	for _, item := range items {
		s, ok := item.(string)
		if ok && containsString(labels, s) {
			kept = append(kept, s)
			continue
		}
		invalid = append(invalid, fmt.Sprintf("%v", item))
	}

	if len(invalid) > 0 {
		detail := strings.Join(invalid, ", ")
		if meta.Required && len(kept) == 0 {
			*errs = append(*errs, fmt.Sprintf("Required field '%s' has no valid values; invalid: %s", meta.Key, detail))
			return false
		}
		*errs = append(*errs, fmt.Sprintf("Field '%s' has invalid values: %s", meta.Key, detail))
	}

	if len(kept) > 0 {
		out := make([]any, len(kept))
		for i, s := range kept {
			out[i] = s
		}
		coerced[meta.Key] = out
	}
	return true
}

func coerceValue(meta ehrschema.FieldMeta, value any, index *ehrschema.FieldIndex) (any, string) {
	if value == nil {
		return nil, "is null"
	}

	switch meta.TargetType {
	case ehrschema.FieldTypeString:
		if s, ok := value.(string); ok {
			return s, ""
		}
		return nil, "is not a string"

	case ehrschema.FieldTypeBoolean:
		if b, ok := value.(bool); ok {
			return b, ""
		}
		return nil, "is not a boolean"

	case ehrschema.FieldTypeDate:
		s, ok := value.(string)
		if !ok {
			return nil, "is not a valid date (expected YYYY-MM-DD)"
		}
		if _, err := time.Parse(dateLayout, s); err != nil {
			return nil, "is not a valid date (expected YYYY-MM-DD)"
		}
		return s, ""

	case ehrschema.FieldTypeDateTime:
		s, ok := value.(string)
		if !ok {
			return nil, "is not a valid datetime (expected ISO-8601)"
		}
		if _, err := time.Parse(time.RFC3339, s); err != nil {
			return nil, "is not a valid datetime (expected ISO-8601)"
		}
		return s, ""

	case ehrschema.FieldTypeSingleSelect:
		s, ok := value.(string)
		if !ok || !containsString(ehrschema.OptionLabels(meta.Options), s) {
			return nil, fmt.Sprintf("value '%v' is not one of the allowed choices", value)
		}
		return s, ""

	case ehrschema.FieldTypeNumber, ehrschema.FieldTypeCurrency:
		n, ok := toNumber(value)
		if !ok {
			return nil, "cannot be converted to a number"
		}
		return n, ""

	case ehrschema.FieldTypePositiveNumber:
		n, ok := toNumber(value)
		if !ok {
			return nil, "cannot be converted to a number"
		}
		if n < 0 {
			return nil, "must be a non-negative number"
		}
		return n, ""

	case ehrschema.FieldTypePositiveInteger:
		n, ok := toNumber(value)
		if !ok {
			return nil, "cannot be converted to a number"
		}
		if n != math.Trunc(n) || n < 0 {
			return nil, "must be a non-negative integer"
		}
		return int64(n), ""

	case ehrschema.FieldTypePercent:
		n, ok := toNumber(value)
		if !ok || n < 0 || n > 100 {
			return nil, "is not a valid percent"
		}
		return n, ""

	case ehrschema.FieldTypeVirtualContainer:
		obj, ok := value.(map[string]any)
		if !ok {
			return nil, "is not an object of sub-choices"
		}
		children := index.ChildrenOf(meta.Key)
		known := NewSet[string]()
		for _, child := range children {
			known.Add(child.Name)
		}
		out := make(map[string]any, len(obj))
		for _, name := range sortedKeys(obj) {
			if known.Contains(name) {
				out[name] = obj[name]
			}
		}
		return out, ""

	default:
		return value, ""
	}
}

func toNumber(value any) (float64, bool) {
	switch v := value.(type) {
	case float64:
		return v, true
	case float32:
		return float64(v), true
	case int:
		return float64(v), true
	case int64:
		return float64(v), true
	case int32:
		return float64(v), true
	case json.Number:
		f, err := v.Float64()
		return f, err == nil
	case string:
		f, err := strconv.ParseFloat(v, 64)
		return f, err == nil
	default:
		return 0, false
	}
}

func containsString(list []string, s string) bool {
	for _, item := range list {
		if item == s {
			return true
		}
	}
	return false
}

func joinPath(base, key string) string {
	if base == "" {
		return key
	}
	return base + "." + key
}

func displayPath(path string) string {
	if path == "" {
		return "(root)"
	}
	return path
}
