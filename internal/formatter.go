package internal

import (
	"fmt"

	ehrschema "github.com/speakcare/spkc-ehr-schema-sub002"
)

// checkedSentinel is the value a truthy checkbox formats back to.
const checkedSentinel = "on"

// ReverseMapper maps filled model values back to the source record shape.
// Dispatch is keyed by the raw source type tag: a formatter registered for the
// tag wins, otherwise the built-in behavior for the compiled target type
// applies, falling through to identity. Reverse formatting never fails on
// well-typed input; structural validation is expected to have run first.
type ReverseMapper struct {
	index *ehrschema.FieldIndex
	types *ehrschema.TypeRegistry
}

// NewReverseMapper creates a mapper over one table's field metadata.
func NewReverseMapper(index *ehrschema.FieldIndex, types *ehrschema.TypeRegistry) *ReverseMapper {
	return &ReverseMapper{index: index, types: types}
}

// FormatField maps one leaf's model value to its source-shaped entries.
func (m *ReverseMapper) FormatField(meta ehrschema.FieldMeta, value any) (map[string]any, error) {
	if h := m.types.Handler(meta.RawType); h.FormatReverse != nil {
		return h.FormatReverse(meta, m.index, value)
	}
	if meta.IsVirtualParent {
		return m.expandVirtual(meta, value), nil
	}

	switch meta.TargetType {
	case ehrschema.FieldTypeInstructions:
		// Instruction leaves carry no answer.
		return map[string]any{}, nil

	case ehrschema.FieldTypeSingleSelect:
		return map[string]any{meta.Name: resolveLabel(meta.Options, value)}, nil

	case ehrschema.FieldTypeMultipleSelect:
		return map[string]any{meta.Name: resolveLabels(meta.Options, value)}, nil

	case ehrschema.FieldTypeBoolean:
		if truthy(value) {
			return map[string]any{meta.Name: checkedSentinel}, nil
		}
		return map[string]any{meta.Name: nil}, nil

	default:
		return map[string]any{meta.Name: value}, nil
	}
}

// FormatRecord walks every answerable leaf of the table, locates its model
// value by document path and merges the per-field results into one source
// shaped record. Absent branches are skipped.
func (m *ReverseMapper) FormatRecord(model map[string]any) (map[string]any, error) {
	out := make(map[string]any)
	for _, meta := range m.index.Declared() {
		if meta.TargetType == ehrschema.FieldTypeInstructions {
			continue
		}
		value, present := lookupPath(model, meta.DocPath)
		if !present {
			continue
		}
		formatted, err := m.FormatField(meta, value)
		if err != nil {
			return nil, err
		}
		for key, v := range formatted {
			out[key] = v
		}
	}
	return out, nil
}

// expandVirtual turns the child-name → value map into indexed key pairs. Only
// the first PairLimit declared children are considered; within that window a
// null or unchecked child is skipped and the emission counter n advances only
// for emitted pairs, so pair indices stay dense.
func (m *ReverseMapper) expandVirtual(meta ehrschema.FieldMeta, value any) map[string]any {
	if value == nil {
		return map[string]any{meta.Name: nil}
	}
	obj, ok := value.(map[string]any)
	if !ok {
		return map[string]any{meta.Name: nil}
	}

	children := m.index.ChildrenOf(meta.Key)
	limit := meta.PairLimit
	if limit <= 0 || limit > len(children) {
		limit = len(children)
	}

	out := make(map[string]any)
	n := 0
	for i, child := range children {
		if i >= limit {
			break
		}
		v, present := obj[child.Name]
		if !present || v == nil {
			continue
		}
		if b, isBool := v.(bool); isBool && !b {
			continue
		}
		out[fmt.Sprintf("a%d_%s", n, meta.Name)] = child.SourceValue
		out[fmt.Sprintf("b%d_%s", n, meta.Name)] = formatVirtualChild(v)
		n++
	}
	return out
}

func formatVirtualChild(value any) any {
	if b, ok := value.(bool); ok {
		if b {
			return checkedSentinel
		}
		return nil
	}
	return value
}

// resolveLabel scans the stored option list for the chosen label and returns
// its original discriminant value. A value that already is a discriminant
// passes through, as does an unrecognized label.
func resolveLabel(options []ehrschema.Option, value any) any {
	if value == nil {
		return nil
	}
	s, ok := value.(string)
	if !ok {
		return value
	}
	for _, opt := range options {
		if opt.Label == s {
			return opt.Value
		}
	}
	for _, opt := range options {
		if opt.Value == s {
			return s
		}
	}
	return s
}

// resolveLabels resolves each chosen label independently and returns the
// discriminant list, or nil when none resolved.
func resolveLabels(options []ehrschema.Option, value any) any {
	if value == nil {
		return nil
	}
	items, ok := toAnySlice(value)
	if !ok {
		return nil
	}
	var resolved []any
	for _, item := range items {
		s, ok := item.(string)
		if !ok {
			continue
		}
		for _, opt := range options {
			if opt.Label == s || opt.Value == s {
				resolved = append(resolved, opt.Value)
				break
			}
		}
	}
	if len(resolved) == 0 {
		return nil
	}
	return resolved
}

func truthy(value any) bool {
	switch v := value.(type) {
	case nil:
		return false
	case bool:
		return v
	case string:
		return v != ""
	case float64:
		return v != 0
	case int:
		return v != 0
	default:
		return true
	}
}

func lookupPath(model map[string]any, path []string) (any, bool) {
	var current any = model
	for _, segment := range path {
		obj, ok := current.(map[string]any)
		if !ok {
			return nil, false
		}
		current, ok = obj[segment]
		if !ok {
			return nil, false
		}
	}
	return current, true
}
