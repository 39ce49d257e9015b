package ehrschema

// FieldIndex is a lookup structure over the flat field metadata list derived
// at registration. Immutable after construction.
type FieldIndex struct {
	fields []FieldMeta
	byKey  map[string]int
}

// NewFieldIndex builds an index over the metadata entries in declared order.
func NewFieldIndex(fields []FieldMeta) *FieldIndex {
	idx := &FieldIndex{
		fields: fields,
		byKey:  make(map[string]int, len(fields)),
	}
	for i, f := range fields {
		idx.byKey[f.Key] = i
	}
	return idx
}

// Fields returns a copy of the metadata entries in declared order.
func (x *FieldIndex) Fields() []FieldMeta {
	out := make([]FieldMeta, len(x.fields))
	copy(out, x.fields)
	return out
}

// Lookup finds the metadata entry for a field key.
func (x *FieldIndex) Lookup(key string) (FieldMeta, bool) {
	i, ok := x.byKey[key]
	if !ok {
		return FieldMeta{}, false
	}
	return x.fields[i], true
}

// ChildrenOf returns the virtual-container children of a parent key in their
// original declared order.
func (x *FieldIndex) ChildrenOf(parentKey string) []FieldMeta {
	var children []FieldMeta
	for _, f := range x.fields {
		if f.IsVirtualChild && f.VirtualParent == parentKey {
			children = append(children, f)
		}
	}
	return children
}

// Declared returns the metadata entries that name answerable record fields:
// everything except virtual-container children, which are addressed through
// their parent's value.
func (x *FieldIndex) Declared() []FieldMeta {
	out := make([]FieldMeta, 0, len(x.fields))
	for _, f := range x.fields {
		if f.IsVirtualChild {
			continue
		}
		out = append(out, f)
	}
	return out
}
