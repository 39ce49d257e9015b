package ehrschema

import (
	"fmt"
)

// VirtualContainerConfig tells the virtual-container builder where a raw
// property stores its labeled sub-choices.
type VirtualContainerConfig struct {
	// ChildrenField is the source key of the sub-choice list.
	ChildrenField string
	// ValueField is the per-choice key carrying the domain discriminant.
	ValueField string
	// LabelField is the per-choice key carrying the display label, which
	// becomes the child leaf's property name.
	LabelField string
	// PairLimit caps reverse-formatting expansion. Zero falls back to the
	// engine's configured default.
	PairLimit int
}

// NewVirtualContainerBuilder returns a schema builder that expands a single
// raw field into individually addressable boolean leaves, one per labeled
// sub-choice. Domains register it for their one-to-many type tags; reverse
// formatting recombines the leaves into indexed key pairs.
func NewVirtualContainerBuilder(cfg VirtualContainerConfig) SchemaBuilder {
	return func(ctx BuildContext) (*CompiledNode, []FieldMeta, error) {
		raw, present := ctx.RawProperty[cfg.ChildrenField]
		if !present || raw == nil {
			return nil, nil, fmt.Errorf("property '%s' has no '%s' list", ctx.Name, cfg.ChildrenField)
		}
		items, ok := raw.([]any)
		if !ok {
			return nil, nil, fmt.Errorf("property '%s' field '%s' is not a list", ctx.Name, cfg.ChildrenField)
		}

		limit := cfg.PairLimit
		if limit <= 0 {
			limit = ctx.PairLimit
		}

		node := &CompiledNode{
			Kind:      NodeVirtual,
			Children:  make(map[string]*CompiledNode, len(items)),
			ChildMeta: make([]VirtualChild, 0, len(items)),
			PairLimit: limit,
		}
		metas := make([]FieldMeta, 0, len(items)+1)
		metas = append(metas, FieldMeta{
			Key:             ctx.Key,
			Name:            ctx.Name,
			Title:           ctx.Title,
			RawType:         ctx.RawType,
			TargetType:      FieldTypeVirtualContainer,
			Required:        ctx.Required,
			LevelKeys:       ctx.LevelKeys,
			DocPath:         ctx.DocPath,
			IsVirtualParent: true,
			PairLimit:       limit,
		})

		for i, item := range items {
			choice, ok := item.(map[string]any)
			if !ok {
				return nil, nil, fmt.Errorf("property '%s' sub-choice %d is not an object", ctx.Name, i)
			}
			label, _ := choice[cfg.LabelField].(string)
			if label == "" {
				return nil, nil, fmt.Errorf("property '%s' sub-choice %d missing '%s'", ctx.Name, i, cfg.LabelField)
			}
			value := ""
			switch v := choice[cfg.ValueField].(type) {
			case string:
				value = v
			case float64:
				value = fmt.Sprintf("%v", v)
			case int:
				value = fmt.Sprintf("%d", v)
			}
			if value == "" {
				value = label
			}
			if _, dup := node.Children[label]; dup {
				return nil, nil, fmt.Errorf("property '%s' has duplicate sub-choice label '%s'", ctx.Name, label)
			}

			node.Children[label] = &CompiledNode{
				Kind:       NodeLeaf,
				TargetType: FieldTypeBoolean,
			}
			node.ChildMeta = append(node.ChildMeta, VirtualChild{
				Name:        label,
				Index:       i,
				SourceValue: value,
			})
			metas = append(metas, FieldMeta{
				Key:            fmt.Sprintf("%s.%s", ctx.Key, value),
				Name:           label,
				RawType:        ctx.RawType,
				TargetType:     FieldTypeBoolean,
				LevelKeys:      ctx.LevelKeys,
				DocPath:        append(appendStrings(ctx.DocPath), label),
				IsVirtualChild: true,
				VirtualParent:  ctx.Key,
				SourceValue:    value,
			})
		}

		return node, metas, nil
	}
}

func appendStrings(base []string) []string {
	out := make([]string, len(base))
	copy(out, base)
	return out
}
