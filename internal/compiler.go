package internal

import (
	"fmt"
	"strconv"

	ehrschema "github.com/speakcare/spkc-ehr-schema-sub002"
)

// instructionsNote marks const leaves as contextual guidance rather than
// answerable fields.
const instructionsNote = "Contextual instructions for the surrounding fields; not an answerable field."

// Compiler interprets the meta-schema grammar against one concrete
// form-schema instance, producing the compiled tree and the flat field
// metadata index. Pure; all state lives in the per-call compile walk.
type Compiler struct {
	meta   *ehrschema.MetaSchema
	types  *ehrschema.TypeRegistry
	limits ehrschema.LimitsConfig
}

// NewCompiler creates a compiler bound to one meta-schema and type registry.
func NewCompiler(meta *ehrschema.MetaSchema, types *ehrschema.TypeRegistry, limits ehrschema.LimitsConfig) *Compiler {
	return &Compiler{meta: meta, types: types, limits: limits}
}

type compileState struct {
	fields []ehrschema.FieldMeta
}

// Compile walks the container chain depth-first and returns the compiled
// artifacts. The emitted document is attached by the caller.
func (c *Compiler) Compile(data map[string]any) (*ehrschema.CompiledTable, error) {
	if err := c.meta.Validate(); err != nil {
		return nil, err
	}
	if data == nil {
		return nil, ehrschema.NewSchemaShapeError("form schema data is nil")
	}

	name := stringValue(data[c.meta.NameField])
	if name == "" {
		return nil, ehrschema.NewSchemaShapeError(
			fmt.Sprintf("form schema missing name field '%s'", c.meta.NameField))
	}

	version := 0
	if c.meta.VersionField != "" {
		version = intValue(data[c.meta.VersionField])
	}

	state := &compileState{}
	containerNode, err := c.compileContainer(c.meta.Container, data, true, nil, nil, state)
	if err != nil {
		return nil, err
	}

	root := &ehrschema.CompiledNode{
		Kind: ehrschema.NodeObject,
		Properties: map[string]*ehrschema.CompiledNode{
			c.meta.Container.ContainerName: containerNode,
		},
	}
	root.Required = sortedKeys(root.Properties)

	return &ehrschema.CompiledTable{
		Schema:    &ehrschema.TableSchema{Name: name, Version: version, Raw: data},
		NameField: c.meta.NameField,
		Root:      root,
		Fields:    state.fields,
	}, nil
}

// compileContainer compiles one container level into an object node keyed by
// each element's discriminator. An empty source array still yields an object
// node with empty properties so downstream consumers see "legitimately
// empty", never "missing". A missing nested source key is treated the same
// way; only the top-level container is mandatory.
func (c *Compiler) compileContainer(
	spec *ehrschema.Container,
	source map[string]any,
	mandatory bool,
	levelKeys []string,
	docPath []string,
	state *compileState,
) (*ehrschema.CompiledNode, error) {
	node := &ehrschema.CompiledNode{
		Kind:       ehrschema.NodeObject,
		Properties: make(map[string]*ehrschema.CompiledNode),
		Required:   []string{},
	}

	raw, present := source[spec.ContainerName]
	if !present || raw == nil {
		if mandatory {
			return nil, ehrschema.NewSchemaShapeError(
				fmt.Sprintf("form schema missing container '%s'", spec.ContainerName))
		}
		return node, nil
	}

	items, ok := toAnySlice(raw)
	if !ok {
		return nil, ehrschema.NewSchemaShapeError(
			fmt.Sprintf("container '%s' must be an array", spec.ContainerName))
	}

	for i, item := range items {
		elem, ok := toStringMap(item)
		if !ok {
			return nil, ehrschema.NewSchemaShapeError(
				fmt.Sprintf("container '%s' element %d is not an object", spec.ContainerName, i))
		}

		key := stringValue(elem[spec.Object.Key])
		if key == "" {
			return nil, ehrschema.NewSchemaShapeError(
				fmt.Sprintf("container '%s' element %d missing key '%s'", spec.ContainerName, i, spec.Object.Key))
		}
		if _, dup := node.Properties[key]; dup {
			return nil, ehrschema.NewSchemaShapeError(
				fmt.Sprintf("container '%s' has duplicate key '%s'", spec.ContainerName, key))
		}

		childLevel := appendPath(levelKeys, key)
		childPath := appendPath(docPath, spec.ContainerName, key)

		elemNode := &ehrschema.CompiledNode{
			Kind:       ehrschema.NodeObject,
			Properties: make(map[string]*ehrschema.CompiledNode),
			Required:   []string{},
		}

		if nested := spec.Object.Container; nested != nil {
			nestedNode, err := c.compileContainer(nested, elem, false, childLevel, childPath, state)
			if err != nil {
				return nil, err
			}
			elemNode.Properties[nested.ContainerName] = nestedNode
		}

		if props := spec.Object.Properties; props != nil {
			propsNode, err := c.compileProperties(props, elem, childLevel, childPath, state)
			if err != nil {
				return nil, err
			}
			elemNode.Properties[props.PropertiesName] = propsNode
		}

		elemNode.Required = sortedKeys(elemNode.Properties)
		node.Properties[key] = elemNode
	}

	node.Required = sortedKeys(node.Properties)
	return node, nil
}

// compileProperties compiles the property definitions of one element into an
// object node of leaves keyed by the leaf property name.
func (c *Compiler) compileProperties(
	spec *ehrschema.Properties,
	elem map[string]any,
	levelKeys []string,
	docPath []string,
	state *compileState,
) (*ehrschema.CompiledNode, error) {
	node := &ehrschema.CompiledNode{
		Kind:       ehrschema.NodeObject,
		Properties: make(map[string]*ehrschema.CompiledNode),
		Required:   []string{},
	}

	raw, present := elem[spec.PropertiesName]
	if !present || raw == nil {
		return node, nil
	}
	items, ok := toAnySlice(raw)
	if !ok {
		return nil, ehrschema.NewSchemaShapeError(
			fmt.Sprintf("properties '%s' must be an array", spec.PropertiesName))
	}

	ps := spec.Property
	allowed := NewSet(ps.Validation.AllowedTypes...)
	ignored := NewSet(ps.Validation.IgnoredTypes...)
	propsPath := appendPath(docPath, spec.PropertiesName)
	leafLevel := appendPath(levelKeys, spec.PropertiesName)

	for i, item := range items {
		def, ok := toStringMap(item)
		if !ok {
			return nil, ehrschema.NewSchemaShapeError(
				fmt.Sprintf("properties '%s' element %d is not an object", spec.PropertiesName, i))
		}

		rawType := stringValue(def[ps.Type])
		if rawType == "" {
			return nil, ehrschema.NewSchemaShapeError(
				fmt.Sprintf("properties '%s' element %d missing type field '%s'", spec.PropertiesName, i, ps.Type))
		}
		if ignored.Contains(rawType) {
			continue
		}

		name := stringValue(def[ps.Name])
		if name == "" {
			return nil, ehrschema.NewSchemaShapeError(
				fmt.Sprintf("properties '%s' element %d missing name field '%s'", spec.PropertiesName, i, ps.Name))
		}
		key := stringValue(def[ps.Key])
		if key == "" {
			return nil, ehrschema.NewSchemaShapeError(
				fmt.Sprintf("property '%s' missing key field '%s'", name, ps.Key))
		}

		if !allowed.Contains(rawType) {
			return nil, ehrschema.NewUnknownTypeError(rawType, name)
		}
		constraint, ok := ps.Validation.TypeConstraints[rawType]
		if !ok {
			return nil, ehrschema.NewUnknownTypeError(rawType, name).
				WithDetail("reason", "no type constraint declared")
		}

		title := ""
		if ps.Title != "" {
			title = stringValue(def[ps.Title])
		}
		id := ""
		if ps.ID != "" {
			id = stringValue(def[ps.ID])
		}
		required := false
		if ps.Required != "" {
			required = boolValue(def[ps.Required])
		}

		options, err := c.extractOptions(rawType, constraint, ps, def, name)
		if err != nil {
			return nil, err
		}

		leafPath := appendPath(propsPath, name)

		// A registered builder overrides the intrinsic synthesis
		// unconditionally.
		if h := c.types.Handler(rawType); h.BuildSchema != nil {
			ctx := ehrschema.BuildContext{
				Key:         key,
				Name:        name,
				Title:       title,
				Required:    required,
				LevelKeys:   leafLevel,
				DocPath:     leafPath,
				RawType:     rawType,
				RawProperty: def,
				Constraint:  constraint,
				Options:     options,
				PairLimit:   c.limits.VirtualPairLimit,
			}
			child, metas, err := h.BuildSchema(ctx)
			if err != nil {
				return nil, ehrschema.NewSchemaShapeError(
					fmt.Sprintf("builder for type '%s' failed on property '%s'", rawType, name)).WithCause(err)
			}
			if child == nil {
				continue
			}
			node.Properties[name] = child
			state.fields = append(state.fields, metas...)
			continue
		}

		leaf, meta, err := buildIntrinsicLeaf(constraint.TargetType, leafSpec{
			key:       key,
			id:        id,
			name:      name,
			title:     title,
			rawType:   rawType,
			required:  required,
			levelKeys: leafLevel,
			docPath:   leafPath,
			options:   options,
		})
		if err != nil {
			return nil, err
		}
		node.Properties[name] = leaf
		state.fields = append(state.fields, meta)
	}

	node.Required = sortedKeys(node.Properties)
	return node, nil
}

func (c *Compiler) extractOptions(
	rawType string,
	constraint ehrschema.TypeConstraint,
	ps *ehrschema.PropertySpec,
	def map[string]any,
	name string,
) ([]ehrschema.Option, error) {
	if !constraint.RequiresOptions && !constraint.TargetType.IsSelect() {
		return nil, nil
	}

	optionsField := constraint.OptionsField
	if optionsField == "" {
		optionsField = ps.Options
	}
	if optionsField == "" {
		return nil, ehrschema.NewSchemaShapeError(
			fmt.Sprintf("property '%s' requires options but no options field is mapped", name))
	}

	raw := def[optionsField]
	var (
		options []ehrschema.Option
		err     error
	)
	if h := c.types.Handler(rawType); h.ExtractOptions != nil {
		options, err = h.ExtractOptions(raw)
	} else {
		options, err = defaultExtractOptions(raw)
	}
	if err != nil {
		return nil, ehrschema.NewSchemaShapeError(
			fmt.Sprintf("extracting options for property '%s'", name)).WithCause(err)
	}
	if len(options) == 0 && constraint.RequiresOptions {
		return nil, ehrschema.NewSchemaShapeError(
			fmt.Sprintf("property '%s' requires options but none were found", name))
	}
	return options, nil
}

type leafSpec struct {
	key       string
	id        string
	name      string
	title     string
	rawType   string
	required  bool
	levelKeys []string
	docPath   []string
	options   []ehrschema.Option
}

// buildIntrinsicLeaf synthesizes a leaf for an intrinsic target type.
func buildIntrinsicLeaf(target ehrschema.FieldType, spec leafSpec) (*ehrschema.CompiledNode, ehrschema.FieldMeta, error) {
	leaf := &ehrschema.CompiledNode{
		Kind:       ehrschema.NodeLeaf,
		TargetType: target,
	}

	switch target {
	case ehrschema.FieldTypeInstructions:
		leaf.Nullable = false
		leaf.Const = joinNonEmpty(spec.title, spec.name)
		leaf.HasConst = true
		leaf.Note = instructionsNote
	case ehrschema.FieldTypeBoolean:
		leaf.Nullable = false
	case ehrschema.FieldTypeSingleSelect, ehrschema.FieldTypeMultipleSelect:
		leaf.Nullable = true
		leaf.Enum = ehrschema.OptionLabels(spec.options)
	case ehrschema.FieldTypeString, ehrschema.FieldTypeDate, ehrschema.FieldTypeDateTime,
		ehrschema.FieldTypeNumber, ehrschema.FieldTypeCurrency, ehrschema.FieldTypePercent,
		ehrschema.FieldTypePositiveInteger, ehrschema.FieldTypePositiveNumber:
		leaf.Nullable = true
	default:
		return nil, ehrschema.FieldMeta{}, ehrschema.NewUnknownTypeError(string(target), spec.name).
			WithDetail("reason", "no intrinsic target type and no registered builder")
	}

	meta := ehrschema.FieldMeta{
		Key:        spec.key,
		ID:         spec.id,
		Name:       spec.name,
		Title:      spec.title,
		RawType:    spec.rawType,
		TargetType: target,
		Required:   spec.required,
		LevelKeys:  spec.levelKeys,
		DocPath:    spec.docPath,
		Options:    spec.options,
	}
	return leaf, meta, nil
}

// defaultExtractOptions handles the common raw option shapes: a list of
// strings (value == label) or a list of objects with "value"/"label" keys.
func defaultExtractOptions(raw any) ([]ehrschema.Option, error) {
	if raw == nil {
		return nil, nil
	}
	items, ok := toAnySlice(raw)
	if !ok {
		return nil, fmt.Errorf("unsupported options shape %T", raw)
	}
	options := make([]ehrschema.Option, 0, len(items))
	for i, item := range items {
		switch v := item.(type) {
		case string:
			options = append(options, ehrschema.Option{Value: v, Label: v})
		case map[string]any:
			value := stringValue(v["value"])
			label := stringValue(v["label"])
			if label == "" {
				label = value
			}
			if value == "" {
				value = label
			}
			if label == "" {
				return nil, fmt.Errorf("option %d has neither value nor label", i)
			}
			options = append(options, ehrschema.Option{Value: value, Label: label})
		default:
			return nil, fmt.Errorf("option %d has unsupported shape %T", i, item)
		}
	}
	return options, nil
}

func joinNonEmpty(parts ...string) string {
	out := ""
	for _, p := range parts {
		if p == "" {
			continue
		}
		if out != "" {
			out += "\n"
		}
		out += p
	}
	return out
}

func appendPath(base []string, parts ...string) []string {
	out := make([]string, 0, len(base)+len(parts))
	out = append(out, base...)
	out = append(out, parts...)
	return out
}

func stringValue(v any) string {
	switch s := v.(type) {
	case string:
		return s
	case fmt.Stringer:
		return s.String()
	default:
		return ""
	}
}

func intValue(v any) int {
	switch n := v.(type) {
	case int:
		return n
	case int64:
		return int(n)
	case float64:
		return int(n)
	case string:
		if i, err := strconv.Atoi(n); err == nil {
			return i
		}
	}
	return 0
}

func boolValue(v any) bool {
	switch b := v.(type) {
	case bool:
		return b
	case string:
		parsed, err := strconv.ParseBool(b)
		return err == nil && parsed
	case int:
		return b != 0
	case float64:
		return b != 0
	}
	return false
}

// toStringMap accepts the map shapes produced by encoding/json and yaml.v3.
func toStringMap(v any) (map[string]any, bool) {
	m, ok := v.(map[string]any)
	return m, ok
}

func toAnySlice(v any) ([]any, bool) {
	s, ok := v.([]any)
	return s, ok
}
