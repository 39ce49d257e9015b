package ehrschema

import (
	"github.com/google/uuid"
)

// FieldType is the compiled target type of a leaf field.
type FieldType string

const (
	FieldTypeString           FieldType = "string"
	FieldTypeDate             FieldType = "date"
	FieldTypeDateTime         FieldType = "datetime"
	FieldTypeBoolean          FieldType = "boolean"
	FieldTypeSingleSelect     FieldType = "single_select"
	FieldTypeMultipleSelect   FieldType = "multiple_select"
	FieldTypePositiveInteger  FieldType = "positive_integer"
	FieldTypePositiveNumber   FieldType = "positive_number"
	FieldTypeNumber           FieldType = "number"
	FieldTypeCurrency         FieldType = "currency"
	FieldTypePercent          FieldType = "percent"
	FieldTypeInstructions     FieldType = "instructions"
	FieldTypeVirtualContainer FieldType = "virtual_container"
)

// IsNumeric reports whether the field type coerces to a number.
func (t FieldType) IsNumeric() bool {
	switch t {
	case FieldTypeNumber, FieldTypeCurrency, FieldTypePercent,
		FieldTypePositiveInteger, FieldTypePositiveNumber:
		return true
	}
	return false
}

// IsSelect reports whether the field type carries an option list.
func (t FieldType) IsSelect() bool {
	return t == FieldTypeSingleSelect || t == FieldTypeMultipleSelect
}

// MetaSchema is the fixed grammar describing how a concrete form schema is
// shaped. Field values name keys in the source data, not the data itself.
// Loaded once per domain and immutable afterwards.
type MetaSchema struct {
	NameField    string     `json:"name_field" yaml:"name_field"`
	IDField      string     `json:"id_field,omitempty" yaml:"id_field,omitempty"`
	VersionField string     `json:"version_field,omitempty" yaml:"version_field,omitempty"`
	Container    *Container `json:"container" yaml:"container"`
}

// Container describes a recursively nested array of objects in the source data.
type Container struct {
	ContainerName string      `json:"container_name" yaml:"container_name"`
	ContainerType string      `json:"container_type" yaml:"container_type"`
	Object        *ObjectSpec `json:"object" yaml:"object"`
}

// ObjectSpec describes one element of a container: which source keys carry its
// label, discriminator and title, plus an optional nested container and an
// optional properties block.
type ObjectSpec struct {
	Name       string      `json:"name" yaml:"name"`
	Key        string      `json:"key" yaml:"key"`
	Title      string      `json:"title,omitempty" yaml:"title,omitempty"`
	Container  *Container  `json:"container,omitempty" yaml:"container,omitempty"`
	Properties *Properties `json:"properties,omitempty" yaml:"properties,omitempty"`
}

// Properties names the source collection of property definitions and how each
// definition maps to a leaf field.
type Properties struct {
	PropertiesName string        `json:"properties_name" yaml:"properties_name"`
	Property       *PropertySpec `json:"property" yaml:"property"`
}

// PropertySpec declares which source keys of a property definition map to the
// leaf's key, id, name, title, raw type, options and required flag. Required
// is optional; when empty every field is treated as optional.
type PropertySpec struct {
	Key        string          `json:"key" yaml:"key"`
	ID         string          `json:"id,omitempty" yaml:"id,omitempty"`
	Name       string          `json:"name" yaml:"name"`
	Title      string          `json:"title,omitempty" yaml:"title,omitempty"`
	Type       string          `json:"type" yaml:"type"`
	Options    string          `json:"options,omitempty" yaml:"options,omitempty"`
	Required   string          `json:"required,omitempty" yaml:"required,omitempty"`
	Validation *ValidationSpec `json:"validation" yaml:"validation"`
}

// ValidationSpec is the per-domain type-constraint table.
type ValidationSpec struct {
	AllowedTypes    []string                  `json:"allowed_types" yaml:"allowed_types"`
	IgnoredTypes    []string                  `json:"ignored_types,omitempty" yaml:"ignored_types,omitempty"`
	TypeConstraints map[string]TypeConstraint `json:"type_constraints" yaml:"type_constraints"`
}

// TypeConstraint maps a raw source type tag onto a compiled target type.
type TypeConstraint struct {
	TargetType       FieldType `json:"target_type" yaml:"target_type"`
	RequiresOptions  bool      `json:"requires_options,omitempty" yaml:"requires_options,omitempty"`
	OptionsField     string    `json:"options_field,omitempty" yaml:"options_field,omitempty"`
	OptionsExtractor string    `json:"options_extractor,omitempty" yaml:"options_extractor,omitempty"`
}

// Option is one selectable choice. Label is what the emitted document exposes
// as an enum member; Value is the original domain discriminant resolved back
// during reverse formatting.
type Option struct {
	Value string `json:"value"`
	Label string `json:"label"`
}

// OptionLabels returns the labels of the options, in declared order.
func OptionLabels(options []Option) []string {
	labels := make([]string, len(options))
	for i, opt := range options {
		labels[i] = opt.Label
	}
	return labels
}

// TableSchema is one registered form-schema instance. Raw holds the concrete
// source data matching the meta-schema layout, parsed once at registration.
type TableSchema struct {
	ID      int16          `json:"id"`
	Name    string         `json:"name"`
	Version int            `json:"version,omitempty"`
	Raw     map[string]any `json:"raw"`
}

// NodeKind discriminates the CompiledNode variants.
type NodeKind string

const (
	NodeObject  NodeKind = "object"
	NodeLeaf    NodeKind = "leaf"
	NodeVirtual NodeKind = "virtual"
)

// CompiledNode is one node of the compiled schema tree. A single struct with a
// Kind discriminator: object nodes use Properties/Required, leaves use the
// target-type fields, virtual containers use Children/ChildMeta.
type CompiledNode struct {
	Kind NodeKind

	// Object
	Properties map[string]*CompiledNode
	Required   []string

	// Leaf
	TargetType FieldType
	Nullable   bool
	Enum       []string
	Const      string
	HasConst   bool
	Note       string

	// Virtual container
	Children  map[string]*CompiledNode
	ChildMeta []VirtualChild
	PairLimit int
}

// VirtualChild records one labeled sub-choice of a virtual container in its
// original declared order.
type VirtualChild struct {
	Name        string
	Index       int
	SourceValue string
}

// FieldMeta is one entry of the flat field metadata index, one per leaf
// including virtual-container children. LevelKeys is the ordered sequence of
// discriminator keys traversed from root to leaf; DocPath is the full key path
// of the leaf inside the emitted document.
type FieldMeta struct {
	Key             string    `json:"key"`
	ID              string    `json:"id,omitempty"`
	Name            string    `json:"name"`
	Title           string    `json:"title,omitempty"`
	RawType         string    `json:"raw_type"`
	TargetType      FieldType `json:"target_type"`
	Required        bool      `json:"required"`
	LevelKeys       []string  `json:"level_keys"`
	DocPath         []string  `json:"doc_path"`
	IsVirtualChild  bool      `json:"is_virtual_child,omitempty"`
	IsVirtualParent bool      `json:"is_virtual_parent,omitempty"`
	VirtualParent   string    `json:"virtual_parent_key,omitempty"`
	SourceValue     string    `json:"source_value,omitempty"`
	PairLimit       int       `json:"pair_limit,omitempty"`
	Options         []Option  `json:"response_options,omitempty"`
}

// CompiledTable bundles the immutable artifacts derived once at registration.
type CompiledTable struct {
	Schema    *TableSchema
	NameField string
	Root      *CompiledNode
	Fields    []FieldMeta
	Document  SchemaDocument
}

// SchemaDocument is the emitted strict structural schema. Marshaling through
// encoding/json sorts object keys, so equal inputs produce byte-identical
// documents.
type SchemaDocument map[string]any

// Record carries one candidate record through semantic validation.
type Record struct {
	SchemaName string         `json:"schemaName"`
	RowID      uuid.UUID      `json:"rowId"`
	Fields     map[string]any `json:"fields"`
}

// NewRecord builds a record with a fresh time-ordered row id.
func NewRecord(schemaName string, fields map[string]any) *Record {
	return &Record{
		SchemaName: schemaName,
		RowID:      uuid.Must(uuid.NewV7()),
		Fields:     fields,
	}
}

// Validate checks the meta-schema grammar for the structural keys the
// interpreter depends on.
func (m *MetaSchema) Validate() error {
	if m == nil {
		return NewSchemaShapeError("meta schema is nil")
	}
	if m.NameField == "" {
		return NewSchemaShapeError("meta schema missing 'name_field'")
	}
	if m.Container == nil {
		return NewSchemaShapeError("meta schema missing 'container'")
	}
	return m.Container.validate()
}

func (c *Container) validate() error {
	if c.ContainerName == "" {
		return NewSchemaShapeError("container missing 'container_name'")
	}
	if c.ContainerType != "array" {
		return NewSchemaShapeError("container '" + c.ContainerName + "' must have container_type 'array'")
	}
	if c.Object == nil {
		return NewSchemaShapeError("container '" + c.ContainerName + "' missing 'object'")
	}
	if c.Object.Key == "" {
		return NewSchemaShapeError("container '" + c.ContainerName + "' object missing 'key'")
	}
	if c.Object.Container != nil {
		if err := c.Object.Container.validate(); err != nil {
			return err
		}
	}
	if p := c.Object.Properties; p != nil {
		if p.PropertiesName == "" {
			return NewSchemaShapeError("properties block under '" + c.ContainerName + "' missing 'properties_name'")
		}
		if p.Property == nil {
			return NewSchemaShapeError("properties block '" + p.PropertiesName + "' missing 'property'")
		}
		if p.Property.Name == "" || p.Property.Key == "" || p.Property.Type == "" {
			return NewSchemaShapeError("property spec under '" + p.PropertiesName + "' must map 'key', 'name' and 'type'")
		}
		if p.Property.Validation == nil || len(p.Property.Validation.AllowedTypes) == 0 {
			return NewSchemaShapeError("property spec under '" + p.PropertiesName + "' missing validation.allowed_types")
		}
	}
	return nil
}
