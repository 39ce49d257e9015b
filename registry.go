package ehrschema

// BuildContext carries everything a custom schema builder needs to produce a
// compiled node for one property definition.
type BuildContext struct {
	Key         string
	Name        string
	Title       string
	Required    bool
	LevelKeys   []string
	DocPath     []string
	RawType     string
	RawProperty map[string]any
	Constraint  TypeConstraint
	Options     []Option
	PairLimit   int
}

// SchemaBuilder produces a compiled node plus the field metadata entries it
// contributes. Registering a builder for a raw tag overrides the intrinsic
// target-type synthesis for that tag unconditionally.
type SchemaBuilder func(ctx BuildContext) (*CompiledNode, []FieldMeta, error)

// OptionsExtractor converts the raw source options value into the canonical
// option list. When none is registered for a tag, the raw options list is
// used verbatim (value == label).
type OptionsExtractor func(raw any) ([]Option, error)

// ReverseFormatter maps a filled model value for one leaf back to the original
// domain record shape. The index gives access to sibling metadata, which
// virtual containers use to locate their children.
type ReverseFormatter func(meta FieldMeta, index *FieldIndex, value any) (map[string]any, error)

// TypeHandler bundles the per-tag extension functions. Any of the three may be
// nil, in which case the engine's defaults apply.
type TypeHandler struct {
	BuildSchema    SchemaBuilder
	ExtractOptions OptionsExtractor
	FormatReverse  ReverseFormatter
}

// TypeRegistry holds per raw-type-tag extension functions. One registry is
// owned by one engine instance; it is configured at process start before any
// table registration, so re-registering a tag overwrites silently.
type TypeRegistry struct {
	handlers map[string]TypeHandler
}

// NewTypeRegistry creates an empty type registry.
func NewTypeRegistry() *TypeRegistry {
	return &TypeRegistry{handlers: make(map[string]TypeHandler)}
}

// RegisterFieldSchemaBuilder installs a custom schema builder for a raw tag.
func (r *TypeRegistry) RegisterFieldSchemaBuilder(rawType string, fn SchemaBuilder) {
	h := r.handlers[rawType]
	h.BuildSchema = fn
	r.handlers[rawType] = h
}

// RegisterOptionsExtractor installs a custom options extractor for a raw tag.
func (r *TypeRegistry) RegisterOptionsExtractor(rawType string, fn OptionsExtractor) {
	h := r.handlers[rawType]
	h.ExtractOptions = fn
	r.handlers[rawType] = h
}

// RegisterReverseFormatter installs a custom reverse formatter for a raw tag.
func (r *TypeRegistry) RegisterReverseFormatter(rawType string, fn ReverseFormatter) {
	h := r.handlers[rawType]
	h.FormatReverse = fn
	r.handlers[rawType] = h
}

// Handler returns the handler registered for a raw tag. Unknown tags return a
// zero handler so callers degrade to the defaults instead of failing.
func (r *TypeRegistry) Handler(rawType string) TypeHandler {
	return r.handlers[rawType]
}
