package ehrschema

// Engine is the facade over schema registration, document emission, record
// validation and reverse formatting. Registration is in-memory for the life
// of the process; compiled artifacts are immutable once published.
type Engine interface {
	// RegisterTable compiles and registers one form-schema instance. A zero id
	// asks the engine to allocate one. Registration either fully succeeds or
	// fails with no visible registry mutation.
	RegisterTable(id int16, data map[string]any) (int16, string, error)

	// RegisterDirectory loads every form-schema file (*.json, *.yaml, *.yml)
	// from a directory in sorted order and registers each with an allocated
	// id. Returns the registered table names.
	RegisterDirectory(dir string) ([]string, error)

	// GetJSONSchema returns the emitted schema document by table name.
	GetJSONSchema(name string) (SchemaDocument, error)
	// GetJSONSchemaByID returns the emitted schema document by table id.
	GetJSONSchemaByID(id int16) (SchemaDocument, error)

	// GetFieldMetadata returns the flat field metadata index by table name.
	GetFieldMetadata(name string) ([]FieldMeta, error)
	// GetFieldMetadataByID returns the flat field metadata index by table id.
	GetFieldMetadataByID(id int16) ([]FieldMeta, error)

	// Validate checks a record against the emitted document's structural
	// rules, one message per violation.
	Validate(name string, record map[string]any) (bool, []string, error)
	// ValidateByID is Validate addressed by table id.
	ValidateByID(id int16, record map[string]any) (bool, []string, error)

	// ValidateRecord performs semantic per-field coercion on a flat record.
	// With partial set, missing required fields are not reported. Returns
	// overall validity, the accumulated messages and the coerced values.
	ValidateRecord(rec *Record, partial bool) (bool, []string, map[string]any, error)
	// ValidateRecordByID is ValidateRecord addressed by table id, over the
	// flat field values directly.
	ValidateRecordByID(id int16, fields map[string]any, partial bool) (bool, []string, map[string]any, error)

	// FormatBack maps a filled, schema-conformant model response back to the
	// original domain record shape.
	FormatBack(name string, model map[string]any) (map[string]any, error)
	// FormatBackByID is FormatBack addressed by table id.
	FormatBackByID(id int16, model map[string]any) (map[string]any, error)

	// ListTables returns the registered table ids in ascending order.
	ListTables() []int16

	// Types exposes the engine-owned type registry for extension wiring.
	Types() *TypeRegistry
}
