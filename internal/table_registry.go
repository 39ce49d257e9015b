package internal

import (
	"encoding/json"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/jsonschema-go/jsonschema"
	"go.uber.org/zap"

	ehrschema "github.com/speakcare/spkc-ehr-schema-sub002"
)

// tableEntry bundles the immutable artifacts published for one table.
type tableEntry struct {
	table *ehrschema.CompiledTable
	index *ehrschema.FieldIndex
}

// SchemaEngine is the in-memory table registry behind the Engine facade.
// Registration is serialized under one mutex; lookups run concurrently
// against published entries, which never mutate after registration.
type SchemaEngine struct {
	meta   *ehrschema.MetaSchema
	config *ehrschema.Config
	types  *ehrschema.TypeRegistry

	mu       sync.RWMutex
	tables   map[int16]*tableEntry
	nameToID map[string]int16
	nextID   int16
}

var _ ehrschema.Engine = (*SchemaEngine)(nil)

// NewSchemaEngine creates an empty registry over a validated meta-schema.
func NewSchemaEngine(meta *ehrschema.MetaSchema, config *ehrschema.Config, types *ehrschema.TypeRegistry) *SchemaEngine {
	return &SchemaEngine{
		meta:     meta,
		config:   config,
		types:    types,
		tables:   make(map[int16]*tableEntry),
		nameToID: make(map[string]int16),
		nextID:   config.Limits.FirstAutoID,
	}
}

// RegisterTable compiles the form schema, emits its document, self-checks the
// document against a real JSON-schema resolver and publishes the artifacts.
// Any failure leaves the registry untouched.
func (e *SchemaEngine) RegisterTable(id int16, data map[string]any) (int16, string, error) {
	start := time.Now()

	compiler := NewCompiler(e.meta, e.types, e.config.Limits)
	table, err := compiler.Compile(data)
	if err != nil {
		return 0, "", err
	}
	table.Document = EmitDocument(table)
	if err := selfCheckDocument(table.Schema.Name, table.Document); err != nil {
		return 0, "", err
	}

	entry := &tableEntry{
		table: table,
		index: ehrschema.NewFieldIndex(table.Fields),
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	if _, exists := e.nameToID[table.Schema.Name]; exists {
		return 0, "", ehrschema.NewDuplicateNameError(table.Schema.Name)
	}
	if id != 0 {
		if _, exists := e.tables[id]; exists {
			return 0, "", ehrschema.NewDuplicateIDError(id)
		}
	} else {
		id = e.allocateID()
	}
	table.Schema.ID = id
	e.tables[id] = entry
	e.nameToID[table.Schema.Name] = id

	EmitCompileLatency(table.Schema.Name, time.Since(start).Milliseconds())
	zap.S().Infow("registered table",
		"table", table.Schema.Name,
		"id", id,
		"version", table.Schema.Version,
		"fields", len(table.Fields))
	return id, table.Schema.Name, nil
}

// allocateID hands out the next free id at or above FirstAutoID. Caller holds
// the write lock.
func (e *SchemaEngine) allocateID() int16 {
	if e.nextID < e.config.Limits.FirstAutoID {
		e.nextID = e.config.Limits.FirstAutoID
	}
	for {
		id := e.nextID
		e.nextID++
		if _, exists := e.tables[id]; !exists {
			return id
		}
	}
}

// GetJSONSchema returns a deep copy of the emitted document by table name.
func (e *SchemaEngine) GetJSONSchema(name string) (ehrschema.SchemaDocument, error) {
	entry, err := e.entryByName(name)
	if err != nil {
		return nil, err
	}
	return copyDocument(entry.table.Document), nil
}

// GetJSONSchemaByID returns a deep copy of the emitted document by table id.
func (e *SchemaEngine) GetJSONSchemaByID(id int16) (ehrschema.SchemaDocument, error) {
	entry, err := e.entryByID(id)
	if err != nil {
		return nil, err
	}
	return copyDocument(entry.table.Document), nil
}

// GetFieldMetadata returns the flat field metadata list by table name.
func (e *SchemaEngine) GetFieldMetadata(name string) ([]ehrschema.FieldMeta, error) {
	entry, err := e.entryByName(name)
	if err != nil {
		return nil, err
	}
	return entry.index.Fields(), nil
}

// GetFieldMetadataByID returns the flat field metadata list by table id.
func (e *SchemaEngine) GetFieldMetadataByID(id int16) ([]ehrschema.FieldMeta, error) {
	entry, err := e.entryByID(id)
	if err != nil {
		return nil, err
	}
	return entry.index.Fields(), nil
}

// Validate checks a record against the emitted document's structural rules.
func (e *SchemaEngine) Validate(name string, record map[string]any) (bool, []string, error) {
	entry, err := e.entryByName(name)
	if err != nil {
		return false, nil, err
	}
	return e.validateEntry(entry, record)
}

// ValidateByID is Validate addressed by table id.
func (e *SchemaEngine) ValidateByID(id int16, record map[string]any) (bool, []string, error) {
	entry, err := e.entryByID(id)
	if err != nil {
		return false, nil, err
	}
	return e.validateEntry(entry, record)
}

func (e *SchemaEngine) validateEntry(entry *tableEntry, record map[string]any) (bool, []string, error) {
	ok, messages := NewStructuralValidator(entry.table).Validate(record)
	EmitValidationMessages(entry.table.Schema.Name, "structural", int64(len(messages)))
	return ok, messages, nil
}

// ValidateRecord performs semantic per-field coercion on a flat record.
func (e *SchemaEngine) ValidateRecord(rec *ehrschema.Record, partial bool) (bool, []string, map[string]any, error) {
	if rec == nil {
		return false, nil, nil, ehrschema.NewInternalError("nil record", nil)
	}
	entry, err := e.entryByName(rec.SchemaName)
	if err != nil {
		return false, nil, nil, err
	}
	ok, messages, coerced := e.validateRecordEntry(entry, rec.Fields, partial)
	return ok, messages, coerced, nil
}

// ValidateRecordByID is ValidateRecord addressed by table id, over the flat
// field values directly.
func (e *SchemaEngine) ValidateRecordByID(id int16, fields map[string]any, partial bool) (bool, []string, map[string]any, error) {
	entry, err := e.entryByID(id)
	if err != nil {
		return false, nil, nil, err
	}
	ok, messages, coerced := e.validateRecordEntry(entry, fields, partial)
	return ok, messages, coerced, nil
}

func (e *SchemaEngine) validateRecordEntry(entry *tableEntry, fields map[string]any, partial bool) (bool, []string, map[string]any) {
	var messages []string
	ok, coerced := NewRecordValidator(entry.index).ValidateRecord(fields, &messages, partial)
	EmitValidationMessages(entry.table.Schema.Name, "semantic", int64(len(messages)))
	return ok, messages, coerced
}

// FormatBack maps a filled model response back to the source record shape.
func (e *SchemaEngine) FormatBack(name string, model map[string]any) (map[string]any, error) {
	entry, err := e.entryByName(name)
	if err != nil {
		return nil, err
	}
	return NewReverseMapper(entry.index, e.types).FormatRecord(model)
}

// FormatBackByID is FormatBack addressed by table id.
func (e *SchemaEngine) FormatBackByID(id int16, model map[string]any) (map[string]any, error) {
	entry, err := e.entryByID(id)
	if err != nil {
		return nil, err
	}
	return NewReverseMapper(entry.index, e.types).FormatRecord(model)
}

// ListTables returns the registered table ids in ascending order.
func (e *SchemaEngine) ListTables() []int16 {
	e.mu.RLock()
	defer e.mu.RUnlock()
	ids := make([]int16, 0, len(e.tables))
	for id := range e.tables {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}

// Types exposes the engine-owned type registry.
func (e *SchemaEngine) Types() *ehrschema.TypeRegistry {
	return e.types
}

func (e *SchemaEngine) entryByName(name string) (*tableEntry, error) {
	e.mu.RLock()
	defer e.mu.RUnlock()
	id, ok := e.nameToID[name]
	if !ok {
		return nil, ehrschema.NewTableNotFoundError(name)
	}
	return e.tables[id], nil
}

func (e *SchemaEngine) entryByID(id int16) (*tableEntry, error) {
	e.mu.RLock()
	defer e.mu.RUnlock()
	entry, ok := e.tables[id]
	if !ok {
		return nil, ehrschema.NewTableNotFoundError(fmt.Sprintf("%d", id))
	}
	return entry, nil
}

// selfCheckDocument round-trips the emitted document through a real JSON
// schema resolver so a malformed emission fails registration instead of the
// first consumer call.
func selfCheckDocument(name string, doc ehrschema.SchemaDocument) error {
	raw, err := json.Marshal(doc)
	if err != nil {
		return ehrschema.NewInternalError("marshaling emitted document", err).WithTable(name)
	}
	var schema jsonschema.Schema
	if err := json.Unmarshal(raw, &schema); err != nil {
		return documentInvalid(name, err)
	}
	if _, err := schema.Resolve(&jsonschema.ResolveOptions{}); err != nil {
		return documentInvalid(name, err)
	}
	return nil
}

func documentInvalid(name string, cause error) *ehrschema.SchemaError {
	e := &ehrschema.SchemaError{
		Type:    ehrschema.ErrorTypeShape,
		Code:    ehrschema.ErrCodeDocumentInvalid,
		Message: "emitted document is not a resolvable JSON schema",
		Table:   name,
	}
	return e.WithCause(cause)
}

func copyDocument(doc ehrschema.SchemaDocument) ehrschema.SchemaDocument {
	copied := deepCopyValue(map[string]any(doc))
	return ehrschema.SchemaDocument(copied.(map[string]any))
}
