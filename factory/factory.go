package factory

import (
	"fmt"

	ehrschema "github.com/speakcare/spkc-ehr-schema-sub002"
	"github.com/speakcare/spkc-ehr-schema-sub002/internal"
)

// NewEngine creates a schema engine over a validated meta-schema. This is the
// primary way for external projects to construct an Engine instance.
//
// Usage:
//
//	import (
//	    ehrschema "github.com/speakcare/spkc-ehr-schema-sub002"
//	    "github.com/speakcare/spkc-ehr-schema-sub002/factory"
//	)
//
//	config := ehrschema.DefaultConfig()
//	engine, err := factory.NewEngine(meta, config)
//	if err != nil {
//	    // handle error
//	}
//	engine.Types().RegisterOptionsExtractor("dropdown", myExtractor)
//	id, name, err := engine.RegisterTable(0, formSchema)
func NewEngine(meta *ehrschema.MetaSchema, config *ehrschema.Config) (ehrschema.Engine, error) {
	if meta == nil {
		return nil, fmt.Errorf("meta-schema is required")
	}
	if err := meta.Validate(); err != nil {
		return nil, fmt.Errorf("invalid meta-schema: %w", err)
	}
	if config == nil {
		config = ehrschema.DefaultConfig()
	}
	if config.Limits.FirstAutoID <= 0 {
		config.Limits.FirstAutoID = ehrschema.DefaultConfig().Limits.FirstAutoID
	}
	if config.Limits.VirtualPairLimit <= 0 {
		config.Limits.VirtualPairLimit = ehrschema.DefaultConfig().Limits.VirtualPairLimit
	}

	types := ehrschema.NewTypeRegistry()
	return internal.NewSchemaEngine(meta, config, types), nil
}

// NewEngineWithTypes creates an engine with a caller-prepared type registry,
// for hosts that configure extension functions before construction.
func NewEngineWithTypes(meta *ehrschema.MetaSchema, config *ehrschema.Config, types *ehrschema.TypeRegistry) (ehrschema.Engine, error) {
	if types == nil {
		return NewEngine(meta, config)
	}
	if meta == nil {
		return nil, fmt.Errorf("meta-schema is required")
	}
	if err := meta.Validate(); err != nil {
		return nil, fmt.Errorf("invalid meta-schema: %w", err)
	}
	if config == nil {
		config = ehrschema.DefaultConfig()
	}
	return internal.NewSchemaEngine(meta, config, types), nil
}
