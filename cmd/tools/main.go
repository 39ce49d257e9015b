package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"os"

	"go.uber.org/zap"
	"gopkg.in/yaml.v3"

	ehrschema "github.com/speakcare/spkc-ehr-schema-sub002"
	"github.com/speakcare/spkc-ehr-schema-sub002/factory"
)

// Compiles a form schema against a meta-schema file and prints the emitted
// document or the flat field metadata, for inspecting vendor exports without
// standing up a host process.
func main() {
	metaFile := flag.String("meta", "", "Path to the meta-schema file (JSON or YAML, required)")
	schemaFile := flag.String("schema", "", "Path to the form-schema file (JSON or YAML, required)")
	output := flag.String("out", "doc", "What to print: 'doc' or 'metadata'")
	flag.Parse()

	logger, err := zap.NewProduction()
	if err != nil {
		panic(fmt.Errorf("failed to build logger: %w", err))
	}
	defer logger.Sync()
	zap.ReplaceGlobals(logger)
	sugar := logger.Sugar()

	if *metaFile == "" || *schemaFile == "" {
		sugar.Error("both -meta and -schema are required")
		flag.Usage()
		os.Exit(1)
	}

	meta, err := loadMetaSchema(*metaFile)
	if err != nil {
		sugar.Errorf("loading meta-schema: %v", err)
		os.Exit(1)
	}
	data, err := loadFormSchema(*schemaFile)
	if err != nil {
		sugar.Errorf("loading form schema: %v", err)
		os.Exit(1)
	}

	engine, err := factory.NewEngine(meta, ehrschema.DefaultConfig())
	if err != nil {
		sugar.Errorf("creating engine: %v", err)
		os.Exit(1)
	}
	_, name, err := engine.RegisterTable(0, data)
	if err != nil {
		sugar.Errorf("registering schema: %v", err)
		os.Exit(1)
	}

	switch *output {
	case "doc":
		doc, err := engine.GetJSONSchema(name)
		if err != nil {
			sugar.Errorf("fetching schema document: %v", err)
			os.Exit(1)
		}
		printJSON(doc)
	case "metadata":
		fields, err := engine.GetFieldMetadata(name)
		if err != nil {
			sugar.Errorf("fetching field metadata: %v", err)
			os.Exit(1)
		}
		printJSON(fields)
	default:
		sugar.Errorf("unknown -out value '%s'", *output)
		os.Exit(1)
	}
}

func loadMetaSchema(path string) (*ehrschema.MetaSchema, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var meta ehrschema.MetaSchema
	if err := yaml.Unmarshal(raw, &meta); err != nil {
		return nil, fmt.Errorf("parsing '%s': %w", path, err)
	}
	return &meta, nil
}

func loadFormSchema(path string) (map[string]any, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var data map[string]any
	if err := yaml.Unmarshal(raw, &data); err != nil {
		return nil, fmt.Errorf("parsing '%s': %w", path, err)
	}
	return data, nil
}

func printJSON(v any) {
	pretty, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		zap.S().Errorf("encoding output: %v", err)
		os.Exit(1)
	}
	fmt.Println(string(pretty))
}
