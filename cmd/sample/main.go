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

func main() {
	verbose := flag.Bool("verbose", false, "Enable verbose logging")
	showDoc := flag.Bool("doc", true, "Print the emitted schema document")
	configFile := flag.String("config", "", "Optional YAML config file with engine overrides")
	flag.Parse()

	cfg := zap.NewProductionConfig()
	cfg.Encoding = "console"
	if *verbose {
		cfg.Level = zap.NewAtomicLevelAt(zap.DebugLevel)
		cfg.Development = true
	}
	logger, err := cfg.Build()
	if err != nil {
		panic(fmt.Errorf("failed to build logger: %w", err))
	}
	defer logger.Sync()
	zap.ReplaceGlobals(logger)
	sugar := logger.Sugar()

	config := ehrschema.DefaultConfig()
	if *configFile != "" {
		raw, err := os.ReadFile(*configFile)
		if err != nil {
			sugar.Errorf("reading config file: %v", err)
			os.Exit(1)
		}
		if err := yaml.Unmarshal(raw, config); err != nil {
			sugar.Errorf("parsing config file: %v", err)
			os.Exit(1)
		}
	}

	engine, err := factory.NewEngine(assessmentMetaSchema(), config)
	if err != nil {
		sugar.Errorf("creating engine: %v", err)
		os.Exit(1)
	}

	// The vendor's one-to-many question type expands into boolean leaves.
	engine.Types().RegisterFieldSchemaBuilder("checkbox_group",
		ehrschema.NewVirtualContainerBuilder(ehrschema.VirtualContainerConfig{
			ChildrenField: "choices",
			ValueField:    "value",
			LabelField:    "label",
			PairLimit:     3,
		}))

	id, name, err := engine.RegisterTable(0, sampleAssessment())
	if err != nil {
		sugar.Errorf("registering assessment: %v", err)
		os.Exit(1)
	}
	sugar.Infow("assessment registered", "table", name, "id", id)

	if *showDoc {
		doc, err := engine.GetJSONSchema(name)
		if err != nil {
			sugar.Errorf("fetching schema document: %v", err)
			os.Exit(1)
		}
		pretty, _ := json.MarshalIndent(doc, "", "  ")
		fmt.Printf("\n--- emitted schema document ---\n%s\n", pretty)
	}

	model := sampleModelResponse()
	ok, messages, err := engine.Validate(name, model)
	if err != nil {
		sugar.Errorf("structural validation: %v", err)
		os.Exit(1)
	}
	fmt.Printf("\n--- structural validation ---\nvalid: %v\n", ok)
	for _, msg := range messages {
		fmt.Printf("  - %s\n", msg)
	}

	rec := ehrschema.NewRecord(name, sampleFlatRecord())
	ok, messages, coerced, err := engine.ValidateRecord(rec, false)
	if err != nil {
		sugar.Errorf("semantic validation: %v", err)
		os.Exit(1)
	}
	fmt.Printf("\n--- semantic validation ---\nvalid: %v\n", ok)
	for _, msg := range messages {
		fmt.Printf("  - %s\n", msg)
	}
	prettyCoerced, _ := json.MarshalIndent(coerced, "", "  ")
	fmt.Printf("coerced:\n%s\n", prettyCoerced)

	formatted, err := engine.FormatBack(name, model)
	if err != nil {
		sugar.Errorf("reverse formatting: %v", err)
		os.Exit(1)
	}
	prettyFormatted, _ := json.MarshalIndent(formatted, "", "  ")
	fmt.Printf("\n--- reverse-formatted record ---\n%s\n", prettyFormatted)
}
