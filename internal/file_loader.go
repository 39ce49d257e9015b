package internal

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"go.uber.org/zap"
	"gopkg.in/yaml.v3"

	ehrschema "github.com/speakcare/spkc-ehr-schema-sub002"
)

// RegisterDirectory loads every *.json, *.yaml and *.yml file from a
// directory in sorted name order and registers each as a table with an
// allocated id. YAML parsing covers both formats. The first failure stops
// the load; tables registered before it stay registered, and their names are
// returned alongside the error.
func (e *SchemaEngine) RegisterDirectory(dir string) ([]string, error) {
	if dir == "" {
		dir = e.config.Loader.SchemaDirectory
	}
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, ehrschema.NewInternalError(fmt.Sprintf("reading schema directory '%s'", dir), err)
	}

	var files []string
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		switch strings.ToLower(filepath.Ext(entry.Name())) {
		case ".json", ".yaml", ".yml":
			files = append(files, entry.Name())
		}
	}
	sort.Strings(files)

	limit := e.config.Limits.MaxTablesPerLoad
	var names []string
	for _, file := range files {
		if limit > 0 && len(names) >= limit {
			zap.S().Warnw("schema load cap reached, skipping remaining files",
				"dir", dir, "cap", limit, "loaded", len(names))
			break
		}
		raw, err := os.ReadFile(filepath.Join(dir, file))
		if err != nil {
			return names, ehrschema.NewInternalError(fmt.Sprintf("reading schema file '%s'", file), err)
		}
		var data map[string]any
		if err := yaml.Unmarshal(raw, &data); err != nil {
			return names, ehrschema.NewSchemaShapeError(
				fmt.Sprintf("parsing schema file '%s'", file)).WithCause(err)
		}
		_, name, err := e.RegisterTable(0, data)
		if err != nil {
			return names, err
		}
		names = append(names, name)
	}
	return names, nil
}
