package ehrschema

// Config consolidates engine settings.
type Config struct {
	Limits  LimitsConfig  `json:"limits" yaml:"limits"`
	Loader  LoaderConfig  `json:"loader" yaml:"loader"`
	Logging LoggingConfig `json:"logging" yaml:"logging"`
}

// LimitsConfig bounds compiled artifacts.
type LimitsConfig struct {
	// VirtualPairLimit is the default cutoff for virtual container expansion
	// when a builder does not declare its own.
	VirtualPairLimit int `json:"virtualPairLimit" yaml:"virtualPairLimit"`
	// FirstAutoID is the first table id handed out when registration does not
	// supply one.
	FirstAutoID int16 `json:"firstAutoId" yaml:"firstAutoId"`
	// MaxTablesPerLoad caps how many schema files one directory load may
	// register. Zero means unlimited.
	MaxTablesPerLoad int `json:"maxTablesPerLoad" yaml:"maxTablesPerLoad"`
}

// LoaderConfig controls directory-based schema loading.
type LoaderConfig struct {
	SchemaDirectory string `json:"schemaDirectory" yaml:"schemaDirectory"`
}

// LoggingConfig contains logging settings for binaries.
type LoggingConfig struct {
	Level    string `json:"level" yaml:"level"`
	Encoding string `json:"encoding" yaml:"encoding"`
}

// DefaultConfig returns the engine defaults.
func DefaultConfig() *Config {
	return &Config{
		Limits: LimitsConfig{
			VirtualPairLimit: 20,
			FirstAutoID:      100,
		},
		Logging: LoggingConfig{
			Level:    "info",
			Encoding: "console",
		},
	}
}
