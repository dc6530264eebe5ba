package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"pastemd/pkg/errors"

	"gopkg.in/yaml.v3"
)

const (
	DefaultRetryCount     = 3
	DefaultRetryDelay     = 300 * time.Millisecond
	DefaultRestoreDelay   = 250 * time.Millisecond
	DefaultScriptTimeout  = 30 * time.Second
	DefaultConvertTimeout = 60 * time.Second
)

// Targets accepted by the `target` setting. "auto" means detect the focused
// application.
var validTargets = map[string]bool{
	"auto": true, "word": true, "wps": true, "excel": true, "wps_excel": true,
	"onenote": true, "powerpoint": true, "md": true, "rich": true, "file": true, "none": true,
}

var validNoAppActions = map[string]bool{"open": true, "save": true, "none": true}

// Duration is a time.Duration that reads and writes as "300ms" style strings.
type Duration time.Duration

func (d Duration) Std() time.Duration { return time.Duration(d) }

func (d Duration) MarshalYAML() (interface{}, error) {
	return time.Duration(d).String(), nil
}

func (d *Duration) UnmarshalYAML(node *yaml.Node) error {
	var s string
	if err := node.Decode(&s); err != nil {
		return err
	}
	parsed, err := time.ParseDuration(s)
	if err != nil {
		return fmt.Errorf("invalid duration %q: %w", s, err)
	}
	*d = Duration(parsed)
	return nil
}

type HistoryConfig struct {
	Enabled bool   `yaml:"enabled"`
	Path    string `yaml:"path,omitempty"`
}

type HTMLFormatting struct {
	StrikethroughToDel bool `yaml:"strikethrough_to_del"`
}

// Config holds the complete configuration. It is treated as read-only once
// loaded; commands that change it go through Save.
type Config struct {
	PandocPath          string         `yaml:"pandoc_path"`
	ReferenceDocx       string         `yaml:"reference_docx,omitempty"`
	KeepOriginalFormula bool           `yaml:"keep_original_formula"`
	PandocFilters       []string       `yaml:"pandoc_filters,omitempty"`
	SaveDir             string         `yaml:"save_dir"`
	KeepFile            bool           `yaml:"keep_file"`
	MoveCursorToEnd     bool           `yaml:"move_cursor_to_end"`
	KeepFormat          bool           `yaml:"keep_format"`
	ExcelKeepFormat     *bool          `yaml:"excel_keep_format,omitempty"`
	Target              string         `yaml:"target"`
	NoAppAction         string         `yaml:"no_app_action"`
	InsertRetryCount    int            `yaml:"insert_retry_count"`
	InsertRetryDelay    Duration       `yaml:"insert_retry_delay"`
	RestoreDelay        Duration       `yaml:"clipboard_restore_delay"`
	ScriptTimeout       Duration       `yaml:"script_timeout"`
	ConvertTimeout      Duration       `yaml:"convert_timeout"`
	History             HistoryConfig  `yaml:"history"`
	HTMLFormatting      HTMLFormatting `yaml:"html_formatting"`
}

// Default returns the configuration used when no file exists.
func Default() *Config {
	return &Config{
		PandocPath:       "pandoc",
		SaveDir:          defaultSaveDir(),
		MoveCursorToEnd:  true,
		KeepFormat:       true,
		Target:           "auto",
		NoAppAction:      "none",
		InsertRetryCount: DefaultRetryCount,
		InsertRetryDelay: Duration(DefaultRetryDelay),
		RestoreDelay:     Duration(DefaultRestoreDelay),
		ScriptTimeout:    Duration(DefaultScriptTimeout),
		ConvertTimeout:   Duration(DefaultConvertTimeout),
		History:          HistoryConfig{Enabled: true},
	}
}

// ExcelKeepFormatValue falls back to KeepFormat when excel_keep_format is unset.
func (c *Config) ExcelKeepFormatValue() bool {
	if c.ExcelKeepFormat != nil {
		return *c.ExcelKeepFormat
	}
	return c.KeepFormat
}

// HistoryPath returns the configured history database path or the default
// one under the user cache directory.
func (c *Config) HistoryPath() string {
	if c.History.Path != "" {
		return c.History.Path
	}
	cacheDir, err := os.UserCacheDir()
	if err != nil {
		cacheDir = os.TempDir()
	}
	return filepath.Join(cacheDir, "pastemd", "history.db")
}

// Load loads the configuration from the default path.
func Load() (*Config, error) {
	configPath, err := GetConfigPath()
	if err != nil {
		return nil, errors.NewWithError(errors.ExitCodeConfig, "failed to get config path", err)
	}
	return loadFromPath(configPath)
}

// GetConfigPath returns the path to the config file
func GetConfigPath() (string, error) {
	configDir, err := os.UserConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(configDir, "pastemd", "config.yaml"), nil
}

// Save saves the configuration to file
func Save(cfg *Config) error {
	configPath, err := GetConfigPath()
	if err != nil {
		return err
	}
	return saveToPath(configPath, cfg)
}

func saveToPath(configPath string, cfg *Config) error {
	if err := os.MkdirAll(filepath.Dir(configPath), 0755); err != nil {
		return errors.NewWithError(errors.ExitCodeFileOperation, "failed to create config directory", err)
	}

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return errors.NewWithError(errors.ExitCodeConfig, "failed to marshal config", err)
	}

	if err := os.WriteFile(configPath, data, 0644); err != nil {
		return errors.NewWithError(errors.ExitCodeFileOperation, "failed to write config file", err)
	}

	return nil
}

func defaultSaveDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(os.TempDir(), "pastemd")
	}
	return filepath.Join(home, "Documents", "pastemd")
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if parsed, err := strconv.Atoi(value); err == nil {
			return parsed
		}
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue Duration) Duration {
	if value := os.Getenv(key); value != "" {
		if parsed, err := time.ParseDuration(value); err == nil {
			return Duration(parsed)
		}
	}
	return defaultValue
}

func loadFromPath(configPath string) (*Config, error) {
	cfg := Default()

	if err := loadConfigFile(configPath, cfg); err != nil {
		return nil, err
	}

	applyEnvironmentOverrides(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// loadConfigFile reads the YAML file over the defaults already in cfg.
func loadConfigFile(path string, cfg *Config) error {
	if _, err := os.Stat(path); err != nil {
		return nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return errors.NewWithError(errors.ExitCodeFileOperation, "failed to read config file", err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return errors.NewWithError(errors.ExitCodeConfig, "failed to parse config file", err)
	}

	return nil
}

func applyEnvironmentOverrides(cfg *Config) {
	if v := os.Getenv("PASTEMD_PANDOC_PATH"); v != "" {
		cfg.PandocPath = v
	}
	if v := os.Getenv("PASTEMD_SAVE_DIR"); v != "" {
		cfg.SaveDir = v
	}
	if v := os.Getenv("PASTEMD_TARGET"); v != "" {
		cfg.Target = v
	}
	cfg.InsertRetryCount = getEnvInt("PASTEMD_RETRY_COUNT", cfg.InsertRetryCount)
	cfg.InsertRetryDelay = getEnvDuration("PASTEMD_RETRY_DELAY", cfg.InsertRetryDelay)
}

// Validate rejects settings the placement pipeline cannot act on.
func (c *Config) Validate() error {
	if !validTargets[c.Target] {
		return errors.ConfigError(fmt.Sprintf("unknown target '%s' (expected auto, word, wps, excel, wps_excel, onenote, powerpoint, md, rich, file or none)", c.Target))
	}
	if !validNoAppActions[c.NoAppAction] {
		return errors.ConfigError(fmt.Sprintf("unknown no_app_action '%s' (expected open, save or none)", c.NoAppAction))
	}
	if c.InsertRetryCount < 1 {
		return errors.ConfigError("insert_retry_count must be at least 1")
	}
	if c.InsertRetryDelay < 0 || c.RestoreDelay < 0 {
		return errors.ConfigError("delays must not be negative")
	}
	if c.ScriptTimeout <= 0 || c.ConvertTimeout <= 0 {
		return errors.ConfigError("script_timeout and convert_timeout must be positive")
	}
	if c.PandocPath == "" {
		return errors.ConfigError("pandoc_path must not be empty")
	}
	return nil
}
