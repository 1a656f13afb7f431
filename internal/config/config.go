package config

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/viper"
)

const appName = "lazyfilter"

// Config holds all application configuration
type Config struct {
	Chooser ChooserConfig `mapstructure:"chooser"`
	Persist PersistConfig `mapstructure:"persist"`
	Source  SourceConfig  `mapstructure:"source"`
	UI      UIConfig      `mapstructure:"ui"`
	Log     LogConfig     `mapstructure:"log"`
}

type ChooserConfig struct {
	MaxTags                int  `mapstructure:"max_tags"`
	MaxResults             int  `mapstructure:"max_results"`
	SuggestFieldsWhenEmpty bool `mapstructure:"suggest_fields_when_empty"`
	SortFieldSuggestions   bool `mapstructure:"sort_field_suggestions"`
	PersistValue           bool `mapstructure:"persist_value"`
	PersistFavorites       bool `mapstructure:"persist_favorites"`
}

type PersistConfig struct {
	Backend string `mapstructure:"backend"`
	Path    string `mapstructure:"path"`
	Key     string `mapstructure:"key"`
}

type SourceConfig struct {
	Driver         string   `mapstructure:"driver"`
	DSN            string   `mapstructure:"dsn"`
	Table          string   `mapstructure:"table"`
	Fields         []string `mapstructure:"fields"`
	ValueCacheSize int      `mapstructure:"value_cache_size"`
	RowLimit       int      `mapstructure:"row_limit"`
}

type UIConfig struct {
	Theme        string `mapstructure:"theme"`
	MouseEnabled bool   `mapstructure:"mouse_enabled"`
}

type LogConfig struct {
	Level string `mapstructure:"level"`
	File  string `mapstructure:"file"`
}

// GetDefaults returns a Config with all default values
func GetDefaults() *Config {
	return &Config{
		Chooser: ChooserConfig{
			MaxTags:                100,
			MaxResults:             50,
			SuggestFieldsWhenEmpty: true,
			SortFieldSuggestions:   true,
			PersistValue:           true,
			PersistFavorites:       true,
		},
		Persist: PersistConfig{
			Backend: "file",
			Key:     "filterChooser",
		},
		Source: SourceConfig{
			Driver:         "sqlite",
			ValueCacheSize: 256,
			RowLimit:       500,
		},
		UI: UIConfig{
			Theme:        "default",
			MouseEnabled: true,
		},
		Log: LogConfig{
			Level: "info",
			File:  "lazyfilter.log",
		},
	}
}

func setDefaults(v *viper.Viper) {
	d := GetDefaults()
	v.SetDefault("chooser.max_tags", d.Chooser.MaxTags)
	v.SetDefault("chooser.max_results", d.Chooser.MaxResults)
	v.SetDefault("chooser.suggest_fields_when_empty", d.Chooser.SuggestFieldsWhenEmpty)
	v.SetDefault("chooser.sort_field_suggestions", d.Chooser.SortFieldSuggestions)
	v.SetDefault("chooser.persist_value", d.Chooser.PersistValue)
	v.SetDefault("chooser.persist_favorites", d.Chooser.PersistFavorites)
	v.SetDefault("persist.backend", d.Persist.Backend)
	v.SetDefault("persist.path", d.Persist.Path)
	v.SetDefault("persist.key", d.Persist.Key)
	v.SetDefault("source.driver", d.Source.Driver)
	v.SetDefault("source.dsn", d.Source.DSN)
	v.SetDefault("source.table", d.Source.Table)
	v.SetDefault("source.value_cache_size", d.Source.ValueCacheSize)
	v.SetDefault("source.row_limit", d.Source.RowLimit)
	v.SetDefault("ui.theme", d.UI.Theme)
	v.SetDefault("ui.mouse_enabled", d.UI.MouseEnabled)
	v.SetDefault("log.level", d.Log.Level)
	v.SetDefault("log.file", d.Log.File)
}

// Load loads configuration from the default search paths
func Load() (*Config, error) {
	return LoadFile("")
}

// LoadFile loads configuration from file, or from the default search paths
// when file is empty. LAZYFILTER_* environment variables override both.
func LoadFile(file string) (*Config, error) {
	v := viper.New()

	if file != "" {
		v.SetConfigFile(file)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")

		// Add config paths in priority order
		// 1. User config directory
		if configDir, err := GetConfigPath(); err == nil {
			v.AddConfigPath(configDir)
		}

		// 2. Current directory
		v.AddConfigPath(".")

		// 3. Default config directory
		v.AddConfigPath("./config")
	}

	v.SetEnvPrefix(appName)
	v.AutomaticEnv()
	setDefaults(v)

	// Read config (it's okay if file doesn't exist, we have defaults)
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("error reading config: %w", err)
		}
	}

	// Unmarshal into struct
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("error unmarshaling config: %w", err)
	}

	return &cfg, nil
}

// GetConfigPath returns the user config directory path
func GetConfigPath() (string, error) {
	configDir, err := os.UserConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(configDir, appName), nil
}

// ResolvePath places relative paths under the config directory
func ResolvePath(path string) (string, error) {
	if path == "" || filepath.IsAbs(path) {
		return path, nil
	}
	dir, err := GetConfigPath()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, path), nil
}
