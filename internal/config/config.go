package config

import (
	"fmt"
	"strings"
	"sync"

	"github.com/spf13/viper"
)

const (
	// AppName is the application name used for config files.
	AppName = "go-epub-decrypt"

	// EnvPrefix is the prefix for environment variables.
	EnvPrefix = "EPUB_DECRYPT"
)

// AppConfig holds the application configuration
type AppConfig struct {
	// Core settings
	Debug     bool   `mapstructure:"debug"`
	LogFormat string `mapstructure:"log_format"`
	LogFile   string `mapstructure:"log_file"`

	// Reader settings
	Reader struct {
		// Passphrase unlocks license-protected containers. Prefer the
		// EPUB_DECRYPT_READER_PASSPHRASE environment variable over
		// writing it to a config file.
		Passphrase string `mapstructure:"passphrase"`

		// Output is the default destination for decrypted copies.
		Output string `mapstructure:"output"`
	} `mapstructure:"reader"`
}

// Global variables
var (
	// Global configuration instance
	Instance AppConfig

	// Status indicators
	ConfigLoaded bool
	ConfigFile   string

	// Viper instance
	v *viper.Viper

	// Ensure thread safety
	initOnce sync.Once
)

// Initialize sets up the configuration system
func Initialize(cfgFile string) error {
	var err error

	initOnce.Do(func() {
		// Create a new viper instance
		v = viper.New()

		// Set default values
		setDefaults(v)

		// Load configuration from file if specified
		if cfgFile != "" {
			v.SetConfigFile(cfgFile)
		} else {
			v.SetConfigName(AppName)
			v.SetConfigType("yaml")
			v.AddConfigPath(".")
			v.AddConfigPath("$HOME/.config/" + AppName)
		}

		// Set up environment variables
		v.SetEnvPrefix(EnvPrefix)
		v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
		v.AutomaticEnv()

		// Read configuration file
		if readErr := v.ReadInConfig(); readErr != nil {
			if _, ok := readErr.(viper.ConfigFileNotFoundError); !ok {
				// Only capture error if the config file was found but couldn't be read
				err = fmt.Errorf("error reading config file: %w", readErr)
			}
			// Config file not found, using defaults and environment variables
			ConfigLoaded = false
			ConfigFile = ""
		} else {
			ConfigLoaded = true
			ConfigFile = v.ConfigFileUsed()
		}

		// Unmarshal config into struct
		if unmarshalErr := v.Unmarshal(&Instance); unmarshalErr != nil {
			err = fmt.Errorf("error parsing config: %w", unmarshalErr)
		}
	})

	return err
}

// setDefaults sets default values for configuration
func setDefaults(v *viper.Viper) {
	v.SetDefault("debug", false)
	v.SetDefault("log_format", "human")
	v.SetDefault("log_file", "")
	v.SetDefault("reader.passphrase", "")
	v.SetDefault("reader.output", "")
}
