package config

import (
	"fmt"
	"time"

	"github.com/spf13/viper"
)

// FileName is the config file looked up in the config directory.
const FileName = "bookmarks.cfg.json"

// PathsConfig holds on-disk locations. Empty paths are derived from DataDir.
type PathsConfig struct {
	DataDir      string `json:"dataDir" mapstructure:"dataDir"`
	BookmarksDir string `json:"bookmarksDir" mapstructure:"bookmarksDir"`
	TrashDir     string `json:"trashDir" mapstructure:"trashDir"`
	TempDir      string `json:"tempDir" mapstructure:"tempDir"`
	MetadataFile string `json:"metadataFile" mapstructure:"metadataFile"`
	SettingsDB   string `json:"settingsDB" mapstructure:"settingsDB"`
}

// LoaderConfig tunes background loading.
type LoaderConfig struct {
	Workers   int `json:"workers" mapstructure:"workers"`
	QueueSize int `json:"queueSize" mapstructure:"queueSize"`
}

// CatalogConfig holds the bookmark catalog server settings
type CatalogConfig struct {
	Enabled   bool          `json:"enabled" mapstructure:"enabled"`
	ServerURL string        `json:"serverUrl" mapstructure:"serverUrl"`
	APIKey    string        `json:"apiKey" mapstructure:"apiKey"`
	Timeout   time.Duration `json:"timeout" mapstructure:"timeout"`
}

// OTelConfig holds OpenTelemetry settings
type OTelConfig struct {
	Enabled      bool          `json:"enabled" mapstructure:"enabled"`
	ServiceName  string        `json:"serviceName" mapstructure:"serviceName"`
	BatchTimeout time.Duration `json:"batchTimeout" mapstructure:"batchTimeout"`
	Endpoint     string        `json:"endpoint" mapstructure:"endpoint"`
	Insecure     bool          `json:"insecure" mapstructure:"insecure"`
}

// Load reads configuration from JSON file and sets default values.
// configDir is the directory containing the config file.
func Load(configDir string) error {
	setDefaults()

	viper.SetConfigName(FileName)
	viper.AddConfigPath(configDir)
	viper.SetConfigType("json")

	err := viper.ReadInConfig()
	if err != nil {
		return fmt.Errorf("error reading config file: %v", err)
	}

	return nil
}

// LoadDefaults sets default values without reading a file.
func LoadDefaults() {
	setDefaults()
}

func setDefaults() {
	viper.SetDefault("logLevel", "info")
	viper.SetDefault("logsDir", "")
	viper.SetDefault("logFormat", "text")
	viper.SetDefault("language", "en")
	viper.SetDefault("autoSave", true)
	viper.SetDefault("fileType", "kml")
	viper.SetDefault("userId", "")
	viper.SetDefault("defaultCategoryName", "My Places")

	viper.SetDefault("dataDir", "./data")
	viper.SetDefault("paths.bookmarksDir", "")
	viper.SetDefault("paths.trashDir", "")
	viper.SetDefault("paths.tempDir", "")
	viper.SetDefault("paths.metadataFile", "")
	viper.SetDefault("paths.settingsDB", "")

	viper.SetDefault("loader.workers", 4)
	viper.SetDefault("loader.queueSize", 16)

	viper.SetDefault("catalog.enabled", false)
	viper.SetDefault("catalog.serverUrl", "http://localhost:5000")
	viper.SetDefault("catalog.apiKey", "")
	viper.SetDefault("catalog.timeout", "30s")

	viper.SetDefault("otel.enabled", false)
	viper.SetDefault("otel.serviceName", "bookmarks")
	viper.SetDefault("otel.batchTimeout", "5s")
	viper.SetDefault("otel.endpoint", "")
	viper.SetDefault("otel.insecure", true)
}

// GetString returns a string config value.
func GetString(key string) string {
	return viper.GetString(key)
}

// GetInt returns an int config value.
func GetInt(key string) int {
	return viper.GetInt(key)
}

// GetBool returns a bool config value.
func GetBool(key string) bool {
	return viper.GetBool(key)
}

// GetPathsConfig returns the configured locations.
func GetPathsConfig() PathsConfig {
	return PathsConfig{
		DataDir:      viper.GetString("dataDir"),
		BookmarksDir: viper.GetString("paths.bookmarksDir"),
		TrashDir:     viper.GetString("paths.trashDir"),
		TempDir:      viper.GetString("paths.tempDir"),
		MetadataFile: viper.GetString("paths.metadataFile"),
		SettingsDB:   viper.GetString("paths.settingsDB"),
	}
}

// GetLoaderConfig returns the background loading settings.
func GetLoaderConfig() LoaderConfig {
	return LoaderConfig{
		Workers:   viper.GetInt("loader.workers"),
		QueueSize: viper.GetInt("loader.queueSize"),
	}
}

// GetCatalogConfig returns the catalog server settings.
func GetCatalogConfig() CatalogConfig {
	return CatalogConfig{
		Enabled:   viper.GetBool("catalog.enabled"),
		ServerURL: viper.GetString("catalog.serverUrl"),
		APIKey:    viper.GetString("catalog.apiKey"),
		Timeout:   viper.GetDuration("catalog.timeout"),
	}
}

// GetOTelConfig returns the OpenTelemetry settings.
func GetOTelConfig() OTelConfig {
	return OTelConfig{
		Enabled:      viper.GetBool("otel.enabled"),
		ServiceName:  viper.GetString("otel.serviceName"),
		BatchTimeout: viper.GetDuration("otel.batchTimeout"),
		Endpoint:     viper.GetString("otel.endpoint"),
		Insecure:     viper.GetBool("otel.insecure"),
	}
}
