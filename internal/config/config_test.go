package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, FileName), []byte(body), 0644))
	return dir
}

func TestLoad_WithValidConfigFile(t *testing.T) {
	t.Cleanup(viper.Reset)

	dir := writeConfig(t, `{
		"logLevel": "debug",
		"language": "de",
		"paths": { "bookmarksDir": "/srv/bm" }
	}`)

	err := Load(dir)
	require.NoError(t, err)

	assert.Equal(t, "debug", viper.GetString("logLevel"))
	assert.Equal(t, "de", viper.GetString("language"))
	assert.Equal(t, "/srv/bm", viper.GetString("paths.bookmarksDir"))
}

func TestLoad_DefaultValues(t *testing.T) {
	t.Cleanup(viper.Reset)

	err := Load(writeConfig(t, `{}`))
	require.NoError(t, err)

	assert.Equal(t, "info", viper.GetString("logLevel"))
	assert.Equal(t, "", viper.GetString("logsDir"))
	assert.Equal(t, "text", viper.GetString("logFormat"))
	assert.Equal(t, "en", viper.GetString("language"))
	assert.Equal(t, true, viper.GetBool("autoSave"))
	assert.Equal(t, "kml", viper.GetString("fileType"))
	assert.Equal(t, "My Places", viper.GetString("defaultCategoryName"))
	assert.Equal(t, "./data", viper.GetString("dataDir"))
	assert.Equal(t, 4, viper.GetInt("loader.workers"))
	assert.Equal(t, 16, viper.GetInt("loader.queueSize"))
	assert.Equal(t, false, viper.GetBool("catalog.enabled"))
	assert.Equal(t, "http://localhost:5000", viper.GetString("catalog.serverUrl"))
	assert.Equal(t, "", viper.GetString("catalog.apiKey"))
	assert.Equal(t, false, viper.GetBool("otel.enabled"))
	assert.Equal(t, "bookmarks", viper.GetString("otel.serviceName"))
	assert.Equal(t, "5s", viper.GetString("otel.batchTimeout"))
	assert.Equal(t, "", viper.GetString("otel.endpoint"))
	assert.Equal(t, true, viper.GetBool("otel.insecure"))
}

func TestLoad_MissingFile(t *testing.T) {
	t.Cleanup(viper.Reset)

	err := Load("/nonexistent/path")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "error reading config file")
}

func TestLoadDefaults(t *testing.T) {
	t.Cleanup(viper.Reset)

	LoadDefaults()
	assert.Equal(t, "./data", GetPathsConfig().DataDir)
}

func TestGetString(t *testing.T) {
	t.Cleanup(viper.Reset)
	viper.Set("testKey", "testValue")
	assert.Equal(t, "testValue", GetString("testKey"))
}

func TestGetInt(t *testing.T) {
	t.Cleanup(viper.Reset)
	viper.Set("testInt", 42)
	assert.Equal(t, 42, GetInt("testInt"))
}

func TestGetBool(t *testing.T) {
	t.Cleanup(viper.Reset)
	viper.Set("testBool", true)
	assert.Equal(t, true, GetBool("testBool"))
}

func TestGetPathsConfig_Override(t *testing.T) {
	t.Cleanup(viper.Reset)

	require.NoError(t, Load(writeConfig(t, `{
		"dataDir": "/var/lib/maps",
		"paths": {
			"trashDir": "/var/lib/maps/trash",
			"settingsDB": "/var/lib/maps/state.db"
		}
	}`)))

	pc := GetPathsConfig()
	assert.Equal(t, "/var/lib/maps", pc.DataDir)
	assert.Equal(t, "", pc.BookmarksDir)
	assert.Equal(t, "/var/lib/maps/trash", pc.TrashDir)
	assert.Equal(t, "/var/lib/maps/state.db", pc.SettingsDB)
}

func TestGetLoaderConfig_Override(t *testing.T) {
	t.Cleanup(viper.Reset)

	require.NoError(t, Load(writeConfig(t, `{"loader": {"workers": 8, "queueSize": 2}}`)))

	lc := GetLoaderConfig()
	assert.Equal(t, 8, lc.Workers)
	assert.Equal(t, 2, lc.QueueSize)
}

func TestGetCatalogConfig(t *testing.T) {
	t.Cleanup(viper.Reset)

	require.NoError(t, Load(writeConfig(t, `{}`)))
	cc := GetCatalogConfig()
	assert.False(t, cc.Enabled)
	assert.Equal(t, 30*time.Second, cc.Timeout)

	viper.Reset()
	require.NoError(t, Load(writeConfig(t, `{
		"catalog": {
			"enabled": true,
			"serverUrl": "https://catalog.example.com",
			"apiKey": "k",
			"timeout": "1m"
		}
	}`)))
	cc = GetCatalogConfig()
	assert.True(t, cc.Enabled)
	assert.Equal(t, "https://catalog.example.com", cc.ServerURL)
	assert.Equal(t, "k", cc.APIKey)
	assert.Equal(t, time.Minute, cc.Timeout)
}

func TestGetOTelConfig_Defaults(t *testing.T) {
	t.Cleanup(viper.Reset)

	require.NoError(t, Load(writeConfig(t, `{}`)))

	cfg := GetOTelConfig()
	assert.Equal(t, false, cfg.Enabled)
	assert.Equal(t, "bookmarks", cfg.ServiceName)
	assert.Equal(t, 5*time.Second, cfg.BatchTimeout)
	assert.Equal(t, "", cfg.Endpoint)
	assert.Equal(t, true, cfg.Insecure)
}

func TestGetOTelConfig_Override(t *testing.T) {
	t.Cleanup(viper.Reset)

	require.NoError(t, Load(writeConfig(t, `{
		"otel": {
			"enabled": true,
			"serviceName": "my-service",
			"batchTimeout": "30s",
			"endpoint": "localhost:4317",
			"insecure": false
		}
	}`)))

	oc := GetOTelConfig()
	assert.Equal(t, true, oc.Enabled)
	assert.Equal(t, "my-service", oc.ServiceName)
	assert.Equal(t, 30*time.Second, oc.BatchTimeout)
	assert.Equal(t, "localhost:4317", oc.Endpoint)
	assert.Equal(t, false, oc.Insecure)
}
