package ingest

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultConfig(t *testing.T) {
	c := DefaultConfig()

	assert.Equal(t, DefaultDXFScale, c.DefaultDXFScale)
	assert.Equal(t, 0.7, c.DoorGapMinM)
	assert.Equal(t, 1.5, c.DoorGapMaxM)
	assert.Equal(t, 50, c.Hough.Threshold)
	assert.Equal(t, "planingest", c.MQTT.PublishPrefix)
	assert.NotNil(t, c.Logger)
	assert.NotNil(t, c.OpenDocument)
	assert.NoError(t, c.Validate())
}

func TestConfigValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
		want   string
	}{
		{"door gap inverted", func(c *Config) { c.DoorGapMinM = 2 }, "doorGapMinM"},
		{"contour fraction", func(c *Config) { c.MinContourFraction = 1 }, "minContourFraction"},
		{"epsilon fraction", func(c *Config) { c.ContourEpsilonFraction = 1.5 }, "contourEpsilonFraction"},
		{"coarse grid", func(c *Config) { c.WallGridCellM = 0.2 }, "wallGridCellM"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := DefaultConfig()
			tt.mutate(&c)
			assert.ErrorContains(t, c.Validate(), tt.want)
		})
	}
}

func TestLoadConfig(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yml")
	yml := `
doorGapMinM: 0.8
renderDpi: 150
hough:
  threshold: 60
mqtt:
  broker: tcp://broker:1883
  publishPrefix: site/plans
`
	require.NoError(t, os.WriteFile(path, []byte(yml), 0644))

	c, err := LoadConfig(path)
	require.NoError(t, err)

	assert.Equal(t, 0.8, c.DoorGapMinM)
	assert.Equal(t, 150.0, c.RenderDPI)
	assert.Equal(t, 60, c.Hough.Threshold)
	assert.Equal(t, "tcp://broker:1883", c.MQTT.Broker)
	assert.Equal(t, "site/plans", c.MQTT.PublishPrefix)

	// Untouched fields keep their defaults
	assert.Equal(t, DefaultDoorGapMaxM, c.DoorGapMaxM)
	assert.Equal(t, DefaultHoughMinLinePx, c.Hough.MinLineLength)
	assert.Equal(t, uint64(DefaultHoughSeed), c.Hough.Seed)
}

func TestLoadConfig_Errors(t *testing.T) {
	dir := t.TempDir()

	_, err := LoadConfig(filepath.Join(dir, "missing.yml"))
	assert.ErrorContains(t, err, "config file not found")

	bad := filepath.Join(dir, "bad.yml")
	require.NoError(t, os.WriteFile(bad, []byte("hough: [unterminated"), 0644))
	_, err = LoadConfig(bad)
	assert.ErrorContains(t, err, "parsing config YAML")

	invalid := filepath.Join(dir, "invalid.yml")
	require.NoError(t, os.WriteFile(invalid, []byte("doorGapMinM: 3\n"), 0644))
	_, err = LoadConfig(invalid)
	assert.ErrorContains(t, err, "invalid config")
}

func TestSaveConfig_RoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yml")
	c := DefaultConfig()
	c.WallBufferM = 0.2
	c.MQTT.Broker = "tcp://localhost:1883"

	require.NoError(t, SaveConfig(path, &c))

	loaded, err := LoadConfig(path)
	require.NoError(t, err)
	assert.Equal(t, 0.2, loaded.WallBufferM)
	assert.Equal(t, "tcp://localhost:1883", loaded.MQTT.Broker)
	assert.Equal(t, c.Hough, loaded.Hough)
	assert.Equal(t, c.ContourEpsilonFraction, loaded.ContourEpsilonFraction)
}
