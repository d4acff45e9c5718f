package ingest

import (
	"fmt"
	"log/slog"
	"os"

	"gopkg.in/yaml.v3"
)

// Heuristic defaults. Every one of them can be overridden from the YAML config.
const (
	DefaultDXFScale          = 0.001 // drawing units assumed to be millimeters
	DefaultImageExtentM      = 30.0  // real extent of the longer image side
	DefaultRenderDPI         = 200.0
	DefaultDoorGapMinM       = 0.7
	DefaultDoorGapMaxM       = 1.5
	DefaultDoorSnapM         = 0.1
	DefaultDoorSearchRadiusM = 1.5
	DefaultWallBufferM       = 0.15
	DefaultMinWallRoomAreaM2 = 1.0
	DefaultWallGridCellM     = 0.05
	DefaultMaxWallGridCells  = 4_000_000
	DefaultMinContourFrac    = 0.002
	DefaultContourEpsFrac    = 0.02
	DefaultHoughThreshold    = 50
	DefaultHoughMinLinePx    = 30
	DefaultHoughMaxGapPx     = 10
	DefaultHoughSeed         = 0x5eed
)

// HoughConfig tunes the probabilistic line detector (pixel units)
type HoughConfig struct {
	Threshold     int    `yaml:"threshold" json:"threshold"`
	MinLineLength int    `yaml:"minLineLength" json:"minLineLength"`
	MaxLineGap    int    `yaml:"maxLineGap" json:"maxLineGap"`
	Seed          uint64 `yaml:"seed" json:"seed"`
}

// MQTTConfig holds broker settings for the result publisher
type MQTTConfig struct {
	Broker        string `yaml:"broker" json:"broker"`
	PublishPrefix string `yaml:"publishPrefix" json:"publishPrefix"`
	ClientID      string `yaml:"clientId" json:"clientId"`
	Username      string `yaml:"username,omitempty" json:"username,omitempty"`
	Password      string `yaml:"password,omitempty" json:"password,omitempty"`
}

// Config configures the ingestion pipeline
type Config struct {
	DefaultDXFScale        float64     `yaml:"defaultDxfScale" json:"defaultDxfScale"`
	ImageExtentM           float64     `yaml:"imageExtentM" json:"imageExtentM"`
	RenderDPI              float64     `yaml:"renderDpi" json:"renderDpi"`
	DoorGapMinM            float64     `yaml:"doorGapMinM" json:"doorGapMinM"`
	DoorGapMaxM            float64     `yaml:"doorGapMaxM" json:"doorGapMaxM"`
	DoorSnapM              float64     `yaml:"doorSnapM" json:"doorSnapM"`
	DoorSearchRadiusM      float64     `yaml:"doorSearchRadiusM" json:"doorSearchRadiusM"`
	WallBufferM            float64     `yaml:"wallBufferM" json:"wallBufferM"`
	MinWallRoomAreaM2      float64     `yaml:"minWallRoomAreaM2" json:"minWallRoomAreaM2"`
	WallGridCellM          float64     `yaml:"wallGridCellM" json:"wallGridCellM"`
	MaxWallGridCells       int         `yaml:"maxWallGridCells" json:"maxWallGridCells"`
	MinContourFraction     float64     `yaml:"minContourFraction" json:"minContourFraction"`
	ContourEpsilonFraction float64     `yaml:"contourEpsilonFraction" json:"contourEpsilonFraction"`
	Hough                  HoughConfig `yaml:"hough" json:"hough"`
	MQTT                   MQTTConfig  `yaml:"mqtt" json:"mqtt"`

	// Logger for warnings and progress (default: slog.Default()).
	Logger *slog.Logger `yaml:"-" json:"-"`

	// OpenDocument opens paged documents for rendering (default: MuPDF).
	OpenDocument DocumentOpener `yaml:"-" json:"-"`
}

// DefaultConfig returns a config populated with the heuristic defaults
func DefaultConfig() Config {
	var c Config
	c.defaults()
	return c
}

// defaults fills every zero-valued field
func (c *Config) defaults() {
	setDefault(&c.DefaultDXFScale, DefaultDXFScale)
	setDefault(&c.ImageExtentM, DefaultImageExtentM)
	setDefault(&c.RenderDPI, DefaultRenderDPI)
	setDefault(&c.DoorGapMinM, DefaultDoorGapMinM)
	setDefault(&c.DoorGapMaxM, DefaultDoorGapMaxM)
	setDefault(&c.DoorSnapM, DefaultDoorSnapM)
	setDefault(&c.DoorSearchRadiusM, DefaultDoorSearchRadiusM)
	setDefault(&c.WallBufferM, DefaultWallBufferM)
	setDefault(&c.MinWallRoomAreaM2, DefaultMinWallRoomAreaM2)
	setDefault(&c.WallGridCellM, DefaultWallGridCellM)
	setDefault(&c.MinContourFraction, DefaultMinContourFrac)
	if c.MaxWallGridCells <= 0 {
		c.MaxWallGridCells = DefaultMaxWallGridCells
	}
	setDefault(&c.ContourEpsilonFraction, DefaultContourEpsFrac)
	if c.Hough.Threshold <= 0 {
		c.Hough.Threshold = DefaultHoughThreshold
	}
	if c.Hough.MinLineLength <= 0 {
		c.Hough.MinLineLength = DefaultHoughMinLinePx
	}
	if c.Hough.MaxLineGap <= 0 {
		c.Hough.MaxLineGap = DefaultHoughMaxGapPx
	}
	if c.Hough.Seed == 0 {
		c.Hough.Seed = DefaultHoughSeed
	}
	if c.MQTT.PublishPrefix == "" {
		c.MQTT.PublishPrefix = "planingest"
	}
	if c.Logger == nil {
		c.Logger = slog.Default()
	}
	if c.OpenDocument == nil {
		c.OpenDocument = OpenFitzDocument
	}
}

func setDefault(v *float64, def float64) {
	if *v <= 0 {
		*v = def
	}
}

// Validate checks the heuristic bounds for consistency
func (c *Config) Validate() error {
	if c.DoorGapMinM >= c.DoorGapMaxM {
		return fmt.Errorf("doorGapMinM (%.2f) must be below doorGapMaxM (%.2f)", c.DoorGapMinM, c.DoorGapMaxM)
	}
	if c.MinContourFraction >= 1 {
		return fmt.Errorf("minContourFraction must be below 1, got %.4f", c.MinContourFraction)
	}
	if c.ContourEpsilonFraction >= 1 {
		return fmt.Errorf("contourEpsilonFraction must be below 1, got %.4f", c.ContourEpsilonFraction)
	}
	if c.WallGridCellM >= c.WallBufferM {
		return fmt.Errorf("wallGridCellM (%.3f) must be finer than wallBufferM (%.3f)", c.WallGridCellM, c.WallBufferM)
	}
	return nil
}

// LoadConfig reads a YAML config file. Fields missing from the file keep
// their defaults.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("config file not found: %s", path)
		}
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	var config Config
	if err := yaml.Unmarshal(data, &config); err != nil {
		return nil, fmt.Errorf("parsing config YAML: %w", err)
	}
	config.defaults()

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return &config, nil
}

// SaveConfig saves the configuration to a YAML file
func SaveConfig(path string, config *Config) error {
	data, err := yaml.Marshal(config)
	if err != nil {
		return fmt.Errorf("marshaling config YAML: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("writing config file: %w", err)
	}

	return nil
}
