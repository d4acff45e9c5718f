package main

import (
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/kwv/planingest/ingest"
)

// App runs the CLI modes against the ingest package
type App struct {
	Out    io.Writer
	Config *ingest.Config
	Logger *slog.Logger

	// Connect opens the broker connection for -publish
	Connect func(cfg ingest.MQTTConfig, logger *slog.Logger) (mqtt.Client, error)

	opts AppOptions
}

// NewApp creates a new App writing human output to out
func NewApp(out io.Writer) *App {
	return &App{
		Out:     out,
		Connect: ingest.ConnectMQTT,
	}
}

// ApplyOptions applies CLI options to the App instance
func (a *App) ApplyOptions(opts AppOptions) {
	a.opts = opts

	level := slog.LevelInfo
	if opts.Verbose {
		level = slog.LevelDebug
	}
	a.Logger = slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
}

func (a *App) logger() *slog.Logger {
	if a.Logger == nil {
		return slog.Default()
	}
	return a.Logger
}

// loadConfig reads the config file once, falling back to the defaults
func (a *App) loadConfig() (*ingest.Config, error) {
	if a.Config != nil {
		return a.Config, nil
	}

	if a.opts.ConfigFile == "" {
		cfg := ingest.DefaultConfig()
		a.Config = &cfg
	} else {
		cfg, err := ingest.LoadConfig(a.opts.ConfigFile)
		if err != nil {
			return nil, err
		}
		a.Config = cfg
	}
	a.Config.Logger = a.logger()
	return a.Config, nil
}

func (a *App) requireInput() error {
	if a.opts.Input == "" {
		return fmt.Errorf("-input is required")
	}
	if _, err := os.Stat(a.opts.Input); err != nil {
		return fmt.Errorf("input %s: %w", a.opts.Input, err)
	}
	return nil
}

func (a *App) format() (ingest.Format, error) {
	if a.opts.Format == "" {
		return ingest.DetectFormat(a.opts.Input), nil
	}
	return ingest.ParseFormat(a.opts.Format)
}

// RunDetect prints the pipeline that would handle the input
func (a *App) RunDetect() error {
	if err := a.requireInput(); err != nil {
		return err
	}
	f, err := a.format()
	if err != nil {
		return err
	}
	fmt.Fprintf(a.Out, "%s: %s\n", a.opts.Input, f)
	return nil
}

// RunPageCount prints the number of pages of the input
func (a *App) RunPageCount() error {
	if err := a.requireInput(); err != nil {
		return err
	}
	cfg, err := a.loadConfig()
	if err != nil {
		return err
	}
	n := ingest.New(*cfg).PageCount(a.opts.Input)
	fmt.Fprintf(a.Out, "%s: %d page(s)\n", a.opts.Input, n)
	return nil
}

// RunIngest ingests the input and writes, renders and publishes the result
// as requested.
func (a *App) RunIngest() error {
	if err := a.requireInput(); err != nil {
		return err
	}
	// Longitude has no meters-per-degree at the poles
	if a.opts.Lat <= -90 || a.opts.Lat >= 90 || a.opts.Lon < -180 || a.opts.Lon > 180 {
		return fmt.Errorf("venue anchor out of range: lat=%f lon=%f", a.opts.Lat, a.opts.Lon)
	}
	if a.opts.Publish && a.opts.VenueID == "" {
		return fmt.Errorf("-publish requires -venue")
	}

	cfg, err := a.loadConfig()
	if err != nil {
		return err
	}
	format, err := a.format()
	if err != nil {
		return err
	}

	pipeline := ingest.New(*cfg)
	eff := pipeline.Config()
	a.logger().Debug("effective config",
		"defaultDxfScale", eff.DefaultDXFScale,
		"renderDpi", eff.RenderDPI,
		"wallGridCellM", eff.WallGridCellM,
		"maxWallGridCells", eff.MaxWallGridCells,
		"houghSeed", eff.Hough.Seed)

	res, err := pipeline.Ingest(ingest.Request{
		Path:       a.opts.Input,
		Format:     format,
		VenueLat:   a.opts.Lat,
		VenueLon:   a.opts.Lon,
		FloorLevel: a.opts.Floor,
		Scale:      a.opts.Scale,
		Page:       a.opts.Page,
	})
	if err != nil {
		return fmt.Errorf("ingesting %s: %w", a.opts.Input, err)
	}

	a.printSummary(res)

	if a.opts.OutputFile != "" {
		if err := writeResult(a.opts.OutputFile, res); err != nil {
			return err
		}
		fmt.Fprintf(a.Out, "Wrote %s\n", a.opts.OutputFile)
	}

	if a.opts.RenderFile != "" {
		if err := ingest.NewOverlayRenderer(res).RenderToFile(a.opts.RenderFile); err != nil {
			return err
		}
		fmt.Fprintf(a.Out, "Rendered %s\n", a.opts.RenderFile)
	}

	if a.opts.Publish {
		if err := a.publish(cfg, res); err != nil {
			return err
		}
	}

	return nil
}

func (a *App) printSummary(res *ingest.Result) {
	fmt.Fprintf(a.Out, "Zones: %d, Connections: %d, Perch points: %d\n",
		len(res.Zones), len(res.Connections), len(res.PerchPoints))
	for _, z := range res.Zones {
		fmt.Fprintf(a.Out, "  %-28s floor %d  %8.2f m²  priority %d\n", z.Name, z.FloorLevel, z.AreaSqM, z.CoveragePriority)
	}
}

func (a *App) publish(cfg *ingest.Config, res *ingest.Result) error {
	client, err := a.Connect(cfg.MQTT, a.logger())
	if err != nil {
		return fmt.Errorf("connecting to MQTT: %w", err)
	}
	if client == nil {
		return fmt.Errorf("-publish requires an MQTT broker (config mqtt.broker or MQTT_BROKER)")
	}
	defer client.Disconnect(250)

	pub := ingest.NewPublisher(client, cfg.MQTT.PublishPrefix, a.logger())
	if err := pub.PublishResult(a.opts.VenueID, res); err != nil {
		return err
	}
	fmt.Fprintf(a.Out, "Published %s\n", pub.FloorplanTopic(a.opts.VenueID))
	return nil
}

// writeResult writes GeoJSON for .geojson files and the raw result otherwise
func writeResult(path string, res *ingest.Result) error {
	var v any = res
	if strings.EqualFold(filepath.Ext(path), ".geojson") {
		v = res.ToFeatureCollection()
	}

	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("marshaling result: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("writing %s: %w", path, err)
	}
	return nil
}
