package main

import (
	"bytes"
	"errors"
	"flag"
	"strings"
	"testing"
)

type mockApp struct {
	opts   AppOptions
	called map[string]bool
	err    error
}

func newMockApp() *mockApp {
	return &mockApp{
		called: make(map[string]bool),
	}
}

func (m *mockApp) ApplyOptions(opts AppOptions) { m.opts = opts }
func (m *mockApp) RunDetect() error             { m.called["RunDetect"] = true; return m.err }
func (m *mockApp) RunPageCount() error          { m.called["RunPageCount"] = true; return m.err }
func (m *mockApp) RunIngest() error             { m.called["RunIngest"] = true; return m.err }

func TestRun_Flags(t *testing.T) {
	tests := []struct {
		name           string
		args           []string
		expectedCalled string
		verifyOpts     func(*testing.T, AppOptions)
	}{
		{
			name:           "Detect",
			args:           []string{"--detect", "--input", "plan.pdf", "--format", "image"},
			expectedCalled: "RunDetect",
			verifyOpts: func(t *testing.T, opts AppOptions) {
				if opts.Input != "plan.pdf" {
					t.Errorf("expected Input plan.pdf, got %s", opts.Input)
				}
				if opts.Format != "image" {
					t.Errorf("expected Format image, got %s", opts.Format)
				}
				if !opts.DetectOnly {
					t.Error("expected DetectOnly true")
				}
			},
		},
		{
			name:           "PageCount",
			args:           []string{"--page-count", "--input", "plan.pdf"},
			expectedCalled: "RunPageCount",
			verifyOpts: func(t *testing.T, opts AppOptions) {
				if !opts.PageCount {
					t.Error("expected PageCount true")
				}
			},
		},
		{
			name:           "DetectWinsOverPageCount",
			args:           []string{"--page-count", "--detect", "--input", "plan.pdf"},
			expectedCalled: "RunDetect",
		},
		{
			name: "Ingest",
			args: []string{
				"--input", "plan.dxf", "--lat", "40.7128", "--lon", "-74.006",
				"--floor", "2", "--scale", "0.01", "--page", "3",
				"--output", "out.geojson", "--render", "out.svg", "--config", "cfg.yml",
			},
			expectedCalled: "RunIngest",
			verifyOpts: func(t *testing.T, opts AppOptions) {
				if opts.Lat != 40.7128 || opts.Lon != -74.006 {
					t.Errorf("expected anchor 40.7128,-74.006, got %f,%f", opts.Lat, opts.Lon)
				}
				if opts.Floor != 2 {
					t.Errorf("expected Floor 2, got %d", opts.Floor)
				}
				if opts.Scale != 0.01 {
					t.Errorf("expected Scale 0.01, got %f", opts.Scale)
				}
				if opts.Page != 3 {
					t.Errorf("expected Page 3, got %d", opts.Page)
				}
				if opts.OutputFile != "out.geojson" {
					t.Errorf("expected OutputFile out.geojson, got %s", opts.OutputFile)
				}
				if opts.RenderFile != "out.svg" {
					t.Errorf("expected RenderFile out.svg, got %s", opts.RenderFile)
				}
				if opts.ConfigFile != "cfg.yml" {
					t.Errorf("expected ConfigFile cfg.yml, got %s", opts.ConfigFile)
				}
			},
		},
		{
			name:           "Publish",
			args:           []string{"--input", "plan.png", "--publish", "--venue", "hq", "-v"},
			expectedCalled: "RunIngest",
			verifyOpts: func(t *testing.T, opts AppOptions) {
				if !opts.Publish {
					t.Error("expected Publish true")
				}
				if opts.VenueID != "hq" {
					t.Errorf("expected VenueID hq, got %s", opts.VenueID)
				}
				if !opts.Verbose {
					t.Error("expected Verbose true")
				}
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			app := newMockApp()
			var out bytes.Buffer
			if err := run(tt.args, &out, app); err != nil {
				t.Fatalf("run failed: %v", err)
			}

			if !app.called[tt.expectedCalled] {
				t.Errorf("expected %s to be called", tt.expectedCalled)
			}
			if len(app.called) != 1 {
				t.Errorf("expected exactly one mode, got %v", app.called)
			}
			if tt.verifyOpts != nil {
				tt.verifyOpts(t, app.opts)
			}
		})
	}
}

func TestRun_PropagatesErrors(t *testing.T) {
	app := newMockApp()
	app.err = errors.New("boom")

	var out bytes.Buffer
	err := run([]string{"--input", "plan.pdf"}, &out, app)
	if !errors.Is(err, app.err) {
		t.Errorf("expected boom, got %v", err)
	}
}

func TestRun_Help(t *testing.T) {
	app := newMockApp()
	var out bytes.Buffer
	err := run([]string{"--help"}, &out, app)
	if !errors.Is(err, flag.ErrHelp) {
		t.Errorf("expected flag.ErrHelp, got %v", err)
	}
	if !strings.Contains(out.String(), "Usage of planingest") {
		t.Errorf("expected usage info in output, got: %s", out.String())
	}
}

func TestRun_BadFlag(t *testing.T) {
	app := newMockApp()
	var out bytes.Buffer
	if err := run([]string{"--lat", "north"}, &out, app); err == nil {
		t.Error("expected error for non-numeric latitude")
	}
	if len(app.called) != 0 {
		t.Errorf("expected no mode to run, got %v", app.called)
	}
}

func TestRun_Default(t *testing.T) {
	app := newMockApp()
	var out bytes.Buffer
	err := run([]string{}, &out, app)
	if err != nil {
		t.Fatalf("run failed: %v", err)
	}

	expectedPrefix := "planingest version: " + Version
	if !strings.Contains(out.String(), expectedPrefix) {
		t.Errorf("expected output to contain version, got: %s", out.String())
	}

	if !strings.Contains(out.String(), "No input given.") {
		t.Errorf("expected usage hints, got: %s", out.String())
	}
	if len(app.called) != 0 {
		t.Errorf("expected no mode to run, got %v", app.called)
	}
}

func TestMain_Execute(t *testing.T) {
	// Smoke test to ensure version is set
	if Version == "" {
		t.Error("expected Version to be set")
	}
}
