package internal

import (
	"bytes"
	"context"
	"encoding/json"
	"path/filepath"
	"testing"
	"time"

	"github.com/starford/layerline/internal/testutil"
	"github.com/starford/layerline/internal/timeline"
)

func coverageConfig(t *testing.T) *Config {
	t.Helper()
	dir := t.TempDir()
	catalogDir := filepath.Join(dir, "catalog")
	testutil.WriteLayer(t, catalogDir, "MODIS_Terra_NDVI_8Day.yaml", testutil.EightDayLayer)
	testutil.WriteLayer(t, catalogDir, "VIIRS_SNPP_CorrectedReflectance.yaml", testutil.ContinuousLayer)
	testutil.WriteLayer(t, catalogDir, "broken.yaml", "id: [")

	cfg := NewDefaultConfig()
	cfg.Catalog.Path = catalogDir
	cfg.Catalog.Watch = false
	cfg.SQLite.Path = filepath.Join(dir, "index.db")
	return cfg
}

func TestRunCoverage(t *testing.T) {
	cfg := coverageConfig(t)
	now := func() time.Time { return time.Date(2020, 9, 1, 0, 0, 0, 0, time.UTC) }

	var out bytes.Buffer
	req := CoverageRequest{
		Layers: []string{"MODIS_Terra_NDVI_8Day"},
		Front:  "2000-01-01",
		Back:   "2000-02-01",
		Width:  3100,
	}
	if err := RunCoverage(context.Background(), req, &out, WithConfig(cfg), WithClock(now)); err != nil {
		t.Fatalf("RunCoverage: %v", err)
	}

	var resp struct {
		Layers []timeline.LayerCoverage `json:"layers"`
	}
	if err := json.Unmarshal(out.Bytes(), &resp); err != nil {
		t.Fatalf("decode %s: %v", out.String(), err)
	}
	if len(resp.Layers) != 1 {
		t.Fatalf("layers = %d, want 1", len(resp.Layers))
	}
	if got := len(resp.Layers[0].Lines); got != 4 {
		t.Errorf("lines = %d, want 4", got)
	}
}

func TestRunCoverage_UnknownLayer(t *testing.T) {
	cfg := coverageConfig(t)
	req := CoverageRequest{Layers: []string{"broken"}, Front: "2000-01-01", Back: "2000-02-01"}
	if err := RunCoverage(context.Background(), req, &bytes.Buffer{}, WithConfig(cfg)); err == nil {
		t.Fatal("expected error for a layer whose file failed to parse")
	}
}

func TestRunCoverage_RequiresWindow(t *testing.T) {
	cfg := coverageConfig(t)
	req := CoverageRequest{Front: "2000-01-01"}
	if err := RunCoverage(context.Background(), req, &bytes.Buffer{}, WithConfig(cfg)); err == nil {
		t.Fatal("expected error without back")
	}
}

func TestRun_RequiresConfig(t *testing.T) {
	if err := Run(context.Background()); err == nil {
		t.Fatal("expected error without config")
	}
}
