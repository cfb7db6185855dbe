// Package testutil provides shared test helpers for setting up catalogues and databases.
package testutil

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/starford/layerline/internal/index"
	"github.com/starford/layerline/internal/storage"
)

// TestDB creates a temporary SQLite database that is automatically cleaned up.
func TestDB(t *testing.T) *index.DB {
	t.Helper()
	dbFile, err := os.CreateTemp("", "layerline-test-*.db")
	if err != nil {
		t.Fatal(err)
	}
	dbFile.Close()
	t.Cleanup(func() { os.Remove(dbFile.Name()) })

	db, err := index.Open(dbFile.Name())
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

// TestCatalog creates a temporary catalogue directory with a storage.Provider.
func TestCatalog(t *testing.T) (string, storage.Provider) {
	t.Helper()
	dir := t.TempDir()
	store, err := storage.NewFS(dir)
	if err != nil {
		t.Fatal(err)
	}
	return dir, store
}

// WriteLayer writes a raw definition file into the catalogue directory.
func WriteLayer(t *testing.T, dir, name, content string) {
	t.Helper()
	p := filepath.Join(dir, name)
	if err := os.MkdirAll(filepath.Dir(p), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(p, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
}

// EightDayLayer is a daily layer with one 8-day range over January 2000.
const EightDayLayer = `id: MODIS_Terra_NDVI_8Day
title: NDVI (8-Day)
subtitle: Terra / MODIS
period: daily
start_date: 2000-01-01
end_date: 2000-01-31
inactive: true
visible: true
date_ranges:
  - start_date: 2000-01-01
    end_date: 2000-01-31
    interval: 8
`

// ContinuousLayer is an active daily layer with no explicit ranges.
const ContinuousLayer = `id: VIIRS_SNPP_CorrectedReflectance
title: Corrected Reflectance
subtitle: Suomi NPP / VIIRS
period: daily
start_date: 2020-05-01
visible: true
`
