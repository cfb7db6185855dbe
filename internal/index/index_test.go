package index

import (
	"errors"
	"os"
	"testing"
	"time"

	"github.com/starford/layerline/internal/apperr"
	"github.com/starford/layerline/internal/models"
)

func testDB(t *testing.T) *DB {
	t.Helper()
	f, err := os.CreateTemp("", "layerline-test-*.db")
	if err != nil {
		t.Fatal(err)
	}
	f.Close()
	t.Cleanup(func() { os.Remove(f.Name()) })

	db, err := Open(f.Name())
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

func day(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func modisRow() LayerRow {
	return LayerRow{
		Layer: models.Layer{
			ID:        "MODIS_Terra_NDVI_8Day",
			Title:     "NDVI (8-Day)",
			Subtitle:  "Terra / MODIS",
			Period:    "daily",
			StartDate: day(2000, 1, 1),
			DateRanges: []models.DateRange{
				{StartDate: day(2000, 1, 1), EndDate: day(2000, 1, 31), Interval: 8},
				{StartDate: day(2000, 2, 1), Interval: 1},
			},
			Visible: true,
		},
		Path:     "MODIS_Terra_NDVI_8Day.yaml",
		Checksum: "abc123",
	}
}

func TestSchemaCreation(t *testing.T) {
	db := testDB(t)
	var count int
	if err := db.conn.QueryRow(`SELECT count(*) FROM layers`).Scan(&count); err != nil {
		t.Fatalf("layers table missing: %v", err)
	}
	if err := db.conn.QueryRow(`SELECT count(*) FROM date_ranges`).Scan(&count); err != nil {
		t.Fatalf("date_ranges table missing: %v", err)
	}
}

func TestUpsertAndGetLayer(t *testing.T) {
	db := testDB(t)
	if err := db.UpsertLayer(modisRow()); err != nil {
		t.Fatalf("UpsertLayer: %v", err)
	}
	got, err := db.GetLayer("MODIS_Terra_NDVI_8Day")
	if err != nil {
		t.Fatalf("GetLayer: %v", err)
	}
	if got.Title != "NDVI (8-Day)" || got.Path != "MODIS_Terra_NDVI_8Day.yaml" || !got.Visible {
		t.Errorf("row = %+v", got)
	}
	if !got.StartDate.Equal(day(2000, 1, 1)) || !got.EndDate.IsZero() {
		t.Errorf("dates = %s..%s", got.StartDate, got.EndDate)
	}
	if len(got.DateRanges) != 2 {
		t.Fatalf("ranges = %d, want 2", len(got.DateRanges))
	}
	if r := got.DateRanges[0]; r.Interval != 8 || !r.EndDate.Equal(day(2000, 1, 31)) {
		t.Errorf("first range = %+v", r)
	}
	if r := got.DateRanges[1]; !r.EndDate.IsZero() {
		t.Errorf("open range end = %s", r.EndDate)
	}
	cs, _ := db.GetChecksum("MODIS_Terra_NDVI_8Day.yaml")
	if cs != "abc123" {
		t.Errorf("checksum = %q, want %q", cs, "abc123")
	}
}

func TestGetLayer_NotFound(t *testing.T) {
	db := testDB(t)
	if _, err := db.GetLayer("missing"); !errors.Is(err, apperr.ErrNotFound) {
		t.Errorf("err = %v, want ErrNotFound", err)
	}
}

func TestUpsertReplacesRanges(t *testing.T) {
	db := testDB(t)
	row := modisRow()
	_ = db.UpsertLayer(row)

	row.Title = "NDVI"
	row.Checksum = "def456"
	row.DateRanges = row.DateRanges[:1]
	if err := db.UpsertLayer(row); err != nil {
		t.Fatalf("UpsertLayer: %v", err)
	}
	got, _ := db.GetLayer(row.ID)
	if got.Title != "NDVI" || len(got.DateRanges) != 1 {
		t.Errorf("after update: title=%q ranges=%d", got.Title, len(got.DateRanges))
	}
}

func TestUpsertSamePathNewID(t *testing.T) {
	db := testDB(t)
	_ = db.UpsertLayer(modisRow())

	row := modisRow()
	row.ID = "MODIS_Renamed"
	if err := db.UpsertLayer(row); err != nil {
		t.Fatalf("UpsertLayer: %v", err)
	}
	if _, err := db.GetLayer("MODIS_Terra_NDVI_8Day"); !errors.Is(err, apperr.ErrNotFound) {
		t.Error("old id should be gone once its file defines another layer")
	}
	var n int
	_ = db.conn.QueryRow(`SELECT count(*) FROM date_ranges WHERE layer_id = 'MODIS_Terra_NDVI_8Day'`).Scan(&n)
	if n != 0 {
		t.Errorf("orphan ranges = %d", n)
	}
}

func TestDeleteBySource(t *testing.T) {
	db := testDB(t)
	_ = db.UpsertLayer(modisRow())

	id, err := db.DeleteBySource("MODIS_Terra_NDVI_8Day.yaml")
	if err != nil {
		t.Fatalf("DeleteBySource: %v", err)
	}
	if id != "MODIS_Terra_NDVI_8Day" {
		t.Errorf("id = %q", id)
	}
	if cs, _ := db.GetChecksum("MODIS_Terra_NDVI_8Day.yaml"); cs != "" {
		t.Errorf("deleted layer still has checksum %q", cs)
	}
	var n int
	_ = db.conn.QueryRow(`SELECT count(*) FROM date_ranges`).Scan(&n)
	if n != 0 {
		t.Errorf("ranges left after delete = %d", n)
	}

	id, err = db.DeleteBySource("never.yaml")
	if err != nil || id != "" {
		t.Errorf("unknown path: id=%q err=%v", id, err)
	}
}

func TestListLayers(t *testing.T) {
	db := testDB(t)
	for i, id := range []string{"c", "a", "b"} {
		r := LayerRow{Layer: models.Layer{ID: id, Title: id, Period: "daily", Visible: i != 0}, Path: id + ".yaml", Checksum: id}
		if err := db.UpsertLayer(r); err != nil {
			t.Fatal(err)
		}
	}

	rows, total, err := db.ListLayers(ListQuery{Limit: 2})
	if err != nil {
		t.Fatalf("ListLayers: %v", err)
	}
	if total != 3 || len(rows) != 2 || rows[0].ID != "a" || rows[1].ID != "b" {
		t.Errorf("page = %d/%d %+v", len(rows), total, rows)
	}

	rows, _, _ = db.ListLayers(ListQuery{Limit: 2, Offset: 2})
	if len(rows) != 1 || rows[0].ID != "c" {
		t.Errorf("second page = %+v", rows)
	}

	visible := true
	_, total, _ = db.ListLayers(ListQuery{Visible: &visible})
	if total != 2 {
		t.Errorf("visible total = %d, want 2", total)
	}

	if _, _, err := db.ListLayers(ListQuery{Sort: "bogus"}); !errors.Is(err, apperr.ErrInvalid) {
		t.Errorf("bad sort err = %v, want ErrInvalid", err)
	}
}

func TestAllChecksums(t *testing.T) {
	db := testDB(t)
	_ = db.UpsertLayer(modisRow())
	m, err := db.AllChecksums()
	if err != nil {
		t.Fatalf("AllChecksums: %v", err)
	}
	if m["MODIS_Terra_NDVI_8Day.yaml"] != "abc123" || len(m) != 1 {
		t.Errorf("checksums = %v", m)
	}
}

func TestGetChecksum_NotFound(t *testing.T) {
	db := testDB(t)
	cs, err := db.GetChecksum("nonexistent.yaml")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cs != "" {
		t.Errorf("expected empty checksum, got %q", cs)
	}
}

func TestSearch_Basic(t *testing.T) {
	db := testDB(t)
	_ = db.UpsertLayer(modisRow())
	_ = db.UpsertLayer(LayerRow{Layer: models.Layer{ID: "VIIRS_SNPP", Title: "Corrected Reflectance", Period: "daily"}, Path: "v.yaml", Checksum: "v"})

	results, err := db.Search("Terra", 10)
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if len(results) != 1 || results[0].ID != "MODIS_Terra_NDVI_8Day" {
		t.Errorf("search results = %+v, want 1 hit", results)
	}
}
