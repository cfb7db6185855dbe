package cache

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"

	"github.com/starford/layerline/internal/timeline"
)

func axisAt(now time.Time) timeline.Axis {
	return timeline.Axis{
		Window: timeline.Window{
			Front: time.Date(2000, 1, 1, 0, 0, 0, 0, time.UTC),
			Back:  time.Date(2000, 2, 1, 0, 0, 0, 0, time.UTC),
			Now:   now,
		},
		Zoom:  timeline.UnitDay,
		Width: 1000,
	}
}

func TestKey_OrderIndependent(t *testing.T) {
	now := time.Date(2020, 9, 1, 12, 0, 0, 0, time.UTC)
	a := Key(1, []string{"a", "b"}, axisAt(now))
	b := Key(1, []string{"b", "a"}, axisAt(now))
	if a != b {
		t.Errorf("keys differ: %s vs %s", a, b)
	}
	if !strings.HasPrefix(a, keyPrefix+"1:") {
		t.Errorf("key = %s, want generation prefix", a)
	}
}

func TestKey_NowTruncatedToMinute(t *testing.T) {
	base := time.Date(2020, 9, 1, 12, 0, 0, 0, time.UTC)
	if Key(0, nil, axisAt(base)) != Key(0, nil, axisAt(base.Add(30*time.Second))) {
		t.Error("requests within one minute should share a key")
	}
	if Key(0, nil, axisAt(base)) == Key(0, nil, axisAt(base.Add(time.Minute))) {
		t.Error("requests a minute apart should not share a key")
	}
}

func TestKey_VariesWithInputs(t *testing.T) {
	now := time.Date(2020, 9, 1, 12, 0, 0, 0, time.UTC)
	base := Key(0, []string{"a"}, axisAt(now))

	wider := axisAt(now)
	wider.Width = 2000
	zoomed := axisAt(now)
	zoomed.Zoom = timeline.UnitMonth

	for name, k := range map[string]string{
		"generation": Key(1, []string{"a"}, axisAt(now)),
		"layers":     Key(0, []string{"b"}, axisAt(now)),
		"width":      Key(0, []string{"a"}, wider),
		"zoom":       Key(0, []string{"a"}, zoomed),
	} {
		if k == base {
			t.Errorf("%s: key unchanged", name)
		}
	}
}

func TestDisabledCache(t *testing.T) {
	ctx := context.Background()
	for name, c := range map[string]*Coverage{
		"nil":       nil,
		"no client": NewCoverage(Open("", "", 0), time.Minute, nil),
	} {
		if c.Enabled() {
			t.Errorf("%s: should be disabled", name)
		}
		if err := c.Ping(ctx); err != nil {
			t.Errorf("%s: Ping = %v", name, err)
		}
		c.Put(ctx, nil, axisAt(time.Now()), []timeline.LayerCoverage{{LayerID: "x"}})
		c.Bump(ctx)
		if _, ok := c.Get(ctx, nil, axisAt(time.Now())); ok {
			t.Errorf("%s: Get should miss", name)
		}
	}
}

func TestZeroTTLDisables(t *testing.T) {
	c := NewCoverage(Open("127.0.0.1:6379", "", 0), 0, nil)
	if c.Enabled() {
		t.Error("zero ttl should disable the cache")
	}
}

func newRedisCache(t *testing.T) (*Coverage, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	rc := Open(mr.Addr(), "", 0)
	t.Cleanup(func() { _ = rc.Close() })
	return NewCoverage(rc, time.Minute, nil), mr
}

func TestRedis_PutGetRoundTrip(t *testing.T) {
	c, mr := newRedisCache(t)
	ctx := context.Background()
	if err := c.Ping(ctx); err != nil {
		t.Fatalf("Ping: %v", err)
	}

	now := time.Date(2020, 9, 1, 12, 0, 0, 0, time.UTC)
	start := time.Date(2000, 1, 1, 0, 0, 0, 0, time.UTC)
	want := []timeline.LayerCoverage{
		{
			LayerID: "MODIS_Terra_NDVI_8Day",
			Mode:    timeline.ModeMulti,
			Lines: []timeline.Line{
				{Key: "a", Kind: timeline.MultiOther, Start: start, End: start.AddDate(0, 0, 8)},
				{Key: "b", Kind: timeline.MultiMinute, Start: start, End: start.Add(10 * time.Minute)},
			},
		},
		{
			LayerID: "VIIRS_SNPP_CorrectedReflectance",
			Mode:    timeline.ModeContainer,
			Lines:   []timeline.Line{{Key: "c", Kind: timeline.Container, Start: start, End: now}},
		},
	}
	ids := []string{"MODIS_Terra_NDVI_8Day", "VIIRS_SNPP_CorrectedReflectance"}

	if _, ok := c.Get(ctx, ids, axisAt(now)); ok {
		t.Fatal("empty cache should miss")
	}
	c.Put(ctx, ids, axisAt(now), want)
	if ttl := mr.TTL(Key(0, ids, axisAt(now))); ttl != time.Minute {
		t.Errorf("ttl = %s, want 1m", ttl)
	}

	got, ok := c.Get(ctx, []string{ids[1], ids[0]}, axisAt(now.Add(20*time.Second)))
	if !ok {
		t.Fatal("expected hit")
	}
	if len(got) != len(want) {
		t.Fatalf("layers = %d, want %d", len(got), len(want))
	}
	for i := range want {
		if got[i].LayerID != want[i].LayerID || got[i].Mode != want[i].Mode {
			t.Errorf("layer %d = %s/%s, want %s/%s", i, got[i].LayerID, got[i].Mode, want[i].LayerID, want[i].Mode)
		}
		if len(got[i].Lines) != len(want[i].Lines) {
			t.Fatalf("layer %d lines = %d, want %d", i, len(got[i].Lines), len(want[i].Lines))
		}
		for j, w := range want[i].Lines {
			g := got[i].Lines[j]
			if g.Kind != w.Kind || !g.Start.Equal(w.Start) || !g.End.Equal(w.End) {
				t.Errorf("line %s = %+v, want %+v", w.Key, g, w)
			}
		}
	}
}

func TestRedis_BumpOrphansEntries(t *testing.T) {
	c, mr := newRedisCache(t)
	ctx := context.Background()
	now := time.Date(2020, 9, 1, 12, 0, 0, 0, time.UTC)
	ids := []string{"a"}

	c.Put(ctx, ids, axisAt(now), []timeline.LayerCoverage{{LayerID: "a"}})
	c.Bump(ctx)
	if _, ok := c.Get(ctx, ids, axisAt(now)); ok {
		t.Error("entry from the previous generation should miss")
	}
	if gen, _ := mr.Get(genKey); gen != "1" {
		t.Errorf("generation = %q, want 1", gen)
	}

	c.Put(ctx, ids, axisAt(now), []timeline.LayerCoverage{{LayerID: "a"}})
	if _, ok := c.Get(ctx, ids, axisAt(now)); !ok {
		t.Error("entry from the current generation should hit")
	}
	if !strings.HasPrefix(Key(1, ids, axisAt(now)), keyPrefix+"1:") || !mr.Exists(Key(1, ids, axisAt(now))) {
		t.Error("entry should be stored under generation 1")
	}
}

func TestRedis_ExpiredEntryMisses(t *testing.T) {
	c, mr := newRedisCache(t)
	ctx := context.Background()
	now := time.Date(2020, 9, 1, 12, 0, 0, 0, time.UTC)

	c.Put(ctx, nil, axisAt(now), []timeline.LayerCoverage{{LayerID: "a"}})
	mr.FastForward(2 * time.Minute)
	if _, ok := c.Get(ctx, nil, axisAt(now)); ok {
		t.Error("expired entry should miss")
	}
}
