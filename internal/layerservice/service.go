// Package layerservice coordinates the catalogue, the index and the coverage
// calculator.
package layerservice

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"sync"
	"time"

	"github.com/starford/layerline/internal/apperr"
	"github.com/starford/layerline/internal/catalog"
	"github.com/starford/layerline/internal/index"
	"github.com/starford/layerline/internal/metrics"
	"github.com/starford/layerline/internal/models"
	"github.com/starford/layerline/internal/storage"
	"github.com/starford/layerline/internal/timeline"
)

// Notifier receives layer changes; kind is one of the index.Kind* values.
type Notifier func(kind, id string)

// ResponseCache stores whole CoverageAll results. Bump must make every
// earlier entry unreachable.
type ResponseCache interface {
	Get(ctx context.Context, ids []string, axis timeline.Axis) ([]timeline.LayerCoverage, bool)
	Put(ctx context.Context, ids []string, axis timeline.Axis, cov []timeline.LayerCoverage)
	Bump(ctx context.Context)
}

// Service coordinates storage, index and coverage operations.
type Service struct {
	store  storage.Provider
	db     index.LayerIndex
	logger *slog.Logger
	notify Notifier
	cache  ResponseCache

	// calc is not safe for concurrent use.
	mu   sync.Mutex
	calc *timeline.Calculator
}

// Option configures a Service.
type Option func(*Service)

// WithLogger sets the service logger.
func WithLogger(l *slog.Logger) Option {
	return func(s *Service) { s.logger = l }
}

// WithNotifier sets the callback run after every layer mutation.
func WithNotifier(n Notifier) Option {
	return func(s *Service) { s.notify = n }
}

// WithResponseCache shares CoverageAll results through c.
func WithResponseCache(c ResponseCache) Option {
	return func(s *Service) { s.cache = c }
}

// NewService creates a layer service. A nil calc gets a default calculator.
func NewService(store storage.Provider, db index.LayerIndex, calc *timeline.Calculator, opts ...Option) *Service {
	if calc == nil {
		calc = timeline.NewCalculator()
	}
	s := &Service{
		store:  store,
		db:     db,
		calc:   calc,
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// GetLayer returns one indexed layer.
func (s *Service) GetLayer(_ context.Context, id string) (*index.LayerRow, error) {
	return s.db.GetLayer(id)
}

// ListLayers returns a page of layers and the total count.
func (s *Service) ListLayers(_ context.Context, q index.ListQuery) ([]index.LayerRow, int, error) {
	rows, total, err := s.db.ListLayers(q)
	if err != nil {
		return nil, 0, err
	}
	return nonNilSlice(rows), total, nil
}

// Search delegates layer search to the index.
func (s *Service) Search(_ context.Context, query string, limit int) ([]index.SearchResult, error) {
	res, err := s.db.Search(query, limit)
	if err != nil {
		return nil, err
	}
	return nonNilSlice(res), nil
}

// CreateLayer writes a new definition file and indexes it.
func (s *Service) CreateLayer(_ context.Context, l *models.Layer) (*index.LayerRow, error) {
	if _, err := s.db.GetLayer(l.ID); err == nil {
		return nil, apperr.ErrAlreadyExists
	} else if !errors.Is(err, apperr.ErrNotFound) {
		return nil, err
	}
	path := catalog.FileName(l.ID)
	if _, err := s.store.Read(path); err == nil {
		return nil, apperr.ErrAlreadyExists
	}

	data, err := catalog.Marshal(l)
	if err != nil {
		return nil, err
	}
	if err := s.store.Write(path, data); err != nil {
		return nil, err
	}
	if _, err := s.IndexFile(path, data); err != nil {
		return nil, err
	}
	s.changed(index.KindCreated, l.ID)
	return s.db.GetLayer(l.ID)
}

// UpdateLayer rewrites the definition of id. A non-empty ifMatch must equal
// the checksum of the file on disk.
func (s *Service) UpdateLayer(_ context.Context, id string, l *models.Layer, ifMatch string) (*index.LayerRow, error) {
	if l.ID == "" {
		l.ID = id
	}
	if l.ID != id {
		return nil, fmt.Errorf("layerservice: body id %q does not match %q: %w", l.ID, id, apperr.ErrInvalid)
	}
	row, err := s.db.GetLayer(id)
	if err != nil {
		return nil, err
	}
	existing, err := s.store.Read(row.Path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, apperr.ErrNotFound
		}
		return nil, err
	}
	if ifMatch != "" && ifMatch != storage.Checksum(existing) {
		return nil, apperr.ErrConflict
	}

	data, err := catalog.Marshal(l)
	if err != nil {
		return nil, err
	}
	if err := s.store.Write(row.Path, data); err != nil {
		return nil, err
	}
	if _, err := s.IndexFile(row.Path, data); err != nil {
		return nil, err
	}
	s.changed(index.KindUpdated, id)
	return s.db.GetLayer(id)
}

// DeleteLayer removes a layer from storage and index.
func (s *Service) DeleteLayer(_ context.Context, id string) error {
	row, err := s.db.GetLayer(id)
	if err != nil {
		return err
	}
	if err := s.store.Delete(row.Path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return err
	}
	if err := s.db.DeleteLayer(id); err != nil {
		return err
	}
	s.changed(index.KindDeleted, id)
	return nil
}

// Coverage computes the timeline coverage of one layer. A layer that declares
// no dates yields an empty line list.
func (s *Service) Coverage(_ context.Context, id string, axis timeline.Axis) (*timeline.LayerCoverage, error) {
	row, err := s.db.GetLayer(id)
	if err != nil {
		return nil, err
	}
	start := time.Now()
	defer observeDuration(start)
	metrics.CoverageRequestsTotal.WithLabelValues("layer").Inc()

	cov, ok := s.compute(&row.Layer, axis)
	if !ok {
		cov = timeline.LayerCoverage{
			LayerID:  row.ID,
			Title:    row.Title,
			Subtitle: row.Subtitle,
			Header:   timeline.HeaderDateRange(&row.Layer),
			Lines:    []timeline.Line{},
		}
	}
	return &cov, nil
}

// CoverageAll computes coverage for ids in order, or for every indexed layer
// when ids is empty. Layers without dates are skipped.
//
// With a response cache configured, now is rounded down to the minute so a
// cached response never ends past the now of a later request sharing its key.
func (s *Service) CoverageAll(ctx context.Context, ids []string, axis timeline.Axis) ([]timeline.LayerCoverage, error) {
	if s.cache != nil {
		axis.Now = axis.Now.Truncate(time.Minute)
		if cov, ok := s.cache.Get(ctx, ids, axis); ok {
			metrics.CoverageRequestsTotal.WithLabelValues("cache").Inc()
			return cov, nil
		}
	}

	var layers []models.Layer
	if len(ids) == 0 {
		rows, err := s.db.AllLayers()
		if err != nil {
			return nil, err
		}
		for _, r := range rows {
			layers = append(layers, r.Layer)
		}
	} else {
		for _, id := range ids {
			r, err := s.db.GetLayer(id)
			if err != nil {
				return nil, fmt.Errorf("layerservice: layer %s: %w", id, err)
			}
			layers = append(layers, r.Layer)
		}
	}

	start := time.Now()
	defer observeDuration(start)
	metrics.CoverageRequestsTotal.WithLabelValues("all").Inc()

	out := make([]timeline.LayerCoverage, 0, len(layers))
	for i := range layers {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if cov, ok := s.compute(&layers[i], axis); ok {
			out = append(out, cov)
		}
	}
	if s.cache != nil {
		s.cache.Put(ctx, ids, axis, out)
	}
	return out, nil
}

// Invalidate drops cached intervals of a layer whose definition changed.
func (s *Service) Invalidate(id string) {
	s.mu.Lock()
	s.calc.Forget(id)
	s.mu.Unlock()
}

// HandleCatalogEvent reacts to a change observed on disk by the watcher.
func (s *Service) HandleCatalogEvent(kind, id string) {
	s.logger.Info("catalog change", slog.String("kind", kind), slog.String("layer", id))
	s.changed(kind, id)
}

// IndexFile parses data and upserts it into the index.
func (s *Service) IndexFile(path string, data []byte) (string, error) {
	return index.IndexFile(s.db, path, data)
}

func (s *Service) compute(l *models.Layer, axis timeline.Axis) (timeline.LayerCoverage, bool) {
	s.mu.Lock()
	cov, ok := s.calc.Coverage(l, axis)
	s.mu.Unlock()
	if ok {
		metrics.IntervalsTotal.WithLabelValues(cov.Mode.String()).Add(float64(len(cov.Lines)))
	}
	return cov, ok
}

func (s *Service) changed(kind, id string) {
	s.Invalidate(id)
	if s.cache != nil {
		s.cache.Bump(context.Background())
	}
	metrics.CatalogEventsTotal.WithLabelValues(kind).Inc()
	if s.notify != nil {
		s.notify(kind, id)
	}
}

func observeDuration(start time.Time) {
	metrics.CoverageDurationMs.Observe(float64(time.Since(start).Microseconds()) / 1000)
}

func nonNilSlice[T any](s []T) []T {
	if s == nil {
		return []T{}
	}
	return s
}
