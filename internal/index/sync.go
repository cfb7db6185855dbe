package index

import (
	"log/slog"

	"github.com/starford/layerline/internal/catalog"
	"github.com/starford/layerline/internal/storage"
)

// Sync walks the catalogue and brings the index up to date:
//   - new/changed definition files are parsed and upserted
//   - invalid files and files removed from disk are dropped from the index
func Sync(db *DB, store storage.Provider, logger *slog.Logger) error {
	metas, err := store.List("")
	if err != nil {
		return err
	}

	checksums, err := db.AllChecksums()
	if err != nil {
		return err
	}

	disk := make(map[string]struct{}, len(metas))
	for _, m := range metas {
		disk[m.Path] = struct{}{}

		if checksums[m.Path] == m.Checksum {
			continue
		}

		data, err := store.Read(m.Path)
		if err != nil {
			logger.Warn("sync: read failed", slog.String("path", m.Path), slog.String("error", err.Error()))
			continue
		}
		id, err := IndexFile(db, m.Path, data)
		if err != nil {
			logger.Warn("sync: skipping invalid layer", slog.String("path", m.Path), slog.String("error", err.Error()))
			_, _ = db.DeleteBySource(m.Path)
			continue
		}
		logger.Debug("sync: indexed", slog.String("path", m.Path), slog.String("layer", id))
	}

	// Remove stale entries.
	for p := range checksums {
		if _, ok := disk[p]; !ok {
			if _, err := db.DeleteBySource(p); err != nil {
				logger.Warn("sync: delete failed", slog.String("path", p), slog.String("error", err.Error()))
			} else {
				logger.Debug("sync: removed stale", slog.String("path", p))
			}
		}
	}

	return nil
}

// IndexFile parses a definition and upserts it into the DB. It returns the
// layer id.
func IndexFile(db LayerIndex, path string, data []byte) (string, error) {
	def, err := catalog.Parse(data)
	if err != nil {
		return "", err
	}
	row := LayerRow{
		Layer:    *def.Layer(),
		Path:     path,
		Checksum: storage.Checksum(data),
	}
	if err := db.UpsertLayer(row); err != nil {
		return "", err
	}
	return row.ID, nil
}
