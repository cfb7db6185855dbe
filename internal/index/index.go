package index

// LayerIndex defines the interface for layer indexing operations.
// Consumers should depend on this interface rather than the concrete *DB type
// to facilitate testing with mocks.
type LayerIndex interface {
	UpsertLayer(r LayerRow) error
	DeleteLayer(id string) error
	DeleteBySource(path string) (string, error)
	GetLayer(id string) (*LayerRow, error)
	ListLayers(q ListQuery) ([]LayerRow, int, error)
	AllLayers() ([]LayerRow, error)
	Search(query string, limit int) ([]SearchResult, error)
	GetChecksum(path string) (string, error)
	AllChecksums() (map[string]string, error)
	Ping() error
	Close() error
}

// Verify *DB satisfies LayerIndex at compile time.
var _ LayerIndex = (*DB)(nil)
