package memorystorage

import (
	"github.com/patric-chuzhbe/adshrt/internal/db/jsondb"
)

// MemoryStorage is a jsondb without a backing file; everything is lost on exit.
type MemoryStorage struct {
	*jsondb.JSONDB
}

func New() (*MemoryStorage, error) {
	return &MemoryStorage{
		JSONDB: &jsondb.JSONDB{
			Cache: jsondb.NewCache(),
		},
	}, nil
}

func (theStorage *MemoryStorage) Close() error {
	return nil
}
