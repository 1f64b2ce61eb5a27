package rates

import "github.com/valutatrade/hub/internal/entities"

type Storage interface {
	LoadSnapshot() (entities.Snapshot, error)
	UpdatePair(key string, entry entities.SnapshotEntry, source string) error
}
