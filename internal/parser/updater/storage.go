package updater

import (
	"time"

	"github.com/valutatrade/hub/internal/entities"
)

type Storage interface {
	SaveSnapshot(pairs map[string]entities.RateInfo, lastRefresh time.Time, source string) error
	AppendHistory(entries []entities.HistoryEntry) error
}
