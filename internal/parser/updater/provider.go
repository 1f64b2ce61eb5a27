package updater

import (
	"context"

	"github.com/valutatrade/hub/internal/entities"
)

// Provider is one external rate source. FetchRates returns pair-keyed
// normalized results; a failed call reports *entities.ProviderError.
type Provider interface {
	SourceName() string
	FetchRates(ctx context.Context) (map[string]entities.RateInfo, error)
}
