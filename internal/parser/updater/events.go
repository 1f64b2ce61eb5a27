package updater

import (
	"context"

	"github.com/valutatrade/hub/internal/entities"
)

// Events notifies collaborators after a persisted cycle. Optional; a nil
// Events disables publishing.
type Events interface {
	PublishUpdated(ctx context.Context, report entities.UpdateReport) error
}
