package progress

import (
	"context"

	"github.com/SantiZetina/steamcodle/internal/models"
)

// Repository defines the interface for durable player progress: the
// per-session stats snapshot and the process-wide recently served ring.
type Repository interface {
	// GetStats loads a session's stats snapshot, applying any pending
	// version migration. Absent or corrupt values decode to defaults.
	GetStats(ctx context.Context, input *GetStatsInput) (*models.StatsSnapshot, error)

	// SaveStats persists a session's stats snapshot wholesale.
	SaveStats(ctx context.Context, input *SaveStatsInput) error

	// GetHistory loads the recently served title ids, oldest first.
	GetHistory(ctx context.Context) ([]int, error)

	// SaveHistory persists the recently served ring wholesale.
	SaveHistory(ctx context.Context, input *SaveHistoryInput) error
}
