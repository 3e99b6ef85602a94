package progress

import "github.com/SantiZetina/steamcodle/internal/models"

type GetStatsInput struct {
	SessionID string
}

type SaveStatsInput struct {
	SessionID string
	Stats     *models.StatsSnapshot
}

type SaveHistoryInput struct {
	IDs []int
}
