package engine

import "github.com/shirokuma-kb/shirokuma/internal/database"

// GetStats aggregates per-type and per-status item counts for get_stats.
func (e *Engine) GetStats() (*database.Stats, error) {
	stats, err := database.GetStats(e.db)
	if err != nil {
		return nil, internalError("get_stats", err)
	}
	return stats, nil
}
