package reference

import (
	"context"
	"time"
)

// RunPeriodicRefresh calls Refresh every interval until ctx ends. Failures
// are logged by the reload itself and the previous snapshot keeps serving.
// A non-positive interval returns immediately.
func (s *Store) RunPeriodicRefresh(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		return
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := s.Refresh(ctx); err != nil && ctx.Err() == nil {
				s.logger.Warn("reference_refresh_failed", "source", s.source.Describe(), "error", err)
			}
		}
	}
}
