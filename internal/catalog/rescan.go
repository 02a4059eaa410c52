package catalog

import (
	"context"
	"log/slog"
	"time"
)

// RescanService rescans the catalog on a fixed interval until its context
// is cancelled. It implements suture.Service.
type RescanService struct {
	catalog  *Catalog
	interval time.Duration
	logger   *slog.Logger
	onScan   func(Counts)
}

// NewRescanService returns a service rescanning every interval. onScan, when
// set, receives the counts of each successful scan.
func NewRescanService(c *Catalog, interval time.Duration, logger *slog.Logger, onScan func(Counts)) *RescanService {
	if interval <= 0 {
		interval = 5 * time.Minute
	}
	return &RescanService{catalog: c, interval: interval, logger: logger, onScan: onScan}
}

func (s *RescanService) Serve(ctx context.Context) error {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			counts, err := s.catalog.Scan()
			if err != nil {
				// Keep serving the previous snapshot.
				s.logger.Error("catalog rescan failed", "error", err)
				continue
			}
			s.logger.Debug("catalog rescanned",
				"base", counts.Base, "licensed", counts.Licensed, "children", counts.Children)
			if s.onScan != nil {
				s.onScan(counts)
			}
		}
	}
}

func (s *RescanService) String() string {
	return "catalog-rescan"
}
