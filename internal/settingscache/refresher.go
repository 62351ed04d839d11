package settingscache

import (
	"context"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog"
)

// DefaultSchedule reloads settings every five minutes
const DefaultSchedule = "@every 5m"

const refreshTimeout = 15 * time.Second

// Refresher reloads the cache on a cron schedule
type Refresher struct {
	cache  *Cache
	cron   *cron.Cron
	logger zerolog.Logger
}

// NewRefresher validates schedule and prepares a stopped Refresher
func NewRefresher(cache *Cache, schedule string, logger zerolog.Logger) (*Refresher, error) {
	if schedule == "" {
		schedule = DefaultSchedule
	}

	r := &Refresher{
		cache:  cache,
		cron:   cron.New(),
		logger: logger.With().Str("component", "settings_refresher").Logger(),
	}

	if _, err := r.cron.AddFunc(schedule, r.refresh); err != nil {
		return nil, fmt.Errorf("invalid settings refresh schedule %q: %w", schedule, err)
	}
	return r, nil
}

// Start warms the cache and starts the schedule
func (r *Refresher) Start() {
	r.refresh()
	r.cron.Start()
	r.logger.Info().Msg("Settings refresher started")
}

// Stop stops the schedule and waits for a running refresh
func (r *Refresher) Stop() {
	<-r.cron.Stop().Done()
	r.logger.Info().Msg("Settings refresher stopped")
}

func (r *Refresher) refresh() {
	ctx, cancel := context.WithTimeout(context.Background(), refreshTimeout)
	defer cancel()

	if _, err := r.cache.Refresh(ctx); err != nil {
		r.logger.Warn().Err(err).Msg("Failed to refresh public settings")
		return
	}
	r.logger.Debug().Msg("Public settings refreshed")
}
