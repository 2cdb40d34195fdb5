package jobs

import (
	"context"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/choreista/platform_be_chores/internal/metrics"
	"github.com/choreista/platform_be_chores/internal/utils"
)

const purgeTimeout = time.Minute

// SessionPurger removes expired sessions.
type SessionPurger interface {
	PurgeExpiredSessions(ctx context.Context) (int64, error)
}

// PurgeSessions runs one purge and records how many sessions were removed.
func PurgeSessions(ctx context.Context, p SessionPurger) error {
	ctx, cancel := context.WithTimeout(ctx, purgeTimeout)
	defer cancel()

	n, err := p.PurgeExpiredSessions(ctx)
	if err != nil {
		utils.Logger.WithError(err).Error("Scheduled session purge failed")
		return err
	}
	metrics.RecordSessionsPurged(n)
	utils.Logger.Infof("Session purge removed %d expired sessions", n)
	return nil
}

// Start schedules the purge on schedule (standard cron or @every) and starts the
// scheduler. Stop the returned cron on shutdown.
func Start(schedule string, p SessionPurger) (*cron.Cron, error) {
	c := cron.New()
	if _, err := c.AddFunc(schedule, func() {
		_ = PurgeSessions(context.Background(), p)
	}); err != nil {
		return nil, err
	}
	c.Start()
	return c, nil
}
