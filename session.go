package zinc

import (
	"context"
	"time"

	"github.com/robfig/cron/v3"
)

// session owns the optional background bearer-token refresh scheduling
// named in SPEC_FULL's DOMAIN STACK (robfig/cron/v3 → session.go). Spec §6
// explicitly excludes persisted credential storage, so refresh simply
// re-runs the in-memory handshake on a fixed interval; it never touches
// disk.
type session struct {
	cron *cron.Cron
}

// startSession schedules c.Authenticate to re-run every interval using the
// credentials supplied to the original Open call, keeping the bearer token
// fresh for long-lived clients. Failures are logged, not returned, since
// they run off the main call stack.
func startSession(c *Client, interval time.Duration) *session {
	sched := cron.New()
	username, password := c.cfg.Username, c.cfg.Password

	_, err := sched.AddFunc(everySpec(interval), func() {
		ctx, cancel := context.WithTimeout(context.Background(), c.cfg.RequestTimeout)
		defer cancel()
		if err := c.Authenticate(ctx, username, password); err != nil {
			c.logger.Errorf("background token refresh failed: %v", err)
			return
		}
		c.logger.Infof("background token refresh succeeded")
	})
	if err != nil {
		c.logger.Errorf("failed to schedule background token refresh: %v", err)
		return &session{cron: sched}
	}

	sched.Start()
	return &session{cron: sched}
}

// everySpec renders interval as a robfig/cron "@every" duration spec.
func everySpec(interval time.Duration) string {
	return "@every " + interval.String()
}

func (s *session) stop() {
	if s == nil || s.cron == nil {
		return
	}
	<-s.cron.Stop().Done()
}
