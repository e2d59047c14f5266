package announce

import (
	"fmt"

	"github.com/robfig/cron/v3"

	"whisperdrop/internal/drop"
	appLog "whisperdrop/internal/log"
)

// Announcer logs each drop as it unlocks in the scheduler's default zone.
type Announcer struct {
	sched *drop.Scheduler
	c     *cron.Cron
	spec  string
}

// New prepares an Announcer; call Start to begin firing.
func New(sched *drop.Scheduler) (*Announcer, error) {
	a := &Announcer{
		sched: sched,
		spec:  Spec(sched),
	}
	loc := sched.DefaultLocation()
	a.c = cron.New(
		cron.WithLocation(loc),
		cron.WithLogger(cronLogger{}),
		cron.WithChain(cron.Recover(cronLogger{})),
	)
	if _, err := a.c.AddFunc(a.spec, a.Announce); err != nil {
		return nil, fmt.Errorf("announce: schedule %q: %w", a.spec, err)
	}
	return a, nil
}

// Spec returns the standard cron expression for the scheduler's release
// boundary, pinned to its default zone.
func Spec(sched *drop.Scheduler) string {
	b := sched.Boundary()
	return fmt.Sprintf("CRON_TZ=%s %d %d * * *", sched.DefaultLocation().String(), b.Minute, b.Hour)
}

// Start runs the cron scheduler in its own goroutine.
func (a *Announcer) Start() {
	a.c.Start()
	for _, e := range a.c.Entries() {
		appLog.Info("announcer started", "spec", a.spec, "next", e.Next)
	}
}

// Stop halts the scheduler and waits for a running announcement to finish.
func (a *Announcer) Stop() {
	<-a.c.Stop().Done()
}

// Announce logs the drop for the default zone at the current instant.
func (a *Announcer) Announce() {
	d := a.sched.Today("")
	state := "locked"
	if d.Unlocked {
		state = "unlocked"
	}
	appLog.Info("drop "+state,
		"cycle_key", d.CycleKey,
		"time_zone", d.TimeZone,
		"id", d.Entry.ID,
		"title", d.Entry.Title,
		"next_release", d.NextReleaseTime,
	)
}

// cronLogger adapts cron's logger interface to the application log.
type cronLogger struct{}

func (cronLogger) Info(msg string, keysAndValues ...interface{}) {
	appLog.Debug("cron: "+msg, keysAndValues...)
}

func (cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	appLog.Error("cron: "+msg, err, keysAndValues...)
}
