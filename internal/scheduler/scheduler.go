package scheduler

import (
	"context"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"

	appLog "multical/internal/log"
	"multical/internal/metrics"
	"multical/internal/model"
	"multical/internal/registry"
)

// Report is what one status tick observed.
type Report struct {
	Calendar string
	At       time.Time
	Status   string
}

// Scheduler periodically logs whether the current calendar is busy and
// refreshes the stored-events gauges.
type Scheduler struct {
	cron *cron.Cron
	reg  *registry.Registry
	spec string
	now  func() time.Time
}

// New builds a scheduler running spec (standard 5-field cron) in zone.
func New(reg *registry.Registry, spec, zone string) (*Scheduler, error) {
	loc, err := model.LoadZone(zone)
	if err != nil {
		return nil, err
	}
	s := &Scheduler{
		cron: cron.New(cron.WithLocation(loc)),
		reg:  reg,
		spec: spec,
		now:  time.Now,
	}
	if _, err := s.cron.AddFunc(spec, func() { s.Tick() }); err != nil {
		return nil, fmt.Errorf("add status job %q: %w", spec, err)
	}
	return s, nil
}

// Start runs the cron loop until ctx is done.
func (s *Scheduler) Start(ctx context.Context) {
	s.cron.Start()
	appLog.Info("scheduler started", "spec", s.spec)
	<-ctx.Done()
	s.Stop()
}

func (s *Scheduler) Stop() {
	<-s.cron.Stop().Done()
	appLog.Info("scheduler stopped")
}

// Tick reads the current calendar's status at the present wall clock of
// its zone. With no calendar selected it only refreshes the gauges.
func (s *Scheduler) Tick() (Report, bool) {
	for _, name := range s.reg.ListCalendarNames() {
		if cal, err := s.reg.Calendar(name); err == nil {
			metrics.SetStoredEvents(name, cal.Len())
		}
	}

	cal, err := s.reg.Current()
	if err != nil {
		appLog.Debug("status tick skipped", "reason", err.Error())
		return Report{}, false
	}
	loc, err := model.LoadZone(cal.Timezone())
	if err != nil {
		appLog.Error("status tick failed", err, "calendar", cal.Name())
		return Report{}, false
	}

	at := model.Wall(s.now().In(loc))
	r := Report{Calendar: cal.Name(), At: at, Status: cal.StatusAt(at)}
	appLog.Info("calendar status", "calendar", r.Calendar, "at", at.Format(model.DateTimeLayout), "status", r.Status)
	return r, true
}
