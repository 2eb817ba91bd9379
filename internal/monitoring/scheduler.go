package monitoring

import (
	"context"
	"time"

	"github.com/isdelr/discordin/internal/services"
	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog/log"
)

// EventPruner periodically deletes activity events older than the retention period.
type EventPruner struct {
	events    services.EventServiceProvider
	schedule  string
	retention time.Duration
	cron      *cron.Cron
	now       func() time.Time
}

// NewEventPruner creates a pruner running on the given standard cron schedule.
func NewEventPruner(events services.EventServiceProvider, schedule string, retention time.Duration) *EventPruner {
	return &EventPruner{
		events:    events,
		schedule:  schedule,
		retention: retention,
		cron:      cron.New(),
		now:       time.Now,
	}
}

// Start registers the prune job and starts the cron scheduler.
func (p *EventPruner) Start() error {
	if _, err := p.cron.AddFunc(p.schedule, p.prune); err != nil {
		return err
	}
	log.Info().Str("schedule", p.schedule).Dur("retention", p.retention).Msg("Starting event pruner")
	p.cron.Start()
	return nil
}

// Stop halts the scheduler and waits for a running prune to finish.
func (p *EventPruner) Stop() {
	<-p.cron.Stop().Done()
	log.Info().Msg("Stopped event pruner")
}

func (p *EventPruner) prune() {
	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()

	before := p.now().Add(-p.retention)
	removed, err := p.events.PruneEvents(ctx, before)
	if err != nil {
		log.Error().Err(err).Time("before", before).Msg("Failed to prune events")
		return
	}
	log.Info().Int64("removed", removed).Time("before", before).Msg("Pruned old events")
}
