package scenario

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog/log"

	"github.com/semperai/amica-bridge/internal/events"
	"github.com/semperai/amica-bridge/internal/hooks"
)

// Trigger is a config-defined scheduled pipeline trigger, e.g. an idle
// animation fired every few minutes.
type Trigger struct {
	Cron    string         `mapstructure:"cron"`
	Event   string         `mapstructure:"event"`
	Payload map[string]any `mapstructure:"payload"`
}

// Scheduler fires catalog events on cron schedules.
type Scheduler struct {
	cron  *cron.Cron
	hooks *hooks.Engine
}

// NewScheduler validates the configured triggers and returns a scheduler
// ready to start. Every trigger must name a catalog event, carry a payload
// that decodes to that event's shape, and have a parseable cron expression.
func NewScheduler(engine *hooks.Engine, triggers []Trigger) (*Scheduler, error) {
	s := &Scheduler{
		cron:  cron.New(),
		hooks: engine,
	}

	for _, trig := range triggers {
		name := events.Name(trig.Event)
		if !events.Valid(name) {
			return nil, fmt.Errorf("scheduled trigger: unknown event %q", trig.Event)
		}

		raw, err := json.Marshal(trig.Payload)
		if err != nil {
			return nil, fmt.Errorf("scheduled trigger %q: %w", trig.Event, err)
		}
		payload, err := events.Decode(name, raw)
		if err != nil {
			return nil, fmt.Errorf("scheduled trigger %q: %w", trig.Event, err)
		}

		if _, err := s.cron.AddFunc(trig.Cron, func() {
			s.hooks.Trigger(context.Background(), name, payload)
			log.Debug().Str("event", string(name)).Msg("Scheduled trigger fired")
		}); err != nil {
			return nil, fmt.Errorf("scheduled trigger %q: parsing cron %q: %w", trig.Event, trig.Cron, err)
		}
	}

	return s, nil
}

// Start begins firing triggers.
func (s *Scheduler) Start() {
	s.cron.Start()
	log.Info().Int("triggers", len(s.cron.Entries())).Msg("Scheduler started")
}

// Stop stops the scheduler and waits for running triggers.
func (s *Scheduler) Stop() {
	ctx := s.cron.Stop()
	<-ctx.Done()
	log.Info().Msg("Scheduler stopped")
}
