package realtime

import (
	"context"
	"math"

	"github.com/rs/zerolog/log"

	"github.com/semperai/amica-bridge/internal/events"
	"github.com/semperai/amica-bridge/internal/hooks"
)

// ForwardPriority places the forwarding hooks after every application hook,
// so subscribers always see the post-pipeline payload.
const ForwardPriority = math.MaxInt32

// RegisterForwarders installs one forwarding hook per catalog event. Each
// forwarder broadcasts the final context payload to subscribed connections
// and leaves the payload unchanged. The registrations are pinned so remote
// hooks.clear cannot sever the event stream.
func RegisterForwarders(engine *hooks.Engine, broker *Broker) {
	for _, name := range events.All() {
		event := name
		engine.Register(event, func(ctx context.Context, hc hooks.Context) (events.Payload, error) {
			broker.BroadcastEvent(string(event), hc.Payload)
			return nil, nil
		}, hooks.WithPriority(ForwardPriority), hooks.WithPinned())
	}

	log.Info().Int("events", len(events.All())).Msg("Event forwarders registered")
}
