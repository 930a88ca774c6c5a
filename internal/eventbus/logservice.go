package eventbus

import (
	"context"

	"github.com/rs/zerolog"
)

// LogService writes every event to a zerolog logger. It is meant to run under
// a supervisor.
type LogService struct {
	Bus *Bus
	Log zerolog.Logger
}

// Serve subscribes and logs until ctx ends.
func (s LogService) Serve(ctx context.Context) error {
	events, err := s.Bus.Subscribe(ctx)
	if err != nil {
		return err
	}
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case e, ok := <-events:
			if !ok {
				if err := ctx.Err(); err != nil {
					return err
				}
				return ErrClosed
			}
			ev := s.Log.Info().Str("event", e.Name).Time("at", e.Time)
			if e.Model != "" {
				ev = ev.Str("model", e.Model)
			}
			ev.Fields(e.Fields).Msg("lifecycle event")
		}
	}
}

func (s LogService) String() string { return "event-log" }
