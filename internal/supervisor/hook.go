package supervisor

import (
	"github.com/rs/zerolog"
	"github.com/thejerf/suture/v4"
)

// EventHook logs suture events through zerolog.
func EventHook(log zerolog.Logger) suture.EventHook {
	return func(e suture.Event) {
		var z *zerolog.Event
		switch e.Type() {
		case suture.EventTypeServicePanic, suture.EventTypeStopTimeout:
			z = log.Error()
		case suture.EventTypeServiceTerminate, suture.EventTypeBackoff:
			z = log.Warn()
		default:
			z = log.Info()
		}
		z.Fields(e.Map()).Msg(e.String())
	}
}
