package outbox

import (
	"context"

	"rankgate/internal/events"
)

// Direct is a Publisher that skips the outbox table and hands events straight
// to a Sink. It backs the in-memory stores, which have no transaction to join.
type Direct struct {
	sink Sink
}

func NewDirect(sink Sink) *Direct {
	return &Direct{sink: sink}
}

func (d *Direct) Publish(ctx context.Context, evts ...events.Event) error {
	if len(evts) == 0 {
		return nil
	}
	envelopes := make([]events.Envelope, 0, len(evts))
	for _, e := range evts {
		env, err := events.Seal(e)
		if err != nil {
			return err
		}
		envelopes = append(envelopes, env)
	}
	return d.sink.Send(ctx, envelopes)
}
