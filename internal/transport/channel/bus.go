// Package channel provides the in-memory dispatch bus between the scheduler
// and the dispatch workers.
package channel

import (
	"context"
	"errors"

	"github.com/socailstream/social-stream-backend/internal/domain"
)

// ErrBufferFull is returned when the bus cannot accept another job without
// blocking. The job stays Claimed and the recovery sweep re-dispatches it.
var ErrBufferFull = errors.New("dispatch bus buffer full")

// MetricsSink defines the interface for recording bus metrics.
// All methods must be non-blocking and fire-and-forget.
type MetricsSink interface {
	BufferSizeUpdate(size int)
	EmitError()
}

type Option func(*Bus)

// WithMetrics attaches a metrics sink to the bus.
func WithMetrics(sink MetricsSink) Option {
	return func(b *Bus) { b.metrics = sink }
}

// Bus carries claimed jobs to the dispatch workers over a buffered channel.
type Bus struct {
	ch      chan domain.Job
	metrics MetricsSink // optional, nil = disabled
}

func NewBus(buffer int, opts ...Option) *Bus {
	b := &Bus{ch: make(chan domain.Job, buffer)}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// Emit hands a claimed job to the workers. Emit never blocks: a full buffer
// returns ErrBufferFull so a slow dispatch backlog cannot stall the
// scheduler's tick.
func (b *Bus) Emit(ctx context.Context, job domain.Job) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	select {
	case b.ch <- job:
		if b.metrics != nil {
			b.metrics.BufferSizeUpdate(len(b.ch))
		}
		return nil
	default:
		if b.metrics != nil {
			b.metrics.EmitError()
		}
		return ErrBufferFull
	}
}

// Channel exposes the receive side for dispatch workers.
func (b *Bus) Channel() <-chan domain.Job {
	return b.ch
}
