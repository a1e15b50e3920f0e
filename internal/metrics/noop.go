package metrics

import "time"

// NoopSink is a no-op implementation of Sink.
// Used when metrics are disabled to avoid nil checks.
type NoopSink struct{}

// NewNoopSink returns a no-op metrics sink.
func NewNoopSink() *NoopSink {
	return &NoopSink{}
}

func (n *NoopSink) TickStarted()                                                      {}
func (n *NoopSink) TickCompleted(duration time.Duration, jobsClaimed int, err error)  {}
func (n *NoopSink) PublishAttemptCompleted(platform, outcome string, d time.Duration) {}
func (n *NoopSink) RetryAttempt(platform string)                                      {}
func (n *NoopSink) JobOutcome(outcome string)                                         {}
func (n *NoopSink) JobsInFlightIncr()                                                 {}
func (n *NoopSink) JobsInFlightDecr()                                                 {}
func (n *NoopSink) BufferSizeUpdate(size int)                                         {}
func (n *NoopSink) EmitError()                                                        {}
func (n *NoopSink) StaleJobsFound(count int)                                          {}
func (n *NoopSink) JobAbandoned()                                                     {}
func (n *NoopSink) LeaderStatusChanged(isLeader bool)                                 {}
