package metrics

import (
	"log"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// PrometheusSink implements Sink using the Prometheus client library.
// All methods are non-blocking and fire-and-forget.
// Registration errors are logged but never propagated.
type PrometheusSink struct {
	// Scheduler metrics
	ticksTotal       prometheus.Counter
	tickErrorsTotal  prometheus.Counter
	jobsClaimedTotal prometheus.Counter
	tickDuration     prometheus.Histogram

	// Dispatcher metrics
	publishAttemptsTotal *prometheus.CounterVec
	retryAttemptsTotal   *prometheus.CounterVec
	jobOutcomesTotal     *prometheus.CounterVec
	publishDuration      prometheus.Histogram
	jobsInFlight         prometheus.Gauge

	// Dispatch bus metrics
	bufferSize      prometheus.Gauge
	emitErrorsTotal prometheus.Counter

	// Sweeper metrics
	staleJobsFound     prometheus.Gauge
	abandonedJobsTotal prometheus.Counter

	// Leader election metrics
	leaderStatus prometheus.Gauge
}

// NewPrometheusSink creates a new Prometheus metrics sink.
// If registration fails, it logs a warning and returns a functional sink.
func NewPrometheusSink(reg prometheus.Registerer) *PrometheusSink {
	s := &PrometheusSink{}
	s.initSchedulerMetrics(reg)
	s.initDispatcherMetrics(reg)
	s.initBusMetrics(reg)
	s.initSweeperMetrics(reg)
	return s
}

func (s *PrometheusSink) initSchedulerMetrics(reg prometheus.Registerer) {
	s.ticksTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "socialstream_scheduler_ticks_total",
		Help: "Total number of scheduler ticks processed.",
	})
	s.tickErrorsTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "socialstream_scheduler_tick_errors_total",
		Help: "Total number of scheduler tick errors.",
	})
	s.jobsClaimedTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "socialstream_scheduler_jobs_claimed_total",
		Help: "Total number of due jobs claimed for dispatch.",
	})
	s.tickDuration = prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "socialstream_scheduler_tick_duration_seconds",
		Help:    "Duration of each scheduler tick in seconds.",
		Buckets: []float64{0.01, 0.05, 0.1, 0.5, 1, 2, 5, 10},
	})

	s.register(reg, s.ticksTotal, "socialstream_scheduler_ticks_total")
	s.register(reg, s.tickErrorsTotal, "socialstream_scheduler_tick_errors_total")
	s.register(reg, s.jobsClaimedTotal, "socialstream_scheduler_jobs_claimed_total")
	s.register(reg, s.tickDuration, "socialstream_scheduler_tick_duration_seconds")
}

func (s *PrometheusSink) initDispatcherMetrics(reg prometheus.Registerer) {
	s.publishAttemptsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "socialstream_dispatcher_publish_attempts_total",
		Help: "Total number of per-platform publish attempts.",
	}, []string{"platform", "outcome"})

	s.retryAttemptsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "socialstream_dispatcher_retry_attempts_total",
		Help: "Total number of second-pass retry attempts (excludes first attempt).",
	}, []string{"platform"})

	s.jobOutcomesTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "socialstream_dispatcher_job_outcomes_total",
		Help: "Total number of terminal job outcomes.",
	}, []string{"outcome"})

	s.publishDuration = prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "socialstream_dispatcher_publish_duration_seconds",
		Help:    "Adapter publish latency in seconds (excludes retry backoff).",
		Buckets: []float64{0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30, 60},
	})

	s.jobsInFlight = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "socialstream_dispatcher_jobs_in_flight",
		Help: "Number of jobs currently being dispatched.",
	})

	s.register(reg, s.publishAttemptsTotal, "socialstream_dispatcher_publish_attempts_total")
	s.register(reg, s.retryAttemptsTotal, "socialstream_dispatcher_retry_attempts_total")
	s.register(reg, s.jobOutcomesTotal, "socialstream_dispatcher_job_outcomes_total")
	s.register(reg, s.publishDuration, "socialstream_dispatcher_publish_duration_seconds")
	s.register(reg, s.jobsInFlight, "socialstream_dispatcher_jobs_in_flight")
}

func (s *PrometheusSink) initBusMetrics(reg prometheus.Registerer) {
	s.bufferSize = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "socialstream_dispatch_bus_buffer_size",
		Help: "Current number of claimed jobs waiting in the dispatch bus.",
	})
	s.emitErrorsTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "socialstream_dispatch_bus_emit_errors_total",
		Help: "Total number of emit errors (buffer full).",
	})

	s.register(reg, s.bufferSize, "socialstream_dispatch_bus_buffer_size")
	s.register(reg, s.emitErrorsTotal, "socialstream_dispatch_bus_emit_errors_total")
}

func (s *PrometheusSink) initSweeperMetrics(reg prometheus.Registerer) {
	s.staleJobsFound = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "socialstream_sweeper_stale_jobs",
		Help: "Number of stale claimed jobs found in the last sweep cycle.",
	})
	s.abandonedJobsTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "socialstream_sweeper_abandoned_jobs_total",
		Help: "Total number of stuck jobs marked failed by the sweeper.",
	})
	s.leaderStatus = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "socialstream_leader_status",
		Help: "1 when this instance holds the scheduler leader lock.",
	})

	s.register(reg, s.staleJobsFound, "socialstream_sweeper_stale_jobs")
	s.register(reg, s.abandonedJobsTotal, "socialstream_sweeper_abandoned_jobs_total")
	s.register(reg, s.leaderStatus, "socialstream_leader_status")
}

// register attempts to register a collector, logging any errors without propagating them.
func (s *PrometheusSink) register(reg prometheus.Registerer, c prometheus.Collector, name string) {
	if err := reg.Register(c); err != nil {
		log.Printf("metrics: failed to register %s: %v", name, err)
	}
}

// Scheduler metrics implementation

func (s *PrometheusSink) TickStarted() {
	s.ticksTotal.Inc()
}

func (s *PrometheusSink) TickCompleted(duration time.Duration, jobsClaimed int, err error) {
	s.tickDuration.Observe(duration.Seconds())
	s.jobsClaimedTotal.Add(float64(jobsClaimed))
	if err != nil {
		s.tickErrorsTotal.Inc()
	}
}

// Dispatcher metrics implementation

func (s *PrometheusSink) PublishAttemptCompleted(platform, outcome string, duration time.Duration) {
	s.publishAttemptsTotal.WithLabelValues(platform, outcome).Inc()
	s.publishDuration.Observe(duration.Seconds())
}

func (s *PrometheusSink) RetryAttempt(platform string) {
	s.retryAttemptsTotal.WithLabelValues(platform).Inc()
}

func (s *PrometheusSink) JobOutcome(outcome string) {
	s.jobOutcomesTotal.WithLabelValues(outcome).Inc()
}

func (s *PrometheusSink) JobsInFlightIncr() {
	s.jobsInFlight.Inc()
}

func (s *PrometheusSink) JobsInFlightDecr() {
	s.jobsInFlight.Dec()
}

// Dispatch bus metrics implementation

func (s *PrometheusSink) BufferSizeUpdate(size int) {
	s.bufferSize.Set(float64(size))
}

func (s *PrometheusSink) EmitError() {
	s.emitErrorsTotal.Inc()
}

// Sweeper metrics implementation

func (s *PrometheusSink) StaleJobsFound(count int) {
	s.staleJobsFound.Set(float64(count))
}

func (s *PrometheusSink) JobAbandoned() {
	s.abandonedJobsTotal.Inc()
}

// Leader election metrics implementation

func (s *PrometheusSink) LeaderStatusChanged(isLeader bool) {
	if isLeader {
		s.leaderStatus.Set(1)
		return
	}
	s.leaderStatus.Set(0)
}
