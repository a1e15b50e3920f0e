package metrics

// Compile-time assertions that both sinks implement the full Sink interface.
var (
	_ Sink = (*NoopSink)(nil)
	_ Sink = (*PrometheusSink)(nil)
)
