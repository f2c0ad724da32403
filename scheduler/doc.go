// Package scheduler drives the ingestion fan-out on a fixed wall-clock
// cadence. Each cycle runs the configured feeds, logs a summary, and
// sleeps whatever remains of the interval so cycle start times stay
// evenly spaced. A quiet-hours window suppresses ingestion without
// stopping the loop, and only context cancellation terminates it.
package scheduler
