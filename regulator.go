package qchsh

/*
Regulator defines an interface for types that regulate the flow of restarts
through the pool.

Each regulator watches the pool's metrics and decides whether new work should
be held back, much like a thermostat keeps a system within its operating range.
The pool consults every registered regulator before scheduling a job and gives
each a chance to recover on every metrics tick.
*/
type Regulator interface {
	// Observe hands the regulator the pool's current metrics.
	Observe(metrics *Metrics)

	// Limit returns true if new work should be refused.
	Limit() bool

	// Renormalize moves the regulator back towards normal operation once
	// the condition that triggered it has passed.
	Renormalize()
}
