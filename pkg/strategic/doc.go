/*
Package strategic implements the top scheduling level: assigning each
work order to a two-week period over a multi-month horizon under
per-resource period capacities.

Placement walks unscheduled work orders heaviest first and periods
earliest first, accepting the first period with capacity for the full
load vector that is neither excluded for the work order nor globally
locked. The overflow period at the end of the horizon accepts
unconditionally, so capacity exhaustion is planned behavior rather
than an error. Pinned work orders are placed first and skipped by the
destroy step; manual pins and exclusions arrive as requests between
iterations and reset the incumbent so the next score republishes.
*/
package strategic
