/*
Package operational implements the per-worker operational level: the
timeline engine that turns delegated activities into a minute-accurate
schedule of wrench time, breaks, off-shift hours, toolbox talks and
non-productive filler.

# Architecture

Each worker has its own operational actor. Its repair step is the
timeline engine:

	┌──────────────── TIMELINE ENGINE (repair) ─────────────────┐
	│                                                            │
	│  For each delegated activity:                              │
	│   1. Resolve upstream window                               │
	│      tactical day range > strategic period > availability  │
	│   2. FirstAvailableStart: scan gaps between scheduled      │
	│      blocks, clipped to the window, advance past any       │
	│      break/off-shift/toolbox at the gap start              │
	│   3. PlaceWrench: split the activity's duration around     │
	│      every recurring event, consuming each in full         │
	│                                                            │
	│  Then Fill: walk from availability start, jumping over     │
	│  scheduled blocks and emitting break / off-shift /         │
	│  toolbox / non-productive events until the availability    │
	│  finish, clipping the last emit to the window edge.        │
	└────────────────────────────────────────────────────────────┘

The result tiles the worker's availability window exactly: every
instant belongs to exactly one assignment and every assignment's span
equals its event duration. Violations abort the iteration; the
previously published timeline stands.

# Event arithmetic

Two primitives drive the engine. NextEvent computes, for each of
break, toolbox and off-shift, the delta from the current time of day
to the interval start, keeps the non-negative ones and returns the
minimum (ties resolve break < toolbox < off-shift). AdvancePastEvent
consumes any interval containing the current moment through to its
end, wrapping past midnight when the interval does (an off-shift of
19:00..07:00 ends on the next calendar day).

# Objective

The objective is the wrench-time share of productive time:

	wrenchSeconds × 100 / (wrench + break + toolbox + nonProductive)

Off-shift time is ignored. Scoring also refreshes each activity's
marginal fitness, the non-productive time flanking its wrench block,
which the supervisor level reads as a placement-quality proxy.

# Sentinels

Every timeline carries two sentinel activities at work order number
zero: unavailable blocks immediately before and after the availability
window. They keep the gap arithmetic total and are never destroyed.
*/
package operational
