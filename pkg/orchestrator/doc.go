/*
Package orchestrator wires the scheduler together: one actor set per
asset, each with its own shared solution store, state-link fan-out for
external mutations, and the query surface the API serves from.

	┌───────────────────── ORCHESTRATOR ────────────────────────┐
	│                                                            │
	│  per asset:                                                │
	│   ┌──────────┐ ┌──────────┐ ┌────────────┐ ┌────────────┐ │
	│   │strategic │ │ tactical │ │ supervisor │ │operational │ │
	│   │  actor   │ │  actor   │ │ actors ×N  │ │ actors ×M  │ │
	│   └────┬─────┘ └────┬─────┘ └─────┬──────┘ └─────┬──────┘ │
	│        └────────────┴─────┬───────┴──────────────┘        │
	│                    shared solution store                   │
	└────────────────────────────────────────────────────────────┘

Actors hold no reference back to the orchestrator. Work-order edits,
user-status toggles and worker changes are applied copy-on-write to
the environment snapshot and fanned out as state links; actors rebuild
their parameters between iterations. A fatal actor exit (error or
contained panic) tears the asset's actor set down and flips the asset
unhealthy. Snapshots persist to the storage layer on a timer and seed
the stores on restart.
*/
package orchestrator
