/*
Package alns provides the generic actor loop shared by the four
scheduling levels: adaptive large neighborhood search over a shared,
atomically swapped solution snapshot.

# Architecture

One actor owns one goroutine and one Algorithm implementation. The
loop never suspends mid-iteration:

	┌────────────────────── ALNS LOOP ──────────────────────────┐
	│                                                            │
	│  between iterations: drain mailbox + state links           │
	│                                                            │
	│  1. Load the current shared snapshot                       │
	│  2. IncorporateSystemSolution — reconcile with upstream    │
	│  3. Unschedule — destroy a random subset                   │
	│  4. Schedule  — repair with the level's placement policy   │
	│  5. Objective — score against the incumbent                │
	│  6. Better?   — publish via compare-and-swap, preserving   │
	│                 the other three sub-solutions              │
	└────────────────────────────────────────────────────────────┘

Any step reporting a broken invariant discards the iteration: the
error is logged and counted, the local solution rolls back to the last
published state, and the previously published snapshot stays current.
Parameter-lookup misses on units that were legitimately removed
mid-iteration are a skip, not an error.

Requests are served synchronously between iterations through a bounded
mailbox; callers attach a deadline and receive a timeout error when
the actor cannot answer in time. Shutdown is cooperative via context
cancellation observed between iterations.
*/
package alns
