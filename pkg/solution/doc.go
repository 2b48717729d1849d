/*
Package solution defines the four sub-solutions and the shared store
they are published through.

A Snapshot is the tuple (strategic, tactical, supervisor, operational)
and is immutable once published. The Store holds the current-best
snapshot behind an atomic pointer: Load returns a value stable for the
guard's lifetime, Update applies a read-compute-compare-swap whose
function may be re-invoked on contention. Readers always observe either
the pre-update or the post-update snapshot, never an intermediate.

Decisions flow downstream through the snapshot: tactical reads the
strategic period assignments, the supervisor reads tactical day
placements and operational marginal fitness, and each worker's
operational actor reads its delegations and day windows.
*/
package solution
