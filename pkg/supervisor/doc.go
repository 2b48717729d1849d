/*
Package supervisor implements the delegation level: for every (worker,
activity) pair under a supervisor, decide Assess, Assign or Drop,
honoring Done and Fixed as immutable. Unassign is never chosen.

Workers unable to perform an activity's craft are dropped; the rest
are ranked by the operational level's marginal fitness and assigned up
to the activity's headcount, remainder assessed. Drops propagate to
the operational actors, which discard the placement on their next
incorporate step.
*/
package supervisor
