/*
Package environment holds the scheduling environment: the work order
catalog, the period and day horizon, the worker pool and the capacity
tables. Published environments are immutable; edits clone the value
and the orchestrator distributes the replacement via state links. The
Builder is the ingest interface — upstream spreadsheet or database
readers end in Builder calls, the core never reads files directly
(the YAML loader here exists for tests and small deployments).
*/
package environment
