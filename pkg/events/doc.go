/*
Package events provides the state-link broker: when work orders, the
worker pool or the time environment change, the orchestrator publishes
a state link and the broker fans it out to every actor of the touched
asset over buffered channels. Publishing never blocks; a subscriber
with a full buffer is skipped and reconciles from the environment
snapshot on its next rebuild.
*/
package events
