/*
Package types defines the scheduling domain model: work orders and
their activities, craft resources, the period/day time environment,
workers with their shift structure, and the status-code and weight
machinery used to rank work orders.
*/
package types
