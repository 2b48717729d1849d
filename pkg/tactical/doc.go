/*
Package tactical implements the day-placement level: within the
periods chosen by strategic, every activity is placed on specific days
of a rolling horizon under per-resource daily capacities.

Placement advances day by day, consuming min(remaining capacity,
operating time, work left) per day, activities in ascending order and
sequential across days. A day without remaining capacity abandons the
current start day; when every allowed start day fails the work order
is released back to strategic visibility, which is planned behavior
and produces no tactical placement and no error.
*/
package tactical
