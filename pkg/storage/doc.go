/*
Package storage persists the shared solution tuples. The Store
interface is backed by a single-file BoltDB database holding one JSON
document per asset; snapshots are written on a timer and read back to
seed the solution stores on startup. There is no bit-exact
compatibility requirement with any external format.
*/
package storage
