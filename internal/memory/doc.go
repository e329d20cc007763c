// Package memory provides in-process implementations of the user store, the
// notification store and the queue. They back the unit and pipeline tests and
// keep the same contracts as the Postgres and broker implementations.
package memory
