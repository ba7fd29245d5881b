// Package shutdown sequences graceful teardown of the daemon.
//
// Components register into ordered phases: the HTTP server stops
// accepting requests first, the dispatcher drains its in-flight batch
// next, and the store and event stream close last. Handlers in the
// same phase stop concurrently. Signal handling is opt-in through
// HandleSignals.
package shutdown
