// Package events carries task and dispatcher lifecycle events out of
// the core.
//
// The core emits; it never formats or routes. Two backends implement
// the Stream interface:
//
//   - MemoryStream: channel fan-out for tests and single-process use
//   - NATSStream: JSON messages on "<prefix><event type>" subjects
//
// Delivery is best-effort: a subscriber that falls behind misses
// events rather than blocking the dispatcher. The store remains the
// source of truth; events are a monitoring surface.
package events
