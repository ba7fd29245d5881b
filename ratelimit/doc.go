// Package ratelimit implements per-client token buckets.
//
// The API middleware keys buckets by API key (or remote host when auth
// is disabled) and calls TryAcquire per request; a miss becomes a 429.
// Buckets refill continuously: a capacity of 60 per minute earns one
// token a second rather than 60 at the top of the minute.
package ratelimit
