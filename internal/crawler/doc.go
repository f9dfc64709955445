// Package crawler holds the shared vocabulary of the mirror: fetch requests,
// directory cache entries, outcomes, sentinel errors, and the small
// interfaces the worker and dispatcher are composed from.
//
// The packages implementing these interfaces live next to it:
// queue/memory (priority queue), storage/local (cache and blob store),
// failures (failure log), fetcher/* (HTTP), listing (link extraction),
// worker (per-request state machine) and dispatcher (bounded pool).
package crawler
