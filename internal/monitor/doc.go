// Package monitor runs the continuous fleet monitoring loop.
//
// The engine owns its device and alert state exclusively; nothing outside
// the foreground loop mutates it. Background discovery, when enabled, runs
// on its own timer and communicates only through a bounded message channel
// that the foreground loop drains at the top of each tick. This removes
// any shared-lock reasoning between the two tasks.
//
// Each tick collects stats for the filtered device set concurrently, joins
// the results, then applies alert evaluation and cache updates
// sequentially. Temperature alerts fire on readings strictly above the
// threshold; hashrate-drop alerts fire only when a previous reading exists
// for the address; a device that stops answering transitions to offline
// with a single alert, and recovers silently on the next successful
// collection.
package monitor
