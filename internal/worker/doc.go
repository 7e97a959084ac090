// Package worker holds the background jobs run by cmd/worker: niche
// collection and re-ranking, conversion report sync and the daily report
// archive. Each job has a Start loop that blocks until its context ends and
// a single-pass method the loop calls.
package worker
