// Package scheduler owns the polling cadence.
//
// A Scheduler is created once at startup with the host sources and the GPU
// backend, then Run on its own goroutine. Every tick it collects all
// domains concurrently, builds one immutable metrics.Snapshot, feeds the
// history store and publishes the snapshot through an atomic pointer and a
// latest-wins channel. The UI reads Latest or Updates and never waits on a
// poll.
package scheduler
