// Package history keeps fixed-capacity ring buffers of timestamped samples
// for trend graphs.
//
// The scheduler is the only writer: after each poll it calls Store.Push with
// the new snapshot. Renderers read through Store.Values for sparklines or
// Store.View for a chronological walk. Capacity never changes during a run,
// and series keep filling whether or not graphs are on screen.
package history
