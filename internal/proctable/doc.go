// Package proctable derives the sorted, filtered process rows shown in the
// host and GPU process panels, and keeps the selection attached to a PID
// while rows appear, vanish and reorder between snapshots.
package proctable
