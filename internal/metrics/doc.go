// Package metrics defines the Snapshot data model and the host metric
// sources that fill it.
//
// # Snapshot
//
// A Snapshot is built once per poll tick and never mutated after it is
// published. Each Source owns exactly one Domain of the Snapshot and writes
// only that part, so sources can run concurrently against the same value.
//
// When a source fails, the scheduler calls Snapshot.Carry to copy the
// previous tick's value for that domain and mark it stale.
//
// # GPU fields
//
// GPUDevice values carry a GPUFieldSet naming the fields the device
// reports. Fields outside the set are unsupported and are zeroed by
// Normalize; renderers show them as N/A.
//
// # Host sources
//
// HostSources returns gopsutil-backed sources for host info, CPU, memory,
// disks, network, sensors and processes. CPU and per-process usage are
// computed from deltas between consecutive calls, so the first tick
// reports 0%.
package metrics
