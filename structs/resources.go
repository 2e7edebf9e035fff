// Copyright (c) HashiCorp, Inc.
// SPDX-License-Identifier: BUSL-1.1

package structs

// AvailableResources is the per-node scratch record the core reads and
// writes during a single eval_nodes call (avail_res_array[i] in
// On success, AvailCPUs holds the final charged CPU count
// for selected nodes and zero for unselected ones.
type AvailableResources struct {
	AvailCPUs     int64
	MaxCPUs       int64
	AvailGPUs     int64
	AvailResCount int64
	SockCount     int

	// SockGRESList is opaque to this package: it is populated and
	// interpreted only by the caller's gres.Scheduler implementation.
	SockGRESList any

	// GRESMinCPUs and GRESMaxTasks are written back by SelectCores and
	// consulted by CPUsToUse.
	GRESMinCPUs  int64
	GRESMaxTasks int64
}

// Reset clears the per-call scratch fields, leaving the record ready for
// reuse across evaluation attempts (e.g. topo's retry-on-overshoot).
func (a *AvailableResources) Reset() {
	a.AvailCPUs = 0
	a.GRESMinCPUs = 0
	a.GRESMaxTasks = 0
}
