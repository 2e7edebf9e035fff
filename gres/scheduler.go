// Copyright (c) HashiCorp, Inc.
// SPDX-License-Identifier: BUSL-1.1

// Package gres defines the narrow interface the node-selection core
// consumes from the GRES (generic resource) subsystem. The
// GRES subsystem itself — device inventory, topology-aware allocation,
// plugin loading — is out of scope for this module; only the seven calls
// eval_nodes makes are modeled here, plus a couple of reference
// implementations useful for tests and simple callers.
package gres

import (
	"github.com/hashicorp/nomad-nodeselect/nodeset"
	"github.com/hashicorp/nomad-nodeselect/structs"
)

// Request is a job's generic-resource ask. PerJob is set when the job
// tracks GRES as an aggregate across the whole allocation (e.g. "4 GPUs
// total") rather than identically on every node.
type Request struct {
	JobID  string
	PerJob map[string]int64
}

// SocketGRES is the per-node inventory of generic resources available
// across that node's sockets, keyed by GRES type name.
type SocketGRES map[string]int64

// Accumulator tentatively aggregates GRES across a run of nodes or a
// block group before it is known whether that run/block will be
// selected (gres_sched_consec).
type Accumulator struct {
	Counts map[string]int64
}

// Scheduler is the collaborator interface eval_nodes and its strategies
// call into. Implementations own all GRES bookkeeping; this package's
// callers only ever see the seven operations below.
type Scheduler interface {
	// Init reports whether req carries per-job (aggregate) GRES
	// constraints that require tracking across the whole selection.
	Init(req *Request) bool

	// Add commits req's GRES demand against sockets on the node being
	// finalized, reducing *availCPUs if the node cannot host the
	// request without giving up CPUs (e.g. exclusive-socket devices).
	Add(req *Request, sockets SocketGRES, availCPUs *int64) error

	// Consec tentatively folds sockets into accum without committing.
	Consec(accum *Accumulator, req *Request, sockets SocketGRES)

	// Sufficient reports whether accum satisfies req.
	Sufficient(req *Request, accum *Accumulator) bool

	// Test reports whether the GRES committed so far for jobID
	// satisfies req. Unlike Sufficient, this checks committed state,
	// not a tentative accumulator.
	Test(req *Request, jobID string) bool

	// String renders accum for diagnostics only; it never influences
	// control flow.
	String(accum *Accumulator) string

	// FilterSockCore prunes sockets/cores on the node that cannot serve
	// the request and recomputes avail.AvailCPUs accordingly. This is
	// select_cores's GRES hook.
	FilterSockCore(node *structs.Node, avail *structs.AvailableResources, coreBitmap *nodeset.Set, remNodes int) error
}
