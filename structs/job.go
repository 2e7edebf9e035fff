// Copyright (c) HashiCorp, Inc.
// SPDX-License-Identifier: BUSL-1.1

package structs

import (
	"time"

	"github.com/hashicorp/nomad-nodeselect/nodeset"
)

// MCLayout is the multicore layout request (mc_ptr):
// per-task CPU and task-density constraints that select_cores turns
// into a min/max task count per node.
type MCLayout struct {
	CPUsPerTask   int64
	NTasksPerNode int64
	NTasksPerBoard  int64
	NTasksPerSocket int64
	NTasksPerCore   int64
	NTasksPerTRES   int64
}

// Job is the resource request being scheduled. Fields left at their
// zero value are treated as "unset" (mirroring NO_VAL/NO_VAL64,
// modeled as Go zero values or explicit pointers where zero is a
// meaningful request, per Design Notes §9).
type Job struct {
	ID string

	MinCPUs int64
	// MaxCPUs is nil when the job did not request an upper bound.
	MaxCPUs *int64

	// ReqNodeBitmap names nodes the job explicitly requires; nil means
	// no required nodes.
	ReqNodeBitmap *nodeset.Set

	// ReqSwitch and Wait4Switch bound topology locality: reschedule
	// advice (best_switch) is only advisory before Wait4Switch elapses.
	ReqSwitch   int
	Wait4Switch time.Duration

	// GRES is the opaque per-job generic-resource request, interpreted
	// only by the caller's gres.Scheduler.
	GRES any

	// PNMinCPUs is a per-node CPU floor, keyed by candidate index.
	PNMinCPUs map[nodeset.NodeIndex]int64

	// ArbitraryTPN is an optional per-node CPU override for required
	// nodes. No strategy in this package reads it: required nodes are
	// charged through CPUsToUse like any other node (see DESIGN.md).
	ArbitraryTPN map[nodeset.NodeIndex]int64

	WholeNode  bool
	Contiguous bool
	Overcommit bool
	SpreadJob  bool

	NumTasks int64

	MinNodes int
	MaxNodes int
}

// MinGRESCPU and MinJobGRESCPU model the GRES-derived CPU floors
// GetRemMaxCPUs references. They are supplied by the
// caller's GRES accounting (derived from the job's GRES request) rather
// than computed here, since GRES interpretation is out of core scope.
type GRESCPUFloors struct {
	MinGRESCPU    int64
	MinJobGRESCPU int64
}
