// Copyright (c) HashiCorp, Inc.
// SPDX-License-Identifier: BUSL-1.1

package structs

import (
	"time"

	log "github.com/hashicorp/go-hclog"
	"github.com/hashicorp/nomad-nodeselect/config"
	"github.com/hashicorp/nomad-nodeselect/nodeset"
)

// EvalContext is the parameter object threaded through eval_nodes and
// every strategy. It is mutated in place: NodeMap and each
// AvailableResources entry are the "advisory mutation" the package
// purpose statement refers to.
type EvalContext struct {
	Job *Job

	// NodeMap is both input and output: candidates on entry, selected
	// subset on a successful call.
	NodeMap *nodeset.Set

	// AvailCore is the per-node bitmap of candidate cores, keyed by
	// candidate index.
	AvailCore map[nodeset.NodeIndex]*nodeset.Set

	// AvailResArray is the per-node scratch record, keyed by candidate
	// index.
	AvailResArray map[nodeset.NodeIndex]*AvailableResources

	// Nodes is the read-only node-record table, keyed by candidate
	// index.
	Nodes map[nodeset.NodeIndex]*Node

	MinNodes int
	ReqNodes int
	MaxNodes int

	// AvailCPUs is scratch: the CPU count chosen for the node currently
	// under consideration.
	AvailCPUs int64

	CRType CRFlag
	MC     *MCLayout

	EnforceBinding   bool
	FirstPass        bool
	PreferAllocNodes bool

	// IdleNodeBitmap marks nodes with no allocations at all; busy
	// consults it to prefer partially-loaded nodes.
	IdleNodeBitmap *nodeset.Set

	Switches *SwitchTable
	Blocks   *BlockTable

	// GRESFloors carries the GRES-derived CPU floors GetRemMaxCPUs and
	// CPUsToUse need without this package knowing GRES internals.
	GRESFloors GRESCPUFloors

	// CPUsPerCoreFunc models job_mgr_determine_cpus_per_core, an
	// external collaborator hook this package never implements itself.
	CPUsPerCoreFunc func(node *Node, idx nodeset.NodeIndex) int

	// Now is the wall-clock source for wait4switch accounting. Tests
	// inject a fixed clock; production callers leave it nil and get
	// time.Now.
	Now func() time.Time

	Wait4SwitchStart time.Time

	// Tunables is lazily initialized to a zero-value Tunables the first
	// time eval_nodes runs against this context if the caller left it
	// nil, mirroring the one-shot `static bool set` guard in the
	// original source (Design Notes §9).
	Tunables *config.Tunables

	// BestSwitch is the advisory out-flag topology strategies set on a
	// successful call: false means the caller may want to reschedule
	// for better locality.
	BestSwitch bool

	// BlockGRESSummary is a diagnostic-only summary of the GRES consumed
	// by a successful EvalBlock call (via gres.Scheduler.String), never
	// consulted by selection logic itself.
	BlockGRESSummary string

	Logger log.Logger
}

// Clock returns ctx.Now, defaulting to time.Now.
func (ctx *EvalContext) Clock() time.Time {
	if ctx.Now != nil {
		return ctx.Now()
	}
	return time.Now()
}

// TimeWaiting returns how long the job has been waiting for a better
// switch placement.
func (ctx *EvalContext) TimeWaiting() time.Duration {
	if ctx.Wait4SwitchStart.IsZero() {
		return 0
	}
	return ctx.Clock().Sub(ctx.Wait4SwitchStart)
}

// log returns a non-nil logger, defaulting to a discard logger so
// callers never need a nil check.
func (ctx *EvalContext) log() log.Logger {
	if ctx.Logger != nil {
		return ctx.Logger
	}
	return log.NewNullLogger()
}

// Debugf emits a diagnostic line. Logging never
// influences control flow.
func (ctx *EvalContext) Debugf(msg string, args ...any) {
	ctx.log().Debug(msg, args...)
}

// TunablesOrDefault returns ctx.Tunables, lazily initializing it to a
// zero-value Tunables on first use.
func (ctx *EvalContext) TunablesOrDefault() *config.Tunables {
	if ctx.Tunables == nil {
		ctx.Tunables = &config.Tunables{}
	}
	return ctx.Tunables
}
