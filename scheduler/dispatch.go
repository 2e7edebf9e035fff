// Copyright (c) HashiCorp, Inc.
// SPDX-License-Identifier: BUSL-1.1

// Package scheduler picks which candidate nodes satisfy a job's
// resource request, choosing among several placement strategies
// depending on the job's flags and the cluster's topology.
package scheduler

import (
	"github.com/hashicorp/nomad-nodeselect/config"
	"github.com/hashicorp/nomad-nodeselect/gres"
	"github.com/hashicorp/nomad-nodeselect/structs"
)

// EvalNodes is the single entry point every strategy funnels through.
// It validates the request against ctx.NodeMap, picks a strategy by
// the job's flags and the cluster's configured topology, and on
// success leaves ctx.NodeMap holding exactly the selected nodes and sets
// AvailCPUs to zero on every AvailResArray record of an unselected node.
func EvalNodes(ctx *structs.EvalContext, gresSched gres.Scheduler) (err error) {
	if gresSched == nil {
		gresSched = gres.NullScheduler{}
	}
	ctx.BestSwitch = true

	if ctx.NodeMap == nil || ctx.NodeMap.Size() < ctx.MinNodes {
		return ErrTooFewCandidates
	}
	if req := ctx.Job.ReqNodeBitmap; req != nil && !req.Empty() && !ctx.NodeMap.Superset(req) {
		return ErrRequiredNodeNotCandidate
	}

	tun := ctx.TunablesOrDefault()

	defer func() {
		if err != nil {
			return
		}
		for idx, avail := range ctx.AvailResArray {
			if avail != nil && !ctx.NodeMap.Check(idx) {
				avail.AvailCPUs = 0
			}
		}
	}()

	switch {
	case blocksOverlapCandidates(ctx):
		return EvalBlock(ctx, gresSched)

	case ctx.Job.SpreadJob:
		return EvalSpread(ctx, gresSched)

	case ctx.PreferAllocNodes && !ctx.Job.Contiguous:
		return EvalBusy(ctx, gresSched)

	case ctx.CRType.Has(structs.CRLLN):
		return EvalLLN(ctx, gresSched)

	case tun.PackSerialAtEnd && ctx.Job.MinCPUs == 1 && ctx.ReqNodes == 1:
		return EvalSerial(ctx, gresSched)

	case hasUsableTopology(ctx, tun):
		if tun.HaveDragonfly {
			return EvalDragonfly(ctx, gresSched)
		}
		return EvalTopo(ctx, gresSched)

	default:
		return EvalConsec(ctx, gresSched)
	}
}

// blocksOverlapCandidates reports whether the cluster has a block
// topology configured that actually reaches into this job's
// candidates, which routes the request to EvalBlock ahead of every
// other rule.
func blocksOverlapCandidates(ctx *structs.EvalContext) bool {
	if ctx.Blocks == nil {
		return false
	}
	for _, b := range ctx.Blocks.Blocks {
		if b.NodeBitmap.Intersects(ctx.NodeMap) {
			return true
		}
	}
	return false
}

// hasUsableTopology reports whether switch topology should drive
// placement: a switch table is configured, the job doesn't demand
// strict index contiguity instead, and either the operator requires
// topology awareness or the job itself asked for a specific switch
// count.
func hasUsableTopology(ctx *structs.EvalContext, tun *config.Tunables) bool {
	if ctx.Switches == nil || len(ctx.Switches.Switches) == 0 {
		return false
	}
	if ctx.Job.Contiguous {
		return false
	}
	return !tun.TopoOptional || ctx.Job.ReqSwitch > 0
}
