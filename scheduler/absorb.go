// Copyright (c) HashiCorp, Inc.
// SPDX-License-Identifier: BUSL-1.1

package scheduler

import (
	"github.com/hashicorp/nomad-nodeselect/gres"
	"github.com/hashicorp/nomad-nodeselect/nodeset"
	"github.com/hashicorp/nomad-nodeselect/structs"
)

// jobGRESRequest extracts the caller's *gres.Request from the job's
// opaque GRES field, if any.
func jobGRESRequest(job *structs.Job) *gres.Request {
	if r, ok := job.GRES.(*gres.Request); ok {
		return r
	}
	return nil
}

// socketGRESOf extracts the node's socket GRES inventory from its
// opaque AvailableResources field, if any.
func socketGRESOf(avail *structs.AvailableResources) gres.SocketGRES {
	if sg, ok := avail.SockGRESList.(gres.SocketGRES); ok {
		return sg
	}
	return nil
}

// absorbRequired runs every required node through select_cores and
// cpus_to_use exactly like a normal pick, inserting each into selected
// and decrementing the shared remaining-counters, a step reused
// verbatim by consec/dfly/topo/block. A required node with no
// usable resources, or one that would push max_nodes below zero, fails
// the whole call.
func absorbRequired(ctx *structs.EvalContext, gresSched gres.Scheduler, selected *nodeset.Set, remCPUs, remMaxCPUs *int64, accum *gres.Accumulator) error {
	req := ctx.Job.ReqNodeBitmap
	if req == nil || req.Empty() {
		return nil
	}
	gresReq := jobGRESRequest(ctx.Job)

	for _, idx := range req.Ordered() {
		if ctx.MaxNodes <= 0 {
			return ErrMaxNodesExceeded
		}
		if err := SelectCores(ctx, gresSched, idx, ctx.ReqNodes); err != nil {
			return err
		}
		avail := ctx.AvailResArray[idx]
		if avail == nil || avail.AvailCPUs == 0 {
			return ErrRequiredNodeUnavailable
		}

		used := CPUsToUse(ctx, idx, *remMaxCPUs, ctx.ReqNodes)

		if gresReq != nil {
			sockets := socketGRESOf(avail)
			if err := gresSched.Add(gresReq, sockets, &avail.AvailCPUs); err != nil {
				return err
			}
			gresSched.Consec(accum, gresReq, sockets)
		}

		selected.Insert(idx)
		*remCPUs -= used
		*remMaxCPUs -= used
		ctx.MaxNodes--
		if ctx.ReqNodes > 0 {
			ctx.ReqNodes--
		}
		if ctx.MinNodes > 0 {
			ctx.MinNodes--
		}
	}
	return nil
}

// reconcileNodeBounds folds the job's requested node count toward
// min_nodes when the job tracks GRES as a per-job aggregate (an exact
// node count keeps GRES accounting simple), and toward the larger of
// min/req otherwise. busy, lln, and serial all reconcile this way;
// spread skips it.
func reconcileNodeBounds(ctx *structs.EvalContext, hasPerJobGRES bool) {
	if hasPerJobGRES {
		if ctx.MinNodes < ctx.ReqNodes {
			ctx.ReqNodes = ctx.MinNodes
		}
	} else if ctx.MinNodes > ctx.ReqNodes {
		ctx.ReqNodes = ctx.MinNodes
	}
}

// capMaxNodesByNumTasks caps max_nodes at the job's task count for
// busy/lln/serial; spread does not apply this cap.
func capMaxNodesByNumTasks(ctx *structs.EvalContext) {
	if ctx.Job.NumTasks > 0 && int64(ctx.MaxNodes) > ctx.Job.NumTasks {
		ctx.MaxNodes = int(ctx.Job.NumTasks)
	}
}
