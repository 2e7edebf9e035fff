// Copyright (c) HashiCorp, Inc.
// SPDX-License-Identifier: BUSL-1.1

package scheduler

import (
	"github.com/hashicorp/nomad-nodeselect/gres"
	"github.com/hashicorp/nomad-nodeselect/nodeset"
	"github.com/hashicorp/nomad-nodeselect/structs"
)

// weightGroupOrder returns the order in which a strategy wants to try
// the members of one weight bucket. Every weight-group strategy
// (spread, busy, lln, serial) differs from the others only in this
// ordering; the surrounding bucket walk, counter bookkeeping, and stop
// condition are shared.
type weightGroupOrder func(ctx *structs.EvalContext, bucket *structs.WeightBucket) []nodeset.NodeIndex

// weightGroupOptions tunes the shared driver for one strategy.
type weightGroupOptions struct {
	order         weightGroupOrder
	capByNumTasks bool
	skipReconcile bool
}

// runWeightGroup implements the shared template busy/lln/serial/spread
// all follow: absorb required nodes, reconcile node-count bounds,
// then walk ascending weight buckets picking nodes in the strategy's
// own order until the stop predicate is met.
func runWeightGroup(ctx *structs.EvalContext, gresSched gres.Scheduler, opts weightGroupOptions) error {
	if gresSched == nil {
		gresSched = gres.NullScheduler{}
	}
	ctx.BestSwitch = true

	gresReq := jobGRESRequest(ctx.Job)
	hasPerJobGRES := gresSched.Init(gresReq)

	remCPUs := ctx.Job.MinCPUs
	remMaxCPUs := GetRemMaxCPUs(ctx.Job, ctx.GRESFloors, ctx.ReqNodes)
	accum := &gres.Accumulator{}

	candidates := ctx.NodeMap.Copy()
	selected := nodeset.New(0)
	if ctx.Job.ReqNodeBitmap != nil {
		selected = ctx.Job.ReqNodeBitmap.Copy()
	}

	if err := absorbRequired(ctx, gresSched, selected, &remCPUs, &remMaxCPUs, accum); err != nil {
		ctx.NodeMap = nodeset.New(0)
		return err
	}

	if !opts.skipReconcile {
		reconcileNodeBounds(ctx, hasPerJobGRES)
	}
	if opts.capByNumTasks {
		capMaxNodesByNumTasks(ctx)
	}

	done := func() bool {
		return remCPUs <= 0 && ctx.ReqNodes <= 0 && gresSched.Test(gresReq, ctx.Job.ID)
	}

	if done() {
		ctx.NodeMap = selected
		return nil
	}

	pool := candidates.Difference(selected)
	buckets := BuildWeightBuckets(ctx, pool)

	for _, bucket := range buckets {
		for _, idx := range opts.order(ctx, bucket) {
			if ctx.MaxNodes <= 0 || done() {
				break
			}
			if err := SelectCores(ctx, gresSched, idx, ctx.ReqNodes); err != nil {
				continue
			}
			avail := ctx.AvailResArray[idx]
			if avail == nil || avail.AvailCPUs == 0 {
				continue
			}

			used := CPUsToUse(ctx, idx, remMaxCPUs, ctx.ReqNodes)
			if used == 0 && remCPUs > 0 {
				continue
			}

			if gresReq != nil {
				sockets := socketGRESOf(avail)
				if err := gresSched.Add(gresReq, sockets, &avail.AvailCPUs); err != nil {
					continue
				}
				gresSched.Consec(accum, gresReq, sockets)
			}

			selected.Insert(idx)
			remCPUs -= used
			remMaxCPUs -= used
			ctx.MaxNodes--
			if ctx.ReqNodes > 0 {
				ctx.ReqNodes--
			}
		}
		if done() {
			break
		}
	}

	if !done() {
		ctx.NodeMap = nodeset.New(0)
		if remCPUs <= 0 && ctx.ReqNodes <= 0 {
			return ErrGRESInsufficient
		}
		return ErrInsufficientResources
	}

	ctx.NodeMap = selected
	return nil
}
