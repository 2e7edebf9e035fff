// Copyright (c) HashiCorp, Inc.
// SPDX-License-Identifier: BUSL-1.1

package scheduler

import (
	"sort"

	"github.com/hashicorp/nomad-nodeselect/gres"
	"github.com/hashicorp/nomad-nodeselect/nodeset"
	"github.com/hashicorp/nomad-nodeselect/structs"
)

// EvalDragonfly targets a two-tier dragonfly fabric: it walks candidate
// weight buckets ascending, and within each bucket tries to fit as much
// of the request as it can onto a single leaf switch first, only
// spilling onto additional leaves (clearing the BestSwitch advisory)
// when one leaf cannot cover what that bucket still owes. req_switch is
// meaningless past 1 on this topology and is clamped accordingly.
func EvalDragonfly(ctx *structs.EvalContext, gresSched gres.Scheduler) error {
	if gresSched == nil {
		gresSched = gres.NullScheduler{}
	}
	if ctx.Switches == nil || len(ctx.Switches.Switches) == 0 {
		return ErrNoTopSwitch
	}
	if ctx.Job.ReqSwitch > 1 {
		ctx.Debugf("dragonfly topology only has one useful switch tier, clamping req_switch", "requested", ctx.Job.ReqSwitch)
		ctx.Job.ReqSwitch = 1
	}
	ctx.BestSwitch = true

	gresReq := jobGRESRequest(ctx.Job)
	gresSched.Init(gresReq)

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

	done := func() bool {
		return remCPUs <= 0 && ctx.ReqNodes <= 0 && gresSched.Test(gresReq, ctx.Job.ID)
	}
	if done() {
		ctx.NodeMap = selected
		return nil
	}

	pool := candidates.Difference(selected)
	leaves := ctx.Switches.Leaves()
	if len(leaves) == 0 {
		return ErrNoTopSwitch
	}

	buckets := BuildWeightBuckets(ctx, pool)
	usedLeaf := false

	type leafPick struct {
		idx  int
		pool *nodeset.Set
	}

	for _, bucket := range buckets {
		if done() || ctx.MaxNodes <= 0 {
			break
		}
		bucketPool := bucket.Nodes.Intersect(pool)

		var ranked []leafPick
		for _, li := range leaves {
			sw := ctx.Switches.Switches[li]
			overlap := sw.NodeBitmap.Intersect(bucketPool)
			if !overlap.Empty() {
				ranked = append(ranked, leafPick{idx: li, pool: overlap})
			}
		}
		sort.Slice(ranked, func(i, j int) bool { return ranked[i].pool.Size() > ranked[j].pool.Size() })

		for _, lp := range ranked {
			if done() || ctx.MaxNodes <= 0 {
				break
			}
			if usedLeaf {
				// Spilling past the first, best-fit leaf costs locality.
				ctx.BestSwitch = false
			}
			if pickRun(ctx, gresSched, gresReq, lp.pool.Ordered(), selected, &remCPUs, &remMaxCPUs, accum, done) {
				usedLeaf = true
			}
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
