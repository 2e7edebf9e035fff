// Copyright (c) HashiCorp, Inc.
// SPDX-License-Identifier: BUSL-1.1

package scheduler

import (
	"sort"

	"github.com/hashicorp/nomad-nodeselect/gres"
	"github.com/hashicorp/nomad-nodeselect/nodeset"
	"github.com/hashicorp/nomad-nodeselect/structs"
)

// EvalBlock targets a block-group topology: it converts the outstanding
// node count into base blocks (BaseBlockSize nodes each) and rounds that
// up to the smallest legal power-of-two group size, unions
// each run of that many consecutive base blocks into a candidate group,
// and tries to satisfy the request from the lowest-weight, tightest-
// fitting group before spilling into additional groups. Within a chosen
// group, nodes are filled one base block at a time. BestSwitch doubles
// as the "stayed within one group" advisory here, since block and
// switch locality are mutually exclusive topologies in practice.
func EvalBlock(ctx *structs.EvalContext, gresSched gres.Scheduler) error {
	if gresSched == nil {
		gresSched = gres.NullScheduler{}
	}
	if ctx.Blocks == nil || len(ctx.Blocks.Blocks) == 0 {
		return ErrNoUsableBlock
	}
	if req := ctx.Job.ReqNodeBitmap; req != nil && !req.Empty() && !blockLocalityOK(ctx.Blocks, req) {
		return ErrBlockLocality
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
		ctx.BlockGRESSummary = gresSched.String(accum)
		return nil
	}

	pool := candidates.Difference(selected)
	want := ctx.ReqNodes
	blocksWanted := want
	if bs := ctx.Blocks.BaseBlockSize; bs > 0 {
		blocksWanted = (want + bs - 1) / bs
	}
	group := ctx.Blocks.AllowedGroupSize(blocksWanted)
	if group < 1 {
		group = len(ctx.Blocks.Blocks)
	}

	// blockGroups unions each legal-sized run of consecutive base blocks
	// into one candidate group, so a request needing more nodes than a
	// single base block holds is ranked and filled against the group's
	// combined bitmap rather than one base block at a time.
	type blockGroup struct {
		blocks  []*structs.Block
		overlap *nodeset.Set
	}
	var groups []blockGroup
	for start := 0; start+group <= len(ctx.Blocks.Blocks); start++ {
		union := nodeset.New(0)
		for _, b := range ctx.Blocks.Blocks[start : start+group] {
			union = union.Union(b.NodeBitmap)
		}
		overlap := union.Intersect(pool)
		if !overlap.Empty() {
			groups = append(groups, blockGroup{blocks: ctx.Blocks.Blocks[start : start+group], overlap: overlap})
		}
	}
	if len(groups) == 0 {
		return ErrNoUsableBlock
	}
	sort.Slice(groups, func(i, j int) bool {
		wi, wj := blockGroupWeight(ctx, groups[i].overlap), blockGroupWeight(ctx, groups[j].overlap)
		if wi != wj {
			return wi < wj
		}
		di := abs(groups[i].overlap.Size() - want)
		dj := abs(groups[j].overlap.Size() - want)
		return di < dj
	})

	for gi, g := range groups {
		if done() || ctx.MaxNodes <= 0 {
			break
		}
		if gi > 0 {
			ctx.BestSwitch = false
		}
		for _, b := range g.blocks {
			if done() || ctx.MaxNodes <= 0 {
				break
			}
			pickRun(ctx, gresSched, gresReq, b.NodeBitmap.Intersect(pool).Ordered(), selected, &remCPUs, &remMaxCPUs, accum, done)
		}
	}

	if !done() {
		ctx.NodeMap = nodeset.New(0)
		if remCPUs <= 0 && ctx.ReqNodes <= 0 {
			return ErrGRESInsufficient
		}
		return ErrNoUsableBlock
	}
	ctx.NodeMap = selected
	ctx.BlockGRESSummary = gresSched.String(accum)
	return nil
}

// blockLocalityOK reports whether some legally-sized contiguous group
// of base blocks covers every node in required.
func blockLocalityOK(blocks *structs.BlockTable, required *nodeset.Set) bool {
	if blocks.BlockLevels == nil {
		return false
	}
	ok := false
	blocks.BlockLevels.ForEach(func(k nodeset.NodeIndex) bool {
		groupSize := 1 << uint(k)
		for start := 0; start+groupSize <= len(blocks.Blocks); start++ {
			union := nodeset.New(0)
			for _, b := range blocks.Blocks[start : start+groupSize] {
				union = union.Union(b.NodeBitmap)
			}
			if union.Superset(required) {
				ok = true
				return false
			}
		}
		return true
	})
	return ok
}

// blockGroupWeight returns the lowest SchedWeight among a group's
// candidate overlap, so groups are ranked lowest-weight first the same
// way a weight bucket is.
func blockGroupWeight(ctx *structs.EvalContext, overlap *nodeset.Set) uint64 {
	var (
		best  uint64
		found bool
	)
	overlap.ForEach(func(idx nodeset.NodeIndex) bool {
		if node := ctx.Nodes[idx]; node != nil && (!found || node.SchedWeight < best) {
			best, found = node.SchedWeight, true
		}
		return true
	})
	return best
}

func abs(n int) int {
	if n < 0 {
		return -n
	}
	return n
}
