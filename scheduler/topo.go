// Copyright (c) HashiCorp, Inc.
// SPDX-License-Identifier: BUSL-1.1

package scheduler

import (
	"sort"

	"github.com/hashicorp/nomad-nodeselect/gres"
	"github.com/hashicorp/nomad-nodeselect/nodeset"
	"github.com/hashicorp/nomad-nodeselect/structs"
)

// topoSnapshot captures everything a target-node-count attempt mutates
// so an overshooting attempt can be rolled back before the next,
// smaller target is tried.
type topoSnapshot struct {
	selected   *nodeset.Set
	remCPUs    int64
	remMaxCPUs int64
	maxNodes   int
	accum      gres.Accumulator
	avail      map[nodeset.NodeIndex]structs.AvailableResources
}

func snapshotTopo(selected *nodeset.Set, remCPUs, remMaxCPUs int64, ctx *structs.EvalContext, accum *gres.Accumulator) topoSnapshot {
	avail := make(map[nodeset.NodeIndex]structs.AvailableResources, len(ctx.AvailResArray))
	for idx, a := range ctx.AvailResArray {
		if a != nil {
			avail[idx] = *a
		}
	}
	return topoSnapshot{
		selected:   selected.Copy(),
		remCPUs:    remCPUs,
		remMaxCPUs: remMaxCPUs,
		maxNodes:   ctx.MaxNodes,
		accum:      *accum,
		avail:      avail,
	}
}

func (s topoSnapshot) restore(ctx *structs.EvalContext, accum *gres.Accumulator) (*nodeset.Set, int64, int64) {
	ctx.MaxNodes = s.maxNodes
	*accum = s.accum
	for idx, a := range s.avail {
		*ctx.AvailResArray[idx] = a
	}
	return s.selected.Copy(), s.remCPUs, s.remMaxCPUs
}

func minNodesFloor(ctx *structs.EvalContext) int {
	if ctx.MinNodes > 0 {
		return ctx.MinNodes
	}
	return 1
}

// chooseTopSwitch returns the index of the highest-level switch whose
// NodeBitmap is a superset of target, or -1 if none qualifies. The top
// switch is the one spanning every candidate the request could still
// need, not the most local one that happens to cover target.
func chooseTopSwitch(sw *structs.SwitchTable, target *nodeset.Set) int {
	best := -1
	for i, s := range sw.Switches {
		if !s.NodeBitmap.Superset(target) {
			continue
		}
		if best == -1 || s.Level > sw.Switches[best].Level {
			best = i
		}
	}
	return best
}

// leavesUnder returns the indexes of every leaf switch reachable from
// top (its NodeBitmap is a subset of top's).
func leavesUnder(sw *structs.SwitchTable, top *structs.Switch) []int {
	var leaves []int
	for _, li := range sw.Leaves() {
		if top.NodeBitmap.Superset(sw.Switches[li].NodeBitmap) {
			leaves = append(leaves, li)
		}
	}
	return leaves
}

func leavesHoldingRequired(sw *structs.SwitchTable, leaves []int, required *nodeset.Set) []int {
	if required == nil || required.Empty() {
		return nil
	}
	var out []int
	for _, li := range leaves {
		if sw.Switches[li].NodeBitmap.Intersects(required) {
			out = append(out, li)
		}
	}
	return out
}

// distanceOrderLeaves orders leaves by their accumulated switches_dist
// to the already-required leaves, ascending. With no required leaves
// every distance collapses to 0 and table order is preserved.
func distanceOrderLeaves(sw *structs.SwitchTable, leaves, requiredLeaves []int) []int {
	dist := make(map[int]uint32, len(leaves))
	for _, li := range leaves {
		var sum uint32
		for _, rl := range requiredLeaves {
			sum = structs.AddDistance(sum, distanceBetween(sw, rl, li))
		}
		dist[li] = sum
	}
	ordered := append([]int(nil), leaves...)
	sort.SliceStable(ordered, func(i, j int) bool { return dist[ordered[i]] < dist[ordered[j]] })
	return ordered
}

func distanceBetween(sw *structs.SwitchTable, from, to int) uint32 {
	s := sw.Switches[from]
	if to < 0 || to >= len(s.Distance) {
		return 0
	}
	return s.Distance[to]
}

func countLeavesUsed(sw *structs.SwitchTable, leaves []int, selected *nodeset.Set) int {
	n := 0
	for _, li := range leaves {
		if sw.Switches[li].NodeBitmap.Intersects(selected) {
			n++
		}
	}
	return n
}

// EvalTopo targets a generic, possibly multi-level switch tree: it picks
// the highest-level switch spanning the required nodes (or, absent any,
// the lowest-weight bucket of the outstanding pool), then fills that switch's leaves in order of their
// switches_dist to any already-required leaf, accumulating nodes across
// as many leaves as it takes. If the result touches more leaves than
// job.ReqSwitch and there is still time to wait (job.Wait4Switch), it
// retries at a smaller node-count target rather than accept a request
// spread across extra leaves.
func EvalTopo(ctx *structs.EvalContext, gresSched gres.Scheduler) error {
	if gresSched == nil {
		gresSched = gres.NullScheduler{}
	}
	if ctx.Switches == nil || len(ctx.Switches.Switches) == 0 {
		return ErrNoTopSwitch
	}
	ctx.BestSwitch = true

	gresReq := jobGRESRequest(ctx.Job)
	gresSched.Init(gresReq)

	remCPUs := ctx.Job.MinCPUs
	remMaxCPUs := GetRemMaxCPUs(ctx.Job, ctx.GRESFloors, ctx.ReqNodes)
	accum := &gres.Accumulator{}

	candidates := ctx.NodeMap.Copy()
	required := ctx.Job.ReqNodeBitmap
	selected := nodeset.New(0)
	if required != nil {
		selected = required.Copy()
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

	target := required
	if target == nil || target.Empty() {
		outstanding := candidates.Difference(selected)
		target = outstanding
		if buckets := BuildWeightBuckets(ctx, outstanding); len(buckets) > 0 {
			target = buckets[0].Nodes.Intersect(outstanding)
		}
	}
	topIdx := chooseTopSwitch(ctx.Switches, target)
	if topIdx < 0 {
		ctx.NodeMap = nodeset.New(0)
		if required != nil && !required.Empty() {
			return ErrSwitchLocality
		}
		return ErrNoTopSwitch
	}
	top := ctx.Switches.Switches[topIdx]

	leaves := leavesUnder(ctx.Switches, top)
	if len(leaves) == 0 {
		ctx.NodeMap = nodeset.New(0)
		return ErrNoTopSwitch
	}
	requiredLeaves := leavesHoldingRequired(ctx.Switches, leaves, required)
	orderedLeaves := distanceOrderLeaves(ctx.Switches, leaves, requiredLeaves)

	pool := candidates.Difference(selected).Intersect(top.NodeBitmap)

	threshold := ctx.Job.ReqSwitch
	if threshold < 1 {
		threshold = 1
	}
	// A zero Wait4Switch means no deadline was ever configured, so treat
	// it as "still waiting" rather than "already expired".
	canWait := ctx.Job.Wait4Switch <= 0 || ctx.TimeWaiting() < ctx.Job.Wait4Switch

	origReq := ctx.ReqNodes
	baseSnap := snapshotTopo(selected, remCPUs, remMaxCPUs, ctx, accum)

	for tgt := origReq; tgt >= minNodesFloor(ctx); tgt-- {
		selected, remCPUs, remMaxCPUs = baseSnap.restore(ctx, accum)
		ctx.ReqNodes = tgt

		for _, li := range orderedLeaves {
			if done() || ctx.MaxNodes <= 0 {
				break
			}
			leafPool := ctx.Switches.Switches[li].NodeBitmap.Intersect(pool)
			pickRun(ctx, gresSched, gresReq, leafPool.Ordered(), selected, &remCPUs, &remMaxCPUs, accum, done)
		}

		if !done() {
			continue
		}

		overshoot := countLeavesUsed(ctx.Switches, leaves, selected) > threshold
		if !overshoot || tgt == minNodesFloor(ctx) || !canWait {
			ctx.BestSwitch = !overshoot
			ctx.NodeMap = selected
			return nil
		}
	}

	ctx.NodeMap = nodeset.New(0)
	if remCPUs <= 0 && ctx.ReqNodes <= 0 {
		return ErrGRESInsufficient
	}
	return ErrInsufficientResources
}
