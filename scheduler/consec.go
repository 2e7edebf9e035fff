// Copyright (c) HashiCorp, Inc.
// SPDX-License-Identifier: BUSL-1.1

package scheduler

import (
	"github.com/hashicorp/nomad-nodeselect/gres"
	"github.com/hashicorp/nomad-nodeselect/nodeset"
	"github.com/hashicorp/nomad-nodeselect/structs"
)

// consecRun is a maximal run of adjacent candidate indices sharing one
// scheduling weight. requiredIdx is the position within nodes of the
// first required node the run holds, or -1.
type consecRun struct {
	nodes       []nodeset.NodeIndex
	weight      uint64
	requiredIdx int
	used        bool
}

// findConsecRuns partitions candidates' ordered members into maximal
// runs of adjacent, same-weight indices, marking which run (if any)
// holds a required node.
func findConsecRuns(ctx *structs.EvalContext, candidates, required *nodeset.Set) []*consecRun {
	ordered := candidates.Ordered()
	weightOf := func(idx nodeset.NodeIndex) uint64 {
		if node := ctx.Nodes[idx]; node != nil {
			return node.SchedWeight
		}
		return 0
	}

	var runs []*consecRun
	for i := 0; i < len(ordered); {
		w := weightOf(ordered[i])
		j := i + 1
		for j < len(ordered) && ordered[j] == ordered[j-1]+1 && weightOf(ordered[j]) == w {
			j++
		}
		run := &consecRun{nodes: append([]nodeset.NodeIndex(nil), ordered[i:j]...), weight: w, requiredIdx: -1}
		if required != nil {
			for k, idx := range run.nodes {
				if required.Check(idx) {
					run.requiredIdx = k
					break
				}
			}
		}
		runs = append(runs, run)
		i = j
	}
	return runs
}

// runRemainingCount and runCapacity only count nodes in run that have
// not already been picked (required nodes are absorbed, and thus
// selected, before runs are ever ranked).
func runRemainingCount(selected *nodeset.Set, run *consecRun) int {
	n := 0
	for _, idx := range run.nodes {
		if !selected.Check(idx) {
			n++
		}
	}
	return n
}

func runCapacity(ctx *structs.EvalContext, selected *nodeset.Set, run *consecRun) int64 {
	var total int64
	for _, idx := range run.nodes {
		if selected.Check(idx) {
			continue
		}
		if avail := ctx.AvailResArray[idx]; avail != nil {
			total += avail.AvailCPUs
		}
	}
	return total
}

func runSufficient(ctx *structs.EvalContext, selected *nodeset.Set, run *consecRun, remCPUs int64) bool {
	return EnoughNodes(runRemainingCount(selected, run), ctx.ReqNodes, ctx.MinNodes, ctx.ReqNodes) &&
		runCapacity(ctx, selected, run) >= remCPUs
}

// betterRun ranks a ahead of b per the four consec rules: a run holding
// a required node wins; else lower weight wins; at equal weight a
// sufficient run (enough nodes and CPUs) beats an insufficient one,
// among sufficient runs the tightest fit wins, among insufficient runs
// the largest wins.
func betterRun(ctx *structs.EvalContext, selected *nodeset.Set, a, b *consecRun, remCPUs int64) bool {
	aReq, bReq := a.requiredIdx >= 0, b.requiredIdx >= 0
	if aReq != bReq {
		return aReq
	}
	if a.weight != b.weight {
		return a.weight < b.weight
	}
	aSuff := runSufficient(ctx, selected, a, remCPUs)
	bSuff := runSufficient(ctx, selected, b, remCPUs)
	if aSuff != bSuff {
		return aSuff
	}
	aCap, bCap := runCapacity(ctx, selected, a), runCapacity(ctx, selected, b)
	if aSuff {
		return aCap < bCap
	}
	return aCap > bCap
}

func pickBestRun(ctx *structs.EvalContext, selected *nodeset.Set, runs []*consecRun, remCPUs int64) *consecRun {
	var best *consecRun
	for _, r := range runs {
		if r.used || len(r.nodes) == 0 {
			continue
		}
		if best == nil || betterRun(ctx, selected, r, best, remCPUs) {
			best = r
		}
	}
	return best
}

// pickOne runs one node through select_cores/cpus_to_use/GRES and, if
// usable, inserts it into selected and drains the shared counters. It
// reports whether the node was picked.
func pickOne(ctx *structs.EvalContext, gresSched gres.Scheduler, gresReq *gres.Request, idx nodeset.NodeIndex, selected *nodeset.Set, remCPUs, remMaxCPUs *int64, accum *gres.Accumulator) bool {
	if selected.Check(idx) {
		return false
	}
	if err := SelectCores(ctx, gresSched, idx, ctx.ReqNodes); err != nil {
		return false
	}
	avail := ctx.AvailResArray[idx]
	if avail == nil || avail.AvailCPUs == 0 {
		return false
	}
	used := CPUsToUse(ctx, idx, *remMaxCPUs, ctx.ReqNodes)
	if used == 0 && *remCPUs > 0 {
		return false
	}
	if gresReq != nil {
		sockets := socketGRESOf(avail)
		if err := gresSched.Add(gresReq, sockets, &avail.AvailCPUs); err != nil {
			return false
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
	return true
}

// pickRun walks nodes in order, picking each through pickOne until the
// caller's stop predicate fires or nodes is exhausted. It reports
// whether it made any pick. Shared by dfly/topo/block, which each
// resolve their own candidate list and just want an ordered fill.
func pickRun(ctx *structs.EvalContext, gresSched gres.Scheduler, gresReq *gres.Request, nodes []nodeset.NodeIndex, selected *nodeset.Set, remCPUs, remMaxCPUs *int64, accum *gres.Accumulator, done func() bool) bool {
	picked := false
	for _, idx := range nodes {
		if done() || ctx.MaxNodes <= 0 {
			break
		}
		if pickOne(ctx, gresSched, gresReq, idx, selected, remCPUs, remMaxCPUs, accum) {
			picked = true
		}
	}
	return picked
}

// fanOutPick walks outward from centerPos (the run's required node)
// alternating upward and downward, since a required node's neighbors
// are the most locally useful nodes to add next.
func fanOutPick(ctx *structs.EvalContext, gresSched gres.Scheduler, gresReq *gres.Request, run *consecRun, centerPos int, selected *nodeset.Set, remCPUs, remMaxCPUs *int64, accum *gres.Accumulator, done func() bool) {
	up, down := centerPos+1, centerPos-1
	for (up < len(run.nodes) || down >= 0) && !done() && ctx.MaxNodes > 0 {
		if down >= 0 {
			pickOne(ctx, gresSched, gresReq, run.nodes[down], selected, remCPUs, remMaxCPUs, accum)
			down--
		}
		if done() || ctx.MaxNodes <= 0 {
			break
		}
		if up < len(run.nodes) {
			pickOne(ctx, gresSched, gresReq, run.nodes[up], selected, remCPUs, remMaxCPUs, accum)
			up++
		}
	}
}

// bestFitSingle returns the run member whose raw available CPUs come
// closest to remCPUs without going under, or the largest member if none
// reaches it, matching the rem_nodes<=1 "pick one, best-fit" rule.
func bestFitSingle(ctx *structs.EvalContext, selected *nodeset.Set, run *consecRun, remCPUs int64) (nodeset.NodeIndex, bool) {
	var best nodeset.NodeIndex
	var bestCap int64
	found := false
	for _, idx := range run.nodes {
		if selected.Check(idx) {
			continue
		}
		avail := ctx.AvailResArray[idx]
		if avail == nil {
			continue
		}
		cur := avail.AvailCPUs
		switch {
		case !found:
			best, bestCap, found = idx, cur, true
		case cur >= remCPUs && (bestCap < remCPUs || cur < bestCap):
			best, bestCap = idx, cur
		case cur < remCPUs && bestCap < remCPUs && cur > bestCap:
			best, bestCap = idx, cur
		}
	}
	return best, found
}

// EvalConsec is the default strategy: it partitions candidates into
// maximal same-weight runs of adjacent indices and, each round, ranks
// the remaining runs (required-node-holding first, then lower weight,
// then sufficiency/tightest-fit) before filling the winner.
func EvalConsec(ctx *structs.EvalContext, gresSched gres.Scheduler) error {
	if gresSched == nil {
		gresSched = gres.NullScheduler{}
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

	// Runs are built from the full original candidate set (not the pool
	// with required nodes removed) so a run's requiredIdx can still be
	// found; pickOne/fanOutPick/pickRun all skip nodes already in
	// selected, so required nodes absorbed above are never double-spent.
	runs := findConsecRuns(ctx, candidates, required)

	if ctx.Job.Contiguous {
		requiredRuns := 0
		for _, r := range runs {
			if r.requiredIdx >= 0 {
				requiredRuns++
			}
		}
		if requiredRuns > 1 {
			ctx.NodeMap = nodeset.New(0)
			return ErrConsecStraddle
		}
	}

	for !done() && ctx.MaxNodes > 0 {
		best := pickBestRun(ctx, selected, runs, remCPUs)
		if best == nil {
			break
		}

		switch {
		case best.requiredIdx >= 0:
			fanOutPick(ctx, gresSched, gresReq, best, best.requiredIdx, selected, &remCPUs, &remMaxCPUs, accum, done)
		case ctx.ReqNodes <= 1:
			if idx, ok := bestFitSingle(ctx, selected, best, remCPUs); ok {
				pickOne(ctx, gresSched, gresReq, idx, selected, &remCPUs, &remMaxCPUs, accum)
			}
			// One node may not cover remCPUs; keep filling from the same
			// run before it is marked used.
			pickRun(ctx, gresSched, gresReq, best.nodes, selected, &remCPUs, &remMaxCPUs, accum, done)
		default:
			pickRun(ctx, gresSched, gresReq, best.nodes, selected, &remCPUs, &remMaxCPUs, accum, done)
		}
		best.used = true
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
