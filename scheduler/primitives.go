// Copyright (c) HashiCorp, Inc.
// SPDX-License-Identifier: BUSL-1.1

package scheduler

import (
	"fmt"
	"sort"

	"github.com/hashicorp/nomad-nodeselect/gres"
	"github.com/hashicorp/nomad-nodeselect/nodeset"
	"github.com/hashicorp/nomad-nodeselect/structs"
)

// EnoughNodes reports whether avail candidate nodes can still satisfy a
// request for a range [min, req] with rem more nodes needed against the
// req target. When the job asked for a range rather than an exact
// count, falling short of req by up to req-min is acceptable as long as
// min is still reachable.
func EnoughNodes(avail, rem, min, req int) bool {
	needed := rem
	if req > min {
		needed = rem + min - req
	}
	return avail >= needed
}

// GetRemMaxCPUs computes the CPU ceiling still available to spend on
// remaining nodes, honoring the job's own max_cpus and any GRES-derived
// per-node/per-job floors.
func GetRemMaxCPUs(job *structs.Job, floors structs.GRESCPUFloors, remNodes int) int64 {
	remMax := job.MinCPUs
	if job.MaxCPUs != nil {
		remMax = *job.MaxCPUs
	}

	gresFloor := floors.MinJobGRESCPU
	if perNode := int64(remNodes) * floors.MinGRESCPU; perNode > gresFloor {
		gresFloor = perNode
	}
	if gresFloor > remMax {
		remMax = gresFloor
	}
	return remMax
}

// computeTaskBounds derives the min/max task count a node may run,
// following a fixed priority order. max == -1 means
// unbounded ([1, inf)).
func computeTaskBounds(ctx *structs.EvalContext, node *structs.Node) (min, max int64) {
	mc := ctx.MC
	switch {
	case mc != nil && mc.NTasksPerNode > 0:
		return mc.NTasksPerNode, mc.NTasksPerNode
	case mc != nil && mc.NTasksPerBoard > 0:
		n := mc.NTasksPerBoard * int64(node.Boards)
		return n, n
	case mc != nil && mc.NTasksPerSocket > 0:
		n := mc.NTasksPerSocket * int64(node.TotalSockets)
		return n, n
	case mc != nil && mc.NTasksPerCore > 0:
		n := mc.NTasksPerCore * int64(node.TotalCores-node.CoreSpecCount)
		return n, n
	case mc != nil && mc.NTasksPerTRES > 0:
		if ctx.MaxNodes == 1 {
			return ctx.Job.NumTasks, ctx.Job.NumTasks
		}
		return mc.NTasksPerTRES, mc.NTasksPerTRES
	case ctx.MaxNodes == 1:
		return ctx.Job.NumTasks, ctx.Job.NumTasks
	case ctx.Job.NumTasks == 1:
		return 1, 1
	default:
		return 1, -1
	}
}

// SelectCores consults the GRES collaborator to prune sockets/cores and
// finalize avail_cpus for one node. Strategies treat
// avail_cpus == 0 afterward as "node unusable right now."
func SelectCores(ctx *structs.EvalContext, gresSched gres.Scheduler, idx nodeset.NodeIndex, remNodes int) error {
	node, ok := ctx.Nodes[idx]
	if !ok || node == nil {
		return fmt.Errorf("nodeselect: no node record at index %d", idx)
	}
	avail, ok := ctx.AvailResArray[idx]
	if !ok || avail == nil {
		return fmt.Errorf("nodeselect: no available-resources record at index %d", idx)
	}

	minTasks, maxTasks := computeTaskBounds(ctx, node)

	cpusPerTask := int64(1)
	if ctx.MC != nil && ctx.MC.CPUsPerTask > 0 {
		cpusPerTask = ctx.MC.CPUsPerTask
	}
	if !ctx.Job.Overcommit && cpusPerTask > 0 {
		capped := avail.AvailCPUs / cpusPerTask
		if maxTasks < 0 || capped < maxTasks {
			maxTasks = capped
		}
	}

	if gresSched != nil {
		var sockets gres.SocketGRES
		if sg, ok := avail.SockGRESList.(gres.SocketGRES); ok {
			sockets = sg
		}
		_ = sockets
		coreBitmap := ctx.AvailCore[idx]
		if err := gresSched.FilterSockCore(node, avail, coreBitmap, remNodes); err != nil {
			return err
		}
	}

	if maxTasks == 0 {
		avail.AvailCPUs = 0
	}

	if ctx.CRType.Has(structs.CROneTaskPerCore) {
		if cores := ctx.AvailCore[idx]; cores != nil {
			avail.AvailCPUs = int64(cores.Size())
		}
	}

	avail.GRESMinCPUs = minTasks * cpusPerTask
	avail.GRESMaxTasks = maxTasks

	return nil
}

// CPUsToUse trims a node's avail_cpus down to what the job should
// actually be charged, reserving headroom for nodes not yet picked
// It mirrors the result onto the node's
// AvailableResources record and returns it.
func CPUsToUse(ctx *structs.EvalContext, idx nodeset.NodeIndex, remMaxCPUs int64, remNodes int) int64 {
	node := ctx.Nodes[idx]
	avail := ctx.AvailResArray[idx]
	if node == nil || avail == nil {
		return 0
	}

	if ctx.Job.WholeNode {
		return avail.AvailCPUs
	}

	cpusPerCore := int64(1)
	if node.Cores > 0 {
		if c := int64(node.CPUs) / int64(node.Cores); c > 1 {
			cpusPerCore = c
		}
	}
	perNodeUnit := cpusPerCore
	if ctx.CRType.Has(structs.CRSocket) {
		perNodeUnit = cpusPerCore * int64(node.Cores)
	}

	reserve := int64(remNodes-1) * perNodeUnit
	if reserve < 0 {
		reserve = 0
	}
	headroom := remMaxCPUs - reserve
	if headroom < 0 {
		headroom = 0
	}

	floor := ctx.Job.PNMinCPUs[idx]
	gresFloor := avail.GRESMinCPUs
	if gresFloor == 0 {
		gresFloor = ctx.GRESFloors.MinGRESCPU
	}
	if gresFloor > floor {
		floor = gresFloor
	}

	use := headroom
	if use < floor {
		use = floor
	}
	if use > avail.AvailCPUs {
		use = avail.AvailCPUs
	}
	if use < 0 {
		use = 0
	}

	avail.AvailCPUs = use
	return use
}

// BuildWeightBuckets partitions bitmap into ascending-weight buckets
// The buckets exactly partition bitmap
// invariant 5).
func BuildWeightBuckets(ctx *structs.EvalContext, bitmap *nodeset.Set) []*structs.WeightBucket {
	byWeight := make(map[uint64]*structs.WeightBucket)
	var weights []uint64

	bitmap.ForEach(func(idx nodeset.NodeIndex) bool {
		var w uint64
		if node := ctx.Nodes[idx]; node != nil {
			w = node.SchedWeight
		}
		bucket, ok := byWeight[w]
		if !ok {
			bucket = &structs.WeightBucket{Weight: w, Nodes: nodeset.New(0)}
			byWeight[w] = bucket
			weights = append(weights, w)
		}
		bucket.Nodes.Insert(idx)
		bucket.Count++
		return true
	})

	sort.Slice(weights, func(i, j int) bool { return weights[i] < weights[j] })

	buckets := make([]*structs.WeightBucket, 0, len(weights))
	for _, w := range weights {
		buckets = append(buckets, byWeight[w])
	}
	return buckets
}
