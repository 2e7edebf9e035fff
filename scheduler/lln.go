// Copyright (c) HashiCorp, Inc.
// SPDX-License-Identifier: BUSL-1.1

package scheduler

import (
	"sort"

	"github.com/hashicorp/nomad-nodeselect/gres"
	"github.com/hashicorp/nomad-nodeselect/nodeset"
	"github.com/hashicorp/nomad-nodeselect/structs"
)

// EvalLLN (least-loaded node) prefers the candidate with the greatest
// fraction of its CPUs still free, spreading load evenly rather than
// packing.
func EvalLLN(ctx *structs.EvalContext, gresSched gres.Scheduler) error {
	return runWeightGroup(ctx, gresSched, weightGroupOptions{
		order:         llnOrder,
		capByNumTasks: true,
	})
}

func llnOrder(ctx *structs.EvalContext, bucket *structs.WeightBucket) []nodeset.NodeIndex {
	ordered := bucket.Nodes.Ordered()
	ratio := make(map[nodeset.NodeIndex]float64, len(ordered))
	for _, idx := range ordered {
		avail := ctx.AvailResArray[idx]
		if avail == nil || avail.MaxCPUs == 0 {
			ratio[idx] = 0
			continue
		}
		ratio[idx] = float64(avail.AvailCPUs) / float64(avail.MaxCPUs)
	}

	sort.SliceStable(ordered, func(i, j int) bool {
		ri, rj := ratio[ordered[i]], ratio[ordered[j]]
		if ri != rj {
			return ri > rj
		}
		return ordered[i] < ordered[j]
	})
	return ordered
}
