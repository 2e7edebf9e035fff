// Copyright (c) HashiCorp, Inc.
// SPDX-License-Identifier: BUSL-1.1

package scheduler

import (
	"github.com/hashicorp/nomad-nodeselect/gres"
	"github.com/hashicorp/nomad-nodeselect/nodeset"
	"github.com/hashicorp/nomad-nodeselect/structs"
)

// EvalBusy prefers nodes that already carry other work over idle ones,
// consolidating jobs to leave whole nodes free for large allocations
// later. Within a weight bucket it makes two passes: non-idle nodes in
// ascending index order, then idle nodes in ascending index order.
func EvalBusy(ctx *structs.EvalContext, gresSched gres.Scheduler) error {
	return runWeightGroup(ctx, gresSched, weightGroupOptions{
		order:         busyOrder,
		capByNumTasks: true,
	})
}

func busyOrder(ctx *structs.EvalContext, bucket *structs.WeightBucket) []nodeset.NodeIndex {
	var busy, idle []nodeset.NodeIndex
	for _, idx := range bucket.Nodes.Ordered() {
		if ctx.IdleNodeBitmap != nil && ctx.IdleNodeBitmap.Check(idx) {
			idle = append(idle, idx)
		} else {
			busy = append(busy, idx)
		}
	}
	return append(busy, idle...)
}
