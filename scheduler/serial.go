// Copyright (c) HashiCorp, Inc.
// SPDX-License-Identifier: BUSL-1.1

package scheduler

import (
	"github.com/hashicorp/nomad-nodeselect/gres"
	"github.com/hashicorp/nomad-nodeselect/nodeset"
	"github.com/hashicorp/nomad-nodeselect/structs"
)

// EvalSerial packs single-CPU, single-node jobs onto the
// highest-indexed candidates first, leaving low-indexed nodes free for
// jobs that need contiguous ranges.
func EvalSerial(ctx *structs.EvalContext, gresSched gres.Scheduler) error {
	return runWeightGroup(ctx, gresSched, weightGroupOptions{
		order:         serialOrder,
		capByNumTasks: true,
	})
}

func serialOrder(ctx *structs.EvalContext, bucket *structs.WeightBucket) []nodeset.NodeIndex {
	ordered := bucket.Nodes.Ordered()
	for i, j := 0, len(ordered)-1; i < j; i, j = i+1, j-1 {
		ordered[i], ordered[j] = ordered[j], ordered[i]
	}
	return ordered
}
