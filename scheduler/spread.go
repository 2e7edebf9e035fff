// Copyright (c) HashiCorp, Inc.
// SPDX-License-Identifier: BUSL-1.1

package scheduler

import (
	"github.com/hashicorp/nomad-nodeselect/gres"
	"github.com/hashicorp/nomad-nodeselect/nodeset"
	"github.com/hashicorp/nomad-nodeselect/structs"
)

// EvalSpread walks each weight bucket in ascending index order and stops
// as soon as the request is met; it picks no nodes beyond that. Unlike
// busy, lln and serial it neither reconciles the node-count bounds nor
// caps max_nodes by the job's task count.
func EvalSpread(ctx *structs.EvalContext, gresSched gres.Scheduler) error {
	return runWeightGroup(ctx, gresSched, weightGroupOptions{
		order:         spreadOrder,
		skipReconcile: true,
	})
}

func spreadOrder(ctx *structs.EvalContext, bucket *structs.WeightBucket) []nodeset.NodeIndex {
	return bucket.Nodes.Ordered()
}
