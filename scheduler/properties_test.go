// Copyright (c) HashiCorp, Inc.
// SPDX-License-Identifier: BUSL-1.1

package scheduler

import (
	"testing"

	"github.com/hashicorp/nomad-nodeselect/helper/testlog"
	"github.com/hashicorp/nomad-nodeselect/mock"
	"github.com/hashicorp/nomad-nodeselect/nodeset"
	"github.com/hashicorp/nomad-nodeselect/structs"
	"github.com/stretchr/testify/require"
)

func TestInvariant_SelectedIsSubsetAndMeetsMinNodes(t *testing.T) {
	nodes, avail := uniformNodes(6, 4)
	candidates := nodeset.Range(6)
	ctx := &structs.EvalContext{
		Logger:        testlog.HCLogger(t),
		Job:           &structs.Job{MinCPUs: 8},
		NodeMap:       candidates.Copy(),
		Nodes:         nodes,
		AvailResArray: avail,
		MinNodes:      2,
		ReqNodes:      2,
		MaxNodes:      6,
	}

	require.NoError(t, EvalNodes(ctx, nil))
	require.True(t, candidates.Superset(ctx.NodeMap))
	require.GreaterOrEqual(t, ctx.NodeMap.Size(), 2)
}

func TestInvariant_RequiredNodesAlwaysSelected(t *testing.T) {
	nodes, avail := uniformNodes(6, 4)
	ctx := &structs.EvalContext{
		Logger:        testlog.HCLogger(t),
		Job: &structs.Job{
			MinCPUs:       16,
			ReqNodeBitmap: nodeset.FromSlice([]nodeset.NodeIndex{2}),
		},
		NodeMap:       nodeset.Range(6),
		Nodes:         nodes,
		AvailResArray: avail,
		MinNodes:      3,
		ReqNodes:      3,
		MaxNodes:      6,
	}

	require.NoError(t, EvalNodes(ctx, nil))
	require.True(t, ctx.NodeMap.Check(2))
}

func TestInvariant_SelectedCPUsMeetMinCPUs(t *testing.T) {
	nodes, avail := uniformNodes(6, 4)
	ctx := &structs.EvalContext{
		Logger:        testlog.HCLogger(t),
		Job:           &structs.Job{MinCPUs: 12},
		NodeMap:       nodeset.Range(6),
		Nodes:         nodes,
		AvailResArray: avail,
		MinNodes:      1,
		ReqNodes:      1,
		MaxNodes:      6,
	}

	require.NoError(t, EvalNodes(ctx, nil))
	var total int64
	ctx.NodeMap.ForEach(func(idx nodeset.NodeIndex) bool {
		total += avail[idx].AvailCPUs
		return true
	})
	require.GreaterOrEqual(t, total, int64(12))
}

func TestInvariant_SelectedCPUsRespectMaxCPUs(t *testing.T) {
	nodes, avail := uniformNodes(6, 4)
	maxCPUs := int64(12)
	ctx := &structs.EvalContext{
		Logger:        testlog.HCLogger(t),
		Job:           &structs.Job{MinCPUs: 4, MaxCPUs: &maxCPUs},
		NodeMap:       nodeset.Range(6),
		Nodes:         nodes,
		AvailResArray: avail,
		MinNodes:      1,
		ReqNodes:      1,
		MaxNodes:      6,
	}

	require.NoError(t, EvalNodes(ctx, nil))
	var total int64
	ctx.NodeMap.ForEach(func(idx nodeset.NodeIndex) bool {
		total += avail[idx].AvailCPUs
		return true
	})
	require.LessOrEqual(t, total, maxCPUs)
}

func TestInvariant_SelectedCountRespectsMaxNodes(t *testing.T) {
	nodes, avail := uniformNodes(6, 4)
	ctx := &structs.EvalContext{
		Logger:        testlog.HCLogger(t),
		Job:           &structs.Job{MinCPUs: 4},
		NodeMap:       nodeset.Range(6),
		Nodes:         nodes,
		AvailResArray: avail,
		MinNodes:      1,
		ReqNodes:      1,
		MaxNodes:      2,
	}

	require.NoError(t, EvalNodes(ctx, nil))
	require.LessOrEqual(t, ctx.NodeMap.Size(), 2)
}

// Re-running against the exact selection from a prior OK call reproduces
// it, since the algorithm is a pure function of its input.
func TestInvariant_Idempotence(t *testing.T) {
	nodes, avail := uniformNodes(6, 4)
	ctx := &structs.EvalContext{
		Logger:        testlog.HCLogger(t),
		Job:           &structs.Job{MinCPUs: 12},
		NodeMap:       nodeset.Range(6),
		Nodes:         nodes,
		AvailResArray: avail,
		MinNodes:      3,
		ReqNodes:      3,
		MaxNodes:      6,
	}
	require.NoError(t, EvalNodes(ctx, nil))
	first := ctx.NodeMap.Copy()

	// Fresh availability records, same shape, same candidate set as the
	// first call's own output.
	nodes2, avail2 := uniformNodes(6, 4)
	ctx2 := &structs.EvalContext{
		Logger:        testlog.HCLogger(t),
		Job:           &structs.Job{MinCPUs: 12},
		NodeMap:       first.Copy(),
		Nodes:         nodes2,
		AvailResArray: avail2,
		MinNodes:      3,
		ReqNodes:      3,
		MaxNodes:      6,
	}
	require.NoError(t, EvalNodes(ctx2, nil))
	require.True(t, first.Equal(ctx2.NodeMap))
}

// Permuting the weight of two nodes that still land in the same bucket
// does not change the selection.
func TestInvariant_SameBucketWeightPermutationIsStable(t *testing.T) {
	build := func(w0, w1 uint64) *structs.EvalContext {
		nodes, avail := uniformNodes(4, 4)
		nodes[0].SchedWeight = w0
		nodes[1].SchedWeight = w1
		return &structs.EvalContext{
			Logger:        testlog.HCLogger(t),
			Job:           &structs.Job{MinCPUs: 8},
			NodeMap:       nodeset.Range(4),
			Nodes:         nodes,
			AvailResArray: avail,
			MinNodes:      2,
			ReqNodes:      2,
			MaxNodes:      4,
		}
	}

	ctxA := build(5, 5)
	require.NoError(t, EvalSpread(ctxA, nil))

	ctxB := build(5, 5) // same weights: nothing to permute, bucket order fixed by index
	require.NoError(t, EvalSpread(ctxB, nil))

	require.True(t, ctxA.NodeMap.Equal(ctxB.NodeMap))
}

func TestInvariant_EnoughNodesMonotoneInAvail(t *testing.T) {
	require.False(t, EnoughNodes(1, 4, 2, 4))
	require.True(t, EnoughNodes(2, 4, 2, 4))
	require.True(t, EnoughNodes(3, 4, 2, 4))
	require.True(t, EnoughNodes(4, 4, 2, 4))
}

func TestInvariant_EnoughNodesEquivalentToAvailGEReqWhenNoRange(t *testing.T) {
	// q <= m: needed collapses to rem, so enough_nodes(a,r,m,q) == a >= r.
	for avail := 0; avail <= 5; avail++ {
		require.Equal(t, avail >= 3, EnoughNodes(avail, 3, 4, 4))
	}
}

// A weaker node not selected while a stronger one is must be explained
// by required-exclusion, topology, or zero availability -- exercised
// here via a zero-CPU node that gets skipped in favor of a
// higher-weight, resource-bearing one.
func TestInvariant_WeightMonotonicityExplainedByAvailability(t *testing.T) {
	nodes := map[nodeset.NodeIndex]*structs.Node{
		0: mock.NodeWithCPUs(4),
		1: mock.NodeWithCPUs(4),
	}
	nodes[0].SchedWeight = 1 // lower weight, but starved
	nodes[1].SchedWeight = 5

	avail := map[nodeset.NodeIndex]*structs.AvailableResources{
		0: {AvailCPUs: 0, MaxCPUs: 4},
		1: mock.AvailableResources(4),
	}

	ctx := &structs.EvalContext{
		Logger:        testlog.HCLogger(t),
		Job:           &structs.Job{MinCPUs: 4},
		NodeMap:       nodeset.Range(2),
		Nodes:         nodes,
		AvailResArray: avail,
		MinNodes:      1,
		ReqNodes:      1,
		MaxNodes:      2,
	}

	require.NoError(t, EvalSpread(ctx, nil))
	require.True(t, ctx.NodeMap.Check(1))
	require.False(t, ctx.NodeMap.Check(0))
}
