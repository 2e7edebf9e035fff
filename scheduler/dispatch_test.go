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

func uniformNodes(n int, cpus int) (map[nodeset.NodeIndex]*structs.Node, map[nodeset.NodeIndex]*structs.AvailableResources) {
	nodes := make(map[nodeset.NodeIndex]*structs.Node, n)
	avail := make(map[nodeset.NodeIndex]*structs.AvailableResources, n)
	for i := 0; i < n; i++ {
		idx := nodeset.NodeIndex(i)
		nodes[idx] = mock.NodeWithCPUs(cpus)
		avail[idx] = mock.AvailableResources(int64(cpus))
	}
	return nodes, avail
}

// S1: required nodes alone already satisfy the request.
func TestScenario_RequiredSatisfies(t *testing.T) {
	nodes, avail := uniformNodes(4, 8)
	ctx := &structs.EvalContext{
		Logger:        testlog.HCLogger(t),
		Job: &structs.Job{
			MinCPUs:       16,
			ReqNodeBitmap: nodeset.FromSlice([]nodeset.NodeIndex{0, 1}),
		},
		NodeMap:       nodeset.Range(4),
		Nodes:         nodes,
		AvailResArray: avail,
		MinNodes:      2,
		ReqNodes:      2,
		MaxNodes:      4,
	}

	require.NoError(t, EvalNodes(ctx, nil))
	require.True(t, ctx.NodeMap.Equal(nodeset.FromSlice([]nodeset.NodeIndex{0, 1})))
	require.Equal(t, int64(8), avail[0].AvailCPUs)
	require.Equal(t, int64(8), avail[1].AvailCPUs)
}

// S2: consec best-fits the whole run that covers the request over a
// smaller run plus spillover.
func TestScenario_ConsecBestFit(t *testing.T) {
	nodes, avail := uniformNodes(8, 4)
	candidates := nodeset.FromSlice([]nodeset.NodeIndex{0, 1, 2, 4, 5, 6, 7}) // gap at 3

	ctx := &structs.EvalContext{
		Logger:        testlog.HCLogger(t),
		Job:           &structs.Job{MinCPUs: 16},
		NodeMap:       candidates,
		Nodes:         nodes,
		AvailResArray: avail,
		MinNodes:      4,
		ReqNodes:      4,
		MaxNodes:      8,
	}

	require.NoError(t, EvalNodes(ctx, nil))
	require.True(t, ctx.NodeMap.Equal(nodeset.FromSlice([]nodeset.NodeIndex{4, 5, 6, 7})))
}

// S3: spread walks ascending index order; lln prefers the least-loaded
// (highest avail/total ratio) node first.
func TestScenario_SpreadVsLLN(t *testing.T) {
	buildCtx := func() *structs.EvalContext {
		nodes := map[nodeset.NodeIndex]*structs.Node{}
		avail := map[nodeset.NodeIndex]*structs.AvailableResources{}
		for i := 0; i < 4; i++ {
			idx := nodeset.NodeIndex(i)
			nodes[idx] = &structs.Node{CPUs: 16, Cores: 16, TotalCores: 16, TotalSockets: 1, Boards: 1}
			avail[idx] = &structs.AvailableResources{AvailCPUs: 8, MaxCPUs: 16}
		}
		nodes[4] = &structs.Node{CPUs: 8, Cores: 8, TotalCores: 8, TotalSockets: 1, Boards: 1}
		avail[4] = &structs.AvailableResources{AvailCPUs: 8, MaxCPUs: 8}

		return &structs.EvalContext{
			Logger:        testlog.HCLogger(t),
			Job:           &structs.Job{MinCPUs: 16},
			NodeMap:       nodeset.Range(5),
			Nodes:         nodes,
			AvailResArray: avail,
			MinNodes:      2,
			ReqNodes:      2,
			MaxNodes:      5,
		}
	}

	spreadCtx := buildCtx()
	require.NoError(t, EvalSpread(spreadCtx, nil))
	require.True(t, spreadCtx.NodeMap.Equal(nodeset.FromSlice([]nodeset.NodeIndex{0, 1})))

	llnCtx := buildCtx()
	require.NoError(t, EvalLLN(llnCtx, nil))
	require.True(t, llnCtx.NodeMap.Check(4), "lln should have picked the fully-idle node first")
}

// S4: topo settles for fewer nodes on a single leaf rather than more
// nodes spanning both leaves.
func TestScenario_TopoRetry(t *testing.T) {
	nodes, avail := uniformNodes(4, 4)
	switches := mock.SwitchTable([][]int{{0, 1}, {2, 3}})

	ctx := &structs.EvalContext{
		Logger:        testlog.HCLogger(t),
		Job:           &structs.Job{MinCPUs: 8},
		NodeMap:       nodeset.Range(4),
		Nodes:         nodes,
		AvailResArray: avail,
		MinNodes:      2,
		ReqNodes:      4,
		MaxNodes:      4,
		Switches:      switches,
	}

	require.NoError(t, EvalTopo(ctx, nil))
	require.Equal(t, 2, ctx.NodeMap.Size())
	require.True(t, ctx.BestSwitch)

	sw0 := switches.Switches[0].NodeBitmap
	sw1 := switches.Switches[1].NodeBitmap
	require.True(t, sw0.Superset(ctx.NodeMap) || sw1.Superset(ctx.NodeMap))
}

// S5: required nodes that cannot share a legal block group fail with a
// locality error.
func TestScenario_BlockLocalityFailure(t *testing.T) {
	nodes, avail := uniformNodes(8, 4)
	blocks := mock.BlockTable([][]int{{0, 1}, {2, 3}, {4, 5}, {6, 7}}, []int{1})

	ctx := &structs.EvalContext{
		Logger:        testlog.HCLogger(t),
		Job: &structs.Job{
			MinCPUs:       8,
			ReqNodeBitmap: nodeset.FromSlice([]nodeset.NodeIndex{1, 4}),
		},
		NodeMap:       nodeset.Range(8),
		Nodes:         nodes,
		AvailResArray: avail,
		MinNodes:      2,
		ReqNodes:      2,
		MaxNodes:      8,
		Blocks:        blocks,
	}

	err := EvalNodes(ctx, nil)
	require.ErrorIs(t, err, ErrBlockLocality)
}

// S7: with no required nodes and two disjoint top-level islands, topo
// restricts its top-switch search to the lowest-weight bucket rather
// than the whole candidate pool, so it settles inside the cheaper
// island instead of failing to find any switch spanning both.
func TestScenario_TopoWeightIsland(t *testing.T) {
	nodes, avail := uniformNodes(8, 4)
	for i := nodeset.NodeIndex(0); i < 4; i++ {
		nodes[i].SchedWeight = 5
	}
	for i := nodeset.NodeIndex(4); i < 8; i++ {
		nodes[i].SchedWeight = 1
	}

	leaf0 := nodeset.FromSlice([]nodeset.NodeIndex{0, 1})
	leaf1 := nodeset.FromSlice([]nodeset.NodeIndex{2, 3})
	leaf2 := nodeset.FromSlice([]nodeset.NodeIndex{4, 5})
	leaf3 := nodeset.FromSlice([]nodeset.NodeIndex{6, 7})
	topA := leaf0.Union(leaf1)
	topB := leaf2.Union(leaf3)

	switches := &structs.SwitchTable{Switches: []*structs.Switch{
		{Level: 0, Parent: 4, Name: "leaf0", NodeBitmap: leaf0},
		{Level: 0, Parent: 4, Name: "leaf1", NodeBitmap: leaf1},
		{Level: 0, Parent: 5, Name: "leaf2", NodeBitmap: leaf2},
		{Level: 0, Parent: 5, Name: "leaf3", NodeBitmap: leaf3},
		{Level: 1, Parent: -1, Name: "topA", NodeBitmap: topA},
		{Level: 1, Parent: -1, Name: "topB", NodeBitmap: topB},
	}}

	ctx := &structs.EvalContext{
		Logger:        testlog.HCLogger(t),
		Job:           &structs.Job{MinCPUs: 8},
		NodeMap:       nodeset.Range(8),
		Nodes:         nodes,
		AvailResArray: avail,
		MinNodes:      2,
		ReqNodes:      2,
		MaxNodes:      2,
		Switches:      switches,
	}

	require.NoError(t, EvalTopo(ctx, nil))
	require.True(t, topB.Superset(ctx.NodeMap), "expected topo to settle in the lower-weight island")
}

// S8: with no required nodes, block-group selection prefers the group
// whose nodes carry the lowest scheduling weight over an equally-sized
// group of higher-weight nodes.
func TestScenario_BlockGroupWeight(t *testing.T) {
	nodes, avail := uniformNodes(8, 4)
	weights := map[nodeset.NodeIndex]uint64{0: 10, 1: 10, 2: 9, 3: 9, 4: 1, 5: 1, 6: 0, 7: 0}
	for idx, w := range weights {
		nodes[idx].SchedWeight = w
	}
	blocks := mock.BlockTable([][]int{{0, 1}, {2, 3}, {4, 5}, {6, 7}}, []int{1})

	ctx := &structs.EvalContext{
		Logger:        testlog.HCLogger(t),
		Job:           &structs.Job{MinCPUs: 8},
		NodeMap:       nodeset.Range(8),
		Nodes:         nodes,
		AvailResArray: avail,
		MinNodes:      2,
		ReqNodes:      2,
		MaxNodes:      2,
		Blocks:        blocks,
	}

	require.NoError(t, EvalBlock(ctx, nil))
	require.True(t, ctx.NodeMap.Equal(nodeset.FromSlice([]nodeset.NodeIndex{4, 5})),
		"expected the lowest-weight block group to be filled first")
}

// TestChooseTopSwitch_HighestLevelWins asserts the top switch is the
// highest-level qualifying switch, not the most local one, when
// multiple switches in the tree happen to span target.
func TestChooseTopSwitch_HighestLevelWins(t *testing.T) {
	target := nodeset.FromSlice([]nodeset.NodeIndex{0, 1})
	sw := &structs.SwitchTable{Switches: []*structs.Switch{
		{Level: 0, NodeBitmap: nodeset.FromSlice([]nodeset.NodeIndex{0, 1})},
		{Level: 1, NodeBitmap: nodeset.FromSlice([]nodeset.NodeIndex{0, 1, 2, 3})},
		{Level: 2, NodeBitmap: nodeset.Range(8)},
	}}

	got := chooseTopSwitch(sw, target)
	require.Equal(t, 2, got)
}

// S6: candidates cannot cover min_cpus; the call fails and clears
// node_map.
func TestScenario_Insufficient(t *testing.T) {
	nodes, avail := uniformNodes(2, 4)
	ctx := &structs.EvalContext{
		Logger:        testlog.HCLogger(t),
		Job:           &structs.Job{MinCPUs: 16},
		NodeMap:       nodeset.Range(2),
		Nodes:         nodes,
		AvailResArray: avail,
		MinNodes:      1,
		ReqNodes:      1,
		MaxNodes:      2,
	}

	err := EvalNodes(ctx, nil)
	require.Error(t, err)
	require.Equal(t, 0, ctx.NodeMap.Size())
}
