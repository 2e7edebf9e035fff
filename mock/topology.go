// Copyright (c) HashiCorp, Inc.
// SPDX-License-Identifier: BUSL-1.1

package mock

import (
	"fmt"

	"github.com/hashicorp/nomad-nodeselect/nodeset"
	"github.com/hashicorp/nomad-nodeselect/structs"
)

// SwitchTable builds a two-level tree: one leaf switch per entry in
// leafGroups, all sharing a single top switch. It is enough to exercise
// the dfly and topo strategies' fixtures without hand-building distance
// matrices in every test.
func SwitchTable(leafGroups [][]int) *structs.SwitchTable {
	n := len(leafGroups)
	switches := make([]*structs.Switch, 0, n+1)

	for i, grp := range leafGroups {
		bm := nodeset.New(len(grp))
		for _, idx := range grp {
			bm.Insert(nodeset.NodeIndex(idx))
		}
		switches = append(switches, &structs.Switch{
			Level:      0,
			Parent:     n,
			Name:       fmt.Sprintf("leaf%d", i),
			NodeBitmap: bm,
		})
	}

	top := nodeset.New(0)
	for _, sw := range switches {
		top = top.Union(sw.NodeBitmap)
	}
	switches = append(switches, &structs.Switch{
		Level:      1,
		Parent:     -1,
		Name:       "top",
		NodeBitmap: top,
	})

	for i, sw := range switches {
		sw.Distance = make([]uint32, len(switches))
		for j, other := range switches {
			switch {
			case i == j:
				sw.Distance[j] = 0
			case sw.Level == 0 && other.Level == 0:
				sw.Distance[j] = 2
			default:
				sw.Distance[j] = 1
			}
		}
	}

	return &structs.SwitchTable{Switches: switches}
}

// BlockTable builds a flat block topology from base-block node groups
// and the allowed log2 group sizes.
func BlockTable(baseBlockGroups [][]int, allowedLevels []int) *structs.BlockTable {
	blocks := make([]*structs.Block, 0, len(baseBlockGroups))
	baseSize := 0
	for _, grp := range baseBlockGroups {
		if len(grp) > baseSize {
			baseSize = len(grp)
		}
		bm := nodeset.New(len(grp))
		for _, idx := range grp {
			bm.Insert(nodeset.NodeIndex(idx))
		}
		blocks = append(blocks, &structs.Block{NodeBitmap: bm})
	}

	levels := nodeset.New(len(allowedLevels))
	for _, l := range allowedLevels {
		levels.Insert(nodeset.NodeIndex(l))
	}

	return &structs.BlockTable{
		Blocks:        blocks,
		BlockLevels:   levels,
		BaseBlockSize: baseSize,
	}
}
