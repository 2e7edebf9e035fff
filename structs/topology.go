// Copyright (c) HashiCorp, Inc.
// SPDX-License-Identifier: BUSL-1.1

package structs

import "github.com/hashicorp/nomad-nodeselect/nodeset"

// InfiniteDistance marks two switches as unreachable from one another.
// Arithmetic against it saturates: InfiniteDistance + anything stays
// InfiniteDistance (see AddDistance).
const InfiniteDistance uint32 = ^uint32(0)

// Switch is one node of the tree topology. Level 0 is a leaf switch
// directly attached to compute nodes; higher levels aggregate leaves.
type Switch struct {
	Level  int
	Parent int // index into SwitchTable.Switches, or -1 for the root
	Name   string

	// NodeBitmap is the transitive set of nodes reachable under this
	// switch.
	NodeBitmap *nodeset.Set

	// Distance[j] is this switch's hop distance to switch j, or
	// InfiniteDistance if unreachable without leaving the tree through
	// a common ancestor that was not counted.
	Distance []uint32
}

// SwitchTable is the read-only tree of switches built by the caller.
type SwitchTable struct {
	Switches []*Switch
}

// Leaves returns the indexes of every level-0 switch.
func (t *SwitchTable) Leaves() []int {
	var leaves []int
	for i, sw := range t.Switches {
		if sw.Level == 0 {
			leaves = append(leaves, i)
		}
	}
	return leaves
}

// AddDistance returns a + b, saturating at InfiniteDistance.
func AddDistance(a, b uint32) uint32 {
	if a == InfiniteDistance || b == InfiniteDistance {
		return InfiniteDistance
	}
	sum := a + b
	if sum < a { // overflow
		return InfiniteDistance
	}
	return sum
}

// TopLevel returns the index of the highest-level switch in the table,
// or -1 if the table is empty.
func (t *SwitchTable) TopLevel() int {
	best, bestLevel := -1, -1
	for i, sw := range t.Switches {
		if sw.Level > bestLevel {
			best, bestLevel = i, sw.Level
		}
	}
	return best
}
