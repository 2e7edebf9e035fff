// Copyright (c) HashiCorp, Inc.
// SPDX-License-Identifier: BUSL-1.1

package structs

import "github.com/hashicorp/nomad-nodeselect/nodeset"

// Block is a base block, the leaf unit of the block-topology hierarchy.
type Block struct {
	NodeBitmap *nodeset.Set
}

// BlockTable is the read-only block topology built by the caller.
// BlockLevels is a bitmap over log2 group sizes: bit k set means a
// group of 2^k base blocks is a legal grouping.
type BlockTable struct {
	Blocks        []*Block
	BlockLevels   *nodeset.Set
	BaseBlockSize int
}

// AllowedGroupSize returns the smallest legal power-of-two base-block
// group size that is >= want, or 0 if none of the configured levels are
// large enough (the caller then falls back to one block spanning
// everything).
func (t *BlockTable) AllowedGroupSize(want int) int {
	best := 0
	t.BlockLevels.ForEach(func(k nodeset.NodeIndex) bool {
		size := 1 << uint(k)
		if size >= want && (best == 0 || size < best) {
			best = size
		}
		return true
	})
	return best
}
