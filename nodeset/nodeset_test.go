// Copyright (c) HashiCorp, Inc.
// SPDX-License-Identifier: BUSL-1.1

package nodeset

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestSet_InsertCheckRemove(t *testing.T) {
	s := New(8)
	require.True(t, s.Empty())

	s.Insert(2)
	s.Insert(5)
	require.True(t, s.Check(2))
	require.True(t, s.Check(5))
	require.False(t, s.Check(3))
	require.Equal(t, 2, s.Size())

	s.Remove(2)
	require.False(t, s.Check(2))
	require.Equal(t, 1, s.Size())
}

func TestSet_OrderedIsAscending(t *testing.T) {
	s := FromSlice([]NodeIndex{7, 1, 4, 0, 9})
	require.Equal(t, []NodeIndex{0, 1, 4, 7, 9}, s.Ordered())
	require.Equal(t, NodeIndex(0), s.First())
	require.Equal(t, NodeIndex(9), s.Last())
}

func TestSet_EmptyFirstLast(t *testing.T) {
	s := New(0)
	require.Equal(t, NodeIndex(-1), s.First())
	require.Equal(t, NodeIndex(-1), s.Last())
}

func TestSet_UnionIntersectDifference(t *testing.T) {
	a := FromSlice([]NodeIndex{0, 1, 2, 3})
	b := FromSlice([]NodeIndex{2, 3, 4, 5})

	require.Equal(t, []NodeIndex{0, 1, 2, 3, 4, 5}, a.Union(b).Ordered())
	require.Equal(t, []NodeIndex{2, 3}, a.Intersect(b).Ordered())
	require.Equal(t, []NodeIndex{0, 1}, a.Difference(b).Ordered())

	// operands are untouched
	require.Equal(t, []NodeIndex{0, 1, 2, 3}, a.Ordered())
	require.Equal(t, []NodeIndex{2, 3, 4, 5}, b.Ordered())
}

func TestSet_IntersectsAndSuperset(t *testing.T) {
	a := FromSlice([]NodeIndex{0, 1, 2})
	b := FromSlice([]NodeIndex{2, 3})
	c := FromSlice([]NodeIndex{5, 6})

	require.True(t, a.Intersects(b))
	require.False(t, a.Intersects(c))

	require.True(t, a.Superset(FromSlice([]NodeIndex{0, 1})))
	require.False(t, a.Superset(b))
	require.True(t, a.Superset(New(0)))
}

func TestSet_Equal(t *testing.T) {
	a := FromSlice([]NodeIndex{1, 2, 3})
	b := FromSlice([]NodeIndex{3, 2, 1})
	c := FromSlice([]NodeIndex{1, 2})
	require.True(t, a.Equal(b))
	require.False(t, a.Equal(c))
}

func TestSet_CopyIsIndependent(t *testing.T) {
	a := FromSlice([]NodeIndex{1, 2, 3})
	b := a.Copy()
	b.Remove(2)
	require.True(t, a.Check(2))
	require.False(t, b.Check(2))
}

func TestCopyInto(t *testing.T) {
	dst := FromSlice([]NodeIndex{9, 9, 1})
	src := FromSlice([]NodeIndex{0, 2, 4})
	CopyInto(dst, src)
	require.Equal(t, []NodeIndex{0, 2, 4}, dst.Ordered())
}

func TestSet_String(t *testing.T) {
	require.Equal(t, "", New(0).String())
	require.Equal(t, "0-2,5", FromSlice([]NodeIndex{0, 1, 2, 5}).String())
	require.Equal(t, "3", FromSlice([]NodeIndex{3}).String())
}

func TestSet_ForEachStopsEarly(t *testing.T) {
	s := FromSlice([]NodeIndex{0, 1, 2, 3})
	var seen []NodeIndex
	s.ForEach(func(idx NodeIndex) bool {
		seen = append(seen, idx)
		return idx < 1
	})
	require.Equal(t, []NodeIndex{0, 1}, seen)
}

func TestRange(t *testing.T) {
	require.Equal(t, []NodeIndex{0, 1, 2, 3, 4}, Range(5).Ordered())
}
