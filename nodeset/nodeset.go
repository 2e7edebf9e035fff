// Copyright (c) HashiCorp, Inc.
// SPDX-License-Identifier: BUSL-1.1

// Package nodeset provides a node-index bitmap used throughout the
// scheduler to represent candidate sets, selected sets, and per-switch
// or per-block reachability.
package nodeset

import (
	"fmt"
	"strings"

	"github.com/hashicorp/go-set/v3"
)

// NodeIndex identifies a node by its position in the caller's node
// table. All sets in a single evaluation share the same index space.
type NodeIndex int

// Set is an uncompressed bitmap over NodeIndex, backed by go-set. It
// mirrors the bitmap primitives the node-selection core consumes:
// bit_ffs/bit_fls become First/Last, bit_set_count becomes Size,
// bit_super_set becomes Superset, bit_overlap_any becomes Intersects,
// bit_and/bit_or/bit_and_not become Intersect/Union/Difference, and
// bit_copy/bit_alloc/bit_clear become Copy/New/Clear.
type Set struct {
	items *set.Set[NodeIndex]
}

// New returns an empty Set with room for size elements.
func New(size int) *Set {
	if size < 0 {
		size = 0
	}
	return &Set{items: set.New[NodeIndex](size)}
}

// FromSlice builds a Set from a slice of indexes.
func FromSlice(idxs []NodeIndex) *Set {
	s := New(len(idxs))
	for _, i := range idxs {
		s.Insert(i)
	}
	return s
}

// Range returns a Set containing every index in [0, n).
func Range(n int) *Set {
	s := New(n)
	for i := 0; i < n; i++ {
		s.Insert(NodeIndex(i))
	}
	return s
}

// Insert adds idx to the set.
func (s *Set) Insert(idx NodeIndex) { s.items.Insert(idx) }

// Remove removes idx from the set.
func (s *Set) Remove(idx NodeIndex) { s.items.Remove(idx) }

// Check reports whether idx is a member (bit_test).
func (s *Set) Check(idx NodeIndex) bool {
	if s == nil || s.items == nil {
		return false
	}
	return s.items.Contains(idx)
}

// Clear removes every member (bit_clear_all), leaving the set usable.
func (s *Set) Clear() {
	for _, idx := range s.items.Slice() {
		s.items.Remove(idx)
	}
}

// Size returns the population count (bit_set_count).
func (s *Set) Size() int {
	if s == nil || s.items == nil {
		return 0
	}
	return s.items.Size()
}

// Empty reports whether the set has no members.
func (s *Set) Empty() bool { return s.Size() == 0 }

// Copy returns an independent duplicate (bit_copy).
func (s *Set) Copy() *Set {
	if s == nil {
		return New(0)
	}
	return &Set{items: s.items.Copy()}
}

// Ordered returns the members in ascending index order. Every strategy
// in this module must iterate candidates in ascending order for
// determinism, so this is the only iteration primitive exposed.
func (s *Set) Ordered() []NodeIndex {
	if s == nil || s.items == nil {
		return nil
	}
	out := s.items.Slice()
	// go-set's Slice() does not guarantee order; sort explicitly so
	// iteration is reproducible regardless of the underlying set impl.
	insertionSort(out)
	return out
}

func insertionSort(xs []NodeIndex) {
	for i := 1; i < len(xs); i++ {
		for j := i; j > 0 && xs[j-1] > xs[j]; j-- {
			xs[j-1], xs[j] = xs[j], xs[j-1]
		}
	}
}

// First returns the lowest member (bit_ffs), or -1 if empty.
func (s *Set) First() NodeIndex {
	ord := s.Ordered()
	if len(ord) == 0 {
		return -1
	}
	return ord[0]
}

// Last returns the highest member (bit_fls), or -1 if empty.
func (s *Set) Last() NodeIndex {
	ord := s.Ordered()
	if len(ord) == 0 {
		return -1
	}
	return ord[len(ord)-1]
}

// Union returns s | other (bit_or), leaving both operands untouched.
func (s *Set) Union(other *Set) *Set {
	result := s.Copy()
	if other == nil {
		return result
	}
	for _, idx := range other.Ordered() {
		result.Insert(idx)
	}
	return result
}

// Intersect returns s & other (bit_and).
func (s *Set) Intersect(other *Set) *Set {
	result := New(0)
	if other == nil || s == nil {
		return result
	}
	for _, idx := range s.Ordered() {
		if other.Check(idx) {
			result.Insert(idx)
		}
	}
	return result
}

// Difference returns s &^ other (bit_and_not).
func (s *Set) Difference(other *Set) *Set {
	result := New(0)
	if s == nil {
		return result
	}
	for _, idx := range s.Ordered() {
		if other == nil || !other.Check(idx) {
			result.Insert(idx)
		}
	}
	return result
}

// Intersects reports whether s and other share any member
// (bit_overlap_any).
func (s *Set) Intersects(other *Set) bool {
	if s == nil || other == nil {
		return false
	}
	for _, idx := range s.Ordered() {
		if other.Check(idx) {
			return true
		}
	}
	return false
}

// Superset reports whether s contains every member of other
// (bit_super_set(other, s) in the source's argument order).
func (s *Set) Superset(other *Set) bool {
	if other == nil || other.Empty() {
		return true
	}
	if s == nil {
		return false
	}
	for _, idx := range other.Ordered() {
		if !s.Check(idx) {
			return false
		}
	}
	return true
}

// Equal reports whether s and other contain exactly the same members.
func (s *Set) Equal(other *Set) bool {
	return s.Superset(other) && other.Superset(s)
}

// CopyInto overwrites dst's membership with src's (bit_copybits).
func CopyInto(dst, src *Set) {
	dst.Clear()
	if src == nil {
		return
	}
	for _, idx := range src.Ordered() {
		dst.Insert(idx)
	}
}

// ForEach applies f to every member in ascending order, stopping early
// if f returns false.
func (s *Set) ForEach(f func(idx NodeIndex) bool) {
	for _, idx := range s.Ordered() {
		if !f(idx) {
			return
		}
	}
}

// String renders the set as a comma-separated range list, e.g. "0-2,5".
func (s *Set) String() string {
	ord := s.Ordered()
	if len(ord) == 0 {
		return ""
	}
	var parts []string
	low, high := ord[0], ord[0]
	flush := func() {
		if low == high {
			parts = append(parts, fmt.Sprintf("%d", low))
		} else {
			parts = append(parts, fmt.Sprintf("%d-%d", low, high))
		}
	}
	for _, idx := range ord[1:] {
		if idx == high+1 {
			high = idx
			continue
		}
		flush()
		low, high = idx, idx
	}
	flush()
	return strings.Join(parts, ",")
}
