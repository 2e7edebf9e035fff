// Copyright (c) HashiCorp, Inc.
// SPDX-License-Identifier: BUSL-1.1

package gres

import (
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/hashicorp/nomad-nodeselect/nodeset"
	"github.com/hashicorp/nomad-nodeselect/structs"
)

// InMemoryScheduler is a reference Scheduler that tracks committed
// per-job GRES counts in memory. It is sufficient for the boundary
// scenarios and for tests; it does not model per-socket
// affinity, only aggregate counts by GRES type name.
type InMemoryScheduler struct {
	mu        sync.Mutex
	committed map[string]map[string]int64
}

var _ Scheduler = (*InMemoryScheduler)(nil)

// NewInMemoryScheduler returns an empty InMemoryScheduler.
func NewInMemoryScheduler() *InMemoryScheduler {
	return &InMemoryScheduler{committed: make(map[string]map[string]int64)}
}

func (s *InMemoryScheduler) Init(req *Request) bool {
	return req != nil && len(req.PerJob) > 0
}

func (s *InMemoryScheduler) Add(req *Request, sockets SocketGRES, availCPUs *int64) error {
	if req == nil || len(req.PerJob) == 0 {
		return nil
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	bucket := s.committed[req.JobID]
	if bucket == nil {
		bucket = make(map[string]int64)
		s.committed[req.JobID] = bucket
	}
	for gresType, want := range req.PerJob {
		have := sockets[gresType]
		if have <= 0 {
			// Node cannot host any of the required GRES type; the
			// caller treats avail_cpus == 0 as "node unusable now."
			if availCPUs != nil {
				*availCPUs = 0
			}
			return nil
		}
		take := want
		if have < take {
			take = have
		}
		bucket[gresType] += take
	}
	return nil
}

func (s *InMemoryScheduler) Consec(accum *Accumulator, req *Request, sockets SocketGRES) {
	if req == nil || accum == nil {
		return
	}
	if accum.Counts == nil {
		accum.Counts = make(map[string]int64)
	}
	for gresType, want := range req.PerJob {
		have := sockets[gresType]
		take := want
		if have < take {
			take = have
		}
		accum.Counts[gresType] += take
	}
}

func (s *InMemoryScheduler) Sufficient(req *Request, accum *Accumulator) bool {
	if req == nil || len(req.PerJob) == 0 {
		return true
	}
	for gresType, want := range req.PerJob {
		var have int64
		if accum != nil {
			have = accum.Counts[gresType]
		}
		if have < want {
			return false
		}
	}
	return true
}

func (s *InMemoryScheduler) Test(req *Request, jobID string) bool {
	if req == nil || len(req.PerJob) == 0 {
		return true
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	bucket := s.committed[jobID]
	for gresType, want := range req.PerJob {
		if bucket[gresType] < want {
			return false
		}
	}
	return true
}

func (s *InMemoryScheduler) String(accum *Accumulator) string {
	if accum == nil || len(accum.Counts) == 0 {
		return ""
	}
	keys := make([]string, 0, len(accum.Counts))
	for k := range accum.Counts {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, fmt.Sprintf("%s:%d", k, accum.Counts[k]))
	}
	return strings.Join(parts, ",")
}

// FilterSockCore is a no-op in the reference implementation: it does
// not model per-socket device affinity, only aggregate counts.
func (s *InMemoryScheduler) FilterSockCore(*structs.Node, *structs.AvailableResources, *nodeset.Set, int) error {
	return nil
}
