// Copyright (c) HashiCorp, Inc.
// SPDX-License-Identifier: BUSL-1.1

// Package mock provides fixture builders for tests, mirroring
// hashicorp/nomad's nomad/mock package.
package mock

import (
	"fmt"

	uuid "github.com/hashicorp/go-uuid"
	"github.com/hashicorp/nomad-nodeselect/structs"
)

func mustUUID() string {
	id, err := uuid.GenerateUUID()
	if err != nil {
		panic(err)
	}
	return id
}

// Node returns a defaulted single-socket, single-board 8-CPU node.
func Node() *structs.Node {
	return &structs.Node{
		Name:           fmt.Sprintf("node-%s", mustUUID()[:8]),
		SchedWeight:    0,
		CPUs:           8,
		Cores:          8,
		ThreadsPerCore: 1,
		TotalCores:     8,
		TotalSockets:   1,
		Boards:         1,
		CoreSpecCount:  0,
	}
}

// NodeWithCPUs returns a Node with the given CPU/core count (threads
// per core 1, one socket, one board).
func NodeWithCPUs(cpus int) *structs.Node {
	n := Node()
	n.CPUs = cpus
	n.Cores = cpus
	n.TotalCores = cpus
	return n
}

// AvailableResources returns a scratch record with availCPUs == maxCPUs
// == cpus and no GRES floors.
func AvailableResources(cpus int64) *structs.AvailableResources {
	return &structs.AvailableResources{
		AvailCPUs: cpus,
		MaxCPUs:   cpus,
	}
}
