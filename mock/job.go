// Copyright (c) HashiCorp, Inc.
// SPDX-License-Identifier: BUSL-1.1

package mock

import "github.com/hashicorp/nomad-nodeselect/structs"

// Job returns a defaulted job requesting 2 CPUs on a single node.
func Job() *structs.Job {
	return &structs.Job{
		ID:       mustUUID(),
		MinCPUs:  2,
		MinNodes: 1,
		MaxNodes: 1,
		NumTasks: 1,
	}
}
