// Copyright (c) HashiCorp, Inc.
// SPDX-License-Identifier: BUSL-1.1

package structs

import "github.com/hashicorp/nomad-nodeselect/nodeset"

// WeightBucket groups every node sharing a scheduling weight. Buckets
// are produced in ascending weight order and, together, partition their
// source bitmap exactly.
type WeightBucket struct {
	Weight uint64
	Nodes  *nodeset.Set
	Count  int
}
