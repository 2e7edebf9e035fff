// Copyright (c) HashiCorp, Inc.
// SPDX-License-Identifier: BUSL-1.1

package gres

import (
	"github.com/hashicorp/nomad-nodeselect/nodeset"
	"github.com/hashicorp/nomad-nodeselect/structs"
)

// NullScheduler is a Scheduler for jobs and callers that never use
// GRES: every predicate is trivially satisfied and no accounting
// happens. Strategies use it whenever a job has no GRES request so
// the GRES hooks stay unconditional call sites rather than nil checks
// scattered through the algorithm.
type NullScheduler struct{}

var _ Scheduler = NullScheduler{}

func (NullScheduler) Init(*Request) bool { return false }

func (NullScheduler) Add(*Request, SocketGRES, *int64) error { return nil }

func (NullScheduler) Consec(*Accumulator, *Request, SocketGRES) {}

func (NullScheduler) Sufficient(*Request, *Accumulator) bool { return true }

func (NullScheduler) Test(*Request, string) bool { return true }

func (NullScheduler) String(*Accumulator) string { return "" }

func (NullScheduler) FilterSockCore(*structs.Node, *structs.AvailableResources, *nodeset.Set, int) error {
	return nil
}
