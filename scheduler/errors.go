// Copyright (c) HashiCorp, Inc.
// SPDX-License-Identifier: BUSL-1.1

package scheduler

import "errors"

// All eval_nodes failures collapse to a single ERROR outcome for
// callers that just check err != nil, but internal
// sub-cases are distinct sentinels so tests and detailed logging can
// tell them apart.
var (
	// ErrTooFewCandidates is returned when the candidate bitmap already
	// has fewer members than min_nodes on entry.
	ErrTooFewCandidates = errors.New("nodeselect: fewer candidate nodes than min_nodes")

	// ErrRequiredNodeNotCandidate is returned when a required node is
	// not present in the candidate bitmap on entry.
	ErrRequiredNodeNotCandidate = errors.New("nodeselect: required node not in candidate set")

	// ErrRequiredNodeUnavailable is returned when a required node has
	// zero available CPUs after core/GRES selection.
	ErrRequiredNodeUnavailable = errors.New("nodeselect: required node has no usable resources")

	// ErrMaxNodesExceeded is returned when absorbing required nodes
	// alone would exceed max_nodes.
	ErrMaxNodesExceeded = errors.New("nodeselect: required nodes exceed max_nodes")

	// ErrInsufficientResources is returned when candidates are
	// exhausted before rem_cpus/rem_nodes drain to zero.
	ErrInsufficientResources = errors.New("nodeselect: insufficient resources among candidates")

	// ErrBlockLocality is returned when required nodes span more than
	// one block group.
	ErrBlockLocality = errors.New("nodeselect: required nodes do not share a block")

	// ErrSwitchLocality is returned when required nodes span more than
	// one reachable switch domain.
	ErrSwitchLocality = errors.New("nodeselect: required nodes do not share a switch")

	// ErrConsecStraddle is returned when a contiguous job's required
	// nodes span more than one consecutive run.
	ErrConsecStraddle = errors.New("nodeselect: required nodes straddle more than one consecutive run")

	// ErrNoTopSwitch is returned when no switch in the table covers the
	// required nodes or the lowest-weight bucket.
	ErrNoTopSwitch = errors.New("nodeselect: no switch covers the request")

	// ErrNoUsableBlock is returned when no block group has enough
	// capacity for the request.
	ErrNoUsableBlock = errors.New("nodeselect: no block group has enough capacity")

	// ErrGRESInsufficient is returned when the committed GRES does not
	// satisfy the job's request even though CPU/node counters drained.
	ErrGRESInsufficient = errors.New("nodeselect: GRES request not satisfied")
)
