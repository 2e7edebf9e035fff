// Copyright (c) HashiCorp, Inc.
// SPDX-License-Identifier: BUSL-1.1

package gres

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestNullScheduler_AlwaysSufficient(t *testing.T) {
	var s NullScheduler
	require.False(t, s.Init(&Request{PerJob: map[string]int64{"gpu": 2}}))
	require.True(t, s.Sufficient(&Request{PerJob: map[string]int64{"gpu": 99}}, nil))
	require.True(t, s.Test(&Request{PerJob: map[string]int64{"gpu": 99}}, "job1"))
	require.Equal(t, "", s.String(&Accumulator{Counts: map[string]int64{"gpu": 1}}))
}

func TestInMemoryScheduler_AddThenTest(t *testing.T) {
	s := NewInMemoryScheduler()
	req := &Request{JobID: "job1", PerJob: map[string]int64{"gpu": 4}}
	require.True(t, s.Init(req))
	require.False(t, s.Test(req, "job1"))

	var avail int64 = 8
	require.NoError(t, s.Add(req, SocketGRES{"gpu": 2}, &avail))
	require.NoError(t, s.Add(req, SocketGRES{"gpu": 2}, &avail))
	require.True(t, s.Test(req, "job1"))
}

func TestInMemoryScheduler_AddZeroAvailableClearsCPUs(t *testing.T) {
	s := NewInMemoryScheduler()
	req := &Request{JobID: "job1", PerJob: map[string]int64{"gpu": 1}}
	var avail int64 = 8
	require.NoError(t, s.Add(req, SocketGRES{}, &avail))
	require.Equal(t, int64(0), avail)
}

func TestInMemoryScheduler_ConsecAndSufficient(t *testing.T) {
	s := NewInMemoryScheduler()
	req := &Request{JobID: "job1", PerJob: map[string]int64{"gpu": 3}}
	accum := &Accumulator{}

	s.Consec(accum, req, SocketGRES{"gpu": 1})
	require.False(t, s.Sufficient(req, accum))

	s.Consec(accum, req, SocketGRES{"gpu": 2})
	require.True(t, s.Sufficient(req, accum))
}

func TestInMemoryScheduler_String(t *testing.T) {
	s := NewInMemoryScheduler()
	accum := &Accumulator{Counts: map[string]int64{"gpu": 2, "nic": 1}}
	require.Equal(t, "gpu:2,nic:1", s.String(accum))
	require.Equal(t, "", s.String(nil))
}
