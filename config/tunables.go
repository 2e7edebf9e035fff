// Copyright (c) HashiCorp, Inc.
// SPDX-License-Identifier: BUSL-1.1

// Package config loads the small set of scheduler tunables eval_nodes
// caches once per process: SchedulerParameters,
// TopologyParam, and SelectTypeParameters. Configuration parsing at
// large is an external collaborator; this package covers
// only the fields the node-selection core reads.
package config

import (
	"bytes"
	"strings"

	"github.com/hashicorp/go-envparse"
	"github.com/mitchellh/mapstructure"
)

// Tunables are the cached, process-wide scheduler settings.
type Tunables struct {
	// PackSerialAtEnd comes from SchedulerParameters containing
	// "pack_serial_at_end".
	PackSerialAtEnd bool

	// HaveDragonfly comes from TopologyParam containing "dragonfly".
	HaveDragonfly bool

	// TopoOptional comes from TopologyParam containing "TopoOptional".
	TopoOptional bool

	// CRSocket, CRLLN, and CROneTaskPerCore come from
	// SelectTypeParameters.
	CRSocket         bool
	CRLLN            bool
	CROneTaskPerCore bool
}

// rawTunables mirrors the KEY=VALUE shape the config text uses before
// the comma-separated parameter lists are split out.
type rawTunables struct {
	SchedulerParameters  string `mapstructure:"SchedulerParameters"`
	TopologyParam        string `mapstructure:"TopologyParam"`
	SelectTypeParameters string `mapstructure:"SelectTypeParameters"`
}

// Load parses a KEY=VALUE configuration blob (the same textual shape as
// slurm.conf) into Tunables. Unknown keys are ignored.
func Load(text string) (*Tunables, error) {
	fields, err := envparse.Parse(bytes.NewBufferString(text))
	if err != nil {
		return nil, err
	}

	// mapstructure wants a case-sensitive map keyed by its tag names;
	// envparse already gives us exactly that shape.
	generic := make(map[string]any, len(fields))
	for k, v := range fields {
		generic[k] = v
	}

	var raw rawTunables
	if err := mapstructure.Decode(generic, &raw); err != nil {
		return nil, err
	}

	return &Tunables{
		PackSerialAtEnd:  hasParam(raw.SchedulerParameters, "pack_serial_at_end"),
		HaveDragonfly:    hasParam(raw.TopologyParam, "dragonfly"),
		TopoOptional:     hasParam(raw.TopologyParam, "topooptional"),
		CRSocket:         hasParam(raw.SelectTypeParameters, "cr_socket"),
		CRLLN:            hasParam(raw.SelectTypeParameters, "cr_lln"),
		CROneTaskPerCore: hasParam(raw.SelectTypeParameters, "cr_one_task_per_core"),
	}, nil
}

// hasParam reports whether comma-separated list contains needle,
// matched case-insensitively (the parameter lists this models are not
// case sensitive in practice).
func hasParam(list, needle string) bool {
	for _, part := range strings.Split(list, ",") {
		if strings.EqualFold(strings.TrimSpace(part), needle) {
			return true
		}
	}
	return false
}
