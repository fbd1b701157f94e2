// Copyright 2026 The hlorunner Authors. SPDX-License-Identifier: Apache-2.0

// Package hlo holds the runner-side representation of a compiled module: an
// immutable intermediate representation of a numerical computation, produced by an
// external compiler and consumed -- never mutated -- by the runner.
//
// The module carries the replica/partition topology metadata the runner needs to
// synthesize compile options, plus a client-opaque computation payload that only the
// device client that lowers it knows how to interpret (compare with how a PJRT
// client accepts an HLO/StableHLO program it alone understands).
package hlo

import (
	"fmt"

	"github.com/pkg/errors"
)

// Config carries the execution topology declared by the module.
type Config struct {
	// ReplicaCount is the number of replicas the module was built for.
	ReplicaCount int

	// NumPartitions is the number of partitions each replica is split into.
	NumPartitions int
}

// Module is an immutable compiled module. Create it with New; there are no mutating
// operations. Ownership of a Module transfers into whatever executable it ends up
// backing, which must keep it alive exactly as long as that executable.
type Module struct {
	name        string
	config      Config
	computation any
}

// New creates a Module with the given name, topology config and client-opaque
// computation payload. Zero replica or partition counts default to 1.
func New(name string, config Config, computation any) (*Module, error) {
	if config.ReplicaCount == 0 {
		config.ReplicaCount = 1
	}
	if config.NumPartitions == 0 {
		config.NumPartitions = 1
	}
	if config.ReplicaCount < 0 || config.NumPartitions < 0 {
		return nil, errors.Errorf("hlo.New(%q): negative topology (replicas=%d, partitions=%d)",
			name, config.ReplicaCount, config.NumPartitions)
	}
	if computation == nil {
		return nil, errors.Errorf("hlo.New(%q): nil computation", name)
	}
	return &Module{name: name, config: config, computation: computation}, nil
}

// Name of the module.
func (m *Module) Name() string { return m.name }

// Config returns the topology metadata declared by the module.
func (m *Module) Config() Config { return m.config }

// Computation returns the client-opaque computation payload.
func (m *Module) Computation() any { return m.computation }

// String implements fmt.Stringer.
func (m *Module) String() string {
	return fmt.Sprintf("Module(%q, replicas=%d, partitions=%d)",
		m.name, m.config.ReplicaCount, m.config.NumPartitions)
}
