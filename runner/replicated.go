// Copyright 2026 The hlorunner Authors. SPDX-License-Identifier: Apache-2.0

package runner

import (
	"github.com/pkg/errors"
	"github.com/rjodinchr/hlorunner/devclient"
	"github.com/rjodinchr/hlorunner/hlo"
	"github.com/rjodinchr/hlorunner/types/literals"
)

// Multi-replica execution is not implemented by this runner. The entry points
// below define the intended contract -- per replica, select an executable and its
// arguments, dispatch concurrently across devices per the assignment, and collect
// one host literal per replica in replica order -- so a future implementation does
// not need an interface break. All of them currently fail with ErrUnsupported for
// any input, including degenerate single-replica input.

// ReplicatedExecuteOptions configure a multi-replica execution request.
type ReplicatedExecuteOptions struct {
	// NumReplicas to execute.
	NumReplicas int

	// Arguments shared by every replica, in program parameter order.
	Arguments []*literals.Literal

	// RunOptimizationPasses mirrors the single-invocation flag.
	RunOptimizationPasses bool

	// UseThreads asks for one dispatching goroutine per replica instead of the
	// client's own parallelism.
	UseThreads bool
}

// ExecutableProvider selects the executable a replica runs.
type ExecutableProvider func(replica int) Executable

// ArgumentCountProvider returns the number of arguments a replica's executable takes.
type ArgumentCountProvider func(replica int) int

// ArgumentProvider returns argument argIndex for the given replica.
type ArgumentProvider func(replica, argIndex int) *literals.Literal

// ExecuteReplicated compiles the module with default options and runs one
// execution per replica.
//
// Not implemented: it fails with ErrUnsupported.
func (r *Runner) ExecuteReplicated(module *hlo.Module, options ReplicatedExecuteOptions) ([]*literals.Literal, error) {
	return nil, errors.Wrapf(ErrUnsupported, "ExecuteReplicated")
}

// ExecuteReplicatedWithAssignment is ExecuteReplicated with a caller-supplied
// device assignment instead of the client's default.
//
// Not implemented: it fails with ErrUnsupported.
func (r *Runner) ExecuteReplicatedWithAssignment(module *hlo.Module, options ReplicatedExecuteOptions,
	assignment devclient.DeviceAssignment) ([]*literals.Literal, error) {
	return nil, errors.Wrapf(ErrUnsupported, "ExecuteReplicatedWithAssignment")
}

// ExecuteReplicatedWithProviders is the fully parameterized form: the caller
// supplies, per replica, the executable and its arguments through the provider
// functions.
//
// Not implemented: it fails with ErrUnsupported.
func (r *Runner) ExecuteReplicatedWithProviders(
	executableProvider ExecutableProvider,
	argumentCountProvider ArgumentCountProvider,
	argumentProvider ArgumentProvider,
	options ReplicatedExecuteOptions,
	assignment devclient.DeviceAssignment,
) ([]*literals.Literal, error) {
	return nil, errors.Wrapf(ErrUnsupported, "ExecuteReplicatedWithProviders")
}
