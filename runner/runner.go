// Copyright 2026 The hlorunner Authors. SPDX-License-Identifier: Apache-2.0

// Package runner drives compiled modules through a device client: it synthesizes
// compile options from module metadata, lowers the module through the client,
// stages host literals into device buffers, invokes sharded execution, and
// materializes the output back into a host literal.
//
// One end-to-end invocation moves through
// compile -> transfer-in -> execute -> transfer-out; any step's failure aborts the
// remaining steps and surfaces immediately to the caller, tagged with the failing
// stage (see errors.go). No step is retried.
//
// A single caller goroutine drives the pipeline synchronously; the device client
// may complete compilation and device work asynchronously, signaled back through
// devclient.Future readiness objects. The only suspension points in this package
// are the explicit awaits in the transfer paths. The runner spawns no goroutines.
package runner

import (
	"time"

	"github.com/pkg/errors"
	"github.com/rjodinchr/hlorunner/devclient"
	"github.com/rjodinchr/hlorunner/hlo"
	"github.com/rjodinchr/hlorunner/types/literals"
	"k8s.io/klog/v2"
)

// defaultDeviceIdx is the index into the client's addressable devices that this
// runner pins both input staging and execution to.
const defaultDeviceIdx = 0

// Runner drives a device client. It exclusively owns the client for its lifetime;
// nothing device-side is cached or shared across end-to-end calls beyond the
// client itself.
type Runner struct {
	client devclient.Client
}

// New creates a Runner owning the given device client.
func New(client devclient.Client) (*Runner, error) {
	if client == nil {
		return nil, errors.New("runner.New: nil device client")
	}
	return &Runner{client: client}, nil
}

// Name identifies this runner kind.
func (r *Runner) Name() string { return "device-runner" }

// Client returns the device client the runner drives. The runner stays the owner.
func (r *Runner) Client() devclient.Client { return r.client }

// Finalize releases the device client and makes the runner invalid.
func (r *Runner) Finalize() {
	if r == nil || r.client == nil {
		return
	}
	r.client.Finalize()
	r.client = nil
}

// defaultDevice resolves the pinned device, failing if the client exposes none.
func (r *Runner) defaultDevice() (devclient.DeviceNum, error) {
	devices := r.client.AddressableDevices()
	if defaultDeviceIdx >= len(devices) {
		return 0, errors.Errorf("device client %q exposes %d addressable devices, need at least %d",
			r.client.Name(), len(devices), defaultDeviceIdx+1)
	}
	return devices[defaultDeviceIdx], nil
}

// finalizeBuffers releases device buffers the runner exclusively owns. Finalize
// failures don't abort anything at this point; they are only logged.
func (r *Runner) finalizeBuffers(buffers []devclient.Buffer) {
	for _, buffer := range buffers {
		if buffer == nil {
			continue
		}
		if err := buffer.Finalize(); err != nil {
			klog.Warningf("failure while finalizing device buffer (%s): %+v", buffer.Shape(), err)
		}
	}
}

// ExecutionProfile collects per-stage wall times of one end-to-end invocation.
// Pass a non-nil profile to Execute to have it filled.
type ExecutionProfile struct {
	CompileTime  time.Duration
	TransferTime time.Duration
	ExecuteTime  time.Duration
}

// GenerateDefaultCompileOptions derives compile options from the module's declared
// replica and partition counts: it obtains the client's default device assignment
// for that topology and inverts runOptimizationPasses into the options'
// RunBackendOnly flag. No side effects beyond the topology query.
func (r *Runner) GenerateDefaultCompileOptions(module *hlo.Module, runOptimizationPasses bool) (devclient.CompileOptions, error) {
	if module == nil {
		return devclient.CompileOptions{}, errors.New("GenerateDefaultCompileOptions: nil module")
	}
	config := module.Config()
	assignment, err := r.client.DefaultDeviceAssignment(config.ReplicaCount, config.NumPartitions)
	if err != nil {
		return devclient.CompileOptions{}, errors.Wrapf(ErrDeviceAssignment,
			"client %q cannot place %s: %v", r.client.Name(), module, err)
	}
	return devclient.CompileOptions{
		DeviceAssignment: assignment,
		NumReplicas:      config.ReplicaCount,
		NumPartitions:    config.NumPartitions,
		RunBackendOnly:   !runOptimizationPasses,
	}, nil
}

// CreateExecutable compiles the module through the device client with default
// compile options and wraps the result. Ownership of the module transfers into the
// returned executable.
func (r *Runner) CreateExecutable(module *hlo.Module, runOptimizationPasses bool) (Executable, error) {
	options, err := r.GenerateDefaultCompileOptions(module, runOptimizationPasses)
	if err != nil {
		return nil, err
	}
	loaded, err := r.client.Compile(module, options)
	if err != nil {
		return nil, errors.Wrapf(ErrCompile, "client %q compiling %s: %v", r.client.Name(), module, err)
	}
	return NewWrappedExecutable(module, loaded), nil
}

// ExecuteWithDeviceBuffers invokes sharded execution of the client-compiled
// program on the runner's pinned device, with the default execution configuration
// (no returned future, host callbacks blocking). The arguments must already be
// device-resident, in caller order; that order is what the program sees.
//
// The program's device assignment must agree with the pinned device the arguments
// were staged on -- a mismatch is a configuration error.
func (r *Runner) ExecuteWithDeviceBuffers(exec devclient.LoadedExecutable, args []devclient.Buffer) ([]devclient.Buffer, error) {
	if exec == nil {
		return nil, errors.New("ExecuteWithDeviceBuffers: nil executable")
	}
	device, err := r.defaultDevice()
	if err != nil {
		return nil, err
	}
	if assignment := exec.DeviceAssignment(); !assignment.IsEmpty() {
		assigned, err := assignment.Device(0, 0)
		if err != nil {
			return nil, err
		}
		if assigned != device {
			return nil, errors.Errorf(
				"executable %q assigned to device %d but inputs are staged on device %d",
				exec.Name(), assigned, device)
		}
	}
	klog.V(1).Infof("ExecuteWithDeviceBuffers(%q): %s", exec.Name(), exec.DeviceAssignment())
	var execOptions devclient.ExecuteOptions
	return exec.ExecuteSharded(args, device, execOptions, nil, false)
}

// ExecuteWithExecutable stages the argument literals, runs the executable through
// the device-specific path and materializes the single output.
//
// The executable must be a *WrappedExecutable -- the only kind this runner
// produces; any other kind fails with ErrUnsupported. Executions yielding other
// than exactly one output fail with *OutputCardinalityError.
//
// Every device buffer the call stages or receives is released before it returns,
// on success and failure alike; only the host output literal outlives the call.
func (r *Runner) ExecuteWithExecutable(exec Executable, args []*literals.Literal, profile *ExecutionProfile) (*literals.Literal, error) {
	wrapped, ok := exec.(*WrappedExecutable)
	if !ok {
		return nil, errors.Wrapf(ErrUnsupported,
			"ExecuteWithExecutable: executable kind %T, only *runner.WrappedExecutable is supported", exec)
	}

	start := time.Now()
	argBuffers, err := r.TransferLiteralsToDevice(args)
	if err != nil {
		return nil, err
	}
	defer r.finalizeBuffers(argBuffers)

	execStart := time.Now()
	outputs, err := r.ExecuteWithDeviceBuffers(wrapped.LoadedExecutable(), argBuffers)
	if err != nil {
		return nil, err
	}
	defer r.finalizeBuffers(outputs)
	if len(outputs) != 1 {
		return nil, &OutputCardinalityError{Got: len(outputs)}
	}

	retrieveStart := time.Now()
	output, err := r.TransferLiteralFromDevice(outputs[0])
	if err != nil {
		return nil, err
	}
	if profile != nil {
		end := time.Now()
		profile.TransferTime += execStart.Sub(start) + end.Sub(retrieveStart)
		profile.ExecuteTime += retrieveStart.Sub(execStart)
	}
	return output, nil
}

// Execute is the end-to-end entry point: compile the module, stage the argument
// literals, run on the pinned device, and return the single output literal.
//
// The first failing step aborts all later ones. Only single-output programs are
// supported (see OutputCardinalityError). The compiled executable lives only for
// the call; use CreateExecutable + ExecuteWithExecutable to amortize compilation.
func (r *Runner) Execute(module *hlo.Module, args []*literals.Literal, runOptimizationPasses bool, profile *ExecutionProfile) (*literals.Literal, error) {
	compileStart := time.Now()
	exec, err := r.CreateExecutable(module, runOptimizationPasses)
	if err != nil {
		return nil, err
	}
	defer exec.Finalize()
	if profile != nil {
		profile.CompileTime += time.Since(compileStart)
	}
	return r.ExecuteWithExecutable(exec, args, profile)
}
