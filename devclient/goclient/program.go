// Copyright 2026 The hlorunner Authors. SPDX-License-Identifier: Apache-2.0

package goclient

import (
	"github.com/pkg/errors"
	"github.com/rjodinchr/hlorunner/devclient"
	"github.com/rjodinchr/hlorunner/hlo"
	"github.com/rjodinchr/hlorunner/types/literals"
	"github.com/rjodinchr/hlorunner/types/shapes"
	"github.com/rjodinchr/hlorunner/types/xslices"
	"k8s.io/klog/v2"
)

// Program is the computation payload this client knows how to lower: declared
// output shapes plus the host function that applies the computation. A module
// compiled for this client must carry a *Program as its computation.
type Program struct {
	// OutputShapes declares the shapes of the outputs Apply produces.
	OutputShapes []shapes.Shape

	// Apply evaluates the computation over the argument literals.
	Apply func(args []*literals.Literal) ([]*literals.Literal, error)
}

// castProgram checks that the module's computation is a Program for this client.
func castProgram(module *hlo.Module) (*Program, error) {
	program, ok := module.Computation().(*Program)
	if !ok {
		return nil, errors.Errorf("client %q: %s carries a %T computation, *goclient.Program expected",
			ClientName, module, module.Computation())
	}
	if program.Apply == nil || len(program.OutputShapes) == 0 {
		return nil, errors.Errorf("client %q: %s carries an incomplete program", ClientName, module)
	}
	return program, nil
}

// Compile lowers the module's Program into a loaded executable pinned to the
// device the options' assignment places (replica 0, partition 0) on.
func (c *Client) Compile(module *hlo.Module, options devclient.CompileOptions) (devclient.LoadedExecutable, error) {
	if err := c.CheckValid(); err != nil {
		return nil, err
	}
	if module == nil {
		return nil, errors.Errorf("client %q: Compile with nil module", ClientName)
	}
	program, err := castProgram(module)
	if err != nil {
		return nil, err
	}
	assignment := options.DeviceAssignment
	if assignment.IsEmpty() {
		return nil, errors.Errorf("client %q: Compile(%s) without a device assignment", ClientName, module)
	}
	device, err := assignment.Device(0, 0)
	if err != nil {
		return nil, errors.WithMessagef(err, "client %q: Compile(%s)", ClientName, module)
	}
	if int(device) < 0 || int(device) >= c.numDevices {
		return nil, errors.Errorf("client %q: Compile(%s) assigned to device %d, only %d addressable",
			ClientName, module, device, c.numDevices)
	}
	if klog.V(1).Enabled() {
		klog.Infof("client %q: compiled %s for device %d (backend_only=%v)",
			ClientName, module, device, options.RunBackendOnly)
	}
	c.liveExecutables.Add(1)
	return &loadedExecutable{
		client:     c,
		name:       module.Name(),
		program:    program,
		device:     device,
		assignment: assignment,
	}, nil
}

// loadedExecutable implements devclient.LoadedExecutable for goclient.
type loadedExecutable struct {
	client     *Client
	name       string
	program    *Program
	device     devclient.DeviceNum
	assignment devclient.DeviceAssignment

	finalized bool
}

var _ devclient.LoadedExecutable = (*loadedExecutable)(nil)

// Name of the program.
func (e *loadedExecutable) Name() string { return e.name }

// DeviceAssignment the program was compiled with.
func (e *loadedExecutable) DeviceAssignment() devclient.DeviceAssignment { return e.assignment }

// OutputShapes returns the shapes of the program's outputs, in output order.
func (e *loadedExecutable) OutputShapes() []shapes.Shape { return e.program.OutputShapes }

// ExecuteSharded runs the program on the given device. Arguments must reside on
// that device and have successfully resolved readiness; outputs come back as fresh
// buffers on the same device with already-resolved readiness.
func (e *loadedExecutable) ExecuteSharded(
	args []devclient.Buffer,
	device devclient.DeviceNum,
	options devclient.ExecuteOptions,
	returnedFuture *devclient.Future,
	fillFuture bool,
) ([]devclient.Buffer, error) {
	outputs, err := e.executeSharded(args, device, options)
	if fillFuture && returnedFuture != nil {
		returnedFuture.Set(err)
	}
	return outputs, err
}

func (e *loadedExecutable) executeSharded(
	args []devclient.Buffer,
	device devclient.DeviceNum,
	_ devclient.ExecuteOptions,
) ([]devclient.Buffer, error) {
	if e == nil || e.finalized {
		return nil, errors.Errorf("client %q: ExecuteSharded on finalized executable", ClientName)
	}
	if err := e.client.CheckValid(); err != nil {
		return nil, err
	}
	if device != e.device {
		return nil, errors.Errorf("client %q: executable %q compiled for device %d, asked to run on device %d",
			ClientName, e.name, e.device, device)
	}
	argValues := make([]*literals.Literal, len(args))
	for ii, arg := range args {
		buffer, err := castBuffer(arg)
		if err != nil {
			return nil, errors.WithMessagef(err, "argument #%d to %q", ii, e.name)
		}
		if buffer.device != device {
			return nil, errors.Errorf("client %q: argument #%d to %q resides on device %d, execution on device %d",
				ClientName, ii, e.name, buffer.device, device)
		}
		if err := buffer.ready.Await(); err != nil {
			return nil, errors.WithMessagef(err, "client %q: argument #%d to %q never became ready",
				ClientName, ii, e.name)
		}
		if buffer.finalized {
			return nil, errors.Errorf("client %q: argument #%d to %q was finalized", ClientName, ii, e.name)
		}
		argValues[ii] = buffer.value
	}
	results, err := e.program.Apply(argValues)
	if err != nil {
		return nil, errors.WithMessagef(err, "client %q: executing %q", ClientName, e.name)
	}
	if len(results) != len(e.program.OutputShapes) {
		return nil, errors.Errorf("client %q: %q produced %d outputs, %d declared",
			ClientName, e.name, len(results), len(e.program.OutputShapes))
	}
	for ii, result := range results {
		if !result.Shape().Equal(e.program.OutputShapes[ii]) {
			return nil, errors.Errorf("client %q: %q output #%d has shape %s, declared %s",
				ClientName, e.name, ii, result.Shape(), e.program.OutputShapes[ii])
		}
	}
	return xslices.Map(results, func(result *literals.Literal) devclient.Buffer {
		buffer := e.client.newBuffer(result.Clone(), device)
		buffer.ready.Set(nil)
		return buffer
	}), nil
}

// Finalize immediately frees resources associated with the executable.
func (e *loadedExecutable) Finalize() {
	if e == nil || e.finalized {
		return
	}
	e.finalized = true
	e.program = nil
	e.client.liveExecutables.Add(-1)
}
