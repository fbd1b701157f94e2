// Copyright 2026 The hlorunner Authors. SPDX-License-Identifier: Apache-2.0

package runner

import (
	"github.com/pkg/errors"
	"github.com/rjodinchr/hlorunner/devclient"
	"github.com/rjodinchr/hlorunner/hlo"
)

// Executable is the generic capability of "can be asynchronously executed given
// device-resident inputs". The runner exposes it for uniformity with other
// executable kinds; its only variant here is WrappedExecutable, which deliberately
// narrows the generic path (see WrappedExecutable.ExecuteAsync).
type Executable interface {
	// Module returns the compiled module backing the executable.
	Module() *hlo.Module

	// ExecuteAsync runs the program over already-device-resident arguments,
	// returning one buffer per output.
	ExecuteAsync(args []devclient.Buffer) ([]devclient.Buffer, error)

	// Finalize immediately frees resources associated with the executable.
	Finalize()
}

// WrappedExecutable adapts a device-client-compiled program into the generic
// Executable capability. It owns both the module and the client-compiled handle:
// ownership of the LoadedExecutable transfers in at construction, and the module
// is kept alive exactly as long as the executable it backs.
type WrappedExecutable struct {
	module *hlo.Module
	loaded devclient.LoadedExecutable
}

var _ Executable = (*WrappedExecutable)(nil)

// NewWrappedExecutable takes ownership of module and loaded.
func NewWrappedExecutable(module *hlo.Module, loaded devclient.LoadedExecutable) *WrappedExecutable {
	return &WrappedExecutable{module: module, loaded: loaded}
}

// Module returns the compiled module backing the executable.
func (e *WrappedExecutable) Module() *hlo.Module { return e.module }

// LoadedExecutable returns the device-client-native handle, for the device-specific
// execution path.
func (e *WrappedExecutable) LoadedExecutable() devclient.LoadedExecutable { return e.loaded }

// ExecuteAsync fails with ErrUnsupported: all real execution of a wrapped
// executable is routed through the device-specific path
// (Runner.ExecuteWithDeviceBuffers); the generic path is not implemented.
func (e *WrappedExecutable) ExecuteAsync([]devclient.Buffer) ([]devclient.Buffer, error) {
	return nil, errors.Wrapf(ErrUnsupported,
		"WrappedExecutable(%q): generic asynchronous execution; use Runner.ExecuteWithDeviceBuffers",
		e.module.Name())
}

// Finalize frees the client-compiled program. The module reference is dropped with it.
func (e *WrappedExecutable) Finalize() {
	if e == nil || e.loaded == nil {
		return
	}
	e.loaded.Finalize()
	e.loaded = nil
	e.module = nil
}
