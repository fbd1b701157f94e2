// Copyright 2026 The hlorunner Authors. SPDX-License-Identifier: Apache-2.0

// Package devclient defines the capability interface a device client needs to
// implement to be driven by the runner, plus a registry of available client
// implementations.
//
// It is modeled on PJRT's client API: a client knows how to lower ("compile") a
// module for its devices, allocate device buffers from host literals, and execute a
// compiled program. Compilation and device operations may complete asynchronously
// inside the client; completion is signaled back through Future readiness objects.
// The runner never assumes how a client implements asynchrony or multi-device
// placement beyond what this interface states.
package devclient

import (
	"os"
	"strings"

	"github.com/pkg/errors"
	"github.com/rjodinchr/hlorunner/hlo"
	"github.com/rjodinchr/hlorunner/types/literals"
	"github.com/rjodinchr/hlorunner/types/shapes"
)

// DeviceNum identifies one physical device addressable by a client.
// It is up to the client to interpret it; clients report their devices through
// Client.AddressableDevices.
type DeviceNum int

// Client is the device-client capability the runner drives.
//
// A Client instance is exclusively owned by its runner for the runner's lifetime and
// is the single source of truth for device topology, buffer allocation and
// executable compilation.
type Client interface {
	// Name returns the short name of the client. E.g.: "go" for the in-process Go client.
	Name() string

	// Description is a longer description of the Client that can be used to pretty-print.
	Description() string

	// AddressableDevices returns the devices this client can place buffers and
	// executions on, in a stable order.
	AddressableDevices() []DeviceNum

	// DefaultDeviceAssignment returns the client's default placement of
	// numReplicas x numPartitions logical devices onto physical devices.
	// It fails if the client cannot satisfy the requested topology.
	DefaultDeviceAssignment(numReplicas, numPartitions int) (DeviceAssignment, error)

	// Compile lowers the module's computation into a program loaded on this
	// client's devices, placed per options.DeviceAssignment.
	// The returned executable is owned by the caller and must be finalized when
	// no longer needed.
	Compile(module *hlo.Module, options CompileOptions) (LoadedExecutable, error)

	// BufferFromHostLiteral allocates a device buffer on the given device and
	// populates it with the literal's data. The buffer may not be immediately
	// usable: callers must await its ReadyFuture before reading it.
	BufferFromHostLiteral(literal *literals.Literal, device DeviceNum) (Buffer, error)

	// Finalize releases all the associated resources immediately, and makes the client invalid.
	Finalize()
}

// Buffer is an opaque device-resident value handle.
//
// A buffer must not be read -- executed with, or materialized -- before its
// ReadyFuture resolved successfully.
type Buffer interface {
	// Shape of the value held by the buffer.
	Shape() shapes.Shape

	// Device the buffer resides on.
	Device() DeviceNum

	// ReadyFuture resolves when the buffer's contents are valid on device, or with
	// the client's failure diagnostic if population failed. Repeated calls return
	// the same underlying signal.
	ReadyFuture() *Future

	// ToLiteralSync synchronously materializes the buffer into a host literal.
	// Callers must have awaited ReadyFuture first.
	ToLiteralSync() (*literals.Literal, error)

	// Finalize immediately frees the device resources backing the buffer.
	// A finalized buffer should never be used again.
	Finalize() error
}

// LoadedExecutable is a client-native compiled program, loaded on the client's
// devices and ready for execution.
type LoadedExecutable interface {
	// Name of the program, usually the module name it was compiled from.
	Name() string

	// DeviceAssignment the program was compiled with. It must agree with the
	// device execution arguments are staged on.
	DeviceAssignment() DeviceAssignment

	// OutputShapes returns the shapes of the program's outputs, in output order.
	OutputShapes() []shapes.Shape

	// ExecuteSharded runs the program on the given device with the given
	// already-device-resident arguments, returning one buffer per program output.
	//
	// If fillFuture is true and returnedFuture is non-nil, the client resolves
	// returnedFuture when the execution's device work completes.
	ExecuteSharded(args []Buffer, device DeviceNum, options ExecuteOptions,
		returnedFuture *Future, fillFuture bool) ([]Buffer, error)

	// Finalize immediately frees resources associated with the executable.
	Finalize()
}

// ErrNotImplemented is the sentinel wrapped by clients for capabilities they do not
// support. Attach a stack and context with errors.Wrapf(ErrNotImplemented, "...").
var ErrNotImplemented = errors.New("not implemented")

// Constructor takes a config string (optionally empty) and returns a Client.
type Constructor func(config string) (Client, error)

var (
	registeredConstructors = make(map[string]Constructor)
	firstRegistered        string
)

// Register a client constructor under the given name. The constructor takes a
// configuration string that is passed along to the client.
//
// To be safe, call Register during initialization of a package.
func Register(name string, constructor Constructor) {
	if len(registeredConstructors) == 0 {
		firstRegistered = name
	}
	registeredConstructors[name] = constructor
}

// DefaultConfig is the client configuration to use if none is otherwise specified.
//
// See NewWithConfig for the format of the configuration string.
var DefaultConfig string

// ClientEnvVar is the environment variable with the default client configuration.
//
// The format of config is "<client_name>:<client_configuration>".
// The "<client_name>" is the name of a registered client (e.g.: "go") and
// "<client_configuration>" is client specific.
const ClientEnvVar = "HLORUNNER_CLIENT"

// New returns a new default Client.
//
// The default is:
//
// 1. The environment HLORUNNER_CLIENT is used as a configuration if defined.
// 2. Next the variable DefaultConfig is used as a configuration if defined.
// 3. The first registered client is used with an empty configuration.
func New() (Client, error) {
	if config, found := os.LookupEnv(ClientEnvVar); found {
		return NewWithConfig(config)
	}
	if DefaultConfig != "" {
		return NewWithConfig(DefaultConfig)
	}
	return NewWithConfig("")
}

// NewWithConfig creates a Client from a configuration string formatted as
// "<client_name>:<client_configuration>".
//
// The "<client_name>" is the name of a registered client (e.g.: "go") and
// "<client_configuration>" is client specific.
func NewWithConfig(config string) (Client, error) {
	if len(registeredConstructors) == 0 {
		return nil, errors.Errorf(`no registered device clients -- maybe import the in-process one with import _ "github.com/rjodinchr/hlorunner/devclient/goclient"?`)
	}
	clientName := firstRegistered
	clientConfig := config
	if idx := strings.Index(config, ":"); idx != -1 {
		clientName = config[:idx]
		clientConfig = config[idx+1:]
	}
	constructor, found := registeredConstructors[clientName]
	if !found {
		return nil, errors.Errorf("can't find device client %q for configuration %q given", clientName, config)
	}
	return constructor(clientConfig)
}
