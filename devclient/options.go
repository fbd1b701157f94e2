// Copyright 2026 The hlorunner Authors. SPDX-License-Identifier: Apache-2.0

package devclient

// CompileOptions configure one Client.Compile call. Derived once per compilation
// and immutable afterwards -- it is passed by value.
type CompileOptions struct {
	// DeviceAssignment the program is placed with. Must stay consistent with the
	// devices execution arguments are staged on.
	DeviceAssignment DeviceAssignment

	// NumReplicas the program is compiled for.
	NumReplicas int

	// NumPartitions each replica is split into.
	NumPartitions int

	// RunBackendOnly tells the client to skip front-end optimization passes and
	// treat the module as already optimized.
	RunBackendOnly bool
}

// ExecuteOptions configure one LoadedExecutable.ExecuteSharded call. The zero value
// is the default configuration the runner uses.
type ExecuteOptions struct {
	// LaunchID tags the execution for the client's tracing, if it has any.
	LaunchID int32

	// NonBlockingHostCallbacks, when set, asks the client to run host callbacks
	// off the launch path. The runner leaves it disabled.
	NonBlockingHostCallbacks bool
}
