// Copyright 2026 The hlorunner Authors. SPDX-License-Identifier: Apache-2.0

package runner

import (
	"fmt"

	"github.com/pkg/errors"
)

// Sentinels for the runner's failure taxonomy. Each pipeline step surfaces its
// failure immediately, wrapped over the matching sentinel so callers can identify
// the failing stage with errors.Is while still reading the device client's
// diagnostic from the message.
var (
	// ErrDeviceAssignment: the device client cannot satisfy the requested
	// replica/partition topology.
	ErrDeviceAssignment = errors.New("device assignment cannot be satisfied")

	// ErrCompile: the device client rejected the program.
	ErrCompile = errors.New("device client failed to compile the module")

	// ErrTransfer: host-to-device staging failed. Errors of this kind are
	// *TransferError values carrying the failing input index.
	ErrTransfer = errors.New("host to device transfer failed")

	// ErrBufferNotReady: a device buffer's readiness future resolved to failure.
	ErrBufferNotReady = errors.New("device buffer never became ready")

	// ErrUnsupported: the operation is not supported by this runner -- the
	// generic execution path on a device-wrapped executable, and all
	// replicated-execution entry points.
	ErrUnsupported = errors.New("unsupported operation")
)

// TransferError reports a failed host-to-device staging, naming the input index
// that failed. It matches ErrTransfer under errors.Is and unwraps to the
// underlying client failure.
type TransferError struct {
	// Index of the failing input in the caller-supplied argument list.
	Index int

	// Err is the underlying failure, or a "nil input" error for missing entries.
	Err error
}

func (e *TransferError) Error() string {
	return fmt.Sprintf("transfer of input #%d failed: %v", e.Index, e.Err)
}

func (e *TransferError) Unwrap() error { return e.Err }

// Is matches ErrTransfer, so errors.Is(err, ErrTransfer) identifies the stage.
func (e *TransferError) Is(target error) bool { return target == ErrTransfer }

// OutputCardinalityError reports an execution that produced other than exactly one
// output buffer. The runner's end-to-end entry point only supports single-output
// programs; multi-output programs must use ExecuteWithDeviceBuffers directly.
type OutputCardinalityError struct {
	// Got is the number of output buffers execution produced.
	Got int
}

func (e *OutputCardinalityError) Error() string {
	return fmt.Sprintf("execution produced %d outputs, exactly 1 supported", e.Got)
}
