// Copyright 2026 The hlorunner Authors. SPDX-License-Identifier: Apache-2.0

package runner

import (
	"github.com/pkg/errors"
	"github.com/rjodinchr/hlorunner/devclient"
	"github.com/rjodinchr/hlorunner/types/literals"
)

// TransferLiteralToDevice stages one host literal onto the runner's pinned device
// and blocks until the resulting buffer's readiness future resolves successfully.
// The returned buffer is owned by the caller.
func (r *Runner) TransferLiteralToDevice(literal *literals.Literal) (devclient.Buffer, error) {
	device, err := r.defaultDevice()
	if err != nil {
		return nil, err
	}
	buffer, err := r.client.BufferFromHostLiteral(literal, device)
	if err != nil {
		return nil, err
	}
	if err := buffer.ReadyFuture().Await(); err != nil {
		r.finalizeBuffers([]devclient.Buffer{buffer})
		return nil, errors.Wrapf(ErrBufferNotReady, "staging %s on device %d: %v", literal.Shape(), device, err)
	}
	return buffer, nil
}

// TransferLiteralsToDevice stages the literals in caller-supplied order,
// accumulating owned buffers. It fails fast: a nil entry at index k, or a transfer
// failure at index k, aborts with a *TransferError naming k, and no literal beyond
// k is ever sent to the device. On failure, buffers staged before k are released;
// nothing stays resident.
func (r *Runner) TransferLiteralsToDevice(lits []*literals.Literal) ([]devclient.Buffer, error) {
	buffers := make([]devclient.Buffer, 0, len(lits))
	for ii, literal := range lits {
		if literal == nil {
			r.finalizeBuffers(buffers)
			return nil, &TransferError{Index: ii, Err: errors.New("nil input literal")}
		}
		buffer, err := r.TransferLiteralToDevice(literal)
		if err != nil {
			r.finalizeBuffers(buffers)
			return nil, &TransferError{Index: ii, Err: err}
		}
		buffers = append(buffers, buffer)
	}
	return buffers, nil
}

// TransferLiteralFromDevice awaits the buffer's readiness future and then
// synchronously materializes it into a host literal. Blocking from the caller's
// perspective, whatever the client does internally.
func (r *Runner) TransferLiteralFromDevice(buffer devclient.Buffer) (*literals.Literal, error) {
	if buffer == nil {
		return nil, errors.New("TransferLiteralFromDevice: nil buffer")
	}
	if err := buffer.ReadyFuture().Await(); err != nil {
		return nil, errors.Wrapf(ErrBufferNotReady, "%v", err)
	}
	return buffer.ToLiteralSync()
}
