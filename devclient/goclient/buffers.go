// Copyright 2026 The hlorunner Authors. SPDX-License-Identifier: Apache-2.0

package goclient

import (
	"github.com/pkg/errors"
	"github.com/rjodinchr/hlorunner/devclient"
	"github.com/rjodinchr/hlorunner/types/literals"
	"github.com/rjodinchr/hlorunner/types/shapes"
)

// Buffer is goclient's device-resident value: a literal held on behalf of one
// simulated device, plus the readiness signal for it.
type Buffer struct {
	client *Client
	value  *literals.Literal
	shape  shapes.Shape
	device devclient.DeviceNum
	ready  *devclient.Future

	finalized bool
}

var _ devclient.Buffer = (*Buffer)(nil)

// newBuffer takes ownership of value. The ready future starts unresolved; the
// caller resolves it once staging is done.
func (c *Client) newBuffer(value *literals.Literal, device devclient.DeviceNum) *Buffer {
	c.allocatedBytes.Add(int64(value.Memory()))
	return &Buffer{
		client: c,
		value:  value,
		shape:  value.Shape(),
		device: device,
		ready:  devclient.NewFuture(),
	}
}

// castBuffer checks that a devclient.Buffer belongs to this client.
func castBuffer(buffer devclient.Buffer) (*Buffer, error) {
	b, ok := buffer.(*Buffer)
	if !ok {
		return nil, errors.Errorf("buffer given is not a %q client buffer (got %T)", ClientName, buffer)
	}
	return b, nil
}

// Shape of the value held by the buffer.
func (b *Buffer) Shape() shapes.Shape { return b.shape }

// Device the buffer resides on.
func (b *Buffer) Device() devclient.DeviceNum { return b.device }

// ReadyFuture resolves when the buffer's contents are valid on device.
func (b *Buffer) ReadyFuture() *devclient.Future { return b.ready }

// ToLiteralSync materializes the buffer back into a host literal.
// It fails if the buffer was finalized or its readiness resolved to an error.
func (b *Buffer) ToLiteralSync() (*literals.Literal, error) {
	if b == nil || b.finalized {
		return nil, errors.Errorf("client %q: ToLiteralSync on finalized buffer", ClientName)
	}
	select {
	case <-b.ready.Done():
		if err := b.ready.Await(); err != nil {
			return nil, errors.WithMessagef(err, "client %q: buffer never became ready", ClientName)
		}
	default:
		return nil, errors.Errorf("client %q: ToLiteralSync before buffer readiness", ClientName)
	}
	return b.value.Clone(), nil
}

// Finalize immediately frees the device resources backing the buffer.
func (b *Buffer) Finalize() error {
	if b == nil || b.finalized {
		return errors.Errorf("client %q: buffer already finalized", ClientName)
	}
	b.finalized = true
	b.client.allocatedBytes.Add(-int64(b.shape.Memory()))
	b.value = nil
	return nil
}
