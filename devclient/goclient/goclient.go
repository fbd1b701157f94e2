// Copyright 2026 The hlorunner Authors. SPDX-License-Identifier: Apache-2.0

// Package goclient implements a simple, in-process, pure-Go device client.
//
// It simulates a small pool of addressable devices backed by host memory: buffers
// are flat copies of literal data, readiness futures resolve as soon as the copy is
// staged, and "compilation" lowers a Program payload carried by the module. It is
// the client the runner's tests drive end-to-end, and a reasonable CPU-only default.
//
// Simply import it with import _ "github.com/rjodinchr/hlorunner/devclient/goclient"
// to make it available; it registers itself during initialization.
package goclient

import (
	"fmt"
	"strconv"
	"strings"
	"sync/atomic"

	"github.com/dustin/go-humanize"
	"github.com/pkg/errors"
	"github.com/rjodinchr/hlorunner/devclient"
	"github.com/rjodinchr/hlorunner/types/literals"
	"github.com/rjodinchr/hlorunner/types/xslices"
	"k8s.io/klog/v2"
)

// ClientName to be used in HLORUNNER_CLIENT to specify this client.
const ClientName = "go"

func init() {
	devclient.Register(ClientName, New)
}

// New constructs a Client. The configuration string is the number of simulated
// devices ("2"), or empty for a single device.
func New(config string) (devclient.Client, error) {
	numDevices := 1
	if config != "" {
		var err error
		numDevices, err = strconv.Atoi(strings.TrimSpace(config))
		if err != nil || numDevices <= 0 {
			return nil, errors.Errorf("client %q: invalid device count configuration %q", ClientName, config)
		}
	}
	return NewWithDevices(numDevices), nil
}

// NewWithDevices constructs a Client simulating the given number of devices.
func NewWithDevices(numDevices int) *Client {
	return &Client{numDevices: numDevices}
}

// Client implements devclient.Client with host-memory "devices".
type Client struct {
	numDevices int
	finalized  atomic.Bool

	// allocatedBytes is the total of device memory currently held by live buffers.
	allocatedBytes atomic.Int64

	// numTransfers counts BufferFromHostLiteral calls over the client's lifetime.
	numTransfers atomic.Int64

	// liveExecutables counts compiled programs not yet finalized.
	liveExecutables atomic.Int64

	// TransferHook, if set, is consulted before each host-to-device transfer with
	// the zero-based transfer ordinal; a non-nil result fails that transfer.
	// Test seam, nil in normal use.
	TransferHook func(transferNum int) error

	// ReadyHook, if set, decides the result each new buffer's ready future
	// resolves with. Test seam, nil in normal use.
	ReadyHook func(buffer *Buffer) error
}

var _ devclient.Client = (*Client)(nil)

// CheckValid returns an error if the client is nil or was finalized.
func (c *Client) CheckValid() error {
	if c == nil {
		return errors.Errorf("client %q is nil", ClientName)
	}
	if c.finalized.Load() {
		return errors.Errorf("client %q has already been finalized", ClientName)
	}
	return nil
}

// Name returns the short name of the client.
func (c *Client) Name() string { return ClientName }

// String implements fmt.Stringer.
func (c *Client) String() string { return c.Name() }

// Description is a longer description of the Client that can be used to pretty-print.
func (c *Client) Description() string {
	return fmt.Sprintf("In-process Go device client (%d devices, %s held on device)",
		c.numDevices, humanize.Bytes(uint64(c.allocatedBytes.Load())))
}

// AddressableDevices returns the simulated devices, numbered from 0.
func (c *Client) AddressableDevices() []devclient.DeviceNum {
	return xslices.Iota(devclient.DeviceNum(0), c.numDevices)
}

// DefaultDeviceAssignment fills a numReplicas x numPartitions matrix with the
// addressable devices in order, one device per logical position.
func (c *Client) DefaultDeviceAssignment(numReplicas, numPartitions int) (devclient.DeviceAssignment, error) {
	if err := c.CheckValid(); err != nil {
		return devclient.DeviceAssignment{}, err
	}
	if numReplicas <= 0 || numPartitions <= 0 {
		return devclient.DeviceAssignment{}, errors.Errorf(
			"client %q: topology must be positive, got replicas=%d, partitions=%d",
			ClientName, numReplicas, numPartitions)
	}
	needed := numReplicas * numPartitions
	if needed > c.numDevices {
		return devclient.DeviceAssignment{}, errors.Errorf(
			"client %q: %d x %d topology needs %d devices, only %d addressable",
			ClientName, numReplicas, numPartitions, needed, c.numDevices)
	}
	return devclient.MakeDeviceAssignment(numReplicas, numPartitions,
		xslices.Iota(devclient.DeviceNum(0), needed))
}

// NumTransfers returns how many host-to-device transfers the client has performed.
func (c *Client) NumTransfers() int {
	return int(c.numTransfers.Load())
}

// NumLiveExecutables returns how many compiled programs have not been finalized yet.
func (c *Client) NumLiveExecutables() int {
	return int(c.liveExecutables.Load())
}

// BufferFromHostLiteral allocates a device buffer on the given device and populates
// it with the literal's data. The returned buffer's ready future is resolved by the
// staging itself (or by ReadyHook, when set).
func (c *Client) BufferFromHostLiteral(literal *literals.Literal, device devclient.DeviceNum) (devclient.Buffer, error) {
	if err := c.CheckValid(); err != nil {
		return nil, err
	}
	if literal == nil {
		return nil, errors.Errorf("client %q: BufferFromHostLiteral with nil literal", ClientName)
	}
	if int(device) < 0 || int(device) >= c.numDevices {
		return nil, errors.Errorf("client %q: device %d not addressable (have %d devices)",
			ClientName, device, c.numDevices)
	}
	transferNum := int(c.numTransfers.Add(1)) - 1
	if c.TransferHook != nil {
		if err := c.TransferHook(transferNum); err != nil {
			return nil, err
		}
	}
	buffer := c.newBuffer(literal.Clone(), device)
	if c.ReadyHook != nil {
		buffer.ready.Set(c.ReadyHook(buffer))
	} else {
		buffer.ready.Set(nil)
	}
	if klog.V(2).Enabled() {
		klog.Infof("client %q: staged %s on device %d (%s held on device)",
			ClientName, buffer.shape, device, humanize.Bytes(uint64(c.allocatedBytes.Load())))
	}
	return buffer, nil
}

// Finalize releases all the associated resources immediately, and makes the client invalid.
func (c *Client) Finalize() {
	if c == nil {
		return
	}
	c.finalized.Store(true)
}
