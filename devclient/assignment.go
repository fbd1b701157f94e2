// Copyright 2026 The hlorunner Authors. SPDX-License-Identifier: Apache-2.0

package devclient

import (
	"fmt"
	"strings"

	"github.com/pkg/errors"
)

// DeviceAssignment maps (replica, partition) to the physical device that logical
// position runs on. It is immutable once built; it must be consistent between
// compile time and execute time.
type DeviceAssignment struct {
	numReplicas   int
	numPartitions int

	// devices is the replica-major flattening of the matrix:
	// devices[replica*numPartitions+partition].
	devices []DeviceNum
}

// MakeDeviceAssignment builds an assignment from the replica-major flattened device
// matrix. len(devices) must be numReplicas*numPartitions.
func MakeDeviceAssignment(numReplicas, numPartitions int, devices []DeviceNum) (DeviceAssignment, error) {
	if numReplicas <= 0 || numPartitions <= 0 {
		return DeviceAssignment{}, errors.Errorf(
			"MakeDeviceAssignment: topology must be positive, got replicas=%d, partitions=%d",
			numReplicas, numPartitions)
	}
	if len(devices) != numReplicas*numPartitions {
		return DeviceAssignment{}, errors.Errorf(
			"MakeDeviceAssignment: %d devices given, %d x %d = %d expected",
			len(devices), numReplicas, numPartitions, numReplicas*numPartitions)
	}
	flat := make([]DeviceNum, len(devices))
	copy(flat, devices)
	return DeviceAssignment{
		numReplicas:   numReplicas,
		numPartitions: numPartitions,
		devices:       flat,
	}, nil
}

// IsEmpty reports whether this is the zero assignment (no topology).
func (a DeviceAssignment) IsEmpty() bool { return len(a.devices) == 0 }

// NumReplicas of the assignment.
func (a DeviceAssignment) NumReplicas() int { return a.numReplicas }

// NumPartitions of the assignment.
func (a DeviceAssignment) NumPartitions() int { return a.numPartitions }

// Device returns the physical device assigned to (replica, partition).
// Indices are bound-checked.
func (a DeviceAssignment) Device(replica, partition int) (DeviceNum, error) {
	if replica < 0 || replica >= a.numReplicas || partition < 0 || partition >= a.numPartitions {
		return 0, errors.Errorf("DeviceAssignment.Device(%d, %d) out of bounds for %dx%d assignment",
			replica, partition, a.numReplicas, a.numPartitions)
	}
	return a.devices[replica*a.numPartitions+partition], nil
}

// String pretty-prints the assignment matrix, one replica per row.
func (a DeviceAssignment) String() string {
	if a.IsEmpty() {
		return "DeviceAssignment(empty)"
	}
	var sb strings.Builder
	fmt.Fprintf(&sb, "DeviceAssignment(%dx%d):", a.numReplicas, a.numPartitions)
	for replica := 0; replica < a.numReplicas; replica++ {
		row := a.devices[replica*a.numPartitions : (replica+1)*a.numPartitions]
		fmt.Fprintf(&sb, " %v", row)
	}
	return sb.String()
}
