package hlo

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewDefaults(t *testing.T) {
	module, err := New("m", Config{}, "payload")
	require.NoError(t, err)
	assert.Equal(t, "m", module.Name())
	assert.Equal(t, Config{ReplicaCount: 1, NumPartitions: 1}, module.Config())
	assert.Equal(t, "payload", module.Computation())
	assert.Contains(t, module.String(), "replicas=1")
}

func TestNewErrors(t *testing.T) {
	_, err := New("m", Config{ReplicaCount: -1}, "payload")
	require.Error(t, err)
	_, err = New("m", Config{}, nil)
	require.Error(t, err)
}
