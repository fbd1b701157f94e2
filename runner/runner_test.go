package runner

import (
	"testing"
	"time"

	"github.com/gomlx/gopjrt/dtypes"
	"github.com/janpfeifer/must"
	"github.com/pkg/errors"
	"github.com/rjodinchr/hlorunner/devclient"
	"github.com/rjodinchr/hlorunner/devclient/goclient"
	"github.com/rjodinchr/hlorunner/hlo"
	"github.com/rjodinchr/hlorunner/types/literals"
	"github.com/rjodinchr/hlorunner/types/shapes"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// newTestRunner returns a runner over a fresh in-process client with the given
// number of simulated devices.
func newTestRunner(t *testing.T, numDevices int) (*Runner, *goclient.Client) {
	client := goclient.NewWithDevices(numDevices)
	r := must.M1(New(client))
	t.Cleanup(r.Finalize)
	return r, client
}

// scaleModule builds a single-output module computing factor*x over float64 with
// the given input shape.
func scaleModule(t *testing.T, name string, config hlo.Config, shape shapes.Shape, factor float64) *hlo.Module {
	program := &goclient.Program{
		OutputShapes: []shapes.Shape{shape},
		Apply: func(args []*literals.Literal) ([]*literals.Literal, error) {
			if len(args) != 1 {
				return nil, errors.Errorf("want 1 argument, got %d", len(args))
			}
			out := args[0].Clone()
			literals.MutableFlatData(out, func(flat []float64) {
				for ii := range flat {
					flat[ii] *= factor
				}
			})
			return []*literals.Literal{out}, nil
		},
	}
	module, err := hlo.New(name, config, program)
	require.NoError(t, err)
	return module
}

func TestGenerateDefaultCompileOptions(t *testing.T) {
	r, _ := newTestRunner(t, 2)
	module := scaleModule(t, "scale", hlo.Config{ReplicaCount: 1, NumPartitions: 2}, shapes.Scalar[float64](), 2)

	options := must.M1(r.GenerateDefaultCompileOptions(module, false))
	assert.Equal(t, 1, options.NumReplicas)
	assert.Equal(t, 2, options.NumPartitions)
	assert.True(t, options.RunBackendOnly)
	assert.Equal(t, 1, options.DeviceAssignment.NumReplicas())
	assert.Equal(t, 2, options.DeviceAssignment.NumPartitions())

	options = must.M1(r.GenerateDefaultCompileOptions(module, true))
	assert.False(t, options.RunBackendOnly)
}

func TestGenerateDefaultCompileOptionsTopologyFailure(t *testing.T) {
	r, _ := newTestRunner(t, 1)
	module := scaleModule(t, "wide", hlo.Config{ReplicaCount: 2, NumPartitions: 2}, shapes.Scalar[float64](), 2)
	_, err := r.GenerateDefaultCompileOptions(module, true)
	require.ErrorIs(t, err, ErrDeviceAssignment)

	_, err = r.Execute(module, nil, true, nil)
	require.ErrorIs(t, err, ErrDeviceAssignment)
}

func TestCreateExecutable(t *testing.T) {
	r, _ := newTestRunner(t, 1)
	module := scaleModule(t, "scale", hlo.Config{}, shapes.Scalar[float64](), 2)

	exec := must.M1(r.CreateExecutable(module, true))
	defer exec.Finalize()
	require.Same(t, module, exec.Module())

	wrapped, ok := exec.(*WrappedExecutable)
	require.True(t, ok)
	require.NotNil(t, wrapped.LoadedExecutable())
	assert.Equal(t, "scale", wrapped.LoadedExecutable().Name())

	// The generic asynchronous path is deliberately not implemented.
	_, err := exec.ExecuteAsync(nil)
	require.ErrorIs(t, err, ErrUnsupported)
}

func TestCreateExecutableCompileFailure(t *testing.T) {
	r, _ := newTestRunner(t, 1)
	module := must.M1(hlo.New("bogus", hlo.Config{}, "not a go client program"))
	_, err := r.CreateExecutable(module, true)
	require.ErrorIs(t, err, ErrCompile)
}

func TestTransferRoundTrip(t *testing.T) {
	r, _ := newTestRunner(t, 1)
	input := literals.FromFlatDataAndDimensions([]int32{1, 2, 3, 4, 5, 6}, 3, 2)

	buffer := must.M1(r.TransferLiteralToDevice(input))
	back := must.M1(r.TransferLiteralFromDevice(buffer))
	require.True(t, input.Equal(back))
}

func TestTransferOrderPreserved(t *testing.T) {
	r, _ := newTestRunner(t, 1)

	// The program encodes the order its arguments arrive in: 100*a + 10*b + c.
	outShape := shapes.Scalar[float64]()
	program := &goclient.Program{
		OutputShapes: []shapes.Shape{outShape},
		Apply: func(args []*literals.Literal) ([]*literals.Literal, error) {
			value := 0.0
			for _, arg := range args {
				value = value*10 + literals.ToScalar[float64](arg)
			}
			return []*literals.Literal{literals.FromScalar(value)}, nil
		},
	}
	module := must.M1(hlo.New("ordered", hlo.Config{}, program))

	output := must.M1(r.Execute(module, []*literals.Literal{
		literals.FromScalar(1.0),
		literals.FromScalar(2.0),
		literals.FromScalar(3.0),
	}, true, nil))
	assert.Equal(t, 123.0, literals.ToScalar[float64](output))
}

func TestTransferNilInputAborts(t *testing.T) {
	r, client := newTestRunner(t, 1)
	inputs := []*literals.Literal{
		literals.FromScalar(1.0),
		nil,
		literals.FromScalar(3.0),
	}

	_, err := r.TransferLiteralsToDevice(inputs)
	require.ErrorIs(t, err, ErrTransfer)
	var transferErr *TransferError
	require.ErrorAs(t, err, &transferErr)
	assert.Equal(t, 1, transferErr.Index)
	// Nothing beyond the failing index was ever sent to the device, and the
	// buffer staged before it was released.
	assert.Equal(t, 1, client.NumTransfers())
	assert.Contains(t, client.Description(), "0 B held")
}

func TestTransferFailureAborts(t *testing.T) {
	r, client := newTestRunner(t, 1)
	cause := errors.New("transfer wire broke")
	client.TransferHook = func(transferNum int) error {
		if transferNum == 1 {
			return cause
		}
		return nil
	}

	inputs := []*literals.Literal{
		literals.FromScalar(1.0),
		literals.FromScalar(2.0),
		literals.FromScalar(3.0),
	}
	_, err := r.TransferLiteralsToDevice(inputs)
	var transferErr *TransferError
	require.ErrorAs(t, err, &transferErr)
	assert.Equal(t, 1, transferErr.Index)
	require.ErrorIs(t, err, cause)
	// The failing transfer was the last one attempted, and the buffer staged
	// before the failure was released.
	assert.Equal(t, 2, client.NumTransfers())
	assert.Contains(t, client.Description(), "0 B held")
}

func TestTransferBufferNotReady(t *testing.T) {
	r, client := newTestRunner(t, 1)
	cause := errors.New("DMA failed")
	client.ReadyHook = func(buffer *goclient.Buffer) error { return cause }

	_, err := r.TransferLiteralToDevice(literals.FromScalar(1.0))
	require.ErrorIs(t, err, ErrBufferNotReady)

	_, err = r.TransferLiteralsToDevice([]*literals.Literal{literals.FromScalar(1.0)})
	require.ErrorIs(t, err, ErrTransfer)
	require.ErrorIs(t, err, ErrBufferNotReady)
}

func TestExecuteOutputShape(t *testing.T) {
	r, _ := newTestRunner(t, 1)
	shape := shapes.Make(dtypes.Float64, 2, 3)
	module := scaleModule(t, "scale", hlo.Config{}, shape, 3)

	input := literals.FromFlatDataAndDimensions([]float64{1, 2, 3, 4, 5, 6}, 2, 3)
	output := must.M1(r.Execute(module, []*literals.Literal{input}, true, nil))
	require.True(t, output.Shape().Equal(shape))
	assert.Equal(t, []float64{3, 6, 9, 12, 15, 18}, literals.CopyFlatData[float64](output))
}

func TestExecuteOutputCardinality(t *testing.T) {
	r, client := newTestRunner(t, 1)
	outShape := shapes.Scalar[float64]()
	program := &goclient.Program{
		OutputShapes: []shapes.Shape{outShape, outShape},
		Apply: func(args []*literals.Literal) ([]*literals.Literal, error) {
			return []*literals.Literal{literals.FromScalar(1.0), literals.FromScalar(2.0)}, nil
		},
	}
	module := must.M1(hlo.New("twoOutputs", hlo.Config{}, program))

	_, err := r.Execute(module, nil, true, nil)
	var cardinalityErr *OutputCardinalityError
	require.ErrorAs(t, err, &cardinalityErr)
	assert.Equal(t, 2, cardinalityErr.Got)
	// Both surplus output buffers were released on the error path.
	assert.Contains(t, client.Description(), "0 B held")
}

// TestExecuteReleasesDeviceResources: once an end-to-end call returns, nothing
// stays resident on the device -- staged inputs, the output buffer, and the
// compiled program are all released; the caller keeps only the host literal.
func TestExecuteReleasesDeviceResources(t *testing.T) {
	r, client := newTestRunner(t, 1)
	module := scaleModule(t, "double", hlo.Config{}, shapes.Scalar[float64](), 2)

	output := must.M1(r.Execute(module, []*literals.Literal{literals.FromScalar(3.0)}, true, nil))
	assert.Equal(t, 6.0, literals.ToScalar[float64](output))
	assert.Contains(t, client.Description(), "0 B held")
	assert.Equal(t, 0, client.NumLiveExecutables())
}

func TestExecuteWithExecutableRejectsForeignKind(t *testing.T) {
	r, _ := newTestRunner(t, 1)
	_, err := r.ExecuteWithExecutable(foreignExecutable{}, nil, nil)
	require.ErrorIs(t, err, ErrUnsupported)
}

// foreignExecutable is an Executable kind the runner does not know how to drive.
type foreignExecutable struct{}

func (foreignExecutable) Module() *hlo.Module { return nil }
func (foreignExecutable) ExecuteAsync([]devclient.Buffer) ([]devclient.Buffer, error) {
	return nil, nil
}
func (foreignExecutable) Finalize() {}

func TestExecuteReplicatedUnimplemented(t *testing.T) {
	r, client := newTestRunner(t, 1)
	module := scaleModule(t, "scale", hlo.Config{}, shapes.Scalar[float64](), 2)
	options := ReplicatedExecuteOptions{
		NumReplicas: 1,
		Arguments:   []*literals.Literal{literals.FromScalar(1.0)},
	}

	_, err := r.ExecuteReplicated(module, options)
	require.ErrorIs(t, err, ErrUnsupported)

	assignment := must.M1(client.DefaultDeviceAssignment(1, 1))
	_, err = r.ExecuteReplicatedWithAssignment(module, options, assignment)
	require.ErrorIs(t, err, ErrUnsupported)

	exec := must.M1(r.CreateExecutable(module, true))
	_, err = r.ExecuteReplicatedWithProviders(
		func(replica int) Executable { return exec },
		func(replica int) int { return 1 },
		func(replica, argIndex int) *literals.Literal { return literals.FromScalar(1.0) },
		options, assignment)
	require.ErrorIs(t, err, ErrUnsupported)
}

// TestScalarScenario: one replica, one partition, no optimization passes, one
// scalar input x=3.0; compile options must carry backend-only, and execution must
// return a single scalar.
func TestScalarScenario(t *testing.T) {
	r, _ := newTestRunner(t, 1)
	module := scaleModule(t, "double",
		hlo.Config{ReplicaCount: 1, NumPartitions: 1}, shapes.Scalar[float64](), 2)

	options := must.M1(r.GenerateDefaultCompileOptions(module, false))
	require.True(t, options.RunBackendOnly)

	var profile ExecutionProfile
	output := must.M1(r.Execute(module, []*literals.Literal{literals.FromScalar(3.0)}, false, &profile))
	require.True(t, output.IsScalar())
	assert.Equal(t, 6.0, literals.ToScalar[float64](output))
	assert.GreaterOrEqual(t, profile.ExecuteTime, time.Duration(0))
	assert.GreaterOrEqual(t, profile.TransferTime, time.Duration(0))
}

func TestNewRejectsNilClient(t *testing.T) {
	_, err := New(nil)
	require.Error(t, err)
}
