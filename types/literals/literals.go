// Copyright 2026 The hlorunner Authors. SPDX-License-Identifier: Apache-2.0

// Package literals implements Literal, a self-describing host-resident value:
// a shape (see github.com/rjodinchr/hlorunner/types/shapes) plus its element data
// stored as a flat (1D) slice of the shape's DType.
//
// Literals are the values produced and consumed at the runner's boundary: they are
// what gets staged into device buffers before execution, and what device buffers
// materialize back into afterwards.
//
// There are various ways to construct a Literal from local data:
//
//   - FromShape(shape): a literal with the given shape and zero values.
//   - FromScalar[T](value): a scalar literal, DType inferred from the value.
//   - FromScalarAndDimensions[T](value, dimensions...): literal with the given
//     dimensions, filled with the scalar value.
//   - FromFlatDataAndDimensions[T](data, dimensions...): literal with the given
//     dimensions and the flattened values in data. The data is copied.
//   - FromAnyFlatAndShape(flat, shape): non-generic version taking the flat slice
//     as an `any`, checked against the shape's DType by reflection.
//
// A Literal exclusively owns its flat data; constructors copy.
package literals

import (
	"fmt"
	"reflect"

	"github.com/gomlx/exceptions"
	"github.com/gomlx/gopjrt/dtypes"
	"github.com/pkg/errors"
	"github.com/rjodinchr/hlorunner/types/shapes"
	"github.com/x448/float16"
)

// Literal is a host-resident value: shape plus flat element data.
//
// It is always stored as a flat slice of the Go type corresponding to the shape's
// DType. Literals are immutable by convention once handed to the runner -- mutation
// accessors exist for construction and tests only.
type Literal struct {
	shape shapes.Shape

	// flat holds the array with the actual data, a slice of the type for the
	// DType of the shape. Owned by the Literal.
	flat any
}

// FromShape returns a Literal with the given shape, with the data initialized with zeros.
func FromShape(shape shapes.Shape) *Literal {
	if !shape.Ok() {
		panic(errors.New("literals.FromShape: invalid shape"))
	}
	flatV := reflect.MakeSlice(reflect.SliceOf(shape.DType.GoType()), shape.Size(), shape.Size())
	return &Literal{
		shape: shape.Clone(),
		flat:  flatV.Interface(),
	}
}

// FromScalar creates a scalar Literal with the given value.
// The DType is inferred from the value.
func FromScalar[T dtypes.Supported](value T) *Literal {
	return FromScalarAndDimensions(value)
}

// FromScalarAndDimensions creates a Literal with the given dimensions, filled with the
// given scalar value replicated everywhere.
// The DType is inferred from the value.
func FromScalarAndDimensions[T dtypes.Supported](value T, dimensions ...int) *Literal {
	dtype := dtypes.FromGenericsType[T]()
	shape := shapes.Make(dtype, dimensions...)
	// Allocate []T directly: for T=int the shape's DType maps to a different Go
	// type, and the flat slice must stay assertable back to []T.
	flat := make([]T, shape.Size())
	for ii := range flat {
		flat[ii] = value
	}
	return &Literal{shape: shape, flat: flat}
}

// FromFlatDataAndDimensions creates a Literal with the given dimensions, filled with the
// flattened values given in data. The data is copied.
// The DType is inferred from the data type.
func FromFlatDataAndDimensions[T dtypes.Supported](data []T, dimensions ...int) *Literal {
	dtype := dtypes.FromGenericsType[T]()
	shape := shapes.Make(dtype, dimensions...)
	if len(data) != shape.Size() {
		exceptions.Panicf("literals.FromFlatDataAndDimensions(%s): data size is %d, but dimensions size is %d",
			shape, len(data), shape.Size())
	}
	flat := make([]T, len(data))
	copy(flat, data)
	return &Literal{shape: shape, flat: flat}
}

// FromAnyFlatAndShape creates a Literal from a flat slice given as an `any` and a shape.
// The flat slice element type must correspond to the shape's DType, and its length to
// the shape's size. The data is copied.
func FromAnyFlatAndShape(flat any, shape shapes.Shape) (*Literal, error) {
	if !shape.Ok() {
		return nil, errors.Errorf("literals.FromAnyFlatAndShape: invalid shape")
	}
	flatV := reflect.ValueOf(flat)
	if flatV.Kind() != reflect.Slice {
		return nil, errors.Errorf("literals.FromAnyFlatAndShape(%s): flat is not a slice, instead it is %T", shape, flat)
	}
	flatDType := dtypes.FromGoType(flatV.Type().Elem())
	if flatDType != shape.DType {
		return nil, errors.Errorf("literals.FromAnyFlatAndShape(%s): flat has incompatible dtype, it is %T", shape, flat)
	}
	if flatV.Len() != shape.Size() {
		return nil, errors.Errorf("literals.FromAnyFlatAndShape(%s): flat has %d elements, shape requires %d",
			shape, flatV.Len(), shape.Size())
	}
	l := FromShape(shape)
	reflect.Copy(reflect.ValueOf(l.flat), flatV)
	return l, nil
}

// Shape of the Literal, includes DType.
func (l *Literal) Shape() shapes.Shape { return l.shape }

// DType returns the DType of the literal's shape.
func (l *Literal) DType() dtypes.DType { return l.shape.DType }

// Rank returns the rank of the literal's shape.
func (l *Literal) Rank() int { return l.shape.Rank() }

// IsScalar returns whether the literal represents a scalar value.
func (l *Literal) IsScalar() bool { return l.shape.IsScalar() }

// Size returns the number of elements in the literal.
func (l *Literal) Size() int { return l.shape.Size() }

// Memory returns the number of bytes used to store the literal.
func (l *Literal) Memory() uintptr { return l.shape.Memory() }

// AssertValid panics if the literal is nil, or if its shape is invalid.
func (l *Literal) AssertValid() {
	if l == nil {
		panic(errors.New("Literal is nil"))
	}
	if !l.shape.Ok() {
		panic(errors.New("Literal shape is invalid"))
	}
	if l.flat == nil {
		panic(errors.New("Literal has no data"))
	}
}

// ConstFlatData calls accessFn with the flat data of the literal.
//
// This provides accessFn with the actual data (not a copy), owned by the Literal;
// it must not be changed.
func (l *Literal) ConstFlatData(accessFn func(flat any)) {
	l.AssertValid()
	accessFn(l.flat)
}

// ConstFlatData calls accessFn with the typed flat data of the literal.
// It panics if the generic type doesn't match the literal's DType.
func ConstFlatData[T dtypes.Supported](l *Literal, accessFn func(flat []T)) {
	l.AssertValid()
	if l.shape.DType != dtypes.FromGenericsType[T]() {
		var v T
		exceptions.Panicf("literals.ConstFlatData[%T] is incompatible with Literal's dtype %s", v, l.shape.DType)
	}
	accessFn(l.flat.([]T))
}

// MutableFlatData calls accessFn with the typed flat data of the literal, which may be mutated.
// It panics if the generic type doesn't match the literal's DType.
func MutableFlatData[T dtypes.Supported](l *Literal, accessFn func(flat []T)) {
	l.AssertValid()
	if l.shape.DType != dtypes.FromGenericsType[T]() {
		var v T
		exceptions.Panicf("literals.MutableFlatData[%T] is incompatible with Literal's dtype %s", v, l.shape.DType)
	}
	accessFn(l.flat.([]T))
}

// ToScalar returns the scalar value of the Literal.
// It panics if the generic type doesn't match the DType, or if the literal is not a scalar.
func ToScalar[T dtypes.Supported](l *Literal) T {
	l.AssertValid()
	if l.shape.DType != dtypes.FromGenericsType[T]() {
		var v T
		exceptions.Panicf("literals.ToScalar[%T] is incompatible with Literal's dtype %s", v, l.shape.DType)
	}
	if !l.shape.IsScalar() {
		var v T
		exceptions.Panicf("literals.ToScalar[%T] requires scalar Literal, got shape %s instead", v, l.shape)
	}
	return l.flat.([]T)[0]
}

// CopyFlatData returns a copy of the flat data of the Literal.
// It panics if the generic type doesn't match the DType.
func CopyFlatData[T dtypes.Supported](l *Literal) []T {
	l.AssertValid()
	if l.shape.DType != dtypes.FromGenericsType[T]() {
		var v T
		exceptions.Panicf("literals.CopyFlatData[%T] is incompatible with Literal's dtype %s", v, l.shape.DType)
	}
	flat := l.flat.([]T)
	flatCopy := make([]T, len(flat))
	copy(flatCopy, flat)
	return flatCopy
}

// Clone returns a deep copy of the Literal. The clone's flat data keeps the exact
// Go type of the original's.
func (l *Literal) Clone() *Literal {
	l.AssertValid()
	flatV := reflect.ValueOf(l.flat)
	cloneFlatV := reflect.MakeSlice(flatV.Type(), flatV.Len(), flatV.Len())
	reflect.Copy(cloneFlatV, flatV)
	return &Literal{shape: l.shape.Clone(), flat: cloneFlatV.Interface()}
}

// Equal compares shape and contents. If they are the same pointer they are considered equal.
// It panics if either literal is invalid.
//
// Slow implementation: fine for small literals, write something specialized for the
// DType if speed is desired.
func (l *Literal) Equal(other *Literal) bool {
	l.AssertValid()
	other.AssertValid()
	if l == other {
		return true
	}
	if !l.shape.Equal(other.shape) {
		return false
	}
	l0V := reflect.ValueOf(l.flat)
	l1V := reflect.ValueOf(other.flat)
	for ii := range l0V.Len() {
		if !l0V.Index(ii).Equal(l1V.Index(ii)) {
			return false
		}
	}
	return true
}

// String pretty-prints shape and, for small literals, the flat data.
func (l *Literal) String() string {
	if l == nil {
		return "Literal(nil)"
	}
	if !l.shape.Ok() {
		return "Literal(invalid shape)"
	}
	const maxElementsToPrint = 16
	if l.shape.Size() <= maxElementsToPrint {
		return fmt.Sprintf("Literal(%s): %v", l.shape, l.flat)
	}
	return fmt.Sprintf("Literal(%s)", l.shape)
}

// Float16s converts float32 values to a flat slice of float16.Float16, a convenience
// for building half-precision literals with FromFlatDataAndDimensions.
func Float16s(values ...float32) []float16.Float16 {
	flat := make([]float16.Float16, len(values))
	for ii, v := range values {
		flat[ii] = float16.Fromfloat32(v)
	}
	return flat
}
