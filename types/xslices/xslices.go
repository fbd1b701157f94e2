// Copyright 2026 The hlorunner Authors. SPDX-License-Identifier: Apache-2.0

// Package xslices provides generic slice helpers used across the repository.
package xslices

import (
	"golang.org/x/exp/constraints"
)

// Map executes the given function sequentially for every element on in, and returns a mapped slice.
func Map[In, Out any](in []In, fn func(e In) Out) (out []Out) {
	out = make([]Out, len(in))
	for ii, e := range in {
		out[ii] = fn(e)
	}
	return
}

// At returns the element at the given index. Negative indices count from the end,
// so At(slice, -1) is the last element.
func At[T any](slice []T, index int) T {
	if index < 0 {
		index = len(slice) + index
	}
	return slice[index]
}

// Last returns the last element of the slice.
func Last[T any](slice []T) T {
	return At(slice, -1)
}

// Copy returns a copy of the slice.
func Copy[T any](slice []T) []T {
	out := make([]T, len(slice))
	copy(out, slice)
	return out
}

// FillSlice fills the slice with the given value.
func FillSlice[T any](slice []T, value T) {
	for ii := range slice {
		slice[ii] = value
	}
}

// Iota returns a slice of the given length filled with the sequence
// start, start+1, ..., start+len-1.
func Iota[T constraints.Integer](start T, length int) []T {
	out := make([]T, length)
	for ii := range out {
		out[ii] = start + T(ii)
	}
	return out
}
