// Package results assembles per-grid-point valuations into dense arrays.
//
// Every array produced for a run is row-major with shape
// [len(axis_1), ..., len(axis_k), instruments]; aggregates drop or replace
// the trailing dimension.
package results

import "fmt"

// NDArray is a dense row-major float64 array.
type NDArray struct {
	Shape []int     `json:"shape"`
	Data  []float64 `json:"data"`
}

// NewNDArray allocates a zeroed array. An empty shape is a scalar.
func NewNDArray(shape ...int) *NDArray {
	s := make([]int, len(shape))
	copy(s, shape)
	return &NDArray{Shape: s, Data: make([]float64, product(s))}
}

// Dims returns the number of dimensions.
func (a *NDArray) Dims() int {
	return len(a.Shape)
}

// Len returns the number of elements.
func (a *NDArray) Len() int {
	return len(a.Data)
}

// At returns the element at idx. It panics if idx is out of range, like a
// slice index.
func (a *NDArray) At(idx ...int) float64 {
	return a.Data[a.offset(idx)]
}

// Set stores v at idx.
func (a *NDArray) Set(v float64, idx ...int) {
	a.Data[a.offset(idx)] = v
}

func (a *NDArray) offset(idx []int) int {
	if len(idx) != len(a.Shape) {
		panic(fmt.Sprintf("results: index %v has %d dims, array has %d", idx, len(idx), len(a.Shape)))
	}
	off := 0
	for d, i := range idx {
		if i < 0 || i >= a.Shape[d] {
			panic(fmt.Sprintf("results: index %v out of range for shape %v", idx, a.Shape))
		}
		off = off*a.Shape[d] + i
	}
	return off
}

// Unravel converts a flat row-major offset into a coordinate for shape.
func Unravel(flat int, shape []int) []int {
	coord := make([]int, len(shape))
	for d := len(shape) - 1; d >= 0; d-- {
		coord[d] = flat % shape[d]
		flat /= shape[d]
	}
	return coord
}

func product(shape []int) int {
	n := 1
	for _, d := range shape {
		n *= d
	}
	return n
}
