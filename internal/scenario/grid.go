// Package scenario evaluates a portfolio over the cartesian product of
// shift axes.
package scenario

import (
	apperrors "optpricer/internal/errors"
	"optpricer/internal/market"
	"optpricer/internal/results"
	"optpricer/internal/shift"
)

// Grid is the cartesian product of validated axes. Grid points are
// enumerated in row-major order: the last axis varies fastest.
type Grid struct {
	axes  []shift.Axis
	shape []int
	size  int
}

// NewGrid validates every axis and builds the grid.
func NewGrid(axes []shift.Axis) (*Grid, error) {
	g := &Grid{
		axes:  make([]shift.Axis, len(axes)),
		shape: make([]int, len(axes)),
		size:  1,
	}
	copy(g.axes, axes)
	for i, ax := range g.axes {
		if err := ax.Validate(); err != nil {
			return nil, apperrors.Wrapf(err, "axis %d", i)
		}
		g.shape[i] = ax.Len()
		g.size *= ax.Len()
	}
	return g, nil
}

// Shape returns the length of every axis.
func (g *Grid) Shape() []int {
	out := make([]int, len(g.shape))
	copy(out, g.shape)
	return out
}

// Size returns the number of grid points; 1 for a grid without axes.
func (g *Grid) Size() int {
	return g.size
}

// Axes returns the grid axes.
func (g *Grid) Axes() []shift.Axis {
	out := make([]shift.Axis, len(g.axes))
	copy(out, g.axes)
	return out
}

// Coordinate returns the per-axis layer indices of a flat grid index.
func (g *Grid) Coordinate(flat int) []int {
	return results.Unravel(flat, g.shape)
}

// Environment derives the environment of a grid point by applying each
// axis's layer in axis order.
func (g *Grid) Environment(baseline market.Environment, coord []int) (market.Environment, error) {
	env := baseline
	for d, ax := range g.axes {
		next, err := ax.Derive(env, coord[d])
		if err != nil {
			return market.Environment{}, err
		}
		env = next
	}
	return env, nil
}

// Labels describes every axis for the result set.
func (g *Grid) Labels() []results.AxisLabel {
	out := make([]results.AxisLabel, len(g.axes))
	for i, ax := range g.axes {
		out[i] = results.AxisLabel{Name: ax.Label(), Layers: ax.Layers()}
	}
	return out
}
