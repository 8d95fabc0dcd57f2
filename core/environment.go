// core/environment.go
package core

import (
	"fmt"
	"sort"
	"strings"
)

// MaterialAttenuation maps material presets to their crossing attenuation
// in dB.
var MaterialAttenuation = map[string]float64{
	"drywall":  3.0,
	"wood":     4.0,
	"glass":    2.0,
	"concrete": 12.0,
	"brick":    10.0,
	"metal":    20.0,
}

// Obstacle is a line-segment blocker (a wall, building edge, or similar)
// with a crossing attenuation in dB and a material tag.
type Obstacle struct {
	A, B          Point
	AttenuationDB float64
	Material      string
}

// ObstacleFromMaterial builds an obstacle from a material preset. Unknown
// presets are a configuration error; callers wanting a fallback attenuation
// resolve it before reaching the core.
func ObstacleFromMaterial(a, b Point, material string) (*Obstacle, error) {
	key := strings.ToLower(material)
	att, ok := MaterialAttenuation[key]
	if !ok {
		known := make([]string, 0, len(MaterialAttenuation))
		for m := range MaterialAttenuation {
			known = append(known, m)
		}
		sort.Strings(known)
		return nil, fmt.Errorf("unknown material %q, choose from: %s",
			material, strings.Join(known, ", "))
	}
	return &Obstacle{A: a, B: b, AttenuationDB: att, Material: key}, nil
}

// RectObstacle is a rectangular structure attenuated by the vectorized
// shadowing pass. Rectangles never enter the segment-obstacle registry, so a
// structure is charged once per ray by shadowing rather than twice (entry and
// exit) by the segment path.
type RectObstacle struct {
	Rect          Rect
	AttenuationDB float64
	Material      string
}

// Segments expands the rectangle into its four boundary obstacles, for
// callers that want a structure on the exact segment path instead of the
// shadowing pass.
func (r RectObstacle) Segments() []*Obstacle {
	bl := Point{r.Rect.X, r.Rect.Y}
	br := Point{r.Rect.X + r.Rect.Width, r.Rect.Y}
	tr := Point{r.Rect.X + r.Rect.Width, r.Rect.Y + r.Rect.Height}
	tl := Point{r.Rect.X, r.Rect.Y + r.Rect.Height}
	mk := func(a, b Point) *Obstacle {
		return &Obstacle{A: a, B: b, AttenuationDB: r.AttenuationDB, Material: r.Material}
	}
	return []*Obstacle{mk(bl, br), mk(br, tr), mk(tr, tl), mk(tl, bl)}
}

// Environment is the 2-D simulation area: spatial extent, grid resolution,
// and the registries of devices and obstacles. It performs no simulation
// itself; mutating the registries is the caller's responsibility.
type Environment struct {
	Width      float64 // metres
	Height     float64 // metres
	Resolution float64 // metres per cell

	Transmitters []*Transmitter
	Gateways     []*Gateway
	NoiseSources []*NoiseSource
	Obstacles    []*Obstacle
	Rects        []RectObstacle
}

// NewEnvironment builds an environment covering width×height metres at the
// given cell resolution. Negative dimensions and non-positive resolutions
// are configuration errors.
func NewEnvironment(width, height, resolution float64) (*Environment, error) {
	if width < 0 || height < 0 {
		return nil, fmt.Errorf("environment dimensions must be non-negative, got %gx%g", width, height)
	}
	if resolution <= 0 {
		return nil, fmt.Errorf("environment resolution must be positive, got %g", resolution)
	}
	return &Environment{Width: width, Height: height, Resolution: resolution}, nil
}

// Rows returns the number of grid rows.
func (e *Environment) Rows() int { return int(e.Height / e.Resolution) }

// Cols returns the number of grid columns.
func (e *Environment) Cols() int { return int(e.Width / e.Resolution) }

// CellCenter returns the centre coordinate of the cell at (row, col).
func (e *Environment) CellCenter(row, col int) Point {
	return Point{
		X: float64(col)*e.Resolution + e.Resolution/2,
		Y: float64(row)*e.Resolution + e.Resolution/2,
	}
}

// AddTransmitter registers a transmitter.
func (e *Environment) AddTransmitter(t *Transmitter) {
	e.Transmitters = append(e.Transmitters, t)
}

// AddGateway registers a gateway.
func (e *Environment) AddGateway(g *Gateway) {
	e.Gateways = append(e.Gateways, g)
}

// AddNoiseSource registers a noise source.
func (e *Environment) AddNoiseSource(n *NoiseSource) {
	e.NoiseSources = append(e.NoiseSources, n)
}

// AddObstacle registers a line-segment obstacle.
func (e *Environment) AddObstacle(o *Obstacle) {
	e.Obstacles = append(e.Obstacles, o)
}

// AddRectObstacle registers a rectangular structure for the vectorized
// shadowing pass.
func (e *Environment) AddRectObstacle(r RectObstacle) {
	e.Rects = append(e.Rects, r)
}

// DistanceGrid returns the Euclidean distance from src to every cell centre,
// clamped to a minimum of one resolution unit so downstream path-loss models
// never take log(0).
func (e *Environment) DistanceGrid(src Point) *Grid {
	rows, cols := e.Rows(), e.Cols()
	g := NewGrid(rows, cols)
	for i := 0; i < rows; i++ {
		for j := 0; j < cols; j++ {
			d := src.DistanceTo(e.CellCenter(i, j))
			if d < e.Resolution {
				d = e.Resolution
			}
			g.Set(i, j, d)
		}
	}
	return g
}

// ObstacleAttenuation returns the cumulative attenuation in dB from all
// obstacle segments crossed by the line src→dst. Attenuation is strictly
// additive; independent shadowing is never capped.
func (e *Environment) ObstacleAttenuation(src, dst Point) float64 {
	total := 0.0
	for _, o := range e.Obstacles {
		if SegmentsIntersect(src, dst, o.A, o.B) {
			total += o.AttenuationDB
		}
	}
	return total
}

// ObstacleAttenuationGrid returns the cumulative obstacle attenuation from
// src to every cell centre. O(cells × obstacles); fine for moderate grids.
func (e *Environment) ObstacleAttenuationGrid(src Point) *Grid {
	rows, cols := e.Rows(), e.Cols()
	g := NewGrid(rows, cols)
	if len(e.Obstacles) == 0 {
		return g
	}
	for i := 0; i < rows; i++ {
		for j := 0; j < cols; j++ {
			g.Set(i, j, e.ObstacleAttenuation(src, e.CellCenter(i, j)))
		}
	}
	return g
}
