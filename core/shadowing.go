// core/shadowing.go
package core

import "math"

// RectShadowGrid computes, in one vectorized pass, the shadow attenuation a
// single rectangular structure casts over every cell for rays originating at
// src. Cells inside the rectangle (bounds inclusive) receive double the
// rectangle's attenuation, modelling a link that starts or ends inside the
// structure; those cells are not also counted as crossings. All other cells
// receive the attenuation once if the ray src→cell crosses any boundary
// edge.
func RectShadowGrid(env *Environment, src Point, r RectObstacle) *Grid {
	rows, cols := env.Rows(), env.Cols()
	g := NewGrid(rows, cols)
	for i := 0; i < rows; i++ {
		for j := 0; j < cols; j++ {
			cell := env.CellCenter(i, j)
			switch {
			case r.Rect.Contains(cell):
				g.Set(i, j, 2*r.AttenuationDB)
			case RayCrossesRect(src, cell, r.Rect):
				g.Set(i, j, r.AttenuationDB)
			}
		}
	}
	return g
}

// shadowAttenuationGrid accumulates rectangle shadowing over all registered
// rectangles, taking the nearest transmitter as the ray source for each
// cell. Attenuation from multiple rectangles is additive.
func shadowAttenuationGrid(env *Environment) *Grid {
	rows, cols := env.Rows(), env.Cols()
	g := NewGrid(rows, cols)
	if len(env.Rects) == 0 || len(env.Transmitters) == 0 {
		return g
	}

	for i := 0; i < rows; i++ {
		for j := 0; j < cols; j++ {
			cell := env.CellCenter(i, j)

			src := env.Transmitters[0].Position
			best := math.Inf(1)
			for _, tx := range env.Transmitters {
				if d := tx.Position.DistanceTo(cell); d < best {
					best = d
					src = tx.Position
				}
			}

			total := 0.0
			for _, r := range env.Rects {
				switch {
				case r.Rect.Contains(cell):
					total += 2 * r.AttenuationDB
				case RayCrossesRect(src, cell, r.Rect):
					total += r.AttenuationDB
				}
			}
			g.Set(i, j, total)
		}
	}
	return g
}

// ApplyObstacleShadowing is the second stage of the result pipeline: it
// subtracts rectangle shadow attenuation from every per-label grid and then
// recomputes the best-RSSI/best-SNR aggregates from the attenuated grids.
// Ordering matters: aggregates are always derived from already-attenuated
// per-label grids, never the reverse. The input result is left untouched.
func (s *Simulation) ApplyObstacleShadowing(result *SimulationResult) *SimulationResult {
	if len(s.Env.Rects) == 0 || len(result.Labels) == 0 {
		return result
	}

	att := shadowAttenuationGrid(s.Env)

	out := &SimulationResult{
		RunID:        result.RunID,
		Labels:       append([]string(nil), result.Labels...),
		RSSI:         make(map[string]*Grid, len(result.Labels)),
		SNR:          make(map[string]*Grid, len(result.Labels)),
		Interference: result.Interference,
	}
	for _, label := range result.Labels {
		out.RSSI[label] = result.RSSI[label].Sub(att)
		out.SNR[label] = result.SNR[label].Sub(att)
	}
	out.BestRSSI, out.BestSNR = s.aggregate(out)
	return out
}
