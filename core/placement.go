// core/placement.go
package core

import (
	"context"
	"fmt"

	"github.com/signalsfoundry/lpwan-coverage/internal/logging"
)

// PlacementWeights combines the three score components. The defaults favour
// coverage heavily; SNR terms act as tie-breakers.
type PlacementWeights struct {
	Coverage float64
	MeanSNR  float64
	MinSNR   float64
}

// DefaultPlacementWeights returns the standard coverage-heavy weighting.
func DefaultPlacementWeights() PlacementWeights {
	return PlacementWeights{Coverage: 1.0, MeanSNR: 0.1, MinSNR: 0.05}
}

func (w PlacementWeights) isZero() bool {
	return w.Coverage == 0 && w.MeanSNR == 0 && w.MinSNR == 0
}

// PlacementOptions tunes the two-phase search. Zero values mean defaults:
// coarse step 5× resolution, fine step one resolution, fine radius one
// coarse step. SensitivityDBm is a pointer so that an explicit 0 dBm
// threshold stays distinct from "use the protocol's sensitivity".
type PlacementOptions struct {
	CoarseStep     float64
	FineStep       float64
	FineRadius     float64
	SensitivityDBm *float64
	AntennaGainDBi float64
	Weights        PlacementWeights

	// Propagation settings for the scoring simulations. Fading stays off so
	// candidate scores are deterministic. A nil NoiseFloorDBm means the
	// engine default.
	Model         PathLossModel
	PathLoss      PathLossParams
	NoiseFloorDBm *float64

	Log     logging.Logger
	Metrics RunMetrics
}

// Placement is one suggested gateway position with its score and 1-based
// rank.
type Placement struct {
	Rank  int     `json:"rank"`
	X     float64 `json:"x"`
	Y     float64 `json:"y"`
	Score float64 `json:"score"`
}

func (o PlacementOptions) withDefaults(env *Environment, proto Protocol) PlacementOptions {
	if o.CoarseStep <= 0 {
		o.CoarseStep = env.Resolution * 5
	}
	if o.FineStep <= 0 {
		o.FineStep = env.Resolution
	}
	if o.FineRadius <= 0 {
		o.FineRadius = o.CoarseStep
	}
	if o.SensitivityDBm == nil {
		sens := proto.SensitivityDBm
		o.SensitivityDBm = &sens
	}
	if o.Weights.isZero() {
		o.Weights = DefaultPlacementWeights()
	}
	if o.Log == nil {
		o.Log = logging.Noop()
	}
	return o
}

// scoreGateways runs the full simulation with every gateway in gws
// instantiated as a virtual transmitter at the protocol's maximum transmit
// power, and folds the resulting statistics into a scalar score. The
// environment's transmitter list is a scratch area: it is restored before
// returning, so trials never contaminate one another.
func scoreGateways(ctx context.Context, env *Environment, proto Protocol, gws []*Gateway, opts PlacementOptions) (float64, error) {
	saved := env.Transmitters
	defer func() { env.Transmitters = saved }()

	scratch := make([]*Transmitter, len(saved), len(saved)+len(gws))
	copy(scratch, saved)
	for i, gw := range gws {
		scratch = append(scratch, &Transmitter{
			Position:       gw.Position,
			Protocol:       gw.Protocol,
			TxPowerDBm:     proto.MaxTxPowerDBm,
			AntennaGainDBi: gw.AntennaGainDBi,
			Label:          fmt.Sprintf("gw_%d", i),
		})
	}
	env.Transmitters = scratch

	sim := &Simulation{
		Env:           env,
		Model:         opts.Model,
		PathLoss:      opts.PathLoss,
		NoiseFloorDBm: opts.NoiseFloorDBm,
		Log:           logging.Noop(),
	}
	result, err := sim.Run(ctx)
	if err != nil {
		return 0, err
	}
	result = sim.ApplyObstacleShadowing(result)

	stats := sim.CoverageStats(result, *opts.SensitivityDBm)
	w := opts.Weights
	return w.Coverage*stats.CoveragePct +
		w.MeanSNR*stats.MeanSNRdB +
		w.MinSNR*result.BestSNR.Min(), nil
}

// SuggestGatewayPositions searches for n gateway positions maximising the
// weighted placement score. Gateways are placed sequentially and greedily:
// each search holds the previously placed gateways fixed. Per gateway the
// search is two-phase: a coarse sweep over the whole area followed by a
// single finer pass over a local window around the coarse optimum.
func SuggestGatewayPositions(ctx context.Context, env *Environment, proto Protocol, n int, opts PlacementOptions) ([]Placement, error) {
	opts = opts.withDefaults(env, proto)

	placed := make([]*Gateway, 0, n)
	results := make([]Placement, 0, n)

	for rank := 1; rank <= n; rank++ {
		bestX, bestY := 0.0, 0.0
		bestScore := 0.0
		haveBest := false
		evals := 0

		trial := func(x, y float64) error {
			cand := &Gateway{
				Position:       Point{X: x, Y: y},
				Protocol:       proto,
				SensitivityDBm: *opts.SensitivityDBm,
				AntennaGainDBi: opts.AntennaGainDBi,
			}
			score, err := scoreGateways(ctx, env, proto, append(placed, cand), opts)
			if err != nil {
				return err
			}
			evals++
			if !haveBest || score > bestScore {
				bestX, bestY, bestScore = x, y, score
				haveBest = true
			}
			return nil
		}

		// Coarse phase.
		for cx := 0.0; cx < env.Width; cx += opts.CoarseStep {
			for cy := 0.0; cy < env.Height; cy += opts.CoarseStep {
				if err := trial(cx, cy); err != nil {
					return nil, err
				}
			}
		}
		if opts.Metrics != nil {
			opts.Metrics.AddPlacementEvaluations("coarse", evals)
		}
		coarseEvals := evals

		// Fine phase: one refinement pass around the coarse optimum, not
		// iterated descent.
		x0 := clamp(bestX-opts.FineRadius, 0, env.Width)
		x1 := clamp(bestX+opts.FineRadius, 0, env.Width)
		y0 := clamp(bestY-opts.FineRadius, 0, env.Height)
		y1 := clamp(bestY+opts.FineRadius, 0, env.Height)
		for fx := x0; fx <= x1; fx += opts.FineStep {
			for fy := y0; fy <= y1; fy += opts.FineStep {
				if err := trial(fx, fy); err != nil {
					return nil, err
				}
			}
		}
		if opts.Metrics != nil {
			opts.Metrics.AddPlacementEvaluations("fine", evals-coarseEvals)
		}

		opts.Log.Info(ctx, "gateway position selected",
			logging.Int("rank", rank),
			logging.Any("x", bestX),
			logging.Any("y", bestY),
			logging.Any("score", bestScore),
			logging.Int("evaluations", evals),
		)

		placed = append(placed, &Gateway{
			Position:       Point{X: bestX, Y: bestY},
			Protocol:       proto,
			SensitivityDBm: *opts.SensitivityDBm,
			AntennaGainDBi: opts.AntennaGainDBi,
			Label:          fmt.Sprintf("gw_%d", rank),
		})
		results = append(results, Placement{Rank: rank, X: bestX, Y: bestY, Score: bestScore})
	}
	return results, nil
}

// SuggestGatewayPosition is the single-gateway, coverage-only form: it
// sweeps a coarse grid and returns the position with the highest coverage
// percentage.
func SuggestGatewayPosition(ctx context.Context, env *Environment, proto Protocol, sensitivityDBm, step float64) (Placement, error) {
	if step <= 0 {
		step = env.Resolution * 5
	}
	opts := PlacementOptions{
		SensitivityDBm: &sensitivityDBm,
		Weights:        PlacementWeights{Coverage: 1.0},
	}
	opts = opts.withDefaults(env, proto)
	opts.CoarseStep = step

	best := Placement{Rank: 1}
	haveBest := false
	for cx := 0.0; cx < env.Width; cx += step {
		for cy := 0.0; cy < env.Height; cy += step {
			gw := &Gateway{
				Position:       Point{X: cx, Y: cy},
				Protocol:       proto,
				SensitivityDBm: *opts.SensitivityDBm,
			}
			score, err := scoreGateways(ctx, env, proto, []*Gateway{gw}, opts)
			if err != nil {
				return Placement{}, err
			}
			if !haveBest || score > best.Score {
				best.X, best.Y, best.Score = cx, cy, score
				haveBest = true
			}
		}
	}
	return best, nil
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
