// core/simulation_engine.go
package core

import (
	"context"
	"fmt"
	"math"
	"time"

	"github.com/google/uuid"
	"golang.org/x/exp/rand"
	"gonum.org/v1/gonum/stat/distuv"

	"github.com/signalsfoundry/lpwan-coverage/internal/logging"
)

// DefaultNoiseFloorDBm is the thermal noise floor assumed when none is
// configured.
const DefaultNoiseFloorDBm = -120.0

// RunMetrics receives instrumentation callbacks from the engine. The
// observability collector implements it; a nil value disables recording.
type RunMetrics interface {
	ObserveSimulation(model string, seconds float64)
	AddPlacementEvaluations(phase string, n int)
}

// Simulation computes RSSI, interference and SNR grids over an Environment.
// A Simulation is a configuration; each Run is stateless and produces a
// fresh result.
type Simulation struct {
	Env *Environment

	// Model selects the path-loss model; empty means log-distance.
	Model    PathLossModel
	PathLoss PathLossParams

	// NoiseFloorDBm overrides the thermal noise floor; nil means
	// DefaultNoiseFloorDBm. A pointer keeps an explicit 0 dBm floor distinct
	// from an unset one.
	NoiseFloorDBm *float64

	// ShadowFadingStd is the σ of per-cell Gaussian shadow fading in dB.
	// 0 disables it.
	ShadowFadingStd float64

	// MultipathFading enables per-cell Rayleigh fading.
	MultipathFading bool

	// NoiseFigureDB is added to the interference floor when computing SNR.
	NoiseFigureDB float64

	// Rand drives the fading draws. Runs with the same source seed and the
	// same device/obstacle configuration produce bit-identical grids; a nil
	// value falls back to a fixed-seed source.
	Rand *rand.Rand

	Log     logging.Logger
	Metrics RunMetrics
}

// NewSeededRand returns a fading generator with an explicit seed. Two runs
// sharing a seed and a device/obstacle configuration produce bit-identical
// grids.
func NewSeededRand(seed uint64) *rand.Rand {
	return rand.New(rand.NewSource(seed))
}

// NewSimulation returns a Simulation over env with the default model
// (log-distance, exponent 2.7) and noise floor.
func NewSimulation(env *Environment) *Simulation {
	return &Simulation{
		Env:   env,
		Model: ModelLogDistance,
		Log:   logging.Noop(),
	}
}

// SimulationResult holds the grids computed by one run. Per-label grids are
// keyed by transmitter label; BestRSSI and BestSNR are the element-wise
// maxima across labels.
type SimulationResult struct {
	RunID        string
	Labels       []string
	RSSI         map[string]*Grid
	SNR          map[string]*Grid
	Interference *Grid
	BestRSSI     *Grid
	BestSNR      *Grid
}

// CoverageStats summarises one result grid set against a sensitivity
// threshold.
type CoverageStats struct {
	TotalPoints   int     `json:"total_points"`
	CoveredPoints int     `json:"covered_points"`
	CoveragePct   float64 `json:"coverage_pct"`
	MeanRSSIdBm   float64 `json:"mean_rssi_dbm"`
	MeanSNRdB     float64 `json:"mean_snr_db"`
}

func (s *Simulation) noiseFloor() float64 {
	if s.NoiseFloorDBm == nil {
		return DefaultNoiseFloorDBm
	}
	return *s.NoiseFloorDBm
}

func (s *Simulation) model() PathLossModel {
	if s.Model == "" {
		return ModelLogDistance
	}
	return s.Model
}

func (s *Simulation) rng() *rand.Rand {
	if s.Rand == nil {
		s.Rand = rand.New(rand.NewSource(1))
	}
	return s.Rand
}

func (s *Simulation) log() logging.Logger {
	if s.Log == nil {
		return logging.Noop()
	}
	return s.Log
}

// Run executes the simulation. Degenerate configurations (no transmitters,
// zero-area grid) yield well-defined defaults rather than an error: BestRSSI
// at the noise floor and BestSNR at zero.
func (s *Simulation) Run(ctx context.Context) (*SimulationResult, error) {
	start := time.Now()
	env := s.Env
	rows, cols := env.Rows(), env.Cols()

	result := &SimulationResult{
		RunID: uuid.NewString(),
		RSSI:  make(map[string]*Grid),
		SNR:   make(map[string]*Grid),
	}

	// Per-transmitter RSSI.
	for idx, tx := range env.Transmitters {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		dist := env.DistanceGrid(tx.Position)
		pl, err := PathLossGrid(s.model(), s.PathLoss, dist, tx.Protocol.FrequencyMHz)
		if err != nil {
			return nil, fmt.Errorf("simulation run: %w", err)
		}
		pl = pl.Add(env.ObstacleAttenuationGrid(tx.Position))

		rssi := pl.Apply(func(loss float64) float64 { return tx.EIRPdBm() - loss })

		if s.ShadowFadingStd > 0 {
			rssi = rssi.Add(s.shadowFadingGrid(rows, cols))
		}
		if s.MultipathFading {
			rssi = rssi.Add(s.multipathFadingGrid(rows, cols))
		}

		label := tx.Label
		if label == "" {
			label = fmt.Sprintf("tx_%d", idx)
		}
		// Label collisions silently overwrite; uniqueness is the caller's
		// responsibility.
		if _, seen := result.RSSI[label]; !seen {
			result.Labels = append(result.Labels, label)
		}
		result.RSSI[label] = rssi
	}

	// Aggregate interference: sum received noise power in linear milliwatts
	// and convert to dB only at the end. Never averaged or maximised in dB.
	interfMW := NewGrid(rows, cols)
	for _, ns := range env.NoiseSources {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		dist := env.DistanceGrid(ns.Position)
		pl, err := PathLossGrid(s.model(), s.PathLoss, dist, ns.FrequencyMHz)
		if err != nil {
			return nil, fmt.Errorf("simulation run: %w", err)
		}
		pl = pl.Add(env.ObstacleAttenuationGrid(ns.Position))

		power := ns.PowerDBm
		rcvd := pl.Apply(func(loss float64) float64 { return dbmToMilliwatts(power - loss) })
		interfMW = interfMW.Add(rcvd)
	}
	interfMW = interfMW.AddScalar(dbmToMilliwatts(s.noiseFloor()))
	result.Interference = interfMW.Apply(milliwattsToDBm)

	// Per-transmitter SNR.
	nf := s.NoiseFigureDB
	for _, label := range result.Labels {
		noise := result.Interference.AddScalar(nf)
		result.SNR[label] = result.RSSI[label].Sub(noise)
	}

	result.BestRSSI, result.BestSNR = s.aggregate(result)

	s.log().Debug(ctx, "simulation run complete",
		logging.String("run_id", result.RunID),
		logging.Int("transmitters", len(env.Transmitters)),
		logging.Int("noise_sources", len(env.NoiseSources)),
		logging.Int("cells", rows*cols),
	)
	if s.Metrics != nil {
		s.Metrics.ObserveSimulation(string(s.model()), time.Since(start).Seconds())
	}
	return result, nil
}

// aggregate recomputes the best-RSSI/best-SNR grids from the per-label
// grids, applying the degenerate defaults when no transmitter is present.
func (s *Simulation) aggregate(result *SimulationResult) (bestRSSI, bestSNR *Grid) {
	rows, cols := s.Env.Rows(), s.Env.Cols()
	if len(result.Labels) == 0 {
		return NewGrid(rows, cols).Fill(s.noiseFloor()), NewGrid(rows, cols)
	}
	rssi := make([]*Grid, 0, len(result.Labels))
	snr := make([]*Grid, 0, len(result.Labels))
	for _, label := range result.Labels {
		rssi = append(rssi, result.RSSI[label])
		snr = append(snr, result.SNR[label])
	}
	return MaxReduce(rssi...), MaxReduce(snr...)
}

// shadowFadingGrid draws a per-cell independent Gaussian field with σ =
// ShadowFadingStd, modelling large-scale shadowing.
func (s *Simulation) shadowFadingGrid(rows, cols int) *Grid {
	dist := distuv.Normal{Mu: 0, Sigma: s.ShadowFadingStd, Src: s.rng()}
	g := NewGrid(rows, cols)
	for i := 0; i < rows; i++ {
		for j := 0; j < cols; j++ {
			g.Set(i, j, dist.Rand())
		}
	}
	return g
}

// multipathFadingGrid draws a per-cell Rayleigh magnitude from two standard
// normal fields and converts it to dB, floored at 0.01 to keep the dB value
// away from −∞.
func (s *Simulation) multipathFadingGrid(rows, cols int) *Grid {
	dist := distuv.Normal{Mu: 0, Sigma: 1, Src: s.rng()}
	g := NewGrid(rows, cols)
	for i := 0; i < rows; i++ {
		for j := 0; j < cols; j++ {
			x := dist.Rand()
			y := dist.Rand()
			r := math.Sqrt(x*x+y*y) / math.Sqrt2
			g.Set(i, j, 20.0*math.Log10(math.Max(r, 0.01)))
		}
	}
	return g
}

// round2 keeps reported statistics at two decimals.
func round2(v float64) float64 {
	return math.Round(v*100) / 100
}

// CoverageStats counts the cells whose best RSSI meets the sensitivity
// threshold and reports mean RSSI/SNR over the grid. A result without
// transmitters covers nothing: its BestRSSI holds the noise-floor default,
// which is not signal and never counts against the threshold.
func (s *Simulation) CoverageStats(result *SimulationResult, sensitivityDBm float64) CoverageStats {
	total := result.BestRSSI.Size()
	covered := 0
	if len(result.Labels) > 0 {
		covered = result.BestRSSI.CountAtLeast(sensitivityDBm)
	}
	stats := CoverageStats{
		TotalPoints:   total,
		CoveredPoints: covered,
	}
	if total > 0 {
		stats.CoveragePct = round2(100.0 * float64(covered) / float64(total))
		stats.MeanRSSIdBm = round2(result.BestRSSI.Mean())
		stats.MeanSNRdB = round2(result.BestSNR.Mean())
	}
	return stats
}

// CoverageMap returns the boolean per-cell coverage grid: true where the
// best RSSI meets the sensitivity threshold. Without transmitters every cell
// is uncovered, as in CoverageStats.
func CoverageMap(result *SimulationResult, sensitivityDBm float64) [][]bool {
	rows, cols := result.BestRSSI.Rows(), result.BestRSSI.Cols()
	out := make([][]bool, rows)
	for i := range out {
		out[i] = make([]bool, cols)
		if len(result.Labels) == 0 {
			continue
		}
		for j := 0; j < cols; j++ {
			out[i][j] = result.BestRSSI.At(i, j) >= sensitivityDBm
		}
	}
	return out
}

// CoverageByTransmitter returns the per-label coverage percentage against a
// shared sensitivity threshold.
func CoverageByTransmitter(result *SimulationResult, sensitivityDBm float64) map[string]float64 {
	out := make(map[string]float64, len(result.Labels))
	for _, label := range result.Labels {
		g := result.RSSI[label]
		total := g.Size()
		if total == 0 {
			out[label] = 0
			continue
		}
		out[label] = round2(100.0 * float64(g.CountAtLeast(sensitivityDBm)) / float64(total))
	}
	return out
}

// TechSensitivities holds the per-technology sensitivity thresholds used by
// the aggregate per-technology statistics.
var TechSensitivities = map[string]float64{
	"halow":   -95.0,
	"lorawan": -137.0,
	"nbiot":   -125.0,
}

func techKey(protocolName string) string {
	switch protocolName {
	case "WiFi-HaLow":
		return "halow"
	case "LoRaWAN":
		return "lorawan"
	case "NB-IoT":
		return "nbiot"
	default:
		return ""
	}
}

// TechStats aggregates coverage per technology family: the per-label grids
// of each family are max-reduced and scored against that family's
// sensitivity threshold. Labels follow the same tx_<index> fallback rule as
// Run.
func TechStats(env *Environment, result *SimulationResult) map[string]CoverageStats {
	byTech := make(map[string][]string)
	for idx, tx := range env.Transmitters {
		tech := techKey(tx.Protocol.Name)
		if tech == "" {
			continue
		}
		label := tx.Label
		if label == "" {
			label = fmt.Sprintf("tx_%d", idx)
		}
		if _, ok := result.RSSI[label]; !ok {
			continue
		}
		byTech[tech] = append(byTech[tech], label)
	}

	out := make(map[string]CoverageStats, len(byTech))
	for tech, labels := range byTech {
		rssi := make([]*Grid, 0, len(labels))
		snr := make([]*Grid, 0, len(labels))
		for _, label := range labels {
			rssi = append(rssi, result.RSSI[label])
			if g, ok := result.SNR[label]; ok {
				snr = append(snr, g)
			}
		}
		bestRSSI := MaxReduce(rssi...)
		bestSNR := MaxReduce(snr...)
		if bestSNR == nil {
			bestSNR = NewGrid(bestRSSI.Rows(), bestRSSI.Cols())
		}

		total := bestRSSI.Size()
		covered := bestRSSI.CountAtLeast(TechSensitivities[tech])
		stats := CoverageStats{TotalPoints: total, CoveredPoints: covered}
		if total > 0 {
			stats.CoveragePct = round2(100.0 * float64(covered) / float64(total))
			stats.MeanRSSIdBm = round2(bestRSSI.Mean())
			stats.MeanSNRdB = round2(bestSNR.Mean())
		}
		out[tech] = stats
	}
	return out
}
