package core

import (
	"context"
	"math"
	"testing"
)

func lorawanTestEnv(t *testing.T) *Environment {
	t.Helper()
	env := mustEnv(t, 1000, 1000, 50)
	if err := AddDevice(env, LoRaEndpoint{
		Position:        Point{500, 500},
		Label:           "node1",
		Region:          "EU868",
		SpreadingFactor: 12,
	}); err != nil {
		t.Fatalf("AddDevice failed: %v", err)
	}
	return env
}

func TestRunSingleTransmitter(t *testing.T) {
	env := lorawanTestEnv(t)
	sim := NewSimulation(env)

	result, err := sim.Run(context.Background())
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if result.RunID == "" {
		t.Fatalf("expected a run ID")
	}
	if len(result.Labels) != 1 || result.Labels[0] != "node1" {
		t.Fatalf("unexpected labels %v", result.Labels)
	}

	rssi := result.RSSI["node1"]
	if rssi == nil || rssi.Rows() != 20 || rssi.Cols() != 20 {
		t.Fatalf("unexpected RSSI grid shape")
	}

	// Signal decays away from the transmitter.
	near := rssi.At(10, 10)
	far := rssi.At(0, 0)
	if near <= far {
		t.Fatalf("expected near cell (%v) stronger than far cell (%v)", near, far)
	}

	// With a single transmitter, the best grid is that transmitter's grid.
	if result.BestRSSI.At(0, 0) != far || result.BestRSSI.At(10, 10) != near {
		t.Fatalf("BestRSSI does not match the only per-label grid")
	}

	// The cell value follows the link budget identity: EIRP minus the
	// log-distance loss at the clamped cell distance.
	tx := env.Transmitters[0]
	d := tx.Position.DistanceTo(env.CellCenter(0, 0))
	want := tx.EIRPdBm() - LogDistancePathLoss(d, tx.Protocol.FrequencyMHz, 2.7, 1)
	if math.Abs(far-want) > 1e-9 {
		t.Fatalf("corner cell RSSI = %v, want %v", far, want)
	}

	// SF12 over one square kilometre with no obstacles is fully covered.
	stats := sim.CoverageStats(result, -137)
	if stats.TotalPoints != 400 || stats.CoveragePct != 100.0 {
		t.Fatalf("unexpected coverage stats: %+v", stats)
	}
}

// Without transmitters the run still succeeds: BestRSSI at the noise floor,
// BestSNR all zero.
func TestRunNoTransmitters(t *testing.T) {
	env := mustEnv(t, 500, 500, 50)
	sim := NewSimulation(env)

	result, err := sim.Run(context.Background())
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if len(result.Labels) != 0 {
		t.Fatalf("unexpected labels %v", result.Labels)
	}
	if v := result.BestRSSI.At(3, 3); v != DefaultNoiseFloorDBm {
		t.Fatalf("BestRSSI = %v, want the noise floor", v)
	}
	if v := result.BestSNR.At(3, 3); v != 0 {
		t.Fatalf("BestSNR = %v, want 0", v)
	}

	// The noise-floor default must not masquerade as signal: against any
	// threshold below the floor the coverage is still zero.
	stats := sim.CoverageStats(result, -137)
	if stats.CoveredPoints != 0 || stats.CoveragePct != 0 {
		t.Fatalf("expected zero coverage, got %+v", stats)
	}
	if stats.TotalPoints != 100 {
		t.Fatalf("total points = %d, want 100", stats.TotalPoints)
	}
	covered := CoverageMap(result, -137)
	if covered[3][3] {
		t.Fatalf("coverage map marks cells covered without transmitters")
	}
}

func TestRunLabelFallback(t *testing.T) {
	env := mustEnv(t, 500, 500, 50)
	env.AddTransmitter(&Transmitter{
		Position:   Point{250, 250},
		Protocol:   NewLoRaWAN("EU868", 12, 125),
		TxPowerDBm: 14,
	})

	result, err := NewSimulation(env).Run(context.Background())
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if len(result.Labels) != 1 || result.Labels[0] != "tx_0" {
		t.Fatalf("expected fallback label tx_0, got %v", result.Labels)
	}
}

// With no noise sources, the interference grid is exactly the noise floor
// and SNR is RSSI relative to it.
func TestRunInterferenceFloor(t *testing.T) {
	env := lorawanTestEnv(t)
	sim := NewSimulation(env)

	result, err := sim.Run(context.Background())
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if v := result.Interference.At(5, 5); math.Abs(v-DefaultNoiseFloorDBm) > 1e-9 {
		t.Fatalf("interference = %v, want the noise floor", v)
	}
	wantSNR := result.RSSI["node1"].At(5, 5) - DefaultNoiseFloorDBm
	if got := result.SNR["node1"].At(5, 5); math.Abs(got-wantSNR) > 1e-9 {
		t.Fatalf("SNR = %v, want %v", got, wantSNR)
	}
}

// Two equal co-located noise sources raise the interference level by 3 dB
// over one source: power sums linearly, not in dB.
func TestRunInterferenceSumsLinearly(t *testing.T) {
	mkEnv := func(n int) *Environment {
		env := mustEnv(t, 500, 500, 50)
		for i := 0; i < n; i++ {
			env.AddNoiseSource(&NoiseSource{
				Position:     Point{250, 250},
				PowerDBm:     20,
				FrequencyMHz: 868,
				BandwidthKHz: 125,
			})
		}
		return env
	}

	// Suppress the floor's contribution by setting it very low.
	runOne := func(env *Environment) *Grid {
		sim := NewSimulation(env)
		sim.NoiseFloorDBm = f64(-300)
		result, err := sim.Run(context.Background())
		if err != nil {
			t.Fatalf("Run failed: %v", err)
		}
		return result.Interference
	}

	one := runOne(mkEnv(1))
	two := runOne(mkEnv(2))

	diff := two.At(2, 7) - one.At(2, 7)
	if math.Abs(diff-10.0*math.Log10(2)) > 1e-6 {
		t.Fatalf("doubling the sources changed interference by %v dB, want ~3.01", diff)
	}
}

// The noise figure shifts every SNR cell down by the same amount.
func TestRunNoiseFigure(t *testing.T) {
	run := func(nf float64) *SimulationResult {
		env := lorawanTestEnv(t)
		sim := NewSimulation(env)
		sim.NoiseFigureDB = nf
		result, err := sim.Run(context.Background())
		if err != nil {
			t.Fatalf("Run failed: %v", err)
		}
		return result
	}

	base := run(0)
	shifted := run(6)
	diff := base.SNR["node1"].At(4, 4) - shifted.SNR["node1"].At(4, 4)
	if math.Abs(diff-6.0) > 1e-9 {
		t.Fatalf("noise figure shifted SNR by %v dB, want 6", diff)
	}
}

// An explicit 0 dBm noise floor is a configuration, not an unset field: the
// interference floor follows it instead of the -120 dBm default.
func TestRunExplicitZeroNoiseFloor(t *testing.T) {
	env := lorawanTestEnv(t)
	sim := NewSimulation(env)
	sim.NoiseFloorDBm = f64(0)

	result, err := sim.Run(context.Background())
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if v := result.Interference.At(5, 5); math.Abs(v) > 1e-9 {
		t.Fatalf("interference floor = %v dBm, want 0", v)
	}
}

// Equal seeds reproduce fading draws bit for bit; different seeds diverge.
func TestRunSeededFadingReproducible(t *testing.T) {
	run := func(seed uint64) *Grid {
		env := lorawanTestEnv(t)
		sim := NewSimulation(env)
		sim.ShadowFadingStd = 4.0
		sim.MultipathFading = true
		sim.Rand = NewSeededRand(seed)
		result, err := sim.Run(context.Background())
		if err != nil {
			t.Fatalf("Run failed: %v", err)
		}
		return result.BestRSSI
	}

	a := run(42)
	b := run(42)
	c := run(43)

	same, diverged := true, false
	for i := 0; i < a.Rows(); i++ {
		for j := 0; j < a.Cols(); j++ {
			if a.At(i, j) != b.At(i, j) {
				same = false
			}
			if a.At(i, j) != c.At(i, j) {
				diverged = true
			}
		}
	}
	if !same {
		t.Fatalf("equal seeds produced different grids")
	}
	if !diverged {
		t.Fatalf("different seeds produced identical grids")
	}
}

func TestRunCancelled(t *testing.T) {
	env := lorawanTestEnv(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if _, err := NewSimulation(env).Run(ctx); err == nil {
		t.Fatalf("expected error for cancelled context")
	}
}

func TestRunUnknownModel(t *testing.T) {
	env := lorawanTestEnv(t)
	sim := NewSimulation(env)
	sim.Model = "two-ray"

	if _, err := sim.Run(context.Background()); err == nil {
		t.Fatalf("expected error for unknown path-loss model")
	}
}

type captureMetrics struct {
	models []string
	phases map[string]int
}

func (c *captureMetrics) ObserveSimulation(model string, seconds float64) {
	c.models = append(c.models, model)
}

func (c *captureMetrics) AddPlacementEvaluations(phase string, n int) {
	if c.phases == nil {
		c.phases = make(map[string]int)
	}
	c.phases[phase] += n
}

func TestRunReportsMetrics(t *testing.T) {
	env := lorawanTestEnv(t)
	sim := NewSimulation(env)
	m := &captureMetrics{}
	sim.Metrics = m

	if _, err := sim.Run(context.Background()); err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if len(m.models) != 1 || m.models[0] != "log-distance" {
		t.Fatalf("unexpected metric observations %v", m.models)
	}
}

func TestCoverageByTransmitter(t *testing.T) {
	env := mustEnv(t, 1000, 1000, 50)
	// A strong AP and a deliberately feeble transmitter.
	if err := AddDevice(env, HaLowAP{Position: Point{500, 500}, Label: "ap", Channel: 2, ChannelWidthMHz: 2}); err != nil {
		t.Fatalf("AddDevice failed: %v", err)
	}
	env.AddTransmitter(&Transmitter{
		Position:   Point{500, 500},
		Protocol:   NewWiFiHaLow(2, 2, 0),
		TxPowerDBm: -80,
		Label:      "weak",
	})

	sim := NewSimulation(env)
	result, err := sim.Run(context.Background())
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}

	cov := CoverageByTransmitter(result, -95)
	if cov["ap"] <= cov["weak"] {
		t.Fatalf("expected the AP to out-cover the weak transmitter: %v", cov)
	}
}

func TestTechStats(t *testing.T) {
	env := mustEnv(t, 1000, 1000, 50)
	if err := AddDevice(env, HaLowAP{Position: Point{300, 300}, Label: "ap", Channel: 2, ChannelWidthMHz: 2}); err != nil {
		t.Fatalf("AddDevice failed: %v", err)
	}
	if err := AddDevice(env, LoRaGateway{Position: Point{700, 700}, Label: "gw", Region: "EU868", SpreadingFactor: 12}); err != nil {
		t.Fatalf("AddDevice failed: %v", err)
	}

	sim := NewSimulation(env)
	result, err := sim.Run(context.Background())
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}

	stats := TechStats(env, result)
	if len(stats) != 2 {
		t.Fatalf("expected stats for two technologies, got %v", stats)
	}
	if _, ok := stats["halow"]; !ok {
		t.Fatalf("missing halow stats")
	}
	if _, ok := stats["lorawan"]; !ok {
		t.Fatalf("missing lorawan stats")
	}
	// LoRa's 151 dB budget blankets the square kilometre.
	if stats["lorawan"].CoveragePct != 100.0 {
		t.Fatalf("lorawan coverage = %v, want 100", stats["lorawan"].CoveragePct)
	}
}

func TestCoverageMapShape(t *testing.T) {
	env := lorawanTestEnv(t)
	result, err := NewSimulation(env).Run(context.Background())
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}

	m := CoverageMap(result, -137)
	if len(m) != 20 || len(m[0]) != 20 {
		t.Fatalf("unexpected map shape %dx%d", len(m), len(m[0]))
	}
	if !m[10][10] {
		t.Fatalf("expected the transmitter's own cell to be covered")
	}
}

// Under free-space loss the covered disc must end where the path loss
// exhausts the link budget. A 14 dBm transmitter against a -60 dBm threshold
// buys 74 dB of loss, which at 868 MHz is spent after about 138 m.
func TestCoverageRadiusMatchesLinkBudget(t *testing.T) {
	env := mustEnv(t, 500, 500, 25)
	tx := &Transmitter{
		Position:   env.CellCenter(10, 10),
		TxPowerDBm: 14,
		Protocol:   Protocol{Name: "LoRaWAN", FrequencyMHz: 868, BandwidthKHz: 125},
		Label:      "gw",
	}
	env.AddTransmitter(tx)

	sim := NewSimulation(env)
	sim.Model = ModelFreeSpace

	result, err := sim.Run(context.Background())
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}

	sens := -60.0
	budget := tx.EIRPdBm() - sens
	radiusM := 1000.0 * math.Pow(10, (budget-32.44-20*math.Log10(868))/20)

	// Farthest covered cell along the transmitter's own row.
	covered := CoverageMap(result, sens)
	far := 0.0
	for j := 0; j < env.Cols(); j++ {
		if !covered[10][j] {
			continue
		}
		if d := math.Abs(env.CellCenter(10, j).X - tx.Position.X); d > far {
			far = d
		}
	}
	if math.Abs(far-radiusM) > env.Resolution {
		t.Fatalf("coverage edge at %v m, want within one cell of %v m", far, radiusM)
	}
	// The cells straddling the radius: 125 m is just inside the budget,
	// 150 m just past it.
	if !covered[10][5] || covered[10][4] {
		t.Fatalf("boundary cells misclassified: inside=%v outside=%v", covered[10][5], covered[10][4])
	}
}
