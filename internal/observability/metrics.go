package observability

import (
	"fmt"
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Collector bundles Prometheus metrics for the coverage engine and exposes
// helpers to wire them into HTTP handlers. It implements core.RunMetrics.
type Collector struct {
	gatherer prometheus.Gatherer

	SimulationRuns       *prometheus.CounterVec
	SimulationDuration   *prometheus.HistogramVec
	PlacementEvaluations *prometheus.CounterVec

	ScenarioTransmitters prometheus.Gauge
	ScenarioNoiseSources prometheus.Gauge
	ScenarioObstacles    prometheus.Gauge
}

// NewCollector registers the engine metrics against the provided registerer,
// defaulting to the global Prometheus registry when nil.
func NewCollector(reg prometheus.Registerer) (*Collector, error) {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	gatherer := prometheus.DefaultGatherer
	if g, ok := reg.(prometheus.Gatherer); ok {
		gatherer = g
	}

	runs := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "simulation_runs_total",
		Help: "Total number of completed simulation runs, labeled by path-loss model.",
	}, []string{"model"})
	runs, err := registerCounterVec(reg, runs, "simulation_runs_total")
	if err != nil {
		return nil, err
	}

	duration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "simulation_duration_seconds",
		Help:    "Simulation run latency in seconds.",
		Buckets: []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1, 5, 10, 30},
	}, []string{"model"})
	duration, err = registerHistogramVec(reg, duration, "simulation_duration_seconds")
	if err != nil {
		return nil, err
	}

	evals := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "placement_evaluations_total",
		Help: "Candidate positions evaluated by the placement search, labeled by phase.",
	}, []string{"phase"})
	evals, err = registerCounterVec(reg, evals, "placement_evaluations_total")
	if err != nil {
		return nil, err
	}

	transmitters, err := registerGauge(reg, prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "scenario_transmitters",
		Help: "Current number of transmitters in the loaded scenario.",
	}), "scenario_transmitters")
	if err != nil {
		return nil, err
	}
	noiseSources, err := registerGauge(reg, prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "scenario_noise_sources",
		Help: "Current number of noise sources in the loaded scenario.",
	}), "scenario_noise_sources")
	if err != nil {
		return nil, err
	}
	obstacles, err := registerGauge(reg, prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "scenario_obstacles",
		Help: "Current number of obstacle segments in the loaded scenario.",
	}), "scenario_obstacles")
	if err != nil {
		return nil, err
	}

	return &Collector{
		gatherer:             gatherer,
		SimulationRuns:       runs,
		SimulationDuration:   duration,
		PlacementEvaluations: evals,
		ScenarioTransmitters: transmitters,
		ScenarioNoiseSources: noiseSources,
		ScenarioObstacles:    obstacles,
	}, nil
}

// ObserveSimulation records one completed simulation run.
func (c *Collector) ObserveSimulation(model string, seconds float64) {
	if c == nil {
		return
	}
	if c.SimulationRuns != nil {
		c.SimulationRuns.WithLabelValues(model).Inc()
	}
	if c.SimulationDuration != nil {
		c.SimulationDuration.WithLabelValues(model).Observe(seconds)
	}
}

// AddPlacementEvaluations records candidate evaluations per search phase.
func (c *Collector) AddPlacementEvaluations(phase string, n int) {
	if c == nil || c.PlacementEvaluations == nil || n <= 0 {
		return
	}
	c.PlacementEvaluations.WithLabelValues(phase).Add(float64(n))
}

// SetScenarioCounts drives the scenario gauges from the loaded environment.
func (c *Collector) SetScenarioCounts(transmitters, noiseSources, obstacles int) {
	if c == nil {
		return
	}
	if c.ScenarioTransmitters != nil {
		c.ScenarioTransmitters.Set(float64(transmitters))
	}
	if c.ScenarioNoiseSources != nil {
		c.ScenarioNoiseSources.Set(float64(noiseSources))
	}
	if c.ScenarioObstacles != nil {
		c.ScenarioObstacles.Set(float64(obstacles))
	}
}

// Handler exposes a ready-to-use /metrics handler.
func (c *Collector) Handler() http.Handler {
	gatherer := c.gatherer
	if gatherer == nil {
		gatherer = prometheus.DefaultGatherer
	}
	return promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})
}

func registerCounterVec(reg prometheus.Registerer, vec *prometheus.CounterVec, name string) (*prometheus.CounterVec, error) {
	if err := reg.Register(vec); err != nil {
		if are, ok := err.(prometheus.AlreadyRegisteredError); ok {
			if existing, ok := are.ExistingCollector.(*prometheus.CounterVec); ok {
				return existing, nil
			}
			return nil, fmt.Errorf("collector %s already registered with incompatible type", name)
		}
		return nil, err
	}
	return vec, nil
}

func registerHistogramVec(reg prometheus.Registerer, vec *prometheus.HistogramVec, name string) (*prometheus.HistogramVec, error) {
	if err := reg.Register(vec); err != nil {
		if are, ok := err.(prometheus.AlreadyRegisteredError); ok {
			if existing, ok := are.ExistingCollector.(*prometheus.HistogramVec); ok {
				return existing, nil
			}
			return nil, fmt.Errorf("collector %s already registered with incompatible type", name)
		}
		return nil, err
	}
	return vec, nil
}

func registerGauge(reg prometheus.Registerer, gauge prometheus.Gauge, name string) (prometheus.Gauge, error) {
	if err := reg.Register(gauge); err != nil {
		if are, ok := err.(prometheus.AlreadyRegisteredError); ok {
			if existing, ok := are.ExistingCollector.(prometheus.Gauge); ok {
				return existing, nil
			}
			return nil, fmt.Errorf("collector %s already registered with incompatible type", name)
		}
		return nil, err
	}
	return gauge, nil
}
