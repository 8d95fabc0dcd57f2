// HTTP surface for the coverage engine: scenario in, grids and statistics
// out. Grid serialization to nested arrays happens here, never in core.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/signalsfoundry/lpwan-coverage/core"
	"github.com/signalsfoundry/lpwan-coverage/internal/config"
	"github.com/signalsfoundry/lpwan-coverage/internal/logging"
	"github.com/signalsfoundry/lpwan-coverage/internal/observability"
)

// Server exposes the simulation and placement operations over JSON HTTP.
type Server struct {
	log       logging.Logger
	collector *observability.Collector
	tracer    trace.Tracer
}

// New builds a server. A nil logger or collector disables the respective
// concern.
func New(log logging.Logger, collector *observability.Collector) *Server {
	if log == nil {
		log = logging.Noop()
	}
	return &Server{
		log:       log,
		collector: collector,
		tracer:    observability.Tracer(),
	}
}

// Routes returns the handler for all endpoints.
func (s *Server) Routes() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /api/simulate", s.handleSimulate)
	mux.HandleFunc("POST /api/place", s.handlePlace)
	mux.HandleFunc("GET /api/halow-channels", s.handleHaLowChannels)
	mux.HandleFunc("GET /healthz", s.handleHealthz)
	if s.collector != nil {
		mux.Handle("GET /metrics", s.collector.Handler())
	}
	return mux
}

// Start serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) Start(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.Routes(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() { errCh <- srv.ListenAndServe() }()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	}
}

type simulateResponse struct {
	RunID            string                        `json:"run_id"`
	WidthKm          float64                       `json:"width_km"`
	HeightKm         float64                       `json:"height_km"`
	ResolutionM      float64                       `json:"resolution_m"`
	GridShape        [2]int                        `json:"grid_shape"`
	RSSIGrid         [][]float64                   `json:"rssi_grid"`
	SNRGrid          [][]float64                   `json:"snr_grid"`
	InterferenceGrid [][]float64                   `json:"interference_grid"`
	Stats            core.CoverageStats            `json:"stats"`
	PerTechStats     map[string]core.CoverageStats `json:"per_tech_stats"`
	DeviceCounts     map[string]int                `json:"device_counts"`
}

func (s *Server) handleSimulate(w http.ResponseWriter, r *http.Request) {
	ctx, log := logging.WithRequestLogger(r.Context(), s.log)
	ctx, span := s.tracer.Start(ctx, "server.Simulate")
	defer span.End()

	var sc config.Scenario
	if err := json.NewDecoder(r.Body).Decode(&sc); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	sc.ApplyDefaults()

	env, err := config.BuildEnvironment(&sc)
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	if s.collector != nil {
		s.collector.SetScenarioCounts(len(env.Transmitters), len(env.NoiseSources), len(env.Obstacles)+len(env.Rects))
	}

	sim := config.NewSimulation(&sc, env)
	sim.Log = log
	sim.Metrics = s.collector

	result, err := sim.Run(ctx)
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	result = sim.ApplyObstacleShadowing(result)

	span.SetAttributes(
		attribute.String("run_id", result.RunID),
		attribute.Int("transmitters", len(env.Transmitters)),
		attribute.Int("cells", result.BestRSSI.Size()),
	)

	counts := make(map[string]int)
	for _, d := range sc.Devices {
		counts[d.Type]++
	}

	writeJSON(w, http.StatusOK, simulateResponse{
		RunID:            result.RunID,
		WidthKm:          sc.WidthKm,
		HeightKm:         sc.HeightKm,
		ResolutionM:      sc.ResolutionM,
		GridShape:        [2]int{result.BestRSSI.Rows(), result.BestRSSI.Cols()},
		RSSIGrid:         gridRows(result.BestRSSI),
		SNRGrid:          gridRows(result.BestSNR),
		InterferenceGrid: gridRows(result.Interference),
		Stats:            sim.CoverageStats(result, -137.0),
		PerTechStats:     core.TechStats(env, result),
		DeviceCounts:     counts,
	})
}

type placeRequest struct {
	Scenario    config.Scenario `json:"scenario"`
	Gateways    int             `json:"gateways"`
	Protocol    config.Device   `json:"protocol"`
	CoarseStepM float64         `json:"coarse_step_m"`
}

type placeResponse struct {
	Placements []core.Placement `json:"placements"`
}

func (s *Server) handlePlace(w http.ResponseWriter, r *http.Request) {
	ctx, log := logging.WithRequestLogger(r.Context(), s.log)
	ctx, span := s.tracer.Start(ctx, "server.Place")
	defer span.End()

	var req placeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	if req.Gateways <= 0 {
		req.Gateways = 1
	}
	req.Scenario.ApplyDefaults()

	proto, err := config.ResolveProtocol(req.Protocol)
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}

	env, err := config.BuildEnvironment(&req.Scenario)
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}

	// Candidate scoring runs under the scenario's propagation settings, not
	// the engine defaults.
	placements, err := core.SuggestGatewayPositions(ctx, env, proto, req.Gateways, core.PlacementOptions{
		CoarseStep:    req.CoarseStepM,
		Model:         core.PathLossModel(req.Scenario.Simulation.PathLossModel),
		PathLoss:      core.PathLossParams{Exponent: req.Scenario.Simulation.PathLossExponent},
		NoiseFloorDBm: req.Scenario.Simulation.NoiseFloorDBm,
		Log:           log,
		Metrics:       s.collector,
	})
	if err != nil {
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			writeError(w, http.StatusRequestTimeout, err)
			return
		}
		writeError(w, http.StatusBadRequest, err)
		return
	}

	span.SetAttributes(attribute.Int("gateways", req.Gateways))
	writeJSON(w, http.StatusOK, placeResponse{Placements: placements})
}

func (s *Server) handleHaLowChannels(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, core.HaLowUSChannels)
}

func (s *Server) handleHealthz(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// gridRows serialises a grid to row-major nested arrays for transport.
func gridRows(g *core.Grid) [][]float64 {
	rows, cols := g.Rows(), g.Cols()
	out := make([][]float64, rows)
	for i := 0; i < rows; i++ {
		out[i] = make([]float64, cols)
		for j := 0; j < cols; j++ {
			out[i][j] = g.At(i, j)
		}
	}
	return out
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, err error) {
	writeJSON(w, status, map[string]any{"ok": false, "error": err.Error()})
}
