package main

import (
	"context"
	"encoding/json"
	"os"

	"github.com/spf13/cobra"

	"github.com/signalsfoundry/lpwan-coverage/core"
	"github.com/signalsfoundry/lpwan-coverage/internal/config"
	"github.com/signalsfoundry/lpwan-coverage/internal/logging"
)

var (
	simConfigPath  string
	simSchemaPath  string
	simSensitivity float64
	simFullGrids   bool
)

var simulateCmd = &cobra.Command{
	Use:   "simulate",
	Short: "Run a coverage simulation for a scenario",
	Long:  "simulate loads a scenario YAML, runs the propagation and interference model, and prints coverage statistics as JSON.",
	RunE: func(cmd *cobra.Command, args []string) error {
		sc, err := config.Load(simConfigPath, simSchemaPath)
		if err != nil {
			return err
		}

		env, err := config.BuildEnvironment(sc)
		if err != nil {
			return err
		}

		log := logging.NewFromEnv()
		sim := config.NewSimulation(sc, env)
		sim.Log = log

		ctx := cmd.Context()
		if ctx == nil {
			ctx = context.Background()
		}

		result, err := sim.Run(ctx)
		if err != nil {
			return err
		}
		result = sim.ApplyObstacleShadowing(result)

		out := simulateOutput{
			RunID:          result.RunID,
			Stats:          sim.CoverageStats(result, simSensitivity),
			PerTech:        core.TechStats(env, result),
			PerTransmitter: core.CoverageByTransmitter(result, simSensitivity),
		}
		if simFullGrids {
			out.BestRSSI = gridRows(result.BestRSSI)
			out.BestSNR = gridRows(result.BestSNR)
		}

		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(out)
	},
}

type simulateOutput struct {
	RunID          string                        `json:"run_id"`
	Stats          core.CoverageStats            `json:"stats"`
	PerTech        map[string]core.CoverageStats `json:"per_tech_stats"`
	PerTransmitter map[string]float64            `json:"per_transmitter_coverage"`
	BestRSSI       [][]float64                   `json:"best_rssi_dbm,omitempty"`
	BestSNR        [][]float64                   `json:"best_snr_db,omitempty"`
}

func gridRows(g *core.Grid) [][]float64 {
	if g == nil {
		return nil
	}
	rows := make([][]float64, g.Rows())
	for r := 0; r < g.Rows(); r++ {
		row := make([]float64, g.Cols())
		for c := 0; c < g.Cols(); c++ {
			row[c] = g.At(r, c)
		}
		rows[r] = row
	}
	return rows
}

func init() {
	simulateCmd.Flags().StringVar(&simConfigPath, "config", "configs/scenario.yaml", "Path to scenario configuration YAML")
	simulateCmd.Flags().StringVar(&simSchemaPath, "schema", "configs/scenario.cue", "Path to CUE schema file")
	simulateCmd.Flags().Float64Var(&simSensitivity, "sensitivity", -137, "Receiver sensitivity in dBm for the aggregate coverage stats")
	simulateCmd.Flags().BoolVar(&simFullGrids, "grids", false, "Include the best-RSSI and best-SNR grids in the output")
}
