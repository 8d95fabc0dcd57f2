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
	placeConfigPath string
	placeSchemaPath string
	placeGateways   int
	placeDeviceType string
	placeCoarseStep float64
)

var placeCmd = &cobra.Command{
	Use:   "place",
	Short: "Suggest gateway positions for a scenario",
	Long:  "place searches the scenario area for the gateway positions that maximise coverage and prints them as JSON.",
	RunE: func(cmd *cobra.Command, args []string) error {
		sc, err := config.Load(placeConfigPath, placeSchemaPath)
		if err != nil {
			return err
		}

		env, err := config.BuildEnvironment(sc)
		if err != nil {
			return err
		}

		proto, err := config.ResolveProtocol(config.Device{Type: placeDeviceType})
		if err != nil {
			return err
		}

		opts := core.PlacementOptions{
			CoarseStep:    placeCoarseStep,
			Model:         core.PathLossModel(sc.Simulation.PathLossModel),
			PathLoss:      core.PathLossParams{Exponent: sc.Simulation.PathLossExponent},
			NoiseFloorDBm: sc.Simulation.NoiseFloorDBm,
			Log:           logging.NewFromEnv(),
		}

		ctx := cmd.Context()
		if ctx == nil {
			ctx = context.Background()
		}

		placements, err := core.SuggestGatewayPositions(ctx, env, proto, placeGateways, opts)
		if err != nil {
			return err
		}

		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(placements)
	},
}

func init() {
	placeCmd.Flags().StringVar(&placeConfigPath, "config", "configs/scenario.yaml", "Path to scenario configuration YAML")
	placeCmd.Flags().StringVar(&placeSchemaPath, "schema", "configs/scenario.cue", "Path to CUE schema file")
	placeCmd.Flags().IntVar(&placeGateways, "gateways", 1, "Number of gateway positions to suggest")
	placeCmd.Flags().StringVar(&placeDeviceType, "device", "lorawan_gateway", "Device type the gateways operate (halow_ap, lorawan_gateway, nbiot_base)")
	placeCmd.Flags().Float64Var(&placeCoarseStep, "coarse-step", 0, "Coarse sweep step in metres (0 = 5x grid resolution)")
}
