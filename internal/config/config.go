// Scenario configuration: the loosely-typed device/obstacle payloads
// accepted from YAML files and the HTTP API, and their conversion into core
// objects. Material and structure-type resolution with its documented
// default fallback lives here, outside the core.
package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/signalsfoundry/lpwan-coverage/core"
)

// StructureAttenuation maps obstacle structure types and materials accepted
// by the scenario surface to attenuation in dB. Unknown entries fall back to
// DefaultAttenuationDB by contract.
var StructureAttenuation = map[string]float64{
	"wood":        4.0,
	"glass":       3.0,
	"cement":      12.0,
	"metal":       25.0,
	"brick":       10.0,
	"water":       12.0,
	"foliage":     8.0,
	"water_tower": 15.0,
}

// DefaultAttenuationDB is applied when neither the obstacle type nor its
// material resolves to a preset.
const DefaultAttenuationDB = 10.0

// Position is a scenario coordinate in kilometres.
type Position struct {
	X float64 `yaml:"x" json:"x"`
	Y float64 `yaml:"y" json:"y"`
}

// Device is one loosely-typed device record. Which fields apply depends on
// Type; unset numeric fields take the per-kind defaults.
type Device struct {
	Type       string   `yaml:"type" json:"type"`
	Label      string   `yaml:"label" json:"label"`
	Position   Position `yaml:"position" json:"position"`
	ElevationM float64  `yaml:"elevation_m" json:"elevation_m"`

	// Wi-Fi HaLow
	Channel         int     `yaml:"channel" json:"channel"`
	ChannelWidthMHz float64 `yaml:"channel_width_mhz" json:"channel_width_mhz"`
	MCS             int     `yaml:"mcs" json:"mcs"`

	// LoRaWAN
	Region          string  `yaml:"region" json:"region"`
	SpreadingFactor int     `yaml:"spreading_factor" json:"spreading_factor"`
	BandwidthKHz    float64 `yaml:"bandwidth_khz" json:"bandwidth_khz"`

	// NB-IoT
	Band     string `yaml:"band" json:"band"`
	ToneMode string `yaml:"tone_mode" json:"tone_mode"`

	// Power meter
	FrequencyMHz float64 `yaml:"frequency_mhz" json:"frequency_mhz"`

	TxPowerDBm     float64 `yaml:"tx_power_dbm" json:"tx_power_dbm"`
	AntennaGainDBi float64 `yaml:"antenna_gain_dbi" json:"antenna_gain_dbi"`
}

// Obstacle is one rectangular structure record.
type Obstacle struct {
	ID       string   `yaml:"id" json:"id"`
	Type     string   `yaml:"type" json:"type"`
	Position Position `yaml:"position" json:"position"`
	WidthKm  float64  `yaml:"width_km" json:"width_km"`
	HeightKm float64  `yaml:"height_km" json:"height_km"`
	Material string   `yaml:"material" json:"material"`
}

// Simulation holds the propagation and fading settings for a run.
type Simulation struct {
	PathLossModel    string   `yaml:"pathloss_model" json:"pathloss_model"`
	PathLossExponent float64  `yaml:"pathloss_exponent" json:"pathloss_exponent"`
	NoiseFloorDBm    *float64 `yaml:"noise_floor_dbm" json:"noise_floor_dbm"`
	ShadowFadingStd  float64  `yaml:"shadow_fading_std" json:"shadow_fading_std"`
	MultipathFading  bool     `yaml:"multipath_fading" json:"multipath_fading"`
	NoiseFigureDB    *float64 `yaml:"noise_figure_db" json:"noise_figure_db"`
	Seed             uint64   `yaml:"seed" json:"seed"`
}

// Scenario is the root scenario document.
type Scenario struct {
	WidthKm     float64    `yaml:"width_km" json:"width_km"`
	HeightKm    float64    `yaml:"height_km" json:"height_km"`
	ResolutionM float64    `yaml:"resolution_m" json:"resolution_m"`
	Simulation  Simulation `yaml:"simulation" json:"simulation"`
	Devices     []Device   `yaml:"devices" json:"devices"`
	Obstacles   []Obstacle `yaml:"obstacles" json:"obstacles"`
}

// Load reads a YAML scenario file, optionally validating it against a CUE
// schema first.
func Load(configPath, schemaPath string) (*Scenario, error) {
	if schemaPath != "" {
		if err := ValidateWithCue(configPath, schemaPath); err != nil {
			return nil, err
		}
	}

	data, err := os.ReadFile(configPath)
	if err != nil {
		return nil, fmt.Errorf("read scenario: %w", err)
	}
	var sc Scenario
	if err := yaml.Unmarshal(data, &sc); err != nil {
		return nil, fmt.Errorf("decode scenario: %w", err)
	}
	sc.ApplyDefaults()
	return &sc, nil
}

// ApplyDefaults fills unset scenario fields with the documented defaults.
// Load applies it automatically; the HTTP surface applies it to decoded
// request bodies.
func (s *Scenario) ApplyDefaults() {
	if s.WidthKm == 0 {
		s.WidthKm = 5.0
	}
	if s.HeightKm == 0 {
		s.HeightKm = 5.0
	}
	if s.ResolutionM == 0 {
		s.ResolutionM = 50.0
	}
	if s.Simulation.PathLossModel == "" {
		s.Simulation.PathLossModel = string(core.ModelLogDistance)
	}
	if s.Simulation.PathLossExponent == 0 {
		s.Simulation.PathLossExponent = 2.7
	}
	// Pointer-typed like NoiseFigureDB so an explicit 0 dBm floor survives.
	if s.Simulation.NoiseFloorDBm == nil {
		nf := core.DefaultNoiseFloorDBm
		s.Simulation.NoiseFloorDBm = &nf
	}
	if s.Simulation.NoiseFigureDB == nil {
		nf := 6.0
		s.Simulation.NoiseFigureDB = &nf
	}
}

// resolveAttenuation maps an obstacle record to its attenuation: structure
// type first, then material, then the documented default.
func resolveAttenuation(o Obstacle) float64 {
	switch o.Type {
	case "house":
		return StructureAttenuation["brick"]
	case "water":
		return StructureAttenuation["water"]
	case "forest":
		return StructureAttenuation["foliage"]
	case "water_tower":
		return StructureAttenuation["water_tower"]
	}
	if att, ok := StructureAttenuation[o.Material]; ok {
		return att
	}
	return DefaultAttenuationDB
}

// deviceSpec converts one device record to its core tagged variant.
func deviceSpec(d Device) (core.DeviceSpec, error) {
	pos := core.Point{X: d.Position.X * 1000, Y: d.Position.Y * 1000}

	switch d.Type {
	case "halow_ap":
		return core.HaLowAP{
			Position:        pos,
			Label:           d.Label,
			ElevationM:      d.ElevationM,
			Channel:         intOr(d.Channel, 2),
			ChannelWidthMHz: floatOr(d.ChannelWidthMHz, 2.0),
			MCS:             intOr(d.MCS, 2),
			TxPowerDBm:      d.TxPowerDBm,
			AntennaGainDBi:  d.AntennaGainDBi,
		}, nil
	case "halow_endpoint":
		return core.HaLowEndpoint{
			Position:        pos,
			Label:           d.Label,
			ElevationM:      d.ElevationM,
			Channel:         intOr(d.Channel, 2),
			ChannelWidthMHz: floatOr(d.ChannelWidthMHz, 2.0),
			MCS:             intOr(d.MCS, 2),
			TxPowerDBm:      d.TxPowerDBm,
		}, nil
	case "lorawan_gateway":
		return core.LoRaGateway{
			Position:        pos,
			Label:           d.Label,
			ElevationM:      d.ElevationM,
			Region:          strOr(d.Region, "US915"),
			SpreadingFactor: intOr(d.SpreadingFactor, 12),
			BandwidthKHz:    floatOr(d.BandwidthKHz, 125.0),
			AntennaGainDBi:  d.AntennaGainDBi,
		}, nil
	case "lorawan_endpoint":
		return core.LoRaEndpoint{
			Position:        pos,
			Label:           d.Label,
			ElevationM:      d.ElevationM,
			Region:          strOr(d.Region, "US915"),
			SpreadingFactor: intOr(d.SpreadingFactor, 12),
			BandwidthKHz:    floatOr(d.BandwidthKHz, 125.0),
			TxPowerDBm:      d.TxPowerDBm,
		}, nil
	case "nbiot_base":
		return core.NBIoTBase{
			Position:       pos,
			Label:          d.Label,
			ElevationM:     d.ElevationM,
			Band:           strOr(d.Band, "B5"),
			ToneMode:       strOr(d.ToneMode, "single-15"),
			AntennaGainDBi: d.AntennaGainDBi,
		}, nil
	case "nbiot_endpoint":
		return core.NBIoTEndpoint{
			Position:   pos,
			Label:      d.Label,
			ElevationM: d.ElevationM,
			Band:       strOr(d.Band, "B5"),
			ToneMode:   strOr(d.ToneMode, "single-15"),
			TxPowerDBm: d.TxPowerDBm,
		}, nil
	case "power_meter":
		return core.PowerMeter{
			Position:     pos,
			Label:        d.Label,
			PowerDBm:     d.TxPowerDBm,
			FrequencyMHz: d.FrequencyMHz,
			BandwidthKHz: d.BandwidthKHz,
		}, nil
	default:
		return nil, fmt.Errorf("unknown device type %q", d.Type)
	}
}

// BuildEnvironment materialises the scenario into a populated core
// environment, including the synthesized co-channel interference sources.
func BuildEnvironment(sc *Scenario) (*core.Environment, error) {
	env, err := core.NewEnvironment(sc.WidthKm*1000, sc.HeightKm*1000, sc.ResolutionM)
	if err != nil {
		return nil, err
	}

	for _, o := range sc.Obstacles {
		env.AddRectObstacle(core.RectObstacle{
			Rect: core.Rect{
				X:      o.Position.X * 1000,
				Y:      o.Position.Y * 1000,
				Width:  o.WidthKm * 1000,
				Height: o.HeightKm * 1000,
			},
			AttenuationDB: resolveAttenuation(o),
			Material:      o.Material,
		})
	}

	for i, d := range sc.Devices {
		spec, err := deviceSpec(d)
		if err != nil {
			return nil, fmt.Errorf("device %d: %w", i, err)
		}
		if err := core.AddDevice(env, spec); err != nil {
			return nil, fmt.Errorf("device %d: %w", i, err)
		}
	}

	core.AddCoChannelInterferers(env)
	return env, nil
}

// NewSimulation builds a configured core simulation for the scenario's
// environment.
func NewSimulation(sc *Scenario, env *core.Environment) *core.Simulation {
	sim := core.NewSimulation(env)
	sim.Model = core.PathLossModel(sc.Simulation.PathLossModel)
	sim.PathLoss = core.PathLossParams{Exponent: sc.Simulation.PathLossExponent}
	sim.NoiseFloorDBm = sc.Simulation.NoiseFloorDBm
	sim.ShadowFadingStd = sc.Simulation.ShadowFadingStd
	sim.MultipathFading = sc.Simulation.MultipathFading
	if sc.Simulation.NoiseFigureDB != nil {
		sim.NoiseFigureDB = *sc.Simulation.NoiseFigureDB
	}
	if sc.Simulation.Seed != 0 {
		sim.Rand = core.NewSeededRand(sc.Simulation.Seed)
	}
	return sim
}

// ResolveProtocol maps a device record to the protocol it would operate,
// for callers (such as the placement search) that need the protocol without
// deploying the device.
func ResolveProtocol(d Device) (core.Protocol, error) {
	switch d.Type {
	case "halow_ap", "halow_endpoint":
		return core.NewWiFiHaLow(intOr(d.Channel, 2), floatOr(d.ChannelWidthMHz, 2.0), intOr(d.MCS, 2)), nil
	case "lorawan_gateway", "lorawan_endpoint":
		return core.NewLoRaWAN(strOr(d.Region, "US915"), intOr(d.SpreadingFactor, 12), floatOr(d.BandwidthKHz, 125.0)), nil
	case "nbiot_base", "nbiot_endpoint":
		return core.NewNBIoT(strOr(d.Band, "B5"), strOr(d.ToneMode, "single-15")), nil
	default:
		return core.Protocol{}, fmt.Errorf("no protocol for device type %q", d.Type)
	}
}

func intOr(v, def int) int {
	if v == 0 {
		return def
	}
	return v
}

func floatOr(v, def float64) float64 {
	if v == 0 {
		return def
	}
	return v
}

func strOr(v, def string) string {
	if v == "" {
		return def
	}
	return v
}
