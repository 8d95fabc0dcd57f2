// core/device.go
package core

import (
	"fmt"
	"math"
)

// Transmitter is an IoT end-device or base station radiating at a grid
// position. Label is the key under which its result grids are stored.
type Transmitter struct {
	Position       Point
	Protocol       Protocol
	TxPowerDBm     float64
	AntennaGainDBi float64
	Label          string
}

// EIRPdBm returns the effective isotropic radiated power
// (transmit power + antenna gain).
func (t *Transmitter) EIRPdBm() float64 {
	return t.TxPowerDBm + t.AntennaGainDBi
}

// Gateway is a receiver reference point with a sensitivity threshold. The
// placement optimizer also instantiates gateways as virtual transmitters
// when scoring candidate positions (reciprocity assumption for uplink
// coverage).
type Gateway struct {
	Position       Point
	Protocol       Protocol
	SensitivityDBm float64
	AntennaGainDBi float64
	Label          string
}

// NoiseSource radiates interference at a centre frequency and bandwidth. It
// never contributes to the RSSI of a data link.
type NoiseSource struct {
	Position     Point
	PowerDBm     float64
	FrequencyMHz float64
	BandwidthKHz float64
	Label        string
}

// HeightGainDB returns the antenna elevation gain 6·log10(h/1 m). Heights at
// or below the 1 m reference contribute nothing.
func HeightGainDB(heightM float64) float64 {
	if heightM <= 1.0 {
		return 0
	}
	return 6.0 * math.Log10(heightM)
}

// DeviceSpec is the closed set of deployable device kinds. Each variant
// carries its own strongly-typed parameter record; AddDevice dispatches over
// the set exhaustively.
type DeviceSpec interface {
	isDeviceSpec()
}

// HaLowAP is an 802.11ah access point.
type HaLowAP struct {
	Position        Point
	Label           string
	ElevationM      float64
	Channel         int
	ChannelWidthMHz float64
	MCS             int
	TxPowerDBm      float64 // 0 → 30 dBm
	AntennaGainDBi  float64 // 0 → 3 dBi
}

// HaLowEndpoint is an 802.11ah station.
type HaLowEndpoint struct {
	Position        Point
	Label           string
	ElevationM      float64
	Channel         int
	ChannelWidthMHz float64
	MCS             int
	TxPowerDBm      float64 // 0 → 10 dBm
}

// LoRaGateway is a LoRaWAN gateway radio.
type LoRaGateway struct {
	Position        Point
	Label           string
	ElevationM      float64
	Region          string
	SpreadingFactor int
	BandwidthKHz    float64
	AntennaGainDBi  float64 // 0 → 6 dBi
}

// LoRaEndpoint is a LoRaWAN end node.
type LoRaEndpoint struct {
	Position        Point
	Label           string
	ElevationM      float64
	Region          string
	SpreadingFactor int
	BandwidthKHz    float64
	TxPowerDBm      float64 // 0 → 14 dBm
}

// NBIoTBase is an NB-IoT base station.
type NBIoTBase struct {
	Position       Point
	Label          string
	ElevationM     float64
	Band           string
	ToneMode       string
	AntennaGainDBi float64 // 0 → 8 dBi
}

// NBIoTEndpoint is an NB-IoT user device.
type NBIoTEndpoint struct {
	Position   Point
	Label      string
	ElevationM float64
	Band       string
	ToneMode   string
	TxPowerDBm float64 // 0 → 23 dBm
}

// PowerMeter is a broadband interferer. It contributes a noise source only,
// never a data-link transmitter. The radiated power is boosted by a fixed
// 15 dB so metering bursts register against narrowband links.
type PowerMeter struct {
	Position     Point
	Label        string
	PowerDBm     float64 // 0 → 20 dBm
	FrequencyMHz float64 // 0 → 925 MHz
	BandwidthKHz float64 // 0 → 50 MHz
}

func (HaLowAP) isDeviceSpec()       {}
func (HaLowEndpoint) isDeviceSpec() {}
func (LoRaGateway) isDeviceSpec()   {}
func (LoRaEndpoint) isDeviceSpec()  {}
func (NBIoTBase) isDeviceSpec()     {}
func (NBIoTEndpoint) isDeviceSpec() {}
func (PowerMeter) isDeviceSpec()    {}

const powerMeterNoiseBoostDB = 15.0

func orDefault(v, def float64) float64 {
	if v == 0 {
		return def
	}
	return v
}

// AddDevice resolves a device spec into the concrete transmitter or noise
// source it describes and registers it with the environment.
func AddDevice(env *Environment, spec DeviceSpec) error {
	switch s := spec.(type) {
	case HaLowAP:
		proto := NewWiFiHaLow(s.Channel, s.ChannelWidthMHz, s.MCS)
		env.AddTransmitter(&Transmitter{
			Position:       s.Position,
			Protocol:       proto,
			TxPowerDBm:     orDefault(s.TxPowerDBm, 30.0),
			AntennaGainDBi: orDefault(s.AntennaGainDBi, 3.0) + HeightGainDB(s.ElevationM),
			Label:          s.Label,
		})
	case HaLowEndpoint:
		proto := NewWiFiHaLow(s.Channel, s.ChannelWidthMHz, s.MCS)
		env.AddTransmitter(&Transmitter{
			Position:       s.Position,
			Protocol:       proto,
			TxPowerDBm:     orDefault(s.TxPowerDBm, 10.0),
			AntennaGainDBi: HeightGainDB(s.ElevationM),
			Label:          s.Label,
		})
	case LoRaGateway:
		proto := NewLoRaWAN(s.Region, s.SpreadingFactor, s.BandwidthKHz)
		env.AddTransmitter(&Transmitter{
			Position:       s.Position,
			Protocol:       proto,
			TxPowerDBm:     14.0,
			AntennaGainDBi: orDefault(s.AntennaGainDBi, 6.0) + HeightGainDB(s.ElevationM),
			Label:          s.Label,
		})
	case LoRaEndpoint:
		proto := NewLoRaWAN(s.Region, s.SpreadingFactor, s.BandwidthKHz)
		env.AddTransmitter(&Transmitter{
			Position:       s.Position,
			Protocol:       proto,
			TxPowerDBm:     orDefault(s.TxPowerDBm, 14.0),
			AntennaGainDBi: HeightGainDB(s.ElevationM),
			Label:          s.Label,
		})
	case NBIoTBase:
		proto := NewNBIoT(s.Band, s.ToneMode)
		env.AddTransmitter(&Transmitter{
			Position:       s.Position,
			Protocol:       proto,
			TxPowerDBm:     23.0,
			AntennaGainDBi: orDefault(s.AntennaGainDBi, 8.0) + HeightGainDB(s.ElevationM),
			Label:          s.Label,
		})
	case NBIoTEndpoint:
		proto := NewNBIoT(s.Band, s.ToneMode)
		env.AddTransmitter(&Transmitter{
			Position:   s.Position,
			Protocol:   proto,
			TxPowerDBm: orDefault(s.TxPowerDBm, 23.0),
			Label:      s.Label,
		})
	case PowerMeter:
		env.AddNoiseSource(&NoiseSource{
			Position:     s.Position,
			PowerDBm:     orDefault(s.PowerDBm, 20.0) + powerMeterNoiseBoostDB,
			FrequencyMHz: orDefault(s.FrequencyMHz, 925.0),
			BandwidthKHz: orDefault(s.BandwidthKHz, 50000.0),
			Label:        s.Label,
		})
	default:
		return fmt.Errorf("unsupported device kind %T", spec)
	}
	return nil
}

// AddCoChannelInterferers models mutual interference between deployed
// transmitters: for every ordered pair whose channels share spectrum, the
// first transmitter is mirrored as a noise source at 10 dB below its
// transmit power.
func AddCoChannelInterferers(env *Environment) {
	txs := env.Transmitters
	for i, a := range txs {
		for j, b := range txs {
			if i == j {
				continue
			}
			if !FrequenciesOverlap(
				a.Protocol.FrequencyMHz, a.Protocol.BandwidthKHz,
				b.Protocol.FrequencyMHz, b.Protocol.BandwidthKHz,
			) {
				continue
			}
			env.AddNoiseSource(&NoiseSource{
				Position:     a.Position,
				PowerDBm:     a.TxPowerDBm - 10.0,
				FrequencyMHz: a.Protocol.FrequencyMHz,
				BandwidthKHz: a.Protocol.BandwidthKHz,
				Label:        fmt.Sprintf("interf_%d_%d", i, j),
			})
		}
	}
}
