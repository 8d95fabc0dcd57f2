// core/protocol.go
package core

// Protocol is a resolved radio configuration. Distinct protocol families
// (LoRaWAN, NB-IoT, Wi-Fi HaLow) share this one shape; the per-family
// constructors below populate the derived fields at construction time.
type Protocol struct {
	Name           string
	FrequencyMHz   float64
	BandwidthKHz   float64
	MaxTxPowerDBm  float64
	SensitivityDBm float64
}

// LinkBudgetDB returns the maximum allowable path loss
// (max transmit power − sensitivity).
func (p Protocol) LinkBudgetDB() float64 {
	return p.MaxTxPowerDBm - p.SensitivityDBm
}

// lorawanSFSensitivity maps LoRaWAN spreading factor to receiver
// sensitivity in dBm at 125 kHz bandwidth.
var lorawanSFSensitivity = map[int]float64{
	7:  -124.0,
	8:  -127.0,
	9:  -130.0,
	10: -133.0,
	11: -135.0,
	12: -137.0,
}

// NewLoRaWAN builds a LoRaWAN protocol configuration for the given region
// ("EU868" or "US915") and spreading factor (SF7–SF12). Unknown regions keep
// the EU868 defaults and unknown spreading factors fall back to −130 dBm.
func NewLoRaWAN(region string, spreadingFactor int, bandwidthKHz float64) Protocol {
	p := Protocol{
		Name:          "LoRaWAN",
		FrequencyMHz:  868.0,
		BandwidthKHz:  125.0,
		MaxTxPowerDBm: 14.0,
	}
	if bandwidthKHz > 0 {
		p.BandwidthKHz = bandwidthKHz
	}
	if region == "US915" {
		p.FrequencyMHz = 915.0
		p.MaxTxPowerDBm = 30.0
	}
	if s, ok := lorawanSFSensitivity[spreadingFactor]; ok {
		p.SensitivityDBm = s
	} else {
		p.SensitivityDBm = -130.0
	}
	return p
}

// nbiotBandFreq maps 3GPP band names to downlink centre frequency in MHz.
var nbiotBandFreq = map[string]float64{
	"B1":  2140.0,
	"B3":  1805.0,
	"B5":  869.0,
	"B8":  925.0,
	"B20": 791.0,
	"B28": 758.0,
}

// nbiotToneBandwidth maps tone mode to occupied bandwidth in kHz.
var nbiotToneBandwidth = map[string]float64{
	"single-3.75": 3.75,
	"single-15":   15.0,
	"multi-3":     45.0,
	"multi-6":     90.0,
	"multi-12":    180.0,
}

// NewNBIoT builds an NB-IoT protocol configuration for a 3GPP band (e.g.
// "B20") and tone mode. Unknown bands default to B20 and unknown tone modes
// to single-tone 15 kHz.
func NewNBIoT(band, toneMode string) Protocol {
	freq, ok := nbiotBandFreq[band]
	if !ok {
		freq = 791.0
	}
	bw, ok := nbiotToneBandwidth[toneMode]
	if !ok {
		bw = 15.0
	}
	return Protocol{
		Name:           "NB-IoT",
		FrequencyMHz:   freq,
		BandwidthKHz:   bw,
		MaxTxPowerDBm:  23.0,
		SensitivityDBm: -141.0,
	}
}

// HaLowUSChannels lists the valid 802.11ah US channel numbers per channel
// width in MHz (902–928 MHz band).
var HaLowUSChannels = map[int][]int{
	1:  seq(1, 51, 2),
	2:  seq(2, 50, 4),
	4:  {4, 12, 20, 28, 36, 44},
	8:  {8, 24, 40},
	16: {16, 48},
}

func seq(start, end, step int) []int {
	var out []int
	for v := start; v <= end; v += step {
		out = append(out, v)
	}
	return out
}

// HaLowChannelFreqMHz returns the centre frequency of a US HaLow channel.
func HaLowChannelFreqMHz(channel int) float64 {
	return 902.0 + float64(channel)*0.5
}

// NewWiFiHaLow builds an 802.11ah (Wi-Fi HaLow) protocol configuration from
// a US channel number, channel width in MHz (1, 2, 4, 8, or 16) and MCS
// index. Sensitivity degrades roughly 3 dB per MCS step from a −130 dBm
// MCS0 baseline.
func NewWiFiHaLow(channel int, channelWidthMHz float64, mcs int) Protocol {
	if channelWidthMHz <= 0 {
		channelWidthMHz = 1.0
	}
	return Protocol{
		Name:           "WiFi-HaLow",
		FrequencyMHz:   HaLowChannelFreqMHz(channel),
		BandwidthKHz:   channelWidthMHz * 1000.0,
		MaxTxPowerDBm:  30.0,
		SensitivityDBm: -130.0 + float64(mcs)*3.0,
	}
}
