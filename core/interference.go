package core

import "math"

// boltzmann is the Boltzmann constant in J/K.
const boltzmann = 1.380649e-23

// NoisePowerDBm returns the thermal noise power kTB expressed in dBm for a
// receiver bandwidth in Hz at the given temperature in kelvin.
func NoisePowerDBm(bandwidthHz, temperatureK float64) float64 {
	nWatts := boltzmann * temperatureK * bandwidthHz
	return 10.0*math.Log10(nWatts) + 30.0
}

// OverlapFactor returns the fraction of channel 2's bandwidth that overlaps
// channel 1. Frequencies are MHz, bandwidths kHz. Identical channels yield
// 1.0; channels separated by more than the sum of their half-bandwidths
// yield 0.0.
func OverlapFactor(f1MHz, bw1KHz, f2MHz, bw2KHz float64) float64 {
	lo1 := f1MHz - bw1KHz/2000.0
	hi1 := f1MHz + bw1KHz/2000.0
	lo2 := f2MHz - bw2KHz/2000.0
	hi2 := f2MHz + bw2KHz/2000.0

	overlap := math.Max(0, math.Min(hi1, hi2)-math.Max(lo1, lo2))
	width2 := bw2KHz / 1000.0
	if width2 <= 0 {
		return 0
	}
	return overlap / width2
}

// FrequenciesOverlap reports whether two channels share any spectrum.
func FrequenciesOverlap(f1MHz, bw1KHz, f2MHz, bw2KHz float64) bool {
	lo1 := f1MHz - bw1KHz/2000.0
	hi1 := f1MHz + bw1KHz/2000.0
	lo2 := f2MHz - bw2KHz/2000.0
	hi2 := f2MHz + bw2KHz/2000.0
	return lo1 < hi2 && lo2 < hi1
}

// dbmToMilliwatts converts dBm to linear milliwatts.
func dbmToMilliwatts(dbm float64) float64 {
	return math.Pow(10.0, dbm/10.0)
}

// milliwattsToDBm converts linear milliwatts back to dBm.
func milliwattsToDBm(mw float64) float64 {
	return 10.0 * math.Log10(mw)
}
