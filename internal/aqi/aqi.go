package aqi

import "math"

// Segment maps a pollutant concentration range onto an index range.
type Segment struct {
	CLow  float64
	CHigh float64
	ILow  float64
	IHigh float64
}

// DefaultSegments is the EPA PM2.5 breakpoint table. Adjacent segments share
// their boundary values, so the mapping is continuous across the full range.
var DefaultSegments = []Segment{
	{0, 12.0, 0, 50},
	{12.0, 35.4, 50, 100},
	{35.4, 55.4, 100, 150},
	{55.4, 150.4, 150, 200},
	{150.4, 250.4, 200, 300},
	{250.4, 350.4, 300, 400},
	{350.4, 500.4, 400, 500},
}

// Converter turns a raw concentration (µg/m³) into an integer index value
// by piecewise-linear interpolation over an ordered segment table.
// Inputs below the lowest breakpoint clamp to the lowest index; inputs at or
// above the top breakpoint clamp to the maximum index.
type Converter struct {
	segments []Segment
}

func New() Converter {
	return Converter{segments: DefaultSegments}
}

// NewWithSegments builds a converter over a custom table. The table must be
// ordered by ascending concentration.
func NewWithSegments(segments []Segment) Converter {
	return Converter{segments: segments}
}

// Convert maps a concentration to its rounded index value.
func (c Converter) Convert(concentration float64) int {
	if len(c.segments) == 0 {
		return 0
	}

	first := c.segments[0]
	if concentration < first.CLow {
		return int(math.Round(first.ILow))
	}

	last := c.segments[len(c.segments)-1]
	if concentration >= last.CHigh {
		return int(math.Round(last.IHigh))
	}

	for _, seg := range c.segments {
		// A zero-width segment only matches its exact boundary; interpolating
		// across it would divide by zero.
		if seg.CHigh == seg.CLow {
			if concentration == seg.CLow {
				return int(math.Round(seg.IHigh))
			}

			continue
		}

		if concentration < seg.CHigh {
			return int(math.Round(interpolate(seg, concentration)))
		}
	}

	return int(math.Round(last.IHigh))
}

func interpolate(seg Segment, concentration float64) float64 {
	return seg.ILow + (concentration-seg.CLow)*(seg.IHigh-seg.ILow)/(seg.CHigh-seg.CLow)
}
