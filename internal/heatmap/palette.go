package heatmap

import "math"

// Palette maps an 8-bit intensity to an RGB color.
type Palette [256][3]uint8

// inferno polynomial fit (Matt Zucker, CC0) in RGB order.
var infernoCoefficients = [7][3]float64{
	{0.0002189403691192265, 0.001651004631001012, -0.01948089843709184},
	{0.1065134194856116, 0.5639564367884091, 3.932712388889277},
	{11.60249308247187, -3.972853965665698, -15.9423941062914},
	{-41.70399613139459, 17.43639888205313, 44.35414519872813},
	{77.162935699427, -33.40235894210092, -81.80730925738993},
	{-71.31942824499214, 32.62606426397723, 73.20951985803202},
	{25.13112622477341, -12.24266895238567, -23.07032500287172},
}

// Inferno is the dark-purple to bright-yellow palette used for overlays.
// Index 0 is near black so cold regions barely tint the frame.
var Inferno = buildInferno()

func buildInferno() Palette {
	var p Palette
	for i := range p {
		t := float64(i) / 255
		for ch := 0; ch < 3; ch++ {
			v := infernoCoefficients[6][ch]
			for k := 5; k >= 0; k-- {
				v = infernoCoefficients[k][ch] + t*v
			}
			v = math.Min(math.Max(v, 0), 1)
			p[i][ch] = uint8(math.Round(v * 255))
		}
	}
	return p
}
